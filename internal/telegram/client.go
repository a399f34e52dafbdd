// Package telegram wraps the messaging-network client behind a narrow
// capability interface and manages per-account session lifecycle. The
// real MTProto client is an external collaborator injected at wiring
// time; this package ships the interface, the session plumbing, and a
// simulated client for dry runs.
package telegram

import (
	"context"
	"time"
)

// Account is one crawler identity. Credentials are opaque to the rest
// of the system; the phone is the unique key.
type Account struct {
	Name    string
	Phone   string
	APIID   int
	APIHash string
}

// RawMessage is one message as produced by the client, before
// normalization.
type RawMessage struct {
	ID       int64
	Date     time.Time
	SenderID int64
	Text     string
}

// MessageIter is a finite, non-restartable, newest-first sequence of
// messages. Next returns ok=false once the sequence is exhausted; a
// *FloodWaitError means the remote demanded a cooldown.
type MessageIter interface {
	Next(ctx context.Context) (msg RawMessage, ok bool, err error)
}

// Client is the narrow capability used to talk to the messaging
// network. Connect performs non-interactive authentication from the
// persisted session token (empty means no prior session) and returns
// the token to persist for next time.
type Client interface {
	Connect(ctx context.Context, sessionToken string) (newToken string, err error)
	JoinPublic(ctx context.Context, handle string) error
	JoinInvite(ctx context.Context, inviteHash string) error
	Messages(ctx context.Context, group string, limit int) (MessageIter, error)
	Disconnect(ctx context.Context) error
}

// ClientFactory builds a Client for one account. Injected so the
// scheduler can run against the real network or the simulation.
type ClientFactory func(acct Account) Client
