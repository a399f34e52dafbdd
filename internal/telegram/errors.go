package telegram

import (
	"fmt"
	"time"
)

// AuthReason distinguishes why non-interactive authentication failed.
type AuthReason int

// Auth failure reasons.
const (
	AuthFailed AuthReason = iota
	AuthNeedsCode
	AuthNeedsPassword
)

func (r AuthReason) String() string {
	switch r {
	case AuthNeedsCode:
		return "needs login code"
	case AuthNeedsPassword:
		return "needs second-factor password"
	default:
		return "authentication failed"
	}
}

// AuthError means one account could not authenticate. It is fatal to
// that account only; the scheduler continues with the rest.
type AuthError struct {
	Phone  string
	Reason AuthReason
	Err    error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth %s: %s: %v", e.Phone, e.Reason, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// GroupJoinError means one candidate group could not be joined. It is
// local to that candidate and never aborts the session.
type GroupJoinError struct {
	Group string
	Err   error
}

func (e *GroupJoinError) Error() string {
	return fmt.Sprintf("join %s: %v", e.Group, e.Err)
}

func (e *GroupJoinError) Unwrap() error { return e.Err }

// FloodWaitError is the remote's rate-limit cooldown signal. The
// caller must stop scraping the current group and not retry it within
// this run; partial results remain valid.
type FloodWaitError struct {
	RetryAfter time.Duration
}

func (e *FloodWaitError) Error() string {
	return fmt.Sprintf("flood wait: retry after %s", e.RetryAfter)
}
