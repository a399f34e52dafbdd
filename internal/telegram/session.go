package telegram

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Manager opens authenticated sessions, persisting one opaque session
// token per account so re-authentication is not required every run.
type Manager struct {
	factory     ClientFactory
	sessionsDir string
	log         *zap.Logger
}

// NewManager constructs a Manager. sessionsDir holds one token file
// per account, named after the phone without its plus sign.
func NewManager(factory ClientFactory, sessionsDir string, log *zap.Logger) *Manager {
	return &Manager{
		factory:     factory,
		sessionsDir: sessionsDir,
		log:         log,
	}
}

func (m *Manager) tokenPath(phone string) string {
	return filepath.Join(m.sessionsDir, strings.TrimPrefix(phone, "+"))
}

// Open connects and authenticates one account. On success the
// (possibly refreshed) session token is persisted before returning.
// Failures are *AuthError; callers treat them as fatal to this account
// only.
func (m *Manager) Open(ctx context.Context, acct Account) (*Session, error) {
	token := ""
	data, err := os.ReadFile(m.tokenPath(acct.Phone))
	if err == nil {
		token = strings.TrimSpace(string(data))
	} else if !errors.Is(err, os.ErrNotExist) {
		m.log.Warn("session token unreadable, authenticating from scratch",
			zap.String("phone", acct.Phone), zap.Error(err))
	}

	client := m.factory(acct)
	newToken, err := client.Connect(ctx, token)
	if err != nil {
		var authErr *AuthError
		if errors.As(err, &authErr) {
			return nil, authErr
		}
		return nil, &AuthError{Phone: acct.Phone, Reason: AuthFailed, Err: err}
	}

	if err := os.MkdirAll(m.sessionsDir, 0o700); err != nil {
		_ = client.Disconnect(ctx)
		return nil, &AuthError{Phone: acct.Phone, Reason: AuthFailed, Err: fmt.Errorf("sessions dir: %w", err)}
	}
	if err := os.WriteFile(m.tokenPath(acct.Phone), []byte(newToken), 0o600); err != nil {
		_ = client.Disconnect(ctx)
		return nil, &AuthError{Phone: acct.Phone, Reason: AuthFailed, Err: fmt.Errorf("persist session token: %w", err)}
	}

	m.log.Info("session opened", zap.String("phone", acct.Phone))
	return &Session{client: client, acct: acct, log: m.log}, nil
}

// Session is one authenticated connection. It is the single handle
// type used uniformly by the scheduler and the ingestor.
type Session struct {
	client Client
	acct   Account
	log    *zap.Logger
}

// Phone returns the owning account's identifier.
func (s *Session) Phone() string {
	return s.acct.Phone
}

// Join resolves ref and issues the matching join request. Failures are
// reported as *GroupJoinError and never abort the session.
func (s *Session) Join(ctx context.Context, ref string) error {
	target, err := ParseGroupRef(ref)
	if err != nil {
		return &GroupJoinError{Group: ref, Err: err}
	}
	if target.Invite {
		err = s.client.JoinInvite(ctx, target.Value)
	} else {
		err = s.client.JoinPublic(ctx, target.Value)
	}
	if err != nil {
		return &GroupJoinError{Group: ref, Err: err}
	}
	return nil
}

// Messages returns the newest-first message sequence for ref, bounded
// by limit.
func (s *Session) Messages(ctx context.Context, ref string, limit int) (MessageIter, error) {
	return s.client.Messages(ctx, ref, limit)
}

// Close releases the connection. Safe to call after a failed crawl;
// the scheduler invokes it unconditionally.
func (s *Session) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect %s: %w", s.acct.Phone, err)
	}
	return nil
}
