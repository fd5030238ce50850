// Package session owns the authenticated identity of the running process.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/martiniano/crm-console/internal/domain"
	"github.com/martiniano/crm-console/internal/port"
)

// Store holds the current credential. State is always replaced whole,
// never merged, and persisted as a pair.
type Store struct {
	persist port.SessionPersistence
	auth    port.Authenticator
	logger  *zap.Logger
	now     func() time.Time

	mu   sync.RWMutex
	cred *domain.Credential
}

// NewStore restores any persisted credential. An expired JWT is discarded
// along with its identity.
func NewStore(ctx context.Context, persist port.SessionPersistence, auth port.Authenticator, logger *zap.Logger) (*Store, error) {
	s := &Store{persist: persist, auth: auth, logger: logger, now: time.Now}

	cred, err := persist.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	if cred == nil {
		return s, nil
	}
	if cred.Expired(s.now()) {
		logger.Info("discarding expired session", zap.String("username", cred.Identity.Username))
		if err := persist.Clear(ctx); err != nil {
			return nil, fmt.Errorf("clear expired session: %w", err)
		}
		return s, nil
	}

	s.cred = cred
	return s, nil
}

// SetAuthenticator sets the collaborator used by Login. Needed because the
// authenticator's HTTP client reads its token from this store.
func (s *Store) SetAuthenticator(auth port.Authenticator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth = auth
}

// Login exchanges credentials and, on success, replaces and persists the
// session. On failure the previous session is left as it was.
func (s *Store) Login(ctx context.Context, email, password string) (*domain.Identity, error) {
	s.mu.RLock()
	auth := s.auth
	s.mu.RUnlock()
	if auth == nil {
		return nil, fmt.Errorf("session: no authenticator configured")
	}

	cred, err := auth.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if err := s.persist.Save(ctx, *cred); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	s.mu.Lock()
	s.cred = cred
	s.mu.Unlock()

	id := cred.Identity
	return &id, nil
}

// Logout clears the session. It is unconditional and idempotent.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.cred = nil
	s.mu.Unlock()

	if err := s.persist.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Invalidate tears the session down after the backend answered 401.
func (s *Store) Invalidate(ev domain.SessionInvalidated) {
	s.mu.Lock()
	had := s.cred != nil
	s.cred = nil
	s.mu.Unlock()

	if had {
		s.logger.Warn("session invalidated",
			zap.String("op", ev.Op),
			zap.String("path", ev.Path),
			zap.Int("status", ev.Status),
		)
	}
	if err := s.persist.Clear(context.Background()); err != nil {
		s.logger.Error("failed to clear persisted session", zap.Error(err))
	}
}

// IsAuthenticated reports whether a credential is held.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cred != nil
}

// CurrentIdentity returns the identity, or nil when logged out.
func (s *Store) CurrentIdentity() *domain.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cred == nil {
		return nil
	}
	id := s.cred.Identity
	return &id
}

// Token returns the bearer token, or "" when logged out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cred == nil {
		return ""
	}
	return s.cred.Token
}

// ExpiresAt reports the token's exp claim when it has one.
func (s *Store) ExpiresAt() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cred == nil {
		return time.Time{}, false
	}
	return s.cred.ExpiresAt()
}
