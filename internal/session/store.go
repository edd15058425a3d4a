// Package session holds the single admin session of the process and persists it to local storage.
package session

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/existflow/blogdesk/internal/logger"
	"github.com/existflow/blogdesk/internal/model"
)

// Local storage keys. Expiry and issue times are stored as unix milliseconds.
const (
	KeyToken      = "Admin-Token"
	KeyExpiration = "token-expiration"
	KeyIssued     = "token-issued"
	KeySalt       = "token-salt"
)

// ErrInvalidSession is returned by Set for a session that has no token or no lifetime
var ErrInvalidSession = errors.New("session must carry a token and an expiry after its issue time")

// KV is the durable key/value storage a Store persists into
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Store is the process-wide session holder. Reads are cheap; every write is persisted.
type Store struct {
	mu      sync.RWMutex
	kv      KV
	sealer  *Sealer
	current model.Session
	log     *logger.Logger
}

// Option configures a Store
type Option func(*storeOptions)

type storeOptions struct {
	passphrase string
	log        *logger.Logger
}

// WithPassphrase seals the token at rest with a key derived from passphrase
func WithPassphrase(passphrase string) Option {
	return func(o *storeOptions) { o.passphrase = passphrase }
}

// WithLogger sets the logger used by the store
func WithLogger(l *logger.Logger) Option {
	return func(o *storeOptions) { o.log = l }
}

// Open creates a Store over kv and restores any session persisted there
func Open(ctx context.Context, kv KV, opts ...Option) (*Store, error) {
	o := storeOptions{log: logger.Named("session")}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Store{kv: kv, log: o.log}

	if o.passphrase != "" {
		salt, err := s.loadSalt(ctx)
		if err != nil {
			return nil, err
		}
		s.sealer = NewSealer(o.passphrase, salt)
	}

	restored, err := s.restore(ctx)
	if err != nil {
		return nil, err
	}
	s.current = restored
	if !restored.IsAnonymous() {
		s.log.Info("Session restored from local storage", logger.F("expires_at", restored.ExpiresAt.Format(time.RFC3339)))
	}
	return s, nil
}

func (s *Store) loadSalt(ctx context.Context) ([]byte, error) {
	encoded, ok, err := s.kv.Get(ctx, KeySalt)
	if err != nil {
		return nil, fmt.Errorf("session.Open: %w", err)
	}
	if ok {
		salt, err := base64.StdEncoding.DecodeString(encoded)
		if err == nil && len(salt) == saltSize {
			return salt, nil
		}
		s.log.Warn("Stored salt is corrupt, generating a new one")
	}

	salt, err := GenerateSalt()
	if err != nil {
		return nil, fmt.Errorf("session.Open: %w", err)
	}
	if err := s.kv.Set(ctx, KeySalt, base64.StdEncoding.EncodeToString(salt)); err != nil {
		return nil, fmt.Errorf("session.Open: %w", err)
	}
	return salt, nil
}

// restore reads the persisted session. Incomplete or unreadable records restore as anonymous.
func (s *Store) restore(ctx context.Context) (model.Session, error) {
	token, hasToken, err := s.kv.Get(ctx, KeyToken)
	if err != nil {
		return model.Session{}, fmt.Errorf("session.Open: %w", err)
	}
	expiry, hasExpiry, err := s.kv.Get(ctx, KeyExpiration)
	if err != nil {
		return model.Session{}, fmt.Errorf("session.Open: %w", err)
	}
	if !hasToken || !hasExpiry || token == "" {
		return model.Session{}, nil
	}

	expiresAt, err := parseMillis(expiry)
	if err != nil {
		s.log.Warn("Discarding session with unreadable expiry", logger.Err(err))
		return model.Session{}, nil
	}

	// token and expiry are only meaningful with the issue time they were computed from
	issued, hasIssued, err := s.kv.Get(ctx, KeyIssued)
	if err != nil {
		return model.Session{}, fmt.Errorf("session.Open: %w", err)
	}
	if !hasIssued {
		s.log.Warn("Discarding session without an issue time")
		return model.Session{}, nil
	}
	issuedAt, err := parseMillis(issued)
	if err != nil || !expiresAt.After(issuedAt) {
		s.log.Warn("Discarding session with unreadable issue time", logger.F("issued", issued))
		return model.Session{}, nil
	}

	if s.sealer != nil {
		token, err = s.sealer.Unseal(token)
		if err != nil {
			s.log.Warn("Discarding session that could not be unsealed", logger.Err(err))
			return model.Session{}, nil
		}
	}

	return model.Session{Token: token, IssuedAt: issuedAt, ExpiresAt: expiresAt}, nil
}

// Get returns the current session
func (s *Store) Get() model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Set replaces the current session and persists it. On a persistence failure the
// previous session stays in effect.
func (s *Store) Set(sess model.Session) error {
	if sess.Token == "" || !sess.ExpiresAt.After(sess.IssuedAt) {
		return ErrInvalidSession
	}

	stored := sess.Token
	if s.sealer != nil {
		sealed, err := s.sealer.Seal(sess.Token)
		if err != nil {
			return fmt.Errorf("session.Set: %w", err)
		}
		stored = sealed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := context.Background()
	writes := []struct{ key, value string }{
		{KeyToken, stored},
		{KeyExpiration, formatMillis(sess.ExpiresAt)},
		{KeyIssued, formatMillis(sess.IssuedAt)},
	}
	for _, w := range writes {
		if err := s.kv.Set(ctx, w.key, w.value); err != nil {
			s.rollback(ctx)
			return fmt.Errorf("session.Set: %w", err)
		}
	}

	s.current = sess
	return nil
}

// rollback re-persists the in-memory session after a failed write. Callers hold s.mu.
func (s *Store) rollback(ctx context.Context) {
	if s.current.IsAnonymous() {
		s.deleteKeys(ctx)
		return
	}
	token := s.current.Token
	if s.sealer != nil {
		if sealed, err := s.sealer.Seal(token); err == nil {
			token = sealed
		}
	}
	_ = s.kv.Set(ctx, KeyToken, token)
	_ = s.kv.Set(ctx, KeyExpiration, formatMillis(s.current.ExpiresAt))
	_ = s.kv.Set(ctx, KeyIssued, formatMillis(s.current.IssuedAt))
}

func (s *Store) deleteKeys(ctx context.Context) error {
	var errs []error
	for _, key := range []string{KeyToken, KeyExpiration, KeyIssued} {
		if err := s.kv.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Clear resets the session to anonymous. The in-memory session is always cleared,
// even when removing the persisted copy fails.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = model.Session{}
	if err := s.deleteKeys(context.Background()); err != nil {
		return fmt.Errorf("session.Clear: %w", err)
	}
	return nil
}

func formatMillis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func parseMillis(s string) (time.Time, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}
