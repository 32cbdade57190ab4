// Package session keeps the client session record of each signed-in browser.
//
// A Store persists opaque payloads by key. The Manager on top of it gives the
// record its lifecycle (load on start, save on change, clear on logout) and
// seals it so the stored bytes never carry the password in clear.
package session

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ErrNoSession is returned when nothing is stored under a key.
var ErrNoSession = errors.New("session: not found")

// ErrInvalidKey reports a key that is not a ULID.
var ErrInvalidKey = errors.New("session: invalid key")

// Store persists sealed session payloads.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, payload []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewKey returns a fresh browser session key.
func NewKey() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), entropy).String()
}

// ParseKey validates a key received from a browser.
func ParseKey(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrInvalidKey
	}
	if _, err := ulid.ParseStrict(s); err != nil {
		return "", ErrInvalidKey
	}
	return s, nil
}

// OpenStore opens the store named by driver ("sqlite" or "memory").
func OpenStore(driver, dsn string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite":
		s, err := NewSQLiteStore(dsn)
		if err != nil {
			return nil, err
		}
		if err := s.ApplyMigrations(); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("session: migrate: %w", err)
		}
		return s, nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("session: unknown driver %q", driver)
	}
}
