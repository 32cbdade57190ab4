package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
	"golang.org/x/crypto/nacl/secretbox"

	"moodle-portal/internal/domain"
)

const nonceSize = 24

// ErrCorrupt is returned when a stored record cannot be opened, usually
// because SESSION_SECRET changed.
var ErrCorrupt = errors.New("session: record cannot be opened")

// Manager gives the session record its lifecycle on top of a Store.
type Manager struct {
	store Store
	key   [32]byte
	log   *zap.Logger
}

// NewManager seals records with a key derived from secret. An empty secret
// gets a random per-process key, so sessions die with the process.
func NewManager(store Store, secret string, log *zap.Logger) (*Manager, error) {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Manager{store: store, log: log}
	if secret == "" {
		if _, err := io.ReadFull(rand.Reader, m.key[:]); err != nil {
			return nil, fmt.Errorf("session: generate key: %w", err)
		}
		log.Warn("SESSION_SECRET is empty, sessions will not survive a restart")
	} else {
		m.key = sha256.Sum256([]byte(secret))
	}
	return m, nil
}

// Open loads the session stored under key.
func (m *Manager) Open(ctx context.Context, key string) (domain.Session, error) {
	raw, err := m.store.Load(ctx, key)
	if err != nil {
		return domain.Session{}, err
	}
	plain, err := m.open(raw)
	if err != nil {
		m.log.Warn("dropping unreadable session", zap.String("key", key))
		_ = m.store.Delete(ctx, key)
		return domain.Session{}, ErrNoSession
	}
	var s domain.Session
	if err := json.Unmarshal(plain, &s); err != nil {
		return domain.Session{}, fmt.Errorf("session: decode: %w", err)
	}
	if !s.IsAuthenticated {
		return domain.Session{}, ErrNoSession
	}
	return s, nil
}

// Save stores s under key, replacing what was there.
func (m *Manager) Save(ctx context.Context, key string, s domain.Session) error {
	plain, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	sealed, err := m.seal(plain)
	if err != nil {
		return err
	}
	if err := m.store.Save(ctx, key, sealed); err != nil {
		return fmt.Errorf("session: save: %w", err)
	}
	return nil
}

// Clear removes the session stored under key. Clearing a missing session is
// not an error.
func (m *Manager) Clear(ctx context.Context, key string) error {
	if err := m.store.Delete(ctx, key); err != nil && !errors.Is(err, ErrNoSession) {
		return fmt.Errorf("session: clear: %w", err)
	}
	return nil
}

func (m *Manager) Close() error { return m.store.Close() }

func (m *Manager) seal(plain []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("session: nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plain, &nonce, &m.key), nil
}

func (m *Manager) open(sealed []byte) ([]byte, error) {
	if len(sealed) < nonceSize+secretbox.Overhead {
		return nil, ErrCorrupt
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &m.key)
	if !ok {
		return nil, ErrCorrupt
	}
	return plain, nil
}
