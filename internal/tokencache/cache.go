// Package tokencache stores each local user's Zoom OAuth token until the
// expiry Zoom assigned to it. An expired entry reads exactly like a missing
// one: the user has to authorize again.
package tokencache

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

var ErrNotFound = errors.New("token not cached")

// Cache maps a local user id to that user's provider token.
type Cache interface {
	Get(ctx context.Context, userID string) (*oauth2.Token, error)
	// Set overwrites any previous token for userID.
	Set(ctx context.Context, userID string, tok *oauth2.Token) error
	Delete(ctx context.Context, userID string) error
}

// Expired reports whether tok is past its expiry. A zero expiry never
// expires.
func Expired(tok *oauth2.Token, now time.Time) bool {
	return !tok.Expiry.IsZero() && !now.Before(tok.Expiry)
}

// Memory is a process-local Cache. Tokens are lost on restart.
type Memory struct {
	mu     sync.RWMutex
	tokens map[string]*oauth2.Token
	now    func() time.Time
	logger *slog.Logger
}

func NewMemory(logger *slog.Logger) *Memory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Memory{
		tokens: make(map[string]*oauth2.Token),
		now:    time.Now,
		logger: logger,
	}
}

func (m *Memory) Get(_ context.Context, userID string) (*oauth2.Token, error) {
	m.mu.RLock()
	tok, ok := m.tokens[userID]
	m.mu.RUnlock()
	if !ok || Expired(tok, m.now()) {
		return nil, ErrNotFound
	}
	cp := *tok
	return &cp, nil
}

func (m *Memory) Set(_ context.Context, userID string, tok *oauth2.Token) error {
	if tok == nil || tok.AccessToken == "" {
		return errors.New("tokencache: empty token")
	}
	cp := *tok
	m.mu.Lock()
	m.tokens[userID] = &cp
	m.mu.Unlock()
	m.logger.Debug("cached zoom token", "user_id", userID, "expires_at", tok.Expiry)
	return nil
}

func (m *Memory) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	delete(m.tokens, userID)
	m.mu.Unlock()
	return nil
}

// Run drops expired tokens every interval until ctx is done.
func (m *Memory) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.sweep()
		}
	}
}

func (m *Memory) sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, tok := range m.tokens {
		if Expired(tok, now) {
			delete(m.tokens, id)
			n++
		}
	}
	if n > 0 {
		m.logger.Debug("swept expired zoom tokens", "count", n)
	}
	return n
}
