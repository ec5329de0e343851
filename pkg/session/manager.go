package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bluele/gcache"
	"github.com/rs/zerolog/log"
	"github.com/spkg/bom"

	"trainboard/pkg/fetch"
)

// ErrTokenUnavailable means no valid token could be obtained; the data request must not be sent
var ErrTokenUnavailable = errors.New("anti-forgery token unavailable")

// DefaultTTL is how long a token is trusted before the landing page is loaded again
const DefaultTTL = 5 * time.Minute

const tokenKey = "token"

// Options configures a Manager
type Options struct {
	LandingURL string
	TTL        time.Duration

	// Fallback identifiers for pages that do not publish them
	ModuleID string
	TabID    string

	Clock gcache.Clock
}

// Manager owns the cached anti-forgery token. Reads are lock-free while the token is fresh;
// refreshes are serialized so at most one landing page fetch is in flight.
type Manager struct {
	fetcher fetch.Strategy
	opts    Options
	clock   gcache.Clock
	cache   gcache.Cache

	mu        sync.Mutex
	refreshes atomic.Int64
}

// NewManager creates a token manager that loads landing pages through fetcher
func NewManager(fetcher fetch.Strategy, opts Options) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	clock := opts.Clock
	if clock == nil {
		clock = gcache.NewRealClock()
	}

	return &Manager{
		fetcher: fetcher,
		opts:    opts,
		clock:   clock,
		cache: gcache.New(1).
			Simple().
			Clock(clock).
			Expiration(opts.TTL).
			Build(),
	}
}

// Get returns the cached token, loading a new one when it is missing or older than the TTL
func (m *Manager) Get(ctx context.Context) (Token, error) {
	if tok, ok := m.cached(); ok {
		return tok, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Someone else may have refreshed while we waited for the lock
	if tok, ok := m.cached(); ok {
		return tok, nil
	}
	return m.refreshLocked(ctx)
}

// Refresh loads a new token regardless of the cached one
func (m *Manager) Refresh(ctx context.Context) (Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.refreshLocked(ctx)
}

// Invalidate drops the cached token so the next Get loads a fresh one
func (m *Manager) Invalidate() {
	if m.cache.Remove(tokenKey) {
		log.Info().Msg("anti-forgery token invalidated")
	}
}

// Refreshes reports how many landing page loads have been attempted
func (m *Manager) Refreshes() int64 {
	return m.refreshes.Load()
}

func (m *Manager) cached() (Token, bool) {
	v, err := m.cache.GetIFPresent(tokenKey)
	if err != nil {
		return Token{}, false
	}
	tok, ok := v.(Token)
	if !ok || tok.Age(m.clock.Now()) >= m.opts.TTL {
		return Token{}, false
	}
	return tok, true
}

// refreshLocked must be called with m.mu held. On failure the cache is left untouched.
func (m *Manager) refreshLocked(ctx context.Context) (Token, error) {
	m.refreshes.Add(1)

	res, err := m.fetcher.Fetch(ctx, fetch.Get(m.opts.LandingURL))
	if err != nil {
		return Token{}, fmt.Errorf("%w: loading landing page: %w", ErrTokenUnavailable, err)
	}

	tok, err := ParseToken(bytes.NewReader(bom.Clean(res.Body)))
	if err != nil {
		return Token{}, fmt.Errorf("%w: %w", ErrTokenUnavailable, err)
	}

	if tok.ModuleID == "" {
		tok.ModuleID = m.opts.ModuleID
	}
	if tok.TabID == "" {
		tok.TabID = m.opts.TabID
	}
	tok.Cookies = res.Cookies
	tok.FetchedAt = m.clock.Now()

	if err := m.cache.Set(tokenKey, tok); err != nil {
		return Token{}, fmt.Errorf("%w: caching token: %w", ErrTokenUnavailable, err)
	}

	log.Info().
		Str("module_id", tok.ModuleID).
		Str("tab_id", tok.TabID).
		Int("cookies", len(tok.Cookies)).
		Msg("refreshed anti-forgery token")

	return tok, nil
}
