// Package wallet is the wallet session provider. It hands out development
// wallet sessions: each connect generates an ed25519 keypair and derives a
// Sui-style account address from it. Sessions never sign anything.
package wallet

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/alfredjeanlab/suicounter/internal/idgen"
	"github.com/alfredjeanlab/suicounter/internal/model"
)

// ErrNoSession is returned when a session id is unknown.
var ErrNoSession = errors.New("wallet session not found")

// ed25519Flag is the signature scheme flag prepended to the public key
// before hashing it into an address.
const ed25519Flag = 0x00

// DefaultIdle is how long a session may go unused before the reaper
// drops it.
const DefaultIdle = 24 * time.Hour

// Provider manages connected wallet sessions.
type Provider struct {
	mu       sync.RWMutex
	sessions map[string]*entry

	reaperStop chan struct{}
	reaperDone chan struct{}
}

type entry struct {
	sess     model.WalletSession
	lastSeen time.Time
}

// NewProvider returns an empty provider.
func NewProvider() *Provider {
	return &Provider{sessions: make(map[string]*entry)}
}

// Connect creates a new session backed by a fresh keypair.
func (p *Provider) Connect() (*model.WalletSession, error) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating wallet key: %w", err)
	}
	id, err := idgen.New(idgen.Wallet)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	e := &entry{
		sess: model.WalletSession{
			ID:          id,
			Address:     Address(pub),
			ConnectedAt: now.UTC(),
		},
		lastSeen: now,
	}

	p.mu.Lock()
	p.sessions[id] = e
	p.mu.Unlock()

	copied := e.sess
	return &copied, nil
}

// Lookup returns the session with id and marks it as used. An empty id
// returns (nil, nil): no wallet connected is not an error.
func (p *Provider) Lookup(id string) (*model.WalletSession, error) {
	if id == "" {
		return nil, nil
	}
	if !idgen.Wallet.Owns(id) {
		return nil, ErrNoSession
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.sessions[id]
	if !ok {
		return nil, ErrNoSession
	}
	e.lastSeen = time.Now()
	copied := e.sess
	return &copied, nil
}

// Disconnect forgets the session with id.
func (p *Provider) Disconnect(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.sessions[id]; !ok {
		return ErrNoSession
	}
	delete(p.sessions, id)
	return nil
}

// Len returns the number of connected sessions.
func (p *Provider) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.sessions)
}

// StartReaper drops sessions unused for longer than idle, checking every
// sweep. onEvict, if set, runs after each sweep that removed something.
func (p *Provider) StartReaper(idle, sweep time.Duration, onEvict func(n int)) {
	if idle <= 0 {
		idle = DefaultIdle
	}
	if sweep <= 0 {
		sweep = time.Minute
	}
	p.reaperStop = make(chan struct{})
	p.reaperDone = make(chan struct{})

	go func(stop <-chan struct{}, done chan<- struct{}) {
		defer close(done)
		tick := time.NewTicker(sweep)
		defer tick.Stop()
		for {
			select {
			case <-stop:
				return
			case now := <-tick.C:
				if n := p.sweep(idle, now); n > 0 && onEvict != nil {
					onEvict(n)
				}
			}
		}
	}(p.reaperStop, p.reaperDone)
	slog.Info("wallet reaper started", "idle_threshold", idle, "sweep_interval", sweep)
}

// Stop shuts down the reaper.
func (p *Provider) Stop() {
	if p.reaperStop == nil {
		return
	}
	close(p.reaperStop)
	<-p.reaperDone
	p.reaperStop, p.reaperDone = nil, nil
}

func (p *Provider) sweep(idle time.Duration, now time.Time) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	var n int
	for id, e := range p.sessions {
		if now.Sub(e.lastSeen) > idle {
			delete(p.sessions, id)
			n++
		}
	}
	if n > 0 {
		slog.Debug("wallet reaper dropped idle sessions", "count", n, "threshold", idle)
	}
	return n
}

// Address derives the account address for an ed25519 public key:
// "0x" + hex(blake2b-256(flag || pubkey)).
func Address(pub ed25519.PublicKey) string {
	buf := make([]byte, 0, 1+len(pub))
	buf = append(buf, ed25519Flag)
	buf = append(buf, pub...)
	sum := blake2b.Sum256(buf)
	return "0x" + hex.EncodeToString(sum[:])
}
