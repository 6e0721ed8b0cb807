// Package panel holds counter panels: the in-memory counter record and
// in-flight marker behind one dashboard mount.
package panel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alfredjeanlab/suicounter/internal/executor"
	"github.com/alfredjeanlab/suicounter/internal/model"
)

// Panel is one mounted counter. All methods are safe for concurrent use.
type Panel struct {
	id        string
	network   model.Network
	packageID string
	createdAt time.Time

	mu       sync.Mutex
	counter  model.Counter
	inFlight model.Operation
	lastSeen time.Time
	notice   *model.Notification
}

// Snapshot is a point-in-time copy of a panel's state.
type Snapshot struct {
	ID        string          `json:"id"`
	Network   model.Network   `json:"network"`
	PackageID string          `json:"package_id"`
	Counter   model.Counter   `json:"counter"`
	InFlight  model.Operation `json:"in_flight,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	LastSeen  time.Time       `json:"last_seen"`
}

// New mounts a panel with a fresh counter {packageID, 0}.
func New(id string, network model.Network, packageID string) *Panel {
	now := time.Now()
	return &Panel{
		id:        id,
		network:   network,
		packageID: packageID,
		createdAt: now,
		counter:   model.Counter{ID: packageID, Count: 0},
		lastSeen:  now,
	}
}

// ID returns the panel id.
func (p *Panel) ID() string { return p.id }

// Network returns the network the panel was mounted with.
func (p *Panel) Network() model.Network { return p.network }

// PackageID returns the package identifier of the panel's network.
func (p *Panel) PackageID() string { return p.packageID }

// Begin marks op as in flight. It implements executor.Guard: only one
// operation may be in flight per panel.
func (p *Panel) Begin(op model.Operation) (func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.inFlight != model.OpNone {
		return nil, &executor.BusyError{InFlight: p.inFlight}
	}
	p.inFlight = op
	p.lastSeen = time.Now()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			p.inFlight = model.OpNone
			p.mu.Unlock()
		})
	}, nil
}

// Apply replaces the counter with fn(counter) and returns the new value.
func (p *Panel) Apply(fn func(model.Counter) model.Counter) model.Counter {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counter = fn(p.counter)
	p.lastSeen = time.Now()
	return p.counter
}

// Run executes op on this panel through ex.
func (p *Panel) Run(ctx context.Context, ex *executor.Executor, session *model.WalletSession, op model.Operation) model.Notification {
	mutation := model.MutationFor(op, p.packageID)
	return ex.Execute(ctx, session, op, p, func() error {
		if mutation == nil {
			return fmt.Errorf("unknown operation %q", op)
		}
		p.Apply(mutation)
		return nil
	})
}

// Snapshot returns a copy of the panel's current state.
func (p *Panel) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot{
		ID:        p.id,
		Network:   p.network,
		PackageID: p.packageID,
		Counter:   p.counter,
		InFlight:  p.inFlight,
		CreatedAt: p.createdAt,
		LastSeen:  p.lastSeen,
	}
}

// SetNotice stores n to be shown on the next render of the panel.
func (p *Panel) SetNotice(n model.Notification) {
	p.mu.Lock()
	p.notice = &n
	p.mu.Unlock()
}

// TakeNotice returns and clears the pending notice.
func (p *Panel) TakeNotice() (model.Notification, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.notice == nil {
		return model.Notification{}, false
	}
	n := *p.notice
	p.notice = nil
	return n, true
}

func (p *Panel) touch(now time.Time) {
	p.mu.Lock()
	p.lastSeen = now
	p.mu.Unlock()
}

// idle reports how long the panel has been untouched. Panels with an
// operation in flight are never idle.
func (p *Panel) idle(now time.Time) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inFlight != model.OpNone {
		return 0
	}
	return now.Sub(p.lastSeen)
}
