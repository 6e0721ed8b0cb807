package panel

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/alfredjeanlab/suicounter/internal/idgen"
	"github.com/alfredjeanlab/suicounter/internal/model"
)

// ErrNotFound is returned when a panel id is unknown or was reaped.
var ErrNotFound = errors.New("panel not found")

// ReaperConfig configures the background idle-panel reaper.
type ReaperConfig struct {
	// IdleThreshold is how long a panel must be untouched before it is evicted.
	// Zero or negative means the default, 30 minutes.
	IdleThreshold time.Duration

	// SweepInterval is how often the reaper scans for idle panels.
	// Default: 60 seconds.
	SweepInterval time.Duration

	// OnEvict is called for each evicted panel, outside the lock.
	OnEvict func(id string)
}

// Registry tracks mounted panels by id.
type Registry struct {
	mu     sync.RWMutex
	panels map[string]*Panel

	reaperStop chan struct{}
	reaperDone chan struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{panels: make(map[string]*Panel)}
}

// Mount creates and registers a new panel for network.
func (r *Registry) Mount(network model.Network, packageID string) (*Panel, error) {
	id, err := idgen.New(idgen.Panel)
	if err != nil {
		return nil, err
	}
	p := New(id, network, packageID)

	r.mu.Lock()
	r.panels[id] = p
	r.mu.Unlock()
	return p, nil
}

// Get returns the panel with id and marks it as seen.
func (r *Registry) Get(id string) (*Panel, error) {
	r.mu.RLock()
	p, ok := r.panels[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	p.touch(time.Now())
	return p, nil
}

// Len returns the number of live panels.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.panels)
}

// List returns snapshots of all panels, most recently seen first.
func (r *Registry) List() []Snapshot {
	r.mu.RLock()
	panels := make([]*Panel, 0, len(r.panels))
	for _, p := range r.panels {
		panels = append(panels, p)
	}
	r.mu.RUnlock()

	out := make([]Snapshot, 0, len(panels))
	for _, p := range panels {
		out = append(out, p.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastSeen.After(out[j].LastSeen)
	})
	return out
}

// StartReaper launches a background goroutine that evicts idle panels.
// Call Stop() to shut it down.
func (r *Registry) StartReaper(cfg *ReaperConfig) {
	if cfg == nil {
		cfg = &ReaperConfig{}
	}
	if cfg.IdleThreshold <= 0 {
		cfg.IdleThreshold = 30 * time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 60 * time.Second
	}

	r.reaperStop = make(chan struct{})
	r.reaperDone = make(chan struct{})

	go r.reapLoop(cfg)
	slog.Info("panel reaper started",
		"idle_threshold", cfg.IdleThreshold,
		"sweep_interval", cfg.SweepInterval)
}

// Stop shuts down the reaper goroutine.
func (r *Registry) Stop() {
	if r.reaperStop != nil {
		close(r.reaperStop)
		<-r.reaperDone
		r.reaperStop = nil
		r.reaperDone = nil
	}
}

func (r *Registry) reapLoop(cfg *ReaperConfig) {
	defer close(r.reaperDone)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.reaperStop:
			return
		case <-ticker.C:
			r.sweep(cfg, time.Now())
		}
	}
}

func (r *Registry) sweep(cfg *ReaperConfig, now time.Time) {
	var evicted []string

	r.mu.Lock()
	for id, p := range r.panels {
		if p.idle(now) > cfg.IdleThreshold {
			delete(r.panels, id)
			evicted = append(evicted, id)
		}
	}
	r.mu.Unlock()

	for _, id := range evicted {
		slog.Debug("panel reaper evicted idle panel", "panel_id", id, "threshold", cfg.IdleThreshold)
		if cfg.OnEvict != nil {
			cfg.OnEvict(id)
		}
	}
}
