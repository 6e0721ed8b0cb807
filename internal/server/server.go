// Package server exposes counter panels over HTTP (dashboard and JSON API)
// and gRPC (health and reflection).
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/alfredjeanlab/suicounter/internal/events"
	"github.com/alfredjeanlab/suicounter/internal/executor"
	"github.com/alfredjeanlab/suicounter/internal/metrics"
	"github.com/alfredjeanlab/suicounter/internal/model"
	"github.com/alfredjeanlab/suicounter/internal/network"
	"github.com/alfredjeanlab/suicounter/internal/panel"
	"github.com/alfredjeanlab/suicounter/internal/ratelimit"
	"github.com/alfredjeanlab/suicounter/internal/store"
	"github.com/alfredjeanlab/suicounter/internal/store/memory"
	"github.com/alfredjeanlab/suicounter/internal/wallet"
)

// Options configures a CounterServer. Zero values fall back to in-memory,
// no-op or default implementations.
type Options struct {
	Store     store.Store
	Publisher events.Publisher
	Executor  *executor.Executor
	Packages  network.PackageIDs
	Limiter   *ratelimit.Limiter
	Metrics   *metrics.Metrics
}

// CounterServer owns the mounted panels and wallet sessions and runs
// operations against them.
type CounterServer struct {
	Panels  *panel.Registry
	Wallets *wallet.Provider

	executor  *executor.Executor
	packages  network.PackageIDs
	store     store.Store
	publisher events.Publisher
	sseHub    *sseHub
	limiter   *ratelimit.Limiter
	metrics   *metrics.Metrics
}

// NewCounterServer returns a CounterServer configured by opts.
func NewCounterServer(opts Options) *CounterServer {
	s := &CounterServer{
		Panels:    panel.NewRegistry(),
		Wallets:   wallet.NewProvider(),
		executor:  opts.Executor,
		packages:  opts.Packages,
		store:     opts.Store,
		publisher: opts.Publisher,
		sseHub:    newSSEHub(),
		limiter:   opts.Limiter,
		metrics:   opts.Metrics,
	}
	if s.executor == nil {
		s.executor = executor.New(executor.DefaultDelay, slog.Default())
	}
	if s.packages == (network.PackageIDs{}) {
		s.packages = network.Defaults()
	}
	if s.store == nil {
		s.store = memory.New(0)
	}
	if s.publisher == nil {
		s.publisher = events.NoopPublisher{}
	}
	return s
}

// inputError indicates invalid user input.
// Transport layers map this to 400.
type inputError string

func (e inputError) Error() string { return string(e) }

// recordAndPublish journals an event, publishes it to NATS and fans it out
// to SSE clients. All three are best-effort; failures are logged.
func (s *CounterServer) recordAndPublish(ctx context.Context, topic, panelID, actor string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Warn("failed to marshal event", "topic", topic, "panel_id", panelID, "error", err)
		return
	}
	if err := s.store.RecordEvent(ctx, &model.Event{
		Topic:   topic,
		PanelID: panelID,
		Actor:   actor,
		Payload: payload,
	}); err != nil {
		slog.Warn("failed to record event", "topic", topic, "panel_id", panelID, "error", err)
	}
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		slog.Warn("failed to publish event", "topic", topic, "panel_id", panelID, "error", err)
	}
	s.sseHub.broadcast(topic, panelID, payload)
}

// Networks returns the package identifier of every network.
func (s *CounterServer) Networks() map[model.Network]string {
	out := make(map[model.Network]string, len(model.Networks))
	for _, n := range model.Networks {
		out[n] = s.packages.For(n)
	}
	return out
}

// MountPanel resolves the network from query and mounts a fresh panel.
func (s *CounterServer) MountPanel(ctx context.Context, query url.Values) (*panel.Panel, error) {
	n := network.Resolve(query)
	p, err := s.Panels.Mount(n, s.packages.For(n))
	if err != nil {
		return nil, err
	}
	s.metrics.SetPanels(s.Panels.Len())

	snap := p.Snapshot()
	s.recordAndPublish(ctx, events.TopicPanelMounted, p.ID(), "", events.PanelMounted{
		PanelID: p.ID(),
		Network: snap.Network,
		Counter: snap.Counter,
	})
	return p, nil
}

// session resolves a wallet session id. Unknown or empty ids mean no wallet
// is connected.
func (s *CounterServer) session(id string) *model.WalletSession {
	sess, err := s.Wallets.Lookup(id)
	if err != nil {
		slog.Debug("unknown wallet session", "session_id", id)
		return nil
	}
	return sess
}

// RunOperation executes op on the panel as the wallet session sessionID.
// The returned error is only for an unknown panel or operation; operation
// outcomes are reported in the notification.
func (s *CounterServer) RunOperation(ctx context.Context, panelID, sessionID string, op model.Operation) (panel.Snapshot, model.Notification, error) {
	if !op.IsValid() {
		return panel.Snapshot{}, model.Notification{}, inputError("unknown operation " + string(op))
	}
	p, err := s.Panels.Get(panelID)
	if err != nil {
		return panel.Snapshot{}, model.Notification{}, err
	}

	sess := s.session(sessionID)
	start := time.Now()
	n := p.Run(ctx, s.executor, sess, op)
	elapsed := time.Since(start)
	s.metrics.ObserveOperation(op, n.Kind, elapsed)

	snap := p.Snapshot()
	var address string
	if sess != nil {
		address = sess.Address
	}
	// The request context may already be cancelled; the outcome is still journaled.
	s.recordAndPublish(context.WithoutCancel(ctx), events.TopicForNotification(n.Kind), p.ID(), address, events.OperationCompleted{
		PanelID:      p.ID(),
		Network:      snap.Network,
		Address:      address,
		Counter:      snap.Counter,
		Notification: n,
		DurationMS:   elapsed.Milliseconds(),
	})
	return snap, n, nil
}

// ConnectWallet opens a new development wallet session.
func (s *CounterServer) ConnectWallet(ctx context.Context) (*model.WalletSession, error) {
	sess, err := s.Wallets.Connect()
	if err != nil {
		return nil, err
	}
	s.metrics.SetWallets(s.Wallets.Len())
	s.recordAndPublish(ctx, events.TopicWalletConnected, "", sess.Address, events.WalletConnected{
		SessionID: sess.ID,
		Address:   sess.Address,
	})
	return sess, nil
}

// DisconnectWallet closes the session with id.
func (s *CounterServer) DisconnectWallet(ctx context.Context, id string) error {
	sess, err := s.Wallets.Lookup(id)
	if err != nil {
		return err
	}
	if sess == nil {
		return wallet.ErrNoSession
	}
	if err := s.Wallets.Disconnect(id); err != nil {
		return err
	}
	s.metrics.SetWallets(s.Wallets.Len())
	s.recordAndPublish(ctx, events.TopicWalletDisconnected, "", sess.Address, events.WalletDisconnected{SessionID: id})
	return nil
}

// StartReaper starts evicting panels idle longer than panelIdle and wallet
// sessions unused for longer than walletIdle.
func (s *CounterServer) StartReaper(panelIdle, walletIdle time.Duration) {
	s.Panels.StartReaper(&panel.ReaperConfig{
		IdleThreshold: panelIdle,
		OnEvict:       s.onEvict,
	})
	s.Wallets.StartReaper(walletIdle, min(walletIdle, time.Minute), func(int) {
		s.metrics.SetWallets(s.Wallets.Len())
	})
}

// Stop stops both reapers.
func (s *CounterServer) Stop() {
	s.Panels.Stop()
	s.Wallets.Stop()
}

func (s *CounterServer) onEvict(id string) {
	s.metrics.SetPanels(s.Panels.Len())
	s.recordAndPublish(context.Background(), events.TopicPanelEvicted, id, "", events.PanelEvicted{PanelID: id})
}

// isNotFound reports whether err means a missing panel or session.
func isNotFound(err error) bool {
	return errors.Is(err, panel.ErrNotFound) || errors.Is(err, wallet.ErrNoSession)
}
