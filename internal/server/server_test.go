package server

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/alfredjeanlab/suicounter/internal/events"
	"github.com/alfredjeanlab/suicounter/internal/executor"
	"github.com/alfredjeanlab/suicounter/internal/model"
	"github.com/alfredjeanlab/suicounter/internal/panel"
	"github.com/alfredjeanlab/suicounter/internal/store"
	"github.com/alfredjeanlab/suicounter/internal/store/memory"
	"github.com/alfredjeanlab/suicounter/internal/wallet"
)

func TestNewCounterServer_Defaults(t *testing.T) {
	srv := NewCounterServer(Options{})
	if srv.executor.Delay() != executor.DefaultDelay {
		t.Errorf("delay = %v, want %v", srv.executor.Delay(), executor.DefaultDelay)
	}
	if srv.packages.For(model.NetworkDevnet) == "" {
		t.Error("expected default package ids")
	}
	if srv.store == nil || srv.publisher == nil {
		t.Error("expected default store and publisher")
	}
}

func TestMountPanel_ResolvesNetwork(t *testing.T) {
	srv, ms, _ := newTestServer()
	for _, tc := range []struct {
		query       string
		wantNetwork model.Network
		wantID      string
	}{
		{"", model.NetworkDevnet, "0xdev"},
		{"network=testnet", model.NetworkTestnet, "0xtest"},
		{"network=mainnet", model.NetworkMainnet, "0xmain"},
		{"network=bogus", model.NetworkDevnet, "0xdev"},
	} {
		q, _ := url.ParseQuery(tc.query)
		p, err := srv.MountPanel(context.Background(), q)
		if err != nil {
			t.Fatalf("MountPanel(%q): %v", tc.query, err)
		}
		snap := p.Snapshot()
		if snap.Network != tc.wantNetwork {
			t.Errorf("%q: network = %q, want %q", tc.query, snap.Network, tc.wantNetwork)
		}
		if snap.Counter != (model.Counter{ID: tc.wantID, Count: 0}) {
			t.Errorf("%q: counter = %+v", tc.query, snap.Counter)
		}
	}

	evts, _ := ms.ListEvents(context.Background(), store.EventFilter{Topic: events.TopicPanelMounted})
	if len(evts) != 4 {
		t.Errorf("journaled %d mount events, want 4", len(evts))
	}
}

// connect opens a wallet session on srv.
func connect(t *testing.T, srv *CounterServer) *model.WalletSession {
	t.Helper()
	sess, err := srv.ConnectWallet(context.Background())
	if err != nil {
		t.Fatalf("ConnectWallet: %v", err)
	}
	return sess
}

func TestRunOperation_ThreeIncrements(t *testing.T) {
	srv, _, _ := newTestServer()
	sess := connect(t, srv)
	p, _ := srv.MountPanel(context.Background(), nil)

	var last model.Notification
	for range 3 {
		_, n, err := srv.RunOperation(context.Background(), p.ID(), sess.ID, model.OpIncrement)
		if err != nil {
			t.Fatalf("RunOperation: %v", err)
		}
		last = n
	}
	if got := p.Snapshot().Counter.Count; got != 3 {
		t.Fatalf("count = %d, want 3", got)
	}
	if last.Title != "Transaction Successful" || last.Description != "Counter increment completed" {
		t.Errorf("notification = %+v", last)
	}
}

func TestRunOperation_NoWallet(t *testing.T) {
	srv, ms, _ := newTestServer()
	p, _ := srv.MountPanel(context.Background(), nil)

	for _, sessionID := range []string{"", "ws-unknown"} {
		snap, n, err := srv.RunOperation(context.Background(), p.ID(), sessionID, model.OpIncrement)
		if err != nil {
			t.Fatalf("RunOperation: %v", err)
		}
		if n.Kind != model.KindWarning || n.Title != "Wallet Not Connected" {
			t.Errorf("session %q: notification = %+v", sessionID, n)
		}
		if snap.Counter.Count != 0 {
			t.Errorf("count = %d, want 0", snap.Counter.Count)
		}
	}

	evts, _ := ms.GetEvents(context.Background(), p.ID())
	var warned int
	for _, e := range evts {
		if e.Topic == events.TopicOpWarned {
			warned++
		}
	}
	if warned != 2 {
		t.Errorf("warned events = %d, want 2", warned)
	}
}

func TestRunOperation_Errors(t *testing.T) {
	srv, _, _ := newTestServer()
	p, _ := srv.MountPanel(context.Background(), nil)

	_, _, err := srv.RunOperation(context.Background(), "pn-missing", "", model.OpReset)
	if !errors.Is(err, panel.ErrNotFound) {
		t.Errorf("missing panel: err = %v, want ErrNotFound", err)
	}

	_, _, err = srv.RunOperation(context.Background(), p.ID(), "", model.Operation("explode"))
	var ie inputError
	if !errors.As(err, &ie) {
		t.Errorf("unknown op: err = %v, want inputError", err)
	}
}

func TestRunOperation_DecrementClampsAndCreateUsesNetworkID(t *testing.T) {
	srv, _, _ := newTestServer()
	sess := connect(t, srv)
	q := url.Values{"network": {"testnet"}}
	p, _ := srv.MountPanel(context.Background(), q)

	snap, _, _ := srv.RunOperation(context.Background(), p.ID(), sess.ID, model.OpDecrement)
	if snap.Counter.Count != 0 {
		t.Errorf("count after decrement at zero = %d", snap.Counter.Count)
	}

	srv.RunOperation(context.Background(), p.ID(), sess.ID, model.OpIncrement)
	snap, _, _ = srv.RunOperation(context.Background(), p.ID(), sess.ID, model.OpCreate)
	if snap.Counter != (model.Counter{ID: "0xtest", Count: 0}) {
		t.Errorf("counter after create = %+v", snap.Counter)
	}
}

func TestRunOperation_ConcurrentOpIsRejected(t *testing.T) {
	srv, _, _ := newTestServerWithDelay(100 * time.Millisecond)
	sess := connect(t, srv)
	p, _ := srv.MountPanel(context.Background(), nil)

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		kinds []model.NotificationKind
	)
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, n, _ := srv.RunOperation(context.Background(), p.ID(), sess.ID, model.OpIncrement)
			mu.Lock()
			kinds = append(kinds, n.Kind)
			mu.Unlock()
		}()
		time.Sleep(10 * time.Millisecond)
	}
	wg.Wait()

	// The second call is rejected while the first is still pausing.
	if len(kinds) != 2 || kinds[0] != model.KindWarning || kinds[1] != model.KindSuccess {
		t.Errorf("kinds = %v, want [warning success]", kinds)
	}
	if got := p.Snapshot().Counter.Count; got != 1 {
		t.Errorf("count = %d, want 1", got)
	}
}

func TestRunOperation_CancelledContext(t *testing.T) {
	srv, ms, _ := newTestServerWithDelay(time.Second)
	sess := connect(t, srv)
	p, _ := srv.MountPanel(context.Background(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	snap, n, err := srv.RunOperation(ctx, p.ID(), sess.ID, model.OpIncrement)
	if err != nil {
		t.Fatalf("RunOperation: %v", err)
	}
	if n.Kind != model.KindError || n.Description != "Failed to increment counter" {
		t.Errorf("notification = %+v", n)
	}
	if snap.Counter.Count != 0 || snap.InFlight != model.OpNone {
		t.Errorf("snapshot = %+v", snap)
	}

	// The failure is still journaled after the request context ends.
	evts, _ := ms.ListEvents(context.Background(), store.EventFilter{PanelID: p.ID(), Topic: events.TopicOpFailed})
	if len(evts) != 1 {
		t.Errorf("failed events = %d, want 1", len(evts))
	}
}

func TestRecordAndPublish(t *testing.T) {
	pub := &recordingPublisher{}
	ms := memory.New(0)
	srv := NewCounterServer(Options{Store: ms, Publisher: pub, Executor: executor.New(0, nil), Packages: testPackages})

	sess := connect(t, srv)
	p, _ := srv.MountPanel(context.Background(), nil)
	srv.RunOperation(context.Background(), p.ID(), sess.ID, model.OpIncrement)
	if err := srv.DisconnectWallet(context.Background(), sess.ID); err != nil {
		t.Fatalf("DisconnectWallet: %v", err)
	}

	want := []string{
		events.TopicWalletConnected,
		events.TopicPanelMounted,
		events.TopicOpSucceeded,
		events.TopicWalletDisconnected,
	}
	got := pub.published()
	if len(got) != len(want) {
		t.Fatalf("published %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("published[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if ms.Len() != len(want) {
		t.Errorf("journal has %d events, want %d", ms.Len(), len(want))
	}

	evts, _ := ms.ListEvents(context.Background(), store.EventFilter{Topic: events.TopicOpSucceeded})
	if len(evts) != 1 || evts[0].Actor != sess.Address || evts[0].PanelID != p.ID() {
		t.Errorf("op event = %+v", evts)
	}
}

func TestDisconnectWallet_Unknown(t *testing.T) {
	srv, _, _ := newTestServer()
	for _, id := range []string{"", "ws-nope"} {
		if err := srv.DisconnectWallet(context.Background(), id); !errors.Is(err, wallet.ErrNoSession) {
			t.Errorf("DisconnectWallet(%q) = %v, want ErrNoSession", id, err)
		}
	}
}

func TestOnEvict(t *testing.T) {
	srv, ms, _ := newTestServer()
	srv.onEvict("pn-gone")

	evts, _ := ms.GetEvents(context.Background(), "pn-gone")
	if len(evts) != 1 || evts[0].Topic != events.TopicPanelEvicted {
		t.Fatalf("events = %+v", evts)
	}
}

func TestNetworks(t *testing.T) {
	srv, _, _ := newTestServer()
	got := srv.Networks()
	if got[model.NetworkDevnet] != "0xdev" || got[model.NetworkTestnet] != "0xtest" || got[model.NetworkMainnet] != "0xmain" {
		t.Errorf("Networks = %v", got)
	}
}

func TestStartReaper_DropsIdleWallets(t *testing.T) {
	srv, _, _ := newTestServer()
	if _, err := srv.ConnectWallet(context.Background()); err != nil {
		t.Fatal(err)
	}
	srv.StartReaper(time.Hour, 10*time.Millisecond)
	defer srv.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for srv.Wallets.Len() > 0 {
		if time.Now().After(deadline) {
			t.Fatal("idle wallet session was never reaped")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
