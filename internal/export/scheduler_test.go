package export

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alfredjeanlab/suicounter/internal/model"
	"github.com/alfredjeanlab/suicounter/internal/store/memory"
)

// mockDestination records calls to Write.
type mockDestination struct {
	writes atomic.Int64
	last   atomic.Value // []byte
	err    error
}

func (d *mockDestination) Name() string { return "mock" }

func (d *mockDestination) Write(_ context.Context, data []byte) error {
	d.writes.Add(1)
	cp := make([]byte, len(data))
	copy(cp, data)
	d.last.Store(cp)
	return d.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func TestSchedulerStartStop(t *testing.T) {
	s := memory.New(0)
	seed(t, s, &model.Event{Topic: "counter.panel.mounted", PanelID: "pn-a"})

	dest := &mockDestination{}
	sched := NewScheduler(s, []Destination{dest}, 50*time.Millisecond, testLogger())
	sched.Start()

	// Initial export plus at least one tick.
	time.Sleep(120 * time.Millisecond)
	sched.Stop()

	if writes := dest.writes.Load(); writes < 2 {
		t.Fatalf("expected at least 2 writes, got %d", writes)
	}
	data, ok := dest.last.Load().([]byte)
	if !ok {
		t.Fatal("expected data")
	}
	if lines := nonEmptyLines(string(data)); len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
}

func TestSchedulerStop_NoStart(t *testing.T) {
	sched := NewScheduler(memory.New(0), nil, time.Minute, nil)
	sched.Stop()
}

func TestRunOnce_FailingDestinationDoesNotBlockOthers(t *testing.T) {
	bad := &mockDestination{err: errors.New("unreachable")}
	good := &mockDestination{}
	sched := NewScheduler(memory.New(0), []Destination{bad, good}, time.Minute, testLogger())

	err := sched.RunOnce(context.Background())
	if err == nil || !strings.Contains(err.Error(), "unreachable") {
		t.Fatalf("RunOnce error = %v, want the failing destination's error", err)
	}
	if bad.writes.Load() != 1 || good.writes.Load() != 1 {
		t.Fatalf("writes = %d/%d, want 1/1", bad.writes.Load(), good.writes.Load())
	}
}

func TestRunOnce_StoreErrorSkipsDestinations(t *testing.T) {
	dest := &mockDestination{}
	sched := NewScheduler(failingStore{}, []Destination{dest}, time.Minute, testLogger())

	if err := sched.RunOnce(context.Background()); err == nil {
		t.Fatal("expected store error")
	}
	if dest.writes.Load() != 0 {
		t.Fatalf("writes = %d, want 0", dest.writes.Load())
	}
}
