package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/suicounter/internal/store"
)

// Scheduler ships the journal to a set of destinations on an interval.
type Scheduler struct {
	journal  store.Store
	dests    []Destination
	interval time.Duration
	log      *slog.Logger

	stop context.CancelFunc
	done chan struct{}
}

// NewScheduler returns an idle scheduler; call Start to begin exporting.
func NewScheduler(journal store.Store, dests []Destination, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		journal:  journal,
		dests:    dests,
		interval: interval,
		log:      logger.With("component", "export"),
	}
}

// Start exports once right away and then on every tick until Stop.
func (s *Scheduler) Start() {
	ctx, stop := context.WithCancel(context.Background())
	s.stop = stop
	s.done = make(chan struct{})
	go s.loop(ctx)
}

// Stop ends the loop, waiting for a running export to finish.
func (s *Scheduler) Stop() {
	if s.stop == nil {
		return
	}
	s.stop()
	<-s.done
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)
	tick := time.NewTicker(s.interval)
	defer tick.Stop()
	for {
		_ = s.RunOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
	}
}

// RunOnce renders the journal and writes it to every destination. A failing
// destination does not keep the rest from being written; all failures are
// joined into the returned error.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var buf bytes.Buffer
	n, err := WriteJSONL(ctx, s.journal, &buf)
	if err != nil {
		s.log.Error("render journal", "err", err)
		return err
	}

	var errs []error
	for _, d := range s.dests {
		if err := d.Write(ctx, buf.Bytes()); err != nil {
			s.log.Error("write export", "destination", d.Name(), "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", d.Name(), err))
		}
	}
	s.log.Info("journal exported",
		"events", n,
		"bytes", buf.Len(),
		"destinations", len(s.dests),
		"failed", len(errs),
	)
	return errors.Join(errs...)
}
