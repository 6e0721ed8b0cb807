// Package executor runs counter operations the way a wallet transaction
// would run: check the session, mark the operation in flight, wait out the
// simulated network latency, apply the mutation and report the outcome.
//
// Nothing is submitted to a chain. The pause stands in for the round trip
// and the mutation is applied locally.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/suicounter/internal/model"
)

// DefaultDelay is the simulated network latency of one operation.
const DefaultDelay = 1200 * time.Millisecond

// BusyError is returned by a Guard when another operation already holds it.
type BusyError struct {
	InFlight model.Operation
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("operation %s already in flight", e.InFlight)
}

// Guard marks an operation as in flight. Begin returns a release function
// that clears the marker, or a *BusyError when the guard is held.
type Guard interface {
	Begin(op model.Operation) (release func(), err error)
}

// Executor runs operations against a Guard.
type Executor struct {
	delay  time.Duration
	logger *slog.Logger
}

// New returns an Executor that pauses for delay before each mutation.
// A nil logger uses slog.Default().
func New(delay time.Duration, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{delay: delay, logger: logger}
}

// Delay returns the simulated latency.
func (e *Executor) Delay() time.Duration {
	return e.delay
}

// Execute runs op. Without a connected session it returns a warning and
// touches nothing. Otherwise it holds guard for the whole pause+mutate
// window and always releases it, even when mutate panics.
func (e *Executor) Execute(ctx context.Context, session *model.WalletSession, op model.Operation, guard Guard, mutate func() error) model.Notification {
	if !session.Connected() {
		return model.WalletNotConnected(op)
	}

	release, err := guard.Begin(op)
	if err != nil {
		var busy *BusyError
		if errors.As(err, &busy) {
			return model.OperationInProgress(op, busy.InFlight)
		}
		e.logger.Warn("operation guard failed", "operation", op, "error", err)
		return model.TransactionFailed(op)
	}
	defer release()

	if err := e.run(ctx, mutate); err != nil {
		e.logger.Warn("operation failed",
			"operation", op,
			"address", session.Address,
			"error", err,
		)
		return model.TransactionFailed(op)
	}

	e.logger.Debug("operation completed", "operation", op, "address", session.Address)
	return model.TransactionSucceeded(op)
}

func (e *Executor) run(ctx context.Context, mutate func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mutation panicked: %v", r)
		}
	}()

	if err := pause(ctx, e.delay); err != nil {
		return err
	}
	return mutate()
}

// pause waits for d or until ctx is done.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("simulated transaction interrupted: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
