package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Dispatcher sends mail in the background. At most maxInFlight sends run at
// once; messages beyond that are dropped and logged. Failures never reach the
// caller.
type Dispatcher struct {
	mailer  Mailer
	sem     *semaphore.Weighted
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher. timeout bounds each send.
func NewDispatcher(mailer Mailer, maxInFlight int64, timeout time.Duration) *Dispatcher {
	if maxInFlight < 1 {
		maxInFlight = 1
	}
	return &Dispatcher{
		mailer:  mailer,
		sem:     semaphore.NewWeighted(maxInFlight),
		timeout: timeout,
	}
}

// Dispatch queues msg for delivery and returns immediately.
func (d *Dispatcher) Dispatch(msg Message) {
	if d == nil || d.mailer == nil {
		return
	}
	if msg.To == "" {
		slog.Debug("mail skipped, no recipient address", "subject", msg.Subject)
		return
	}
	if !d.sem.TryAcquire(1) {
		slog.Warn("mail dropped, dispatcher saturated", "to", msg.To, "subject", msg.Subject)
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.sem.Release(1)

		ctx := context.Background()
		if d.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d.timeout)
			defer cancel()
		}

		if err := d.mailer.Send(ctx, msg); err != nil {
			slog.Error("mail failed", "to", msg.To, "subject", msg.Subject, "error", err)
		}
	}()
}

// Wait blocks until every dispatched message has been attempted.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}
