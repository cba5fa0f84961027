// Package outbox implements the background dispatcher for staged domain
// events. The dispatcher claims pending outbox entries on a fixed interval
// and "publishes" them; in this service publication is a structured log line
// (no real message bus is wired), so a claimed entry is always marked sent.
//
// Design notes:
//   - The dispatcher is an owned task with an explicit Start/Stop lifecycle,
//     not an ambient global timer.
//   - Tick and DrainBatch are plain methods so the claim/publish logic can be
//     unit-tested without running the timer.
//   - Errors during a tick are logged and swallowed; the timer keeps running.
package outbox

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-discount-backend/internal/domain"
	"github.com/tbourn/go-discount-backend/internal/repo"
)

var (
	// dispatchedTotal counts outbox entries claimed and published, by entry type.
	dispatchedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_entries_dispatched_total",
			Help: "Total number of outbox entries claimed and published.",
		},
		[]string{"type"},
	)

	// drainBatches counts manual drain invocations.
	drainBatches = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "outbox_drain_batches_total",
			Help: "Total number of manual outbox drain batches.",
		},
	)

	// pendingBacklog gauges the pending backlog observed at the last tick.
	pendingBacklog = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "outbox_pending_entries",
			Help: "Pending outbox entries observed at the last dispatcher tick.",
		},
	)
)

func init() {
	prometheus.MustRegister(dispatchedTotal, drainBatches, pendingBacklog)
}

// Dispatcher periodically claims pending outbox entries and publishes them.
// It must be created with NewDispatcher; the zero value is not usable.
type Dispatcher struct {
	db       *gorm.DB
	interval time.Duration
	log      zerolog.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	started   atomic.Bool
	stop      chan struct{}
	done      chan struct{}
}

// NewDispatcher constructs a Dispatcher polling db every interval. Intervals
// below 100ms are coerced up to avoid a busy loop from misconfiguration.
func NewDispatcher(db *gorm.DB, interval time.Duration, log zerolog.Logger) *Dispatcher {
	if interval < 100*time.Millisecond {
		interval = 100 * time.Millisecond
	}
	return &Dispatcher{
		db:       db,
		interval: interval,
		log:      log,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the polling loop in its own goroutine. Subsequent calls are
// no-ops.
func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		d.started.Store(true)
		go d.run()
	})
}

// Stop terminates the polling loop and blocks until it has exited. Safe to
// call multiple times; when the loop was never started it returns
// immediately.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.stop) })
	if !d.started.Load() {
		return
	}
	select {
	case <-d.done:
	case <-time.After(5 * time.Second):
		d.log.Warn().Msg("outbox dispatcher did not stop in time")
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)

	d.log.Info().Dur("interval", d.interval).Msg("outbox dispatcher started")
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stop:
			d.log.Info().Msg("outbox dispatcher stopped")
			return
		case <-ticker.C:
			if _, err := d.Tick(context.Background()); err != nil {
				// Never terminate the loop on a tick error; the next
				// interval gets a fresh attempt.
				d.log.Error().Err(err).Msg("outbox tick failed")
			}
		}
	}
}

// Tick claims at most one pending entry and publishes it. It returns the
// claimed entry, or nil when the backlog is empty. The backlog gauge is
// refreshed on every tick.
func (d *Dispatcher) Tick(ctx context.Context) (*domain.OutboxEntry, error) {
	entry, err := repo.ClaimNextPending(ctx, d.db)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		pendingBacklog.Set(0)
		return nil, nil
	}

	d.publish(entry)

	if count, oldest, err := repo.OutboxStats(ctx, d.db); err == nil {
		pendingBacklog.Set(float64(count))
		if count > 0 && oldest != nil {
			d.log.Debug().
				Int64("pending", count).
				Time("oldest", *oldest).
				Msg("outbox backlog")
		}
	}
	return entry, nil
}

// DrainBatch synchronously claims up to limit entries, stopping early when
// the backlog is empty. It returns the IDs of the entries processed, in claim
// order. Used by the manual consume endpoint for administrative catch-up.
func (d *Dispatcher) DrainBatch(ctx context.Context, limit int) ([]string, error) {
	drainBatches.Inc()

	processed := make([]string, 0, limit)
	for i := 0; i < limit; i++ {
		entry, err := repo.ClaimNextPending(ctx, d.db)
		if err != nil {
			return processed, err
		}
		if entry == nil {
			break
		}
		d.publish(entry)
		processed = append(processed, entry.ID)
	}
	return processed, nil
}

// publish simulates delivery to a message bus. The log line is the publisher.
func (d *Dispatcher) publish(entry *domain.OutboxEntry) {
	d.log.Info().
		Str("outbox_id", entry.ID).
		Str("type", entry.Type).
		Int("attempts", entry.Attempts).
		RawJSON("payload", []byte(entry.Payload)).
		Msg("outbox entry published")
	dispatchedTotal.WithLabelValues(entry.Type).Inc()
}
