package syncd

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fieldwork/formsync/internal/queue"
)

const (
	// DefaultInterval is the period of the automatic sync timer.
	DefaultInterval = 30 * time.Second
	// DefaultMaxAttempts is how many failed sync attempts a submission
	// gets before it is parked as failed.
	DefaultMaxAttempts = 3
)

// Engine owns the sync schedule and the per-cycle reconciliation loop.
//
// Construct with New, injecting the queue store, gateway, and probe;
// there is no package-level instance. Start/Stop manage the timer; SyncNow
// runs a cycle on demand.
//
// Thread-safety model:
//   - SyncNow: safe from any goroutine; the single-flight guard lets at
//     most one cycle run, losers return MsgAlreadySyncing immediately
//   - Start/Stop: safe from any goroutine; Start replaces a running timer
//   - Subscribe: safe from any goroutine
//
// Stopping only prevents future cycles; an in-flight cycle finishes on
// its own (overlap is prevented by the guard, not by timer cancellation).
type Engine struct {
	queue   *queue.Store
	gateway Gateway
	probe   Probe
	clock   Clock
	log     *slog.Logger

	interval    time.Duration
	maxAttempts int

	syncing atomic.Bool

	mu        sync.Mutex
	stop      chan struct{}
	listeners []listener
	nextID    int
}

type listener struct {
	id int
	fn func(Stats)
}

// Option configures an Engine.
type Option func(*Engine)

// WithInterval sets the automatic sync period.
func WithInterval(d time.Duration) Option {
	return func(e *Engine) { e.interval = d }
}

// WithMaxAttempts sets the retry budget before a submission is parked as
// failed.
func WithMaxAttempts(n int) Option {
	return func(e *Engine) { e.maxAttempts = n }
}

// WithClock injects the clock used for scheduling.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithEngineLogger sets the engine's logger.
func WithEngineLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// New creates an engine over the given collaborators.
func New(q *queue.Store, gw Gateway, probe Probe, opts ...Option) *Engine {
	e := &Engine{
		queue:       q,
		gateway:     gw,
		probe:       probe,
		clock:       SystemClock{},
		log:         slog.Default(),
		interval:    DefaultInterval,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start begins the automatic sync timer. A previous timer, if any, is
// stopped first so two Start calls never produce duplicate schedules.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stop != nil {
		close(e.stop)
	}
	stop := make(chan struct{})
	e.stop = stop

	ticker := e.clock.NewTicker(e.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C():
				e.SyncNow(context.Background())
			}
		}
	}()

	e.log.Info("background sync started", "interval", e.interval)
}

// Stop cancels the automatic timer. In-flight cycles run to completion.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stop != nil {
		close(e.stop)
		e.stop = nil
		e.log.Info("background sync stopped")
	}
}

// Running reports whether the automatic timer is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stop != nil
}

// Subscribe registers a stats listener and returns its cancel function.
// Listeners are notified synchronously, in registration order, after each
// completed cycle - including no-op cycles. The MsgAlreadySyncing
// short-circuit does not broadcast: nothing changed.
func (e *Engine) Subscribe(fn func(Stats)) (cancel func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	id := e.nextID
	e.listeners = append(e.listeners, listener{id: id, fn: fn})

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, l := range e.listeners {
			if l.id == id {
				e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
				return
			}
		}
	}
}

// SyncNow runs one sync cycle and returns its stats. If a cycle is
// already in flight the call returns immediately with zero-work stats and
// touches nothing.
func (e *Engine) SyncNow(ctx context.Context) Stats {
	if !e.syncing.CompareAndSwap(false, true) {
		e.log.Debug("sync already in progress")
		return Stats{Message: MsgAlreadySyncing}
	}
	defer e.syncing.Store(false)

	stats := e.cycle(ctx)
	e.broadcast(stats)
	return stats
}

// cycle is one reconciliation pass. Caller holds the single-flight guard.
func (e *Engine) cycle(ctx context.Context) Stats {
	if !e.probe.Online(ctx) {
		e.log.Debug("skipping sync cycle", "reason", "offline")
		return Stats{Message: MsgNoConnectivity}
	}

	pending := e.queue.ListPending().Items
	if len(pending) == 0 {
		return Stats{Message: MsgNothingToSync}
	}

	e.log.Info("sync cycle starting", "pending", len(pending))

	var stats Stats
	stats.Total = len(pending)
	for _, item := range pending {
		e.syncOne(ctx, item, &stats)
	}
	stats.Message = fmt.Sprintf("Synced %d/%d forms", stats.Successful, stats.Total)

	e.log.Info("sync cycle completed",
		"total", stats.Total,
		"successful", stats.Successful,
		"failed", stats.Failed,
		"conflicts", stats.Conflicts)
	return stats
}

// syncOne reconciles a single submission and folds the outcome into
// stats. Gateway errors and panics are contained here; queue write
// failures are logged and the cycle moves on.
func (e *Engine) syncOne(ctx context.Context, item queue.Item, stats *Stats) {
	res, err := e.callGateway(ctx, item)
	if err != nil || !res.Success {
		if err != nil {
			e.log.Warn("sync failed", "id", item.ID, "error", err)
		} else {
			e.log.Warn("sync rejected", "id", item.ID, "message", res.Message)
		}
		e.recordFailure(item, stats)
		return
	}

	switch res.Action {
	case ActionUpload:
		e.setStatus(item.ID, queue.StatusSynced)
		stats.Successful++

	case ActionDownload:
		// Server is authoritative when it reports itself newer.
		if res.ServerData != nil {
			if err := e.queue.SetPayload(item.ID, res.ServerData); err != nil {
				e.log.Warn("store payload overwrite failed", "id", item.ID, "error", err)
			}
		}
		e.setStatus(item.ID, queue.StatusSynced)
		stats.Successful++

	case ActionConflict:
		// Conflicts are reported, not auto-resolved. Keep the server's
		// snapshot so the user can diff before deciding.
		if res.ServerData != nil {
			if err := e.queue.SetServerData(item.ID, res.ServerData); err != nil {
				e.log.Warn("store conflict snapshot failed", "id", item.ID, "error", err)
			}
		}
		e.setStatus(item.ID, queue.StatusFailed)
		stats.Conflicts++

	default:
		e.log.Warn("gateway returned unknown action", "id", item.ID, "action", res.Action)
		e.recordFailure(item, stats)
	}
}

// callGateway invokes the gateway for one item, converting panics into
// errors so a misbehaving implementation cannot abort the cycle.
func (e *Engine) callGateway(ctx context.Context, item queue.Item) (res SyncResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("gateway panic: %v", r)
		}
	}()
	return e.gateway.SyncItem(ctx, item)
}

// recordFailure accounts one failed attempt and parks the submission as
// failed once the retry budget is spent.
func (e *Engine) recordFailure(item queue.Item, stats *Stats) {
	stats.Failed++

	attempts, err := e.queue.IncrementAttempts(item.ID)
	if err != nil {
		e.log.Warn("attempt accounting failed", "id", item.ID, "error", err)
		return
	}
	if attempts >= e.maxAttempts {
		e.log.Warn("retry budget exhausted", "id", item.ID, "attempts", attempts)
		e.setStatus(item.ID, queue.StatusFailed)
	}
}

func (e *Engine) setStatus(id string, status queue.Status) {
	if err := e.queue.SetStatus(id, status); err != nil {
		e.log.Warn("status update failed", "id", id, "status", status, "error", err)
	}
}

// broadcast notifies subscribers synchronously in registration order.
func (e *Engine) broadcast(stats Stats) {
	e.mu.Lock()
	snapshot := make([]listener, len(e.listeners))
	copy(snapshot, e.listeners)
	e.mu.Unlock()

	for _, l := range snapshot {
		l.fn(stats)
	}
}
