// Package engine is the strategy's lifecycle wrapper: the
// Stopped/Running/Paused/Stopping state machine and the periodic tick loop
// of spec §4.6, built around internal/strategy's ladder/TP/waiting
// controller for a single instrument.
//
// Scheduling follows spec §5: a single logical task with cooperative
// suspension. One goroutine runs the tick loop; external commands
// (start/pause/resume/stop) are enqueued from any goroutine but only take
// effect at the next tick boundary, so the book of record is never mutated
// concurrently. The tick-loop goroutine itself is supervised by a
// gopkg.in/tomb.v2 Tomb (grounded on saiputravu-Exchange's worker/server
// pattern) so Stop can block until the stop policy has fully drained
// instead of returning before cancellation finished.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	tomb "gopkg.in/tomb.v2"

	"scalpmaker/internal/book"
	"scalpmaker/internal/config"
	"scalpmaker/internal/exchange"
	"scalpmaker/internal/strategy"
)

// State is one of the four engine states of spec §4.6. waitingForMarketSell
// is an orthogonal sub-flag owned by Strategy, not a fifth State.
type State int

const (
	StateStopped State = iota
	StateRunning
	StatePaused
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateRunning:
		return "Running"
	case StatePaused:
		return "Paused"
	case StateStopping:
		return "Stopping"
	default:
		return "Unknown"
	}
}

// command is an external event enqueued by Start/Pause/Resume/Stop and
// applied at the next tick boundary (spec §5).
type command int

const (
	cmdPause command = iota
	cmdResume
	cmdStop
)

// Event is pushed to an optional subscriber for every fill the strategy
// core reports and, best-effort, with a fresh snapshot after every tick. It is
// not required for correctness — Events() may go entirely unread.
type Event struct {
	Type      string // "fill" or "snapshot"
	Timestamp time.Time
	Fill      *strategy.FillEvent `json:"fill,omitempty"`
	Snapshot  *Snapshot           `json:"snapshot,omitempty"`
}

// Snapshot is the control-surface shape of spec §6's
// `snapshot() → { state, subStateWaiting, stats, openBuyOrders[],
// openTpOrders[], pendingMarketSell?, pendingNewTP? }`.
type Snapshot struct {
	State                State
	WaitingForMarketSell  bool
	Stats                 strategy.Stats
	OpenBuyOrders         []*book.BuyOrder
	OpenTpOrders          []*book.TpOrder
	PendingMarketSell     *book.PendingMarketSell
	PendingNewTP          *book.PendingNewTP
	EstimatedProfit       decimal.Decimal
	AverageBuyPrice       decimal.Decimal
}

// Engine drives one Strategy instance's tick loop and exposes the control
// surface of spec §6. It is a value type owning its own strategy and state
// (spec §9: "permitting multiple instances per process").
type Engine struct {
	cfg      config.StrategyConfig
	strategy *strategy.Strategy
	client   exchange.Adapter
	logger   *slog.Logger
	metrics  MetricsRecorder

	mu    sync.Mutex
	state State

	t    tomb.Tomb
	cmds chan command

	events chan Event
}

// MetricsRecorder is the subset of metrics.Recorder the engine drives once
// per tick. Kept as an interface so engine doesn't need to import the
// Prometheus client directly.
type MetricsRecorder interface {
	Observe(stats strategy.Stats, openBuys, openTPs int, estimatedProfit decimal.Decimal, waiting bool)
}

// New creates an Engine in the Stopped state for one instrument.
func New(cfg config.StrategyConfig, client exchange.Adapter, logger *slog.Logger) *Engine {
	logger = logger.With("component", "engine", "symbol", cfg.Symbol)
	st := strategy.New(cfg, client, logger)
	e := &Engine{
		cfg:      cfg,
		strategy: st,
		client:   client,
		logger:   logger,
		state:    StateStopped,
		events:   make(chan Event, 64),
	}
	st.OnFill(func(ev strategy.FillEvent) {
		e.emitEvent(Event{Type: "fill", Timestamp: ev.At, Fill: &ev})
	})
	return e
}

// Strategy exposes the underlying strategy core, chiefly so an embedding
// process can install additional fill observers (e.g. a trade blotter)
// before Start.
func (e *Engine) Strategy() *strategy.Strategy {
	return e.strategy
}

// SetMetrics installs a MetricsRecorder observed once per tick.
func (e *Engine) SetMetrics(m MetricsRecorder) {
	e.metrics = m
}

// Events returns the channel of fill/snapshot notifications. Sends are
// non-blocking and drop the event if the channel is full — the control
// surface is observability, never a dependency of the tick loop.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// State reports the current engine state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// Start transitions Stopped->Running (spec §4.6): resets stats and book,
// then launches the supervised tick loop. Only valid from Stopped.
func (e *Engine) Start() error {
	e.mu.Lock()
	if e.state != StateStopped {
		cur := e.state
		e.mu.Unlock()
		return fmt.Errorf("engine: start invalid from state %s", cur)
	}
	e.state = StateRunning
	e.mu.Unlock()

	e.strategy.Reset()
	e.t = tomb.Tomb{}
	e.cmds = make(chan command, 8)
	e.t.Go(e.runLoop)
	e.logger.Info("engine started")
	return nil
}

// Pause enqueues the Running->Paused transition (spec §4.6), observed at
// the next tick boundary. Only valid from Running.
func (e *Engine) Pause() error {
	if e.State() != StateRunning {
		return fmt.Errorf("engine: pause invalid from state %s", e.State())
	}
	e.enqueue(cmdPause)
	return nil
}

// Resume enqueues the Paused->Running transition. Only valid from Paused.
func (e *Engine) Resume() error {
	if e.State() != StatePaused {
		return fmt.Errorf("engine: resume invalid from state %s", e.State())
	}
	e.enqueue(cmdResume)
	return nil
}

// Stop enqueues the stop transition and blocks until the tick loop has
// fully drained the Stopping->Stopped stop policy and exited. A no-op if
// already Stopped.
func (e *Engine) Stop() error {
	if e.State() == StateStopped {
		return nil
	}
	e.enqueue(cmdStop)
	return e.t.Wait()
}

func (e *Engine) enqueue(cmd command) {
	select {
	case e.cmds <- cmd:
	default:
		e.logger.Warn("command queue full, dropping command")
	}
}

// runLoop is the supervised tick-loop goroutine (spec §5: one logical task,
// cooperative suspension on every adapter call).
func (e *Engine) runLoop() error {
	ticker := time.NewTicker(e.cfg.LoopInterval)
	defer ticker.Stop()

	ctx := e.t.Context(context.Background())

	for {
		select {
		case <-e.t.Dying():
			return nil
		case <-ticker.C:
			e.runTick(ctx)
			if e.State() == StateStopped {
				return nil
			}
		}
	}
}

// runTick is exactly the tick-loop body of spec §4.6: drain pending
// commands, run the waiting controller, fetch the orderbook, reconcile and
// top up the BUY ladder if eligible, always reconcile TPs.
func (e *Engine) runTick(ctx context.Context) {
	e.drainCommands(ctx)

	st := e.State()
	if st == StateStopped {
		return
	}

	if e.strategy.IsWaiting() {
		e.strategy.RunWaitingController(ctx)
	}

	top, err := e.client.OrderbookTop(ctx)
	if err != nil {
		e.logger.Warn("tick: orderbook fetch failed", "err", err)
		return
	}

	if st == StateRunning && !e.strategy.IsWaiting() {
		e.strategy.ReconcileBuys(ctx, top.BestBid)
	}
	// ReconcileBuys can itself flip waitingForMarketSell (a TP overflow
	// eviction), so IsWaiting must be rechecked before deciding whether to
	// top up or to drain the ladder this same tick.
	if e.strategy.IsWaiting() {
		e.strategy.CancelAllBuys(ctx)
	} else if st == StateRunning {
		e.strategy.TopUpLadder(ctx, top.BestBid)
	}

	e.strategy.ReconcileTPs(ctx)

	e.emitSnapshotEvent()
}

// drainCommands applies every command enqueued since the previous tick, in
// order, exactly as spec §5 describes: "observed at the next tick
// boundary." Pause/Resume/Stop's side effects run here, single-threaded
// with every other book mutation.
func (e *Engine) drainCommands(ctx context.Context) {
	for {
		select {
		case cmd := <-e.cmds:
			e.applyCommand(ctx, cmd)
		default:
			return
		}
	}
}

func (e *Engine) applyCommand(ctx context.Context, cmd command) {
	st := e.State()
	switch cmd {
	case cmdPause:
		if st != StateRunning {
			return
		}
		e.strategy.CancelAllBuys(ctx)
		e.setState(StatePaused)
		e.logger.Info("engine paused")
	case cmdResume:
		if st != StatePaused {
			return
		}
		e.setState(StateRunning)
		e.logger.Info("engine resumed")
	case cmdStop:
		if st != StateRunning && st != StatePaused {
			return
		}
		e.setState(StateStopping)
		e.logger.Info("engine stopping")
		e.strategy.CancelAllBuys(ctx)
		e.strategy.StopPolicy(ctx, e.cfg.SellAllOnStop)
		e.setState(StateStopped)
		e.logger.Info("engine stopped")
	}
}

// Snapshot builds the control-surface view of spec §6.
func (e *Engine) Snapshot() Snapshot {
	b := e.strategy.Book()
	stats := e.strategy.Stats()

	var pms *book.PendingMarketSell
	if p, ok := b.PendingMarketSell(); ok {
		pms = p
	}
	var pnt *book.PendingNewTP
	if p, ok := b.PendingNewTP(); ok {
		pnt = p
	}

	return Snapshot{
		State:                e.State(),
		WaitingForMarketSell: e.strategy.IsWaiting(),
		Stats:                stats,
		OpenBuyOrders:        b.Buys(),
		OpenTpOrders:         b.TPs(),
		PendingMarketSell:    pms,
		PendingNewTP:         pnt,
		EstimatedProfit:      e.strategy.EstimatedProfit(),
		AverageBuyPrice:      stats.AverageBuyPrice(),
	}
}

func (e *Engine) emitEvent(evt Event) {
	select {
	case e.events <- evt:
	default:
	}
}

func (e *Engine) emitSnapshotEvent() {
	snap := e.Snapshot()
	if e.metrics != nil {
		e.metrics.Observe(snap.Stats, len(snap.OpenBuyOrders), len(snap.OpenTpOrders), snap.EstimatedProfit, snap.WaitingForMarketSell)
	}
	e.emitEvent(Event{Type: "snapshot", Timestamp: time.Now(), Snapshot: &snap})
}
