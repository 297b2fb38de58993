// Package refresh runs price refresh cycles: on startup, every minute, on
// manual retry and after a currency switch.
//
// At most one cycle is in flight. A retry, currency or startup trigger
// cancels the running cycle and starts a new one; a timer tick while a cycle
// runs is skipped. Each cycle carries a sequence number and the state store
// drops results from any cycle that is no longer the latest.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"cryptocalc/internal/currency"
	"cryptocalc/internal/metrics"
	"cryptocalc/internal/state"
	"cryptocalc/logger"
	"cryptocalc/models"
)

// Interval between timer driven refreshes.
const Interval = 60 * time.Second

// FailureMessage is shown while the last price refresh has failed.
const FailureMessage = "Falha ao sincronizar dados. Tente novamente em alguns segundos."

// Trigger names what started a cycle.
type Trigger string

const (
	TriggerStartup  Trigger = "startup"
	TriggerTimer    Trigger = "timer"
	TriggerRetry    Trigger = "retry"
	TriggerCurrency Trigger = "currency"
)

// PriceFetcher returns the full asset list priced in code, or an error.
type PriceFetcher interface {
	Fetch(ctx context.Context, code currency.Code) ([]models.Asset, error)
}

// InsightGenerator never fails; it falls back to a fixed insight.
type InsightGenerator interface {
	Generate(ctx context.Context, assets []models.Asset, cur currency.Currency) models.Insight
}

var ErrNotRunning = errors.New("refresh orchestrator not running")

// Orchestrator owns the refresh timer and the in-flight cycle.
type Orchestrator struct {
	store    *state.Store
	prices   PriceFetcher
	insights InsightGenerator
	log      *logger.Log
	interval time.Duration
	now      func() time.Time

	mu          sync.Mutex
	running     bool
	ctx         context.Context
	stop        context.CancelFunc
	scheduler   gocron.Scheduler
	seq         uint64
	inFlight    bool
	cancelCycle context.CancelFunc
	wg          sync.WaitGroup
}

// New wires an orchestrator to the store and the two upstream clients.
func New(store *state.Store, prices PriceFetcher, insights InsightGenerator) *Orchestrator {
	return &Orchestrator{
		store:    store,
		prices:   prices,
		insights: insights,
		log:      logger.GetLogger(),
		interval: Interval,
		now:      time.Now,
	}
}

// Start runs the startup cycle and schedules the periodic one.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return fmt.Errorf("refresh orchestrator already running")
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		o.mu.Unlock()
		return fmt.Errorf("create scheduler: %w", err)
	}
	if _, err := s.NewJob(
		gocron.DurationJob(o.interval),
		gocron.NewTask(func() { o.Trigger(TriggerTimer) }),
		gocron.WithName("price-refresh"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		o.mu.Unlock()
		_ = s.Shutdown()
		return fmt.Errorf("schedule refresh: %w", err)
	}

	o.ctx, o.stop = context.WithCancel(ctx)
	o.scheduler = s
	o.running = true
	o.mu.Unlock()

	s.Start()
	o.log.WithComponent("refresh").WithFields(logger.Fields{
		"interval": o.interval.String(),
	}).Info("refresh orchestrator started")

	o.Trigger(TriggerStartup)
	return nil
}

// Stop cancels the timer and the in-flight cycle and waits for it to exit.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	o.running = false
	s := o.scheduler
	o.stop()
	o.mu.Unlock()

	if err := s.Shutdown(); err != nil {
		o.log.WithComponent("refresh").WithError(err).Warn("scheduler shutdown failed")
	}
	o.wg.Wait()
	o.log.WithComponent("refresh").Info("refresh orchestrator stopped")
}

// Trigger starts a cycle and returns its sequence number. It reports false
// when the trigger was skipped.
func (o *Orchestrator) Trigger(t Trigger) (uint64, bool) {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return 0, false
	}
	if t == TriggerTimer && o.inFlight {
		o.mu.Unlock()
		o.log.WithComponent("refresh").Debug("cycle in flight, skipping timer tick")
		metrics.ObserveRefresh(string(t), "skipped")
		logger.IncrementRefresh("skipped")
		return 0, false
	}
	if o.cancelCycle != nil {
		o.cancelCycle()
	}

	o.seq++
	seq := o.seq
	ctx, cancel := context.WithCancel(o.ctx)
	o.cancelCycle = cancel
	o.inFlight = true
	cur := o.store.State().Currency
	o.store.Dispatch(state.RefreshStarted{Seq: seq})
	o.wg.Add(1)
	o.mu.Unlock()

	go o.run(ctx, cancel, seq, t, cur)
	return seq, true
}

// Retry starts a cycle on user request.
func (o *Orchestrator) Retry() (uint64, error) {
	seq, ok := o.Trigger(TriggerRetry)
	if !ok {
		return 0, ErrNotRunning
	}
	return seq, nil
}

// SelectCurrency switches the active currency and refreshes prices in it.
// Selecting the active currency again is a no-op.
func (o *Orchestrator) SelectCurrency(code string) error {
	cur, err := currency.Lookup(code)
	if err != nil {
		return err
	}
	if o.store.State().Currency.Code == cur.Code {
		return nil
	}
	o.store.Dispatch(state.CurrencyChanged{Currency: cur})
	if _, ok := o.Trigger(TriggerCurrency); !ok {
		return ErrNotRunning
	}
	return nil
}

func (o *Orchestrator) run(ctx context.Context, cancel context.CancelFunc, seq uint64, t Trigger, cur currency.Currency) {
	defer o.wg.Done()
	defer o.finish(seq, cancel)

	log := o.log.WithComponent("refresh").WithFields(logger.Fields{
		"cycle_id": uuid.NewString(),
		"seq":      seq,
		"trigger":  string(t),
		"currency": string(cur.Code),
	})
	start := o.now()

	assets, err := o.prices.Fetch(ctx, cur.Code)
	if ctx.Err() != nil {
		log.Debug("cycle superseded")
		metrics.ObserveRefresh(string(t), "superseded")
		return
	}
	if err != nil {
		log.WithError(err).Warn("price refresh failed")
		o.store.Dispatch(state.PricesFailed{Seq: seq, Message: FailureMessage})
		metrics.ObserveRefresh(string(t), "failed")
		logger.IncrementRefresh("failed")
		return
	}

	o.store.Dispatch(state.PricesLoaded{Seq: seq, Assets: assets, At: o.now()})
	logger.LogDataFlowEntry(log, "coingecko", "state", len(assets), "asset")

	insight := o.insights.Generate(ctx, assets, cur)
	if ctx.Err() != nil {
		log.Debug("cycle superseded before insight")
		metrics.ObserveRefresh(string(t), "superseded")
		return
	}
	o.store.Dispatch(state.InsightLoaded{Seq: seq, Insight: insight})

	metrics.ObserveRefresh(string(t), "ok")
	logger.IncrementRefresh("ok")
	logger.LogPerformanceEntry(log, "refresh", "cycle", o.now().Sub(start), logger.Fields{
		"sentiment": string(insight.Sentiment),
		"fallback":  insight.Fallback,
	})
}

func (o *Orchestrator) finish(seq uint64, cancel context.CancelFunc) {
	cancel()
	o.mu.Lock()
	if o.seq == seq {
		o.inFlight = false
		o.cancelCycle = nil
	}
	o.mu.Unlock()
}

// InFlight reports whether a cycle is running.
func (o *Orchestrator) InFlight() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inFlight
}
