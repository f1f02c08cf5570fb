// Package poller watches the backend for orders that need staff attention
// and emits them on a stream.
//
// The poller keeps no seen-id state and may re-emit an order on consecutive
// cycles while its backend status is unchanged. The notification panel is
// the sole dedup authority; relying on query scoping alone to prevent
// replays caused duplicate alerts in the past.
package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/localbasket/posagent/internal/config"
	"github.com/localbasket/posagent/internal/metrics"
	"github.com/localbasket/posagent/internal/model"
)

// Backend is the slice of the REST client the poller needs.
type Backend interface {
	OrdersByStatus(ctx context.Context, businessID string, status model.OrderStatus, page, size int) (model.OrdersPage, error)
}

// SessionStore yields the business identifier scoping every query.
type SessionStore interface {
	RestaurantID() (string, error)
}

// Poller runs a repeating fetch cycle: freshly PLACED orders plus PREPARING
// orders whose countdown has elapsed. It owns the audible-alert handles.
type Poller struct {
	backend  Backend
	session  SessionStore
	alerter  Alerter
	log      zerolog.Logger
	interval time.Duration
	pageSize int

	mu     sync.Mutex
	active bool
	cancel context.CancelFunc
	done   chan struct{}
	alerts []AlertHandle

	orders  chan model.Order
	updates chan model.StatusUpdate
}

func New(backend Backend, session SessionStore, alerter Alerter, cfg config.Poller, log zerolog.Logger) *Poller {
	return &Poller{
		backend:  backend,
		session:  session,
		alerter:  alerter,
		log:      log,
		interval: cfg.Interval,
		pageSize: cfg.PageSize,
		orders:   make(chan model.Order, 64),
		updates:  make(chan model.StatusUpdate, 64),
	}
}

// Orders is the new-order stream consumed by the notification panel.
func (p *Poller) Orders() <-chan model.Order {
	return p.orders
}

// Updates carries accept/reject transitions published by the panel so other
// screens can refresh.
func (p *Poller) Updates() <-chan model.StatusUpdate {
	return p.updates
}

// PublishStatusUpdate fans a panel-side transition out on Updates. Dropped
// when nobody is draining the stream.
func (p *Poller) PublishStatusUpdate(u model.StatusUpdate) {
	select {
	case p.updates <- u:
	default:
	}
}

// Start begins the fetch cycle. No-op if already active; logs and stays
// inactive when no restaurant id is configured yet.
func (p *Poller) Start() {
	p.mu.Lock()
	if p.active {
		p.mu.Unlock()
		return
	}

	businessID, err := p.session.RestaurantID()
	if err != nil || businessID == "" {
		p.mu.Unlock()
		p.log.Warn().Err(err).Msg("restaurant id not available, polling not started")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.active = true
	p.done = make(chan struct{})
	done := p.done
	p.mu.Unlock()

	p.log.Info().Str("business_id", businessID).Dur("interval", p.interval).Msg("polling started")
	go func() {
		defer close(done)
		p.loop(ctx, businessID)
	}()
}

// Stop cancels the timer, halts any playing alerts and discards responses
// still in flight. Idempotent.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.active {
		p.mu.Unlock()
		return
	}
	p.active = false
	cancel := p.cancel
	p.cancel = nil
	done := p.done
	p.stopAlertsLocked()
	p.mu.Unlock()

	cancel()
	<-done
	p.log.Info().Msg("polling stopped")
}

// Active reports whether the fetch cycle is running.
func (p *Poller) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Serve adapts the start/stop lifecycle to a supervised service. Returning
// an error when no restaurant id is configured lets the supervisor retry
// with backoff until login has happened.
func (p *Poller) Serve(ctx context.Context) error {
	p.Start()
	if !p.Active() {
		return fmt.Errorf("poller: restaurant id not configured")
	}
	<-ctx.Done()
	p.Stop()
	return ctx.Err()
}

func (p *Poller) loop(ctx context.Context, businessID string) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.cycle(ctx, businessID)
		}
	}
}

// cycle issues the two per-cycle queries. They are independent: a failure
// of one is logged and must not block the other.
func (p *Poller) cycle(ctx context.Context, businessID string) {
	metrics.PollCycles.Inc()

	placed, err := p.backend.OrdersByStatus(ctx, businessID, model.StatusPlaced, 0, p.pageSize)
	if err != nil {
		metrics.PollErrors.WithLabelValues("placed").Inc()
		p.log.Error().Err(err).Msg("fetching placed orders")
	} else {
		for _, o := range placed.Data.Content {
			p.emit(ctx, o)
		}
	}

	preparing, err := p.backend.OrdersByStatus(ctx, businessID, model.StatusPreparing, 0, p.pageSize)
	if err != nil {
		metrics.PollErrors.WithLabelValues("preparing").Inc()
		p.log.Error().Err(err).Msg("fetching preparing orders")
		return
	}
	for _, o := range preparing.Data.Content {
		// Only elapsed-countdown orders are events for this query.
		if o.Timings != model.TimingsCompleted {
			continue
		}
		p.emit(ctx, o)
	}
}

// emit puts one order on the stream and triggers exactly one alert. The
// active flag gate, not just the stopped ticker, is what keeps responses
// arriving after Stop from surfacing.
func (p *Poller) emit(ctx context.Context, o model.Order) {
	p.mu.Lock()
	active := p.active
	p.mu.Unlock()
	if !active {
		return
	}

	select {
	case p.orders <- o:
	case <-ctx.Done():
		return
	}
	metrics.OrdersEmitted.Inc()
	p.playAlert()
}

func (p *Poller) playAlert() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.active {
		return
	}

	// One buzzer at a time, matching the hardware speaker at the counter.
	p.stopAlertsLocked()

	h, err := p.alerter.Play()
	if err != nil {
		p.log.Warn().Err(err).Msg("audible alert unavailable")
		return
	}
	metrics.AlertsStarted.Inc()
	p.alerts = append(p.alerts, h)
}

func (p *Poller) stopAlertsLocked() {
	for _, h := range p.alerts {
		h.Stop()
	}
	p.alerts = nil
}
