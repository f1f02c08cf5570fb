package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/localbasket/posagent/internal/config"
	"github.com/localbasket/posagent/internal/model"
)

type fakeBackend struct {
	mu        sync.Mutex
	placed    []model.Order
	preparing []model.Order
	placedErr error

	// when set, OrdersByStatus blocks until released
	entered chan struct{}
	release chan struct{}
}

func (f *fakeBackend) OrdersByStatus(ctx context.Context, _ string, status model.OrderStatus, _, _ int) (model.OrdersPage, error) {
	if f.entered != nil {
		select {
		case f.entered <- struct{}{}:
		default:
		}
		<-f.release
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var page model.OrdersPage
	switch status {
	case model.StatusPlaced:
		if f.placedErr != nil {
			return page, f.placedErr
		}
		page.Data.Content = f.placed
	case model.StatusPreparing:
		page.Data.Content = f.preparing
	}
	return page, nil
}

type fakeSession struct {
	id string
}

func (f fakeSession) RestaurantID() (string, error) { return f.id, nil }

type fakeHandle struct {
	stopped *int
	mu      *sync.Mutex
}

func (h fakeHandle) Stop() {
	h.mu.Lock()
	*h.stopped++
	h.mu.Unlock()
}

type fakeAlerter struct {
	mu      sync.Mutex
	played  int
	stopped int
}

func (f *fakeAlerter) Play() (AlertHandle, error) {
	f.mu.Lock()
	f.played++
	f.mu.Unlock()
	return fakeHandle{stopped: &f.stopped, mu: &f.mu}, nil
}

func (f *fakeAlerter) counts() (played, stopped int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.played, f.stopped
}

func newTestPoller(b Backend, s SessionStore, a Alerter) *Poller {
	return New(b, s, a, config.Poller{Interval: 10 * time.Millisecond, PageSize: 10}, zerolog.Nop())
}

func collect(t *testing.T, ch <-chan model.Order, n int) []model.Order {
	t.Helper()
	var out []model.Order
	deadline := time.After(2 * time.Second)
	for len(out) < n {
		select {
		case o := <-ch:
			out = append(out, o)
		case <-deadline:
			t.Fatalf("timed out waiting for %d orders, got %d", n, len(out))
		}
	}
	return out
}

func TestStartWithoutRestaurantID(t *testing.T) {
	t.Parallel()

	p := newTestPoller(&fakeBackend{}, fakeSession{id: ""}, &fakeAlerter{})
	p.Start()
	if p.Active() {
		t.Error("poller must stay inactive without a restaurant id")
	}
}

func TestStartIsIdempotent(t *testing.T) {
	t.Parallel()

	p := newTestPoller(&fakeBackend{}, fakeSession{id: "77"}, &fakeAlerter{})
	p.Start()
	p.Start() // no-op
	defer p.Stop()
	if !p.Active() {
		t.Fatal("poller should be active after Start")
	}
}

func TestEmitsPlacedAndElapsedPreparingOrders(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{
		placed: []model.Order{
			{ID: 1, OrderNumber: "A-1", OrderStatus: model.StatusPlaced},
		},
		preparing: []model.Order{
			{ID: 2, OrderNumber: "A-2", OrderStatus: model.StatusPreparing, Timings: model.TimingsCompleted},
			{ID: 3, OrderNumber: "A-3", OrderStatus: model.StatusPreparing}, // countdown still running
		},
	}
	alerter := &fakeAlerter{}
	p := newTestPoller(backend, fakeSession{id: "77"}, alerter)

	p.Start()
	defer p.Stop()

	got := collect(t, p.Orders(), 2)
	ids := map[int]bool{}
	for _, o := range got {
		ids[o.ID] = true
	}
	if !ids[1] || !ids[2] {
		t.Errorf("expected orders 1 and 2, got %v", ids)
	}
	if ids[3] {
		t.Error("a PREPARING order without an elapsed countdown is not an event")
	}

	if played, _ := alerter.counts(); played < 2 {
		t.Errorf("each emitted order triggers an alert, got %d", played)
	}
}

func TestQueryFailuresAreIsolated(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{
		placedErr: errors.New("boom"),
		preparing: []model.Order{
			{ID: 5, OrderStatus: model.StatusPreparing, Timings: model.TimingsCompleted},
		},
	}
	p := newTestPoller(backend, fakeSession{id: "77"}, &fakeAlerter{})

	p.Start()
	defer p.Stop()

	got := collect(t, p.Orders(), 1)
	if got[0].ID != 5 {
		t.Errorf("preparing query must proceed when the placed query fails, got order %d", got[0].ID)
	}
}

func TestStopDiscardsInFlightResponses(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{
		placed:  []model.Order{{ID: 9, OrderStatus: model.StatusPlaced}},
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	alerter := &fakeAlerter{}
	p := newTestPoller(backend, fakeSession{id: "77"}, alerter)

	p.Start()
	<-backend.entered // a cycle's query is now in flight

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(backend.release) // the response lands after Stop
	}()
	p.Stop()

	select {
	case o := <-p.Orders():
		t.Errorf("order %d emitted after Stop", o.ID)
	case <-time.After(50 * time.Millisecond):
	}
	if played, _ := alerter.counts(); played != 0 {
		t.Errorf("no alert may start after Stop, got %d", played)
	}
}

func TestStopHaltsAlertsAndIsIdempotent(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{
		placed: []model.Order{{ID: 1, OrderStatus: model.StatusPlaced}},
	}
	alerter := &fakeAlerter{}
	p := newTestPoller(backend, fakeSession{id: "77"}, alerter)

	p.Start()
	collect(t, p.Orders(), 1)

	p.Stop()
	p.Stop() // idempotent

	if p.Active() {
		t.Error("poller must be inactive after Stop")
	}
	played, stopped := alerter.counts()
	if played == 0 || stopped < played {
		// every started handle was stopped, either by the next alert or by Stop
		t.Errorf("alert handles leaked: played=%d stopped=%d", played, stopped)
	}
}
