// Package panel maintains the list of orders awaiting staff action and
// drives the accept/reject/ready-for-pickup flows.
//
// The panel is the sole dedup authority for the new-order stream: the
// poller may deliver the same order on consecutive cycles and Add stays
// idempotent per order id.
package panel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/localbasket/posagent/internal/bridge"
	"github.com/localbasket/posagent/internal/model"
	"github.com/localbasket/posagent/internal/printing"
)

// Backend is the slice of the REST client the panel needs.
type Backend interface {
	OrdersByStatus(ctx context.Context, businessID string, status model.OrderStatus, page, size int) (model.OrdersPage, error)
	UpdateOrderStatus(ctx context.Context, orderNumber string, status model.OrderStatus, notes, updatedBy string) error
}

// Orchestrator runs one print attempt.
type Orchestrator interface {
	PrintAndMarkKot(ctx context.Context, job model.PrintJob, deviceName string) error
}

// Notifier surfaces short-lived messages to staff (the snackbar analog).
type Notifier interface {
	Notify(msg string)
}

// PrinterPicker asks staff to choose a device when no default resolves.
// An empty name with nil error means the prompt was dismissed.
type PrinterPicker interface {
	Pick(ctx context.Context, printers []model.PrinterInfo) (string, error)
}

// Config wires the panel's collaborators.
type Config struct {
	BusinessID string
	Backend    Backend
	Orch       Orchestrator
	Bridge     bridge.Bridge
	Notifier   Notifier
	Picker     PrinterPicker
	UpdatedBy  string
	// OnToggle fires on open/close transitions; the UI slides the panel.
	OnToggle func(open bool)
	// Publish fans accepted/rejected transitions out to other screens.
	Publish func(model.StatusUpdate)
	Log     zerolog.Logger
}

// Panel owns the notification list. Invariant: no order id appears twice;
// freshly arrived orders are newest-first.
type Panel struct {
	cfg Config

	mu     sync.Mutex
	orders []model.Order
	open   bool
}

func New(cfg Config) *Panel {
	if cfg.OnToggle == nil {
		cfg.OnToggle = func(bool) {}
	}
	if cfg.Publish == nil {
		cfg.Publish = func(model.StatusUpdate) {}
	}
	return &Panel{cfg: cfg}
}

// Run consumes the poller's stream until the context ends.
func (p *Panel) Run(ctx context.Context, stream <-chan model.Order) {
	for {
		select {
		case <-ctx.Done():
			return
		case o, ok := <-stream:
			if !ok {
				return
			}
			p.Add(o)
		}
	}
}

// LoadInitial seeds the list with the business's currently PLACED orders so
// a restart does not lose pending notifications.
func (p *Panel) LoadInitial(ctx context.Context, page, size int) error {
	resp, err := p.cfg.Backend.OrdersByStatus(ctx, p.cfg.BusinessID, model.StatusPlaced, page, size)
	if err != nil {
		p.cfg.Notifier.Notify("Failed to fetch initial orders")
		return err
	}

	p.mu.Lock()
	for _, o := range resp.Data.Content {
		if o.OrderStatus != model.StatusPlaced {
			continue
		}
		if p.containsLocked(o.ID) {
			continue
		}
		p.orders = append(p.orders, o)
	}
	opened := p.maybeOpenLocked()
	p.mu.Unlock()

	if opened {
		p.cfg.OnToggle(true)
	}
	return nil
}

// Add inserts a new order if it is actionable and not already displayed.
func (p *Panel) Add(o model.Order) {
	newPlaced := o.OrderStatus == model.StatusPlaced
	elapsedPreparing := o.OrderStatus == model.StatusPreparing && o.Timings == model.TimingsCompleted
	if !newPlaced && !elapsedPreparing {
		return
	}

	p.mu.Lock()
	if p.containsLocked(o.ID) {
		p.mu.Unlock()
		return
	}
	p.orders = append([]model.Order{o}, p.orders...)
	opened := p.maybeOpenLocked()
	p.mu.Unlock()

	if opened {
		p.cfg.OnToggle(true)
	}
}

// Orders returns a snapshot of the current list, newest first.
func (p *Panel) Orders() []model.Order {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.Order, len(p.orders))
	copy(out, p.orders)
	return out
}

// Contains reports whether an order id is currently displayed.
func (p *Panel) Contains(id int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.containsLocked(id)
}

// Accept moves the order to PREPARING with the staff's preparation-time
// estimate, then prints the ticket. Once the status update has committed
// the order leaves the panel even if printing fails: the state change is
// authoritative, printing is best-effort.
func (p *Panel) Accept(ctx context.Context, orderID int, prepTime string) error {
	o, ok := p.order(orderID)
	if !ok {
		return fmt.Errorf("order %d not in panel", orderID)
	}

	notes := prepMinutes(prepTime)
	if err := p.cfg.Backend.UpdateOrderStatus(ctx, o.OrderNumber, model.StatusPreparing, notes, p.cfg.UpdatedBy); err != nil {
		p.cfg.Notifier.Notify("Failed to approve order")
		return err
	}
	p.cfg.Publish(model.StatusUpdate{OrderNumber: o.OrderNumber, Status: model.StatusPreparing})

	job := model.PrintJob{
		OrderType:            model.OrderTypeDelivery,
		RecentlyUpdatedItems: o.OrderItems,
		RestaurantName:       o.BusinessName,
		OrderNumber:          o.OrderNumber,
		OrderID:              o.ID,
		Status:               "New Order",
	}

	err := p.printWithFallback(ctx, job)
	if err != nil {
		p.cfg.Notifier.Notify(fmt.Sprintf("Print failed: %s", err))
	} else {
		p.cfg.Notifier.Notify("Order accepted successfully and print sent to kitchen")
	}
	p.remove(orderID)
	return err
}

// printWithFallback retries exactly once through the interactive picker
// when no default printer resolves.
func (p *Panel) printWithFallback(ctx context.Context, job model.PrintJob) error {
	err := p.cfg.Orch.PrintAndMarkKot(ctx, job, "")
	if !errors.Is(err, printing.ErrNoDefaultPrinter) {
		return err
	}

	printers, listErr := p.cfg.Bridge.GetPrinters(ctx)
	if listErr != nil {
		return fmt.Errorf("list printers: %w", listErr)
	}
	choice, pickErr := p.cfg.Picker.Pick(ctx, printers)
	if pickErr != nil {
		return pickErr
	}
	if choice == "" {
		return err // prompt dismissed, keep the original signal
	}
	return p.cfg.Orch.PrintAndMarkKot(ctx, job, choice)
}

// Reject records the staff's free-text reason and removes the order.
func (p *Panel) Reject(ctx context.Context, orderID int, notes, updatedBy string) error {
	o, ok := p.order(orderID)
	if !ok {
		return fmt.Errorf("order %d not in panel", orderID)
	}
	if updatedBy == "" {
		updatedBy = p.cfg.UpdatedBy
	}

	if err := p.cfg.Backend.UpdateOrderStatus(ctx, o.OrderNumber, model.StatusRejected, notes, updatedBy); err != nil {
		p.cfg.Notifier.Notify("Failed to reject order")
		return err
	}
	p.cfg.Publish(model.StatusUpdate{OrderNumber: o.OrderNumber, Status: model.StatusRejected})
	p.cfg.Notifier.Notify("Order rejected successfully")
	p.remove(orderID)
	return nil
}

// ReadyForPickup flags an elapsed-countdown order for the delivery rider.
func (p *Panel) ReadyForPickup(ctx context.Context, orderID int) error {
	o, ok := p.order(orderID)
	if !ok {
		return fmt.Errorf("order %d not in panel", orderID)
	}

	if err := p.cfg.Backend.UpdateOrderStatus(ctx, o.OrderNumber, model.StatusReadyForPickup, "0", p.cfg.UpdatedBy); err != nil {
		p.cfg.Notifier.Notify("Failed to update order status")
		return err
	}
	p.cfg.Publish(model.StatusUpdate{OrderNumber: o.OrderNumber, Status: model.StatusReadyForPickup})
	p.cfg.Notifier.Notify("Order marked as ready for pickup")
	p.remove(orderID)
	return nil
}

func (p *Panel) order(id int) (model.Order, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, o := range p.orders {
		if o.ID == id {
			return o, true
		}
	}
	return model.Order{}, false
}

func (p *Panel) remove(id int) {
	p.mu.Lock()
	kept := p.orders[:0]
	for _, o := range p.orders {
		if o.ID != id {
			kept = append(kept, o)
		}
	}
	p.orders = kept
	closed := len(p.orders) == 0 && p.open
	if closed {
		p.open = false
	}
	p.mu.Unlock()

	if closed {
		p.cfg.OnToggle(false)
	}
}

func (p *Panel) containsLocked(id int) bool {
	for _, o := range p.orders {
		if o.ID == id {
			return true
		}
	}
	return false
}

func (p *Panel) maybeOpenLocked() bool {
	if len(p.orders) > 0 && !p.open {
		p.open = true
		return true
	}
	return false
}

// prepMinutes turns an "HH:MM" estimate from the action dialog into the
// minutes string the backend expects, e.g. "00:15" -> "15".
func prepMinutes(prepTime string) string {
	parts := strings.Split(prepTime, ":")
	if len(parts) < 2 {
		return prepTime
	}
	m := parts[1]
	if len(m) < 2 {
		m = "0" + m
	}
	return m
}
