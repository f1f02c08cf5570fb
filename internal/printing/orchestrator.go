package printing

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/localbasket/posagent/internal/bridge"
	"github.com/localbasket/posagent/internal/metrics"
	"github.com/localbasket/posagent/internal/model"
)

var (
	// ErrNoDefaultPrinter is a designed signal, not an arbitrary error:
	// the panel pattern-matches it to open the printer picker.
	ErrNoDefaultPrinter = errors.New("No default printer found")

	// ErrNoItems means the job rendered to nothing; the bridge is never
	// invoked with empty content.
	ErrNoItems = errors.New("no items to print")
)

// KotMarker is the backend call paired with a successful dine-in print.
type KotMarker interface {
	MarkItemsSentToKot(ctx context.Context, orderID int) error
}

// Orchestrator drives one print attempt end to end: render, resolve the
// target device, invoke the bridge, then mark dine-in items sent to the
// kitchen. A physical print cannot be rolled back, so there is no
// compensation when the trailing backend call fails.
type Orchestrator struct {
	bridge   bridge.Bridge
	renderer *Renderer
	backend  KotMarker
	log      zerolog.Logger
}

func NewOrchestrator(b bridge.Bridge, renderer *Renderer, backend KotMarker, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{bridge: b, renderer: renderer, backend: backend, log: log}
}

// PrintAndMarkKot prints one job. deviceName, when given, is used verbatim;
// otherwise the bridge resolves the default device fresh for this attempt.
func (o *Orchestrator) PrintAndMarkKot(ctx context.Context, job model.PrintJob, deviceName string) error {
	if o.bridge == nil {
		metrics.Prints.WithLabelValues("bridge_unavailable").Inc()
		return bridge.ErrUnavailable
	}

	html, err := o.renderer.Render(job)
	if err != nil {
		metrics.Prints.WithLabelValues("render_error").Inc()
		return err
	}
	if html == "" {
		metrics.Prints.WithLabelValues("empty").Inc()
		return ErrNoItems
	}

	device := deviceName
	if device == "" {
		name, found, err := o.bridge.GetDefaultPrinter(ctx)
		if err != nil {
			metrics.Prints.WithLabelValues("resolve_error").Inc()
			return fmt.Errorf("resolve default printer: %w", err)
		}
		if !found {
			metrics.Prints.WithLabelValues("no_default").Inc()
			return ErrNoDefaultPrinter
		}
		device = name
	}

	result, err := o.bridge.Print(ctx, html, device)
	if err != nil {
		metrics.Prints.WithLabelValues("failure").Inc()
		return err
	}
	if !result.Success {
		metrics.Prints.WithLabelValues("failure").Inc()
		msg := result.Error
		if msg == "" {
			msg = "Unknown error"
		}
		return fmt.Errorf("print failed: %s", msg)
	}

	if job.OrderType == model.OrderTypeDineIn && job.OrderID != 0 {
		if err := o.backend.MarkItemsSentToKot(ctx, job.OrderID); err != nil {
			// The ticket is already on paper; the operation still fails so
			// staff know the kitchen state was not recorded.
			metrics.Prints.WithLabelValues("kot_mark_failed").Inc()
			return fmt.Errorf("mark items sent to kot: %w", err)
		}
	}

	metrics.Prints.WithLabelValues("success").Inc()
	o.log.Info().Str("device", device).Str("order", job.OrderNumber).Msg("print successful")
	return nil
}
