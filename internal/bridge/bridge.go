// Package bridge is the agent side of the printer host RPC. The host
// process is the only path to OS printing; this client exposes its three
// methods as ordinary request/response calls with explicit timeouts.
package bridge

import (
	"context"
	"errors"

	"github.com/localbasket/posagent/internal/model"
)

var (
	// ErrUnavailable means the printer host is absent or unreachable. A
	// configuration error: callers surface it, they do not retry.
	ErrUnavailable = errors.New("printer bridge not available")

	// ErrTimeout means the host did not answer a call in time.
	ErrTimeout = errors.New("printer bridge call timed out")
)

// Bridge is the surface consumed by the orchestrator and the panel.
type Bridge interface {
	// GetPrinters enumerates devices; degrades to an empty list on host
	// errors rather than failing.
	GetPrinters(ctx context.Context) ([]model.PrinterInfo, error)

	// GetDefaultPrinter resolves the host's fallback chain. found is false
	// when the chain is exhausted.
	GetDefaultPrinter(ctx context.Context) (name string, found bool, err error)

	// Print renders the markup on the host and prints it silently to
	// deviceName, or to the resolved default when deviceName is empty.
	Print(ctx context.Context, html, deviceName string) (model.PrintResult, error)
}
