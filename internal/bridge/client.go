package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/localbasket/posagent/internal/config"
	"github.com/localbasket/posagent/internal/model"
)

// Client speaks the bridge RPC over a local WebSocket. Calls are correlated
// to responses by uuid; a single reader pump settles the pending map.
type Client struct {
	url          string
	callTimeout  time.Duration
	printTimeout time.Duration
	log          zerolog.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	pending map[string]chan model.RPCResponse
	gone    chan struct{}

	wmu sync.Mutex // gorilla conns allow one concurrent writer
}

func NewClient(cfg config.Bridge, log zerolog.Logger) *Client {
	return &Client{
		url:          cfg.URL,
		callTimeout:  cfg.CallTimeout,
		printTimeout: cfg.PrintTimeout,
		log:          log,
	}
}

// Connect dials the printer host. Absence of the host is ErrUnavailable.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", ErrUnavailable, c.url, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.pending = make(map[string]chan model.RPCResponse)
	c.gone = make(chan struct{})
	gone := c.gone
	c.mu.Unlock()

	go c.readPump(conn, gone)
	c.log.Info().Str("url", c.url).Msg("printer bridge connected")
	return nil
}

// Serve keeps one connection alive under the supervisor: connect, then run
// until the context ends or the host drops us. Either way the supervisor
// redials with backoff.
func (c *Client) Serve(ctx context.Context) error {
	if err := c.Connect(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	gone := c.gone
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		c.Close()
		return ctx.Err()
	case <-gone:
		return fmt.Errorf("%w: connection lost", ErrUnavailable)
	}
}

func (c *Client) Close() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

func (c *Client) readPump(conn *websocket.Conn, gone chan struct{}) {
	defer close(gone)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.failPending(conn)
			return
		}

		var resp model.RPCResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			c.log.Warn().Err(err).Msg("malformed bridge frame")
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.mu.Unlock()
		if !ok {
			// A call that already timed out; drop the late answer.
			continue
		}
		ch <- resp
	}
}

func (c *Client) failPending(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	pending := c.pending
	c.pending = make(map[string]chan model.RPCResponse)
	c.mu.Unlock()

	for _, ch := range pending {
		ch <- model.RPCResponse{Error: ErrUnavailable.Error()}
	}
}

func (c *Client) call(ctx context.Context, method model.RPCMethod, params any, timeout time.Duration) (model.RPCResponse, error) {
	var zero model.RPCResponse

	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return zero, fmt.Errorf("marshal %s params: %w", method, err)
		}
		raw = b
	}

	id := uuid.NewString()
	req := model.RPCRequest{ID: id, Method: method, Params: raw}
	frame, err := json.Marshal(req)
	if err != nil {
		return zero, fmt.Errorf("marshal %s request: %w", method, err)
	}

	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return zero, ErrUnavailable
	}
	ch := make(chan model.RPCResponse, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	c.wmu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, frame)
	c.wmu.Unlock()
	if err != nil {
		c.dropPending(id)
		return zero, fmt.Errorf("%w: write: %v", ErrUnavailable, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		if resp.Error == ErrUnavailable.Error() && resp.ID == "" {
			return zero, ErrUnavailable
		}
		return resp, nil
	case <-timer.C:
		c.dropPending(id)
		return zero, fmt.Errorf("%w: %s after %s", ErrTimeout, method, timeout)
	case <-ctx.Done():
		c.dropPending(id)
		return zero, ctx.Err()
	}
}

func (c *Client) dropPending(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// GetPrinters enumerates the host's devices. Host-side enumeration errors
// come back as an empty list, never as a failure.
func (c *Client) GetPrinters(ctx context.Context) ([]model.PrinterInfo, error) {
	resp, err := c.call(ctx, model.MethodGetPrinters, nil, c.callTimeout)
	if err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("getPrinters: %s", resp.Error)
	}

	var out model.PrintersResult
	if err := json.Unmarshal(resp.Result, &out); err != nil {
		return nil, fmt.Errorf("decode printers: %w", err)
	}
	return out.Printers, nil
}

// GetDefaultPrinter runs the host's resolution chain.
func (c *Client) GetDefaultPrinter(ctx context.Context) (string, bool, error) {
	resp, err := c.call(ctx, model.MethodGetDefaultPrinter, nil, c.callTimeout)
	if err != nil {
		return "", false, err
	}
	if resp.Error != "" {
		return "", false, fmt.Errorf("getDefaultPrinter: %s", resp.Error)
	}

	var out model.DefaultPrinterResult
	if err := json.Unmarshal(resp.Result, &out); err != nil {
		return "", false, fmt.Errorf("decode default printer: %w", err)
	}
	return out.Name, out.Found, nil
}

// Print asks the host for one silent print. The longer timeout covers the
// host's render surface plus the physical device.
func (c *Client) Print(ctx context.Context, html, deviceName string) (model.PrintResult, error) {
	params := model.PrintParams{HTML: html, DeviceName: deviceName}
	resp, err := c.call(ctx, model.MethodPrint, params, c.printTimeout)
	if err != nil {
		return model.PrintResult{}, err
	}
	if resp.Error != "" {
		return model.PrintResult{}, fmt.Errorf("print: %s", resp.Error)
	}

	var out model.PrintResult
	if err := json.Unmarshal(resp.Result, &out); err != nil {
		return model.PrintResult{}, fmt.Errorf("decode print result: %w", err)
	}
	return out, nil
}
