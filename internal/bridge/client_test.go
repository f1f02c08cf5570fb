package bridge

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/localbasket/posagent/internal/config"
	"github.com/localbasket/posagent/internal/model"
)

// fakeHost answers bridge frames with the supplied handler.
func fakeHost(t *testing.T, handle func(req model.RPCRequest) *model.RPCResponse) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var req model.RPCRequest
			if err := json.Unmarshal(data, &req); err != nil {
				continue
			}
			resp := handle(req)
			if resp == nil {
				continue // simulate a host that never answers
			}
			frame, _ := json.Marshal(resp)
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws://" + strings.TrimPrefix(srv.URL, "http://") + "/ws"
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c := NewClient(config.Bridge{
		URL:          wsURL(srv),
		CallTimeout:  2 * time.Second,
		PrintTimeout: 2 * time.Second,
	}, zerolog.Nop())
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func result(t *testing.T, req model.RPCRequest, v any) *model.RPCResponse {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Errorf("marshal result: %v", err)
	}
	return &model.RPCResponse{ID: req.ID, Result: b}
}

func TestGetPrintersRoundTrip(t *testing.T) {
	t.Parallel()

	srv := fakeHost(t, func(req model.RPCRequest) *model.RPCResponse {
		if req.Method != model.MethodGetPrinters {
			t.Errorf("method = %s", req.Method)
		}
		return result(t, req, model.PrintersResult{
			Printers: []model.PrinterInfo{{Name: "POS58", IsDefault: true}},
		})
	})

	c := newTestClient(t, srv)
	printers, err := c.GetPrinters(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(printers) != 1 || printers[0].Name != "POS58" || !printers[0].IsDefault {
		t.Errorf("printers = %+v", printers)
	}
}

func TestGetDefaultPrinterNotFound(t *testing.T) {
	t.Parallel()

	srv := fakeHost(t, func(req model.RPCRequest) *model.RPCResponse {
		return result(t, req, model.DefaultPrinterResult{Found: false})
	})

	c := newTestClient(t, srv)
	name, found, err := c.GetDefaultPrinter(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found || name != "" {
		t.Errorf("got (%q, %v), want empty not-found", name, found)
	}
}

func TestPrintCarriesParamsAndResult(t *testing.T) {
	t.Parallel()

	srv := fakeHost(t, func(req model.RPCRequest) *model.RPCResponse {
		var params model.PrintParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			t.Errorf("decode params: %v", err)
		}
		if params.HTML != "<html>kot</html>" || params.DeviceName != "POS58" {
			t.Errorf("params = %+v", params)
		}
		return result(t, req, model.PrintResult{Success: true})
	})

	c := newTestClient(t, srv)
	res, err := c.Print(context.Background(), "<html>kot</html>", "POS58")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Errorf("result = %+v", res)
	}
}

func TestHostErrorFrameSurfaces(t *testing.T) {
	t.Parallel()

	srv := fakeHost(t, func(req model.RPCRequest) *model.RPCResponse {
		return &model.RPCResponse{ID: req.ID, Error: "boom"}
	})

	c := newTestClient(t, srv)
	if _, err := c.GetPrinters(context.Background()); err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("expected host error to surface, got %v", err)
	}
}

func TestCallTimesOutWhenHostSilent(t *testing.T) {
	t.Parallel()

	srv := fakeHost(t, func(model.RPCRequest) *model.RPCResponse {
		return nil // never answer
	})

	c := NewClient(config.Bridge{
		URL:          wsURL(srv),
		CallTimeout:  50 * time.Millisecond,
		PrintTimeout: 50 * time.Millisecond,
	}, zerolog.Nop())
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(c.Close)

	_, err := c.GetPrinters(context.Background())
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("expected timeout, got %v", err)
	}
}

func TestCallWithoutConnectionIsUnavailable(t *testing.T) {
	t.Parallel()

	c := NewClient(config.Bridge{
		URL:         "ws://127.0.0.1:1/ws",
		CallTimeout: time.Second,
	}, zerolog.Nop())

	_, err := c.GetPrinters(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected unavailable, got %v", err)
	}
}

func TestPendingCallsFailWhenHostDrops(t *testing.T) {
	t.Parallel()

	dropped := make(chan struct{})
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		// Take one frame then kill the connection mid-call.
		_, _, _ = conn.ReadMessage()
		conn.Close()
		close(dropped)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(config.Bridge{
		URL:          wsURL(srv),
		CallTimeout:  2 * time.Second,
		PrintTimeout: 2 * time.Second,
	}, zerolog.Nop())
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(c.Close)

	_, err := c.GetPrinters(context.Background())
	<-dropped
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected unavailable after drop, got %v", err)
	}
}

