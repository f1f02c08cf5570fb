package printerd

import (
	"context"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/localbasket/posagent/internal/config"
	"github.com/localbasket/posagent/internal/model"
)

func newTestServer() *Server {
	svc := newTestService(config.Printerd{FallbackPrinter: "POS58"}, nil, stubOS{
		printers: []model.PrinterInfo{{Name: "POS58"}},
	})
	return NewServer(svc, "127.0.0.1:0", zerolog.Nop())
}

func TestDispatchGetPrinters(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	resp := s.dispatch(context.Background(), model.RPCRequest{ID: "r1", Method: model.MethodGetPrinters})
	if resp.ID != "r1" || resp.Error != "" {
		t.Fatalf("resp = %+v", resp)
	}

	var out model.PrintersResult
	if err := json.Unmarshal(resp.Result, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Printers) != 1 || out.Printers[0].Name != "POS58" {
		t.Errorf("printers = %+v", out.Printers)
	}
}

func TestDispatchGetDefaultPrinter(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	resp := s.dispatch(context.Background(), model.RPCRequest{ID: "r2", Method: model.MethodGetDefaultPrinter})
	if resp.Error != "" {
		t.Fatalf("resp = %+v", resp)
	}

	var out model.DefaultPrinterResult
	if err := json.Unmarshal(resp.Result, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.Found || out.Name != "POS58" {
		t.Errorf("default = %+v", out)
	}
}

func TestDispatchPrint(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	params, _ := json.Marshal(model.PrintParams{HTML: "<html>x</html>", DeviceName: "POS58"})
	resp := s.dispatch(context.Background(), model.RPCRequest{ID: "r3", Method: model.MethodPrint, Params: params})
	if resp.Error != "" {
		t.Fatalf("resp = %+v", resp)
	}

	var out model.PrintResult
	if err := json.Unmarshal(resp.Result, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.Success {
		t.Errorf("result = %+v", out)
	}
}

func TestDispatchMalformedPrintParams(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	resp := s.dispatch(context.Background(), model.RPCRequest{ID: "r4", Method: model.MethodPrint, Params: json.RawMessage(`{`)})
	if resp.Error != "malformed print params" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestDispatchUnknownMethod(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	resp := s.dispatch(context.Background(), model.RPCRequest{ID: "r5", Method: "shutdown"})
	if resp.Error == "" || resp.ID != "r5" {
		t.Errorf("unknown methods must be refused, resp = %+v", resp)
	}
}
