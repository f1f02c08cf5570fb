package model

import "github.com/goccy/go-json"

// RPCMethod names one entry of the printer bridge surface. The host
// dispatches only these three; the agent has no other path to OS printing.
type RPCMethod string

const (
	MethodGetPrinters       RPCMethod = "getPrinters"
	MethodGetDefaultPrinter RPCMethod = "getDefaultPrinter"
	MethodPrint             RPCMethod = "print"
)

// --- Bridge RPC frames ---

type RPCRequest struct {
	ID     string          `json:"id"`
	Method RPCMethod       `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

type RPCResponse struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// --- Method payloads ---

type PrintParams struct {
	HTML       string `json:"html"`
	DeviceName string `json:"deviceName,omitempty"`
}

type PrintResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type PrintersResult struct {
	Printers []PrinterInfo `json:"printers"`
}

// DefaultPrinterResult reports the resolved default device. Found false
// with an empty name means the host exhausted its fallback chain.
type DefaultPrinterResult struct {
	Name  string `json:"name,omitempty"`
	Found bool   `json:"found"`
}
