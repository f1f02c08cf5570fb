package model

// PrinterInfo describes one device enumerated by the printer host. IsDefault
// reflects what the OS reports at enumeration time; it is resolved fresh on
// every print attempt because the OS default can change between calls.
type PrinterInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Status      int    `json:"status"`
	IsDefault   bool   `json:"isDefault"`
}

// Printer is a configured thermal device reachable over raw TCP (ESC/POS
// on port 9100), kept in printers.json alongside the OS spooler's devices.
type Printer struct {
	Name        string `json:"name"`
	IP          string `json:"ip"`
	Port        int    `json:"port"`
	Description string `json:"description"`
	IsEnabled   bool   `json:"isEnabled"`
	// Size is the raster width in dots; 576 covers 80mm paper.
	Size int `json:"size,omitempty"`
}
