package printerd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/goccy/go-json"

	"github.com/localbasket/posagent/internal/model"
)

// --- printers.json ---

// LoadPrinters reads the configured thermal devices. A missing file is an
// empty fleet, not an error.
func LoadPrinters(path string) ([]model.Printer, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return []model.Printer{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var printers []model.Printer
	if err := json.Unmarshal(data, &printers); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for i := range printers {
		if printers[i].Size == 0 {
			printers[i].Size = 576
		}
	}
	return printers, nil
}

// SavePrinters merges new devices into the file, keyed by name, keeping
// whatever was configured before.
func SavePrinters(path string, printers []model.Printer) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	existing, err := LoadPrinters(path)
	if err != nil {
		return err
	}

	known := make(map[string]bool, len(existing))
	for _, p := range existing {
		known[normalizeName(p.Name)] = true
	}
	for _, p := range printers {
		if known[normalizeName(p.Name)] {
			continue
		}
		if p.Size == 0 {
			p.Size = 576
		}
		existing = append(existing, p)
	}

	data, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// --- OS enumeration ---

// osPrinters asks the system spooler for its devices. Unix goes through
// lpstat; anything else yields nothing and the configured fleet carries
// the deployment.
func osPrinters(ctx context.Context) ([]model.PrinterInfo, error) {
	if runtime.GOOS == "windows" {
		return windowsPrinters(ctx)
	}
	return lpstatPrinters(ctx)
}

func lpstatPrinters(ctx context.Context) ([]model.PrinterInfo, error) {
	out, err := exec.CommandContext(ctx, "lpstat", "-p").Output()
	if err != nil {
		return nil, fmt.Errorf("lpstat -p: %w", err)
	}

	defaultName := lpstatDefault(ctx)

	var printers []model.PrinterInfo
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	for scanner.Scan() {
		// "printer POS58 is idle.  enabled since ..."
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 || fields[0] != "printer" {
			continue
		}
		name := fields[1]
		printers = append(printers, model.PrinterInfo{
			Name:      name,
			IsDefault: defaultName != "" && normalizeName(name) == normalizeName(defaultName),
		})
	}
	return printers, nil
}

func windowsPrinters(ctx context.Context) ([]model.PrinterInfo, error) {
	out, err := exec.CommandContext(ctx, "powershell", "-NoProfile", "-Command",
		"Get-CimInstance Win32_Printer | ForEach-Object { \"$($_.Name)|$($_.Default)\" }").Output()
	if err != nil {
		return nil, fmt.Errorf("enumerate windows printers: %w", err)
	}

	var printers []model.PrinterInfo
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		name, isDefault, _ := strings.Cut(line, "|")
		printers = append(printers, model.PrinterInfo{
			Name:      strings.TrimSpace(name),
			IsDefault: strings.EqualFold(strings.TrimSpace(isDefault), "true"),
		})
	}
	return printers, nil
}

// --- OS default-device configuration store ---

// osDefaultName consults the OS's own default-device configuration when
// enumeration reported no default: the registry Device value on Windows,
// lpstat -d and the PRINTER variable elsewhere.
func osDefaultName(ctx context.Context) string {
	if runtime.GOOS == "windows" {
		return windowsRegistryDefault(ctx)
	}
	if name := lpstatDefault(ctx); name != "" {
		return name
	}
	return strings.TrimSpace(os.Getenv("PRINTER"))
}

func lpstatDefault(ctx context.Context) string {
	out, err := exec.CommandContext(ctx, "lpstat", "-d").Output()
	if err != nil {
		return ""
	}
	// "system default destination: POS58"
	line := strings.TrimSpace(string(out))
	if _, name, ok := strings.Cut(line, ":"); ok {
		return strings.TrimSpace(name)
	}
	return ""
}

func windowsRegistryDefault(ctx context.Context) string {
	out, err := exec.CommandContext(ctx, "reg", "query",
		`HKCU\Software\Microsoft\Windows NT\CurrentVersion\Windows`, "/v", "Device").Output()
	if err != nil {
		return ""
	}
	// "    Device    REG_SZ    POS58,winspool,Ne01:"
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 3 && fields[0] == "Device" {
			name, _, _ := strings.Cut(fields[2], ",")
			return strings.TrimSpace(name)
		}
	}
	return ""
}
