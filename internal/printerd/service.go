// Package printerd implements the privileged printer host: device
// enumeration, default-printer resolution, and silent raster printing
// behind a three-method RPC surface. The agent process never touches the
// OS spooler or raw devices directly.
package printerd

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/localbasket/posagent/internal/config"
	"github.com/localbasket/posagent/internal/model"
)

// Service holds the host-side printing logic. OS-touching collaborators
// are function fields so tests can run without a spooler or Chrome.
type Service struct {
	cfg config.Printerd
	log zerolog.Logger

	// configured thermal devices from printers.json
	configured []model.Printer

	enumerate   func(ctx context.Context) ([]model.PrinterInfo, error)
	defaultName func(ctx context.Context) string
	render      func(ctx context.Context, html string) ([]byte, error)
	thermal     func(p model.Printer, png []byte) error
	spool       func(ctx context.Context, device string, png []byte) error
}

func NewService(cfg config.Printerd, configured []model.Printer, log zerolog.Logger) *Service {
	s := &Service{
		cfg:        cfg,
		log:        log,
		configured: configured,
	}
	s.enumerate = osPrinters
	s.defaultName = osDefaultName
	s.render = func(ctx context.Context, html string) ([]byte, error) {
		return renderSurface(ctx, cfg.ChromePath, cfg.RenderTimeout, html)
	}
	s.thermal = sendToThermal
	s.spool = func(ctx context.Context, device string, png []byte) error {
		return spoolPNG(ctx, cfg.SpoolCommand, device, png)
	}
	return s
}

// ListPrinters merges OS-enumerated devices with the configured thermal
// printers, deduplicated by name. Enumeration fails open: any host error
// degrades to whatever is configured, never to a caller-visible failure.
func (s *Service) ListPrinters(ctx context.Context) []model.PrinterInfo {
	var out []model.PrinterInfo
	seen := map[string]bool{}

	osList, err := s.enumerate(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("printer enumeration failed, using configured devices only")
	}
	for _, p := range osList {
		key := normalizeName(p.Name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}

	for _, p := range s.configured {
		if !p.IsEnabled {
			continue
		}
		key := normalizeName(p.Name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, model.PrinterInfo{
			Name:        p.Name,
			Description: p.Description,
		})
	}
	return out
}

// ResolveDefaultPrinter runs the deterministic fallback chain: a device the
// OS reports as default, then the OS's own default-device configuration
// store matched case-insensitively and trimmed against the enumerated
// list, then the deployment's configured fallback name, then nothing.
// Resolved fresh per call because the OS default can change between calls.
func (s *Service) ResolveDefaultPrinter(ctx context.Context) (string, bool) {
	printers := s.ListPrinters(ctx)

	for _, p := range printers {
		if p.IsDefault {
			return p.Name, true
		}
	}

	if name := s.defaultName(ctx); name != "" {
		if match, ok := matchByName(printers, name); ok {
			return match, true
		}
	}

	if match, ok := matchByName(printers, s.cfg.FallbackPrinter); ok {
		return match, true
	}

	return "", false
}

// Print renders the markup off-screen and pushes the raster to the device.
// When deviceName is empty the OS default (full fallback chain) is used.
// The result mirrors the bridge wire contract; errors never panic the host.
func (s *Service) Print(ctx context.Context, html, deviceName string) model.PrintResult {
	if strings.TrimSpace(html) == "" {
		return model.PrintResult{Success: false, Error: "No content to print"}
	}

	device := deviceName
	if device == "" {
		name, found := s.ResolveDefaultPrinter(ctx)
		if !found {
			return model.PrintResult{Success: false, Error: "No default printer found"}
		}
		device = name
	}

	png, err := s.render(ctx, html)
	if err != nil {
		s.log.Error().Err(err).Msg("render surface failed")
		return model.PrintResult{Success: false, Error: err.Error()}
	}

	if p, ok := s.thermalDevice(device); ok {
		if err := s.thermal(p, png); err != nil {
			s.log.Error().Err(err).Str("device", device).Msg("thermal print failed")
			return model.PrintResult{Success: false, Error: err.Error()}
		}
	} else {
		if err := s.spool(ctx, device, png); err != nil {
			s.log.Error().Err(err).Str("device", device).Msg("spool print failed")
			return model.PrintResult{Success: false, Error: err.Error()}
		}
	}

	s.log.Info().Str("device", device).Msg("print completed")
	return model.PrintResult{Success: true}
}

func (s *Service) thermalDevice(name string) (model.Printer, bool) {
	for _, p := range s.configured {
		if p.IsEnabled && p.IP != "" && normalizeName(p.Name) == normalizeName(name) {
			return p, true
		}
	}
	return model.Printer{}, false
}

func matchByName(printers []model.PrinterInfo, name string) (string, bool) {
	want := normalizeName(name)
	if want == "" {
		return "", false
	}
	for _, p := range printers {
		if normalizeName(p.Name) == want {
			return p.Name, true
		}
	}
	return "", false
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
