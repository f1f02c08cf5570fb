package printerd

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/localbasket/posagent/internal/model"
)

// sendToThermal pushes a rendered receipt to a raw ESC/POS device over
// TCP: init, raster, feed, partial cut.
func sendToThermal(p model.Printer, pngBytes []byte) error {
	img, err := png.Decode(bytes.NewReader(pngBytes))
	if err != nil {
		return fmt.Errorf("decode receipt image: %w", err)
	}

	width := p.Size
	if width <= 0 {
		width = 576
	}
	img = resizeToWidth(img, width)

	var job []byte
	job = append(job, 0x1B, 0x40) // ESC @ init
	job = append(job, rasterToESCPOS(img)...)
	job = append(job, 0x1B, 0x64, 0x03)       // feed 3 lines
	job = append(job, 0x1D, 0x56, 0x41, 0x00) // partial cut

	addr := fmt.Sprintf("%s:%d", p.IP, p.Port)
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return fmt.Errorf("connect %s: %w", addr, err)
	}
	defer conn.Close()

	if _, err := conn.Write(job); err != nil {
		return fmt.Errorf("write to %s: %w", addr, err)
	}

	// Give the device time to drain before the socket closes.
	time.Sleep(500 * time.Millisecond)
	return nil
}

// spoolPNG hands the receipt to the system spooler for devices the OS
// manages. lp prints without showing a dialog.
func spoolPNG(ctx context.Context, command, device string, pngBytes []byte) error {
	tmp, err := os.CreateTemp("", "receipt-*.png")
	if err != nil {
		return fmt.Errorf("temp receipt file: %w", err)
	}
	path := tmp.Name()
	defer os.Remove(path)

	if _, err := tmp.Write(pngBytes); err != nil {
		tmp.Close()
		return fmt.Errorf("write receipt file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if command == "" {
		command = "lp"
	}
	cmd := exec.CommandContext(ctx, command, "-d", device, "-o", "fit-to-page", filepath.Clean(path))
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s -d %s: %v: %s", command, device, err, bytes.TrimSpace(out))
	}
	return nil
}
