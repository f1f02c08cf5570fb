package printerd

import (
	"image"
	"image/color"
	"testing"
)

func TestRasterHeaderAndDimensions(t *testing.T) {
	t.Parallel()

	img := image.NewRGBA(image.Rect(0, 0, 16, 3))
	data := rasterToESCPOS(img)

	want := []byte{0x1D, 0x76, 0x30, 0x00, 2, 0, 3, 0}
	for i, b := range want {
		if data[i] != b {
			t.Fatalf("header[%d] = %#x, want %#x", i, data[i], b)
		}
	}
	if got, wantLen := len(data), len(want)+2*3; got != wantLen {
		t.Errorf("payload length = %d, want %d", got, wantLen)
	}
}

func TestRasterClampsWidthToByteBoundary(t *testing.T) {
	t.Parallel()

	img := image.NewRGBA(image.Rect(0, 0, 13, 1))
	data := rasterToESCPOS(img)

	// 13px clamps to 8px, one byte per row
	if data[4] != 1 || data[5] != 0 {
		t.Errorf("rowBytes = %d, want 1", int(data[4])|int(data[5])<<8)
	}
}

func TestRasterThresholdsDarkPixels(t *testing.T) {
	t.Parallel()

	img := image.NewRGBA(image.Rect(0, 0, 8, 1))
	for x := 0; x < 8; x++ {
		img.Set(x, 0, color.White)
	}
	img.Set(0, 0, color.Black)
	img.Set(7, 0, color.Black)

	data := rasterToESCPOS(img)
	row := data[8]
	if row != 0b10000001 {
		t.Errorf("row bits = %08b, want 10000001", row)
	}
}

func TestResizeToWidthPreservesAspectRatio(t *testing.T) {
	t.Parallel()

	src := image.NewRGBA(image.Rect(0, 0, 100, 50))
	dst := resizeToWidth(src, 576)

	b := dst.Bounds()
	if b.Dx() != 576 {
		t.Errorf("width = %d, want 576", b.Dx())
	}
	if b.Dy() != 288 {
		t.Errorf("height = %d, want 288", b.Dy())
	}
}

func TestResizeToWidthNoOpAtTarget(t *testing.T) {
	t.Parallel()

	src := image.NewRGBA(image.Rect(0, 0, 576, 10))
	if dst := resizeToWidth(src, 576); dst != src {
		t.Error("image already at target width must be returned as-is")
	}
}
