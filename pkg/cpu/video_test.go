package cpu

import (
	"image/color"
	"testing"
)

func TestVRAMImage(t *testing.T) {
	c := NewCPU(DefaultConfig())
	c.VRAM[0] = 1
	c.VRAM[25] = 1
	c.VRAM[49] = 7

	const scale = 2
	img := c.VRAMImage(scale)
	if w, h := img.Bounds().Dx(), img.Bounds().Dy(); w != 22 || h != 10 {
		t.Fatalf("image is %dx%d, want 22x10", w, h)
	}

	tests := []struct {
		name string
		x, y int
		want color.RGBA
	}{
		{"main panel lit cell", 1, 1, LitColor},
		{"main panel unlit cell", 2, 0, UnlitColor},
		{"gap between panels", 10, 0, BackgroundColor},
		{"buffer panel first cell", 12, 0, LitColor},
		{"buffer panel last cell", 21, 9, LitColor},
		{"buffer panel unlit cell", 14, 2, UnlitColor},
	}
	for _, tc := range tests {
		if got := img.RGBAAt(tc.x, tc.y); got != tc.want {
			t.Errorf("%s: pixel (%d,%d) = %v, want %v", tc.name, tc.x, tc.y, got, tc.want)
		}
	}
}

func TestVRAMImageOddSize(t *testing.T) {
	c := NewCPU(Config{VRAMSize: 30})
	w, h := c.VRAMImageSize(1)
	if w != 11 || h != 5 {
		t.Errorf("VRAMImageSize = %dx%d, want 11x5", w, h)
	}
	img := c.VRAMImage(0)
	if img.Bounds().Dx() != 11 {
		t.Errorf("scale 0 should be treated as 1, got width %d", img.Bounds().Dx())
	}
}
