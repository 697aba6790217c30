package cpu

import (
	"image"
	"image/color"
	"image/png"
	"os"

	"golang.org/x/image/colornames"

	"vgtool/pkg/grid"
)

// vram is shown as side-by-side panels of PanelCols×PanelRows cells; with
// the default 50 cells that is the main panel and the buffer panel.
const (
	PanelCols = 5
	PanelRows = 5
)

var (
	LitColor        = colornames.Lime
	UnlitColor      = colornames.Darkslategray
	BackgroundColor = colornames.Black
)

// Lit reports whether a vram cell is drawn as on.
func Lit(v int) bool { return v != 0 }

// VRAMImageSize is the pixel size of VRAMImage for the given cell scale.
// Panels are separated by one empty cell.
func (c *CPU) VRAMImageSize(scale int) (w, h int) {
	panels := grid.Panels(len(c.VRAM), PanelCols, PanelRows)
	if panels == 0 {
		return 0, 0
	}
	return (panels*(PanelCols+1) - 1) * scale, PanelRows * scale
}

// VRAMImage draws every vram cell as a scale×scale square.
func (c *CPU) VRAMImage(scale int) *image.RGBA {
	if scale < 1 {
		scale = 1
	}
	w, h := c.VRAMImageSize(scale)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	fill(img, img.Bounds(), BackgroundColor)

	for i, v := range c.VRAM {
		panel, x, y := grid.PanelCoords(i, PanelCols, PanelRows)
		px := (panel*(PanelCols+1) + x) * scale
		py := y * scale
		col := UnlitColor
		if Lit(v) {
			col = LitColor
		}
		fill(img, image.Rect(px, py, px+scale, py+scale), col)
	}
	return img
}

func fill(img *image.RGBA, r image.Rectangle, col color.RGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, col)
		}
	}
}

// SaveScreenshot encodes the vram image as a PNG and writes it to filename.
func (c *CPU) SaveScreenshot(filename string, scale int) error {
	img := c.VRAMImage(scale)
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
