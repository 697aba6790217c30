// Package grid maps linear vram indices onto rows and columns.
package grid

// GetGridCoords returns the column and row of index in a grid cols wide.
func GetGridCoords(index, cols int) (x, y int) {
	return index % cols, index / cols
}

// PanelCoords splits a linear region into panels of cols×rows cells laid out
// side by side, and returns the panel number plus the cell position in it.
func PanelCoords(index, cols, rows int) (panel, x, y int) {
	per := cols * rows
	x, y = GetGridCoords(index%per, cols)
	return index / per, x, y
}

// Panels is the number of whole or partial panels needed for size cells.
func Panels(size, cols, rows int) int {
	per := cols * rows
	if per <= 0 {
		return 0
	}
	return (size + per - 1) / per
}
