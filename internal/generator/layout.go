package generator

// LayoutEngine implements the 24-unit grid auto-layout algorithm with a cap
// on panels per row.
type LayoutEngine struct {
	GridWidth int
	PerRow    int
	cursorX   int
	cursorY   int
	rowHeight int
	rowCount  int
}

// NewLayoutEngine creates a layout engine on the standard 24-unit grid
// placing at most perRow panels on each row. perRow < 1 means no cap.
func NewLayoutEngine(perRow int) *LayoutEngine {
	return &LayoutEngine{GridWidth: 24, PerRow: perRow}
}

// PanelSize returns the width and height shared by every panel of a
// dashboard with count panels laid out columns per row.
func PanelSize(columns, count int) (int, int) {
	if columns < 1 {
		columns = 3
	}
	n := columns
	if count < n {
		n = count
	}
	if n < 1 {
		n = 1
	}
	w := 24 / n
	return w, w/2 + 2
}

// Reset resets the layout state for a new dashboard.
func (le *LayoutEngine) Reset() {
	le.cursorX = 0
	le.cursorY = 0
	le.rowHeight = 0
	le.rowCount = 0
}

// Place positions a panel and returns (x, y) coordinates.
func (le *LayoutEngine) Place(width, height int) (int, int) {
	full := le.PerRow > 0 && le.rowCount >= le.PerRow
	if le.cursorX+width > le.GridWidth || full {
		le.newLine()
	}
	x := le.cursorX
	y := le.cursorY
	le.cursorX += width
	le.rowCount++
	if height > le.rowHeight {
		le.rowHeight = height
	}
	return x, y
}

func (le *LayoutEngine) newLine() {
	le.cursorY += le.rowHeight
	le.cursorX = 0
	le.rowHeight = 0
	le.rowCount = 0
}
