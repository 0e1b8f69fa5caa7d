package term

// Cell is a single grid position: a character plus its pre-rendered SGR
// parameter string. An empty style means default rendering. Styles are frozen
// at write time so that repeated SGR changes never accumulate per cell.
type Cell struct {
	Char  rune
	Style string
}

// blank is the default cell used for erased and newly allocated positions.
var blank = Cell{Char: ' '}

// isBlank reports whether the cell renders as an unstyled space. Trailing
// blank cells are trimmed from rendered rows.
func (c Cell) isBlank() bool {
	return (c.Char == ' ' || c.Char == 0) && c.Style == ""
}

// newRow allocates a row of width w filled with blank cells.
func newRow(w int) []Cell {
	row := make([]Cell, w)
	for i := range row {
		row[i] = blank
	}
	return row
}

// newGrid allocates an h x w grid of blank cells.
func newGrid(h, w int) [][]Cell {
	grid := make([][]Cell, h)
	for i := range grid {
		grid[i] = newRow(w)
	}
	return grid
}
