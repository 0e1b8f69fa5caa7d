package term

import (
	"strings"
	"sync"
)

// DefaultScrollback is the scrollback row capacity used by NewScreenBuffer.
const DefaultScrollback = 1000

// savedScreen is the primary-screen snapshot taken when entering the
// alternate screen buffer.
type savedScreen struct {
	cells          [][]Cell
	width, height  int
	curRow, curCol int
	sgr            sgrState
}

// scrollRing is a bounded circular history of rendered rows that scrolled off
// the top of a full-screen grid. Write-only for now; kept for a future scroll
// viewport.
type scrollRing struct {
	rows  []string
	cap   int
	start int
}

func newScrollRing(capacity int) *scrollRing {
	if capacity <= 0 {
		capacity = DefaultScrollback
	}
	return &scrollRing{cap: capacity}
}

func (r *scrollRing) push(row string) {
	if len(r.rows) < r.cap {
		r.rows = append(r.rows, row)
		return
	}
	r.rows[r.start] = row
	r.start = (r.start + 1) % r.cap
}

func (r *scrollRing) clear() {
	r.rows = r.rows[:0]
	r.start = 0
}

func (r *scrollRing) len() int { return len(r.rows) }

// ScreenBuffer is a virtual terminal grid driven by a character stream.
//
// Exactly one goroutine (a session's reader loop) feeds it, but snapshots and
// resizes arrive concurrently from polling callers, so every exported method
// takes the internal lock.
type ScreenBuffer struct {
	mu sync.Mutex

	width, height  int
	cells          [][]Cell
	curRow, curCol int

	sgr    sgrState
	parser parser

	// Inclusive scroll region bounds.
	scrollTop    int
	scrollBottom int

	saved      *savedScreen
	scrollback *scrollRing

	version       uint64
	appCursorKeys bool
}

// NewScreenBuffer creates a grid of the given size with the default
// scrollback capacity. Dimensions below 1 clamp to 1.
func NewScreenBuffer(width, height int) *ScreenBuffer {
	return NewScreenBufferWithScrollback(width, height, DefaultScrollback)
}

// NewScreenBufferWithScrollback creates a grid with an explicit scrollback
// row capacity.
func NewScreenBufferWithScrollback(width, height, scrollback int) *ScreenBuffer {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return &ScreenBuffer{
		width:        width,
		height:       height,
		cells:        newGrid(height, width),
		scrollBottom: height - 1,
		scrollback:   newScrollRing(scrollback),
	}
}

// Feed processes every character of text through the parser. It never blocks
// and never fails: unterminated sequences leave the parser state intact for
// the next call, so arbitrary chunking of the same stream yields the same
// grid.
func (s *ScreenBuffer) Feed(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range text {
		s.parser.step(s, ch)
	}
	s.version++
}

// Size returns the current grid dimensions.
func (s *ScreenBuffer) Size() (width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// Version returns the monotonic change counter. It bumps on every Feed,
// effective Resize, and Clear, letting pollers skip unchanged snapshots.
func (s *ScreenBuffer) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// CursorKeysApplication reports whether the application cursor keys mode
// (DECCKM) is active. Input translation consults this when encoding arrows.
func (s *ScreenBuffer) CursorKeysApplication() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appCursorKeys
}

// Cursor returns the current cursor position.
func (s *ScreenBuffer) Cursor() (row, col int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.curRow, s.curCol
}

// Resize changes the grid dimensions, preserving the overlapping top-left
// region. The cursor clamps into bounds and the scroll region resets to the
// full screen. Unchanged dimensions are a no-op.
func (s *ScreenBuffer) Resize(width, height int) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if width == s.width && height == s.height {
		return
	}
	next := newGrid(height, width)
	copyOverlap(next, s.cells)
	s.cells = next
	s.width = width
	s.height = height
	if s.curRow >= height {
		s.curRow = height - 1
	}
	if s.curCol > width {
		s.curCol = width
	}
	s.scrollTop = 0
	s.scrollBottom = height - 1
	s.version++
}

// Clear resets the grid, cursor, pending style, parser state, and scroll
// region. Scrollback is left untouched; only erase-display mode 3 drops it.
func (s *ScreenBuffer) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cells = newGrid(s.height, s.width)
	s.curRow, s.curCol = 0, 0
	s.sgr.reset()
	s.parser = parser{}
	s.scrollTop = 0
	s.scrollBottom = s.height - 1
	s.version++
}

// Content renders the first min(height, maxLines) current rows as text.
// Consecutive cells with the same style merge into a single SGR run, trailing
// blanks are trimmed, and any open style is closed at line end. maxLines <= 0
// renders the whole grid.
func (s *ScreenBuffer) Content(maxLines int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.height
	if maxLines > 0 && maxLines < n {
		n = maxLines
	}
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(renderRow(s.cells[i]))
	}
	return b.String()
}

// ScrollbackLen reports how many rows have scrolled into history. Nothing
// renders scrollback back out yet; the counter exists for observability.
func (s *ScreenBuffer) ScrollbackLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scrollback.len()
}

// renderRow re-emits one row with minimal SGR runs.
func renderRow(row []Cell) string {
	last := len(row) - 1
	for last >= 0 && row[last].isBlank() {
		last--
	}
	var b strings.Builder
	open := ""
	for i := 0; i <= last; i++ {
		c := row[i]
		if c.Style != open {
			if open != "" {
				b.WriteString("\x1b[0m")
			}
			if c.Style != "" {
				b.WriteString("\x1b[")
				b.WriteString(c.Style)
				b.WriteString("m")
			}
			open = c.Style
		}
		ch := c.Char
		if ch == 0 {
			ch = ' '
		}
		b.WriteRune(ch)
	}
	if open != "" {
		b.WriteString("\x1b[0m")
	}
	return b.String()
}

// copyOverlap copies the shared top-left region of src into dst.
func copyOverlap(dst, src [][]Cell) {
	for r := 0; r < len(dst) && r < len(src); r++ {
		copy(dst[r], src[r])
	}
}

// ---- grid mutation, called with the lock held by the parser ----

// printRune writes a printable character at the cursor, wrapping to the next
// line (scroll-aware) when the cursor rests past the last column.
func (s *ScreenBuffer) printRune(ch rune) {
	if s.curCol >= s.width {
		s.curCol = 0
		s.lineFeed()
	}
	s.cells[s.curRow][s.curCol] = Cell{Char: ch, Style: s.sgr.serialize()}
	s.curCol++
}

// lineFeed moves the cursor down, scrolling when it sits on the region's
// bottom row.
func (s *ScreenBuffer) lineFeed() {
	switch {
	case s.curRow == s.scrollBottom:
		s.scrollUp(1)
	case s.curRow < s.height-1:
		s.curRow++
	}
}

// reverseIndex moves the cursor up, scrolling down at the region's top row.
func (s *ScreenBuffer) reverseIndex() {
	switch {
	case s.curRow == s.scrollTop:
		s.scrollDown(1)
	case s.curRow > 0:
		s.curRow--
	}
}

// scrollUp shifts the scroll region up n rows. Rows vacated off the top of a
// full-width, full-screen region are pushed into scrollback; region-scoped
// scrolling never writes history.
func (s *ScreenBuffer) scrollUp(n int) {
	fullScreen := s.scrollTop == 0 && s.scrollBottom == s.height-1
	for ; n > 0; n-- {
		if fullScreen && s.saved == nil {
			s.scrollback.push(renderRow(s.cells[s.scrollTop]))
		}
		for r := s.scrollTop; r < s.scrollBottom; r++ {
			copy(s.cells[r], s.cells[r+1])
		}
		s.cells[s.scrollBottom] = newRow(s.width)
	}
}

// scrollDown shifts the scroll region down n rows, blanking the top.
func (s *ScreenBuffer) scrollDown(n int) {
	for ; n > 0; n-- {
		for r := s.scrollBottom; r > s.scrollTop; r-- {
			copy(s.cells[r], s.cells[r-1])
		}
		s.cells[s.scrollTop] = newRow(s.width)
	}
}

// tab advances to the next 8-column stop, clamped to the last column.
func (s *ScreenBuffer) tab() {
	next := (s.curCol/8 + 1) * 8
	if next > s.width-1 {
		next = s.width - 1
	}
	if next > s.curCol {
		s.curCol = next
	}
}

// clampCursor pulls the cursor back into addressable bounds after absolute
// positioning. The column may rest one past the last cell pending a wrap only
// via printing, never via addressing.
func (s *ScreenBuffer) clampCursor() {
	if s.curRow < 0 {
		s.curRow = 0
	}
	if s.curRow >= s.height {
		s.curRow = s.height - 1
	}
	if s.curCol < 0 {
		s.curCol = 0
	}
	if s.curCol >= s.width {
		s.curCol = s.width - 1
	}
}

// eraseDisplay implements CSI J. Mode 3 additionally drops scrollback.
func (s *ScreenBuffer) eraseDisplay(mode int) {
	switch mode {
	case 0:
		s.eraseLine(0)
		for r := s.curRow + 1; r < s.height; r++ {
			s.cells[r] = newRow(s.width)
		}
	case 1:
		s.eraseLine(1)
		for r := 0; r < s.curRow; r++ {
			s.cells[r] = newRow(s.width)
		}
	case 2, 3:
		s.cells = newGrid(s.height, s.width)
		if mode == 3 {
			s.scrollback.clear()
		}
	}
}

// eraseLine implements CSI K.
func (s *ScreenBuffer) eraseLine(mode int) {
	row := s.cells[s.curRow]
	col := s.curCol
	if col >= s.width {
		col = s.width - 1
	}
	switch mode {
	case 0:
		for i := col; i < s.width; i++ {
			row[i] = blank
		}
	case 1:
		for i := 0; i <= col; i++ {
			row[i] = blank
		}
	case 2:
		s.cells[s.curRow] = newRow(s.width)
	}
}

// insertLines implements CSI L: blank lines open at the cursor, pushing rows
// toward the region bottom. Outside the scroll region it is a no-op.
func (s *ScreenBuffer) insertLines(n int) {
	if s.curRow < s.scrollTop || s.curRow > s.scrollBottom {
		return
	}
	for ; n > 0; n-- {
		for r := s.scrollBottom; r > s.curRow; r-- {
			copy(s.cells[r], s.cells[r-1])
		}
		s.cells[s.curRow] = newRow(s.width)
	}
}

// deleteLines implements CSI M: rows at the cursor vanish, the region bottom
// fills with blanks.
func (s *ScreenBuffer) deleteLines(n int) {
	if s.curRow < s.scrollTop || s.curRow > s.scrollBottom {
		return
	}
	for ; n > 0; n-- {
		for r := s.curRow; r < s.scrollBottom; r++ {
			copy(s.cells[r], s.cells[r+1])
		}
		s.cells[s.scrollBottom] = newRow(s.width)
	}
}

// eraseChars implements CSI X: blank n cells rightward without shifting.
func (s *ScreenBuffer) eraseChars(n int) {
	row := s.cells[s.curRow]
	for i := s.curCol; i < s.curCol+n && i < s.width; i++ {
		row[i] = blank
	}
}

// deleteChars implements CSI P: cells right of the cursor shift left, blanks
// enter at the row end.
func (s *ScreenBuffer) deleteChars(n int) {
	if s.curCol >= s.width {
		return
	}
	row := s.cells[s.curRow]
	for i := s.curCol; i < s.width; i++ {
		if i+n < s.width {
			row[i] = row[i+n]
		} else {
			row[i] = blank
		}
	}
}

// insertChars implements CSI @: blanks open at the cursor, pushing cells right
// off the row end.
func (s *ScreenBuffer) insertChars(n int) {
	if s.curCol >= s.width {
		return
	}
	row := s.cells[s.curRow]
	for i := s.width - 1; i >= s.curCol+n; i-- {
		row[i] = row[i-n]
	}
	for i := s.curCol; i < s.curCol+n && i < s.width; i++ {
		row[i] = blank
	}
}

// setScrollRegion implements CSI r with 1-based inclusive bounds. Invalid
// regions reset to the full screen. The cursor homes either way.
func (s *ScreenBuffer) setScrollRegion(top, bottom int) {
	top--
	bottom--
	if top < 0 || bottom >= s.height || top >= bottom {
		top = 0
		bottom = s.height - 1
	}
	s.scrollTop = top
	s.scrollBottom = bottom
	s.curRow, s.curCol = 0, 0
}

// enterAltScreen snapshots the grid and substitutes a blank default-style
// screen with the cursor at home. Re-entering while already active is a
// no-op.
func (s *ScreenBuffer) enterAltScreen() {
	if s.saved != nil {
		return
	}
	s.saved = &savedScreen{
		cells:  s.cells,
		width:  s.width,
		height: s.height,
		curRow: s.curRow,
		curCol: s.curCol,
		sgr:    s.sgr,
	}
	s.cells = newGrid(s.height, s.width)
	s.curRow, s.curCol = 0, 0
	s.sgr.reset()
	s.scrollTop = 0
	s.scrollBottom = s.height - 1
}

// leaveAltScreen restores the snapshot, copying only the overlapping region
// when the grid was resized while the alternate screen was active. Leaving
// while not active is a no-op.
func (s *ScreenBuffer) leaveAltScreen() {
	saved := s.saved
	if saved == nil {
		return
	}
	s.saved = nil
	if saved.width == s.width && saved.height == s.height {
		s.cells = saved.cells
	} else {
		s.cells = newGrid(s.height, s.width)
		copyOverlap(s.cells, saved.cells)
	}
	s.curRow, s.curCol = saved.curRow, saved.curCol
	s.sgr = saved.sgr
	s.scrollTop = 0
	s.scrollBottom = s.height - 1
	s.clampCursor()
}
