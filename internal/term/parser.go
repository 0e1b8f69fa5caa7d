package term

// parserState enumerates the escape sequence decoder states.
type parserState uint8

const (
	stateNormal parserState = iota
	stateEscape
	stateCsi
	stateOscString
	stateCharsetSelect
)

// parser is the escape sequence state machine. It lives inside the
// ScreenBuffer and survives across Feed calls so sequences split over chunk
// boundaries decode identically to unsplit input.
type parser struct {
	state   parserState
	csi     []byte // accumulated CSI parameter and intermediate bytes
	private bool   // CSI had a '?' prefix
}

// step consumes one character and applies its effect to the screen.
func (p *parser) step(s *ScreenBuffer, ch rune) {
	switch p.state {
	case stateNormal:
		p.normal(s, ch)
	case stateEscape:
		p.escape(s, ch)
	case stateCsi:
		p.csiByte(s, ch)
	case stateOscString:
		// OSC payloads (window title etc.) are discarded until BEL or ESC.
		if ch == 0x07 {
			p.state = stateNormal
		} else if ch == 0x1b {
			p.state = stateEscape
		}
	case stateCharsetSelect:
		// Consume exactly one designator; charsets are not emulated.
		p.state = stateNormal
	}
}

func (p *parser) normal(s *ScreenBuffer, ch rune) {
	switch ch {
	case 0x1b:
		p.state = stateEscape
	case '\r':
		s.curCol = 0
	case '\n':
		s.lineFeed()
	case '\t':
		s.tab()
	case '\b':
		if s.curCol > 0 {
			s.curCol--
		}
	case 0x07:
		// BEL swallowed; notification is a collaborator concern.
	default:
		if ch >= 0x20 {
			s.printRune(ch)
		}
	}
}

func (p *parser) escape(s *ScreenBuffer, ch rune) {
	switch ch {
	case '[':
		p.state = stateCsi
		p.csi = p.csi[:0]
		p.private = false
	case ']':
		p.state = stateOscString
	case '(', ')', '*', '+':
		p.state = stateCharsetSelect
	case 'M':
		s.reverseIndex()
		p.state = stateNormal
	default:
		// Unhandled ESC finals (keypad modes, DECSC, ...) are swallowed.
		p.state = stateNormal
	}
}

// csiByte accumulates parameter/intermediate bytes until a final byte
// arrives, then dispatches. Anything else aborts the sequence without
// desynchronizing.
func (p *parser) csiByte(s *ScreenBuffer, ch rune) {
	switch {
	case ch >= '0' && ch <= '9', ch == ';':
		p.csi = append(p.csi, byte(ch))
	case ch == '?':
		p.private = true
	case ch == '!', ch == '>', ch == ' ':
		p.csi = append(p.csi, byte(ch))
	case ch >= 0x40 && ch <= 0x7e:
		p.dispatchCsi(s, byte(ch))
		p.state = stateNormal
	case ch == 0x1b:
		p.state = stateEscape
	default:
		p.state = stateNormal
	}
}

// csiParams parses the accumulated parameter bytes. Missing or empty
// parameters default to def.
func (p *parser) csiParams(def int) []int {
	params := []int{}
	cur := -1
	for _, b := range p.csi {
		switch {
		case b >= '0' && b <= '9':
			if cur < 0 {
				cur = 0
			}
			// Clamp absurd values instead of overflowing.
			if cur < 1<<24 {
				cur = cur*10 + int(b-'0')
			}
		case b == ';':
			if cur < 0 {
				cur = def
			}
			params = append(params, cur)
			cur = -1
		}
	}
	if cur < 0 {
		cur = def
	}
	params = append(params, cur)
	return params
}

// param returns the first parameter, defaulting and lower-bounding to def.
func (p *parser) param(def int) int {
	v := p.csiParams(def)[0]
	if v < def {
		v = def
	}
	return v
}

func (p *parser) dispatchCsi(s *ScreenBuffer, final byte) {
	switch final {
	case 'A':
		s.curRow -= p.param(1)
		s.clampCursor()
	case 'B':
		s.curRow += p.param(1)
		s.clampCursor()
	case 'C':
		s.curCol += p.param(1)
		s.clampCursor()
	case 'D':
		s.curCol -= p.param(1)
		s.clampCursor()
	case 'E':
		s.curRow += p.param(1)
		s.curCol = 0
		s.clampCursor()
	case 'F':
		s.curRow -= p.param(1)
		s.curCol = 0
		s.clampCursor()
	case 'G':
		s.curCol = p.param(1) - 1
		s.clampCursor()
	case 'd':
		s.curRow = p.param(1) - 1
		s.clampCursor()
	case 'H', 'f':
		params := p.csiParams(1)
		row, col := params[0], 1
		if len(params) > 1 {
			col = params[1]
		}
		if row < 1 {
			row = 1
		}
		if col < 1 {
			col = 1
		}
		s.curRow, s.curCol = row-1, col-1
		s.clampCursor()
	case 'J':
		s.eraseDisplay(p.param(0))
	case 'K':
		s.eraseLine(p.param(0))
	case 'L':
		s.insertLines(p.param(1))
	case 'M':
		s.deleteLines(p.param(1))
	case 'X':
		s.eraseChars(p.param(1))
	case 'P':
		s.deleteChars(p.param(1))
	case '@':
		s.insertChars(p.param(1))
	case 'S':
		s.scrollUp(p.param(1))
	case 'T':
		s.scrollDown(p.param(1))
	case 'h', 'l':
		if p.private {
			s.setPrivateModes(p.csiParams(0), final == 'h')
		}
	case 'r':
		if p.private {
			return
		}
		params := p.csiParams(0)
		top, bottom := params[0], 0
		if len(params) > 1 {
			bottom = params[1]
		}
		if top == 0 {
			top = 1
		}
		if bottom == 0 {
			bottom = s.height
		}
		s.setScrollRegion(top, bottom)
	case 'm':
		s.sgr.apply(p.csiParams(0))
	case 'n', 'c', 't', 'q':
		// Device status, attributes, window ops: accepted and ignored.
	}
}

// setPrivateModes handles DEC private set/reset. Only the alternate screen
// and application cursor keys are emulated; everything else is swallowed.
func (s *ScreenBuffer) setPrivateModes(params []int, set bool) {
	for _, mode := range params {
		switch mode {
		case 1:
			s.appCursorKeys = set
		case 47, 1049:
			if set {
				s.enterAltScreen()
			} else {
				s.leaveAltScreen()
			}
		}
	}
}
