package term

import (
	"strconv"
	"strings"
)

// colorMode distinguishes the three color encodings SGR can select.
type colorMode uint8

const (
	colorDefault colorMode = iota
	colorPalette           // 256-color palette index
	colorRGB               // 24-bit truecolor
)

// color is a foreground or background color in pending SGR state.
type color struct {
	mode    colorMode
	index   uint8
	r, g, b uint8
}

// sgrState is the pending text style. It is mutated by SGR sequences and
// frozen into a Cell's serialized style only when a printable character is
// written.
type sgrState struct {
	fg, bg    color
	bold      bool
	dim       bool
	italic    bool
	underline bool
	reverse   bool
}

// reset returns the state to terminal defaults.
func (s *sgrState) reset() {
	*s = sgrState{}
}

// apply processes one SGR parameter list left to right. Each parameter is
// independent; later parameters win. Unknown parameters are ignored.
func (s *sgrState) apply(params []int) {
	if len(params) == 0 {
		params = []int{0}
	}
	for i := 0; i < len(params); i++ {
		p := params[i]
		switch {
		case p == 0:
			s.reset()
		case p == 1:
			s.bold = true
		case p == 2:
			s.dim = true
		case p == 3:
			s.italic = true
		case p == 4:
			s.underline = true
		case p == 7:
			s.reverse = true
		case p == 22:
			s.bold = false
			s.dim = false
		case p == 23:
			s.italic = false
		case p == 24:
			s.underline = false
		case p == 27:
			s.reverse = false
		case p >= 30 && p <= 37:
			s.fg = color{mode: colorPalette, index: uint8(p - 30)}
		case p == 38:
			i += s.extendedColor(&s.fg, params[i+1:])
		case p == 39:
			s.fg = color{}
		case p >= 40 && p <= 47:
			s.bg = color{mode: colorPalette, index: uint8(p - 40)}
		case p == 48:
			i += s.extendedColor(&s.bg, params[i+1:])
		case p == 49:
			s.bg = color{}
		case p >= 90 && p <= 97:
			s.fg = color{mode: colorPalette, index: uint8(p - 90 + 8)}
		case p >= 100 && p <= 107:
			s.bg = color{mode: colorPalette, index: uint8(p - 100 + 8)}
		}
	}
}

// extendedColor consumes the arguments of a 38/48 extended color selection
// from rest and returns how many parameters were consumed. Out-of-range
// components clamp to 0-255 instead of erroring.
func (s *sgrState) extendedColor(dst *color, rest []int) int {
	if len(rest) == 0 {
		return 0
	}
	switch rest[0] {
	case 5:
		if len(rest) < 2 {
			return len(rest)
		}
		*dst = color{mode: colorPalette, index: clampByte(rest[1])}
		return 2
	case 2:
		if len(rest) < 4 {
			return len(rest)
		}
		*dst = color{
			mode: colorRGB,
			r:    clampByte(rest[1]),
			g:    clampByte(rest[2]),
			b:    clampByte(rest[3]),
		}
		return 4
	}
	return 1
}

func clampByte(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// serialize renders the state as a canonical SGR parameter string, or "" for
// default. Canonical ordering (attributes, then foreground, then background)
// makes serialization independent of the order SGR codes arrived in.
func (s *sgrState) serialize() string {
	var parts []string
	if s.bold {
		parts = append(parts, "1")
	}
	if s.dim {
		parts = append(parts, "2")
	}
	if s.italic {
		parts = append(parts, "3")
	}
	if s.underline {
		parts = append(parts, "4")
	}
	if s.reverse {
		parts = append(parts, "7")
	}
	if p := serializeColor(s.fg, false); p != "" {
		parts = append(parts, p)
	}
	if p := serializeColor(s.bg, true); p != "" {
		parts = append(parts, p)
	}
	return strings.Join(parts, ";")
}

// serializeColor renders one color as SGR parameters. Palette indexes 0-15
// normalize to the named/bright forms so equal colors compare equal as
// strings.
func serializeColor(c color, background bool) string {
	base := 30
	if background {
		base = 40
	}
	switch c.mode {
	case colorDefault:
		return ""
	case colorPalette:
		switch {
		case c.index < 8:
			return strconv.Itoa(base + int(c.index))
		case c.index < 16:
			return strconv.Itoa(base + 60 + int(c.index-8))
		default:
			return strconv.Itoa(base+8) + ";5;" + strconv.Itoa(int(c.index))
		}
	case colorRGB:
		return strconv.Itoa(base+8) + ";2;" +
			strconv.Itoa(int(c.r)) + ";" + strconv.Itoa(int(c.g)) + ";" + strconv.Itoa(int(c.b))
	}
	return ""
}
