package session

import "unicode/utf8"

// keyResult classifies one decoded keystroke.
type keyResult int

const (
	// keyIncomplete means the buffer may be a sequence prefix; wait for
	// more bytes.
	keyIncomplete keyResult = iota
	// keyWrite carries translated bytes for the session's input stream.
	keyWrite
	// keyEscape is a lone Escape press, the detach-trigger candidate.
	keyEscape
	// keyDrop consumed an unmapped sequence; nothing is written, the
	// stream stays intact.
	keyDrop
)

// translateKey decodes one keystroke from the front of buf and returns the
// bytes to write to the pty plus how much input it consumed. appCursor
// selects the DECCKM encoding for arrows and Home/End. force resolves a lone
// leading Escape as a keystroke instead of waiting for sequence bytes.
func translateKey(buf []byte, appCursor, force bool) ([]byte, int, keyResult) {
	if len(buf) == 0 {
		return nil, 0, keyIncomplete
	}
	if buf[0] != 0x1b {
		return translatePlain(buf)
	}
	if len(buf) == 1 {
		if force {
			return []byte{0x1b}, 1, keyEscape
		}
		return nil, 0, keyIncomplete
	}
	switch buf[1] {
	case '[':
		return translateCSI(buf, appCursor)
	case 'O':
		return translateSS3(buf, appCursor)
	default:
		// ESC followed by a non-sequence byte: a lone Escape press; the
		// next byte is decoded on its own.
		return []byte{0x1b}, 1, keyEscape
	}
}

// translatePlain handles non-escape input: control bytes (Ctrl+A-Z arrive as
// 1-26 in raw mode), DEL, and literal characters including multi-byte runes.
func translatePlain(buf []byte) ([]byte, int, keyResult) {
	b := buf[0]
	if b < 0x20 || b == 0x7f {
		return []byte{b}, 1, keyWrite
	}
	if b < utf8.RuneSelf {
		return []byte{b}, 1, keyWrite
	}
	if !utf8.FullRune(buf) {
		if len(buf) >= utf8.UTFMax {
			// Not a valid rune at any length; drop one byte rather
			// than corrupt the stream.
			return nil, 1, keyDrop
		}
		return nil, 0, keyIncomplete
	}
	_, size := utf8.DecodeRune(buf)
	return buf[:size], size, keyWrite
}

// translateCSI handles ESC [ sequences: arrows, Home/End, and the tilde
// family (Insert/Delete/PageUp/PageDown/F5-F12). Unmapped sequences are
// consumed whole and dropped.
func translateCSI(buf []byte, appCursor bool) ([]byte, int, keyResult) {
	// Find the final byte (0x40-0x7e) after any parameter bytes.
	i := 2
	for i < len(buf) && (buf[i] >= '0' && buf[i] <= '9' || buf[i] == ';') {
		i++
	}
	if i >= len(buf) {
		return nil, 0, keyIncomplete
	}
	final := buf[i]
	consumed := i + 1
	if final < 0x40 || final > 0x7e {
		return nil, consumed, keyDrop
	}
	switch final {
	case 'A', 'B', 'C', 'D':
		return cursorKey(final, appCursor), consumed, keyWrite
	case 'H':
		return cursorKey('H', appCursor), consumed, keyWrite
	case 'F':
		return cursorKey('F', appCursor), consumed, keyWrite
	case '~':
		switch string(buf[2:i]) {
		case "1", "7":
			return cursorKey('H', appCursor), consumed, keyWrite
		case "4", "8":
			return cursorKey('F', appCursor), consumed, keyWrite
		case "2", "3", "5", "6",
			"15", "17", "18", "19", "20", "21", "23", "24":
			return buf[:consumed], consumed, keyWrite
		}
		return nil, consumed, keyDrop
	}
	return nil, consumed, keyDrop
}

// translateSS3 handles ESC O sequences: F1-F4 and application-mode arrows.
func translateSS3(buf []byte, appCursor bool) ([]byte, int, keyResult) {
	if len(buf) < 3 {
		return nil, 0, keyIncomplete
	}
	switch buf[2] {
	case 'P', 'Q', 'R', 'S':
		return buf[:3], 3, keyWrite
	case 'A', 'B', 'C', 'D', 'H', 'F':
		return cursorKey(buf[2], appCursor), 3, keyWrite
	}
	return nil, 3, keyDrop
}

// cursorKey encodes a cursor movement for the pty, honoring the
// application cursor keys mode the child requested.
func cursorKey(final byte, appCursor bool) []byte {
	if appCursor {
		return []byte{0x1b, 'O', final}
	}
	return []byte{0x1b, '[', final}
}
