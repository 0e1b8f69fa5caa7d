package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranslatePlainKeys(t *testing.T) {
	// Ctrl+A through Ctrl+Z arrive as control bytes 1-26 and pass through.
	for b := byte(1); b <= 26; b++ {
		out, n, res := translateKey([]byte{b}, false, false)
		assert.Equal(t, keyWrite, res)
		assert.Equal(t, []byte{b}, out)
		assert.Equal(t, 1, n)
	}

	out, n, res := translateKey([]byte("x"), false, false)
	assert.Equal(t, keyWrite, res)
	assert.Equal(t, []byte("x"), out)
	assert.Equal(t, 1, n)

	// DEL passes through.
	out, _, res = translateKey([]byte{0x7f}, false, false)
	assert.Equal(t, keyWrite, res)
	assert.Equal(t, []byte{0x7f}, out)
}

func TestTranslateUTF8(t *testing.T) {
	full := []byte("é")
	out, n, res := translateKey(full, false, false)
	assert.Equal(t, keyWrite, res)
	assert.Equal(t, full, out)
	assert.Equal(t, len(full), n)

	// A split rune waits for its remaining bytes.
	_, n, res = translateKey(full[:1], false, false)
	assert.Equal(t, keyIncomplete, res)
	assert.Zero(t, n)
}

func TestTranslateArrows(t *testing.T) {
	out, n, res := translateKey([]byte("\x1b[A"), false, false)
	assert.Equal(t, keyWrite, res)
	assert.Equal(t, []byte("\x1b[A"), out)
	assert.Equal(t, 3, n)

	// Application cursor keys mode switches to SS3 encoding.
	out, _, res = translateKey([]byte("\x1b[A"), true, false)
	assert.Equal(t, keyWrite, res)
	assert.Equal(t, []byte("\x1bOA"), out)
}

func TestTranslateNavigationKeys(t *testing.T) {
	cases := map[string]string{
		"\x1b[H":  "\x1b[H", // Home
		"\x1b[F":  "\x1b[F", // End
		"\x1b[1~": "\x1b[H",
		"\x1b[4~": "\x1b[F",
		"\x1b[2~": "\x1b[2~", // Insert
		"\x1b[3~": "\x1b[3~", // Delete
		"\x1b[5~": "\x1b[5~", // PageUp
		"\x1b[6~": "\x1b[6~", // PageDown
	}
	for in, want := range cases {
		out, n, res := translateKey([]byte(in), false, false)
		assert.Equal(t, keyWrite, res, "input %q", in)
		assert.Equal(t, []byte(want), out, "input %q", in)
		assert.Equal(t, len(in), n, "input %q", in)
	}
}

func TestTranslateFunctionKeys(t *testing.T) {
	// F1-F4 arrive as SS3.
	for _, in := range []string{"\x1bOP", "\x1bOQ", "\x1bOR", "\x1bOS"} {
		out, _, res := translateKey([]byte(in), false, false)
		assert.Equal(t, keyWrite, res)
		assert.Equal(t, []byte(in), out)
	}
	// F5 and F12 arrive as tilde sequences.
	for _, in := range []string{"\x1b[15~", "\x1b[24~"} {
		out, _, res := translateKey([]byte(in), false, false)
		assert.Equal(t, keyWrite, res)
		assert.Equal(t, []byte(in), out)
	}
}

func TestTranslateLoneEscape(t *testing.T) {
	// A bare Escape is ambiguous until forced.
	_, n, res := translateKey([]byte{0x1b}, false, false)
	assert.Equal(t, keyIncomplete, res)
	assert.Zero(t, n)

	out, n, res := translateKey([]byte{0x1b}, false, true)
	assert.Equal(t, keyEscape, res)
	assert.Equal(t, []byte{0x1b}, out)
	assert.Equal(t, 1, n)

	// Escape followed by a plain byte is a lone Escape keystroke.
	_, n, res = translateKey([]byte{0x1b, 'x'}, false, false)
	assert.Equal(t, keyEscape, res)
	assert.Equal(t, 1, n)
}

func TestTranslateDropsUnmapped(t *testing.T) {
	// An unmapped tilde sequence is consumed whole without output.
	out, n, res := translateKey([]byte("\x1b[99~after"), false, false)
	assert.Equal(t, keyDrop, res)
	assert.Nil(t, out)
	assert.Equal(t, 5, n)

	// Unknown CSI finals are dropped too.
	_, n, res = translateKey([]byte("\x1b[5Z"), false, false)
	assert.Equal(t, keyDrop, res)
	assert.Equal(t, 4, n)
}

func TestTranslateIncompleteSequences(t *testing.T) {
	for _, in := range []string{"\x1b[", "\x1b[1", "\x1bO"} {
		_, n, res := translateKey([]byte(in), false, false)
		assert.Equal(t, keyIncomplete, res, "input %q", in)
		assert.Zero(t, n)
	}
}

func TestIncompleteTail(t *testing.T) {
	assert.Zero(t, incompleteTail([]byte("plain ascii")))
	assert.Zero(t, incompleteTail([]byte("café")))

	full := []byte("é")
	assert.Equal(t, 1, incompleteTail(append([]byte("caf"), full[0])))

	emoji := []byte("😀") // 4 bytes
	assert.Equal(t, 3, incompleteTail(append([]byte("x"), emoji[:3]...)))
}
