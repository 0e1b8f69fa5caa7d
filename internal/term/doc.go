// Package term implements a headless VT/ANSI terminal emulator.
//
// The ScreenBuffer consumes an unbounded character stream containing control
// and escape sequences and maintains a deterministic 2D cell grid. Unlike naive
// line-splitting, it renders cursor-addressed redraws, full-screen repaints,
// and colored output correctly, which is required for capturing the output of
// interactive full-screen programs.
//
// Features:
//   - Cursor addressing, scroll regions (DECSTBM), insert/delete line and char
//   - SGR styling: named, bright, 256-palette, and 24-bit truecolor
//   - Alternate screen buffer with snapshot/restore
//   - Bounded scrollback of rows scrolled off a full-screen grid
//   - Incremental feeding: parser state survives across Feed calls
//
// Rendering:
//   - Content re-emits rows as text with minimal SGR runs; consecutive cells
//     with identical style collapse into one run, and any open style is closed
//     at end of line.
//
// The emulator deliberately covers the escape subset an interactive CLI tool
// emits; mouse reporting, Sixel, and other xterm extensions are ignored in a
// way that never desynchronizes the parser.
package term
