package editor

import "strings"

// Position is a 0-based line/column location in buffer text. Column is
// a byte offset within the line.
type Position struct {
	Line, Col int
}

// LineCount returns the number of lines in the text.
// An empty string is considered to have 1 line.
func LineCount(text string) int {
	if text == "" {
		return 1
	}
	return strings.Count(text, "\n") + 1
}

// Line returns the text of the given 0-based line, without its trailing
// newline. Out-of-range lines yield "".
func Line(text string, line int) string {
	lines := strings.Split(text, "\n")
	if line < 0 || line >= len(lines) {
		return ""
	}
	return lines[line]
}

// PositionAt converts a byte offset into a line/column position.
// Offsets are clamped to [0, len(text)].
func PositionAt(text string, offset int) Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(text) {
		offset = len(text)
	}
	line := strings.Count(text[:offset], "\n")
	lineStart := 0
	if idx := strings.LastIndexByte(text[:offset], '\n'); idx >= 0 {
		lineStart = idx + 1
	}
	return Position{Line: line, Col: offset - lineStart}
}

// OffsetAt converts a line/column position back into a byte offset.
// Positions past the end of a line clamp to the line end; lines past
// the end of the text clamp to len(text).
func OffsetAt(text string, pos Position) int {
	if pos.Line < 0 {
		return 0
	}
	lines := strings.Split(text, "\n")
	if pos.Line >= len(lines) {
		return len(text)
	}
	offset := 0
	for i := 0; i < pos.Line; i++ {
		offset += len(lines[i]) + 1
	}
	col := pos.Col
	if col < 0 {
		col = 0
	}
	if col > len(lines[pos.Line]) {
		col = len(lines[pos.Line])
	}
	return offset + col
}

// SurroundingLines returns up to n lines before and after the given
// 0-based line, nearest lines last in before and first in after.
func SurroundingLines(text string, line, n int) (before, after []string) {
	lines := strings.Split(text, "\n")
	if line < 0 || line >= len(lines) || n <= 0 {
		return nil, nil
	}
	start := line - n
	if start < 0 {
		start = 0
	}
	end := line + n
	if end > len(lines)-1 {
		end = len(lines) - 1
	}
	if start < line {
		before = append(before, lines[start:line]...)
	}
	if line < end {
		after = append(after, lines[line+1:end+1]...)
	}
	return before, after
}
