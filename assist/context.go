// Package assist implements the inline AI assistance pipelines: the
// debounced, cancellable ghost-text suggestion fetcher, the
// selection-scoped quick-edit session, the decoration projection the
// view renders from, and the keybinding layer that mediates between
// the pipelines and the text buffer.
package assist

import (
	"strings"

	"github.com/plumehq/plume/editor"
)

// surrounding lines included on each side of the cursor line.
const contextLines = 5

// Context is the payload sent to the completion endpoint: the cursor
// line split at the cursor column plus a bounded window of surrounding
// lines. LineNumber is 1-based.
type Context struct {
	FileName    string   `json:"fileName"`
	Text        string   `json:"text"`
	CurrentLine string   `json:"currentLine"`
	Prefix      string   `json:"textBeforeCursor"`
	Suffix      string   `json:"textAfterCursor"`
	PrevLines   []string `json:"previousLines,omitempty"`
	NextLines   []string `json:"nextLines,omitempty"`
	LineNumber  int      `json:"lineNumber"`
}

// BuildContext assembles the completion payload for a cursor offset in
// text. Returns ok=false when the document is empty or whitespace-only,
// in which case no request should be issued.
func BuildContext(fileName, text string, cursor int) (Context, bool) {
	if strings.TrimSpace(text) == "" {
		return Context{}, false
	}

	pos := editor.PositionAt(text, cursor)
	line := editor.Line(text, pos.Line)
	if pos.Col > len(line) {
		pos.Col = len(line)
	}
	before, after := editor.SurroundingLines(text, pos.Line, contextLines)

	return Context{
		FileName:    fileName,
		Text:        text,
		CurrentLine: line,
		Prefix:      line[:pos.Col],
		Suffix:      line[pos.Col:],
		PrevLines:   before,
		NextLines:   after,
		LineNumber:  pos.Line + 1,
	}, true
}
