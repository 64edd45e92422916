package assist

import (
	"reflect"
	"testing"

	"github.com/plumehq/plume/editor"
)

func TestBuildContextSplitsCursorLine(t *testing.T) {
	text := "const x = 1;\nconsole.log(x)"
	cursor := len("const x = 1;") // end of line 1, before the newline

	payload, ok := BuildContext("app.js", text, cursor)
	if !ok {
		t.Fatal("BuildContext should succeed")
	}
	if payload.FileName != "app.js" {
		t.Errorf("FileName = %q, want %q", payload.FileName, "app.js")
	}
	if payload.CurrentLine != "const x = 1;" {
		t.Errorf("CurrentLine = %q", payload.CurrentLine)
	}
	if payload.Prefix != "const x = 1;" {
		t.Errorf("Prefix = %q", payload.Prefix)
	}
	if payload.Suffix != "" {
		t.Errorf("Suffix = %q, want empty", payload.Suffix)
	}
	if payload.LineNumber != 1 {
		t.Errorf("LineNumber = %d, want 1", payload.LineNumber)
	}
	if !reflect.DeepEqual(payload.NextLines, []string{"console.log(x)"}) {
		t.Errorf("NextLines = %v", payload.NextLines)
	}
	if payload.Text != text {
		t.Errorf("Text = %q, want full document", payload.Text)
	}
}

func TestBuildContextMidLine(t *testing.T) {
	text := "alpha\nbravo charlie\ndelta"
	cursor := OffsetOf(t, text, 1, 5) // between "bravo" and " charlie"

	payload, ok := BuildContext("f.txt", text, cursor)
	if !ok {
		t.Fatal("BuildContext should succeed")
	}
	if payload.Prefix != "bravo" {
		t.Errorf("Prefix = %q, want %q", payload.Prefix, "bravo")
	}
	if payload.Suffix != " charlie" {
		t.Errorf("Suffix = %q, want %q", payload.Suffix, " charlie")
	}
	if payload.LineNumber != 2 {
		t.Errorf("LineNumber = %d, want 2", payload.LineNumber)
	}
	if !reflect.DeepEqual(payload.PrevLines, []string{"alpha"}) {
		t.Errorf("PrevLines = %v", payload.PrevLines)
	}
}

func TestBuildContextWindowCapped(t *testing.T) {
	text := "0\n1\n2\n3\n4\n5\n6\n7\n8\n9\n10\n11\n12"
	cursor := OffsetOf(t, text, 6, 0)

	payload, ok := BuildContext("f.txt", text, cursor)
	if !ok {
		t.Fatal("BuildContext should succeed")
	}
	if !reflect.DeepEqual(payload.PrevLines, []string{"1", "2", "3", "4", "5"}) {
		t.Errorf("PrevLines = %v", payload.PrevLines)
	}
	if !reflect.DeepEqual(payload.NextLines, []string{"7", "8", "9", "10", "11"}) {
		t.Errorf("NextLines = %v", payload.NextLines)
	}
}

func TestBuildContextEmptyDocument(t *testing.T) {
	if _, ok := BuildContext("f.txt", "", 0); ok {
		t.Error("empty document should not build a context")
	}
	if _, ok := BuildContext("f.txt", "  \n\t\n", 3); ok {
		t.Error("whitespace-only document should not build a context")
	}
}

// OffsetOf converts a line/col pair to a byte offset for test setup.
func OffsetOf(t *testing.T, text string, line, col int) int {
	t.Helper()
	return editor.OffsetAt(text, editor.Position{Line: line, Col: col})
}
