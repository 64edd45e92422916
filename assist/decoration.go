package assist

import "github.com/plumehq/plume/editor"

// DecorationKind identifies what the view should draw.
type DecorationKind string

const (
	// KindGhostText is a non-interactive, de-emphasized inline span
	// rendered immediately after the cursor.
	KindGhostText DecorationKind = "ghost-text"
	// KindQuickEditWidget is the quick-edit instruction input anchored
	// to the session's selection range.
	KindQuickEditWidget DecorationKind = "quick-edit"
)

// Decoration is one view-layer instruction. Start/End are byte offsets
// into the current document; ghost text has Start == End (an anchor,
// not a range). Busy marks a quick-edit widget whose submit affordance
// is disabled while a request is in flight.
type Decoration struct {
	Kind  DecorationKind `json:"kind"`
	Start int            `json:"start"`
	End   int            `json:"end"`
	Text  string         `json:"text,omitempty"`
	Busy  bool           `json:"busy,omitempty"`
}

// RenderState is everything the decoration projection reads. The owner
// rebuilds it and calls Decorations after every document, selection, or
// pipeline state change; the output is a pure function of this input,
// so the rendered UI can never desync from the underlying state.
type RenderState struct {
	Suggestion     string
	Waiting        bool
	Selection      editor.Selection
	QuickEditPhase QuickEditPhase
	QuickEditRange editor.Range
}

// Decorations projects pipeline state into view decorations.
//
// Ghost text renders only once the suggestion cycle has settled with a
// non-empty result; while waiting, nothing is shown so a stale
// suggestion can never flash during the debounce gap.
func Decorations(st RenderState) []Decoration {
	var decs []Decoration

	if !st.Waiting && st.Suggestion != "" {
		decs = append(decs, Decoration{
			Kind:  KindGhostText,
			Start: st.Selection.Cursor,
			End:   st.Selection.Cursor,
			Text:  st.Suggestion,
		})
	}

	if st.QuickEditPhase != PhaseInactive {
		decs = append(decs, Decoration{
			Kind:  KindQuickEditWidget,
			Start: st.QuickEditRange.Start,
			End:   st.QuickEditRange.End,
			Busy:  st.QuickEditPhase == PhaseSubmitting,
		})
	}

	return decs
}
