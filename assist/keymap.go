package assist

import "github.com/plumehq/plume/editor"

// Action is a key-bound assist operation.
type Action int

const (
	// ActionNone means the key is not bound.
	ActionNone Action = iota
	// ActionAccept inserts the current suggestion at the cursor.
	ActionAccept
	// ActionQuickEdit opens a quick-edit session over the selection.
	ActionQuickEdit
	// ActionCancel dismisses the quick-edit session.
	ActionCancel
)

// Keymap maps key chords ("Tab", "Escape", "Ctrl+K") to assist actions.
type Keymap struct {
	bindings map[string]Action
}

// DefaultKeymap returns the standard bindings: Tab accepts a
// suggestion, Ctrl+K opens quick edit, Escape cancels it.
func DefaultKeymap() *Keymap {
	return &Keymap{bindings: map[string]Action{
		"Tab":    ActionAccept,
		"Ctrl+K": ActionQuickEdit,
		"Escape": ActionCancel,
	}}
}

// Bind attaches a key chord to an action, replacing any previous
// binding for that chord.
func (k *Keymap) Bind(key string, action Action) {
	k.bindings[key] = action
}

// Resolve returns the action bound to a key chord.
func (k *Keymap) Resolve(key string) Action {
	return k.bindings[key]
}

// HandleKey runs the key chord against the pipelines and the buffer.
// It returns the caret position after the event and whether the key
// was consumed. An unconsumed key (precondition not met: no suggestion
// to accept, empty selection for quick edit, no session to cancel)
// must fall through to the host editor's default behavior so plain
// tabbing and escaping keep working.
func (k *Keymap) HandleKey(key string, buf *editor.Buffer, sel editor.Selection, sug *Suggester, qe *QuickEdit) (editor.Selection, bool) {
	switch k.Resolve(key) {
	case ActionAccept:
		text, ok := sug.Accept()
		if !ok {
			return sel, false
		}
		end := buf.Insert(sel.Cursor, text)
		return editor.Caret(end), true

	case ActionQuickEdit:
		if !qe.Trigger(sel) {
			return sel, false
		}
		return sel, true

	case ActionCancel:
		if qe.Phase() == PhaseInactive {
			return sel, false
		}
		qe.Cancel()
		return sel, true
	}
	return sel, false
}
