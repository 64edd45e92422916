// Package commands is the palette command registry: stable ids the
// browser's command palette executes against a session.
package commands

// Command is one palette entry. OnExecute returns false when the
// command's precondition is not met (nothing to undo, no suggestion
// to accept) so the palette can report it.
type Command struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Shortcut string `json:"shortcut,omitempty"`
	Category string `json:"category"`

	OnExecute func() bool `json:"-"`
}

// Actions holds callbacks for all editor commands.
type Actions struct {
	SaveFile        func() bool
	CloseTab        func() bool
	CloseAllTabs    func() bool
	Undo            func() bool
	Redo            func() bool
	AcceptSuggest   func() bool
	TriggerQuickEd  func() bool
	CancelQuickEdit func() bool
	QuickOpen       func() bool
}

// All returns the full command list for the palette.
func All(a Actions) []Command {
	return []Command{
		{ID: "file.save", Label: "Save File", Shortcut: "Ctrl+S", Category: "File", OnExecute: a.SaveFile},
		{ID: "tab.close", Label: "Close Tab", Shortcut: "Ctrl+W", Category: "File", OnExecute: a.CloseTab},
		{ID: "tab.closeAll", Label: "Close All Tabs", Category: "File", OnExecute: a.CloseAllTabs},
		{ID: "file.quickOpen", Label: "Quick Open", Shortcut: "Ctrl+P", Category: "File", OnExecute: a.QuickOpen},
		{ID: "edit.undo", Label: "Undo", Shortcut: "Ctrl+Z", Category: "Edit", OnExecute: a.Undo},
		{ID: "edit.redo", Label: "Redo", Shortcut: "Ctrl+Shift+Z", Category: "Edit", OnExecute: a.Redo},
		{ID: "assist.accept", Label: "Accept Suggestion", Shortcut: "Tab", Category: "Assist", OnExecute: a.AcceptSuggest},
		{ID: "assist.quickEdit", Label: "Quick Edit Selection", Shortcut: "Ctrl+K", Category: "Assist", OnExecute: a.TriggerQuickEd},
		{ID: "assist.cancel", Label: "Cancel Quick Edit", Shortcut: "Escape", Category: "Assist", OnExecute: a.CancelQuickEdit},
	}
}

// Registry resolves command ids to commands.
type Registry struct {
	byID  map[string]Command
	order []string
}

// NewRegistry builds a registry from a command list.
func NewRegistry(cmds []Command) *Registry {
	r := &Registry{byID: make(map[string]Command, len(cmds))}
	for _, cmd := range cmds {
		if _, dup := r.byID[cmd.ID]; !dup {
			r.order = append(r.order, cmd.ID)
		}
		r.byID[cmd.ID] = cmd
	}
	return r
}

// Commands returns all commands in registration order.
func (r *Registry) Commands() []Command {
	out := make([]Command, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Execute runs a command by id. The first return reports whether the
// id exists, the second whether the command's precondition was met.
func (r *Registry) Execute(id string) (found, done bool) {
	cmd, ok := r.byID[id]
	if !ok || cmd.OnExecute == nil {
		return ok, false
	}
	return true, cmd.OnExecute()
}
