package web

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/plumehq/plume/assist"
	"github.com/plumehq/plume/commands"
	"github.com/plumehq/plume/editor"
	"github.com/plumehq/plume/store"
)

// ErrEditLocked means a quick-edit request is in flight against the
// current document; edits are held until it settles so the captured
// offsets stay valid.
var ErrEditLocked = errors.New("web: quick edit in flight, document locked")

// AssistService is the AI backend the pipelines call. *assist.Client
// implements it.
type AssistService interface {
	assist.Completer
	assist.Rewriter
}

// notifier pushes a server-initiated notification to the session's
// connection.
type notifier func(method string, params any)

// Session is one connected editor surface: an owner working on one
// project. It owns the open buffers, the per-surface selection, and
// the assist pipelines, and projects every state change into
// decoration pushes so the browser never renders from its own guesses.
type Session struct {
	store   *store.Store
	tabs    *editor.TabManager
	ownerID string
	project string
	notify  notifier
	log     *logrus.Entry

	mu            sync.Mutex
	buffers       map[string]*editor.Buffer
	activeFile    string
	quickEditFile string
	selection     editor.Selection
	suggester     *assist.Suggester
	quickEdit     *assist.QuickEdit
	keymap        *assist.Keymap
}

// SessionOption tunes a session's assist pipelines.
type SessionOption func(*sessionConfig)

type sessionConfig struct {
	debounce time.Duration
	timeout  time.Duration
}

// WithDebounce overrides the suggestion quiet period.
func WithDebounce(d time.Duration) SessionOption {
	return func(c *sessionConfig) { c.debounce = d }
}

// WithAssistTimeout bounds assist requests.
func WithAssistTimeout(d time.Duration) SessionOption {
	return func(c *sessionConfig) { c.timeout = d }
}

// NewSession creates a session for ownerID on projectID. The assist
// service is shared; pipelines are per-session so one user's typing
// never cancels another's requests.
func NewSession(st *store.Store, tabs *editor.TabManager, svc AssistService, ownerID, projectID string, notify notifier, opts ...SessionOption) *Session {
	s := &Session{
		store:   st,
		tabs:    tabs,
		ownerID: ownerID,
		project: projectID,
		notify:  notify,
		log: logrus.WithFields(logrus.Fields{
			"owner":   ownerID,
			"project": projectID,
		}),
		buffers: make(map[string]*editor.Buffer),
		keymap:  assist.DefaultKeymap(),
	}

	var cfg sessionConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	sugOpts := []assist.SuggesterOption{assist.WithOnChange(s.pushDecorations)}
	qeOpts := []assist.QuickEditOption{
		assist.WithQuickEditOnChange(s.pushDecorations),
		assist.WithOnApply(s.applyQuickEdit),
	}
	if cfg.debounce > 0 {
		sugOpts = append(sugOpts, assist.WithDebounce(cfg.debounce))
	}
	if cfg.timeout > 0 {
		sugOpts = append(sugOpts, assist.WithTimeout(cfg.timeout))
		qeOpts = append(qeOpts, assist.WithQuickEditTimeout(cfg.timeout))
	}

	s.suggester = assist.NewSuggester(svc, sugOpts...)
	s.quickEdit = assist.NewQuickEdit(svc, qeOpts...)
	return s
}

// Close stops the pipelines. In-flight requests are abandoned.
func (s *Session) Close() {
	s.suggester.Stop()
	s.quickEdit.Cancel()
}

// OpenFile loads a file into a buffer (if not already open) and opens
// its tab, preview unless pinned. Returns the buffer text and the
// resulting tab state.
func (s *Session) OpenFile(fileID string, pinned bool) (string, editor.TabState, error) {
	s.mu.Lock()
	buf, ok := s.buffers[fileID]
	if !ok {
		n, err := s.store.Node(s.ownerID, s.project, fileID)
		if err != nil {
			s.mu.Unlock()
			return "", editor.TabState{}, err
		}
		if n.IsFolder {
			s.mu.Unlock()
			return "", editor.TabState{}, fmt.Errorf("web: %s is a folder", fileID)
		}
		body, err := s.store.Content(s.ownerID, s.project, fileID)
		if err != nil {
			s.mu.Unlock()
			return "", editor.TabState{}, err
		}
		buf = editor.NewBuffer(fileID, n.Name, body)
		s.buffers[fileID] = buf
	}
	s.activeFile = fileID
	s.selection = editor.Caret(0)
	name, body := buf.Name(), buf.Text()
	tabs := s.tabs.OpenFile(s.project, fileID, pinned)
	s.mu.Unlock()

	s.suggester.NoteEvent(name, body, 0)
	s.pushDecorations()
	return body, tabs, nil
}

// CloseTab closes a tab. A dirty buffer stays in memory so reopening
// the tab does not lose unsaved edits.
func (s *Session) CloseTab(fileID string) editor.TabState {
	s.mu.Lock()
	defer s.mu.Unlock()

	tabs := s.tabs.CloseTab(s.project, fileID)
	if buf, ok := s.buffers[fileID]; ok && !buf.Dirty() {
		delete(s.buffers, fileID)
	}
	return tabs
}

// CloseAllTabs closes every tab, dropping clean buffers.
func (s *Session) CloseAllTabs() editor.TabState {
	s.mu.Lock()
	defer s.mu.Unlock()

	tabs := s.tabs.CloseAllTabs(s.project)
	for id, buf := range s.buffers {
		if !buf.Dirty() {
			delete(s.buffers, id)
		}
	}
	return tabs
}

// SetActiveTab activates an open tab; unknown ids leave state as is.
func (s *Session) SetActiveTab(fileID string) editor.TabState {
	return s.tabs.SetActiveTab(s.project, fileID)
}

// Tabs returns the current tab state.
func (s *Session) Tabs() editor.TabState {
	return s.tabs.TabState(s.project)
}

// Edit replaces a range of the active buffer and restarts the
// suggestion cycle at the resulting caret. Rejected while a quick-edit
// request is in flight.
func (s *Session) Edit(fileID string, r editor.Range, text string) (string, editor.Selection, error) {
	if s.quickEdit.Locked() {
		return "", editor.Selection{}, ErrEditLocked
	}

	s.mu.Lock()
	buf, ok := s.buffers[fileID]
	if !ok {
		s.mu.Unlock()
		return "", editor.Selection{}, store.ErrNotFound
	}
	s.activeFile = fileID
	cursor := buf.ReplaceRange(r, text)
	s.selection = editor.Caret(cursor)
	name, body := buf.Name(), buf.Text()
	s.mu.Unlock()

	s.suggester.NoteEvent(name, body, cursor)
	s.quickEdit.NoteSelection(editor.Caret(cursor))
	s.pushDecorations()
	return body, editor.Caret(cursor), nil
}

// SetSelection records the surface's selection and feeds both
// pipelines: the suggester restarts its debounce cycle, the quick-edit
// session tracks or collapses.
func (s *Session) SetSelection(fileID string, sel editor.Selection) error {
	s.mu.Lock()
	buf, ok := s.buffers[fileID]
	if !ok {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	s.activeFile = fileID
	s.selection = sel
	name, body := buf.Name(), buf.Text()
	s.mu.Unlock()

	s.suggester.NoteEvent(name, body, sel.Cursor)
	s.quickEdit.NoteSelection(sel)
	s.pushDecorations()
	return nil
}

// KeyEvent runs a key chord through the assist keymap. Returns the
// caret after the event and whether the key was consumed; unconsumed
// keys fall through to the browser's default editor behavior.
// Accepting a suggestion mutates the document, so like Edit it is
// rejected while a quick-edit request is in flight.
func (s *Session) KeyEvent(fileID, key string) (editor.Selection, bool, error) {
	s.mu.Lock()
	buf, ok := s.buffers[fileID]
	if !ok {
		s.mu.Unlock()
		return editor.Selection{}, false, store.ErrNotFound
	}
	s.activeFile = fileID
	sel := s.selection
	if s.keymap.Resolve(key) == assist.ActionAccept && s.quickEdit.Locked() {
		s.mu.Unlock()
		return sel, false, ErrEditLocked
	}

	after, handled := s.keymap.HandleKey(key, buf, sel, s.suggester, s.quickEdit)
	if !handled {
		s.mu.Unlock()
		return sel, false, nil
	}
	s.selection = after
	name, body := buf.Name(), buf.Text()
	s.mu.Unlock()

	if after != sel {
		// An accept changed the document; restart the suggestion cycle
		// and tell the view.
		s.suggester.NoteEvent(name, body, after.Cursor)
		s.notify("document", map[string]any{"fileId": fileID, "text": body})
	}
	s.pushDecorations()
	return after, true, nil
}

// SubmitQuickEdit submits the instruction against the active buffer's
// current text.
func (s *Session) SubmitQuickEdit(fileID, instruction string) (bool, error) {
	s.mu.Lock()
	buf, ok := s.buffers[fileID]
	if !ok {
		s.mu.Unlock()
		return false, store.ErrNotFound
	}
	text := buf.Text()
	s.activeFile = fileID
	// Bind the apply target now so switching files while the request
	// is in flight cannot redirect the rewrite.
	s.quickEditFile = fileID
	s.mu.Unlock()

	started := s.quickEdit.Submit(instruction, text)
	s.pushDecorations()
	return started, nil
}

// Save writes a buffer back to the store and marks it clean.
func (s *Session) Save(fileID string) error {
	s.mu.Lock()
	buf, ok := s.buffers[fileID]
	if !ok {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	body := buf.Text()
	s.mu.Unlock()

	if err := s.store.SetContent(s.ownerID, s.project, fileID, body); err != nil {
		return err
	}

	s.mu.Lock()
	buf.MarkSaved()
	s.mu.Unlock()
	return nil
}

// Dirty reports whether a buffer has unsaved edits.
func (s *Session) Dirty(fileID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf, ok := s.buffers[fileID]
	return ok && buf.Dirty()
}

// Command executes a palette command against a file. The first return
// reports whether the id exists, the second whether it ran.
func (s *Session) Command(fileID, id string) (found, done bool) {
	reg := commands.NewRegistry(commands.All(commands.Actions{
		SaveFile:     func() bool { return s.Save(fileID) == nil },
		CloseTab:     func() bool { s.CloseTab(fileID); return true },
		CloseAllTabs: func() bool { s.CloseAllTabs(); return true },
		Undo:         func() bool { return s.undoRedo(fileID, (*editor.Buffer).Undo) },
		Redo:         func() bool { return s.undoRedo(fileID, (*editor.Buffer).Redo) },
		QuickOpen:    s.quickOpen,
		AcceptSuggest: func() bool {
			_, handled, err := s.KeyEvent(fileID, "Tab")
			return err == nil && handled
		},
		TriggerQuickEd: func() bool {
			_, handled, err := s.KeyEvent(fileID, "Ctrl+K")
			return err == nil && handled
		},
		CancelQuickEdit: func() bool {
			_, handled, err := s.KeyEvent(fileID, "Escape")
			return err == nil && handled
		},
	}))
	return reg.Execute(id)
}

// quickOpen tells the view to raise its file picker. The picker itself
// runs on the searchFiles RPC as the user types; the command only has
// to surface it.
func (s *Session) quickOpen() bool {
	s.notify("quickOpen", map[string]any{"project": s.project})
	return true
}

// undoRedo runs an undo-stack operation, rejected while a quick edit
// is in flight for the same reason plain edits are.
func (s *Session) undoRedo(fileID string, op func(*editor.Buffer) bool) bool {
	if s.quickEdit.Locked() {
		return false
	}
	s.mu.Lock()
	buf, ok := s.buffers[fileID]
	if !ok {
		s.mu.Unlock()
		return false
	}
	moved := op(buf)
	body := buf.Text()
	s.mu.Unlock()

	if moved {
		s.notify("document", map[string]any{"fileId": fileID, "text": body})
		s.pushDecorations()
	}
	return moved
}

// applyQuickEdit commits a settled rewrite to the buffer it was
// captured from and pushes the new document.
func (s *Session) applyQuickEdit(e assist.Edit) {
	s.mu.Lock()
	fileID := s.quickEditFile
	buf, ok := s.buffers[fileID]
	if !ok {
		s.mu.Unlock()
		s.log.Warn("quick edit settled for a closed buffer")
		return
	}
	cursor := buf.ReplaceRange(editor.Range{Start: e.Start, End: e.End}, e.Text)
	s.selection = editor.Caret(cursor)
	body := buf.Text()
	s.mu.Unlock()

	s.notify("document", map[string]any{"fileId": fileID, "text": body})
	s.pushDecorations()
}

// pushDecorations projects the pipelines into decorations and sends
// them. Safe to call from pipeline goroutines.
func (s *Session) pushDecorations() {
	s.mu.Lock()
	st := assist.RenderState{
		Suggestion:     s.suggester.Suggestion(),
		Waiting:        s.suggester.Waiting(),
		Selection:      s.selection,
		QuickEditPhase: s.quickEdit.Phase(),
		QuickEditRange: s.quickEdit.Selection(),
	}
	s.mu.Unlock()

	s.notify("decorations", map[string]any{
		"decorations": assist.Decorations(st),
	})
}
