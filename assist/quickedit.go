package assist

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/plumehq/plume/editor"
)

// QuickEditRequest carries a selection-scoped rewrite request: the
// selected code, the full document it came from, the user's
// natural-language instruction, and any documentation scraped from
// URLs mentioned in the instruction.
type QuickEditRequest struct {
	Selected    string       `json:"selectedCode"`
	Text        string       `json:"text"`
	Instruction string       `json:"instruction"`
	Docs        []ScrapedDoc `json:"documentation,omitempty"`
}

// Rewriter turns a quick-edit request into replacement code.
// Implementations must honor context cancellation.
type Rewriter interface {
	Rewrite(ctx context.Context, req QuickEditRequest) (string, error)
}

// RewriterFunc adapts a function to the Rewriter interface.
type RewriterFunc func(ctx context.Context, req QuickEditRequest) (string, error)

func (f RewriterFunc) Rewrite(ctx context.Context, req QuickEditRequest) (string, error) {
	return f(ctx, req)
}

// Edit is a resolved quick-edit result: replace [Start, End) with Text.
type Edit struct {
	Start, End int
	Text       string
}

// QuickEditPhase enumerates the quick-edit session states.
type QuickEditPhase int

const (
	// PhaseInactive means no quick-edit session exists.
	PhaseInactive QuickEditPhase = iota
	// PhaseAwaiting means a session is open and waiting for an
	// instruction.
	PhaseAwaiting
	// PhaseSubmitting means a rewrite request is in flight.
	PhaseSubmitting
)

// QuickEdit is the selection-scoped rewrite pipeline for one editor
// surface. A session opens on an explicit trigger over a non-empty
// selection, collapses automatically when the selection empties, and
// submits at most one cancellable request at a time. While a request
// is in flight the owning surface must hold document edits so the
// captured offsets stay valid; QuickEdit reports that window through
// Locked.
type QuickEdit struct {
	rewriter Rewriter
	timeout  time.Duration
	onChange func()
	onApply  func(Edit)

	mu        sync.Mutex
	phase     QuickEditPhase
	selection editor.Range
	cancel    context.CancelFunc
	reqID     string
}

// QuickEditOption configures a QuickEdit pipeline.
type QuickEditOption func(*QuickEdit)

// WithQuickEditTimeout bounds how long a rewrite request may run.
func WithQuickEditTimeout(d time.Duration) QuickEditOption {
	return func(q *QuickEdit) { q.timeout = d }
}

// WithQuickEditOnChange registers a callback fired after asynchronous
// state transitions so the render layer can recompute decorations.
func WithQuickEditOnChange(fn func()) QuickEditOption {
	return func(q *QuickEdit) { q.onChange = fn }
}

// WithOnApply registers the callback that commits a successful rewrite
// to the text buffer.
func WithOnApply(fn func(Edit)) QuickEditOption {
	return func(q *QuickEdit) { q.onApply = fn }
}

// NewQuickEdit creates a quick-edit pipeline backed by the given
// rewriter.
func NewQuickEdit(rewriter Rewriter, opts ...QuickEditOption) *QuickEdit {
	q := &QuickEdit{
		rewriter: rewriter,
		timeout:  defaultTimeout,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Phase returns the current session state.
func (q *QuickEdit) Phase() QuickEditPhase {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.phase
}

// Selection returns the range the session is bound to.
func (q *QuickEdit) Selection() editor.Range {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.selection
}

// Locked reports whether document edits must be held off: a rewrite is
// in flight against captured offsets.
func (q *QuickEdit) Locked() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.phase == PhaseSubmitting
}

// Trigger opens a session over the given selection. Returns false
// (unhandled, defer to default key behavior) when the selection is
// empty or a session already exists.
func (q *QuickEdit) Trigger(sel editor.Selection) bool {
	if !sel.Active() {
		return false
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.phase != PhaseInactive {
		return false
	}
	q.phase = PhaseAwaiting
	q.selection = sel.Range()
	return true
}

// NoteSelection tracks selection changes. An open session whose
// selection collapses to empty deactivates automatically, so the input
// UI can never orphan itself. A selection change during submission is
// ignored; the surface holds edits for that window.
func (q *QuickEdit) NoteSelection(sel editor.Selection) {
	q.mu.Lock()
	defer q.mu.Unlock()
	switch q.phase {
	case PhaseAwaiting:
		if !sel.Active() {
			q.phase = PhaseInactive
			q.selection = editor.Range{}
			return
		}
		q.selection = sel.Range()
	default:
	}
}

// Submit issues the rewrite request. The selected text and the full
// document are captured now, not at trigger time, so edits made while
// the instruction was being typed are respected. Returns false when
// there is nothing to submit: blank instruction, no open session, or a
// request already in flight.
func (q *QuickEdit) Submit(instruction, text string) bool {
	if strings.TrimSpace(instruction) == "" {
		return false
	}
	q.mu.Lock()
	if q.phase != PhaseAwaiting {
		q.mu.Unlock()
		return false
	}
	sel := q.selection
	if sel.Start < 0 {
		sel.Start = 0
	}
	if sel.End > len(text) {
		sel.End = len(text)
	}
	if sel.Start >= sel.End {
		q.mu.Unlock()
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	id := ulid.Make().String()
	q.phase = PhaseSubmitting
	q.selection = sel
	q.cancel = cancel
	q.reqID = id
	q.mu.Unlock()

	req := QuickEditRequest{
		Selected:    text[sel.Start:sel.End],
		Text:        text,
		Instruction: instruction,
	}
	go q.run(ctx, cancel, id, sel, req)
	return true
}

func (q *QuickEdit) run(ctx context.Context, cancel context.CancelFunc, id string, sel editor.Range, req QuickEditRequest) {
	result, err := q.rewriter.Rewrite(ctx, req)
	cancel()
	if errors.Is(err, context.Canceled) {
		return
	}

	q.mu.Lock()
	if q.reqID != id {
		q.mu.Unlock()
		return
	}
	q.cancel = nil
	q.reqID = ""

	if err != nil || result == "" {
		// Failure or empty result: re-arm the submit affordance and keep
		// the session open for a retry.
		q.phase = PhaseAwaiting
		fn := q.onChange
		q.mu.Unlock()
		if fn != nil {
			fn()
		}
		return
	}

	q.phase = PhaseInactive
	q.selection = editor.Range{}
	apply := q.onApply
	fn := q.onChange
	q.mu.Unlock()

	if apply != nil {
		apply(Edit{Start: sel.Start, End: sel.End, Text: result})
	}
	if fn != nil {
		fn()
	}
}

// Cancel aborts any in-flight request and discards the session.
func (q *QuickEdit) Cancel() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.cancel != nil {
		q.cancel()
		q.cancel = nil
	}
	q.reqID = ""
	q.phase = PhaseInactive
	q.selection = editor.Range{}
}
