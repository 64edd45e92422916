package assist

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Completer produces a single completion string for a cursor context.
// An empty result means "no suggestion". Implementations must honor
// context cancellation.
type Completer interface {
	Complete(ctx context.Context, req Context) (string, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, req Context) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, req Context) (string, error) {
	return f(ctx, req)
}

const (
	defaultDebounce = 300 * time.Millisecond
	defaultTimeout  = 30 * time.Second
)

// Suggester is the ghost-text pipeline for one editor surface. Each
// qualifying event (document change, cursor move) restarts a debounce
// timer and aborts any in-flight request; after the quiet period a
// single cancellable request is issued. While a cycle is pending the
// waiting flag suppresses rendering of the now-stale suggestion.
//
// This state is per-editor-instance: mount one Suggester per editor
// surface, never share one across surfaces.
type Suggester struct {
	completer Completer
	debounce  time.Duration
	timeout   time.Duration
	onChange  func()

	mu         sync.Mutex
	timer      *time.Timer
	cancel     context.CancelFunc
	reqID      string
	waiting    bool
	suggestion string
}

// SuggesterOption configures a Suggester.
type SuggesterOption func(*Suggester)

// WithDebounce overrides the quiet period before a fetch is issued.
func WithDebounce(d time.Duration) SuggesterOption {
	return func(s *Suggester) { s.debounce = d }
}

// WithTimeout bounds how long a single completion request may run.
func WithTimeout(d time.Duration) SuggesterOption {
	return func(s *Suggester) { s.timeout = d }
}

// WithOnChange registers a callback fired after any asynchronous state
// transition (fetch settled, suggestion cleared) so the render layer
// can recompute decorations.
func WithOnChange(fn func()) SuggesterOption {
	return func(s *Suggester) { s.onChange = fn }
}

// NewSuggester creates a suggestion pipeline backed by the given
// completer.
func NewSuggester(completer Completer, opts ...SuggesterOption) *Suggester {
	s := &Suggester{
		completer: completer,
		debounce:  defaultDebounce,
		timeout:   defaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NoteEvent restarts the suggestion cycle for a document or cursor
// change: the pending debounce timer is stopped, any in-flight request
// is aborted (its eventual result will be discarded), the current
// suggestion is cleared, and a new quiet period begins.
func (s *Suggester) NoteEvent(fileName, text string, cursor int) {
	// The cycle's identity is fixed here, not when the timer fires, so a
	// stale timer callback that lost the race against a newer event can
	// never re-validate itself.
	id := ulid.Make().String()

	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.reqID = id
	s.waiting = true
	s.suggestion = ""
	s.timer = time.AfterFunc(s.debounce, func() {
		s.fetch(id, fileName, text, cursor)
	})
	s.mu.Unlock()
}

func (s *Suggester) fetch(id, fileName, text string, cursor int) {
	payload, ok := BuildContext(fileName, text, cursor)
	if !ok {
		s.settle(id, "")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)

	s.mu.Lock()
	if s.reqID != id {
		// A newer cycle started while the payload was being built.
		s.mu.Unlock()
		cancel()
		return
	}
	s.cancel = cancel
	s.mu.Unlock()

	result, err := s.completer.Complete(ctx, payload)
	cancel()
	if errors.Is(err, context.Canceled) {
		return
	}
	if err != nil {
		// Fetch failures are absorbed: no suggestion is indistinguishable
		// from "the model had nothing to add".
		result = ""
	}
	s.settle(id, result)
}

// settle stores the fetch outcome unless a newer cycle has started.
func (s *Suggester) settle(id, result string) {
	s.mu.Lock()
	if id != s.reqID {
		s.mu.Unlock()
		return
	}
	s.cancel = nil
	s.waiting = false
	s.suggestion = result
	fn := s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Suggestion returns the settled suggestion text, or "" while waiting
// or when there is nothing to show.
func (s *Suggester) Suggestion() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.waiting {
		return ""
	}
	return s.suggestion
}

// Waiting reports whether a debounce or fetch cycle is pending.
func (s *Suggester) Waiting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waiting
}

// Accept consumes the current suggestion. The second return is false
// when no suggestion is available, in which case the trigger key must
// fall through to default editor behavior.
func (s *Suggester) Accept() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.waiting || s.suggestion == "" {
		return "", false
	}
	text := s.suggestion
	s.suggestion = ""
	return text, true
}

// Stop cancels any pending timer and in-flight request. The pipeline
// may be reused afterwards; the next NoteEvent starts a fresh cycle.
func (s *Suggester) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.reqID = ""
	s.waiting = false
	s.suggestion = ""
}
