package editor

import "strings"

// Range represents a byte range [Start, End) within buffer text.
type Range struct {
	Start, End int
}

// editOp records a single edit for undo/redo support.
type editOp struct {
	offset  int
	oldText string
	newText string
}

// Buffer manages the text content of a single open file. Files live in
// the content store, not on disk, so a buffer carries the store's file
// id and display name and leaves persistence to its owner.
type Buffer struct {
	fileID    string
	name      string
	text      string
	savedText string // text at last load/save, for dirty comparison
	undoStack []editOp
	redoStack []editOp
}

// NewBuffer creates a buffer holding the given file content.
func NewBuffer(fileID, name, text string) *Buffer {
	return &Buffer{
		fileID:    fileID,
		name:      name,
		text:      text,
		savedText: text,
	}
}

// FileID returns the content store id of the buffered file.
func (b *Buffer) FileID() string {
	return b.fileID
}

// Name returns the file's display name.
func (b *Buffer) Name() string {
	return b.name
}

// Text returns the current text content of the buffer.
func (b *Buffer) Text() string {
	return b.text
}

// SetText replaces the buffer's entire content without recording an
// undo entry. Used when the view pushes a full document sync.
func (b *Buffer) SetText(text string) {
	b.text = text
}

// Dirty reports whether the buffer's text differs from the last
// loaded/saved text.
func (b *Buffer) Dirty() bool {
	return b.text != b.savedText
}

// MarkSaved records the current text as the persisted baseline.
func (b *Buffer) MarkSaved() {
	b.savedText = b.text
}

// Insert inserts text at the given byte offset and returns the offset
// just past the inserted text (the natural cursor position after an
// accepted suggestion). Out-of-range offsets are clamped.
func (b *Buffer) Insert(offset int, text string) int {
	offset = b.clamp(offset)
	b.ApplyEdit(offset, "", text)
	return offset + len(text)
}

// ReplaceRange replaces the text at [r.Start, r.End) with newText and
// returns the offset just past the replacement. Bounds are clamped.
func (b *Buffer) ReplaceRange(r Range, newText string) int {
	start := b.clamp(r.Start)
	end := b.clamp(r.End)
	if end < start {
		start, end = end, start
	}
	b.ApplyEdit(start, b.text[start:end], newText)
	return start + len(newText)
}

// ApplyEdit records the edit on the undo stack, clears the redo stack,
// and applies the edit to the buffer text. The edit replaces the text
// at [offset, offset+len(oldText)) with newText.
func (b *Buffer) ApplyEdit(offset int, oldText, newText string) {
	b.undoStack = append(b.undoStack, editOp{
		offset:  offset,
		oldText: oldText,
		newText: newText,
	})
	b.redoStack = nil
	b.text = b.text[:offset] + newText + b.text[offset+len(oldText):]
}

// Undo reverses the last edit. Returns true if an edit was undone,
// false if the undo stack is empty.
func (b *Buffer) Undo() bool {
	if len(b.undoStack) == 0 {
		return false
	}
	op := b.undoStack[len(b.undoStack)-1]
	b.undoStack = b.undoStack[:len(b.undoStack)-1]
	b.text = b.text[:op.offset] + op.oldText + b.text[op.offset+len(op.newText):]
	b.redoStack = append(b.redoStack, op)
	return true
}

// Redo reapplies the last undone edit. Returns true if an edit was
// redone, false if the redo stack is empty.
func (b *Buffer) Redo() bool {
	if len(b.redoStack) == 0 {
		return false
	}
	op := b.redoStack[len(b.redoStack)-1]
	b.redoStack = b.redoStack[:len(b.redoStack)-1]
	b.text = b.text[:op.offset] + op.newText + b.text[op.offset+len(op.oldText):]
	b.undoStack = append(b.undoStack, op)
	return true
}

// Find returns all byte ranges where query appears as a substring in
// the buffer text. Returns nil if query is empty or not found.
func (b *Buffer) Find(query string) []Range {
	if query == "" {
		return nil
	}
	var results []Range
	start := 0
	for {
		idx := strings.Index(b.text[start:], query)
		if idx < 0 {
			break
		}
		absIdx := start + idx
		results = append(results, Range{Start: absIdx, End: absIdx + len(query)})
		start = absIdx + len(query)
	}
	return results
}

// ReplaceAll replaces all occurrences of query with replacement,
// recording each replacement on the undo stack back to front so that
// offsets remain valid. Returns the number of replacements made.
func (b *Buffer) ReplaceAll(query, replacement string) int {
	ranges := b.Find(query)
	if len(ranges) == 0 {
		return 0
	}
	for i := len(ranges) - 1; i >= 0; i-- {
		b.ApplyEdit(ranges[i].Start, query, replacement)
	}
	return len(ranges)
}

func (b *Buffer) clamp(offset int) int {
	if offset < 0 {
		return 0
	}
	if offset > len(b.text) {
		return len(b.text)
	}
	return offset
}
