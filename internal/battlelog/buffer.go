// Package battlelog decodes Pokémon Showdown protocol lines and derives
// battle state from them.
package battlelog

import "strings"

// DefaultCapacity is the number of protocol lines kept per battle.
const DefaultCapacity = 5000

// Buffer is a bounded FIFO of protocol lines. When full, pushing a new
// line evicts the oldest one. It is not safe for concurrent use.
type Buffer struct {
	lines []string
	head  int // index of the oldest line once the ring is full
	cap   int
}

// NewBuffer creates a buffer holding at most capacity lines.
// A non-positive capacity falls back to DefaultCapacity.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{cap: capacity}
}

// Push appends a single line.
func (b *Buffer) Push(line string) {
	if len(b.lines) < b.cap {
		b.lines = append(b.lines, line)
		return
	}
	b.lines[b.head] = line
	b.head = (b.head + 1) % b.cap
}

// Append splits a received chunk into lines and pushes every non-empty
// trimmed line. It returns the number of lines pushed.
func (b *Buffer) Append(chunk string) int {
	n := 0
	for _, line := range strings.Split(chunk, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			b.Push(line)
			n++
		}
	}
	return n
}

// Lines returns a copy of the buffered lines, oldest first.
func (b *Buffer) Lines() []string {
	out := make([]string, 0, len(b.lines))
	out = append(out, b.lines[b.head:]...)
	out = append(out, b.lines[:b.head]...)
	return out
}

// Len returns the number of buffered lines.
func (b *Buffer) Len() int { return len(b.lines) }

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int { return b.cap }

// Reset drops every buffered line.
func (b *Buffer) Reset() {
	b.lines = b.lines[:0]
	b.head = 0
}
