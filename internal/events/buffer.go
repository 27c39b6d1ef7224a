package events

import (
	"context"
	"sync"
)

// DefaultBufferSize is the number of events a Buffer keeps when no size is given.
const DefaultBufferSize = 500

// Buffer is an EventHandler that keeps the most recent events in memory and
// numbers them with a monotonically increasing sequence. Clients poll Since
// with the last sequence they saw.
type Buffer struct {
	mu     sync.Mutex
	seq    int64
	max    int
	events []JobEvent
}

// NewBuffer creates a Buffer holding at most size events. Sizes <= 0 use
// DefaultBufferSize.
func NewBuffer(size int) *Buffer {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Buffer{max: size}
}

// HandleEvent appends a copy of event to the buffer, trimming the oldest
// entries past capacity.
func (b *Buffer) HandleEvent(_ context.Context, event *JobEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	ev := *event
	ev.Seq = b.seq
	b.events = append(b.events, ev)
	if over := len(b.events) - b.max; over > 0 {
		b.events = append([]JobEvent(nil), b.events[over:]...)
	}
	return nil
}

// Since returns the buffered events with a sequence greater than seq, oldest first.
func (b *Buffer) Since(seq int64) []JobEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]JobEvent, 0)
	for _, ev := range b.events {
		if ev.Seq > seq {
			out = append(out, ev)
		}
	}
	return out
}

// LastSeq returns the sequence number of the newest event, or 0 if none.
func (b *Buffer) LastSeq() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seq
}
