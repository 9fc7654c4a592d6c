package audit

import (
	"sync"
	"time"

	"github.com/BioHazard786/SpaceLink/cli/internal/control"
)

// Entry is one command accepted by the control channel.
type Entry struct {
	At      time.Time    `msgpack:"at"`
	Kind    control.Kind `msgpack:"type"`
	Payload []byte       `msgpack:"payload"`
}

// Command decodes the entry's wire payload.
func (e Entry) Command() (control.Command, error) {
	return control.Decode(e.Payload)
}

// Buffer keeps the most recent commands, dropping the oldest once full.
type Buffer struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
	now     func() time.Time
}

func NewBuffer(size int) *Buffer {
	if size < 1 {
		size = 1
	}
	return &Buffer{entries: make([]Entry, size), now: time.Now}
}

// Record implements control.Recorder.
func (b *Buffer) Record(kind control.Kind, payload []byte) {
	entry := Entry{
		At:      b.now(),
		Kind:    kind,
		Payload: append([]byte(nil), payload...),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[b.next] = entry
	b.next = (b.next + 1) % len(b.entries)
	if b.next == 0 {
		b.full = true
	}
}

// Entries returns the buffered commands, oldest first.
func (b *Buffer) Entries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.full {
		return append([]Entry(nil), b.entries[:b.next]...)
	}
	out := make([]Entry, 0, len(b.entries))
	out = append(out, b.entries[b.next:]...)
	return append(out, b.entries[:b.next]...)
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.full {
		return len(b.entries)
	}
	return b.next
}
