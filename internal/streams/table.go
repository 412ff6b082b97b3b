// File: internal/streams/table.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Round-robin stream table bound to one egress ring. Single-
// goroutine owned, no locking: the TX scheduler that drains this table
// runs in the same goroutine as the ring it feeds.

package streams

import "github.com/rtbrick/bngblaster-core/api"

// Table implements api.StreamTable.
type Table struct {
	order  []api.Stream
	byName map[string]int
	cursor int
}

var _ api.StreamTable = (*Table)(nil)

// NewTable returns an empty stream table.
func NewTable() *Table {
	return &Table{byName: make(map[string]int)}
}

// Add registers a stream at the end of round-robin order. Re-adding an
// existing name replaces it in place without disturbing order.
func (t *Table) Add(s api.Stream) {
	if i, ok := t.byName[s.Name()]; ok {
		t.order[i] = s
		return
	}
	t.byName[s.Name()] = len(t.order)
	t.order = append(t.order, s)
}

// Remove unregisters a stream by name. The cursor is clamped back into
// range if removal shortens the table past it.
func (t *Table) Remove(name string) {
	i, ok := t.byName[name]
	if !ok {
		return
	}
	t.order = append(t.order[:i], t.order[i+1:]...)
	delete(t.byName, name)
	for n, idx := range t.byName {
		if idx > i {
			t.byName[n] = idx - 1
		}
	}
	if len(t.order) == 0 {
		t.cursor = 0
	} else if t.cursor >= len(t.order) {
		t.cursor = 0
	}
}

// Streams returns the streams in round-robin insertion order.
func (t *Table) Streams() []api.Stream {
	out := make([]api.Stream, len(t.order))
	copy(out, t.order)
	return out
}

// NextEligible advances the cursor up to one full loop over the table,
// returning the first stream whose bucket admits one packet at now. The
// cursor is left just past the returned stream, so repeated calls within
// a tick spread admission fairly across all eligible streams even under
// saturation.
func (t *Table) NextEligible(nowNanos int64) (api.Stream, bool) {
	n := len(t.order)
	if n == 0 {
		return nil, false
	}
	for i := 0; i < n; i++ {
		idx := (t.cursor + i) % n
		s := t.order[idx]
		if s.Bucket().Consume(1, nowNanos) {
			t.cursor = (idx + 1) % n
			return s, true
		}
	}
	return nil, false
}
