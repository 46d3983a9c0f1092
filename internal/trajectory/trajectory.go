// Package trajectory records the sequence of mediated tool invocations and
// watches it for unproductive loops.
package trajectory

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Record is one completed (or refused) tool invocation in session order.
type Record struct {
	ActionID  string            `json:"action_id"`
	Command   string            `json:"command"`
	Args      map[string]string `json:"args,omitempty"`
	Tier      string            `json:"tier"`
	Decision  string            `json:"decision"`
	Success   bool              `json:"success"`
	Empty     bool              `json:"empty"`
	Summary   string            `json:"summary,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Signature returns the command plus its arguments flattened in sorted key
// order, used for identical-call comparison. Callers truncate to a prefix.
func (r Record) Signature() string {
	keys := make([]string, 0, len(r.Args))
	for k := range r.Args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(r.Command)
	for _, k := range keys {
		sb.WriteString(" ")
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(r.Args[k])
	}
	return sb.String()
}

// Trajectory is an append-only log of records for one session.
// Safe for concurrent use.
type Trajectory struct {
	mu      sync.Mutex
	records []Record
}

// New creates an empty trajectory.
func New() *Trajectory {
	return &Trajectory{}
}

// Append adds a record, stamping the timestamp if unset.
func (t *Trajectory) Append(r Record) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	t.records = append(t.records, r)
}

// Len returns the number of records.
func (t *Trajectory) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

// Records returns a copy of all records in append order.
func (t *Trajectory) Records() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Record, len(t.records))
	copy(out, t.records)
	return out
}

// Tail returns a copy of the last n records (all records if fewer exist).
func (t *Trajectory) Tail(n int) []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n > len(t.records) {
		n = len(t.records)
	}
	out := make([]Record, n)
	copy(out, t.records[len(t.records)-n:])
	return out
}
