package saga

import (
	"sync"

	"github.com/roach88/sagatest/internal/arrayset"
	"github.com/roach88/sagatest/internal/effect"
)

// Record is one yielded effect in trace order.
type Record struct {
	Seq    int64
	Effect effect.Effect
}

// Recording holds everything a run yielded: the ordered trace and one
// record set per effect kind. Expectations consume from the sets; the trace
// is never mutated after the run.
type Recording struct {
	mu    sync.Mutex
	trace []Record
	sets  map[effect.Kind]*arrayset.Set[effect.Effect]
}

// NewRecording creates an empty recording with a set for every known kind.
func NewRecording() *Recording {
	r := &Recording{
		sets: make(map[effect.Kind]*arrayset.Set[effect.Effect], len(effect.Kinds)),
	}
	for _, k := range effect.Kinds {
		r.sets[k] = newEffectSet()
	}
	return r
}

func newEffectSet() *arrayset.Set[effect.Effect] {
	return arrayset.New[effect.Effect](effect.Equal)
}

// Add records e with sequence number seq.
func (r *Recording) Add(seq int64, e effect.Effect) {
	r.mu.Lock()
	r.trace = append(r.trace, Record{Seq: seq, Effect: e})
	r.mu.Unlock()

	r.Set(e.Kind()).Add(e)
}

// Set returns the record set for kind, creating it if needed.
func (r *Recording) Set(kind effect.Kind) *arrayset.Set[effect.Effect] {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sets[kind]
	if !ok {
		s = newEffectSet()
		r.sets[kind] = s
	}
	return s
}

// Trace returns a copy of the ordered trace.
func (r *Recording) Trace() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.trace))
	copy(out, r.trace)
	return out
}
