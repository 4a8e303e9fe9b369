package store

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/sagatest/internal/canon"
)

// Run is one recorded scenario execution.
type Run struct {
	// ID is a UUIDv7, so IDs sort by creation.
	ID string

	// Seq is the run's position in the history. Assigned by WriteRun.
	Seq int64

	Scenario string
	Pass     bool
	Stopped  bool

	// Errors holds the failure messages of the run. Empty when Pass.
	Errors []string

	// TraceHash is canon.Hash of TraceJSON.
	TraceHash string

	// TraceJSON is the canonical trace, the same bytes a golden file holds.
	TraceJSON []byte

	// Effects are the yielded effects in trace order.
	Effects []Effect
}

// Effect is one yielded effect of a run.
type Effect struct {
	Seq  int64
	Kind string

	// JSON is the canonical JSON of the effect.
	JSON []byte
}

// NewRun builds a Run from a finished scenario snapshot.
func NewRun(snapshot canon.TraceSnapshot, errs []string) (Run, error) {
	traceJSON, err := canon.MarshalTrace(snapshot)
	if err != nil {
		return Run{}, fmt.Errorf("new run: %w", err)
	}

	effects := make([]Effect, 0, len(snapshot.Trace))
	for _, r := range snapshot.Trace {
		data, err := canon.MarshalEffect(r.Effect)
		if err != nil {
			return Run{}, fmt.Errorf("new run: effect %d: %w", r.Seq, err)
		}
		var kind string
		if r.Effect != nil {
			kind = string(r.Effect.Kind())
		}
		effects = append(effects, Effect{Seq: r.Seq, Kind: kind, JSON: data})
	}

	if errs == nil {
		errs = []string{}
	}

	return Run{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Scenario:  snapshot.Scenario,
		Pass:      len(errs) == 0,
		Stopped:   snapshot.Stopped,
		Errors:    errs,
		TraceHash: canon.Hash(traceJSON),
		TraceJSON: traceJSON,
		Effects:   effects,
	}, nil
}

func marshalErrors(errs []string) (string, error) {
	if errs == nil {
		errs = []string{}
	}
	data, err := canon.Marshal(errs)
	if err != nil {
		return "", fmt.Errorf("marshal errors: %w", err)
	}
	return string(data), nil
}

func unmarshalErrors(data string) ([]string, error) {
	var errs []string
	if err := json.Unmarshal([]byte(data), &errs); err != nil {
		return nil, fmt.Errorf("unmarshal errors: %w", err)
	}
	if errs == nil {
		errs = []string{}
	}
	return errs, nil
}
