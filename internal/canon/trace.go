package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/roach88/sagatest/internal/effect"
	"github.com/roach88/sagatest/internal/render"
	"github.com/roach88/sagatest/internal/saga"
)

// DomainTrace prefixes trace hashes. The version suffix leaves room for a
// future change of the trace layout.
const DomainTrace = "sagatest/trace/v1"

// TraceSnapshot is the golden-file form of a run.
type TraceSnapshot struct {
	Scenario    string
	Trace       []saga.Record
	ReturnValue any
	FinalState  any
	Stopped     bool
}

// Effect returns the canonical object form of e: a "kind" entry plus the
// kind's fields. Function values become their names.
func Effect(e effect.Effect) map[string]any {
	switch x := e.(type) {
	case effect.Put:
		return map[string]any{"kind": string(x.Kind()), "action": x.Action}
	case effect.Select:
		return map[string]any{
			"kind":     string(x.Kind()),
			"selector": nameOr(x.Name, x.Selector),
			"args":     argsOrEmpty(x.Args),
		}
	case effect.Call:
		return map[string]any{
			"kind": string(x.Kind()),
			"fn":   nameOr(x.Name, x.Fn),
			"args": argsOrEmpty(x.Args),
		}
	case effect.Take:
		return map[string]any{"kind": string(x.Kind()), "pattern": pattern(x.Pattern)}
	case nil:
		return nil
	}
	return map[string]any{"kind": string(e.Kind())}
}

// MarshalEffect produces canonical JSON for a single effect.
func MarshalEffect(e effect.Effect) ([]byte, error) {
	return Marshal(Effect(e))
}

// MarshalTrace produces canonical JSON for a snapshot:
//
//	{"final_state":...,"return":...,"scenario":"...","stopped":false,
//	 "trace":[{"effect":{...},"seq":1},...]}
func MarshalTrace(s TraceSnapshot) ([]byte, error) {
	trace := make([]any, len(s.Trace))
	for i, r := range s.Trace {
		trace[i] = map[string]any{
			"seq":    r.Seq,
			"effect": Effect(r.Effect),
		}
	}

	out, err := Marshal(map[string]any{
		"scenario":    s.Scenario,
		"trace":       trace,
		"return":      s.ReturnValue,
		"final_state": s.FinalState,
		"stopped":     s.Stopped,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal trace %q: %w", s.Scenario, err)
	}
	return out, nil
}

// Hash returns the hex SHA-256 of canonical data under DomainTrace.
// Format: SHA256(domain + 0x00 + data).
func Hash(data []byte) string {
	h := sha256.New()
	h.Write([]byte(DomainTrace))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

func nameOr(name string, fn any) string {
	if name != "" {
		return name
	}
	return render.FuncName(fn)
}

func argsOrEmpty(args []any) []any {
	if args == nil {
		return []any{}
	}
	return args
}

func pattern(p any) any {
	if p == nil {
		return "*"
	}
	return p
}
