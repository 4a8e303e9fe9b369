package expectation

import (
	"fmt"
	"strings"

	"github.com/roach88/sagatest/internal/arrayset"
	"github.com/roach88/sagatest/internal/effect"
	"github.com/roach88/sagatest/internal/render"
)

// ReportActualEffects renders every effect still held in set, i.e. every
// recorded effect of this kind that no expectation has consumed.
// An empty or nil set produces an explicit "none found" line.
func ReportActualEffects(set *arrayset.Set[effect.Effect], storeKey effect.Kind, effectName string) string {
	var buf strings.Builder

	buf.WriteString("\nActual:\n------\n")

	var values []effect.Effect
	if set != nil {
		values = set.Values()
	}

	if len(values) == 0 {
		fmt.Fprintf(&buf, "No actual %s effects found (%s)\n", effectName, storeKey)
		return buf.String()
	}

	for i, e := range values {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, indent(render.Effect(e), "   "))
	}
	return buf.String()
}

// indent prefixes every line after the first with pad.
func indent(s, pad string) string {
	return strings.ReplaceAll(s, "\n", "\n"+pad)
}
