package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/sagatest/internal/effect"
)

func getDog(state any, _ ...any) any { return state }

func fetchUser(id int) string { return "" }

type node struct {
	Name  string
	Child *node
}

func TestInspect_SortsMapKeys(t *testing.T) {
	out := Inspect(map[string]int{"b": 2, "a": 1}, DefaultDepth)
	assert.Less(t, strings.Index(out, `"a"`), strings.Index(out, `"b"`))
}

func TestInspect_Stable(t *testing.T) {
	v := map[string]any{"type": "DOG", "payload": map[string]any{"age": 11, "name": "Tucker"}}
	assert.Equal(t, Inspect(v, DefaultDepth), Inspect(v, DefaultDepth))
}

func TestInspect_NoPointerAddresses(t *testing.T) {
	out := Inspect(&node{Name: "root"}, DefaultDepth)
	assert.NotContains(t, out, "0xc")
	assert.Contains(t, out, "root")
}

func TestInspect_DepthLimited(t *testing.T) {
	deep := &node{Name: "1", Child: &node{Name: "2", Child: &node{Name: "3", Child: &node{Name: "4", Child: &node{Name: "5"}}}}}
	out := Inspect(deep, 2)
	assert.Contains(t, out, `"1"`)
	assert.NotContains(t, out, `"5"`)
}

func TestInspect_NoTrailingNewline(t *testing.T) {
	assert.False(t, strings.HasSuffix(Inspect(42, DefaultDepth), "\n"))
}

func TestFuncName(t *testing.T) {
	assert.Contains(t, FuncName(getDog), "render.getDog")
	assert.Equal(t, "<nil>", FuncName(nil))
	assert.Equal(t, "<not a function>", FuncName(42))

	var nilFn func()
	assert.Equal(t, "<nil>", FuncName(nilFn))
}

func TestEffect_Put(t *testing.T) {
	out := Effect(effect.NewPut(effect.Action{Type: "DOG", Payload: "Tucker"}))
	assert.Contains(t, out, "DOG")
	assert.Contains(t, out, "Tucker")
}

func TestEffect_Select(t *testing.T) {
	out := Effect(effect.NewSelect(getDog, 1))
	assert.Contains(t, out, "selector: ")
	assert.Contains(t, out, "getDog")
	assert.Contains(t, out, "args: [")

	named := Effect(effect.Select{Selector: getDog, Name: "dogSelector"})
	assert.Contains(t, named, "selector: dogSelector")
	assert.Contains(t, named, "args: []")
}

func TestEffect_Call(t *testing.T) {
	out := Effect(effect.NewCall(fetchUser, 7))
	assert.True(t, strings.HasPrefix(out, "fn: "))
	assert.Contains(t, out, "fetchUser")
	assert.Contains(t, out, "7")
}

func TestEffect_Take(t *testing.T) {
	assert.Equal(t, "pattern: *", Effect(effect.NewTake(nil)))
	assert.Equal(t, "pattern: DOG", Effect(effect.NewTake("DOG")))
	assert.Equal(t, "pattern: [CAT, DOG]", Effect(effect.NewTake([]string{"CAT", "DOG"})))
}

func TestEffect_Nil(t *testing.T) {
	assert.Equal(t, "<nil>", Effect(nil))
}
