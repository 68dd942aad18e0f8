package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/types"
)

func TestClone_CopiesNestedValues(t *testing.T) {
	e := types.NewEntity("S001",
		types.Field{Name: "meta", Value: map[string]any{"k": "v", "list": []any{"a", map[string]any{"x": 1.0}}}},
		types.Field{Name: "present", Value: false},
	)
	c := e.Clone()
	assert.True(t, c.Equal(e))

	v, _ := c.Get("meta")
	m := v.(map[string]any)
	m["k"] = "changed"
	m["list"].([]any)[1].(map[string]any)["x"] = 2.0

	orig, _ := e.Get("meta")
	om := orig.(map[string]any)
	assert.Equal(t, "v", om["k"])
	assert.Equal(t, 1.0, om["list"].([]any)[1].(map[string]any)["x"])
}
