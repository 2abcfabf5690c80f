package materials

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func byName(states []*PipelineState) map[string]*PipelineState {
	out := make(map[string]*PipelineState, len(states))
	for _, s := range states {
		out[s.Name] = s
	}
	return out
}

func TestResolveNearestAncestorWins(t *testing.T) {
	decls := []Declaration{
		// Children are declared before their parents on purpose.
		{Name: "leaf", Parent: "mid", Document: Document{"filters": "leaf_filter"}},
		{Name: "mid", Parent: "root", Document: Document{
			"fragmentShader": "mid",
			"passIndex":      0,
			"states":         []any{"DisableDepthWrite"},
		}},
		{Name: "root", Document: Document{
			"vertexShader":   "root",
			"fragmentShader": "root",
			"passIndex":      7,
			"filters":        "root_filter",
			"outputs":        []any{map[string]any{"index": 2}},
		}},
	}

	states, errs := Resolve(decls)
	require.Empty(t, errs)
	require.Len(t, states, 3)
	assert.Equal(t, []string{"leaf", "mid", "root"}, []string{states[0].Name, states[1].Name, states[2].Name})

	got := byName(states)
	leaf := got["leaf"]
	assert.Equal(t, "root", leaf.VertexShader)
	assert.Equal(t, "mid", leaf.FragmentShader)
	assert.Equal(t, 0, leaf.Pass(), "explicit zero on the parent must override the grandparent")
	assert.Equal(t, "leaf_filter", leaf.Filters)
	assert.Equal(t, DisableDepthWrite, leaf.States)
	assert.Equal(t, []Output{{Index: 2}}, leaf.Outputs)
	assert.Equal(t, "mid", leaf.Parent)

	assert.Equal(t, 7, got["root"].Pass(), "resolving children must not mutate ancestors")
	assert.Equal(t, "root_filter", got["mid"].Filters)
}

func TestResolveRejectsEveryStateOnACycle(t *testing.T) {
	for n := 2; n <= 5; n++ {
		t.Run(fmt.Sprintf("length %d", n), func(t *testing.T) {
			var decls []Declaration
			for i := 0; i < n; i++ {
				decls = append(decls, Declaration{
					Name:     fmt.Sprintf("s%d", i),
					Parent:   fmt.Sprintf("s%d", (i+1)%n),
					Document: Document{"vertexShader": "v", "fragmentShader": "f", "passIndex": i},
				})
			}
			decls = append(decls,
				Declaration{Name: "hanger", Parent: "s0", Document: Document{}},
				Declaration{Name: "ok", Document: Document{"vertexShader": "v", "fragmentShader": "f", "passIndex": 1}},
			)

			states, errs := Resolve(decls)
			require.Len(t, states, 1)
			assert.Equal(t, "ok", states[0].Name)
			require.Len(t, errs, n+1)

			cyclic := 0
			for _, err := range errs {
				var pe *ParseError
				require.True(t, errors.As(err, &pe))
				assert.Equal(t, "parent", pe.Key)
				if pe.State != "hanger" {
					assert.ErrorIs(t, err, ErrInheritanceCycle)
					cyclic++
				}
			}
			assert.Equal(t, n, cyclic)
		})
	}
}

func TestResolveSelfParent(t *testing.T) {
	_, errs := Resolve([]Declaration{{Name: "me", Parent: "me", Document: Document{}}})
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrInheritanceCycle)
}

func TestResolveUnknownAndInvalidParents(t *testing.T) {
	decls := []Declaration{
		{Name: "orphan", Parent: "ghost", Document: Document{}},
		{Name: "bad", Document: Document{"states": []any{"nope"}}},
		{Name: "child_of_bad", Parent: "bad", Document: Document{}},
		{Name: "dup", Document: Document{"vertexShader": "v", "fragmentShader": "f", "passIndex": 0}},
		{Name: "dup", Document: Document{"vertexShader": "x", "fragmentShader": "x", "passIndex": 0}},
		{Name: "incomplete_child", Parent: "dup", Document: Document{"tessellationEvaluationShader": "te"}},
	}
	states, errs := Resolve(decls)
	require.Len(t, states, 1)
	assert.Equal(t, "v", states[0].VertexShader)

	failed := map[string]string{}
	for _, err := range errs {
		var pe *ParseError
		require.True(t, errors.As(err, &pe))
		failed[pe.State] = pe.Key
	}
	assert.Equal(t, map[string]string{
		"orphan":           "parent",
		"bad":              "states[0]",
		"child_of_bad":     "parent",
		"dup":              "name",
		"incomplete_child": "tessellationControlShader",
	}, failed)
}
