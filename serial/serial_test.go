// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package serial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cogentcore.org/scene/object"
)

type inner struct {
	Target object.Handle
}

type payload struct {
	Name    string
	Health  int
	Tags    []string
	Nested  inner
	Targets []object.Handle
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	src := payload{Name: "turret", Health: 7, Tags: []string{"a", "b"}}
	o, err := Encode(&src)
	require.NoError(t, err)
	assert.Equal(t, "turret", o.String("Name"))
	assert.Equal(t, uint64(7), o.Uint64("Health"))

	var dst payload
	require.NoError(t, Decode(o, &dst))
	assert.Equal(t, src.Name, dst.Name)
	assert.Equal(t, src.Health, dst.Health)
	assert.Equal(t, src.Tags, dst.Tags)
}

func TestObjectClone(t *testing.T) {
	o := Object{"a": "x", "kids": []any{map[string]any{"b": true}}}
	c := o.Clone()
	require.NotNil(t, c)
	c["a"] = "y"
	c.Children("kids")[0]["b"] = false
	assert.Equal(t, "x", o.String("a"))
	assert.True(t, o.Children("kids")[0].Bool("b"))
}

func TestTypeRegistry(t *testing.T) {
	name := TypeNameFor[payload]()
	RegisterType(name, func() any { return &payload{} })
	v, err := NewOfType(name)
	require.NoError(t, err)
	assert.IsType(t, &payload{}, v)
	assert.Equal(t, name, TypeName(v))

	_, err = NewOfType("no.such.Type")
	assert.Error(t, err)
}

func TestWalkHandles(t *testing.T) {
	r := object.NewRegistry()
	r.StartDeserialization()
	var p payload
	p.Targets = make([]object.Handle, 2)

	o, err := Encode(&payload{}) // all-zero references
	require.NoError(t, err)
	o["Targets"] = []any{
		map[string]any{"$handle": 11},
		map[string]any{"$handle": 12},
	}
	o["Nested"] = map[string]any{"Target": map[string]any{"$handle": 11}}
	require.NoError(t, Decode(o, &p))

	n := 0
	WalkHandles(&p, func(h *object.Handle) {
		if id := h.PendingID(); id != 0 {
			r.RegisterUnresolvedHandle(id, h)
		}
		n++
	})
	assert.Equal(t, 3, n)
	r.EndDeserialization(object.KeepMissing)
	// both references to original id 11 share one record
	assert.Equal(t, p.Nested.Target.ID(), p.Targets[0].ID())
}

func TestGenerateDiffNilWhenEqual(t *testing.T) {
	a := payload{Name: "x", Health: 1}
	b := payload{Name: "x", Health: 1}
	d, err := GenerateDiff(&a, &b)
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestGenerateApplyDiff(t *testing.T) {
	a := payload{Name: "x", Health: 1, Tags: []string{"one"}}
	b := payload{Name: "y", Health: 2, Tags: []string{"one", "two"}}
	d, err := GenerateDiff(&a, &b)
	require.NoError(t, err)
	require.NotNil(t, d)

	target := payload{Name: "x", Health: 1, Tags: []string{"one"}}
	require.NoError(t, ApplyDiff(&target, d))
	assert.Equal(t, "y", target.Name)
	assert.Equal(t, 2, target.Health)
	assert.Equal(t, []string{"one", "two"}, target.Tags)
}

func TestApplyDiffPreservesUnnamedFields(t *testing.T) {
	a := payload{Name: "x"}
	b := payload{Name: "y"}
	d, err := GenerateDiff(&a, &b)
	require.NoError(t, err)

	// target diverges from a in a field the diff does not touch
	target := payload{Name: "x", Health: 42}
	require.NoError(t, ApplyDiff(&target, d))
	assert.Equal(t, "y", target.Name)
	assert.Equal(t, 42, target.Health)
}

func TestApplyDiffMalformed(t *testing.T) {
	var p payload
	assert.Error(t, ApplyDiff(&p, Object{"ops": "nope"}))
	assert.Error(t, ApplyDiff(&p, Object{"ops": []any{
		map[string]any{"op": "move", "path": "/Name"},
	}}))
}
