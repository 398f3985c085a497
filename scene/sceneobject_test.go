// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scene

import (
	"testing"

	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHierarchyQueries(t *testing.T) {
	m := NewManager()
	a := m.NewSceneObject("a", nil)
	b := m.NewSceneObject("b", a)
	c := m.NewSceneObject("c", b)

	assert.Equal(t, a, b.Parent())
	assert.Equal(t, 1, a.NumChildren())
	assert.Equal(t, b, a.Child(0))
	assert.Nil(t, a.Child(1))
	assert.Nil(t, a.Child(-1))
	assert.Equal(t, b, a.ChildByName("b"))
	assert.Nil(t, a.ChildByName("nope"))
	assert.Equal(t, "/root/a/b/c", c.Path())
	assert.Equal(t, c, a.FindPath("b/c"))
	assert.Nil(t, a.FindPath("b/x"))
	assert.True(t, a.IsAncestorOf(c))
	assert.False(t, c.IsAncestorOf(a))
}

func TestSetParentRejectsCycles(t *testing.T) {
	m := NewManager()
	a := m.NewSceneObject("a", nil)
	b := m.NewSceneObject("b", a)

	a.SetParent(a, false)
	assert.Equal(t, m.Root(), a.Parent())
	a.SetParent(b, false)
	assert.Equal(t, m.Root(), a.Parent())
}

func TestTransformCompose(t *testing.T) {
	m := NewManager()
	p := m.NewSceneObject("p", nil)
	c := m.NewSceneObject("c", p)

	p.SetTranslation(math32.Vec3(1, 0, 0))
	p.SetScale(math32.Vec3(2, 2, 2))
	c.SetTranslation(math32.Vec3(0, 2, 0))

	assert.Equal(t, math32.Vec3(1, 4, 0), c.WorldTranslation())
	assert.Equal(t, math32.Vec3(2, 2, 2), c.WorldScale())

	wm := c.WorldMatrix()
	pos, _, scale := wm.Decompose()
	assert.Equal(t, math32.Vec3(1, 4, 0), pos)
	assert.Equal(t, math32.Vec3(2, 2, 2), scale)
}

func assertVec3Near(t *testing.T, want, got math32.Vector3) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, 1e-5)
	assert.InDelta(t, want.Y, got.Y, 1e-5)
	assert.InDelta(t, want.Z, got.Z, 1e-5)
}

func TestTransformComposeRotationOrder(t *testing.T) {
	m := NewManager()
	p := m.NewSceneObject("p", nil)
	c := m.NewSceneObject("c", p)
	g := m.NewSceneObject("g", c)

	p.SetRotation(math32.NewQuatAxisAngle(math32.Vec3(0, 1, 0), math32.DegToRad(90)))
	c.SetRotation(math32.NewQuatAxisAngle(math32.Vec3(1, 0, 0), math32.DegToRad(90)))
	g.SetTranslation(math32.Vec3(0, 0, 1))

	// rotations about different axes do not commute: the child rotation
	// applies first, then the parent's
	want := math32.Vec3(0, -1, 0)
	assertVec3Near(t, want, g.WorldTranslation())
	assertVec3Near(t, want, math32.Vec3(0, 0, 1).MulQuat(c.WorldRotation()))

	// the composed-TRS and matrix paths agree on the same world state
	gwm := g.WorldMatrix()
	pos, quat, _ := gwm.Decompose()
	assertVec3Near(t, g.WorldTranslation(), pos)
	assertVec3Near(t,
		math32.Vec3(0, 0, 1).MulQuat(g.WorldRotation()),
		math32.Vec3(0, 0, 1).MulQuat(quat))
}

func TestSetWorldRotation(t *testing.T) {
	m := NewManager()
	p := m.NewSceneObject("p", nil)
	c := m.NewSceneObject("c", p)
	p.SetRotation(math32.NewQuatAxisAngle(math32.Vec3(0, 1, 0), math32.DegToRad(90)))

	// a world rotation about an axis the parent rotation does not
	// commute with
	wq := math32.NewQuatAxisAngle(math32.Vec3(1, 0, 0), math32.DegToRad(90))
	c.SetWorldRotation(wq)
	want := math32.Vec3(0, -1, 0)
	assertVec3Near(t, want, math32.Vec3(0, 0, 1).MulQuat(c.WorldRotation()))
	cwm := c.WorldMatrix()
	_, quat, _ := cwm.Decompose()
	assertVec3Near(t, want, math32.Vec3(0, 0, 1).MulQuat(quat))
}

func TestTransformCachingFollowsParent(t *testing.T) {
	m := NewManager()
	p := m.NewSceneObject("p", nil)
	c := m.NewSceneObject("c", p)
	c.SetTranslation(math32.Vec3(0, 1, 0))

	assert.Equal(t, math32.Vec3(0, 1, 0), c.WorldTranslation())
	p.SetTranslation(math32.Vec3(5, 0, 0))
	assert.Equal(t, math32.Vec3(5, 1, 0), c.WorldTranslation())
}

func TestTransformHash(t *testing.T) {
	m := NewManager()
	so := m.NewSceneObject("obj", nil)
	h0 := so.TransformHash()
	so.SetTranslation(math32.Vec3(1, 0, 0))
	h1 := so.TransformHash()
	assert.Greater(t, h1, h0)
	so.Rotate(math32.NewQuatAxisAngle(math32.Vec3(0, 1, 0), math32.DegToRad(45)))
	assert.Greater(t, so.TransformHash(), h1)
}

func TestImmovableRejectsMutators(t *testing.T) {
	m := NewManager()
	so := m.NewSceneObject("obj", nil)
	so.SetTranslation(math32.Vec3(1, 0, 0))
	so.SetMobility(Static)
	h := so.TransformHash()

	so.SetTranslation(math32.Vec3(9, 9, 9))
	so.Move(math32.Vec3(1, 1, 1))
	so.SetScale(math32.Vec3(2, 2, 2))
	assert.Equal(t, math32.Vec3(1, 0, 0), so.LocalTransform().Translation)
	assert.Equal(t, h, so.TransformHash())
}

func TestImmovableIgnoresParentTransform(t *testing.T) {
	m := NewManager()
	p := m.NewSceneObject("p", nil)
	c := m.NewSceneObject("c", p)
	c.SetTranslation(math32.Vec3(0, 1, 0))
	c.SetMobility(Static)

	p.SetTranslation(math32.Vec3(5, 0, 0))
	// world-anchored: the local transform is the world transform
	assert.Equal(t, math32.Vec3(0, 1, 0), c.WorldTranslation())
}

func TestSetParentKeepWorld(t *testing.T) {
	m := NewManager()
	p := m.NewSceneObject("p", nil)
	p.SetTranslation(math32.Vec3(10, 0, 0))
	c := m.NewSceneObject("c", nil)
	c.SetTranslation(math32.Vec3(3, 0, 0))

	c.SetParent(p, true)
	assert.Equal(t, math32.Vec3(3, 0, 0), c.WorldTranslation())
	assert.Equal(t, math32.Vec3(-7, 0, 0), c.LocalTransform().Translation)

	c.SetParent(m.Root(), false)
	assert.Equal(t, math32.Vec3(-7, 0, 0), c.WorldTranslation())
}

func TestTransformNotification(t *testing.T) {
	m := NewManager()
	m.SetState(Running)
	p := m.NewSceneObject("p", nil)
	c := m.NewSceneObject("c", p)

	pr := &recorder{}
	pr.SetTransformNotify(ChangedTransform | ChangedMobility)
	p.AddComponent(pr)
	cr := &recorder{}
	cr.SetTransformNotify(ChangedTransform)
	c.AddComponent(cr)

	pr.events, cr.events = nil, nil
	p.SetTranslation(math32.Vec3(1, 0, 0))
	assert.Contains(t, pr.events, "transform")
	assert.Contains(t, cr.events, "transform")

	// mobility changes do not propagate to children
	pr.events, cr.events = nil, nil
	p.SetMobility(Stationary)
	assert.Contains(t, pr.events, "transform")
	assert.NotContains(t, cr.events, "transform")
}

func TestTransformNotificationGatedByRunState(t *testing.T) {
	m := NewManager()
	m.SetState(Running)
	so := m.NewSceneObject("obj", nil)
	r := &recorder{}
	r.SetTransformNotify(ChangedTransform)
	so.AddComponent(r)

	m.SetState(Paused)
	r.events = nil
	so.SetTranslation(math32.Vec3(1, 0, 0))
	assert.Empty(t, r.events)
	// the transform change itself still lands
	assert.Equal(t, math32.Vec3(1, 0, 0), so.LocalTransform().Translation)
}

func TestDestroyImmediateOrdering(t *testing.T) {
	m := NewManager()
	m.SetState(Running)
	p := m.NewSceneObject("p", nil)
	c := m.NewSceneObject("c", p)

	r1 := &recorder{}
	r2 := &recorder{}
	p.AddComponent(r1)
	p.AddComponent(r2)
	cr := &recorder{}
	c.AddComponent(cr)

	ph := p.Handle()
	p.DestroyImmediate()
	assert.True(t, ph.IsDestroyed())
	assert.True(t, c.IsDestroyed())
	// children are torn down before the parent's components
	assert.Equal(t, "destroyed", cr.events[len(cr.events)-1])
	// components are removed back to front
	require.NotEmpty(t, r1.events)
	require.NotEmpty(t, r2.events)
	assert.Equal(t, "destroyed", r1.events[len(r1.events)-1])
	assert.Equal(t, "destroyed", r2.events[len(r2.events)-1])
}

func TestCloneRetargetsInternalReferences(t *testing.T) {
	m := NewManager()
	root := m.NewSceneObject("root", nil)
	x := m.NewSceneObject("x", root)
	y := m.NewSceneObject("y", root)
	ext := m.NewSceneObject("ext", nil)

	r := &recorder{Speed: 3}
	r.Target = y.Handle()
	x.AddComponent(r)
	er := &recorder{}
	er.Target = ext.Handle()
	y.AddComponent(er)

	clone, err := root.Clone(false)
	require.NoError(t, err)
	require.NotNil(t, clone)
	assert.False(t, clone.IsInstantiated())
	assert.NotEqual(t, root.InstanceID(), clone.InstanceID())

	cx := clone.ChildByName("x")
	cy := clone.ChildByName("y")
	require.NotNil(t, cx)
	require.NotNil(t, cy)

	cr := GetComponent[*recorder](cx)
	require.NotNil(t, cr)
	assert.Equal(t, float32(3), cr.Speed)
	// internal reference re-targeted to the clone's copy
	assert.Equal(t, cy.InstanceID(), cr.Target.ID())
	assert.NotEqual(t, y.InstanceID(), cr.Target.ID())
	// external reference preserved
	cer := GetComponent[*recorder](cy)
	require.NotNil(t, cer)
	assert.Equal(t, ext.InstanceID(), cer.Target.ID())
}

func TestCloneSkipsDontSave(t *testing.T) {
	m := NewManager()
	root := m.NewSceneObject("root", nil)
	m.NewSceneObject("keep", root)
	skip := m.NewSceneObject("skip", root)
	skip.SetFlag(true, DontSave)

	clone, err := root.Clone(false)
	require.NoError(t, err)
	assert.NotNil(t, clone.ChildByName("keep"))
	assert.Nil(t, clone.ChildByName("skip"))
}

func TestInstantiateRunsDeferredLifecycle(t *testing.T) {
	m := NewManager()
	m.SetState(Running)
	root := m.NewSceneObject("root", nil)
	r := &recorder{}
	root.AddComponent(r)

	clone, err := root.Clone(false)
	require.NoError(t, err)
	cr := GetComponent[*recorder](clone)
	require.NotNil(t, cr)
	assert.Empty(t, cr.events)

	clone.Instantiate()
	assert.Equal(t, []string{"created", "initialized", "enabled"}, cr.events)
	// repeated instantiation does not repeat lifecycle
	clone.Instantiate()
	assert.Equal(t, []string{"created", "initialized", "enabled"}, cr.events)
}

func TestDontInstantiateSubtree(t *testing.T) {
	m := NewManager()
	m.SetState(Running)
	root := m.NewSceneObject("root", nil)
	sub := m.NewSceneObject("sub", root)
	sub.SetFlag(true, DontInstantiate)

	clone, err := root.Clone(false)
	require.NoError(t, err)
	csub := clone.ChildByName("sub")
	r := &recorder{}
	csub.AddComponent(r) // owner not instantiated, so no lifecycle yet

	clone.Instantiate()
	assert.True(t, clone.IsInstantiated())
	assert.False(t, csub.IsInstantiated())
	assert.Empty(t, r.events)
}

func TestCopyFrom(t *testing.T) {
	m := NewManager()
	a := m.NewSceneObject("a", nil)
	ar := &recorder{Speed: 7}
	a.AddComponent(ar)
	a.SetTranslation(math32.Vec3(1, 2, 3))

	b := m.NewSceneObject("b", nil)
	br := &recorder{}
	b.AddComponent(br)

	b.CopyFrom(a)
	assert.Equal(t, "a", b.Name)
	assert.Equal(t, math32.Vec3(1, 2, 3), b.LocalTransform().Translation)
	assert.Equal(t, float32(7), br.Speed)
	assert.NotEqual(t, a.InstanceID(), b.InstanceID())
}

func TestSaveLoadObject(t *testing.T) {
	m := NewManager()
	root := m.NewSceneObject("saved", nil)
	kid := m.NewSceneObject("kid", root)
	r := &recorder{Speed: 2}
	r.Target = kid.Handle()
	root.AddComponent(r)

	b, err := SaveObject(root)
	require.NoError(t, err)

	loaded, err := m.LoadObject(b)
	require.NoError(t, err)
	assert.Equal(t, "saved", loaded.Name)
	lk := loaded.ChildByName("kid")
	require.NotNil(t, lk)
	lr := GetComponent[*recorder](loaded)
	require.NotNil(t, lr)
	assert.Equal(t, float32(2), lr.Speed)
	assert.Equal(t, lk.InstanceID(), lr.Target.ID())
}

func TestWorldBounds(t *testing.T) {
	m := NewManager()
	so := m.NewSceneObject("obj", nil)
	so.AddComponent(&recorder{})
	_, got := so.WorldBounds()
	assert.False(t, got)
}

func TestComponentBoundsDefault(t *testing.T) {
	m := NewManager()
	so := m.NewSceneObject("obj", nil)
	so.SetTranslation(math32.Vec3(2, 3, 4))
	r := &recorder{}
	so.AddComponent(r)

	// a zero-volume point at the owner's position, with no real bounds
	b := math32.B3Empty()
	assert.False(t, r.CalculateBounds(&b))
	assert.Equal(t, math32.Vec3(2, 3, 4), b.Min)
	assert.Equal(t, math32.Vec3(2, 3, 4), b.Max)
}
