// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scene

import (
	"testing"

	"cogentcore.org/core/math32"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cogentcore.org/scene/object"
)

// makePrefab builds a template with one child carrying a recorder
// component and returns the manager, prefab, library, and source.
func makePrefab(t *testing.T) (*Manager, *Prefab, *Library, *SceneObject) {
	t.Helper()
	m := NewManager()
	m.SetState(Running)
	src := m.NewSceneObject("tmpl", nil)
	kid := m.NewSceneObject("kid", src)
	kid.AddComponent(&recorder{Speed: 1})

	pf, err := NewPrefab(src, false)
	require.NoError(t, err)
	lib := NewLibrary()
	lib.Add(pf)
	return m, pf, lib, src
}

func TestNewPrefabStampsIdentity(t *testing.T) {
	_, pf, _, src := makePrefab(t)
	assert.NotEqual(t, uuid.Nil, pf.UUID())
	assert.Equal(t, pf.UUID(), src.PrefabUUID())
	assert.Equal(t, pf.UUID(), pf.Root().PrefabUUID())
	assert.Equal(t, uint64(0), pf.Hash())
	assert.True(t, pf.IsLoaded())

	// every object and component in scope got a link id
	assert.NotEqual(t, object.UnlinkedID, src.LinkID())
	kid := src.ChildByName("kid")
	assert.NotEqual(t, object.UnlinkedID, kid.LinkID())
	assert.NotEqual(t, object.UnlinkedID, kid.Components()[0].AsObject().LinkID())
	// the stored copy mirrors the source's link ids
	assert.Equal(t, kid.LinkID(), pf.Root().ChildByName("kid").LinkID())
}

func TestPrefabInstantiate(t *testing.T) {
	_, pf, lib, _ := makePrefab(t)
	inst, err := pf.Instantiate(lib)
	require.NoError(t, err)
	assert.True(t, inst.IsInstantiated())
	assert.Equal(t, pf.UUID(), inst.PrefabUUID())
	assert.Equal(t, pf.Hash(), inst.PrefabHash())

	kid := inst.ChildByName("kid")
	require.NotNil(t, kid)
	r := GetComponent[*recorder](kid)
	require.NotNil(t, r)
	assert.Equal(t, float32(1), r.Speed)
	assert.Equal(t, []string{"created", "initialized", "enabled"}, r.events)
}

func TestGenerateClearPrefabIDs(t *testing.T) {
	m := NewManager()
	root := m.NewSceneObject("r", nil)
	a := m.NewSceneObject("a", root)
	GeneratePrefabIDs(root)
	ra, aa := root.LinkID(), a.LinkID()
	assert.NotEqual(t, object.UnlinkedID, ra)
	assert.NotEqual(t, object.UnlinkedID, aa)
	assert.NotEqual(t, ra, aa)

	// regeneration preserves existing ids and only fills gaps
	b := m.NewSceneObject("b", root)
	GeneratePrefabIDs(root)
	assert.Equal(t, ra, root.LinkID())
	assert.Equal(t, aa, a.LinkID())
	assert.Greater(t, b.LinkID(), max(ra, aa))

	ClearPrefabIDs(root, true, false)
	assert.Equal(t, ra, root.LinkID())
	assert.Equal(t, object.UnlinkedID, a.LinkID())
	ClearPrefabIDs(root, true, true)
	assert.Equal(t, object.UnlinkedID, root.LinkID())
}

func TestPrefabDiffNilWhenIdentical(t *testing.T) {
	_, pf, _, _ := makePrefab(t)
	inst, err := pf.Root().Clone(false)
	require.NoError(t, err)
	d, err := NewPrefabDiff(pf.Root(), inst)
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestPrefabDiffUnrelated(t *testing.T) {
	m, pf, _, _ := makePrefab(t)
	other := m.NewSceneObject("other", nil)
	d, err := NewPrefabDiff(pf.Root(), other)
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestPrefabDiffRoundTrip(t *testing.T) {
	_, pf, _, _ := makePrefab(t)
	inst, err := pf.Root().Clone(false)
	require.NoError(t, err)

	kid := inst.ChildByName("kid")
	kid.Name = "kid2"
	kid.SetTranslation(math32.Vec3(4, 0, 0))
	GetComponent[*recorder](kid).Speed = 2

	d, err := NewPrefabDiff(pf.Root(), inst)
	require.NoError(t, err)
	require.NotNil(t, d)
	require.Len(t, d.Root.Children, 1)
	kd := d.Root.Children[0]
	assert.NotZero(t, kd.Flags&DiffName)
	assert.NotZero(t, kd.Flags&DiffTranslation)
	assert.Equal(t, "kid2", kd.Name)
	require.Len(t, kd.ComponentDiffs, 1)

	fresh, err := pf.Root().Clone(false)
	require.NoError(t, err)
	require.NoError(t, d.Apply(fresh))
	fk := fresh.ChildByName("kid2")
	require.NotNil(t, fk)
	assert.Equal(t, math32.Vec3(4, 0, 0), fk.LocalTransform().Translation)
	assert.Equal(t, float32(2), GetComponent[*recorder](fk).Speed)
}

func TestPrefabDiffAppliesToImmovable(t *testing.T) {
	_, pf, _, _ := makePrefab(t)
	inst, err := pf.Root().Clone(false)
	require.NoError(t, err)

	kid := inst.ChildByName("kid")
	kid.SetTranslation(math32.Vec3(6, 0, 0))
	kid.SetMobility(Stationary)

	d, err := NewPrefabDiff(pf.Root(), inst)
	require.NoError(t, err)
	require.NotNil(t, d)

	// the override replays even though mutators reject non-movable
	// targets
	fresh, err := pf.Root().Clone(false)
	require.NoError(t, err)
	fk := fresh.ChildByName("kid")
	fk.SetMobility(Stationary)
	h := fk.TransformHash()
	require.NoError(t, d.Apply(fresh))
	assert.Equal(t, math32.Vec3(6, 0, 0), fk.LocalTransform().Translation)
	assert.Greater(t, fk.TransformHash(), h)
}

func TestPrefabDiffAddRemove(t *testing.T) {
	_, pf, _, _ := makePrefab(t)
	inst, err := pf.Root().Clone(false)
	require.NoError(t, err)

	kidLink := inst.ChildByName("kid").LinkID()
	inst.ChildByName("kid").DestroyImmediate()
	added := inst.mgr.NewSceneObject("extra", inst)
	added.SetTranslation(math32.Vec3(1, 1, 1))
	inst.AddComponent(&recorder{Speed: 9})

	d, err := NewPrefabDiff(pf.Root(), inst)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, []uint32{kidLink}, d.Root.RemovedObjects)
	require.Len(t, d.Root.AddedObjects, 1)
	require.Len(t, d.Root.AddedComponents, 1)

	fresh, err := pf.Root().Clone(false)
	require.NoError(t, err)
	require.NoError(t, d.Apply(fresh))
	assert.Nil(t, fresh.ChildByName("kid"))
	// additions land at the end of their lists
	require.Equal(t, 1, fresh.NumChildren())
	assert.Equal(t, "extra", fresh.Child(fresh.NumChildren()-1).Name)
	require.Equal(t, 1, fresh.NumComponents())
	last := fresh.Components()[fresh.NumComponents()-1]
	assert.Equal(t, float32(9), last.(*recorder).Speed)
	// applied additions are not instantiated by the diff itself
	assert.Empty(t, last.(*recorder).events)
}

func TestPrefabUpdatePreservesLinkIDs(t *testing.T) {
	_, pf, _, src := makePrefab(t)
	kidLink := src.ChildByName("kid").LinkID()

	src.ChildByName("kid").AddComponent(&recorder{Speed: 3})
	extra := src.mgr.NewSceneObject("extra", src)
	require.NoError(t, pf.Update(src))

	assert.Equal(t, uint64(1), pf.Hash())
	assert.Equal(t, kidLink, src.ChildByName("kid").LinkID())
	assert.NotEqual(t, object.UnlinkedID, extra.LinkID())
	assert.NotNil(t, pf.Root().ChildByName("extra"))
}

func TestUpdateFromPrefab(t *testing.T) {
	m, pf, lib, src := makePrefab(t)
	inst, err := pf.Instantiate(lib)
	require.NoError(t, err)
	inst.SetParent(m.Root(), false)

	// record an instance override
	GetComponent[*recorder](inst.ChildByName("kid")).Speed = 5
	d, err := NewPrefabDiff(pf.Root(), inst)
	require.NoError(t, err)
	require.NotNil(t, d)
	inst.SetPrefabDiff(d)

	// template gains a child and a new default
	m.NewSceneObject("extra", src)
	GetComponent[*recorder](src.ChildByName("kid")).Speed = 3
	require.NoError(t, pf.Update(src))
	require.NotEqual(t, inst.PrefabHash(), pf.Hash())

	kidHandle := inst.ChildByName("kid").Handle()
	top, err := UpdateFromPrefab(inst, lib)
	require.NoError(t, err)
	require.NotNil(t, top)
	assert.True(t, inst.IsDestroyed())
	assert.Equal(t, pf.Hash(), top.PrefabHash())
	assert.Equal(t, m.Root(), top.Parent())
	assert.True(t, top.IsInstantiated())

	// new template content present
	assert.NotNil(t, top.ChildByName("extra"))
	// instance override survives the refresh
	kid := top.ChildByName("kid")
	require.NotNil(t, kid)
	assert.Equal(t, float32(5), GetComponent[*recorder](kid).Speed)
	// stale handles follow to the rebuilt content
	require.False(t, kidHandle.IsDestroyed())
	assert.Equal(t, kid.InstanceID(), kidHandle.ID())
}

func TestUpdateFromPrefabNoopWhenCurrent(t *testing.T) {
	m, pf, lib, _ := makePrefab(t)
	inst, err := pf.Instantiate(lib)
	require.NoError(t, err)
	inst.SetParent(m.Root(), false)

	top, err := UpdateFromPrefab(inst, lib)
	require.NoError(t, err)
	assert.Same(t, inst, top)
	assert.False(t, inst.IsDestroyed())
}

func TestPrefabSaveLoad(t *testing.T) {
	m, pf, _, _ := makePrefab(t)
	b, err := pf.Save()
	require.NoError(t, err)

	loaded, err := m.LoadPrefab(b)
	require.NoError(t, err)
	assert.Equal(t, pf.UUID(), loaded.UUID())
	assert.Equal(t, pf.Hash(), loaded.Hash())
	require.True(t, loaded.IsLoaded())
	kid := loaded.Root().ChildByName("kid")
	require.NotNil(t, kid)
	assert.Equal(t, float32(1), GetComponent[*recorder](kid).Speed)
}

func TestLibraryUnloadUnused(t *testing.T) {
	_, pf, lib, _ := makePrefab(t)
	lib.UnloadAllUnused()
	_, ok := lib.LoadFromUUID(pf.UUID())
	require.True(t, ok)
	lib.UnloadAllUnused() // marks were reset; the load above re-marked
	lib.UnloadAllUnused() // nothing loaded since last call: dropped
	_, ok = lib.LoadFromUUID(pf.UUID())
	assert.False(t, ok)
}
