// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scene

import (
	"log/slog"
	"math"

	"github.com/google/uuid"

	"cogentcore.org/scene/object"
)

// walkScope calls the given function on the root and every descendant
// within the root's prefab scope: recursion stops at nested prefab
// boundaries, whose roots are still visited (their link id belongs to
// the enclosing scope) but whose content is not.
func walkScope(root *SceneObject, fun func(so *SceneObject, boundary bool)) {
	var walk func(so *SceneObject)
	walk = func(so *SceneObject) {
		boundary := so != root && so.prefabID != uuid.Nil
		fun(so, boundary)
		if boundary {
			return
		}
		for _, c := range so.children {
			walk(c)
		}
	}
	walk(root)
}

// GeneratePrefabIDs assigns link ids to every not-yet-linked object and
// component in the given subtree's prefab scope, monotonically
// increasing from the largest id already present, so existing links are
// preserved across template updates. Panics if the id space would wrap.
func GeneratePrefabIDs(root *SceneObject) {
	next := uint32(0)
	walkScope(root, func(so *SceneObject, boundary bool) {
		next = max(next, so.LinkID())
		if boundary {
			return
		}
		for _, c := range so.components {
			next = max(next, c.AsObject().LinkID())
		}
	})
	assign := func(b *object.GameObjectBase) {
		if b.LinkID() != object.UnlinkedID {
			return
		}
		if next == math.MaxUint32 {
			panic("scene.GeneratePrefabIDs: link id space exhausted")
		}
		next++
		b.SetLinkID(next)
	}
	walkScope(root, func(so *SceneObject, boundary bool) {
		assign(so.AsObject())
		if boundary {
			return
		}
		for _, c := range so.components {
			assign(c.AsObject())
		}
	})
}

// ClearPrefabIDs resets link ids to unlinked in the given subtree's
// prefab scope. clearRoot controls whether the root object itself (and
// its components) is cleared; recursive controls whether descendants
// within the scope are.
func ClearPrefabIDs(root *SceneObject, recursive, clearRoot bool) {
	walkScope(root, func(so *SceneObject, boundary bool) {
		if so == root && !clearRoot {
			return
		}
		if so != root && !recursive {
			return
		}
		so.SetLinkID(object.UnlinkedID)
		if boundary {
			return
		}
		for _, c := range so.components {
			c.AsObject().SetLinkID(object.UnlinkedID)
		}
	})
}

// UpdateFromPrefab refreshes stale prefab instances around the given
// object: it walks up to the nearest prefab-linked ancestor (the object
// itself if none is linked), then rebuilds every instance in that
// subtree whose recorded structural hash differs from the current
// template version in the loader, bottom-up so nested instances
// refresh before their enclosing one. Handles into rebuilt content are
// re-pointed at the replacement objects, recorded instance overrides
// are re-applied, and the result is instantiated once if the original
// was. Returns the (possibly replaced) top object.
func UpdateFromPrefab(so *SceneObject, loader Loader) (*SceneObject, error) {
	top := so
	so.WalkUp(func(cur *SceneObject) bool {
		if cur.prefabID != uuid.Nil {
			top = cur
			return false
		}
		return true
	})
	wasInstantiated := top.instantiated

	// collect instance roots bottom-up (children before parents)
	var roots []*SceneObject
	var collect func(cur *SceneObject)
	collect = func(cur *SceneObject) {
		for _, c := range cur.children {
			collect(c)
		}
		if cur.prefabID != uuid.Nil {
			roots = append(roots, cur)
		}
	}
	collect(top)

	for _, inst := range roots {
		if inst.IsDestroyed() {
			continue // replaced along with an already-rebuilt ancestor
		}
		res, ok := loader.LoadFromUUID(inst.prefabID)
		if !ok {
			slog.Debug("scene.UpdateFromPrefab: prefab not in loader", "uuid", inst.prefabID)
			continue
		}
		pf, ok := res.(*Prefab)
		if !ok || !pf.IsLoaded() {
			continue
		}
		if inst.prefabHash == pf.Hash() {
			continue
		}
		rebuilt, err := rebuildInstance(inst, pf)
		if err != nil {
			return top, err
		}
		if inst == top {
			top = rebuilt
		}
	}
	if wasInstantiated {
		top.Instantiate()
	}
	return top, nil
}

// refreshNestedPrefabs refreshes stale nested prefab instances below
// the given freshly cloned, not yet instantiated root.
func refreshNestedPrefabs(root *SceneObject, loader Loader) (*SceneObject, error) {
	return UpdateFromPrefab(root, loader)
}

// rebuildInstance replaces one stale prefab instance with a fresh clone
// of the current template: handles into the old content are captured by
// link id and re-pointed at the matching replacement objects, the
// instance's recorded overrides are re-applied, and its placement
// (parent, link id, local transform overrides) is restored. The result
// is not instantiated.
func rebuildInstance(inst *SceneObject, pf *Prefab) (*SceneObject, error) {
	mgr := inst.mgr
	reg := mgr.registry

	objLinks := map[uint32]object.Handle{}
	compLinks := map[uint32]object.Handle{}
	walkScope(inst, func(so *SceneObject, boundary bool) {
		if id := so.LinkID(); id != object.UnlinkedID {
			objLinks[id] = so.Handle()
		}
		if boundary {
			return
		}
		for _, c := range so.components {
			if id := c.AsObject().LinkID(); id != object.UnlinkedID {
				compLinks[id] = c.AsObject().Handle()
			}
		}
	})

	parent := inst.parent
	link := inst.LinkID()
	diff := inst.prefabDiff
	inst.DestroyImmediate()

	fresh, err := pf.clone()
	if err != nil {
		return nil, err
	}
	walkScope(fresh, func(so *SceneObject, boundary bool) {
		if h, ok := objLinks[so.LinkID()]; ok {
			reg.Relink(h, so.This())
		}
		if boundary {
			return
		}
		for _, c := range so.components {
			if h, ok := compLinks[c.AsObject().LinkID()]; ok {
				reg.Relink(h, c)
			}
		}
	})
	if err := diff.Apply(fresh); err != nil {
		return nil, err
	}
	fresh.prefabDiff = diff
	fresh.SetLinkID(link)
	if parent != nil {
		fresh.SetParent(parent, false)
	}
	return fresh, nil
}
