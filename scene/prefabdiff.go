// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scene

import (
	"log/slog"

	"cogentcore.org/core/math32"
	"github.com/google/uuid"

	"cogentcore.org/scene/object"
	"cogentcore.org/scene/serial"
)

// PrefabDiff records the local overrides of a prefab instance against
// its template: scalar field changes, removed and added children and
// components, and field-level component deltas, matched by link id.
// A nil diff means the instance matches the template exactly.
type PrefabDiff struct {

	// Root is the override record for the instance root.
	Root *ObjectDiff
}

// ObjectDiff is the override record for one object of a prefab
// instance.
type ObjectDiff struct {

	// LinkID identifies the object within the prefab scope.
	LinkID uint32

	// Flags names which of the scalar fields below carry an override.
	Flags DiffFlags

	Name        string
	Translation math32.Vector3
	Rotation    math32.Quat
	Scale       math32.Vector3
	Active      bool

	// RemovedObjects and RemovedComponents list link ids present in
	// the template but deleted from the instance.
	RemovedObjects    []uint32 `json:",omitempty"`
	RemovedComponents []uint32 `json:",omitempty"`

	// AddedObjects and AddedComponents hold the serialized form of
	// children and components added to the instance.
	AddedObjects    []serial.Object `json:",omitempty"`
	AddedComponents []serial.Object `json:",omitempty"`

	// ComponentDiffs holds field-level deltas for components present
	// on both sides.
	ComponentDiffs []ComponentDiff `json:",omitempty"`

	// Children holds override records for matched children that
	// themselves diverge.
	Children []*ObjectDiff `json:",omitempty"`
}

// ComponentDiff is the field-level delta for one matched component.
type ComponentDiff struct {
	LinkID uint32
	Diff   serial.Object
}

// NewPrefabDiff computes the overrides of the given prefab instance
// against the given template content. Returns nil if the two are not
// instances of the same prefab, or if the instance carries no
// overrides. While comparing, instance ids within the instance scope
// are temporarily renamed to the corresponding template ids, so
// embedded references to unchanged scope members compare as identical.
func NewPrefabDiff(prefabRoot, instanceRoot *SceneObject) (*PrefabDiff, error) {
	if prefabRoot == nil || instanceRoot == nil {
		return nil, nil
	}
	if prefabRoot.prefabID == uuid.Nil || prefabRoot.prefabID != instanceRoot.prefabID {
		return nil, nil
	}
	restore := overrideScopeIDs(prefabRoot, instanceRoot)
	defer restore()
	root, err := diffObjects(prefabRoot, instanceRoot)
	if err != nil || root == nil {
		return nil, err
	}
	return &PrefabDiff{Root: root}, nil
}

// overrideScopeIDs renames the instance ids of every matched scope
// member of the instance to its template counterpart's id, returning a
// function restoring the originals. The registry id map is untouched.
func overrideScopeIDs(prefabRoot, instanceRoot *SceneObject) func() {
	reg := instanceRoot.mgr.registry
	type saved struct {
		obj object.GameObject
		id  uint64
	}
	var saves []saved
	var walk func(p, i *SceneObject)
	walk = func(p, i *SceneObject) {
		saves = append(saves, saved{i.This(), i.InstanceID()})
		reg.OverrideInstanceID(i.This(), p.InstanceID())
		for _, ic := range i.components {
			if pc := p.ComponentByLink(ic.AsObject().LinkID()); pc != nil {
				saves = append(saves, saved{ic, ic.AsObject().InstanceID()})
				reg.OverrideInstanceID(ic, pc.AsObject().InstanceID())
			}
		}
		for _, ich := range i.children {
			if pch := matchedChild(p, ich); pch != nil {
				walk(pch, ich)
			}
		}
	}
	walk(prefabRoot, instanceRoot)
	return func() {
		for _, s := range saves {
			reg.OverrideInstanceID(s.obj, s.id)
		}
	}
}

// matchedChild returns the child of p structurally matching the given
// instance child: same link id and same prefab linkage, so nested
// prefab boundaries scope the match.
func matchedChild(p *SceneObject, ic *SceneObject) *SceneObject {
	if ic.LinkID() == object.UnlinkedID {
		return nil
	}
	for _, pc := range p.children {
		if pc.LinkID() == ic.LinkID() && pc.prefabID == ic.prefabID {
			return pc
		}
	}
	return nil
}

// diffObjects computes the override record for one matched object pair,
// or nil if the pair is identical.
func diffObjects(p, i *SceneObject) (*ObjectDiff, error) {
	d := &ObjectDiff{LinkID: i.LinkID()}
	if p.Name != i.Name {
		d.Flags |= DiffName
		d.Name = i.Name
	}
	if p.local.Translation != i.local.Translation {
		d.Flags |= DiffTranslation
		d.Translation = i.local.Translation
	}
	if p.local.Rotation != i.local.Rotation {
		d.Flags |= DiffRotation
		d.Rotation = i.local.Rotation
	}
	if p.local.Scale != i.local.Scale {
		d.Flags |= DiffScale
		d.Scale = i.local.Scale
	}
	if p.activeSelf != i.activeSelf {
		d.Flags |= DiffActive
		d.Active = i.activeSelf
	}
	if err := diffComponents(p, i, d); err != nil {
		return nil, err
	}
	if err := diffChildren(p, i, d); err != nil {
		return nil, err
	}
	if d.Flags == 0 && len(d.RemovedObjects) == 0 && len(d.AddedObjects) == 0 &&
		len(d.RemovedComponents) == 0 && len(d.AddedComponents) == 0 &&
		len(d.ComponentDiffs) == 0 && len(d.Children) == 0 {
		return nil, nil
	}
	return d, nil
}

func diffComponents(p, i *SceneObject, d *ObjectDiff) error {
	for _, pc := range p.components {
		if i.ComponentByLink(pc.AsObject().LinkID()) == nil {
			d.RemovedComponents = append(d.RemovedComponents, pc.AsObject().LinkID())
		}
	}
	for _, ic := range i.components {
		link := ic.AsObject().LinkID()
		pc := p.ComponentByLink(link)
		if pc == nil || link == object.UnlinkedID {
			ce, err := encodeComponent(ic)
			if err != nil {
				return err
			}
			d.AddedComponents = append(d.AddedComponents, ce)
			continue
		}
		if serialTypeName(pc) != serialTypeName(ic) {
			slog.Warn("scene.NewPrefabDiff: component type mismatch at link id",
				"link", link, "prefab", serialTypeName(pc), "instance", serialTypeName(ic))
			continue
		}
		cd, err := serial.GenerateDiff(pc, ic)
		if err != nil {
			return err
		}
		if cd != nil {
			d.ComponentDiffs = append(d.ComponentDiffs, ComponentDiff{LinkID: link, Diff: cd})
		}
	}
	return nil
}

func diffChildren(p, i *SceneObject, d *ObjectDiff) error {
	for _, pch := range p.children {
		if matchedChild(i, pch) == nil {
			d.RemovedObjects = append(d.RemovedObjects, pch.LinkID())
		}
	}
	for _, ich := range i.children {
		pch := matchedChild(p, ich)
		if pch == nil {
			// only non-prefab-linked, save-eligible additions are
			// recorded; anything else is outside the diff's scope
			if ich.prefabID == uuid.Nil && !ich.HasFlag(DontSave) &&
				ich.LinkID() == object.UnlinkedID {
				enc, err := ich.encode()
				if err != nil {
					return err
				}
				d.AddedObjects = append(d.AddedObjects, enc)
			}
			continue
		}
		cd, err := diffObjects(pch, ich)
		if err != nil {
			return err
		}
		if cd != nil {
			d.Children = append(d.Children, cd)
		}
	}
	return nil
}

// Apply replays the recorded overrides onto the given freshly cloned
// instance under its own deserialization session, so handle references
// inside added content and changed fields resolve against the live
// graph. Removals run before additions; added children and components
// append at the end of their lists and are not instantiated here, so
// the caller can instantiate the whole result once.
func (pd *PrefabDiff) Apply(so *SceneObject) error {
	if pd == nil || pd.Root == nil {
		return nil
	}
	reg := so.mgr.registry
	reg.StartDeserialization()
	err := pd.Root.apply(so)
	reg.EndDeserialization(object.UseNewIDs | object.RestoreExternal | object.KeepMissing)
	return err
}

func (d *ObjectDiff) apply(so *SceneObject) error {
	if d.Flags&DiffName != 0 {
		so.Name = d.Name
	}
	// transform overrides are assigned directly, like decoded state:
	// the mobility-gated mutators would drop them on non-movable objects
	moved := false
	if d.Flags&DiffTranslation != 0 {
		so.local.Translation = d.Translation
		moved = true
	}
	if d.Flags&DiffRotation != 0 {
		so.local.Rotation = d.Rotation
		moved = true
	}
	if d.Flags&DiffScale != 0 {
		so.local.Scale = d.Scale
		moved = true
	}
	if moved {
		so.localDirty = true
		so.transformHash++
		so.WalkDown(func(cur *SceneObject) bool {
			cur.worldDirty = true
			return true
		})
	}
	if d.Flags&DiffActive != 0 {
		so.SetActive(d.Active)
	}
	for _, link := range d.RemovedComponents {
		if c := so.ComponentByLink(link); c != nil {
			c.AsComponent().DestroyImmediate()
		} else {
			slog.Debug("scene.PrefabDiff.Apply: removed component not found", "link", link)
		}
	}
	for _, link := range d.RemovedObjects {
		if ch := so.childByLink(link); ch != nil {
			ch.DestroyImmediate()
		} else {
			slog.Debug("scene.PrefabDiff.Apply: removed child not found", "link", link)
		}
	}
	for _, ce := range d.AddedComponents {
		if _, err := so.mgr.decodeComponent(so, ce); err != nil {
			return err
		}
	}
	for _, oe := range d.AddedObjects {
		child, err := so.mgr.decodeSceneObject(oe)
		if err != nil {
			return err
		}
		child.parent = so
		so.children = append(so.children, child)
		child.setActiveResolved(so.activeRes, false)
	}
	for _, cd := range d.ComponentDiffs {
		c := so.ComponentByLink(cd.LinkID)
		if c == nil {
			slog.Debug("scene.PrefabDiff.Apply: changed component not found", "link", cd.LinkID)
			continue
		}
		if err := serial.ApplyDiff(c, cd.Diff); err != nil {
			return err
		}
		// replaying the delta leaves every handle field pending again;
		// re-register them all for resolution at session end
		so.mgr.registerPendingHandles(c)
	}
	for _, cd := range d.Children {
		ch := so.childByLink(cd.LinkID)
		if ch == nil {
			slog.Debug("scene.PrefabDiff.Apply: changed child not found", "link", cd.LinkID)
			continue
		}
		if err := cd.apply(ch); err != nil {
			return err
		}
	}
	return nil
}

// childByLink returns the child with the given link id, or nil.
func (so *SceneObject) childByLink(linkID uint32) *SceneObject {
	for _, c := range so.children {
		if c.LinkID() == linkID {
			return c
		}
	}
	return nil
}
