// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scene

import (
	"log/slog"
	"strings"

	"cogentcore.org/core/base/errors"
	"cogentcore.org/core/math32"
	"github.com/google/uuid"

	"cogentcore.org/scene/object"
)

// SceneObject is a node in the scene hierarchy: it carries a local
// transform, a mobility tier, an active flag, an ordered list of
// children, and an ordered list of attached [Component] behaviors.
// Scene objects are created through [Manager.NewSceneObject] and are
// identified by their registry instance id; references between objects
// are held as [object.Handle] values.
type SceneObject struct {
	object.GameObjectBase

	flags      Flags
	mobility   Mobility
	mgr        *Manager
	parent     *SceneObject
	children   []*SceneObject
	components []Component

	// local is the authoritative parent-relative transform. world, and
	// the two matrices, are caches rebuilt on demand when dirty.
	local       Transform
	world       Transform
	localMatrix math32.Matrix4
	worldMatrix math32.Matrix4
	localDirty  bool
	worldDirty  bool

	// transformHash is a change counter for cheap external change
	// detection. It increments on every successful transform mutation.
	transformHash uint64

	// activeSelf is the explicitly requested active flag; activeRes is
	// the resolved hierarchy activation (self and all ancestors).
	activeSelf bool
	activeRes  bool

	// instantiated is set once component lifecycle has begun for this
	// object. Decoded objects stay inert until [SceneObject.Instantiate].
	instantiated bool

	// prefabID links this object to the prefab it was instantiated
	// from, with prefabHash recording the structural version it was
	// built against and prefabDiff its local overrides.
	prefabID   uuid.UUID
	prefabHash uint64
	prefabDiff *PrefabDiff
}

// Manager returns the manager owning this object.
func (so *SceneObject) Manager() *Manager {
	return so.mgr
}

// HasFlag returns whether all of the given flags are set.
func (so *SceneObject) HasFlag(f Flags) bool {
	return so.flags&f == f
}

// SetFlag sets or clears the given flags.
func (so *SceneObject) SetFlag(on bool, f Flags) {
	if on {
		so.flags |= f
	} else {
		so.flags &^= f
	}
}

// IsInstantiated returns whether component lifecycle has begun for this
// object.
func (so *SceneObject) IsInstantiated() bool {
	return so.instantiated
}

// PrefabUUID returns the UUID of the prefab this object is an instance
// of, or the zero UUID if it is not prefab-linked.
func (so *SceneObject) PrefabUUID() uuid.UUID {
	return so.prefabID
}

// PrefabHash returns the structural version of the prefab this instance
// was built against.
func (so *SceneObject) PrefabHash() uint64 {
	return so.prefabHash
}

// PrefabDiff returns this instance's recorded local overrides against
// its prefab, or nil.
func (so *SceneObject) PrefabDiff() *PrefabDiff {
	return so.prefabDiff
}

// SetPrefabDiff records this instance's local overrides against its
// prefab, replacing any previous record.
func (so *SceneObject) SetPrefabDiff(diff *PrefabDiff) {
	so.prefabDiff = diff
}

// Hierarchy:

// Parent returns the parent object, or nil at the hierarchy root.
func (so *SceneObject) Parent() *SceneObject {
	return so.parent
}

// Children returns the ordered child list. The slice is owned by the
// object and must not be modified.
func (so *SceneObject) Children() []*SceneObject {
	return so.children
}

// NumChildren returns the number of children.
func (so *SceneObject) NumChildren() int {
	return len(so.children)
}

// Child returns the child at the given index, or nil if the index is
// out of range.
func (so *SceneObject) Child(i int) *SceneObject {
	if i < 0 || i >= len(so.children) {
		return nil
	}
	return so.children[i]
}

// ChildByName returns the first child with the given name, or nil.
func (so *SceneObject) ChildByName(name string) *SceneObject {
	for _, c := range so.children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Path returns the slash-separated name path from the hierarchy root
// to this object.
func (so *SceneObject) Path() string {
	if so.parent == nil {
		return "/" + so.Name
	}
	return so.parent.Path() + "/" + so.Name
}

// FindPath returns the descendant at the given slash-separated name
// path relative to this object, or nil if any segment is missing.
func (so *SceneObject) FindPath(path string) *SceneObject {
	cur := so
	for _, seg := range strings.Split(strings.Trim(path, "/"), "/") {
		if seg == "" {
			continue
		}
		cur = cur.ChildByName(seg)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// WalkDown calls the given function on this object and then, if it
// returns true, on every descendant in depth-first pre-order.
func (so *SceneObject) WalkDown(fun func(so *SceneObject) bool) {
	if !fun(so) {
		return
	}
	for _, c := range so.children {
		c.WalkDown(fun)
	}
}

// WalkUp calls the given function on this object and each successive
// ancestor until it returns false or the root is passed.
func (so *SceneObject) WalkUp(fun func(so *SceneObject) bool) {
	for cur := so; cur != nil; cur = cur.parent {
		if !fun(cur) {
			return
		}
	}
}

// IsAncestorOf returns whether this object is a strict ancestor of the
// given object.
func (so *SceneObject) IsAncestorOf(other *SceneObject) bool {
	for cur := other.parent; cur != nil; cur = cur.parent {
		if cur == so {
			return true
		}
	}
	return false
}

// SetParent moves this object under the given parent (nil detaches it
// from the hierarchy), appending it to the parent's child list. If
// keepWorld is true the world transform is preserved by recomputing the
// local transform; non-[Movable] objects always preserve world.
// Reparenting to self or under a destroyed parent or own descendant is
// rejected. The resolved activation of the whole subtree is re-derived
// from the new parent chain.
func (so *SceneObject) SetParent(parent *SceneObject, keepWorld bool) {
	if parent == so {
		return
	}
	if parent != nil && parent.IsDestroyed() {
		slog.Warn("scene.SceneObject.SetParent: destroyed parent", "name", so.Name)
		return
	}
	if parent != nil && so.IsAncestorOf(parent) {
		slog.Error("scene.SceneObject.SetParent: parent is own descendant", "name", so.Name)
		return
	}
	if so.mobility != Movable {
		keepWorld = true
	}
	var w Transform
	if keepWorld {
		w = so.Transform()
	}
	so.detach()
	so.parent = parent
	if parent != nil {
		parent.children = append(parent.children, so)
	}
	if keepWorld {
		if parent != nil {
			pw := parent.Transform()
			so.local.SetFromRelative(&w, &pw)
		} else {
			so.local = w
		}
	}
	so.localDirty = true
	so.worldDirty = true
	so.transformHash++
	so.notifyTransformChanged(ChangedTransform | ChangedParent)
	so.setActiveResolved(parent == nil || parent.activeRes, so.instantiated)
}

// detach removes the object from its parent's child list.
func (so *SceneObject) detach() {
	if so.parent == nil {
		return
	}
	kids := so.parent.children
	for i, c := range kids {
		if c == so {
			so.parent.children = append(kids[:i], kids[i+1:]...)
			break
		}
	}
	so.parent = nil
}

// Activation:

// ActiveSelf returns the explicitly requested active flag, independent
// of ancestors.
func (so *SceneObject) ActiveSelf() bool {
	return so.activeSelf
}

// Active returns the resolved activation: whether this object and all
// of its ancestors are explicitly active.
func (so *SceneObject) Active() bool {
	return so.activeRes
}

// SetActive sets the explicit active flag and re-derives the resolved
// activation of this object and every descendant, firing component
// activation transitions where the resolved value changed.
func (so *SceneObject) SetActive(active bool) {
	so.activeSelf = active
	so.setActiveResolved(so.parent == nil || so.parent.activeRes, true)
}

// setActiveResolved recomputes resolved activation given the parent's,
// firing component transitions on change when triggerEvents is set.
// Children are always re-derived, changed or not, so a subtree freshly
// attached under a differently activated chain settles consistently.
func (so *SceneObject) setActiveResolved(parentActive, triggerEvents bool) {
	res := parentActive && so.activeSelf
	if res != so.activeRes {
		so.activeRes = res
		if triggerEvents {
			for _, c := range so.components {
				if res {
					so.mgr.notifyComponentActivated(c)
				} else {
					so.mgr.notifyComponentDeactivated(c)
				}
			}
		}
	}
	for _, c := range so.children {
		c.setActiveResolved(res, triggerEvents)
	}
}

// Components:

// Components returns the ordered component list. The slice is owned by
// the object and must not be modified.
func (so *SceneObject) Components() []Component {
	return so.components
}

// NumComponents returns the number of attached components.
func (so *SceneObject) NumComponents() int {
	return len(so.components)
}

// ComponentByLink returns the attached component with the given link
// id, or nil.
func (so *SceneObject) ComponentByLink(linkID uint32) Component {
	for _, c := range so.components {
		if c.AsObject().LinkID() == linkID {
			return c
		}
	}
	return nil
}

// AddComponent attaches the given component to this object, registering
// it and appending it to the component list. If the object is
// instantiated, the component's creation lifecycle runs immediately.
// Returns a handle to the component, or an empty handle if the
// component is nil or already attached elsewhere.
func (so *SceneObject) AddComponent(c Component) object.Handle {
	if c == nil || c.AsComponent().owner != nil {
		slog.Error("scene.SceneObject.AddComponent: nil or already attached component", "name", so.Name)
		return object.Handle{}
	}
	h := so.attachComponent(c, 0)
	if so.instantiated {
		so.mgr.notifyComponentCreated(c)
	}
	return h
}

// attachComponent registers and appends a component without starting
// its lifecycle. During a deserialization session, originalID is the id
// the component carried in serialized form.
func (so *SceneObject) attachComponent(c Component, originalID uint64) object.Handle {
	cb := c.AsComponent()
	cb.owner = so
	h := so.mgr.registry.RegisterObject(c, originalID)
	so.components = append(so.components, c)
	return h
}

// removeComponent erases the component from the component list.
func (so *SceneObject) removeComponent(c Component) {
	for i, e := range so.components {
		if e == c {
			so.components = append(so.components[:i], so.components[i+1:]...)
			return
		}
	}
	slog.Error("scene.SceneObject.removeComponent: component not attached", "name", so.Name)
}

// Lifecycle:

// Instantiate starts component lifecycle for this subtree: every
// not-yet-created component receives its creation callbacks, in
// attachment order, depth-first. Subtrees flagged [DontInstantiate]
// are skipped. Safe to call repeatedly; already-created components are
// untouched.
func (so *SceneObject) Instantiate() {
	if so.HasFlag(DontInstantiate) {
		return
	}
	so.instantiated = true
	for _, c := range so.components {
		if !c.AsComponent().created {
			so.mgr.notifyComponentCreated(c)
		}
	}
	for _, c := range so.children {
		c.Instantiate()
	}
}

// Destroy detaches this object from its parent now and enqueues it for
// finalization at the end of the current frame tick, so handles stay
// valid for the remainder of the frame.
func (so *SceneObject) Destroy() {
	if so.IsDestroyed() {
		return
	}
	so.detach()
	so.mgr.registry.QueueForDestroy(so.Handle())
}

// DestroyImmediate finalizes this object now: children are destroyed
// first, then components back to front, each removed from its owning
// list before its destruction callbacks fire, then the object itself is
// unregistered.
func (so *SceneObject) DestroyImmediate() {
	if so.IsDestroyed() {
		return
	}
	so.detach()
	for len(so.children) > 0 {
		so.children[len(so.children)-1].DestroyImmediate()
	}
	for len(so.components) > 0 {
		c := so.components[len(so.components)-1]
		c.AsComponent().DestroyImmediate()
	}
	so.mgr.registry.UnregisterObject(so.Handle())
}

// Clone returns a deep copy of this subtree, made through serialized
// form so component fields and internal handle references come along,
// with internal references re-targeted to the copies and references to
// objects outside the subtree preserved. The copy has no parent. If
// instantiate is false the copy is inert until
// [SceneObject.Instantiate].
func (so *SceneObject) Clone(instantiate bool) (*SceneObject, error) {
	data, err := so.encode()
	if err != nil {
		return nil, err
	}
	reg := so.mgr.registry
	reg.StartDeserialization()
	clone, err := so.mgr.decodeSceneObject(data)
	reg.EndDeserialization(object.UseNewIDs | object.RestoreExternal)
	if err != nil {
		return nil, err
	}
	if instantiate {
		clone.Instantiate()
	}
	return clone, nil
}

// CopyFrom copies name, flags, mobility, explicit activation, and the
// local transform from the given object, and field values between
// components matched pairwise by position and type. Identity, parent,
// children, and unmatched components are untouched.
func (so *SceneObject) CopyFrom(from *SceneObject) {
	so.Name = from.Name
	so.flags = from.flags
	so.mobility = from.mobility
	so.activeSelf = from.activeSelf
	so.local = from.local
	so.localDirty = true
	so.worldDirty = true
	so.transformHash++
	for i, c := range so.components {
		if i >= len(from.components) {
			break
		}
		fc := from.components[i]
		if serialTypeName(c) == serialTypeName(fc) {
			c.CopyFieldsFrom(fc)
		}
	}
}

// Transforms:

// Mobility returns the mobility tier.
func (so *SceneObject) Mobility() Mobility {
	return so.mobility
}

// SetMobility sets the mobility tier, notifying subscribed components
// on this object. The mobility change itself is not propagated to
// children.
func (so *SceneObject) SetMobility(m Mobility) {
	if so.mobility == m {
		return
	}
	so.mobility = m
	so.notifyTransformChanged(ChangedMobility)
}

// LocalTransform returns the parent-relative transform.
func (so *SceneObject) LocalTransform() Transform {
	return so.local
}

// Transform returns the world-space transform, recomputing it if any
// transform on the parent chain changed since the last read.
func (so *SceneObject) Transform() Transform {
	so.updateWorldTransform()
	return so.world
}

// LocalMatrix returns the matrix form of the local transform,
// recomputed lazily.
func (so *SceneObject) LocalMatrix() math32.Matrix4 {
	so.updateLocalTransform()
	return so.localMatrix
}

// WorldMatrix returns the local-to-world matrix, recomputed lazily.
func (so *SceneObject) WorldMatrix() math32.Matrix4 {
	so.updateWorldTransform()
	return so.worldMatrix
}

// InvWorldMatrix returns the world-to-local matrix. A degenerate world
// matrix is logged and yields identity.
func (so *SceneObject) InvWorldMatrix() math32.Matrix4 {
	m := so.WorldMatrix()
	inv, err := m.Inverse()
	if err != nil {
		errors.Log(err)
		return *math32.Identity4()
	}
	return *inv
}

// TransformHash returns the transform change counter. It increments on
// every successful transform mutation, so callers can detect changes
// without comparing transforms.
func (so *SceneObject) TransformHash() uint64 {
	return so.transformHash
}

func (so *SceneObject) updateLocalTransform() {
	if !so.localDirty {
		return
	}
	so.local.Defaults()
	so.localMatrix = so.local.Matrix()
	so.localDirty = false
}

func (so *SceneObject) updateWorldTransform() {
	if !so.worldDirty {
		return
	}
	so.updateLocalTransform()
	if so.mobility != Movable || so.parent == nil {
		// non-movable objects are world-anchored: the local transform
		// is the world transform, with no parent influence
		so.world = so.local
		so.worldMatrix = so.localMatrix
	} else {
		pw := so.parent.Transform()
		so.world.SetFromComposed(&so.local, &pw)
		pm := so.parent.WorldMatrix()
		so.worldMatrix.MulMatrices(&pm, &so.localMatrix)
	}
	so.worldDirty = false
}

// canMove reports whether transform mutators apply. Mutations on
// non-movable objects are dropped.
func (so *SceneObject) canMove() bool {
	return so.mobility == Movable
}

// transformChanged marks caches dirty, bumps the change counter, and
// notifies subscribed components and children after a successful local
// transform mutation.
func (so *SceneObject) transformChanged() {
	so.localDirty = true
	so.worldDirty = true
	so.transformHash++
	so.notifyTransformChanged(ChangedTransform)
}

// notifyTransformChanged delivers a transform-change notification to
// subscribed components and recurses into children. For non-movable
// objects the transform bit is stripped from component delivery, but
// the caches are force-dirtied and the change counter bumped so
// externally driven repositioning is still observable. The mobility bit
// never propagates to children.
func (so *SceneObject) notifyTransformChanged(changed TransformChanged) {
	if so.mobility != Movable {
		so.localDirty = true
		so.worldDirty = true
		so.transformHash++
		changed &^= ChangedTransform
	} else if changed&(ChangedTransform|ChangedParent) != 0 {
		so.worldDirty = true
	}
	if changed == 0 {
		return
	}
	for _, c := range so.components {
		cb := c.AsComponent()
		if cb.notify&changed == 0 {
			continue
		}
		if cb.alwaysRun() || so.mgr.state == Running {
			c.OnTransformChanged(changed)
		}
	}
	childChanged := changed &^ ChangedMobility
	if childChanged == 0 {
		return
	}
	for _, c := range so.children {
		c.notifyTransformChanged(childChanged)
	}
}

// SetTranslation sets the local translation. Like all transform
// mutators, it applies only to [Movable] objects.
func (so *SceneObject) SetTranslation(v math32.Vector3) {
	if !so.canMove() {
		return
	}
	so.local.Translation = v
	so.transformChanged()
}

// SetRotation sets the local rotation.
func (so *SceneObject) SetRotation(q math32.Quat) {
	if !so.canMove() {
		return
	}
	so.local.Rotation = q
	so.transformChanged()
}

// SetScale sets the local scale.
func (so *SceneObject) SetScale(v math32.Vector3) {
	if !so.canMove() {
		return
	}
	so.local.Scale = v
	so.transformChanged()
}

// Move adds the given parent-space delta to the local translation.
func (so *SceneObject) Move(delta math32.Vector3) {
	if !so.canMove() {
		return
	}
	so.local.Translation.SetAdd(delta)
	so.transformChanged()
}

// MoveOnAxis moves along the given local axis, rotated by the current
// rotation, by the given distance.
func (so *SceneObject) MoveOnAxis(x, y, z, dist float32) {
	if !so.canMove() {
		return
	}
	d := math32.Vec3(x, y, z).Normal().MulQuat(so.local.Rotation).MulScalar(dist)
	so.local.Translation.SetAdd(d)
	so.transformChanged()
}

// Rotate composes the given rotation onto the local rotation.
func (so *SceneObject) Rotate(q math32.Quat) {
	if !so.canMove() {
		return
	}
	so.local.Rotation.SetMul(q)
	so.transformChanged()
}

// RotateEuler composes a rotation given as Euler angles in degrees
// onto the local rotation.
func (so *SceneObject) RotateEuler(x, y, z float32) {
	if !so.canMove() {
		return
	}
	so.local.Rotation.SetMul(
		math32.NewQuatEuler(math32.Vec3(x, y, z).MulScalar(math32.DegToRadFactor)))
	so.transformChanged()
}

// Pitch rotates around the X axis by the given angle in degrees.
func (so *SceneObject) Pitch(deg float32) {
	so.RotateEuler(deg, 0, 0)
}

// Yaw rotates around the Y axis by the given angle in degrees.
func (so *SceneObject) Yaw(deg float32) {
	so.RotateEuler(0, deg, 0)
}

// Roll rotates around the Z axis by the given angle in degrees.
func (so *SceneObject) Roll(deg float32) {
	so.RotateEuler(0, 0, deg)
}

// LookAt rotates to point at the given target position with the given
// up vector, in parent space.
func (so *SceneObject) LookAt(target, up math32.Vector3) {
	if !so.canMove() {
		return
	}
	so.local.Rotation.SetFromRotationMatrix(
		math32.NewLookAt(so.local.Translation, target, up))
	so.transformChanged()
}

// SetForward rotates so the local forward axis (negative Z) points
// along the given direction.
func (so *SceneObject) SetForward(dir math32.Vector3) {
	if !so.canMove() {
		return
	}
	so.local.Rotation.SetFromUnitVectors(math32.Vec3(0, 0, -1), dir.Normal())
	so.transformChanged()
}

// World-space accessors and mutators:

// WorldTranslation returns the world-space position.
func (so *SceneObject) WorldTranslation() math32.Vector3 {
	return so.Transform().Translation
}

// WorldRotation returns the world-space rotation.
func (so *SceneObject) WorldRotation() math32.Quat {
	return so.Transform().Rotation
}

// WorldScale returns the world-space scale.
func (so *SceneObject) WorldScale() math32.Vector3 {
	return so.Transform().Scale
}

// SetWorldTranslation sets the local translation such that the
// world-space position becomes the given value.
func (so *SceneObject) SetWorldTranslation(v math32.Vector3) {
	if so.parent == nil || so.mobility != Movable {
		so.SetTranslation(v)
		return
	}
	pw := so.parent.Transform()
	so.SetTranslation(v.Sub(pw.Translation).
		MulQuat(pw.Rotation.Inverse()).Div(pw.Scale))
}

// SetWorldRotation sets the local rotation such that the world-space
// rotation becomes the given value.
func (so *SceneObject) SetWorldRotation(q math32.Quat) {
	if so.parent == nil || so.mobility != Movable {
		so.SetRotation(q)
		return
	}
	pw := so.parent.Transform()
	ip := pw.Rotation.Inverse()
	so.SetRotation(ip.Mul(q))
}

// WorldBounds returns the world-space bounds aggregated over this
// subtree's components through [Component.CalculateBounds], and whether
// any component contributed.
func (so *SceneObject) WorldBounds() (math32.Box3, bool) {
	bounds := math32.B3Empty()
	got := false
	so.WalkDown(func(cur *SceneObject) bool {
		for _, c := range cur.components {
			b := math32.B3Empty()
			if c.CalculateBounds(&b) {
				bounds.ExpandByBox(b)
				got = true
			}
		}
		return true
	})
	return bounds, got
}
