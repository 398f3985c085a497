// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scene

import (
	"log/slog"

	"cogentcore.org/core/math32"
	"github.com/jinzhu/copier"

	"cogentcore.org/scene/object"
)

// Component is the interface satisfied by every behavior attached to a
// [SceneObject]. The core functionality is defined on [ComponentBase],
// which all component types must embed as their first field; call
// [Component.AsComponent] to access it. Lifecycle callbacks are driven
// by the owning [Manager] and have empty default implementations, so
// component types only override what they need.
type Component interface {
	object.GameObject

	// AsComponent returns the [ComponentBase] of this component.
	AsComponent() *ComponentBase

	// OnCreated is called exactly once, immediately when the component
	// is added to an instantiated object (or when its owner is
	// instantiated), regardless of run state or activation.
	OnCreated()

	// OnInitialized is called exactly once before the first OnEnabled,
	// deferred while the manager is stopped unless the component is
	// flagged [AlwaysRun].
	OnInitialized()

	// OnEnabled is called when the component becomes logically enabled:
	// its owner hierarchy is active and the run state (or [AlwaysRun])
	// permits running.
	OnEnabled()

	// OnDisabled is called when a previously enabled component stops
	// being enabled. OnEnabled and OnDisabled always alternate.
	OnDisabled()

	// OnTransformChanged is called when the owner's transform, parent,
	// or mobility changes, for components that opted in to the relevant
	// bits through [ComponentBase.SetTransformNotify].
	OnTransformChanged(changed TransformChanged)

	// Update is called once per frame while the component is active.
	Update()

	// FixedUpdate is called at a fixed timestep while the component is
	// active, independently of the render frame rate.
	FixedUpdate()

	// CalculateBounds extends the given box with this component's
	// world-space bounds, returning whether it contributed real bounds.
	// The default implementation extends the box to a zero-volume point
	// at the owner's position and returns false.
	CalculateBounds(bounds *math32.Box3) bool

	// CopyFieldsFrom copies field values from the given source
	// component of the same type, preserving this component's identity
	// and list membership.
	CopyFieldsFrom(from Component)
}

// ComponentBase implements the common state for [Component]: owner
// linkage, flags, the transform-notification mask, and the packed
// manager list id.
type ComponentBase struct {
	object.GameObjectBase

	// flags are the component bit flags.
	flags ComponentFlags

	// notify is the mask of transform changes this component wants
	// delivered to OnTransformChanged.
	notify TransformChanged

	// managerID packs the list the component currently sits in and its
	// index there. Zero means the component is in no list.
	managerID uint32

	// owner is the scene object this component is attached to.
	owner *SceneObject

	// enabled tracks logical enablement: true strictly between an
	// OnEnabled and the matching OnDisabled.
	enabled bool

	// created is set when OnCreated has fired.
	created bool
}

// AsComponent returns the [ComponentBase] for this component.
func (cb *ComponentBase) AsComponent() *ComponentBase {
	return cb
}

// Owner returns the scene object this component is attached to,
// or nil if it is detached.
func (cb *ComponentBase) Owner() *SceneObject {
	return cb.owner
}

// ComponentFlags returns the component bit flags.
func (cb *ComponentBase) ComponentFlags() ComponentFlags {
	return cb.flags
}

// SetComponentFlags sets or clears the given component flags. Setting
// [AlwaysRun] after attachment does not retroactively initialize the
// component; it takes effect at the next lifecycle transition.
func (cb *ComponentBase) SetComponentFlags(on bool, flags ComponentFlags) {
	if on {
		cb.flags |= flags
	} else {
		cb.flags &^= flags
	}
}

// TransformNotify returns the transform-change mask this component
// subscribes to.
func (cb *ComponentBase) TransformNotify() TransformChanged {
	return cb.notify
}

// SetTransformNotify sets the transform-change mask this component
// subscribes to.
func (cb *ComponentBase) SetTransformNotify(mask TransformChanged) {
	cb.notify = mask
}

// IsEnabled returns whether the component is logically enabled.
func (cb *ComponentBase) IsEnabled() bool {
	return cb.enabled
}

func (cb *ComponentBase) alwaysRun() bool {
	return cb.flags&AlwaysRun != 0
}

// Destroy enqueues the component for finalization at the end of the
// current frame tick. Use [ComponentBase.DestroyImmediate] to finalize
// now.
func (cb *ComponentBase) Destroy() {
	if cb.IsDestroyed() || cb.Registry() == nil {
		return
	}
	cb.Registry().QueueForDestroy(cb.Handle())
}

// DestroyImmediate finalizes the component now: it is removed from its
// owner's list and the manager's lists before the disable and destroy
// callbacks fire, so callbacks querying siblings observe the reduced
// hierarchy.
func (cb *ComponentBase) DestroyImmediate() {
	if cb.IsDestroyed() {
		return
	}
	c, ok := cb.This().(Component)
	if !ok {
		slog.Error("scene.ComponentBase.DestroyImmediate: unregistered component", "name", cb.Name)
		return
	}
	if cb.owner != nil {
		cb.owner.removeComponent(c)
		cb.owner.mgr.notifyComponentDestroyed(c)
	}
	reg := cb.Registry()
	cb.owner = nil
	if reg != nil {
		reg.UnregisterObject(cb.Handle())
	}
}

// OnCreated is a placeholder implementation of [Component.OnCreated]
// that does nothing.
func (cb *ComponentBase) OnCreated() {}

// OnInitialized is a placeholder implementation of
// [Component.OnInitialized] that does nothing.
func (cb *ComponentBase) OnInitialized() {}

// OnEnabled is a placeholder implementation of [Component.OnEnabled]
// that does nothing.
func (cb *ComponentBase) OnEnabled() {}

// OnDisabled is a placeholder implementation of [Component.OnDisabled]
// that does nothing.
func (cb *ComponentBase) OnDisabled() {}

// OnTransformChanged is a placeholder implementation of
// [Component.OnTransformChanged] that does nothing.
func (cb *ComponentBase) OnTransformChanged(changed TransformChanged) {}

// Update is a placeholder implementation of [Component.Update] that
// does nothing.
func (cb *ComponentBase) Update() {}

// FixedUpdate is a placeholder implementation of
// [Component.FixedUpdate] that does nothing.
func (cb *ComponentBase) FixedUpdate() {}

// CalculateBounds is a placeholder implementation of
// [Component.CalculateBounds]: a zero-volume point at the owner's
// position, reported as no real bounds.
func (cb *ComponentBase) CalculateBounds(bounds *math32.Box3) bool {
	if cb.owner != nil {
		bounds.ExpandByPoint(cb.owner.WorldTranslation())
	}
	return false
}

// CopyFieldsFrom copies exported field values from the given component
// of the same underlying type, using a deep field copy. Identity, list
// membership, and owner linkage are untouched.
func (cb *ComponentBase) CopyFieldsFrom(from Component) {
	err := copier.CopyWithOption(cb.This(), from.AsObject().This(),
		copier.Option{CaseSensitive: true, DeepCopy: true})
	if err != nil {
		slog.Error("scene.ComponentBase.CopyFieldsFrom", "name", cb.Name, "err", err)
	}
}

// GetComponent returns the first component of the given type on the
// given scene object, or the zero value if there is none.
func GetComponent[T Component](so *SceneObject) T {
	for _, c := range so.components {
		if t, ok := c.(T); ok {
			return t
		}
	}
	var zero T
	return zero
}
