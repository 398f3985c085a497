// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scene

// Flags are scene-object bit flags. All bits are independent and
// combinable; every "apply if bit set" check is additive.
type Flags uint32

const (
	// DontInstantiate marks a subtree that must not be instantiated:
	// its components never receive lifecycle callbacks.
	DontInstantiate Flags = 1 << iota

	// DontSave excludes the object (and its subtree) from serialized
	// forms, including prefab content.
	DontSave

	// Persistent marks an object that survives scene transitions.
	Persistent

	// Internal marks engine-owned objects that should be hidden from
	// user-facing listings.
	Internal
)

// ComponentFlags are component bit flags.
type ComponentFlags uint32

const (
	// AlwaysRun forces a component's lifecycle callbacks to behave as
	// if the global run state were always [Running], regardless of the
	// [Manager] state. It does not override owner hierarchy
	// activation: an inactive owner still disables the component.
	AlwaysRun ComponentFlags = 1 << iota
)

// TransformChanged is the bitmask of change kinds delivered to
// [Component.OnTransformChanged] and used by components to opt in to
// transform-change notification.
type TransformChanged uint32

const (
	// ChangedTransform indicates the local transform changed.
	ChangedTransform TransformChanged = 1 << iota

	// ChangedParent indicates the object was reparented.
	ChangedParent

	// ChangedMobility indicates the mobility tier changed. Mobility is
	// local-only: this bit is stripped before recursing into children.
	ChangedMobility
)

// DiffFlags records which scalar scene-object fields a prefab diff
// carries.
type DiffFlags uint32

const (
	// DiffName records a changed display name.
	DiffName DiffFlags = 1 << iota

	// DiffTranslation records a changed local translation.
	DiffTranslation

	// DiffRotation records a changed local rotation.
	DiffRotation

	// DiffScale records a changed local scale.
	DiffScale

	// DiffActive records a changed explicit active flag.
	DiffActive
)

// Mobility is the per-object tier gating whether transform mutation is
// permitted and whether the object inherits parent transform changes.
type Mobility int32

const (
	// Movable objects can be freely repositioned and compose their
	// world transform with their parent's.
	Movable Mobility = iota

	// Stationary objects reject transform mutators and do not inherit
	// parent transform changes, but may still be repositioned through
	// external notification.
	Stationary

	// Static objects are fully immovable anchors.
	Static
)

// String returns the name of the mobility tier.
func (m Mobility) String() string {
	switch m {
	case Movable:
		return "Movable"
	case Stationary:
		return "Stationary"
	case Static:
		return "Static"
	}
	return "Mobility(invalid)"
}
