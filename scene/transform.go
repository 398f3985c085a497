// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scene

import "cogentcore.org/core/math32"

// Transform is a translation, rotation, and scale triple. Scene objects
// hold one in parent-relative (local) space and derive one in world
// space by composing up the parent chain.
type Transform struct {

	// Translation is the position offset.
	Translation math32.Vector3

	// Rotation is a normalized quaternion.
	Rotation math32.Quat

	// Scale is the componentwise scale factor.
	Scale math32.Vector3
}

// NewTransform returns an identity transform.
func NewTransform() Transform {
	t := Transform{}
	t.Defaults()
	return t
}

// Defaults sets a nil rotation to identity and a zero scale to 1,
// leaving valid values alone. Called after decoding from serialized
// form.
func (t *Transform) Defaults() {
	if t.Rotation.IsNil() {
		t.Rotation.SetIdentity()
	}
	if t.Scale == (math32.Vector3{}) {
		t.Scale.Set(1, 1, 1)
	}
}

// Matrix returns the affine matrix form of the transform.
func (t *Transform) Matrix() math32.Matrix4 {
	var m math32.Matrix4
	m.SetTransform(t.Translation, t.Rotation, t.Scale)
	return m
}

// SetFromComposed sets this transform to the world-space composition of
// a local transform under a parent world transform.
func (t *Transform) SetFromComposed(local, parent *Transform) {
	t.Scale = local.Scale.Mul(parent.Scale)
	// parent applied after local, matching the matrix product
	t.Rotation = parent.Rotation.Mul(local.Rotation)
	t.Translation = local.Translation.Mul(parent.Scale).
		MulQuat(parent.Rotation).Add(parent.Translation)
}

// SetFromRelative sets this transform to the local transform that,
// composed under the given parent world transform, yields the given
// world transform. It is the inverse of [Transform.SetFromComposed].
func (t *Transform) SetFromRelative(world, parent *Transform) {
	ip := parent.Rotation.Inverse()
	t.Scale = world.Scale.Div(parent.Scale)
	t.Rotation = ip.Mul(world.Rotation)
	t.Translation = world.Translation.Sub(parent.Translation).
		MulQuat(ip).Div(parent.Scale)
}
