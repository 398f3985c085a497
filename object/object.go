// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package object provides process-unique identity for game objects:
// the [Registry] assigns instance ids, resolves [Handle] references,
// finalizes deferred destruction, and runs the deserialization-session
// protocol that keeps cross-references intact when an object graph is
// decoded from its serialized form.
package object

// UnlinkedID is the sentinel link id for objects that are not part of
// any prefab hierarchy.
const UnlinkedID uint32 = 0

// GameObject is the interface satisfied by every registry-managed object
// (scene objects and components). The core functionality is defined on
// [GameObjectBase], which all higher-level object types must embed.
// Call [GameObject.AsObject] to access it.
type GameObject interface {

	// AsObject returns the [GameObjectBase] of this object.
	AsObject() *GameObjectBase

	// OnDestroyed is called by the [Registry] when the object is
	// unregistered, after it has been removed from the id map but
	// before its handle is tombstoned. It does nothing by default.
	OnDestroyed()

	// DestroyImmediate finalizes the object now, tearing down anything
	// it owns and unregistering it from the [Registry]. The registry
	// calls this when flushing the destroy queue.
	DestroyImmediate()
}

// GameObjectBase implements the common identity state for [GameObject].
// Objects must be created through a factory that registers them with a
// [Registry]; the zero value has no identity and no working [Handle].
type GameObjectBase struct {

	// Name is the display name of this object. It is not required
	// to be unique.
	Name string

	// this is the value of this object as its true underlying type,
	// set at registration. It allows methods defined on base types to
	// call methods defined on higher-level types.
	this GameObject

	// instanceID is the process-unique id assigned at registration.
	instanceID uint64

	// linkID is the prefab-scoped structural id ([UnlinkedID] if none).
	// It is independent of instanceID.
	linkID uint32

	// destroyed is the tombstone flag, set when the object is
	// unregistered.
	destroyed bool

	// data is the indirection record that all handles to this object
	// share. It is swappable through [Registry.Relink] when restoring
	// references after cloning.
	data *InstanceData

	// registry is the owning registry, set at registration.
	registry *Registry
}

// AsObject returns the [GameObjectBase] for this object.
func (b *GameObjectBase) AsObject() *GameObjectBase {
	return b
}

// This returns this object as its true underlying type,
// or nil if it has not been registered.
func (b *GameObjectBase) This() GameObject {
	return b.this
}

// InstanceID returns the process-unique instance id,
// which is 0 until the object is registered.
func (b *GameObjectBase) InstanceID() uint64 {
	return b.instanceID
}

// LinkID returns the prefab-scoped link id ([UnlinkedID] if unlinked).
func (b *GameObjectBase) LinkID() uint32 {
	return b.linkID
}

// SetLinkID sets the prefab-scoped link id.
func (b *GameObjectBase) SetLinkID(id uint32) {
	b.linkID = id
}

// IsDestroyed returns whether this object has been tombstoned.
func (b *GameObjectBase) IsDestroyed() bool {
	return b.destroyed
}

// Registry returns the registry this object is registered with,
// or nil if it has not been registered.
func (b *GameObjectBase) Registry() *Registry {
	return b.registry
}

// Handle returns a handle sharing this object's indirection record.
func (b *GameObjectBase) Handle() Handle {
	return Handle{data: b.data}
}

// OnDestroyed is a placeholder implementation of
// [GameObject.OnDestroyed] that does nothing.
func (b *GameObjectBase) OnDestroyed() {}

// DestroyImmediate unregisters the object. Higher-level types that own
// other objects must override this to tear them down first.
func (b *GameObjectBase) DestroyImmediate() {
	if b.destroyed || b.registry == nil {
		return
	}
	b.registry.UnregisterObject(b.Handle())
}
