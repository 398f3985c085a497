// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package object

import (
	"log/slog"
)

// ResolveFlags is a bitmask controlling how unresolved handles are
// resolved at the end of a deserialization session. The bits are
// independent and combinable.
type ResolveFlags uint32

const (
	// UseNewIDs translates an original id to the id freshly assigned
	// during the session before looking it up.
	UseNewIDs ResolveFlags = 1 << iota

	// RestoreExternal attempts to resolve ids that were not part of
	// the just-deserialized graph against the live id map.
	RestoreExternal

	// KeepMissing leaves a handle pointing at its unresolved record
	// rather than nulling it when resolution fails.
	KeepMissing

	// BreakExternal forces ids that were not part of the
	// just-deserialized graph to resolve to null.
	BreakExternal
)

// pendingRef collects the handles awaiting resolution for one original
// id. All of them share one record so in-flight references converge.
type pendingRef struct {
	record  *InstanceData
	handles []*Handle
}

// session is the state of one deserialization session.
type session struct {
	unresolved map[uint64]*pendingRef
	order      []uint64 // resolution order of unresolved entries
	idMap      map[uint64]uint64
	callbacks  []func()
}

// Registry is the single source of truth mapping instance id to
// [Handle], and the only place allowed to finalize destruction.
// It is not safe for concurrent use: all scene-graph mutation happens
// on the single thread driving the frame tick.
type Registry struct {
	nextID       uint64
	objects      map[uint64]Handle
	destroyQueue map[uint64]Handle
	session      *session

	// relinked holds, per pointee id, the indirection records superseded
	// by [Registry.Relink], so they keep following across later relinks.
	relinked map[uint64][]*InstanceData
}

// NewRegistry returns a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		objects:      map[uint64]Handle{},
		destroyQueue: map[uint64]Handle{},
		relinked:     map[uint64][]*InstanceData{},
	}
}

// RegisterObject assigns the next instance id to the given object,
// attaches its indirection record, and inserts it into the id map,
// returning a handle to it. If a deserialization session is active,
// originalID must be the non-zero id the object carried in serialized
// form; any handles already registered as unresolved for that id are
// converged onto the object's record, and the original-to-new id
// mapping is recorded for the final resolution pass. Outside a session
// originalID must be 0.
func (r *Registry) RegisterObject(obj GameObject, originalID uint64) Handle {
	b := obj.AsObject()
	r.nextID++
	b.instanceID = r.nextID
	b.this = obj
	b.registry = r
	if r.session != nil {
		if originalID == 0 {
			panic("object.Registry.RegisterObject: zero original id during deserialization session")
		}
		if p, ok := r.session.unresolved[originalID]; ok {
			p.record.object = obj
			p.record.id = b.instanceID
			b.data = p.record
		}
		r.session.idMap[originalID] = b.instanceID
	}
	if b.data == nil {
		b.data = &InstanceData{object: obj, id: b.instanceID}
	} else {
		b.data.object = obj
		b.data.id = b.instanceID
	}
	h := Handle{data: b.data}
	r.objects[b.instanceID] = h
	return h
}

// GetObject returns the handle for the given instance id, or an empty
// handle if there is no such object.
func (r *Registry) GetObject(id uint64) Handle {
	return r.objects[id]
}

// TryGetObject returns the handle for the given instance id and
// whether it exists and is live.
func (r *Registry) TryGetObject(id uint64) (Handle, bool) {
	h, ok := r.objects[id]
	if !ok || h.IsDestroyed() {
		return Handle{}, false
	}
	return h, true
}

// NumObjects returns the number of live objects in the id map.
func (r *Registry) NumObjects() int {
	return len(r.objects)
}

// QueueForDestroy enqueues the given handle for destruction at the
// next [Registry.DestroyQueuedObjects]. It is idempotent: repeated
// requests for the same object, and requests for already-destroyed
// objects, are no-ops.
func (r *Registry) QueueForDestroy(h Handle) {
	if h.IsDestroyed() {
		return
	}
	r.destroyQueue[h.ID()] = h
}

// DestroyQueuedObjects finalizes every queued object and clears the
// queue. Objects enqueued during finalization are deferred to the next
// flush. Called once per frame tick and at [Registry.Close].
func (r *Registry) DestroyQueuedObjects() {
	for len(r.destroyQueue) > 0 {
		queue := r.destroyQueue
		r.destroyQueue = map[uint64]Handle{}
		for _, h := range queue {
			if h.IsDestroyed() {
				continue
			}
			h.Object().DestroyImmediate()
		}
	}
}

// UnregisterObject erases the object from the id map, fires its
// destroyed callback, and tombstones the handle. This is the only path
// that truly removes an id. Unregistering an already-destroyed or
// empty handle is a no-op.
func (r *Registry) UnregisterObject(h Handle) {
	obj := h.Object()
	if obj == nil {
		slog.Debug("object.Registry.UnregisterObject: handle already destroyed")
		return
	}
	b := obj.AsObject()
	delete(r.objects, b.instanceID)
	delete(r.destroyQueue, b.instanceID)
	obj.OnDestroyed()
	b.destroyed = true
}

// RemapID moves the id map entry from oldID to newID and renames the
// object's identity to match, so every handle sharing its record
// follows. It is a no-op if the ids are equal or oldID is not mapped.
func (r *Registry) RemapID(oldID, newID uint64) {
	if oldID == newID {
		return
	}
	h, ok := r.objects[oldID]
	if !ok {
		return
	}
	delete(r.objects, oldID)
	r.objects[newID] = h
	if h.data != nil {
		h.data.id = newID
		if h.data.object != nil {
			h.data.object.AsObject().instanceID = newID
		}
	}
}

// OverrideInstanceID temporarily renames an object's identity without
// touching the id map, so that embedded references serialize with the
// overridden id. The caller must restore the original id afterwards;
// the registry remains keyed by the id the object registered with.
func (r *Registry) OverrideInstanceID(obj GameObject, id uint64) {
	b := obj.AsObject()
	b.instanceID = id
	if b.data != nil {
		b.data.id = id
	}
}

// Relink re-points the given handle's indirection record at the given
// live object, and makes the object adopt that record as its own, so
// every stale handle sharing the record follows to the new object.
// The object's map entry is updated to share the record as well, and
// records superseded by earlier relinks of the same pointee are
// forwarded too, so a live object never strands a record behind.
func (r *Registry) Relink(h Handle, target GameObject) {
	if h.data == nil || target == nil {
		return
	}
	b := target.AsObject()
	records := append(r.relinked[h.data.id], h.data)
	delete(r.relinked, h.data.id)
	if prev := b.data; prev != nil && prev != h.data {
		records = append(records, prev)
	}
	for _, d := range records {
		d.object = target
		d.id = b.instanceID
	}
	b.data = h.data
	r.objects[b.instanceID] = Handle{data: h.data}
	for _, d := range records {
		if d != h.data {
			r.relinked[b.instanceID] = append(r.relinked[b.instanceID], d)
		}
	}
}

// Close flushes the destroy queue. Any remaining registered objects
// stay live; owning layers are responsible for destroying their roots.
func (r *Registry) Close() {
	r.DestroyQueuedObjects()
}

// Deserialization sessions:

// DeserializationActive returns whether a deserialization session is
// currently active.
func (r *Registry) DeserializationActive() bool {
	return r.session != nil
}

// StartDeserialization begins a deserialization session, during which
// newly created objects register under their original (serialized) ids
// and handle cross-references are collected for a final batch
// resolution in [Registry.EndDeserialization]. Sessions are strictly
// non-reentrant: starting one while another is active is a programming
// error and panics.
func (r *Registry) StartDeserialization() {
	if r.session != nil {
		panic("object.Registry.StartDeserialization: session already active")
	}
	r.session = &session{
		unresolved: map[uint64]*pendingRef{},
		idMap:      map[uint64]uint64{},
	}
}

// RegisterUnresolvedHandle records a handle read from a serialized
// form, referring to the given original id, for resolution at
// [Registry.EndDeserialization]. All handles registered for the same
// original id share one record, so they converge on one object.
// Panics if no session is active.
func (r *Registry) RegisterUnresolvedHandle(originalID uint64, h *Handle) {
	if r.session == nil {
		panic("object.Registry.RegisterUnresolvedHandle: no active session")
	}
	p, ok := r.session.unresolved[originalID]
	if !ok {
		p = &pendingRef{record: &InstanceData{id: originalID}}
		r.session.unresolved[originalID] = p
		r.session.order = append(r.session.order, originalID)
	}
	h.data = p.record
	h.pending = 0
	p.handles = append(p.handles, h)
}

// AddEndDeserializationCallback registers a function to run after
// handle resolution in [Registry.EndDeserialization]. Callbacks run in
// reverse registration order. Panics if no session is active.
func (r *Registry) AddEndDeserializationCallback(fun func()) {
	if r.session == nil {
		panic("object.Registry.AddEndDeserializationCallback: no active session")
	}
	r.session.callbacks = append(r.session.callbacks, fun)
}

// EndDeserialization resolves every collected unresolved handle
// against the current id map per the given flags, runs the registered
// callbacks in reverse registration order, and clears all session
// state. Panics if no session is active.
func (r *Registry) EndDeserialization(flags ResolveFlags) {
	s := r.session
	if s == nil {
		panic("object.Registry.EndDeserialization: no active session")
	}
	r.session = nil
	for _, originalID := range s.order {
		p := s.unresolved[originalID]
		if p.record.object != nil {
			continue // converged during registration
		}
		newID, internal := s.idMap[originalID]
		lookupID := originalID
		if internal && flags&UseNewIDs != 0 {
			lookupID = newID
		}
		if !internal {
			if flags&BreakExternal != 0 {
				nullHandles(p.handles)
				continue
			}
			if flags&RestoreExternal == 0 {
				if flags&KeepMissing == 0 {
					nullHandles(p.handles)
				}
				continue
			}
		}
		if target, ok := r.objects[lookupID]; ok {
			for _, h := range p.handles {
				h.data = target.data
			}
		} else if flags&KeepMissing == 0 {
			nullHandles(p.handles)
		}
	}
	for i := len(s.callbacks) - 1; i >= 0; i-- {
		s.callbacks[i]()
	}
}

func nullHandles(handles []*Handle) {
	for _, h := range handles {
		h.data = nil
	}
}
