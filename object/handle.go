// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package object

import (
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

// InstanceData is the shared indirection record between a live object
// and all of the handles referring to it. Re-pointing the record
// through [Registry.Relink] re-targets every handle that shares it.
// No two distinct live objects ever share the same record.
type InstanceData struct {
	object GameObject
	id     uint64
}

// Object returns the live object this record points at, or nil.
func (d *InstanceData) Object() GameObject {
	return d.object
}

// ID returns the instance id of the pointee. For an unresolved record
// created during deserialization this is the original (serialized) id.
func (d *InstanceData) ID() uint64 {
	return d.id
}

// Handle is an indirect, weak reference to a registry-managed object.
// It is never an owner: destroying the object tombstones every handle
// but the handles themselves remain valid to query. Handles are value
// types; copying one shares the underlying [InstanceData], so handles
// obtained from the same source stay consistent when the record is
// re-pointed.
type Handle struct {
	data *InstanceData

	// pending is the original instance id read from a serialized form,
	// awaiting resolution through a registry deserialization session.
	pending uint64
}

// IsDestroyed returns whether the handle points at nothing: its record
// is missing, empty, or its pointee has been tombstoned.
func (h Handle) IsDestroyed() bool {
	return h.data == nil || h.data.object == nil ||
		h.data.object.AsObject().destroyed
}

// Object returns the live object, or nil if the handle is destroyed.
func (h Handle) Object() GameObject {
	if h.IsDestroyed() {
		return nil
	}
	return h.data.object
}

// ID returns the instance id of the referenced object, or 0 if the
// handle has no record.
func (h Handle) ID() uint64 {
	if h.data == nil {
		return 0
	}
	return h.data.id
}

// PendingID returns the not-yet-resolved original id read from a
// serialized form, or 0 if the handle is not pending resolution.
func (h Handle) PendingID() uint64 {
	return h.pending
}

// handleRefKey is the field name identifying an object reference in
// serialized form.
const handleRefKey = "$handle"

// MarshalJSON encodes the handle as an object-reference record holding
// the instance id of the pointee. A destroyed or empty handle encodes
// as id 0.
func (h Handle) MarshalJSON() ([]byte, error) {
	id := uint64(0)
	if h.data != nil {
		id = h.data.id
	}
	return []byte(`{"` + handleRefKey + `":` + strconv.FormatUint(id, 10) + `}`), nil
}

// UnmarshalJSON decodes an object-reference record, leaving the handle
// unresolved: the original id is parked in [Handle.PendingID] until the
// enclosing deserialization session resolves it.
func (h *Handle) UnmarshalJSON(b []byte) error {
	var ref map[string]uint64
	if err := json.Unmarshal(b, &ref); err != nil {
		return eris.Wrap(err, "object: invalid handle reference")
	}
	h.data = nil
	h.pending = ref[handleRefKey]
	return nil
}
