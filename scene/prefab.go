// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scene

import (
	"github.com/google/uuid"

	"cogentcore.org/scene/serial"
)

// Prefab is a reusable object template: an inert deep copy of a source
// subtree, identified by a UUID and versioned by a structural hash.
// Instances stamped with the UUID can later be diffed against the
// template ([NewPrefabDiff]) and refreshed when the template changes
// ([UpdateFromPrefab]).
type Prefab struct {
	mgr *Manager

	// root is the stored template content: an inert, never
	// instantiated copy owned by the prefab.
	root *SceneObject

	// id is the stable identity, stamped onto the source, the stored
	// root, and every instance.
	id uuid.UUID

	// hash is the structural version, incremented on every
	// [Prefab.Update]. Instances record the hash they were built
	// against.
	hash uint64

	// isScene marks a prefab that represents a whole scene rather than
	// a reusable fragment.
	isScene bool
}

// NewPrefab creates a prefab from the given source subtree: existing
// link ids in the source scope are cleared and regenerated, an inert
// deep copy is stored as the template, and a fresh UUID is stamped onto
// both the source and the stored copy, making the source the first
// instance.
func NewPrefab(source *SceneObject, isScene bool) (*Prefab, error) {
	pf := &Prefab{mgr: source.mgr, id: uuid.New(), isScene: isScene}
	ClearPrefabIDs(source, true, true)
	if err := pf.rebuild(source); err != nil {
		return nil, err
	}
	return pf, nil
}

// Update replaces the template content from the given source subtree,
// incrementing the structural version and re-stamping the link UUID.
// Existing link ids are preserved and new objects get fresh ones, so
// instance overrides recorded against earlier versions keep matching.
func (pf *Prefab) Update(source *SceneObject) error {
	old := pf.root
	pf.hash++
	if err := pf.rebuild(source); err != nil {
		return err
	}
	if old != nil {
		old.DestroyImmediate()
	}
	return nil
}

// rebuild captures the source as the stored template and stamps
// identity onto both.
func (pf *Prefab) rebuild(source *SceneObject) error {
	GeneratePrefabIDs(source)
	source.prefabID = pf.id
	source.prefabHash = pf.hash
	stored, err := source.Clone(false)
	if err != nil {
		return err
	}
	pf.root = stored
	return nil
}

// Instantiate produces a live instance of the template: nested
// child-prefab instances inside the copy are first refreshed through
// the given loader so the produced hierarchy reflects current versions
// of nested templates, then the whole copy is instantiated. The
// instance has no parent.
func (pf *Prefab) Instantiate(loader Loader) (*SceneObject, error) {
	inst, err := pf.clone()
	if err != nil {
		return nil, err
	}
	if loader != nil {
		if inst, err = refreshNestedPrefabs(inst, loader); err != nil {
			return nil, err
		}
	}
	inst.Instantiate()
	return inst, nil
}

// clone returns an inert copy of the template content.
func (pf *Prefab) clone() (*SceneObject, error) {
	return pf.root.Clone(false)
}

// UUID returns the stable identity of the prefab.
func (pf *Prefab) UUID() uuid.UUID {
	return pf.id
}

// Hash returns the structural version of the template.
func (pf *Prefab) Hash() uint64 {
	return pf.hash
}

// IsScene returns whether this prefab represents a whole scene.
func (pf *Prefab) IsScene() bool {
	return pf.isScene
}

// IsLoaded returns whether template content is available.
func (pf *Prefab) IsLoaded() bool {
	return pf.root != nil
}

// Root returns the stored template content. It is owned by the prefab
// and must not be mutated or instantiated.
func (pf *Prefab) Root() *SceneObject {
	return pf.root
}

// Save converts the prefab to its serialized byte form.
func (pf *Prefab) Save() ([]byte, error) {
	content, err := pf.root.encode()
	if err != nil {
		return nil, err
	}
	return serial.Marshal(serial.Object{
		"uuid":    pf.id.String(),
		"hash":    pf.hash,
		"isScene": pf.isScene,
		"content": map[string]any(content),
	})
}

// LoadPrefab rebuilds a prefab from its serialized byte form.
func (m *Manager) LoadPrefab(b []byte) (*Prefab, error) {
	data, err := serial.Unmarshal(b)
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(data.String("uuid"))
	if err != nil {
		return nil, err
	}
	root, err := m.loadObjectData(data.Child("content"))
	if err != nil {
		return nil, err
	}
	return &Prefab{
		mgr:     m,
		root:    root,
		id:      id,
		hash:    data.Uint64("hash"),
		isScene: data.Bool("isScene"),
	}, nil
}
