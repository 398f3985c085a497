// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scene

import "github.com/google/uuid"

// Resource is a UUID-addressed asset that can be looked up through a
// [Loader]. [Prefab] is the canonical implementation.
type Resource interface {

	// UUID returns the stable identity of the resource.
	UUID() uuid.UUID

	// IsLoaded returns whether the resource content is available.
	IsLoaded() bool
}

// Loader resolves resource UUIDs to loaded resources. Prefab
// instantiation and refresh use it to find nested prefab templates.
type Loader interface {

	// LoadFromUUID returns the resource with the given identity and
	// whether it was found, marking it as in use.
	LoadFromUUID(id uuid.UUID) (Resource, bool)

	// UnloadAllUnused drops every resource not loaded since the last
	// call.
	UnloadAllUnused()
}

// Library is an in-memory [Loader] holding directly registered
// resources.
type Library struct {
	resources map[uuid.UUID]Resource
	used      map[uuid.UUID]bool
}

// NewLibrary returns a new empty library.
func NewLibrary() *Library {
	return &Library{
		resources: map[uuid.UUID]Resource{},
		used:      map[uuid.UUID]bool{},
	}
}

// Add registers the given resource under its UUID, replacing any
// previous resource with the same identity.
func (lb *Library) Add(r Resource) {
	lb.resources[r.UUID()] = r
	lb.used[r.UUID()] = true
}

// LoadFromUUID returns the resource with the given identity and whether
// it was found.
func (lb *Library) LoadFromUUID(id uuid.UUID) (Resource, bool) {
	r, ok := lb.resources[id]
	if ok {
		lb.used[id] = true
	}
	return r, ok
}

// UnloadAllUnused drops every resource not loaded since the last call.
func (lb *Library) UnloadAllUnused() {
	for id := range lb.resources {
		if !lb.used[id] {
			delete(lb.resources, id)
		}
	}
	lb.used = map[uuid.UUID]bool{}
}
