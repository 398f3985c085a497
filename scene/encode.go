// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scene

import (
	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"cogentcore.org/scene/object"
	"cogentcore.org/scene/serial"
)

// Field names of the serialized scene-object form.
const (
	keyName        = "name"
	keyID          = "id"
	keyLink        = "link"
	keyFlags       = "flags"
	keyMobility    = "mobility"
	keyActive      = "active"
	keyTranslation = "translation"
	keyRotation    = "rotation"
	keyScale       = "scale"
	keyPrefab      = "prefab"
	keyPrefabHash  = "prefabHash"
	keyPrefabDiff  = "prefabDiff"
	keyComponents  = "components"
	keyChildren    = "children"
	keyType        = "type"
	keyNotify      = "notify"
	keyFields      = "fields"
)

// RegisterComponent registers a component type for instantiation from
// serialized form. Component types must register before any scene
// containing them is decoded, typically in an init function.
func RegisterComponent[T Component](ctor func() T) {
	serial.RegisterType(serial.TypeNameFor[T](), func() any { return ctor() })
}

func serialTypeName(c Component) string {
	return serial.TypeName(c)
}

// encode converts this subtree to intermediate form. Children flagged
// [DontSave] are omitted; handle references encode as the instance id
// of their pointee.
func (so *SceneObject) encode() (serial.Object, error) {
	obj := serial.Object{
		keyName:     so.Name,
		keyID:       so.InstanceID(),
		keyFlags:    uint32(so.flags),
		keyMobility: int32(so.mobility),
		keyActive:   so.activeSelf,
	}
	if so.LinkID() != object.UnlinkedID {
		obj[keyLink] = so.LinkID()
	}
	var err error
	if obj[keyTranslation], err = serial.Encode(so.local.Translation); err != nil {
		return nil, err
	}
	if obj[keyRotation], err = serial.Encode(so.local.Rotation); err != nil {
		return nil, err
	}
	if obj[keyScale], err = serial.Encode(so.local.Scale); err != nil {
		return nil, err
	}
	if so.prefabID != uuid.Nil {
		obj[keyPrefab] = so.prefabID.String()
		obj[keyPrefabHash] = so.prefabHash
		if so.prefabDiff != nil {
			pd, err := serial.Encode(so.prefabDiff)
			if err != nil {
				return nil, err
			}
			obj[keyPrefabDiff] = pd
		}
	}
	comps := make([]any, 0, len(so.components))
	for _, c := range so.components {
		ce, err := encodeComponent(c)
		if err != nil {
			return nil, err
		}
		comps = append(comps, map[string]any(ce))
	}
	obj[keyComponents] = comps
	kids := make([]any, 0, len(so.children))
	for _, child := range so.children {
		if child.HasFlag(DontSave) {
			continue
		}
		ce, err := child.encode()
		if err != nil {
			return nil, err
		}
		kids = append(kids, map[string]any(ce))
	}
	obj[keyChildren] = kids
	return obj, nil
}

// encodeComponent converts one component to intermediate form: its
// registered type name, identity, flags, notification mask, and
// exported fields.
func encodeComponent(c Component) (serial.Object, error) {
	fields, err := serial.Encode(c)
	if err != nil {
		return nil, err
	}
	cb := c.AsComponent()
	ce := serial.Object{
		keyType:   serialTypeName(c),
		keyID:     cb.InstanceID(),
		keyFlags:  uint32(cb.flags),
		keyNotify: uint32(cb.notify),
		keyFields: map[string]any(fields),
	}
	if cb.LinkID() != object.UnlinkedID {
		ce[keyLink] = cb.LinkID()
	}
	return ce, nil
}

// decodeSceneObject rebuilds a subtree from intermediate form under the
// active deserialization session. The result is registered but not
// instantiated, and its handle references stay unresolved until the
// session ends.
func (m *Manager) decodeSceneObject(data serial.Object) (*SceneObject, error) {
	id := data.Uint64(keyID)
	if id == 0 {
		return nil, eris.New("scene: serialized object missing instance id")
	}
	so := m.newSceneObject(data.String(keyName), id)
	so.SetLinkID(uint32(data.Uint64(keyLink)))
	so.flags = Flags(data.Uint64(keyFlags))
	so.mobility = Mobility(data.Uint64(keyMobility))
	so.activeSelf = data.Bool(keyActive)
	so.activeRes = so.activeSelf
	if err := decodeTransform(data, &so.local); err != nil {
		return nil, err
	}
	if s := data.String(keyPrefab); s != "" {
		pid, err := uuid.Parse(s)
		if err != nil {
			return nil, eris.Wrap(err, "scene: invalid prefab uuid")
		}
		so.prefabID = pid
		so.prefabHash = data.Uint64(keyPrefabHash)
		if pd := data.Child(keyPrefabDiff); pd != nil {
			diff := &PrefabDiff{}
			if err := serial.Decode(pd, diff); err != nil {
				return nil, err
			}
			so.prefabDiff = diff
		}
	}
	for _, ce := range data.Children(keyComponents) {
		if _, err := m.decodeComponent(so, ce); err != nil {
			return nil, err
		}
	}
	for _, che := range data.Children(keyChildren) {
		child, err := m.decodeSceneObject(che)
		if err != nil {
			return nil, err
		}
		child.parent = so
		so.children = append(so.children, child)
		child.setActiveResolved(so.activeRes, false)
	}
	return so, nil
}

// decodeComponent rebuilds one component from intermediate form and
// attaches it to the given object without starting its lifecycle.
// Embedded handle references are registered with the session for
// delayed resolution.
func (m *Manager) decodeComponent(so *SceneObject, data serial.Object) (Component, error) {
	v, err := serial.NewOfType(data.String(keyType))
	if err != nil {
		return nil, err
	}
	c, ok := v.(Component)
	if !ok {
		return nil, eris.Errorf("scene: type %q is not a component", data.String(keyType))
	}
	if fields := data.Child(keyFields); fields != nil {
		if err := serial.Decode(fields, c); err != nil {
			return nil, err
		}
	}
	cb := c.AsComponent()
	cb.flags = ComponentFlags(data.Uint64(keyFlags))
	cb.notify = TransformChanged(data.Uint64(keyNotify))
	cb.SetLinkID(uint32(data.Uint64(keyLink)))
	id := data.Uint64(keyID)
	if id == 0 {
		return nil, eris.New("scene: serialized component missing instance id")
	}
	so.attachComponent(c, id)
	m.registerPendingHandles(c)
	return c, nil
}

// registerPendingHandles walks the component for handle references left
// pending by decoding and registers them with the active session.
func (m *Manager) registerPendingHandles(c Component) {
	serial.WalkHandles(c, func(h *object.Handle) {
		if id := h.PendingID(); id != 0 {
			m.registry.RegisterUnresolvedHandle(id, h)
		}
	})
}

func decodeTransform(data serial.Object, t *Transform) error {
	if tr := data.Child(keyTranslation); tr != nil {
		if err := serial.Decode(tr, &t.Translation); err != nil {
			return err
		}
	}
	if ro := data.Child(keyRotation); ro != nil {
		if err := serial.Decode(ro, &t.Rotation); err != nil {
			return err
		}
	}
	if sc := data.Child(keyScale); sc != nil {
		if err := serial.Decode(sc, &t.Scale); err != nil {
			return err
		}
	}
	t.Defaults()
	return nil
}

// SaveObject converts the given subtree to its serialized byte form.
func SaveObject(so *SceneObject) ([]byte, error) {
	data, err := so.encode()
	if err != nil {
		return nil, err
	}
	return serial.Marshal(data)
}

// LoadObject rebuilds a subtree from its serialized byte form under a
// fresh deserialization session, resolving internal references to the
// new copies and external references against live objects. The result
// is not attached to any parent and not instantiated.
func (m *Manager) LoadObject(b []byte) (*SceneObject, error) {
	data, err := serial.Unmarshal(b)
	if err != nil {
		return nil, err
	}
	return m.loadObjectData(data)
}

// loadObjectData rebuilds a subtree from intermediate form under a
// fresh deserialization session.
func (m *Manager) loadObjectData(data serial.Object) (*SceneObject, error) {
	if data == nil {
		return nil, eris.New("scene: missing object data")
	}
	m.registry.StartDeserialization()
	so, err := m.decodeSceneObject(data)
	m.registry.EndDeserialization(object.UseNewIDs | object.RestoreExternal)
	return so, err
}
