// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scene

import (
	"log/slog"
	"slices"

	"cogentcore.org/scene/object"
)

// RunState is the global lifecycle state of a [Manager].
type RunState int32

const (
	// Stopped defers component initialization and enablement: newly
	// created components are parked until the manager starts. Only
	// [AlwaysRun] components run.
	Stopped RunState = iota

	// Running delivers the full component lifecycle, including
	// per-frame updates.
	Running

	// Paused delivers everything except per-frame updates. Components
	// stay logically enabled.
	Paused
)

// String returns the name of the run state.
func (rs RunState) String() string {
	switch rs {
	case Stopped:
		return "Stopped"
	case Running:
		return "Running"
	case Paused:
		return "Paused"
	}
	return "RunState(invalid)"
}

// ComponentList identifies one of the manager's component partition
// lists.
type ComponentList int32

const (
	// ListNone means the component is in no manager list.
	ListNone ComponentList = iota

	// ListActive holds components receiving per-frame updates.
	ListActive

	// ListInactive holds initialized components not currently updating.
	ListInactive

	// ListUninitialized holds components whose initialization is
	// deferred until the manager starts.
	ListUninitialized
)

// componentIndexBits is the number of bits of a packed component id
// holding the list index; the remaining high bits hold the list.
const componentIndexBits = 30

const componentIndexMask = 1<<componentIndexBits - 1

// EncodeComponentID packs a list index and list identity into one id.
func EncodeComponentID(index uint32, list ComponentList) uint32 {
	return uint32(list)<<componentIndexBits | index&componentIndexMask
}

// DecodeComponentID unpacks a packed component id into its list index
// and list identity.
func DecodeComponentID(id uint32) (uint32, ComponentList) {
	return id & componentIndexMask, ComponentList(id >> componentIndexBits)
}

// Manager owns one scene: the object [object.Registry], the hierarchy
// root, the global [RunState], and the component partition lists that
// drive lifecycle callbacks and per-frame dispatch. It is not safe for
// concurrent use: all scene mutation happens on the single thread
// driving the frame tick.
type Manager struct {
	registry *object.Registry
	root     *SceneObject
	state    RunState

	// the three partition lists. Invariant: every initialized
	// component with a live owner is in exactly one list, and its
	// packed managerID names that list and its index there.
	active        []Component
	inactive      []Component
	uninitialized []Component
}

// NewManager returns a new stopped manager with an empty hierarchy
// root.
func NewManager() *Manager {
	m := &Manager{registry: object.NewRegistry()}
	m.root = m.newSceneObject("root", 0)
	m.root.SetFlag(true, Internal)
	m.root.instantiated = true
	return m
}

// Registry returns the object registry owned by this manager.
func (m *Manager) Registry() *object.Registry {
	return m.registry
}

// Root returns the hierarchy root object.
func (m *Manager) Root() *SceneObject {
	return m.root
}

// State returns the current run state.
func (m *Manager) State() RunState {
	return m.state
}

// NewSceneObject creates, registers, and instantiates a new scene
// object with the given name under the given parent (the hierarchy
// root if nil).
func (m *Manager) NewSceneObject(name string, parent *SceneObject) *SceneObject {
	so := m.newSceneObject(name, 0)
	so.instantiated = true
	if parent == nil {
		parent = m.root
	}
	so.parent = parent
	parent.children = append(parent.children, so)
	so.activeRes = parent.activeRes
	return so
}

// newSceneObject creates and registers a scene object without parent
// or lifecycle. During a deserialization session, originalID is the id
// it carried in serialized form.
func (m *Manager) newSceneObject(name string, originalID uint64) *SceneObject {
	so := &SceneObject{mgr: m}
	so.Name = name
	so.local = NewTransform()
	so.world = NewTransform()
	so.localDirty = true
	so.worldDirty = true
	so.activeSelf = true
	so.activeRes = true
	m.registry.RegisterObject(so, originalID)
	return so
}

// Close destroys the hierarchy and flushes the registry.
func (m *Manager) Close() {
	m.root.DestroyImmediate()
	m.registry.Close()
}

// Update runs the per-frame update on every component in the active
// list, in current list order, which is explicitly not a stable
// priority ordering, then finalizes objects queued for destruction
// during the frame.
func (m *Manager) Update() {
	for i := 0; i < len(m.active); i++ {
		m.active[i].Update()
	}
	m.registry.DestroyQueuedObjects()
}

// FixedUpdate runs the fixed-timestep update on every component in the
// active list. Unlike [Manager.Update] it does not finalize queued
// destruction, so it can run multiple times per frame.
func (m *Manager) FixedUpdate() {
	for i := 0; i < len(m.active); i++ {
		m.active[i].FixedUpdate()
	}
}

// Partition lists:

func (m *Manager) list(l ComponentList) *[]Component {
	switch l {
	case ListActive:
		return &m.active
	case ListInactive:
		return &m.inactive
	case ListUninitialized:
		return &m.uninitialized
	}
	return nil
}

// pushComponent appends the component to the given list and stamps its
// packed id.
func (m *Manager) pushComponent(l ComponentList, c Component) {
	lst := m.list(l)
	*lst = append(*lst, c)
	c.AsComponent().managerID = EncodeComponentID(uint32(len(*lst)-1), l)
}

// removeComponent removes the component from whichever list its packed
// id names, swapping the last element into its slot. No-op if the
// component is in no list.
func (m *Manager) removeComponent(c Component) {
	cb := c.AsComponent()
	idx, l := DecodeComponentID(cb.managerID)
	if l == ListNone {
		return
	}
	lst := m.list(l)
	last := len(*lst) - 1
	if int(idx) > last || (*lst)[idx] != c {
		slog.Error("scene.Manager.removeComponent: corrupt component id",
			"name", cb.Name, "list", int(l), "index", idx)
		return
	}
	(*lst)[idx] = (*lst)[last]
	(*lst)[idx].AsComponent().managerID = EncodeComponentID(idx, l)
	*lst = (*lst)[:last]
	cb.managerID = 0
}

// moveComponent moves the component to the given list.
func (m *Manager) moveComponent(c Component, to ComponentList) {
	m.removeComponent(c)
	m.pushComponent(to, c)
}

// componentList returns which list the component currently sits in.
func (m *Manager) componentList(c Component) ComponentList {
	_, l := DecodeComponentID(c.AsComponent().managerID)
	return l
}

func ownerActive(c Component) bool {
	o := c.AsComponent().owner
	return o != nil && o.activeRes
}

// Lifecycle notification:

// notifyComponentCreated runs the creation lifecycle for a freshly
// attached component on an instantiated object: OnCreated always fires
// immediately; initialization and enablement follow the run state,
// parking the component in the uninitialized list while stopped unless
// it is flagged [AlwaysRun].
func (m *Manager) notifyComponentCreated(c Component) {
	cb := c.AsComponent()
	cb.created = true
	c.OnCreated()
	if m.state == Stopped && !cb.alwaysRun() {
		m.pushComponent(ListUninitialized, c)
		return
	}
	c.OnInitialized()
	if !ownerActive(c) {
		m.pushComponent(ListInactive, c)
		return
	}
	c.OnEnabled()
	cb.enabled = true
	if m.state == Running || cb.alwaysRun() {
		m.pushComponent(ListActive, c)
	} else {
		m.pushComponent(ListInactive, c)
	}
}

// notifyComponentActivated reacts to the component's owner hierarchy
// becoming active. Uninitialized components stay parked; the
// transition to Running (or [AlwaysRun]) additionally promotes the
// component to the active list.
func (m *Manager) notifyComponentActivated(c Component) {
	cb := c.AsComponent()
	l := m.componentList(c)
	if l == ListNone || l == ListUninitialized {
		return
	}
	if !cb.enabled {
		if m.state == Stopped && !cb.alwaysRun() {
			return
		}
		c.OnEnabled()
		cb.enabled = true
	}
	if l == ListInactive && (m.state == Running || cb.alwaysRun()) {
		m.moveComponent(c, ListActive)
	}
}

// notifyComponentDeactivated reacts to the component's owner hierarchy
// becoming inactive, disabling the component and demoting it from the
// active list.
func (m *Manager) notifyComponentDeactivated(c Component) {
	cb := c.AsComponent()
	l := m.componentList(c)
	if l == ListNone || l == ListUninitialized {
		return
	}
	if cb.enabled {
		c.OnDisabled()
		cb.enabled = false
	}
	if l == ListActive {
		m.moveComponent(c, ListInactive)
	}
}

// notifyComponentDestroyed disables a still-enabled component and
// removes it from its list. Called by the component teardown path
// after removal from the owner's component list.
func (m *Manager) notifyComponentDestroyed(c Component) {
	cb := c.AsComponent()
	if cb.enabled {
		c.OnDisabled()
		cb.enabled = false
	}
	m.removeComponent(c)
}

// State machine:

// SetState transitions the global run state, driving the deferred
// lifecycle of every parked component. Setting the current state is a
// no-op.
func (m *Manager) SetState(state RunState) {
	prev := m.state
	if state == prev {
		return
	}
	m.state = state
	switch {
	case prev == Stopped:
		m.startFromStopped()
	case state == Paused:
		m.pause()
	case state == Stopped:
		m.stop()
	default: // Paused -> Running
		m.resume()
	}
}

// startFromStopped leaves Stopped for Running or Paused: already-active
// always-run components with active owners are bounced through a
// disable and enable pair so they observe the start, parked inactive
// components with active owners are enabled, and every deferred
// component is initialized. Promotion to the active list happens only
// when the new state is Running or the component is [AlwaysRun];
// otherwise the later transition to Running sweeps the inactive list.
func (m *Manager) startFromStopped() {
	for _, c := range slices.Clone(m.active) {
		cb := c.AsComponent()
		if cb.enabled && ownerActive(c) {
			c.OnDisabled()
			c.OnEnabled()
		}
	}
	for _, c := range slices.Clone(m.inactive) {
		if !ownerActive(c) {
			continue
		}
		cb := c.AsComponent()
		if !cb.enabled {
			c.OnEnabled()
			cb.enabled = true
		}
		if m.state == Running || cb.alwaysRun() {
			m.moveComponent(c, ListActive)
		}
	}
	for _, c := range slices.Clone(m.uninitialized) {
		cb := c.AsComponent()
		m.removeComponent(c)
		c.OnInitialized()
		if !ownerActive(c) {
			m.pushComponent(ListInactive, c)
			continue
		}
		c.OnEnabled()
		cb.enabled = true
		if m.state == Running || cb.alwaysRun() {
			m.pushComponent(ListActive, c)
		} else {
			m.pushComponent(ListInactive, c)
		}
	}
}

// resume transitions Paused to Running, promoting enabled components
// with active owners back into the active list.
func (m *Manager) resume() {
	for _, c := range slices.Clone(m.inactive) {
		if !ownerActive(c) {
			continue
		}
		cb := c.AsComponent()
		if !cb.enabled {
			c.OnEnabled()
			cb.enabled = true
		}
		m.moveComponent(c, ListActive)
	}
}

// pause transitions Running to Paused, demoting everything except
// always-run components from the active list without firing disable
// callbacks: paused components stay logically enabled.
func (m *Manager) pause() {
	for _, c := range slices.Clone(m.active) {
		if !c.AsComponent().alwaysRun() {
			m.moveComponent(c, ListInactive)
		}
	}
}

// stop transitions Running or Paused to Stopped. Enabled components
// are disabled; always-run components are immediately re-enabled so
// they never observe a logically disabled state, and stay active.
func (m *Manager) stop() {
	for _, c := range slices.Clone(m.active) {
		cb := c.AsComponent()
		if cb.enabled {
			c.OnDisabled()
			cb.enabled = false
		}
		if cb.alwaysRun() {
			c.OnEnabled()
			cb.enabled = true
		} else {
			m.moveComponent(c, ListInactive)
		}
	}
	for _, c := range slices.Clone(m.inactive) {
		cb := c.AsComponent()
		if cb.enabled {
			c.OnDisabled()
			cb.enabled = false
		}
	}
}
