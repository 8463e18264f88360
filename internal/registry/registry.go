// Package registry owns the native accessible-context handles handed out by
// the bridge. Callers never hold raw handles: they hold generation-tagged
// stable ids, so a release/recreate cycle is always detectable as staleness
// instead of silently dereferencing a dead native object.
package registry

import (
	"errors"
	"sync"

	"github.com/openjab/jab-cli/internal/bridge"
)

// ErrStaleHandle is returned when resolving a reference whose entry has been
// released or superseded by a newer generation.
var ErrStaleHandle = errors.New("stale accessible-context handle")

// StableID is a registry-assigned identifier for one logical native
// reference. IDs are never reused.
type StableID uint64

// Ref is what callers hold: a stable id plus the generation observed at
// registration time. A Ref goes stale when the entry is released or
// re-registered with a fresh native handle.
type Ref struct {
	ID  StableID
	Gen uint64
}

type entry struct {
	handle  bridge.NativeHandle
	gen     uint64
	refs    int
	live    bool
	session string
}

// Registry tracks live native handles. All mutation is serialized under an
// internal lock; no native calls are ever made while holding it, so callback
// delivery can never deadlock against registry updates.
type Registry struct {
	mu       sync.Mutex
	next     StableID
	entries  map[StableID]*entry
	byHandle map[bridge.NativeHandle]StableID
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		entries:  make(map[StableID]*entry),
		byHandle: make(map[bridge.NativeHandle]StableID),
	}
}

// Register records a native handle owned by the given session. Registering a
// handle value already tracked live returns the existing ref with its
// reference count bumped, so one native object never spans two stable ids;
// the entry stays live until every registration has been released.
// Registration never blocks on anything but the map lock.
func (r *Registry) Register(session string, h bridge.NativeHandle) Ref {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byHandle[h]; ok {
		e := r.entries[id]
		e.refs++
		return Ref{ID: id, Gen: e.gen}
	}
	r.next++
	id := r.next
	r.entries[id] = &entry{handle: h, gen: 1, refs: 1, live: true, session: session}
	r.byHandle[h] = id
	return Ref{ID: id, Gen: 1}
}

// Resolve returns the native handle for a reference, or ErrStaleHandle when
// the entry was released or its generation has moved past the caller's.
func (r *Registry) Resolve(ref Ref) (bridge.NativeHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[ref.ID]
	if !ok || !e.live || e.gen != ref.Gen {
		return bridge.NativeHandle{}, ErrStaleHandle
	}
	return e.handle, nil
}

// Reregister replaces the native handle behind an existing id with a fresh
// one, bumping the generation. Outstanding refs to the old generation become
// stale. The returned handle, if non-zero, is the superseded native reference
// the caller must release outside the lock.
func (r *Registry) Reregister(id StableID, h bridge.NativeHandle) (Ref, bridge.NativeHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return Ref{}, bridge.NativeHandle{}, ErrStaleHandle
	}
	var old bridge.NativeHandle
	if e.live {
		old = e.handle
		delete(r.byHandle, e.handle)
	}
	e.handle = h
	e.gen++
	e.live = true
	r.byHandle[h] = id
	return Ref{ID: id, Gen: e.gen}, old, nil
}

// Release drops one registration of the entry. When the last registration
// goes, the entry is marked dead and the native handle is returned so the
// caller can hand it back to the bridge outside the lock. Releasing an
// unknown or already-released id is a no-op.
func (r *Registry) Release(id StableID) (bridge.NativeHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || !e.live {
		return bridge.NativeHandle{}, false
	}
	e.refs--
	if e.refs > 0 {
		return bridge.NativeHandle{}, false
	}
	e.live = false
	delete(r.byHandle, e.handle)
	return e.handle, true
}

// ReleaseAll marks every live entry of a session dead, reference counts
// notwithstanding, and returns the native handles to release. Used at driver
// teardown and on window-closed events.
func (r *Registry) ReleaseAll(session string) []bridge.NativeHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	var handles []bridge.NativeHandle
	for _, e := range r.entries {
		if e.live && e.session == session {
			e.live = false
			e.refs = 0
			delete(r.byHandle, e.handle)
			handles = append(handles, e.handle)
		}
	}
	return handles
}

// FindByHandle looks up the live entry holding the exact native handle.
// Callback events carry raw handles; this maps them back to stable ids.
func (r *Registry) FindByHandle(h bridge.NativeHandle) (Ref, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byHandle[h]
	if !ok {
		return Ref{}, false
	}
	e := r.entries[id]
	return Ref{ID: id, Gen: e.gen}, true
}

// Live reports whether the entry behind id is currently live.
func (r *Registry) Live(id StableID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	return ok && e.live
}
