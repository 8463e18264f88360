package registry

import (
	"errors"
	"sync"
	"testing"

	"github.com/openjab/jab-cli/internal/bridge"
)

func TestRegisterResolve(t *testing.T) {
	r := New()
	h := bridge.NativeHandle{VM: 1, AC: 42}
	ref := r.Register("s1", h)

	got, err := r.Resolve(ref)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got != h {
		t.Errorf("resolved %+v, want %+v", got, h)
	}
}

func TestResolveAfterRelease(t *testing.T) {
	r := New()
	ref := r.Register("s1", bridge.NativeHandle{VM: 1, AC: 42})

	if _, ok := r.Release(ref.ID); !ok {
		t.Fatal("first release reported no-op")
	}
	if _, err := r.Resolve(ref); !errors.Is(err, ErrStaleHandle) {
		t.Errorf("resolve after release: got %v, want ErrStaleHandle", err)
	}
}

func TestReleaseIdempotent(t *testing.T) {
	r := New()
	ref := r.Register("s1", bridge.NativeHandle{VM: 1, AC: 42})

	if _, ok := r.Release(ref.ID); !ok {
		t.Fatal("first release reported no-op")
	}
	if _, ok := r.Release(ref.ID); ok {
		t.Error("second release returned a handle; want no-op")
	}
	if _, ok := r.Release(StableID(9999)); ok {
		t.Error("release of unknown id returned a handle; want no-op")
	}
}

func TestRegisterSameHandleSharesID(t *testing.T) {
	r := New()
	h := bridge.NativeHandle{VM: 1, AC: 42}
	a := r.Register("s1", h)
	b := r.Register("s1", h)

	if a != b {
		t.Fatalf("same handle registered twice: refs %+v and %+v differ", a, b)
	}

	// The first release only drops one registration; no native release yet.
	if _, ok := r.Release(a.ID); ok {
		t.Fatal("first of two registrations triggered native release")
	}
	if _, err := r.Resolve(b); err != nil {
		t.Fatalf("entry dead after partial release: %v", err)
	}
	got, ok := r.Release(a.ID)
	if !ok {
		t.Fatal("last release did not return the handle")
	}
	if got != h {
		t.Errorf("released handle %+v, want %+v", got, h)
	}
	if _, err := r.Resolve(a); !errors.Is(err, ErrStaleHandle) {
		t.Errorf("resolve after full release: got %v, want ErrStaleHandle", err)
	}
}

func TestReregisterBumpsGeneration(t *testing.T) {
	r := New()
	oldHandle := bridge.NativeHandle{VM: 1, AC: 42}
	newHandle := bridge.NativeHandle{VM: 1, AC: 99}
	ref := r.Register("s1", oldHandle)

	newRef, superseded, err := r.Reregister(ref.ID, newHandle)
	if err != nil {
		t.Fatalf("reregister failed: %v", err)
	}
	if superseded != oldHandle {
		t.Errorf("superseded handle %+v, want %+v", superseded, oldHandle)
	}
	if newRef.Gen != ref.Gen+1 {
		t.Errorf("generation %d, want %d", newRef.Gen, ref.Gen+1)
	}

	// The old ref must now be stale, the new one resolvable.
	if _, err := r.Resolve(ref); !errors.Is(err, ErrStaleHandle) {
		t.Errorf("old ref resolve: got %v, want ErrStaleHandle", err)
	}
	got, err := r.Resolve(newRef)
	if err != nil {
		t.Fatalf("new ref resolve failed: %v", err)
	}
	if got != newHandle {
		t.Errorf("resolved %+v, want %+v", got, newHandle)
	}
}

func TestReleaseAllBySession(t *testing.T) {
	r := New()
	a := r.Register("s1", bridge.NativeHandle{VM: 1, AC: 1})
	b := r.Register("s1", bridge.NativeHandle{VM: 1, AC: 2})
	c := r.Register("s2", bridge.NativeHandle{VM: 2, AC: 3})

	handles := r.ReleaseAll("s1")
	if len(handles) != 2 {
		t.Fatalf("released %d handles, want 2", len(handles))
	}
	for _, ref := range []Ref{a, b} {
		if _, err := r.Resolve(ref); !errors.Is(err, ErrStaleHandle) {
			t.Errorf("session s1 ref %d still resolvable", ref.ID)
		}
	}
	if _, err := r.Resolve(c); err != nil {
		t.Errorf("session s2 ref released by mistake: %v", err)
	}
}

func TestFindByHandle(t *testing.T) {
	r := New()
	h := bridge.NativeHandle{VM: 1, AC: 42}
	ref := r.Register("s1", h)

	found, ok := r.FindByHandle(h)
	if !ok || found != ref {
		t.Fatalf("FindByHandle = %+v, %v; want %+v, true", found, ok, ref)
	}

	r.Release(ref.ID)
	if _, ok := r.FindByHandle(h); ok {
		t.Error("FindByHandle matched a released entry")
	}
}

func TestConcurrentRegisterRelease(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ref := r.Register("s1", bridge.NativeHandle{VM: 1, AC: uint64(n)})
			if _, err := r.Resolve(ref); err != nil {
				t.Errorf("resolve failed: %v", err)
			}
			r.Release(ref.ID)
		}(i)
	}
	wg.Wait()
	if handles := r.ReleaseAll("s1"); len(handles) != 0 {
		t.Errorf("%d entries leaked after concurrent release", len(handles))
	}
}
