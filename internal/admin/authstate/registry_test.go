package authstate

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"finitefield.org/tutor-admin/internal/admin/identity"
	"finitefield.org/tutor-admin/internal/admin/login"
	"finitefield.org/tutor-admin/internal/admin/presentation"
)

func newTestRegistry(t *testing.T, opts ...Option) *Registry {
	t.Helper()
	r := NewRegistry(identity.NewStaticProvider(nil), nil, opts...)
	t.Cleanup(r.Close)
	return r
}

func mountedView(ent *Entry) *login.View {
	v := login.NewView(login.ViewConfig{Store: ent.Store, Flags: ent.Root})
	v.Mount()
	return v
}

func TestRegistryGetIsShared(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)

	var wg sync.WaitGroup
	entries := make([]*Entry, 16)
	for i := range entries {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ent, err := r.Get("sid-1")
			require.NoError(t, err)
			entries[i] = ent
		}(i)
	}
	wg.Wait()
	for _, ent := range entries {
		require.Same(t, entries[0], ent)
	}
	require.Equal(t, 1, r.Len())

	other, err := r.Get("sid-2")
	require.NoError(t, err)
	require.NotSame(t, entries[0], other)
	require.NotSame(t, entries[0].Store, other.Store)
}

func TestEntryAttachReplacesView(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	ent, err := r.Get("sid")
	require.NoError(t, err)

	first := mountedView(ent)
	ent.Attach("v1", first)
	got, ok := ent.View("v1")
	require.True(t, ok)
	require.Same(t, first, got)

	second := mountedView(ent)
	ent.Attach("v1", second)
	require.False(t, first.Mounted())
	require.Equal(t, 1, ent.Mounted())

	ent.Detach("v1")
	require.False(t, second.Mounted())
	_, ok = ent.View("v1")
	require.False(t, ok)
	require.Equal(t, presentation.ShellFlags, ent.Root.Classes())
}

func TestEntryCapsMountedViews(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t, WithMaxViews(3))
	ent, err := r.Get("sid")
	require.NoError(t, err)

	views := make([]*login.View, 5)
	for i := range views {
		views[i] = mountedView(ent)
		ent.Attach(fmt.Sprintf("v%d", i), views[i])
	}
	require.Equal(t, 3, ent.Mounted())
	require.False(t, views[0].Mounted())
	require.False(t, views[1].Mounted())
	_, ok := ent.View("v0")
	require.False(t, ok)
	for _, id := range []string{"v2", "v3", "v4"} {
		_, ok := ent.View(id)
		require.True(t, ok, id)
	}

	// Re-attaching under a known id does not count twice.
	ent.Attach("v4", mountedView(ent))
	require.Equal(t, 3, ent.Mounted())
	require.True(t, views[2].Mounted())

	ent.Detach("v2")
	ent.Attach("v5", mountedView(ent))
	require.True(t, views[3].Mounted())
	require.Equal(t, 3, ent.Mounted())
}

func TestRegistryEvictsIdleEntries(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t, WithIdleTTL(time.Minute))
	ent, err := r.Get("sid")
	require.NoError(t, err)
	view := mountedView(ent)
	ent.Attach("v1", view)
	require.Empty(t, ent.Root.Classes())

	r.evict(time.Now())
	require.Equal(t, 1, r.Len(), "fresh entries survive")

	r.evict(time.Now().Add(2 * time.Minute))
	require.Zero(t, r.Len())
	require.False(t, view.Mounted())
	require.Equal(t, presentation.ShellFlags, ent.Root.Classes())
}

func TestRegistryEvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t, WithMaxEntries(2))
	for _, key := range []string{"a", "b", "c"} {
		_, err := r.Get(key)
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}
	_, err := r.Get("a")
	require.NoError(t, err)

	r.evict(time.Now())
	require.Equal(t, 2, r.Len())
	_, ok := r.Peek("b")
	require.False(t, ok)
	_, ok = r.Peek("a")
	require.True(t, ok)
}

func TestRegistryDropAndClose(t *testing.T) {
	t.Parallel()

	r := NewRegistry(identity.NewStaticProvider(nil), nil, WithEvictInterval(10*time.Millisecond))
	ent, err := r.Get("sid")
	require.NoError(t, err)
	view := mountedView(ent)
	ent.Attach("v", view)

	r.Drop("sid")
	require.False(t, view.Mounted())
	r.Drop("sid")

	_, err = r.Get("other")
	require.NoError(t, err)
	r.Close()
	r.Close()
	require.Zero(t, r.Len())

	_, err = r.Get("again")
	require.ErrorIs(t, err, ErrClosed)
}
