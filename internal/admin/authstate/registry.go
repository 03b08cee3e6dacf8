package authstate

import (
	"errors"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"finitefield.org/tutor-admin/internal/admin/login"
	"finitefield.org/tutor-admin/internal/admin/metrics"
	"finitefield.org/tutor-admin/internal/admin/presentation"
)

// Static defaults, overridable through Options.
const (
	IdleTTL       = 30 * time.Minute
	MaxEntries    = 10000
	MaxViews      = 8
	EvictInterval = time.Minute
)

// ErrClosed is returned once the registry has been closed.
var ErrClosed = errors.New("authstate: registry closed")

// Entry bundles the per browser-session login state: the shared store, the
// presentation root of the session's layout shell and the mounted views.
type Entry struct {
	Store *Store
	Root  *presentation.Root

	lastSeen int64 // UnixNano

	mu       sync.Mutex
	views    map[string]*login.View
	order    []string
	maxViews int
}

func newEntry(store *Store, maxViews int) *Entry {
	return &Entry{
		Store:    store,
		Root:     presentation.NewRoot(),
		views:    make(map[string]*login.View),
		maxViews: maxViews,
	}
}

func (e *Entry) touch() {
	atomic.StoreInt64(&e.lastSeen, time.Now().UnixNano())
}

// Attach registers a mounted view under id, unmounting any view it replaces.
// Past the per-entry cap the oldest views are unmounted first.
func (e *Entry) Attach(id string, view *login.View) {
	e.mu.Lock()
	prev, replaced := e.views[id]
	e.views[id] = view
	if !replaced {
		e.order = append(e.order, id)
	}
	var dropped []*login.View
	if prev != nil && prev != view {
		dropped = append(dropped, prev)
	}
	for e.maxViews > 0 && len(e.order) > e.maxViews {
		oldest := e.order[0]
		e.order = e.order[1:]
		if v := e.views[oldest]; v != nil {
			dropped = append(dropped, v)
		}
		delete(e.views, oldest)
	}
	e.mu.Unlock()
	for _, v := range dropped {
		v.Unmount()
	}
}

// View returns the view registered under id while it is still mounted.
func (e *Entry) View(id string) (*login.View, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.views[id]
	if !ok || !v.Mounted() {
		return nil, false
	}
	return v, true
}

// Detach unmounts and forgets the view registered under id.
func (e *Entry) Detach(id string) {
	e.mu.Lock()
	v := e.views[id]
	delete(e.views, id)
	e.order = slices.DeleteFunc(e.order, func(o string) bool { return o == id })
	e.mu.Unlock()
	if v != nil {
		v.Unmount()
	}
}

// UnmountAll unmounts every registered view and reports how many were active.
func (e *Entry) UnmountAll() int {
	e.mu.Lock()
	views := e.views
	e.views = make(map[string]*login.View)
	e.order = nil
	e.mu.Unlock()

	n := 0
	for _, v := range views {
		if v.Mounted() {
			n++
		}
		v.Unmount()
	}
	return n
}

// Mounted reports the number of views still mounted.
func (e *Entry) Mounted() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, v := range e.views {
		if v.Mounted() {
			n++
		}
	}
	return n
}

// Registry lazily creates entries keyed by browser session, stores them in a
// sync.Map and evicts them after idling.
type Registry struct {
	provider   Provider
	translator login.Translator
	logger     *zap.Logger

	sfg        singleflight.Group
	m          sync.Map
	idleTTL    time.Duration
	maxEntries int
	maxViews   int
	interval   time.Duration

	closed    atomic.Bool
	stop      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// Option customises a Registry.
type Option func(*Registry)

// WithIdleTTL overrides how long an unused entry is kept.
func WithIdleTTL(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.idleTTL = d
		}
	}
}

// WithMaxEntries caps the number of entries; least recently used entries are
// evicted first.
func WithMaxEntries(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.maxEntries = n
		}
	}
}

// WithMaxViews caps the mounted views kept per entry.
func WithMaxViews(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.maxViews = n
		}
	}
}

// WithEvictInterval overrides the eviction tick.
func WithEvictInterval(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithLogger sets the logger used for eviction events.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry constructs a Registry and starts the background evictor.
func NewRegistry(provider Provider, translator login.Translator, opts ...Option) *Registry {
	r := &Registry{
		provider:   provider,
		translator: translator,
		logger:     zap.NewNop(),
		idleTTL:    IdleTTL,
		maxEntries: MaxEntries,
		maxViews:   MaxViews,
		interval:   EvictInterval,
		stop:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	go r.evictLoop()
	return r
}

// Get returns the entry for key, creating it on first use.
func (r *Registry) Get(key string) (*Entry, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}
	if v, ok := r.m.Load(key); ok {
		ent := v.(*Entry)
		ent.touch()
		return ent, nil
	}

	v, err, _ := r.sfg.Do(key, func() (interface{}, error) {
		// Double-check after singleflight barrier.
		if v, ok := r.m.Load(key); ok {
			ent := v.(*Entry)
			ent.touch()
			return ent, nil
		}
		ent := newEntry(NewStore(r.provider, r.translator), r.maxViews)
		ent.touch()
		r.m.Store(key, ent)
		metrics.ActiveLoginSessions.Inc()
		return ent, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Entry), nil
}

// Peek returns the entry for key without creating or touching it.
func (r *Registry) Peek(key string) (*Entry, bool) {
	v, ok := r.m.Load(key)
	if !ok {
		return nil, false
	}
	return v.(*Entry), true
}

// Drop removes the entry for key, unmounting its views.
func (r *Registry) Drop(key string) {
	v, ok := r.m.LoadAndDelete(key)
	if !ok {
		return
	}
	ent := v.(*Entry)
	ent.UnmountAll()
	metrics.ActiveLoginSessions.Dec()
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	n := 0
	r.m.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Close stops the evictor and unmounts every view. In-flight provider calls
// are waited for.
func (r *Registry) Close() {
	r.closeOnce.Do(func() {
		r.closed.Store(true)
		close(r.stop)
		<-r.stopped
		r.m.Range(func(key, value any) bool {
			ent := value.(*Entry)
			ent.UnmountAll()
			ent.Store.Wait()
			r.m.Delete(key)
			metrics.ActiveLoginSessions.Dec()
			return true
		})
	})
}

func (r *Registry) evictLoop() {
	defer close(r.stopped)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case now := <-ticker.C:
			r.evict(now)
		}
	}
}

func (r *Registry) evict(now time.Time) {
	var count int
	r.m.Range(func(key, value any) bool {
		count++
		ent := value.(*Entry)
		idle := now.Sub(time.Unix(0, atomic.LoadInt64(&ent.lastSeen)))
		if idle > r.idleTTL {
			r.evictKey(key, "idle", idle)
		}
		return true
	})

	if r.maxEntries <= 0 || count <= r.maxEntries {
		return
	}
	type kv struct {
		key any
		at  int64
	}
	var all []kv
	r.m.Range(func(key, value any) bool {
		all = append(all, kv{key: key, at: atomic.LoadInt64(&value.(*Entry).lastSeen)})
		return true
	})
	sort.Slice(all, func(i, j int) bool { return all[i].at < all[j].at })
	for i := 0; i < len(all)-r.maxEntries; i++ {
		r.evictKey(all[i].key, "lru", now.Sub(time.Unix(0, all[i].at)))
	}
}

func (r *Registry) evictKey(key any, cause string, idle time.Duration) {
	v, ok := r.m.LoadAndDelete(key)
	if !ok {
		return
	}
	// Views still mounted here were abandoned without a navigation event.
	abandoned := v.(*Entry).UnmountAll()
	metrics.LoginSessionEvictTotal.Inc()
	metrics.ActiveLoginSessions.Dec()
	r.logger.Debug("login session evicted",
		zap.String("cause", cause),
		zap.Duration("idle", idle.Truncate(time.Second)),
		zap.Int("unmounted_views", abandoned),
	)
}
