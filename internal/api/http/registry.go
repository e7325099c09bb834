package http

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-quiz/internal/metrics"
	"github.com/mind-engage/mindengage-quiz/internal/session"
)

var ErrSessionNotFound = errors.New("session not found")

type entry struct {
	mu   sync.Mutex // serializes transitions
	s    *session.Session
	view atomic.Pointer[session.View]

	lastUsed    atomic.Int64 // unix nanos
	completedAt atomic.Int64 // unix nanos, 0 while not completed
}

func (e *entry) publish(loading bool) session.View {
	v := e.s.View()
	v.Loading = v.Loading || loading
	e.view.Store(&v)
	return v
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithIdleTTL evicts sessions untouched for d. Zero keeps idle sessions.
func WithIdleTTL(d time.Duration) RegistryOption {
	return func(g *Registry) { g.idleTTL = d }
}

// WithCompletedTTL keeps completed sessions readable for d before eviction.
// Zero drops them as soon as completion is published.
func WithCompletedTTL(d time.Duration) RegistryOption {
	return func(g *Registry) { g.completedTTL = d }
}

func WithRegistryClock(now func() time.Time) RegistryOption {
	return func(g *Registry) { g.now = now }
}

// Registry owns the live sessions of the process, keyed by an opaque handle.
// Transitions on one session never overlap; a second caller gets
// session.ErrBusy instead of waiting. Reads never block and return the last
// published view.
type Registry struct {
	newSession   func() *session.Session
	metrics      *metrics.Metrics
	idleTTL      time.Duration
	completedTTL time.Duration
	now          func() time.Time

	mu       sync.RWMutex
	sessions map[string]*entry
}

func NewRegistry(newSession func() *session.Session, m *metrics.Metrics, opts ...RegistryOption) *Registry {
	g := &Registry{newSession: newSession, metrics: m, now: time.Now, sessions: map[string]*entry{}}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Create starts a session. It is registered only when initialization succeeds.
func (g *Registry) Create(ctx context.Context, activityID, studentID string) (string, session.View, error) {
	e := &entry{s: g.newSession()}
	if err := e.s.Initialize(ctx, activityID, studentID); err != nil {
		return "", session.View{}, err
	}
	id := uuid.NewString()
	v := e.publish(false)
	e.lastUsed.Store(g.now().UnixNano())

	g.mu.Lock()
	g.sessions[id] = e
	g.mu.Unlock()
	if g.metrics != nil {
		g.metrics.ActiveSessions.Inc()
	}
	return id, v, nil
}

func (g *Registry) get(id string) (*entry, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, ok := g.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e, nil
}

// View returns the last published snapshot of a session.
func (g *Registry) View(id string) (session.View, error) {
	e, err := g.get(id)
	if err != nil {
		return session.View{}, err
	}
	e.lastUsed.Store(g.now().UnixNano())
	return *e.view.Load(), nil
}

// Do runs fn as the only transition in flight for the session and publishes
// the resulting view, also on error. A session that ends up completed is
// evicted right away or after the completed TTL.
func (g *Registry) Do(id string, fn func(*session.Session) error) (session.View, error) {
	e, err := g.get(id)
	if err != nil {
		return session.View{}, err
	}
	if !e.mu.TryLock() {
		return session.View{}, session.ErrBusy
	}
	defer e.mu.Unlock()

	e.publish(true)
	err = fn(e.s)
	v := e.publish(false)

	now := g.now().UnixNano()
	e.lastUsed.Store(now)
	if e.s.Completed() {
		if g.completedTTL <= 0 {
			g.remove(id, e)
		} else {
			e.completedAt.CompareAndSwap(0, now)
		}
	}
	return v, err
}

func (g *Registry) Delete(id string) error {
	e, err := g.get(id)
	if err != nil {
		return err
	}
	if !g.remove(id, e) {
		return ErrSessionNotFound
	}
	return nil
}

// remove drops id only while it still maps to e.
func (g *Registry) remove(id string, e *entry) bool {
	g.mu.Lock()
	cur, ok := g.sessions[id]
	if ok && cur == e {
		delete(g.sessions, id)
	}
	g.mu.Unlock()
	if !ok || cur != e {
		return false
	}
	if g.metrics != nil {
		g.metrics.ActiveSessions.Dec()
	}
	return true
}

// Sweep evicts idle and expired completed sessions and returns how many it
// dropped. Sessions with a transition in flight are skipped.
func (g *Registry) Sweep() int {
	now := g.now()
	var expired []string

	g.mu.RLock()
	for id, e := range g.sessions {
		if g.expired(e, now) {
			expired = append(expired, id)
		}
	}
	g.mu.RUnlock()

	n := 0
	for _, id := range expired {
		e, err := g.get(id)
		if err != nil || !e.mu.TryLock() {
			continue
		}
		if g.expired(e, now) && g.remove(id, e) {
			n++
		}
		e.mu.Unlock()
	}
	return n
}

func (g *Registry) expired(e *entry, now time.Time) bool {
	if at := e.completedAt.Load(); at != 0 && now.Sub(time.Unix(0, at)) >= g.completedTTL {
		return true
	}
	return g.idleTTL > 0 && now.Sub(time.Unix(0, e.lastUsed.Load())) >= g.idleTTL
}

// RunSweeper calls Sweep every interval until ctx is done.
func (g *Registry) RunSweeper(ctx context.Context, every time.Duration, onSweep func(n int)) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := g.Sweep(); n > 0 && onSweep != nil {
				onSweep(n)
			}
		}
	}
}

func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.sessions)
}
