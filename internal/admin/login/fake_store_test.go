package login

import (
	"context"
	"sync"
)

type call struct {
	kind     string
	email    string
	password string
	link     string
}

type fakeStore struct {
	mu        sync.Mutex
	state     State
	listeners map[int]func(State)
	next      int
	calls     []call
	resets    int
	// loadOnSubmit mirrors a real store flipping to loading synchronously.
	loadOnSubmit bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{listeners: make(map[int]func(State)), loadOnSubmit: true}
}

func (s *fakeStore) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *fakeStore) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.next
	s.next++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *fakeStore) SubmitCredentials(_ context.Context, email, password string) {
	s.record(call{kind: "credentials", email: email, password: password})
}

func (s *fakeStore) SubmitPassword(_ context.Context, email, newPassword, link string) {
	s.record(call{kind: "password", email: email, password: newPassword, link: link})
}

func (s *fakeStore) record(c call) {
	s.mu.Lock()
	s.calls = append(s.calls, c)
	load := s.loadOnSubmit
	s.mu.Unlock()
	if load {
		s.set(State{IsLoading: true})
	}
}

func (s *fakeStore) Reset() {
	s.mu.Lock()
	s.resets++
	s.mu.Unlock()
	s.set(State{IsAuthenticated: s.State().IsAuthenticated})
}

func (s *fakeStore) set(next State) {
	s.mu.Lock()
	if s.state == next {
		s.mu.Unlock()
		return
	}
	s.state = next
	fns := make([]func(State), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(next)
	}
}

func (s *fakeStore) snapshot() ([]call, int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]call, len(s.calls))
	copy(out, s.calls)
	return out, s.resets, len(s.listeners)
}
