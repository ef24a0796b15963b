package voicesession

import (
	"sync"

	"github.com/princeofnothin/teste-languify/pkg/realtime"
)

// Store is a single-slot, last-write-wins view of a session. The Coordinator
// is its only writer; any number of readers may snapshot or subscribe.
type Store struct {
	mu     sync.RWMutex
	st     State
	subs   map[uint64]chan State
	nextID uint64
	closed bool
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{subs: make(map[uint64]chan State)}
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st
}

// Transcript returns the latest transcript.
func (s *Store) Transcript() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.Transcript
}

// Connection returns the latest connection status.
func (s *Store) Connection() realtime.ConnStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.Connection
}

// Subscribe returns a channel that always holds the newest state. Values a
// slow reader has not picked up yet are replaced, never queued. The channel
// is closed by cancel or when the session stops.
func (s *Store) Subscribe() (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan State, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	ch <- s.st

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

func (s *Store) update(fn func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	fn(&s.st)
	s.st.Version++
	for _, ch := range s.subs {
		select {
		case ch <- s.st:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- s.st
		}
	}
}

func (s *Store) setConnection(c realtime.ConnStatus) {
	s.update(func(st *State) {
		st.Connection = c
		if c.Err != nil {
			st.LastError = c.Err
		}
	})
}

func (s *Store) setPayload(p string) {
	s.update(func(st *State) { st.LastPayload = p })
}

func (s *Store) setTranscript(p, text string, turn TurnState) {
	s.update(func(st *State) {
		st.LastPayload = p
		st.Transcript = text
		st.Turn = turn
	})
}

func (s *Store) setError(err error) {
	s.update(func(st *State) { st.LastError = err })
}

func (s *Store) setTurn(t TurnState) {
	s.update(func(st *State) { st.Turn = t })
}

// close publishes the zero state and closes every subscription.
func (s *Store) close() {
	s.update(func(st *State) {
		v := st.Version
		*st = State{Version: v}
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}
