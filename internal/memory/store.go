package memory

import "sync"

// Session pairs a conversation state with a per-session turn lock. The
// dialogue controller holds the lock for the whole turn, so concurrent
// messages on one session id serialize while other sessions run in parallel.
type Session struct {
	mu     sync.Mutex
	Memory *ChatMemory
}

// Lock acquires the session's turn lock.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session's turn lock.
func (s *Session) Unlock() { s.mu.Unlock() }

// Store maps session ids to conversation state. Creation is lazy and
// atomic: two concurrent first turns on the same id see the same session.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// GetOrCreate returns the session for id, creating it on first contact.
func (s *Store) GetOrCreate(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		sess = &Session{Memory: NewChatMemory()}
		s.sessions[id] = sess
	}
	return sess
}

// Get returns the session for id, or nil if the id has never been seen.
func (s *Store) Get(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
