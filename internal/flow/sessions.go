package flow

import "sync"

// Sessions serializes event processing per identity: events for the same
// conversation run one at a time to completion, while different identities
// proceed concurrently. Entries are small and live for the process lifetime;
// a finished conversation is just an idle record with no drafts.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	mu   sync.Mutex
	conv Conversation
}

func newSessions() *Sessions {
	return &Sessions{sessions: make(map[string]*session)}
}

func (s *Sessions) acquire(identity string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[identity]
	if !ok {
		sess = &session{conv: Conversation{Identity: identity, State: StateIdle}}
		s.sessions[identity] = sess
	}
	return sess
}
