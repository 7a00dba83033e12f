package compiler

import (
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"vellum/internal/events"
)

// Service keeps the open sessions by id.
type Service struct {
	base Options

	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool
}

// NewService creates a registry whose sessions start from base.
func NewService(base Options) *Service {
	return &Service{
		base:     base.withDefaults(),
		sessions: make(map[string]*Session),
	}
}

// Open starts a session. An empty id gets a random UUID. configure, when not
// nil, adjusts a copy of the service options (typically Root and DefaultMain).
func (s *Service) Open(id string, configure func(*Options)) (*Session, error) {
	if id == "" {
		id = uuid.NewString()
	}
	opts := s.base
	if configure != nil {
		configure(&opts)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	if _, ok := s.sessions[id]; ok {
		return nil, fmt.Errorf("session %q is already open", id)
	}
	sess := NewSession(id, opts)
	s.sessions[id] = sess
	s.base.Metrics.SetSessions(len(s.sessions))
	return sess, nil
}

func (s *Service) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSession, id)
	}
	return sess, nil
}

// IDs lists the open sessions.
func (s *Service) IDs() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	slices.Sort(ids)
	return ids
}

// Submit routes req to the session named by req.SessionID.
func (s *Service) Submit(req Request) (uint64, error) {
	sess, err := s.Get(req.SessionID)
	if err != nil {
		return 0, err
	}
	return sess.Submit(req)
}

func (s *Service) Render(sessionID string, index int, scale float64, nonce uint64) (events.Page, error) {
	sess, err := s.Get(sessionID)
	if err != nil {
		return events.Page{}, err
	}
	return sess.RenderPage(index, scale, nonce)
}

// Close closes and forgets one session.
func (s *Service) Close(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.base.Metrics.SetSessions(len(s.sessions))
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSession, id)
	}
	sess.Close()
	return nil
}

// CloseAll closes every session; later Opens fail.
func (s *Service) CloseAll() {
	s.mu.Lock()
	s.closed = true
	all := s.sessions
	s.sessions = make(map[string]*Session)
	s.base.Metrics.SetSessions(0)
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, sess := range all {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess.Close()
		}()
	}
	wg.Wait()
}
