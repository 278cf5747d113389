package compareapi

import (
	"sync"

	"github.com/google/uuid"

	"github.com/orderrecon/orderrecon/internal/fieldmap"
	"github.com/orderrecon/orderrecon/internal/recon"
)

// session holds everything uploaded and computed for one file pair. Lives
// in memory only; the process owns the full session lifecycle.
type session struct {
	OfficialColumns []string
	ServiceColumns  []string
	OfficialRecords []map[string]string
	ServiceRecords  []map[string]string
	OfficialAuto    fieldmap.Result
	ServiceAuto     fieldmap.Result

	// Result of the most recent compare, if any.
	HasResult bool
	Rows      []recon.Row
	Summary   recon.Summary
}

// sessionStore is a concurrency-safe in-memory session map keyed by opaque
// uuid tokens.
type sessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*session)}
}

// put stores a new session and returns its token.
func (s *sessionStore) put(sess *session) string {
	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()
	return id
}

func (s *sessionStore) get(id string) (*session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// setResult replaces the stored compare result for a session.
func (s *sessionStore) setResult(id string, rows []recon.Row, summary recon.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		sess.HasResult = true
		sess.Rows = rows
		sess.Summary = summary
	}
}
