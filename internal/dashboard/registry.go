package dashboard

import (
	"log"
	"sync"
	"time"

	"ecoroute-dashboard/internal/services/fleetapi"

	"github.com/google/uuid"
)

// Registry holds the live sessions of the process
type Registry struct {
	api  fleetapi.FleetService
	opts Options

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry whose sessions share api and opts
func NewRegistry(api fleetapi.FleetService, opts Options) *Registry {
	return &Registry{
		api:      api,
		opts:     opts.withDefaults(),
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session in the welcome view
func (r *Registry) Create() *Session {
	s := NewSession(uuid.NewString(), r.api, r.opts)

	r.mu.Lock()
	r.sessions[s.ID] = s
	total := len(r.sessions)
	r.mu.Unlock()

	log.Printf("✅ [SESSION %s] Created (%d active)", s.ID, total)
	return s
}

// Get looks a session up by id and counts the lookup as activity
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()

	if ok {
		s.Touch()
	}
	return s, ok
}

// Close tears down and forgets a session
func (r *Registry) Close(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		s.Close()
	}
	return ok
}

// Sweep closes sessions idle for longer than maxIdle and returns their ids
func (r *Registry) Sweep(maxIdle time.Duration) []string {
	now := r.opts.Now()

	r.mu.Lock()
	var expired []*Session
	for id, s := range r.sessions {
		if now.Sub(s.LastActive()) > maxIdle {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	ids := make([]string, 0, len(expired))
	for _, s := range expired {
		s.Close()
		ids = append(ids, s.ID)
	}
	if len(ids) > 0 {
		log.Printf("🧹 Swept %d idle sessions", len(ids))
	}
	return ids
}

// CloseAll tears down every session, used on shutdown
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}

// Count returns the number of live sessions
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
