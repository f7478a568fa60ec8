package session

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dhis2-sre/im-dbaas/internal/errdef"
	"github.com/dhis2-sre/im-dbaas/pkg/model"
	"github.com/dhis2-sre/im-dbaas/pkg/poll"
	"github.com/google/uuid"
	"golang.org/x/exp/maps"
)

func NewRegistry(logger *slog.Logger, fetcher Fetcher, clock Clock, options Options, idleTTL time.Duration) *Registry {
	return &Registry{
		logger:   logger,
		fetcher:  fetcher,
		clock:    clock,
		options:  options,
		idleTTL:  idleTTL,
		sessions: make(map[string]*Session),
	}
}

// Registry keeps the open sessions. Sessions nobody has looked at for the idle TTL are closed by
// Reap.
type Registry struct {
	logger  *slog.Logger
	fetcher Fetcher
	clock   Clock
	options Options
	idleTTL time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
}

// Open creates a session and applies config to it.
func (r *Registry) Open(mode poll.Mode, config model.ClusterConfig) (*Session, error) {
	id := uuid.NewString()
	session := New(r.logger, r.fetcher, r.clock, id, mode, r.options)
	if err := session.Configure(config); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.sessions[id] = session
	r.mu.Unlock()

	r.logger.Info("Session opened", "session", id, "mode", mode, "kubernetesCluster", config.TargetKubernetesCluster)
	return session, nil
}

// Get returns the session and marks it as seen.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	session, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return nil, errdef.NewNotFound("session %s not found", id)
	}

	session.touch()
	return session, nil
}

func (r *Registry) Close(id string) error {
	r.mu.Lock()
	session, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return errdef.NewNotFound("session %s not found", id)
	}

	session.Close()
	r.logger.Info("Session closed", "session", id)
	return nil
}

// IDs returns the ids of the open sessions.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := maps.Keys(r.sessions)
	slices.Sort(ids)
	return ids
}

// Reap closes every session idle for longer than the idle TTL and returns how many were closed.
func (r *Registry) Reap() int {
	now := r.clock.Now()

	r.mu.Lock()
	var expired []*Session
	for id, session := range r.sessions {
		if session.idleSince().Add(r.idleTTL).Before(now) {
			expired = append(expired, session)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, session := range expired {
		session.Close()
		r.logger.Info("Idle session closed", "session", session.ID())
	}
	return len(expired)
}

// Run reaps idle sessions every interval until ctx is done. All sessions are closed on return.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := r.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.closeAll()
			return
		case <-ticker.C():
			if n := r.Reap(); n > 0 {
				r.logger.InfoContext(ctx, "Reaped idle sessions", "count", n)
			}
		}
	}
}

func (r *Registry) closeAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}
}
