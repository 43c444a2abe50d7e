package playback

import (
	"context"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"
)

// SinkFactory creates the voice sink of a guild
type SinkFactory func(guildID string) Sink

// Registry holds one session per guild
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	newSink  SinkFactory
	lookup   Lookup
	config   Config
}

// NewRegistry creates an empty registry
func NewRegistry(newSink SinkFactory, lookup Lookup, config Config) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		newSink:  newSink,
		lookup:   lookup,
		config:   config,
	}
}

// Session returns the session of guildID and creates it on first use
func (r *Registry) Session(guildID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[guildID]; ok {
		return s
	}
	s := NewSession(guildID, r.newSink(guildID), r.lookup, r.config)
	r.sessions[guildID] = s
	log.WithFields(log.Fields{
		"guild":   guildID,
		"session": s.ID(),
	}).Debug("session created")
	return s
}

// Existing returns the session of guildID without creating one
func (r *Registry) Existing(guildID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[guildID]
	return s, ok
}

// Sessions returns all sessions ordered by guild id
func (r *Registry) Sessions() []*Session {
	r.mu.Lock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].GuildID() < out[j].GuildID()
	})
	return out
}

// Active counts sessions with a running loop
func (r *Registry) Active() int {
	n := 0
	for _, s := range r.Sessions() {
		if s.State() == StateStreaming {
			n++
		}
	}
	return n
}

// StopAll stops every session, used on shutdown
func (r *Registry) StopAll(ctx context.Context) {
	for _, s := range r.Sessions() {
		if _, err := s.Stop(ctx); err != nil {
			log.WithFields(log.Fields{
				"guild": s.GuildID(),
				"error": err,
			}).Warning("failed to stop session")
		}
	}
}
