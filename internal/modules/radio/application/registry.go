package application

import (
	"context"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/poonnyworld/phantom-melody/internal/modules/radio/application/ports"
)

// SessionRegistry owns the guild -> Coordinator map. Exactly one
// coordinator exists per guild at a time; it is created on demand and
// removed on destroy. The registry is the sole owner of the map.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[snowflake.ID]*Coordinator

	transport ports.AudioTransport
	catalog   ports.TrackCatalog
	limits    Limits
}

// NewSessionRegistry creates an empty SessionRegistry.
func NewSessionRegistry(
	transport ports.AudioTransport,
	catalog ports.TrackCatalog,
	limits Limits,
) *SessionRegistry {
	return &SessionRegistry{
		sessions:  make(map[snowflake.ID]*Coordinator),
		transport: transport,
		catalog:   catalog,
		limits:    limits,
	}
}

// GetOrCreate returns the guild's coordinator, creating and connecting
// one if needed. An existing but disconnected coordinator is
// reconnected to the given channel. On connect failure a newly created
// coordinator is removed again.
func (r *SessionRegistry) GetOrCreate(
	ctx context.Context,
	guildID, channelID snowflake.ID,
) (*Coordinator, error) {
	r.mu.Lock()
	coord, existed := r.sessions[guildID]
	if !existed {
		coord = NewCoordinator(guildID, r.transport, r.catalog, r.limits)
		r.sessions[guildID] = coord
	}
	r.mu.Unlock()

	if err := coord.Connect(ctx, channelID); err != nil {
		if !existed {
			r.mu.Lock()
			delete(r.sessions, guildID)
			r.mu.Unlock()
		}
		return nil, err
	}
	return coord, nil
}

// Get returns the guild's coordinator without creating one, or nil.
func (r *SessionRegistry) Get(guildID snowflake.ID) *Coordinator {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[guildID]
}

// Destroy disconnects and removes the guild's coordinator. No-op if
// none exists.
func (r *SessionRegistry) Destroy(ctx context.Context, guildID snowflake.ID) {
	r.mu.Lock()
	coord := r.sessions[guildID]
	delete(r.sessions, guildID)
	r.mu.Unlock()

	if coord != nil {
		_ = coord.Disconnect(ctx)
	}
}

// All returns a snapshot of every live coordinator.
func (r *SessionRegistry) All() []*Coordinator {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Coordinator, 0, len(r.sessions))
	for _, coord := range r.sessions {
		out = append(out, coord)
	}
	return out
}

// Count returns the number of live coordinators.
func (r *SessionRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Shutdown disconnects and removes every coordinator.
func (r *SessionRegistry) Shutdown(ctx context.Context) {
	for _, coord := range r.All() {
		r.Destroy(ctx, coord.GuildID())
	}
}
