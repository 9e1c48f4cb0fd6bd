package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/poonnyworld/phantom-melody/internal/modules/radio/application/events"
	"github.com/poonnyworld/phantom-melody/internal/modules/radio/application/ports"
	"github.com/poonnyworld/phantom-melody/internal/modules/radio/domain"
)

// playCountTimeout bounds the fire-and-forget play counter update.
const playCountTimeout = 5 * time.Second

// ConnState is the coordinator's connection lifecycle state.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateIdle
	StatePlaying
	StatePaused
)

// String returns a human-readable state name for logging.
func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "disconnected"
	}
}

// Limits are the per-guild playback tunables.
type Limits struct {
	MaxQueueSize      int
	MaxPerUser        int
	SkipVotesRequired int
}

// Coordinator owns one guild's playback: the queue, the connection
// lifecycle and the dialogue with the audio transport. All public
// methods are safe for concurrent use; a single mutex serializes every
// state transition, so interleaved callbacks (skip during a pending
// track end, vote during pause) always observe consistent state.
type Coordinator struct {
	mu        sync.Mutex
	guildID   snowflake.ID
	channelID snowflake.ID
	state     ConnState

	queue     *domain.PlaybackQueue
	transport ports.AudioTransport
	catalog   ports.TrackCatalog
}

// NewCoordinator creates a disconnected Coordinator for the guild.
func NewCoordinator(
	guildID snowflake.ID,
	transport ports.AudioTransport,
	catalog ports.TrackCatalog,
	limits Limits,
) *Coordinator {
	return &Coordinator{
		guildID:   guildID,
		queue:     domain.NewPlaybackQueue(limits.MaxQueueSize, limits.MaxPerUser, limits.SkipVotesRequired),
		transport: transport,
		catalog:   catalog,
	}
}

// Connect joins the given voice channel. Already connected is a no-op;
// a connect already in flight is rejected with ErrConnectPending rather
// than duplicated.
func (c *Coordinator) Connect(ctx context.Context, channelID snowflake.ID) error {
	c.mu.Lock()
	switch c.state {
	case StateConnecting:
		c.mu.Unlock()
		return ErrConnectPending
	case StateIdle, StatePlaying, StatePaused:
		c.channelID = channelID
		c.queue.Touch()
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	c.channelID = channelID
	c.mu.Unlock()

	// Suspension point: other operations on this guild may run while
	// the join is pending; they see StateConnecting and bail out.
	err := c.transport.Connect(ctx, c.guildID, channelID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = StateDisconnected
		return fmt.Errorf("failed to connect to voice channel: %w", err)
	}
	if c.state == StateConnecting {
		c.state = StateIdle
	}
	c.queue.Touch()
	return nil
}

// AddToQueue enqueues an entry and, if nothing is playing, starts
// playback immediately. Capacity and quota rejections come back as
// domain.ErrQueueFull / domain.ErrUserQuotaExceeded.
func (c *Coordinator) AddToQueue(ctx context.Context, entry *domain.QueueEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateDisconnected || c.state == StateConnecting {
		return ErrNotConnected
	}

	if err := c.queue.Enqueue(entry); err != nil {
		return err
	}

	slog.Debug("queued track",
		"guild", c.guildID,
		"track", entry.Track.Title,
		"pinned", entry.Pinned,
		"queue_len", c.queue.Len(),
	)

	if c.state == StateIdle {
		return c.playNextLocked(ctx)
	}
	return nil
}

// playNextLocked dequeues and streams the next entry, discarding
// entries whose audio source cannot be resolved so a bad entry never
// stalls the queue. Caller holds c.mu.
func (c *Coordinator) playNextLocked(ctx context.Context) error {
	for {
		entry := c.queue.DequeueNext()
		if entry == nil {
			c.state = StateIdle
			slog.Info("queue empty, playback idle", "guild", c.guildID)
			return nil
		}

		if err := c.transport.Play(ctx, c.guildID, entry.Track.Source); err != nil {
			slog.Warn("skipping unplayable track",
				"guild", c.guildID,
				"track", entry.Track.Title,
				"error", err,
			)
			c.queue.FinishCurrent()
			continue
		}

		c.state = StatePlaying
		slog.Info("now playing",
			"guild", c.guildID,
			"track", entry.Track.Title,
			"artist", entry.Track.Artist,
			"pinned", entry.Pinned,
		)
		c.bumpPlayCount(entry.Track.ID)
		return nil
	}
}

// bumpPlayCount updates the catalog counter off the lock, best effort.
func (c *Coordinator) bumpPlayCount(id domain.TrackID) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), playCountTimeout)
		defer cancel()
		if err := c.catalog.IncrementPlayCount(ctx, id); err != nil {
			slog.Warn("failed to increment play count", "track", id, "error", err)
		}
	}()
}

// OnTrackEnded handles a transport track-end notification. Skip and
// natural completion arrive here identically, so loop playback replays
// the finished entry in both cases.
func (c *Coordinator) OnTrackEnded(ctx context.Context, reason events.TrackEndReason) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !reason.ShouldAdvance() {
		return
	}
	if c.state != StatePlaying && c.state != StatePaused {
		// Stale notification after a disconnect.
		return
	}

	finished := c.queue.Current()
	c.queue.FinishCurrent()

	if c.queue.LoopEnabled() && finished != nil {
		c.queue.Replay(finished)
		if err := c.transport.Play(ctx, c.guildID, finished.Track.Source); err != nil {
			slog.Warn("loop replay failed, advancing",
				"guild", c.guildID,
				"track", finished.Track.Title,
				"error", err,
			)
			c.queue.FinishCurrent()
		} else {
			c.state = StatePlaying
			c.bumpPlayCount(finished.Track.ID)
			return
		}
	}

	if err := c.playNextLocked(ctx); err != nil {
		slog.Error("failed to advance playback", "guild", c.guildID, "error", err)
	}
}

// Pause pauses playback. Guarded transition: only valid while playing.
func (c *Coordinator) Pause(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StatePaused:
		return ErrAlreadyPaused
	case StatePlaying:
	default:
		return ErrNotPlaying
	}

	if err := c.transport.Pause(ctx, c.guildID); err != nil {
		return fmt.Errorf("failed to pause playback: %w", err)
	}
	c.state = StatePaused
	c.queue.Touch()
	return nil
}

// Resume resumes paused playback. Guarded transition: only valid while
// paused.
func (c *Coordinator) Resume(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePaused {
		return ErrNotPaused
	}

	if err := c.transport.Resume(ctx, c.guildID); err != nil {
		return fmt.Errorf("failed to resume playback: %w", err)
	}
	c.state = StatePlaying
	c.queue.Touch()
	return nil
}

// Skip stops the current stream. The transport reports the stop as a
// track end, so advancing (and loop replay) follows the exact same
// path as natural completion. Returns the entry being skipped.
func (c *Coordinator) Skip(ctx context.Context) (*domain.QueueEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePlaying && c.state != StatePaused {
		return nil, ErrNotPlaying
	}

	skipped := c.queue.Current()
	c.queue.Touch()
	if err := c.transport.Stop(ctx, c.guildID); err != nil {
		return nil, fmt.Errorf("failed to stop playback: %w", err)
	}
	return skipped, nil
}

// AddSkipVote records one vote against the current track and forces a
// skip when the threshold is reached.
func (c *Coordinator) AddSkipVote(ctx context.Context, userID snowflake.ID) (domain.SkipVoteResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePlaying && c.state != StatePaused {
		return domain.SkipVoteResult{}, ErrNotPlaying
	}

	result := c.queue.AddSkipVote(userID)
	if result.Passed {
		c.queue.Touch()
		if err := c.transport.Stop(ctx, c.guildID); err != nil {
			return result, fmt.Errorf("failed to stop playback: %w", err)
		}
	}
	return result, nil
}

// Disconnect tears down the voice connection and discards all queue
// state, including the current entry. Safe to call when already
// disconnected.
func (c *Coordinator) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateDisconnected {
		return nil
	}

	if err := c.transport.Disconnect(ctx, c.guildID); err != nil {
		slog.Warn("failed to disconnect transport", "guild", c.guildID, "error", err)
	}
	c.queue.FinishCurrent()
	c.queue.Clear()
	c.state = StateDisconnected
	slog.Info("playback session closed", "guild", c.guildID)
	return nil
}

// OnTransportError handles a connection failure during an active
// session: exactly one immediate reconnect attempt, then teardown. A
// second failure leaves the coordinator disconnected; the user must
// re-issue a connect-triggering action.
func (c *Coordinator) OnTransportError(ctx context.Context, message string) {
	c.mu.Lock()
	if c.state == StateDisconnected || c.state == StateConnecting {
		c.mu.Unlock()
		return
	}
	interrupted := c.queue.Current()
	channelID := c.channelID
	c.state = StateConnecting
	c.mu.Unlock()

	slog.Warn("transport error, attempting reconnect", "guild", c.guildID, "error", message)
	err := c.transport.Connect(ctx, c.guildID, channelID)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		slog.Error("reconnect failed, closing session", "guild", c.guildID, "error", err)
		c.queue.FinishCurrent()
		c.queue.Clear()
		c.state = StateDisconnected
		return
	}

	if interrupted == nil {
		c.state = StateIdle
		return
	}

	// Restart the interrupted entry from the top.
	if perr := c.transport.Play(ctx, c.guildID, interrupted.Track.Source); perr != nil {
		slog.Warn("failed to restart interrupted track",
			"guild", c.guildID,
			"track", interrupted.Track.Title,
			"error", perr,
		)
		c.queue.FinishCurrent()
		if nerr := c.playNextLocked(ctx); nerr != nil {
			slog.Error("failed to advance playback", "guild", c.guildID, "error", nerr)
		}
		return
	}
	c.state = StatePlaying
}

// GuildID returns the guild this coordinator serves.
func (c *Coordinator) GuildID() snowflake.ID {
	return c.guildID
}

// ChannelID returns the voice channel of the current or last session.
func (c *Coordinator) ChannelID() snowflake.ID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channelID
}

// State returns the current connection state.
func (c *Coordinator) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// NowPlaying returns the current entry, or nil.
func (c *Coordinator) NowPlaying() *domain.QueueEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.Current()
}

// QueueSnapshot returns queued entries in dequeue order.
func (c *Coordinator) QueueSnapshot() []*domain.QueueEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.Entries()
}

// QueueLen returns the number of queued entries.
func (c *Coordinator) QueueLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.Len()
}

// QueuedCountForUser returns the user's active non-pinned entry count.
func (c *Coordinator) QueuedCountForUser(userID snowflake.ID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.QueuedCountForUser(userID)
}

// SetLoop toggles loop playback of the current entry.
func (c *Coordinator) SetLoop(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue.SetLoop(enabled)
	c.queue.Touch()
}

// LoopEnabled reports whether loop playback is on.
func (c *Coordinator) LoopEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.LoopEnabled()
}

// RemoveByTrackID removes a queued (not playing) entry for the track
// from the normal lane.
func (c *Coordinator) RemoveByTrackID(id domain.TrackID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.RemoveByTrackID(id)
}

// LastActivity returns the time of the last user-visible action.
func (c *Coordinator) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.LastActivity()
}

// Playing reports whether a current entry exists, paused or not. The
// idle reaper never tears down a coordinator while this is true.
func (c *Coordinator) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.Current() != nil
}
