package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/disgolink/v3/disgolink"
	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"
	"github.com/poonnyworld/phantom-melody/internal/modules/radio/application/events"
	"github.com/poonnyworld/phantom-melody/internal/modules/radio/application/ports"
	"github.com/poonnyworld/phantom-melody/internal/modules/radio/domain"
)

// voiceConnectionTimeout is the maximum time to wait for voice connection to be established.
const voiceConnectionTimeout = 10 * time.Second

// pendingVoiceConnection tracks the state of a pending voice connection.
type pendingVoiceConnection struct {
	mu             sync.Mutex
	hasVoiceState  bool
	hasVoiceServer bool
	ready          chan struct{}
}

// onEvent marks an event as received and signals ready if both events are present.
func (p *pendingVoiceConnection) onEvent(isVoiceState bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if isVoiceState {
		p.hasVoiceState = true
	} else {
		p.hasVoiceServer = true
	}

	if p.hasVoiceState && p.hasVoiceServer {
		select {
		case <-p.ready:
			// Already closed
		default:
			close(p.ready)
		}
	}
}

// voiceEventBuffer buffers voice events to ensure both VoiceStateUpdate and
// VoiceServerUpdate are received before forwarding to Lavalink.
// This prevents "Partial Lavalink voice state" errors when events arrive out of order.
type voiceEventBuffer struct {
	mu sync.Mutex

	// From VoiceStateUpdate
	hasVoiceState bool
	channelID     *snowflake.ID
	sessionID     string

	// From VoiceServerUpdate
	hasVoiceServer bool
	token          string
	endpoint       string
}

// setVoiceState stores voice state data and returns true if both events are now ready.
func (b *voiceEventBuffer) setVoiceState(channelID *snowflake.ID, sessionID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.hasVoiceState = true
	b.channelID = channelID
	b.sessionID = sessionID

	return b.hasVoiceState && b.hasVoiceServer
}

// setVoiceServer stores voice server data and returns true if both events are now ready.
func (b *voiceEventBuffer) setVoiceServer(token, endpoint string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.hasVoiceServer = true
	b.token = token
	b.endpoint = endpoint

	return b.hasVoiceState && b.hasVoiceServer
}

// getData returns the buffered data and resets the buffer.
func (b *voiceEventBuffer) getData() (channelID *snowflake.ID, sessionID, token, endpoint string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	channelID = b.channelID
	sessionID = b.sessionID
	token = b.token
	endpoint = b.endpoint

	// Reset buffer
	b.hasVoiceState = false
	b.hasVoiceServer = false
	b.channelID = nil
	b.sessionID = ""
	b.token = ""
	b.endpoint = ""

	return
}

// LavalinkTransport wraps DisGoLink to implement the AudioTransport
// port. Tracks come from the station's local library or from stream
// URLs; both are resolved through Lavalink at play time.
type LavalinkTransport struct {
	link     disgolink.Client
	session  *discordgo.Session
	botID    snowflake.ID
	musicDir string

	pendingMu sync.Mutex
	pending   map[snowflake.ID]*pendingVoiceConnection

	// voiceBuffers holds buffered voice events per guild to handle out-of-order events
	voiceBufferMu sync.Mutex
	voiceBuffers  map[snowflake.ID]*voiceEventBuffer

	bus *events.Bus
}

// LavalinkConfig contains Lavalink connection configuration.
type LavalinkConfig struct {
	Address  string
	Password string
	MusicDir string
}

// NewLavalinkTransport creates a new LavalinkTransport.
func NewLavalinkTransport(
	session *discordgo.Session,
	config LavalinkConfig,
	bus *events.Bus,
) (*LavalinkTransport, error) {
	botID, err := snowflake.Parse(session.State.User.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bot ID: %w", err)
	}

	transport := &LavalinkTransport{
		session:      session,
		botID:        botID,
		musicDir:     config.MusicDir,
		pending:      make(map[snowflake.ID]*pendingVoiceConnection),
		voiceBuffers: make(map[snowflake.ID]*voiceEventBuffer),
		bus:          bus,
	}

	// Create DisGoLink client
	link := disgolink.New(botID,
		disgolink.WithListenerFunc(transport.onTrackStart),
		disgolink.WithListenerFunc(transport.onTrackEnd),
		disgolink.WithListenerFunc(transport.onTrackException),
		disgolink.WithListenerFunc(transport.onTrackStuck),
		disgolink.WithListenerFunc(transport.onWebSocketClosed),
	)
	transport.link = link

	// Add Lavalink node
	node, err := link.AddNode(context.Background(), disgolink.NodeConfig{
		Name:     "main",
		Address:  config.Address,
		Password: config.Password,
		Secure:   false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add Lavalink node: %w", err)
	}

	slog.Info("connected to Lavalink", "node", node.Config().Name, "address", config.Address)

	return transport, nil
}

// Link returns the underlying DisGoLink client for event registration.
func (t *LavalinkTransport) Link() disgolink.Client {
	return t.link
}

// Connect joins a voice channel.
// It waits for both VoiceStateUpdate and VoiceServerUpdate events before returning.
func (t *LavalinkTransport) Connect(ctx context.Context, guildID, channelID snowflake.ID) error {
	// Create pending connection tracker
	pending := &pendingVoiceConnection{
		ready: make(chan struct{}),
	}

	t.pendingMu.Lock()
	t.pending[guildID] = pending
	t.pendingMu.Unlock()

	// Cleanup pending entry when done
	defer func() {
		t.pendingMu.Lock()
		delete(t.pending, guildID)
		t.pendingMu.Unlock()
	}()

	// Use discordgo to update voice state
	err := t.session.ChannelVoiceJoinManual(guildID.String(), channelID.String(), false, true)
	if err != nil {
		return fmt.Errorf("failed to join voice channel: %w", err)
	}

	// Wait for voice connection to be established (both events received)
	select {
	case <-pending.ready:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context cancelled while waiting for voice connection: %w", ctx.Err())
	case <-time.After(voiceConnectionTimeout):
		return fmt.Errorf("timeout waiting for voice connection")
	}
}

// Disconnect leaves the voice channel and destroys the guild's player.
func (t *LavalinkTransport) Disconnect(ctx context.Context, guildID snowflake.ID) error {
	player := t.link.ExistingPlayer(guildID)
	if player != nil {
		if err := player.Destroy(ctx); err != nil {
			slog.Warn("failed to destroy player", "guild", guildID, "error", err)
		}
	}

	err := t.session.ChannelVoiceJoinManual(guildID.String(), "", false, false)
	if err != nil {
		return fmt.Errorf("failed to leave voice channel: %w", err)
	}
	return nil
}

// Play resolves the audio source and starts streaming it.
func (t *LavalinkTransport) Play(ctx context.Context, guildID snowflake.ID, source domain.AudioSource) error {
	identifier, err := t.resolveIdentifier(source)
	if err != nil {
		return err
	}

	encoded, err := t.loadEncodedTrack(ctx, identifier)
	if err != nil {
		return err
	}

	player := t.link.Player(guildID)

	// Use WithEncodedTrack to avoid userData:null issue
	if err := player.Update(ctx, lavalink.WithEncodedTrack(encoded)); err != nil {
		return fmt.Errorf("failed to play track: %w", err)
	}

	return nil
}

// resolveIdentifier maps an audio source to a Lavalink load identifier.
// Local sources must exist on disk under the music directory.
func (t *LavalinkTransport) resolveIdentifier(source domain.AudioSource) (string, error) {
	switch source.Kind {
	case domain.SourceLocalFile:
		if source.Ref == "" {
			return "", fmt.Errorf("%w: empty file reference", ports.ErrUnresolvableSource)
		}
		path := filepath.Join(t.musicDir, source.Ref)
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("%w: %s: %v", ports.ErrUnresolvableSource, source.Ref, err)
		}
		return path, nil

	case domain.SourceStreamURL:
		if source.Ref == "" {
			return "", fmt.Errorf("%w: empty stream URL", ports.ErrUnresolvableSource)
		}
		return source.Ref, nil

	default:
		return "", fmt.Errorf("%w: unknown source kind %q", ports.ErrUnresolvableSource, source.Kind)
	}
}

// loadEncodedTrack asks Lavalink to load the identifier and returns the
// encoded form of the first playable track.
func (t *LavalinkTransport) loadEncodedTrack(ctx context.Context, identifier string) (string, error) {
	node := t.link.BestNode()
	if node == nil {
		return "", fmt.Errorf("no available Lavalink node")
	}

	result, err := node.LoadTracks(ctx, identifier)
	if err != nil {
		return "", fmt.Errorf("failed to load tracks: %w", err)
	}

	switch data := result.Data.(type) {
	case lavalink.Track:
		return data.Encoded, nil

	case lavalink.Playlist:
		if len(data.Tracks) == 0 {
			return "", fmt.Errorf("%w: empty playlist", ports.ErrUnresolvableSource)
		}
		return data.Tracks[0].Encoded, nil

	case lavalink.Search:
		if len(data) == 0 {
			return "", fmt.Errorf("%w: no search results", ports.ErrUnresolvableSource)
		}
		return data[0].Encoded, nil

	case lavalink.Empty:
		return "", fmt.Errorf("%w: no matches", ports.ErrUnresolvableSource)

	case lavalink.Exception:
		return "", fmt.Errorf("%w: %s", ports.ErrUnresolvableSource, data.Message)

	default:
		return "", fmt.Errorf("%w: unexpected load result", ports.ErrUnresolvableSource)
	}
}

// Stop stops the current playback.
func (t *LavalinkTransport) Stop(ctx context.Context, guildID snowflake.ID) error {
	player := t.link.Player(guildID)

	if err := player.Update(ctx, lavalink.WithNullTrack()); err != nil {
		return fmt.Errorf("failed to stop playback: %w", err)
	}

	return nil
}

// Pause pauses the current playback.
func (t *LavalinkTransport) Pause(ctx context.Context, guildID snowflake.ID) error {
	player := t.link.Player(guildID)

	if err := player.Update(ctx, lavalink.WithPaused(true)); err != nil {
		return fmt.Errorf("failed to pause playback: %w", err)
	}

	return nil
}

// Resume resumes the current playback.
func (t *LavalinkTransport) Resume(ctx context.Context, guildID snowflake.ID) error {
	player := t.link.Player(guildID)

	if err := player.Update(ctx, lavalink.WithPaused(false)); err != nil {
		return fmt.Errorf("failed to resume playback: %w", err)
	}

	return nil
}

// OnVoiceServerUpdate handles Discord voice server updates.
// This must be called from the Discord event handler.
func (t *LavalinkTransport) OnVoiceServerUpdate(event *discordgo.VoiceServerUpdate) {
	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice server update", "error", err)
		return
	}

	// Get or create voice buffer for this guild
	buffer := t.getOrCreateVoiceBuffer(guildID)

	// Store voice server data and check if both events are ready
	if buffer.setVoiceServer(event.Token, event.Endpoint) {
		// Both events received, forward to Lavalink
		t.forwardBufferedVoiceEvents(guildID, buffer)
	}

	// Signal that we received the voice server update (for Connect waiting)
	t.pendingMu.Lock()
	pending := t.pending[guildID]
	t.pendingMu.Unlock()

	if pending != nil {
		pending.onEvent(false)
	}
}

// OnVoiceStateUpdate handles Discord voice state updates.
// This must be called from the Discord event handler.
func (t *LavalinkTransport) OnVoiceStateUpdate(event *discordgo.VoiceStateUpdate) {
	// Only handle updates for the bot itself
	if event.UserID != t.botID.String() {
		return
	}

	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice state update", "error", err)
		return
	}

	sessionID := event.SessionID

	// Parse the channel ID - if empty, the bot is disconnecting
	var channelID *snowflake.ID
	if event.ChannelID != "" {
		id, err := snowflake.Parse(event.ChannelID)
		if err != nil {
			slog.Error("failed to parse channel ID in voice state update", "error", err)
			return
		}
		channelID = &id
	}

	// Handle disconnect immediately (no need to wait for VoiceServerUpdate)
	if channelID == nil {
		t.link.OnVoiceStateUpdate(context.Background(), guildID, nil, sessionID)
		t.clearVoiceBuffer(guildID)
		return
	}

	// Get or create voice buffer for this guild
	buffer := t.getOrCreateVoiceBuffer(guildID)

	// Store voice state data and check if both events are ready
	if buffer.setVoiceState(channelID, sessionID) {
		// Both events received, forward to Lavalink
		t.forwardBufferedVoiceEvents(guildID, buffer)
	}

	// Signal that we received the voice state update (for Connect waiting)
	t.pendingMu.Lock()
	pending := t.pending[guildID]
	t.pendingMu.Unlock()

	if pending != nil {
		pending.onEvent(true)
	}
}

// getOrCreateVoiceBuffer returns the voice buffer for a guild, creating one if needed.
func (t *LavalinkTransport) getOrCreateVoiceBuffer(guildID snowflake.ID) *voiceEventBuffer {
	t.voiceBufferMu.Lock()
	defer t.voiceBufferMu.Unlock()

	buffer, exists := t.voiceBuffers[guildID]
	if !exists {
		buffer = &voiceEventBuffer{}
		t.voiceBuffers[guildID] = buffer
	}
	return buffer
}

// clearVoiceBuffer removes the voice buffer for a guild.
func (t *LavalinkTransport) clearVoiceBuffer(guildID snowflake.ID) {
	t.voiceBufferMu.Lock()
	defer t.voiceBufferMu.Unlock()
	delete(t.voiceBuffers, guildID)
}

// forwardBufferedVoiceEvents sends the buffered voice events to Lavalink.
func (t *LavalinkTransport) forwardBufferedVoiceEvents(
	guildID snowflake.ID,
	buffer *voiceEventBuffer,
) {
	channelID, sessionID, token, endpoint := buffer.getData()

	slog.Debug("forwarding buffered voice events to Lavalink",
		"guild", guildID,
		"channel", channelID,
		"hasSessionID", sessionID != "",
	)

	// Forward to Lavalink in the correct order
	t.link.OnVoiceStateUpdate(context.Background(), guildID, channelID, sessionID)
	t.link.OnVoiceServerUpdate(context.Background(), guildID, token, endpoint)
}

func (t *LavalinkTransport) onTrackStart(player disgolink.Player, event lavalink.TrackStartEvent) {
	slog.Debug("track started", "guild", player.GuildID(), "track", event.Track.Info.Title)
}

func (t *LavalinkTransport) onTrackEnd(player disgolink.Player, event lavalink.TrackEndEvent) {
	slog.Debug("track ended", "guild", player.GuildID(), "reason", event.Reason)

	t.bus.PublishTrackEnded(events.TrackEndedEvent{
		GuildID: player.GuildID(),
		Reason:  convertEndReason(event.Reason),
	})
}

func (t *LavalinkTransport) onTrackException(
	player disgolink.Player,
	event lavalink.TrackExceptionEvent,
) {
	slog.Warn("track exception", "guild", player.GuildID(), "error", event.Exception.Message)

	t.bus.PublishTrackEnded(events.TrackEndedEvent{
		GuildID: player.GuildID(),
		Reason:  events.TrackEndLoadFailed,
	})
}

func (t *LavalinkTransport) onTrackStuck(player disgolink.Player, event lavalink.TrackStuckEvent) {
	slog.Warn("track stuck", "guild", player.GuildID(), "threshold", event.Threshold)
}

func (t *LavalinkTransport) onWebSocketClosed(player disgolink.Player, event lavalink.WebSocketClosedEvent) {
	// Code 4014 means Discord kicked us out of the channel on purpose;
	// treat everything else as a transport failure.
	slog.Warn("voice websocket closed",
		"guild", player.GuildID(),
		"code", event.Code,
		"reason", event.Reason,
		"by_remote", event.ByRemote,
	)

	if event.Code == 4014 {
		return
	}

	t.bus.PublishTransportError(events.TransportErrorEvent{
		GuildID: player.GuildID(),
		Message: fmt.Sprintf("voice websocket closed: %d %s", event.Code, event.Reason),
	})
}

func convertEndReason(reason lavalink.TrackEndReason) events.TrackEndReason {
	switch reason {
	case lavalink.TrackEndReasonFinished:
		return events.TrackEndFinished
	case lavalink.TrackEndReasonLoadFailed:
		return events.TrackEndLoadFailed
	case lavalink.TrackEndReasonStopped:
		return events.TrackEndStopped
	case lavalink.TrackEndReasonReplaced:
		return events.TrackEndReplaced
	case lavalink.TrackEndReasonCleanup:
		return events.TrackEndCleanup
	default:
		return events.TrackEndStopped
	}
}

// Ensure LavalinkTransport implements the transport port.
var _ ports.AudioTransport = (*LavalinkTransport)(nil)
