package ports

import (
	"context"
	"errors"

	"github.com/disgoorg/snowflake/v2"
	"github.com/poonnyworld/phantom-melody/internal/modules/radio/domain"
)

// ErrUnresolvableSource is wrapped by Play when a track's audio source
// cannot be turned into a playable stream (missing local file, invalid
// stream reference). The coordinator discards such entries and moves on.
var ErrUnresolvableSource = errors.New("audio source cannot be resolved")

// AudioTransport is the boundary to the external audio output. One
// connection exists per guild and is exclusively driven by that guild's
// coordinator. Track-end and transport-error notifications arrive
// asynchronously on the event bus, not through this interface.
type AudioTransport interface {
	// Connect joins the given voice channel.
	Connect(ctx context.Context, guildID, channelID snowflake.ID) error

	// Disconnect leaves the voice channel and releases the connection.
	Disconnect(ctx context.Context, guildID snowflake.ID) error

	// Play resolves the audio source and begins streaming it.
	Play(ctx context.Context, guildID snowflake.ID, source domain.AudioSource) error

	// Stop stops the active stream. The transport reports the end of
	// the track through the event bus, same as natural completion.
	Stop(ctx context.Context, guildID snowflake.ID) error

	// Pause pauses the active stream.
	Pause(ctx context.Context, guildID snowflake.ID) error

	// Resume resumes a paused stream.
	Resume(ctx context.Context, guildID snowflake.ID) error
}
