package application

import "errors"

// Expected failures of playback operations. Handlers branch on these
// and turn them into user-facing replies; none of them is fatal.
var (
	// ErrNotConnected is returned when an operation needs an active
	// voice session for the guild.
	ErrNotConnected = errors.New("not connected to a voice channel")

	// ErrConnectPending is returned when a connect attempt is already
	// in flight for the guild.
	ErrConnectPending = errors.New("a connection attempt is already in progress")

	// ErrNotPlaying is returned when no track is currently playing.
	ErrNotPlaying = errors.New("nothing is currently playing")

	// ErrAlreadyPaused is returned when pausing an already paused player.
	ErrAlreadyPaused = errors.New("playback is already paused")

	// ErrNotPaused is returned when resuming a player that is not paused.
	ErrNotPaused = errors.New("playback is not paused")
)
