package presentation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/poonnyworld/phantom-melody/internal/bot"
	"github.com/poonnyworld/phantom-melody/internal/modules/radio/application"
	"github.com/poonnyworld/phantom-melody/internal/modules/radio/application/ports"
	"github.com/poonnyworld/phantom-melody/internal/modules/radio/domain"
)

// Embed colors.
const (
	colorSuccess = 0x08c404
	colorError   = 0xE74C3C
	colorInfo    = 0x5865F2
)

// VoiceStateResolver locates the voice channel a user is connected to.
type VoiceStateResolver interface {
	// UserVoiceChannel returns the user's voice channel ID, or 0 when
	// the user is not in a voice channel.
	UserVoiceChannel(guildID, userID snowflake.ID) (snowflake.ID, error)
}

// TrackIDGenerator mints IDs for newly added library tracks.
type TrackIDGenerator func() string

// Handlers holds all the command handlers.
type Handlers struct {
	registry   *application.SessionRegistry
	selection  *application.SelectionTurnCoordinator
	catalog    ports.TrackCatalog
	voiceState VoiceStateResolver
	newTrackID TrackIDGenerator
	limits     application.Limits
}

// NewHandlers creates new Handlers.
func NewHandlers(
	registry *application.SessionRegistry,
	selection *application.SelectionTurnCoordinator,
	catalog ports.TrackCatalog,
	voiceState VoiceStateResolver,
	newTrackID TrackIDGenerator,
	limits application.Limits,
) *Handlers {
	return &Handlers{
		registry:   registry,
		selection:  selection,
		catalog:    catalog,
		voiceState: voiceState,
		newTrackID: newTrackID,
		limits:     limits,
	}
}

// HandlePlay handles the /play command. The selection turn is checked
// before anything else; a request from someone without the turn never
// touches the playback queue.
func (h *Handlers) HandlePlay(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	userID, err := snowflake.Parse(i.Member.User.ID)
	if err != nil {
		return respondError(r, "Invalid user")
	}

	if result := h.selection.CanSelect(userID); !result.Allowed {
		return respondNotice(r, result.Message)
	}

	var trackRef string
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "track" {
			trackRef = opt.StringValue()
		}
	}

	track, err := h.lookupTrack(ctx, trackRef)
	if err != nil {
		return respondError(r, "Couldn't find that song in the library.")
	}

	channelID, err := h.voiceState.UserVoiceChannel(guildID, userID)
	if err != nil || channelID == 0 {
		return respondError(r, "You need to be in a voice channel to request a song.")
	}

	coordinator, err := h.registry.GetOrCreate(ctx, guildID, channelID)
	if err != nil {
		if errors.Is(err, application.ErrConnectPending) {
			return respondError(r, "Still connecting to the voice channel, try again in a moment.")
		}
		return respondError(r, "Couldn't connect to the voice channel.")
	}

	entry := domain.NewQueueEntry(track, userID, getDisplayName(i.Member), false)
	if err := coordinator.AddToQueue(ctx, entry); err != nil {
		switch {
		case errors.Is(err, domain.ErrQueueFull):
			return respondError(r, fmt.Sprintf(
				"The queue is full (%d songs max). Please wait for some songs to play!",
				h.limits.MaxQueueSize,
			))
		case errors.Is(err, domain.ErrUserQuotaExceeded):
			return respondError(r, fmt.Sprintf(
				"You already have %d songs in the queue. Please wait for them to play!",
				h.limits.MaxPerUser,
			))
		default:
			return respondError(r, "Couldn't add the song to the queue.")
		}
	}

	h.selection.OnSongSelected(userID)

	return respondSuccess(r, fmt.Sprintf(
		"Added **%s** - %s to the queue.", track.Title, track.Artist,
	))
}

// lookupTrack resolves the play option value: exact catalog ID first
// (the autocomplete path), then a title search.
func (h *Handlers) lookupTrack(ctx context.Context, ref string) (*domain.Track, error) {
	track, err := h.catalog.FetchTrackByID(ctx, domain.TrackID(ref))
	if err == nil {
		return track, nil
	}
	if !errors.Is(err, ports.ErrTrackNotFound) {
		return nil, err
	}

	matches, err := h.catalog.SearchTracks(ctx, ref)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, ports.ErrTrackNotFound
	}
	return matches[0], nil
}

// HandlePin handles the /pin command. Pinned requests are a station
// manager override: they skip the selection rotation, drain before
// normal requests, and are exempt from the capacity and quota limits.
func (h *Handlers) HandlePin(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	if !isStationManager(i.Member) {
		return respondError(r, "You need the Manage Server permission to pin songs.")
	}

	ctx := context.Background()

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	userID, err := snowflake.Parse(i.Member.User.ID)
	if err != nil {
		return respondError(r, "Invalid user")
	}

	var trackRef string
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "track" {
			trackRef = opt.StringValue()
		}
	}

	track, err := h.lookupTrack(ctx, trackRef)
	if err != nil {
		return respondError(r, "Couldn't find that song in the library.")
	}

	channelID, err := h.voiceState.UserVoiceChannel(guildID, userID)
	if err != nil || channelID == 0 {
		return respondError(r, "You need to be in a voice channel to pin a song.")
	}

	coordinator, err := h.registry.GetOrCreate(ctx, guildID, channelID)
	if err != nil {
		if errors.Is(err, application.ErrConnectPending) {
			return respondError(r, "Still connecting to the voice channel, try again in a moment.")
		}
		return respondError(r, "Couldn't connect to the voice channel.")
	}

	entry := domain.NewQueueEntry(track, userID, getDisplayName(i.Member), true)
	if err := coordinator.AddToQueue(ctx, entry); err != nil {
		return respondError(r, "Couldn't add the song to the queue.")
	}

	return respondSuccess(r, fmt.Sprintf(
		"Pinned **%s** - %s to the front of the queue.", track.Title, track.Artist,
	))
}

// HandleQueue handles the /queue command.
func (h *Handlers) HandleQueue(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	coordinator := h.registry.Get(guildID)
	if coordinator == nil {
		return respondNotice(r, "Nothing is queued right now.")
	}

	current := coordinator.NowPlaying()
	entries := coordinator.QueueSnapshot()
	if current == nil && len(entries) == 0 {
		return respondNotice(r, "Nothing is queued right now.")
	}

	var sb strings.Builder
	if current != nil {
		sb.WriteString("### Now Playing\n")
		writeEntryLine(&sb, 0, current)
		if coordinator.LoopEnabled() {
			sb.WriteString("Looping is on.\n")
		}
	}
	if len(entries) > 0 {
		sb.WriteString("### Up Next\n")
		for idx, entry := range entries {
			writeEntryLine(&sb, idx+1, entry)
		}
	}

	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Title:       "Request Queue",
					Description: sb.String(),
					Color:       colorInfo,
					Footer: &discordgo.MessageEmbedFooter{
						Text: fmt.Sprintf("%d/%d songs queued", len(entries), h.limits.MaxQueueSize),
					},
				},
			},
		},
	})
}

func writeEntryLine(sb *strings.Builder, position int, entry *domain.QueueEntry) {
	pin := ""
	if entry.Pinned {
		pin = " \U0001F4CC" // 📌
	}
	requester := ""
	if entry.RequestedByName != "" {
		requester = " (requested by " + entry.RequestedByName + ")"
	}

	if position == 0 {
		fmt.Fprintf(sb, "**%s** - %s [%s]%s%s\n",
			entry.Track.Title, entry.Track.Artist, entry.Track.FormattedDuration(), pin, requester)
		return
	}
	fmt.Fprintf(sb, "%d\\. **%s** - %s [%s]%s%s\n",
		position, entry.Track.Title, entry.Track.Artist, entry.Track.FormattedDuration(), pin, requester)
}

// HandleNowPlaying handles the /nowplaying command.
func (h *Handlers) HandleNowPlaying(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	coordinator := h.registry.Get(guildID)
	if coordinator == nil {
		return respondNotice(r, "Nothing is playing right now.")
	}

	current := coordinator.NowPlaying()
	if current == nil {
		return respondNotice(r, "Nothing is playing right now.")
	}

	var sb strings.Builder
	writeEntryLine(&sb, 0, current)
	if coordinator.State() == application.StatePaused {
		sb.WriteString("Playback is paused.\n")
	}
	if coordinator.LoopEnabled() {
		sb.WriteString("Looping is on.\n")
	}

	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Title:       "Now Playing",
					Description: sb.String(),
					Color:       colorInfo,
				},
			},
		},
	})
}

// HandlePause handles the /pause command.
func (h *Handlers) HandlePause(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	coordinator, errResp := h.requireSession(i, r)
	if coordinator == nil {
		return errResp
	}

	if err := coordinator.Pause(context.Background()); err != nil {
		switch {
		case errors.Is(err, application.ErrAlreadyPaused):
			return respondError(r, "Playback is already paused.")
		case errors.Is(err, application.ErrNotPlaying):
			return respondError(r, "Nothing is playing right now.")
		default:
			return respondError(r, "Couldn't pause playback.")
		}
	}

	return respondSuccess(r, "Paused playback.")
}

// HandleResume handles the /resume command.
func (h *Handlers) HandleResume(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	coordinator, errResp := h.requireSession(i, r)
	if coordinator == nil {
		return errResp
	}

	if err := coordinator.Resume(context.Background()); err != nil {
		if errors.Is(err, application.ErrNotPaused) {
			return respondError(r, "Playback isn't paused.")
		}
		return respondError(r, "Couldn't resume playback.")
	}

	return respondSuccess(r, "Resumed playback.")
}

// HandleSkip handles the /skip command. Skipping is vote based: the
// song only stops once enough distinct listeners have voted.
func (h *Handlers) HandleSkip(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	coordinator, errResp := h.requireSession(i, r)
	if coordinator == nil {
		return errResp
	}

	userID, err := snowflake.Parse(i.Member.User.ID)
	if err != nil {
		return respondError(r, "Invalid user")
	}

	result, err := coordinator.AddSkipVote(context.Background(), userID)
	if err != nil {
		if errors.Is(err, application.ErrNotPlaying) {
			return respondError(r, "Nothing is playing right now.")
		}
		return respondError(r, "Couldn't register your vote.")
	}

	switch {
	case result.AlreadyVoted:
		return respondNotice(r, fmt.Sprintf(
			"You've already voted to skip this song. (%d/%d votes)",
			result.Votes, result.Required,
		))
	case result.Passed:
		return respondSuccess(r, fmt.Sprintf(
			"Skipping the current song! (%d/%d votes)",
			result.Votes, result.Required,
		))
	default:
		return respondSuccess(r, fmt.Sprintf(
			"Voted to skip. (%d/%d votes)",
			result.Votes, result.Required,
		))
	}
}

// HandleLoop handles the /loop command.
func (h *Handlers) HandleLoop(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	coordinator, errResp := h.requireSession(i, r)
	if coordinator == nil {
		return errResp
	}

	enabled := !coordinator.LoopEnabled()
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "enabled" {
			enabled = opt.BoolValue()
		}
	}

	coordinator.SetLoop(enabled)

	if enabled {
		return respondSuccess(r, "Now replaying the current song.")
	}
	return respondSuccess(r, "Loop disabled.")
}

// HandleStop handles the /stop command.
func (h *Handlers) HandleStop(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	if h.registry.Get(guildID) == nil {
		return respondError(r, "Not connected to a voice channel.")
	}

	h.registry.Destroy(context.Background(), guildID)
	return respondSuccess(r, "Stopped playback and left the voice channel.")
}

// HandleSelection handles the /selection command.
func (h *Handlers) HandleSelection(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return respondError(r, "Invalid subcommand")
	}

	userID, err := snowflake.Parse(i.Member.User.ID)
	if err != nil {
		return respondError(r, "Invalid user")
	}

	switch options[0].Name {
	case "join":
		result := h.selection.JoinQueue(userID, getDisplayName(i.Member))
		if result.Accepted {
			return respondSuccess(r, result.Message)
		}
		return respondNotice(r, result.Message)
	case "leave":
		result := h.selection.LeaveQueue(userID)
		if result.Accepted {
			return respondSuccess(r, result.Message)
		}
		return respondNotice(r, result.Message)
	case "status":
		return respondSelectionStatus(r, h.selection.Status())
	default:
		return respondError(r, "Unknown subcommand")
	}
}

// HandleTrackInfo handles the /trackinfo command.
func (h *Handlers) HandleTrackInfo(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	var trackRef string
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "track" {
			trackRef = opt.StringValue()
		}
	}

	track, err := h.lookupTrack(ctx, trackRef)
	if err != nil {
		return respondError(r, "Couldn't find that song in the library.")
	}

	total, monthly, err := h.catalog.PlayCounts(ctx, track.ID)
	if err != nil {
		return respondError(r, "Couldn't look up play counts.")
	}

	embed := &discordgo.MessageEmbed{
		Title: track.Title,
		Color: colorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Artist", Value: orDash(track.Artist), Inline: true},
			{Name: "Duration", Value: track.FormattedDuration(), Inline: true},
			{Name: "Category", Value: orDash(track.Category), Inline: true},
			{Name: "Plays", Value: fmt.Sprintf("%d total, %d this month", total, monthly), Inline: false},
		},
	}

	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
}

// HandleAddTrack handles the /addtrack command.
func (h *Handlers) HandleAddTrack(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	if !isStationManager(i.Member) {
		return respondError(r, "You need the Manage Server permission to edit the library.")
	}

	var (
		title, source, kind, artist, category string
		durationSeconds                       int64
	)
	for _, opt := range i.ApplicationCommandData().Options {
		switch opt.Name {
		case "title":
			title = opt.StringValue()
		case "source":
			source = opt.StringValue()
		case "kind":
			kind = opt.StringValue()
		case "artist":
			artist = opt.StringValue()
		case "category":
			category = opt.StringValue()
		case "duration":
			durationSeconds = opt.IntValue()
		}
	}

	track := &domain.Track{
		ID:       domain.TrackID(h.newTrackID()),
		Title:    title,
		Artist:   artist,
		Duration: time.Duration(durationSeconds) * time.Second,
		Source: domain.AudioSource{
			Kind: domain.ParseSourceKind(kind),
			Ref:  source,
		},
		Category: category,
	}

	if err := h.catalog.AddTrack(context.Background(), track); err != nil {
		return respondError(r, "Couldn't add the song to the library.")
	}

	return respondSuccess(r, fmt.Sprintf("Added **%s** to the library.", track.Title))
}

// HandleRemoveTrack handles the /removetrack command. The track is
// removed from the library and pulled out of every live request queue.
func (h *Handlers) HandleRemoveTrack(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	if !isStationManager(i.Member) {
		return respondError(r, "You need the Manage Server permission to edit the library.")
	}

	ctx := context.Background()

	var trackRef string
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "track" {
			trackRef = opt.StringValue()
		}
	}

	track, err := h.catalog.FetchTrackByID(ctx, domain.TrackID(trackRef))
	if err != nil {
		return respondError(r, "Couldn't find that song in the library.")
	}

	if err := h.catalog.RemoveTrack(ctx, track.ID); err != nil {
		return respondError(r, "Couldn't remove the song from the library.")
	}

	for _, coordinator := range h.registry.All() {
		coordinator.RemoveByTrackID(track.ID)
	}

	return respondSuccess(r, fmt.Sprintf("Removed **%s** from the library.", track.Title))
}

// requireSession parses the guild ID and returns its live coordinator.
// On failure it responds to the interaction and returns nil plus the
// respond error for the caller to propagate.
func (h *Handlers) requireSession(
	i *discordgo.InteractionCreate,
	r bot.Responder,
) (*application.Coordinator, error) {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return nil, respondError(r, "Invalid guild")
	}

	coordinator := h.registry.Get(guildID)
	if coordinator == nil {
		return nil, respondError(r, "Not connected to a voice channel.")
	}
	return coordinator, nil
}

func isStationManager(member *discordgo.Member) bool {
	return member != nil && member.Permissions&discordgo.PermissionManageServer != 0
}

// Response helpers.

func respondError(r bot.Responder, message string) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Title:       "Error",
					Description: message,
					Color:       colorError,
				},
			},
		},
	})
}

func respondSuccess(r bot.Responder, message string) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Description: message,
					Color:       colorSuccess,
				},
			},
		},
	})
}

func respondNotice(r bot.Responder, message string) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Description: message,
					Color:       colorInfo,
				},
			},
		},
	})
}

func respondSelectionStatus(r bot.Responder, status application.SelectionStatus) error {
	var sb strings.Builder
	if status.Selector == nil {
		sb.WriteString("Nobody is selecting right now. Join the queue to get a turn!")
	} else {
		fmt.Fprintf(&sb, "It's **%s**'s turn to select.", status.Selector.DisplayName)
		if status.Remaining > 0 {
			fmt.Fprintf(&sb, " %d seconds left.", int(status.Remaining.Round(time.Second).Seconds()))
		}
		sb.WriteString("\n")
		if len(status.Waiting) > 0 {
			sb.WriteString("### Waiting\n")
			// The selector counts as #1, so the first waiter is #2,
			// matching the position the join message reported.
			for idx, waiter := range status.Waiting {
				fmt.Fprintf(&sb, "%d\\. %s\n", idx+2, waiter.DisplayName)
			}
		}
	}

	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Title:       "Selection Queue",
					Description: sb.String(),
					Color:       colorInfo,
				},
			},
		},
	})
}

// getDisplayName returns the effective display name for a guild member.
// Priority: guild nickname > global display name > username.
func getDisplayName(member *discordgo.Member) string {
	if member.Nick != "" {
		return member.Nick
	}
	if member.User.GlobalName != "" {
		return member.User.GlobalName
	}
	return member.User.Username
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
