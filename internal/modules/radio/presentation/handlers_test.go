package presentation

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/poonnyworld/phantom-melody/internal/bot"
	"github.com/poonnyworld/phantom-melody/internal/modules/radio/application"
	"github.com/poonnyworld/phantom-melody/internal/modules/radio/application/ports"
	"github.com/poonnyworld/phantom-melody/internal/modules/radio/domain"
)

type stubTransport struct{}

func (t *stubTransport) Connect(ctx context.Context, guildID, channelID snowflake.ID) error {
	return nil
}
func (t *stubTransport) Disconnect(ctx context.Context, guildID snowflake.ID) error { return nil }
func (t *stubTransport) Play(ctx context.Context, guildID snowflake.ID, source domain.AudioSource) error {
	return nil
}
func (t *stubTransport) Stop(ctx context.Context, guildID snowflake.ID) error   { return nil }
func (t *stubTransport) Pause(ctx context.Context, guildID snowflake.ID) error  { return nil }
func (t *stubTransport) Resume(ctx context.Context, guildID snowflake.ID) error { return nil }

type stubCatalog struct {
	mu      sync.Mutex
	tracks  map[domain.TrackID]*domain.Track
	plays   map[domain.TrackID]int64
	removed []domain.TrackID
}

func newStubCatalog() *stubCatalog {
	return &stubCatalog{
		tracks: make(map[domain.TrackID]*domain.Track),
		plays:  make(map[domain.TrackID]int64),
	}
}

func (c *stubCatalog) add(track *domain.Track) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracks[track.ID] = track
}

func (c *stubCatalog) FetchTrackByID(ctx context.Context, id domain.TrackID) (*domain.Track, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	track, ok := c.tracks[id]
	if !ok {
		return nil, ports.ErrTrackNotFound
	}
	return track, nil
}

func (c *stubCatalog) SearchTracks(ctx context.Context, query string) ([]*domain.Track, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var matches []*domain.Track
	for _, track := range c.tracks {
		if strings.Contains(strings.ToLower(track.Title), strings.ToLower(query)) {
			matches = append(matches, track)
		}
	}
	return matches, nil
}

func (c *stubCatalog) ListTracks(ctx context.Context, category string) ([]*domain.Track, error) {
	return nil, nil
}

func (c *stubCatalog) IncrementPlayCount(ctx context.Context, id domain.TrackID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plays[id]++
	return nil
}

func (c *stubCatalog) PlayCounts(ctx context.Context, id domain.TrackID) (int64, int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tracks[id]; !ok {
		return 0, 0, ports.ErrTrackNotFound
	}
	return c.plays[id], c.plays[id], nil
}

func (c *stubCatalog) AddTrack(ctx context.Context, track *domain.Track) error {
	c.add(track)
	return nil
}

func (c *stubCatalog) RemoveTrack(ctx context.Context, id domain.TrackID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tracks[id]; !ok {
		return ports.ErrTrackNotFound
	}
	delete(c.tracks, id)
	c.removed = append(c.removed, id)
	return nil
}

func (c *stubCatalog) ResetMonthlyCounters(ctx context.Context) error { return nil }

type stubVoiceState struct {
	channels map[snowflake.ID]snowflake.ID
}

func (v *stubVoiceState) UserVoiceChannel(guildID, userID snowflake.ID) (snowflake.ID, error) {
	return v.channels[userID], nil
}

type fixture struct {
	handlers  *Handlers
	registry  *application.SessionRegistry
	selection *application.SelectionTurnCoordinator
	catalog   *stubCatalog
	voice     *stubVoiceState
}

func newFixture(limits application.Limits) *fixture {
	catalog := newStubCatalog()
	registry := application.NewSessionRegistry(&stubTransport{}, catalog, limits)
	selection := application.NewSelectionTurnCoordinator(time.Minute)
	voice := &stubVoiceState{channels: make(map[snowflake.ID]snowflake.ID)}

	return &fixture{
		handlers: NewHandlers(
			registry, selection, catalog, voice,
			func() string { return "generated-id" },
			limits,
		),
		registry:  registry,
		selection: selection,
		catalog:   catalog,
		voice:     voice,
	}
}

func defaultLimits() application.Limits {
	return application.Limits{MaxQueueSize: 10, MaxPerUser: 2, SkipVotesRequired: 2}
}

func libraryTrack(id, title string) *domain.Track {
	return &domain.Track{
		ID:       domain.TrackID(id),
		Title:    title,
		Artist:   "Artist",
		Duration: 3 * time.Minute,
		Source:   domain.AudioSource{Kind: domain.SourceLocalFile, Ref: id + ".mp3"},
	}
}

func commandInteraction(userID, username string, options ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type:    discordgo.InteractionApplicationCommand,
			GuildID: "100",
			Member: &discordgo.Member{
				User: &discordgo.User{ID: userID, Username: username},
			},
			Data: discordgo.ApplicationCommandInteractionData{Options: options},
		},
	}
}

func stringOption(name, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  name,
		Type:  discordgo.ApplicationCommandOptionString,
		Value: value,
	}
}

func subcommandOption(name string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name: name,
		Type: discordgo.ApplicationCommandOptionSubCommand,
	}
}

func responseDescription(t *testing.T, responder *bot.MockResponder) string {
	t.Helper()
	if responder.LastResponse == nil {
		t.Fatal("expected a response")
	}
	embeds := responder.LastResponse.Data.Embeds
	if len(embeds) == 0 {
		t.Fatal("expected an embed in the response")
	}
	return embeds[0].Description
}

func TestHandlePlay_DeniedWithoutSelectionTurn(t *testing.T) {
	f := newFixture(defaultLimits())
	f.catalog.add(libraryTrack("t1", "Midnight Drive"))

	responder := &bot.MockResponder{}
	err := f.handlers.HandlePlay(nil, commandInteraction("1", "alice", stringOption("track", "t1")), responder)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}

	desc := responseDescription(t, responder)
	if !strings.Contains(desc, "join the selection queue") {
		t.Errorf("expected selection denial message, got %q", desc)
	}
	if f.registry.Count() != 0 {
		t.Error("expected no session to be created for a denied request")
	}
}

func TestHandlePlay_DeniedDuringAnotherUsersTurn(t *testing.T) {
	f := newFixture(defaultLimits())
	f.catalog.add(libraryTrack("t1", "Midnight Drive"))
	f.selection.JoinQueue(snowflake.ID(2), "bob")

	responder := &bot.MockResponder{}
	if err := f.handlers.HandlePlay(nil, commandInteraction("1", "alice", stringOption("track", "t1")), responder); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}

	desc := responseDescription(t, responder)
	if !strings.Contains(desc, "bob's turn") {
		t.Errorf("expected message naming the selector, got %q", desc)
	}
}

func TestHandlePlay_RequiresVoiceChannel(t *testing.T) {
	f := newFixture(defaultLimits())
	f.catalog.add(libraryTrack("t1", "Midnight Drive"))
	f.selection.JoinQueue(snowflake.ID(1), "alice")

	responder := &bot.MockResponder{}
	if err := f.handlers.HandlePlay(nil, commandInteraction("1", "alice", stringOption("track", "t1")), responder); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}

	desc := responseDescription(t, responder)
	if !strings.Contains(desc, "voice channel") {
		t.Errorf("expected voice channel requirement message, got %q", desc)
	}
}

func TestHandlePlay_StartsPlaybackAndEndsTurn(t *testing.T) {
	f := newFixture(defaultLimits())
	f.catalog.add(libraryTrack("t1", "Midnight Drive"))
	f.selection.JoinQueue(snowflake.ID(1), "alice")
	f.voice.channels[snowflake.ID(1)] = snowflake.ID(200)

	responder := &bot.MockResponder{}
	if err := f.handlers.HandlePlay(nil, commandInteraction("1", "alice", stringOption("track", "t1")), responder); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}

	desc := responseDescription(t, responder)
	if !strings.Contains(desc, "Midnight Drive") {
		t.Errorf("expected confirmation naming the track, got %q", desc)
	}

	coordinator := f.registry.Get(snowflake.ID(100))
	if coordinator == nil {
		t.Fatal("expected a session for the guild")
	}
	current := coordinator.NowPlaying()
	if current == nil || current.Track.ID != "t1" {
		t.Errorf("expected t1 to be playing, got %+v", current)
	}

	if f.selection.Status().Selector != nil {
		t.Error("expected the selection turn to end after the pick")
	}
}

func TestHandlePlay_ReportsFullQueue(t *testing.T) {
	limits := application.Limits{MaxQueueSize: 1, MaxPerUser: 1, SkipVotesRequired: 2}
	f := newFixture(limits)
	f.catalog.add(libraryTrack("t1", "First"))
	f.catalog.add(libraryTrack("t2", "Second"))
	f.voice.channels[snowflake.ID(1)] = snowflake.ID(200)
	f.voice.channels[snowflake.ID(2)] = snowflake.ID(200)

	f.selection.JoinQueue(snowflake.ID(1), "alice")
	if err := f.handlers.HandlePlay(nil, commandInteraction("1", "alice", stringOption("track", "t1")), &bot.MockResponder{}); err != nil {
		t.Fatalf("first play failed: %v", err)
	}

	f.selection.JoinQueue(snowflake.ID(2), "bob")
	responder := &bot.MockResponder{}
	if err := f.handlers.HandlePlay(nil, commandInteraction("2", "bob", stringOption("track", "t2")), responder); err != nil {
		t.Fatalf("second play failed: %v", err)
	}

	desc := responseDescription(t, responder)
	if !strings.Contains(desc, "queue is full (1 songs max)") {
		t.Errorf("expected full queue message, got %q", desc)
	}
}

func TestHandlePlay_ReportsQuotaExceeded(t *testing.T) {
	limits := application.Limits{MaxQueueSize: 10, MaxPerUser: 1, SkipVotesRequired: 2}
	f := newFixture(limits)
	f.catalog.add(libraryTrack("t1", "First"))
	f.catalog.add(libraryTrack("t2", "Second"))
	f.voice.channels[snowflake.ID(1)] = snowflake.ID(200)

	f.selection.JoinQueue(snowflake.ID(1), "alice")
	if err := f.handlers.HandlePlay(nil, commandInteraction("1", "alice", stringOption("track", "t1")), &bot.MockResponder{}); err != nil {
		t.Fatalf("first play failed: %v", err)
	}

	f.selection.JoinQueue(snowflake.ID(1), "alice")
	responder := &bot.MockResponder{}
	if err := f.handlers.HandlePlay(nil, commandInteraction("1", "alice", stringOption("track", "t2")), responder); err != nil {
		t.Fatalf("second play failed: %v", err)
	}

	desc := responseDescription(t, responder)
	if !strings.Contains(desc, "already have 1 songs") {
		t.Errorf("expected quota message, got %q", desc)
	}
}

func TestHandlePin_RequiresManageServer(t *testing.T) {
	f := newFixture(defaultLimits())
	f.catalog.add(libraryTrack("t1", "Midnight Drive"))
	f.voice.channels[snowflake.ID(1)] = snowflake.ID(200)

	responder := &bot.MockResponder{}
	if err := f.handlers.HandlePin(nil, commandInteraction("1", "alice", stringOption("track", "t1")), responder); err != nil {
		t.Fatalf("pin failed: %v", err)
	}
	if desc := responseDescription(t, responder); !strings.Contains(desc, "Manage Server") {
		t.Errorf("expected permission denial, got %q", desc)
	}
	if f.registry.Count() != 0 {
		t.Error("expected no session to be created for a denied pin")
	}
}

func TestHandlePin_BypassesSelectionAndLimits(t *testing.T) {
	limits := application.Limits{MaxQueueSize: 1, MaxPerUser: 1, SkipVotesRequired: 2}
	f := newFixture(limits)
	f.catalog.add(libraryTrack("t1", "First"))
	f.catalog.add(libraryTrack("t2", "Pinned Song"))
	f.voice.channels[snowflake.ID(1)] = snowflake.ID(200)
	f.voice.channels[snowflake.ID(9)] = snowflake.ID(200)

	f.selection.JoinQueue(snowflake.ID(1), "alice")
	if err := f.handlers.HandlePlay(nil, commandInteraction("1", "alice", stringOption("track", "t1")), &bot.MockResponder{}); err != nil {
		t.Fatalf("play failed: %v", err)
	}

	// The manager never joined the selection queue, and the queue is at
	// capacity; the pin must go through anyway.
	interaction := commandInteraction("9", "dana", stringOption("track", "t2"))
	interaction.Member.Permissions = discordgo.PermissionManageServer

	responder := &bot.MockResponder{}
	if err := f.handlers.HandlePin(nil, interaction, responder); err != nil {
		t.Fatalf("pin failed: %v", err)
	}
	if desc := responseDescription(t, responder); !strings.Contains(desc, "Pinned Song") {
		t.Errorf("expected pin confirmation, got %q", desc)
	}

	coordinator := f.registry.Get(snowflake.ID(100))
	if coordinator == nil {
		t.Fatal("expected a session for the guild")
	}
	entries := coordinator.QueueSnapshot()
	if len(entries) != 1 || entries[0].Track.ID != "t2" || !entries[0].Pinned {
		t.Errorf("expected a pinned t2 entry queued, got %+v", entries)
	}
}

func TestHandleSkip_VoteProgression(t *testing.T) {
	f := newFixture(defaultLimits())
	f.catalog.add(libraryTrack("t1", "First"))
	f.voice.channels[snowflake.ID(1)] = snowflake.ID(200)
	f.selection.JoinQueue(snowflake.ID(1), "alice")
	if err := f.handlers.HandlePlay(nil, commandInteraction("1", "alice", stringOption("track", "t1")), &bot.MockResponder{}); err != nil {
		t.Fatalf("play failed: %v", err)
	}

	responder := &bot.MockResponder{}
	if err := f.handlers.HandleSkip(nil, commandInteraction("1", "alice"), responder); err != nil {
		t.Fatalf("skip failed: %v", err)
	}
	if desc := responseDescription(t, responder); !strings.Contains(desc, "(1/2 votes)") {
		t.Errorf("expected first vote tally, got %q", desc)
	}

	responder = &bot.MockResponder{}
	if err := f.handlers.HandleSkip(nil, commandInteraction("1", "alice"), responder); err != nil {
		t.Fatalf("repeat skip failed: %v", err)
	}
	if desc := responseDescription(t, responder); !strings.Contains(desc, "already voted") {
		t.Errorf("expected duplicate vote message, got %q", desc)
	}

	responder = &bot.MockResponder{}
	if err := f.handlers.HandleSkip(nil, commandInteraction("2", "bob"), responder); err != nil {
		t.Fatalf("deciding skip failed: %v", err)
	}
	if desc := responseDescription(t, responder); !strings.Contains(desc, "Skipping the current song") {
		t.Errorf("expected skip confirmation, got %q", desc)
	}
}

func TestHandlePause_RequiresSession(t *testing.T) {
	f := newFixture(defaultLimits())

	responder := &bot.MockResponder{}
	if err := f.handlers.HandlePause(nil, commandInteraction("1", "alice"), responder); err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	if desc := responseDescription(t, responder); !strings.Contains(desc, "Not connected") {
		t.Errorf("expected not connected message, got %q", desc)
	}
}

func TestHandleSelection_JoinLeaveStatus(t *testing.T) {
	f := newFixture(defaultLimits())

	responder := &bot.MockResponder{}
	if err := f.handlers.HandleSelection(nil, commandInteraction("1", "alice", subcommandOption("join")), responder); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if desc := responseDescription(t, responder); !strings.Contains(desc, "It's your turn!") {
		t.Errorf("expected immediate turn message, got %q", desc)
	}

	responder = &bot.MockResponder{}
	if err := f.handlers.HandleSelection(nil, commandInteraction("2", "bob", subcommandOption("join")), responder); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if desc := responseDescription(t, responder); !strings.Contains(desc, "position #2") {
		t.Errorf("expected queued position message, got %q", desc)
	}

	responder = &bot.MockResponder{}
	if err := f.handlers.HandleSelection(nil, commandInteraction("3", "carol", subcommandOption("status")), responder); err != nil {
		t.Fatalf("status failed: %v", err)
	}
	desc := responseDescription(t, responder)
	if !strings.Contains(desc, "alice") || !strings.Contains(desc, "bob") {
		t.Errorf("expected status to list selector and waiters, got %q", desc)
	}
	// The join message told bob he is #2; status must agree.
	if !strings.Contains(desc, "2\\. bob") {
		t.Errorf("expected bob shown at position 2, got %q", desc)
	}

	responder = &bot.MockResponder{}
	if err := f.handlers.HandleSelection(nil, commandInteraction("2", "bob", subcommandOption("leave")), responder); err != nil {
		t.Fatalf("leave failed: %v", err)
	}
	if desc := responseDescription(t, responder); !strings.Contains(desc, "left the selection queue") {
		t.Errorf("expected leave confirmation, got %q", desc)
	}
}

func TestHandleAddTrack_RequiresManageServer(t *testing.T) {
	f := newFixture(defaultLimits())

	interaction := commandInteraction("1", "alice",
		stringOption("title", "New Song"),
		stringOption("source", "new.mp3"),
		stringOption("kind", "local"),
	)

	responder := &bot.MockResponder{}
	if err := f.handlers.HandleAddTrack(nil, interaction, responder); err != nil {
		t.Fatalf("addtrack failed: %v", err)
	}
	if desc := responseDescription(t, responder); !strings.Contains(desc, "Manage Server") {
		t.Errorf("expected permission denial, got %q", desc)
	}

	interaction.Member.Permissions = discordgo.PermissionManageServer
	responder = &bot.MockResponder{}
	if err := f.handlers.HandleAddTrack(nil, interaction, responder); err != nil {
		t.Fatalf("addtrack failed: %v", err)
	}
	if desc := responseDescription(t, responder); !strings.Contains(desc, "New Song") {
		t.Errorf("expected add confirmation, got %q", desc)
	}

	track, err := f.catalog.FetchTrackByID(context.Background(), "generated-id")
	if err != nil {
		t.Fatalf("expected track stored under generated ID: %v", err)
	}
	if track.Title != "New Song" || track.Source.Ref != "new.mp3" {
		t.Errorf("stored track mismatch: %+v", track)
	}
}

func TestHandleRemoveTrack_PullsFromLiveQueues(t *testing.T) {
	f := newFixture(defaultLimits())
	f.catalog.add(libraryTrack("t1", "First"))
	f.catalog.add(libraryTrack("t2", "Second"))

	ctx := context.Background()
	coordinator, err := f.registry.GetOrCreate(ctx, snowflake.ID(100), snowflake.ID(200))
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	first, _ := f.catalog.FetchTrackByID(ctx, "t1")
	second, _ := f.catalog.FetchTrackByID(ctx, "t2")
	if err := coordinator.AddToQueue(ctx, domain.NewQueueEntry(first, snowflake.ID(1), "alice", false)); err != nil {
		t.Fatalf("failed to queue first: %v", err)
	}
	if err := coordinator.AddToQueue(ctx, domain.NewQueueEntry(second, snowflake.ID(1), "alice", false)); err != nil {
		t.Fatalf("failed to queue second: %v", err)
	}

	interaction := commandInteraction("1", "alice", stringOption("track", "t2"))
	interaction.Member.Permissions = discordgo.PermissionManageServer

	responder := &bot.MockResponder{}
	if err := f.handlers.HandleRemoveTrack(nil, interaction, responder); err != nil {
		t.Fatalf("removetrack failed: %v", err)
	}
	if desc := responseDescription(t, responder); !strings.Contains(desc, "Second") {
		t.Errorf("expected removal confirmation, got %q", desc)
	}

	for _, entry := range coordinator.QueueSnapshot() {
		if entry.Track.ID == "t2" {
			t.Error("expected t2 to be pulled from the request queue")
		}
	}
}

func TestHandleTrackInfo_ShowsPlayCounts(t *testing.T) {
	f := newFixture(defaultLimits())
	f.catalog.add(libraryTrack("t1", "Midnight Drive"))
	f.catalog.plays["t1"] = 7

	responder := &bot.MockResponder{}
	if err := f.handlers.HandleTrackInfo(nil, commandInteraction("1", "alice", stringOption("track", "t1")), responder); err != nil {
		t.Fatalf("trackinfo failed: %v", err)
	}

	if responder.LastResponse == nil || len(responder.LastResponse.Data.Embeds) == 0 {
		t.Fatal("expected an embed response")
	}
	embed := responder.LastResponse.Data.Embeds[0]
	if embed.Title != "Midnight Drive" {
		t.Errorf("expected track title in embed, got %q", embed.Title)
	}
	found := false
	for _, field := range embed.Fields {
		if field.Name == "Plays" && strings.Contains(field.Value, "7 total") {
			found = true
		}
	}
	if !found {
		t.Error("expected a Plays field with the total counter")
	}
}

func TestHandleQueue_ShowsPinnedAndLoop(t *testing.T) {
	f := newFixture(defaultLimits())
	f.catalog.add(libraryTrack("t1", "First"))
	f.catalog.add(libraryTrack("t2", "Second"))

	ctx := context.Background()
	coordinator, err := f.registry.GetOrCreate(ctx, snowflake.ID(100), snowflake.ID(200))
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	first, _ := f.catalog.FetchTrackByID(ctx, "t1")
	second, _ := f.catalog.FetchTrackByID(ctx, "t2")
	if err := coordinator.AddToQueue(ctx, domain.NewQueueEntry(first, snowflake.ID(1), "alice", false)); err != nil {
		t.Fatalf("failed to queue first: %v", err)
	}
	if err := coordinator.AddToQueue(ctx, domain.NewQueueEntry(second, 0, "", true)); err != nil {
		t.Fatalf("failed to queue pinned: %v", err)
	}
	coordinator.SetLoop(true)

	responder := &bot.MockResponder{}
	if err := f.handlers.HandleQueue(nil, commandInteraction("1", "alice"), responder); err != nil {
		t.Fatalf("queue failed: %v", err)
	}

	desc := responseDescription(t, responder)
	if !strings.Contains(desc, "First") || !strings.Contains(desc, "Second") {
		t.Errorf("expected both tracks listed, got %q", desc)
	}
	if !strings.Contains(desc, "\U0001F4CC") {
		t.Errorf("expected pin marker on the pinned entry, got %q", desc)
	}
	if !strings.Contains(desc, "Looping is on") {
		t.Errorf("expected loop notice, got %q", desc)
	}
}
