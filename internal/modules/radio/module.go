package radio

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/poonnyworld/phantom-melody/internal/bot"
	"github.com/poonnyworld/phantom-melody/internal/modules/radio/application"
	"github.com/poonnyworld/phantom-melody/internal/modules/radio/application/events"
	"github.com/poonnyworld/phantom-melody/internal/modules/radio/infrastructure"
	"github.com/poonnyworld/phantom-melody/internal/modules/radio/presentation"
)

func init() {
	bot.Register(&RadioModule{})
}

// Compile-time interface checks.
var _ bot.ConfigurableModule = (*RadioModule)(nil)

// RadioModule runs the listener-driven radio station: the per-guild
// request queues, the shared selection rotation and the track library.
type RadioModule struct {
	config          *Config
	handlers        *presentation.Handlers
	autocomplete    *presentation.AutocompleteHandler
	transport       *infrastructure.LavalinkTransport
	catalog         *infrastructure.SQLiteCatalog
	registry        *application.SessionRegistry
	selection       *application.SelectionTurnCoordinator
	reaper          *application.IdleReaper
	playbackHandler *application.PlaybackEventHandler
	eventBus        *events.Bus

	ctx    context.Context
	cancel context.CancelFunc
}

// Name returns the module name.
func (m *RadioModule) Name() string {
	return "radio"
}

// Commands returns the slash commands for this module.
func (m *RadioModule) Commands() []*discordgo.ApplicationCommand {
	return presentation.Commands()
}

// CommandHandlers returns the command handlers for this module.
func (m *RadioModule) CommandHandlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		"play":        m.handlers.HandlePlay,
		"pin":         m.handlers.HandlePin,
		"queue":       m.handlers.HandleQueue,
		"nowplaying":  m.handlers.HandleNowPlaying,
		"pause":       m.handlers.HandlePause,
		"resume":      m.handlers.HandleResume,
		"skip":        m.handlers.HandleSkip,
		"loop":        m.handlers.HandleLoop,
		"stop":        m.handlers.HandleStop,
		"selection":   m.handlers.HandleSelection,
		"trackinfo":   m.handlers.HandleTrackInfo,
		"addtrack":    m.handlers.HandleAddTrack,
		"removetrack": m.handlers.HandleRemoveTrack,
	}
}

// EventHandlers returns the event handlers for this module.
func (m *RadioModule) EventHandlers() []bot.EventHandler {
	return []bot.EventHandler{
		func(s *discordgo.Session, event *discordgo.VoiceServerUpdate) {
			if m.transport != nil {
				m.transport.OnVoiceServerUpdate(event)
			}
		},
		func(s *discordgo.Session, event *discordgo.VoiceStateUpdate) {
			if m.transport != nil {
				m.transport.OnVoiceStateUpdate(event)
			}
		},
		func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			m.handleInteractionCreate(s, i)
		},
	}
}

// LoadConfig loads module-specific configuration from environment variables.
func (m *RadioModule) LoadConfig() error {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return err
	}
	m.config = cfg
	return nil
}

// Init initializes the module.
func (m *RadioModule) Init(deps bot.ModuleDependencies) error {
	m.ctx, m.cancel = context.WithCancel(context.Background())

	m.eventBus = events.NewBus(events.DefaultBufferSize)

	catalog, err := infrastructure.NewSQLiteCatalog(m.config.CatalogPath)
	if err != nil {
		return err
	}
	m.catalog = catalog

	transport, err := infrastructure.NewLavalinkTransport(deps.Session, infrastructure.LavalinkConfig{
		Address:  m.config.LavalinkAddress,
		Password: m.config.LavalinkPassword,
		MusicDir: m.config.MusicDir,
	}, m.eventBus)
	if err != nil {
		return err
	}
	m.transport = transport

	limits := application.Limits{
		MaxQueueSize:      m.config.MaxQueueSize,
		MaxPerUser:        m.config.MaxPerUser,
		SkipVotesRequired: m.config.SkipVotesRequired,
	}

	m.registry = application.NewSessionRegistry(transport, catalog, limits)
	m.selection = application.NewSelectionTurnCoordinator(m.config.TurnDuration)

	m.playbackHandler = application.NewPlaybackEventHandler(m.registry, m.eventBus)
	m.playbackHandler.Start(m.ctx)

	m.reaper = application.NewIdleReaper(
		m.registry,
		m.config.IdleDisconnectThreshold,
		m.config.ReaperInterval,
	)
	m.reaper.Start(m.ctx)

	go m.runMonthlyCounterReset(m.ctx)

	voiceState := infrastructure.NewVoiceStateResolver(deps.Session)
	m.handlers = presentation.NewHandlers(
		m.registry,
		m.selection,
		catalog,
		voiceState,
		uuid.NewString,
		limits,
	)
	m.autocomplete = presentation.NewAutocompleteHandler(catalog)

	slog.Info("radio module initialized",
		"catalog", m.config.CatalogPath,
		"music_dir", m.config.MusicDir,
	)

	return nil
}

// Shutdown cleans up module resources.
func (m *RadioModule) Shutdown() error {
	if m.cancel != nil {
		m.cancel()
	}

	if m.reaper != nil {
		m.reaper.Stop()
	}
	if m.selection != nil {
		m.selection.Stop()
	}

	if m.registry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		m.registry.Shutdown(ctx)
	}

	if m.playbackHandler != nil {
		m.playbackHandler.Stop()
	}
	if m.eventBus != nil {
		m.eventBus.Close()
	}
	if m.transport != nil {
		m.transport.Link().Close()
	}
	if m.catalog != nil {
		if err := m.catalog.Close(); err != nil {
			slog.Warn("failed to close catalog", "error", err)
		}
	}

	return nil
}

// runMonthlyCounterReset zeroes the monthly play counters at the start
// of every calendar month.
func (m *RadioModule) runMonthlyCounterReset(ctx context.Context) {
	for {
		now := time.Now()
		nextMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, 1, 0)

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(nextMonth)):
		}

		resetCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		if err := m.catalog.ResetMonthlyCounters(resetCtx); err != nil {
			slog.Warn("failed to reset monthly play counters", "error", err)
		} else {
			slog.Info("monthly play counters reset")
		}
		cancel()
	}
}

func (m *RadioModule) handleInteractionCreate(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
) {
	if i.Type != discordgo.InteractionApplicationCommandAutocomplete {
		return
	}
	if m.autocomplete == nil {
		return
	}

	switch i.ApplicationCommandData().Name {
	case "play", "pin", "trackinfo", "removetrack":
		m.autocomplete.HandleTrack(s, i)
	}
}
