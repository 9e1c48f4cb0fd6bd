package health

import (
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/poonnyworld/phantom-melody/internal/bot"
	"github.com/poonnyworld/phantom-melody/internal/modules/health/presentation"
)

func init() {
	bot.Register(&HealthModule{})
}

// HealthModule provides liveness commands like /uptime.
type HealthModule struct {
	uptimeHandler *presentation.UptimeHandler
}

// Name returns the module name.
func (m *HealthModule) Name() string {
	return "health"
}

// Commands returns the slash commands for this module.
func (m *HealthModule) Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "uptime",
			Description: "Shows how long the bot has been running",
		},
	}
}

// CommandHandlers returns the command handlers for this module.
func (m *HealthModule) CommandHandlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		"uptime": m.uptimeHandler.Handle,
	}
}

// EventHandlers returns the event handlers for this module.
func (m *HealthModule) EventHandlers() []bot.EventHandler {
	return nil
}

// Init initializes the module.
func (m *HealthModule) Init(deps bot.ModuleDependencies) error {
	m.uptimeHandler = presentation.NewUptimeHandler(time.Now())
	return nil
}

// Shutdown cleans up module resources.
func (m *HealthModule) Shutdown() error {
	return nil
}
