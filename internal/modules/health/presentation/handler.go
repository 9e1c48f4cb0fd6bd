package presentation

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/poonnyworld/phantom-melody/internal/bot"
	"github.com/poonnyworld/phantom-melody/internal/modules/health/application"
)

// UptimeHandler handles the /uptime command.
type UptimeHandler struct {
	interactor *application.UptimeInteractor
}

// NewUptimeHandler creates a new UptimeHandler.
func NewUptimeHandler(startedAt time.Time) *UptimeHandler {
	return &UptimeHandler{
		interactor: application.NewUptimeInteractor(startedAt),
	}
}

// Handle processes the uptime command and sends the response.
func (h *UptimeHandler) Handle(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	report := h.interactor.Execute()

	content := fmt.Sprintf("Up for %s.", report.Format())
	if s != nil {
		content += fmt.Sprintf(" Gateway latency: %dms.", s.HeartbeatLatency().Milliseconds())
	}

	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
		},
	})
}
