package presentation

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/poonnyworld/phantom-melody/internal/modules/radio/application/ports"
)

// maxAutocompleteChoices is Discord's cap on autocomplete results.
const maxAutocompleteChoices = 25

// AutocompleteHandler serves track suggestions for commands with a
// track option. Choice values are catalog track IDs.
type AutocompleteHandler struct {
	catalog ports.TrackCatalog
}

// NewAutocompleteHandler creates a new AutocompleteHandler.
func NewAutocompleteHandler(catalog ports.TrackCatalog) *AutocompleteHandler {
	return &AutocompleteHandler{catalog: catalog}
}

// HandleTrack handles autocomplete for any command's track option.
func (h *AutocompleteHandler) HandleTrack(s *discordgo.Session, i *discordgo.InteractionCreate) {
	var query string
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "track" && opt.Focused {
			query = opt.StringValue()
			break
		}
	}

	tracks, err := h.catalog.SearchTracks(context.Background(), query)
	if err != nil || len(tracks) == 0 {
		_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionApplicationCommandAutocompleteResult,
			Data: &discordgo.InteractionResponseData{
				Choices: []*discordgo.ApplicationCommandOptionChoice{},
			},
		})
		return
	}

	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, min(len(tracks), maxAutocompleteChoices))
	for idx, track := range tracks {
		if idx >= maxAutocompleteChoices {
			break
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  truncate(fmt.Sprintf("%s - %s", track.Title, track.Artist), 100),
			Value: string(track.ID),
		})
	}

	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{
			Choices: choices,
		},
	})
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
