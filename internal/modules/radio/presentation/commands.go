package presentation

import "github.com/bwmarrin/discordgo"

// Commands returns all slash commands for the radio module.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "play",
			Description: "Request a song from the station library",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionString,
					Name:         "track",
					Description:  "Song to request",
					Required:     true,
					Autocomplete: true,
				},
			},
		},
		{
			Name:        "pin",
			Description: "Pin a song to the front of the queue (DJ only)",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionString,
					Name:         "track",
					Description:  "Song to pin",
					Required:     true,
					Autocomplete: true,
				},
			},
		},
		{
			Name:        "queue",
			Description: "Show the current request queue",
		},
		{
			Name:        "nowplaying",
			Description: "Show the song currently on air",
		},
		{
			Name:        "pause",
			Description: "Pause playback",
		},
		{
			Name:        "resume",
			Description: "Resume playback",
		},
		{
			Name:        "skip",
			Description: "Vote to skip the current song",
		},
		{
			Name:        "loop",
			Description: "Toggle replaying the current song",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "enabled",
					Description: "Whether to loop (omit to toggle)",
					Required:    false,
				},
			},
		},
		{
			Name:        "stop",
			Description: "Stop playback and leave the voice channel",
		},
		{
			Name:        "selection",
			Description: "Manage your place in the song-selection queue",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "join",
					Description: "Join the selection queue for a turn to pick a song",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "leave",
					Description: "Leave the selection queue or end your turn",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "status",
					Description: "Show whose turn it is and who is waiting",
				},
			},
		},
		{
			Name:        "trackinfo",
			Description: "Show details and play counts for a library song",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionString,
					Name:         "track",
					Description:  "Song to look up",
					Required:     true,
					Autocomplete: true,
				},
			},
		},
		{
			Name:        "addtrack",
			Description: "Add a song to the station library (DJ only)",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "title",
					Description: "Song title",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "source",
					Description: "File name in the music directory, or a stream URL",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "kind",
					Description: "Where the audio comes from",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Local file", Value: "local"},
						{Name: "Stream URL", Value: "stream"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "artist",
					Description: "Artist name",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "category",
					Description: "Library category",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "duration",
					Description: "Length in seconds",
					Required:    false,
					MinValue:    floatPtr(0),
				},
			},
		},
		{
			Name:        "removetrack",
			Description: "Remove a song from the station library (DJ only)",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionString,
					Name:         "track",
					Description:  "Song to remove",
					Required:     true,
					Autocomplete: true,
				},
			},
		},
	}
}

func floatPtr(f float64) *float64 {
	return &f
}
