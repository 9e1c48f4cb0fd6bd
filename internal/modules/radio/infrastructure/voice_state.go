package infrastructure

import (
	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
)

// VoiceStateResolver looks up user voice channels from the session
// state cache.
type VoiceStateResolver struct {
	session *discordgo.Session
}

// NewVoiceStateResolver creates a new VoiceStateResolver.
func NewVoiceStateResolver(session *discordgo.Session) *VoiceStateResolver {
	return &VoiceStateResolver{session: session}
}

// UserVoiceChannel returns the voice channel ID that the user is
// currently in, or 0 if the user is not in a voice channel.
func (v *VoiceStateResolver) UserVoiceChannel(guildID, userID snowflake.ID) (snowflake.ID, error) {
	guild, err := v.session.State.Guild(guildID.String())
	if err != nil {
		return 0, err
	}

	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID.String() && vs.ChannelID != "" {
			channelID, err := snowflake.Parse(vs.ChannelID)
			if err != nil {
				return 0, err
			}
			return channelID, nil
		}
	}

	return 0, nil
}
