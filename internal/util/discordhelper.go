package util

import (
	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// VoiceChannelOf returns the voice channel a user sits in, empty if none
func VoiceChannelOf(state *discordgo.State, guildID string, userID string) string {
	guild, err := state.Guild(guildID)
	if err != nil {
		log.WithFields(log.Fields{
			"guild": guildID,
			"error": err,
		}).Warning("Failed to grab guild")
		return ""
	}
	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID {
			return vs.ChannelID
		}
	}
	return ""
}

// FindUserInVoice searches all guilds for the user's voice channel
func FindUserInVoice(state *discordgo.State, userID string) (guildID string, channelID string) {
	state.RLock()
	defer state.RUnlock()
	for _, g := range state.Guilds {
		for _, vs := range g.VoiceStates {
			if vs.UserID == userID && vs.ChannelID != "" {
				return g.ID, vs.ChannelID
			}
		}
	}
	return "", ""
}

// GetChannelName returns the name of a channel
func GetChannelName(state *discordgo.State, channelID string) string {
	channel, err := state.Channel(channelID)
	if err != nil {
		log.WithField("error", err).Debug("Error while getting channel")
		return channelID
	}
	return channel.Name
}

// GetGuildName returns the name of a guild
func GetGuildName(state *discordgo.State, guildID string) string {
	guild, err := state.Guild(guildID)
	if err != nil {
		log.WithField("error", err).Debug("Error while getting guild")
		return guildID
	}
	return guild.Name
}

// InteractionUser returns the user behind an interaction, guild or DM
func InteractionUser(i *discordgo.Interaction) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

// InteractionDisplayName returns the name shown in the guild for the invoking user
func InteractionDisplayName(i *discordgo.Interaction) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.DisplayName()
	}
	if i.User != nil {
		return i.User.Username
	}
	return "unknown"
}
