package util

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomRange(t *testing.T) {
	for i := 0; i < 100; i++ {
		n := RandomRange(5, 15)
		assert.GreaterOrEqual(t, n, 5)
		assert.Less(t, n, 15)
	}
}

func TestPages(t *testing.T) {
	assert.Equal(t, 4, Pages(114, 30))
	assert.Equal(t, 1, Pages(30, 30))
	assert.Equal(t, 0, Pages(0, 30))
	assert.Equal(t, 0, Pages(10, 0))
}

func testState(t *testing.T) *discordgo.State {
	t.Helper()
	state := discordgo.NewState()
	require.NoError(t, state.GuildAdd(&discordgo.Guild{
		ID:   "g1",
		Name: "First",
		VoiceStates: []*discordgo.VoiceState{
			{GuildID: "g1", UserID: "alice", ChannelID: "v1"},
		},
	}))
	require.NoError(t, state.GuildAdd(&discordgo.Guild{
		ID:   "g2",
		Name: "Second",
		VoiceStates: []*discordgo.VoiceState{
			{GuildID: "g2", UserID: "bob", ChannelID: "v2"},
		},
		Channels: []*discordgo.Channel{
			{ID: "v2", GuildID: "g2", Name: "Recitation", Type: discordgo.ChannelTypeGuildVoice},
		},
	}))
	return state
}

func TestVoiceChannelOf(t *testing.T) {
	state := testState(t)
	assert.Equal(t, "v1", VoiceChannelOf(state, "g1", "alice"))
	assert.Equal(t, "", VoiceChannelOf(state, "g1", "bob"))
	assert.Equal(t, "", VoiceChannelOf(state, "missing", "alice"))
}

func TestFindUserInVoice(t *testing.T) {
	state := testState(t)
	guild, channel := FindUserInVoice(state, "bob")
	assert.Equal(t, "g2", guild)
	assert.Equal(t, "v2", channel)

	guild, channel = FindUserInVoice(state, "carol")
	assert.Empty(t, guild)
	assert.Empty(t, channel)
}

func TestNames(t *testing.T) {
	state := testState(t)
	assert.Equal(t, "Second", GetGuildName(state, "g2"))
	assert.Equal(t, "g9", GetGuildName(state, "g9"))
	assert.Equal(t, "Recitation", GetChannelName(state, "v2"))
	assert.Equal(t, "v9", GetChannelName(state, "v9"))
}

func TestInteractionUser(t *testing.T) {
	guild := &discordgo.Interaction{Member: &discordgo.Member{Nick: "Ali", User: &discordgo.User{ID: "1", Username: "ali"}}}
	assert.Equal(t, "1", InteractionUser(guild).ID)
	assert.Equal(t, "Ali", InteractionDisplayName(guild))

	dm := &discordgo.Interaction{User: &discordgo.User{ID: "2", Username: "omar"}}
	assert.Equal(t, "2", InteractionUser(dm).ID)
	assert.Equal(t, "omar", InteractionDisplayName(dm))

	assert.Equal(t, "unknown", InteractionDisplayName(&discordgo.Interaction{}))
}
