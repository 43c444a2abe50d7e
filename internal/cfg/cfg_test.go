package cfg

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("DISCORD_OWNER_ID", "")
	t.Setenv("QURANBOT_WEB_CLIENT_SECRET", "")

	path := writeConfig(t, `
discord:
  token: mytoken
  owner_id: me
  shard_count: 4
  shard_id: 2
web:
  port: 8081
  oauth:
    client_id: "42"
    client_secret: mysecretstring
    redirect_uri: http://localhost:8081/discordCallback
playback:
  default_reciter: husary
log_level: debug
`)

	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "mytoken", config.Discord.Token)
	assert.Equal(t, "me", config.Discord.OwnerID)
	assert.Equal(t, 4, config.Discord.ShardCount)
	assert.Equal(t, 2, config.Discord.ShardID)
	assert.Equal(t, 8081, config.Web.Port)
	assert.Equal(t, "42", config.Web.Oauth.ClientID)
	assert.True(t, config.WebEnabled())
	assert.Equal(t, "husary", config.Playback.DefaultReciter)
	assert.Equal(t, "debug", config.LogLevel)

	// defaults
	assert.Equal(t, "none", config.Playback.DefaultTranslation)
	assert.Equal(t, 500*time.Millisecond, config.Playback.PollInterval())
	assert.Equal(t, 10, config.Playback.StartPollAttempts)
	assert.Equal(t, "https://api.quran.com/api/v4", config.API.QuranComURL)
	assert.Equal(t, "https://api.alquran.cloud/v1", config.API.AlQuranCloudURL)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "fromenv")
	t.Setenv("DISCORD_OWNER_ID", "owner")
	t.Setenv("QURANBOT_WEB_CLIENT_SECRET", "secret")

	path := writeConfig(t, "discord:\n  token: fromfile\n")

	config, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "fromenv", config.Discord.Token)
	assert.Equal(t, "owner", config.Discord.OwnerID)
	assert.Equal(t, "secret", config.Web.Oauth.ClientSecret)
	assert.False(t, config.WebEnabled())
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "fromenv")

	config, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "fromenv", config.Discord.Token)
	assert.Equal(t, 1, config.Discord.ShardCount)
}

func TestLoadInvalid(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")

	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{"missing token", "log_level: info\n", "Token"},
		{"placeholder token", "discord:\n  token: your_token_here\n", "placeholder"},
		{"unknown reciter", "discord:\n  token: t\nplayback:\n  default_reciter: nobody\n", "default_reciter"},
		{"unknown translation", "discord:\n  token: t\nplayback:\n  default_translation: klingon\n", "default_translation"},
		{"poll interval too small", "discord:\n  token: t\nplayback:\n  poll_interval_ms: 1\n", "PollIntervalMs"},
		{"bad log level", "discord:\n  token: t\nlog_level: loud\n", "LogLevel"},
		{"shard out of range", "discord:\n  token: t\n  shard_id: 3\n  shard_count: 2\n", "shard_id"},
		{"broken yaml", "discord: [\n", "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
