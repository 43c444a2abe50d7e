package cfg

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/toksikk/quranbot/internal/catalog"
)

// PlaceholderToken is the token shipped in example env files
const PlaceholderToken = "your_token_here"

// DefaultFile is read when no other config path was given
const DefaultFile = "config.yaml"

// Config struct with all parameters
type Config struct {
	Discord  DiscordConfig  `yaml:"discord"`
	Web      WebConfig      `yaml:"web"`
	Playback PlaybackConfig `yaml:"playback"`
	API      APIConfig      `yaml:"api"`
	DevMode  bool           `yaml:"dev_mode,omitempty" default:"false"`
	LogLevel string         `yaml:"log_level,omitempty" default:"info" validate:"oneof=trace debug info warn warning error"`
}

// DiscordConfig holds bot credentials and sharding
type DiscordConfig struct {
	Token   string `yaml:"token" validate:"required"`
	OwnerID string `yaml:"owner_id,omitempty"`
	// GuildID limits command registration to one guild, empty registers globally
	GuildID    string `yaml:"guild_id,omitempty"`
	ShardID    int    `yaml:"shard_id,omitempty" default:"0" validate:"gte=0"`
	ShardCount int    `yaml:"shard_count,omitempty" default:"1" validate:"gte=1"`
}

// WebConfig of the control panel
type WebConfig struct {
	Oauth struct {
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
		RedirectURI  string `yaml:"redirect_uri" validate:"omitempty,url"`
	} `yaml:"oauth"`
	Port          int    `yaml:"port,omitempty" default:"8080" validate:"gte=0,lte=65535"`
	SessionSecret string `yaml:"session_secret,omitempty"`
}

// PlaybackConfig controls pacing of the playback loop and encoding
type PlaybackConfig struct {
	PollIntervalMs     int    `yaml:"poll_interval_ms" default:"500" validate:"gte=10,lte=10000"`
	StartPollAttempts  int    `yaml:"start_poll_attempts" default:"10" validate:"gte=1,lte=1000"`
	DefaultReciter     string `yaml:"default_reciter" default:"mishary"`
	DefaultTranslation string `yaml:"default_translation" default:"none"`
	Bitrate            int    `yaml:"bitrate" default:"64000" validate:"gte=6000,lte=510000"`
}

// APIConfig points to the content providers
type APIConfig struct {
	QuranComURL     string `yaml:"quran_com_base_url" default:"https://api.quran.com/api/v4" validate:"url"`
	AlQuranCloudURL string `yaml:"alquran_cloud_base_url" default:"https://api.alquran.cloud/v1" validate:"url"`
}

// PollInterval between two checks of the voice sink
func (p PlaybackConfig) PollInterval() time.Duration {
	return time.Duration(p.PollIntervalMs) * time.Millisecond
}

// WebEnabled reports whether the control panel has everything to serve logins
func (c *Config) WebEnabled() bool {
	return c.Web.Port > 0 && c.Web.Oauth.ClientID != "" && c.Web.Oauth.ClientSecret != "" && c.Web.Oauth.RedirectURI != ""
}

// Load reads path and creates a Config struct. A missing file is not an
// error, the bot can run from environment variables alone.
func Load(path string) (*Config, error) {
	config := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, errors.Wrap(err, "failed to parse config file")
		}
	case os.IsNotExist(err):
		log.WithField("path", path).Warning("config file not found, using environment only")
	default:
		return nil, errors.Wrap(err, "failed to read config file")
	}

	config.overrideFromEnv()

	if err := defaults.Set(config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return config, nil
}

func (c *Config) overrideFromEnv() {
	if v := os.Getenv("DISCORD_TOKEN"); v != "" {
		c.Discord.Token = v
	}
	if v := os.Getenv("DISCORD_OWNER_ID"); v != "" {
		c.Discord.OwnerID = v
	}
	if v := os.Getenv("QURANBOT_WEB_CLIENT_SECRET"); v != "" {
		c.Web.Oauth.ClientSecret = v
	}
}

// Validate checks struct constraints and catalog keys
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if c.Discord.Token == PlaceholderToken {
		return errors.New("discord token is still the placeholder, set DISCORD_TOKEN")
	}
	if c.Discord.ShardID >= c.Discord.ShardCount {
		return errors.Newf("shard_id %d out of range for shard_count %d", c.Discord.ShardID, c.Discord.ShardCount)
	}
	if _, ok := catalog.ReciterByKey(c.Playback.DefaultReciter); !ok {
		return errors.Newf("unknown default_reciter %q", c.Playback.DefaultReciter)
	}
	if _, ok := catalog.TranslationByKey(c.Playback.DefaultTranslation); !ok {
		return errors.Newf("unknown default_translation %q", c.Playback.DefaultTranslation)
	}
	return nil
}
