package quranbot

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	humanize "github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"

	"github.com/toksikk/quranbot/internal/cfg"
	"github.com/toksikk/quranbot/internal/dashboard"
	"github.com/toksikk/quranbot/internal/lookup"
	"github.com/toksikk/quranbot/internal/playback"
	"github.com/toksikk/quranbot/internal/presence"
	"github.com/toksikk/quranbot/internal/util"
	"github.com/toksikk/quranbot/internal/voice"
)

const shutdownTimeout = 10 * time.Second

// bot ties the discord session to the playback registry
type bot struct {
	conf     *cfg.Config
	discord  *discordgo.Session
	registry *playback.Registry
	handler  *dashboard.Handler
	started  time.Time
	register sync.Once
}

// SetupLogging applies the configured level, dev mode forces debug
func SetupLogging(conf *cfg.Config) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	level, err := log.ParseLevel(conf.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	if conf.DevMode && level < log.DebugLevel {
		level = log.DebugLevel
	}
	log.SetLevel(level)
}

// StartQuranbot connects to discord and blocks until the process is told to stop
func StartQuranbot(conf *cfg.Config) error {
	SetupLogging(conf)
	Banner(nil)

	log.Info("Starting discord session...")
	discord, err := discordgo.New("Bot " + conf.Discord.Token)
	if err != nil {
		return errors.Wrap(err, "failed to create discord session")
	}
	discord.ShardID = conf.Discord.ShardID
	discord.ShardCount = conf.Discord.ShardCount
	discord.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates | discordgo.IntentsGuildMessages

	client := lookup.New(lookup.Config{
		QuranComURL:     conf.API.QuranComURL,
		AlQuranCloudURL: conf.API.AlQuranCloudURL,
	})
	registry := playback.NewRegistry(func(guildID string) playback.Sink {
		return voice.NewSink(discord, guildID, conf.Playback.Bitrate, nil)
	}, client, playback.Config{
		PollInterval:      conf.Playback.PollInterval(),
		StartPollAttempts: conf.Playback.StartPollAttempts,
	})
	handler := dashboard.NewHandler(discord, registry, func(guildID, userID string) string {
		return util.VoiceChannelOf(discord.State, guildID, userID)
	}, conf.Playback.DefaultReciter, conf.Playback.DefaultTranslation)

	b := &bot{
		conf:     conf,
		discord:  discord,
		registry: registry,
		handler:  handler,
		started:  time.Now(),
	}

	discord.AddHandler(b.onReady)
	discord.AddHandler(handler.OnInteractionCreate)
	discord.AddHandler(handler.OnVoiceStateUpdate)
	discord.AddHandler(b.onMessageCreate)

	if err := discord.Open(); err != nil {
		return errors.Wrap(err, "failed to create discord websocket connection")
	}
	defer discord.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	presence.Start(ctx, discord, registry.Active)

	var web *webServer
	if conf.WebEnabled() {
		web = newWebServer(conf, registry, discord.State)
		log.WithField("port", conf.Web.Port).Info("Starting web server")
		go web.start()
	} else {
		log.Info("Required web server arguments missing or invalid. Skipping web server start.")
	}

	log.Info("Quranbot is ready. Quit with CTRL-C.")
	banner := new(bytes.Buffer)
	Banner(banner)
	b.notifyOwner("```I just started!\n" + banner.String() + "```")

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	log.Info("Shutting down...")
	stopCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if web != nil {
		web.shutdown(stopCtx)
	}
	registry.StopAll(stopCtx)
	handler.Close()
	return nil
}

func (b *bot) onReady(s *discordgo.Session, event *discordgo.Ready) {
	log.WithFields(log.Fields{
		"user":   event.User.Username,
		"guilds": len(event.Guilds),
	}).Info("Received READY payload.")

	b.register.Do(func() {
		if err := b.handler.Register(event.User.ID, b.conf.Discord.GuildID); err != nil {
			log.WithField("error", err).Error("Failed to register slash commands")
		}
	})
}

// onMessageCreate answers owner mentions, "@bot status" prints statistics
func (b *bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || b.conf.Discord.OwnerID == "" || m.Author.ID != b.conf.Discord.OwnerID {
		return
	}
	if s.State == nil || s.State.User == nil || !mentions(m.Mentions, s.State.User.ID) {
		return
	}

	parts := strings.Fields(strings.ToLower(m.Content))
	for _, part := range parts {
		if part == "status" {
			if _, err := s.ChannelMessageSend(m.ChannelID, b.stats(len(s.State.Guilds))); err != nil {
				log.WithFields(log.Fields{
					"channel": m.ChannelID,
					"error":   err,
				}).Error("Failed to send status")
			}
			return
		}
	}
}

func mentions(users []*discordgo.User, id string) bool {
	for _, u := range users {
		if u.ID == id {
			return true
		}
	}
	return false
}

func (b *bot) stats(guilds int) string {
	sessions := b.registry.Sessions()
	return botStats(statsInfo{
		guilds:     guilds,
		sessions:   len(sessions),
		active:     b.registry.Active(),
		dashboards: b.handler.Dashboards(),
		started:    b.started,
	})
}

type statsInfo struct {
	guilds     int
	sessions   int
	active     int
	dashboards int
	started    time.Time
}

func botStats(info statsInfo) string {
	stats := runtime.MemStats{}
	runtime.ReadMemStats(&stats)

	w := &tabwriter.Writer{}
	buf := &bytes.Buffer{}

	w.Init(buf, 0, 4, 0, ' ', 0)
	fmt.Fprintf(w, "```\n")
	fmt.Fprintf(w, "Quranbot: \t%s\n", Version)
	fmt.Fprintf(w, "Discordgo: \t%s\n", discordgo.VERSION)
	fmt.Fprintf(w, "Go: \t%s\n", runtime.Version())
	fmt.Fprintf(w, "Started: \t%s\n", humanize.Time(info.started))
	fmt.Fprintf(w, "Memory: \t%s / %s (%s total allocated)\n", humanize.Bytes(stats.Alloc), humanize.Bytes(stats.Sys), humanize.Bytes(stats.TotalAlloc))
	fmt.Fprintf(w, "Tasks: \t%d\n", runtime.NumGoroutine())
	fmt.Fprintf(w, "Servers: \t%d\n", info.guilds)
	fmt.Fprintf(w, "Sessions: \t%d (%d playing)\n", info.sessions, info.active)
	fmt.Fprintf(w, "Dashboards: \t%s\n", humanize.Comma(int64(info.dashboards)))
	fmt.Fprintf(w, "```\n")
	w.Flush()
	return buf.String()
}

func (b *bot) notifyOwner(message string) {
	if b.conf.Discord.OwnerID == "" {
		return
	}
	st, err := b.discord.UserChannelCreate(b.conf.Discord.OwnerID)
	if err != nil {
		log.WithField("error", err).Warning("Could not open DM with owner")
		return
	}
	if _, err := b.discord.ChannelMessageSend(st.ID, message); err != nil {
		log.WithField("error", err).Warning("Could not notify owner")
	}
}
