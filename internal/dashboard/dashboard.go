// Package dashboard is the discord surface of the bot: slash commands, the
// per message dashboard with its components and the presenter that keeps the
// dashboard message in sync with playback.
package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/toksikk/quranbot/internal/playback"
)

// API is the part of *discordgo.Session the dashboard talks to
type API interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponse(interaction *discordgo.Interaction, options ...discordgo.RequestOption) (*discordgo.Message, error)
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// Dashboard is one /quran message. It owns the selection a session plays
// from and implements playback.Presenter.
type Dashboard struct {
	id        string
	guildID   string
	chapter   int
	requester string
	created   time.Time
	selection *playback.Selection
	api       API

	mu        sync.Mutex
	messageID string
	channelID string
	last      *playback.Update

	notify chan struct{}
	cancel context.CancelFunc
	done   chan struct{}
}

func newDashboard(api API, guildID string, chapter int, requester string, selection *playback.Selection) *Dashboard {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dashboard{
		id:        uuid.NewString(),
		guildID:   guildID,
		chapter:   chapter,
		requester: requester,
		created:   time.Now(),
		selection: selection,
		api:       api,
		notify:    make(chan struct{}, 1),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go d.worker(ctx)
	return d
}

// ID used in the custom ids of the dashboard components
func (d *Dashboard) ID() string {
	return d.id
}

// Selection of the dashboard
func (d *Dashboard) Selection() *playback.Selection {
	return d.selection
}

// Present stores the update and wakes the worker, only the latest update is
// rendered when discord is slower than playback.
func (d *Dashboard) Present(u playback.Update) {
	d.mu.Lock()
	d.last = &u
	d.mu.Unlock()
	d.refresh()
}

func (d *Dashboard) refresh() {
	select {
	case d.notify <- struct{}{}:
	default:
	}
}

// bind remembers which message shows this dashboard
func (d *Dashboard) bind(channelID, messageID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.messageID == "" {
		d.channelID, d.messageID = channelID, messageID
	}
}

func (d *Dashboard) view() view {
	d.mu.Lock()
	defer d.mu.Unlock()
	return view{
		chapter:   d.chapter,
		requester: d.requester,
		snap:      d.selection.Snapshot(),
		last:      d.last,
	}
}

func (d *Dashboard) close() {
	d.cancel()
	<-d.done
}

func (d *Dashboard) worker(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.notify:
		}
		d.flush()
	}
}

func (d *Dashboard) flush() {
	d.mu.Lock()
	channelID, messageID := d.channelID, d.messageID
	d.mu.Unlock()
	if messageID == "" {
		return
	}

	v := d.view()
	embeds := []*discordgo.MessageEmbed{v.embed()}
	components := v.components(d.id)
	_, err := d.api.ChannelMessageEditComplex(&discordgo.MessageEdit{
		ID:         messageID,
		Channel:    channelID,
		Embeds:     &embeds,
		Components: &components,
	})
	if err != nil {
		log.WithFields(log.Fields{
			"dashboard": d.id,
			"message":   messageID,
			"error":     err,
		}).Warning("could not update dashboard")
	}
}
