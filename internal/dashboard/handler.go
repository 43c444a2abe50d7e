package dashboard

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"

	"github.com/toksikk/quranbot/internal/catalog"
	"github.com/toksikk/quranbot/internal/playback"
	"github.com/toksikk/quranbot/internal/util"
)

const (
	msgSurahOutOfRange = "Surah number must be between 0 and 114."
	msgGuildOnly       = "This command only works in a server."
	msgExpired         = "This dashboard has expired, open a new one with /quran."
	msgNotInVoice      = "You need to join a voice channel first!"
	msgFetching        = "Fetching audio..."
	msgStopped         = "Stopped playback and disconnected."
	msgNotConnected    = "The bot is not currently in a voice channel."
	msgNotIntegers     = "Please enter valid integers."
	msgInvalidRange    = "Invalid range."
)

const (
	dashboardTTL    = 24 * time.Hour
	startTimeout    = 30 * time.Second
	disconnectGrace = 2 * time.Second
)

var errNotANumber = errors.New("not a number")

// VoiceLocator returns the voice channel of userID in guildID, empty if none
type VoiceLocator func(guildID, userID string) string

// Handler routes interactions to dashboards and sessions
type Handler struct {
	api         API
	registry    *playback.Registry
	voiceOf     VoiceLocator
	reciter     string
	translation string

	mu         sync.Mutex
	dashboards map[string]*Dashboard
}

// NewHandler creates a handler, reciter and translation are the defaults of
// new dashboards
func NewHandler(api API, registry *playback.Registry, voiceOf VoiceLocator, reciter string, translation string) *Handler {
	return &Handler{
		api:         api,
		registry:    registry,
		voiceOf:     voiceOf,
		reciter:     reciter,
		translation: translation,
		dashboards:  make(map[string]*Dashboard),
	}
}

// Register overwrites the slash commands of the application, globally if
// guildID is empty
func (h *Handler) Register(appID string, guildID string) error {
	cmds, err := h.api.ApplicationCommandBulkOverwrite(appID, guildID, Commands())
	if err != nil {
		return errors.Wrap(err, "could not register slash commands")
	}
	log.WithFields(log.Fields{
		"commands": len(cmds),
		"guild":    guildID,
	}).Info("registered slash commands")
	return nil
}

// OnInteractionCreate is the discordgo event handler
func (h *Handler) OnInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	h.Handle(i.Interaction)
}

// OnVoiceStateUpdate resets the guild session when the bot left voice
func (h *Handler) OnVoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if s.State == nil || s.State.User == nil {
		return
	}
	h.VoiceStateChanged(s.State.User.ID, v.VoiceState)
}

// VoiceStateChanged handles a voice state of any user, only disconnects of
// botID matter
func (h *Handler) VoiceStateChanged(botID string, vs *discordgo.VoiceState) {
	if vs == nil || vs.UserID != botID || vs.ChannelID != "" {
		return
	}
	sess, ok := h.registry.Existing(vs.GuildID)
	if !ok {
		return
	}
	// a late event from the previous connection must not kill a fresh start
	if time.Since(sess.StartedAt()) < disconnectGrace {
		log.WithField("guild", vs.GuildID).Debug("ignoring voice disconnect right after start")
		return
	}
	log.WithFields(log.Fields{
		"guild":   vs.GuildID,
		"session": sess.ID(),
	}).Info("bot left voice, resetting session")
	sess.HandleDisconnect()
}

// Handle dispatches one interaction
func (h *Handler) Handle(i *discordgo.Interaction) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		h.handleCommand(i)
	case discordgo.InteractionMessageComponent:
		h.handleComponent(i)
	case discordgo.InteractionModalSubmit:
		h.handleModal(i)
	}
}

// Dashboards counts the live dashboards
func (h *Handler) Dashboards() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.dashboards)
}

// Close stops the presenters of all dashboards
func (h *Handler) Close() {
	h.mu.Lock()
	all := make([]*Dashboard, 0, len(h.dashboards))
	for id, d := range h.dashboards {
		all = append(all, d)
		delete(h.dashboards, id)
	}
	h.mu.Unlock()

	for _, d := range all {
		d.close()
	}
}

func (h *Handler) handleCommand(i *discordgo.Interaction) {
	data := i.ApplicationCommandData()
	switch data.Name {
	case commandQuran:
		h.openDashboard(i, data)
	case commandSurahList:
		embed, components := chapterPage(0)
		h.respond(i, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Embeds:     []*discordgo.MessageEmbed{embed},
				Components: components,
				Flags:      discordgo.MessageFlagsEphemeral,
			},
		})
	}
}

func (h *Handler) openDashboard(i *discordgo.Interaction, data discordgo.ApplicationCommandInteractionData) {
	chapter := -1
	for _, o := range data.Options {
		if o.Name == optionSurah {
			chapter = int(o.IntValue())
		}
	}
	if chapter < 0 || chapter > catalog.ChapterCount {
		h.reply(i, msgSurahOutOfRange)
		return
	}
	if i.GuildID == "" {
		h.reply(i, msgGuildOnly)
		return
	}

	d := newDashboard(h.api, i.GuildID, chapter, util.InteractionDisplayName(i), playback.NewSelection(chapter, h.reciter, h.translation))
	v := d.view()
	err := h.api.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{v.embed()},
			Components: v.components(d.ID()),
		},
	})
	if err != nil {
		log.WithFields(log.Fields{
			"interaction": i.ID,
			"error":       err,
		}).Warning("could not send dashboard")
		d.close()
		return
	}
	h.add(d)

	msg, err := h.api.InteractionResponse(i)
	if err != nil {
		// bound later by the first component interaction
		log.WithField("error", err).Debug("could not fetch dashboard message")
		return
	}
	d.bind(msg.ChannelID, msg.ID)
	log.WithFields(log.Fields{
		"guild":     i.GuildID,
		"dashboard": d.ID(),
		"chapter":   chapter,
	}).Debug("dashboard opened")
}

func (h *Handler) handleComponent(i *discordgo.Interaction) {
	data := i.MessageComponentData()
	a, arg, ok := parseCustomID(data.CustomID)
	if !ok {
		return
	}
	if a == actionPage {
		page, _ := strconv.Atoi(arg)
		embed, components := chapterPage(page)
		h.respond(i, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseUpdateMessage,
			Data: &discordgo.InteractionResponseData{
				Embeds:     []*discordgo.MessageEmbed{embed},
				Components: components,
			},
		})
		return
	}

	d := h.dashboard(arg)
	if d == nil {
		h.reply(i, msgExpired)
		return
	}
	if i.Message != nil {
		d.bind(i.Message.ChannelID, i.Message.ID)
	}

	switch a {
	case actionReciter:
		if len(data.Values) > 0 {
			d.selection.SetReciter(data.Values[0])
		}
		h.updateDashboard(i, d)
	case actionTranslation:
		if len(data.Values) > 0 {
			d.selection.SetTranslation(data.Values[0])
		}
		h.updateDashboard(i, d)
	case actionRange:
		h.respond(i, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseModal,
			Data: rangeModal(d.ID()),
		})
	case actionPlay:
		h.play(i, d)
	case actionStop:
		h.stop(i)
	}
}

func (h *Handler) handleModal(i *discordgo.Interaction) {
	data := i.ModalSubmitData()
	a, arg, ok := parseCustomID(data.CustomID)
	if !ok || a != actionModal {
		return
	}
	d := h.dashboard(arg)
	if d == nil {
		h.reply(i, msgExpired)
		return
	}

	values := modalValues(data.Components)
	start, end, err := parseRange(values[inputStart], values[inputEnd])
	if err == nil {
		err = d.selection.SetRange(start, end)
	}
	switch {
	case errors.Is(err, errNotANumber):
		h.reply(i, msgNotIntegers)
	case err != nil:
		h.reply(i, msgInvalidRange)
	default:
		h.reply(i, "Range set: "+rangeLabel(d.selection.Snapshot()))
		d.refresh()
	}
}

func (h *Handler) play(i *discordgo.Interaction, d *Dashboard) {
	channel := ""
	if user := util.InteractionUser(i); user != nil {
		channel = h.voiceOf(i.GuildID, user.ID)
	}
	if channel == "" {
		h.reply(i, msgNotInVoice)
		return
	}
	if !h.reply(i, msgFetching) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
	defer cancel()
	snap := d.selection.Snapshot()
	err := h.registry.Session(i.GuildID).Start(ctx, playback.StartRequest{
		ChannelID: channel,
		Selection: d.selection,
		Presenter: d,
	})
	if err != nil {
		log.WithFields(log.Fields{
			"guild": i.GuildID,
			"error": err,
		}).Warning("could not start playback")
	}
	h.edit(i, startMessage(snap, err))
}

func (h *Handler) stop(i *discordgo.Interaction) {
	sess, ok := h.registry.Existing(i.GuildID)
	if !ok {
		h.reply(i, msgNotConnected)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
	defer cancel()
	stopped, err := sess.Stop(ctx)
	switch {
	case err != nil:
		h.reply(i, "An error occurred: "+err.Error())
	case stopped:
		h.reply(i, msgStopped)
	default:
		h.reply(i, msgNotConnected)
	}
}

func startMessage(snap playback.Snapshot, err error) string {
	switch {
	case errors.Is(err, playback.ErrNotInVoice):
		return msgNotInVoice
	case err != nil:
		return "An error occurred: " + err.Error()
	}
	switch {
	case playback.ModeFor(snap) == playback.ModeFullCollection:
		return "Starting Full Quran recitation..."
	case snap.HasRange && snap.Range.Open():
		return fmt.Sprintf("Preparing to play from Ayah %d to the end of Surah %d...", snap.Range.Start, snap.Chapter)
	case snap.HasRange:
		return fmt.Sprintf("Preparing to play Ayah %d to %d...", snap.Range.Start, snap.Range.End)
	default:
		return fmt.Sprintf("Playing full Surah %d...", snap.Chapter)
	}
}

// parseRange reads the two modal inputs, a blank end leaves the range open
func parseRange(startText, endText string) (int, int, error) {
	start, err := strconv.Atoi(strings.TrimSpace(startText))
	if err != nil {
		return 0, 0, errors.Wrapf(errNotANumber, "start %q", startText)
	}
	end := 0
	if strings.TrimSpace(endText) != "" {
		end, err = strconv.Atoi(strings.TrimSpace(endText))
		if err != nil {
			return 0, 0, errors.Wrapf(errNotANumber, "end %q", endText)
		}
		if end == 0 {
			return 0, 0, errors.Wrapf(playback.ErrInvalidRange, "ayah %d to 0", start)
		}
	}
	if err := playback.ValidateRange(start, end); err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// modalValues maps text input ids to their values
func modalValues(components []discordgo.MessageComponent) map[string]string {
	values := make(map[string]string)
	for _, c := range components {
		row, ok := c.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, inner := range row.Components {
			if input, ok := inner.(*discordgo.TextInput); ok {
				values[input.CustomID] = input.Value
			}
		}
	}
	return values
}

func (h *Handler) add(d *Dashboard) {
	h.mu.Lock()
	var expired []*Dashboard
	for id, old := range h.dashboards {
		if time.Since(old.created) > dashboardTTL {
			expired = append(expired, old)
			delete(h.dashboards, id)
		}
	}
	h.dashboards[d.ID()] = d
	h.mu.Unlock()

	for _, old := range expired {
		old.close()
	}
}

func (h *Handler) dashboard(id string) *Dashboard {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dashboards[id]
}

func (h *Handler) updateDashboard(i *discordgo.Interaction, d *Dashboard) {
	v := d.view()
	h.respond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{v.embed()},
			Components: v.components(d.ID()),
		},
	})
}

// reply sends an ephemeral message and reports whether it went out
func (h *Handler) reply(i *discordgo.Interaction, content string) bool {
	return h.respond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

func (h *Handler) respond(i *discordgo.Interaction, resp *discordgo.InteractionResponse) bool {
	if err := h.api.InteractionRespond(i, resp); err != nil {
		log.WithFields(log.Fields{
			"interaction": i.ID,
			"error":       err,
		}).Warning("could not respond to interaction")
		return false
	}
	return true
}

func (h *Handler) edit(i *discordgo.Interaction, content string) {
	if _, err := h.api.InteractionResponseEdit(i, &discordgo.WebhookEdit{Content: &content}); err != nil {
		log.WithFields(log.Fields{
			"interaction": i.ID,
			"error":       err,
		}).Warning("could not edit interaction response")
	}
}
