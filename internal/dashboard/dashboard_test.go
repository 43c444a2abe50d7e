package dashboard

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toksikk/quranbot/internal/catalog"
	"github.com/toksikk/quranbot/internal/playback"
)

const waitFor = 5 * time.Second

type fakeAPI struct {
	mu         sync.Mutex
	responses  []*discordgo.InteractionResponse
	edits      []string
	messages   []*discordgo.MessageEdit
	overwrite  []*discordgo.ApplicationCommand
	respondErr error
}

func (f *fakeAPI) InteractionRespond(i *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.respondErr != nil {
		return f.respondErr
	}
	f.responses = append(f.responses, resp)
	return nil
}

func (f *fakeAPI) InteractionResponse(i *discordgo.Interaction, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	return &discordgo.Message{ID: "message-" + i.ID, ChannelID: i.ChannelID}, nil
}

func (f *fakeAPI) InteractionResponseEdit(i *discordgo.Interaction, edit *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, *edit.Content)
	return &discordgo.Message{}, nil
}

func (f *fakeAPI) ChannelMessageEditComplex(m *discordgo.MessageEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, m)
	return &discordgo.Message{ID: m.ID, ChannelID: m.Channel}, nil
}

func (f *fakeAPI) ApplicationCommandBulkOverwrite(appID string, guildID string, cmds []*discordgo.ApplicationCommand, _ ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overwrite = cmds
	return cmds, nil
}

func (f *fakeAPI) last() *discordgo.InteractionResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.responses) == 0 {
		return nil
	}
	return f.responses[len(f.responses)-1]
}

func (f *fakeAPI) lastEdit() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.edits) == 0 {
		return ""
	}
	return f.edits[len(f.edits)-1]
}

// quietSink reports each clip as playing for a single poll
type quietSink struct {
	mu        sync.Mutex
	channel   string
	submitted []string
	playing   bool
}

func (s *quietSink) Connect(_ context.Context, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channel = channelID
	return nil
}

func (s *quietSink) Relocate(ctx context.Context, channelID string) error {
	return s.Connect(ctx, channelID)
}

func (s *quietSink) Disconnect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channel = ""
	return nil
}

func (s *quietSink) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channel != ""
}

func (s *quietSink) ChannelID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channel
}

func (s *quietSink) Submit(url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitted = append(s.submitted, url)
	s.playing = true
	return nil
}

func (s *quietSink) IsPending() bool {
	return false
}

func (s *quietSink) IsEmitting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	emitting := s.playing
	s.playing = false
	return emitting
}

func (s *quietSink) Halt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
}

func (s *quietSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.submitted)
}

type stubLookup struct{}

func (stubLookup) ChapterAudio(_ context.Context, chapter int, reciterID int) (string, error) {
	return fmt.Sprintf("https://audio.test/%d/%d.mp3", reciterID, chapter), nil
}

func (stubLookup) VerseAudio(_ context.Context, chapter int, verse int, edition string) (string, error) {
	if verse > 7 {
		return "", nil
	}
	return fmt.Sprintf("https://audio.test/%s/%d/%d.mp3", edition, chapter, verse), nil
}

func (stubLookup) VerseTranslation(_ context.Context, chapter int, verse int, edition string) string {
	return fmt.Sprintf("%s %d:%d", edition, chapter, verse)
}

type fixture struct {
	api      *fakeAPI
	sink     *quietSink
	registry *playback.Registry
	handler  *Handler
	voice    map[string]string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		api:   &fakeAPI{},
		sink:  &quietSink{},
		voice: map[string]string{"u1": "voice-1"},
	}
	f.registry = playback.NewRegistry(func(string) playback.Sink { return f.sink }, stubLookup{},
		playback.Config{PollInterval: time.Millisecond, StartPollAttempts: 3})
	f.handler = NewHandler(f.api, f.registry, func(guildID, userID string) string {
		return f.voice[userID]
	}, catalog.DefaultReciter, catalog.NoTranslation)
	t.Cleanup(func() {
		f.registry.StopAll(context.Background())
		f.handler.Close()
	})
	return f
}

func member(id string) *discordgo.Member {
	return &discordgo.Member{User: &discordgo.User{ID: id, Username: "user-" + id}}
}

func quranCommand(surah int) *discordgo.Interaction {
	return &discordgo.Interaction{
		ID:        "cmd",
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   "g1",
		ChannelID: "text-1",
		Member:    member("u1"),
		Data: discordgo.ApplicationCommandInteractionData{
			Name: commandQuran,
			Options: []*discordgo.ApplicationCommandInteractionDataOption{
				{Name: optionSurah, Type: discordgo.ApplicationCommandOptionInteger, Value: float64(surah)},
			},
		},
	}
}

func component(id string, userID string, values ...string) *discordgo.Interaction {
	return &discordgo.Interaction{
		ID:      "component",
		Type:    discordgo.InteractionMessageComponent,
		GuildID: "g1",
		Member:  member(userID),
		Message: &discordgo.Message{ID: "dashboard-message", ChannelID: "text-1"},
		Data: discordgo.MessageComponentInteractionData{
			CustomID: id,
			Values:   values,
		},
	}
}

func rangeSubmit(dashboardID, start, end string) *discordgo.Interaction {
	return &discordgo.Interaction{
		ID:      "modal",
		Type:    discordgo.InteractionModalSubmit,
		GuildID: "g1",
		Member:  member("u1"),
		Data: discordgo.ModalSubmitInteractionData{
			CustomID: customID(actionModal, dashboardID),
			Components: []discordgo.MessageComponent{
				&discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					&discordgo.TextInput{CustomID: inputStart, Value: start},
				}},
				&discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					&discordgo.TextInput{CustomID: inputEnd, Value: end},
				}},
			},
		},
	}
}

// open runs /quran and returns the new dashboard
func (f *fixture) open(t *testing.T, surah int) *Dashboard {
	t.Helper()
	f.handler.Handle(quranCommand(surah))
	f.handler.mu.Lock()
	defer f.handler.mu.Unlock()
	require.Len(t, f.handler.dashboards, 1)
	for _, d := range f.handler.dashboards {
		return d
	}
	return nil
}

func TestCustomID(t *testing.T) {
	a, arg, ok := parseCustomID(customID(actionPlay, "abc-123"))
	require.True(t, ok)
	assert.Equal(t, actionPlay, a)
	assert.Equal(t, "abc-123", arg)

	a, arg, ok = parseCustomID(pageID(3))
	require.True(t, ok)
	assert.Equal(t, actionPage, a)
	assert.Equal(t, "3", arg)

	for _, bad := range []string{"", "quran", "quran:play", "quran:play:", "other:play:1", "quran:dance:1"} {
		_, _, ok := parseCustomID(bad)
		assert.False(t, ok, bad)
	}
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		start, end string
		wantStart  int
		wantEnd    int
		err        error
	}{
		{"1", "5", 1, 5, nil},
		{" 3 ", "3", 3, 3, nil},
		{"a", "5", 0, 0, errNotANumber},
		{"1", "", 1, 0, nil},
		{"1", "x", 0, 0, errNotANumber},
		{"2", "0", 0, 0, playback.ErrInvalidRange},
		{"5", "3", 0, 0, playback.ErrInvalidRange},
		{"0", "3", 0, 0, playback.ErrInvalidRange},
	}
	for _, tt := range tests {
		start, end, err := parseRange(tt.start, tt.end)
		if tt.err != nil {
			assert.ErrorIs(t, err, tt.err, "%q-%q", tt.start, tt.end)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.wantStart, start)
		assert.Equal(t, tt.wantEnd, end)
	}
}

func buttons(t *testing.T, components []discordgo.MessageComponent) []discordgo.Button {
	t.Helper()
	var out []discordgo.Button
	for _, c := range components {
		row, ok := c.(discordgo.ActionsRow)
		require.True(t, ok)
		for _, inner := range row.Components {
			if b, ok := inner.(discordgo.Button); ok {
				out = append(out, b)
			}
		}
	}
	return out
}

func TestChapterPage(t *testing.T) {
	embed, components := chapterPage(0)
	assert.Equal(t, "📖 Table of Surahs", embed.Title)
	assert.Equal(t, "Page 1 of 4", embed.Footer.Text)
	lines := strings.Split(embed.Description, "\n")
	assert.Len(t, lines, chaptersPerPage)
	assert.Equal(t, "1. Al-Fatihah (The Opener)", lines[0])
	b := buttons(t, components)
	require.Len(t, b, 2)
	assert.True(t, b[0].Disabled)
	assert.False(t, b[1].Disabled)
	assert.Equal(t, pageID(1), b[1].CustomID)

	embed, components = chapterPage(3)
	assert.Equal(t, "Page 4 of 4", embed.Footer.Text)
	lines = strings.Split(embed.Description, "\n")
	assert.Len(t, lines, catalog.ChapterCount-3*chaptersPerPage)
	assert.Equal(t, "114. An-Nas (Mankind)", lines[len(lines)-1])
	b = buttons(t, components)
	assert.False(t, b[0].Disabled)
	assert.True(t, b[1].Disabled)

	// clamped
	embed, _ = chapterPage(99)
	assert.Equal(t, "Page 4 of 4", embed.Footer.Text)
	embed, _ = chapterPage(-1)
	assert.Equal(t, "Page 1 of 4", embed.Footer.Text)
}

func TestSurahListCommand(t *testing.T) {
	f := newFixture(t)
	f.handler.Handle(&discordgo.Interaction{
		Type: discordgo.InteractionApplicationCommand,
		Data: discordgo.ApplicationCommandInteractionData{Name: commandSurahList},
	})
	resp := f.api.last()
	require.NotNil(t, resp)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, resp.Data.Flags)
	assert.Equal(t, "Page 1 of 4", resp.Data.Embeds[0].Footer.Text)

	f.handler.Handle(component(pageID(2), "u1"))
	resp = f.api.last()
	assert.Equal(t, discordgo.InteractionResponseUpdateMessage, resp.Type)
	assert.Equal(t, "Page 3 of 4", resp.Data.Embeds[0].Footer.Text)
}

func TestQuranCommand(t *testing.T) {
	f := newFixture(t)
	d := f.open(t, 2)

	resp := f.api.last()
	require.NotNil(t, resp)
	assert.Equal(t, discordgo.InteractionResponseChannelMessageWithSource, resp.Type)
	assert.Equal(t, "📖 Quran Dashboard (Surah 2)", resp.Data.Embeds[0].Title)
	assert.Equal(t, "Requested by user-u1", resp.Data.Embeds[0].Footer.Text)
	assert.Equal(t, colorGreen, resp.Data.Embeds[0].Color)
	assert.Len(t, resp.Data.Components, 3)

	d.mu.Lock()
	assert.Equal(t, "message-cmd", d.messageID)
	assert.Equal(t, "text-1", d.channelID)
	d.mu.Unlock()
}

func TestQuranCommandFullCollection(t *testing.T) {
	f := newFixture(t)
	f.open(t, 0)

	embed := f.api.last().Data.Embeds[0]
	assert.Equal(t, "📖 Now Playing: The Noble Quran (Full Recitation)", embed.Title)
	assert.Equal(t, "Current Progress: Surah 1 of 114 (Requested by user-u1)", embed.Footer.Text)
}

func TestQuranCommandOutOfRange(t *testing.T) {
	f := newFixture(t)
	f.handler.Handle(quranCommand(115))
	resp := f.api.last()
	assert.Equal(t, msgSurahOutOfRange, resp.Data.Content)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, resp.Data.Flags)
	assert.Equal(t, 0, f.handler.Dashboards())
}

func TestSelectMenus(t *testing.T) {
	f := newFixture(t)
	d := f.open(t, 2)

	f.handler.Handle(component(customID(actionReciter, d.ID()), "u1", "husary"))
	assert.Equal(t, discordgo.InteractionResponseUpdateMessage, f.api.last().Type)
	f.handler.Handle(component(customID(actionTranslation, d.ID()), "u1", "en"))

	snap := d.Selection().Snapshot()
	assert.Equal(t, "husary", snap.Reciter.Key)
	assert.Equal(t, "en", snap.Translation.Key)

	embed := f.api.last().Data.Embeds[0]
	var fields []string
	for _, field := range embed.Fields {
		fields = append(fields, field.Value)
	}
	assert.Contains(t, fields, snap.Reciter.Name)
	assert.Contains(t, fields, snap.Translation.Name)
}

func TestRangeModal(t *testing.T) {
	f := newFixture(t)
	d := f.open(t, 2)

	f.handler.Handle(component(customID(actionRange, d.ID()), "u1"))
	resp := f.api.last()
	assert.Equal(t, discordgo.InteractionResponseModal, resp.Type)
	assert.Equal(t, "Set Ayah Range", resp.Data.Title)
	assert.Equal(t, customID(actionModal, d.ID()), resp.Data.CustomID)

	tests := []struct {
		start, end string
		want       string
	}{
		{"x", "5", msgNotIntegers},
		{"5", "1", msgInvalidRange},
		{"0", "1", msgInvalidRange},
		{"4", "", "Range set: Ayah 4 to end"},
		{"3", "5", "Range set: Ayah 3 to 5"},
	}
	for _, tt := range tests {
		f.handler.Handle(rangeSubmit(d.ID(), tt.start, tt.end))
		assert.Equal(t, tt.want, f.api.last().Data.Content, "%s-%s", tt.start, tt.end)
	}

	snap := d.Selection().Snapshot()
	assert.True(t, snap.HasRange)
	assert.Equal(t, playback.VerseRange{Start: 3, End: 5}, snap.Range)
}

func TestExpiredDashboard(t *testing.T) {
	f := newFixture(t)
	f.handler.Handle(component(customID(actionPlay, "gone"), "u1"))
	assert.Equal(t, msgExpired, f.api.last().Data.Content)

	f.handler.Handle(rangeSubmit("gone", "1", "2"))
	assert.Equal(t, msgExpired, f.api.last().Data.Content)

	// foreign custom ids are ignored
	f.handler.Handle(component("someone-else", "u1"))
	assert.Len(t, f.api.responses, 2)
}

func TestPlayNotInVoice(t *testing.T) {
	f := newFixture(t)
	d := f.open(t, 2)

	f.handler.Handle(component(customID(actionPlay, d.ID()), "stranger"))
	assert.Equal(t, msgNotInVoice, f.api.last().Data.Content)
	_, ok := f.registry.Existing("g1")
	assert.False(t, ok)
}

func TestPlay(t *testing.T) {
	tests := []struct {
		name   string
		surah  int
		setup  func(*Dashboard)
		want   string
		played int
	}{
		{"single chapter", 2, func(*Dashboard) {}, "Playing full Surah 2...", 1},
		{"full collection", 0, func(*Dashboard) {}, "Starting Full Quran recitation...", catalog.ChapterCount},
		{"range", 1, func(d *Dashboard) { require.NoError(t, d.Selection().SetRange(2, 4)) }, "Preparing to play Ayah 2 to 4...", 3},
		{"translation keeps whole chapter", 2, func(d *Dashboard) { d.Selection().SetTranslation("en") }, "Playing full Surah 2...", 1},
		{"open range", 1, func(d *Dashboard) { require.NoError(t, d.Selection().SetRange(5, 0)) }, "Preparing to play from Ayah 5 to the end of Surah 1...", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			d := f.open(t, tt.surah)
			tt.setup(d)

			f.handler.Handle(component(customID(actionPlay, d.ID()), "u1"))
			assert.Equal(t, msgFetching, f.api.responses[len(f.api.responses)-1].Data.Content)
			assert.Equal(t, tt.want, f.api.lastEdit())
			require.Eventually(t, func() bool { return f.sink.count() == tt.played }, waitFor, time.Millisecond)

			sess, ok := f.registry.Existing("g1")
			require.True(t, ok)
			require.Eventually(t, func() bool { return sess.State() == playback.StateIdle }, waitFor, time.Millisecond)
		})
	}
}

func TestStop(t *testing.T) {
	f := newFixture(t)
	d := f.open(t, 2)

	f.handler.Handle(component(customID(actionStop, d.ID()), "u1"))
	assert.Equal(t, msgNotConnected, f.api.last().Data.Content)

	f.handler.Handle(component(customID(actionPlay, d.ID()), "u1"))
	require.Eventually(t, func() bool { return f.sink.count() == 1 }, waitFor, time.Millisecond)

	f.handler.Handle(component(customID(actionStop, d.ID()), "u1"))
	assert.Equal(t, msgStopped, f.api.last().Data.Content)
	assert.False(t, f.sink.IsConnected())

	f.handler.Handle(component(customID(actionStop, d.ID()), "u1"))
	assert.Equal(t, msgNotConnected, f.api.last().Data.Content)
}

func TestPresenterEditsDashboard(t *testing.T) {
	f := newFixture(t)
	d := f.open(t, 2)
	require.NoError(t, d.Selection().SetRange(1, 1))
	d.Selection().SetTranslation("en")

	d.Present(playback.Update{
		State:       playback.StateStreaming,
		Mode:        playback.ModeVerseRange,
		Unit:        playback.Unit{Kind: playback.UnitVerse, Chapter: 2, Verse: 1},
		Translation: d.Selection().Snapshot().Translation,
		Text:        "Alif, Lam, Meem.",
	})
	require.Eventually(t, func() bool {
		f.api.mu.Lock()
		defer f.api.mu.Unlock()
		return len(f.api.messages) > 0
	}, waitFor, time.Millisecond)

	f.api.mu.Lock()
	edit := f.api.messages[len(f.api.messages)-1]
	f.api.mu.Unlock()
	assert.Equal(t, "message-cmd", edit.ID)
	assert.Equal(t, "text-1", edit.Channel)
	embed := (*edit.Embeds)[0]
	var values []string
	for _, field := range embed.Fields {
		values = append(values, field.Value)
	}
	assert.Contains(t, values, "Al-Baqarah, Ayah 1")
	assert.Contains(t, values, "Alif, Lam, Meem.")
	assert.Contains(t, values, "Ayah 1 to 1")
}

func TestFullCollectionProgress(t *testing.T) {
	v := view{
		chapter:   0,
		requester: "ali",
		snap:      playback.NewSelection(0, "", "").Snapshot(),
		last:      &playback.Update{State: playback.StateStreaming, Unit: playback.Unit{Kind: playback.UnitChapter, Chapter: 18}},
	}
	assert.Equal(t, "Current Progress: Surah 18 of 114 (Requested by ali)", v.embed().Footer.Text)

	v.last.State = playback.StateStopped
	embed := v.embed()
	assert.Equal(t, "Current Progress: Surah 1 of 114 (Requested by ali)", embed.Footer.Text)
	assert.Equal(t, "stopped", embed.Fields[len(embed.Fields)-1].Value)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "ab…", truncate("abcd", 3))
}

func TestVoiceStateChanged(t *testing.T) {
	f := newFixture(t)
	d := f.open(t, 2)
	f.handler.Handle(component(customID(actionPlay, d.ID()), "u1"))
	sess, ok := f.registry.Existing("g1")
	require.True(t, ok)
	require.True(t, f.sink.IsConnected())

	// right after start the event is ignored
	f.handler.VoiceStateChanged("bot", &discordgo.VoiceState{GuildID: "g1", UserID: "bot"})
	assert.True(t, f.sink.IsConnected())

	// other users and channel moves are ignored
	f.handler.VoiceStateChanged("bot", &discordgo.VoiceState{GuildID: "g1", UserID: "u1"})
	f.handler.VoiceStateChanged("bot", &discordgo.VoiceState{GuildID: "g1", UserID: "bot", ChannelID: "voice-2"})
	assert.True(t, f.sink.IsConnected())

	sess.HandleDisconnect()
	assert.False(t, f.sink.IsConnected())
	assert.Equal(t, playback.StateIdle, sess.State())
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.handler.Register("app", "g1"))
	require.Len(t, f.api.overwrite, 2)
	assert.Equal(t, commandQuran, f.api.overwrite[0].Name)
	opt := f.api.overwrite[0].Options[0]
	assert.Equal(t, float64(0), *opt.MinValue)
	assert.Equal(t, float64(catalog.ChapterCount), opt.MaxValue)
}

func TestRespondFailureClosesDashboard(t *testing.T) {
	f := newFixture(t)
	f.api.respondErr = errors.New("unknown interaction")
	f.handler.Handle(quranCommand(1))
	assert.Equal(t, 0, f.handler.Dashboards())
}
