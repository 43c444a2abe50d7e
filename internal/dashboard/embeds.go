package dashboard

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/toksikk/quranbot/internal/catalog"
	"github.com/toksikk/quranbot/internal/playback"
	"github.com/toksikk/quranbot/internal/util"
)

const (
	colorGreen = 0x2ecc71
	colorBlue  = 0x3498db

	chaptersPerPage = 30
	maxFieldValue   = 1024
)

// view is everything needed to render a dashboard message
type view struct {
	chapter   int
	requester string
	snap      playback.Snapshot
	last      *playback.Update
}

func (v view) embed() *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{Color: colorGreen}
	if v.chapter == 0 {
		progress := 1
		if v.last != nil && v.last.Unit.Chapter > 0 && !v.last.State.Terminal() {
			progress = v.last.Unit.Chapter
		}
		e.Title = "📖 Now Playing: The Noble Quran (Full Recitation)"
		e.Description = "Use the selection menu to choose a Reciter, then press play to listen."
		e.Footer = &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Current Progress: Surah %d of %d (Requested by %s)", progress, catalog.ChapterCount, v.requester),
		}
	} else {
		e.Title = fmt.Sprintf("📖 Quran Dashboard (Surah %d)", v.chapter)
		e.Description = "Use the selection menu to choose a Reciter. You can set an Ayah range, or directly press play to listen to the full Surah."
		e.Footer = &discordgo.MessageEmbedFooter{Text: "Requested by " + v.requester}
		e.Fields = append(e.Fields,
			&discordgo.MessageEmbedField{Name: "Surah", Value: chapterLabel(v.chapter), Inline: true},
			&discordgo.MessageEmbedField{Name: "Ayah range", Value: rangeLabel(v.snap), Inline: true},
		)
	}

	e.Fields = append(e.Fields,
		&discordgo.MessageEmbedField{Name: "Reciter", Value: v.snap.Reciter.Name, Inline: true},
		&discordgo.MessageEmbedField{Name: "Translation", Value: v.snap.Translation.Name, Inline: true},
	)

	if v.last == nil {
		return e
	}
	if v.last.State.Terminal() {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "Status", Value: v.last.State.String()})
		return e
	}
	e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "Now playing", Value: unitLabel(v.last.Unit)})
	if v.last.Text != "" {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{
			Name:  v.last.Translation.Name,
			Value: truncate(v.last.Text, maxFieldValue),
		})
	}
	return e
}

func (v view) components(id string) []discordgo.MessageComponent {
	reciters := make([]discordgo.SelectMenuOption, 0, len(catalog.Reciters()))
	for _, r := range catalog.Reciters() {
		reciters = append(reciters, discordgo.SelectMenuOption{
			Label:       r.Name,
			Value:       r.Key,
			Description: r.Description,
			Default:     r.Key == v.snap.Reciter.Key,
		})
	}
	translations := make([]discordgo.SelectMenuOption, 0, len(catalog.Translations()))
	for _, t := range catalog.Translations() {
		translations = append(translations, discordgo.SelectMenuOption{
			Label:   t.Name,
			Value:   t.Key,
			Default: t.Key == v.snap.Translation.Key,
		})
	}
	one := 1

	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				MenuType:    discordgo.StringSelectMenu,
				CustomID:    customID(actionReciter, id),
				Placeholder: "Select Reciter",
				MinValues:   &one,
				MaxValues:   1,
				Options:     reciters,
			},
		}},
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				MenuType:    discordgo.StringSelectMenu,
				CustomID:    customID(actionTranslation, id),
				Placeholder: "Select Translation",
				MinValues:   &one,
				MaxValues:   1,
				Options:     translations,
				Disabled:    v.chapter == 0,
			},
		}},
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "Set Ayah Range",
				Style:    discordgo.SecondaryButton,
				CustomID: customID(actionRange, id),
				Disabled: v.chapter == 0,
			},
			discordgo.Button{
				Label:    "▶️ Play",
				Style:    discordgo.PrimaryButton,
				CustomID: customID(actionPlay, id),
			},
			discordgo.Button{
				Label:    "⏹️ Stop",
				Style:    discordgo.DangerButton,
				CustomID: customID(actionStop, id),
			},
		}},
	}
}

func rangeModal(id string) *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		CustomID: customID(actionModal, id),
		Title:    "Set Ayah Range",
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.TextInput{
					CustomID:    inputStart,
					Label:       "Start Ayah Number",
					Style:       discordgo.TextInputShort,
					Placeholder: "e.g. 1",
					Required:    true,
					MaxLength:   3,
				},
			}},
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.TextInput{
					CustomID:    inputEnd,
					Label:       "End Ayah Number",
					Style:       discordgo.TextInputShort,
					Placeholder: "blank plays to the end of the Surah",
					Required:    false,
					MaxLength:   3,
				},
			}},
		},
	}
}

// chapterPage renders one page of the chapter table, page is clamped
func chapterPage(page int) (*discordgo.MessageEmbed, []discordgo.MessageComponent) {
	chapters := catalog.Chapters()
	pages := util.Pages(len(chapters), chaptersPerPage)
	if page < 0 {
		page = 0
	}
	if page >= pages {
		page = pages - 1
	}

	start := page * chaptersPerPage
	end := start + chaptersPerPage
	if end > len(chapters) {
		end = len(chapters)
	}
	lines := make([]string, 0, end-start)
	for _, c := range chapters[start:end] {
		lines = append(lines, c.String())
	}

	embed := &discordgo.MessageEmbed{
		Title:       "📖 Table of Surahs",
		Description: strings.Join(lines, "\n"),
		Color:       colorBlue,
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Page %d of %d", page+1, pages)},
	}
	components := []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "Previous",
				Style:    discordgo.SecondaryButton,
				CustomID: pageID(page - 1),
				Disabled: page == 0,
			},
			discordgo.Button{
				Label:    "Next",
				Style:    discordgo.SecondaryButton,
				CustomID: pageID(page + 1),
				Disabled: page == pages-1,
			},
		}},
	}
	return embed, components
}

func chapterLabel(index int) string {
	if c, ok := catalog.ChapterByIndex(index); ok {
		return c.String()
	}
	return fmt.Sprintf("Surah %d", index)
}

func unitLabel(u playback.Unit) string {
	if u.Kind == playback.UnitVerse {
		return fmt.Sprintf("%s, Ayah %d", catalog.ChapterName(u.Chapter), u.Verse)
	}
	return chapterLabel(u.Chapter)
}

func rangeLabel(snap playback.Snapshot) string {
	if !snap.HasRange {
		return "Full Surah"
	}
	if snap.Range.Open() {
		return fmt.Sprintf("Ayah %d to end", snap.Range.Start)
	}
	return fmt.Sprintf("Ayah %d to %d", snap.Range.Start, snap.Range.End)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
