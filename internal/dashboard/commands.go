package dashboard

import (
	"github.com/bwmarrin/discordgo"

	"github.com/toksikk/quranbot/internal/catalog"
)

const (
	commandQuran     = "quran"
	commandSurahList = "surah_list"
	optionSurah      = "surah_number"
)

// Commands returns the slash commands handled by Handler
func Commands() []*discordgo.ApplicationCommand {
	minSurah := float64(0)
	dm := false
	return []*discordgo.ApplicationCommand{
		{
			Name:         commandQuran,
			Description:  "Open the Quran Dashboard",
			DMPermission: &dm,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        optionSurah,
					Description: "Surah number 1-114, or 0 to play the entire Quran from the beginning",
					Required:    true,
					MinValue:    &minSurah,
					MaxValue:    float64(catalog.ChapterCount),
				},
			},
		},
		{
			Name:         commandSurahList,
			Description:  "Display a list of all 114 Surahs",
			DMPermission: &dm,
		},
	}
}
