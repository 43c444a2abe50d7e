// Package main is the quranbot entry point.
package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/toksikk/quranbot"
	"github.com/toksikk/quranbot/internal/catalog"
	"github.com/toksikk/quranbot/internal/cfg"
)

var (
	app = kingpin.New("quranbot", "Discord bot streaming Quran recitations into voice channels")

	// run command
	runCmd     = app.Command("run", "Connect to discord and serve").Default()
	configPath = runCmd.Flag("config", "Path to the config file").Short('c').Envar("QURANBOT_CONFIG").Default(cfg.DefaultFile).String()
	verbose    = runCmd.Flag("verbose", "Log debug output").Short('v').Bool()

	// surahs command
	surahsCmd = app.Command("surahs", "Print the table of surahs")

	// version command
	versionCmd = app.Command("version", "Print the version banner")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	switch kingpin.MustParse(app.Parse(os.Args[1:])) {
	case runCmd.FullCommand():
		conf, err := cfg.Load(*configPath)
		if err != nil {
			log.WithField("error", err).Fatal("Failed to load config")
		}
		if *verbose {
			conf.LogLevel = "debug"
		}
		if err := quranbot.StartQuranbot(conf); err != nil {
			log.WithField("error", err).Fatal("Quranbot stopped")
		}
	case surahsCmd.FullCommand():
		printSurahs()
	case versionCmd.FullCommand():
		quranbot.Banner(nil)
	}
}

func printSurahs() {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tName\tMeaning\tAyat")
	for _, c := range catalog.Chapters() {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", c.Index, c.Name, c.Translated, c.Verses)
	}
	w.Flush()
}
