// Package presence rotates the "Listening to" status of the bot.
package presence

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/toksikk/quranbot/internal/catalog"
	"github.com/toksikk/quranbot/internal/util"
)

// Updater sets the listening status, *discordgo.Session implements it
type Updater interface {
	UpdateListeningStatus(name string) error
}

// ActiveFunc reports how many sessions are playing right now
type ActiveFunc func() int

type rotator struct {
	discord Updater
	active  ActiveFunc
	first   time.Duration
	next    func() time.Duration
}

// Start rotates the status until ctx is done
func Start(ctx context.Context, discord Updater, active ActiveFunc) {
	r := &rotator{
		discord: discord,
		active:  active,
		first:   time.Minute,
		next: func() time.Duration {
			return time.Duration(util.RandomRange(5, 15)) * time.Minute
		},
	}
	go r.run(ctx)
	log.Info("presence rotation started")
}

func (r *rotator) run(ctx context.Context) {
	wait := r.first
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
		if err := r.discord.UpdateListeningStatus(status(r.active())); err != nil {
			log.WithField("error", err).Error("Could not set listening status")
		}
		wait = r.next()
	}
}

// status picks a random chapter, or the number of guilds listening
func status(active int) string {
	switch {
	case active == 1:
		return "the Quran in 1 server"
	case active > 1:
		return fmt.Sprintf("the Quran in %d servers", active)
	}
	return "Surah " + catalog.ChapterName(util.RandomRange(1, catalog.ChapterCount+1))
}
