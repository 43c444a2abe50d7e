package playback

import (
	"fmt"

	"github.com/toksikk/quranbot/internal/catalog"
)

// UnitKind tells whether a unit is a whole chapter or a single verse
type UnitKind int

const (
	UnitChapter UnitKind = iota
	UnitVerse
)

// Unit is the next thing to look up and play
type Unit struct {
	Kind    UnitKind
	Chapter int
	Verse   int
}

// String renders "2" for chapters and "2:255" for verses
func (u Unit) String() string {
	if u.Kind == UnitVerse {
		return fmt.Sprintf("%d:%d", u.Chapter, u.Verse)
	}
	return fmt.Sprintf("%d", u.Chapter)
}

// VerseRange is an inclusive verse range. End 0 leaves the range open, it
// then ends at the first verse without audio.
type VerseRange struct {
	Start int
	End   int
}

// Open reports whether the end is unknown
func (r VerseRange) Open() bool {
	return r.End == 0
}

// Queue produces units for one loop. It is owned by a single goroutine.
type Queue struct {
	mode    Mode
	chapter int
	verse   int
	end     int
	open    bool
	done    bool
}

// NewQueue creates a queue for mode. For ModeFullCollection chapter is the
// position to continue from, for ModeVerseRange r bounds the verses.
func NewQueue(mode Mode, chapter int, r VerseRange) *Queue {
	q := &Queue{mode: mode, chapter: chapter}
	if mode == ModeFullCollection && q.chapter < 1 {
		q.chapter = 1
	}
	if mode == ModeVerseRange {
		q.verse = 1
		q.setRange(r)
	}
	return q
}

func (q *Queue) setRange(r VerseRange) {
	if r.Start > q.verse {
		q.verse = r.Start
	}
	q.open = r.Open()
	q.end = r.End
	if q.open {
		q.end = catalog.MaxVerses
	}
}

// Next returns the unit to attempt, false once the queue is exhausted
func (q *Queue) Next() (Unit, bool) {
	if q.done {
		return Unit{}, false
	}
	switch q.mode {
	case ModeFullCollection:
		if q.chapter > catalog.ChapterCount {
			return Unit{}, false
		}
		return Unit{Kind: UnitChapter, Chapter: q.chapter}, true
	case ModeVerseRange:
		if q.verse > q.end {
			return Unit{}, false
		}
		return Unit{Kind: UnitVerse, Chapter: q.chapter, Verse: q.verse}, true
	default:
		return Unit{Kind: UnitChapter, Chapter: q.chapter}, true
	}
}

// Advance moves past the current unit, whether it played or not
func (q *Queue) Advance() {
	switch q.mode {
	case ModeFullCollection:
		q.chapter++
	case ModeVerseRange:
		q.verse++
	default:
		q.done = true
	}
}

// Finish ends the queue early, used when an open range hits a missing verse
func (q *Queue) Finish() {
	q.done = true
}

// Open reports whether the queue ends at the first missing verse
func (q *Queue) Open() bool {
	return q.mode == ModeVerseRange && q.open
}

// Retarget applies a range change from the next unit on. The cursor never
// moves backwards.
func (q *Queue) Retarget(r VerseRange) {
	if q.mode != ModeVerseRange {
		return
	}
	q.setRange(r)
}

// Chapter is the current chapter, past 114 once a collection loop is exhausted
func (q *Queue) Chapter() int {
	return q.chapter
}
