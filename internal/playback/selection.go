package playback

import (
	"sync"

	"github.com/toksikk/quranbot/internal/catalog"
)

// Selection holds what a dashboard currently asks for. Every setter may be
// called while a loop is running, the loop reads a Snapshot per unit.
type Selection struct {
	mu          sync.RWMutex
	chapter     int
	verses      VerseRange
	hasRange    bool
	reciter     string
	translation string
	// position is the chapter a full collection loop continues from
	position    int
}

// Snapshot is an immutable copy of a Selection with resolved catalog entries
type Snapshot struct {
	Chapter     int
	Range       VerseRange
	HasRange    bool
	Reciter     catalog.Reciter
	Translation catalog.Translation
}

// NewSelection for chapter, 0 meaning the whole collection
func NewSelection(chapter int, reciter string, translation string) *Selection {
	return &Selection{
		chapter:     chapter,
		reciter:     reciter,
		translation: translation,
		position:    1,
	}
}

// SetReciter takes effect on the next unit
func (s *Selection) SetReciter(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reciter = key
}

// SetTranslation takes effect on the next unit
func (s *Selection) SetTranslation(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.translation = key
}

// SetRange validates and stores a verse range. Invalid ranges leave the
// selection untouched.
func (s *Selection) SetRange(start, end int) error {
	if err := ValidateRange(start, end); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verses = VerseRange{Start: start, End: end}
	s.hasRange = true
	return nil
}

// ClearRange goes back to playing the entire chapter
func (s *Selection) ClearRange() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verses = VerseRange{}
	s.hasRange = false
}

// Chapter returns the selected chapter
func (s *Selection) Chapter() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chapter
}

// Position is the chapter the next full collection loop of this selection
// starts at
func (s *Selection) Position() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.position
}

func (s *Selection) setPosition(chapter int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.position = chapter
}

// Snapshot copies the selection, unknown keys resolve to catalog defaults
func (s *Selection) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Chapter:     s.chapter,
		Range:       s.verses,
		HasRange:    s.hasRange,
		Reciter:     catalog.ReciterOrDefault(s.reciter),
		Translation: catalog.TranslationOrNone(s.translation),
	}
}

// ModeFor derives the playback mode of a snapshot from its chapter and range.
// Translations only render in verse range mode.
func ModeFor(snap Snapshot) Mode {
	switch {
	case snap.Chapter == 0:
		return ModeFullCollection
	case snap.HasRange:
		return ModeVerseRange
	default:
		return ModeSingleChapter
	}
}

// RangeFor returns the verse range a verse mode loop starts with
func RangeFor(snap Snapshot) VerseRange {
	if snap.HasRange {
		return snap.Range
	}
	return VerseRange{Start: 1}
}
