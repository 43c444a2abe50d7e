package playback

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/toksikk/quranbot/internal/catalog"
	"github.com/toksikk/quranbot/internal/lookup"
)

// Sink is a voice connection that plays one audio URL at a time
type Sink interface {
	Connect(ctx context.Context, channelID string) error
	Relocate(ctx context.Context, channelID string) error
	Disconnect(ctx context.Context) error
	IsConnected() bool
	ChannelID() string
	// Submit replaces whatever is playing. IsPending reports a submitted
	// unit that has not produced audio yet, IsEmitting reports true from its
	// first frame until it ended. A unit that fails before its first frame
	// stops pending without ever emitting.
	Submit(url string) error
	IsPending() bool
	IsEmitting() bool
	Halt()
}

// Lookup resolves units to audio URLs and translation text
type Lookup interface {
	ChapterAudio(ctx context.Context, chapter int, reciterID int) (string, error)
	VerseAudio(ctx context.Context, chapter int, verse int, edition string) (string, error)
	VerseTranslation(ctx context.Context, chapter int, verse int, edition string) string
}

// Update is pushed to the Presenter before a unit is submitted and once
// when the loop ends
type Update struct {
	SessionID   string
	State       State
	Mode        Mode
	Unit        Unit
	Reciter     catalog.Reciter
	Translation catalog.Translation
	// Text is the translated verse, empty if none was selected or available
	Text string
}

// Presenter renders updates for the user. Present must not block for long,
// it runs on the loop goroutine.
type Presenter interface {
	Present(Update)
}

// PresenterFunc adapts a function to a Presenter
type PresenterFunc func(Update)

// Present calls f(u)
func (f PresenterFunc) Present(u Update) {
	f(u)
}

type nopPresenter struct{}

func (nopPresenter) Present(Update) {}

// Config of the loop pacing
type Config struct {
	PollInterval      time.Duration
	StartPollAttempts int
}

// DefaultConfig polls twice per second and waits up to five seconds for audio to start
var DefaultConfig = Config{
	PollInterval:      500 * time.Millisecond,
	StartPollAttempts: 10,
}

// StartRequest is what a play gesture carries
type StartRequest struct {
	// ChannelID of the requester's voice channel, empty if not in voice
	ChannelID string
	Selection *Selection
	Presenter Presenter
}

// Session is the playback state machine of one guild. Start, Stop and
// HandleDisconnect are serialized, the loop runs on its own goroutine.
type Session struct {
	id      string
	guildID string
	sink    Sink
	lookup  Lookup
	config  Config

	opMu sync.Mutex

	mu         sync.RWMutex
	state      State
	mode       Mode
	current    Unit
	startedAt  time.Time
	cancel     context.CancelFunc
	done       chan struct{}
	selection  *Selection
	unitsTotal int
}

// NewSession creates an idle session for guildID
func NewSession(guildID string, sink Sink, lookup Lookup, config Config) *Session {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultConfig.PollInterval
	}
	if config.StartPollAttempts <= 0 {
		config.StartPollAttempts = DefaultConfig.StartPollAttempts
	}
	return &Session{
		id:      uuid.NewString(),
		guildID: guildID,
		sink:    sink,
		lookup:  lookup,
		config:  config,
		state:   StateIdle,
	}
}

// Start supersedes any running loop and starts a new one for req. It returns
// once the loop is dispatched.
func (s *Session) Start(ctx context.Context, req StartRequest) error {
	if req.ChannelID == "" {
		return ErrNotInVoice
	}
	if req.Selection == nil {
		return errors.Mark(errors.New("no selection given"), ErrUnexpectedFailure)
	}
	presenter := req.Presenter
	if presenter == nil {
		presenter = nopPresenter{}
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.stopLoop()
	s.halt()
	s.setState(StateStarting)

	if err := s.attach(ctx, req.ChannelID); err != nil {
		s.setState(StateFaulted)
		s.setState(StateIdle)
		return errors.Mark(err, ErrUnexpectedFailure)
	}

	snap := req.Selection.Snapshot()
	mode := ModeFor(snap)

	var queue *Queue
	switch mode {
	case ModeFullCollection:
		queue = NewQueue(mode, max(1, req.Selection.Position()), VerseRange{})
	case ModeVerseRange:
		queue = NewQueue(mode, snap.Chapter, RangeFor(snap))
	default:
		queue = NewQueue(mode, snap.Chapter, VerseRange{})
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	s.mode = mode
	s.selection = req.Selection
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.setState(StateStreaming)
	log.WithFields(log.Fields{
		"session": s.id,
		"guild":   s.guildID,
		"channel": req.ChannelID,
		"mode":    mode,
		"chapter": snap.Chapter,
		"reciter": snap.Reciter.Key,
	}).Info("playback started")

	go s.run(loopCtx, done, queue, req.Selection, presenter)
	return nil
}

// Stop cancels the loop, halts the sink and leaves voice. It reports whether
// there was a voice connection to tear down.
func (s *Session) Stop(ctx context.Context) (bool, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.stopLoop()
	s.halt()

	connected := s.sink.IsConnected()
	if connected {
		if err := s.sink.Disconnect(ctx); err != nil {
			s.reset()
			return true, errors.Mark(errors.Wrap(err, "failed to leave voice"), ErrUnexpectedFailure)
		}
	}
	s.reset()

	log.WithFields(log.Fields{
		"session":   s.id,
		"guild":     s.guildID,
		"connected": connected,
	}).Info("playback stopped")
	return connected, nil
}

// HandleDisconnect resets the session after the voice connection was closed
// by someone else
func (s *Session) HandleDisconnect() {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	hadLoop := s.stopLoop()
	s.halt()
	if s.sink.IsConnected() {
		if err := s.sink.Disconnect(context.Background()); err != nil {
			log.WithFields(log.Fields{
				"session": s.id,
				"error":   err,
			}).Debug("disconnect after voice loss failed")
		}
	}
	s.reset()

	if hadLoop {
		log.WithFields(log.Fields{
			"session": s.id,
			"guild":   s.guildID,
		}).Warning("voice connection lost, playback reset")
	}
}

// ID is a random identifier used in logs and the web panel
func (s *Session) ID() string {
	return s.id
}

// GuildID the session belongs to
func (s *Session) GuildID() string {
	return s.guildID
}

// ChannelID of the voice channel the sink is bound to
func (s *Session) ChannelID() string {
	return s.sink.ChannelID()
}

// State returns the current state
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Mode of the last started loop
func (s *Session) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// Position is the chapter the running full collection loop is at, 1 when
// no such loop runs
func (s *Session) Position() int {
	s.mu.RLock()
	selection, mode := s.selection, s.mode
	s.mu.RUnlock()
	if selection == nil || mode != ModeFullCollection {
		return 1
	}
	return selection.Position()
}

// Current returns the unit being played, zero if none
func (s *Session) Current() Unit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// StartedAt of the running loop
func (s *Session) StartedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startedAt
}

// UnitsPlayed counts submitted units over the lifetime of the session
func (s *Session) UnitsPlayed() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unitsTotal
}

// Selection the running loop reads from, nil if none
func (s *Session) Selection() *Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selection
}

func (s *Session) attach(ctx context.Context, channelID string) error {
	switch {
	case !s.sink.IsConnected():
		if err := s.sink.Connect(ctx, channelID); err != nil {
			return errors.Wrapf(err, "failed to join channel %s", channelID)
		}
	case s.sink.ChannelID() != channelID:
		if err := s.sink.Relocate(ctx, channelID); err != nil {
			return errors.Wrapf(err, "failed to move to channel %s", channelID)
		}
	}
	return nil
}

// stopLoop cancels the running loop and waits until it returned. Must be
// called with opMu held.
func (s *Session) stopLoop() bool {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return false
	}
	cancel()
	<-done
	return true
}

func (s *Session) halt() {
	if s.sink.IsEmitting() || s.sink.IsPending() {
		s.sink.Halt()
	}
}

func (s *Session) reset() {
	s.mu.Lock()
	if s.selection != nil {
		s.selection.setPosition(1)
	}
	s.current = Unit{}
	s.selection = nil
	s.mu.Unlock()
	s.setState(StateIdle)
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	old := s.state
	s.state = state
	s.mu.Unlock()

	if old != state {
		log.WithFields(log.Fields{
			"session": s.id,
			"from":    old,
			"to":      state,
		}).Debug("state changed")
	}
}

func (s *Session) run(ctx context.Context, done chan struct{}, queue *Queue, selection *Selection, presenter Presenter) {
	defer close(done)

	final, last := s.loop(ctx, queue, selection, presenter)

	if final == StateExhausted {
		if queue.mode == ModeFullCollection {
			selection.setPosition(1)
			if ctx.Err() == nil && s.sink.IsConnected() {
				if err := s.sink.Disconnect(context.Background()); err != nil {
					log.WithFields(log.Fields{
						"session": s.id,
						"error":   err,
					}).Warning("failed to leave voice after full recitation")
				}
			}
		}
		log.WithFields(log.Fields{
			"session": s.id,
			"guild":   s.guildID,
			"mode":    queue.mode,
		}).Info("playback finished")
	}

	s.setState(final)
	last.State = final
	presenter.Present(last)

	s.mu.Lock()
	if s.done == done {
		s.cancel, s.done = nil, nil
	}
	s.current = Unit{}
	s.mu.Unlock()
	s.setState(StateIdle)
}

// loop returns the terminal state and the last update presented
func (s *Session) loop(ctx context.Context, queue *Queue, selection *Selection, presenter Presenter) (State, Update) {
	last := Update{SessionID: s.id, Mode: queue.mode}
	retarget := VerseRange{}
	advance := func() {
		queue.Advance()
		if queue.mode == ModeFullCollection {
			selection.setPosition(queue.Chapter())
		}
	}

	for {
		if ctx.Err() != nil {
			return StateStopped, last
		}

		snap := selection.Snapshot()
		if snap.HasRange && snap.Range != retarget {
			queue.Retarget(snap.Range)
			retarget = snap.Range
		}

		unit, ok := queue.Next()
		if !ok {
			return StateExhausted, last
		}
		s.mu.Lock()
		s.current = unit
		s.mu.Unlock()

		logger := log.WithFields(log.Fields{
			"session": s.id,
			"unit":    unit.String(),
			"reciter": snap.Reciter.Key,
		})

		url, err := s.resolve(ctx, unit, snap)
		if ctx.Err() != nil {
			return StateStopped, last
		}
		if err != nil {
			logger.WithError(errors.Mark(err, ErrLookupFailure)).Warning("skipping unit")
			advance()
			continue
		}
		if url == "" {
			if unit.Kind == UnitVerse && queue.Open() {
				logger.Debug("no more verses")
				queue.Finish()
				continue
			}
			logger.Info("no recording available, skipping")
			advance()
			continue
		}

		update := Update{
			SessionID:   s.id,
			State:       StateStreaming,
			Mode:        queue.mode,
			Unit:        unit,
			Reciter:     snap.Reciter,
			Translation: snap.Translation,
		}
		if unit.Kind == UnitVerse && snap.Translation.Enabled() {
			update.Text = s.lookup.VerseTranslation(ctx, unit.Chapter, unit.Verse, snap.Translation.Edition)
			if ctx.Err() != nil {
				return StateStopped, last
			}
			if update.Text == "" {
				logger.WithError(ErrTranslationUnavailable).Debug("playing without text")
			}
		}
		presenter.Present(update)
		last = update

		if err := s.sink.Submit(lookup.NormalizeURL(url)); err != nil {
			logger.WithError(err).Warning("sink rejected unit, skipping")
			advance()
			continue
		}
		s.mu.Lock()
		s.unitsTotal++
		s.mu.Unlock()

		if unit.Kind == UnitVerse {
			if err := s.awaitEmissionStart(ctx); err != nil {
				if ctx.Err() != nil {
					return StateStopped, last
				}
				logger.WithError(err).Warning("skipping unit")
				s.sink.Halt()
				advance()
				continue
			}
		} else if !s.awaitStart(ctx) {
			return StateStopped, last
		}

		if !s.awaitIdle(ctx) {
			return StateStopped, last
		}
		advance()
	}
}

func (s *Session) resolve(ctx context.Context, unit Unit, snap Snapshot) (string, error) {
	if unit.Kind == UnitVerse {
		return s.lookup.VerseAudio(ctx, unit.Chapter, unit.Verse, snap.Reciter.AlQuranCloudID)
	}
	return s.lookup.ChapterAudio(ctx, unit.Chapter, snap.Reciter.QuranComID)
}

// awaitEmissionStart gives the sink a bounded number of polls to begin
// playing the submitted unit. A unit that already ended or failed to open
// counts as started.
func (s *Session) awaitEmissionStart(ctx context.Context) error {
	for i := 0; i < s.config.StartPollAttempts; i++ {
		if s.started() {
			return nil
		}
		if !sleep(ctx, s.config.PollInterval) {
			return ctx.Err()
		}
	}
	if s.started() {
		return nil
	}
	return errors.Wrapf(ErrEmissionStartTimeout, "after %d polls", s.config.StartPollAttempts)
}

func (s *Session) started() bool {
	return s.sink.IsEmitting() || !s.sink.IsPending()
}

// awaitStart waits while the sink opens a whole chapter. The sink gives up
// on downloads that never produce audio.
func (s *Session) awaitStart(ctx context.Context) bool {
	for s.sink.IsPending() {
		if !sleep(ctx, s.config.PollInterval) {
			return false
		}
	}
	return ctx.Err() == nil
}

// awaitIdle polls until the sink stopped emitting. It returns false when the
// loop was cancelled first.
func (s *Session) awaitIdle(ctx context.Context) bool {
	for {
		if ctx.Err() != nil {
			return false
		}
		if !s.sink.IsEmitting() {
			return ctx.Err() == nil
		}
		if !sleep(ctx, s.config.PollInterval) {
			return false
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
