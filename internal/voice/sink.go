// Package voice plays remote MP3 files into a discord voice channel.
package voice

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	log "github.com/sirupsen/logrus"
)

// ErrNotConnected is returned by Submit before Connect
var ErrNotConnected = errors.New("not connected to a voice channel")

const (
	// startTimeout bounds how long a submitted url may take to produce its first frame
	startTimeout = 30 * time.Second
	// headerTimeout bounds how long the audio host may take to answer
	headerTimeout = 15 * time.Second
)

// Joiner opens voice connections, *discordgo.Session implements it
type Joiner interface {
	ChannelVoiceJoin(gID, cID string, mute, deaf bool) (*discordgo.VoiceConnection, error)
}

type decodeFunc func(ctx context.Context, url string) (beep.StreamSeekCloser, beep.Format, error)

// Sink is the voice connection of one guild. It plays one URL at a time.
type Sink struct {
	joiner       Joiner
	guildID      string
	bitrate      int
	decode       decodeFunc
	newEncoder   func(bitrate int) (frameEncoder, error)
	startTimeout time.Duration

	mu       sync.Mutex
	vc       *discordgo.VoiceConnection
	channel  string
	out      chan<- []byte
	pending  bool
	emitting bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewSink creates a disconnected sink for guildID
func NewSink(joiner Joiner, guildID string, bitrate int, client *http.Client) *Sink {
	if client == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.ResponseHeaderTimeout = headerTimeout
		client = &http.Client{Transport: transport}
	}
	return &Sink{
		joiner:       joiner,
		guildID:      guildID,
		bitrate:      bitrate,
		decode:       httpDecoder(client),
		newEncoder:   newOpusEncoder,
		startTimeout: startTimeout,
	}
}

func httpDecoder(client *http.Client) decodeFunc {
	return func(ctx context.Context, url string) (beep.StreamSeekCloser, beep.Format, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, beep.Format{}, errors.Wrap(err, "failed to create request")
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, beep.Format{}, errors.Wrap(err, "failed to fetch audio")
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, beep.Format{}, errors.Newf("audio download returned status %d", resp.StatusCode)
		}
		streamer, format, err := mp3.Decode(resp.Body)
		if err != nil {
			resp.Body.Close()
			return nil, beep.Format{}, errors.Wrap(err, "failed to decode mp3")
		}
		return streamer, format, nil
	}
}

// Connect joins channelID
func (s *Sink) Connect(ctx context.Context, channelID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	vc, err := s.joiner.ChannelVoiceJoin(s.guildID, channelID, false, true)
	if err != nil {
		return errors.Wrap(err, "could not join voice channel")
	}

	s.mu.Lock()
	s.vc = vc
	s.out = vc.OpusSend
	s.channel = channelID
	s.mu.Unlock()

	log.WithFields(log.Fields{
		"guild":   s.guildID,
		"channel": channelID,
	}).Debug("joined voice")
	return nil
}

// Relocate moves the connection to channelID
func (s *Sink) Relocate(ctx context.Context, channelID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	vc := s.vc
	s.mu.Unlock()
	if vc == nil {
		return ErrNotConnected
	}

	if err := vc.ChangeChannel(channelID, false, true); err != nil {
		return errors.Wrap(err, "could not change voice channel")
	}
	// give the voice websocket a moment before sending again
	time.Sleep(125 * time.Millisecond)

	s.mu.Lock()
	s.channel = channelID
	s.mu.Unlock()
	return nil
}

// Disconnect halts playback and leaves voice
func (s *Sink) Disconnect(_ context.Context) error {
	s.Halt()

	s.mu.Lock()
	vc := s.vc
	s.vc, s.out, s.channel = nil, nil, ""
	s.mu.Unlock()

	if vc == nil {
		return nil
	}
	if err := vc.Disconnect(); err != nil {
		return errors.Wrap(err, "could not disconnect voice connection")
	}
	log.WithField("guild", s.guildID).Debug("left voice")
	return nil
}

// IsConnected reports whether a voice connection is open
func (s *Sink) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out != nil
}

// ChannelID of the connected channel, empty if disconnected
func (s *Sink) ChannelID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channel
}

// IsPending reports a submitted url that did not produce a frame yet
func (s *Sink) IsPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// IsEmitting reports whether audio is being sent
func (s *Sink) IsEmitting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emitting
}

// Submit stops the current audio and starts streaming url. The sink stays
// pending until the first frame was sent, and gives up after startTimeout.
func (s *Sink) Submit(url string) error {
	s.Halt()

	s.mu.Lock()
	if s.out == nil {
		s.mu.Unlock()
		return ErrNotConnected
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel, s.done, s.pending, s.emitting = cancel, done, true, false
	out, vc := s.out, s.vc
	s.mu.Unlock()

	go s.stream(ctx, cancel, done, url, out, vc)
	return nil
}

// Halt stops the current audio and waits until nothing is sent anymore
func (s *Sink) Halt() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done, s.pending, s.emitting = nil, nil, false, false
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Sink) stream(ctx context.Context, cancel context.CancelFunc, done chan struct{}, url string, out chan<- []byte, vc *discordgo.VoiceConnection) {
	defer close(done)
	defer func() {
		s.mu.Lock()
		if s.done == done {
			s.cancel()
			s.cancel, s.done, s.pending, s.emitting = nil, nil, false, false
		}
		s.mu.Unlock()
	}()

	logger := log.WithFields(log.Fields{
		"guild": s.guildID,
		"url":   url,
	})
	started := time.Now()

	watchdog := time.AfterFunc(s.startTimeout, func() {
		s.mu.Lock()
		stuck := s.done == done && s.pending
		s.mu.Unlock()
		if stuck {
			logger.WithField("timeout", s.startTimeout).Warning("audio did not start, giving up")
			cancel()
		}
	})
	defer watchdog.Stop()
	firstFrame := func() {
		watchdog.Stop()
		s.mu.Lock()
		if s.done == done {
			s.pending, s.emitting = false, true
		}
		s.mu.Unlock()
	}

	streamer, format, err := s.decode(ctx, url)
	if err != nil {
		if ctx.Err() == nil {
			logger.WithError(err).Warning("could not open audio")
		}
		return
	}
	defer streamer.Close()

	enc, err := s.newEncoder(s.bitrate)
	if err != nil {
		logger.WithError(err).Error("could not create encoder")
		return
	}

	if vc != nil {
		if err := vc.Speaking(true); err != nil {
			logger.WithError(err).Error("error setting speaking to true")
		}
		defer func() {
			if err := vc.Speaking(false); err != nil {
				logger.WithError(err).Error("error setting speaking to false")
			}
		}()
	}

	frames, err := streamFrames(ctx, resampled(streamer, format), enc, out, firstFrame)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Warning("stream ended early")
	}
	logger.WithFields(log.Fields{
		"frames":   frames,
		"duration": fmt.Sprint(time.Since(started).Round(time.Second)),
	}).Debug("stream finished")
}
