package voice

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"gopkg.in/hraban/opus.v2"
)

const (
	sampleRate = 48000
	channels   = 2
	// frameSize is 20ms of audio at 48kHz
	frameSize  = 960
	maxPacket  = 4000
	resampling = 4
)

// SampleRate discord expects
var SampleRate = beep.SampleRate(sampleRate)

type frameEncoder interface {
	Encode(pcm []int16, data []byte) (int, error)
}

func newOpusEncoder(bitrate int) (frameEncoder, error) {
	enc, err := opus.NewEncoder(sampleRate, channels, opus.AppVoIP)
	if err != nil {
		return nil, errors.Wrap(err, "could not create opus encoder")
	}
	if bitrate > 0 {
		if err := enc.SetBitrate(bitrate); err != nil {
			return nil, errors.Wrapf(err, "could not set bitrate %d", bitrate)
		}
	}
	if err := enc.SetMaxBandwidth(opus.Fullband); err != nil {
		return nil, errors.Wrap(err, "could not set bandwidth")
	}
	return enc, nil
}

// toPCM converts beep samples to interleaved 16 bit stereo, clipping
// everything outside [-1, 1]
func toPCM(samples [][2]float64, pcm []int16) {
	for i, s := range samples {
		pcm[i*2] = clip(s[0])
		pcm[i*2+1] = clip(s[1])
	}
}

func clip(v float64) int16 {
	switch {
	case v >= 1:
		return 32767
	case v <= -1:
		return -32767
	default:
		return int16(v * 32767)
	}
}

// resampled returns s at the discord sample rate
func resampled(s beep.Streamer, format beep.Format) beep.Streamer {
	if format.SampleRate == SampleRate {
		return s
	}
	return beep.Resample(resampling, format.SampleRate, SampleRate, s)
}

// streamFrames encodes s into opus packets and sends them to out until s is
// drained or ctx is cancelled. The last frame is padded with silence, first
// is called once the first packet was sent.
func streamFrames(ctx context.Context, s beep.Streamer, enc frameEncoder, out chan<- []byte, first func()) (int, error) {
	samples := make([][2]float64, frameSize)
	pcm := make([]int16, frameSize*channels)
	buf := make([]byte, maxPacket)
	frames := 0

	for {
		if ctx.Err() != nil {
			return frames, ctx.Err()
		}

		n, ok := s.Stream(samples)
		if n > 0 {
			toPCM(samples[:n], pcm)
			for i := n * channels; i < len(pcm); i++ {
				pcm[i] = 0
			}

			size, err := enc.Encode(pcm, buf)
			if err != nil {
				return frames, errors.Wrap(err, "could not encode frame")
			}
			packet := make([]byte, size)
			copy(packet, buf[:size])

			select {
			case out <- packet:
				frames++
				if frames == 1 && first != nil {
					first()
				}
			case <-ctx.Done():
				return frames, ctx.Err()
			}
		}

		if !ok || n < frameSize {
			if err := s.Err(); err != nil {
				return frames, errors.Wrap(err, "could not decode audio")
			}
			return frames, nil
		}
	}
}
