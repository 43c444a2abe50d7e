package playback

import "github.com/cockroachdb/errors"

var (
	// ErrNotInVoice is returned by Start when the requester is not in a voice channel
	ErrNotInVoice = errors.New("not in a voice channel")
	// ErrLookupFailure marks audio provider failures, the unit is skipped
	ErrLookupFailure = errors.New("audio lookup failed")
	// ErrTranslationUnavailable marks missing translation text, never surfaced
	ErrTranslationUnavailable = errors.New("translation unavailable")
	// ErrEmissionStartTimeout marks units the sink never started playing
	ErrEmissionStartTimeout = errors.New("audio did not start in time")
	// ErrInvalidRange is returned for verse ranges with start < 1 or start > end
	ErrInvalidRange = errors.New("invalid range")
	// ErrUnexpectedFailure marks any other start up fault
	ErrUnexpectedFailure = errors.New("unexpected failure")
)

// ValidateRange checks a user supplied verse range. An end of 0 leaves the
// range open, it ends at the last verse the provider knows.
func ValidateRange(start, end int) error {
	if start < 1 || end < 0 || (end != 0 && start > end) {
		return errors.Wrapf(ErrInvalidRange, "ayah %d to %d", start, end)
	}
	return nil
}
