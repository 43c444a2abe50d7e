// Package playback runs the per guild recitation loop: it walks a queue of
// chapters or verses, resolves them to audio URLs and paces them into a
// voice sink.
package playback

// State of a session
type State int

const (
	StateIdle      State = iota // nothing queued
	StateStarting               // joining voice and dispatching the loop
	StateStreaming              // loop is running
	StateStopped                // cancelled by stop or supersede
	StateExhausted              // queue ran out
	StateFaulted                // start up failed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateStreaming:
		return "streaming"
	case StateStopped:
		return "stopped"
	case StateExhausted:
		return "exhausted"
	case StateFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// Terminal reports whether a loop ends in this state
func (s State) Terminal() bool {
	return s == StateStopped || s == StateExhausted || s == StateFaulted
}

// Mode decides which units the queue produces
type Mode int

const (
	ModeSingleChapter  Mode = iota // one whole chapter
	ModeFullCollection             // chapters 1..114 back to back
	ModeVerseRange                 // verse by verse inside one chapter
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeSingleChapter:
		return "single chapter"
	case ModeFullCollection:
		return "full collection"
	case ModeVerseRange:
		return "verse range"
	default:
		return "unknown"
	}
}
