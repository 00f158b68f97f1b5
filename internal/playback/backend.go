package playback

import "time"

// Listener receives events about a loaded audio resource.
type Listener interface {
	// OnReady is called once the audio can be played.
	OnReady(duration time.Duration)
	// OnProgress is called periodically while playing.
	OnProgress(position, duration time.Duration)
	// OnEnded is called when playback reaches the end.
	OnEnded()
	// OnError is called when the audio cannot be loaded or played.
	OnError(err error)
}

// Handle controls one loaded audio resource.
type Handle interface {
	// Play starts or resumes playback. userGesture is false when playback
	// is started automatically; an environment may refuse that with
	// ErrAutoplayRejected.
	Play(userGesture bool) error
	Pause() error
	// Close stops playback, rewinds and releases the resource.
	Close() error
}

// Backend loads audio resources.
//
// Load must return without waiting for the audio: readiness is reported
// through the Listener. Implementations must not call the Listener from
// within Load, Play, Pause or Close.
type Backend interface {
	Load(ref string, l Listener) (Handle, error)
}
