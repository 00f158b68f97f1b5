package playback

import "errors"

var (
	// ErrPlayback indicates the audio resource could not be played.
	ErrPlayback = errors.New("playback error")

	// ErrAutoplayRejected indicates the environment refused to start
	// playback without a user gesture. It is not a failure.
	ErrAutoplayRejected = errors.New("autoplay rejected")

	// ErrNotActive indicates the article does not own the playback session.
	ErrNotActive = errors.New("article is not playing")

	// ErrClosed indicates a handle was used after Close.
	ErrClosed = errors.New("audio handle closed")
)
