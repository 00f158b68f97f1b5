package narration

import (
	"context"
	"errors"
	"fmt"

	"github.com/aminemaliki7/NEWS/internal/playback"
	"github.com/aminemaliki7/NEWS/internal/tts"
	"github.com/aminemaliki7/NEWS/internal/voice"
)

var (
	// ErrNoUsableText indicates the article has nothing to narrate.
	ErrNoUsableText = errors.New("no usable text")

	// ErrSuperseded indicates a newer request replaced this one before it
	// completed. The result was discarded.
	ErrSuperseded = errors.New("request superseded")

	// ErrNoSuchArticle indicates an index outside the current article list.
	ErrNoSuchArticle = errors.New("no such article")
)

// The rest of the failure taxonomy is defined where it originates.
var (
	ErrTranslationFailed = tts.ErrTranslationFailed
	ErrGenerationFailed  = tts.ErrGenerationFailed
	ErrNetwork           = tts.ErrNetwork
	ErrTimeout           = tts.ErrTimeout
	ErrPlayback          = playback.ErrPlayback
	ErrAutoplayRejected  = playback.ErrAutoplayRejected
)

// Error records which operation failed for which article and voice.
type Error struct {
	Op      string
	Article int
	Voice   voice.ID
	Err     error
}

func (e *Error) Error() string {
	if e.Voice != "" {
		return fmt.Sprintf("%s article %d (%s): %v", e.Op, e.Article, e.Voice, e.Err)
	}
	return fmt.Sprintf("%s article %d: %v", e.Op, e.Article, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage converts err to text suitable for showing next to the
// article. It returns "" for errors the user does not need to see.
func UserMessage(err error) string {
	var ttsErr *tts.Error
	switch {
	case err == nil, errors.Is(err, ErrSuperseded), errors.Is(err, context.Canceled):
		return ""
	case errors.Is(err, ErrNoUsableText):
		return "No content available to listen to."
	case errors.Is(err, ErrAutoplayRejected):
		return "Press play to start listening."
	case errors.Is(err, ErrTimeout):
		return "Audio generation is taking too long. Please try again."
	case errors.Is(err, ErrTranslationFailed):
		return "Translation unavailable, reading the original text."
	case errors.Is(err, ErrNetwork):
		return "Network error. Check your connection and try again."
	case errors.As(err, &ttsErr) && ttsErr.Message != "":
		return "Could not generate audio: " + ttsErr.Message
	case errors.Is(err, ErrGenerationFailed):
		return "Could not generate audio. Please try again."
	case errors.Is(err, ErrPlayback):
		return "Could not play audio."
	case errors.Is(err, ErrNoSuchArticle):
		return "That article is no longer listed."
	default:
		return "Something went wrong. Please try again."
	}
}

// IsRecoverable reports whether trying again may succeed.
func IsRecoverable(err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrNoUsableText), errors.Is(err, ErrNoSuchArticle):
		return false
	default:
		return true
	}
}
