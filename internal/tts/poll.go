package tts

import (
	"context"
	"time"
)

// PollOutcome is how a polling run ended.
type PollOutcome int

const (
	PollSuccess PollOutcome = iota
	PollFailure
	PollTimeout
	PollCanceled
)

func (o PollOutcome) String() string {
	switch o {
	case PollSuccess:
		return "success"
	case PollFailure:
		return "failure"
	case PollTimeout:
		return "timeout"
	case PollCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// PollResult is the result of Poll.
type PollResult struct {
	Outcome  PollOutcome
	AudioRef string // set on success
	Reason   string // set on failure
	Attempts int
}

// Poll waits for task id to reach a terminal state. It waits the poll
// interval before each status request and gives up after the configured
// number of attempts. A status request that fails still uses up an attempt.
func (c *Client) Poll(ctx context.Context, id TaskID, onProgress func(int)) PollResult {
	timer := time.NewTimer(c.opts.PollInterval)
	defer timer.Stop()

	for attempt := 1; attempt <= c.opts.MaxPollAttempts; attempt++ {
		if attempt > 1 {
			timer.Reset(c.opts.PollInterval)
		}
		select {
		case <-ctx.Done():
			return PollResult{Outcome: PollCanceled, Reason: ctx.Err().Error(), Attempts: attempt - 1}
		case <-timer.C:
		}

		st, err := c.Status(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return PollResult{Outcome: PollCanceled, Reason: ctx.Err().Error(), Attempts: attempt}
			}
			c.logger.Debug("Task status request failed", "task", id, "attempt", attempt, "error", err)
			continue
		}

		switch st.State {
		case TaskSuccess:
			if st.AudioRef == "" {
				return PollResult{Outcome: PollFailure, Reason: "task finished without an audio reference", Attempts: attempt}
			}
			if onProgress != nil {
				onProgress(100)
			}
			return PollResult{Outcome: PollSuccess, AudioRef: st.AudioRef, Attempts: attempt}
		case TaskFailure:
			reason := st.Error
			if reason == "" {
				reason = "task failed"
			}
			return PollResult{Outcome: PollFailure, Reason: reason, Attempts: attempt}
		default:
			if onProgress != nil {
				onProgress(st.Progress)
			}
		}
	}

	return PollResult{Outcome: PollTimeout, Attempts: c.opts.MaxPollAttempts}
}
