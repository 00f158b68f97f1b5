// Package tts talks to the narration service: it turns article text into a
// reference to generated audio, either in a single request or by submitting
// a task and polling it.
package tts

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aminemaliki7/NEWS/internal/backend"
	"github.com/aminemaliki7/NEWS/internal/voice"
	"github.com/charmbracelet/log"
)

const (
	synthesizePath      = "/api/news/summary-audio"
	submitPath          = "/api/news/summary-audio-async"
	taskStatusPathStart = "/api/task-status/"
)

// Default tuning values.
const (
	DefaultAsyncThreshold  = 300
	DefaultPollInterval    = 2 * time.Second
	DefaultMaxPollAttempts = 60
	DefaultSpeed           = 1.0
	DefaultDepth           = 1
)

// Request describes one narration to generate.
type Request struct {
	Text  string
	Title string
	Voice voice.ID
	Speed float64
	Depth int
}

// TaskID identifies an asynchronous generation task.
type TaskID string

// TaskState is the state reported for a task.
type TaskState string

const (
	TaskPending TaskState = "pending"
	TaskSuccess TaskState = "success"
	TaskFailure TaskState = "failure"
)

// TaskStatus is the decoded task status response.
type TaskStatus struct {
	State    TaskState
	Progress int
	AudioRef string
	Error    string
}

// Options tunes a Client.
type Options struct {
	AsyncThreshold  int           // rune count at which the async path is used
	PollInterval    time.Duration // delay before each status request
	MaxPollAttempts int
	Speed           float64
	Depth           int
	Logger          *log.Logger
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		AsyncThreshold:  DefaultAsyncThreshold,
		PollInterval:    DefaultPollInterval,
		MaxPollAttempts: DefaultMaxPollAttempts,
		Speed:           DefaultSpeed,
		Depth:           DefaultDepth,
	}
}

// Client generates narrations through the backend.
type Client struct {
	backend *backend.Client
	opts    Options
	logger  *log.Logger
}

// NewClient creates a Client. Zero option fields take their defaults.
func NewClient(b *backend.Client, opts Options) *Client {
	def := DefaultOptions()
	if opts.AsyncThreshold <= 0 {
		opts.AsyncThreshold = def.AsyncThreshold
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = def.PollInterval
	}
	if opts.MaxPollAttempts <= 0 {
		opts.MaxPollAttempts = def.MaxPollAttempts
	}
	if opts.Speed <= 0 {
		opts.Speed = def.Speed
	}
	if opts.Depth <= 0 {
		opts.Depth = def.Depth
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Client{backend: b, opts: opts, logger: logger}
}

// Options returns the effective options.
func (c *Client) Options() Options {
	return c.opts
}

// UsesAsync reports whether text is long enough for the submit and poll path.
func (c *Client) UsesAsync(text string) bool {
	return utf8.RuneCountInString(text) >= c.opts.AsyncThreshold
}

type synthesizeRequest struct {
	Content string  `json:"content"`
	Title   string  `json:"title"`
	VoiceID string  `json:"voice_id"`
	Speed   float64 `json:"speed"`
	Depth   int     `json:"depth"`
}

type synthesizeResponse struct {
	AudioURL string `json:"audio_url"`
	TaskID   string `json:"task_id"`
	Error    string `json:"error"`
}

func (c *Client) payload(req Request) (synthesizeRequest, error) {
	if strings.TrimSpace(req.Text) == "" {
		return synthesizeRequest{}, ErrEmptyText
	}
	p := synthesizeRequest{
		Content: req.Text,
		Title:   req.Title,
		VoiceID: req.Voice.String(),
		Speed:   req.Speed,
		Depth:   req.Depth,
	}
	if p.VoiceID == "" {
		p.VoiceID = voice.DefaultID.String()
	}
	if p.Speed <= 0 {
		p.Speed = c.opts.Speed
	}
	if p.Depth <= 0 {
		p.Depth = c.opts.Depth
	}
	return p, nil
}

// Synthesize generates audio in a single request and returns its reference.
func (c *Client) Synthesize(ctx context.Context, req Request) (string, error) {
	p, err := c.payload(req)
	if err != nil {
		return "", err
	}

	var resp synthesizeResponse
	if err := c.backend.PostJSON(ctx, synthesizePath, p, &resp); err != nil {
		return "", mapBackendError(ctx, err)
	}
	if resp.Error != "" {
		return "", newError(ErrorCodeGeneration, resp.Error, nil)
	}
	if strings.TrimSpace(resp.AudioURL) == "" {
		return "", newError(ErrorCodeGeneration, "no audio reference in response", nil)
	}
	return resp.AudioURL, nil
}

// Submit starts an asynchronous generation task.
func (c *Client) Submit(ctx context.Context, req Request) (TaskID, error) {
	p, err := c.payload(req)
	if err != nil {
		return "", err
	}

	var resp synthesizeResponse
	if err := c.backend.PostJSON(ctx, submitPath, p, &resp); err != nil {
		return "", mapBackendError(ctx, err)
	}
	if resp.Error != "" {
		return "", newError(ErrorCodeGeneration, resp.Error, nil)
	}
	if resp.TaskID == "" {
		return "", newError(ErrorCodeGeneration, "no task id in response", nil)
	}
	return TaskID(resp.TaskID), nil
}

type statusResponse struct {
	State    string  `json:"state"`
	Progress float64 `json:"progress"`
	Result   *struct {
		AudioURL string `json:"audio_url"`
	} `json:"result"`
	Error string `json:"error"`
}

// Status fetches the state of a task.
func (c *Client) Status(ctx context.Context, id TaskID) (TaskStatus, error) {
	var resp statusResponse
	path := taskStatusPathStart + url.PathEscape(string(id))
	if err := c.backend.GetJSON(ctx, path, nil, &resp); err != nil {
		return TaskStatus{}, mapBackendError(ctx, err)
	}

	st := TaskStatus{
		State:    parseState(resp.State),
		Progress: clampProgress(resp.Progress),
		Error:    resp.Error,
	}
	if resp.Result != nil {
		st.AudioRef = resp.Result.AudioURL
	}
	return st, nil
}

// Generate produces audio for req, choosing the synchronous path for short
// text and submit plus poll for long text. onProgress, if set, receives
// polling progress in percent.
func (c *Client) Generate(ctx context.Context, req Request, onProgress func(int)) (string, error) {
	start := time.Now()
	async := c.UsesAsync(req.Text)
	c.logger.Debug("Generating narration",
		"voice", req.Voice,
		"chars", utf8.RuneCountInString(req.Text),
		"async", async)

	var (
		ref string
		err error
	)
	if async {
		ref, err = c.generateAsync(ctx, req, onProgress)
	} else {
		ref, err = c.Synthesize(ctx, req)
	}
	if err != nil {
		c.logger.Debug("Narration generation failed", "voice", req.Voice, "error", err)
		return "", err
	}

	c.logger.Debug("Narration generated",
		"voice", req.Voice,
		"audio", ref,
		"duration", time.Since(start))
	return ref, nil
}

func (c *Client) generateAsync(ctx context.Context, req Request, onProgress func(int)) (string, error) {
	id, err := c.Submit(ctx, req)
	if err != nil {
		return "", err
	}

	res := c.Poll(ctx, id, onProgress)
	switch res.Outcome {
	case PollSuccess:
		return res.AudioRef, nil
	case PollTimeout:
		return "", newError(ErrorCodeTimeout,
			fmt.Sprintf("task %s did not finish after %d attempts", id, res.Attempts), nil)
	case PollCanceled:
		return "", ctx.Err()
	default:
		return "", newError(ErrorCodeGeneration, res.Reason, nil)
	}
}

func mapBackendError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var se *backend.StatusError
	if errors.As(err, &se) && se.Message != "" {
		return newError(ErrorCodeGeneration, se.Message, nil)
	}
	return newError(ErrorCodeNetwork, "", err)
}

func parseState(s string) TaskState {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "success", "completed", "done":
		return TaskSuccess
	case "failure", "failed", "error":
		return TaskFailure
	default:
		return TaskPending
	}
}

func clampProgress(p float64) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return int(p)
	}
}
