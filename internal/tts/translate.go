package tts

import (
	"context"
	"fmt"
	"strings"

	"github.com/aminemaliki7/NEWS/internal/backend"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

const translatePath = "/api/news/translate"

// Translator translates narration text into another language.
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (string, error)
}

// BackendTranslator uses the backend translation endpoint.
type BackendTranslator struct {
	backend *backend.Client
}

// NewBackendTranslator returns a translator using b.
func NewBackendTranslator(b *backend.Client) *BackendTranslator {
	return &BackendTranslator{backend: b}
}

type translateRequest struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"target_language"`
}

type translateResponse struct {
	TranslatedText string `json:"translated_text"`
	Error          string `json:"error"`
}

// Translate implements Translator.
func (t *BackendTranslator) Translate(ctx context.Context, text, targetLang string) (string, error) {
	var resp translateResponse
	req := translateRequest{Text: text, TargetLanguage: targetLang}
	if err := t.backend.PostJSON(ctx, translatePath, req, &resp); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", newError(ErrorCodeTranslation, "", err)
	}
	out := strings.TrimSpace(resp.TranslatedText)
	if out == "" {
		msg := resp.Error
		if msg == "" {
			msg = "empty translation"
		}
		return "", newError(ErrorCodeTranslation, msg, nil)
	}
	return out, nil
}

// OpenAIConfig configures an OpenAITranslator.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string // optional, for compatible endpoints
	Temperature float32
}

// chatCompleter is the subset of the OpenAI client used for translation.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAITranslator translates with a chat completion model.
type OpenAITranslator struct {
	client      chatCompleter
	model       string
	temperature float32
}

// NewOpenAITranslator returns a translator backed by the OpenAI API.
func NewOpenAITranslator(cfg OpenAIConfig) (*OpenAITranslator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAITranslator{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		temperature: cfg.Temperature,
	}, nil
}

func translationPrompt(targetLang string) string {
	name := targetLang
	if tag, err := language.Parse(targetLang); err == nil {
		if n := display.English.Languages().Name(tag); n != "" {
			name = n
		}
	}
	return fmt.Sprintf("Translate the following English text to %s without adding any extra information, "+
		"commentary or formatting. Reply with the translation only.", name)
}

// Translate implements Translator.
func (t *OpenAITranslator) Translate(ctx context.Context, text, targetLang string) (string, error) {
	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       t.model,
		Temperature: t.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: translationPrompt(targetLang)},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", newError(ErrorCodeTranslation, "", err)
	}
	if len(resp.Choices) == 0 {
		return "", newError(ErrorCodeTranslation, "no choices in completion", nil)
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", newError(ErrorCodeTranslation, "empty translation", nil)
	}
	return out, nil
}
