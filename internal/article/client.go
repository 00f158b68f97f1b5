package article

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aminemaliki7/NEWS/internal/backend"
)

// Categories lists the listing categories the backend understands.
var Categories = []string{
	"general", "world", "nation", "business", "technology",
	"entertainment", "sports", "science", "health",
}

// ErrNoContent is returned when the content endpoint yields nothing usable.
var ErrNoContent = errors.New("no article content")

// minContentLength is the shortest extracted content treated as real text.
// Shorter bodies are placeholders produced when extraction fails.
const minContentLength = 100

// Query selects an article listing.
type Query struct {
	Category string
	Search   string
	Language string
}

func (q Query) values() url.Values {
	v := url.Values{}
	if q.Search != "" {
		v.Set("query", q.Search)
	} else {
		category := q.Category
		if category == "" {
			category = "general"
		}
		v.Set("category", category)
	}
	lang := q.Language
	if lang == "" {
		lang = "en"
	}
	v.Set("language", lang)
	return v
}

// Client fetches articles.
type Client struct {
	backend *backend.Client
}

// NewClient returns a Client using b for transport.
func NewClient(b *backend.Client) *Client {
	return &Client{backend: b}
}

type listResponse struct {
	Articles []Article `json:"articles"`
	Error    string    `json:"error"`
}

// List fetches the articles matching q.
func (c *Client) List(ctx context.Context, q Query) ([]Article, error) {
	var resp listResponse
	if err := c.backend.GetJSON(ctx, "/api/news", q.values(), &resp); err != nil {
		return nil, fmt.Errorf("listing articles: %w", err)
	}
	if len(resp.Articles) == 0 && resp.Error != "" {
		return nil, fmt.Errorf("listing articles: %s", resp.Error)
	}
	return resp.Articles, nil
}

type contentResponse struct {
	Content         string `json:"content"`
	Error           string `json:"error"`
	ExtractionError string `json:"extraction_error"`
}

// Content fetches the extracted full text of the article at articleURL.
func (c *Client) Content(ctx context.Context, articleURL string) (string, error) {
	if articleURL == "" {
		return "", ErrNoContent
	}
	var resp contentResponse
	q := url.Values{"url": {articleURL}}
	if err := c.backend.GetJSON(ctx, "/api/news/content", q, &resp); err != nil {
		return "", fmt.Errorf("fetching article content: %w", err)
	}
	// The endpoint answers 200 with placeholder text when extraction fails.
	if resp.Error != "" || resp.ExtractionError != "" {
		return "", ErrNoContent
	}
	content := strings.TrimSpace(resp.Content)
	if len([]rune(content)) < minContentLength {
		return "", ErrNoContent
	}
	return content, nil
}
