// Package article models news articles and fetches them from the backend.
package article

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// Source is the publisher of an article.
type Source struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Article is a news article as returned by the news listing endpoint.
type Article struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Content     string    `json:"content"`
	FullContent string    `json:"full_content,omitempty"`
	URL         string    `json:"url"`
	Image       string    `json:"image"`
	PublishedAt time.Time `json:"publishedAt"`
	Source      Source    `json:"source"`
}

// Ref is a stable identity for an article within a listing. It survives
// re-ordering of the list as long as the article has a URL, title or
// publication time.
type Ref string

// RefOf derives the reference for a, falling back to its position in the
// list when nothing else identifies it.
func RefOf(a Article, index int) Ref {
	var seed string
	switch {
	case strings.TrimSpace(a.URL) != "":
		seed = "url:" + strings.TrimSpace(a.URL)
	case strings.TrimSpace(a.Title) != "":
		seed = "title:" + strings.TrimSpace(a.Title)
	case !a.PublishedAt.IsZero():
		seed = "published:" + a.PublishedAt.UTC().Format(time.RFC3339Nano)
	default:
		return Ref("#" + strconv.Itoa(index))
	}
	sum := sha256.Sum256([]byte(seed))
	return Ref(hex.EncodeToString(sum[:12]))
}

// Short returns an abbreviated form for logs.
func (r Ref) Short() string {
	if len(r) > 8 {
		return string(r[:8])
	}
	return string(r)
}

// NarrationText returns the best text to narrate: the full content, then
// the content, then the description, then the title. The second result is
// false when none of them has any non-whitespace text.
func (a Article) NarrationText() (string, bool) {
	for _, s := range []string{a.FullContent, a.Content, a.Description, a.Title} {
		if s = strings.TrimSpace(s); s != "" {
			return s, true
		}
	}
	return "", false
}

// HasText reports whether the article carries anything narratable.
func (a Article) HasText() bool {
	_, ok := a.NarrationText()
	return ok
}

// NeedsEnrichment reports whether the article's content is short enough that
// fetching the full text is worthwhile.
func (a Article) NeedsEnrichment(threshold int) bool {
	if strings.TrimSpace(a.URL) == "" || strings.TrimSpace(a.FullContent) != "" {
		return false
	}
	return len([]rune(strings.TrimSpace(a.Content))) <= threshold
}
