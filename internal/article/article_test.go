package article

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aminemaliki7/NEWS/internal/backend"
)

func TestRefOf(t *testing.T) {
	published := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	a := Article{URL: "https://example.com/a", Title: "A"}
	sameURL := Article{URL: "https://example.com/a", Title: "Different title"}
	if RefOf(a, 0) != RefOf(sameURL, 7) {
		t.Error("articles with the same URL should share a ref regardless of position")
	}

	byTitle := Article{Title: "Only a title"}
	if RefOf(byTitle, 1) != RefOf(byTitle, 2) {
		t.Error("title-derived ref should not depend on position")
	}
	if RefOf(byTitle, 1) == RefOf(a, 1) {
		t.Error("different articles share a ref")
	}

	byTime := Article{PublishedAt: published}
	if RefOf(byTime, 3) != RefOf(Article{PublishedAt: published}, 9) {
		t.Error("timestamp-derived ref should not depend on position")
	}

	if got := RefOf(Article{}, 4); got != "#4" {
		t.Errorf("RefOf(empty, 4) = %q, want #4", got)
	}
}

func TestNarrationText(t *testing.T) {
	tests := []struct {
		name string
		a    Article
		want string
		ok   bool
	}{
		{"full content wins", Article{FullContent: "full", Content: "c", Title: "t"}, "full", true},
		{"content", Article{Content: " c ", Description: "d", Title: "t"}, "c", true},
		{"description", Article{Content: "   ", Description: "d", Title: "t"}, "d", true},
		{"title", Article{Title: "t"}, "t", true},
		{"nothing", Article{Content: "\n\t"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.a.NarrationText()
			if got != tt.want || ok != tt.ok {
				t.Errorf("NarrationText() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestNeedsEnrichment(t *testing.T) {
	short := Article{URL: "https://x", Content: "short"}
	if !short.NeedsEnrichment(500) {
		t.Error("short content should need enrichment")
	}
	long := Article{URL: "https://x", Content: strings.Repeat("x", 600)}
	if long.NeedsEnrichment(500) {
		t.Error("long content should not need enrichment")
	}
	if (Article{Content: "short"}).NeedsEnrichment(500) {
		t.Error("articles without URL cannot be enriched")
	}
}

func newClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	b, err := backend.New(backend.Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	return NewClient(b)
}

func TestList(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/news" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("category"); got != "technology" {
			t.Errorf("category = %q", got)
		}
		if got := r.URL.Query().Get("language"); got != "en" {
			t.Errorf("language = %q", got)
		}
		w.Write([]byte(`{"totalArticles":1,"articles":[{"title":"Go 2","url":"https://go.dev","publishedAt":"2025-01-02T03:04:05Z","source":{"name":"Go Blog"}}]}`))
	})

	articles, err := c.List(context.Background(), Query{Category: "technology"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("got %d articles, want 1", len(articles))
	}
	if articles[0].Title != "Go 2" || articles[0].Source.Name != "Go Blog" {
		t.Errorf("article = %+v", articles[0])
	}
	if articles[0].PublishedAt.Year() != 2025 {
		t.Errorf("PublishedAt = %v", articles[0].PublishedAt)
	}
}

func TestListSearchOmitsCategory(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("query") != "golang" || q.Has("category") {
			t.Errorf("query = %v", q)
		}
		w.Write([]byte(`{"articles":[]}`))
	})
	if _, err := c.List(context.Background(), Query{Category: "sports", Search: "golang"}); err != nil {
		t.Fatal(err)
	}
}

func TestListError(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"articles":[],"error":"Unable to load articles at the moment."}`))
	})
	if _, err := c.List(context.Background(), Query{}); err == nil {
		t.Error("expected error for error payload")
	}
}

func TestContent(t *testing.T) {
	long := strings.Repeat("word ", 40)
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr error
	}{
		{"extracted", `{"content":"` + long + `"}`, strings.TrimSpace(long), nil},
		{"placeholder", `{"content":"Failed to extract","error":"boom"}`, "", ErrNoContent},
		{"extraction error", `{"content":"` + long + `","extraction_error":"minimal"}`, "", ErrNoContent},
		{"too short", `{"content":"tiny"}`, "", ErrNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("url") != "https://example.com/a" {
					t.Errorf("url param = %q", r.URL.Query().Get("url"))
				}
				w.Write([]byte(tt.body))
			})
			got, err := c.Content(context.Background(), "https://example.com/a")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("content = %q, want %q", got, tt.want)
			}
		})
	}
}
