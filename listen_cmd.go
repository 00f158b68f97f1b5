package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/aminemaliki7/NEWS/internal/article"
	"github.com/aminemaliki7/NEWS/internal/config"
	"github.com/aminemaliki7/NEWS/internal/narration"
	"github.com/aminemaliki7/NEWS/internal/voice"
)

var (
	listenSearch string
	listenList   bool

	listenCmd = &cobra.Command{
		Use:   "listen [INDEX]",
		Short: "Narrate an article without the reader",
		Long: paragraph(fmt.Sprintf("\n%s to an article from the current listing and wait for it to finish. Articles are numbered from 0; use --list to see them.",
			keyword("Listen"))),
		Example: paragraph("newsreader listen --list\nnewsreader listen 3 --category sports\nnewsreader listen --search \"heat wave\" --voice fr-FR-DeniseNeural"),
		Args:    cobra.MaximumNArgs(1),
		RunE:    runListen,
	}
)

func init() {
	listenCmd.Flags().StringVar(&listenSearch, "search", "", "search the news instead of browsing a category")
	listenCmd.Flags().BoolVarP(&listenList, "list", "l", false, "print the listing instead of narrating")
}

func runListen(cmd *cobra.Command, args []string) error {
	index := 0
	if len(args) == 1 {
		i, err := strconv.Atoi(args[0])
		if err != nil || i < 0 {
			return fmt.Errorf("%q is not an article number", args[0])
		}
		index = i
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	// Nobody can press play here.
	c := cfg
	c.RequireGesture = false

	a, err := newApp(c, config.NewPreferences(viper.GetViper(), configFile))
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	q := article.Query{Category: c.Category, Search: listenSearch, Language: c.Language}
	articles, err := a.articles.List(ctx, q)
	if err != nil {
		return fmt.Errorf("unable to load articles: %w", err)
	}

	out := cmd.OutOrStdout()
	if listenList {
		printListing(out, articles)
		return nil
	}
	if len(articles) == 0 {
		return errors.New("no articles found")
	}
	if index >= len(articles) {
		return fmt.Errorf("there are only %d articles, numbered 0 to %d", len(articles), len(articles)-1)
	}

	a.narrator.SetArticles(articles)
	watcher := newListenWatcher(index, os.Stderr)
	unsubscribe := a.narrator.Subscribe(watcher.observe)
	defer unsubscribe()

	fmt.Fprintf(out, "%s %s\n", keyword(" ▶ "), articles[index].Title)
	fmt.Fprintln(out, dimStyle("  "+voiceLabel(a.narrator.Voice(index))))

	if err := a.narrator.RequestNarration(ctx, index, true); err != nil {
		return listenError(err)
	}

	select {
	case <-ctx.Done():
		a.narrator.StopAll()
		watcher.finish()
		return nil
	case final := <-watcher.done:
		watcher.finish()
		if final.Err != nil {
			return listenError(final.Err)
		}
		log.Debug("Narration finished", "article", index, "stats", a.narrator.Stats())
		return nil
	}
}

func listenError(err error) error {
	if msg := narration.UserMessage(err); msg != "" {
		log.Debug("Narration failed", "error", err)
		return errors.New(msg)
	}
	return err
}

func voiceLabel(id voice.ID) string {
	if v, ok := voice.Lookup(id); ok {
		return v.DisplayName()
	}
	return id.String()
}

func printListing(w io.Writer, articles []article.Article) {
	for i, a := range articles {
		var meta []string
		if a.Source.Name != "" {
			meta = append(meta, a.Source.Name)
		}
		if !a.PublishedAt.IsZero() {
			meta = append(meta, humanize.Time(a.PublishedAt))
		}
		fmt.Fprintf(w, "%3d  %s\n", i, a.Title)
		if len(meta) > 0 {
			fmt.Fprintf(w, "     %s\n", dimStyle(strings.Join(meta, " • ")))
		}
	}
}

// listenWatcher follows one article's control until playback ends.
type listenWatcher struct {
	index int
	w     io.Writer
	tty   bool
	bar   progress.Model
	done  chan narration.ControlState

	mu      sync.Mutex
	started bool
	ended   bool
	drawn   bool
}

func newListenWatcher(index int, w *os.File) *listenWatcher {
	return &listenWatcher{
		index: index,
		w:     w,
		tty:   term.IsTerminal(int(w.Fd())),
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(40),
		),
		done: make(chan narration.ControlState, 1),
	}
}

func (lw *listenWatcher) observe(e narration.Event) {
	if e.Index != lw.index {
		return
	}
	lw.mu.Lock()
	defer lw.mu.Unlock()
	if lw.ended {
		return
	}

	c := e.Control
	switch c.Phase {
	case narration.PhaseLoading:
		lw.draw(fmt.Sprintf("Generating %3d%%", c.Progress))
	case narration.PhasePlaying, narration.PhasePaused:
		lw.started = true
		lw.draw(lw.bar.ViewAs(float64(c.Progress) / 100))
	case narration.PhaseIdle:
		if !lw.started && c.Err == nil {
			return
		}
		lw.ended = true
		lw.done <- c
	}
}

// draw rewrites the status line. Only terminals get one.
func (lw *listenWatcher) draw(s string) {
	if !lw.tty {
		return
	}
	lw.drawn = true
	fmt.Fprintf(lw.w, "\r\x1b[2K  %s", s)
}

func (lw *listenWatcher) finish() {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	lw.ended = true
	if lw.drawn {
		fmt.Fprintln(lw.w)
	}
}
