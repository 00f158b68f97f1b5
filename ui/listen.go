package ui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/aminemaliki7/NEWS/internal/narration"
	"github.com/aminemaliki7/NEWS/internal/voice"
)

const (
	eventBufferSize = 64
	progressWidth   = 24
)

var spinnerStyle = lipgloss.NewStyle().Foreground(blue)

// subscribe forwards orchestrator events into a channel the program can
// wait on. Events are dropped when the program falls behind; views read the
// current control state when they render, so only the wake-up is lost.
func subscribe(n Narrator) (chan narration.Event, func()) {
	ch := make(chan narration.Event, eventBufferSize)
	unsubscribe := n.Subscribe(func(e narration.Event) {
		select {
		case ch <- e:
		default:
			log.Debug("dropping narration event", "article", e.Index, "phase", e.Control.Phase)
		}
	})
	return ch, unsubscribe
}

func waitForEvent(ch <-chan narration.Event) tea.Cmd {
	return func() tea.Msg {
		return narrationEventMsg(<-ch)
	}
}

// listen requests narration of the article at index. The orchestrator
// toggles pause when the article already owns playback.
func listen(common *commonModel, index int) tea.Cmd {
	ctx, n, autoPlay := common.ctx, common.narrator(), common.cfg.AutoPlay
	return func() tea.Msg {
		log.Debug("listen", "article", index, "autoplay", autoPlay)
		return narrationDoneMsg{index: index, err: n.RequestNarration(ctx, index, autoPlay)}
	}
}

// changeVoice moves the article at index to the next or previous voice in
// the catalogue.
func changeVoice(ctx context.Context, n Narrator, index int, forward bool) tea.Cmd {
	current := n.Voice(index)
	next := voice.Previous(current)
	if forward {
		next = voice.Next(current)
	}
	return func() tea.Msg {
		log.Debug("change voice", "article", index, "from", current, "to", next)
		return narrationDoneMsg{index: index, err: n.ChangeVoice(ctx, index, next)}
	}
}

// preload fetches the full text of the top articles in the background.
func preload(ctx context.Context, n Narrator) tea.Cmd {
	return func() tea.Msg {
		if got := n.Preload(ctx, narration.DefaultPreloadCount); got > 0 {
			log.Debug("preloaded article content", "count", got)
		}
		return nil
	}
}

func stopAll(n Narrator) tea.Cmd {
	return func() tea.Msg {
		n.StopAll()
		return nil
	}
}

// listenLabel is the text of an article's listen control.
func listenLabel(c narration.ControlState) string {
	switch c.Phase {
	case narration.PhaseLoading:
		if c.Progress > 0 {
			return fmt.Sprintf("Generating %d%%", c.Progress)
		}
		return "Preparing"
	case narration.PhaseAwaitingGesture:
		return "▶ Press space to play"
	case narration.PhasePlaying:
		return "❚❚ Pause"
	case narration.PhasePaused:
		return "▶ Resume"
	default:
		return "▶ Listen"
	}
}

// listenButton renders the listen control with its spinner and progress bar.
func listenButton(common *commonModel, c narration.ControlState) string {
	label := listenLabel(c)
	switch c.Phase {
	case narration.PhaseLoading:
		s := common.spinner.View() + " " + listenLoadingStyle(label)
		if c.Progress > 0 {
			s += " " + common.progress.ViewAs(float64(c.Progress)/100)
		}
		return s
	case narration.PhaseAwaitingGesture:
		return listenWaitingStyle(label)
	case narration.PhasePlaying:
		return listenPlayingStyle(label) + " " + common.progress.ViewAs(float64(c.Progress)/100)
	case narration.PhasePaused:
		return listenPausedStyle(label) + " " + common.progress.ViewAs(float64(c.Progress)/100)
	default:
		return listenIdleStyle(label)
	}
}

// controlNote renders the notice or error attached to a control.
func controlNote(c narration.ControlState) string {
	switch {
	case c.Message == "":
		return ""
	case c.Err != nil:
		return errorStyle(c.Message)
	default:
		return noticeStyle(c.Message)
	}
}

// voiceName renders a voice for display, falling back to the raw identifier
// for voices outside the catalogue.
func voiceName(id voice.ID) string {
	if v, ok := voice.Lookup(id); ok {
		return v.DisplayName()
	}
	return id.String()
}
