package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	normalDim   = lipgloss.AdaptiveColor{Light: "#A49FA5", Dark: "#777777"}
	gray        = lipgloss.AdaptiveColor{Light: "#909090", Dark: "#626262"}
	midGray     = lipgloss.AdaptiveColor{Light: "#B2B2B2", Dark: "#4A4A4A"}
	darkGray    = lipgloss.AdaptiveColor{Light: "#DDDADA", Dark: "#3C3C3C"}
	brightGray  = lipgloss.AdaptiveColor{Light: "#847A85", Dark: "#979797"}
	green       = lipgloss.Color("#04B575")
	red         = lipgloss.AdaptiveColor{Light: "#FF4672", Dark: "#ED567A"}
	fuchsia     = lipgloss.Color("#EE6FF8")
	yellowGreen = lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#ECFD65"}
	cream       = lipgloss.AdaptiveColor{Light: "#FFFDF5", Dark: "#FFFDF5"}
	blue        = lipgloss.AdaptiveColor{Light: "#0F7BD6", Dark: "#00AAFF"}
	orange      = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FF8800"}

	mintGreen = lipgloss.AdaptiveColor{Light: "#89F0CB", Dark: "#89F0CB"}
	darkGreen = lipgloss.AdaptiveColor{Light: "#1C8760", Dark: "#1C8760"}

	statusBarNoteFg = lipgloss.AdaptiveColor{Light: "#656565", Dark: "#7D7D7D"}
	statusBarBg     = lipgloss.AdaptiveColor{Light: "#E6E6E6", Dark: "#242424"}
)

var (
	logoStyle = lipgloss.NewStyle().
			Foreground(cream).
			Background(fuchsia).
			Bold(true).
			Render

	errorTitleStyle = lipgloss.NewStyle().
			Foreground(cream).
			Background(red).
			Padding(0, 1).
			Render

	dimStyle       = lipgloss.NewStyle().Foreground(normalDim).Render
	grayStyle      = lipgloss.NewStyle().Foreground(gray).Render
	subtleStyle    = lipgloss.NewStyle().Foreground(midGray).Render
	brightStyle    = lipgloss.NewStyle().Foreground(brightGray).Render
	selectedStyle  = lipgloss.NewStyle().Foreground(fuchsia).Bold(true).Render
	activeTabStyle = lipgloss.NewStyle().Foreground(yellowGreen).Background(darkGray).Padding(0, 1).Render
	tabStyle       = lipgloss.NewStyle().Foreground(gray).Padding(0, 1).Render
	noticeStyle    = lipgloss.NewStyle().Foreground(orange).Render
	errorStyle     = lipgloss.NewStyle().Foreground(red).Render

	listenIdleStyle    = lipgloss.NewStyle().Foreground(brightGray).Render
	listenLoadingStyle = lipgloss.NewStyle().Foreground(blue).Render
	listenPlayingStyle = lipgloss.NewStyle().Foreground(green).Bold(true).Render
	listenPausedStyle  = lipgloss.NewStyle().Foreground(orange).Render
	listenWaitingStyle = lipgloss.NewStyle().Foreground(fuchsia).Render

	statusBarNoteStyle = lipgloss.NewStyle().
				Foreground(statusBarNoteFg).
				Background(statusBarBg).
				Render

	statusBarVoiceStyle = lipgloss.NewStyle().
				Foreground(statusBarNoteFg).
				Background(lipgloss.AdaptiveColor{Light: "#DCDCDC", Dark: "#323232"}).
				Render

	statusBarHelpStyle = lipgloss.NewStyle().
				Foreground(statusBarNoteFg).
				Background(lipgloss.AdaptiveColor{Light: "#DCDCDC", Dark: "#323232"}).
				Render

	statusBarMessageStyle = lipgloss.NewStyle().
				Foreground(mintGreen).
				Background(darkGreen).
				Render

	statusBarMessageHelpStyle = lipgloss.NewStyle().
					Foreground(lipgloss.Color("#B6FFE4")).
					Background(green).
					Render

	statusBarErrorStyle = lipgloss.NewStyle().
				Foreground(cream).
				Background(red).
				Render

	helpViewStyle = lipgloss.NewStyle().
			Foreground(statusBarNoteFg).
			Background(lipgloss.AdaptiveColor{Light: "#f2f2f2", Dark: "#1B1B1B"}).
			Render
)

func logoView() string {
	return logoStyle(" News ")
}
