package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/olivier-w/sonoscope/internal/analysis"
	"github.com/olivier-w/sonoscope/internal/player"
)

type tickMsg time.Time

// playbackEndedMsg is tagged with the player it came from; messages from a
// replaced player are dropped.
type playbackEndedMsg struct {
	player Playback
}

// analyzedMsg is the outcome of uploading a clip and opening it for playback.
type analyzedMsg struct {
	path    string
	result  *analysis.Result
	player  Playback
	meta    player.Metadata
	err     error
	openErr error
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitDone(p Playback) tea.Cmd {
	return func() tea.Msg {
		<-p.Done()
		return playbackEndedMsg{player: p}
	}
}
