package ui

import tea "github.com/charmbracelet/bubbletea"

func isQuit(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return true
	}
	return false
}

func helpText(loaded, hasQueue bool) string {
	s := "o open  q quit"
	if loaded {
		s = "space play/pause  r replay  " + s
	}
	if hasQueue {
		s = "n/p clip  " + s
	}
	return s
}
