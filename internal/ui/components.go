package ui

import (
	"strings"

	"github.com/olivier-w/sonoscope/internal/tracker"
	"github.com/olivier-w/sonoscope/internal/util"
)

func renderProgressBar(elapsed, total float64, width int) string {
	if width < 10 {
		width = 10
	}
	barWidth := width - 2

	var ratio float64
	if total > 0 {
		ratio = elapsed / total
	}
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}

	filled := int(ratio * float64(barWidth))
	return strings.Repeat("━", filled) + strings.Repeat("─", barWidth-filled)
}

// statusText describes the tracker state together with the player's pause flag.
func statusText(state tracker.State, paused, ended bool) (icon, text string) {
	switch {
	case state == tracker.Idle:
		return "·", "no clip"
	case ended:
		return "■", "ended"
	case state == tracker.Ready:
		return "■", "ready"
	case paused:
		return "❚❚", "paused"
	}
	return "▶", "playing"
}

// frequencyAxis labels the top and bottom rows of the spectrogram panel.
func frequencyAxis(minFreq, maxFreq float64) (top, bottom string) {
	return util.FormatFrequency(maxFreq), util.FormatFrequency(minFreq)
}
