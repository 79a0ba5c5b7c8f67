package gui

import (
	"fmt"

	"github.com/hsbatt/hsbatt/pkg/types"
)

// LevelBucket maps a percentage to one of the five tray levels: 0, 25, 50,
// 75 or 100. Anything outside 1..100 is level 0.
func LevelBucket(percentage int) int {
	switch {
	case percentage > 0 && percentage <= 25:
		return 25
	case percentage > 25 && percentage <= 50:
		return 50
	case percentage > 50 && percentage <= 75:
		return 75
	case percentage > 75 && percentage <= 100:
		return 100
	default:
		return 0
	}
}

var levelGlyphs = map[int]string{
	0:   "▯",
	25:  "▂",
	50:  "▄",
	75:  "▆",
	100: "█",
}

// Title is the text shown next to the tray icon.
func Title(s types.Status) string {
	if !s.Connected {
		return "🎧 " + levelGlyphs[0]
	}
	return fmt.Sprintf("🎧 %s %d%%", levelGlyphs[LevelBucket(s.Percentage)], s.Percentage)
}

// EstimateLine is the disabled menu entry under the status line.
func EstimateLine(s types.Status) string {
	switch {
	case !s.Connected:
		return "Estimate: -"
	case s.TimeRemaining == nil:
		return "Estimate: calculating..."
	default:
		return fmt.Sprintf("Estimate: ~%sh (%d samples)", types.FormatHoursMinutes(*s.TimeRemaining), s.Samples)
	}
}
