package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/Zuo-Peng/session-analyzer/internal/report"
)

// linesPerItem is the number of terminal lines each update occupies.
const linesPerItem = 2

// renderList renders the left panel: update events, newest first.
func (m model) renderList(width, height int) string {
	vis := m.visible()
	if len(vis) == 0 {
		msg := "Waiting for session updates..."
		if m.stopped {
			msg = "No updates"
		}
		return lipgloss.NewStyle().
			Foreground(colorDim).
			Width(width).
			Height(height).
			Align(lipgloss.Center, lipgloss.Center).
			Render(msg)
	}

	var lines []string
	for i, e := range vis {
		if i < m.listOffset {
			continue
		}
		if len(lines)+linesPerItem > height {
			break
		}
		lines = append(lines, formatEntryLines(e, width, i == m.cursor)...)
	}

	// Pad remaining lines
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}

	return strings.Join(lines, "\n")
}

// formatEntryLines formats a single update as two lines:
//
//	line 1: [>] HH:MM:SS  session id
//	line 2:    duration and analysis state (dimmed)
func formatEntryLines(e *entry, width int, selected bool) []string {
	rec := e.ev.Record

	idMax := width - 2 - 8 - 1 // prefix + time + space
	if idMax < 0 {
		idMax = 0
	}
	id := rec.ID
	if runewidth.StringWidth(id) > idMax {
		id = runewidth.Truncate(id, idMax, "")
	}

	line1 := fmt.Sprintf("%s %s", styleTime.Render(e.ev.At.Format("15:04:05")), id)
	if selected {
		line1 = styleListSelected.Render("> ") + line1
	} else {
		line1 = "  " + line1
	}

	detail := "duration " + report.FormatDuration(rec.Duration)
	var state string
	switch {
	case e.pending:
		state = styleDetail.Render(" analyzing")
	case e.analysis != nil && e.analysis.Error != "":
		state = styleStatusStopped.Render(" analysis failed")
	case e.analysis != nil:
		state = styleAnalyzed.Render(" analyzed")
	}
	line2 := "    " + styleDetail.Render(detail) + state

	return []string{line1, line2}
}

// adjustListScroll keeps the cursor visible within the list viewport.
func (m *model) adjustListScroll(listHeight int) {
	visibleItems := listHeight / linesPerItem
	if visibleItems < 1 {
		visibleItems = 1
	}
	if m.cursor < m.listOffset {
		m.listOffset = m.cursor
	}
	if m.cursor >= m.listOffset+visibleItems {
		m.listOffset = m.cursor - visibleItems + 1
	}
}
