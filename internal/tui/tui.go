package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Zuo-Peng/session-analyzer/internal/insight"
	"github.com/Zuo-Peng/session-analyzer/internal/monitor"
	"github.com/Zuo-Peng/session-analyzer/internal/parse"
)

type Options struct {
	Target     string
	Summarizer insight.Summarizer // nil disables per-update analysis
	Out        io.Writer          // where the resume command is reported; nil = stdout
}

// entry is one update event and its analysis, if requested.
type entry struct {
	seq      int
	ev       monitor.Event
	analysis *insight.Analysis
	pending  bool
}

// message types

type eventMsg struct {
	ev monitor.Event
}

type streamClosedMsg struct{}

type analysisMsg struct {
	seq      int
	analysis insight.Analysis
}

// model

type model struct {
	ctx         context.Context
	events      <-chan monitor.Event
	opts        Options
	entries     []*entry // arrival order
	filter      string
	cursor      int // index into visible(), 0 = newest
	listOffset  int
	filterInput textinput.Model
	preview     viewport.Model
	previewKey  string
	width       int
	height      int
	ready       bool
	quitting    bool
	stopped     bool
	selected    *parse.SessionRecord
}

func newModel(ctx context.Context, events <-chan monitor.Event, opts Options) model {
	ti := textinput.New()
	ti.Placeholder = "Filter by session id..."
	ti.Focus()
	ti.Prompt = "> "
	ti.PromptStyle = styleInputPrompt
	ti.TextStyle = styleInput
	ti.CharLimit = 128

	return model{
		ctx:         ctx,
		events:      events,
		opts:        opts,
		filterInput: ti,
		preview:     viewport.New(0, 0),
	}
}

// RunMonitor shows update events as they arrive and blocks until the user
// quits. The caller owns events and closes it when monitoring stops.
// If the user selects an update, its resume command is copied to the clipboard.
func RunMonitor(ctx context.Context, events <-chan monitor.Event, opts Options) error {
	m := newModel(ctx, events, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("tui: %w", err)
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	fm := finalModel.(model)
	if fm.selected != nil {
		copyResumeCommand(out, fm.selected.ID)
	}
	return nil
}

func resumeCommand(sessionID string) string {
	return "claude --resume " + sessionID
}

// copyResumeCommand copies the resume command, printing it instead when no
// clipboard is available.
func copyResumeCommand(w io.Writer, sessionID string) {
	cmd := resumeCommand(sessionID)
	if err := clipboard.WriteAll(cmd); err != nil {
		fmt.Fprintf(w, "%s\n", cmd)
		return
	}
	fmt.Fprintf(w, "Copied to clipboard: %s\n", cmd)
}

func waitForEvent(events <-chan monitor.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg{ev: ev}
	}
}

func analyzeCmd(ctx context.Context, s insight.Summarizer, seq int, rec parse.SessionRecord) tea.Cmd {
	return func() tea.Msg {
		return analysisMsg{seq: seq, analysis: insight.Analyze(ctx, s, rec)}
	}
}

// Init starts listening for events.
func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForEvent(m.events))
}

// Update handles messages.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.preview = newViewport(m.previewWidth(), m.panelHeight())
		m.previewKey = ""
		m.refreshPreview()
		return m, nil

	case eventMsg:
		e := &entry{seq: len(m.entries), ev: msg.ev}
		m.entries = append(m.entries, e)
		// keep the selection on the same entry unless following the newest
		if m.cursor > 0 && m.matches(e) {
			m.cursor++
		}
		cmds = append(cmds, waitForEvent(m.events))
		if m.opts.Summarizer != nil {
			e.pending = true
			cmds = append(cmds, analyzeCmd(m.ctx, m.opts.Summarizer, e.seq, e.ev.Record))
		}
		m.adjustListScroll(m.panelHeight())
		m.refreshPreview()
		return m, tea.Batch(cmds...)

	case streamClosedMsg:
		m.stopped = true
		return m, nil

	case analysisMsg:
		if msg.seq < 0 || msg.seq >= len(m.entries) {
			return m, nil
		}
		e := m.entries[msg.seq]
		a := msg.analysis
		e.analysis = &a
		e.pending = false
		m.refreshPreview()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, keys.Enter):
			if e := m.current(); e != nil {
				rec := e.ev.Record
				m.selected = &rec
				m.quitting = true
				return m, tea.Quit
			}

		case key.Matches(msg, keys.Up):
			if m.cursor < len(m.visible())-1 {
				m.cursor++
				m.adjustListScroll(m.panelHeight())
				m.refreshPreview()
			}
			return m, nil

		case key.Matches(msg, keys.Down):
			if m.cursor > 0 {
				m.cursor--
				m.adjustListScroll(m.panelHeight())
				m.refreshPreview()
			}
			return m, nil

		case key.Matches(msg, keys.Top):
			m.cursor = 0
			m.listOffset = 0
			m.refreshPreview()
			return m, nil

		case key.Matches(msg, keys.PreviewUp):
			m.preview.LineUp(m.panelHeight() / 2)
			return m, nil

		case key.Matches(msg, keys.PreviewDn):
			m.preview.LineDown(m.panelHeight() / 2)
			return m, nil

		case key.Matches(msg, keys.PageUp):
			m.preview.LineUp(m.panelHeight())
			return m, nil

		case key.Matches(msg, keys.PageDown):
			m.preview.LineDown(m.panelHeight())
			return m, nil
		}

		// Pass remaining keys to the filter input
		var tiCmd tea.Cmd
		m.filterInput, tiCmd = m.filterInput.Update(msg)
		cmds = append(cmds, tiCmd)

		if v := m.filterInput.Value(); v != m.filter {
			m.filter = v
			m.cursor = 0
			m.listOffset = 0
			m.refreshPreview()
		}
		return m, tea.Batch(cmds...)

	case tea.MouseMsg:
		n := len(m.visible())
		if !m.ready || n == 0 {
			return m, nil
		}

		region, itemIdx := m.hitTest(msg.X, msg.Y)

		switch {
		case region == regionList && msg.Button == tea.MouseButtonWheelUp:
			if m.listOffset > 0 {
				m.listOffset--
			}
			return m, nil

		case region == regionList && msg.Button == tea.MouseButtonWheelDown:
			visibleItems := m.panelHeight() / linesPerItem
			maxOffset := n - visibleItems
			if maxOffset < 0 {
				maxOffset = 0
			}
			if m.listOffset < maxOffset {
				m.listOffset++
			}
			return m, nil

		case region == regionList && msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionPress:
			if itemIdx >= 0 && itemIdx < n && m.cursor != itemIdx {
				m.cursor = itemIdx
				m.adjustListScroll(m.panelHeight())
				m.refreshPreview()
			}
			return m, nil

		case region == regionPreview && (msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown):
			var vpCmd tea.Cmd
			m.preview, vpCmd = m.preview.Update(msg)
			return m, vpCmd
		}

		return m, nil
	}

	return m, tea.Batch(cmds...)
}

// View renders the full TUI.
func (m model) View() string {
	if m.quitting || !m.ready {
		return ""
	}

	listW := m.listWidth()
	previewW := m.previewWidth()
	panelH := m.panelHeight()

	inputRow := m.filterInput.View()

	listPanel := stylePanelBorder.
		Width(listW).
		Height(panelH).
		Render(m.renderList(listW, panelH))

	m.preview.Width = previewW
	m.preview.Height = panelH
	previewPanel := styleActiveBorder.
		Width(previewW).
		Height(panelH).
		Render(m.preview.View())

	panels := lipgloss.JoinHorizontal(lipgloss.Top, listPanel, previewPanel)

	return lipgloss.JoinVertical(lipgloss.Left, inputRow, panels, m.statusBar())
}

// helper methods

// visible returns the entries passing the filter, newest first.
func (m model) visible() []*entry {
	var out []*entry
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.matches(m.entries[i]) {
			out = append(out, m.entries[i])
		}
	}
	return out
}

func (m model) matches(e *entry) bool {
	if m.filter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(e.ev.Record.ID), strings.ToLower(m.filter))
}

func (m model) current() *entry {
	vis := m.visible()
	if m.cursor < 0 || m.cursor >= len(vis) {
		return nil
	}
	return vis[m.cursor]
}

func (m model) listWidth() int {
	if m.width <= 0 {
		return 40
	}
	// 40% for list, minus border padding
	w := m.width*40/100 - 4
	if w < 20 {
		w = 20
	}
	return w
}

func (m model) previewWidth() int {
	if m.width <= 0 {
		return 60
	}
	// 60% for preview, minus border padding
	w := m.width*60/100 - 4
	if w < 20 {
		w = 20
	}
	return w
}

func (m model) panelHeight() int {
	if m.height <= 0 {
		return 20
	}
	// Subtract input row (1) + status bar (1) + borders (4)
	h := m.height - 6
	if h < 5 {
		h = 5
	}
	return h
}

type mouseRegion int

const (
	regionNone mouseRegion = iota
	regionList
	regionPreview
)

// hitTest maps terminal coordinates to a panel region and list item index.
func (m model) hitTest(x, y int) (mouseRegion, int) {
	pH := m.panelHeight()
	contentYStart := 2 // input row (1) + top border (1)
	contentYEnd := contentYStart + pH - 1

	if y < contentYStart || y > contentYEnd {
		return regionNone, -1
	}
	relY := y - contentYStart

	lw := m.listWidth()
	listBoxRight := lw + 1 // col 0=border, 1..lw=content, lw+1=border

	if x >= 1 && x <= lw {
		return regionList, m.listOffset + (relY / linesPerItem)
	}

	if x > listBoxRight+1 {
		return regionPreview, -1
	}

	return regionNone, -1
}

func (m model) statusBar() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("%d updates", len(m.entries)))
	if m.opts.Target != "" {
		parts = append(parts, "watching "+m.opts.Target)
	}
	parts = append(parts, "up/dn navigate")
	parts = append(parts, "C-u/C-d preview")
	parts = append(parts, "Enter copy resume cmd")
	parts = append(parts, "Esc quit")
	bar := styleStatusBar.Render(strings.Join(parts, " | "))
	if m.stopped {
		bar = styleStatusStopped.Render("stopped") + bar
	}
	return bar
}
