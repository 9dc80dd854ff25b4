package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zuo-Peng/session-analyzer/internal/insight"
	"github.com/Zuo-Peng/session-analyzer/internal/monitor"
	"github.com/Zuo-Peng/session-analyzer/internal/parse"
)

type stubSummarizer struct {
	err error
}

func (s stubSummarizer) Summarize(_ context.Context, rec parse.SessionRecord) (*insight.Insight, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &insight.Insight{Text: "insight for " + rec.ID, Model: "stub"}, nil
}

func event(id string, minutes int) monitor.Event {
	start := time.Date(2025, 9, 1, 9, 0, 0, 0, time.Local)
	last := start.Add(time.Duration(minutes) * time.Minute)
	return monitor.Event{
		Record: parse.SessionRecord{ID: id, Start: start, LastUpdate: last, Duration: last.Sub(start)},
		At:     last,
	}
}

func update(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(model)
	require.True(t, ok)
	return nm, cmd
}

func ready(t *testing.T, opts Options) model {
	t.Helper()
	m := newModel(context.Background(), make(chan monitor.Event), opts)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return m
}

func TestWaitForEvent(t *testing.T) {
	ch := make(chan monitor.Event, 1)
	ch <- event("s1", 1)
	assert.Equal(t, eventMsg{ev: event("s1", 1)}, waitForEvent(ch)())

	close(ch)
	assert.Equal(t, streamClosedMsg{}, waitForEvent(ch)())
}

func TestNewestEventIsSelected(t *testing.T) {
	m := ready(t, Options{})

	m, cmd := update(t, m, eventMsg{ev: event("s1", 1)})
	assert.NotNil(t, cmd)
	m, _ = update(t, m, eventMsg{ev: event("s1", 2)})

	require.Len(t, m.visible(), 2)
	assert.Equal(t, 1, m.current().seq)
	assert.Contains(t, m.preview.View(), "0:02:00")
}

func TestSelectionStaysOnOlderEntry(t *testing.T) {
	m := ready(t, Options{})
	m, _ = update(t, m, eventMsg{ev: event("s1", 1)})
	m, _ = update(t, m, eventMsg{ev: event("s1", 2)})

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyUp})
	require.Equal(t, 0, m.current().seq)

	m, _ = update(t, m, eventMsg{ev: event("s1", 3)})
	assert.Equal(t, 0, m.current().seq)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyHome})
	assert.Equal(t, 2, m.current().seq)
}

func TestFilterBySessionID(t *testing.T) {
	m := ready(t, Options{})
	m, _ = update(t, m, eventMsg{ev: event("alpha", 1)})
	m, _ = update(t, m, eventMsg{ev: event("beta", 2)})

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("ALP")})

	vis := m.visible()
	require.Len(t, vis, 1)
	assert.Equal(t, "alpha", vis[0].ev.Record.ID)
}

func TestEnterSelectsCurrent(t *testing.T) {
	m := ready(t, Options{})

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, m.selected, "nothing to select yet")
	assert.False(t, m.quitting)

	m, _ = update(t, m, eventMsg{ev: event("s9", 5)})
	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, m.selected)
	assert.Equal(t, "s9", m.selected.ID)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestAnalysisFlow(t *testing.T) {
	m := ready(t, Options{Summarizer: stubSummarizer{}})

	m, cmd := update(t, m, eventMsg{ev: event("s1", 1)})
	require.NotNil(t, cmd)
	assert.True(t, m.current().pending)
	assert.Contains(t, m.preview.View(), "(analyzing...)")

	m, _ = update(t, m, analyzeCmd(context.Background(), stubSummarizer{}, 0, event("s1", 1).Record)())
	e := m.current()
	assert.False(t, e.pending)
	require.NotNil(t, e.analysis)
	assert.Equal(t, "insight for s1", e.analysis.Text)
	assert.Contains(t, m.preview.View(), "insight for s1")
}

func TestAnalysisFailureIsShownInline(t *testing.T) {
	s := stubSummarizer{err: errors.New("boom")}
	m := ready(t, Options{Summarizer: s})
	m, _ = update(t, m, eventMsg{ev: event("s1", 1)})

	m, _ = update(t, m, analyzeCmd(context.Background(), s, 0, event("s1", 1).Record)())
	e := m.current()
	require.NotNil(t, e.analysis)
	assert.Equal(t, insight.FallbackText, e.analysis.Text)
	assert.Equal(t, "boom", e.analysis.Error)
}

func TestStreamClosed(t *testing.T) {
	m := ready(t, Options{Target: "/tmp/marker"})
	m, _ = update(t, m, streamClosedMsg{})

	assert.True(t, m.stopped)
	assert.Contains(t, m.View(), "stopped")
	assert.Contains(t, m.View(), "No updates")
}

func TestResumeCommand(t *testing.T) {
	assert.Equal(t, "claude --resume abc-123", resumeCommand("abc-123"))
}
