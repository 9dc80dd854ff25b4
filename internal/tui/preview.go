package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/viewport"

	"github.com/Zuo-Peng/session-analyzer/internal/render"
)

// refreshPreview renders the selected entry into the preview pane, skipping
// the render when nothing visible changed.
func (m *model) refreshPreview() {
	e := m.current()
	if e == nil {
		m.preview.SetContent("")
		m.previewKey = ""
		return
	}
	key := previewCacheKey(e)
	if key == m.previewKey {
		return
	}
	m.preview.SetContent(renderPreview(e, m.previewWidth()))
	m.preview.GotoTop()
	m.previewKey = key
}

func previewCacheKey(e *entry) string {
	return fmt.Sprintf("%d:%t:%t", e.seq, e.pending, e.analysis != nil)
}

func renderPreview(e *entry, width int) string {
	content := render.RenderSession(e.ev.Record, e.analysis, render.Options{Width: width})
	if e.pending {
		content += "\n(analyzing...)\n"
	}
	return content
}

// newViewport creates a new viewport model with the given dimensions.
func newViewport(width, height int) viewport.Model {
	vp := viewport.New(width, height)
	vp.Style = stylePanelBorder
	return vp
}
