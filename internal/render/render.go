package render

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"

	"github.com/Zuo-Peng/session-analyzer/internal/index"
	"github.com/Zuo-Peng/session-analyzer/internal/insight"
	"github.com/Zuo-Peng/session-analyzer/internal/parse"
	"github.com/Zuo-Peng/session-analyzer/internal/report"
)

const (
	colorReset   = "\033[0m"
	colorLabel   = "\033[1;34m" // bold blue
	colorInsight = "\033[1;32m" // bold green
	colorError   = "\033[1;31m" // bold red
	colorDim     = "\033[2m"
	colorHit     = "\033[43m" // yellow background
)

type Options struct {
	Width int // wrap width (0 = no wrap)
}

// indentLines prepends each line of text with the given prefix.
func indentLines(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// wrapLine breaks a single line into multiple lines that fit within maxWidth
// visible columns, correctly skipping ANSI escape sequences when measuring width.
func wrapLine(line string, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{line}
	}

	var result []string
	var cur strings.Builder
	visW := 0

	i := 0
	for i < len(line) {
		// check for ANSI escape sequence: ESC[ ... m
		if i+1 < len(line) && line[i] == '\033' && line[i+1] == '[' {
			j := i + 2
			for j < len(line) && line[j] != 'm' {
				j++
			}
			if j < len(line) {
				j++ // include 'm'
			}
			cur.WriteString(line[i:j])
			i = j
			continue
		}

		r, size := utf8.DecodeRuneInString(line[i:])
		rw := runewidth.RuneWidth(r)

		if visW+rw > maxWidth {
			result = append(result, cur.String())
			cur.Reset()
			visW = 0
		}

		cur.WriteRune(r)
		visW += rw
		i += size
	}

	if cur.Len() > 0 {
		result = append(result, cur.String())
	}

	if len(result) == 0 {
		return []string{""}
	}
	return result
}

type writer struct {
	b     strings.Builder
	width int
}

func (w *writer) line(s string) {
	for _, wl := range wrapLine(s, w.width) {
		w.b.WriteString(wl)
		w.b.WriteString("\n")
	}
}

func (w *writer) field(label, value string) {
	w.line(fmt.Sprintf("%s%-9s>%s %s", colorLabel, label, colorReset, value))
}

func separator() string {
	return colorDim + "--------------------------------------------------" + colorReset
}

// RenderSession renders one record and, when an is non-nil, its analysis.
func RenderSession(rec parse.SessionRecord, an *insight.Analysis, opts Options) string {
	w := &writer{width: opts.Width}

	w.line(fmt.Sprintf("%s--- %s ---%s", colorDim, rec.ID, colorReset))
	w.field("START", report.FormatTime(rec.Start))
	w.field("END", report.FormatTime(rec.LastUpdate))
	w.field("DURATION", report.FormatDuration(rec.Duration))
	if rec.Path != "" {
		w.field("FILE", rec.Path)
	}

	if an == nil {
		return w.b.String()
	}

	w.line(separator())
	header := fmt.Sprintf("%sINSIGHT >%s", colorInsight, colorReset)
	if an.Model != "" {
		header += fmt.Sprintf(" %s%s (%d in / %d out)%s",
			colorDim, an.Model, an.Usage.InputTokens, an.Usage.OutputTokens, colorReset)
	}
	w.line(header)
	for _, tl := range strings.Split(indentLines(an.Text, "  "), "\n") {
		w.line(tl)
	}
	if an.Error != "" {
		w.line(fmt.Sprintf("%sERROR >%s %s", colorError, colorReset, an.Error))
	}
	return w.b.String()
}

// RenderHistory renders the recorded updates of a session, newest marked.
func RenderHistory(db *index.DB, sessionID string, opts Options) (string, error) {
	ups, err := db.Updates(sessionID)
	if err != nil {
		return "", fmt.Errorf("get updates: %w", err)
	}

	w := &writer{width: opts.Width}
	w.line(fmt.Sprintf("%s--- %s ---%s", colorDim, sessionID, colorReset))
	if len(ups) == 0 {
		w.line("(no recorded updates)")
		return w.b.String(), nil
	}

	for i, u := range ups {
		text := fmt.Sprintf("[%s] last update %s, duration %s",
			u.ObservedAt.Format("15:04:05"),
			report.FormatTime(u.LastUpdate),
			report.FormatDuration(u.LastUpdate.Sub(u.Start)))
		if i == len(ups)-1 {
			w.line(fmt.Sprintf("%s>> %s <<%s", colorHit, text, colorReset))
			continue
		}
		w.line(text)
	}
	return w.b.String(), nil
}
