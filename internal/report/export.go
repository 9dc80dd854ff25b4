package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Zuo-Peng/session-analyzer/internal/parse"
	"github.com/Zuo-Peng/session-analyzer/internal/scan"
)

// TimeLayout is ISO-8601 with millisecond precision and offset.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

const DefaultExportPath = "session_data.json"

type ExportDocument struct {
	ExportTime   string          `json:"export_time" yaml:"export_time"`
	Sessions     []ExportSession `json:"sessions" yaml:"sessions"`
	TodoActivity []ExportTodo    `json:"todo_activity" yaml:"todo_activity"`
}

type ExportSession struct {
	SessionID       string  `json:"session_id" yaml:"session_id"`
	StartTime       string  `json:"start_time" yaml:"start_time"`
	LastUpdate      string  `json:"last_update" yaml:"last_update"`
	DurationSeconds float64 `json:"duration_seconds" yaml:"duration_seconds"`
	FilePath        string  `json:"file_path" yaml:"file_path"`
}

type ExportTodo struct {
	FileName         string `json:"file_name" yaml:"file_name"`
	ModificationTime string `json:"modification_time" yaml:"modification_time"`
	FilePath         string `json:"file_path" yaml:"file_path"`
}

// Counts returns the number of sessions and todo entries in the document.
func (d *ExportDocument) Counts() (sessions, todos int) {
	return len(d.Sessions), len(d.TodoActivity)
}

// Export builds an ExportDocument from every discoverable session and todo file.
func Export(opts Options) (*ExportDocument, error) {
	records, _, err := collectSessions(opts.BaseDir)
	if err != nil {
		return nil, err
	}

	doc := &ExportDocument{
		ExportTime:   opts.now().Format(TimeLayout),
		Sessions:     make([]ExportSession, 0, len(records)),
		TodoActivity: []ExportTodo{},
	}
	for _, rec := range records {
		doc.Sessions = append(doc.Sessions, SessionProjection(rec))
	}

	todos, _ := collectTodos(opts.BaseDir)
	for _, td := range todos {
		doc.TodoActivity = append(doc.TodoActivity, todoProjection(td))
	}

	return doc, nil
}

// SessionProjection is the plain-field export form of a record.
func SessionProjection(rec parse.SessionRecord) ExportSession {
	return ExportSession{
		SessionID:       rec.ID,
		StartTime:       rec.Start.Format(TimeLayout),
		LastUpdate:      rec.LastUpdate.Format(TimeLayout),
		DurationSeconds: rec.Duration.Seconds(),
		FilePath:        rec.Path,
	}
}

func todoProjection(td scan.TodoFile) ExportTodo {
	return ExportTodo{
		FileName:         filepath.Base(td.Path),
		ModificationTime: td.ModTime.Format(TimeLayout),
		FilePath:         td.Path,
	}
}

// Format selects the export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatYAML:
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown format %q (want json or yaml)", s)
	}
}

// Encode serializes v in the given format.
func Encode(v any, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return yaml.Marshal(v)
	default:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
}

// WriteExport writes doc to path.
func WriteExport(path string, doc *ExportDocument, format Format) error {
	data, err := Encode(doc, format)
	if err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

// ParseExportTime parses a timestamp written by Export.
func ParseExportTime(s string) (time.Time, error) {
	return time.Parse(TimeLayout, s)
}
