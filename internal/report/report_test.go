package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var now = time.Date(2025, 9, 20, 12, 0, 0, 0, time.Local)

func writeSession(t *testing.T, path, id string, start time.Time, dur time.Duration) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	content := fmt.Sprintf(`{"sessionID":%q,"startTime":%d,"lastUpdate":%d}`,
		id, start.UnixMilli(), start.Add(dur).UnixMilli())
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func writeTodo(t *testing.T, base, name string, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(base, "todos", name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

func TestRecentWindow(t *testing.T) {
	base := t.TempDir()
	recent := filepath.Join(base, "statsig", "statsig.session_id.recent")
	old := filepath.Join(base, "statsig", "statsig.session_id.old")
	writeSession(t, recent, "recent", now.Add(-3*24*time.Hour), time.Hour)
	writeSession(t, old, "old", now.Add(-10*24*time.Hour), time.Hour)

	act, err := Recent(Options{BaseDir: base, Window: 7 * 24 * time.Hour, Now: now})
	require.NoError(t, err)

	require.Len(t, act.Sessions, 1)
	assert.Equal(t, "recent", act.Sessions[0].ID)
	assert.Equal(t, recent, act.Sessions[0].Path)
	assert.Equal(t, time.Hour, act.Sessions[0].Duration)
}

func TestRecentDefaultWindow(t *testing.T) {
	act, err := Recent(Options{BaseDir: t.TempDir(), Now: now})
	require.NoError(t, err)
	assert.Equal(t, DefaultWindow, act.Window)
	assert.Empty(t, act.Sessions)
	assert.False(t, act.HasTodos)
}

func TestRecentSkipsMalformedFiles(t *testing.T) {
	base := t.TempDir()
	good := filepath.Join(base, "statsig", "statsig.session_id.good")
	writeSession(t, good, "good", now.Add(-time.Hour), time.Minute)

	bad := filepath.Join(base, "statsig", "statsig.session_id.bad")
	require.NoError(t, os.WriteFile(bad, []byte(`{"sessionID":"bad","startTime":1}`), 0o644))
	garbage := filepath.Join(base, "statsig", "statsig.session_id.garbage")
	require.NoError(t, os.WriteFile(garbage, []byte(`not json`), 0o644))

	act, err := Recent(Options{BaseDir: base, Now: now})
	require.NoError(t, err)

	require.Len(t, act.Sessions, 1)
	assert.Equal(t, "good", act.Sessions[0].ID)
	assert.Equal(t, 2, act.Skipped)
}

func TestRecentIgnoresSessionShapedFilesWithoutMarkerName(t *testing.T) {
	base := t.TempDir()
	// Valid session content, but the path does not contain "session_id".
	writeSession(t, filepath.Join(base, "projects", "abc.json"), "hidden", now.Add(-time.Hour), time.Minute)
	// Found by the recursive sweep and accepted by name.
	writeSession(t, filepath.Join(base, "cache", "session_id-copy.json"), "named", now.Add(-time.Hour), time.Minute)

	act, err := Recent(Options{BaseDir: base, Now: now})
	require.NoError(t, err)

	require.Len(t, act.Sessions, 1)
	assert.Equal(t, "named", act.Sessions[0].ID)
}

func TestRecentTodos(t *testing.T) {
	base := t.TempDir()
	for i := 0; i < 12; i++ {
		writeTodo(t, base, fmt.Sprintf("todo-%02d.json", i), now.Add(-time.Duration(i+1)*time.Hour))
	}
	writeTodo(t, base, "stale.json", now.Add(-30*24*time.Hour))

	act, err := Recent(Options{BaseDir: base, Now: now})
	require.NoError(t, err)

	assert.True(t, act.HasTodos)
	assert.Equal(t, 12, act.TodoCount)
	require.Len(t, act.Todos, 10)
	assert.Equal(t, "todo-00.json", filepath.Base(act.Todos[0].Path))
	assert.Equal(t, "todo-09.json", filepath.Base(act.Todos[9].Path))
	for i := 1; i < len(act.Todos); i++ {
		assert.True(t, act.Todos[i-1].ModTime.After(act.Todos[i].ModTime))
	}
}

func TestPrintActivity(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "statsig", "statsig.session_id.1")
	writeSession(t, path, "sess-1", now.Add(-2*time.Hour), 90*time.Minute)
	writeTodo(t, base, "a.json", now.Add(-time.Hour))

	act, err := Recent(Options{BaseDir: base, Now: now})
	require.NoError(t, err)

	var buf bytes.Buffer
	PrintActivity(&buf, act)
	out := buf.String()

	assert.Contains(t, out, "Looking for sessions in the last 7 days")
	assert.Contains(t, out, "Session: sess-1")
	assert.Contains(t, out, "  Duration: 1:30:00")
	assert.Contains(t, out, "  File: "+path)
	assert.Contains(t, out, "=== Recent Todo Activity ===")
	assert.Contains(t, out, ": a.json")
	assert.Contains(t, out, "Found 1 todo files modified in the last 7 days")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0:00:00", FormatDuration(0))
	assert.Equal(t, "0:01:05", FormatDuration(65*time.Second))
	assert.Equal(t, "26:00:01", FormatDuration(26*time.Hour+time.Second))
}

func TestExportRoundTrip(t *testing.T) {
	base := t.TempDir()
	writeSession(t, filepath.Join(base, "statsig", "statsig.session_id.a"), "a", now.Add(-40*24*time.Hour), 1500*time.Millisecond)
	writeSession(t, filepath.Join(base, "statsig", "statsig.session_id.b"), "b", now.Add(-time.Hour), 45*time.Minute)
	require.NoError(t, os.WriteFile(filepath.Join(base, "statsig", "statsig.session_id.c"), []byte(`{}`), 0o644))
	writeTodo(t, base, "x.json", now.Add(-90*24*time.Hour))
	writeTodo(t, base, "y.json", now.Add(-time.Minute))

	doc, err := Export(Options{BaseDir: base, Now: now})
	require.NoError(t, err)
	sessions, todos := doc.Counts()
	assert.Equal(t, 2, sessions)
	assert.Equal(t, 2, todos)

	out := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, WriteExport(out, doc, FormatJSON))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var got ExportDocument
	require.NoError(t, json.Unmarshal(data, &got))

	gotSessions, gotTodos := got.Counts()
	assert.Equal(t, sessions, gotSessions)
	assert.Equal(t, todos, gotTodos)

	for _, s := range got.Sessions {
		start, err := ParseExportTime(s.StartTime)
		require.NoError(t, err)
		last, err := ParseExportTime(s.LastUpdate)
		require.NoError(t, err)
		assert.Equal(t, last.Sub(start).Seconds(), s.DurationSeconds, s.SessionID)
	}

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "export_time")
	first := raw["sessions"].([]any)[0].(map[string]any)
	for _, key := range []string{"session_id", "start_time", "last_update", "duration_seconds", "file_path"} {
		assert.Contains(t, first, key)
	}
	todo := raw["todo_activity"].([]any)[0].(map[string]any)
	for _, key := range []string{"file_name", "modification_time", "file_path"} {
		assert.Contains(t, todo, key)
	}
}

func TestExportEmptyBase(t *testing.T) {
	doc, err := Export(Options{BaseDir: filepath.Join(t.TempDir(), "missing"), Now: now})
	require.NoError(t, err)

	data, err := Encode(doc, FormatJSON)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"sessions": []`)
	assert.Contains(t, string(data), `"todo_activity": []`)
}

func TestExportYAML(t *testing.T) {
	base := t.TempDir()
	writeSession(t, filepath.Join(base, "statsig", "statsig.session_id.a"), "a", now.Add(-time.Hour), time.Minute)

	doc, err := Export(Options{BaseDir: base, Now: now})
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "export.yaml")
	require.NoError(t, WriteExport(out, doc, FormatYAML))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var got ExportDocument
	require.NoError(t, yaml.Unmarshal(data, &got))
	require.Len(t, got.Sessions, 1)
	assert.Equal(t, "a", got.Sessions[0].SessionID)
	assert.Equal(t, 60.0, got.Sessions[0].DurationSeconds)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormat("yaml")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}
