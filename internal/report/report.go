package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/Zuo-Peng/session-analyzer/internal/logging"
	"github.com/Zuo-Peng/session-analyzer/internal/parse"
	"github.com/Zuo-Peng/session-analyzer/internal/scan"
)

const (
	DefaultWindow = 7 * 24 * time.Hour
	maxTodos      = 10
)

type Options struct {
	BaseDir string
	Window  time.Duration // 0 = DefaultWindow; ignored by Export
	Now     time.Time     // zero = time.Now()
}

func (o Options) now() time.Time {
	if o.Now.IsZero() {
		return time.Now()
	}
	return o.Now
}

// Activity is the result of a recent-session report.
type Activity struct {
	Window    time.Duration
	Sessions  []parse.SessionRecord // discovery order
	Todos     []scan.TodoFile       // newest first, at most 10
	TodoCount int                   // all todos inside the window
	HasTodos  bool                  // the todos directory exists
	Skipped   int
}

// Recent collects sessions started inside the window and recently modified todo files.
func Recent(opts Options) (*Activity, error) {
	window := opts.Window
	if window <= 0 {
		window = DefaultWindow
	}
	cutoff := opts.now().Add(-window)

	records, skipped, err := collectSessions(opts.BaseDir)
	if err != nil {
		return nil, err
	}

	act := &Activity{Window: window, Skipped: skipped}
	for _, rec := range records {
		if rec.Start.After(cutoff) {
			act.Sessions = append(act.Sessions, rec)
		}
	}

	todos, hasTodos := collectTodos(opts.BaseDir)
	act.HasTodos = hasTodos

	var recent []scan.TodoFile
	for _, td := range todos {
		if td.ModTime.After(cutoff) {
			recent = append(recent, td)
		}
	}
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].ModTime.After(recent[j].ModTime)
	})
	act.TodoCount = len(recent)
	if len(recent) > maxTodos {
		recent = recent[:maxTodos]
	}
	act.Todos = recent

	return act, nil
}

// collectSessions locates and parses session candidates, skipping failures.
func collectSessions(baseDir string) ([]parse.SessionRecord, int, error) {
	files, err := scan.Locate(baseDir)
	if err != nil {
		return nil, 0, fmt.Errorf("locate: %w", err)
	}

	log := logging.NewLogger("report")
	var records []parse.SessionRecord
	skipped := 0
	for _, path := range files {
		if !scan.IsSessionCandidate(path) {
			continue
		}
		rec, err := parse.ParseSession(path)
		if err != nil {
			skipped++
			log.Warnf("skip %v", err)
			continue
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}

func collectTodos(baseDir string) ([]scan.TodoFile, bool) {
	if info, err := os.Stat(filepath.Join(baseDir, scan.TodosDir)); err != nil || !info.IsDir() {
		return nil, false
	}
	todos, err := scan.Todos(baseDir)
	if err != nil {
		logging.NewLogger("report").Warn(err.Error())
		return nil, true
	}
	return todos, true
}

// PrintActivity writes the human-readable report.
func PrintActivity(w io.Writer, act *Activity) {
	days := int(act.Window / (24 * time.Hour))

	fmt.Fprintf(w, "=== Claude Session Analysis ===\n\n")
	fmt.Fprintf(w, "Looking for sessions in the last %d days...\n\n", days)

	for _, rec := range act.Sessions {
		fmt.Fprintf(w, "Session: %s\n", rec.ID)
		fmt.Fprintf(w, "  Start: %s\n", FormatTime(rec.Start))
		fmt.Fprintf(w, "  End: %s\n", FormatTime(rec.LastUpdate))
		fmt.Fprintf(w, "  Duration: %s\n", FormatDuration(rec.Duration))
		fmt.Fprintf(w, "  File: %s\n", rec.Path)
		fmt.Fprintln(w)
	}

	if !act.HasTodos {
		return
	}
	fmt.Fprintln(w, "=== Recent Todo Activity ===")
	for _, td := range act.Todos {
		fmt.Fprintf(w, "%s: %s\n", FormatTime(td.ModTime), filepath.Base(td.Path))
	}
	fmt.Fprintf(w, "\nFound %d todo files modified in the last %d days\n", act.TodoCount, days)
}

// FormatTime renders an instant for console output.
func FormatTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// FormatDuration renders a duration as H:MM:SS.
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}
