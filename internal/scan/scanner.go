package scan

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/moby/patternmatcher"
	"github.com/sirupsen/logrus"

	"github.com/Zuo-Peng/session-analyzer/internal/logging"
)

const (
	MarkerDir    = "statsig"
	MarkerPrefix = "statsig.session_id."
	TodosDir     = "todos"
)

// SessionPatterns are glob patterns relative to the base directory.
var SessionPatterns = []string{
	MarkerDir + "/" + MarkerPrefix + "*",
	"**/*.json",
}

// sessionPathMarker selects session candidates by file name, not content.
const sessionPathMarker = "session_id"

// ErrNoMarker is returned by LatestMarker when no live session marker exists.
var ErrNoMarker = errors.New("no session marker found")

// ScanError is an I/O failure while enumerating part of the tree.
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.Path, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

type TodoFile struct {
	Path    string
	ModTime time.Time
}

// Locate returns the deduplicated session candidates under baseDir.
// A missing baseDir yields no paths and no error.
func Locate(baseDir string) ([]string, error) {
	return LocatePatterns(baseDir, SessionPatterns)
}

// LocatePatterns walks baseDir once and returns every file matching any
// pattern. Each file is matched on its own path relative to baseDir; a
// directory whose name matches a pattern does not pull in its contents.
// Symlinked directories, baseDir included, are followed once per target and
// reported under the linking path. Unreadable subtrees are logged and
// skipped; the only error is an invalid pattern.
func LocatePatterns(baseDir string, patterns []string) ([]string, error) {
	pm, err := patternmatcher.New(patterns)
	if err != nil {
		return nil, fmt.Errorf("compile patterns: %w", err)
	}

	l := &locator{
		pm:      pm,
		log:     logging.NewLogger("scan"),
		base:    baseDir,
		seen:    make(map[string]struct{}),
		visited: make(map[string]struct{}),
	}
	l.walk(baseDir)
	return l.files, nil
}

type locator struct {
	pm      *patternmatcher.PatternMatcher
	log     *logrus.Entry
	base    string
	files   []string
	seen    map[string]struct{}
	visited map[string]struct{} // resolved directories already walked
}

// walk enumerates dir through its resolved path and reports entries under dir.
func (l *locator) walk(dir string) {
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		if dir != l.base || !errors.Is(err, fs.ErrNotExist) {
			l.log.Warn((&ScanError{Path: dir, Err: err}).Error())
		}
		return
	}
	if _, ok := l.visited[resolved]; ok {
		return
	}
	l.visited[resolved] = struct{}{}

	walkErr := filepath.WalkDir(resolved, func(path string, d fs.DirEntry, err error) error {
		shown := dir
		if rel, relErr := filepath.Rel(resolved, path); relErr == nil && rel != "." {
			shown = filepath.Join(dir, rel)
		}
		if err != nil {
			l.log.Warn((&ScanError{Path: shown, Err: err}).Error())
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil // skip unreadable entries
		}
		if d.IsDir() {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				l.walk(shown)
				return nil
			}
		}
		l.match(shown)
		return nil
	})
	if walkErr != nil {
		l.log.Warn((&ScanError{Path: dir, Err: walkErr}).Error())
	}
}

func (l *locator) match(path string) {
	rel, err := filepath.Rel(l.base, path)
	if err != nil {
		return
	}
	// false: parent directories never match on the file's behalf
	ok, err := l.pm.MatchesUsingParentResult(rel, false)
	if err != nil || !ok {
		return
	}
	if _, dup := l.seen[path]; dup {
		return
	}
	l.seen[path] = struct{}{}
	l.files = append(l.files, path)
}

// IsSessionCandidate reports whether a located path is treated as a session
// file. Only the path string is inspected, so session-shaped JSON under any
// other name is dropped without being parsed.
// TODO: select candidates by parsed content instead of by file name.
func IsSessionCandidate(path string) bool {
	return strings.Contains(path, sessionPathMarker)
}

// Todos lists <baseDir>/todos/*.json with modification times, in directory order.
func Todos(baseDir string) ([]TodoFile, error) {
	dir := filepath.Join(baseDir, TodosDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &ScanError{Path: dir, Err: err}
	}

	log := logging.NewLogger("scan")
	var todos []TodoFile
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			log.Warn((&ScanError{Path: filepath.Join(dir, e.Name()), Err: err}).Error())
			continue
		}
		todos = append(todos, TodoFile{
			Path:    filepath.Join(dir, e.Name()),
			ModTime: info.ModTime(),
		})
	}
	return todos, nil
}

// LatestMarker returns the most recently modified live session marker.
func LatestMarker(baseDir string) (string, error) {
	dir := filepath.Join(baseDir, MarkerDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNoMarker
		}
		return "", &ScanError{Path: dir, Err: err}
	}

	var newest string
	var newestTime time.Time
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), MarkerPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestTime) {
			newest = filepath.Join(dir, e.Name())
			newestTime = info.ModTime()
		}
	}
	if newest == "" {
		return "", ErrNoMarker
	}
	return newest, nil
}
