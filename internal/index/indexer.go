package index

import (
	"fmt"
	"os"

	"github.com/Zuo-Peng/session-analyzer/internal/logging"
	"github.com/Zuo-Peng/session-analyzer/internal/parse"
	"github.com/Zuo-Peng/session-analyzer/internal/scan"
)

type Stats struct {
	Scanned int
	Updated int
	Skipped int
	Pruned  int
	Errors  int
}

func (s Stats) String() string {
	return fmt.Sprintf("scanned=%d updated=%d skipped=%d pruned=%d errors=%d",
		s.Scanned, s.Updated, s.Skipped, s.Pruned, s.Errors)
}

// IndexAll refreshes the index from every session candidate under baseDir.
// Files whose mtime and size are unchanged are not parsed again.
func IndexAll(db *DB, baseDir string) (Stats, error) {
	var stats Stats
	log := logging.NewLogger("index")

	files, err := scan.Locate(baseDir)
	if err != nil {
		return stats, fmt.Errorf("scan: %w", err)
	}

	// track which files we see, for pruning
	seen := make(map[string]struct{})

	for _, path := range files {
		if !scan.IsSessionCandidate(path) {
			continue
		}
		stats.Scanned++

		info, err := os.Stat(path)
		if err != nil {
			// keep the row; only a parse failure or a vanished file prunes it
			seen[path] = struct{}{}
			stats.Errors++
			log.Warnf("stat %s: %v", path, err)
			continue
		}
		mtime, size := info.ModTime().UnixNano(), info.Size()

		needs, err := needsUpdate(db, path, mtime, size)
		if err != nil {
			seen[path] = struct{}{}
			stats.Errors++
			continue
		}
		if !needs {
			seen[path] = struct{}{}
			stats.Skipped++
			continue
		}

		rec, err := parse.ParseSession(path)
		if err != nil {
			stats.Errors++
			log.Warnf("skip %v", err)
			continue
		}
		seen[path] = struct{}{}

		if err := db.UpsertSession(rec, mtime, size); err != nil {
			stats.Errors++
			log.Warnf("index %s: %v", path, err)
			continue
		}
		stats.Updated++
	}

	// prune sessions whose files vanished or no longer parse
	pruned, err := pruneSessions(db, seen)
	if err != nil {
		return stats, fmt.Errorf("prune: %w", err)
	}
	stats.Pruned = pruned

	return stats, nil
}

func needsUpdate(db *DB, path string, mtime, size int64) (bool, error) {
	info, err := db.GetFileInfo(path)
	if err != nil {
		return false, err
	}
	if info == nil {
		return true, nil
	}
	return info.Mtime != mtime || info.Size != size, nil
}

func pruneSessions(db *DB, seen map[string]struct{}) (int, error) {
	all, err := db.AllPaths()
	if err != nil {
		return 0, err
	}

	pruned := 0
	for path := range all {
		if _, ok := seen[path]; !ok {
			if err := db.DeleteSession(path); err != nil {
				return pruned, err
			}
			pruned++
		}
	}
	return pruned, nil
}
