package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/session-analyzer/internal/config"
	"github.com/Zuo-Peng/session-analyzer/internal/index"
	"github.com/Zuo-Peng/session-analyzer/internal/parse"
	"github.com/Zuo-Peng/session-analyzer/internal/scan"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Self-check: verify paths, session files, index and API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runDoctor(cmd.OutOrStdout(), cfg)
		},
	}
}

func runDoctor(w io.Writer, cfg *config.Config) error {
	fmt.Fprintln(w, "=== Paths ===")
	checkDir(w, "Base", cfg.BaseDir)
	checkDir(w, "Todos", filepath.Join(cfg.BaseDir, scan.TodosDir))
	checkFile(w, "Marker", cfg.MarkerPath())
	if latest, err := scan.LatestMarker(cfg.BaseDir); err == nil {
		fmt.Fprintf(w, "  Latest marker: %s\n", latest)
	}

	fmt.Fprintln(w, "\n=== Session Files ===")
	files, err := scan.Locate(cfg.BaseDir)
	if err != nil {
		fmt.Fprintf(w, "  scan error: %v\n", err)
	} else {
		candidates, parsed := 0, 0
		for _, f := range files {
			if !scan.IsSessionCandidate(f) {
				continue
			}
			candidates++
			if _, err := parse.ParseSession(f); err == nil {
				parsed++
			}
		}
		fmt.Fprintf(w, "  Matching files:     %d\n", len(files))
		fmt.Fprintf(w, "  Session candidates: %d\n", candidates)
		fmt.Fprintf(w, "  Parseable sessions: %d\n", parsed)
	}

	fmt.Fprintln(w, "\n=== Database ===")
	fmt.Fprintf(w, "  Path: %s\n", cfg.DBPath)
	if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
		fmt.Fprintln(w, "  Status: NOT FOUND (run 'csa index' first)")
	} else {
		db, err := index.OpenDB(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer db.Close()

		sessionCount, err := db.SessionCount()
		if err != nil {
			return fmt.Errorf("count sessions: %w", err)
		}
		updateCount, err := db.UpdateCount()
		if err != nil {
			return fmt.Errorf("count updates: %w", err)
		}
		fmt.Fprintf(w, "  Sessions: %d\n", sessionCount)
		fmt.Fprintf(w, "  Updates:  %d\n", updateCount)

		if info, err := os.Stat(cfg.DBPath); err == nil {
			fmt.Fprintf(w, "  Size: %.1f MB\n", float64(info.Size())/1024/1024)
		}
	}

	fmt.Fprintln(w, "\n=== Insight API ===")
	fmt.Fprintf(w, "  Model: %s\n", cfg.Insight.Model)
	if _, err := cfg.APIKey(); errors.Is(err, config.ErrMissingAPIKey) {
		fmt.Fprintf(w, "  Key: NOT SET (%s)\n", cfg.Insight.APIKeyEnv)
	} else {
		fmt.Fprintf(w, "  Key: OK (%s)\n", cfg.Insight.APIKeyEnv)
	}

	return nil
}

func checkDir(w io.Writer, name, path string) {
	if info, err := os.Stat(path); err != nil {
		fmt.Fprintf(w, "  %s: %s (NOT FOUND)\n", name, path)
	} else if !info.IsDir() {
		fmt.Fprintf(w, "  %s: %s (NOT A DIRECTORY)\n", name, path)
	} else {
		fmt.Fprintf(w, "  %s: %s (OK)\n", name, path)
	}
}

func checkFile(w io.Writer, name, path string) {
	if info, err := os.Stat(path); err != nil {
		fmt.Fprintf(w, "  %s: %s (NOT FOUND)\n", name, path)
	} else if info.IsDir() {
		fmt.Fprintf(w, "  %s: %s (IS A DIRECTORY)\n", name, path)
	} else {
		fmt.Fprintf(w, "  %s: %s (OK)\n", name, path)
	}
}
