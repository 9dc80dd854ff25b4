package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/session-analyzer/internal/index"
)

func indexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Scan session files into the local index database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := index.OpenDB(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer db.Close()

			errOut := cmd.ErrOrStderr()
			fmt.Fprintf(errOut, "Scanning %s...\n", cfg.BaseDir)

			stats, err := index.IndexAll(db, cfg.BaseDir)
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}

			fmt.Fprintf(errOut, "Done. %s\n", stats)
			return nil
		},
	}
}
