package main

import (
	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/session-analyzer/internal/index"
	"github.com/Zuo-Peng/session-analyzer/internal/logging"
	"github.com/Zuo-Peng/session-analyzer/internal/open"
)

func openCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open <session-id>",
		Short: "Open a session file in $EDITOR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := index.OpenDB(cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			if _, err := index.IndexAll(db, cfg.BaseDir); err != nil {
				logging.NewLogger("open").Warnf("index: %v", err)
			}
			return open.OpenSession(db, args[0])
		},
	}
}
