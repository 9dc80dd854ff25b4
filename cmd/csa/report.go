package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/session-analyzer/internal/config"
	"github.com/Zuo-Peng/session-analyzer/internal/report"
)

func reportCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print sessions started recently and recent todo activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runReport(cmd.OutOrStdout(), cfg, days)
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "Report window in days (default window_days from config)")

	return cmd
}

func runReport(w io.Writer, cfg *config.Config, days int) error {
	if days < 0 {
		return fmt.Errorf("invalid --days %d", days)
	}
	window := cfg.Window()
	if days > 0 {
		window = time.Duration(days) * 24 * time.Hour
	}

	act, err := report.Recent(report.Options{BaseDir: cfg.BaseDir, Window: window})
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	report.PrintActivity(w, act)
	return nil
}
