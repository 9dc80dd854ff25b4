package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/session-analyzer/internal/config"
	"github.com/Zuo-Peng/session-analyzer/internal/logging"
	"github.com/Zuo-Peng/session-analyzer/internal/report"
)

var version = "dev"

// baseDirFlag overrides base_dir from the config file when set.
var baseDirFlag string

func newRootCmd() *cobra.Command {
	var monitorFlag bool
	var exportPath string
	var days int

	rootCmd := &cobra.Command{
		Use:   "csa [--monitor | --export [path]]",
		Short: "Claude session analyzer - report on, export and monitor local Claude session files",
		Long: `Without flags, csa prints sessions started in the last 7 days and recent todo activity.

  csa                    recent-activity report
  csa --monitor          watch the active session marker until Ctrl+C
  csa --export [path]    write all sessions and todos as JSON (default session_data.json)

A path that is also a subcommand name must be given as --export=path.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			switch {
			case monitorFlag:
				if len(args) > 0 {
					return fmt.Errorf("unexpected argument %q", args[0])
				}
				return runMonitor(cmd.Context(), out, cfg, monitorOptions{})
			case cmd.Flags().Changed("export"):
				// --export takes its path as the next argument as well as --export=path
				if len(args) == 1 && exportPath == report.DefaultExportPath {
					exportPath = args[0]
				}
				return runExport(out, cfg, exportPath, report.FormatJSON)
			case len(args) > 0:
				return fmt.Errorf("unexpected argument %q", args[0])
			default:
				return runReport(out, cfg, days)
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&baseDirFlag, "base-dir", "", "Claude data directory (default base_dir from config, ~/.claude)")
	rootCmd.Flags().BoolVar(&monitorFlag, "monitor", false, "Watch the active session marker and print updates")
	rootCmd.Flags().StringVar(&exportPath, "export", "", "Export sessions and todos as JSON to path")
	rootCmd.Flags().Lookup("export").NoOptDefVal = report.DefaultExportPath
	rootCmd.Flags().IntVar(&days, "days", 0, "Report window in days (default window_days from config)")
	rootCmd.MarkFlagsMutuallyExclusive("monitor", "export")

	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(monitorCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(insightCmd())
	rootCmd.AddCommand(indexCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(openCmd())
	rootCmd.AddCommand(doctorCmd())

	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads the config file, applies --base-dir and sets the log level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if baseDirFlag != "" {
		cfg.BaseDir = baseDirFlag
	}
	logging.SetLevel(cfg.LogLevel)
	return cfg, nil
}
