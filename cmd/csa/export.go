package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/session-analyzer/internal/config"
	"github.com/Zuo-Peng/session-analyzer/internal/report"
)

func exportCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "export [path]",
		Short: "Write all discoverable sessions and todo files to a document",
		Long:  `Writes every parseable session and every todo file, with no recency window. The default path is session_data.json.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			path := report.DefaultExportPath
			if len(args) == 1 {
				path = args[0]
			}
			return runExport(cmd.OutOrStdout(), cfg, path, f)
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "Output format (json/yaml)")

	return cmd
}

func runExport(w io.Writer, cfg *config.Config, path string, format report.Format) error {
	doc, err := report.Export(report.Options{BaseDir: cfg.BaseDir})
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := report.WriteExport(path, doc, format); err != nil {
		return err
	}

	sessions, todos := doc.Counts()
	fmt.Fprintf(w, "Session data exported to %s\n", path)
	fmt.Fprintf(w, "Found %d sessions and %d todo files\n", sessions, todos)
	return nil
}
