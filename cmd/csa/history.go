package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Zuo-Peng/session-analyzer/internal/index"
	"github.com/Zuo-Peng/session-analyzer/internal/logging"
	"github.com/Zuo-Peng/session-analyzer/internal/render"
	"github.com/Zuo-Peng/session-analyzer/internal/report"
)

var (
	styleHeader = lipgloss.NewStyle().Bold(true)
	styleID     = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	stylePath   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func historyCmd() *cobra.Command {
	var since, session string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List indexed sessions, newest first",
		Long: `Refreshes the index and lists sessions. Output is a table on a terminal and
TSV when piped: session_id, start, last_update, duration, file_path.
With --session, shows the updates recorded by 'csa monitor --record'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := index.ListOptions{Limit: limit}
			if since != "" {
				t, err := time.ParseInLocation("2006-01-02", since, time.Local)
				if err != nil {
					return fmt.Errorf("invalid --since %q (want YYYY-MM-DD)", since)
				}
				opts.Since = t
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := index.OpenDB(cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			out := cmd.OutOrStdout()
			if session != "" {
				text, err := render.RenderHistory(db, session, render.Options{Width: termWidth(out)})
				if err != nil {
					return err
				}
				fmt.Fprint(out, text)
				return nil
			}

			// Auto-update index before listing
			if _, err := index.IndexAll(db, cfg.BaseDir); err != nil {
				logging.NewLogger("history").Warnf("index: %v", err)
			}

			rows, err := db.ListSessions(opts)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "No sessions indexed.")
				return nil
			}

			if isTerminal(out) {
				printHistoryTable(out, rows)
			} else {
				printHistoryTSV(out, rows)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "Only sessions started since date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Max sessions (0 = no limit)")
	cmd.Flags().StringVar(&session, "session", "", "Show recorded updates of one session")

	return cmd
}

func printHistoryTSV(w io.Writer, rows []index.SessionRow) {
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.SessionID,
			r.Start.Format(report.TimeLayout),
			r.LastUpdate.Format(report.TimeLayout),
			report.FormatDuration(r.LastUpdate.Sub(r.Start)),
			r.FilePath,
		)
	}
}

func printHistoryTable(w io.Writer, rows []index.SessionRow) {
	idW := len("SESSION")
	for _, r := range rows {
		if n := lipgloss.Width(r.SessionID); n > idW {
			idW = n
		}
	}
	cell := lipgloss.NewStyle().Width(idW + 2)

	fmt.Fprintln(w, styleHeader.Render(cell.Render("SESSION")+fmt.Sprintf("%-21s%-10s%s", "START", "DURATION", "FILE")))
	for _, r := range rows {
		fmt.Fprintf(w, "%s%-21s%-10s%s\n",
			cell.Render(styleID.Render(r.SessionID)),
			report.FormatTime(r.Start),
			report.FormatDuration(r.LastUpdate.Sub(r.Start)),
			stylePath.Render(r.FilePath),
		)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// termWidth is the width of w when it is a terminal, else 0 (no wrapping).
func termWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}
