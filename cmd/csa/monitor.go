package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/session-analyzer/internal/config"
	"github.com/Zuo-Peng/session-analyzer/internal/index"
	"github.com/Zuo-Peng/session-analyzer/internal/insight"
	"github.com/Zuo-Peng/session-analyzer/internal/logging"
	"github.com/Zuo-Peng/session-analyzer/internal/monitor"
	"github.com/Zuo-Peng/session-analyzer/internal/report"
	"github.com/Zuo-Peng/session-analyzer/internal/scan"
	"github.com/Zuo-Peng/session-analyzer/internal/tui"
)

type monitorOptions struct {
	interval   time.Duration // 0 = poll_interval from config
	duration   time.Duration // 0 = until interrupted
	notify     bool
	latest     bool
	record     bool
	tui        bool
	summarizer insight.Summarizer // nil = no per-update analysis
}

func monitorCmd() *cobra.Command {
	var opts monitorOptions
	var insights bool

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Watch the active session marker and report each update",
		Long: `Re-reads the session marker every interval and prints an update whenever
its content changes. Stops on Ctrl+C or when --for elapses, then prints a summary.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if insights {
				key, err := cfg.APIKey()
				if err != nil {
					return err
				}
				opts.summarizer = newInsightClient(cfg, key)
			}
			return runMonitor(cmd.Context(), cmd.OutOrStdout(), cfg, opts)
		},
	}

	cmd.Flags().DurationVar(&opts.interval, "interval", 0, "Poll interval (default poll_interval from config)")
	cmd.Flags().DurationVar(&opts.duration, "for", 0, "Stop after this long (0 = until Ctrl+C)")
	cmd.Flags().BoolVar(&opts.notify, "notify", false, "React to filesystem notifications instead of polling")
	cmd.Flags().BoolVar(&opts.latest, "latest", false, "Watch the most recently modified session marker")
	cmd.Flags().BoolVar(&opts.record, "record", false, "Record each update in the index database")
	cmd.Flags().BoolVar(&insights, "insights", false, "Analyze each update with the Claude API")
	cmd.Flags().BoolVar(&opts.tui, "tui", false, "Show updates in an interactive panel")

	return cmd
}

func runMonitor(ctx context.Context, w io.Writer, cfg *config.Config, opts monitorOptions) error {
	if opts.interval < 0 || opts.duration < 0 {
		return fmt.Errorf("--interval and --for must not be negative")
	}
	if opts.interval == 0 {
		opts.interval = cfg.Interval()
	}

	target := cfg.MarkerPath()
	if opts.latest {
		latest, err := scan.LatestMarker(cfg.BaseDir)
		if err != nil {
			return fmt.Errorf("%w: %v", monitor.ErrTargetNotFound, err)
		}
		target = latest
	}

	p := monitor.NewPoller(target, monitor.Options{Interval: opts.interval})
	if err := p.Check(); err != nil {
		return err
	}
	run := p.Run
	if opts.notify {
		run = p.Watch
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}

	log := logging.NewLogger("monitor")
	record := func(monitor.Event) {}
	if opts.record {
		db, err := index.OpenDB(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer db.Close()
		record = func(ev monitor.Event) {
			if err := db.RecordUpdate(ev.Record, ev.At); err != nil {
				log.Warnf("record update: %v", err)
			}
		}
	}

	if opts.tui {
		return runMonitorTUI(ctx, w, run, record, target, opts.summarizer)
	}

	fmt.Fprintln(w, "=== Live Session Monitor ===")
	fmt.Fprintf(w, "Watching: %s\n", target)
	fmt.Fprint(w, "Press Ctrl+C to stop\n\n")

	summary, err := run(ctx, func(ev monitor.Event) {
		record(ev)
		printUpdate(w, ev)
		if opts.summarizer != nil {
			fmt.Fprintln(w, "Analyzing session with Claude API...")
			printAnalysis(w, insight.Analyze(ctx, opts.summarizer, ev.Record))
		}
	})
	if err != nil {
		return err
	}

	printSummary(w, summary)
	return nil
}

// showMonitor runs the interactive panel; replaced in tests.
var showMonitor = tui.RunMonitor

type runResult struct {
	summary monitor.Summary
	err     error
}

// runMonitorTUI runs the poller in the background and feeds its events to
// the interactive panel until the user quits, then prints the summary.
func runMonitorTUI(ctx context.Context, w io.Writer,
	run func(context.Context, func(monitor.Event)) (monitor.Summary, error),
	record func(monitor.Event), target string, s insight.Summarizer,
) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan monitor.Event)
	done := make(chan runResult, 1)
	go func() {
		defer close(events)
		summary, err := run(ctx, func(ev monitor.Event) {
			record(ev)
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		})
		done <- runResult{summary: summary, err: err}
	}()

	err := showMonitor(ctx, events, tui.Options{Target: target, Summarizer: s, Out: w})
	cancel()
	res := <-done
	if err == nil {
		err = res.err
	}
	if err != nil {
		return err
	}
	printSummary(w, res.summary)
	return nil
}

func printSummary(w io.Writer, summary monitor.Summary) {
	fmt.Fprint(w, "\nMonitoring stopped\n")
	fmt.Fprintf(w, "Observed %d updates in %d checks (%d unreadable)\n",
		summary.Updates, summary.Ticks, summary.Failures)
}

func printUpdate(w io.Writer, ev monitor.Event) {
	rec := ev.Record
	fmt.Fprintf(w, "[%s] Session updated:\n", ev.At.Format("15:04:05"))
	fmt.Fprintf(w, "  Session ID: %s\n", rec.ID)
	fmt.Fprintf(w, "  Duration: %s\n", report.FormatDuration(rec.Duration))
	fmt.Fprintf(w, "  Last Activity: %s\n", report.FormatTime(rec.LastUpdate))
	fmt.Fprintln(w)
}

func printAnalysis(w io.Writer, an insight.Analysis) {
	fmt.Fprintln(w, "AI Insights:")
	fmt.Fprintln(w, an.Text)
	if an.Error != "" {
		fmt.Fprintf(w, "Analysis error: %s\n", an.Error)
	}
	fmt.Fprintln(w, "--------------------------------------------------")
}
