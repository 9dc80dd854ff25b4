package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/session-analyzer/internal/config"
	"github.com/Zuo-Peng/session-analyzer/internal/insight"
	"github.com/Zuo-Peng/session-analyzer/internal/parse"
	"github.com/Zuo-Peng/session-analyzer/internal/report"
)

func insightCmd() *cobra.Command {
	var file, format string
	var check bool

	cmd := &cobra.Command{
		Use:   "insight",
		Short: "Analyze the active session with the Claude API",
		Long: `Builds an enhanced report for one session: its data, the model's analysis and
file details. A failed API call is reported inline instead of aborting.
Requires the API key environment variable (insight.api_key_env, default ANTHROPIC_API_KEY).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			key, err := cfg.APIKey()
			if err != nil {
				return err
			}
			client := newInsightClient(cfg, key)

			if check {
				return runCheck(cmd.Context(), cmd.OutOrStdout(), client)
			}

			path := file
			if path == "" {
				path = cfg.MarkerPath()
			}
			rec, err := parse.ParseSession(path)
			if err != nil {
				return err
			}

			data, err := report.Encode(insight.NewReport(cmd.Context(), client, rec), f)
			if err != nil {
				return fmt.Errorf("encode report: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Session file to analyze (default marker_file from config)")
	cmd.Flags().BoolVar(&check, "check", false, "Only test the API connection")
	cmd.Flags().StringVar(&format, "format", "json", "Output format (json/yaml)")

	return cmd
}

func newInsightClient(cfg *config.Config, apiKey string) *insight.Client {
	return insight.NewClient(apiKey, insight.ClientOptions{
		BaseURL:   cfg.Insight.BaseURL,
		Model:     cfg.Insight.Model,
		MaxTokens: cfg.Insight.MaxTokens,
		Timeout:   cfg.InsightTimeout(),
	})
}

func runCheck(ctx context.Context, w io.Writer, c *insight.Client) error {
	ins, err := c.Check(ctx)
	if err != nil {
		fmt.Fprintf(w, "Claude API connection failed: %v\n", err)
		return err
	}
	fmt.Fprintln(w, "Claude API connection successful")
	fmt.Fprintf(w, "Model: %s\n", ins.Model)
	fmt.Fprintf(w, "Response: %s\n", ins.Text)
	return nil
}
