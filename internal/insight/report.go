package insight

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Zuo-Peng/session-analyzer/internal/parse"
)

// FallbackText replaces the insight text when the service call fails.
const FallbackText = "Unable to analyze session data with Claude API"

const analysisMethod = "claude-api-integration"

// BuildPrompt renders the analysis request for one session.
func BuildPrompt(rec parse.SessionRecord) string {
	var b strings.Builder
	b.WriteString("Analyze this Claude Code session data and provide insights:\n\n")
	fmt.Fprintf(&b, "Session ID: %s\n", rec.ID)
	fmt.Fprintf(&b, "Start Time: %s\n", rec.Start.Format(time.RFC3339))
	fmt.Fprintf(&b, "Last Update: %s\n", rec.LastUpdate.Format(time.RFC3339))
	fmt.Fprintf(&b, "Duration: %s\n", rec.Duration.Round(time.Second))
	fmt.Fprintf(&b, "Duration (seconds): %g\n\n", rec.Duration.Seconds())
	b.WriteString(`Please provide a comprehensive analysis covering:
1. Usage patterns and productivity insights
2. Session duration analysis and optimization
3. Recommendations for better workflow efficiency
4. Potential productivity improvements
5. Time management suggestions based on session length

Format your response as structured insights with actionable recommendations.
`)
	return b.String()
}

type SessionData struct {
	SessionID       string  `json:"session_id" yaml:"session_id"`
	StartTime       string  `json:"start_time" yaml:"start_time"`
	LastUpdate      string  `json:"last_update" yaml:"last_update"`
	Duration        string  `json:"duration" yaml:"duration"`
	DurationSeconds float64 `json:"duration_seconds" yaml:"duration_seconds"`
	FilePath        string  `json:"file_path" yaml:"file_path"`
}

type Analysis struct {
	Insight   `yaml:",inline"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
	Timestamp string `json:"timestamp" yaml:"timestamp"`
}

type FileAnalysis struct {
	Exists       bool   `json:"session_file_exists" yaml:"session_file_exists"`
	Size         int64  `json:"session_file_size" yaml:"session_file_size"`
	LastModified string `json:"last_modified,omitempty" yaml:"last_modified,omitempty"`
}

// Report is the enhanced per-session report.
type Report struct {
	SessionData    SessionData  `json:"session_data" yaml:"session_data"`
	AIAnalysis     Analysis     `json:"ai_analysis" yaml:"ai_analysis"`
	GeneratedAt    string       `json:"generated_at" yaml:"generated_at"`
	AnalysisMethod string       `json:"analysis_method" yaml:"analysis_method"`
	FileAnalysis   FileAnalysis `json:"file_analysis" yaml:"file_analysis"`
}

// Analyze calls s and folds a failure into the returned Analysis.
func Analyze(ctx context.Context, s Summarizer, rec parse.SessionRecord) Analysis {
	a := Analysis{Timestamp: time.Now().Format(time.RFC3339)}
	ins, err := s.Summarize(ctx, rec)
	if err != nil {
		a.Text = FallbackText
		a.Error = err.Error()
		return a
	}
	a.Insight = *ins
	return a
}

// NewReport builds the enhanced report for rec. It never fails: service
// errors are reported inline.
func NewReport(ctx context.Context, s Summarizer, rec parse.SessionRecord) *Report {
	r := &Report{
		SessionData: SessionData{
			SessionID:       rec.ID,
			StartTime:       rec.Start.Format(time.RFC3339),
			LastUpdate:      rec.LastUpdate.Format(time.RFC3339),
			Duration:        rec.Duration.Round(time.Second).String(),
			DurationSeconds: rec.Duration.Seconds(),
			FilePath:        rec.Path,
		},
		AIAnalysis:     Analyze(ctx, s, rec),
		GeneratedAt:    time.Now().Format(time.RFC3339),
		AnalysisMethod: analysisMethod,
	}

	if info, err := os.Stat(rec.Path); err == nil {
		r.FileAnalysis = FileAnalysis{
			Exists:       true,
			Size:         info.Size(),
			LastModified: info.ModTime().Format(time.RFC3339),
		}
	}
	return r
}
