package insight

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zuo-Peng/session-analyzer/internal/parse"
)

func testRecord(path string) parse.SessionRecord {
	start := time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC)
	last := start.Add(95 * time.Minute)
	return parse.SessionRecord{ID: "sess-42", Start: start, LastUpdate: last, Duration: last.Sub(start), Path: path}
}

func TestClientSummarize(t *testing.T) {
	var got messageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-test", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"model": "claude-test",
			"content": [{"type": "text", "text": "Take breaks."}, {"type": "text", "text": "Batch reviews."}],
			"usage": {"input_tokens": 120, "output_tokens": 30}
		}`)
	}))
	defer srv.Close()

	c := NewClient("sk-test", ClientOptions{BaseURL: srv.URL + "/", Model: "claude-test", MaxTokens: 500})
	ins, err := c.Summarize(context.Background(), testRecord("/tmp/x"))
	require.NoError(t, err)

	assert.Equal(t, "Take breaks.\nBatch reviews.", ins.Text)
	assert.Equal(t, "claude-test", ins.Model)
	assert.Equal(t, Usage{InputTokens: 120, OutputTokens: 30}, ins.Usage)

	assert.Equal(t, "claude-test", got.Model)
	assert.Equal(t, 500, got.MaxTokens)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Contains(t, got.Messages[0].Content, "Session ID: sess-42")
	assert.Contains(t, got.Messages[0].Content, "Duration (seconds): 5700")
}

func TestClientServiceError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":"rate limited"}`)
	}))
	defer srv.Close()

	c := NewClient("sk-test", ClientOptions{BaseURL: srv.URL, Model: "m"})
	_, err := c.Check(context.Background())

	var serr *ServiceError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusTooManyRequests, serr.Status)
	assert.Contains(t, err.Error(), "rate limited")
	assert.Equal(t, int32(1), calls.Load(), "no retries")
}

func TestClientEmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"model":"m","content":[]}`)
	}))
	defer srv.Close()

	c := NewClient("k", ClientOptions{BaseURL: srv.URL, Model: "m"})
	_, err := c.Summarize(context.Background(), testRecord(""))

	var serr *ServiceError
	assert.ErrorAs(t, err, &serr)
}

type fakeSummarizer struct {
	ins *Insight
	err error
}

func (f fakeSummarizer) Summarize(context.Context, parse.SessionRecord) (*Insight, error) {
	return f.ins, f.err
}

func TestNewReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statsig.session_id.1")
	require.NoError(t, os.WriteFile(path, []byte(`{"x":1}`), 0o644))
	rec := testRecord(path)

	r := NewReport(context.Background(), fakeSummarizer{ins: &Insight{Text: "ok", Model: "m"}}, rec)

	assert.Equal(t, "sess-42", r.SessionData.SessionID)
	assert.Equal(t, 5700.0, r.SessionData.DurationSeconds)
	assert.Equal(t, "1h35m0s", r.SessionData.Duration)
	assert.Equal(t, "ok", r.AIAnalysis.Text)
	assert.Empty(t, r.AIAnalysis.Error)
	assert.Equal(t, "claude-api-integration", r.AnalysisMethod)
	assert.True(t, r.FileAnalysis.Exists)
	assert.Equal(t, int64(7), r.FileAnalysis.Size)

	data, err := json.Marshal(r)
	require.NoError(t, err)
	var raw struct {
		AIAnalysis map[string]any `json:"ai_analysis"`
	}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "ok", raw.AIAnalysis["insights"])
	assert.Equal(t, "m", raw.AIAnalysis["model_used"])
}

func TestNewReportServiceFailureIsInline(t *testing.T) {
	rec := testRecord(filepath.Join(t.TempDir(), "gone"))

	r := NewReport(context.Background(), fakeSummarizer{err: &ServiceError{Err: errors.New("timeout")}}, rec)

	assert.Equal(t, FallbackText, r.AIAnalysis.Text)
	assert.Contains(t, r.AIAnalysis.Error, "timeout")
	assert.False(t, r.FileAnalysis.Exists)
	assert.Equal(t, "sess-42", r.SessionData.SessionID)
}
