package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/qbank/internal/config"
	"github.com/abhisek/qbank/internal/llm"
	"github.com/abhisek/qbank/internal/store"
)

const (
	goodBank = `category: Symfony
questions:
  - question: Which component handles HTTP requests?
    answers:
      - { value: HttpFoundation, correct: true }
      - { value: Yaml, correct: false }
`
	noCorrectBank = `category: Twig
questions:
  - question: Which tag starts a loop?
    answers:
      - { value: "{% loop %}", correct: false }
      - { value: "{% for %}", correct: "true" }
`
)

func bankDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
	return dir
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "qbank.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunCheckPasses(t *testing.T) {
	dir := bankDir(t, map[string]string{"symfony.yml": goodBank, "notes.txt": "ignored"})
	s := openTestStore(t)

	var out bytes.Buffer
	err := runCheck(context.Background(), &out, dir, config.Default(), s.RunRepo())
	require.NoError(t, err)
	assert.Contains(t, out.String(), "PASS  symfony.yml")
	assert.Contains(t, out.String(), "1 file, 1 passed, 0 failed, 0 violations")

	runs, err := s.RunRepo().ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 1, runs[0].Files)
}

func TestRunCheckFails(t *testing.T) {
	dir := bankDir(t, map[string]string{
		"symfony.yml":   goodBank,
		"twig/twig.yml": noCorrectBank,
		"broken.yml":    "category: [unclosed\n",
	})
	s := openTestStore(t)

	cfg := config.Default()
	cfg.Format = config.FormatJSON

	var out bytes.Buffer
	err := runCheck(context.Background(), &out, dir, cfg, s.RunRepo())
	assert.ErrorIs(t, err, ErrChecksFailed)

	var doc struct {
		Passed int `json:"passed"`
		Failed int `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	assert.Equal(t, 1, doc.Passed)
	assert.Equal(t, 2, doc.Failed)

	runs, err := s.RunRepo().ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	run, err := s.RunRepo().GetRun(context.Background(), runs[0].ID)
	require.NoError(t, err)
	rep := suiteReport(run)
	require.Len(t, rep.Files, 3)
	assert.Equal(t, "broken.yml", rep.Files[0].File)
	assert.Error(t, rep.Files[0].LoadErr)
	assert.Equal(t, "twig/twig.yml", rep.Files[2].File)
	require.Len(t, rep.Files[2].Violations, 1)
	assert.Equal(t, `Question "Which tag starts a loop?" does not have a correct answer`, rep.Files[2].Violations[0].Message)
}

func TestRunCheckTypesAndPrune(t *testing.T) {
	dir := bankDir(t, map[string]string{"symfony.yml": goodBank})
	s := openTestStore(t)

	cfg := config.Default()
	cfg.Types = true
	cfg.KeepRuns = 2
	for i := 0; i < 4; i++ {
		require.NoError(t, runCheck(context.Background(), &bytes.Buffer{}, dir, cfg, s.RunRepo()))
	}

	runs, err := s.RunRepo().ListRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestRunCheckWritesMetrics(t *testing.T) {
	dir := bankDir(t, map[string]string{"symfony.yml": goodBank, "twig.yml": noCorrectBank})

	cfg := config.Default()
	cfg.MetricsFile = filepath.Join(t.TempDir(), "qbank.prom")
	err := runCheck(context.Background(), &bytes.Buffer{}, dir, cfg, nil)
	assert.ErrorIs(t, err, ErrChecksFailed)

	data, err := os.ReadFile(cfg.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `qbank_check_files{status="failed"} 1`)
	assert.Contains(t, string(data), `qbank_check_violations{rule="no-correct-answer"} 1`)
}

func fakeTerminal(t *testing.T) {
	t.Helper()
	orig := isTerminal
	isTerminal = func(io.Writer) bool { return true }
	t.Cleanup(func() { isTerminal = orig })
}

func TestUseColor(t *testing.T) {
	cfg := config.Default()
	assert.False(t, useColor(&bytes.Buffer{}, cfg), "not a terminal")

	fakeTerminal(t)
	assert.True(t, useColor(&bytes.Buffer{}, cfg))
	cfg.NoColor = true
	assert.False(t, useColor(&bytes.Buffer{}, cfg))
}

func TestShowRunHonoursNoColor(t *testing.T) {
	fakeTerminal(t)
	dir := bankDir(t, map[string]string{"symfony.yml": goodBank, "twig.yml": noCorrectBank})
	s := openTestStore(t)
	ctx := context.Background()

	cfg := config.Default()
	cfg.NoColor = true
	require.ErrorIs(t, runCheck(ctx, &bytes.Buffer{}, dir, cfg, s.RunRepo()), ErrChecksFailed)

	runs, err := s.RunRepo().ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	var out bytes.Buffer
	require.NoError(t, showRun(ctx, &out, s.RunRepo(), runs[0].ID, cfg, true))
	assert.NotContains(t, out.String(), "\x1b[")
	assert.Contains(t, out.String(), "FAIL  twig.yml")
	assert.NotContains(t, out.String(), "symfony.yml")

	err = showRun(ctx, &out, s.RunRepo(), uuid.New(), cfg, false)
	assert.ErrorContains(t, err, "not found")
}

func TestRunCheckMissingDir(t *testing.T) {
	err := runCheck(context.Background(), &bytes.Buffer{}, filepath.Join(t.TempDir(), "nope"), config.Default(), nil)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrChecksFailed)
}

func TestRunAudit(t *testing.T) {
	dir := bankDir(t, map[string]string{"symfony.yml": goodBank, "twig.yml": noCorrectBank})
	mock := llm.NewMockProvider(llm.MockResponse{
		Content: json.RawMessage(`{"verdict":"disagree","suggested_correct":[2],"rationale":"Yaml parses requests"}`),
	})

	var out bytes.Buffer
	err := runAudit(context.Background(), &out, dir, config.Default(), mock)
	assert.ErrorIs(t, err, ErrChecksFailed)
	assert.Contains(t, out.String(), "FAIL  symfony.yml")
	assert.Contains(t, out.String(), "answer-key-disputed")
	assert.Contains(t, out.String(), "1 reviewed, 1 disputed, 0 failed to review, 1 files skipped")
	assert.Len(t, mock.Calls(), 1)
}

func TestRunAuditNothingReviewed(t *testing.T) {
	dir := bankDir(t, map[string]string{"twig.yml": noCorrectBank})

	var out bytes.Buffer
	err := runAudit(context.Background(), &out, dir, config.Default(), llm.NewMockProvider())
	require.NoError(t, err)
	assert.Contains(t, out.String(), "No questions were reviewed.")
	assert.Contains(t, out.String(), "0 reviewed, 0 disputed, 0 failed to review, 1 files skipped")
}

func TestWriteUsage(t *testing.T) {
	var out bytes.Buffer
	writeUsage(&out, []store.ModelUsage{
		{Model: "gpt-4o-mini", Calls: 2, InputTokens: 1_000_000, OutputTokens: 0},
		{Model: "homegrown", Calls: 1},
	})
	assert.Contains(t, out.String(), "$0.15")
	assert.Contains(t, out.String(), "TOTAL (partial)")
	assert.Contains(t, out.String(), "Pricing unavailable for: homegrown")

	out.Reset()
	writeUsage(&out, nil)
	assert.Equal(t, "No LLM usage recorded yet.\n", out.String())
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "qbank (devel)\n", out.String())
}
