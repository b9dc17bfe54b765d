package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/qbank/internal/integrity"
	"github.com/abhisek/qbank/internal/suite"
)

func sampleReport() *suite.Report {
	return &suite.Report{
		Root:     "data",
		Started:  time.Unix(1_700_000_000, 0),
		Duration: 1500 * time.Millisecond,
		Files: []suite.FileResult{
			{File: "a.yml"},
			{File: "b.yml", Violations: []integrity.Violation{
				{Rule: integrity.RuleNoCorrectAnswer},
				{Rule: integrity.RuleNoCorrectAnswer},
				{Rule: integrity.RuleMissingAnswerValue},
			}},
			{File: "c.yml", LoadErr: errors.New("parse yaml: boom")},
		},
	}
}

func TestGatherer(t *testing.T) {
	expected := `
# HELP qbank_check_files Question bank files checked in the last run, by status
# TYPE qbank_check_files gauge
qbank_check_files{status="error"} 1
qbank_check_files{status="failed"} 1
qbank_check_files{status="passed"} 1
# HELP qbank_check_violations Violations found in the last run, by rule
# TYPE qbank_check_violations gauge
qbank_check_violations{rule="missing-answer-value"} 1
qbank_check_violations{rule="no-correct-answer"} 2
# HELP qbank_check_duration_seconds Wall time of the last run
# TYPE qbank_check_duration_seconds gauge
qbank_check_duration_seconds 1.5
`
	err := testutil.GatherAndCompare(Gatherer(sampleReport()), strings.NewReader(expected),
		"qbank_check_files", "qbank_check_violations", "qbank_check_duration_seconds")
	assert.NoError(t, err)
}

func TestGathererEmptyRun(t *testing.T) {
	n, err := testutil.GatherAndCount(Gatherer(&suite.Report{Root: "data"}), "qbank_check_files", "qbank_check_violations")
	require.NoError(t, err)
	// Every status is exported even when zero; no rule series exist.
	assert.Equal(t, 3, n)
}

func TestWriteTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qbank.prom")
	require.NoError(t, WriteTextfile(path, sampleReport()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `qbank_check_files{status="passed"} 1`)
	assert.Contains(t, string(data), "qbank_check_last_run_timestamp_seconds 1.7e+09")
}

func TestWriteTextfileBadDir(t *testing.T) {
	err := WriteTextfile(filepath.Join(t.TempDir(), "missing", "qbank.prom"), sampleReport())
	assert.ErrorContains(t, err, "write metrics")
}
