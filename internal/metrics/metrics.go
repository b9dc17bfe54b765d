// Package metrics exports check results in the Prometheus text format, for
// node_exporter's textfile collector or any scraper that reads files.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/abhisek/qbank/internal/suite"
)

const (
	namespace = "qbank"
	subsystem = "check"
)

// File statuses used as the status label.
const (
	StatusPassed = "passed"
	StatusFailed = "failed"
	StatusError  = "error"
)

type checkMetrics struct {
	files      *prometheus.GaugeVec
	violations *prometheus.GaugeVec
	duration   prometheus.Gauge
	lastRun    prometheus.Gauge
}

func newCheckMetrics(reg prometheus.Registerer) *checkMetrics {
	f := promauto.With(reg)
	return &checkMetrics{
		files: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "files",
			Help:      "Question bank files checked in the last run, by status",
		}, []string{"status"}),
		violations: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "violations",
			Help:      "Violations found in the last run, by rule",
		}, []string{"rule"}),
		duration: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "duration_seconds",
			Help:      "Wall time of the last run",
		}),
		lastRun: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run started",
		}),
	}
}

func (m *checkMetrics) observe(rep *suite.Report) {
	for _, s := range []string{StatusPassed, StatusFailed, StatusError} {
		m.files.WithLabelValues(s)
	}
	for _, f := range rep.Files {
		switch {
		case f.LoadErr != nil:
			m.files.WithLabelValues(StatusError).Inc()
		case len(f.Violations) > 0:
			m.files.WithLabelValues(StatusFailed).Inc()
		default:
			m.files.WithLabelValues(StatusPassed).Inc()
		}
		for _, v := range f.Violations {
			m.violations.WithLabelValues(string(v.Rule)).Inc()
		}
	}
	m.duration.Set(rep.Duration.Seconds())
	m.lastRun.Set(float64(rep.Started.Unix()))
}

// Gatherer returns a registry holding the metrics of rep.
func Gatherer(rep *suite.Report) prometheus.Gatherer {
	reg := prometheus.NewRegistry()
	newCheckMetrics(reg).observe(rep)
	return reg
}

// WriteTextfile writes the metrics of rep to path, replacing the file
// atomically.
func WriteTextfile(path string, rep *suite.Report) error {
	if err := prometheus.WriteToTextfile(path, Gatherer(rep)); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
