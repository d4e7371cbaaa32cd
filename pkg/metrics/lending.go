package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	CommandBorrow = "borrow"
	CommandReturn = "return"

	OutcomeOK = "ok"
)

// LendingMetrics records the outcome and transaction latency of lending commands.
type LendingMetrics struct {
	commands *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewLendingMetrics registers the lending metrics on the provided registerer. A nil
// registerer yields a no-op recorder.
func NewLendingMetrics(reg prometheus.Registerer) *LendingMetrics {
	if reg == nil {
		return &LendingMetrics{}
	}
	commands := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lending_commands_total",
		Help: "Lending commands by command and outcome.",
	}, []string{"command", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lending_tx_duration_seconds",
		Help:    "Duration of lending command transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"command"})
	reg.MustRegister(commands, duration)
	return &LendingMetrics{
		commands: commands,
		duration: duration,
	}
}

// Observe records one finished command. outcome is OutcomeOK or an error code.
func (m *LendingMetrics) Observe(command, outcome string, elapsed time.Duration) {
	if m == nil || m.commands == nil {
		return
	}
	command = normalizeLabel(command)
	m.commands.WithLabelValues(command, normalizeLabel(strings.ToLower(outcome))).Inc()
	m.duration.WithLabelValues(command).Observe(elapsed.Seconds())
}

// CommandsCounter returns the counter series for command and outcome.
func (m *LendingMetrics) CommandsCounter(command, outcome string) prometheus.Counter {
	if m == nil || m.commands == nil {
		return prometheus.NewCounter(prometheus.CounterOpts{Name: "lending_commands_total", Help: "unregistered"})
	}
	return m.commands.WithLabelValues(normalizeLabel(command), normalizeLabel(strings.ToLower(outcome)))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
