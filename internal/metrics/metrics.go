// Package metrics records pipeline metrics in Prometheus format. The CLI is
// a batch job, so instead of serving /metrics the registry is written to a
// file for the node_exporter textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/leofalp/polprofile/core/cost"
	"github.com/leofalp/polprofile/patterns/pipeline"
	"github.com/leofalp/polprofile/providers/ai"
)

const namespace = "polprofile"

// Recorder collects step, token, branch and run metrics in its own registry.
// It satisfies pipeline.MetricsRecorder and profile.MetricsRecorder and is
// safe for concurrent use.
type Recorder struct {
	registry *prometheus.Registry
	prices   cost.Table

	stepsTotal   *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	tokensTotal  *prometheus.CounterVec
	costTotal    *prometheus.CounterVec
	branchTotal  *prometheus.CounterVec
	runsTotal    *prometheus.CounterVec
	runDuration  prometheus.Histogram
}

// NewRecorder creates a Recorder with a fresh registry. Token usage is
// priced with cost.DefaultTable.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		prices:   cost.DefaultTable(),

		stepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "steps_total",
				Help:      "Stage, group and pipeline executions by outcome",
			},
			[]string{"step", "status"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "step_duration_seconds",
				Help:      "Step execution duration in seconds",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 160},
			},
			[]string{"step"},
		),
		tokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_tokens_total",
				Help:      "Tokens used by generation calls",
			},
			[]string{"stage", "model", "type"}, // type: prompt, completion, reasoning
		),
		costTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_cost_usd_total",
				Help:      "Estimated cost of generation calls in USD, priced models only",
			},
			[]string{"model"},
		),
		branchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "router_branches_total",
				Help:      "Router decisions by branch",
			},
			[]string{"router", "branch"},
		),
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Runs by outcome",
			},
			[]string{"outcome"},
		),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Whole-run duration in seconds",
			Buckets:   []float64{5, 10, 30, 60, 120, 300, 600},
		}),
	}

	r.registry.MustRegister(r.stepsTotal, r.stepDuration, r.tokensTotal, r.costTotal, r.branchTotal, r.runsTotal, r.runDuration)
	return r
}

// Registry exposes the underlying registry, e.g. for an HTTP handler.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) StepFinished(step string, status pipeline.EventStatus, duration time.Duration) {
	r.stepsTotal.WithLabelValues(step, string(status)).Inc()
	r.stepDuration.WithLabelValues(step).Observe(duration.Seconds())
}

func (r *Recorder) TokensUsed(stage, model string, usage ai.Usage) {
	r.tokensTotal.WithLabelValues(stage, model, "prompt").Add(float64(usage.PromptTokens))
	r.tokensTotal.WithLabelValues(stage, model, "completion").Add(float64(usage.CompletionTokens))
	if usage.ReasoningTokens > 0 {
		r.tokensTotal.WithLabelValues(stage, model, "reasoning").Add(float64(usage.ReasoningTokens))
	}
	if usd, ok := r.prices.Estimate(model, usage); ok {
		r.costTotal.WithLabelValues(model).Add(usd)
	}
}

func (r *Recorder) BranchTaken(router string, branch pipeline.Branch) {
	r.branchTotal.WithLabelValues(router, string(branch)).Inc()
}

func (r *Recorder) RunFinished(outcome string, duration time.Duration) {
	r.runsTotal.WithLabelValues(outcome).Inc()
	r.runDuration.Observe(duration.Seconds())
}

// WriteToTextfile writes every metric in text exposition format to path,
// atomically, as the textfile collector expects.
func (r *Recorder) WriteToTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("metrics: write %s: %w", path, err)
	}
	return nil
}
