package pipeline

import "github.com/prometheus/client_golang/prometheus"

// Run outcome labels. Bounded: one of three values per platform.
const (
	outcomeReplied      = "replied"
	outcomeNoCandidates = "no_candidates"
	outcomeError        = "error"
)

var (
	// pipelineRuns counts completed pipeline runs by platform and outcome.
	pipelineRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reply_pipeline_runs_total",
			Help: "Total number of reply pipeline runs.",
		},
		[]string{"platform", "outcome"},
	)

	// pipelineStageFailures counts run failures by platform and stage, so a
	// dashboard can tell token trouble from platform-side publish rejections.
	pipelineStageFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reply_pipeline_stage_failures_total",
			Help: "Total number of pipeline run failures by stage.",
		},
		[]string{"platform", "stage"},
	)
)

func init() {
	prometheus.MustRegister(pipelineRuns, pipelineStageFailures)
}

func observeRun(platformName, outcome string) {
	pipelineRuns.WithLabelValues(platformName, outcome).Inc()
}

func observeStageFailure(platformName, stage string) {
	pipelineStageFailures.WithLabelValues(platformName, stage).Inc()
}
