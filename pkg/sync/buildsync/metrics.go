package buildsync

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	triggeredBuildsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jenkins_sync_builds_triggered_total",
		Help: "Number of Jenkins job runs started for builds.",
	})
	cancelledBuildsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jenkins_sync_builds_cancelled_total",
		Help: "Number of Jenkins job runs cancelled for builds.",
	})
	pendingBuildsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "jenkins_sync_pending_builds",
		Help: "Number of builds waiting for a Jenkins job to exist for their build config.",
	})
)

func init() {
	prometheus.MustRegister(triggeredBuildsCounter)
	prometheus.MustRegister(cancelledBuildsCounter)
	prometheus.MustRegister(pendingBuildsGauge)
}
