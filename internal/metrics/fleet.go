package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PlacementDecisions counts allocator outcomes by deployment model and result.
	PlacementDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_placement_decisions_total",
			Help: "Capacity allocator decisions by deployment model and outcome",
		},
		[]string{"model", "outcome"},
	)

	// DeploymentWorkflowsStarted counts dedicated deployment workflows launched by the API.
	DeploymentWorkflowsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fleet_deployment_workflows_started_total",
			Help: "Dedicated deployment workflows started",
		},
	)
)
