package httptransport

import "expvar"

var (
	metricTransitionTotal  = expvar.NewInt("transition_total")
	metricTransitionErrors = expvar.NewInt("transition_errors_total")

	metricReassignTotal  = expvar.NewInt("reassign_total")
	metricReassignErrors = expvar.NewInt("reassign_errors_total")

	metricOccupancyQueryTotal = expvar.NewInt("occupancy_query_total")
)
