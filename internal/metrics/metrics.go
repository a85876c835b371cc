package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReturnCasesOpenedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resolution_return_cases_opened_total",
		Help: "Total number of return cases successfully opened.",
	})

	DisputesOpenedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resolution_disputes_opened_total",
		Help: "Total number of dispute cases successfully opened.",
	})

	EscalationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resolution_escalations_total",
		Help: "Total number of return cases escalated to a dispute.",
	})

	RefundsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resolution_refunds_total",
		Help: "Total number of refunds successfully executed.",
	})

	RefundedAmountTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resolution_refunded_amount_total",
		Help: "Total refunded amount in minor currency units.",
	})

	DeadlineFiresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resolution_deadline_fires_total",
		Help: "Total number of deadline timers that fired.",
	})

	MediationRoundsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resolution_mediation_rounds_total",
		Help: "Total number of mediation proposals issued.",
	})

	OperationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resolution_operation_errors_total",
		Help: "Total number of errors encountered during specific operations.",
	},
		[]string{"operation"},
	)

	OrderLineCacheItems = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "resolution_order_line_cache_items",
		Help: "Current number of items in the order line cache.",
	})

	ActiveDeadlineTimers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "resolution_active_deadline_timers",
		Help: "Current number of armed deadline timers.",
	})
)
