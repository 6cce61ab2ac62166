package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ReservationsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reservations_created_total",
			Help: "Total number of soft-locks successfully created",
		},
	)

	ReservationsRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservations_rejected_total",
			Help: "Total number of rejected soft-lock attempts by reason",
		},
		[]string{"reason"},
	)

	RollbacksReleasedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rollbacks_released_total",
			Help: "Total number of rollbacks that returned units to the pool",
		},
	)

	RollbacksNoopTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rollbacks_noop_total",
			Help: "Total number of rollback invocations that found nothing pending",
		},
	)

	ScheduleFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rollback_schedule_failures_total",
			Help: "Total number of failed rollback callback dispatches (manual sweep required)",
		},
	)

	TicketsIssuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tickets_issued_total",
			Help: "Total number of tickets issued at order finalization",
		},
	)

	AdmissionsConfirmedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "admissions_confirmed_total",
			Help: "Total number of tickets admitted",
		},
	)

	AdmissionsDuplicateTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "admissions_duplicate_total",
			Help: "Total number of admission attempts on already-used tickets",
		},
	)

	SignatureFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "signature_failures_total",
			Help: "Total number of rejected ticket payloads (possible tampering)",
		},
	)

	SyncConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_conflicts_total",
			Help: "Total number of offline scans that lost to an earlier confirm",
		},
	)

	RateLimitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limited_total",
			Help: "Total number of rate-limited requests by operation",
		},
		[]string{"operation"},
	)
)

// Register registers all collectors with the default registry.
func Register() {
	prometheus.MustRegister(ReservationsCreatedTotal)
	prometheus.MustRegister(ReservationsRejectedTotal)
	prometheus.MustRegister(RollbacksReleasedTotal)
	prometheus.MustRegister(RollbacksNoopTotal)
	prometheus.MustRegister(ScheduleFailuresTotal)
	prometheus.MustRegister(TicketsIssuedTotal)
	prometheus.MustRegister(AdmissionsConfirmedTotal)
	prometheus.MustRegister(AdmissionsDuplicateTotal)
	prometheus.MustRegister(SignatureFailuresTotal)
	prometheus.MustRegister(SyncConflictsTotal)
	prometheus.MustRegister(RateLimitedTotal)
}
