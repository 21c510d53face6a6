// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Status labels shared by the counters below.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Email kinds.
const (
	EmailPlan     = "plan"
	EmailReminder = "reminder"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Care plan generation
	IncCarePlanGenerated(status string) // status: "success" or "failed"
	ObserveCarePlanDuration(duration time.Duration)
	IncPDFRendered(status string)

	// Accounts
	IncLogin(status string)
	IncRegistration(status string) // status: "success", "failed" or "duplicate"

	// Email pipeline
	IncEmailQueued(status string) // status: "success" or "fallback"
	IncEmailSent(kind, status string)
	SetEmailQueueDepth(depth int64)

	// Reminder scheduler
	ObserveReminderRun(sent, failed int, duration time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
