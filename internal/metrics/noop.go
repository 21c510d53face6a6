package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncCarePlanGenerated(status string)             {}
func (n *NoopRecorder) ObserveCarePlanDuration(duration time.Duration) {}
func (n *NoopRecorder) IncPDFRendered(status string)                   {}
func (n *NoopRecorder) IncLogin(status string)                         {}
func (n *NoopRecorder) IncRegistration(status string)                  {}
func (n *NoopRecorder) IncEmailQueued(status string)                   {}
func (n *NoopRecorder) IncEmailSent(kind, status string)               {}
func (n *NoopRecorder) SetEmailQueueDepth(depth int64)                 {}

func (n *NoopRecorder) ObserveReminderRun(sent, failed int, duration time.Duration) {}
