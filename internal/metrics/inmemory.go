package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	CarePlansGenerated      uint64
	CarePlansFailed         uint64
	CarePlanDurationCount   uint64
	CarePlanDurationTotalNs int64
	PDFsRendered            uint64
	PDFsFailed              uint64

	LoginsSucceeded        uint64
	LoginsFailed           uint64
	Registrations          uint64
	RegistrationsFailed    uint64
	RegistrationDuplicates uint64

	EmailsQueued   uint64
	EmailsFallback uint64
	// EmailsSent is keyed by kind then status.
	EmailsSent      map[string]map[string]uint64
	EmailQueueDepth int64

	ReminderRuns       uint64
	RemindersSent      uint64
	RemindersFailed    uint64
	ReminderRunTotalNs int64
}

// InMemoryRecorder stores metrics in memory.
type InMemoryRecorder struct {
	carePlansGenerated      uint64
	carePlansFailed         uint64
	carePlanDurationCount   uint64
	carePlanDurationTotalNs int64
	pdfsRendered            uint64
	pdfsFailed              uint64

	loginsSucceeded        uint64
	loginsFailed           uint64
	registrations          uint64
	registrationsFailed    uint64
	registrationDuplicates uint64

	emailsQueued    uint64
	emailsFallback  uint64
	emailQueueDepth int64

	mu         sync.Mutex
	emailsSent map[string]map[string]uint64

	reminderRuns       uint64
	remindersSent      uint64
	remindersFailed    uint64
	reminderRunTotalNs int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{emailsSent: make(map[string]map[string]uint64)}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	sent := make(map[string]map[string]uint64, len(m.emailsSent))
	for kind, byStatus := range m.emailsSent {
		cp := make(map[string]uint64, len(byStatus))
		for status, n := range byStatus {
			cp[status] = n
		}
		sent[kind] = cp
	}
	m.mu.Unlock()

	return Snapshot{
		CarePlansGenerated:      atomic.LoadUint64(&m.carePlansGenerated),
		CarePlansFailed:         atomic.LoadUint64(&m.carePlansFailed),
		CarePlanDurationCount:   atomic.LoadUint64(&m.carePlanDurationCount),
		CarePlanDurationTotalNs: atomic.LoadInt64(&m.carePlanDurationTotalNs),
		PDFsRendered:            atomic.LoadUint64(&m.pdfsRendered),
		PDFsFailed:              atomic.LoadUint64(&m.pdfsFailed),
		LoginsSucceeded:         atomic.LoadUint64(&m.loginsSucceeded),
		LoginsFailed:            atomic.LoadUint64(&m.loginsFailed),
		Registrations:           atomic.LoadUint64(&m.registrations),
		RegistrationsFailed:     atomic.LoadUint64(&m.registrationsFailed),
		RegistrationDuplicates:  atomic.LoadUint64(&m.registrationDuplicates),
		EmailsQueued:            atomic.LoadUint64(&m.emailsQueued),
		EmailsFallback:          atomic.LoadUint64(&m.emailsFallback),
		EmailsSent:              sent,
		EmailQueueDepth:         atomic.LoadInt64(&m.emailQueueDepth),
		ReminderRuns:            atomic.LoadUint64(&m.reminderRuns),
		RemindersSent:           atomic.LoadUint64(&m.remindersSent),
		RemindersFailed:         atomic.LoadUint64(&m.remindersFailed),
		ReminderRunTotalNs:      atomic.LoadInt64(&m.reminderRunTotalNs),
	}
}

// IncCarePlanGenerated counts a generation attempt by outcome.
func (m *InMemoryRecorder) IncCarePlanGenerated(status string) {
	if status == StatusSuccess {
		atomic.AddUint64(&m.carePlansGenerated, 1)
		return
	}
	atomic.AddUint64(&m.carePlansFailed, 1)
}

// ObserveCarePlanDuration records generation latency.
func (m *InMemoryRecorder) ObserveCarePlanDuration(duration time.Duration) {
	atomic.AddUint64(&m.carePlanDurationCount, 1)
	atomic.AddInt64(&m.carePlanDurationTotalNs, duration.Nanoseconds())
}

// IncPDFRendered counts a render attempt by outcome.
func (m *InMemoryRecorder) IncPDFRendered(status string) {
	if status == StatusSuccess {
		atomic.AddUint64(&m.pdfsRendered, 1)
		return
	}
	atomic.AddUint64(&m.pdfsFailed, 1)
}

// IncLogin counts a login attempt by outcome.
func (m *InMemoryRecorder) IncLogin(status string) {
	if status == StatusSuccess {
		atomic.AddUint64(&m.loginsSucceeded, 1)
		return
	}
	atomic.AddUint64(&m.loginsFailed, 1)
}

// IncRegistration counts a registration attempt by outcome.
func (m *InMemoryRecorder) IncRegistration(status string) {
	switch status {
	case StatusSuccess:
		atomic.AddUint64(&m.registrations, 1)
	case "duplicate":
		atomic.AddUint64(&m.registrationDuplicates, 1)
	default:
		atomic.AddUint64(&m.registrationsFailed, 1)
	}
}

// IncEmailQueued counts plan emails handed off to the queue or the fallback path.
func (m *InMemoryRecorder) IncEmailQueued(status string) {
	if status == StatusSuccess {
		atomic.AddUint64(&m.emailsQueued, 1)
		return
	}
	atomic.AddUint64(&m.emailsFallback, 1)
}

// IncEmailSent counts delivered or failed emails per kind.
func (m *InMemoryRecorder) IncEmailSent(kind, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byStatus, ok := m.emailsSent[kind]
	if !ok {
		byStatus = make(map[string]uint64)
		m.emailsSent[kind] = byStatus
	}
	byStatus[status]++
}

// SetEmailQueueDepth records the pending entry count of the email stream.
func (m *InMemoryRecorder) SetEmailQueueDepth(depth int64) {
	atomic.StoreInt64(&m.emailQueueDepth, depth)
}

// ObserveReminderRun records one scheduler pass.
func (m *InMemoryRecorder) ObserveReminderRun(sent, failed int, duration time.Duration) {
	atomic.AddUint64(&m.reminderRuns, 1)
	atomic.AddUint64(&m.remindersSent, uint64(sent))
	atomic.AddUint64(&m.remindersFailed, uint64(failed))
	atomic.AddInt64(&m.reminderRunTotalNs, duration.Nanoseconds())
}
