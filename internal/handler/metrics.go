package handler

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/haircarepro/haircarepro/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "haircare_care_plans_generated_total{status=\"success\"} %d\n", snap.CarePlansGenerated)
	writeMetric(w, "haircare_care_plans_generated_total{status=\"failed\"} %d\n", snap.CarePlansFailed)
	writeMetric(w, "haircare_care_plan_duration_seconds_count %d\n", snap.CarePlanDurationCount)
	writeMetric(w, "haircare_care_plan_duration_seconds_sum %.6f\n", float64(snap.CarePlanDurationTotalNs)/1e9)

	writeMetric(w, "haircare_pdfs_rendered_total{status=\"success\"} %d\n", snap.PDFsRendered)
	writeMetric(w, "haircare_pdfs_rendered_total{status=\"failed\"} %d\n", snap.PDFsFailed)

	writeMetric(w, "haircare_logins_total{status=\"success\"} %d\n", snap.LoginsSucceeded)
	writeMetric(w, "haircare_logins_total{status=\"failed\"} %d\n", snap.LoginsFailed)

	writeMetric(w, "haircare_registrations_total{status=\"success\"} %d\n", snap.Registrations)
	writeMetric(w, "haircare_registrations_total{status=\"failed\"} %d\n", snap.RegistrationsFailed)
	writeMetric(w, "haircare_registrations_total{status=\"duplicate\"} %d\n", snap.RegistrationDuplicates)

	writeMetric(w, "haircare_emails_queued_total{status=\"success\"} %d\n", snap.EmailsQueued)
	writeMetric(w, "haircare_emails_queued_total{status=\"fallback\"} %d\n", snap.EmailsFallback)
	writeMetric(w, "haircare_email_queue_depth %d\n", snap.EmailQueueDepth)

	kinds := make([]string, 0, len(snap.EmailsSent))
	for kind := range snap.EmailsSent {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		statuses := make([]string, 0, len(snap.EmailsSent[kind]))
		for status := range snap.EmailsSent[kind] {
			statuses = append(statuses, status)
		}
		sort.Strings(statuses)
		for _, status := range statuses {
			writeMetric(w, "haircare_emails_sent_total{kind=%q,status=%q} %d\n", kind, status, snap.EmailsSent[kind][status])
		}
	}

	writeMetric(w, "haircare_reminder_runs_total %d\n", snap.ReminderRuns)
	writeMetric(w, "haircare_reminders_sent_total{status=\"success\"} %d\n", snap.RemindersSent)
	writeMetric(w, "haircare_reminders_sent_total{status=\"failed\"} %d\n", snap.RemindersFailed)
	writeMetric(w, "haircare_reminder_run_duration_seconds_sum %.6f\n", float64(snap.ReminderRunTotalNs)/1e9)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
