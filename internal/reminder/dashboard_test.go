package reminder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/haircarepro/haircarepro/internal/model"
)

func TestDashboardAlert(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 10, 15, 30, 0, 0, time.UTC)
	want := "Hey alice, it's time to follow your hair care routine!"

	tests := []struct {
		name    string
		freq    string
		created time.Time
		last    *time.Time
		want    string
	}{
		{"due today by calendar date", "2-3 times/week", time.Date(2024, 5, 7, 23, 0, 0, 0, time.UTC), nil, want},
		{"overdue", "2-3 times/week", time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC), nil, want},
		{"not yet due", "2-3 times/week", time.Date(2024, 5, 8, 8, 0, 0, 0, time.UTC), nil, ""},
		{"daily keyword", "Daily", time.Date(2024, 5, 9, 20, 0, 0, 0, time.UTC), nil, want},
		{"fallback four days", "as needed", time.Date(2024, 5, 7, 8, 0, 0, 0, time.UTC), nil, ""},
		{"reminder sent this morning", "2-3 times/week", time.Date(2024, 5, 7, 8, 0, 0, 0, time.UTC), timePtr(time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)), want},
		{"reminder sent this morning on the fallback interval", "as needed", time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC), timePtr(time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)), want},
		{"last reminder resets anchor", "2-3 times/week", time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC), timePtr(time.Date(2024, 5, 9, 9, 0, 0, 0, time.UTC)), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			record := &model.CarePlanRecord{
				CarePlan:         model.CarePlan{WashFrequency: tt.freq},
				CreatedAt:        tt.created,
				LastReminderSent: tt.last,
			}
			assert.Equal(t, tt.want, DashboardAlert(record, "alice", now))
		})
	}
}

func TestDashboardAlert_StaysUpAfterScheduledReminder(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 5, 7, 12, 0, 0, 0, time.UTC)
	record := &model.CarePlanRecord{
		CarePlan:  model.CarePlan{WashFrequency: "2-3 times/week"},
		CreatedAt: created,
	}

	before := DashboardAlert(record, "alice", time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC))
	assert.NotEmpty(t, before)

	// The 09:00 pass stamps the plan.
	record.LastReminderSent = timePtr(time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC))

	after := DashboardAlert(record, "alice", time.Date(2024, 5, 10, 10, 0, 0, 0, time.UTC))
	assert.Equal(t, before, after)

	next := DashboardAlert(record, "alice", time.Date(2024, 5, 11, 10, 0, 0, 0, time.UTC))
	assert.Empty(t, next)
}

func TestDashboardAlert_NoPlan(t *testing.T) {
	t.Parallel()

	now := time.Now()
	assert.Empty(t, DashboardAlert(nil, "alice", now))

	failed := &model.CarePlanRecord{CarePlan: model.CarePlan{Error: "x"}, CreatedAt: now.AddDate(0, 0, -30)}
	assert.Empty(t, DashboardAlert(failed, "alice", now))
}

func timePtr(t time.Time) *time.Time { return &t }
