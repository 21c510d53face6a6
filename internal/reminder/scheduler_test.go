package reminder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haircarepro/haircarepro/internal/metrics"
	"github.com/haircarepro/haircarepro/internal/model"
	"github.com/haircarepro/haircarepro/internal/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeStore struct {
	plans   []*model.PlanWithUser
	listErr error
	markErr error
	marked  map[string]time.Time
}

func (f *fakeStore) ListCarePlansWithUsers(ctx context.Context) ([]*model.PlanWithUser, error) {
	return f.plans, f.listErr
}

func (f *fakeStore) MarkReminderSent(ctx context.Context, id string, at time.Time) error {
	if f.markErr != nil {
		return f.markErr
	}
	if f.marked == nil {
		f.marked = make(map[string]time.Time)
	}
	f.marked[id] = at
	return nil
}

type fakeMailer struct {
	sent    []string
	failFor map[string]bool
}

func (f *fakeMailer) SendReminderEmail(ctx context.Context, user *model.User, plan model.CarePlan) error {
	if f.failFor[user.Email] {
		return errors.New("smtp unavailable")
	}
	f.sent = append(f.sent, user.Email)
	return nil
}

var runAt = time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

func planFor(t *testing.T, id, email, freq string, lastSent *time.Time, created time.Time) *model.PlanWithUser {
	t.Helper()
	user := testutil.NewTestUser(t, id)
	user.Email = email
	return &model.PlanWithUser{
		Record: &model.CarePlanRecord{
			ID:               id,
			UserID:           user.ID,
			CarePlan:         testutil.NewTestCarePlan(freq),
			CreatedAt:        created,
			LastReminderSent: lastSent,
		},
		User: user,
	}
}

func ago(days int) *time.Time {
	t := runAt.Add(-time.Duration(days) * Day)
	return &t
}

func TestRunOnce_DueAndNotDue(t *testing.T) {
	t.Parallel()

	created := runAt.Add(-30 * Day)
	store := &fakeStore{plans: []*model.PlanWithUser{
		planFor(t, "due", "due@example.com", "2-3 times/week", ago(4), created),
		planFor(t, "recent", "recent@example.com", "2-3 times/week", ago(2), created),
	}}
	mailer := &fakeMailer{}
	rec := metrics.NewInMemory()
	s := NewScheduler(store, mailer, testLogger(), rec)

	result, err := s.RunOnce(context.Background(), runAt)
	require.NoError(t, err)

	assert.Equal(t, RunResult{Scanned: 2, Skipped: 1, Sent: 1}, result)
	assert.Equal(t, []string{"due@example.com"}, mailer.sent)
	assert.Equal(t, runAt, store.marked["due"])
	_, stamped := store.marked["recent"]
	assert.False(t, stamped)

	snap := rec.Snapshot()
	assert.Equal(t, uint64(1), snap.ReminderRuns)
	assert.Equal(t, uint64(1), snap.RemindersSent)
}

func TestRunOnce_UsesCreatedAtWhenNeverSent(t *testing.T) {
	t.Parallel()

	store := &fakeStore{plans: []*model.PlanWithUser{
		planFor(t, "old", "old@example.com", "1 times/week", nil, runAt.Add(-7*Day)),
		planFor(t, "new", "new@example.com", "1 times/week", nil, runAt.Add(-6*Day)),
	}}
	mailer := &fakeMailer{}
	s := NewScheduler(store, mailer, testLogger(), nil)

	result, err := s.RunOnce(context.Background(), runAt)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Sent)
	assert.Equal(t, []string{"old@example.com"}, mailer.sent)
}

func TestRunOnce_Skips(t *testing.T) {
	t.Parallel()

	created := runAt.Add(-30 * Day)
	orphan := planFor(t, "orphan", "x@example.com", "2-3 times/week", nil, created)
	orphan.User = nil

	store := &fakeStore{plans: []*model.PlanWithUser{
		orphan,
		planFor(t, "noemail", "", "2-3 times/week", nil, created),
		planFor(t, "unparsable", "u@example.com", "every other day", nil, created),
		planFor(t, "zero", "z@example.com", "0 times/week", nil, created),
	}}
	mailer := &fakeMailer{}
	s := NewScheduler(store, mailer, testLogger(), nil)

	result, err := s.RunOnce(context.Background(), runAt)
	require.NoError(t, err)
	assert.Equal(t, RunResult{Scanned: 4, Skipped: 4}, result)
	assert.Empty(t, mailer.sent)
	assert.Empty(t, store.marked)
}

func TestRunOnce_SendFailureContinues(t *testing.T) {
	t.Parallel()

	created := runAt.Add(-30 * Day)
	store := &fakeStore{plans: []*model.PlanWithUser{
		planFor(t, "a", "fail@example.com", "2-3 times/week", nil, created),
		planFor(t, "b", "ok@example.com", "2-3 times/week", nil, created),
	}}
	mailer := &fakeMailer{failFor: map[string]bool{"fail@example.com": true}}
	s := NewScheduler(store, mailer, testLogger(), nil)

	result, err := s.RunOnce(context.Background(), runAt)
	require.NoError(t, err)
	assert.Equal(t, RunResult{Scanned: 2, Sent: 1, Failed: 1}, result)
	assert.Equal(t, []string{"ok@example.com"}, mailer.sent)
	_, stamped := store.marked["a"]
	assert.False(t, stamped, "failed send must not be stamped")
}

func TestRunOnce_StampFailureCountsAsFailed(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		plans:   []*model.PlanWithUser{planFor(t, "a", "a@example.com", "2-3 times/week", nil, runAt.Add(-10*Day))},
		markErr: errors.New("db down"),
	}
	mailer := &fakeMailer{}
	s := NewScheduler(store, mailer, testLogger(), nil)

	result, err := s.RunOnce(context.Background(), runAt)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, []string{"a@example.com"}, mailer.sent, "send happens before the stamp")
}

func TestRunOnce_SinglePassPerRecord(t *testing.T) {
	t.Parallel()

	p := planFor(t, "dup", "dup@example.com", "2-3 times/week", ago(5), runAt.Add(-30*Day))
	store := &fakeStore{plans: []*model.PlanWithUser{p}}
	mailer := &fakeMailer{}
	s := NewScheduler(store, mailer, testLogger(), nil)

	_, err := s.RunOnce(context.Background(), runAt)
	require.NoError(t, err)
	assert.Len(t, mailer.sent, 1)
	require.NotNil(t, p.Record.LastReminderSent)
	assert.Equal(t, runAt, *p.Record.LastReminderSent)

	// A second pass at the same instant sees the fresh stamp.
	result, err := s.RunOnce(context.Background(), runAt)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Sent)
	assert.Len(t, mailer.sent, 1)
}

func TestRunOnce_ListError(t *testing.T) {
	t.Parallel()

	s := NewScheduler(&fakeStore{listErr: errors.New("db down")}, &fakeMailer{}, testLogger(), nil)
	_, err := s.RunOnce(context.Background(), runAt)
	assert.Error(t, err)
}

func TestScheduler_StartShutdown(t *testing.T) {
	t.Parallel()

	s := NewScheduler(&fakeStore{}, &fakeMailer{}, testLogger(), nil)
	require.NoError(t, s.Start())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Shutdown(ctx))
}

func TestScheduler_ShutdownWithoutStart(t *testing.T) {
	t.Parallel()

	s := NewScheduler(&fakeStore{}, &fakeMailer{}, testLogger(), nil)
	assert.NoError(t, s.Shutdown(context.Background()))
}
