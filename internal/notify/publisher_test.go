package notify

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/haircarepro/haircarepro/internal/metrics"
)

type chanMailer struct {
	calls chan PlanEmailJob
}

func (c *chanMailer) SendPlanEmail(_ context.Context, toEmail, username, filePath string) error {
	c.calls <- PlanEmailJob{Email: toEmail, Username: username, FilePath: filePath}
	return nil
}

func TestValidatePlanEmailJob(t *testing.T) {
	t.Parallel()

	valid := PlanEmailJob{PlanID: "p1", Email: "a@x.com", Username: "alice", FilePath: "/tmp/p.pdf", QueuedAt: 1}
	if err := ValidatePlanEmailJob(valid); err != nil {
		t.Fatalf("expected valid job, got %v", err)
	}

	cases := []struct {
		name string
		job  PlanEmailJob
	}{
		{"missing_email", PlanEmailJob{FilePath: "/tmp/p.pdf", QueuedAt: 1}},
		{"missing_file", PlanEmailJob{Email: "a@x.com", QueuedAt: 1}},
		{"missing_queued_at", PlanEmailJob{Email: "a@x.com", FilePath: "/tmp/p.pdf"}},
	}
	for _, tc := range cases {
		if err := ValidatePlanEmailJob(tc.job); err == nil {
			t.Errorf("expected error for %s", tc.name)
		}
	}
}

func TestParseJob(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		values     map[string]interface{}
		wantReason string
	}{
		{"missing payload", map[string]interface{}{}, "invalid_format"},
		{"bad json", map[string]interface{}{"payload": "{"}, "unmarshal_error"},
		{"invalid job", map[string]interface{}{"payload": `{"email":""}`}, "validation_error"},
		{"valid", map[string]interface{}{"payload": `{"email":"a@x.com","file_path":"/tmp/p.pdf","queued_at":5}`}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			job, reason, err := parseJob(redis.XMessage{ID: "1-0", Values: tt.values})
			assert.Equal(t, tt.wantReason, reason)
			if tt.wantReason == "" {
				assert.NoError(t, err)
				assert.Equal(t, "a@x.com", job.Email)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestPublisher_DispatchFallsBackWhenRedisDown(t *testing.T) {
	t.Parallel()

	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	mailer := &chanMailer{calls: make(chan PlanEmailJob, 1)}
	rec := metrics.NewInMemory()
	pub := NewPublisher(client, mailer, testLogger(), rec)

	pub.Dispatch(context.Background(), PlanEmailJob{PlanID: "p1", Email: "a@x.com", Username: "alice", FilePath: "/tmp/p.pdf"})

	select {
	case job := <-mailer.calls:
		assert.Equal(t, "a@x.com", job.Email)
		assert.Equal(t, "alice", job.Username)
		assert.Equal(t, "/tmp/p.pdf", job.FilePath)
	case <-time.After(5 * time.Second):
		t.Fatal("fallback send was not invoked")
	}

	assert.Equal(t, uint64(1), rec.Snapshot().EmailsFallback)
}

func TestIsConsumerGroupExistsError(t *testing.T) {
	t.Parallel()

	assert.False(t, isConsumerGroupExistsError(redis.Nil))
	assert.False(t, isConsumerGroupExistsError(nil))
	assert.True(t, isConsumerGroupExistsError(errString("BUSYGROUP Consumer Group name already exists")))
}

type errString string

func (e errString) Error() string { return string(e) }

type blockingMailer struct {
	started chan struct{}
	release chan struct{}
	result  chan error
}

func newBlockingMailer() *blockingMailer {
	return &blockingMailer{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
		result:  make(chan error, 1),
	}
}

func (b *blockingMailer) SendPlanEmail(ctx context.Context, _, _, _ string) error {
	b.started <- struct{}{}
	var err error
	select {
	case <-b.release:
	case <-ctx.Done():
		err = ctx.Err()
	}
	b.result <- err
	return err
}

func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

var aliceJob = PlanEmailJob{PlanID: "p1", Email: "a@x.com", Username: "alice", FilePath: "/tmp/p.pdf"}

func TestPublisher_ShutdownWaitsForDirectSend(t *testing.T) {
	t.Parallel()

	mailer := newBlockingMailer()
	pub := NewPublisher(unreachableRedis(t), mailer, testLogger(), nil)

	pub.Dispatch(context.Background(), aliceJob)
	<-mailer.started

	stopped := make(chan error, 1)
	go func() { stopped <- pub.Shutdown(context.Background()) }()

	select {
	case <-stopped:
		t.Fatal("shutdown returned while a send was in flight")
	case <-time.After(100 * time.Millisecond):
	}

	close(mailer.release)

	select {
	case err := <-stopped:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not return")
	}
	assert.NoError(t, <-mailer.result)
}

func TestPublisher_ShutdownDeadlineCancelsDirectSend(t *testing.T) {
	t.Parallel()

	mailer := newBlockingMailer()
	pub := NewPublisher(unreachableRedis(t), mailer, testLogger(), nil)

	pub.Dispatch(context.Background(), aliceJob)
	<-mailer.started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := pub.Shutdown(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, <-mailer.result, context.Canceled)
}

func TestPublisher_DispatchAfterShutdownSkipsDirectSend(t *testing.T) {
	t.Parallel()

	mailer := newBlockingMailer()
	pub := NewPublisher(unreachableRedis(t), mailer, testLogger(), nil)
	assert.NoError(t, pub.Shutdown(context.Background()))

	pub.Dispatch(context.Background(), aliceJob)

	select {
	case <-mailer.started:
		t.Fatal("direct send started after shutdown")
	case <-time.After(100 * time.Millisecond):
	}
}
