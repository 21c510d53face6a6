package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/haircarepro/haircarepro/internal/metrics"
)

const (
	// StreamKey is the Redis stream for queued plan emails.
	StreamKey = "stream:plan_emails"

	// DeadLetterStreamKey is the Redis stream for poison messages.
	DeadLetterStreamKey = "stream:plan_emails:dlq"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 10000

	// PublishTimeout is the max time to wait for Redis publish.
	PublishTimeout = 500 * time.Millisecond

	// FallbackSendTimeout bounds a direct send when the queue is unavailable.
	FallbackSendTimeout = 2 * time.Minute
)

// PlanEmailJob is the queued request to email a rendered care plan.
type PlanEmailJob struct {
	PlanID   string `json:"plan_id"`
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	FilePath string `json:"file_path"`
	QueuedAt int64  `json:"queued_at"` // Unix milliseconds
}

// ValidatePlanEmailJob checks that a job carries what the worker needs.
func ValidatePlanEmailJob(job PlanEmailJob) error {
	if job.Email == "" {
		return fmt.Errorf("email is required")
	}
	if job.FilePath == "" {
		return fmt.Errorf("file_path is required")
	}
	if job.QueuedAt <= 0 {
		return fmt.Errorf("queued_at must be set")
	}
	return nil
}

// PlanMailer sends a plan email directly.
type PlanMailer interface {
	SendPlanEmail(ctx context.Context, toEmail, username, filePath string) error
}

// Publisher enqueues plan email jobs to the Redis stream.
type Publisher struct {
	redis    *redis.Client
	fallback PlanMailer
	logger   *slog.Logger
	metrics  metrics.Recorder

	// Direct sends in flight; Shutdown waits for them.
	inflight sync.WaitGroup
	mu       sync.Mutex
	closed   bool
	stop     context.CancelFunc
	stopCtx  context.Context
}

// NewPublisher creates a Publisher. fallback sends directly when the stream
// is unreachable; nil drops the job with a log line instead.
func NewPublisher(client *redis.Client, fallback PlanMailer, logger *slog.Logger, recorder metrics.Recorder) *Publisher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	stopCtx, stop := context.WithCancel(context.Background())
	return &Publisher{
		redis:    client,
		fallback: fallback,
		logger:   logger.With("component", "notify.publisher"),
		metrics:  recorder,
		stopCtx:  stopCtx,
		stop:     stop,
	}
}

// Publish adds a job to the stream synchronously.
func (p *Publisher) Publish(ctx context.Context, job PlanEmailJob) (string, error) {
	if job.QueuedAt == 0 {
		job.QueuedAt = time.Now().UnixMilli()
	}

	data, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("marshal job: %w", err)
	}

	result, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"payload": string(data),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}

	return result, nil
}

// Dispatch queues job without waiting on SMTP. When the stream is
// unreachable the email is sent from a detached goroutine instead.
func (p *Publisher) Dispatch(ctx context.Context, job PlanEmailJob) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), PublishTimeout)
	defer cancel()

	streamID, err := p.Publish(pubCtx, job)
	if err == nil {
		p.logger.Debug("plan email queued",
			"plan_id", job.PlanID,
			"stream_id", streamID,
		)
		p.metrics.IncEmailQueued(metrics.StatusSuccess)
		return
	}

	p.logger.Warn("failed to queue plan email, sending directly",
		"plan_id", job.PlanID,
		"error", err,
	)
	p.metrics.IncEmailQueued("fallback")

	if p.fallback == nil {
		p.logger.Error("plan email dropped", "plan_id", job.PlanID, "reason", "no_fallback")
		return
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.logger.Error("plan email dropped", "plan_id", job.PlanID, "reason", "shutting_down")
		return
	}
	p.inflight.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.inflight.Done()

		sendCtx, cancel := context.WithTimeout(p.stopCtx, FallbackSendTimeout)
		defer cancel()

		if err := p.fallback.SendPlanEmail(sendCtx, job.Email, job.Username, job.FilePath); err != nil {
			if p.stopCtx.Err() != nil {
				p.logger.Error("plan email dropped", "plan_id", job.PlanID, "reason", "shutdown_deadline", "error", err)
				return
			}
			p.logger.Error("direct plan email failed",
				"plan_id", job.PlanID,
				"error", err,
			)
		}
	}()
}

// Shutdown refuses new direct sends and waits for those in flight. When ctx
// expires first, the remaining sends are cancelled and ctx's error returned.
func (p *Publisher) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.stop()
		return nil
	case <-ctx.Done():
		p.stop()
		<-done
		return ctx.Err()
	}
}
