package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/haircarepro/haircarepro/internal/metrics"
)

const (
	// ConsumerGroup is the Redis consumer group name.
	ConsumerGroup = "plan_email_workers"

	// DefaultBatchSize is the max jobs read per poll.
	DefaultBatchSize = 10

	// DefaultBlockTimeout is how long to block waiting for messages.
	DefaultBlockTimeout = 5 * time.Second

	// DefaultMaxDeliveries is how often a job is attempted before dead-lettering.
	DefaultMaxDeliveries = 5

	// DefaultClaimInterval is how often to scan pending messages.
	DefaultClaimInterval = 30 * time.Second

	// DefaultClaimIdle is the idle time before reclaiming pending messages.
	DefaultClaimIdle = 2 * time.Minute

	// DefaultMetricsInterval is how often to refresh queue depth metrics.
	DefaultMetricsInterval = 15 * time.Second
)

// Worker sends queued plan emails.
type Worker struct {
	redis           *redis.Client
	mailer          PlanMailer
	logger          *slog.Logger
	metrics         metrics.Recorder
	consumerID      string
	batchSize       int
	blockTimeout    time.Duration
	maxDeliveries   int64
	claimInterval   time.Duration
	claimIdle       time.Duration
	metricsInterval time.Duration
	claimStartID    string
	lastClaim       time.Time
	lastMetrics     time.Time

	started  bool
	draining bool
	cancel   context.CancelFunc
	done     chan struct{}
	mu       sync.Mutex
}

// NewWorker creates a plan email worker.
func NewWorker(client *redis.Client, mailer PlanMailer, logger *slog.Logger, consumerID string, recorder metrics.Recorder) *Worker {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Worker{
		redis:           client,
		mailer:          mailer,
		logger:          logger.With("component", "notify.worker", "consumer_id", consumerID),
		metrics:         recorder,
		consumerID:      consumerID,
		batchSize:       DefaultBatchSize,
		blockTimeout:    DefaultBlockTimeout,
		maxDeliveries:   DefaultMaxDeliveries,
		claimInterval:   DefaultClaimInterval,
		claimIdle:       DefaultClaimIdle,
		metricsInterval: DefaultMetricsInterval,
		claimStartID:    "0-0",
	}
}

// Run starts the worker loop. Blocks until context is cancelled or Shutdown is called.
func (w *Worker) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return errors.New("worker already started")
	}
	w.started = true
	w.done = make(chan struct{})
	ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	defer close(w.done)

	if err := w.ensureConsumerGroup(ctx); err != nil {
		return fmt.Errorf("ensure consumer group: %w", err)
	}

	w.logger.Info("email worker started")

	for {
		w.mu.Lock()
		draining := w.draining
		w.mu.Unlock()

		if draining {
			w.logger.Info("email worker draining, stopping")
			return nil
		}

		select {
		case <-ctx.Done():
			w.logger.Info("email worker stopping")
			return nil
		default:
			if err := w.processOnce(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				w.logger.Error("process error", "error", err)
				time.Sleep(1 * time.Second)
			}
		}
	}
}

// Shutdown stops the worker after the in-flight send.
// It implements server.ShutdownFunc.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return nil
	}
	w.draining = true
	cancel := w.cancel
	done := w.done
	w.mu.Unlock()

	w.logger.Info("email worker shutdown initiated")

	if cancel != nil {
		cancel()
	}

	if done != nil {
		select {
		case <-done:
			w.logger.Info("email worker shutdown complete")
			return nil
		case <-ctx.Done():
			w.logger.Warn("email worker shutdown timed out")
			return ctx.Err()
		}
	}
	return nil
}

func (w *Worker) ensureConsumerGroup(ctx context.Context) error {
	err := w.redis.XGroupCreateMkStream(ctx, StreamKey, ConsumerGroup, "0").Err()
	if err != nil && !isConsumerGroupExistsError(err) {
		return err
	}
	return nil
}

// processOnce reclaims or reads a batch and sends each job in order.
func (w *Worker) processOnce(ctx context.Context) error {
	w.maybeUpdateQueueDepth(ctx)

	claimed, err := w.maybeClaimPending(ctx)
	if err != nil {
		w.logger.Warn("failed to claim pending messages", "error", err)
	}

	messages := claimed
	if len(messages) == 0 {
		messages, err = w.readBatch(ctx)
		if err != nil {
			return err
		}
	} else {
		messages = w.dropExhausted(ctx, messages)
	}

	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			return err
		}
		w.handleMessage(ctx, msg)
	}

	return nil
}

// handleMessage sends one job. Successful and poison messages are acked;
// failed sends stay pending and are reclaimed after claimIdle.
func (w *Worker) handleMessage(ctx context.Context, msg redis.XMessage) {
	job, reason, err := parseJob(msg)
	if err != nil {
		w.deadLetterMessage(ctx, msg, reason, err.Error())
		w.ack(ctx, msg.ID)
		return
	}

	start := time.Now()
	if err := w.mailer.SendPlanEmail(ctx, job.Email, job.Username, job.FilePath); err != nil {
		w.logger.Error("plan email failed, will retry",
			"message_id", msg.ID,
			"plan_id", job.PlanID,
			"error", err,
		)
		return
	}

	w.logger.Info("plan email delivered",
		"message_id", msg.ID,
		"plan_id", job.PlanID,
		"duration_ms", float64(time.Since(start).Microseconds())/1000,
		"queue_lag_ms", time.Since(time.UnixMilli(job.QueuedAt)).Milliseconds(),
	)
	w.ack(ctx, msg.ID)
}

// parseJob decodes a stream message. The returned reason labels failures.
func parseJob(msg redis.XMessage) (PlanEmailJob, string, error) {
	payload, ok := msg.Values["payload"].(string)
	if !ok {
		return PlanEmailJob{}, "invalid_format", errors.New("payload field missing or not a string")
	}

	var job PlanEmailJob
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		return PlanEmailJob{}, "unmarshal_error", err
	}
	if err := ValidatePlanEmailJob(job); err != nil {
		return PlanEmailJob{}, "validation_error", err
	}
	return job, "", nil
}

// dropExhausted dead-letters reclaimed messages that reached maxDeliveries.
func (w *Worker) dropExhausted(ctx context.Context, messages []redis.XMessage) []redis.XMessage {
	if w.maxDeliveries <= 0 {
		return messages
	}

	kept := messages[:0]
	for _, msg := range messages {
		pending, err := w.redis.XPendingExt(ctx, &redis.XPendingExtArgs{
			Stream: StreamKey,
			Group:  ConsumerGroup,
			Start:  msg.ID,
			End:    msg.ID,
			Count:  1,
		}).Result()
		if err != nil || len(pending) == 0 {
			kept = append(kept, msg)
			continue
		}
		if pending[0].RetryCount > w.maxDeliveries {
			w.deadLetterMessage(ctx, msg, "max_deliveries", fmt.Sprintf("delivered %d times", pending[0].RetryCount))
			w.ack(ctx, msg.ID)
			continue
		}
		kept = append(kept, msg)
	}
	return kept
}

func (w *Worker) maybeClaimPending(ctx context.Context) ([]redis.XMessage, error) {
	if w.claimInterval <= 0 || w.claimIdle <= 0 {
		return nil, nil
	}
	if !w.lastClaim.IsZero() && time.Since(w.lastClaim) < w.claimInterval {
		return nil, nil
	}

	w.lastClaim = time.Now()
	messages, start, err := w.redis.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   StreamKey,
		Group:    ConsumerGroup,
		Consumer: w.consumerID,
		MinIdle:  w.claimIdle,
		Start:    w.claimStartID,
		Count:    int64(w.batchSize),
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("xautoclaim: %w", err)
	}
	if start != "" {
		w.claimStartID = start
	}
	return messages, nil
}

func (w *Worker) maybeUpdateQueueDepth(ctx context.Context) {
	if w.metricsInterval <= 0 {
		return
	}
	if !w.lastMetrics.IsZero() && time.Since(w.lastMetrics) < w.metricsInterval {
		return
	}
	w.lastMetrics = time.Now()

	groups, err := w.redis.XInfoGroups(ctx, StreamKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		w.logger.Warn("failed to read stream group info", "error", err)
		return
	}
	for _, group := range groups {
		if group.Name == ConsumerGroup {
			w.metrics.SetEmailQueueDepth(group.Pending + group.Lag)
			return
		}
	}
}

// SetBlockTimeout overrides the default blocking timeout.
func (w *Worker) SetBlockTimeout(timeout time.Duration) {
	if timeout > 0 {
		w.blockTimeout = timeout
	}
}

// SetClaimInterval overrides the default pending-claim interval.
func (w *Worker) SetClaimInterval(interval time.Duration) {
	if interval > 0 {
		w.claimInterval = interval
	}
}

// SetClaimIdle overrides the default pending idle threshold.
func (w *Worker) SetClaimIdle(idle time.Duration) {
	if idle > 0 {
		w.claimIdle = idle
	}
}

// SetMaxDeliveries overrides how many attempts a job gets.
func (w *Worker) SetMaxDeliveries(n int64) {
	if n > 0 {
		w.maxDeliveries = n
	}
}

func (w *Worker) readBatch(ctx context.Context) ([]redis.XMessage, error) {
	streams, err := w.redis.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    ConsumerGroup,
		Consumer: w.consumerID,
		Streams:  []string{StreamKey, ">"},
		Count:    int64(w.batchSize),
		Block:    w.blockTimeout,
	}).Result()

	if errors.Is(err, redis.Nil) || len(streams) == 0 {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup: %w", err)
	}

	return streams[0].Messages, nil
}

// deadLetterMessage copies a poison message to the dead-letter stream.
func (w *Worker) deadLetterMessage(ctx context.Context, msg redis.XMessage, reason, detail string) {
	w.logger.Warn("dead-lettering poison message",
		"message_id", msg.ID,
		"reason", reason,
		"detail", detail,
	)

	_, err := w.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: DeadLetterStreamKey,
		MaxLen: 1000,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"original_id":      msg.ID,
			"original_stream":  StreamKey,
			"reason":           reason,
			"detail":           detail,
			"payload":          msg.Values["payload"],
			"dead_lettered_at": time.Now().UTC().Format(time.RFC3339),
		},
	}).Result()
	if err != nil {
		w.logger.Error("failed to write to dead-letter queue",
			"message_id", msg.ID,
			"error", err,
		)
	}

	w.metrics.IncEmailSent(metrics.EmailPlan, "dead_lettered")
}

func (w *Worker) ack(ctx context.Context, id string) {
	if err := w.redis.XAck(ctx, StreamKey, ConsumerGroup, id).Err(); err != nil {
		w.logger.Error("xack failed", "message_id", id, "error", err)
	}
}

// isConsumerGroupExistsError checks if the error is "BUSYGROUP" (group exists).
func isConsumerGroupExistsError(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}
