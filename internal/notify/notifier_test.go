package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haircarepro/haircarepro/internal/metrics"
	"github.com/haircarepro/haircarepro/internal/model"
)

type captureSender struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (c *captureSender) Send(_ context.Context, msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, msg)
	return nil
}

func (c *captureSender) messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.sent...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifier_SendPlanEmail(t *testing.T) {
	t.Parallel()

	sender := &captureSender{}
	rec := metrics.NewInMemory()
	n := NewNotifier(sender, testLogger(), rec)

	require.NoError(t, n.SendPlanEmail(context.Background(), "a@x.com", "alice", "/tmp/plan.pdf"))

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	msg := msgs[0]
	assert.Equal(t, "a@x.com", msg.To)
	assert.Equal(t, "Your HairCare Pro Prescription", msg.Subject)
	assert.Equal(t, "Hi alice,\n\nAttached is your personalized hair care prescription.\n\nTake care,\nHairCare Pro", msg.Body)
	require.NotNil(t, msg.Attachment)
	assert.Equal(t, "/tmp/plan.pdf", msg.Attachment.Path)
	assert.Equal(t, "HairCare_Prescription.pdf", msg.Attachment.Name)

	assert.Equal(t, uint64(1), rec.Snapshot().EmailsSent[metrics.EmailPlan][metrics.StatusSuccess])
}

func TestNotifier_SendReminderEmail(t *testing.T) {
	t.Parallel()

	sender := &captureSender{}
	n := NewNotifier(sender, testLogger(), nil)

	user := &model.User{Username: "alice", Email: "a@x.com"}
	plan := model.CarePlan{WashFrequency: "2-3 times/week", Tips: []string{"Use a silk pillowcase", "Deep condition weekly"}}

	require.NoError(t, n.SendReminderEmail(context.Background(), user, plan))

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "HairCare Reminder 💧", msgs[0].Subject)
	assert.Nil(t, msgs[0].Attachment)
	assert.Equal(t,
		"Hi alice,\n\nThis is your friendly reminder to follow your hair care routine!\n\n"+
			"Recommended wash frequency: 2-3 times/week\n\n"+
			"Tips:\n- Use a silk pillowcase\n- Deep condition weekly\n\n"+
			"Take care,\nHairCare Pro",
		msgs[0].Body)
}

func TestNotifier_ErrorsPropagate(t *testing.T) {
	t.Parallel()

	smtpErr := errors.New("535 authentication failed")
	sender := &captureSender{err: smtpErr}
	rec := metrics.NewInMemory()
	n := NewNotifier(sender, testLogger(), rec)

	err := n.SendPlanEmail(context.Background(), "a@x.com", "alice", "/tmp/p.pdf")
	assert.ErrorIs(t, err, smtpErr)

	err = n.SendReminderEmail(context.Background(), &model.User{Email: "a@x.com"}, model.CarePlan{})
	assert.ErrorIs(t, err, smtpErr)

	snap := rec.Snapshot()
	assert.Equal(t, uint64(1), snap.EmailsSent[metrics.EmailPlan][metrics.StatusFailed])
	assert.Equal(t, uint64(1), snap.EmailsSent[metrics.EmailReminder][metrics.StatusFailed])
}
