package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/haircarepro/haircarepro/internal/metrics"
	"github.com/haircarepro/haircarepro/internal/model"
)

// Email texts.
const (
	SenderName         = "HairCare Pro"
	PlanSubject        = "Your HairCare Pro Prescription"
	PlanAttachmentName = "HairCare_Prescription.pdf"
	ReminderSubject    = "HairCare Reminder 💧"
)

// Notifier composes the application's emails and hands them to a Sender.
type Notifier struct {
	sender  Sender
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewNotifier creates a Notifier.
func NewNotifier(sender Sender, logger *slog.Logger, recorder metrics.Recorder) *Notifier {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Notifier{
		sender:  sender,
		logger:  logger.With("component", "notify.notifier"),
		metrics: recorder,
	}
}

// SendPlanEmail emails the rendered care plan at filePath to toEmail.
func (n *Notifier) SendPlanEmail(ctx context.Context, toEmail, username, filePath string) error {
	err := n.sender.Send(ctx, PlanMessage(toEmail, username, filePath))
	n.record(metrics.EmailPlan, err)
	if err != nil {
		return fmt.Errorf("send plan email: %w", err)
	}
	return nil
}

// SendReminderEmail emails a routine reminder for plan to user.
func (n *Notifier) SendReminderEmail(ctx context.Context, user *model.User, plan model.CarePlan) error {
	err := n.sender.Send(ctx, ReminderMessage(user.Email, user.Username, plan))
	n.record(metrics.EmailReminder, err)
	if err != nil {
		return fmt.Errorf("send reminder email: %w", err)
	}
	return nil
}

func (n *Notifier) record(kind string, err error) {
	if err != nil {
		n.metrics.IncEmailSent(kind, metrics.StatusFailed)
		return
	}
	n.metrics.IncEmailSent(kind, metrics.StatusSuccess)
}

// PlanMessage builds the email carrying a rendered care plan.
func PlanMessage(toEmail, username, filePath string) Message {
	return Message{
		To:      toEmail,
		Subject: PlanSubject,
		Body: fmt.Sprintf("Hi %s,\n\nAttached is your personalized hair care prescription.\n\nTake care,\nHairCare Pro",
			username),
		Attachment: &Attachment{Path: filePath, Name: PlanAttachmentName},
	}
}

// ReminderMessage builds a routine reminder listing the plan's wash frequency and tips.
func ReminderMessage(toEmail, username string, plan model.CarePlan) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", username)
	b.WriteString("This is your friendly reminder to follow your hair care routine!\n\n")
	fmt.Fprintf(&b, "Recommended wash frequency: %s\n\n", plan.WashFrequency)
	b.WriteString("Tips:\n")
	for _, tip := range plan.Tips {
		fmt.Fprintf(&b, "- %s\n", tip)
	}
	b.WriteString("\nTake care,\nHairCare Pro")

	return Message{
		To:      toEmail,
		Subject: ReminderSubject,
		Body:    b.String(),
	}
}
