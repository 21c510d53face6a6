// Package notify sends care-plan and reminder emails and queues plan emails
// on a Redis stream so HTTP handlers never wait on SMTP.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"
)

// DefaultSendTimeout bounds a single SMTP exchange.
const DefaultSendTimeout = 60 * time.Second

// ErrNoRecipient is returned for messages without a To address.
var ErrNoRecipient = errors.New("message has no recipient")

// Attachment is a file attached to a Message.
type Attachment struct {
	Path string // file on disk
	Name string // file name shown to the recipient
}

// Message is a plain-text email.
type Message struct {
	To         string
	Subject    string
	Body       string
	Attachment *Attachment
}

// Sender delivers a Message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig configures SMTPSender.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	// Mandatory TLS refuses servers without STARTTLS.
	RequireTLS bool
}

// SMTPSender sends mail through an SMTP relay. It opens a fresh connection
// per message and keeps no pool.
type SMTPSender struct {
	cfg    SMTPConfig
	logger *slog.Logger
}

// NewSMTPSender creates an SMTPSender.
func NewSMTPSender(cfg SMTPConfig, logger *slog.Logger) *SMTPSender {
	return &SMTPSender{
		cfg:    cfg,
		logger: logger.With("component", "notify.smtp"),
	}
}

// Send builds msg and delivers it.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m, err := s.buildMsg(msg)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(s.cfg.Host, s.clientOptions()...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultSendTimeout)
	defer cancel()

	start := time.Now()
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	s.logger.Info("email sent",
		"subject", msg.Subject,
		"attachment", msg.Attachment != nil,
		"duration_ms", float64(time.Since(start).Microseconds())/1000,
	)
	return nil
}

func (s *SMTPSender) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTimeout(DefaultSendTimeout),
	}
	if s.cfg.RequireTLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	return opts
}

// buildMsg converts a Message into a go-mail message.
func (s *SMTPSender) buildMsg(msg Message) (*mail.Msg, error) {
	if msg.To == "" {
		return nil, ErrNoRecipient
	}

	m := mail.NewMsg()
	if err := m.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
		return nil, fmt.Errorf("set from %q: %w", s.cfg.From, err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("set recipient: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)

	if msg.Attachment != nil {
		m.AttachFile(msg.Attachment.Path, mail.WithFileName(msg.Attachment.Name))
	}

	return m, nil
}
