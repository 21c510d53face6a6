// Package bootstrap builds the shared runtime pieces used by the server and
// the operator CLI from a loaded configuration.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/haircarepro/haircarepro/internal/config"
	"github.com/haircarepro/haircarepro/internal/metrics"
	"github.com/haircarepro/haircarepro/internal/notify"
	"github.com/haircarepro/haircarepro/internal/repository"
)

// SentryFlushTimeout bounds the flush on exit.
const SentryFlushTimeout = 2 * time.Second

// NewLogger builds the slog logger described by cfg and makes it the default.
func NewLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLogLevel(cfg.LogLevel)}

	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

// ParseLogLevel converts string log level to slog.Level.
func ParseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// InitSentry enables error reporting when SENTRY_DSN is set. The returned
// function flushes buffered events and is always safe to call.
func InitSentry(cfg *config.Config, logger *slog.Logger) func() {
	if cfg.SentryDSN == "" {
		return func() {}
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.SentryDSN,
		Environment: cfg.AppEnv,
	}); err != nil {
		logger.Error("sentry init failed", "error", err)
		return func() {}
	}
	logger.Info("sentry enabled", "env", cfg.AppEnv)
	return func() { sentry.Flush(SentryFlushTimeout) }
}

// OpenRepository connects to PostgreSQL, keeping credentials out of errors.
func OpenRepository(ctx context.Context, cfg *config.Config) (*repository.Repository, error) {
	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database %s: %s", RedactURL(cfg.DatabaseURL), SanitizeError(err, cfg.DatabaseURL))
	}
	return repo, nil
}

// NewNotifier builds the SMTP-backed notifier.
func NewNotifier(cfg *config.Config, logger *slog.Logger, recorder metrics.Recorder) *notify.Notifier {
	sender := notify.NewSMTPSender(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom(),
		FromName: notify.SenderName,
		// Plain SMTP is only acceptable against local relays.
		RequireTLS: cfg.IsProduction(),
	}, logger)
	return notify.NewNotifier(sender, logger, recorder)
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

// RedactURL strips the password from a connection URL.
func RedactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

// SanitizeError renders err with every secret URL redacted.
func SanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := RedactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
