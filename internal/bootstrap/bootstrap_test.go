package bootstrap

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/haircarepro/haircarepro/internal/config"
)

func TestRedactURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"postgres with password", "postgres://app:s3cret@db:5432/haircare", "postgres://app@db:5432/haircare"},
		{"redis password only", "redis://:s3cret@localhost:6379", "redis://redacted@localhost:6379"},
		{"no credentials", "redis://localhost:6379", "redis://localhost:6379"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RedactURL(tt.in); got != tt.want {
				t.Errorf("RedactURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeError(t *testing.T) {
	secret := "postgres://app:s3cret@db:5432/haircare"
	err := errors.New("dial " + secret + " failed: password=s3cret rejected")

	got := SanitizeError(err, secret)
	if strings.Contains(got, "s3cret") {
		t.Errorf("sanitized error still contains secret: %s", got)
	}
	if !strings.Contains(got, "postgres://app@db:5432/haircare") {
		t.Errorf("expected redacted URL in %s", got)
	}

	if SanitizeError(nil, secret) != "" {
		t.Error("expected empty string for nil error")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLogger_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&config.Config{LogLevel: "info", LogFormat: "json"}, &buf)
	logger.Info("hello", "component", "test")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Errorf("expected JSON output, got %s", buf.String())
	}

	buf.Reset()
	logger = NewLogger(&config.Config{LogLevel: "warn", LogFormat: "text"}, &buf)
	logger.Info("suppressed")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "suppressed") || !strings.Contains(buf.String(), "msg=shown") {
		t.Errorf("unexpected text output: %s", buf.String())
	}
}

func TestInitSentry_DisabledWithoutDSN(t *testing.T) {
	var buf bytes.Buffer
	flush := InitSentry(&config.Config{}, slog.New(slog.NewTextHandler(&buf, nil)))
	flush()
	if buf.Len() != 0 {
		t.Errorf("expected no log output, got %s", buf.String())
	}
}
