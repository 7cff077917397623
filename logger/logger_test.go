package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestLoggerCarriesChatID(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{ServiceName: "order-bot", Level: zerolog.DebugLevel, Output: &buf})

	ctx := l.WithChatID(context.Background(), 42)
	l.Info(ctx, "event handled", "stage", "start")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("unmarshal log line: %v (%s)", err, buf.String())
	}
	if line["service"] != "order-bot" {
		t.Errorf("service = %v, want order-bot", line["service"])
	}
	if line["chat_id"] != float64(42) {
		t.Errorf("chat_id = %v, want 42", line["chat_id"])
	}
	if line["stage"] != "start" {
		t.Errorf("stage = %v, want start", line["stage"])
	}
}

func TestLoggerErrorIncludesStack(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{ServiceName: "order-bot", Output: &buf})

	l.Error(context.Background(), "step failed", errors.New("boom"))

	out := buf.String()
	if !strings.Contains(out, `"error":"boom"`) {
		t.Errorf("missing error field: %s", out)
	}
	if !strings.Contains(out, `"stack"`) {
		t.Errorf("missing stack field: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"", zerolog.InfoLevel},
		{"debug", zerolog.DebugLevel},
		{" WARN ", zerolog.WarnLevel},
		{"nonsense", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	l.Info(context.Background(), "ignored")
	l.Warn(context.Background(), "ignored", errors.New("x"))
}

func TestLoggerCarriesStage(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{ServiceName: "order-bot", Output: &buf})

	ctx := l.WithStage(l.WithChatID(context.Background(), 7), "choosing_payment")
	l.Warn(ctx, "delivery failed", errors.New("blocked"))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("unmarshal log line: %v (%s)", err, buf.String())
	}
	if line["stage"] != "choosing_payment" || line["chat_id"] != float64(7) {
		t.Errorf("context fields = %v", line)
	}
}
