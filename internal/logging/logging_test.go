package logging

import (
	"bytes"
	"log"
	"os"
	"strings"
	"testing"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	flags := log.Flags()
	log.SetFlags(0)
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		log.SetFlags(flags)
	})
	return &buf
}

func withLevel(t *testing.T, l LogLevel) {
	t.Helper()
	prev := GetLevel()
	SetLevel(l)
	t.Cleanup(func() { SetLevel(prev) })
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in     string
		want   LogLevel
		wantOK bool
	}{
		{"debug", LevelDebug, true},
		{"INFO", LevelInfo, true},
		{"warn", LevelWarn, true},
		{"Warning", LevelWarn, true},
		{" error ", LevelError, true},
		{"", LevelInfo, false},
		{"verbose", LevelInfo, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLevel(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseLevel(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestLevelFromEnv(t *testing.T) {
	t.Setenv("DEBUG", "")
	t.Setenv("LOG_LEVEL", "error")
	if got := levelFromEnv(); got != LevelError {
		t.Errorf("levelFromEnv() = %v, want error", got)
	}

	t.Setenv("DEBUG", "true")
	if got := levelFromEnv(); got != LevelDebug {
		t.Errorf("levelFromEnv() with DEBUG=true = %v, want debug", got)
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := captureOutput(t)
	withLevel(t, LevelWarn)

	Debug("debug message")
	Info("info message")
	Warn("warn message")
	Error("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("messages below warn were logged: %q", out)
	}
	if !strings.Contains(out, "[WARN] warn message") {
		t.Errorf("missing warn line in %q", out)
	}
	if !strings.Contains(out, "[ERROR] error message") {
		t.Errorf("missing error line in %q", out)
	}
}

func TestComponentLogger(t *testing.T) {
	buf := captureOutput(t)
	withLevel(t, LevelDebug)

	lg := For("transcoder")
	lg.Debug("args %v", []string{"-y"})
	lg.Info("job %s done", "abc")

	out := buf.String()
	if !strings.Contains(out, "[DEBUG] [transcoder] args [-y]") {
		t.Errorf("missing debug line in %q", out)
	}
	if !strings.Contains(out, "[INFO] [transcoder] job abc done") {
		t.Errorf("missing info line in %q", out)
	}
}

func TestIsDebugEnabled(t *testing.T) {
	withLevel(t, LevelInfo)
	if IsDebugEnabled() {
		t.Error("IsDebugEnabled() = true at info level")
	}
	SetLevel(LevelDebug)
	if !IsDebugEnabled() {
		t.Error("IsDebugEnabled() = false at debug level")
	}
}

func TestLogLevelString(t *testing.T) {
	tests := map[LogLevel]string{
		LevelDebug:   "debug",
		LevelInfo:    "info",
		LevelWarn:    "warn",
		LevelError:   "error",
		LogLevel(42): "unknown(42)",
	}
	for l, want := range tests {
		if got := l.String(); got != want {
			t.Errorf("LogLevel(%d).String() = %q, want %q", int(l), got, want)
		}
	}
}
