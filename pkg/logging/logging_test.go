package logging

import (
	"bytes"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		env     string
		verbose bool
		want    zapcore.Level
	}{
		{"", false, zapcore.InfoLevel},
		{"warn", false, zapcore.WarnLevel},
		{"debug", false, zapcore.DebugLevel},
		{"loud", false, zapcore.InfoLevel},
		{"error", true, zapcore.DebugLevel},
	}
	for _, tc := range tests {
		t.Run(tc.env, func(t *testing.T) {
			t.Setenv("ENVE_LOGDISABLED", "1")
			t.Setenv("VG_LOG_LEVEL", tc.env)
			if got := Level(tc.verbose); got != tc.want {
				t.Errorf("Level(%v) with %q = %v, want %v", tc.verbose, tc.env, got, tc.want)
			}
		})
	}
}

func TestNewWithWriter(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("vgtest", &buf, zapcore.InfoLevel)
	log.Debug("hidden")
	log.Info("assembled", zap.Int("size", 12))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug entry written at info level:\n%s", out)
	}
	for _, want := range []string{"assembled", `"app": "vgtest"`, `"run_id": "`, `"size": 12`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunIDsDiffer(t *testing.T) {
	var a, b bytes.Buffer
	NewWithWriter("x", &a, zapcore.InfoLevel).Info("m")
	NewWithWriter("x", &b, zapcore.InfoLevel).Info("m")
	if runID(a.String()) == runID(b.String()) {
		t.Error("two loggers share a run id")
	}
}

func runID(line string) string {
	_, rest, _ := strings.Cut(line, `"run_id": "`)
	id, _, _ := strings.Cut(rest, `"`)
	return id
}
