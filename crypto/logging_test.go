package crypto

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	oldOut := logrus.StandardLogger().Out
	oldLevel := logrus.GetLevel()
	logrus.SetOutput(&buf)
	logrus.SetLevel(logrus.DebugLevel)
	t.Cleanup(func() {
		logrus.SetOutput(oldOut)
		logrus.SetLevel(oldLevel)
	})
	return &buf
}

func TestNewLogger(t *testing.T) {
	logger := NewLogger("TestFunction")
	if logger.fields["function"] != "TestFunction" {
		t.Errorf("expected function field TestFunction, got %v", logger.fields["function"])
	}
	if logger.fields["package"] != "crypto" {
		t.Errorf("expected package field crypto, got %v", logger.fields["package"])
	}
}

func TestLoggerHelper_WithError(t *testing.T) {
	buf := captureLogs(t)

	NewLogger("Unwrap").
		WithField("scheme", SchemeNaCl).
		WithError(errors.New("boom"), "unwrap", "box.OpenAnonymous").
		Error("Key unwrap failed")

	out := buf.String()
	for _, want := range []string{"function=Unwrap", "scheme=nacl", "error=boom", "error_type=unwrap", "Key unwrap failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
}

func TestLoggerHelper_Levels(t *testing.T) {
	buf := captureLogs(t)

	NewLogger("L").Debug("d")
	NewLogger("L").Info("i")
	NewLogger("L").Warn("w")

	out := buf.String()
	for _, want := range []string{"level=debug", "level=info", "level=warning"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q", want)
		}
	}
}
