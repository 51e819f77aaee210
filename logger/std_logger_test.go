package logger

import (
	"bytes"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jathurchan/rtiexec/types"
)

func newBufferLogger(level string) (Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewStdLoggerTo(log.New(&buf, "", 0), level), &buf
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"fatal", LevelFatal},
		{"unknown", LevelInfo},
		{"", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.input))
		})
	}
	assert.Equal(t, "LEVEL(9)", LogLevel(9).String())
}

func TestStdLogger_LogLevels(t *testing.T) {
	tests := []struct {
		name     string
		minLevel string
		logFunc  func(Logger)
		expected string
	}{
		{"debug at debug", "debug", func(l Logger) { l.Debugw("grant") }, "[DEBUG] grant\n"},
		{"debug at info", "info", func(l Logger) { l.Debugw("grant") }, ""},
		{"info at info", "info", func(l Logger) { l.Infow("grant") }, "[INFO] grant\n"},
		{"info at warn", "warn", func(l Logger) { l.Infow("grant") }, ""},
		{"warn at warn", "warn", func(l Logger) { l.Warnw("grant") }, "[WARN] grant\n"},
		{"error at fatal", "fatal", func(l Logger) { l.Errorw("grant") }, ""},
		{"error at error", "error", func(l Logger) { l.Errorw("grant") }, "[ERROR] grant\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, buf := newBufferLogger(tt.minLevel)
			tt.logFunc(l)
			assert.Equal(t, tt.expected, buf.String())
		})
	}
}

func TestStdLogger_KeyValues(t *testing.T) {
	l, buf := newBufferLogger("debug")

	l.Infow("advance", "time", 5, "mode", "Exact", "dangling")
	assert.Equal(t, "[INFO] advance time=5 mode=Exact\n", buf.String())

	buf.Reset()
	l.Infow("advance", 42, "ignored", "ok", true)
	assert.Equal(t, "[INFO] advance ok=true\n", buf.String(), "non-string keys are skipped")
}

func TestStdLogger_FormatsValues(t *testing.T) {
	l, buf := newBufferLogger("debug")

	l.Warnw("request refused",
		"federate", types.FederateHandle(4),
		"tag", []byte("abc"),
		"error", errors.New("attribute not owned"),
		"name", "",
		"expr", "a=b",
		"owner", nil)
	assert.Equal(t,
		`[WARN] request refused federate=4 tag=<3 bytes> error="attribute not owned" name="" expr="a=b" owner=<nil>`+"\n",
		buf.String())
}

func TestStdLogger_ContextOrderAndInheritance(t *testing.T) {
	base, buf := newBufferLogger("debug")
	l := base.With("zone", "a").
		WithFederate(types.FederateHandle(3)).
		WithComponent("timekeeper").
		WithFederation(types.FederationID("fed-1"))

	l.Infow("granted", "time", 7)
	assert.Equal(t, "[INFO] granted component=timekeeper federation=fed-1 federate=3 zone=a time=7\n", buf.String(),
		"executor context keys lead in a fixed order")

	buf.Reset()
	l.WithFederate(5).Infow("granted")
	assert.Equal(t, "[INFO] granted component=timekeeper federation=fed-1 federate=5 zone=a\n", buf.String(),
		"re-tagging replaces the federate")

	buf.Reset()
	base.Infow("granted")
	assert.Equal(t, "[INFO] granted\n", buf.String(), "enrichment must not leak into the parent")
}

func TestNewStdLogger_UsesStandardLog(t *testing.T) {
	var buf bytes.Buffer
	prevOut, prevFlags := log.Writer(), log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	defer func() {
		log.SetOutput(prevOut)
		log.SetFlags(prevFlags)
	}()

	NewStdLogger("info").WithComponent("server").Infow("listening", "addr", ":7000")
	assert.Equal(t, "[INFO] listening component=server addr=:7000\n", buf.String())
}
