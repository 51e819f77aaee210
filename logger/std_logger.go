package logger

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/jathurchan/rtiexec/types"
)

// LogLevel represents the severity of a log message.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var levelNames = [...]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
	LevelFatal: "FATAL",
}

func (l LogLevel) String() string {
	if l >= LevelDebug && l <= LevelFatal {
		return levelNames[l]
	}
	return "LEVEL(" + strconv.Itoa(int(l)) + ")"
}

// parseLogLevel maps a string to a LogLevel. Defaults to LevelInfo on unknown input.
func parseLogLevel(levelStr string) LogLevel {
	switch strings.ToLower(levelStr) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	default:
		return LevelInfo
	}
}

type field struct {
	key string
	val any
}

// StdLogger writes one line per entry through a *log.Logger:
//
//	[LEVEL] message component=timekeeper federation=... federate=3 key=value
//
// The executor's well-known context keys come first in a fixed order, then
// other context fields in the order they were added, then the entry's own
// pairs. Re-adding a context key replaces its value.
type StdLogger struct {
	out      *log.Logger
	fields   []field
	minLevel LogLevel
}

// contextOrder ranks the keys every executor component tags its loggers with.
var contextOrder = map[string]int{
	"component":  0,
	"federation": 1,
	"federate":   2,
}

// NewStdLogger returns a StdLogger writing through the standard log package.
func NewStdLogger(minLevelStr string) Logger {
	return NewStdLoggerTo(nil, minLevelStr)
}

// NewStdLoggerTo returns a StdLogger writing through out, or through the
// standard log package when out is nil.
func NewStdLoggerTo(out *log.Logger, minLevelStr string) Logger {
	if out == nil {
		out = log.Default()
	}
	return &StdLogger{out: out, minLevel: parseLogLevel(minLevelStr)}
}

func (l *StdLogger) log(level LogLevel, msg string, kvs ...any) {
	if level < l.minLevel {
		return
	}

	var b strings.Builder
	b.WriteString("[")
	b.WriteString(level.String())
	b.WriteString("] ")
	b.WriteString(msg)
	for _, f := range l.fields {
		writeField(&b, f.key, f.val)
	}
	eachPair(kvs, func(k string, v any) { writeField(&b, k, v) })

	l.out.Println(b.String())

	if level == LevelFatal {
		os.Exit(1)
	}
}

// eachPair calls fn for every string-keyed pair of kvs. A trailing key without
// a value and pairs with non-string keys are skipped.
func eachPair(kvs []any, fn func(string, any)) {
	for i := 0; i+1 < len(kvs); i += 2 {
		if k, ok := kvs[i].(string); ok {
			fn(k, kvs[i+1])
		}
	}
}

func writeField(b *strings.Builder, key string, val any) {
	b.WriteByte(' ')
	b.WriteString(key)
	b.WriteByte('=')
	b.WriteString(formatValue(val))
}

// formatValue renders a value so that a line splits back into its pairs:
// values with spaces, quotes or '=' are quoted, tags are shown by length.
func formatValue(v any) string {
	var s string
	switch x := v.(type) {
	case nil:
		return "<nil>"
	case types.FederateHandle:
		return strconv.FormatUint(uint64(x), 10)
	case []byte:
		return "<" + strconv.Itoa(len(x)) + " bytes>"
	case error:
		s = x.Error()
	case string:
		s = x
	default:
		s = fmt.Sprint(x)
	}
	if s == "" || strings.ContainsAny(s, " \t\"=") {
		return strconv.Quote(s)
	}
	return s
}

func (l *StdLogger) Debugw(msg string, kvs ...any) { l.log(LevelDebug, msg, kvs...) }
func (l *StdLogger) Infow(msg string, kvs ...any)  { l.log(LevelInfo, msg, kvs...) }
func (l *StdLogger) Warnw(msg string, kvs ...any)  { l.log(LevelWarn, msg, kvs...) }
func (l *StdLogger) Errorw(msg string, kvs ...any) { l.log(LevelError, msg, kvs...) }
func (l *StdLogger) Fatalw(msg string, kvs ...any) { l.log(LevelFatal, msg, kvs...) }

// with returns a child logger with key set to val. The parent is unchanged.
func (l *StdLogger) with(key string, val any) *StdLogger {
	fields := make([]field, 0, len(l.fields)+1)
	for _, f := range l.fields {
		if f.key != key {
			fields = append(fields, f)
		}
	}

	rank, known := contextOrder[key]
	at := len(fields)
	if known {
		at = 0
		for at < len(fields) {
			r, ok := contextOrder[fields[at].key]
			if !ok || r > rank {
				break
			}
			at++
		}
	}
	fields = append(fields, field{})
	copy(fields[at+1:], fields[at:])
	fields[at] = field{key: key, val: val}

	return &StdLogger{out: l.out, fields: fields, minLevel: l.minLevel}
}

func (l *StdLogger) With(kvs ...any) Logger {
	child := l
	eachPair(kvs, func(k string, v any) { child = child.with(k, v) })
	return child
}

func (l *StdLogger) WithFederation(id types.FederationID) Logger {
	return l.with("federation", string(id))
}

func (l *StdLogger) WithFederate(h types.FederateHandle) Logger {
	return l.with("federate", h)
}

func (l *StdLogger) WithComponent(name string) Logger {
	return l.with("component", name)
}
