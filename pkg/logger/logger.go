// Package logger is the leveled, colored logging facade used across this
// repo. It preserves the teacher's pkg/logger API shape (Debug/Info/
// Warn/Error/Success/Fatal/Section/Banner) but is rebuilt on
// github.com/sirupsen/logrus instead of a hand-rolled ANSI formatter over
// stdlib log, so every entry is also a structured logrus.Entry that
// callers can attach fields to.
package logger

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

var base = logrus.New()

func init() {
	base.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})
	base.SetLevel(logrus.InfoLevel)
}

// SetLevel sets the minimum level that will be emitted, using the same
// names logrus does ("debug", "info", "warn", "error").
func SetLevel(level string) {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	base.SetLevel(parsed)
}

// Entry is a structured logger scoped to a component (and, optionally, a
// session id). Every Conn and long-running task should hold one.
type Entry struct {
	entry *logrus.Entry
}

// For returns an Entry scoped to component, with extra fields attached.
func For(component string, fields logrus.Fields) Entry {
	if fields == nil {
		fields = logrus.Fields{}
	}
	fields["component"] = component
	return Entry{entry: base.WithFields(fields)}
}

// IsZero reports whether e is the zero Entry (never produced by For),
// useful for components that accept an optional logger.
func (e Entry) IsZero() bool { return e.entry == nil }

func (e Entry) Debug(format string, args ...interface{}) { e.entry.Debugf(format, args...) }
func (e Entry) Info(format string, args ...interface{})  { e.entry.Infof(format, args...) }
func (e Entry) Warn(format string, args ...interface{})  { e.entry.Warnf(format, args...) }
func (e Entry) Error(format string, args ...interface{}) { e.entry.Errorf(format, args...) }
func (e Entry) Success(format string, args ...interface{}) {
	e.entry.WithField("outcome", "success").Infof(format, args...)
}

// Package-level convenience wrappers, matching the teacher's top-level
// Debug/Info/Warn/Error/Success/Fatal functions.

func Debug(format string, args ...interface{}) { base.Debugf(format, args...) }
func Info(format string, args ...interface{})  { base.Infof(format, args...) }
func Warn(format string, args ...interface{})  { base.Warnf(format, args...) }
func Error(format string, args ...interface{}) { base.Errorf(format, args...) }
func Success(format string, args ...interface{}) {
	base.WithField("outcome", "success").Infof(format, args...)
}

// Fatal logs and exits with status 1, matching the teacher's behavior.
func Fatal(format string, args ...interface{}) {
	base.Fatalf(format, args...)
}

// Section prints a section header directly to stdout, as the teacher's
// logger.Section did — a presentation helper, not a log line.
func Section(title string) {
	border := "==============================================================="
	fmt.Printf("\n%s\n %s\n%s\n\n", border, title, border)
}

// Banner prints the application banner, as the teacher's logger.Banner
// did for the SA-MP server.
func Banner(title, version string) {
	fmt.Fprintf(os.Stdout, "\n%s\nversion %s\n\n", title, version)
}
