package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type Logger interface {
	Info(action, message, requestID string, details map[string]interface{})
	Debug(action, message, requestID string, details map[string]interface{})
	Error(action, message, requestID string, details map[string]interface{}, err error)
}

type jsonLogger struct {
	entry *logrus.Entry
}

// New returns a logger writing one JSON object per line to stdout.
func New(service, level string) Logger {
	return NewWithWriter(service, level, os.Stdout)
}

func NewWithWriter(service, level string, out io.Writer) Logger {
	hostname, _ := os.Hostname()

	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.999999999Z07:00",
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	l.SetLevel(parseLevel(level))

	return &jsonLogger{
		entry: l.WithFields(logrus.Fields{
			"service":  service,
			"hostname": hostname,
		}),
	}
}

// Nop discards everything. Used by tests and one-shot commands.
func Nop() Logger {
	return NewWithWriter("nop", "error", io.Discard)
}

func parseLevel(level string) logrus.Level {
	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

func (l *jsonLogger) Info(action, message, requestID string, details map[string]interface{}) {
	l.with(action, requestID, details, nil).Info(message)
}

func (l *jsonLogger) Debug(action, message, requestID string, details map[string]interface{}) {
	l.with(action, requestID, details, nil).Debug(message)
}

func (l *jsonLogger) Error(action, message, requestID string, details map[string]interface{}, err error) {
	l.with(action, requestID, details, err).Error(message)
}

func (l *jsonLogger) with(action, requestID string, details map[string]interface{}, err error) *logrus.Entry {
	fields := logrus.Fields{
		"action":     action,
		"request_id": requestID,
	}
	if len(details) > 0 {
		fields["details"] = details
	}
	if err != nil {
		fields["error"] = ErrorInfo{Msg: err.Error(), Type: errorType(err)}
	}
	return l.entry.WithFields(fields)
}
