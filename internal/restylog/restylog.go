// Package restylog adapts slog to the logger interface resty expects.
package restylog

import (
	"fmt"
	"log/slog"

	"github.com/go-resty/resty/v2"
)

type logger struct {
	log *slog.Logger
}

// New wraps l so resty's internal warnings end up in the structured log.
func New(l *slog.Logger) resty.Logger {
	if l == nil {
		l = slog.Default()
	}
	return &logger{log: l.With(slog.String("source", "resty"))}
}

func (l *logger) Errorf(format string, v ...interface{}) {
	l.log.Error(fmt.Sprintf(format, v...))
}

func (l *logger) Warnf(format string, v ...interface{}) {
	l.log.Warn(fmt.Sprintf(format, v...))
}

func (l *logger) Debugf(format string, v ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, v...))
}
