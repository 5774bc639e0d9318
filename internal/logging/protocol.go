package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	waLog "go.mau.fi/whatsmeow/util/log"
)

// LevelSilent disables protocol logging entirely.
const LevelSilent = "silent"

// Protocol bridges the whatsmeow logger interface onto slog.
// A "silent" level returns the library's no-op logger.
func Protocol(base *slog.Logger, module, level string) waLog.Logger {
	if strings.EqualFold(strings.TrimSpace(level), LevelSilent) || base == nil {
		return waLog.Noop
	}
	return &protocolLogger{
		base:  base,
		min:   ParseLevel(level),
		scope: module,
	}
}

type protocolLogger struct {
	base  *slog.Logger
	min   slog.Level
	scope string
}

func (l *protocolLogger) log(level slog.Level, msg string, args []any) {
	if level < l.min || !l.base.Enabled(context.Background(), level) {
		return
	}
	l.base.Log(context.Background(), level, fmt.Sprintf(msg, args...), "module", l.scope)
}

func (l *protocolLogger) Debugf(msg string, args ...any) { l.log(slog.LevelDebug, msg, args) }
func (l *protocolLogger) Infof(msg string, args ...any)  { l.log(slog.LevelInfo, msg, args) }
func (l *protocolLogger) Warnf(msg string, args ...any)  { l.log(slog.LevelWarn, msg, args) }
func (l *protocolLogger) Errorf(msg string, args ...any) { l.log(slog.LevelError, msg, args) }

func (l *protocolLogger) Sub(module string) waLog.Logger {
	return &protocolLogger{
		base:  l.base,
		min:   l.min,
		scope: l.scope + "/" + module,
	}
}
