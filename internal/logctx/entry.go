package logctx

import (
	"context"
	"fmt"
	"strings"
	"syslogfwd/internal/global"
	"time"
)

// Entry for logging events
func LogEvent(ctx context.Context, eventLevel int, severity string, message string, vars ...any) {
	logger := GetLogger(ctx)
	if logger == nil {
		return
	}

	var newMsg string
	if len(vars) == 0 || !strings.Contains(message, "%") {
		newMsg = message
	} else {
		newMsg = fmt.Sprintf(message, vars...)
	}
	logger.log(eventLevel, severity, GetTagList(ctx), newMsg)
}

// Queues event for the watcher if the level allows it
func (logger *Logger) log(eventLevel int, eventSeverity string, tags []string, fullMessage string) {
	logger.mutex.Lock()
	defer logger.mutex.Unlock()

	// Errors are always recorded
	if eventLevel > logger.PrintLevel && eventSeverity != global.ErrorLog {
		return
	}

	logger.queue = append(logger.queue, Event{
		Timestamp: time.Now(),
		Tags:      tags,
		Severity:  eventSeverity,
		Message:   fullMessage,
	})
	logger.cond.Signal()
}
