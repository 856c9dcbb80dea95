// Central logging system. Buffers messages in memory and writes them to an output from a watcher routine
package logctx

import (
	"context"
	"sync"
	"syslogfwd/internal/global"
	"time"
)

// Logger Constructor
func NewLogger(id string, logLevel int, done <-chan struct{}) (logger *Logger) {
	logger = &Logger{
		ID:             id,
		CreatedAt:      time.Now(),
		queue:          make([]Event, 0),
		Done:           done,
		PrintLevel:     logLevel,
		ShowTimestamps: true,
		wg:             &sync.WaitGroup{},
	}
	logger.cond = sync.NewCond(&logger.mutex)
	return
}

// Logger Constructor.
// Embeds logger in returned context using provided context as base.
func New(baseCtx context.Context, id string, logLevel int, done <-chan struct{}) (ctxLogger context.Context) {
	ctxLogger = WithLogger(baseCtx, NewLogger(id, logLevel, done))
	return
}

// Attach the logger to context
func WithLogger(ctx context.Context, logger *Logger) (ctxLogger context.Context) {
	ctxLogger = context.WithValue(ctx, global.LoggerKey, logger)
	return
}

// Change the logger's level
func SetLogLevel(ctx context.Context, newLevel int) {
	logger := GetLogger(ctx)
	if logger != nil {
		logger.mutex.Lock()
		defer logger.mutex.Unlock()
		logger.PrintLevel = newLevel
	}
}

// Extracts Logger from context or returns nil
func GetLogger(ctx context.Context) (logger *Logger) {
	logger, ok := ctx.Value(global.LoggerKey).(*Logger)
	if !ok {
		logger = nil
	}
	return
}
