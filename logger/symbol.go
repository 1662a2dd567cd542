package logger

import (
	"github.com/navigatorbuilds/elara-core/sym"
	"go.uber.org/zap"
)

// Symbol-aware logging helpers.
// These functions log with the symbol as a structured field, not in the message.
//
// Usage:
//
//	// Instead of:
//	log.Infow("artifact validated", logger.FieldSymbol, sym.Bridge, "artifact_id", id)
//
//	// Use:
//	logger.BridgeInfow(log, "artifact validated", "artifact_id", id)
//
// This makes logs queryable by symbol and keeps messages clean. Each
// component passes its own injected logger rather than the package
// global, so tests that inject a silent logger still go through these.

// BridgeInfow logs an info message with the Bridge symbol (⛓)
func BridgeInfow(log *zap.SugaredLogger, msg string, keysAndValues ...interface{}) {
	if log != nil {
		fields := append([]interface{}{FieldSymbol, sym.Bridge}, keysAndValues...)
		log.Infow(msg, fields...)
	}
}

// BridgeWarnw logs a warning message with the Bridge symbol (⛓)
func BridgeWarnw(log *zap.SugaredLogger, msg string, keysAndValues ...interface{}) {
	if log != nil {
		fields := append([]interface{}{FieldSymbol, sym.Bridge}, keysAndValues...)
		log.Warnw(msg, fields...)
	}
}

// ChainInfow logs an info message with the Chain symbol (◈)
// Used for continuity checkpoint operations
func ChainInfow(log *zap.SugaredLogger, msg string, keysAndValues ...interface{}) {
	if log != nil {
		fields := append([]interface{}{FieldSymbol, sym.Chain}, keysAndValues...)
		log.Infow(msg, fields...)
	}
}

// ChainWarnw logs a warning message with the Chain symbol (◈)
func ChainWarnw(log *zap.SugaredLogger, msg string, keysAndValues ...interface{}) {
	if log != nil {
		fields := append([]interface{}{FieldSymbol, sym.Chain}, keysAndValues...)
		log.Warnw(msg, fields...)
	}
}

// NetInfow logs an info message with the Net symbol (⇄)
// Used for peer network operations
func NetInfow(log *zap.SugaredLogger, msg string, keysAndValues ...interface{}) {
	if log != nil {
		fields := append([]interface{}{FieldSymbol, sym.Net}, keysAndValues...)
		log.Infow(msg, fields...)
	}
}

// NetDebugw logs a debug message with the Net symbol (⇄)
func NetDebugw(log *zap.SugaredLogger, msg string, keysAndValues ...interface{}) {
	if log != nil {
		fields := append([]interface{}{FieldSymbol, sym.Net}, keysAndValues...)
		log.Debugw(msg, fields...)
	}
}

// NetWarnw logs a warning message with the Net symbol (⇄)
func NetWarnw(log *zap.SugaredLogger, msg string, keysAndValues ...interface{}) {
	if log != nil {
		fields := append([]interface{}{FieldSymbol, sym.Net}, keysAndValues...)
		log.Warnw(msg, fields...)
	}
}

// DBInfow logs an info message with the DB symbol (⊔)
// Used for database/storage operations
func DBInfow(log *zap.SugaredLogger, msg string, keysAndValues ...interface{}) {
	if log != nil {
		fields := append([]interface{}{FieldSymbol, sym.DB}, keysAndValues...)
		log.Infow(msg, fields...)
	}
}

// DBDebugw logs a debug message with the DB symbol (⊔)
func DBDebugw(log *zap.SugaredLogger, msg string, keysAndValues ...interface{}) {
	if log != nil {
		fields := append([]interface{}{FieldSymbol, sym.DB}, keysAndValues...)
		log.Debugw(msg, fields...)
	}
}

// OpenInfow logs an info message with the Open symbol (✿)
// Used for graceful startup operations
func OpenInfow(log *zap.SugaredLogger, msg string, keysAndValues ...interface{}) {
	if log != nil {
		fields := append([]interface{}{FieldSymbol, sym.Open}, keysAndValues...)
		log.Infow(msg, fields...)
	}
}

// CloseInfow logs an info message with the Close symbol (❀)
// Used for graceful shutdown operations
func CloseInfow(log *zap.SugaredLogger, msg string, keysAndValues ...interface{}) {
	if log != nil {
		fields := append([]interface{}{FieldSymbol, sym.Close}, keysAndValues...)
		log.Infow(msg, fields...)
	}
}

// WithSymbol returns a logger with the given symbol as a field, for the
// one network-server call site that logs a bare error without one of
// the message-level helpers above.
func WithSymbol(log *zap.SugaredLogger, symbol string) *zap.SugaredLogger {
	return log.With(FieldSymbol, symbol)
}
