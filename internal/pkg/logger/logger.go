package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with investigation-specific functionality
type Logger struct {
	*zap.Logger
	serviceName string
}

// New creates a new logger instance
func New(serviceName, environment string, debug bool) (*Logger, error) {
	var config zap.Config

	if environment == "production" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if debug {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	// Add service metadata
	config.InitialFields = map[string]interface{}{
		"service": serviceName,
		"env":     environment,
		"pid":     os.Getpid(),
	}

	zapLogger, err := config.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zap.ErrorLevel),
	)
	if err != nil {
		return nil, err
	}

	return &Logger{
		Logger:      zapLogger,
		serviceName: serviceName,
	}, nil
}

// NewNop returns a no-op logger for tests
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// Named returns a named sub-logger
func (l *Logger) Named(name string) *Logger {
	return &Logger{
		Logger:      l.Logger.Named(name),
		serviceName: l.serviceName,
	}
}

// WithInvestigation returns a logger with investigation context
func (l *Logger) WithInvestigation(investigationID string) *Logger {
	return &Logger{
		Logger:      l.With(zap.String("investigation_id", investigationID)),
		serviceName: l.serviceName,
	}
}

// InvestigationStarted logs the start of an investigation scoring run
func (l *Logger) InvestigationStarted(investigationID string, amount float64, transactionType string) {
	l.Info("investigation started",
		zap.String("investigation_id", investigationID),
		zap.Float64("amount", amount),
		zap.String("transaction_type", transactionType),
	)
}

// InvestigationCompleted logs the completion of an investigation scoring run
func (l *Logger) InvestigationCompleted(investigationID, riskLevel, sarRecommendation string, riskScore float64, durationMs int64) {
	l.Info("investigation completed",
		zap.String("investigation_id", investigationID),
		zap.String("risk_level", riskLevel),
		zap.String("sar_recommendation", sarRecommendation),
		zap.Float64("risk_score", riskScore),
		zap.Int64("duration_ms", durationMs),
	)
}

// PatternStored logs a pattern memory write
func (l *Logger) PatternStored(key string, patternType string) {
	l.Info("pattern stored",
		zap.String("key", key),
		zap.String("pattern_type", patternType),
	)
}

// PatternDetected logs a similar-pattern hit from memory
func (l *Logger) PatternDetected(patternType string, confidence float64) {
	l.Warn("similar pattern detected",
		zap.String("pattern_type", patternType),
		zap.Float64("confidence", confidence),
	)
}

// MemoryDegraded logs a pattern store failure that scoring continues without
func (l *Logger) MemoryDegraded(operation string, err error) {
	l.Warn("pattern memory unavailable, continuing without pattern context",
		zap.String("operation", operation),
		zap.Error(err),
	)
}

// OperationTracked logs registration of a sub-investigation operation
func (l *Logger) OperationTracked(opID, category string) {
	l.Info("tracking operation",
		zap.String("operation_id", opID),
		zap.String("category", category),
	)
}

// OperationCompleted logs completion of a sub-investigation operation
func (l *Logger) OperationCompleted(opID, category string, durationSeconds float64) {
	l.Info("operation completed",
		zap.String("operation_id", opID),
		zap.String("category", category),
		zap.Float64("duration_seconds", durationSeconds),
	)
}

// StaleOperationRemoved logs reaping of a leaked tracking entry
func (l *Logger) StaleOperationRemoved(opID, category string, ageSeconds float64) {
	l.Warn("cleaned up stale operation",
		zap.String("operation_id", opID),
		zap.String("category", category),
		zap.Float64("age_seconds", ageSeconds),
	)
}

// LatencyWarning logs when scoring exceeds expected latency
func (l *Logger) LatencyWarning(stage string, durationMs, thresholdMs int64) {
	l.Warn("latency threshold exceeded",
		zap.String("stage", stage),
		zap.Int64("duration_ms", durationMs),
		zap.Int64("threshold_ms", thresholdMs),
	)
}

// Helper field functions

// ErrorField creates an error field
func ErrorField(err error) zap.Field {
	return zap.Error(err)
}

// StringField creates a string field
func StringField(key, value string) zap.Field {
	return zap.String(key, value)
}
