package logger

import (
	"time"
)

// OperationLogger logs the start and outcome of a single remote operation with its duration.
type OperationLogger struct {
	logger    Logger
	operation string
	fields    Fields
	startTime time.Time
}

// NewOperationLogger creates a new operation logger
func NewOperationLogger(operation string, logger Logger) *OperationLogger {
	if logger == nil {
		logger = GetGlobalLogger()
	}

	ol := &OperationLogger{
		logger:    logger,
		operation: operation,
		fields:    Fields{"operation": operation},
		startTime: time.Now(),
	}

	ol.logger.WithFields(ol.fields).Debug("Starting operation")
	return ol
}

// WithField adds a field to the operation context
func (ol *OperationLogger) WithField(key string, value interface{}) *OperationLogger {
	ol.fields[key] = value
	return ol
}

// Success completes the operation successfully
func (ol *OperationLogger) Success(message string) {
	ol.logger.WithFields(ol.finish("success")).Debug(message)
}

// Failure completes the operation with an error
func (ol *OperationLogger) Failure(err error, message string) {
	ol.logger.WithFields(ol.finish("failed")).WithError(err).Warn(message)
}

func (ol *OperationLogger) finish(status string) Fields {
	fields := Fields{
		"duration": time.Since(ol.startTime).String(),
		"status":   status,
	}
	for k, v := range ol.fields {
		fields[k] = v
	}
	return fields
}
