package monitoring

import (
	"time"

	"github.com/smilemakc/mbflow/internal/domain"
)

// ExecutionLogger defines the interface for logging workflow execution events.
// Implementations can log to console, files, databases (ClickHouse), or other destinations.
type ExecutionLogger interface {
	// Log logs a single event. This is the main method for all logging.
	Log(event *LogEvent)
}

// LegacyExecutionLogger is the richer, pre-event-sourcing logging surface that
// CompositeObserver delegates to. ConsoleLogger and ClickHouseLogger both
// implement it on top of their single Log(event) method.
type LegacyExecutionLogger interface {
	LogExecutionStarted(workflowID, executionID string)
	LogExecutionCompleted(workflowID, executionID string, duration time.Duration)
	LogExecutionFailed(workflowID, executionID string, err error, duration time.Duration)
	LogNodeStarted(workflowID, executionID string, node domain.Node, attemptNumber int)
	LogNodeCompleted(workflowID, executionID string, node domain.Node, duration time.Duration)
	LogNodeFailed(workflowID, executionID string, node domain.Node, err error, duration time.Duration, willRetry bool)
	LogNodeRetrying(workflowID, executionID string, node domain.Node, attemptNumber int, delay time.Duration)
	LogVariableSet(workflowID, executionID, key string, value interface{})
	LogError(workflowID, executionID string, message string, err error)
	LogInfo(workflowID, executionID string, message string)
}
