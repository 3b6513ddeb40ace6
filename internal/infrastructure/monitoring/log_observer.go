package monitoring

import (
	"time"

	"github.com/smilemakc/mbflow/internal/domain"
)

// LogObserver is an implementation of ExecutionObserver that logs events using ExecutionLogger.
// It bridges the observer pattern with the logging system by converting observer events
// to log events and passing them to the logger.
type LogObserver struct {
	logger ExecutionLogger
}

var _ ExecutionObserver = (*LogObserver)(nil)

// NewLogObserver creates a new LogObserver with the given ExecutionLogger.
func NewLogObserver(logger ExecutionLogger) *LogObserver {
	return &LogObserver{
		logger: logger,
	}
}

// OnExecutionStarted is called when a workflow execution starts.
func (lo *LogObserver) OnExecutionStarted(workflowID, executionID string) {
	if lo.logger == nil {
		return
	}
	lo.logger.Log(NewExecutionStartedEvent(workflowID, executionID))
}

// OnExecutionCompleted is called when a workflow execution completes successfully.
func (lo *LogObserver) OnExecutionCompleted(workflowID, executionID string, duration time.Duration) {
	if lo.logger == nil {
		return
	}
	lo.logger.Log(NewExecutionCompletedEvent(workflowID, executionID, duration))
}

// OnExecutionFailed is called when a workflow execution fails.
func (lo *LogObserver) OnExecutionFailed(workflowID, executionID string, err error, duration time.Duration) {
	if lo.logger == nil {
		return
	}
	lo.logger.Log(NewExecutionFailedEvent(workflowID, executionID, err, duration))
}

// OnNodeStarted is called when a node starts executing.
func (lo *LogObserver) OnNodeStarted(workflowID, executionID string, node domain.Node, attemptNumber int) {
	if lo.logger == nil {
		return
	}
	lo.logger.Log(NewNodeStartedEvent(workflowID, executionID, node, attemptNumber))
}

// OnNodeCompleted is called when a node completes successfully.
func (lo *LogObserver) OnNodeCompleted(workflowID, executionID string, node domain.Node, output interface{}, duration time.Duration) {
	if lo.logger == nil {
		return
	}
	lo.logger.Log(NewNodeCompletedEvent(workflowID, executionID, node, output, duration))
}

// OnNodeFailed is called when a node fails.
func (lo *LogObserver) OnNodeFailed(workflowID, executionID string, node domain.Node, err error, duration time.Duration, willRetry bool) {
	if lo.logger == nil {
		return
	}
	lo.logger.Log(NewNodeFailedEvent(workflowID, executionID, node, err, duration, willRetry))
}

// OnNodeRetrying is called when a node is being retried.
func (lo *LogObserver) OnNodeRetrying(workflowID, executionID string, node domain.Node, attemptNumber int, delay time.Duration) {
	if lo.logger == nil {
		return
	}
	lo.logger.Log(NewNodeRetryingEvent(workflowID, executionID, node, attemptNumber, delay))
}

// OnVariableSet is called when a variable is set in the execution context.
func (lo *LogObserver) OnVariableSet(workflowID, executionID, key string, value interface{}) {
	if lo.logger == nil {
		return
	}
	lo.logger.Log(NewVariableSetEvent(workflowID, executionID, key, value))
}

// OnNodeCallbackStarted is called when a node callback starts processing.
func (lo *LogObserver) OnNodeCallbackStarted(workflowID, executionID string, node domain.Node) {
	if lo.logger == nil {
		return
	}
	lo.logger.Log(NewNodeCallbackStartedEvent(workflowID, executionID, node))
}

// OnNodeCallbackCompleted is called when a node callback completes.
func (lo *LogObserver) OnNodeCallbackCompleted(workflowID, executionID string, node domain.Node, err error, duration time.Duration) {
	if lo.logger == nil {
		return
	}
	lo.logger.Log(NewNodeCallbackCompletedEvent(workflowID, executionID, node, nil, duration))
	if err != nil {
		lo.logger.Log(NewErrorEvent(workflowID, executionID, "Node callback failed", err))
	}
}
