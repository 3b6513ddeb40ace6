package monitoring

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/smilemakc/mbflow/internal/domain"
)

// ConsoleLogger provides structured logging for workflow execution to console or any writer.
// It logs node transitions, errors, and execution events with context.
type ConsoleLogger struct {
	// prefix is prepended to all log messages
	prefix string
	// verbose enables verbose logging
	verbose bool
	// writer is the destination for log output
	writer io.Writer
	// logger is the underlying logger
	logger *log.Logger
	// mu protects concurrent writes
	mu sync.Mutex
}

// ConsoleLoggerConfig configures the console logger.
type ConsoleLoggerConfig struct {
	// Prefix is prepended to all log messages
	Prefix string
	// Verbose enables verbose logging
	Verbose bool
	// Writer is the destination for log output (defaults to os.Stdout)
	Writer io.Writer
}

// NewConsoleLogger creates a new ConsoleLogger with the given configuration.
func NewConsoleLogger(config ConsoleLoggerConfig) *ConsoleLogger {
	writer := config.Writer
	if writer == nil {
		writer = os.Stdout
	}

	return &ConsoleLogger{
		prefix:  config.Prefix,
		verbose: config.Verbose,
		writer:  writer,
		logger:  log.New(writer, "", log.LstdFlags),
	}
}

// NewDefaultConsoleLogger creates a new ConsoleLogger with default settings (stdout, non-verbose).
func NewDefaultConsoleLogger(prefix string) *ConsoleLogger {
	return NewConsoleLogger(ConsoleLoggerConfig{
		Prefix:  prefix,
		Verbose: false,
		Writer:  os.Stdout,
	})
}

var (
	_ ExecutionLogger       = (*ConsoleLogger)(nil)
	_ LegacyExecutionLogger = (*ConsoleLogger)(nil)
)

// Log logs a single event. This is the main logging method.
func (l *ConsoleLogger) Log(event *LogEvent) {
	if event == nil {
		return
	}

	// Skip debug events if not in verbose mode
	if event.Level == LevelDebug && !l.verbose {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	message := l.formatEvent(event)
	l.logger.Print(message)
}

// formatEvent formats a log event into a human-readable string.
func (l *ConsoleLogger) formatEvent(event *LogEvent) string {
	switch event.Type {
	case EventExecutionStarted:
		return fmt.Sprintf("[%s] Execution started: workflow=%s execution=%s",
			l.prefix, event.WorkflowID, event.ExecutionID)

	case EventExecutionCompleted:
		return fmt.Sprintf("[%s] Execution completed: workflow=%s execution=%s duration=%s",
			l.prefix, event.WorkflowID, event.ExecutionID, event.Duration)

	case EventExecutionFailed:
		return fmt.Sprintf("[%s] Execution failed: workflow=%s execution=%s duration=%s error=%v",
			l.prefix, event.WorkflowID, event.ExecutionID, event.Duration, event.ErrorMessage)

	case EventNodeStarted:
		if event.AttemptNumber > 1 {
			return fmt.Sprintf("[%s] Node started (retry %d): workflow=%s execution=%s node_id=%s node_type=%s name=%s config=%v",
				l.prefix, event.AttemptNumber, event.WorkflowID, event.ExecutionID, event.NodeID, event.NodeType, event.NodeName, event.Config)
		}
		return fmt.Sprintf("[%s] Node started: workflow=%s execution=%s node_id=%s node_type=%s name=%s config=%v",
			l.prefix, event.WorkflowID, event.ExecutionID, event.NodeID, event.NodeType, event.NodeName, event.Config)

	case EventNodeCompleted:
		return fmt.Sprintf("[%s] Node completed: workflow=%s execution=%s node_id=%s node_type=%s name=%s config=%v duration=%s",
			l.prefix, event.WorkflowID, event.ExecutionID, event.NodeID, event.NodeType, event.NodeName, event.Config, event.Duration)

	case EventNodeFailed:
		if event.WillRetry {
			return fmt.Sprintf("[%s] Node failed (will retry): workflow=%s execution=%s node_id=%s node_type=%s name=%s config=%v duration=%s error=%v",
				l.prefix, event.WorkflowID, event.ExecutionID, event.NodeID, event.NodeType, event.NodeName, event.Config, event.Duration, event.ErrorMessage)
		}
		return fmt.Sprintf("[%s] Node failed: workflow=%s execution=%s node_id=%s node_type=%s name=%s config=%v duration=%s error=%v",
			l.prefix, event.WorkflowID, event.ExecutionID, event.NodeID, event.NodeType, event.NodeName, event.Config, event.Duration, event.ErrorMessage)

	case EventNodeRetrying:
		return fmt.Sprintf("[%s] Node retrying: workflow=%s execution=%s node_id=%s node_type=%s name=%s config=%v attempt=%d delay=%s",
			l.prefix, event.WorkflowID, event.ExecutionID, event.NodeID, event.NodeType, event.NodeName, event.Config, event.AttemptNumber, event.RetryDelay)

	case EventNodeSkipped:
		return fmt.Sprintf("[%s] Node skipped: workflow=%s execution=%s node_id=%s node_type=%s name=%s config=%v reason=%s",
			l.prefix, event.WorkflowID, event.ExecutionID, event.NodeID, event.NodeType, event.NodeName, event.Config, event.Reason)

	case EventVariableSet:
		return fmt.Sprintf("[%s] Variable set: workflow=%s execution=%s key=%s value=%v",
			l.prefix, event.WorkflowID, event.ExecutionID, event.VariableKey, event.VariableValue)

	case EventStateTransition:
		return fmt.Sprintf("[%s] State transition: workflow=%s execution=%s node=%s from=%s to=%s",
			l.prefix, event.WorkflowID, event.ExecutionID, event.NodeID, event.FromState, event.ToState)

	case EventInfo:
		return fmt.Sprintf("[%s] Info: workflow=%s execution=%s message=%s", l.prefix, event.WorkflowID, event.ExecutionID, event.Message)

	case EventDebug:
		return fmt.Sprintf("[%s] Debug: workflow=%s execution=%s message=%s", l.prefix, event.WorkflowID, event.ExecutionID, event.Message)

	case EventError:
		return fmt.Sprintf("[%s] Error: workflow=%s execution=%s message=%s error=%v",
			l.prefix, event.WorkflowID, event.ExecutionID, event.Message, event.ErrorMessage)

	default:
		return fmt.Sprintf("[%s] %s: workflow=%s execution=%s message=%s",
			l.prefix, event.Type, event.WorkflowID, event.ExecutionID, event.Message)
	}
}

// LogExecutionStarted logs when a workflow execution starts.
func (l *ConsoleLogger) LogExecutionStarted(workflowID, executionID string) {
	l.Log(NewExecutionStartedEvent(workflowID, executionID))
}

// LogExecutionCompleted logs when a workflow execution completes successfully.
func (l *ConsoleLogger) LogExecutionCompleted(workflowID, executionID string, duration time.Duration) {
	l.Log(NewExecutionCompletedEvent(workflowID, executionID, duration))
}

// LogExecutionFailed logs when a workflow execution fails.
func (l *ConsoleLogger) LogExecutionFailed(workflowID, executionID string, err error, duration time.Duration) {
	l.Log(NewExecutionFailedEvent(workflowID, executionID, err, duration))
}

// LogNodeStarted logs when a node starts executing.
func (l *ConsoleLogger) LogNodeStarted(workflowID, executionID string, node domain.Node, attemptNumber int) {
	l.Log(NewNodeStartedEvent(workflowID, executionID, node, attemptNumber))
}

// LogNodeStartedFromConfig logs when a node starts executing from its configuration.
func (l *ConsoleLogger) LogNodeStartedFromConfig(workflowID, executionID, nodeID, nodeType, name string, config map[string]any, attemptNumber int) {
	l.Log(NewNodeStartedEventFromConfig(executionID, nodeID, workflowID, nodeType, name, config, attemptNumber))
}

// LogNodeCompleted logs when a node completes successfully.
func (l *ConsoleLogger) LogNodeCompleted(workflowID, executionID string, node domain.Node, duration time.Duration) {
	l.Log(NewNodeCompletedEvent(workflowID, executionID, node, nil, duration))
}

// LogNodeCompletedFromConfig logs when a node completes successfully from its configuration.
func (l *ConsoleLogger) LogNodeCompletedFromConfig(workflowID, executionID, nodeID, nodeType, name string, config map[string]any, duration time.Duration) {
	l.Log(NewNodeCompletedEventFromConfig(executionID, nodeID, workflowID, nodeType, name, config, duration))
}

// LogNodeFailed logs when a node fails.
func (l *ConsoleLogger) LogNodeFailed(workflowID, executionID string, node domain.Node, err error, duration time.Duration, willRetry bool) {
	l.Log(NewNodeFailedEvent(workflowID, executionID, node, err, duration, willRetry))
}

// LogNodeRetrying logs when a node is being retried.
func (l *ConsoleLogger) LogNodeRetrying(workflowID, executionID string, node domain.Node, attemptNumber int, delay time.Duration) {
	l.Log(NewNodeRetryingEvent(workflowID, executionID, node, attemptNumber, delay))
}

// LogNode logs all fields of a node as an info event.
func (l *ConsoleLogger) LogNode(workflowID, executionID string, node domain.Node) {
	if node == nil {
		l.Log(NewInfoEvent(workflowID, executionID, "Node info: node=<nil>"))
		return
	}

	l.Log(&LogEvent{
		Timestamp:   time.Now(),
		Type:        EventInfo,
		Level:       LevelInfo,
		Message:     "Node info",
		WorkflowID:  workflowID,
		ExecutionID: executionID,
		NodeID:      node.ID().String(),
		NodeType:    string(node.Type()),
		NodeName:    node.Name(),
		Config:      node.Config(),
	})
}

// LogNodeFromConfig logs all fields of a node from its configuration.
func (l *ConsoleLogger) LogNodeFromConfig(workflowID, executionID, nodeID, nodeType, name string, config map[string]any) {
	l.Log(&LogEvent{
		Timestamp:   time.Now(),
		Type:        EventInfo,
		Level:       LevelInfo,
		Message:     "Node info",
		WorkflowID:  workflowID,
		ExecutionID: executionID,
		NodeID:      nodeID,
		NodeType:    nodeType,
		NodeName:    name,
		Config:      config,
	})
}

// LogVariableSet logs when a variable is set (verbose mode only).
func (l *ConsoleLogger) LogVariableSet(workflowID, executionID, key string, value interface{}) {
	if !l.verbose {
		return
	}
	l.Log(NewVariableSetEvent(workflowID, executionID, key, value))
}

// LogError logs a general error.
func (l *ConsoleLogger) LogError(workflowID, executionID string, message string, err error) {
	l.Log(NewErrorEvent(workflowID, executionID, message, err))
}

// LogInfo logs an informational message.
func (l *ConsoleLogger) LogInfo(workflowID, executionID string, message string) {
	l.Log(NewInfoEvent(workflowID, executionID, message))
}

// LogDebug logs a debug message (verbose mode only).
func (l *ConsoleLogger) LogDebug(workflowID, executionID string, message string) {
	if !l.verbose {
		return
	}
	l.Log(NewDebugEvent(workflowID, executionID, message))
}

// LogTransition logs a state transition.
func (l *ConsoleLogger) LogTransition(workflowID, executionID, nodeID, fromState, toState string) {
	if !l.verbose {
		return
	}
	l.Log(NewStateTransitionEvent(workflowID, executionID, nodeID, fromState, toState))
}

// SetWriter changes the output writer for the logger.
func (l *ConsoleLogger) SetWriter(writer io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writer = writer
	l.logger = log.New(writer, "", log.LstdFlags)
}

// GetWriter returns the current writer.
func (l *ConsoleLogger) GetWriter() io.Writer {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writer
}

// SetVerbose enables or disables verbose logging.
func (l *ConsoleLogger) SetVerbose(verbose bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.verbose = verbose
}

// IsVerbose returns whether verbose logging is enabled.
func (l *ConsoleLogger) IsVerbose() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.verbose
}

// Flush ensures all buffered logs are written (if the writer supports flushing).
func (l *ConsoleLogger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	type flusher interface {
		Flush() error
	}

	if f, ok := l.writer.(flusher); ok {
		return f.Flush()
	}

	return nil
}

// NewExecutionLogger creates a new ConsoleLogger for backward compatibility.
// Deprecated: Use NewConsoleLogger instead.
func NewExecutionLogger(prefix string, verbose bool) ExecutionLogger {
	return NewConsoleLogger(ConsoleLoggerConfig{
		Prefix:  prefix,
		Verbose: verbose,
		Writer:  os.Stdout,
	})
}
