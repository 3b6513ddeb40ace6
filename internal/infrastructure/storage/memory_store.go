package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/smilemakc/mbflow/internal/domain"
)

// MemoryStore is a full in-memory implementation of domain.Storage, suitable
// for tests, examples, and local development where a Postgres instance isn't
// available. Executions are rebuilt from their event stream on every read
// rather than stored as a materialized row.
type MemoryStore struct {
	*MemoryEventStore

	mu                 sync.RWMutex
	workflows          map[uuid.UUID]domain.Workflow
	executionWorkflows map[uuid.UUID]uuid.UUID // executionID -> workflowID
	snapshots          map[uuid.UUID]domain.Execution
	executionStates    map[uuid.UUID]*domain.ExecutionState
}

var _ domain.Storage = (*MemoryStore)(nil)
var _ domain.ExecutionStateRepository = (*MemoryStore)(nil)

// NewMemoryStore creates a new in-memory Storage implementation.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		MemoryEventStore:   NewMemoryEventStore(),
		workflows:          make(map[uuid.UUID]domain.Workflow),
		executionWorkflows: make(map[uuid.UUID]uuid.UUID),
		snapshots:          make(map[uuid.UUID]domain.Execution),
		executionStates:    make(map[uuid.UUID]*domain.ExecutionState),
	}
}

// SaveExecutionState stores a point-in-time snapshot of the application-layer
// execution state, keyed by execution ID.
func (s *MemoryStore) SaveExecutionState(ctx context.Context, state *domain.ExecutionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executionStates[state.ExecutionID()] = state
	return nil
}

// GetExecutionState retrieves the last saved execution state snapshot.
func (s *MemoryStore) GetExecutionState(ctx context.Context, executionID uuid.UUID) (*domain.ExecutionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.executionStates[executionID]
	if !ok {
		return nil, fmt.Errorf("execution state %s not found", executionID)
	}
	return state, nil
}

// DeleteExecutionState removes a saved execution state snapshot.
func (s *MemoryStore) DeleteExecutionState(ctx context.Context, executionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.executionStates, executionID)
	return nil
}

// AppendEvent records the event and, the first time an execution is seen,
// remembers which workflow it belongs to so GetExecution can rebuild it.
func (s *MemoryStore) AppendEvent(ctx context.Context, event domain.Event) error {
	s.mu.Lock()
	s.executionWorkflows[event.ExecutionID()] = event.WorkflowID()
	s.mu.Unlock()
	return s.MemoryEventStore.AppendEvent(ctx, event)
}

// AppendEvents records multiple events, tracking execution->workflow
// ownership for each.
func (s *MemoryStore) AppendEvents(ctx context.Context, events []domain.Event) error {
	s.mu.Lock()
	for _, event := range events {
		s.executionWorkflows[event.ExecutionID()] = event.WorkflowID()
	}
	s.mu.Unlock()
	return s.MemoryEventStore.AppendEvents(ctx, events)
}

// SaveWorkflow persists a workflow with all its child entities.
func (s *MemoryStore) SaveWorkflow(ctx context.Context, workflow domain.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workflows[workflow.ID()] = workflow
	return nil
}

// GetWorkflow retrieves a workflow with all its child entities.
func (s *MemoryStore) GetWorkflow(ctx context.Context, id uuid.UUID) (domain.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	workflow, ok := s.workflows[id]
	if !ok {
		return nil, fmt.Errorf("workflow %s not found", id)
	}
	return workflow, nil
}

// GetWorkflowByName retrieves a workflow by name and version.
func (s *MemoryStore) GetWorkflowByName(ctx context.Context, name, version string) (domain.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, workflow := range s.workflows {
		if workflow.Name() == name && workflow.Version() == version {
			return workflow, nil
		}
	}
	return nil, fmt.Errorf("workflow %s@%s not found", name, version)
}

// ListWorkflows returns all workflows.
func (s *MemoryStore) ListWorkflows(ctx context.Context) ([]domain.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Workflow, 0, len(s.workflows))
	for _, workflow := range s.workflows {
		result = append(result, workflow)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID().String() < result[j].ID().String() })
	return result, nil
}

// DeleteWorkflow removes a workflow and all its child entities.
func (s *MemoryStore) DeleteWorkflow(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.workflows[id]; !ok {
		return fmt.Errorf("workflow %s not found", id)
	}
	delete(s.workflows, id)
	return nil
}

// WorkflowExists checks if a workflow exists.
func (s *MemoryStore) WorkflowExists(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.workflows[id]
	return ok, nil
}

// GetExecution rebuilds an execution from its event stream.
func (s *MemoryStore) GetExecution(ctx context.Context, id uuid.UUID) (domain.Execution, error) {
	s.mu.RLock()
	workflowID, known := s.executionWorkflows[id]
	s.mu.RUnlock()
	if !known {
		return nil, fmt.Errorf("execution %s not found", id)
	}

	events, err := s.GetEvents(ctx, id)
	if err != nil {
		return nil, err
	}
	return domain.RebuildFromEvents(id, workflowID, events)
}

// ListExecutionsByWorkflow returns all executions for a workflow.
func (s *MemoryStore) ListExecutionsByWorkflow(ctx context.Context, workflowID uuid.UUID) ([]domain.Execution, error) {
	s.mu.RLock()
	executionIDs := make([]uuid.UUID, 0)
	for executionID, ownerID := range s.executionWorkflows {
		if ownerID == workflowID {
			executionIDs = append(executionIDs, executionID)
		}
	}
	s.mu.RUnlock()

	result := make([]domain.Execution, 0, len(executionIDs))
	for _, executionID := range executionIDs {
		execution, err := s.GetExecution(ctx, executionID)
		if err != nil {
			return nil, err
		}
		result = append(result, execution)
	}
	return result, nil
}

// ListAllExecutions returns all executions, paginated.
func (s *MemoryStore) ListAllExecutions(ctx context.Context, limit, offset int) ([]domain.Execution, error) {
	s.mu.RLock()
	executionIDs := make([]uuid.UUID, 0, len(s.executionWorkflows))
	for executionID := range s.executionWorkflows {
		executionIDs = append(executionIDs, executionID)
	}
	s.mu.RUnlock()

	sort.Slice(executionIDs, func(i, j int) bool { return executionIDs[i].String() < executionIDs[j].String() })

	if offset > len(executionIDs) {
		offset = len(executionIDs)
	}
	executionIDs = executionIDs[offset:]
	if limit > 0 && limit < len(executionIDs) {
		executionIDs = executionIDs[:limit]
	}

	result := make([]domain.Execution, 0, len(executionIDs))
	for _, executionID := range executionIDs {
		execution, err := s.GetExecution(ctx, executionID)
		if err != nil {
			return nil, err
		}
		result = append(result, execution)
	}
	return result, nil
}

// SaveSnapshot stores a point-in-time snapshot of an execution.
func (s *MemoryStore) SaveSnapshot(ctx context.Context, execution domain.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[execution.ID()] = execution
	return nil
}

// GetSnapshot retrieves the latest snapshot for an execution, if any.
func (s *MemoryStore) GetSnapshot(ctx context.Context, id uuid.UUID) (domain.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot, ok := s.snapshots[id]
	if !ok {
		return nil, fmt.Errorf("no snapshot for execution %s", id)
	}
	return snapshot, nil
}

// BeginTransaction is a no-op for the in-memory store; it has no external
// transactional resource to coordinate.
func (s *MemoryStore) BeginTransaction(ctx context.Context) (context.Context, error) {
	return ctx, nil
}

// CommitTransaction is a no-op for the in-memory store.
func (s *MemoryStore) CommitTransaction(ctx context.Context) error {
	return nil
}

// RollbackTransaction is a no-op for the in-memory store.
func (s *MemoryStore) RollbackTransaction(ctx context.Context) error {
	return nil
}

// Ping always succeeds for the in-memory store.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
