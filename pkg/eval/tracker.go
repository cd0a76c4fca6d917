package eval

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fablecourt/continuity/pkg/logger"
	"github.com/fablecourt/continuity/pkg/scenario"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ErrOperationNotFound is returned when an operation id is unknown.
var ErrOperationNotFound = fmt.Errorf("operation not found")

// OperationSink mirrors operation records to durable storage so that job
// status survives the worker process. A nil sink keeps records in memory
// only.
type OperationSink interface {
	SaveOperation(ctx context.Context, op *scenario.OperationInfo) error
	GetOperation(ctx context.Context, id string) (*scenario.OperationInfo, error)
}

// Tracker owns the lifecycle of asynchronous evaluation jobs. All
// mutation goes through the tracker under one lock; once an operation
// reaches a terminal state further mutation is refused, which makes the
// terminal transition exactly-once.
type Tracker struct {
	mu   sync.Mutex
	ops  map[string]*scenario.OperationInfo
	sink OperationSink
}

// NewTracker creates a Tracker with an optional durable sink.
func NewTracker(sink OperationSink) *Tracker {
	return &Tracker{
		ops:  make(map[string]*scenario.OperationInfo),
		sink: sink,
	}
}

// Create registers a new queued operation for the given scenario and
// returns a snapshot of it.
func (t *Tracker) Create(ctx context.Context, scenarioID string) (scenario.OperationInfo, error) {
	id, err := gonanoid.New()
	if err != nil {
		return scenario.OperationInfo{}, fmt.Errorf("failed to generate operation ID: %w", err)
	}

	op := &scenario.OperationInfo{
		ID:         id,
		ScenarioID: scenarioID,
		Status:     scenario.OperationQueued,
		CreatedAt:  time.Now().UTC(),
	}

	t.mu.Lock()
	t.ops[id] = op
	snapshot := *op
	t.mu.Unlock()

	t.mirror(ctx, &snapshot)
	return snapshot, nil
}

// Adopt registers an existing queued operation record, used by the worker
// after reading a job submitted by the server process.
func (t *Tracker) Adopt(op scenario.OperationInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()
	copied := op
	t.ops[op.ID] = &copied
}

// Start transitions a queued operation to running.
func (t *Tracker) Start(ctx context.Context, id string, totalPaths int) {
	t.update(ctx, id, func(op *scenario.OperationInfo) {
		now := time.Now().UTC()
		op.Status = scenario.OperationRunning
		op.StartedAt = &now
		op.TotalPaths = totalPaths
	})
}

// Progress applies a mutation to a running operation. Updates against
// terminal operations are dropped.
func (t *Tracker) Progress(ctx context.Context, id string, mutate func(op *scenario.OperationInfo)) {
	t.update(ctx, id, mutate)
}

// Succeed transitions the operation to its terminal succeeded state and
// attaches the final result. The first terminal transition wins; later
// ones are no-ops.
func (t *Tracker) Succeed(ctx context.Context, id string, result *scenario.EvaluationResult) {
	t.update(ctx, id, func(op *scenario.OperationInfo) {
		now := time.Now().UTC()
		op.Status = scenario.OperationSucceeded
		op.CompletedAt = &now
		op.Progress = 100
		op.CurrentStep = "completed"
		op.Result = result
	})
}

// Fail transitions the operation to its terminal failed state.
func (t *Tracker) Fail(ctx context.Context, id string, message string) {
	t.update(ctx, id, func(op *scenario.OperationInfo) {
		now := time.Now().UTC()
		op.Status = scenario.OperationFailed
		op.CompletedAt = &now
		op.Error = message
	})
}

// Get returns a snapshot of the operation, falling back to the durable
// sink for operations owned by another process.
func (t *Tracker) Get(ctx context.Context, id string) (scenario.OperationInfo, error) {
	t.mu.Lock()
	op, ok := t.ops[id]
	if ok {
		snapshot := *op
		t.mu.Unlock()
		return snapshot, nil
	}
	t.mu.Unlock()

	if t.sink != nil {
		stored, err := t.sink.GetOperation(ctx, id)
		if err != nil {
			return scenario.OperationInfo{}, err
		}
		return *stored, nil
	}
	return scenario.OperationInfo{}, ErrOperationNotFound
}

func (t *Tracker) update(ctx context.Context, id string, mutate func(op *scenario.OperationInfo)) {
	t.mu.Lock()
	op, ok := t.ops[id]
	if !ok || op.Status.IsTerminal() {
		t.mu.Unlock()
		return
	}
	mutate(op)
	snapshot := *op
	t.mu.Unlock()

	t.mirror(ctx, &snapshot)
}

func (t *Tracker) mirror(ctx context.Context, op *scenario.OperationInfo) {
	if t.sink == nil {
		return
	}
	if err := t.sink.SaveOperation(ctx, op); err != nil {
		logger.Warn("[Eval] Failed to persist operation", "operation_id", op.ID, "err", err)
	}
}
