package eval

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fablecourt/continuity/pkg/scenario"
)

type memorySink struct {
	mu    sync.Mutex
	saved map[string]scenario.OperationInfo
}

func newMemorySink() *memorySink {
	return &memorySink{saved: make(map[string]scenario.OperationInfo)}
}

func (s *memorySink) SaveOperation(ctx context.Context, op *scenario.OperationInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[op.ID] = *op
	return nil
}

func (s *memorySink) GetOperation(ctx context.Context, id string) (*scenario.OperationInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	op, ok := s.saved[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return &op, nil
}

func TestTrackerLifecycle(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(nil)

	op, err := tracker.Create(ctx, "scn_1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if op.Status != scenario.OperationQueued {
		t.Errorf("status = %q, want queued", op.Status)
	}
	if op.ID == "" {
		t.Error("operation ID not generated")
	}

	tracker.Start(ctx, op.ID, 3)
	got, _ := tracker.Get(ctx, op.ID)
	if got.Status != scenario.OperationRunning || got.TotalPaths != 3 {
		t.Errorf("after Start: %+v, want running with 3 paths", got)
	}
	if got.StartedAt == nil {
		t.Error("StartedAt not set")
	}

	tracker.Progress(ctx, op.ID, func(op *scenario.OperationInfo) {
		op.Progress = 50
		op.DonePaths = 2
	})
	got, _ = tracker.Get(ctx, op.ID)
	if got.Progress != 50 || got.DonePaths != 2 {
		t.Errorf("after Progress: %+v, want 50%%, 2 paths", got)
	}

	tracker.Succeed(ctx, op.ID, &scenario.EvaluationResult{ScenarioID: "scn_1", Success: true})
	got, _ = tracker.Get(ctx, op.ID)
	if got.Status != scenario.OperationSucceeded || got.Progress != 100 {
		t.Errorf("after Succeed: %+v, want succeeded at 100%%", got)
	}
	if got.CompletedAt == nil || got.Result == nil {
		t.Error("CompletedAt or Result not set on success")
	}
}

func TestTrackerTerminalStateIsImmutable(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(nil)

	op, err := tracker.Create(ctx, "scn_1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	tracker.Start(ctx, op.ID, 1)
	tracker.Succeed(ctx, op.ID, &scenario.EvaluationResult{Success: true})

	tracker.Fail(ctx, op.ID, "late failure")
	tracker.Progress(ctx, op.ID, func(op *scenario.OperationInfo) {
		op.Progress = 1
	})

	got, _ := tracker.Get(ctx, op.ID)
	if got.Status != scenario.OperationSucceeded {
		t.Errorf("status = %q, want the first terminal transition to win", got.Status)
	}
	if got.Error != "" {
		t.Errorf("error = %q, want empty after refused Fail", got.Error)
	}
	if got.Progress != 100 {
		t.Errorf("progress = %d, want 100 untouched", got.Progress)
	}
}

func TestTrackerFail(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(nil)

	op, _ := tracker.Create(ctx, "scn_1")
	tracker.Start(ctx, op.ID, 1)
	tracker.Fail(ctx, op.ID, "judge unavailable")

	got, _ := tracker.Get(ctx, op.ID)
	if got.Status != scenario.OperationFailed {
		t.Errorf("status = %q, want failed", got.Status)
	}
	if got.Error != "judge unavailable" {
		t.Errorf("error = %q, want recorded message", got.Error)
	}
	if got.CompletedAt == nil {
		t.Error("CompletedAt not set on failure")
	}
}

func TestTrackerGetUnknown(t *testing.T) {
	tracker := NewTracker(nil)
	if _, err := tracker.Get(context.Background(), "missing"); !errors.Is(err, ErrOperationNotFound) {
		t.Errorf("Get() error = %v, want ErrOperationNotFound", err)
	}
}

func TestTrackerMirrorsToSink(t *testing.T) {
	ctx := context.Background()
	sink := newMemorySink()
	tracker := NewTracker(sink)

	op, err := tracker.Create(ctx, "scn_1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	tracker.Start(ctx, op.ID, 2)
	tracker.Succeed(ctx, op.ID, &scenario.EvaluationResult{Success: true})

	stored, err := sink.GetOperation(ctx, op.ID)
	if err != nil {
		t.Fatalf("sink.GetOperation() error = %v", err)
	}
	if stored.Status != scenario.OperationSucceeded {
		t.Errorf("sink status = %q, want succeeded", stored.Status)
	}

	// A fresh tracker resolves foreign operations through the sink.
	other := NewTracker(sink)
	got, err := other.Get(ctx, op.ID)
	if err != nil {
		t.Fatalf("Get() via sink error = %v", err)
	}
	if got.Status != scenario.OperationSucceeded {
		t.Errorf("status via sink = %q, want succeeded", got.Status)
	}
}
