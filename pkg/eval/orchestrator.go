package eval

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fablecourt/continuity/pkg/continuity"
	"github.com/fablecourt/continuity/pkg/graph"
	"github.com/fablecourt/continuity/pkg/logger"
	"github.com/fablecourt/continuity/pkg/scenario"

	"golang.org/x/sync/errgroup"
)

// SemanticJudge is the slice of the judge the orchestrator consumes.
type SemanticJudge interface {
	ClassifyScene(ctx context.Context, sceneID, sceneText, priorContext string) (*scenario.SceneEntityClassification, error)
	EvaluatePathConsistency(ctx context.Context, path scenario.Path) (*scenario.ConsistencyEvaluation, error)
}

// Orchestrator runs the full evaluation pipeline: structural graph
// analysis, scene entity classification, the introduced-before-used data
// flow, and per-path semantic judgment.
type Orchestrator struct {
	judge    SemanticJudge
	registry continuity.AssetRegistry
	tracker  *Tracker

	maxPaths         int
	classifyParallel int
	pathParallel     int
	pathTimeout      time.Duration
}

// NewOrchestratorParams configures an Orchestrator.
type NewOrchestratorParams struct {
	Judge    SemanticJudge
	Registry continuity.AssetRegistry
	Tracker  *Tracker

	// MaxPaths bounds path enumeration. Zero means graph.DefaultMaxPaths.
	MaxPaths int
	// ClassifyParallel bounds concurrent scene classifications. Zero means 4.
	ClassifyParallel int
	// PathParallel bounds concurrent path evaluations. Zero means 4.
	PathParallel int
	// PathTimeout bounds one path evaluation end to end. Zero means 5m.
	PathTimeout time.Duration
}

// NewOrchestrator creates an Orchestrator. Tracker may be nil for callers
// that run evaluations synchronously.
func NewOrchestrator(params NewOrchestratorParams) *Orchestrator {
	classifyParallel := params.ClassifyParallel
	if classifyParallel <= 0 {
		classifyParallel = 4
	}
	pathParallel := params.PathParallel
	if pathParallel <= 0 {
		pathParallel = 4
	}
	pathTimeout := params.PathTimeout
	if pathTimeout <= 0 {
		pathTimeout = 5 * time.Minute
	}
	tracker := params.Tracker
	if tracker == nil {
		tracker = NewTracker(nil)
	}

	return &Orchestrator{
		judge:            params.Judge,
		registry:         params.Registry,
		tracker:          tracker,
		maxPaths:         params.MaxPaths,
		classifyParallel: classifyParallel,
		pathParallel:     pathParallel,
		pathTimeout:      pathTimeout,
	}
}

// Tracker exposes the operation registry backing this orchestrator.
func (o *Orchestrator) Tracker() *Tracker {
	return o.tracker
}

// ValidateQuick runs the structural checks only. It reports whether the
// scenario has no blocking defects together with all diagnostics found.
// Multiple start candidates and cut cycles are reported but do not block.
func (o *Orchestrator) ValidateQuick(sc *scenario.Scenario) (bool, []scenario.Diagnostic) {
	g := graph.Build(sc)
	_, pathDiags := g.EnumeratePaths(graph.EnumerateOptions{MaxPaths: o.maxPaths})

	diags := append(g.Diagnostics(), pathDiags...)
	ok := true
	for _, d := range diags {
		switch d.Kind {
		case scenario.DiagnosticNoStart, scenario.DiagnosticNoEnding, scenario.DiagnosticMissingReference:
			ok = false
		}
	}
	return ok, diags
}

// EvaluateStoryContinuity runs the complete pipeline for one scenario. If
// operationID names a tracked operation, progress and the terminal
// transition are recorded on it; pass an empty id for synchronous runs.
//
// Individual path-judgment failures degrade the result instead of failing
// the run. Only context cancellation and total judge unavailability fail
// the operation.
func (o *Orchestrator) EvaluateStoryContinuity(
	ctx context.Context,
	sc *scenario.Scenario,
	operationID string,
) (*scenario.EvaluationResult, error) {
	start := time.Now()

	g := graph.Build(sc)
	paths, pathDiags := g.EnumeratePaths(graph.EnumerateOptions{MaxPaths: o.maxPaths})
	diagnostics := append(g.Diagnostics(), pathDiags...)

	if operationID != "" {
		o.tracker.Start(ctx, operationID, len(paths))
		o.setStep(ctx, operationID, "classifying scenes", 0)
	}

	cls, degradedClassify, err := o.classifyScenes(ctx, g, operationID)
	if err != nil {
		o.failOperation(ctx, operationID, err)
		return nil, err
	}

	if operationID != "" {
		o.setStep(ctx, operationID, "analyzing entity continuity", 40)
	}
	report := continuity.Analyze(ctx, g, cls, continuity.AnalyzeOptions{Registry: o.registry})
	if err := ctx.Err(); err != nil {
		o.failOperation(ctx, operationID, err)
		return nil, err
	}

	if operationID != "" {
		o.setStep(ctx, operationID, "evaluating paths", 40)
		o.tracker.Progress(ctx, operationID, func(op *scenario.OperationInfo) {
			op.IssuesFound = len(report.Issues)
		})
	}

	pathResults, degradedPaths, err := o.evaluatePaths(ctx, g, paths, operationID)
	if err != nil {
		o.failOperation(ctx, operationID, err)
		return nil, err
	}

	if operationID != "" {
		o.setStep(ctx, operationID, "aggregating results", 95)
	}

	result := &scenario.EvaluationResult{
		ScenarioID:   sc.ID,
		PathResults:  pathResults,
		EntityIssues: report.Issues,
		Diagnostics:  diagnostics,
		Degraded:     degradedClassify || degradedPaths || report.Degraded,
	}
	result.Success = o.isSuccess(result)

	if operationID != "" {
		o.tracker.Progress(ctx, operationID, func(op *scenario.OperationInfo) {
			op.IssuesFound = countIssues(result)
		})
		o.tracker.Succeed(ctx, operationID, result)
	}

	logger.Info("[Eval] Evaluation completed",
		"scenario_id", sc.ID,
		"paths", len(paths),
		"entity_issues", len(report.Issues),
		"degraded", result.Degraded,
		"duration", time.Since(start).String(),
	)
	return result, nil
}

// EvaluatePathConsistency re-judges a single explicit path through the
// scenario without running the full pipeline.
func (o *Orchestrator) EvaluatePathConsistency(
	ctx context.Context,
	sc *scenario.Scenario,
	sceneIDs []string,
) (scenario.PathConsistencyResult, error) {
	if len(sceneIDs) == 0 {
		return scenario.PathConsistencyResult{}, fmt.Errorf("path must name at least one scene")
	}

	g := graph.Build(sc)
	for _, id := range sceneIDs {
		if g.Scene(id) == nil {
			return scenario.PathConsistencyResult{}, fmt.Errorf("unknown scene %q", id)
		}
	}

	path := scenario.Path{
		SceneIDs: sceneIDs,
		Text:     g.RenderPath(sceneIDs),
	}

	callCtx, cancel := context.WithTimeout(ctx, o.pathTimeout)
	defer cancel()

	res := scenario.PathConsistencyResult{SceneIDs: sceneIDs}
	eval, err := o.judge.EvaluatePathConsistency(callCtx, path)
	if err != nil {
		if ctx.Err() != nil {
			return scenario.PathConsistencyResult{}, ctx.Err()
		}
		res.Error = err.Error()
		return res, nil
	}
	res.Result = eval
	return res, nil
}

// classifyScenes classifies every reachable scene with bounded
// parallelism. Failed classifications are dropped and degrade the result;
// the data flow skips the affected scenes.
func (o *Orchestrator) classifyScenes(
	ctx context.Context,
	g *graph.Graph,
	operationID string,
) (scenario.ClassificationSet, bool, error) {
	order := g.ReachableOrder()
	cls := make(scenario.ClassificationSet, len(order))
	if len(order) == 0 {
		return cls, false, nil
	}

	var (
		mu       sync.Mutex
		done     int
		degraded bool
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(o.classifyParallel)

	for _, id := range order {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}

			c, err := o.judge.ClassifyScene(egCtx, id, g.RenderPath([]string{id}), priorContext(g, id))

			mu.Lock()
			defer mu.Unlock()
			done++
			if err != nil {
				if egCtx.Err() != nil {
					return egCtx.Err()
				}
				logger.Warn("[Eval] Scene classification failed", "scene_id", id, "err", err)
				degraded = true
			} else {
				cls[id] = c
			}

			if operationID != "" {
				progress := 40 * done / len(order)
				o.setStep(egCtx, operationID, "classifying scenes", progress)
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, false, err
	}
	return cls, degraded, nil
}

// evaluatePaths fans path judgments out over a bounded worker group and
// collects results in completion order through a single collector. The
// final slice is reordered to match the enumeration order so that output
// is deterministic.
func (o *Orchestrator) evaluatePaths(
	ctx context.Context,
	g *graph.Graph,
	paths []scenario.Path,
	operationID string,
) ([]scenario.PathConsistencyResult, bool, error) {
	if len(paths) == 0 {
		return nil, false, nil
	}

	type indexed struct {
		index  int
		result scenario.PathConsistencyResult
	}

	results := make(chan indexed, len(paths))
	collected := make([]indexed, 0, len(paths))
	degraded := false

	var collector sync.WaitGroup
	collector.Add(1)
	go func() {
		defer collector.Done()
		done := 0
		for r := range results {
			done++
			collected = append(collected, r)
			if r.result.Error != "" {
				degraded = true
			}
			if operationID != "" {
				progress := 40 + 55*done/len(paths)
				o.tracker.Progress(ctx, operationID, func(op *scenario.OperationInfo) {
					op.CurrentStep = "evaluating paths"
					op.Progress = progress
					op.DonePaths = done
				})
			}
		}
	}()

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(o.pathParallel)

	for i, path := range paths {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}

			callCtx, cancel := context.WithTimeout(egCtx, o.pathTimeout)
			defer cancel()

			res := scenario.PathConsistencyResult{SceneIDs: path.SceneIDs}
			eval, err := o.judge.EvaluatePathConsistency(callCtx, path)
			if err != nil {
				if egCtx.Err() != nil {
					return egCtx.Err()
				}
				logger.Warn("[Eval] Path evaluation failed", "scenes", len(path.SceneIDs), "err", err)
				res.Error = err.Error()
			} else {
				res.Result = eval
			}

			results <- indexed{index: i, result: res}
			return nil
		})
	}

	err := eg.Wait()
	close(results)
	collector.Wait()
	if err != nil {
		return nil, false, err
	}

	sort.Slice(collected, func(a, b int) bool { return collected[a].index < collected[b].index })
	ordered := make([]scenario.PathConsistencyResult, len(collected))
	for i, r := range collected {
		ordered[i] = r.result
	}
	return ordered, degraded, nil
}

// isSuccess decides the composite verdict: structural defects, entity
// issues, or any path judged worse than minor_issues fail the scenario.
func (o *Orchestrator) isSuccess(result *scenario.EvaluationResult) bool {
	if len(result.EntityIssues) > 0 {
		return false
	}
	for _, d := range result.Diagnostics {
		switch d.Kind {
		case scenario.DiagnosticNoStart, scenario.DiagnosticNoEnding, scenario.DiagnosticMissingReference:
			return false
		}
	}
	for _, pr := range result.PathResults {
		if pr.Result == nil {
			continue
		}
		switch pr.Result.Assessment {
		case scenario.AssessmentMajorIssues, scenario.AssessmentBroken:
			return false
		}
	}
	return true
}

func (o *Orchestrator) setStep(ctx context.Context, operationID, step string, progress int) {
	o.tracker.Progress(ctx, operationID, func(op *scenario.OperationInfo) {
		op.CurrentStep = step
		if progress > op.Progress {
			op.Progress = progress
		}
	})
}

func (o *Orchestrator) failOperation(ctx context.Context, operationID string, err error) {
	if operationID == "" {
		return
	}
	// The run context may already be canceled; persist with a fresh one.
	o.tracker.Fail(context.WithoutCancel(ctx), operationID, err.Error())
}

// priorContext summarizes what the reader knows before a scene: the
// titles of the scene's direct predecessors.
func priorContext(g *graph.Graph, sceneID string) string {
	if start := g.StartScene(); start == sceneID {
		return ""
	}

	preds := g.Predecessors(sceneID)
	if len(preds) == 0 {
		return ""
	}
	ctx := "The reader arrives here from: "
	for i, p := range preds {
		if i > 0 {
			ctx += ", "
		}
		if scene := g.Scene(p); scene != nil && scene.Title != "" {
			ctx += scene.Title
		} else {
			ctx += p
		}
	}
	return ctx
}

func countIssues(result *scenario.EvaluationResult) int {
	n := len(result.EntityIssues)
	for _, pr := range result.PathResults {
		if pr.Result != nil {
			n += len(pr.Result.Issues)
		}
	}
	return n
}
