package judge

import (
	"context"
	"fmt"
	"time"

	"github.com/fablecourt/continuity/internal/util"
	"github.com/fablecourt/continuity/pkg/ai"
	"github.com/fablecourt/continuity/pkg/logger"
	"github.com/fablecourt/continuity/pkg/scenario"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/pkoukk/tiktoken-go"
	"golang.org/x/time/rate"
)

// Judge exposes the two semantic judgment operations the engine consumes.
// It wraps a model client with per-call timeouts, bounded retries and a
// shared rate limiter so that concurrent path workers respect the
// provider's latency characteristics.
type Judge struct {
	client  ai.JudgeClient
	limiter *rate.Limiter

	timeout       time.Duration
	maxRetries    int
	maxPathTokens int
	tokenEncoder  string
}

// NewJudgeParams configures a Judge.
type NewJudgeParams struct {
	Client ai.JudgeClient

	// RequestsPerSecond throttles judge calls across all workers.
	// Zero disables throttling.
	RequestsPerSecond float64
	// Timeout bounds each individual judge call. Zero means 120s.
	Timeout time.Duration
	// MaxRetries bounds attempts per call. Zero means 2.
	MaxRetries int
	// MaxPathTokens truncates oversized path text before submission.
	// Zero means 24000.
	MaxPathTokens int
	// TokenEncoder names the tiktoken encoding used for truncation.
	// Empty means o200k_base.
	TokenEncoder string
}

// NewJudge creates a Judge around the given model client.
func NewJudge(params NewJudgeParams) *Judge {
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 2
	}
	maxPathTokens := params.MaxPathTokens
	if maxPathTokens <= 0 {
		maxPathTokens = 24000
	}
	encoder := params.TokenEncoder
	if encoder == "" {
		encoder = "o200k_base"
	}

	var limiter *rate.Limiter
	if params.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(params.RequestsPerSecond), 1)
	}

	return &Judge{
		client:        params.Client,
		limiter:       limiter,
		timeout:       timeout,
		maxRetries:    maxRetries,
		maxPathTokens: maxPathTokens,
		tokenEncoder:  encoder,
	}
}

type classifiedEntity struct {
	Name       string            `json:"name" jsonschema_description:"Entity name exactly as the scene refers to it"`
	Type       string            `json:"type" jsonschema:"enum=character,enum=location,enum=item,enum=concept" jsonschema_description:"Entity category"`
	ProperNoun bool              `json:"proper_noun" jsonschema_description:"Whether the name is a proper noun"`
	Confidence string            `json:"confidence" jsonschema:"enum=unknown,enum=low,enum=medium,enum=high" jsonschema_description:"Confidence in this classification"`
	Attributes map[string]string `json:"attributes,omitempty" jsonschema_description:"Durable properties stated by the scene, e.g. species or role"`
}

type classifyResponse struct {
	Introduced []classifiedEntity `json:"introduced" jsonschema_description:"Entities the reader meets here for the first time"`
	Removed    []classifiedEntity `json:"removed" jsonschema_description:"Entities that leave the story in this scene"`
	Present    []classifiedEntity `json:"present" jsonschema_description:"Entities referenced as already known"`
	TimeDelta  string             `json:"time_delta" jsonschema:"enum=none,enum=moments,enum=hours,enum=days,enum=longer" jsonschema_description:"Story time passing during the scene"`
}

// ClassifyScene asks the judge which entities the scene introduces,
// removes, or references. priorContext carries the narrative established
// before the scene and may be empty.
func (j *Judge) ClassifyScene(
	ctx context.Context,
	sceneID string,
	sceneText string,
	priorContext string,
) (*scenario.SceneEntityClassification, error) {
	systemPrompt := fmt.Sprintf(ai.ClassifyScenePrompt, orNone(priorContext))

	res, err := util.RetryWithContext(ctx, j.maxRetries, func(ctx context.Context) (*classifyResponse, error) {
		if err := j.wait(ctx); err != nil {
			return nil, err
		}
		callCtx, cancel := context.WithTimeout(ctx, j.timeout)
		defer cancel()

		var out classifyResponse
		err := j.client.GenerateCompletionWithFormat(
			callCtx,
			"classify_scene_entities",
			"Classify the characters, locations, items and concepts referenced by one scene.",
			sceneText,
			&out,
			ai.WithSystemPrompts(systemPrompt),
		)
		if err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to classify scene %q: %w", sceneID, err)
	}

	cls := &scenario.SceneEntityClassification{
		SceneID:    sceneID,
		Introduced: mapEntities(res.Introduced),
		Removed:    mapEntities(res.Removed),
		Present:    mapEntities(res.Present),
		TimeDelta:  res.TimeDelta,
	}
	return cls, nil
}

type pathIssue struct {
	Severity     string `json:"severity" jsonschema:"enum=low,enum=medium,enum=high,enum=critical" jsonschema_description:"Severity of the contradiction"`
	Category     string `json:"category" jsonschema:"enum=entity,enum=time,enum=emotional,enum=causal,enum=other" jsonschema_description:"Kind of contradiction"`
	SceneNumbers []int  `json:"scene_numbers" jsonschema_description:"1-based positions of the involved scenes within this path"`
	Summary      string `json:"summary" jsonschema_description:"One-sentence description of the issue"`
	Details      string `json:"details,omitempty" jsonschema_description:"Longer explanation with the contradicting passages"`
	SuggestedFix string `json:"suggested_fix,omitempty" jsonschema_description:"Optional suggestion for resolving the issue"`
}

type pathResponse struct {
	Assessment string      `json:"assessment" jsonschema:"enum=ok,enum=minor_issues,enum=major_issues,enum=broken" jsonschema_description:"Overall verdict for the path"`
	Issues     []pathIssue `json:"issues" jsonschema_description:"Contradictions found along the path"`
}

// EvaluatePathConsistency submits one complete path's narrative to the
// judge and maps the verdict into the engine's result shape. Oversized
// path text is truncated to the configured token budget.
func (j *Judge) EvaluatePathConsistency(
	ctx context.Context,
	path scenario.Path,
) (*scenario.ConsistencyEvaluation, error) {
	text, truncated, err := j.truncate(path.Text)
	if err != nil {
		return nil, err
	}
	if truncated {
		logger.Warn("[Judge] Path text truncated to token budget", "scenes", len(path.SceneIDs), "max_tokens", j.maxPathTokens)
	}

	res, err := util.RetryWithContext(ctx, j.maxRetries, func(ctx context.Context) (*pathResponse, error) {
		if err := j.wait(ctx); err != nil {
			return nil, err
		}
		callCtx, cancel := context.WithTimeout(ctx, j.timeout)
		defer cancel()

		var out pathResponse
		err := j.client.GenerateCompletionWithFormat(
			callCtx,
			"evaluate_path_consistency",
			"Judge whether one player path through a branching story stays narratively consistent.",
			text,
			&out,
			ai.WithSystemPrompts(ai.EvaluatePathConsistencyPrompt),
		)
		if err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate path consistency: %w", err)
	}

	eval := &scenario.ConsistencyEvaluation{
		Assessment: mapAssessment(res.Assessment),
	}
	for _, issue := range res.Issues {
		id, err := gonanoid.New()
		if err != nil {
			return nil, fmt.Errorf("failed to generate issue ID: %w", err)
		}
		eval.Issues = append(eval.Issues, scenario.ConsistencyIssue{
			ID:           id,
			Severity:     mapSeverity(issue.Severity),
			Category:     mapCategory(issue.Category),
			SceneIDs:     sceneNumbersToIDs(issue.SceneNumbers, path.SceneIDs),
			Summary:      issue.Summary,
			Details:      issue.Details,
			SuggestedFix: issue.SuggestedFix,
		})
	}
	return eval, nil
}

func (j *Judge) wait(ctx context.Context) error {
	if j.limiter == nil {
		return nil
	}
	return j.limiter.Wait(ctx)
}

func (j *Judge) truncate(text string) (string, bool, error) {
	// A token is at least one byte, so short text cannot exceed the
	// budget and skips the encoder entirely.
	if len(text) <= j.maxPathTokens {
		return text, false, nil
	}
	enc, err := tiktoken.GetEncoding(j.tokenEncoder)
	if err != nil {
		return "", false, err
	}
	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= j.maxPathTokens {
		return text, false, nil
	}
	return enc.Decode(tokens[:j.maxPathTokens]), true, nil
}

func mapEntities(entities []classifiedEntity) []scenario.SceneEntity {
	mapped := make([]scenario.SceneEntity, 0, len(entities))
	for _, e := range entities {
		if e.Name == "" {
			continue
		}
		mapped = append(mapped, scenario.SceneEntity{
			Type:       mapEntityType(e.Type),
			Name:       e.Name,
			ProperNoun: e.ProperNoun,
			Confidence: mapConfidence(e.Confidence),
			Attributes: e.Attributes,
		})
	}
	return mapped
}

func mapEntityType(t string) scenario.EntityType {
	switch scenario.EntityType(t) {
	case scenario.EntityTypeCharacter, scenario.EntityTypeLocation, scenario.EntityTypeItem, scenario.EntityTypeConcept:
		return scenario.EntityType(t)
	default:
		return scenario.EntityTypeConcept
	}
}

func mapConfidence(c string) scenario.Confidence {
	switch scenario.Confidence(c) {
	case scenario.ConfidenceLow, scenario.ConfidenceMedium, scenario.ConfidenceHigh:
		return scenario.Confidence(c)
	default:
		return scenario.ConfidenceUnknown
	}
}

func mapAssessment(a string) scenario.Assessment {
	switch scenario.Assessment(a) {
	case scenario.AssessmentOK, scenario.AssessmentMinorIssues, scenario.AssessmentMajorIssues, scenario.AssessmentBroken:
		return scenario.Assessment(a)
	default:
		return scenario.AssessmentMinorIssues
	}
}

func mapSeverity(s string) scenario.IssueSeverity {
	switch scenario.IssueSeverity(s) {
	case scenario.SeverityLow, scenario.SeverityMedium, scenario.SeverityHigh, scenario.SeverityCritical:
		return scenario.IssueSeverity(s)
	default:
		return scenario.SeverityMedium
	}
}

func mapCategory(c string) scenario.IssueCategory {
	switch scenario.IssueCategory(c) {
	case scenario.CategoryEntity, scenario.CategoryTime, scenario.CategoryEmotional, scenario.CategoryCausal:
		return scenario.IssueCategory(c)
	default:
		return scenario.CategoryOther
	}
}

func sceneNumbersToIDs(numbers []int, sceneIDs []string) []string {
	var ids []string
	for _, n := range numbers {
		if n >= 1 && n <= len(sceneIDs) {
			ids = append(ids, sceneIDs[n-1])
		}
	}
	return ids
}

func orNone(s string) string {
	if s == "" {
		return "(none, this is the opening scene)"
	}
	return s
}
