package scenario

// ContinuityIssueType tags why the continuity analyzer flagged an entity.
type ContinuityIssueType string

const (
	IssueNotIntroduced         ContinuityIssueType = "not-introduced"
	IssueInconsistentAttribute ContinuityIssueType = "inconsistent-attribute"
	IssueUnexpectedAbsence     ContinuityIssueType = "unexpected-absence"
	IssueUnexpectedPresence    ContinuityIssueType = "unexpected-presence"
	IssueNameVariation         ContinuityIssueType = "name-variation"
)

// EntityContinuityIssue is one violation of "introduced before used" or of
// attribute consistency, produced during a single analysis run and never
// mutated afterward.
type EntityContinuityIssue struct {
	Entity            SceneEntity         `json:"entity"`
	IntroducedSceneID string              `json:"introduced_scene_id,omitempty"`
	DetectedSceneID   string              `json:"detected_scene_id"`
	Type              ContinuityIssueType `json:"type"`
	Description       string              `json:"description"`
	Expected          string              `json:"expected,omitempty"`
	Actual            string              `json:"actual,omitempty"`
}

// DiagnosticKind tags a structural problem found in the scenario graph.
type DiagnosticKind string

const (
	DiagnosticMissingReference DiagnosticKind = "missing-reference"
	DiagnosticNoStart          DiagnosticKind = "no-start"
	DiagnosticMultipleStarts   DiagnosticKind = "multiple-starts"
	DiagnosticNoEnding         DiagnosticKind = "no-ending"
	DiagnosticCycle            DiagnosticKind = "cycle"
	DiagnosticPathBound        DiagnosticKind = "path-bound"
)

// Diagnostic records a structural defect in authored content. Defects are
/// data attached to the result, not failures: malformed scenarios are the
// common case this engine exists to catch.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	SceneID string         `json:"scene_id,omitempty"`
	Detail  string         `json:"detail"`
}

// Assessment is the judge's overall verdict on one path.
type Assessment string

const (
	AssessmentOK          Assessment = "ok"
	AssessmentMinorIssues Assessment = "minor_issues"
	AssessmentMajorIssues Assessment = "major_issues"
	AssessmentBroken      Assessment = "broken"
)

// IssueSeverity grades a consistency issue.
type IssueSeverity string

const (
	SeverityLow      IssueSeverity = "low"
	SeverityMedium   IssueSeverity = "medium"
	SeverityHigh     IssueSeverity = "high"
	SeverityCritical IssueSeverity = "critical"
)

// IssueCategory classifies what kind of contradiction a consistency issue is.
type IssueCategory string

const (
	CategoryEntity    IssueCategory = "entity"
	CategoryTime      IssueCategory = "time"
	CategoryEmotional IssueCategory = "emotional"
	CategoryCausal    IssueCategory = "causal"
	CategoryOther     IssueCategory = "other"
)

// ConsistencyIssue is one contradiction the judge found along a path.
type ConsistencyIssue struct {
	ID           string        `json:"id"`
	Severity     IssueSeverity `json:"severity"`
	Category     IssueCategory `json:"category"`
	SceneIDs     []string      `json:"scene_ids,omitempty"`
	Summary      string        `json:"summary"`
	Details      string        `json:"details,omitempty"`
	SuggestedFix string        `json:"suggested_fix,omitempty"`
}

// ConsistencyEvaluation is the judge's verdict for one path.
type ConsistencyEvaluation struct {
	Assessment Assessment         `json:"assessment"`
	Issues     []ConsistencyIssue `json:"issues"`
}

// Path is one start-to-ending traversal: the ordered scene ids plus the
// concatenated narrative text for those scenes.
type Path struct {
	SceneIDs []string `json:"scene_ids"`
	Text     string   `json:"text"`
}

// PathConsistencyResult pairs a path with the judge's verdict. Result is
// nil when the judge failed or timed out for this path; the scene ids are
// preserved either way so one bad path never hides the others.
type PathConsistencyResult struct {
	SceneIDs []string               `json:"scene_ids"`
	Result   *ConsistencyEvaluation `json:"result,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

// EvaluationResult is the terminal artifact of one full evaluation run.
// Degraded is set when any per-unit work failed (judge errors, skipped
// scenes) so callers can tell real narrative problems apart from an
// incomplete check.
type EvaluationResult struct {
	ScenarioID   string                  `json:"scenario_id"`
	PathResults  []PathConsistencyResult `json:"path_results"`
	EntityIssues []EntityContinuityIssue `json:"entity_issues"`
	Diagnostics  []Diagnostic            `json:"diagnostics,omitempty"`
	Success      bool                    `json:"success"`
	Degraded     bool                    `json:"degraded"`
}
