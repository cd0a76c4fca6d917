package judge

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/fablecourt/continuity/pkg/ai"
	"github.com/fablecourt/continuity/pkg/scenario"
)

// stubClient returns canned JSON per call and counts attempts.
type stubClient struct {
	responses []string
	errs      []error
	calls     int
}

func (s *stubClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	return "", errors.New("not used")
}

func (s *stubClient) GenerateCompletionWithFormat(ctx context.Context, name, description, prompt string, out any, opts ...ai.GenerateOption) error {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return s.errs[i]
	}
	if i >= len(s.responses) {
		return errors.New("no response configured")
	}
	return json.Unmarshal([]byte(s.responses[i]), out)
}

func (s *stubClient) ResetMetrics()               {}
func (s *stubClient) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

func TestClassifyScene(t *testing.T) {
	client := &stubClient{responses: []string{`{
		"introduced": [{"name": "Elara", "type": "character", "proper_noun": true, "confidence": "high"}],
		"removed": [],
		"present": [{"name": "the lantern", "type": "item", "proper_noun": false, "confidence": "medium"}],
		"time_delta": "moments"
	}`}}
	j := NewJudge(NewJudgeParams{Client: client})

	cls, err := j.ClassifyScene(context.Background(), "scene_1", "Elara lifts the lantern.", "")
	if err != nil {
		t.Fatalf("ClassifyScene() error = %v", err)
	}

	if cls.SceneID != "scene_1" {
		t.Errorf("SceneID = %q, want scene_1", cls.SceneID)
	}
	if len(cls.Introduced) != 1 || cls.Introduced[0].Name != "Elara" {
		t.Errorf("Introduced = %v, want Elara", cls.Introduced)
	}
	if cls.Introduced[0].Type != scenario.EntityTypeCharacter || cls.Introduced[0].Confidence != scenario.ConfidenceHigh {
		t.Errorf("Introduced[0] = %+v, want character/high", cls.Introduced[0])
	}
	if len(cls.Present) != 1 || cls.Present[0].Type != scenario.EntityTypeItem {
		t.Errorf("Present = %v, want one item", cls.Present)
	}
	if cls.TimeDelta != "moments" {
		t.Errorf("TimeDelta = %q, want moments", cls.TimeDelta)
	}
}

func TestClassifySceneUnknownValuesFallBack(t *testing.T) {
	client := &stubClient{responses: []string{`{
		"introduced": [{"name": "fate", "type": "prophecy", "proper_noun": false, "confidence": "certain"}],
		"removed": [], "present": [], "time_delta": "none"
	}`}}
	j := NewJudge(NewJudgeParams{Client: client})

	cls, err := j.ClassifyScene(context.Background(), "s", "text", "prior")
	if err != nil {
		t.Fatalf("ClassifyScene() error = %v", err)
	}
	if cls.Introduced[0].Type != scenario.EntityTypeConcept {
		t.Errorf("Type = %q, want fallback to concept", cls.Introduced[0].Type)
	}
	if cls.Introduced[0].Confidence != scenario.ConfidenceUnknown {
		t.Errorf("Confidence = %q, want fallback to unknown", cls.Introduced[0].Confidence)
	}
}

func TestClassifySceneRetriesTransientFailure(t *testing.T) {
	client := &stubClient{
		errs: []error{errors.New("transient"), nil},
		responses: []string{
			"", // consumed by the erroring attempt
			`{"introduced": [], "removed": [], "present": [], "time_delta": "none"}`,
		},
	}
	j := NewJudge(NewJudgeParams{Client: client, MaxRetries: 2})

	_, err := j.ClassifyScene(context.Background(), "s", "text", "")
	if err != nil {
		t.Fatalf("ClassifyScene() error = %v, want retry to succeed", err)
	}
	if client.calls != 2 {
		t.Errorf("calls = %d, want 2", client.calls)
	}
}

func TestEvaluatePathConsistency(t *testing.T) {
	client := &stubClient{responses: []string{`{
		"assessment": "major_issues",
		"issues": [{
			"severity": "high",
			"category": "time",
			"scene_numbers": [1, 3],
			"summary": "Night falls twice without a day between.",
			"details": "Scene one ends at dusk, scene three opens at dusk again."
		}]
	}`}}
	j := NewJudge(NewJudgeParams{Client: client})

	path := scenario.Path{
		SceneIDs: []string{"start", "mid", "end"},
		Text:     "…",
	}
	eval, err := j.EvaluatePathConsistency(context.Background(), path)
	if err != nil {
		t.Fatalf("EvaluatePathConsistency() error = %v", err)
	}

	if eval.Assessment != scenario.AssessmentMajorIssues {
		t.Errorf("Assessment = %q, want major_issues", eval.Assessment)
	}
	if len(eval.Issues) != 1 {
		t.Fatalf("Issues = %v, want one", eval.Issues)
	}
	issue := eval.Issues[0]
	if issue.ID == "" {
		t.Error("issue ID not generated")
	}
	if issue.Severity != scenario.SeverityHigh || issue.Category != scenario.CategoryTime {
		t.Errorf("issue = %+v, want high/time", issue)
	}
	if want := []string{"start", "end"}; !reflect.DeepEqual(issue.SceneIDs, want) {
		t.Errorf("SceneIDs = %v, want %v", issue.SceneIDs, want)
	}
}

func TestEvaluatePathConsistencyFailure(t *testing.T) {
	client := &stubClient{errs: []error{errors.New("judge down"), errors.New("judge down")}}
	j := NewJudge(NewJudgeParams{Client: client, MaxRetries: 2})

	_, err := j.EvaluatePathConsistency(context.Background(), scenario.Path{SceneIDs: []string{"s"}, Text: "t"})
	if err == nil {
		t.Fatal("EvaluatePathConsistency() = nil error, want failure after retries")
	}
	if client.calls != 2 {
		t.Errorf("calls = %d, want 2", client.calls)
	}
}

func TestSceneNumbersToIDs(t *testing.T) {
	ids := []string{"a", "b", "c"}
	tests := []struct {
		numbers []int
		want    []string
	}{
		{[]int{1, 2, 3}, []string{"a", "b", "c"}},
		{[]int{3, 1}, []string{"c", "a"}},
		{[]int{0, 4}, nil},
		{nil, nil},
	}
	for _, tt := range tests {
		if got := sceneNumbersToIDs(tt.numbers, ids); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("sceneNumbersToIDs(%v) = %v, want %v", tt.numbers, got, tt.want)
		}
	}
}
