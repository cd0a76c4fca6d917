package continuity

import (
	"context"
	"errors"
	"testing"

	"github.com/fablecourt/continuity/pkg/graph"
	"github.com/fablecourt/continuity/pkg/scenario"
)

func entity(name string, typ scenario.EntityType) scenario.SceneEntity {
	return scenario.SceneEntity{
		Type:       typ,
		Name:       name,
		ProperNoun: true,
		Confidence: scenario.ConfidenceHigh,
	}
}

// forkScenario: start branches to mid (introduces the lantern) and to
// shortcut; both rejoin at end, which references the lantern.
func forkScenario() *scenario.Scenario {
	return &scenario.Scenario{
		ID: "fork",
		Scenes: []scenario.Scene{
			{ID: "start", Type: scenario.SceneTypeChoice, Branches: []scenario.Branch{
				{Label: "search the cellar", TargetSceneID: "mid"},
				{Label: "take the shortcut", TargetSceneID: "shortcut"},
			}},
			{ID: "mid", Type: scenario.SceneTypeNarrative, NextSceneID: "end"},
			{ID: "shortcut", Type: scenario.SceneTypeNarrative, NextSceneID: "end"},
			{ID: "end", Type: scenario.SceneTypeNarrative},
		},
	}
}

func TestAnalyzeNotIntroducedOnBypassedPath(t *testing.T) {
	g := graph.Build(forkScenario())
	cls := scenario.ClassificationSet{
		"start":    {SceneID: "start"},
		"mid":      {SceneID: "mid", Introduced: []scenario.SceneEntity{entity("the lantern", scenario.EntityTypeItem)}},
		"shortcut": {SceneID: "shortcut"},
		"end":      {SceneID: "end", Present: []scenario.SceneEntity{entity("the lantern", scenario.EntityTypeItem)}},
	}

	report := Analyze(context.Background(), g, cls, AnalyzeOptions{})

	if len(report.Issues) != 1 {
		t.Fatalf("issues = %v, want exactly one", report.Issues)
	}
	issue := report.Issues[0]
	if issue.Type != scenario.IssueNotIntroduced {
		t.Errorf("issue type = %q, want not-introduced", issue.Type)
	}
	if issue.DetectedSceneID != "end" {
		t.Errorf("detected scene = %q, want end", issue.DetectedSceneID)
	}
	if issue.IntroducedSceneID != "mid" {
		t.Errorf("introduced scene = %q, want mid", issue.IntroducedSceneID)
	}
	if report.Degraded {
		t.Error("report degraded, want clean run")
	}
}

func TestAnalyzeNoFalsePositiveOnCommonPrefix(t *testing.T) {
	// The lantern is introduced in the start scene, before the fork, so
	// it is guaranteed known at end on every path.
	g := graph.Build(forkScenario())
	cls := scenario.ClassificationSet{
		"start":    {SceneID: "start", Introduced: []scenario.SceneEntity{entity("The Lantern", scenario.EntityTypeItem)}},
		"mid":      {SceneID: "mid"},
		"shortcut": {SceneID: "shortcut"},
		"end":      {SceneID: "end", Present: []scenario.SceneEntity{entity("lantern", scenario.EntityTypeItem)}},
	}

	report := Analyze(context.Background(), g, cls, AnalyzeOptions{})

	if len(report.Issues) != 0 {
		t.Errorf("issues = %v, want none", report.Issues)
	}
}

func TestAnalyzeLinearIntroductionBeforeUse(t *testing.T) {
	sc := &scenario.Scenario{Scenes: []scenario.Scene{
		{ID: "start", Type: scenario.SceneTypeNarrative, NextSceneID: "mid"},
		{ID: "mid", Type: scenario.SceneTypeNarrative, NextSceneID: "end"},
		{ID: "end", Type: scenario.SceneTypeNarrative},
	}}
	g := graph.Build(sc)
	cls := scenario.ClassificationSet{
		"start": {SceneID: "start"},
		"mid":   {SceneID: "mid", Introduced: []scenario.SceneEntity{entity("the lantern", scenario.EntityTypeItem)}},
		"end":   {SceneID: "end", Present: []scenario.SceneEntity{entity("the lantern", scenario.EntityTypeItem)}},
	}

	report := Analyze(context.Background(), g, cls, AnalyzeOptions{})

	if len(report.Issues) != 0 {
		t.Errorf("issues = %v, want none", report.Issues)
	}
}

func TestAnalyzeRemovedEntityNotKnownDownstream(t *testing.T) {
	sc := &scenario.Scenario{Scenes: []scenario.Scene{
		{ID: "start", Type: scenario.SceneTypeNarrative, NextSceneID: "mid"},
		{ID: "mid", Type: scenario.SceneTypeNarrative, NextSceneID: "end"},
		{ID: "end", Type: scenario.SceneTypeNarrative},
	}}
	g := graph.Build(sc)
	cls := scenario.ClassificationSet{
		"start": {SceneID: "start", Introduced: []scenario.SceneEntity{entity("Elara", scenario.EntityTypeCharacter)}},
		"mid":   {SceneID: "mid", Removed: []scenario.SceneEntity{entity("Elara", scenario.EntityTypeCharacter)}},
		"end":   {SceneID: "end", Present: []scenario.SceneEntity{entity("Elara", scenario.EntityTypeCharacter)}},
	}

	report := Analyze(context.Background(), g, cls, AnalyzeOptions{})

	if len(report.Issues) != 1 || report.Issues[0].Type != scenario.IssueNotIntroduced {
		t.Fatalf("issues = %v, want one not-introduced issue after removal", report.Issues)
	}
}

func TestAnalyzeSkipsUnclassifiedScenes(t *testing.T) {
	g := graph.Build(forkScenario())
	cls := scenario.ClassificationSet{
		"start": {SceneID: "start"},
		"end":   {SceneID: "end"},
	}

	report := Analyze(context.Background(), g, cls, AnalyzeOptions{})

	if !report.Degraded {
		t.Error("report not degraded despite missing classifications")
	}
	if len(report.SkippedScenes) != 2 {
		t.Errorf("skipped = %v, want mid and shortcut", report.SkippedScenes)
	}
	if len(report.Issues) != 0 {
		t.Errorf("issues = %v, want none", report.Issues)
	}
}

func TestAnalyzeAttributeDisagreement(t *testing.T) {
	sc := &scenario.Scenario{Scenes: []scenario.Scene{
		{ID: "start", Type: scenario.SceneTypeNarrative, NextSceneID: "end"},
		{ID: "end", Type: scenario.SceneTypeNarrative},
	}}
	g := graph.Build(sc)

	grayCat := entity("Ash", scenario.EntityTypeCharacter)
	grayCat.Attributes = map[string]string{"species": "cat"}
	grayDog := entity("Ash", scenario.EntityTypeCharacter)
	grayDog.Attributes = map[string]string{"species": "dog"}

	cls := scenario.ClassificationSet{
		"start": {SceneID: "start", Introduced: []scenario.SceneEntity{grayCat}},
		"end":   {SceneID: "end", Present: []scenario.SceneEntity{grayDog}},
	}

	report := Analyze(context.Background(), g, cls, AnalyzeOptions{})

	var found *scenario.EntityContinuityIssue
	for i := range report.Issues {
		if report.Issues[i].Type == scenario.IssueInconsistentAttribute {
			found = &report.Issues[i]
		}
	}
	if found == nil {
		t.Fatalf("issues = %v, want an inconsistent-attribute issue", report.Issues)
	}
	if found.Expected != "cat" || found.Actual != "dog" {
		t.Errorf("expected/actual = %q/%q, want cat/dog", found.Expected, found.Actual)
	}
}

func TestAnalyzeNameVariation(t *testing.T) {
	sc := &scenario.Scenario{Scenes: []scenario.Scene{
		{ID: "start", Type: scenario.SceneTypeNarrative, NextSceneID: "end"},
		{ID: "end", Type: scenario.SceneTypeNarrative},
	}}
	g := graph.Build(sc)
	cls := scenario.ClassificationSet{
		"start": {SceneID: "start", Introduced: []scenario.SceneEntity{entity("Elara Voss", scenario.EntityTypeCharacter)}},
		"end":   {SceneID: "end", Present: []scenario.SceneEntity{entity("Elara", scenario.EntityTypeCharacter)}},
	}

	report := Analyze(context.Background(), g, cls, AnalyzeOptions{})

	foundVariation := false
	for _, issue := range report.Issues {
		if issue.Type == scenario.IssueNameVariation {
			foundVariation = true
		}
	}
	if !foundVariation {
		t.Errorf("issues = %v, want a name-variation issue", report.Issues)
	}
}

type stubRegistry struct {
	exists map[string]bool
	err    error
}

func (r *stubRegistry) AssetExists(ctx context.Context, _ scenario.EntityType, name string) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	return r.exists[NormalizeName(name)], nil
}

func TestAnalyzeRegistryFailureDegrades(t *testing.T) {
	g := graph.Build(forkScenario())
	cls := scenario.ClassificationSet{
		"start":    {SceneID: "start"},
		"mid":      {SceneID: "mid", Introduced: []scenario.SceneEntity{entity("Elara", scenario.EntityTypeCharacter)}},
		"shortcut": {SceneID: "shortcut"},
		"end":      {SceneID: "end", Present: []scenario.SceneEntity{entity("Elara", scenario.EntityTypeCharacter)}},
	}

	report := Analyze(context.Background(), g, cls, AnalyzeOptions{
		Registry: &stubRegistry{err: errors.New("registry down")},
	})

	if len(report.Issues) != 1 {
		t.Fatalf("issues = %v, want the not-introduced issue regardless of registry failure", report.Issues)
	}
	if !report.Degraded {
		t.Error("report not degraded despite registry failure")
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"The Lantern", "lantern"},
		{"lantern", "lantern"},
		{"  A Whisper  ", "whisper"},
		{"An Old Map", "old map"},
		{"Elara", "elara"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeName(tt.in); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
