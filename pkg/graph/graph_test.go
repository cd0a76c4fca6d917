package graph

import (
	"reflect"
	"testing"

	"github.com/fablecourt/continuity/pkg/scenario"
)

func linearScenario() *scenario.Scenario {
	return &scenario.Scenario{
		ID: "linear",
		Scenes: []scenario.Scene{
			{ID: "start", Type: scenario.SceneTypeNarrative, NextSceneID: "mid", Description: "The journey begins."},
			{ID: "mid", Type: scenario.SceneTypeNarrative, NextSceneID: "end", Description: "The road darkens."},
			{ID: "end", Type: scenario.SceneTypeNarrative, Description: "It is over."},
		},
	}
}

func branchingScenario() *scenario.Scenario {
	return &scenario.Scenario{
		ID: "branching",
		Scenes: []scenario.Scene{
			{ID: "start", Type: scenario.SceneTypeChoice, Branches: []scenario.Branch{
				{Label: "Take the high road", TargetSceneID: "good_end"},
				{Label: "Take the low road", TargetSceneID: "bad_end"},
			}},
			{ID: "good_end", Type: scenario.SceneTypeNarrative},
			{ID: "bad_end", Type: scenario.SceneTypeNarrative},
		},
	}
}

func TestBuildStartScene(t *testing.T) {
	tests := []struct {
		name      string
		sc        *scenario.Scenario
		wantStart string
		wantKinds []scenario.DiagnosticKind
	}{
		{
			name:      "linear scenario",
			sc:        linearScenario(),
			wantStart: "start",
		},
		{
			name:      "branching scenario",
			sc:        branchingScenario(),
			wantStart: "start",
		},
		{
			name: "multiple starts uses declaration order",
			sc: &scenario.Scenario{Scenes: []scenario.Scene{
				{ID: "a", Type: scenario.SceneTypeNarrative, NextSceneID: "c"},
				{ID: "b", Type: scenario.SceneTypeNarrative, NextSceneID: "c"},
				{ID: "c", Type: scenario.SceneTypeNarrative},
			}},
			wantStart: "a",
			wantKinds: []scenario.DiagnosticKind{scenario.DiagnosticMultipleStarts},
		},
		{
			name: "no start",
			sc: &scenario.Scenario{Scenes: []scenario.Scene{
				{ID: "a", Type: scenario.SceneTypeNarrative, NextSceneID: "b"},
				{ID: "b", Type: scenario.SceneTypeNarrative, NextSceneID: "a"},
			}},
			wantStart: "",
			wantKinds: []scenario.DiagnosticKind{scenario.DiagnosticNoStart, scenario.DiagnosticNoEnding},
		},
		{
			name:      "empty scenario",
			sc:        &scenario.Scenario{},
			wantStart: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Build(tt.sc)
			if g.StartScene() != tt.wantStart {
				t.Errorf("StartScene() = %q, want %q", g.StartScene(), tt.wantStart)
			}
			var kinds []scenario.DiagnosticKind
			for _, d := range g.Diagnostics() {
				kinds = append(kinds, d.Kind)
			}
			if !reflect.DeepEqual(kinds, tt.wantKinds) {
				t.Errorf("diagnostic kinds = %v, want %v", kinds, tt.wantKinds)
			}
		})
	}
}

func TestBuildEndingScenes(t *testing.T) {
	tests := []struct {
		name string
		sc   *scenario.Scenario
		want []string
	}{
		{
			name: "linear scenario",
			sc:   linearScenario(),
			want: []string{"end"},
		},
		{
			name: "branching scenario",
			sc:   branchingScenario(),
			want: []string{"good_end", "bad_end"},
		},
		{
			name: "special scene is an ending despite successor",
			sc: &scenario.Scenario{Scenes: []scenario.Scene{
				{ID: "start", Type: scenario.SceneTypeNarrative, NextSceneID: "finale"},
				{ID: "finale", Type: scenario.SceneTypeSpecial, NextSceneID: "epilogue"},
				{ID: "epilogue", Type: scenario.SceneTypeNarrative},
			}},
			want: []string{"finale", "epilogue"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Build(tt.sc)
			if got := g.EndingScenes(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("EndingScenes() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildMissingReference(t *testing.T) {
	sc := &scenario.Scenario{Scenes: []scenario.Scene{
		{ID: "start", Type: scenario.SceneTypeChoice, Branches: []scenario.Branch{
			{Label: "onward", TargetSceneID: "nowhere"},
		}},
	}}

	g := Build(sc)

	if len(g.Out("start")) != 0 {
		t.Errorf("Out(start) = %v, want no edges", g.Out("start"))
	}
	diags := g.Diagnostics()
	if len(diags) != 1 || diags[0].Kind != scenario.DiagnosticMissingReference {
		t.Fatalf("diagnostics = %v, want one missing-reference", diags)
	}
	if diags[0].SceneID != "start" {
		t.Errorf("diagnostic scene = %q, want %q", diags[0].SceneID, "start")
	}
}

func TestReachableOrder(t *testing.T) {
	g := Build(branchingScenario())

	got := g.ReachableOrder()
	if len(got) != 3 || got[0] != "start" {
		t.Fatalf("ReachableOrder() = %v, want start first and 3 scenes", got)
	}

	// Reverse postorder places every scene after all its tree ancestors.
	pos := make(map[string]int, len(got))
	for i, id := range got {
		pos[id] = i
	}
	if pos["good_end"] < pos["start"] || pos["bad_end"] < pos["start"] {
		t.Errorf("ReachableOrder() = %v, endings must come after start", got)
	}
}

func TestPredecessors(t *testing.T) {
	g := Build(linearScenario())

	if got := g.Predecessors("mid"); !reflect.DeepEqual(got, []string{"start"}) {
		t.Errorf("Predecessors(mid) = %v, want [start]", got)
	}
	if got := g.Predecessors("start"); got != nil {
		t.Errorf("Predecessors(start) = %v, want nil", got)
	}
}
