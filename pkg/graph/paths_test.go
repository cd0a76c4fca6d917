package graph

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/fablecourt/continuity/pkg/scenario"
)

func pathIDs(paths []scenario.Path) [][]string {
	var ids [][]string
	for _, p := range paths {
		ids = append(ids, p.SceneIDs)
	}
	return ids
}

func TestEnumeratePaths(t *testing.T) {
	tests := []struct {
		name string
		sc   *scenario.Scenario
		want [][]string
	}{
		{
			name: "linear scenario yields one path",
			sc:   linearScenario(),
			want: [][]string{{"start", "mid", "end"}},
		},
		{
			name: "branching scenario yields one path per ending",
			sc:   branchingScenario(),
			want: [][]string{{"start", "good_end"}, {"start", "bad_end"}},
		},
		{
			name: "empty scenario yields no paths",
			sc:   &scenario.Scenario{},
			want: nil,
		},
		{
			name: "diamond rejoins into one ending",
			sc: &scenario.Scenario{Scenes: []scenario.Scene{
				{ID: "start", Type: scenario.SceneTypeChoice, Branches: []scenario.Branch{
					{Label: "left", TargetSceneID: "left"},
					{Label: "right", TargetSceneID: "right"},
				}},
				{ID: "left", Type: scenario.SceneTypeNarrative, NextSceneID: "end"},
				{ID: "right", Type: scenario.SceneTypeNarrative, NextSceneID: "end"},
				{ID: "end", Type: scenario.SceneTypeNarrative},
			}},
			want: [][]string{{"start", "left", "end"}, {"start", "right", "end"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Build(tt.sc)
			paths, diags := g.EnumeratePaths(EnumerateOptions{})
			if got := pathIDs(paths); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("EnumeratePaths() = %v, want %v", got, tt.want)
			}
			if len(diags) != 0 {
				t.Errorf("diagnostics = %v, want none", diags)
			}
		})
	}
}

func TestEnumeratePathsCycle(t *testing.T) {
	sc := &scenario.Scenario{Scenes: []scenario.Scene{
		{ID: "start", Type: scenario.SceneTypeNarrative, NextSceneID: "loop"},
		{ID: "loop", Type: scenario.SceneTypeChoice, Branches: []scenario.Branch{
			{Label: "again", TargetSceneID: "start"},
			{Label: "leave", TargetSceneID: "end"},
		}},
		{ID: "end", Type: scenario.SceneTypeNarrative},
	}}

	// No zero-in-degree scene exists, so the builder reports no-start and
	// enumeration from an explicit cycle must still terminate.
	g := Build(sc)
	if g.StartScene() != "" {
		t.Fatalf("StartScene() = %q, want none", g.StartScene())
	}

	// A cycle reachable from a proper start.
	sc2 := &scenario.Scenario{Scenes: []scenario.Scene{
		{ID: "intro", Type: scenario.SceneTypeNarrative, NextSceneID: "loop"},
		{ID: "loop", Type: scenario.SceneTypeChoice, Branches: []scenario.Branch{
			{Label: "again", TargetSceneID: "loop"},
			{Label: "leave", TargetSceneID: "end"},
		}},
		{ID: "end", Type: scenario.SceneTypeNarrative},
	}}
	g2 := Build(sc2)
	paths, diags := g2.EnumeratePaths(EnumerateOptions{})

	want := [][]string{{"intro", "loop"}, {"intro", "loop", "end"}}
	if got := pathIDs(paths); !reflect.DeepEqual(got, want) {
		t.Errorf("EnumeratePaths() = %v, want %v", got, want)
	}

	foundCycle := false
	for _, d := range diags {
		if d.Kind == scenario.DiagnosticCycle && d.SceneID == "loop" {
			foundCycle = true
		}
	}
	if !foundCycle {
		t.Errorf("diagnostics = %v, want a cycle diagnostic for loop", diags)
	}
}

// wideScenario builds n sequential binary choice points, giving 2^n paths.
func wideScenario(n int) *scenario.Scenario {
	sc := &scenario.Scenario{ID: "wide"}
	for i := 0; i < n; i++ {
		next := fmt.Sprintf("choice_%d", i+1)
		if i == n-1 {
			next = "end"
		}
		sc.Scenes = append(sc.Scenes,
			scenario.Scene{ID: fmt.Sprintf("choice_%d", i), Type: scenario.SceneTypeChoice, Branches: []scenario.Branch{
				{Label: "a", TargetSceneID: fmt.Sprintf("a_%d", i)},
				{Label: "b", TargetSceneID: fmt.Sprintf("b_%d", i)},
			}},
			scenario.Scene{ID: fmt.Sprintf("a_%d", i), Type: scenario.SceneTypeNarrative, NextSceneID: next},
			scenario.Scene{ID: fmt.Sprintf("b_%d", i), Type: scenario.SceneTypeNarrative, NextSceneID: next},
		)
	}
	sc.Scenes = append(sc.Scenes, scenario.Scene{ID: "end", Type: scenario.SceneTypeNarrative})
	return sc
}

func TestEnumeratePathsBound(t *testing.T) {
	g := Build(wideScenario(10)) // 1024 possible paths

	paths, diags := g.EnumeratePaths(EnumerateOptions{MaxPaths: 16})

	if len(paths) < 16 {
		t.Fatalf("len(paths) = %d, want at least the bound", len(paths))
	}
	if len(paths) > 32 {
		t.Errorf("len(paths) = %d, compression failed to cap output", len(paths))
	}

	boundReported := false
	for _, d := range diags {
		if d.Kind == scenario.DiagnosticPathBound {
			boundReported = true
		}
	}
	if !boundReported {
		t.Errorf("diagnostics = %v, want a path-bound diagnostic", diags)
	}

	// Every reachable ending keeps at least one representative.
	covered := make(map[string]bool)
	for _, p := range paths {
		covered[p.SceneIDs[len(p.SceneIDs)-1]] = true
	}
	if !covered["end"] {
		t.Error("ending scene has no representative path")
	}
}

func TestEnumeratePathsStartAndEndInvariant(t *testing.T) {
	for _, sc := range []*scenario.Scenario{linearScenario(), branchingScenario(), wideScenario(4)} {
		g := Build(sc)
		paths, _ := g.EnumeratePaths(EnumerateOptions{})
		for _, p := range paths {
			if p.SceneIDs[0] != g.StartScene() {
				t.Errorf("path %v does not start at %q", p.SceneIDs, g.StartScene())
			}
			last := p.SceneIDs[len(p.SceneIDs)-1]
			s := g.Scene(last)
			if len(g.Out(last)) != 0 && s.Type != scenario.SceneTypeSpecial {
				t.Errorf("path %v ends at non-terminal scene %q", p.SceneIDs, last)
			}
		}
	}
}

func TestRenderPath(t *testing.T) {
	g := Build(linearScenario())

	text := g.RenderPath([]string{"start", "mid"})
	if !strings.Contains(text, "The journey begins.") || !strings.Contains(text, "The road darkens.") {
		t.Errorf("RenderPath() = %q, missing scene text", text)
	}
	if strings.Contains(text, "It is over.") {
		t.Errorf("RenderPath() = %q, contains text from a scene outside the path", text)
	}
}
