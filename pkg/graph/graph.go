package graph

import (
	"fmt"

	"github.com/fablecourt/continuity/pkg/scenario"
)

// Edge is one directed transition between scenes. Label is the branch's
// choice label, or empty for a linear next-scene transition.
type Edge struct {
	From   string
	To     string
	Label  string
	Branch *scenario.Branch
}

// Graph is the read-only view of a scenario's branching structure, built
// once per evaluation and safe to share across concurrent workers.
type Graph struct {
	order       []string
	scenes      map[string]*scenario.Scene
	out         map[string][]Edge
	inDegree    map[string]int
	start       string
	endings     []string
	diagnostics []scenario.Diagnostic
}

// Build constructs the graph from the scenario's scene list. Dangling scene
// references become missing-reference diagnostics instead of edges; start
// and ending detection problems are likewise recorded as diagnostics. A
// scenario with zero scenes yields an empty graph.
func Build(sc *scenario.Scenario) *Graph {
	g := &Graph{
		scenes:   make(map[string]*scenario.Scene, len(sc.Scenes)),
		out:      make(map[string][]Edge),
		inDegree: make(map[string]int),
	}

	for i := range sc.Scenes {
		s := &sc.Scenes[i]
		if _, dup := g.scenes[s.ID]; dup {
			g.diag(scenario.DiagnosticMissingReference, s.ID,
				fmt.Sprintf("duplicate scene id %q, later declaration ignored", s.ID))
			continue
		}
		g.scenes[s.ID] = s
		g.order = append(g.order, s.ID)
		g.inDegree[s.ID] = 0
	}

	for _, id := range g.order {
		s := g.scenes[id]
		if s.HasBranches() {
			for i := range s.Branches {
				b := &s.Branches[i]
				g.addEdge(Edge{From: id, To: b.TargetSceneID, Label: b.Label, Branch: b})
			}
			continue
		}
		if s.NextSceneID != "" {
			g.addEdge(Edge{From: id, To: s.NextSceneID})
		}
	}

	g.findStart()
	g.findEndings()

	return g
}

func (g *Graph) addEdge(e Edge) {
	if _, ok := g.scenes[e.To]; !ok {
		g.diag(scenario.DiagnosticMissingReference, e.From,
			fmt.Sprintf("scene %q references missing scene %q", e.From, e.To))
		return
	}
	g.out[e.From] = append(g.out[e.From], e)
	g.inDegree[e.To]++
}

func (g *Graph) diag(kind scenario.DiagnosticKind, sceneID, detail string) {
	g.diagnostics = append(g.diagnostics, scenario.Diagnostic{
		Kind:    kind,
		SceneID: sceneID,
		Detail:  detail,
	})
}

// findStart picks the scene with zero incoming edges. Ties break by
// declaration order and are flagged; a scenario with no candidate gets a
// no-start diagnostic.
func (g *Graph) findStart() {
	var candidates []string
	for _, id := range g.order {
		if g.inDegree[id] == 0 {
			candidates = append(candidates, id)
		}
	}

	switch len(candidates) {
	case 0:
		if len(g.order) > 0 {
			g.diag(scenario.DiagnosticNoStart, "", "no scene without incoming transitions")
		}
	case 1:
		g.start = candidates[0]
	default:
		g.start = candidates[0]
		g.diag(scenario.DiagnosticMultipleStarts, candidates[0],
			fmt.Sprintf("%d scenes have no incoming transitions, using %q", len(candidates), candidates[0]))
	}
}

func (g *Graph) findEndings() {
	for _, id := range g.order {
		s := g.scenes[id]
		if s.Type == scenario.SceneTypeSpecial || len(g.out[id]) == 0 {
			g.endings = append(g.endings, id)
		}
	}
	if len(g.order) > 0 && len(g.endings) == 0 {
		g.diag(scenario.DiagnosticNoEnding, "", "no reachable ending scene")
	}
}

// StartScene returns the id of the start scene, or empty when the scenario
// has none (see Diagnostics).
func (g *Graph) StartScene() string {
	return g.start
}

// EndingScenes returns the ids of all terminal scenes in declaration order.
func (g *Graph) EndingScenes() []string {
	return g.endings
}

// Scene returns the scene with the given id, or nil.
func (g *Graph) Scene(id string) *scenario.Scene {
	return g.scenes[id]
}

// Out returns the ordered outgoing edges of a scene.
func (g *Graph) Out(id string) []Edge {
	return g.out[id]
}

// SceneIDs returns all scene ids in declaration order.
func (g *Graph) SceneIDs() []string {
	return g.order
}

// Len returns the number of scenes in the graph.
func (g *Graph) Len() int {
	return len(g.order)
}

// Diagnostics returns the structural defects recorded while building.
func (g *Graph) Diagnostics() []scenario.Diagnostic {
	return g.diagnostics
}

// Predecessors returns the ids of scenes with an edge into the given scene.
func (g *Graph) Predecessors(id string) []string {
	var preds []string
	for _, from := range g.order {
		for _, e := range g.out[from] {
			if e.To == id {
				preds = append(preds, from)
				break
			}
		}
	}
	return preds
}

// ReachableOrder returns the scenes reachable from the start node in a
// reverse-postorder of the depth-first spanning tree. Back edges are
// ignored, which is how the continuity analysis cuts cycles.
func (g *Graph) ReachableOrder() []string {
	if g.start == "" {
		return nil
	}

	visited := make(map[string]bool, len(g.order))
	var postorder []string

	var visit func(id string)
	visit = func(id string) {
		visited[id] = true
		for _, e := range g.out[id] {
			if !visited[e.To] {
				visit(e.To)
			}
		}
		postorder = append(postorder, id)
	}
	visit(g.start)

	rpo := make([]string, 0, len(postorder))
	for i := len(postorder) - 1; i >= 0; i-- {
		rpo = append(rpo, postorder[i])
	}
	return rpo
}
