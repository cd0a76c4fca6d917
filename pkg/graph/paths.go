package graph

import (
	"fmt"
	"strings"

	"github.com/fablecourt/continuity/pkg/scenario"
)

// DefaultMaxPaths bounds how many paths one enumeration returns. Branch
// count makes the path count exponential in scene count, so the enumerator
// must degrade by compression instead of exhausting memory.
const DefaultMaxPaths = 256

// stepBudgetFactor caps total DFS steps relative to MaxPaths so that
// enumeration terminates even when the bound keeps rejecting paths.
const stepBudgetFactor = 64

// EnumerateOptions configures path enumeration.
type EnumerateOptions struct {
	// MaxPaths is the upper bound on returned paths. Zero means
	// DefaultMaxPaths.
	MaxPaths int
}

type enumerator struct {
	g        *Graph
	maxPaths int
	steps    int
	budget   int

	paths    []scenario.Path
	suffixes map[string]bool
	endings  map[string]bool
	cycles   map[string]bool
	boundHit bool

	diagnostics []scenario.Diagnostic
}

// EnumeratePaths walks every start-to-ending traversal of the graph.
// Cycles are cut at the first scene revisited within the current path; the
// truncated traversal is kept as a path and flagged with a cycle
// diagnostic. When the path bound is hit, remaining traversals are
// compressed to one representative per distinct ending suffix, and every
// reachable ending keeps at least one path.
func (g *Graph) EnumeratePaths(opts EnumerateOptions) ([]scenario.Path, []scenario.Diagnostic) {
	maxPaths := opts.MaxPaths
	if maxPaths <= 0 {
		maxPaths = DefaultMaxPaths
	}

	if g.start == "" {
		return nil, nil
	}

	e := &enumerator{
		g:        g,
		maxPaths: maxPaths,
		budget:   maxPaths * stepBudgetFactor,
		suffixes: make(map[string]bool),
		endings:  make(map[string]bool),
		cycles:   make(map[string]bool),
	}

	onPath := map[string]bool{g.start: true}
	e.walk(g.start, []string{g.start}, onPath)

	e.coverMissingEndings()

	return e.paths, e.diagnostics
}

func (e *enumerator) walk(id string, path []string, onPath map[string]bool) {
	e.steps++
	if e.steps > e.budget {
		if len(e.diagnostics) == 0 || e.diagnostics[len(e.diagnostics)-1].Kind != scenario.DiagnosticPathBound {
			e.diagnostics = append(e.diagnostics, scenario.Diagnostic{
				Kind:   scenario.DiagnosticPathBound,
				Detail: fmt.Sprintf("path enumeration stopped after %d steps", e.budget),
			})
		}
		return
	}

	s := e.g.Scene(id)
	edges := e.g.Out(id)

	if s.Type == scenario.SceneTypeSpecial || len(edges) == 0 {
		e.record(path)
		return
	}

	for _, edge := range edges {
		if onPath[edge.To] {
			if !e.cycles[edge.To] {
				e.cycles[edge.To] = true
				e.diagnostics = append(e.diagnostics, scenario.Diagnostic{
					Kind:    scenario.DiagnosticCycle,
					SceneID: edge.To,
					Detail:  fmt.Sprintf("branch from %q revisits scene %q", id, edge.To),
				})
			}
			// The truncated traversal still counts as reaching a
			// non-canonical ending.
			e.record(path)
			continue
		}

		onPath[edge.To] = true
		e.walk(edge.To, append(path, edge.To), onPath)
		delete(onPath, edge.To)

		if e.steps > e.budget {
			return
		}
	}
}

func (e *enumerator) record(ids []string) {
	ending := ids[len(ids)-1]
	key := suffixKey(ids)

	if len(e.paths) >= e.maxPaths {
		if !e.boundHit {
			e.boundHit = true
			e.diagnostics = append(e.diagnostics, scenario.Diagnostic{
				Kind:   scenario.DiagnosticPathBound,
				Detail: fmt.Sprintf("path count exceeds %d, remaining paths compressed by ending suffix", e.maxPaths),
			})
		}
		// Past the bound only endings without a representative get
		// through, one per distinct suffix.
		if e.endings[ending] || e.suffixes[key] {
			return
		}
	}

	e.suffixes[key] = true
	e.endings[ending] = true

	path := scenario.Path{
		SceneIDs: append([]string(nil), ids...),
		Text:     e.g.RenderPath(ids),
	}
	e.paths = append(e.paths, path)
}

// coverMissingEndings guarantees that a hit step budget never drops a
// reachable ending entirely: any ending without a recorded path gets one
// built from the BFS parent tree.
func (e *enumerator) coverMissingEndings() {
	if e.steps <= e.budget {
		return
	}

	parent := map[string]string{e.g.start: ""}
	queue := []string{e.g.start}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, edge := range e.g.Out(id) {
			if _, seen := parent[edge.To]; seen {
				continue
			}
			parent[edge.To] = id
			queue = append(queue, edge.To)
		}
	}

	for _, ending := range e.g.EndingScenes() {
		if e.endings[ending] {
			continue
		}
		if _, reachable := parent[ending]; !reachable {
			continue
		}
		var ids []string
		for id := ending; id != ""; id = parent[id] {
			ids = append([]string{id}, ids...)
		}
		e.endings[ending] = true
		e.suffixes[suffixKey(ids)] = true
		e.paths = append(e.paths, scenario.Path{
			SceneIDs: ids,
			Text:     e.g.RenderPath(ids),
		})
	}
}

// suffixKey identifies a path by its ending and the two scenes before it,
// the granularity used for compression once the bound is hit.
func suffixKey(ids []string) string {
	start := len(ids) - 3
	if start < 0 {
		start = 0
	}
	return strings.Join(ids[start:], "→")
}

// RenderPath concatenates the narrative text of the given scenes in order.
func (g *Graph) RenderPath(ids []string) string {
	var b strings.Builder
	for i, id := range ids {
		s := g.Scene(id)
		if s == nil {
			continue
		}
		if i > 0 {
			b.WriteString("\n\n")
		}
		if s.Title != "" {
			b.WriteString("## ")
			b.WriteString(s.Title)
			b.WriteString("\n\n")
		}
		b.WriteString(s.Description)
	}
	return b.String()
}
