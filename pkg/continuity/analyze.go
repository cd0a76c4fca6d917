package continuity

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/fablecourt/continuity/pkg/graph"
	"github.com/fablecourt/continuity/pkg/logger"
	"github.com/fablecourt/continuity/pkg/scenario"
)

// AssetRegistry resolves whether a referenced entity corresponds to a
// registered media asset. It is optional: a missing registry degrades
// confidence but never blocks analysis.
type AssetRegistry interface {
	AssetExists(ctx context.Context, entityType scenario.EntityType, name string) (bool, error)
}

// AnalyzeOptions configures one analysis run.
type AnalyzeOptions struct {
	Registry AssetRegistry
}

// Report is the outcome of one continuity analysis run.
type Report struct {
	Issues []scenario.EntityContinuityIssue
	// SkippedScenes lists scenes without a classification; they were
	// excluded from the data flow, so the report is lower-confidence.
	SkippedScenes []string
	Degraded      bool
}

// fixpointCap bounds data-flow iteration; reverse postorder converges in a
// couple of sweeps on reducible graphs, the cap only guards degenerate ones.
const fixpointCap = 16

// Analyze runs a forward meet-over-all-paths data flow over the scenario
// graph: an entity is guaranteed known at a scene only if it is introduced
// on every path from the start to that scene. Entities used in a scene
// without that guarantee produce not-introduced issues; classification
// metadata disagreements produce attribute and name-variation issues.
func Analyze(ctx context.Context, g *graph.Graph, cls scenario.ClassificationSet, opts AnalyzeOptions) Report {
	report := Report{}
	order := g.ReachableOrder()
	if len(order) == 0 {
		return report
	}

	for _, id := range order {
		if cls[id] == nil {
			report.SkippedScenes = append(report.SkippedScenes, id)
			report.Degraded = true
		}
	}
	if len(report.SkippedScenes) > 0 {
		logger.Warn("[Continuity] Scenes without classification skipped", "count", len(report.SkippedScenes))
	}

	known := solveKnownSets(g, order, cls)

	intro := introductionIndex(order, cls)

	for _, id := range order {
		c := cls[id]
		if c == nil {
			continue
		}
		introducedHere := nameSet(c.Introduced)
		for _, entity := range c.Present {
			name := NormalizeName(entity.Name)
			if name == "" || introducedHere[name] {
				continue
			}
			if known[id][name] {
				continue
			}
			issue := scenario.EntityContinuityIssue{
				Entity:            entity,
				IntroducedSceneID: intro[name],
				DetectedSceneID:   id,
				Type:              scenario.IssueNotIntroduced,
				Description:       notIntroducedDetail(ctx, entity, id, intro[name], opts.Registry, &report),
			}
			report.Issues = append(report.Issues, issue)
		}
	}

	report.Issues = append(report.Issues, attributeIssues(order, cls)...)
	report.Issues = append(report.Issues, nameVariationIssues(order, cls)...)

	return report
}

// solveKnownSets iterates the transfer function to a fixed point in
// reverse postorder. out(n) = (in(n) ∪ introduced(n)) − removed(n), with
// in(n) the intersection of all predecessors' out sets. Scenes without a
// classification transfer their input unchanged.
func solveKnownSets(g *graph.Graph, order []string, cls scenario.ClassificationSet) map[string]map[string]bool {
	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}

	in := make(map[string]map[string]bool, len(order))
	out := make(map[string]map[string]bool, len(order))

	for iter := 0; iter < fixpointCap; iter++ {
		changed := false

		for _, id := range order {
			var meet map[string]bool
			first := true
			for _, pred := range g.Predecessors(id) {
				p, reachable := pos[pred]
				// Unreachable predecessors carry no paths; edges
				// arriving from later in the order are back edges
				// and are cut, as during enumeration.
				if !reachable || p >= pos[id] {
					continue
				}
				po := out[pred]
				if first {
					meet = copySet(po)
					first = false
					continue
				}
				meet = intersect(meet, po)
			}
			if meet == nil {
				meet = map[string]bool{}
			}

			o := copySet(meet)
			if c := cls[id]; c != nil {
				for _, e := range c.Introduced {
					if n := NormalizeName(e.Name); n != "" {
						o[n] = true
					}
				}
				for _, e := range c.Removed {
					delete(o, NormalizeName(e.Name))
				}
			}

			if !equalSets(in[id], meet) || !equalSets(out[id], o) {
				changed = true
			}
			in[id] = meet
			out[id] = o
		}

		if !changed {
			break
		}
	}

	return in
}

func notIntroducedDetail(
	ctx context.Context,
	entity scenario.SceneEntity,
	sceneID string,
	introducedIn string,
	registry AssetRegistry,
	report *Report,
) string {
	detail := fmt.Sprintf("%s %q is referenced in scene %q but is not introduced on every path reaching it", entity.Type, entity.Name, sceneID)
	if introducedIn != "" {
		detail += fmt.Sprintf(" (introduced only in scene %q)", introducedIn)
	}

	if registry == nil || entity.Type != scenario.EntityTypeCharacter || !entity.ProperNoun {
		return detail
	}
	exists, err := registry.AssetExists(ctx, entity.Type, entity.Name)
	if err != nil {
		report.Degraded = true
		return detail
	}
	if exists {
		detail += "; the character is registered, so this is likely an ordering problem rather than a typo"
	}
	return detail
}

// introductionIndex maps each normalized entity name to the first scene
// (in reachable order) that introduces it.
func introductionIndex(order []string, cls scenario.ClassificationSet) map[string]string {
	intro := make(map[string]string)
	for _, id := range order {
		c := cls[id]
		if c == nil {
			continue
		}
		for _, e := range c.Introduced {
			n := NormalizeName(e.Name)
			if n != "" && intro[n] == "" {
				intro[n] = id
			}
		}
	}
	return intro
}

// attributeIssues flags entities whose classification metadata disagrees
// between scenes, e.g. a character whose species changes mid-story.
func attributeIssues(order []string, cls scenario.ClassificationSet) []scenario.EntityContinuityIssue {
	type seen struct {
		value   string
		sceneID string
	}
	first := make(map[string]map[string]seen)

	var issues []scenario.EntityContinuityIssue
	for _, id := range order {
		c := cls[id]
		if c == nil {
			continue
		}
		for _, e := range allEntities(c) {
			name := NormalizeName(e.Name)
			if name == "" || len(e.Attributes) == 0 {
				continue
			}
			if first[name] == nil {
				first[name] = make(map[string]seen)
			}
			keys := make([]string, 0, len(e.Attributes))
			for k := range e.Attributes {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, attr := range keys {
				value := e.Attributes[attr]
				prev, ok := first[name][attr]
				if !ok {
					first[name][attr] = seen{value: value, sceneID: id}
					continue
				}
				if prev.value == value {
					continue
				}
				issues = append(issues, scenario.EntityContinuityIssue{
					Entity:            e,
					IntroducedSceneID: prev.sceneID,
					DetectedSceneID:   id,
					Type:              scenario.IssueInconsistentAttribute,
					Description:       fmt.Sprintf("%s %q changes %s between scenes %q and %q", e.Type, e.Name, attr, prev.sceneID, id),
					Expected:          prev.value,
					Actual:            value,
				})
				first[name][attr] = seen{value: value, sceneID: id}
			}
		}
	}
	return issues
}

// nameVariationIssues flags proper-noun entities of the same type whose
// names look like variants of each other ("Elara" vs "Elara Voss").
func nameVariationIssues(order []string, cls scenario.ClassificationSet) []scenario.EntityContinuityIssue {
	type occurrence struct {
		entity  scenario.SceneEntity
		sceneID string
	}
	byType := make(map[scenario.EntityType]map[string]occurrence)
	flagged := make(map[string]bool)

	var issues []scenario.EntityContinuityIssue
	for _, id := range order {
		c := cls[id]
		if c == nil {
			continue
		}
		for _, e := range allEntities(c) {
			if !e.ProperNoun {
				continue
			}
			name := NormalizeName(e.Name)
			if name == "" {
				continue
			}
			if byType[e.Type] == nil {
				byType[e.Type] = make(map[string]occurrence)
			}
			for other, occ := range byType[e.Type] {
				if other == name || !isNameVariant(name, other) {
					continue
				}
				lo, hi := name, other
				if lo > hi {
					lo, hi = hi, lo
				}
				key := string(e.Type) + ":" + lo + "|" + hi
				if flagged[key] {
					continue
				}
				flagged[key] = true
				issues = append(issues, scenario.EntityContinuityIssue{
					Entity:            e,
					IntroducedSceneID: occ.sceneID,
					DetectedSceneID:   id,
					Type:              scenario.IssueNameVariation,
					Description:       fmt.Sprintf("%s %q in scene %q may be the same as %q in scene %q", e.Type, e.Name, id, occ.entity.Name, occ.sceneID),
					Expected:          occ.entity.Name,
					Actual:            e.Name,
				})
			}
			if _, ok := byType[e.Type][name]; !ok {
				byType[e.Type][name] = occurrence{entity: e, sceneID: id}
			}
		}
	}
	return issues
}

// isNameVariant reports whether one normalized name extends the other by
// whole words, the pattern of a short form against a full name.
func isNameVariant(a, b string) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	if !strings.HasPrefix(b, a+" ") && !strings.HasSuffix(b, " "+a) {
		return false
	}
	return true
}

// NormalizeName lowers, trims and strips leading articles so that
// "The Lantern" and "lantern" compare equal.
func NormalizeName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, article := range []string{"the ", "a ", "an "} {
		if strings.HasPrefix(n, article) {
			n = strings.TrimSpace(n[len(article):])
			break
		}
	}
	return n
}

func allEntities(c *scenario.SceneEntityClassification) []scenario.SceneEntity {
	all := make([]scenario.SceneEntity, 0, len(c.Introduced)+len(c.Present))
	all = append(all, c.Introduced...)
	all = append(all, c.Present...)
	return all
}

func nameSet(entities []scenario.SceneEntity) map[string]bool {
	set := make(map[string]bool, len(entities))
	for _, e := range entities {
		set[NormalizeName(e.Name)] = true
	}
	return set
}

func copySet(s map[string]bool) map[string]bool {
	c := make(map[string]bool, len(s))
	for k := range s {
		c[k] = true
	}
	return c
}

func intersect(a, b map[string]bool) map[string]bool {
	r := make(map[string]bool)
	for k := range a {
		if b[k] {
			r[k] = true
		}
	}
	return r
}

func equalSets(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}
