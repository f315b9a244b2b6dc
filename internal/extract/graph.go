package extract

import (
	"sort"
	"strings"

	"github.com/plc-diagram/backend/internal/l5x"
)

// TransitionGraph maps each source state id to the set of target state ids
// it can latch. Built once per run, read-only afterwards. Every accessor
// that enumerates states returns them in ascending numeric order so that
// downstream rendering is deterministic.
type TransitionGraph struct {
	adj map[int]map[int]struct{}
}

// NewTransitionGraph creates an empty graph.
func NewTransitionGraph() *TransitionGraph {
	return &TransitionGraph{adj: make(map[int]map[int]struct{})}
}

// Add unions targets into the source's set, creating it on first sight.
func (g *TransitionGraph) Add(source int, targets ...int) {
	set, ok := g.adj[source]
	if !ok {
		set = make(map[int]struct{})
		g.adj[source] = set
	}
	for _, t := range targets {
		set[t] = struct{}{}
	}
}

// Empty reports whether the graph holds no transitions.
func (g *TransitionGraph) Empty() bool {
	return len(g.adj) == 0
}

// Sources returns all source state ids, ascending.
func (g *TransitionGraph) Sources() []int {
	out := make([]int, 0, len(g.adj))
	for s := range g.adj {
		out = append(out, s)
	}
	sort.Ints(out)
	return out
}

// TargetsOf returns the target set of a source, ascending. Nil for an
// unknown source.
func (g *TransitionGraph) TargetsOf(source int) []int {
	set, ok := g.adj[source]
	if !ok {
		return nil
	}
	out := make([]int, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Ints(out)
	return out
}

// States returns the union of all sources and targets, ascending. A state
// may appear only as a target (a sink) or only as a source; both are valid.
func (g *TransitionGraph) States() []int {
	seen := make(map[int]struct{})
	for s, targets := range g.adj {
		seen[s] = struct{}{}
		for t := range targets {
			seen[t] = struct{}{}
		}
	}
	out := make([]int, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// EdgeCount returns the total number of distinct transitions.
func (g *TransitionGraph) EdgeCount() int {
	n := 0
	for _, targets := range g.adj {
		n += len(targets)
	}
	return n
}

// IsSink reports whether a state has no outgoing transitions recorded.
func (g *TransitionGraph) IsSink(id int) bool {
	return len(g.adj[id]) == 0
}

// BuildTransitions folds the bounded rung subsequence into a graph.
// Scanning begins at startIdx + MarkerSkip (the marker rung and the cleanup
// rung after it are structural, not transitions) and stops, exclusive, at
// the first rung whose comment contains the end marker. Rungs contributing
// no source or no targets are skipped. An empty result is valid: the
// caller reports it as a warning, and rendering an empty graph is
// well-defined.
func BuildTransitions(rungs []l5x.Rung, startIdx int, profile Profile) *TransitionGraph {
	profile = profile.normalized()
	g := NewTransitionGraph()

	for i := startIdx + profile.MarkerSkip; i < len(rungs); i++ {
		if strings.Contains(rungs[i].CommentText(), profile.EndMarker) {
			break
		}

		source, ok, targets := ParseRungLogic(rungs[i].LogicText())
		if !ok || len(targets) == 0 {
			continue
		}
		g.Add(source, targets...)
	}

	return g
}
