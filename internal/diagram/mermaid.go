// Package diagram renders a state transition graph as Mermaid text and
// wraps it in the markdown envelope the viewer consumes.
package diagram

import (
	"fmt"
	"strings"
)

// Grammar selects one of the two supported Mermaid syntaxes. The choice is
// always an explicit caller parameter, never inferred.
type Grammar string

const (
	GrammarFlowchart    Grammar = "flowchart"
	GrammarStateDiagram Grammar = "stateDiagram"
)

// ParseGrammar maps user input to a Grammar.
func ParseGrammar(s string) (Grammar, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "flowchart":
		return GrammarFlowchart, nil
	case "state", "statediagram", "statediagram-v2":
		return GrammarStateDiagram, nil
	default:
		return "", fmt.Errorf("unknown diagram grammar: %q", s)
	}
}

// labelMaxLen caps sanitized node labels.
const labelMaxLen = 60

// Graph is the read-only view the renderer needs. extract.TransitionGraph
// satisfies it; tests use small literals.
type Graph interface {
	// States returns every node id, ascending.
	States() []int
	// Sources returns every id with outgoing edges, ascending.
	Sources() []int
	// TargetsOf returns a source's targets, ascending.
	TargetsOf(source int) []int
	// IsSink reports whether an id has no outgoing edges.
	IsSink(id int) bool
}

// Render serializes the graph into the chosen grammar. Output is fully
// deterministic: nodes ascend by id, edges group by ascending source then
// ascending target. A front-matter header carries the title and the layout
// engine hint the viewer expects.
func Render(g Graph, names map[int]string, title string, grammar Grammar) string {
	layout := "elk"
	if grammar == GrammarStateDiagram {
		layout = "dagre"
	}

	lines := []string{
		"---",
		"title: " + title,
		"config:",
		"  layout: " + layout,
		"---",
		"",
	}

	switch grammar {
	case GrammarStateDiagram:
		lines = append(lines, "stateDiagram-v2", "    direction TB")
		for _, id := range g.States() {
			name := sanitizeLabel(stateName(names, id), grammar)
			lines = append(lines, fmt.Sprintf("    S%d : %d. %s", id, id, name))
		}
		lines = append(lines, "")
		for _, src := range g.Sources() {
			for _, dst := range g.TargetsOf(src) {
				lines = append(lines, fmt.Sprintf("    S%d --> S%d", src, dst))
			}
		}

	default: // GrammarFlowchart
		lines = append(lines, "flowchart TB")
		for _, id := range g.States() {
			name := sanitizeLabel(stateName(names, id), grammar)
			lines = append(lines, fmt.Sprintf("    S%d[State %d, %s]", id, id, name))
		}
		lines = append(lines, "")
		for _, src := range g.Sources() {
			for _, dst := range g.TargetsOf(src) {
				// Sink targets get the strong arrow so terminal states
				// stand out in the rendered chart.
				arrow := "-->"
				if g.IsSink(dst) {
					arrow = "==>"
				}
				lines = append(lines, fmt.Sprintf("    S%d %s S%d", src, arrow, dst))
			}
		}
	}

	return strings.Join(lines, "\n")
}

func stateName(names map[int]string, id int) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return fmt.Sprintf("State %d", id)
}

// sanitizeLabel makes a display name safe to embed in a node declaration:
// newlines collapse to " - ", the result is capped at labelMaxLen runes,
// and in flowchart mode parentheses are replaced since the grammar treats
// them as node-shape delimiters.
func sanitizeLabel(name string, grammar Grammar) string {
	clean := strings.ReplaceAll(name, "\r\n", "\n")
	clean = strings.ReplaceAll(clean, "\n", " - ")
	clean = strings.ReplaceAll(clean, "\r", " - ")

	if grammar == GrammarFlowchart {
		clean = strings.ReplaceAll(clean, "(", "~")
		clean = strings.ReplaceAll(clean, ")", "~")
	}

	runes := []rune(clean)
	if len(runes) > labelMaxLen {
		clean = string(runes[:labelMaxLen])
	}
	return clean
}
