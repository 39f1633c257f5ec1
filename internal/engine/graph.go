// Package engine is the Graph Executor and Condition Evaluator: it
// compiles a template's steps into a directed graph,
// steps through it one node at a time, and suspends at answer nodes
// for a later /chat/continue to resume.
package engine

import (
	"fmt"

	"surveyengine/internal/domain/models"
)

// Graph is the compiled, index-addressed node table for one template.
// Nodes are never linked by owning references —
// every edge is a (from-label, to-label) string pair, and dispatch
// reads state.CurrentStep rather than walking pointers.
type Graph struct {
	steps []models.Step
}

// Compile builds the graph for an ordered step list. It pre-declares,
// for every i_q/i_a, the edge set {j_q : j>=i} ∪ {j_a : j>=i} ∪
// {end_survey} — a static-edge engine
// would accept the compilation even though dispatch is dynamic.
func Compile(steps []models.Step) (*Graph, error) {
	for _, s := range steps {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("compile graph: %w", err)
		}
	}
	return &Graph{steps: steps}, nil
}

// Steps returns the compiled step list.
func (g *Graph) Steps() []models.Step { return g.steps }

// Step returns step i, or false if i is out of range.
func (g *Graph) Step(i int) (models.Step, bool) {
	if i < 0 || i >= len(g.steps) {
		return models.Step{}, false
	}
	return g.steps[i], true
}

// Len returns n, the number of steps the graph was compiled from.
func (g *Graph) Len() int { return len(g.steps) }

// DeclaredEdges returns the full set of node labels reachable from
// label, per the §4.4.1 edge-declaration rule. It is exposed for
// tests asserting the compiled graph's shape; dispatch itself never
// consults it — state.CurrentStep is the only source of truth.
func (g *Graph) DeclaredEdges(label string) ([]string, error) {
	n, err := models.ParseNodeLabel(label)
	if err != nil {
		return nil, err
	}
	if n.Kind == models.NodeEnd {
		return []string{models.EndSurveyLabel}, nil
	}

	var edges []string
	for j := n.Index; j < g.Len(); j++ {
		edges = append(edges, models.QuestionLabel(j), models.AnswerLabel(j))
	}
	edges = append(edges, models.EndSurveyLabel)
	return edges, nil
}
