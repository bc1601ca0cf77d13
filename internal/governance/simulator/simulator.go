// Package simulator implements graph-based scenario evaluation: given a
// proposed intervention on a subtree, it builds a directed containment
// graph and scores each candidate scenario's reversibility, confidence,
// and projected threshold violations.
package simulator

import (
	"hash/fnv"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/gonum/graph/simple"

	"github.com/sovereign-stack/sovereign-stack/internal/governance/detector"
	"github.com/sovereign-stack/sovereign-stack/internal/sverrors"
)

// Scenario names the five candidate interventions spec.md §4.4 defines.
type Scenario string

const (
	Reorganize  Scenario = "REORGANIZE"
	Defer       Scenario = "DEFER"
	Incremental Scenario = "INCREMENTAL"
	Proceed     Scenario = "PROCEED"
	Reject      Scenario = "REJECT"
)

var allScenarios = []Scenario{Reorganize, Defer, Incremental, Proceed, Reject}

// Outcome is one scenario's projected result.
type Outcome struct {
	Scenario            Scenario          `json:"scenario"`
	Reversibility       float64           `json:"reversibility"`
	Confidence          float64           `json:"confidence"`
	ProjectedViolations []detector.Event  `json:"projected_violations"`
}

// Simulator evaluates scenarios over a target subtree.
type Simulator struct{}

// New constructs a Simulator.
func New() *Simulator {
	return &Simulator{}
}

// Rank builds a directed containment graph over target and returns all
// five scenarios ranked per spec.md §4.4: higher reversibility first,
// ties broken by lower projected violation count, further ties by
// higher confidence. baseline, supplied by the caller from a
// detector scan, seed each scenario's violation projection.
func (s *Simulator) Rank(target string, baseline []detector.Event) ([]Outcome, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, sverrors.Wrap(sverrors.NotFound, "simulation target does not exist", err)
	}

	g := simple.NewDirectedGraph()
	edgeCount, nodeCount := buildGraph(g, target, info)

	outcomes := make([]Outcome, 0, len(allScenarios))
	for _, sc := range allScenarios {
		outcomes = append(outcomes, scoreScenario(sc, edgeCount, nodeCount, baseline))
	}

	sort.SliceStable(outcomes, func(i, j int) bool {
		if outcomes[i].Reversibility != outcomes[j].Reversibility {
			return outcomes[i].Reversibility > outcomes[j].Reversibility
		}
		if len(outcomes[i].ProjectedViolations) != len(outcomes[j].ProjectedViolations) {
			return len(outcomes[i].ProjectedViolations) < len(outcomes[j].ProjectedViolations)
		}
		return outcomes[i].Confidence > outcomes[j].Confidence
	})

	return outcomes, nil
}

// buildGraph populates g with one node per file/directory under target
// and one edge per directory->child containment relation, returning the
// edge and node counts.
func buildGraph(g *simple.DirectedGraph, target string, info os.FileInfo) (edges, nodes int) {
	nodeID := func(path string) int64 {
		h := fnv.New64a()
		h.Write([]byte(path))
		return int64(h.Sum64() >> 1) // gonum node IDs must be non-negative
	}

	rootID := nodeID(target)
	g.AddNode(simple.Node(rootID))
	nodes = 1

	if !info.IsDir() {
		return 0, nodes
	}

	filepath.Walk(target, func(path string, fi os.FileInfo, err error) error {
		if err != nil || path == target {
			return nil
		}
		id := nodeID(path)
		if g.Node(id) == nil {
			g.AddNode(simple.Node(id))
			nodes++
		}
		parentID := nodeID(filepath.Dir(path))
		if g.Node(parentID) == nil {
			g.AddNode(simple.Node(parentID))
			nodes++
		}
		if !g.HasEdgeFromTo(parentID, id) {
			g.SetEdge(g.NewEdge(simple.Node(parentID), simple.Node(id)))
			edges++
		}
		return nil
	})

	return edges, nodes
}

// scoreScenario assigns deterministic reversibility/confidence/violation
// projections per scenario kind. DEFER and REJECT change nothing so they
// are fully reversible; REORGANIZE and INCREMENTAL preserve the
// containment graph so they score high reversibility; PROCEED is
// destructive in proportion to the graph's edge density.
func scoreScenario(sc Scenario, edgeCount, nodeCount int, baseline []detector.Event) Outcome {
	switch sc {
	case Defer, Reject:
		return Outcome{Scenario: sc, Reversibility: 1.0, Confidence: 0.95, ProjectedViolations: baseline}
	case Reorganize:
		return Outcome{Scenario: sc, Reversibility: 0.9, Confidence: 0.8, ProjectedViolations: reduceViolations(baseline, 1)}
	case Incremental:
		return Outcome{Scenario: sc, Reversibility: 0.8, Confidence: 0.75, ProjectedViolations: reduceViolations(baseline, 2)}
	case Proceed:
		density := 0.0
		if nodeCount > 1 {
			density = float64(edgeCount) / float64(nodeCount-1)
		}
		reversibility := clamp(1.0 - density*0.5)
		return Outcome{Scenario: sc, Reversibility: reversibility, Confidence: 0.6, ProjectedViolations: baseline}
	default:
		return Outcome{Scenario: sc, Reversibility: 0, Confidence: 0, ProjectedViolations: baseline}
	}
}

// reduceViolations projects that a scenario resolves up to n of the
// baseline's violations (lowest-severity first), modeling a staged or
// reorganizing approach clearing easy violations before hard ones.
func reduceViolations(baseline []detector.Event, n int) []detector.Event {
	if len(baseline) <= n {
		return nil
	}
	sorted := make([]detector.Event, len(baseline))
	copy(sorted, baseline)
	sort.SliceStable(sorted, func(i, j int) bool {
		return severityRank(sorted[i].Severity) < severityRank(sorted[j].Severity)
	})
	return sorted[n:]
}

func severityRank(sev detector.Severity) int {
	if sev == detector.Critical {
		return 1
	}
	return 0
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
