// Package deliberator aggregates stakeholder votes on a proposed
// intervention by plurality, subject to two safety overrides, and
// preserves every dissenting rationale verbatim.
package deliberator

import (
	"github.com/sovereign-stack/sovereign-stack/internal/governance/detector"
	"github.com/sovereign-stack/sovereign-stack/internal/governance/simulator"
	"github.com/sovereign-stack/sovereign-stack/internal/sverrors"
)

// Ballot is a single stakeholder vote.
type Ballot string

const (
	BallotProceed Ballot = "proceed"
	BallotPause   Ballot = "pause"
	BallotReject  Ballot = "reject"
)

var validBallots = map[Ballot]bool{BallotProceed: true, BallotPause: true, BallotReject: true}

// ValidateBallot reports whether b is one of the three ballot values.
func ValidateBallot(b Ballot) bool {
	return validBallots[b]
}

// Vote is one stakeholder's ballot with an optional rationale.
type Vote struct {
	Ballot    Ballot `json:"ballot"`
	Rationale string `json:"rationale,omitempty"`
}

// Decision is the deliberation's outcome, preserving every dissenting
// vote's rationale so it is never summarized away.
type Decision struct {
	Outcome     Ballot   `json:"outcome"`
	Votes       []Vote   `json:"votes"`
	Overridden  bool     `json:"overridden"`
	OverrideWhy string   `json:"override_why,omitempty"`
}

// DefaultReversibilityFloor is the floor below which a cited
// reversibility, combined with any reject vote, forces a pause outcome.
const DefaultReversibilityFloor = 0.3

// Deliberator aggregates votes into a decision.
type Deliberator struct {
	ReversibilityFloor float64
}

// New constructs a Deliberator with the default reversibility floor.
func New() *Deliberator {
	return &Deliberator{ReversibilityFloor: DefaultReversibilityFloor}
}

// Deliberate aggregates votes by plurality (ties resolved toward the
// most cautious outcome: pause, then reject, then proceed), then applies
// spec.md §4.5's two overrides:
//
//   - any reject vote combined with the top-ranked scenario's
//     reversibility below the configured floor forces pause;
//   - with a critical projected violation, a proceed outcome stands only
//     on unanimous proceed votes and is otherwise forced to pause; a
//     pause or reject outcome is left as is.
func (d *Deliberator) Deliberate(events []detector.Event, ranking []simulator.Outcome, votes []Vote) (Decision, error) {
	if len(votes) == 0 {
		return Decision{}, sverrors.New(sverrors.InvalidInput, "at least one vote is required")
	}
	for _, v := range votes {
		if !ValidateBallot(v.Ballot) {
			return Decision{}, sverrors.New(sverrors.InvalidInput, "invalid ballot \""+string(v.Ballot)+"\"")
		}
	}

	outcome := plurality(votes)
	decision := Decision{Outcome: outcome, Votes: votes}

	if hasReject(votes) && topReversibility(ranking) < d.ReversibilityFloor {
		decision.Outcome = BallotPause
		decision.Overridden = true
		decision.OverrideWhy = "reject vote cited reversibility below floor"
		return decision, nil
	}

	if hasCritical(events, ranking) && !unanimous(votes, BallotProceed) {
		if decision.Outcome == BallotProceed {
			decision.Outcome = BallotPause
			decision.Overridden = true
			decision.OverrideWhy = "critical violation requires unanimous proceed"
		}
	}

	return decision, nil
}

func plurality(votes []Vote) Ballot {
	counts := map[Ballot]int{}
	for _, v := range votes {
		counts[v.Ballot]++
	}

	order := []Ballot{BallotPause, BallotReject, BallotProceed}
	best := order[0]
	for _, b := range order {
		if counts[b] > counts[best] {
			best = b
		}
	}
	return best
}

func hasReject(votes []Vote) bool {
	for _, v := range votes {
		if v.Ballot == BallotReject {
			return true
		}
	}
	return false
}

func unanimous(votes []Vote, b Ballot) bool {
	for _, v := range votes {
		if v.Ballot != b {
			return false
		}
	}
	return true
}

func topReversibility(ranking []simulator.Outcome) float64 {
	if len(ranking) == 0 {
		return 1.0
	}
	return ranking[0].Reversibility
}

func hasCritical(events []detector.Event, ranking []simulator.Outcome) bool {
	for _, e := range events {
		if e.Severity == detector.Critical {
			return true
		}
	}
	for _, o := range ranking {
		for _, v := range o.ProjectedViolations {
			if v.Severity == detector.Critical {
				return true
			}
		}
	}
	return false
}
