package entity

import (
	"cmp"
	"slices"

	"github.com/Veraticus/spice-ledger/internal/model"
)

// Policy partitions scored candidates into resolution bands.
type Policy struct {
	thresholds Thresholds
}

// NewPolicy creates a policy with the given thresholds.
func NewPolicy(thresholds Thresholds) Policy {
	return Policy{thresholds: thresholds}
}

// Resolve sorts candidates by descending confidence and decides the band.
// Exactly one of AutoAssign, NeedsConfirmation and NeedsManualSelection is set.
func (p Policy) Resolve(candidates []model.EntityMatchCandidate, contextEntityID string) model.EntityMatchResult {
	sorted := slices.Clone(candidates)
	if sorted == nil {
		sorted = []model.EntityMatchCandidate{}
	}
	slices.SortStableFunc(sorted, func(a, b model.EntityMatchCandidate) int {
		return cmp.Compare(b.Confidence, a.Confidence)
	})

	result := model.EntityMatchResult{
		Candidates:      sorted,
		ContextEntityID: contextEntityID,
	}

	if len(sorted) > 0 && sorted[0].Confidence > 0 {
		best := sorted[0]
		result.BestMatch = &best
	}

	switch best := result.BestMatch; {
	case best != nil && best.Confidence >= p.thresholds.AutoAssign:
		result.AutoAssign = true
	case best != nil && best.Confidence >= p.thresholds.Confirm:
		result.NeedsConfirmation = true
	default:
		result.NeedsManualSelection = true
	}

	result.Mismatch = contextEntityID != "" &&
		result.BestMatch != nil &&
		result.BestMatch.EntityID != contextEntityID &&
		result.BestMatch.Confidence >= p.thresholds.Confirm

	return result
}

// Resolver composes the scorer and the policy.
type Resolver struct {
	scorer *Scorer
	policy Policy
}

// NewResolver creates a resolver from a weight table and thresholds.
func NewResolver(weights Weights, thresholds Thresholds) *Resolver {
	return &Resolver{scorer: NewScorer(weights), policy: NewPolicy(thresholds)}
}

// DefaultResolver uses DefaultWeights and DefaultThresholds.
func DefaultResolver() *Resolver {
	return NewResolver(DefaultWeights(), DefaultThresholds())
}

// Resolve scores entities against signals and resolves the result.
func (r *Resolver) Resolve(signals model.DocumentSignals, entities []model.Entity, contextEntityID string) model.EntityMatchResult {
	return r.policy.Resolve(r.scorer.Score(signals, entities, contextEntityID), contextEntityID)
}
