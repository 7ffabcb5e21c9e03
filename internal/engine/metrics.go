package engine

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/Veraticus/spice-ledger/internal/model"
)

// DefaultTopRules is how many rules RuleMetrics reports when top is not positive.
const DefaultTopRules = 10

// RuleMetrics summarizes the rule store: totals, counts per source, and the
// most used rules.
func (e *Engine) RuleMetrics(ctx context.Context, top int) (model.RuleMetrics, error) {
	if top <= 0 {
		top = DefaultTopRules
	}

	all, err := e.store.ListRules(ctx)
	if err != nil {
		return model.RuleMetrics{}, fmt.Errorf("failed to load rules: %w", err)
	}

	metrics := model.RuleMetrics{
		TotalRules: len(all),
		BySource:   make(map[model.RuleSource]int),
	}
	for _, r := range all {
		metrics.BySource[r.Source]++
		metrics.TotalUsage += r.UsageCount
	}

	ranked := slices.Clone(all)
	slices.SortStableFunc(ranked, func(a, b model.Rule) int {
		return cmp.Compare(b.UsageCount, a.UsageCount)
	})
	metrics.TopRules = ranked[:min(top, len(ranked))]

	return metrics, nil
}
