package engine

import (
	"context"

	"github.com/Veraticus/spice-ledger/internal/model"
)

// ClassifierPort classifies transactions the rule memory could not place.
// Implementations return exactly one suggestion per input, in input order,
// and absorb their own failures into fallback suggestions.
type ClassifierPort interface {
	ClassifyBatch(ctx context.Context, transactions []model.Transaction) []model.ClassificationSuggestion
}
