package engine

import (
	"context"
	"fmt"

	"github.com/Veraticus/spice-ledger/internal/entity"
	"github.com/Veraticus/spice-ledger/internal/model"
)

// ExtractSignals maps extracted document fields onto DocumentSignals.
func (e *Engine) ExtractSignals(fields map[string]any) model.DocumentSignals {
	return entity.ExtractSignals(fields)
}

// MatchDocumentToEntity decides which of an owner's entities a document belongs to.
// Having no entities is a manual-selection result, not an error.
func (e *Engine) MatchDocumentToEntity(ctx context.Context, ownerID string, fields map[string]any, contextEntityID string) (model.EntityMatchResult, error) {
	return e.MatchSignals(ctx, ownerID, entity.ExtractSignals(fields), contextEntityID)
}

// MatchSignals is MatchDocumentToEntity for signals that were already extracted.
func (e *Engine) MatchSignals(ctx context.Context, ownerID string, signals model.DocumentSignals, contextEntityID string) (model.EntityMatchResult, error) {
	entities, err := e.store.ListEntities(ctx, ownerID)
	if err != nil {
		return model.EntityMatchResult{}, fmt.Errorf("failed to load entities: %w", err)
	}

	result := e.entities.Resolve(signals, entities, contextEntityID)
	if result.BestMatch != nil {
		e.logger.Debug("matched document to entity",
			"owner_id", ownerID,
			"entity_id", result.BestMatch.EntityID,
			"confidence", result.BestMatch.Confidence,
			"mismatch", result.Mismatch)
	}
	return result, nil
}
