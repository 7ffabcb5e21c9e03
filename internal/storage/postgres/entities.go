package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const entityColumns = `id, owner_id, name, trading_name, type, company_number, vat_number,
	utr, paye_reference, ni_number, registered_address, trading_address, is_default, created_at`

func scanEntity(row pgx.Row) (*model.Entity, error) {
	var e model.Entity
	err := row.Scan(&e.ID, &e.OwnerID, &e.Name, &e.TradingName, &e.Type, &e.CompanyNumber,
		&e.VATNumber, &e.UTR, &e.PAYEReference, &e.NINumber, &e.RegisteredAddress,
		&e.TradingAddress, &e.IsDefault, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// SaveEntity inserts or replaces an entity, assigning an id when empty.
func (s *Store) SaveEntity(ctx context.Context, entity *model.Entity) error {
	if err := storage.ValidateEntity(entity); err != nil {
		return err
	}

	if entity.ID == "" {
		entity.ID = uuid.NewString()
	}
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = time.Now()
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		// One default entity per owner.
		if entity.IsDefault {
			if _, err := tx.Exec(ctx,
				`UPDATE entities SET is_default = FALSE WHERE owner_id = $1 AND id <> $2`,
				entity.OwnerID, entity.ID); err != nil {
				return fmt.Errorf("failed to clear default entity: %w", err)
			}
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO entities (`+entityColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			ON CONFLICT (id) DO UPDATE SET
				owner_id = EXCLUDED.owner_id,
				name = EXCLUDED.name,
				trading_name = EXCLUDED.trading_name,
				type = EXCLUDED.type,
				company_number = EXCLUDED.company_number,
				vat_number = EXCLUDED.vat_number,
				utr = EXCLUDED.utr,
				paye_reference = EXCLUDED.paye_reference,
				ni_number = EXCLUDED.ni_number,
				registered_address = EXCLUDED.registered_address,
				trading_address = EXCLUDED.trading_address,
				is_default = EXCLUDED.is_default
		`, entity.ID, entity.OwnerID, entity.Name, entity.TradingName, entity.Type,
			entity.CompanyNumber, entity.VATNumber, entity.UTR, entity.PAYEReference,
			entity.NINumber, entity.RegisteredAddress, entity.TradingAddress,
			entity.IsDefault, entity.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to save entity: %w", err)
		}
		return nil
	})
}

// GetEntity retrieves an entity by id.
func (s *Store) GetEntity(ctx context.Context, id string) (*model.Entity, error) {
	e, err := scanEntity(s.pool.QueryRow(ctx, `SELECT `+entityColumns+` FROM entities WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "entity", id)
	}
	return e, nil
}

// ListEntities returns an owner's entities, default first.
func (s *Store) ListEntities(ctx context.Context, ownerID string) ([]model.Entity, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+entityColumns+` FROM entities
		WHERE owner_id = $1 ORDER BY is_default DESC, name`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	defer rows.Close()

	var entities []model.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		entities = append(entities, *e)
	}
	return entities, rows.Err()
}
