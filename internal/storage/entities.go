package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/google/uuid"
)

const entityColumns = `id, owner_id, name, trading_name, type, company_number, vat_number,
	utr, paye_reference, ni_number, registered_address, trading_address, is_default, created_at`

func scanEntity(row interface{ Scan(...any) error }) (*model.Entity, error) {
	var (
		e         model.Entity
		isDefault int
		createdAt sql.NullTime
	)
	err := row.Scan(&e.ID, &e.OwnerID, &e.Name, &e.TradingName, &e.Type, &e.CompanyNumber,
		&e.VATNumber, &e.UTR, &e.PAYEReference, &e.NINumber, &e.RegisteredAddress,
		&e.TradingAddress, &isDefault, &createdAt)
	if err != nil {
		return nil, err
	}
	e.IsDefault = isDefault == 1
	e.CreatedAt = createdAt.Time
	return &e, nil
}

// SaveEntity inserts or replaces an entity, assigning an id when empty.
func (s *SQLiteStorage) SaveEntity(ctx context.Context, entity *model.Entity) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := ValidateEntity(entity); err != nil {
		return err
	}

	if entity.ID == "" {
		entity.ID = uuid.NewString()
	}
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = time.Now()
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		// One default entity per owner.
		if entity.IsDefault {
			if _, err := tx.ExecContext(ctx,
				`UPDATE entities SET is_default = 0 WHERE owner_id = ? AND id != ?`,
				entity.OwnerID, entity.ID); err != nil {
				return fmt.Errorf("failed to clear default entity: %w", err)
			}
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO entities (`+entityColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				owner_id = excluded.owner_id,
				name = excluded.name,
				trading_name = excluded.trading_name,
				type = excluded.type,
				company_number = excluded.company_number,
				vat_number = excluded.vat_number,
				utr = excluded.utr,
				paye_reference = excluded.paye_reference,
				ni_number = excluded.ni_number,
				registered_address = excluded.registered_address,
				trading_address = excluded.trading_address,
				is_default = excluded.is_default
		`, entity.ID, entity.OwnerID, entity.Name, entity.TradingName, entity.Type,
			entity.CompanyNumber, entity.VATNumber, entity.UTR, entity.PAYEReference,
			entity.NINumber, entity.RegisteredAddress, entity.TradingAddress,
			boolToInt(entity.IsDefault), entity.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to save entity: %w", err)
		}
		return nil
	})
}

// GetEntity retrieves an entity by id.
func (s *SQLiteStorage) GetEntity(ctx context.Context, id string) (*model.Entity, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	e, err := scanEntity(s.db.QueryRowContext(ctx, `SELECT `+entityColumns+` FROM entities WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entity %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}
	return e, nil
}

// ListEntities returns an owner's entities, default first.
func (s *SQLiteStorage) ListEntities(ctx context.Context, ownerID string) ([]model.Entity, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+entityColumns+` FROM entities
		WHERE owner_id = ? ORDER BY is_default DESC, name`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	defer func() { _ = rows.Close() }()

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
