package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/garyjia/cafe-importer/internal/application/port"
	"github.com/garyjia/cafe-importer/internal/domain/entity"
	"github.com/garyjia/cafe-importer/internal/infrastructure/persistence/sqlite"
)

// StoreRepository implements port.StoreRepository
type StoreRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStoreRepository creates a new store repository
func NewStoreRepository(db *sql.DB, logger *zap.Logger) port.StoreRepository {
	return &StoreRepository{
		db:     db,
		logger: logger,
	}
}

// GetByTaxID returns the store registered under taxID, or nil
func (r *StoreRepository) GetByTaxID(ctx context.Context, taxID string) (*entity.Store, error) {
	query := `
		SELECT id, tax_id, name, is_verified, created_at
		FROM stores
		WHERE tax_id = ?
	`

	var store entity.Store
	err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, taxID).Scan(
		&store.ID,
		&store.TaxID,
		&store.Name,
		&store.IsVerified,
		&store.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get store", zap.String("tax_id", taxID), zap.Error(err))
		return nil, fmt.Errorf("failed to get store: %w", err)
	}

	return &store, nil
}

// Upsert inserts the store or updates name and verification for an existing tax ID.
// The persisted ID is written back to store.
func (r *StoreRepository) Upsert(ctx context.Context, store *entity.Store) error {
	if store.ID == "" {
		store.ID = uuid.NewString()
	}
	if store.CreatedAt.IsZero() {
		store.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO stores (id, tax_id, name, is_verified, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(tax_id) DO UPDATE SET
			name = excluded.name,
			is_verified = excluded.is_verified
		RETURNING id
	`

	err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query,
		store.ID,
		store.TaxID,
		store.Name,
		store.IsVerified,
		store.CreatedAt,
	).Scan(&store.ID)
	if err != nil {
		r.logger.Error("Failed to upsert store", zap.String("tax_id", store.TaxID), zap.Error(err))
		return fmt.Errorf("failed to upsert store: %w", err)
	}

	return nil
}

// Verify interface compliance
var _ port.StoreRepository = (*StoreRepository)(nil)
