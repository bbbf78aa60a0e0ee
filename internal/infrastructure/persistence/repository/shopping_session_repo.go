package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/cafe-importer/internal/application/port"
	"github.com/garyjia/cafe-importer/internal/domain/entity"
	"github.com/garyjia/cafe-importer/internal/infrastructure/persistence/sqlite"
)

// ShoppingSessionRepository implements port.ShoppingSessionWriter and port.ShoppingSessionReader
type ShoppingSessionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewShoppingSessionRepository creates a new shopping session repository
func NewShoppingSessionRepository(db *sql.DB, logger *zap.Logger) *ShoppingSessionRepository {
	return &ShoppingSessionRepository{
		db:     db,
		logger: logger,
	}
}

// CreateSession inserts a session
func (r *ShoppingSessionRepository) CreateSession(ctx context.Context, session *entity.ShoppingSession) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO shopping_sessions (
			id, store_id, store_name, session_date, mode, note, source_cufe, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		session.ID,
		nullString(session.StoreID),
		session.StoreName,
		session.SessionDate,
		session.Mode,
		session.Note,
		session.SourceCUFE,
		session.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create shopping session", zap.String("session_id", session.ID), zap.Error(err))
		return fmt.Errorf("failed to create shopping session: %w", err)
	}

	return nil
}

// AddItem appends a line to a session
func (r *ShoppingSessionRepository) AddItem(ctx context.Context, item *entity.ShoppingItem) error {
	query := `
		INSERT INTO shopping_items (
			session_id, position, description, unit_price, quantity,
			unit, tax_rate, tax_rate_code, prices_include_tax
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		item.SessionID,
		item.Position,
		item.Description,
		item.UnitPrice.String(),
		item.Quantity.String(),
		item.Unit,
		item.TaxRate.String(),
		string(item.TaxRateCode),
		item.PricesIncludeTax,
	)
	if err != nil {
		r.logger.Error("Failed to add shopping item",
			zap.String("session_id", item.SessionID),
			zap.Int("position", item.Position),
			zap.Error(err))
		return fmt.Errorf("failed to add shopping item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	item.ID = id
	return nil
}

// GetSession returns a session by ID, or nil
func (r *ShoppingSessionRepository) GetSession(ctx context.Context, id string) (*entity.ShoppingSession, error) {
	query := `
		SELECT id, store_id, store_name, session_date, mode, note, source_cufe, created_at
		FROM shopping_sessions
		WHERE id = ?
	`

	var session entity.ShoppingSession
	var storeID sql.NullString
	err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&session.ID,
		&storeID,
		&session.StoreName,
		&session.SessionDate,
		&session.Mode,
		&session.Note,
		&session.SourceCUFE,
		&session.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get shopping session", zap.String("session_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get shopping session: %w", err)
	}

	session.StoreID = storeID.String
	return &session, nil
}

// ListItems returns a session's items in position order
func (r *ShoppingSessionRepository) ListItems(ctx context.Context, sessionID string) ([]*entity.ShoppingItem, error) {
	query := `
		SELECT id, session_id, position, description, unit_price, quantity,
			unit, tax_rate, tax_rate_code, prices_include_tax
		FROM shopping_items
		WHERE session_id = ?
		ORDER BY position ASC, id ASC
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, sessionID)
	if err != nil {
		r.logger.Error("Failed to list shopping items", zap.String("session_id", sessionID), zap.Error(err))
		return nil, fmt.Errorf("failed to list shopping items: %w", err)
	}
	defer rows.Close()

	var items []*entity.ShoppingItem
	for rows.Next() {
		var item entity.ShoppingItem
		var taxRateCode string
		if err := rows.Scan(
			&item.ID,
			&item.SessionID,
			&item.Position,
			&item.Description,
			&item.UnitPrice,
			&item.Quantity,
			&item.Unit,
			&item.TaxRate,
			&taxRateCode,
			&item.PricesIncludeTax,
		); err != nil {
			return nil, fmt.Errorf("failed to scan shopping item: %w", err)
		}
		item.TaxRateCode = entity.TaxRateCode(taxRateCode)
		items = append(items, &item)
	}

	return items, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Verify interface compliance
var (
	_ port.ShoppingSessionWriter = (*ShoppingSessionRepository)(nil)
	_ port.ShoppingSessionReader = (*ShoppingSessionRepository)(nil)
)
