package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/garyjia/cafe-importer/internal/application/port"
	"github.com/garyjia/cafe-importer/internal/domain/entity"
	"github.com/garyjia/cafe-importer/internal/infrastructure/persistence/sqlite"
)

// ImportRecordRepository implements port.ImportRecordRepository
type ImportRecordRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewImportRecordRepository creates a new import record repository
func NewImportRecordRepository(db *sql.DB, logger *zap.Logger) port.ImportRecordRepository {
	return &ImportRecordRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts the record. A second record for the same CUFE fails with ALREADY_IMPORTED.
func (r *ImportRecordRepository) Create(ctx context.Context, record *entity.ImportRecord) error {
	query := `
		INSERT INTO import_records (cufe, session_id, imported_at)
		VALUES (?, ?, ?)
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		record.CUFE,
		record.SessionID,
		record.ImportedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return entity.NewImportError(entity.ErrorCodeAlreadyImported,
				fmt.Sprintf("invoice %s was already imported", record.CUFE), err)
		}
		r.logger.Error("Failed to create import record", zap.String("cufe", record.CUFE), zap.Error(err))
		return fmt.Errorf("failed to create import record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	record.ID = id
	return nil
}

// Replace upserts the record for a forced re-import. The row keeps its id.
func (r *ImportRecordRepository) Replace(ctx context.Context, record *entity.ImportRecord) error {
	query := `
		INSERT INTO import_records (cufe, session_id, imported_at)
		VALUES (?, ?, ?)
		ON CONFLICT(cufe) DO UPDATE SET
			session_id = excluded.session_id,
			imported_at = excluded.imported_at
		RETURNING id
	`

	err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query,
		record.CUFE,
		record.SessionID,
		record.ImportedAt.UTC(),
	).Scan(&record.ID)
	if err != nil {
		r.logger.Error("Failed to replace import record", zap.String("cufe", record.CUFE), zap.Error(err))
		return fmt.Errorf("failed to replace import record: %w", err)
	}

	return nil
}

// GetByCUFE returns the record for a CUFE, or nil when it was never imported
func (r *ImportRecordRepository) GetByCUFE(ctx context.Context, cufe string) (*entity.ImportRecord, error) {
	query := `
		SELECT id, cufe, session_id, imported_at
		FROM import_records
		WHERE cufe = ?
	`

	var record entity.ImportRecord
	err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, cufe).Scan(
		&record.ID,
		&record.CUFE,
		&record.SessionID,
		&record.ImportedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get import record", zap.String("cufe", cufe), zap.Error(err))
		return nil, fmt.Errorf("failed to get import record: %w", err)
	}

	return &record, nil
}

// List returns records newest first
func (r *ImportRecordRepository) List(ctx context.Context, limit, offset int) ([]*entity.ImportRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, cufe, session_id, imported_at
		FROM import_records
		ORDER BY imported_at DESC, id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list import records", zap.Error(err))
		return nil, fmt.Errorf("failed to list import records: %w", err)
	}
	defer rows.Close()

	var records []*entity.ImportRecord
	for rows.Next() {
		var record entity.ImportRecord
		if err := rows.Scan(&record.ID, &record.CUFE, &record.SessionID, &record.ImportedAt); err != nil {
			return nil, fmt.Errorf("failed to scan import record: %w", err)
		}
		records = append(records, &record)
	}

	return records, rows.Err()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// Verify interface compliance
var _ port.ImportRecordRepository = (*ImportRecordRepository)(nil)
