package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/cafe-importer/internal/application/port"
	"github.com/garyjia/cafe-importer/internal/domain/entity"
)

// DuplicateGuard answers whether a CUFE was already imported and records new imports
type DuplicateGuard interface {
	CheckPriorImport(ctx context.Context, cufe string) (*entity.DuplicateInfo, error)
	RecordImport(ctx context.Context, cufe, sessionID string) (*entity.ImportRecord, error)
	// ReplaceImport moves the CUFE's record to a new session; used by forced re-imports
	ReplaceImport(ctx context.Context, cufe, sessionID string) (*entity.ImportRecord, error)
}

type duplicateGuardImpl struct {
	records port.ImportRecordRepository
	now     func() time.Time
	logger  Logger
}

// NewDuplicateGuard creates a new DuplicateGuard
func NewDuplicateGuard(records port.ImportRecordRepository, logger Logger) DuplicateGuard {
	return &duplicateGuardImpl{
		records: records,
		now:     time.Now,
		logger:  logger,
	}
}

// CheckPriorImport looks up the import record for cufe
func (g *duplicateGuardImpl) CheckPriorImport(ctx context.Context, cufe string) (*entity.DuplicateInfo, error) {
	record, err := g.records.GetByCUFE(ctx, cufe)
	if err != nil {
		g.logger.Error("Duplicate check failed", "cufe", cufe, "error", err)
		return nil, fmt.Errorf("failed to check prior import: %w", err)
	}
	if record == nil {
		return &entity.DuplicateInfo{IsImported: false}, nil
	}

	importedAt := record.ImportedAt
	return &entity.DuplicateInfo{
		IsImported:     true,
		ImportRecordID: record.ID,
		SessionID:      record.SessionID,
		ImportedAt:     &importedAt,
	}, nil
}

// RecordImport creates the import record. Call it only after the session was written.
func (g *duplicateGuardImpl) RecordImport(ctx context.Context, cufe, sessionID string) (*entity.ImportRecord, error) {
	record, err := g.newRecord(cufe, sessionID)
	if err != nil {
		return nil, err
	}
	if err := g.records.Create(ctx, record); err != nil {
		return nil, err
	}

	g.logger.Info("Import recorded", "cufe", cufe, "session_id", sessionID, "record_id", record.ID)
	return record, nil
}

// ReplaceImport overwrites the prior record of cufe. The previous session is left untouched.
func (g *duplicateGuardImpl) ReplaceImport(ctx context.Context, cufe, sessionID string) (*entity.ImportRecord, error) {
	record, err := g.newRecord(cufe, sessionID)
	if err != nil {
		return nil, err
	}
	if err := g.records.Replace(ctx, record); err != nil {
		return nil, err
	}

	g.logger.Info("Import record replaced", "cufe", cufe, "session_id", sessionID, "record_id", record.ID)
	return record, nil
}

func (g *duplicateGuardImpl) newRecord(cufe, sessionID string) (*entity.ImportRecord, error) {
	if cufe == "" || sessionID == "" {
		return nil, fmt.Errorf("cufe and session id are required")
	}
	return &entity.ImportRecord{
		CUFE:       cufe,
		SessionID:  sessionID,
		ImportedAt: g.now().UTC(),
	}, nil
}
