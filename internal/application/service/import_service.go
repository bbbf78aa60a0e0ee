package service

import (
	"context"
	"fmt"

	"github.com/garyjia/cafe-importer/internal/application/port"
	"github.com/garyjia/cafe-importer/internal/domain/entity"
)

// ImportRequest is a previewed invoice and the lines the user chose to keep
type ImportRequest struct {
	Invoice *entity.Invoice
	Store   *entity.StoreMatch
	Items   []entity.LineItem
	// Force replaces an existing import record instead of failing with ALREADY_IMPORTED
	Force bool
}

// ImportResult describes a committed import
type ImportResult struct {
	SessionID   string
	Record      *entity.ImportRecord
	ArchivePath string
}

// ImportService commits a previewed invoice as a shopping session
type ImportService interface {
	Import(ctx context.Context, req ImportRequest) (*ImportResult, error)
}

type importServiceImpl struct {
	aggregator ShoppingAggregator
	guard      DuplicateGuard
	txManager  port.TransactionManager
	archive    port.FileStorage
	logger     Logger
}

// NewImportService creates a new ImportService. archive may be nil to disable raw XML archiving.
func NewImportService(
	aggregator ShoppingAggregator,
	guard DuplicateGuard,
	txManager port.TransactionManager,
	archive port.FileStorage,
	logger Logger,
) ImportService {
	return &importServiceImpl{
		aggregator: aggregator,
		guard:      guard,
		txManager:  txManager,
		archive:    archive,
		logger:     logger,
	}
}

// Import writes the session, its items and the import record in one transaction.
// A failure at any step leaves nothing behind and the CUFE stays importable.
func (s *importServiceImpl) Import(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	if req.Invoice == nil {
		return nil, fmt.Errorf("invoice is required")
	}

	result := &ImportResult{}
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		sessionID, err := s.aggregator.Aggregate(txCtx, req.Invoice, req.Store, req.Items)
		if err != nil {
			return err
		}

		record, err := s.recordImport(txCtx, req, sessionID)
		if err != nil {
			return err
		}

		result.SessionID = sessionID
		result.Record = record
		return nil
	})
	if err != nil {
		s.logger.Error("Import failed", "cufe", req.Invoice.CUFE, "error", err)
		return nil, err
	}

	result.ArchivePath = s.archiveRawXML(ctx, req.Invoice)

	s.logger.Info("Invoice imported",
		"cufe", req.Invoice.CUFE, "session_id", result.SessionID, "items", len(req.Items))
	return result, nil
}

func (s *importServiceImpl) recordImport(ctx context.Context, req ImportRequest, sessionID string) (*entity.ImportRecord, error) {
	if req.Force {
		return s.guard.ReplaceImport(ctx, req.Invoice.CUFE, sessionID)
	}
	return s.guard.RecordImport(ctx, req.Invoice.CUFE, sessionID)
}

// ArchivePath is the storage path of an invoice's raw XML
func ArchivePath(cufe string) string {
	return cufe + ".xml"
}

func (s *importServiceImpl) archiveRawXML(ctx context.Context, inv *entity.Invoice) string {
	if s.archive == nil || inv.Metadata.RawXML == "" {
		return ""
	}

	path := ArchivePath(inv.CUFE)
	if err := s.archive.Save(ctx, path, []byte(inv.Metadata.RawXML)); err != nil {
		s.logger.Error("Failed to archive invoice XML", "cufe", inv.CUFE, "error", err)
		return ""
	}
	return s.archive.GetFullPath(path)
}
