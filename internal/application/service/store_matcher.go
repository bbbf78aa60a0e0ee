package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/cafe-importer/internal/application/port"
	"github.com/garyjia/cafe-importer/internal/domain/entity"
)

// StoreMatcher resolves an invoice issuer to a known store
type StoreMatcher interface {
	MatchByTaxID(ctx context.Context, taxID string) (*entity.StoreMatch, error)
	Register(ctx context.Context, taxID, name string, verified bool) (*entity.Store, error)
}

type storeMatcherImpl struct {
	stores port.StoreRepository
	logger Logger
}

// NewStoreMatcher creates a new StoreMatcher
func NewStoreMatcher(stores port.StoreRepository, logger Logger) StoreMatcher {
	return &storeMatcherImpl{
		stores: stores,
		logger: logger,
	}
}

// MatchByTaxID returns nil, nil when no store is registered under taxID
func (m *storeMatcherImpl) MatchByTaxID(ctx context.Context, taxID string) (*entity.StoreMatch, error) {
	taxID = strings.TrimSpace(taxID)
	if taxID == "" {
		return nil, nil
	}

	store, err := m.stores.GetByTaxID(ctx, taxID)
	if err != nil {
		return nil, fmt.Errorf("failed to match store: %w", err)
	}
	if store == nil {
		return nil, nil
	}

	return &entity.StoreMatch{
		StoreID:    store.ID,
		StoreName:  store.Name,
		IsVerified: store.IsVerified,
	}, nil
}

// Register adds or updates a directory entry
func (m *storeMatcherImpl) Register(ctx context.Context, taxID, name string, verified bool) (*entity.Store, error) {
	taxID = strings.TrimSpace(taxID)
	name = strings.TrimSpace(name)
	if taxID == "" || name == "" {
		return nil, fmt.Errorf("tax id and name are required")
	}

	store := &entity.Store{TaxID: taxID, Name: name, IsVerified: verified}
	if err := m.stores.Upsert(ctx, store); err != nil {
		return nil, err
	}

	m.logger.Info("Store registered", "store_id", store.ID, "tax_id", taxID)
	return store, nil
}
