package port

import (
	"context"

	"github.com/garyjia/cafe-importer/internal/domain/entity"
)

// ImportRecordRepository persists completed imports, one per CUFE
type ImportRecordRepository interface {
	Create(ctx context.Context, record *entity.ImportRecord) error
	// Replace points an existing CUFE's record at a new session, creating it when absent
	Replace(ctx context.Context, record *entity.ImportRecord) error
	GetByCUFE(ctx context.Context, cufe string) (*entity.ImportRecord, error)
	List(ctx context.Context, limit, offset int) ([]*entity.ImportRecord, error)
}

// StoreRepository is the known-merchant directory
type StoreRepository interface {
	GetByTaxID(ctx context.Context, taxID string) (*entity.Store, error)
	Upsert(ctx context.Context, store *entity.Store) error
}

// ShoppingSessionWriter creates shopping sessions and their line items
type ShoppingSessionWriter interface {
	CreateSession(ctx context.Context, session *entity.ShoppingSession) error
	AddItem(ctx context.Context, item *entity.ShoppingItem) error
}

// ShoppingSessionReader reads back sessions written by ShoppingSessionWriter
type ShoppingSessionReader interface {
	GetSession(ctx context.Context, id string) (*entity.ShoppingSession, error)
	ListItems(ctx context.Context, sessionID string) ([]*entity.ShoppingItem, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
