package service

import (
	"context"
	"sync"

	"github.com/garyjia/cafe-importer/internal/application/port"
	"github.com/garyjia/cafe-importer/internal/domain/entity"
)

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

type mockImportRecordRepo struct {
	createFunc    func(ctx context.Context, record *entity.ImportRecord) error
	getByCUFEFunc func(ctx context.Context, cufe string) (*entity.ImportRecord, error)
	created       []*entity.ImportRecord
	replaced      []*entity.ImportRecord
}

func (m *mockImportRecordRepo) Create(ctx context.Context, record *entity.ImportRecord) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, record)
	}
	record.ID = int64(len(m.created) + 1)
	m.created = append(m.created, record)
	return nil
}

func (m *mockImportRecordRepo) Replace(ctx context.Context, record *entity.ImportRecord) error {
	m.replaced = append(m.replaced, record)
	for i, r := range m.created {
		if r.CUFE == record.CUFE {
			record.ID = r.ID
			m.created[i] = record
			return nil
		}
	}
	record.ID = int64(len(m.created) + 1)
	m.created = append(m.created, record)
	return nil
}

func (m *mockImportRecordRepo) GetByCUFE(ctx context.Context, cufe string) (*entity.ImportRecord, error) {
	if m.getByCUFEFunc != nil {
		return m.getByCUFEFunc(ctx, cufe)
	}
	for _, r := range m.created {
		if r.CUFE == cufe {
			return r, nil
		}
	}
	return nil, nil
}

func (m *mockImportRecordRepo) List(ctx context.Context, limit, offset int) ([]*entity.ImportRecord, error) {
	return m.created, nil
}

type mockStoreRepo struct {
	getByTaxIDFunc func(ctx context.Context, taxID string) (*entity.Store, error)
	upserted       []*entity.Store
}

func (m *mockStoreRepo) GetByTaxID(ctx context.Context, taxID string) (*entity.Store, error) {
	if m.getByTaxIDFunc != nil {
		return m.getByTaxIDFunc(ctx, taxID)
	}
	return nil, nil
}

func (m *mockStoreRepo) Upsert(ctx context.Context, store *entity.Store) error {
	if store.ID == "" {
		store.ID = "store-1"
	}
	m.upserted = append(m.upserted, store)
	return nil
}

type mockSessionWriter struct {
	mu                sync.Mutex
	createSessionFunc func(ctx context.Context, session *entity.ShoppingSession) error
	addItemFunc       func(ctx context.Context, item *entity.ShoppingItem) error
	sessions          []*entity.ShoppingSession
	items             []*entity.ShoppingItem
}

func (m *mockSessionWriter) CreateSession(ctx context.Context, session *entity.ShoppingSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createSessionFunc != nil {
		if err := m.createSessionFunc(ctx, session); err != nil {
			return err
		}
	}
	m.sessions = append(m.sessions, session)
	return nil
}

func (m *mockSessionWriter) AddItem(ctx context.Context, item *entity.ShoppingItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addItemFunc != nil {
		if err := m.addItemFunc(ctx, item); err != nil {
			return err
		}
	}
	m.items = append(m.items, item)
	return nil
}

type mockTxManager struct {
	calls int
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

type mockFetcher struct {
	fetchFunc func(ctx context.Context, req port.FetchRequest) (*port.FetchResult, error)
}

func (m *mockFetcher) Fetch(ctx context.Context, req port.FetchRequest) (*port.FetchResult, error) {
	return m.fetchFunc(ctx, req)
}

type mockFileStorage struct {
	saveFunc func(ctx context.Context, path string, content []byte) error
	files    map[string][]byte
}

func (m *mockFileStorage) Save(ctx context.Context, path string, content []byte) error {
	if m.saveFunc != nil {
		return m.saveFunc(ctx, path, content)
	}
	if m.files == nil {
		m.files = make(map[string][]byte)
	}
	m.files[path] = content
	return nil
}

func (m *mockFileStorage) Read(ctx context.Context, path string) ([]byte, error) {
	return m.files[path], nil
}

func (m *mockFileStorage) Exists(ctx context.Context, path string) bool {
	_, ok := m.files[path]
	return ok
}

func (m *mockFileStorage) Delete(ctx context.Context, path string) error {
	delete(m.files, path)
	return nil
}

func (m *mockFileStorage) GetFullPath(relativePath string) string {
	return "/archive/" + relativePath
}
