package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/livefire2015/ez-solar-ledger/src/models"
)

// Keys of the documents kept by FileStore
const (
	BillsKey   = "solar_bills"
	TenantsKey = "solar_tenants"
)

// document is the on-disk envelope of one key
type document[T any] struct {
	Version int       `json:"version"`
	SavedAt time.Time `json:"saved_at"`
	Records []T       `json:"records"`
}

// FileStore keeps one JSON document per key in a directory. Writes go to a
// temporary file that is renamed over the old document.
type FileStore struct {
	mu    sync.Mutex
	dir   string
	clock func() time.Time
}

// NewFileStore creates the directory if needed
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	return &FileStore{dir: dir, clock: time.Now}, nil
}

func (s *FileStore) LoadBills(ctx context.Context) ([]models.Bill, error) {
	return loadDocument[models.Bill](ctx, s, BillsKey)
}

func (s *FileStore) SaveBills(ctx context.Context, bills []models.Bill) error {
	return saveDocument(ctx, s, BillsKey, bills)
}

func (s *FileStore) LoadTenants(ctx context.Context) ([]models.Tenant, error) {
	return loadDocument[models.Tenant](ctx, s, TenantsKey)
}

func (s *FileStore) SaveTenants(ctx context.Context, tenants []models.Tenant) error {
	return saveDocument(ctx, s, TenantsKey, tenants)
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func loadDocument[T any](ctx context.Context, s *FileStore, key string) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}

	var doc document[T]
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", key, err)
	}
	if doc.Version > SchemaVersion {
		return nil, fmt.Errorf("decoding %s: schema version %d is newer than supported %d", key, doc.Version, SchemaVersion)
	}
	if doc.Records == nil {
		doc.Records = []T{}
	}
	return doc.Records, nil
}

func saveDocument[T any](ctx context.Context, s *FileStore, key string, records []T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if records == nil {
		records = []T{}
	}
	data, err := json.MarshalIndent(document[T]{
		Version: SchemaVersion,
		SavedAt: s.clock().UTC(),
		Records: records,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		return fmt.Errorf("replacing %s: %w", key, err)
	}
	return nil
}
