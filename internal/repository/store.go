package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"

	"todo-service/internal/model"
)

// Collection names shared by every backend.
const (
	CollectionTodos      = "todos"
	CollectionCategories = "categories"
	CollectionTags       = "tags"
)

// Driver names accepted by Open.
const (
	DriverSQLite     = "sqlite"
	DriverSQLitePure = "sqlite-pure"
	DriverFile       = "file"
	DriverMemory     = "memory"
)

// Backend persists whole collections as serialized payloads. Load reports
// found=false when the collection was never written.
type Backend interface {
	Load(ctx context.Context, name string) (payload []byte, found bool, err error)
	Replace(ctx context.Context, name string, payload []byte) error
	Close() error
}

// CorruptError reports a persisted collection that could not be decoded.
type CorruptError struct {
	Collection string
	Err        error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("collection %s is corrupt: %v", e.Collection, e.Err)
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}

// Store loads and replaces the todo, category and tag collections wholesale.
type Store struct {
	backend Backend
	logger  *log.Logger
	mu      sync.Mutex
	seedMu  sync.Mutex
}

// NewStore wraps backend. A nil logger writes to stderr.
func NewStore(backend Backend, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(os.Stderr, "store: ", log.LstdFlags)
	}
	return &Store{backend: backend, logger: logger}
}

// NewMemoryStore creates an in-memory store for testing.
func NewMemoryStore() *Store {
	return NewStore(NewMemoryRepository(), nil)
}

// Open builds a store for the named driver. dsn is the database path for the
// SQLite drivers; dataDir is the directory used by the file driver.
func Open(driver, dsn, dataDir string, logger *log.Logger) (*Store, error) {
	var backend Backend
	switch driver {
	case DriverSQLite, "":
		db, err := NewDB(dsn)
		if err != nil {
			return nil, err
		}
		backend = NewCollectionRepository(db)
	case DriverSQLitePure:
		repo, err := NewSQLRepository(dsn)
		if err != nil {
			return nil, err
		}
		backend = repo
	case DriverFile:
		backend = NewFileRepository(dataDir)
	case DriverMemory:
		backend = NewMemoryRepository()
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
	return NewStore(backend, logger), nil
}

// Update runs fn while holding the store's write lock, so a
// load-modify-replace sequence is not interleaved with another one.
func (s *Store) Update(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) LoadTodos(ctx context.Context) ([]model.Todo, error) {
	todos, _, err := loadCollection[model.Todo](ctx, s, CollectionTodos)
	return todos, err
}

func (s *Store) ReplaceTodos(ctx context.Context, todos []model.Todo) error {
	return replaceCollection(ctx, s.backend, CollectionTodos, todos)
}

// LoadCategories returns the categories, seeding the defaults the first
// time the collection is read.
func (s *Store) LoadCategories(ctx context.Context) ([]model.Category, error) {
	categories, found, err := loadCollection[model.Category](ctx, s, CollectionCategories)
	if err != nil {
		return nil, err
	}
	if found {
		return categories, nil
	}

	// Seeding runs under its own lock so Load* stays usable inside Update.
	s.seedMu.Lock()
	defer s.seedMu.Unlock()
	categories, found, err = loadCollection[model.Category](ctx, s, CollectionCategories)
	if err != nil {
		return nil, err
	}
	if found {
		return categories, nil
	}

	defaults := model.DefaultCategories()
	if err := s.ReplaceCategories(ctx, defaults); err != nil {
		return nil, fmt.Errorf("seed categories: %w", err)
	}
	s.logger.Printf("[info] seeded %d default categories", len(defaults))
	return defaults, nil
}

func (s *Store) ReplaceCategories(ctx context.Context, categories []model.Category) error {
	return replaceCollection(ctx, s.backend, CollectionCategories, categories)
}

func (s *Store) LoadTags(ctx context.Context) ([]string, error) {
	tags, _, err := loadCollection[string](ctx, s, CollectionTags)
	return tags, err
}

func (s *Store) ReplaceTags(ctx context.Context, tags []string) error {
	return replaceCollection(ctx, s.backend, CollectionTags, tags)
}

// loadCollection decodes a collection. A corrupt payload is logged and
// read as an empty collection so the service stays available.
func loadCollection[T any](ctx context.Context, s *Store, name string) ([]T, bool, error) {
	payload, found, err := s.backend.Load(ctx, name)
	if err != nil {
		return nil, false, fmt.Errorf("load %s: %w", name, err)
	}
	if !found {
		return []T{}, false, nil
	}

	items, err := decodeCollection[T](name, payload)
	if err != nil {
		s.logger.Printf("[warn] %v; treating as empty", err)
		return []T{}, true, nil
	}
	return items, true, nil
}

func decodeCollection[T any](name string, payload []byte) ([]T, error) {
	var items []T
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, &CorruptError{Collection: name, Err: err}
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func replaceCollection[T any](ctx context.Context, backend Backend, name string, items []T) error {
	if items == nil {
		items = []T{}
	}
	payload, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	if err := backend.Replace(ctx, name, payload); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}
