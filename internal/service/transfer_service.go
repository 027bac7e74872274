package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"todo-service/internal/model"
	"todo-service/internal/repository"
)

// TransferService exports and imports whole-store snapshots.
type TransferService struct {
	store  *repository.Store
	logger *log.Logger
	now    func() time.Time
}

func NewTransferService(store *repository.Store, logger *log.Logger) *TransferService {
	if logger == nil {
		logger = log.New(os.Stderr, "transfer: ", log.LstdFlags)
	}
	return &TransferService{store: store, logger: logger, now: time.Now}
}

// Export snapshots every collection. It never writes.
func (s *TransferService) Export(ctx context.Context) (*model.Snapshot, error) {
	todos, err := s.store.LoadTodos(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := s.store.LoadCategories(ctx)
	if err != nil {
		return nil, err
	}
	tags, err := s.store.LoadTags(ctx)
	if err != nil {
		return nil, err
	}
	return &model.Snapshot{
		Todos:      todos,
		Categories: categories,
		Tags:       tags,
		ExportedAt: s.now(),
		Version:    model.SnapshotVersion,
	}, nil
}

// Import replaces each collection present in payload. Absent collections
// are left alone. If any step fails, all three collections are restored
// to their state before the call and an *ImportError is returned.
func (s *TransferService) Import(ctx context.Context, payload map[string]json.RawMessage) (*model.ImportResult, error) {
	if len(payload) == 0 {
		return nil, validationf("No data provided")
	}

	result := &model.ImportResult{Message: "Data imported successfully"}
	err := s.store.Update(func() error {
		backup, err := s.Export(ctx)
		if err != nil {
			return &ImportError{Err: fmt.Errorf("backup current data: %w", err)}
		}

		if err := s.replaceAll(ctx, payload, result); err != nil {
			s.restore(ctx, backup)
			return &ImportError{Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Printf("[info] imported todos=%d categories=%d tags=%d",
		result.ImportedTodos, result.ImportedCategories, result.ImportedTags)
	return result, nil
}

func (s *TransferService) replaceAll(ctx context.Context, payload map[string]json.RawMessage, result *model.ImportResult) error {
	if raw, ok := payload[repository.CollectionTodos]; ok {
		var todos []model.Todo
		if err := decodeImport(repository.CollectionTodos, raw, &todos); err != nil {
			return err
		}
		for i := range todos {
			if todos[i].Subtasks == nil {
				todos[i].Subtasks = []json.RawMessage{}
			}
		}
		if err := s.store.ReplaceTodos(ctx, todos); err != nil {
			return err
		}
		result.ImportedTodos = len(todos)
	}

	if raw, ok := payload[repository.CollectionCategories]; ok {
		var categories []model.Category
		if err := decodeImport(repository.CollectionCategories, raw, &categories); err != nil {
			return err
		}
		if err := s.store.ReplaceCategories(ctx, categories); err != nil {
			return err
		}
		result.ImportedCategories = len(categories)
	}

	if raw, ok := payload[repository.CollectionTags]; ok {
		var tags []string
		if err := decodeImport(repository.CollectionTags, raw, &tags); err != nil {
			return err
		}
		if err := s.store.ReplaceTags(ctx, tags); err != nil {
			return err
		}
		result.ImportedTags = len(tags)
	}
	return nil
}

func decodeImport(name string, raw json.RawMessage, dst any) error {
	if err := validateCollection(name, raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// restore writes the backup back, best effort: every collection is
// attempted even if an earlier one fails.
func (s *TransferService) restore(ctx context.Context, backup *model.Snapshot) {
	if err := s.store.ReplaceTodos(ctx, backup.Todos); err != nil {
		s.logger.Printf("[error] restore todos: %v", err)
	}
	if err := s.store.ReplaceCategories(ctx, backup.Categories); err != nil {
		s.logger.Printf("[error] restore categories: %v", err)
	}
	if err := s.store.ReplaceTags(ctx, backup.Tags); err != nil {
		s.logger.Printf("[error] restore tags: %v", err)
	}
	s.logger.Printf("[warn] import failed, previous data restored")
}
