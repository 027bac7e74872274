package service

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"todo-service/internal/model"
	"todo-service/internal/repository"
)

const duplicateMessage = "A todo with this text already exists!"

// bulkFields are the only keys BulkUpdate applies.
var bulkFields = map[string]bool{
	"text":        true,
	"completed":   true,
	"priority":    true,
	"due_date":    true,
	"category_id": true,
}

// TodoService wraps todo-related business logic.
type TodoService struct {
	store   *repository.Store
	now     func() time.Time
	newUUID func() string
}

func NewTodoService(store *repository.Store) *TodoService {
	return &TodoService{
		store:   store,
		now:     time.Now,
		newUUID: func() string { return uuid.NewString() },
	}
}

// List returns the todos matching q, sorted as q requests.
func (s *TodoService) List(ctx context.Context, q Query) ([]model.Todo, error) {
	todos, err := s.store.LoadTodos(ctx)
	if err != nil {
		return nil, err
	}
	return Apply(todos, q), nil
}

// Get returns a single todo.
func (s *TodoService) Get(ctx context.Context, id int) (*model.Todo, error) {
	todos, err := s.store.LoadTodos(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOf(todos, id)
	if i < 0 {
		return nil, &NotFoundError{Resource: "Todo", ID: id}
	}
	return &todos[i], nil
}

// Create adds a todo. Tags are the #words found in the text plus any
// supplied explicitly; new ones join the tag registry.
func (s *TodoService) Create(ctx context.Context, in model.TodoInput) (*model.Todo, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, validationf("Text is required")
	}

	var created model.Todo
	err := s.store.Update(func() error {
		todos, err := s.store.LoadTodos(ctx)
		if err != nil {
			return err
		}

		tags := mergeTags(ExtractTags(in.Text), normalizeTags(in.Tags))

		priority := in.Priority
		if priority == "" {
			priority = model.PriorityMedium
		}
		subtasks := in.Subtasks
		if subtasks == nil {
			subtasks = []json.RawMessage{}
		}

		now := s.now()
		created = model.Todo{
			ID:               NextID(todos),
			UUID:             s.newUUID(),
			Text:             text,
			Completed:        false,
			CreatedAt:        now,
			UpdatedAt:        now,
			Priority:         priority,
			DueDate:          in.DueDate,
			CategoryID:       in.CategoryID,
			Tags:             tags,
			Notes:            in.Notes,
			EstimatedTime:    in.EstimatedTime,
			ActualTime:       0,
			Subtasks:         subtasks,
			Reminder:         in.Reminder,
			Recurring:        in.Recurring,
			RecurringPattern: in.RecurringPattern,
		}

		todos = append(todos, created)
		if err := s.store.ReplaceTodos(ctx, todos); err != nil {
			return err
		}
		return s.registerTags(ctx, tags)
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// Update applies patch to the todo with id.
//
// A new text re-extracts tags and adds them to the existing ones; tags that
// no longer appear in the text are kept. An explicit "tags" key replaces the
// set outright.
func (s *TodoService) Update(ctx context.Context, id int, patch model.Patch) (*model.Todo, error) {
	if len(patch) == 0 {
		return nil, validationf("No data provided")
	}

	var updated model.Todo
	err := s.store.Update(func() error {
		todos, err := s.store.LoadTodos(ctx)
		if err != nil {
			return err
		}
		i := indexOf(todos, id)
		if i < 0 {
			return &NotFoundError{Resource: "Todo", ID: id}
		}

		todo := todos[i]
		now := s.now()
		todo.UpdatedAt = now

		var newTags []string
		if raw, ok := patch["text"]; ok {
			var text string
			if err := decodeField("text", raw, &text); err != nil {
				return err
			}
			todo.Text = strings.TrimSpace(text)
			extracted := ExtractTags(text)
			todo.Tags = mergeTags(todo.Tags, extracted)
			newTags = append(newTags, extracted...)
		}

		if raw, ok := patch["completed"]; ok {
			todo.Completed = truthy(raw)
			if todo.Completed {
				todo.CompletedAt = &now
			} else {
				todo.CompletedAt = nil
			}
		}

		if err := applyFields(&todo, patch, updatableFields); err != nil {
			return err
		}

		if raw, ok := patch["tags"]; ok {
			var tags []string
			if err := decodeField("tags", raw, &tags); err != nil {
				return err
			}
			todo.Tags = normalizeTags(tags)
			newTags = append(newTags, todo.Tags...)
		}

		todos[i] = todo
		if err := s.store.ReplaceTodos(ctx, todos); err != nil {
			return err
		}
		updated = todo
		return s.registerTags(ctx, newTags)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes the todo with id.
func (s *TodoService) Delete(ctx context.Context, id int) error {
	return s.store.Update(func() error {
		todos, err := s.store.LoadTodos(ctx)
		if err != nil {
			return err
		}
		kept := make([]model.Todo, 0, len(todos))
		for _, t := range todos {
			if t.ID != id {
				kept = append(kept, t)
			}
		}
		if len(kept) == len(todos) {
			return &NotFoundError{Resource: "Todo", ID: id}
		}
		return s.store.ReplaceTodos(ctx, kept)
	})
}

// CheckDuplicate reports whether a todo with the same text exists, comparing
// trimmed text case-insensitively.
func (s *TodoService) CheckDuplicate(ctx context.Context, text string) (bool, string, error) {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return false, "", validationf("Text cannot be empty")
	}

	todos, err := s.store.LoadTodos(ctx)
	if err != nil {
		return false, "", err
	}
	for _, t := range todos {
		if strings.ToLower(strings.TrimSpace(t.Text)) == needle {
			return true, duplicateMessage, nil
		}
	}
	return false, "", nil
}

// BulkUpdate applies the allowed keys of updates to every todo whose id is in
// ids. Other keys are ignored. Values are stored as given: text is not
// trimmed and completing does not stamp completed_at.
func (s *TodoService) BulkUpdate(ctx context.Context, ids []int, updates model.Patch) ([]model.Todo, error) {
	wanted := make(map[int]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	allowed := make(model.Patch, len(updates))
	for key, raw := range updates {
		if bulkFields[key] {
			allowed[key] = raw
		}
	}

	updated := []model.Todo{}
	err := s.store.Update(func() error {
		todos, err := s.store.LoadTodos(ctx)
		if err != nil {
			return err
		}

		now := s.now()
		for i := range todos {
			if !wanted[todos[i].ID] {
				continue
			}
			todo := todos[i]
			todo.UpdatedAt = now
			if raw, ok := allowed["completed"]; ok {
				todo.Completed = truthy(raw)
			}
			if err := applyFields(&todo, allowed, bulkAssignable); err != nil {
				return err
			}
			todos[i] = todo
			updated = append(updated, todo)
		}

		return s.store.ReplaceTodos(ctx, todos)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Tags returns the tag registry.
func (s *TodoService) Tags(ctx context.Context) ([]string, error) {
	return s.store.LoadTags(ctx)
}

// registerTags appends unseen tags to the registry. The registry only grows.
func (s *TodoService) registerTags(ctx context.Context, tags []string) error {
	if len(tags) == 0 {
		return nil
	}
	existing, err := s.store.LoadTags(ctx)
	if err != nil {
		return err
	}
	merged := mergeTags(existing, tags)
	if len(merged) == len(existing) {
		return nil
	}
	return s.store.ReplaceTags(ctx, merged)
}

func indexOf(todos []model.Todo, id int) int {
	for i := range todos {
		if todos[i].ID == id {
			return i
		}
	}
	return -1
}

// fieldTarget returns where a patch key is decoded into.
type fieldTarget func(t *model.Todo) any

var updatableFields = map[string]fieldTarget{
	"priority":          func(t *model.Todo) any { return &t.Priority },
	"due_date":          func(t *model.Todo) any { return &t.DueDate },
	"category_id":       func(t *model.Todo) any { return &t.CategoryID },
	"notes":             func(t *model.Todo) any { return &t.Notes },
	"estimated_time":    func(t *model.Todo) any { return &t.EstimatedTime },
	"actual_time":       func(t *model.Todo) any { return &t.ActualTime },
	"subtasks":          func(t *model.Todo) any { return &t.Subtasks },
	"reminder":          func(t *model.Todo) any { return &t.Reminder },
	"recurring":         func(t *model.Todo) any { return &t.Recurring },
	"recurring_pattern": func(t *model.Todo) any { return &t.RecurringPattern },
}

var bulkAssignable = map[string]fieldTarget{
	"text":        func(t *model.Todo) any { return &t.Text },
	"priority":    updatableFields["priority"],
	"due_date":    updatableFields["due_date"],
	"category_id": updatableFields["category_id"],
}

func applyFields(todo *model.Todo, patch model.Patch, fields map[string]fieldTarget) error {
	for key, target := range fields {
		raw, ok := patch[key]
		if !ok {
			continue
		}
		if err := decodeField(key, raw, target(todo)); err != nil {
			return err
		}
	}
	if todo.Subtasks == nil {
		todo.Subtasks = []json.RawMessage{}
	}
	return nil
}

// requiredFields reject null; the other patchable fields treat it as "clear".
var requiredFields = map[string]bool{
	"text":        true,
	"priority":    true,
	"notes":       true,
	"actual_time": true,
	"recurring":   true,
}

func decodeField(key string, raw json.RawMessage, dst any) error {
	if requiredFields[key] && isNull(raw) {
		return validationf("%s cannot be null", key)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return validationf("invalid value for %s: %v", key, err)
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(bytes.TrimSpace(raw)) == "null"
}

// truthy coerces a JSON value to a boolean: false, null, 0, "" and empty
// arrays or objects are false, everything else is true.
func truthy(raw json.RawMessage) bool {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != ""
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		return true
	}
}
