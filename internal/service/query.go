package service

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"todo-service/internal/model"
)

const (
	SortCreatedAt = "created_at"
	SortDueDate   = "due_date"
	SortPriority  = "priority"

	OrderAsc  = "asc"
	OrderDesc = "desc"

	// missingDueDate sorts todos without a due date after every real date.
	missingDueDate = "9999-12-31"
)

// Query filters and orders a todo listing. Zero values disable a filter.
type Query struct {
	CategoryID *int
	Priority   string
	Tag        string
	Sort       string // defaults to created_at
	Order      string // "desc" (default) or anything else for ascending
}

// Descending reports whether the listing is ordered high to low.
func (q Query) Descending() bool {
	return q.Order == "" || q.Order == OrderDesc
}

// Filter returns the todos matching every filter set on q.
func Filter(todos []model.Todo, q Query) []model.Todo {
	out := make([]model.Todo, 0, len(todos))
	for _, t := range todos {
		if q.CategoryID != nil && (t.CategoryID == nil || *t.CategoryID != *q.CategoryID) {
			continue
		}
		if q.Priority != "" && string(t.Priority) != q.Priority {
			continue
		}
		if q.Tag != "" && !t.HasTag(q.Tag) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Sort orders todos in place by field. Equal keys keep their relative order
// in both directions.
func Sort(todos []model.Todo, field string, descending bool) {
	if field == "" {
		field = SortCreatedAt
	}
	keys := make([]sortValue, len(todos))
	for i := range todos {
		keys[i] = sortKey(&todos[i], field)
	}

	idx := make([]int, len(todos))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		if descending {
			return keys[idx[b]].less(keys[idx[a]])
		}
		return keys[idx[a]].less(keys[idx[b]])
	})

	sorted := make([]model.Todo, len(todos))
	for i, j := range idx {
		sorted[i] = todos[j]
	}
	copy(todos, sorted)
}

// Apply filters then sorts a copy of todos.
func Apply(todos []model.Todo, q Query) []model.Todo {
	out := Filter(todos, q)
	Sort(out, q.Sort, q.Descending())
	return out
}

// sortValue is a comparable key: values of different kinds order by kind
// (bool, number, string), values of one kind by their natural order.
type sortValue struct {
	kind int
	num  float64
	str  string
}

const (
	kindBool = iota
	kindNumber
	kindString
)

func (v sortValue) less(o sortValue) bool {
	if v.kind != o.kind {
		return v.kind < o.kind
	}
	if v.kind == kindString {
		return v.str < o.str
	}
	return v.num < o.num
}

func stringValue(s string) sortValue { return sortValue{kind: kindString, str: s} }
func numberValue(n int) sortValue    { return sortValue{kind: kindNumber, num: float64(n)} }

func boolValue(b bool) sortValue {
	if b {
		return sortValue{kind: kindBool, num: 1}
	}
	return sortValue{kind: kindBool}
}

func optionalString(s *string) sortValue {
	if s == nil {
		return stringValue("")
	}
	return stringValue(*s)
}

func optionalNumber(n *int) sortValue {
	if n == nil {
		return stringValue("")
	}
	return numberValue(*n)
}

// timeValue renders t with a fixed-width layout so lexical order is chronological.
func timeValue(t time.Time) sortValue {
	return stringValue(t.UTC().Format("2006-01-02T15:04:05.000000000Z"))
}

func sortKey(t *model.Todo, field string) sortValue {
	switch field {
	case SortDueDate:
		if t.DueDate == nil || *t.DueDate == "" {
			return stringValue(missingDueDate)
		}
		return stringValue(*t.DueDate)
	case SortPriority:
		return numberValue(t.Priority.Rank())
	case "created_at":
		return timeValue(t.CreatedAt)
	case "updated_at":
		return timeValue(t.UpdatedAt)
	case "completed_at":
		if t.CompletedAt == nil {
			return stringValue("")
		}
		return timeValue(*t.CompletedAt)
	case "id":
		return numberValue(t.ID)
	case "uuid":
		return stringValue(t.UUID)
	case "text":
		return stringValue(t.Text)
	case "completed":
		return boolValue(t.Completed)
	case "category_id":
		return optionalNumber(t.CategoryID)
	case "tags":
		return stringValue(strings.Join(t.Tags, ","))
	case "notes":
		return stringValue(t.Notes)
	case "estimated_time":
		return optionalNumber(t.EstimatedTime)
	case "actual_time":
		return numberValue(t.ActualTime)
	case "recurring":
		return boolValue(t.Recurring)
	case "recurring_pattern":
		return optionalString(t.RecurringPattern)
	case "reminder":
		return stringValue(string(t.Reminder))
	default:
		return stringValue("")
	}
}

// ParseCategoryID parses the category filter; an empty string means no filter.
func ParseCategoryID(raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return nil, validationf("category must be an integer")
	}
	return &id, nil
}
