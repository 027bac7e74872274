package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Priority ranks how pressing a todo is.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Priorities lists the known levels from lowest to highest rank.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// Rank orders priorities; unknown values rank as low.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	default:
		return 1
	}
}

// Todo represents a single item on the list.
type Todo struct {
	ID               int               `json:"id"`
	UUID             string            `json:"uuid"`
	Text             string            `json:"text"`
	Completed        bool              `json:"completed"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	CompletedAt      *time.Time        `json:"completed_at,omitempty"`
	Priority         Priority          `json:"priority"`
	DueDate          *string           `json:"due_date"`
	CategoryID       *int              `json:"category_id"`
	Tags             []string          `json:"tags"`
	Notes            string            `json:"notes"`
	EstimatedTime    *int              `json:"estimated_time"` // minutes
	ActualTime       int               `json:"actual_time"`    // minutes
	Subtasks         []json.RawMessage `json:"subtasks"`
	Reminder         json.RawMessage   `json:"reminder"`
	Recurring        bool              `json:"recurring"`
	RecurringPattern *string           `json:"recurring_pattern"` // daily, weekly, monthly
}

// HasTag reports whether the todo carries tag, ignoring case.
func (t *Todo) HasTag(tag string) bool {
	for _, existing := range t.Tags {
		if strings.EqualFold(existing, tag) {
			return true
		}
	}
	return false
}

// TodoInput carries the fields accepted when creating a todo.
type TodoInput struct {
	Text             string            `json:"text"`
	Priority         Priority          `json:"priority"`
	DueDate          *string           `json:"due_date"`
	CategoryID       *int              `json:"category_id"`
	Tags             []string          `json:"tags"`
	Notes            string            `json:"notes"`
	EstimatedTime    *int              `json:"estimated_time"`
	Subtasks         []json.RawMessage `json:"subtasks"`
	Reminder         json.RawMessage   `json:"reminder"`
	Recurring        bool              `json:"recurring"`
	RecurringPattern *string           `json:"recurring_pattern"`
}

// Patch is a partial update keyed by JSON field name. Only keys present in
// the request are applied.
type Patch map[string]json.RawMessage

// Has reports whether key was supplied.
func (p Patch) Has(key string) bool {
	_, ok := p[key]
	return ok
}
