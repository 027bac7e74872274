package model

import "time"

// SnapshotVersion tags exported payloads.
const SnapshotVersion = "2.0"

// Snapshot is a full export of every collection at a point in time.
type Snapshot struct {
	Todos      []Todo     `json:"todos"`
	Categories []Category `json:"categories"`
	Tags       []string   `json:"tags"`
	ExportedAt time.Time  `json:"exported_at"`
	Version    string     `json:"version"`
}

// ImportResult reports how many records each replaced collection received.
type ImportResult struct {
	Message            string `json:"message"`
	ImportedTodos      int    `json:"imported_todos"`
	ImportedCategories int    `json:"imported_categories"`
	ImportedTags       int    `json:"imported_tags"`
}

// Stats aggregates the todo collection.
type Stats struct {
	TotalTodos         int              `json:"total_todos"`
	CompletedTodos     int              `json:"completed_todos"`
	PendingTodos       int              `json:"pending_todos"`
	CompletionRate     float64          `json:"completion_rate"`
	PriorityBreakdown  map[Priority]int `json:"priority_breakdown"`
	CategoryBreakdown  map[string]int   `json:"category_breakdown"`
	OverdueCount       int              `json:"overdue_count"`
	OverdueTodos       []Todo           `json:"overdue_todos"`
	WeeklyCompleted    int              `json:"weekly_completed"`
	WeeklyProductivity float64          `json:"weekly_productivity"`
}
