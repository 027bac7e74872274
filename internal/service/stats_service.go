package service

import (
	"context"
	"math"
	"time"

	"todo-service/internal/model"
	"todo-service/internal/repository"
)

const (
	overdueListLimit = 5
	productivityDays = 7
)

var dueDateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// StatsService aggregates the todo collection.
type StatsService struct {
	store *repository.Store
	now   func() time.Time
}

func NewStatsService(store *repository.Store) *StatsService {
	return &StatsService{store: store, now: time.Now}
}

func (s *StatsService) Stats(ctx context.Context) (*model.Stats, error) {
	todos, err := s.store.LoadTodos(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := s.store.LoadCategories(ctx)
	if err != nil {
		return nil, err
	}
	stats := ComputeStats(todos, categories, s.now())
	return &stats, nil
}

// ComputeStats derives the aggregate statistics as of now.
func ComputeStats(todos []model.Todo, categories []model.Category, now time.Time) model.Stats {
	stats := model.Stats{
		TotalTodos:        len(todos),
		PriorityBreakdown: make(map[model.Priority]int, len(model.Priorities)),
		CategoryBreakdown: make(map[string]int, len(categories)),
		OverdueTodos:      []model.Todo{},
	}
	for _, p := range model.Priorities {
		stats.PriorityBreakdown[p] = 0
	}
	for _, c := range categories {
		stats.CategoryBreakdown[c.Name] = 0
	}
	categoryNames := make(map[int]string, len(categories))
	for _, c := range categories {
		categoryNames[c.ID] = c.Name
	}

	weekAgo := now.Add(-productivityDays * 24 * time.Hour)
	for _, t := range todos {
		if t.Completed {
			stats.CompletedTodos++
			if t.CompletedAt != nil && !t.CompletedAt.Before(weekAgo) {
				stats.WeeklyCompleted++
			}
		}
		if _, ok := stats.PriorityBreakdown[t.Priority]; ok {
			stats.PriorityBreakdown[t.Priority]++
		}
		if t.CategoryID != nil {
			if name, ok := categoryNames[*t.CategoryID]; ok {
				stats.CategoryBreakdown[name]++
			}
		}
		if IsOverdue(t, now) {
			stats.OverdueCount++
			if len(stats.OverdueTodos) < overdueListLimit {
				stats.OverdueTodos = append(stats.OverdueTodos, t)
			}
		}
	}

	stats.PendingTodos = stats.TotalTodos - stats.CompletedTodos
	if stats.TotalTodos > 0 {
		stats.CompletionRate = round1(float64(stats.CompletedTodos) / float64(stats.TotalTodos) * 100)
	}
	stats.WeeklyProductivity = round1(float64(stats.WeeklyCompleted) / productivityDays)
	return stats
}

// IsOverdue reports whether an open todo's due date falls before today.
// Time of day is ignored; unparseable due dates are never overdue.
func IsOverdue(t model.Todo, now time.Time) bool {
	if t.Completed || t.DueDate == nil || *t.DueDate == "" {
		return false
	}
	due, ok := parseDueDate(*t.DueDate)
	if !ok {
		return false
	}
	y, m, d := due.Date()
	ny, nm, nd := now.Date()
	dueDay := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	today := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	return dueDay.Before(today)
}

func parseDueDate(raw string) (time.Time, bool) {
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
