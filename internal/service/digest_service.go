package service

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"todo-service/internal/model"
	"todo-service/internal/repository"
)

// DigestService builds human-readable summaries for periodic notifications.
type DigestService struct {
	store *repository.Store
	now   func() time.Time
}

func NewDigestService(store *repository.Store) *DigestService {
	return &DigestService{store: store, now: time.Now}
}

// Digest renders an HTML summary: totals, overdue items and open items
// ordered by priority.
func (s *DigestService) Digest(ctx context.Context) (string, error) {
	todos, err := s.store.LoadTodos(ctx)
	if err != nil {
		return "", err
	}
	categories, err := s.store.LoadCategories(ctx)
	if err != nil {
		return "", err
	}
	return BuildDigest(todos, categories, s.now()), nil
}

// BuildDigest renders the digest for the given collections as of now.
func BuildDigest(todos []model.Todo, categories []model.Category, now time.Time) string {
	stats := ComputeStats(todos, categories, now)
	catNames := make(map[int]string, len(categories))
	for _, c := range categories {
		catNames[c.ID] = c.Name
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Todo digest</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("2006-01-02")))

	builder.WriteString(fmt.Sprintf("✅ %d of %d done (%.1f%%)\n", stats.CompletedTodos, stats.TotalTodos, stats.CompletionRate))
	builder.WriteString(fmt.Sprintf("📈 %d completed this week, %.1f per day\n", stats.WeeklyCompleted, stats.WeeklyProductivity))

	if stats.OverdueCount > 0 {
		builder.WriteString(fmt.Sprintf("\n⚠️ <b>Overdue (%d)</b>\n", stats.OverdueCount))
		for _, t := range stats.OverdueTodos {
			builder.WriteString(FormatTodo(t, catNames))
		}
	}

	pending := make([]model.Todo, 0, stats.PendingTodos)
	for _, t := range todos {
		if !t.Completed && !IsOverdue(t, now) {
			pending = append(pending, t)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].Priority.Rank() > pending[j].Priority.Rank()
	})

	builder.WriteString("\n🔥 <b>Open</b>\n")
	if len(pending) == 0 {
		builder.WriteString("— nothing open\n")
	} else {
		for _, t := range pending {
			builder.WriteString(FormatTodo(t, catNames))
		}
	}

	return strings.TrimSpace(builder.String())
}

// FormatTodo renders one todo as an HTML line with its priority marker,
// category and due date.
func FormatTodo(t model.Todo, catNames map[int]string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s <code>%d</code> %s", PriorityDisplay(t.Priority), t.ID, html.EscapeString(strings.TrimSpace(t.Text))))

	if t.CategoryID != nil {
		if name, ok := catNames[*t.CategoryID]; ok {
			trimmed := strings.TrimSpace(name)
			if trimmed != "" {
				sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", html.EscapeString(trimmed)))
			}
		}
	}

	if t.DueDate != nil && *t.DueDate != "" {
		sb.WriteString(fmt.Sprintf("\n   ⏰ %s", html.EscapeString(*t.DueDate)))
	}

	sb.WriteByte('\n')
	return sb.String()
}
