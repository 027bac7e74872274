package service

import (
	"regexp"
	"strings"

	"todo-service/internal/model"
)

var tagPattern = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)

// ExtractTags returns the lowercased bodies of every #word in text, in order
// of first appearance and without duplicates.
func ExtractTags(text string) []string {
	matches := tagPattern.FindAllStringSubmatch(strings.ToLower(text), -1)
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		tags = appendUnique(tags, m[1])
	}
	return tags
}

// PriorityDisplay maps a priority to its display marker.
func PriorityDisplay(p model.Priority) string {
	switch p {
	case model.PriorityLow:
		return "🟢"
	case model.PriorityMedium:
		return "🟡"
	case model.PriorityHigh:
		return "🟠"
	case model.PriorityUrgent:
		return "🔴"
	default:
		return "⚪"
	}
}

// NextID returns the id for a new todo: one past the largest existing id,
// or 1 for an empty collection. Ids are never reused.
func NextID(todos []model.Todo) int {
	return nextID(todos, func(t model.Todo) int { return t.ID })
}

func nextID[T any](items []T, id func(T) int) int {
	max := 0
	for _, item := range items {
		if v := id(item); v > max {
			max = v
		}
	}
	return max + 1
}

// normalizeTags lowercases tags and drops blanks and duplicates.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		out = appendUnique(out, tag)
	}
	return out
}

// mergeTags returns base followed by any tags from extra it lacks.
func mergeTags(base []string, extra ...[]string) []string {
	out := make([]string, 0, len(base))
	out = append(out, base...)
	for _, tags := range extra {
		for _, tag := range tags {
			out = appendUnique(out, tag)
		}
	}
	return out
}

func appendUnique(list []string, value string) []string {
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}
