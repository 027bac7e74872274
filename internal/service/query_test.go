package service

import (
	"reflect"
	"testing"
	"time"

	"todo-service/internal/model"
)

func TestSortDueDateMissingLast(t *testing.T) {
	todos := []model.Todo{
		{ID: 1},
		{ID: 2, DueDate: strPtr("2026-12-01")},
		{ID: 3, DueDate: strPtr("2026-01-15")},
		{ID: 4, DueDate: strPtr("")},
	}
	Sort(todos, SortDueDate, false)
	if got := ids(todos); !reflect.DeepEqual(got, []int{3, 2, 1, 4}) {
		t.Fatalf("ascending due date = %v", got)
	}
	Sort(todos, SortDueDate, true)
	if got := ids(todos); !reflect.DeepEqual(got, []int{1, 4, 2, 3}) {
		t.Fatalf("descending due date = %v", got)
	}
}

func TestSortPriority(t *testing.T) {
	todos := []model.Todo{
		{ID: 1, Priority: model.PriorityLow},
		{ID: 2, Priority: model.PriorityUrgent},
		{ID: 3, Priority: "bogus"},
		{ID: 4, Priority: model.PriorityMedium},
		{ID: 5, Priority: model.PriorityHigh},
	}
	Sort(todos, SortPriority, true)
	if got := ids(todos); !reflect.DeepEqual(got, []int{2, 5, 4, 1, 3}) {
		t.Fatalf("descending priority = %v", got)
	}
}

func TestSortIsStable(t *testing.T) {
	todos := []model.Todo{
		{ID: 1, Priority: model.PriorityHigh},
		{ID: 2, Priority: model.PriorityLow},
		{ID: 3, Priority: model.PriorityHigh},
		{ID: 4, Priority: model.PriorityLow},
	}
	Sort(todos, SortPriority, true)
	if got := ids(todos); !reflect.DeepEqual(got, []int{1, 3, 2, 4}) {
		t.Fatalf("descending = %v", got)
	}
	Sort(todos, SortPriority, false)
	if got := ids(todos); !reflect.DeepEqual(got, []int{2, 4, 1, 3}) {
		t.Fatalf("ascending = %v", got)
	}
}

func TestSortArbitraryField(t *testing.T) {
	todos := []model.Todo{
		{ID: 1, Text: "banana"},
		{ID: 2, Text: "apple"},
		{ID: 3, Text: "cherry"},
	}
	Sort(todos, "text", false)
	if got := ids(todos); !reflect.DeepEqual(got, []int{2, 1, 3}) {
		t.Fatalf("by text = %v", got)
	}

	Sort(todos, "no_such_field", true)
	if got := ids(todos); !reflect.DeepEqual(got, []int{2, 1, 3}) {
		t.Fatalf("unknown field should keep order, got %v", got)
	}

	todos = []model.Todo{
		{ID: 1, EstimatedTime: intPtr(30)},
		{ID: 2},
		{ID: 3, EstimatedTime: intPtr(5)},
	}
	Sort(todos, "estimated_time", false)
	if got := ids(todos); !reflect.DeepEqual(got, []int{3, 1, 2}) {
		t.Fatalf("by estimated_time = %v", got)
	}
}

func TestSortCreatedAtIsChronological(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 5, 0, time.UTC)
	todos := []model.Todo{
		{ID: 1, CreatedAt: base.Add(100 * time.Millisecond)},
		{ID: 2, CreatedAt: base.Add(120 * time.Millisecond)},
		{ID: 3, CreatedAt: base},
	}
	Sort(todos, "", false)
	if got := ids(todos); !reflect.DeepEqual(got, []int{3, 1, 2}) {
		t.Fatalf("by created_at = %v", got)
	}
}

func TestFilter(t *testing.T) {
	todos := []model.Todo{
		{ID: 1, CategoryID: intPtr(1), Priority: model.PriorityLow, Tags: []string{"home"}},
		{ID: 2, CategoryID: intPtr(2), Priority: model.PriorityLow, Tags: []string{"Work"}},
		{ID: 3, Priority: model.PriorityHigh},
	}
	tests := []struct {
		name string
		q    Query
		want []int
	}{
		{"none", Query{}, []int{1, 2, 3}},
		{"category", Query{CategoryID: intPtr(2)}, []int{2}},
		{"priority", Query{Priority: "low"}, []int{1, 2}},
		{"tag case-insensitive", Query{Tag: "work"}, []int{2}},
		{"conjunctive", Query{Priority: "low", Tag: "home"}, []int{1}},
		{"no match", Query{CategoryID: intPtr(1), Priority: "high"}, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ids(Filter(todos, tt.q)); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Filter = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQueryDescending(t *testing.T) {
	if !(Query{}).Descending() || !(Query{Order: "desc"}).Descending() {
		t.Fatal("desc is the default")
	}
	if (Query{Order: "asc"}).Descending() {
		t.Fatal("asc must be ascending")
	}
}

func TestParseCategoryID(t *testing.T) {
	id, err := ParseCategoryID(" 3 ")
	if err != nil || id == nil || *id != 3 {
		t.Fatalf("ParseCategoryID = %v, %v", id, err)
	}
	if id, err := ParseCategoryID(""); err != nil || id != nil {
		t.Fatalf("empty = %v, %v", id, err)
	}
	if _, err := ParseCategoryID("work"); err == nil {
		t.Fatal("expected error for non-integer")
	}
}
