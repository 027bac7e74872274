package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"todo-service/internal/model"
	"todo-service/internal/repository"
)

func TestBuildDigest(t *testing.T) {
	todos := []model.Todo{
		{ID: 1, Text: "file taxes", Priority: model.PriorityHigh, DueDate: strPtr("2026-10-01")},
		{ID: 2, Text: "buy <milk>", Priority: model.PriorityLow, CategoryID: intPtr(3)},
		{ID: 3, Text: "fix prod", Priority: model.PriorityUrgent},
		{ID: 4, Text: "done already", Completed: true},
	}
	out := BuildDigest(todos, model.DefaultCategories(), testNow)

	for _, want := range []string{
		"2026-10-19",
		"1 of 4 done (25.0%)",
		"Overdue (1)",
		"file taxes",
		"buy &lt;milk&gt; <i>(Shopping)</i>",
		"🔴 <code>3</code> fix prod",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("digest missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "done already") {
		t.Error("completed todos are not listed")
	}
	if strings.Index(out, "fix prod") > strings.Index(out, "buy &lt;milk&gt;") {
		t.Error("open items should be ordered by priority")
	}
}

func TestBuildDigestNothingOpen(t *testing.T) {
	out := BuildDigest(nil, nil, testNow)
	if !strings.Contains(out, "nothing open") {
		t.Fatalf("digest = %s", out)
	}
}

func TestDigestServiceReadsStore(t *testing.T) {
	store := repository.NewMemoryStore()
	if err := store.ReplaceTodos(context.Background(), []model.Todo{{ID: 9, Text: "water plants", Priority: model.PriorityMedium}}); err != nil {
		t.Fatal(err)
	}
	svc := NewDigestService(store)
	svc.now = func() time.Time { return testNow }

	out, err := svc.Digest(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "🟡 <code>9</code> water plants") {
		t.Fatalf("digest = %s", out)
	}
}
