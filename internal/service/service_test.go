package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"todo-service/internal/model"
	"todo-service/internal/repository"
)

var testNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestTodoService(t *testing.T) (*TodoService, *repository.Store, *testClock) {
	t.Helper()
	store := repository.NewMemoryStore()
	t.Cleanup(func() { store.Close() })

	clock := &testClock{now: testNow}
	svc := NewTodoService(store)
	svc.now = clock.Now
	n := 0
	svc.newUUID = func() string {
		n++
		return fmt.Sprintf("uuid-%d", n)
	}
	return svc, store, clock
}

func mustCreate(t *testing.T, svc *TodoService, in model.TodoInput) *model.Todo {
	t.Helper()
	todo, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("create %q: %v", in.Text, err)
	}
	return todo
}

func patchOf(t *testing.T, fields map[string]any) model.Patch {
	t.Helper()
	p := make(model.Patch, len(fields))
	for k, v := range fields {
		raw, err := json.Marshal(v)
		if err != nil {
			t.Fatal(err)
		}
		p[k] = raw
	}
	return p
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }
