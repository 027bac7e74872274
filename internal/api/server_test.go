package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"todo-service/internal/model"
	"todo-service/internal/repository"
	"todo-service/internal/service"
)

type testServer struct {
	handler http.Handler
	store   *repository.Store
	logs    *bytes.Buffer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logs := &bytes.Buffer{}
	logger := log.New(logs, "", 0)
	store := repository.NewStore(repository.NewMemoryRepository(), logger)
	t.Cleanup(func() { store.Close() })

	srv, err := NewServer(Options{
		Todos:      service.NewTodoService(store),
		Categories: service.NewCategoryService(store),
		Stats:      service.NewStatsService(store),
		Transfer:   service.NewTransferService(store, logger),
		Logger:     logger,
	})
	if err != nil {
		t.Fatal(err)
	}
	return &testServer{handler: srv.Handler(), store: store, logs: logs}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d; body %s", rec.Code, want, rec.Body.String())
	}
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	expectStatus(t, rec, status)
	body := decodeBody[map[string]string](t, rec)
	if body["error"] != message {
		t.Fatalf("error = %q, want %q", body["error"], message)
	}
}

// ============================================================================
// Todos
// ============================================================================

func TestCreateAndListTodos(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/todos", `{"text":"buy #milk","priority":"high","category_id":3}`)
	expectStatus(t, rec, http.StatusCreated)
	created := decodeBody[model.Todo](t, rec)
	if created.ID != 1 || created.UUID == "" || created.Priority != model.PriorityHigh {
		t.Fatalf("created = %+v", created)
	}
	if len(created.Tags) != 1 || created.Tags[0] != "milk" {
		t.Fatalf("tags = %v", created.Tags)
	}
	if !strings.Contains(rec.Body.String(), `"subtasks":[]`) {
		t.Fatalf("subtasks should serialize as []: %s", rec.Body.String())
	}

	ts.do(t, http.MethodPost, "/api/todos", `{"text":"walk dog","priority":"low"}`)

	rec = ts.do(t, http.MethodGet, "/api/todos?sort=priority&order=desc", "")
	expectStatus(t, rec, http.StatusOK)
	todos := decodeBody[[]model.Todo](t, rec)
	if len(todos) != 2 || todos[0].ID != 1 || todos[1].ID != 2 {
		t.Fatalf("list = %+v", todos)
	}

	rec = ts.do(t, http.MethodGet, "/api/todos?category=3", "")
	if todos := decodeBody[[]model.Todo](t, rec); len(todos) != 1 || todos[0].ID != 1 {
		t.Fatalf("category filter = %+v", todos)
	}

	rec = ts.do(t, http.MethodGet, "/api/todos?tag=MILK", "")
	if todos := decodeBody[[]model.Todo](t, rec); len(todos) != 1 {
		t.Fatalf("tag filter = %+v", todos)
	}

	rec = ts.do(t, http.MethodGet, "/api/tags", "")
	if tags := decodeBody[[]string](t, rec); len(tags) != 1 || tags[0] != "milk" {
		t.Fatalf("tags = %v", tags)
	}
}

func TestListEmptyIsArray(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/todos", "")
	expectStatus(t, rec, http.StatusOK)
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestListRejectsBadCategory(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/todos?category=work", "")
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestCreateTodoValidation(t *testing.T) {
	ts := newTestServer(t)
	expectError(t, ts.do(t, http.MethodPost, "/api/todos", ""), http.StatusBadRequest, "Text is required")
	expectError(t, ts.do(t, http.MethodPost, "/api/todos", `{"priority":"low"}`), http.StatusBadRequest, "Text is required")
	expectError(t, ts.do(t, http.MethodPost, "/api/todos", `{"text":"   "}`), http.StatusBadRequest, "Text is required")
	expectStatus(t, ts.do(t, http.MethodPost, "/api/todos", `{"text":`), http.StatusBadRequest)
}

func TestUpdateTodo(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/todos", `{"text":"write report"}`)

	rec := ts.do(t, http.MethodPut, "/api/todos/1", `{"completed":true}`)
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), `"completed_at"`) {
		t.Fatalf("completed_at missing: %s", rec.Body.String())
	}

	rec = ts.do(t, http.MethodPut, "/api/todos/1", `{"completed":false}`)
	expectStatus(t, rec, http.StatusOK)
	if strings.Contains(rec.Body.String(), `"completed_at"`) {
		t.Fatalf("completed_at should be absent: %s", rec.Body.String())
	}

	rec = ts.do(t, http.MethodGet, "/api/todos/1", "")
	expectStatus(t, rec, http.StatusOK)
	if todo := decodeBody[model.Todo](t, rec); todo.Completed {
		t.Fatalf("todo = %+v", todo)
	}

	expectError(t, ts.do(t, http.MethodPut, "/api/todos/1", ""), http.StatusBadRequest, "No data provided")
	expectError(t, ts.do(t, http.MethodPut, "/api/todos/1", `{}`), http.StatusBadRequest, "No data provided")
	expectError(t, ts.do(t, http.MethodPut, "/api/todos/99", `{"text":"x"}`), http.StatusNotFound, "Todo not found")
}

func TestDeleteTodo(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/todos", `{"text":"temporary"}`)

	rec := ts.do(t, http.MethodDelete, "/api/todos/1", "")
	expectStatus(t, rec, http.StatusOK)
	if body := decodeBody[map[string]string](t, rec); body["message"] != "Todo deleted successfully" {
		t.Fatalf("body = %v", body)
	}
	expectError(t, ts.do(t, http.MethodDelete, "/api/todos/1", ""), http.StatusNotFound, "Todo not found")
}

func TestCheckDuplicate(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/todos", `{"text":"buy milk"}`)

	rec := ts.do(t, http.MethodPost, "/api/todos/check-duplicate", `{"text":"  Buy Milk "}`)
	expectStatus(t, rec, http.StatusOK)
	got := decodeBody[duplicateResponse](t, rec)
	if !got.IsDuplicate || got.Message != "A todo with this text already exists!" {
		t.Fatalf("duplicate = %+v", got)
	}

	rec = ts.do(t, http.MethodPost, "/api/todos/check-duplicate", `{"text":"buy eggs"}`)
	if got := decodeBody[duplicateResponse](t, rec); got.IsDuplicate || got.Message != "" {
		t.Fatalf("duplicate = %+v", got)
	}

	expectStatus(t, ts.do(t, http.MethodPost, "/api/todos/check-duplicate", `{}`), http.StatusBadRequest)
	expectStatus(t, ts.do(t, http.MethodPost, "/api/todos/check-duplicate", ""), http.StatusBadRequest)
}

func TestBulkUpdate(t *testing.T) {
	ts := newTestServer(t)
	for _, text := range []string{"one", "two", "three", "four", "five"} {
		ts.do(t, http.MethodPost, "/api/todos", `{"text":"`+text+`"}`)
	}

	rec := ts.do(t, http.MethodPut, "/api/todos/bulk", `{"todo_ids":[2,5],"updates":{"completed":true,"unknown_field":"x"}}`)
	expectStatus(t, rec, http.StatusOK)
	got := decodeBody[bulkResponse](t, rec)
	if got.Message != "Updated 2 todos" || len(got.UpdatedTodos) != 2 {
		t.Fatalf("bulk = %+v", got)
	}
	if strings.Contains(rec.Body.String(), "unknown_field") {
		t.Fatalf("unknown field leaked: %s", rec.Body.String())
	}

	todos := decodeBody[[]model.Todo](t, ts.do(t, http.MethodGet, "/api/todos?sort=id&order=asc", ""))
	for _, todo := range todos {
		want := todo.ID == 2 || todo.ID == 5
		if todo.Completed != want {
			t.Fatalf("todo %d completed = %v", todo.ID, todo.Completed)
		}
	}

	expectStatus(t, ts.do(t, http.MethodPut, "/api/todos/bulk", `{"updates":{"completed":true}}`), http.StatusBadRequest)
	expectStatus(t, ts.do(t, http.MethodPut, "/api/todos/bulk", `{"todo_ids":[1]}`), http.StatusBadRequest)
	expectStatus(t, ts.do(t, http.MethodPut, "/api/todos/bulk", ""), http.StatusBadRequest)
}

// ============================================================================
// Categories, stats, transfer
// ============================================================================

func TestCategories(t *testing.T) {
	ts := newTestServer(t)

	categories := decodeBody[[]model.Category](t, ts.do(t, http.MethodGet, "/api/categories", ""))
	if len(categories) != 4 || categories[0].Name != "Work" {
		t.Fatalf("seeded categories = %+v", categories)
	}

	rec := ts.do(t, http.MethodPost, "/api/categories", `{"name":"Garden"}`)
	expectStatus(t, rec, http.StatusCreated)
	created := decodeBody[model.Category](t, rec)
	if created.ID != 5 || created.Color != "#3498db" || created.Icon != "📋" {
		t.Fatalf("created = %+v", created)
	}

	expectError(t, ts.do(t, http.MethodPost, "/api/categories", `{"color":"#000"}`), http.StatusBadRequest, "Category name is required")
}

func TestStats(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/stats", "")
	expectStatus(t, rec, http.StatusOK)
	stats := decodeBody[model.Stats](t, rec)
	if stats.TotalTodos != 0 || stats.CompletionRate != 0 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.PriorityBreakdown[model.PriorityUrgent] != 0 || len(stats.PriorityBreakdown) != 4 {
		t.Fatalf("priority breakdown = %v", stats.PriorityBreakdown)
	}
}

func TestExportImport(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/todos", `{"text":"keep #me"}`)

	rec := ts.do(t, http.MethodGet, "/api/export", "")
	expectStatus(t, rec, http.StatusOK)
	exported := rec.Body.String()
	snap := decodeBody[model.Snapshot](t, rec)
	if snap.Version != "2.0" || len(snap.Todos) != 1 {
		t.Fatalf("snapshot = %+v", snap)
	}

	other := newTestServer(t)
	rec = other.do(t, http.MethodPost, "/api/import", exported)
	expectStatus(t, rec, http.StatusOK)
	result := decodeBody[model.ImportResult](t, rec)
	if result.Message != "Data imported successfully" || result.ImportedTodos != 1 || result.ImportedCategories != 4 || result.ImportedTags != 1 {
		t.Fatalf("result = %+v", result)
	}

	todos := decodeBody[[]model.Todo](t, other.do(t, http.MethodGet, "/api/todos", ""))
	if len(todos) != 1 || todos[0].Text != "keep #me" {
		t.Fatalf("imported todos = %+v", todos)
	}
}

func TestImportFailureRollsBack(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/todos", `{"text":"original"}`)

	rec := ts.do(t, http.MethodPost, "/api/import", `{"todos":[],"categories":"not a list"}`)
	expectStatus(t, rec, http.StatusInternalServerError)
	body := decodeBody[map[string]string](t, rec)
	if !strings.HasPrefix(body["error"], "Import failed: ") {
		t.Fatalf("error = %q", body["error"])
	}

	todos := decodeBody[[]model.Todo](t, ts.do(t, http.MethodGet, "/api/todos", ""))
	if len(todos) != 1 || todos[0].Text != "original" {
		t.Fatalf("todos after failed import = %+v", todos)
	}

	expectError(t, ts.do(t, http.MethodPost, "/api/import", ""), http.StatusBadRequest, "No data provided")
	expectError(t, ts.do(t, http.MethodPost, "/api/import", `{}`), http.StatusBadRequest, "No data provided")
}

// ============================================================================
// Routing and middleware
// ============================================================================

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/health", "")
	expectStatus(t, rec, http.StatusOK)
	body := decodeBody[map[string]string](t, rec)
	if body["status"] != "healthy" || body["message"] != "Todo API is running" {
		t.Fatalf("health = %v", body)
	}
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t)
	expectError(t, ts.do(t, http.MethodGet, "/api/nope", ""), http.StatusNotFound, "Endpoint not found")
	expectError(t, ts.do(t, http.MethodGet, "/api/todos/abc", ""), http.StatusNotFound, "Endpoint not found")
}

func TestWrongMethod(t *testing.T) {
	ts := newTestServer(t)
	for _, tc := range []struct{ method, path string }{
		{http.MethodPatch, "/api/todos"},
		{http.MethodDelete, "/api/stats"},
		{http.MethodPost, "/api/todos/1"},
		{http.MethodPut, "/api/categories"},
	} {
		rec := ts.do(t, tc.method, tc.path, "")
		expectStatus(t, rec, http.StatusMethodNotAllowed)
		if !strings.Contains(rec.Body.String(), "Method not allowed") {
			t.Fatalf("%s %s body = %s", tc.method, tc.path, rec.Body.String())
		}
	}
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodOptions, "/api/todos", "")
	expectStatus(t, rec, http.StatusNoContent)
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("headers = %v", rec.Header())
	}
	rec = ts.do(t, http.MethodGet, "/api/health", "")
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("headers = %v", rec.Header())
	}
}

func TestRequestLogging(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodGet, "/api/nope", "")
	if !strings.Contains(ts.logs.String(), "[info] GET /api/nope 404") {
		t.Fatalf("logs = %s", ts.logs.String())
	}
}

func TestRecoverHandler(t *testing.T) {
	logs := &bytes.Buffer{}
	srv := &Server{logger: log.New(logs, "", 0)}
	handler := srv.recoverHandler(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	expectError(t, rec, http.StatusInternalServerError, "Internal server error")
	if !strings.Contains(logs.String(), "panic handling GET /: boom") {
		t.Fatalf("logs = %s", logs.String())
	}
}

func TestNewServerRequiresServices(t *testing.T) {
	if _, err := NewServer(Options{}); err == nil {
		t.Fatal("expected error")
	}
}
