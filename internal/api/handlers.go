package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"todo-service/internal/model"
	"todo-service/internal/service"
)

const internalErrorMessage = "Internal server error"

type messageResponse struct {
	Message string `json:"message"`
}

type duplicateRequest struct {
	Text string `json:"text"`
}

type duplicateResponse struct {
	IsDuplicate bool   `json:"isDuplicate"`
	Message     string `json:"message"`
}

type bulkRequest struct {
	TodoIDs []int       `json:"todo_ids"`
	Updates model.Patch `json:"updates"`
}

type bulkResponse struct {
	Message      string       `json:"message"`
	UpdatedTodos []model.Todo `json:"updated_todos"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s *Server) handleTodosList(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	categoryID, err := service.ParseCategoryID(params.Get("category"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	todos, err := s.todos.List(r.Context(), service.Query{
		CategoryID: categoryID,
		Priority:   params.Get("priority"),
		Tag:        params.Get("tag"),
		Sort:       params.Get("sort"),
		Order:      params.Get("order"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, todos)
}

func (s *Server) handleTodosCreate(w http.ResponseWriter, r *http.Request) {
	var in model.TodoInput
	if err := decodeJSON(r, &in); err != nil {
		if errors.Is(err, io.EOF) {
			err = &service.ValidationError{Message: "Text is required"}
		}
		s.writeError(w, r, err)
		return
	}
	created, err := s.todos.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleTodoGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	todo, err := s.todos.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

func (s *Server) handleTodoUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var patch model.Patch
	if err := decodeJSON(r, &patch); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, r, err)
		return
	}
	updated, err := s.todos.Update(r.Context(), id, patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleTodoDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.todos.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Todo deleted successfully"})
}

func (s *Server) handleCheckDuplicate(w http.ResponseWriter, r *http.Request) {
	var req duplicateRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, r, err)
		return
	}
	duplicate, message, err := s.todos.CheckDuplicate(r.Context(), req.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, duplicateResponse{IsDuplicate: duplicate, Message: message})
}

func (s *Server) handleTodosBulk(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, r, err)
		return
	}
	if req.TodoIDs == nil || req.Updates == nil {
		s.writeError(w, r, &service.ValidationError{Message: "todo_ids and updates are required"})
		return
	}
	updated, err := s.todos.BulkUpdate(r.Context(), req.TodoIDs, req.Updates)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bulkResponse{
		Message:      fmt.Sprintf("Updated %d todos", len(updated)),
		UpdatedTodos: updated,
	})
}

func (s *Server) handleCategoriesList(w http.ResponseWriter, r *http.Request) {
	categories, err := s.categories.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (s *Server) handleCategoriesCreate(w http.ResponseWriter, r *http.Request) {
	var in model.CategoryInput
	if err := decodeJSON(r, &in); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, r, err)
		return
	}
	created, err := s.categories.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.todos.Tags(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.stats.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.transfer.Export(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var payload map[string]json.RawMessage
	if err := decodeJSON(r, &payload); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, r, err)
		return
	}
	result, err := s.transfer.Import(r.Context(), payload)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", Message: "Todo API is running"})
}

func pathID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		return 0, &service.ValidationError{Message: "Invalid id"}
	}
	return id, nil
}

// decodeJSON decodes the request body into dest. An empty body yields io.EOF;
// malformed JSON becomes a ValidationError.
func decodeJSON(r *http.Request, dest any) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return &service.ValidationError{Message: fmt.Sprintf("Invalid JSON: %v", err)}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func errorBody(message string) map[string]string {
	return map[string]string{"error": message}
}

// writeError maps service errors to status codes. Unexpected errors are
// logged and reported with a generic message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *service.ValidationError
		notFound   *service.NotFoundError
		importErr  *service.ImportError
	)
	switch {
	case errors.As(err, &importErr):
		s.logger.Printf("[error] %s %s: %v", r.Method, r.URL.Path, err)
		writeJSON(w, http.StatusInternalServerError, errorBody(importErr.Error()))
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, errorBody(validation.Message))
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, errorBody(notFound.Error()))
	default:
		s.logger.Printf("[error] %s %s: %v", r.Method, r.URL.Path, err)
		writeJSON(w, http.StatusInternalServerError, errorBody(internalErrorMessage))
	}
}
