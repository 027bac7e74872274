package api

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"runtime/debug"
	"time"

	"github.com/gorilla/mux"

	"todo-service/internal/service"
)

// Options wires the services behind the HTTP surface.
type Options struct {
	Todos      *service.TodoService
	Categories *service.CategoryService
	Stats      *service.StatsService
	Transfer   *service.TransferService
	Logger     *log.Logger
	CORSOrigin string
}

// Server exposes the todo API over HTTP.
type Server struct {
	todos      *service.TodoService
	categories *service.CategoryService
	stats      *service.StatsService
	transfer   *service.TransferService
	logger     *log.Logger
	corsOrigin string
}

func NewServer(opts Options) (*Server, error) {
	if opts.Todos == nil || opts.Categories == nil || opts.Stats == nil || opts.Transfer == nil {
		return nil, fmt.Errorf("api: all services are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "api: ", log.LstdFlags)
	}
	origin := opts.CORSOrigin
	if origin == "" {
		origin = "*"
	}
	return &Server{
		todos:      opts.Todos,
		categories: opts.Categories,
		stats:      opts.Stats,
		transfer:   opts.Transfer,
		logger:     logger,
		corsOrigin: origin,
	}, nil
}

// Handler returns the routed handler with recovery, request logging and CORS.
func (s *Server) Handler() http.Handler {
	return s.recoverHandler(s.logRequests(s.cors(s.router())))
}

func (s *Server) router() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody("Endpoint not found"))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("Method not allowed"))
	})

	r.HandleFunc("/api/todos", s.handleTodosList).Methods(http.MethodGet)
	r.HandleFunc("/api/todos", s.handleTodosCreate).Methods(http.MethodPost)
	r.HandleFunc("/api/todos/bulk", s.handleTodosBulk).Methods(http.MethodPut)
	r.HandleFunc("/api/todos/check-duplicate", s.handleCheckDuplicate).Methods(http.MethodPost)
	r.HandleFunc("/api/todos/{id:[0-9]+}", s.handleTodoGet).Methods(http.MethodGet)
	r.HandleFunc("/api/todos/{id:[0-9]+}", s.handleTodoUpdate).Methods(http.MethodPut)
	r.HandleFunc("/api/todos/{id:[0-9]+}", s.handleTodoDelete).Methods(http.MethodDelete)

	r.HandleFunc("/api/categories", s.handleCategoriesList).Methods(http.MethodGet)
	r.HandleFunc("/api/categories", s.handleCategoriesCreate).Methods(http.MethodPost)
	r.HandleFunc("/api/tags", s.handleTags).Methods(http.MethodGet)
	r.HandleFunc("/api/stats", s.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/api/export", s.handleExport).Methods(http.MethodGet)
	r.HandleFunc("/api/import", s.handleImport).Methods(http.MethodPost)
	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	return r
}

// HTTPServer builds an *http.Server for addr serving Handler.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ErrorLog:          s.logger,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", s.corsOrigin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		writer := &responseTracker{ResponseWriter: w}
		next.ServeHTTP(writer, r)
		s.logger.Printf("[info] %s %s %d %s", r.Method, r.URL.Path, writer.statusCode(), time.Since(start).Round(time.Microsecond))
	})
}

func (s *Server) recoverHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writer := &responseTracker{ResponseWriter: w}
		defer func() {
			if recovered := recover(); recovered != nil {
				s.logger.Printf("[error] panic handling %s %s: %v\n%s", r.Method, r.URL.Path, recovered, debug.Stack())
				if writer.wroteHeader {
					return
				}
				writeJSON(writer, http.StatusInternalServerError, errorBody(internalErrorMessage))
			}
		}()
		next.ServeHTTP(writer, r)
	})
}

type responseTracker struct {
	http.ResponseWriter
	wroteHeader bool
	status      int
}

func (w *responseTracker) WriteHeader(status int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseTracker) Write(data []byte) (int, error) {
	if !w.wroteHeader {
		w.wroteHeader = true
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(data)
}

func (w *responseTracker) statusCode() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}
