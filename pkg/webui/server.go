// Package webui exposes the orchestrator over HTTP: task submission, provider
// status, workspace browsing, logs, metrics, and a WebSocket progress stream.
package webui

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"opendev/pkg/agent"
	"opendev/pkg/config"
	"opendev/pkg/logx"
	"opendev/pkg/orchestrator"
	"opendev/pkg/persistence"
	"opendev/pkg/version"
)

// Server is the web-facing surface. It only calls into the orchestrator and
// the store; no orchestration logic lives here.
type Server struct {
	cfg      *config.Config
	engine   *orchestrator.Engine
	registry *agent.Registry
	store    *persistence.Store
	logger   *logx.Logger
	httpSrv  *http.Server
}

// NewServer creates a web server bound to the given engine and store.
func NewServer(cfg *config.Config, engine *orchestrator.Engine, registry *agent.Registry, store *persistence.Store) *Server {
	return &Server{
		cfg:      cfg,
		engine:   engine,
		registry: registry,
		store:    store,
		logger:   logx.NewLogger("webui"),
	}
}

// requireAuth wraps a handler with HTTP Basic Authentication. The username is
// always "opendev"; the password is the project password loaded at startup.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		expected := config.GetProjectPassword()
		if expected == "" {
			s.logger.Error("Project password not set - denying access")
			w.Header().Set("WWW-Authenticate", `Basic realm="OpenDev"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		username, password, ok := r.BasicAuth()
		if !ok ||
			username != "opendev" ||
			subtle.ConstantTimeCompare([]byte(password), []byte(expected)) != 1 {
			s.logger.Warn("Failed authentication attempt from %s", r.RemoteAddr)
			w.Header().Set("WWW-Authenticate", `Basic realm="OpenDev"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next(w, r)
	}
}

// RegisterRoutes sets up all HTTP routes.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/task", s.requireAuth(s.handleTask))
	mux.HandleFunc("/api/task/", s.requireAuth(s.handleTaskByID))
	mux.HandleFunc("/api/tasks", s.requireAuth(s.handleTaskList))
	mux.HandleFunc("/api/providers", s.requireAuth(s.handleProviders))
	mux.HandleFunc("/api/filetree", s.requireAuth(s.handleFileTree))
	mux.HandleFunc("/api/logs", s.requireAuth(s.handleLogs))
	mux.HandleFunc("/api/healthz", s.handleHealth)
	mux.HandleFunc("/ws", s.requireAuth(s.handleWebSocket))
	mux.Handle("/metrics", promhttp.Handler())
}

// Start runs the HTTP server until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	s.httpSrv = &http.Server{
		Addr:              s.cfg.Web.Bind,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Web server listening on %s", s.cfg.Web.Bind)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	}
}

type taskRequest struct {
	Request  string `json:"request"`
	Provider string `json:"provider,omitempty"`
}

// handleTask implements POST /api/task. The request runs to its terminal
// state before responding; closing the connection cancels the task at the
// next suspension point. Progress streams on /ws in the meantime.
func (s *Server) handleTask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Request) == "" {
		http.Error(w, "request field is required", http.StatusBadRequest)
		return
	}

	provider, err := s.registry.Resolve(req.Provider)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	st, execErr := s.engine.Execute(r.Context(), req.Request, provider)
	if s.store != nil {
		if err := s.store.SaveExecution(st); err != nil {
			s.logger.Error("Failed to persist execution %s: %v", st.ID, err)
		}
	}

	status := http.StatusOK
	if execErr != nil {
		// The state carries the classified error; the HTTP layer only picks
		// a status code.
		switch {
		case orchestrator.IsKind(execErr, orchestrator.KindCancellation):
			status = http.StatusRequestTimeout
		default:
			status = http.StatusInternalServerError
		}
	}
	s.writeJSON(w, status, st)
}

// handleTaskByID implements GET /api/task/{id}.
func (s *Server) handleTaskByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.store == nil {
		http.Error(w, "Persistence disabled", http.StatusNotFound)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/task/")
	if id == "" {
		http.Error(w, "Task ID required", http.StatusBadRequest)
		return
	}

	st, err := s.store.GetExecution(id)
	if errors.Is(err, persistence.ErrNotFound) {
		http.Error(w, "Task not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, st)
}

// handleTaskList implements GET /api/tasks.
func (s *Server) handleTaskList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.store == nil {
		s.writeJSON(w, http.StatusOK, []any{})
		return
	}

	list, err := s.store.ListExecutions(50)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*orchestrator.ExecutionState{}
	}
	s.writeJSON(w, http.StatusOK, list)
}

// handleProviders implements GET /api/providers.
func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"default":   s.registry.DefaultProvider(),
		"providers": s.registry.Providers(),
	})
}

// fileNode is one entry in the workspace tree response.
type fileNode struct {
	Name     string     `json:"name"`
	Path     string     `json:"path"`
	Dir      bool       `json:"dir"`
	Children []fileNode `json:"children,omitempty"`
}

// handleFileTree implements GET /api/filetree: the workspace directory tree
// with dotfiles and build artifacts pruned.
func (s *Server) handleFileTree(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	tree, err := buildFileTree(s.cfg.WorkspaceDir, "")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, tree)
}

var prunedDirs = map[string]bool{
	"node_modules": true,
	"__pycache__":  true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
}

func buildFileTree(root, rel string) ([]fileNode, error) {
	entries, err := os.ReadDir(filepath.Join(root, rel))
	if err != nil {
		return nil, err
	}

	var nodes []fileNode
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || prunedDirs[name] {
			continue
		}
		node := fileNode{
			Name: name,
			Path: filepath.ToSlash(filepath.Join(rel, name)),
			Dir:  entry.IsDir(),
		}
		if entry.IsDir() {
			children, err := buildFileTree(root, filepath.Join(rel, name))
			if err != nil {
				return nil, err
			}
			node.Children = children
		}
		nodes = append(nodes, node)
	}
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Dir != nodes[j].Dir {
			return nodes[i].Dir // directories first
		}
		return nodes[i].Name < nodes[j].Name
	})
	return nodes, nil
}

// handleLogs implements GET /api/logs with optional domain and since filters.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	domain := query.Get("domain")

	var since time.Time
	if sinceStr := query.Get("since"); sinceStr != "" {
		parsed, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			http.Error(w, "Invalid since parameter, want RFC3339", http.StatusBadRequest)
			return
		}
		since = parsed
	}

	entries := logx.GetRecentLogEntries(domain, since)
	if entries == nil {
		entries = []logx.LogEntry{}
	}
	s.writeJSON(w, http.StatusOK, entries)
}

// handleHealth implements GET /api/healthz. Unauthenticated by design so load
// balancers can probe it.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
		"commit":  version.Commit,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response: %v", err)
	}
}
