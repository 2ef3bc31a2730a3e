package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"herdbook/internal/core"
)

// CategoryInfo describes one importable category to API clients.
type CategoryInfo struct {
	Key     string   `json:"key"`
	Label   string   `json:"label"`
	Columns []string `json:"columns"`
}

// handleListCategories returns the registered categories and their
// expected source columns.
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	defs := core.All()
	infos := make([]CategoryInfo, len(defs))
	for i, def := range defs {
		infos[i] = CategoryInfo{
			Key:     string(def.Key),
			Label:   def.Label,
			Columns: def.Headers(),
		}
	}
	writeJSON(w, http.StatusOK, infos)
}

// handleImport accepts a multipart CSV upload for a category and runs
// the import pipeline synchronously, returning the run's outcome.
//
// Form fields:
//   - file: the CSV file (required)
//   - check_duplicates: "true"/"false" override of the gate default
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	key := core.CategoryKey(chi.URLParam(r, "category"))
	def, ok := core.Lookup(key)
	if !ok {
		s.respondError(w, r, fmt.Errorf("%w: %s", core.ErrUnknownCategory, key), http.StatusNotFound)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize)
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		s.respondError(w, r, fmt.Errorf("parse form: %w", err), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, fmt.Errorf("missing file field: %w", err), http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("read upload: %w", err), http.StatusBadRequest)
		return
	}

	src, err := core.ReadCSVSource(header.Filename, data, def.Headers())
	if err != nil {
		s.respondError(w, r, err, http.StatusUnprocessableEntity)
		return
	}

	var checkDuplicate *bool
	if v := r.FormValue("check_duplicates"); v != "" {
		check, err := strconv.ParseBool(v)
		if err != nil {
			s.respondError(w, r, fmt.Errorf("invalid check_duplicates value %q", v), http.StatusBadRequest)
			return
		}
		checkDuplicate = &check
	}

	outcome, err := s.service.ProcessSource(r.Context(), key, src, checkDuplicate)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, core.ErrTooManyImports):
			status = http.StatusTooManyRequests
		case errors.Is(err, core.ErrUnknownCategory):
			status = http.StatusNotFound
		}
		s.respondError(w, r, err, status)
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}

// handleHistory returns recent import events for a category, newest
// first. Supports ?limit=N (default 50).
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	key := core.CategoryKey(chi.URLParam(r, "category"))
	if _, ok := core.Lookup(key); !ok {
		s.respondError(w, r, fmt.Errorf("%w: %s", core.ErrUnknownCategory, key), http.StatusNotFound)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			s.respondError(w, r, fmt.Errorf("invalid limit %q", v), http.StatusBadRequest)
			return
		}
		limit = n
	}

	ctx, cancel := requestTimeout(r)
	defer cancel()

	events, err := s.store.History(ctx, key, limit)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// handleHealth reports process and database health plus the import
// limiter's occupancy.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestTimeout(r)
	defer cancel()

	status := "ok"
	code := http.StatusOK
	if err := s.store.Pool().Ping(ctx); err != nil {
		status = "database unreachable"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":  status,
		"imports": s.service.Limiter().Status(),
	})
}
