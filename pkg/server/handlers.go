package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"mercator-hq/conditional/pkg/definition"
	"mercator-hq/conditional/pkg/journal"
	"mercator-hq/conditional/pkg/service"
)

// maxBodySize limits evaluate request bodies.
const maxBodySize = 1 << 20

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one failure.
type ErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ConditionInfo is one entry of GET /v1/conditions.
type ConditionInfo struct {
	Name        string `json:"name"`
	Condition   string `json:"condition"`
	Description string `json:"description,omitempty"`
}

// RunList is the body of GET /v1/runs.
type RunList struct {
	Runs  []*journal.Run `json:"runs"`
	Count int            `json:"count"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Type: errType, Message: message}})
}

func (s *Server) handleListConditions(w http.ResponseWriter, r *http.Request) {
	names := s.engine.Names()
	infos := make([]ConditionInfo, 0, len(names))
	for _, name := range names {
		rendered, description, err := s.engine.Describe(name)
		if err != nil {
			// Reloaded between Names and Describe.
			continue
		}
		infos = append(infos, ConditionInfo{Name: name, Condition: rendered, Description: description})
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req service.Request
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "failed to read request body")
		return
	}
	if len(body) > maxBodySize {
		writeError(w, http.StatusRequestEntityTooLarge, "invalid_request", "request body too large")
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON: "+err.Error())
			return
		}
	}
	if mode := r.URL.Query().Get("mode"); mode != "" {
		req.Mode = mode
	}

	result, err := s.engine.Evaluate(r.Context(), name, req)
	switch {
	case errors.Is(err, definition.ErrDefinitionNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
		return
	case errors.Is(err, service.ErrInvalidMode):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	case err != nil:
		s.logger.ErrorContext(r.Context(), "evaluate failed", "definition", name, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	runs, err := s.engine.Runs(r.Context(), filter)
	if err != nil {
		s.writeJournalError(w, r, err)
		return
	}
	if runs == nil {
		runs = []*journal.Run{}
	}
	writeJSON(w, http.StatusOK, RunList{Runs: runs, Count: len(runs)})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.engine.Run(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeJournalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) writeJournalError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, journal.ErrRunNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, service.ErrJournalDisabled):
		writeError(w, http.StatusNotImplemented, "journal_disabled", err.Error())
	default:
		s.logger.ErrorContext(r.Context(), "journal query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "journal query failed")
	}
}

// parseFilter reads definition, failed, since, until, limit and offset.
func parseFilter(r *http.Request) (journal.Filter, error) {
	q := r.URL.Query()
	filter := journal.Filter{Definition: q.Get("definition")}

	if v := q.Get("failed"); v != "" {
		failed, err := strconv.ParseBool(v)
		if err != nil {
			return filter, fmt.Errorf("invalid failed %q: %w", v, err)
		}
		filter.OnlyFailed = failed
	}
	for _, p := range []struct {
		key string
		dst **time.Time
	}{
		{"since", &filter.Since},
		{"until", &filter.Until},
	} {
		v := q.Get(p.key)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, fmt.Errorf("invalid %s %q: want RFC 3339", p.key, v)
		}
		*p.dst = &t
	}
	for _, p := range []struct {
		key string
		dst *int
	}{
		{"limit", &filter.Limit},
		{"offset", &filter.Offset},
	} {
		v := q.Get(p.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, fmt.Errorf("invalid %s %q: want a non-negative integer", p.key, v)
		}
		*p.dst = n
	}
	return filter, nil
}
