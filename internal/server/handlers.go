package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"lolsync/internal/constants"
	"lolsync/internal/domain"
	"lolsync/internal/validation"
)

const minYear = 2009

type submitResponse struct {
	TaskID string           `json:"task_id"`
	Status domain.JobStatus `json:"status"`
	Kind   domain.JobKind   `json:"kind"`
	Year   int              `json:"year"`
}

type errorResponse struct {
	Error  string                  `json:"error"`
	Kind   string                  `json:"kind,omitempty"`
	Fields []validation.FieldError `json:"fields,omitempty"`
}

func (s *Server) submitSync(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, domain.JobKindSync)
}

func (s *Server) submitRecovery(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, domain.JobKindRecovery)
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request, kind domain.JobKind) {
	var req domain.SyncRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		respondJSON(w, r, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if err := validation.Struct(req); err != nil {
		respondError(w, r, err)
		return
	}

	req = s.sync.Normalize(req)
	ctx, cancel := context.WithTimeout(r.Context(), constants.DatabaseTimeout)
	defer cancel()

	var (
		jobID string
		err   error
	)
	if kind == domain.JobKindRecovery {
		jobID, err = s.sync.SubmitRecovery(ctx, req)
	} else {
		jobID, err = s.sync.SubmitSync(ctx, req)
	}
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusAccepted, submitResponse{
		TaskID: jobID,
		Status: domain.JobStatusStarted,
		Kind:   kind,
		Year:   req.Year,
	})
}

func (s *Server) taskStatus(w http.ResponseWriter, r *http.Request) {
	p, err := s.sync.Progress(r.Context(), chi.URLParam(r, "taskID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, newTaskView(p))
}

func (s *Server) playerStats(w http.ResponseWriter, r *http.Request) {
	year, ok := parseYear(chi.URLParam(r, "year"))
	if !ok {
		respondJSON(w, r, http.StatusBadRequest, errorResponse{Error: "invalid year"})
		return
	}

	agg, err := s.aggregator.Get(r.Context(), chi.URLParam(r, "playerID"), year)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, newStatsView(agg))
}

func (s *Server) recompute(w http.ResponseWriter, r *http.Request) {
	year := s.defaultYear
	if v := r.URL.Query().Get("year"); v != "" {
		y, ok := parseYear(v)
		if !ok {
			respondJSON(w, r, http.StatusBadRequest, errorResponse{Error: "invalid year"})
			return
		}
		year = y
	}

	n, err := s.aggregator.RecomputeAll(r.Context(), year)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]int{"year": year, "players": n})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), constants.DatabaseTimeout)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("database ping failed")
		respondJSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "database": "unreachable"})
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok", "database": "ok"})
}

func parseYear(v string) (int, bool) {
	year, err := strconv.Atoi(v)
	if err != nil || year < minYear {
		return 0, false
	}
	return year, true
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("failed to write response")
	}
}

// respondError maps err to a status code. Validation failures list the
// offending fields.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		respondJSON(w, r, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: verr.Fields})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrPlayerNotFound),
		errors.Is(err, domain.ErrJobNotFound),
		errors.Is(err, domain.ErrMatchNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrSourceUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrStoreConflict):
		status = http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}

	if status >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
	}
	respondJSON(w, r, status, errorResponse{Error: err.Error(), Kind: domain.KindOf(err)})
}
