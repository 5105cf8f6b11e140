// internal/server/handlers.go
package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/valpere/LeadScout/internal/scoring"
	"github.com/valpere/LeadScout/internal/utils"
	"github.com/valpere/LeadScout/pkg/types"
)

const maxBodyBytes = 1 << 20

// DiscoverRequest is the body of POST /api/v1/discover
type DiscoverRequest struct {
	Region     string `json:"region"`
	Sector     string `json:"sector"`
	MaxResults int    `json:"max_results"`
	// Async returns 202 with the run id instead of waiting for the batch
	Async bool `json:"async,omitempty"`
}

// ScoreRequest is the body of POST /api/v1/score
type ScoreRequest struct {
	Records []types.BusinessRecord `json:"records"`
	// Save stores the scored leads when a lead store is configured
	Save bool `json:"save,omitempty"`
}

// PersonaRequest is the body of POST /api/v1/leads/personas
type PersonaRequest struct {
	LeadIDs []int64 `json:"lead_ids"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string          `json:"error"`
	Code  utils.ErrorCode `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code utils.ErrorCode, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Code: code})
}

// writeErr picks the status from the error code
func (s *Server) writeErr(w http.ResponseWriter, err error) {
	code := utils.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case utils.ErrCodeValidation, utils.ErrCodeInvalidConfig:
		status = http.StatusBadRequest
	case utils.ErrCodeNotFound:
		status = http.StatusNotFound
	case utils.ErrCodeContextCanceled:
		status = http.StatusServiceUnavailable
	case utils.ErrCodeLLMFailed, utils.ErrCodeSearchFailed, utils.ErrCodeCircuitOpen:
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		s.logger.Errorf("request failed: %v", err)
	}
	writeError(w, status, code, err.Error())
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return utils.WrapError(err, utils.ErrCodeValidation, "invalid request body")
	}
	return nil
}

func unavailable(w http.ResponseWriter, what string) {
	writeError(w, http.StatusServiceUnavailable, "", what+" is not configured")
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	if s.deps.Discoverer == nil {
		unavailable(w, "discovery")
		return
	}
	var req DiscoverRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeErr(w, err)
		return
	}
	req.Region = strings.TrimSpace(req.Region)
	req.Sector = strings.TrimSpace(req.Sector)
	if req.Region == "" || req.Sector == "" {
		writeError(w, http.StatusBadRequest, utils.ErrCodeValidation, "region and sector are required")
		return
	}
	switch {
	case req.MaxResults < 0:
		writeError(w, http.StatusBadRequest, utils.ErrCodeValidation, "max_results cannot be negative")
		return
	case req.MaxResults == 0, req.MaxResults > s.config.MaxResults:
		req.MaxResults = s.config.MaxResults
	}

	dreq := types.DiscoveryRequest{Region: req.Region, Sector: req.Sector, MaxResults: req.MaxResults}
	runID := s.newID()
	s.deps.Runs.StartRun(runID, dreq)

	if req.Async {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			result := s.deps.Discoverer.RunWithID(s.baseCtx, runID, dreq)
			s.deps.Runs.CompleteRun(runID, dreq, result)
		}()
		writeJSON(w, http.StatusAccepted, map[string]interface{}{
			"run_id": runID,
			"status": types.RunRunning,
		})
		return
	}

	result := s.deps.Discoverer.RunWithID(r.Context(), runID, dreq)
	s.deps.Runs.CompleteRun(runID, dreq, result)

	status := http.StatusOK
	switch result.Status {
	case types.RunFailed:
		status = http.StatusBadGateway
	case types.RunCancelled:
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, result)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs := s.deps.Runs.GetAllRuns()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"total": len(runs),
	})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	run, ok := s.deps.Runs.GetRun(id)
	if !ok {
		writeError(w, http.StatusNotFound, utils.ErrCodeNotFound, fmt.Sprintf("run %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	if s.deps.Scorer == nil {
		unavailable(w, "scoring")
		return
	}
	var req ScoreRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeErr(w, err)
		return
	}
	for i, rec := range req.Records {
		if strings.TrimSpace(rec.Name) == "" {
			writeError(w, http.StatusBadRequest, utils.ErrCodeValidation, fmt.Sprintf("records[%d] has no name", i))
			return
		}
	}

	leads, err := scoring.ScoreAll(r.Context(), s.deps.Scorer, req.Records, s.config.ScoreWorkers)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	if req.Save {
		if s.deps.Leads == nil {
			unavailable(w, "lead store")
			return
		}
		if leads, err = s.deps.Leads.SaveLeads(r.Context(), leads); err != nil {
			s.writeErr(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"leads": leads})
}

func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	if s.deps.Leads == nil {
		unavailable(w, "lead store")
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, utils.ErrCodeValidation, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	leads, err := s.deps.Leads.ListLeads(r.Context(), limit)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"leads": leads, "total": len(leads)})
}

// handlePersonas drafts personas for the selected leads, skipping leads that
// already have one
func (s *Server) handlePersonas(w http.ResponseWriter, r *http.Request) {
	if s.deps.Leads == nil || s.deps.Personas == nil {
		unavailable(w, "persona generation")
		return
	}
	var req PersonaRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeErr(w, err)
		return
	}
	if len(req.LeadIDs) == 0 {
		writeError(w, http.StatusBadRequest, utils.ErrCodeValidation, "lead_ids is required")
		return
	}

	leads, err := s.deps.Leads.GetLeads(r.Context(), req.LeadIDs)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	pending := make([]types.Lead, 0, len(leads))
	skipped := []int64{}
	for _, lead := range leads {
		has, err := s.deps.Leads.HasPersona(r.Context(), lead.ID)
		if err != nil {
			s.writeErr(w, err)
			return
		}
		if has {
			skipped = append(skipped, lead.ID)
			continue
		}
		pending = append(pending, lead)
	}

	results, err := scoring.GenerateAll(r.Context(), s.deps.Personas, pending)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	for _, res := range results {
		if res.Error != "" {
			continue
		}
		if _, err := s.deps.Leads.SavePersona(r.Context(), res); err != nil {
			s.writeErr(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"skipped": skipped,
	})
}

func leadID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, utils.WrapError(err, utils.ErrCodeValidation, "invalid lead id")
	}
	return id, nil
}

func (s *Server) handleOutreach(w http.ResponseWriter, r *http.Request) {
	if s.deps.Leads == nil {
		unavailable(w, "lead store")
		return
	}
	id, err := leadID(r)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	contents, err := s.deps.Leads.OutreachContents(r.Context(), id)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"lead_id": id, "channel_contents": contents})
}

func (s *Server) handleMarkSent(w http.ResponseWriter, r *http.Request) {
	if s.deps.Leads == nil {
		unavailable(w, "lead store")
		return
	}
	id, err := leadID(r)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	channel := strings.ToLower(mux.Vars(r)["channel"])
	if err := s.deps.Leads.MarkSent(r.Context(), id, channel, time.Now()); err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"lead_id": id, "channel": channel, "sent": true})
}
