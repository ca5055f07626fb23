package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"investor-matching/internal/common/errors"
	"investor-matching/internal/common/validation"
	"investor-matching/internal/models"
)

const maxBodyBytes = 1 << 20

// decode reads the capped body, checks it against schema and unmarshals it into dst.
func decode(w http.ResponseWriter, r *http.Request, schema *validation.Schema, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return errors.NewValidationError(errors.FieldError{Field: "(body)", Message: "request body too large or unreadable", Code: "invalid_body"})
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		body = []byte("{}")
	}
	if err := schema.ValidateBytes(body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return errors.NewValidationError(errors.FieldError{Field: "(body)", Message: "malformed JSON document", Code: "invalid_json"})
	}
	return nil
}

// pageParams reads the optional page and limit query parameters. Range clamping is left to the engine.
func pageParams(r *http.Request) (page, limit int, err error) {
	q := r.URL.Query()
	var fields []errors.FieldError
	parse := func(name string) int {
		raw := q.Get(name)
		if raw == "" {
			return 0
		}
		n, convErr := strconv.Atoi(raw)
		if convErr != nil {
			fields = append(fields, errors.FieldError{Field: name, Message: "must be an integer", Code: "invalid_type"})
		}
		return n
	}
	page, limit = parse("page"), parse("limit")
	if len(fields) > 0 {
		return 0, 0, errors.NewValidationError(fields...)
	}
	return page, limit, nil
}

func (s *Server) handlePutThesis(w http.ResponseWriter, r *http.Request) {
	var in models.ThesisInput
	if err := decode(w, r, putThesisSchema, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.matching.UpsertThesis(r.Context(), identityFrom(r.Context()), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePatchThesis(w http.ResponseWriter, r *http.Request) {
	var patch models.ThesisPatch
	if err := decode(w, r, patchThesisSchema, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := s.matching.PatchThesis(r.Context(), identityFrom(r.Context()), patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleGetThesis(w http.ResponseWriter, r *http.Request) {
	t, err := s.matching.GetThesis(r.Context(), identityFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if t == nil {
		s.writeError(w, r, errors.NewNotFoundError("thesis", "no active thesis"))
		return
	}
	s.writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteThesis(w http.ResponseWriter, r *http.Request) {
	n, err := s.matching.DeactivateThesis(r.Context(), identityFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"deactivated": n})
}

func (s *Server) handleComputeMatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StartupID string `json:"startupId"`
	}
	if err := decode(w, r, computeMatchSchema, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.matching.ComputeMatch(r.Context(), identityFrom(r.Context()), req.StartupID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRecompute(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	if !id.IsInvestor() {
		s.writeError(w, r, errors.NewAuthorizationError("investor role required"))
		return
	}
	res, err := s.matching.RecomputeForInvestor(r.Context(), id.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	page, limit, err := pageParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	res, err := s.matching.ListMatches(r.Context(), identityFrom(r.Context()), models.MatchFilter{
		InvestorID: q.Get("investor"),
		StartupID:  q.Get("startup"),
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleUpdateMatchStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status models.MatchStatus `json:"status"`
	}
	if err := decode(w, r, updateStatusSchema, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.matching.UpdateMatchStatus(r.Context(), identityFrom(r.Context()), r.PathValue("id"), req.Status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRecordInteraction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MatchID string                 `json:"matchId"`
		Type    models.InteractionType `json:"type"`
		Notes   *string                `json:"notes"`
	}
	if err := decode(w, r, recordInteractionSchema, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.matching.RecordInteraction(r.Context(), identityFrom(r.Context()), req.MatchID, req.Type, req.Notes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleListInteractions(w http.ResponseWriter, r *http.Request) {
	page, limit, err := pageParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	res, err := s.matching.ListInteractions(r.Context(), identityFrom(r.Context()), models.InteractionFilter{
		MatchID:   q.Get("match"),
		StartupID: q.Get("startup"),
		Page:      page,
		Limit:     limit,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}
