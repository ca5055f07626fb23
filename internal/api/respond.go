package api

import (
	"encoding/json"
	"net/http"

	"investor-matching/internal/common/errors"
)

type errorBody struct {
	Error errorPayload `json:"error"`
}

type errorPayload struct {
	Code      errors.ErrorCode    `json:"code"`
	Message   string              `json:"message"`
	Fields    []errors.FieldError `json:"fields,omitempty"`
	Retryable bool                `json:"retryable,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", map[string]interface{}{"error": err.Error()})
	}
}

// writeError maps err onto the HTTP status and the public error envelope.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	payload := errorPayload{Code: errors.ErrCodeInternal, Message: errors.PublicMessage(err)}
	if stdErr, ok := errors.As(err); ok {
		payload.Code = stdErr.Code
		payload.Fields = stdErr.Fields
		payload.Retryable = stdErr.Retryable
	}

	fields := map[string]interface{}{
		"method": r.Method,
		"path":   r.URL.Path,
		"status": status,
		"error":  err.Error(),
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", fields)
	} else {
		s.logger.Debug("request rejected", fields)
	}
	s.writeJSON(w, status, errorBody{Error: payload})
}
