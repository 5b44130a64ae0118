package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"cropyield/app"
	"cropyield/domain/crop"
	"cropyield/domain/model"
	apperrors "cropyield/internal/errors"

	"github.com/go-chi/chi/v5"
)

// maxBodyBytes bounds a prediction request body.
const maxBodyBytes = 64 << 10

// yieldUnit labels prediction values.
const yieldUnit = "tonnes per hectare"

var errUnauthorized = apperrors.Unauthorized("missing or invalid bearer token")

// PredictionResponse is returned by POST /api/v1/predictions.
type PredictionResponse struct {
	Prediction float64 `json:"prediction"`
	Model      string  `json:"model"`
	RunID      string  `json:"run_id"`
	Unit       string  `json:"unit"`
}

// PerformanceResponse is returned by GET /api/v1/models/performance.
type PerformanceResponse struct {
	Champion string                    `json:"champion"`
	Models   []model.PerformanceRecord `json:"models"`
}

type errorEnvelope struct {
	Error apperrors.Detail `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	state := s.inference.State()
	status := http.StatusOK
	if state != app.StateReady {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"state": string(state)})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	input, err := decodeInferenceInput(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, err)
		return
	}
	pred, err := s.inference.Predict(r.Context(), input.Trimmed())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PredictionResponse{
		Prediction: pred.Value,
		Model:      pred.Model,
		RunID:      pred.RunID,
		Unit:       yieldUnit,
	})
}

func (s *Server) handleAllKnownValues(w http.ResponseWriter, r *http.Request) {
	values, err := s.inference.AllKnownValues()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, values)
}

func (s *Server) handleKnownValues(w http.ResponseWriter, r *http.Request) {
	field := chi.URLParam(r, "field")
	values, err := s.inference.KnownValues(field)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"field": field, "values": values})
}

func (s *Server) handlePerformance(w http.ResponseWriter, r *http.Request) {
	table, champion, err := s.inference.Performance()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PerformanceResponse{Champion: champion, Models: table.Records})
}

func (s *Server) handlePerformanceReport(w http.ResponseWriter, r *http.Request) {
	table, champion, err := s.inference.Performance()
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(app.PerformanceReportHTML(table, champion)) //nolint:errcheck
}

// decodeInferenceInput accepts flat keys (strings are categorical, numbers
// continuous) and/or explicit "categorical" and "numeric" objects.
func decodeInferenceInput(body io.Reader) (crop.InferenceInput, error) {
	input := crop.InferenceInput{
		Categorical: make(map[string]string),
		Numeric:     make(map[string]float64),
	}
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return input, apperrors.InvalidInput(fmt.Sprintf("request body must be a JSON object: %v", err))
	}

	for key, value := range raw {
		switch key {
		case "categorical":
			var m map[string]string
			if err := json.Unmarshal(value, &m); err != nil {
				return input, apperrors.InvalidInput(fmt.Sprintf("categorical must map field names to strings: %v", err))
			}
			for k, v := range m {
				input.Categorical[k] = v
			}
		case "numeric":
			var m map[string]float64
			if err := json.Unmarshal(value, &m); err != nil {
				return input, apperrors.InvalidInput(fmt.Sprintf("numeric must map field names to numbers: %v", err))
			}
			for k, v := range m {
				input.Numeric[k] = v
			}
		default:
			trimmed := bytes.TrimSpace(value)
			switch {
			case bytes.Equal(trimmed, []byte("null")):
				return input, apperrors.InvalidInput(fmt.Sprintf("field %s must not be null", key))
			case len(trimmed) > 0 && trimmed[0] == '"':
				var v string
				if err := json.Unmarshal(trimmed, &v); err != nil {
					return input, apperrors.InvalidInput(fmt.Sprintf("field %s: %v", key, err))
				}
				input.Categorical[key] = v
			default:
				var v float64
				if err := json.Unmarshal(trimmed, &v); err != nil {
					return input, apperrors.InvalidInput(fmt.Sprintf("field %s must be a string or a number", key))
				}
				input.Numeric[key] = v
			}
		}
	}
	return input, nil
}

// statusFor maps an error kind onto an HTTP status.
func statusFor(kind string) int {
	switch kind {
	case "UnknownCategoryError", "InvalidInputError", "SchemaMismatchError":
		return http.StatusUnprocessableEntity
	case "ArtifactUnavailableError", "ArtifactMismatchError":
		return http.StatusServiceUnavailable
	case "Unauthorized":
		return http.StatusUnauthorized
	case "InvalidRequest":
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	detail := apperrors.Describe(err)
	status := statusFor(detail.Kind)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed: %v", err)
	}
	writeJSON(w, status, errorEnvelope{Error: detail})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // HTTP response write errors are not recoverable
	json.NewEncoder(w).Encode(data)
}
