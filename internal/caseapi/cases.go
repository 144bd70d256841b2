package caseapi

import (
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/sift/internal/triage"
)

// intakePayload is the webhook body for a case submission.
type intakePayload struct {
	Observations []triage.DocumentObservation `json:"observations"`
	Metadata     triage.CaseMetadata          `json:"metadata"`
}

func (a *API) handleSubmitCase(w http.ResponseWriter, r *http.Request) {
	caseID := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("sift.case.id", caseID))

	var payload intakePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}

	result, err := a.svc.Submit(r.Context(), triage.ProcessRequest{
		CaseID:       caseID,
		Observations: payload.Observations,
		Metadata:     payload.Metadata,
	})
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to submit case", "case_id", caseID)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	if result.Skipped {
		a.logger.Info(r.Context(), "case submission skipped", "case_id", caseID, "reason", result.Reason)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]any{"skipped": true, "reason": result.Reason})
		return
	}

	span.SetAttributes(attribute.String("sift.case.attempt_id", result.AttemptID))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"case_id":    caseID,
		"attempt_id": result.AttemptID,
	})
}
