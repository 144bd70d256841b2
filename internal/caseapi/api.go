// Package caseapi exposes the HTTP surface for case intake and lookup.
package caseapi

import (
	"context"
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"
	"github.com/linnemanlabs/sift/internal/triage"
)

// TriageService defines the business operations caseapi needs.
type TriageService interface {
	Submit(ctx context.Context, req triage.ProcessRequest) (*triage.SubmitResult, error)
	Get(ctx context.Context, caseID string) (*triage.CaseRecord, bool, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    TriageService
}

// New creates a new API handler.
func New(logger log.Logger, svc TriageService) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("triage service is required"))
	}
	return &API{
		logger: logger,
		svc:    svc,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/cases/{id}/triage", a.handleSubmitCase)
		r.Get("/cases/{id}", a.handleGetCase)
	})
}

func (a *API) handleGetCase(w http.ResponseWriter, r *http.Request) {
	caseID := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("sift.case.id", caseID))

	record, ok, err := a.svc.Get(r.Context(), caseID)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get case record", "case_id", caseID)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	span.SetAttributes(attribute.String("sift.case.status", string(record.Status)))

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(record)
}
