package triage

import (
	"context"
	"fmt"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/sift/internal/remote"
	"github.com/oklog/ulid/v2"
)

// ProcessRequest is one case-processing attempt. AttemptID is assigned by
// the service when empty.
type ProcessRequest struct {
	CaseID       string                `json:"case_id"`
	AttemptID    string                `json:"-"`
	Observations []DocumentObservation `json:"observations"`
	Metadata     CaseMetadata          `json:"metadata"`
}

// SubmitResult is the outcome of submitting a case for async processing.
type SubmitResult struct {
	AttemptID string
	Skipped   bool
	Reason    string
}

// ServiceConfig carries the orchestration wiring that comes from
// configuration rather than from collaborators.
type ServiceConfig struct {
	// Destinations maps each verdict to its board destination phase.
	Destinations map[Verdict]string
	// ReportFieldID receives the detailed report on the board card.
	ReportFieldID string
	// SummaryFieldID optionally receives the summary projection.
	SummaryFieldID string
	// Recipient receives case notifications. A zero Phone disables dispatch.
	Recipient Recipient
	// Policy tunes retries and breakers for every collaborator.
	Policy remote.Policy
}

// Service is the business boundary for case triage. Process runs the full
// pipeline for one case: classify, render, act on the board, notify and
// persist the tracking record. CaseID is the idempotency anchor; repeating
// an attempt converges on the same record without duplicate notifications.
type Service struct {
	engine   *Engine
	store    Store
	board    Board
	notifier Notifier
	lookup   Lookup
	renderer Renderer
	logger   log.Logger
	metrics  *Metrics

	boardCall  *remote.Caller
	notifyCall *remote.Caller
	lookupCall *remote.Caller
	storeCall  *remote.Caller

	cfg ServiceConfig
	now func() time.Time
}

// NewService creates a new triage service. metrics may be nil.
func NewService(engine *Engine, store Store, board Board, notifier Notifier, lookup Lookup, renderer Renderer, cfg ServiceConfig, logger log.Logger, metrics *Metrics) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	var onResult func(name, op string, success bool)
	if metrics != nil {
		onResult = metrics.ObserveRemoteOp
	}
	s := &Service{
		engine:     engine,
		store:      store,
		board:      board,
		notifier:   notifier,
		lookup:     lookup,
		renderer:   renderer,
		logger:     logger,
		metrics:    metrics,
		boardCall:  remote.NewCaller("board", cfg.Policy, logger, onResult),
		notifyCall: remote.NewCaller("notifier", cfg.Policy, logger, onResult),
		lookupCall: remote.NewCaller("lookup", cfg.Policy, logger, onResult),
		storeCall:  remote.NewCaller("store", cfg.Policy, logger, onResult),
		cfg:        cfg,
		now:        time.Now,
	}
	if metrics != nil {
		for _, c := range []*remote.Caller{s.boardCall, s.notifyCall, s.lookupCall, s.storeCall} {
			c.OnOpen = metrics.ObserveBreakerOpen
		}
	}
	return s
}

// Submit accepts a case for async processing. A case whose record is still
// pending is skipped as a duplicate submission.
func (s *Service) Submit(ctx context.Context, req ProcessRequest) (*SubmitResult, error) {
	if existing, ok, err := s.store.Get(ctx, req.CaseID); err != nil {
		return nil, err
	} else if ok && existing.Status == StatusPending {
		return &SubmitResult{Skipped: true, Reason: "already processing"}, nil
	}

	req.AttemptID = ulid.Make().String()
	rec := &CaseRecord{
		CaseID:    req.CaseID,
		AttemptID: req.AttemptID,
		Metadata:  req.Metadata,
		Status:    StatusPending,
		LastStep:  StepReceived,
		CreatedAt: s.now(),
	}
	if err := s.store.Upsert(ctx, rec); err != nil {
		return nil, err
	}

	// detach from the request context so an early client disconnect does
	// not abandon the case mid-pipeline.
	go s.Process(context.WithoutCancel(ctx), req)

	return &SubmitResult{AttemptID: req.AttemptID}, nil
}

// Get retrieves a case tracking record.
func (s *Service) Get(ctx context.Context, caseID string) (*CaseRecord, bool, error) {
	return s.store.Get(ctx, caseID)
}

// Process runs the pipeline synchronously and always returns an outcome.
// Classification and rendering failures are fatal; collaborator failures
// degrade the outcome but never lose the verdict.
func (s *Service) Process(ctx context.Context, req ProcessRequest) *ProcessingOutcome {
	start := s.now()
	if req.AttemptID == "" {
		req.AttemptID = ulid.Make().String()
	}
	L := s.logger.With("case_id", req.CaseID, "attempt_id", req.AttemptID)

	out := &ProcessingOutcome{CaseID: req.CaseID, AttemptID: req.AttemptID}
	rec := &CaseRecord{
		CaseID:    req.CaseID,
		AttemptID: req.AttemptID,
		Metadata:  req.Metadata,
		Status:    StatusPending,
		LastStep:  StepReceived,
		CreatedAt: start,
	}

	// prior record feeds notification dedup; failing to read it is not fatal.
	prior, priorFound, err := s.store.Get(ctx, req.CaseID)
	if err != nil {
		L.Warn(ctx, "could not read prior case record", "error", err)
		out.Warnings = append(out.Warnings, fmt.Sprintf("prior record unavailable: %v", err))
	}

	result, err := s.engine.Evaluate(req.Observations, start)
	if err != nil {
		L.Error(ctx, err, "classification failed")
		out.Errors = append(out.Errors, fmt.Sprintf("classification failed: %v", err))
		s.finish(ctx, L, out, rec, nil, start)
		return out
	}
	rec.LastStep = StepClassified
	rec.Classification = result
	out.Verdict = result.Verdict
	out.Classification = result
	L.Info(ctx, "case classified",
		"verdict", result.Verdict,
		"confidence", result.Confidence,
		"blocking", len(result.BlockingIssues),
		"non_blocking", len(result.NonBlockingIssues),
	)

	out.DetailedReport, out.SummaryReport = s.renderer.Render(result, req.CaseID, req.Metadata, start)
	rec.LastStep = StepReported

	s.actOnBoard(ctx, out, rec, result)
	rec.LastStep = StepActioned

	if result.Verdict == VerdictPendenciaNaoBloqueante && len(result.AutoActionable) > 0 {
		s.autoAction(ctx, L, out, rec, req.Metadata, result)
	}

	s.notify(ctx, out, rec, req, result, prior, priorFound)
	rec.LastStep = StepNotified

	s.finish(ctx, L, out, rec, result, start)
	return out
}

func (s *Service) actOnBoard(ctx context.Context, out *ProcessingOutcome, rec *CaseRecord, result *ClassificationResult) {
	dest := s.cfg.Destinations[result.Verdict]
	if dest == "" {
		out.Errors = append(out.Errors, fmt.Sprintf("no board destination configured for verdict %s", result.Verdict))
		s.recordOp(out, rec, "move_case", false, "destination not configured")
		return
	}

	err := s.boardCall.Do(ctx, "move_case", func(ctx context.Context) error {
		return s.board.MoveCase(ctx, out.CaseID, dest)
	})
	if err != nil {
		out.Errors = append(out.Errors, fmt.Sprintf("board move to %s failed: %v", dest, err))
		out.Degraded = true
		s.recordOp(out, rec, "move_case", false, err.Error())
	} else {
		s.recordOp(out, rec, "move_case", true, dest)
	}

	s.updateField(ctx, out, rec, "update_report_field", s.cfg.ReportFieldID, out.DetailedReport)
	if s.cfg.SummaryFieldID != "" {
		s.updateField(ctx, out, rec, "update_summary_field", s.cfg.SummaryFieldID, out.SummaryReport)
	}
}

func (s *Service) updateField(ctx context.Context, out *ProcessingOutcome, rec *CaseRecord, op, fieldID, value string) {
	if fieldID == "" {
		return
	}
	err := s.boardCall.Do(ctx, op, func(ctx context.Context) error {
		return s.board.UpdateField(ctx, out.CaseID, fieldID, value)
	})
	if err != nil {
		out.Warnings = append(out.Warnings, fmt.Sprintf("%s failed: %v", op, err))
		out.Degraded = true
		s.recordOp(out, rec, op, false, err.Error())
		return
	}
	s.recordOp(out, rec, op, true, fieldID)
}

// autoAction resolves the company registration for auto-generable missing
// documents. Resolution is preparatory: the generated document itself is
// attached on the next intake for the case.
func (s *Service) autoAction(ctx context.Context, L log.Logger, out *ProcessingOutcome, rec *CaseRecord, meta CaseMetadata, result *ClassificationResult) {
	if s.lookup == nil || meta.RegistrationID == "" {
		return
	}
	if s.metrics != nil {
		s.metrics.AutoActionsTotal.Inc()
	}

	var company *Company
	err := s.lookupCall.Do(ctx, "resolve_registration", func(ctx context.Context) error {
		var err error
		company, err = s.lookup.Resolve(ctx, meta.RegistrationID)
		return err
	})
	if err != nil {
		out.Warnings = append(out.Warnings, fmt.Sprintf("registration lookup failed: %v", err))
		out.Degraded = true
		s.recordOp(out, rec, "resolve_registration", false, err.Error())
		return
	}
	s.recordOp(out, rec, "resolve_registration", true, company.LegalName)
	if rec.Metadata.CompanyName == "" {
		rec.Metadata.CompanyName = company.LegalName
	}
	L.Info(ctx, "registration resolved for auto-generation",
		"registration_id", meta.RegistrationID,
		"documents", result.AutoActionable,
	)
}

func (s *Service) notify(ctx context.Context, out *ProcessingOutcome, rec *CaseRecord, req ProcessRequest, result *ClassificationResult, prior *CaseRecord, priorFound bool) {
	notified := func(kind, outcome string) {
		if s.metrics != nil {
			s.metrics.Notifications.WithLabelValues(kind, outcome).Inc()
		}
	}

	kind := ""
	switch result.Verdict {
	case VerdictPendenciaBloqueante:
		kind = "blocking"
	case VerdictAprovado:
		kind = "approval"
	default:
		return
	}

	if s.notifier == nil || s.cfg.Recipient.Phone == "" {
		out.Warnings = append(out.Warnings, "notification skipped: no recipient configured")
		notified(kind, "skipped")
		return
	}

	// same verdict already announced for this case: converge, don't repeat.
	if priorFound && prior.NotificationSent && prior.Classification != nil && prior.Classification.Verdict == result.Verdict {
		rec.NotificationSent = true
		s.recordOp(out, rec, "send_notification", true, "skipped: verdict already notified")
		notified(kind, "deduplicated")
		return
	}

	message := notificationMessage(req.CaseID, req.Metadata, result)
	var deliveryID string
	err := s.notifyCall.Do(ctx, "send_notification", func(ctx context.Context) error {
		var err error
		deliveryID, err = s.notifier.Send(ctx, s.cfg.Recipient, message)
		return err
	})
	if err != nil {
		out.Warnings = append(out.Warnings, fmt.Sprintf("notification failed: %v", err))
		out.Degraded = true
		s.recordOp(out, rec, "send_notification", false, err.Error())
		notified(kind, "error")
		return
	}
	out.NotificationSent = true
	rec.NotificationSent = true
	s.recordOp(out, rec, "send_notification", true, deliveryID)
	notified(kind, "sent")
}

func (s *Service) finish(ctx context.Context, L log.Logger, out *ProcessingOutcome, rec *CaseRecord, result *ClassificationResult, start time.Time) {
	out.Success = len(out.Errors) == 0 && result != nil

	rec.Errors = out.Errors
	rec.Warnings = out.Warnings
	rec.Status = StatusCompleted
	if !out.Success {
		rec.Status = StatusFailed
	}
	rec.CompletedAt = s.now()
	rec.Duration = rec.CompletedAt.Sub(start).Seconds()

	err := s.storeCall.Do(ctx, "persist_record", func(ctx context.Context) error {
		rec.LastStep = StepRecorded
		return s.store.Upsert(ctx, rec)
	})
	if err != nil {
		out.Errors = append(out.Errors, fmt.Sprintf("persisting case record failed: %v", err))
		out.Success = false
		rec.Errors = out.Errors
	}

	if s.metrics != nil {
		s.metrics.observeOutcome(out, result, rec.Duration)
	}
	L.Info(ctx, "case processing finished",
		"verdict", out.Verdict,
		"success", out.Success,
		"degraded", out.Degraded,
		"duration", rec.Duration,
	)
}

func (s *Service) recordOp(out *ProcessingOutcome, rec *CaseRecord, name string, success bool, detail string) {
	op := RemoteOperation{Name: name, Success: success, Detail: detail}
	out.RemoteOperations = append(out.RemoteOperations, op)
	rec.RemoteOperations = append(rec.RemoteOperations, op)
}
