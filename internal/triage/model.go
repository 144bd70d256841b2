package triage

import "time"

// Verdict is the tri-state classification outcome for a case.
type Verdict string

const (
	// VerdictAprovado means every mandatory requirement is valid and at
	// least one financial document is valid.
	VerdictAprovado Verdict = "Aprovado"

	// VerdictPendenciaBloqueante means at least one blocking condition
	// holds; the case cannot proceed without human intervention.
	VerdictPendenciaBloqueante Verdict = "Pendencia_Bloqueante"

	// VerdictPendenciaNaoBloqueante means only non-blocking issues remain,
	// typically resolvable by the system itself.
	VerdictPendenciaNaoBloqueante Verdict = "Pendencia_NaoBloqueante"
)

// ConfidenceBand is the coarse display-level grouping of the confidence score.
type ConfidenceBand string

const (
	BandHigh   ConfidenceBand = "high"   // >= 0.90
	BandMedium ConfidenceBand = "medium" // 0.50 .. 0.89
	BandLow    ConfidenceBand = "low"    // < 0.50
)

// Band maps a confidence score to its display band.
func Band(confidence float64) ConfidenceBand {
	switch {
	case confidence >= 0.90:
		return BandHigh
	case confidence >= 0.50:
		return BandMedium
	default:
		return BandLow
	}
}

// DocumentObservation is one observed document for a case, as reported by
// the intake payload. DeclaredDate is the raw string found in the document
// metadata and may be malformed. RawValidityFlag, when set, overrides the
// age-based validity decision.
type DocumentObservation struct {
	RequirementID   string  `json:"requirement_id"`
	Present         bool    `json:"present"`
	DeclaredDate    *string `json:"declared_date,omitempty"`
	RawValidityFlag *bool   `json:"raw_validity_flag,omitempty"`
}

// DocumentAnalysis is the engine's per-requirement evaluation. Valid is
// always defined; an absent document is invalid.
type DocumentAnalysis struct {
	RequirementID string `json:"requirement_id"`
	DisplayName   string `json:"display_name"`
	Present       bool   `json:"present"`
	AgeDays       *int   `json:"age_days,omitempty"`
	Valid         bool   `json:"valid"`
	Issue         string `json:"issue,omitempty"`
}

// ClassificationResult is the immutable outcome of one Engine.Evaluate call.
type ClassificationResult struct {
	Verdict           Verdict            `json:"verdict"`
	Confidence        float64            `json:"confidence"`
	DocumentAnalyses  []DocumentAnalysis `json:"document_analyses"`
	BlockingIssues    []string           `json:"blocking_issues"`
	NonBlockingIssues []string           `json:"non_blocking_issues"`
	AutoActionable    []string           `json:"auto_actionable"`
	Total             int                `json:"total"`
	PresentCount      int                `json:"present_count"`
	ValidCount        int                `json:"valid_count"`
	ComplianceRate    float64            `json:"compliance_rate"`
}

// CaseMetadata carries the case-level fields threaded into reports and
// notifications.
type CaseMetadata struct {
	CompanyName    string `json:"company_name,omitempty"`
	RegistrationID string `json:"registration_id,omitempty"`
	Analyst        string `json:"analyst,omitempty"`
}

// Step names the orchestration states a processing attempt moves through.
type Step string

const (
	StepReceived   Step = "RECEIVED"
	StepClassified Step = "CLASSIFIED"
	StepReported   Step = "REPORTED"
	StepActioned   Step = "ACTIONED"
	StepNotified   Step = "NOTIFIED"
	StepRecorded   Step = "RECORDED"
)

// ProcessingStatus tracks where a case record is in its lifecycle.
type ProcessingStatus string

const (
	StatusPending   ProcessingStatus = "pending"
	StatusCompleted ProcessingStatus = "completed"
	StatusFailed    ProcessingStatus = "failed"
)

// RemoteOperation records one remote side effect attempted for a case.
type RemoteOperation struct {
	Name    string `json:"name"`
	Success bool   `json:"success"`
	Detail  string `json:"detail,omitempty"`
}

// CaseRecord is the persisted per-case tracking record. CaseID is the
// idempotency anchor: reprocessing the same case overwrites the record.
type CaseRecord struct {
	CaseID           string                `json:"case_id"`
	AttemptID        string                `json:"attempt_id"`
	Classification   *ClassificationResult `json:"classification,omitempty"`
	Metadata         CaseMetadata          `json:"metadata"`
	RemoteOperations []RemoteOperation     `json:"remote_operations,omitempty"`
	Status           ProcessingStatus      `json:"status"`
	LastStep         Step                  `json:"last_step"`
	Errors           []string              `json:"errors,omitempty"`
	Warnings         []string              `json:"warnings,omitempty"`
	NotificationSent bool                  `json:"notification_sent"`
	CreatedAt        time.Time             `json:"created_at"`
	CompletedAt      time.Time             `json:"completed_at,omitempty"`
	Duration         float64               `json:"duration_seconds,omitempty"`
}

// ProcessingOutcome is the caller-facing result of one Process attempt.
// Success requires classification and rendering; remote-side failures
// downgrade the outcome to degraded instead of failing it outright.
type ProcessingOutcome struct {
	CaseID           string                `json:"case_id"`
	AttemptID        string                `json:"attempt_id"`
	Success          bool                  `json:"success"`
	Degraded         bool                  `json:"degraded"`
	Verdict          Verdict               `json:"verdict,omitempty"`
	Classification   *ClassificationResult `json:"classification,omitempty"`
	DetailedReport   string                `json:"detailed_report,omitempty"`
	SummaryReport    string                `json:"summary_report,omitempty"`
	RemoteOperations []RemoteOperation     `json:"remote_operations,omitempty"`
	Errors           []string              `json:"errors,omitempty"`
	Warnings         []string              `json:"warnings,omitempty"`
	NotificationSent bool                  `json:"notification_sent"`
}
