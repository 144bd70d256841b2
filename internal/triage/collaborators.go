package triage

import (
	"context"
	"time"
)

// Board is the workflow-board client consumed by the Service. Both calls
// are idempotent: moving a case already in the destination phase is a
// no-op, and field updates are overwrites.
type Board interface {
	MoveCase(ctx context.Context, caseID, destination string) error
	UpdateField(ctx context.Context, caseID, fieldID, value string) error
}

// Recipient identifies who receives case notifications. Injected as a
// configuration snapshot at Service construction, never mutated.
type Recipient struct {
	Name  string
	Phone string
	Role  string
}

// Notifier dispatches a human notification. Delivery confirmation is
// asynchronous and not awaited; Send returns a delivery id on acceptance.
type Notifier interface {
	Send(ctx context.Context, to Recipient, message string) (deliveryID string, err error)
}

// Company is the registry-lookup result for an external registration id.
type Company struct {
	RegistrationID string `json:"registration_id"`
	LegalName      string `json:"legal_name"`
	Status         string `json:"status"`
}

// Renderer produces the two case reports from a classification result.
// Implementations must be pure: identical inputs yield identical output.
type Renderer interface {
	Render(result *ClassificationResult, caseID string, meta CaseMetadata, generatedAt time.Time) (detailed, summary string)
}

// Lookup resolves an external company registration id. Implementations
// provide read-through cache semantics: a cached hit never reaches the
// remote registry.
type Lookup interface {
	Resolve(ctx context.Context, registrationID string) (*Company, error)
}
