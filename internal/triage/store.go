package triage

import "context"

// Store is the persistence interface for case tracking records. Upsert is
// keyed by CaseID with last-write-wins semantics; there is no cross-case
// locking anywhere above this interface.
type Store interface {
	Get(ctx context.Context, caseID string) (*CaseRecord, bool, error)
	Upsert(ctx context.Context, record *CaseRecord) error
}
