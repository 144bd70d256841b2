package report

import (
	"time"

	"github.com/linnemanlabs/sift/internal/triage"
)

// CaseRenderer adapts Render to the triage.Renderer contract.
type CaseRenderer struct{}

var _ triage.Renderer = CaseRenderer{}

func (CaseRenderer) Render(result *triage.ClassificationResult, caseID string, meta triage.CaseMetadata, generatedAt time.Time) (detailed, summary string) {
	m := Metadata{
		CaseID:         caseID,
		CompanyName:    meta.CompanyName,
		RegistrationID: meta.RegistrationID,
		Analyst:        meta.Analyst,
		GeneratedAt:    generatedAt,
	}
	return Render(result, m, ModeDetailed), Render(result, m, ModeSummary)
}
