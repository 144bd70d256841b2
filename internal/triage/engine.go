package triage

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownRequirement is a contract violation: an observation referenced
// a requirement id that is not in the catalog. Fatal for the case, never
// silently swallowed.
var ErrUnknownRequirement = errors.New("unknown requirement id")

// Engine evaluates a case's document observations against the requirement
// catalog. Evaluation is pure and deterministic given now: malformed data
// degrades to invalid-with-issue, it never aborts the case.
type Engine struct {
	registry *Registry
}

// NewEngine creates an engine bound to a requirement registry.
func NewEngine(registry *Registry) *Engine {
	return &Engine{registry: registry}
}

// Registry returns the catalog the engine evaluates against.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Evaluate produces the ClassificationResult for one case. The only error
// condition is structural: an observation referencing an id outside the
// catalog, or the same id twice. Requirements without an observation are
// treated as absent.
func (e *Engine) Evaluate(observations []DocumentObservation, now time.Time) (*ClassificationResult, error) {
	byID := make(map[string]*DocumentObservation, len(observations))
	for i := range observations {
		obs := &observations[i]
		if _, ok := e.registry.Get(obs.RequirementID); !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownRequirement, obs.RequirementID)
		}
		if _, dup := byID[obs.RequirementID]; dup {
			return nil, fmt.Errorf("%w: duplicate observation for %q", ErrUnknownRequirement, obs.RequirementID)
		}
		byID[obs.RequirementID] = obs
	}

	result := &ClassificationResult{
		Total: e.registry.Len(),
	}

	financialValid := false
	for _, req := range e.registry.All() {
		analysis := analyzeDocument(&req, byID[req.ID], now)
		result.DocumentAnalyses = append(result.DocumentAnalyses, analysis)

		if analysis.Present {
			result.PresentCount++
		}
		if analysis.Valid {
			result.ValidCount++
			if req.IsFinancial {
				financialValid = true
			}
		}
		if req.AutoGenerable && !analysis.Valid {
			result.AutoActionable = append(result.AutoActionable, req.ID)
		}

		if analysis.Issue == "" {
			continue
		}
		if isBlocking(&req, analysis) {
			result.BlockingIssues = append(result.BlockingIssues, analysis.Issue)
		} else {
			result.NonBlockingIssues = append(result.NonBlockingIssues, analysis.Issue)
		}
	}

	// The checklist demands at least one valid financial document; its
	// absence blocks the case as a whole rather than any single entry.
	if !financialValid {
		result.BlockingIssues = append(result.BlockingIssues, "Nenhum documento financeiro válido apresentado")
	}

	if result.Total > 0 {
		result.ComplianceRate = float64(result.ValidCount) / float64(result.Total)
	}

	// First matching rule wins; exactly one of the three always matches.
	switch {
	case len(result.BlockingIssues) > 0:
		result.Verdict = VerdictPendenciaBloqueante
	case len(result.NonBlockingIssues) > 0:
		result.Verdict = VerdictPendenciaNaoBloqueante
	default:
		result.Verdict = VerdictAprovado
	}

	result.Confidence = confidence(result)
	return result, nil
}

// analyzeDocument applies the per-requirement rules. obs may be nil, which
// counts as absent.
func analyzeDocument(req *Requirement, obs *DocumentObservation, now time.Time) DocumentAnalysis {
	analysis := DocumentAnalysis{
		RequirementID: req.ID,
		DisplayName:   req.DisplayName,
	}

	if obs == nil || !obs.Present {
		analysis.Valid = false
		switch {
		case req.Mandatory && req.AutoGenerable:
			analysis.Issue = fmt.Sprintf("Documento ausente (auto-gerável): %s", req.DisplayName)
		case req.Mandatory:
			analysis.Issue = fmt.Sprintf("Documento obrigatório ausente: %s", req.DisplayName)
		case req.AutoGenerable:
			analysis.Issue = fmt.Sprintf("Documento ausente (auto-gerável): %s", req.DisplayName)
		}
		return analysis
	}

	analysis.Present = true

	// Explicit validity override wins over any age check.
	if obs.RawValidityFlag != nil {
		analysis.Valid = *obs.RawValidityFlag
		if !analysis.Valid {
			analysis.Issue = fmt.Sprintf("Documento inválido: %s", req.DisplayName)
		}
		return analysis
	}

	if req.MaxAgeDays != nil {
		raw := ""
		if obs.DeclaredDate != nil {
			raw = *obs.DeclaredDate
		}
		age, err := ParseAge(raw, now)
		if err != nil {
			analysis.Valid = false
			analysis.Issue = fmt.Sprintf("Data do documento ilegível: %s", req.DisplayName)
			return analysis
		}
		analysis.AgeDays = &age
		if age > *req.MaxAgeDays {
			analysis.Valid = false
			analysis.Issue = fmt.Sprintf("Documento vencido: %d dias (máximo %d): %s", age, *req.MaxAgeDays, req.DisplayName)
			return analysis
		}
		analysis.Valid = true
		return analysis
	}

	// No age constraint: presence suffices.
	analysis.Valid = true
	return analysis
}

// isBlocking decides whether an issue blocks the case. Absence blocks only
// for mandatory non-auto-generable documents; invalidity blocks when the
// requirement is flagged blocking_if_invalid.
func isBlocking(req *Requirement, analysis DocumentAnalysis) bool {
	if !analysis.Present {
		return req.Mandatory && !req.AutoGenerable
	}
	return req.BlockingIfInvalid
}

// confidence scores the classification. The scale is verdict-partitioned:
// each verdict lands inside one display band, and adding issues of either
// severity never raises the score.
func confidence(r *ClassificationResult) float64 {
	switch r.Verdict {
	case VerdictAprovado:
		return 0.95 + 0.05*r.ComplianceRate
	case VerdictPendenciaNaoBloqueante:
		n := len(r.NonBlockingIssues)
		return clamp(0.85-0.07*float64(n-1), 0.50, 0.88)
	default:
		b := len(r.BlockingIssues)
		return clamp(0.45*r.ComplianceRate-0.05*float64(b-1), 0.05, 0.49)
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
