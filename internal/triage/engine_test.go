package triage

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var engineNow = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	reg, err := DefaultRegistry()
	if err != nil {
		t.Fatalf("DefaultRegistry() error = %v", err)
	}
	return NewEngine(reg)
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

// fullObservations returns a complete, valid observation set: every
// requirement present, dated documents issued 30 days ago.
func fullObservations() []DocumentObservation {
	recent := "02/05/2025"
	return []DocumentObservation{
		{RequirementID: "cartao_cnpj", Present: true, DeclaredDate: strPtr(recent)},
		{RequirementID: "contrato_social", Present: true, DeclaredDate: strPtr(recent)},
		{RequirementID: "procuracao", Present: true},
		{RequirementID: "rg_cpf_socios", Present: true},
		{RequirementID: "comprovante_residencia", Present: true, DeclaredDate: strPtr(recent)},
		{RequirementID: "balanco_patrimonial", Present: true},
		{RequirementID: "demonstracoes_financeiras", Present: true},
		{RequirementID: "relacao_faturamento", Present: true},
		{RequirementID: "declaracao_relacionamento_credito", Present: true},
		{RequirementID: "relatorio_visita", Present: true},
		{RequirementID: "ata_comite_credito", Present: true},
	}
}

// without removes the observation for the given requirement id, which the
// engine treats as absent.
func without(obs []DocumentObservation, ids ...string) []DocumentObservation {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	var out []DocumentObservation
	for _, o := range obs {
		if !drop[o.RequirementID] {
			out = append(out, o)
		}
	}
	return out
}

func TestEvaluate_Approved(t *testing.T) {
	t.Parallel()
	e := testEngine(t)

	r, err := e.Evaluate(fullObservations(), engineNow)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	if r.Verdict != VerdictAprovado {
		t.Errorf("Verdict = %s, want %s", r.Verdict, VerdictAprovado)
	}
	if r.Confidence < 0.90 || r.Confidence > 1.0 {
		t.Errorf("Confidence = %v, want in [0.90, 1.0]", r.Confidence)
	}
	if Band(r.Confidence) != BandHigh {
		t.Errorf("Band = %s, want %s", Band(r.Confidence), BandHigh)
	}
	if r.Total != 11 || r.PresentCount != 11 || r.ValidCount != 11 {
		t.Errorf("counts = %d/%d/%d, want 11/11/11", r.Total, r.PresentCount, r.ValidCount)
	}
	if r.ComplianceRate != 1.0 {
		t.Errorf("ComplianceRate = %v, want 1.0", r.ComplianceRate)
	}
	if len(r.BlockingIssues) != 0 || len(r.NonBlockingIssues) != 0 {
		t.Errorf("issues = %v / %v, want none", r.BlockingIssues, r.NonBlockingIssues)
	}
	if len(r.AutoActionable) != 0 {
		t.Errorf("AutoActionable = %v, want empty", r.AutoActionable)
	}
}

func TestEvaluate_MissingMandatoryBlocks(t *testing.T) {
	t.Parallel()
	e := testEngine(t)

	r, err := e.Evaluate(without(fullObservations(), "contrato_social"), engineNow)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	if r.Verdict != VerdictPendenciaBloqueante {
		t.Errorf("Verdict = %s, want %s", r.Verdict, VerdictPendenciaBloqueante)
	}
	want := []string{"Documento obrigatório ausente: Último Contrato Social/Estatuto consolidado"}
	if diff := cmp.Diff(want, r.BlockingIssues); diff != "" {
		t.Errorf("BlockingIssues mismatch (-want +got):\n%s", diff)
	}
	if r.Confidence >= 0.50 {
		t.Errorf("Confidence = %v, want < 0.50", r.Confidence)
	}
	if Band(r.Confidence) != BandLow {
		t.Errorf("Band = %s, want %s", Band(r.Confidence), BandLow)
	}
}

func TestEvaluate_AutoGenerableAbsenceIsNonBlocking(t *testing.T) {
	t.Parallel()
	e := testEngine(t)

	r, err := e.Evaluate(without(fullObservations(), "cartao_cnpj"), engineNow)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	if r.Verdict != VerdictPendenciaNaoBloqueante {
		t.Errorf("Verdict = %s, want %s", r.Verdict, VerdictPendenciaNaoBloqueante)
	}
	wantIssues := []string{"Documento ausente (auto-gerável): Cartão CNPJ emitido dentro dos 90 dias"}
	if diff := cmp.Diff(wantIssues, r.NonBlockingIssues); diff != "" {
		t.Errorf("NonBlockingIssues mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"cartao_cnpj"}, r.AutoActionable); diff != "" {
		t.Errorf("AutoActionable mismatch (-want +got):\n%s", diff)
	}
	if Band(r.Confidence) != BandMedium {
		t.Errorf("Band = %s (confidence %v), want %s", Band(r.Confidence), r.Confidence, BandMedium)
	}
}

func TestEvaluate_ExpiredDocument(t *testing.T) {
	t.Parallel()
	e := testEngine(t)

	obs := fullObservations()
	for i := range obs {
		if obs[i].RequirementID == "comprovante_residencia" {
			obs[i].DeclaredDate = strPtr("01/01/2025") // 151 days before engineNow
		}
	}

	r, err := e.Evaluate(obs, engineNow)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	if r.Verdict != VerdictPendenciaBloqueante {
		t.Errorf("Verdict = %s, want %s", r.Verdict, VerdictPendenciaBloqueante)
	}
	want := []string{"Documento vencido: 151 dias (máximo 90): Comprovante de residência (conta de concessionária)"}
	if diff := cmp.Diff(want, r.BlockingIssues); diff != "" {
		t.Errorf("BlockingIssues mismatch (-want +got):\n%s", diff)
	}

	// the expired document is present but invalid
	for _, a := range r.DocumentAnalyses {
		if a.RequirementID == "comprovante_residencia" {
			if !a.Present || a.Valid {
				t.Errorf("comprovante_residencia = present=%v valid=%v, want present, invalid", a.Present, a.Valid)
			}
			if a.AgeDays == nil || *a.AgeDays != 151 {
				t.Errorf("AgeDays = %v, want 151", a.AgeDays)
			}
		}
	}
}

func TestEvaluate_UnreadableDateDegradesToInvalid(t *testing.T) {
	t.Parallel()
	e := testEngine(t)

	obs := fullObservations()
	for i := range obs {
		if obs[i].RequirementID == "contrato_social" {
			obs[i].DeclaredDate = strPtr("data ilegível")
		}
	}

	r, err := e.Evaluate(obs, engineNow)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	if r.Verdict != VerdictPendenciaBloqueante {
		t.Errorf("Verdict = %s, want %s", r.Verdict, VerdictPendenciaBloqueante)
	}
	want := []string{"Data do documento ilegível: Último Contrato Social/Estatuto consolidado"}
	if diff := cmp.Diff(want, r.BlockingIssues); diff != "" {
		t.Errorf("BlockingIssues mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluate_ValidityFlagOverridesAge(t *testing.T) {
	t.Parallel()
	e := testEngine(t)

	obs := fullObservations()
	for i := range obs {
		if obs[i].RequirementID == "comprovante_residencia" {
			obs[i].DeclaredDate = strPtr("01/01/2020")
			obs[i].RawValidityFlag = boolPtr(true)
		}
	}

	r, err := e.Evaluate(obs, engineNow)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if r.Verdict != VerdictAprovado {
		t.Errorf("Verdict = %s, want %s (flag overrides age)", r.Verdict, VerdictAprovado)
	}
}

func TestEvaluate_ValidityFlagFalse(t *testing.T) {
	t.Parallel()
	e := testEngine(t)

	obs := fullObservations()
	for i := range obs {
		if obs[i].RequirementID == "procuracao" {
			obs[i].RawValidityFlag = boolPtr(false)
		}
	}

	r, err := e.Evaluate(obs, engineNow)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if r.Verdict != VerdictPendenciaBloqueante {
		t.Errorf("Verdict = %s, want %s", r.Verdict, VerdictPendenciaBloqueante)
	}
	want := []string{"Documento inválido: Procuração com reconhecimento de firma"}
	if diff := cmp.Diff(want, r.BlockingIssues); diff != "" {
		t.Errorf("BlockingIssues mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluate_NoFinancialDocument(t *testing.T) {
	t.Parallel()
	e := testEngine(t)

	obs := without(fullObservations(), "balanco_patrimonial", "demonstracoes_financeiras", "relacao_faturamento")
	r, err := e.Evaluate(obs, engineNow)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	if r.Verdict != VerdictPendenciaBloqueante {
		t.Errorf("Verdict = %s, want %s", r.Verdict, VerdictPendenciaBloqueante)
	}
	// financial documents are optional individually, so the only issue is
	// the case-level one
	want := []string{"Nenhum documento financeiro válido apresentado"}
	if diff := cmp.Diff(want, r.BlockingIssues); diff != "" {
		t.Errorf("BlockingIssues mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluate_EmptyObservations(t *testing.T) {
	t.Parallel()
	e := testEngine(t)

	r, err := e.Evaluate(nil, engineNow)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	if len(r.DocumentAnalyses) != 11 {
		t.Errorf("analyses = %d, want 11", len(r.DocumentAnalyses))
	}
	if r.PresentCount != 0 || r.ValidCount != 0 {
		t.Errorf("counts = %d present, %d valid, want 0/0", r.PresentCount, r.ValidCount)
	}
	if r.Verdict != VerdictPendenciaBloqueante {
		t.Errorf("Verdict = %s, want %s", r.Verdict, VerdictPendenciaBloqueante)
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		t.Errorf("Confidence = %v, want in [0, 1]", r.Confidence)
	}
}

func TestEvaluate_UnknownRequirement(t *testing.T) {
	t.Parallel()
	e := testEngine(t)

	_, err := e.Evaluate([]DocumentObservation{{RequirementID: "nota_fiscal", Present: true}}, engineNow)
	if !errors.Is(err, ErrUnknownRequirement) {
		t.Fatalf("Evaluate() error = %v, want ErrUnknownRequirement", err)
	}
}

func TestEvaluate_DuplicateObservation(t *testing.T) {
	t.Parallel()
	e := testEngine(t)

	_, err := e.Evaluate([]DocumentObservation{
		{RequirementID: "procuracao", Present: true},
		{RequirementID: "procuracao", Present: false},
	}, engineNow)
	if !errors.Is(err, ErrUnknownRequirement) {
		t.Fatalf("Evaluate() error = %v, want ErrUnknownRequirement", err)
	}
}

func TestEvaluate_ConfidenceMonotoneInBlockingIssues(t *testing.T) {
	t.Parallel()
	e := testEngine(t)

	one, err := e.Evaluate(without(fullObservations(), "contrato_social"), engineNow)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	three, err := e.Evaluate(without(fullObservations(), "contrato_social", "rg_cpf_socios", "relatorio_visita"), engineNow)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	if three.Confidence > one.Confidence {
		t.Errorf("confidence rose with more blocking issues: %v > %v", three.Confidence, one.Confidence)
	}
	if Band(one.Confidence) != BandLow || Band(three.Confidence) != BandLow {
		t.Errorf("bands = %s/%s, want low/low", Band(one.Confidence), Band(three.Confidence))
	}
}

func TestEvaluate_VerdictBandPartition(t *testing.T) {
	t.Parallel()
	e := testEngine(t)

	cases := []struct {
		name string
		obs  []DocumentObservation
		band ConfidenceBand
	}{
		{"approved is high", fullObservations(), BandHigh},
		{"non-blocking is medium", without(fullObservations(), "cartao_cnpj"), BandMedium},
		{"blocking is low", without(fullObservations(), "ata_comite_credito"), BandLow},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r, err := e.Evaluate(tt.obs, engineNow)
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if got := Band(r.Confidence); got != tt.band {
				t.Errorf("Band(%v) = %s, want %s", r.Confidence, got, tt.band)
			}
		})
	}
}

// TestEvaluate_CustomCatalogs pins the three verdict outcomes against small
// explicit catalogs built with NewRegistry, independent of the embedded
// checklist.
func TestEvaluate_CustomCatalogs(t *testing.T) {
	t.Parallel()

	days30 := 30
	days90 := 90

	tests := []struct {
		name        string
		reqs        []Requirement
		obs         []DocumentObservation
		verdict     Verdict
		band        ConfidenceBand
		blocking    int
		nonBlocking int
		autoAction  []string
	}{
		{
			name: "complete six-document set approves",
			reqs: []Requirement{
				{ID: "registro", DisplayName: "Registro da empresa", Mandatory: true, MaxAgeDays: &days90, AutoGenerable: true},
				{ID: "contrato", DisplayName: "Contrato consolidado", Mandatory: true, BlockingIfInvalid: true},
				{ID: "identidade", DisplayName: "Identidade dos sócios", Mandatory: true, BlockingIfInvalid: true},
				{ID: "endereco", DisplayName: "Comprovante de endereço", Mandatory: true, MaxAgeDays: &days30, BlockingIfInvalid: true},
				{ID: "balanco", DisplayName: "Balanço assinado", IsFinancial: true, BlockingIfInvalid: true},
				{ID: "ata", DisplayName: "Ata de aprovação", Mandatory: true, BlockingIfInvalid: true},
			},
			obs: []DocumentObservation{
				{RequirementID: "registro", Present: true, DeclaredDate: strPtr("02/05/2025")},
				{RequirementID: "contrato", Present: true},
				{RequirementID: "identidade", Present: true},
				{RequirementID: "endereco", Present: true, DeclaredDate: strPtr("15/05/2025")},
				{RequirementID: "balanco", Present: true},
				{RequirementID: "ata", Present: true},
			},
			verdict: VerdictAprovado,
			band:    BandHigh,
		},
		{
			name: "missing and expired documents block",
			reqs: []Requirement{
				{ID: "contrato", DisplayName: "Contrato consolidado", Mandatory: true, BlockingIfInvalid: true},
				{ID: "identidade", DisplayName: "Identidade dos sócios", Mandatory: true, BlockingIfInvalid: true},
				{ID: "endereco", DisplayName: "Comprovante de endereço", Mandatory: true, MaxAgeDays: &days30, BlockingIfInvalid: true},
				{ID: "balanco", DisplayName: "Balanço assinado", IsFinancial: true, BlockingIfInvalid: true},
				{ID: "visita", DisplayName: "Relatório de visita", Mandatory: true, BlockingIfInvalid: true},
			},
			obs: []DocumentObservation{
				{RequirementID: "endereco", Present: true, DeclaredDate: strPtr("31/12/2024")},
				{RequirementID: "balanco", Present: true},
				{RequirementID: "visita", Present: true},
			},
			verdict:  VerdictPendenciaBloqueante,
			band:     BandLow,
			blocking: 3, // two absences and one expired document
		},
		{
			name: "auto-generable gap stays non-blocking",
			reqs: []Requirement{
				{ID: "registro", DisplayName: "Registro da empresa", Mandatory: true, MaxAgeDays: &days90, AutoGenerable: true},
				{ID: "contrato", DisplayName: "Contrato consolidado", Mandatory: true, BlockingIfInvalid: true},
				{ID: "identidade", DisplayName: "Identidade dos sócios", Mandatory: true, BlockingIfInvalid: true},
				{ID: "endereco", DisplayName: "Comprovante de endereço", Mandatory: true, MaxAgeDays: &days30, BlockingIfInvalid: true},
				{ID: "balanco", DisplayName: "Balanço assinado", IsFinancial: true, BlockingIfInvalid: true},
				{ID: "ata", DisplayName: "Ata de aprovação", Mandatory: true, BlockingIfInvalid: true},
			},
			obs: []DocumentObservation{
				{RequirementID: "contrato", Present: true},
				{RequirementID: "identidade", Present: true},
				{RequirementID: "endereco", Present: true, DeclaredDate: strPtr("15/05/2025")},
				{RequirementID: "balanco", Present: true},
				{RequirementID: "ata", Present: true},
			},
			verdict:     VerdictPendenciaNaoBloqueante,
			band:        BandMedium,
			nonBlocking: 1,
			autoAction:  []string{"registro"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			reg, err := NewRegistry(tt.reqs)
			if err != nil {
				t.Fatalf("NewRegistry() error = %v", err)
			}

			r, err := NewEngine(reg).Evaluate(tt.obs, engineNow)
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}

			if r.Verdict != tt.verdict {
				t.Errorf("Verdict = %s, want %s", r.Verdict, tt.verdict)
			}
			if got := Band(r.Confidence); got != tt.band {
				t.Errorf("Band(%v) = %s, want %s", r.Confidence, got, tt.band)
			}
			if len(r.BlockingIssues) != tt.blocking {
				t.Errorf("BlockingIssues = %v, want %d entries", r.BlockingIssues, tt.blocking)
			}
			if len(r.NonBlockingIssues) != tt.nonBlocking {
				t.Errorf("NonBlockingIssues = %v, want %d entries", r.NonBlockingIssues, tt.nonBlocking)
			}
			if diff := cmp.Diff(tt.autoAction, r.AutoActionable); diff != "" {
				t.Errorf("AutoActionable mismatch (-want +got):\n%s", diff)
			}
			if r.Total != len(tt.reqs) {
				t.Errorf("Total = %d, want %d", r.Total, len(tt.reqs))
			}
		})
	}
}
