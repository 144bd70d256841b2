package report

import (
	"strings"
	"testing"
	"time"

	"github.com/linnemanlabs/sift/internal/triage"
)

var reportNow = time.Date(2025, 6, 1, 14, 30, 0, 0, time.UTC)

func testMeta() Metadata {
	return Metadata{
		CaseID:         "case-123",
		CompanyName:    "Acme Ltda",
		RegistrationID: "12.345.678/0001-90",
		Analyst:        "Ana",
		GeneratedAt:    reportNow,
	}
}

func intPtr(n int) *int { return &n }

func approvedResult() *triage.ClassificationResult {
	return &triage.ClassificationResult{
		Verdict:    triage.VerdictAprovado,
		Confidence: 1.0,
		DocumentAnalyses: []triage.DocumentAnalysis{
			{RequirementID: "cartao_cnpj", DisplayName: "Cartão CNPJ emitido dentro dos 90 dias", Present: true, Valid: true, AgeDays: intPtr(30)},
			{RequirementID: "contrato_social", DisplayName: "Último Contrato Social/Estatuto consolidado", Present: true, Valid: true},
		},
		Total:          2,
		PresentCount:   2,
		ValidCount:     2,
		ComplianceRate: 1.0,
	}
}

func blockingResult() *triage.ClassificationResult {
	return &triage.ClassificationResult{
		Verdict:    triage.VerdictPendenciaBloqueante,
		Confidence: 0.30,
		DocumentAnalyses: []triage.DocumentAnalysis{
			{RequirementID: "contrato_social", DisplayName: "Último Contrato Social/Estatuto consolidado", Issue: "Documento obrigatório ausente: Último Contrato Social/Estatuto consolidado"},
			{RequirementID: "comprovante_residencia", DisplayName: "Comprovante de residência (conta de concessionária)", Present: true, AgeDays: intPtr(151), Issue: "Documento vencido: 151 dias (máximo 90): Comprovante de residência (conta de concessionária)"},
		},
		BlockingIssues: []string{
			"Documento obrigatório ausente: Último Contrato Social/Estatuto consolidado",
			"Documento vencido: 151 dias (máximo 90): Comprovante de residência (conta de concessionária)",
		},
		Total:          2,
		PresentCount:   1,
		ComplianceRate: 0,
	}
}

func nonBlockingResult() *triage.ClassificationResult {
	return &triage.ClassificationResult{
		Verdict:    triage.VerdictPendenciaNaoBloqueante,
		Confidence: 0.85,
		DocumentAnalyses: []triage.DocumentAnalysis{
			{RequirementID: "cartao_cnpj", DisplayName: "Cartão CNPJ emitido dentro dos 90 dias", Issue: "Documento ausente (auto-gerável): Cartão CNPJ emitido dentro dos 90 dias"},
		},
		NonBlockingIssues: []string{"Documento ausente (auto-gerável): Cartão CNPJ emitido dentro dos 90 dias"},
		AutoActionable:    []string{"cartao_cnpj"},
		Total:             1,
		ComplianceRate:    0,
	}
}

func TestRender_Deterministic(t *testing.T) {
	t.Parallel()

	for _, mode := range []Mode{ModeDetailed, ModeSummary} {
		a := Render(blockingResult(), testMeta(), mode)
		b := Render(blockingResult(), testMeta(), mode)
		if a != b {
			t.Errorf("mode %s: two renders of the same input differ", mode)
		}
	}
}

func TestRenderDetailed_Approved(t *testing.T) {
	t.Parallel()

	out := Render(approvedResult(), testMeta(), ModeDetailed)

	for _, want := range []string{
		"# ✅ Relatório de Triagem Documental",
		"**Empresa:** Acme Ltda",
		"**CNPJ:** 12.345.678/0001-90",
		"**Caso:** case-123",
		"**Data/Hora:** 01/06/2025 14:30:00",
		"**Analista:** Ana",
		"## Resumo Executivo",
		"**Classificação:** ✅ **Aprovado**",
		"**Confiança:** 100.0% (high)",
		"- Documentos analisados: 2",
		"## Análise por Documento",
		"### Válidos",
		"- ✅ Cartão CNPJ emitido dentro dos 90 dias (30 dias)",
		"Nenhuma pendência identificada.",
		"## Próximos Passos",
		"Documentação aprovada. O caso segue para a equipe de cadastro.",
		"*Relatório gerado automaticamente pelo sift.*",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("detailed report missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "Pendências Bloqueantes") {
		t.Error("approved report should not list blocking issues")
	}
}

func TestRenderDetailed_BlockingIssues(t *testing.T) {
	t.Parallel()

	out := Render(blockingResult(), testMeta(), ModeDetailed)

	for _, want := range []string{
		"# 🚫 Relatório de Triagem Documental",
		"## Pendências Bloqueantes (2)",
		"1. 🚫 Documento obrigatório ausente: Último Contrato Social/Estatuto consolidado",
		"Ação recomendada: Solicitar envio do documento ao cliente",
		"2. 🚫 Documento vencido: 151 dias (máximo 90)",
		"Ação recomendada: Solicitar versão atualizada do documento",
		"### Presentes porém inválidos",
		"- ❌ Comprovante de residência (conta de concessionária) (151 dias)",
		"### Ausentes",
		"Contatar o cliente para regularização das pendências",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("blocking report missing %q\n%s", want, out)
		}
	}
}

func TestRenderDetailed_AutoActions(t *testing.T) {
	t.Parallel()

	out := Render(nonBlockingResult(), testMeta(), ModeDetailed)

	for _, want := range []string{
		"## Ações Automáticas",
		"- Gerar automaticamente: Cartão CNPJ emitido dentro dos 90 dias",
		"## Pendências Não-Bloqueantes (1)",
		"Ação recomendada: Acionar geração automática do documento",
		"A equipe de cadastro deve gerar ou atualizar os documentos pendentes",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("non-blocking report missing %q\n%s", want, out)
		}
	}
}

func TestRenderSummary(t *testing.T) {
	t.Parallel()

	out := Render(blockingResult(), testMeta(), ModeSummary)

	for _, want := range []string{
		"**Status:** 🚫 Pendencia_Bloqueante",
		"**Confiança:** 30.0% (low)",
		"**Documentos:** 0/2 válidos (1 presentes)",
		"**Pendências bloqueantes:** 2",
		"**Gerado em:** 01/06/2025 14:30",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "## ") {
		t.Error("summary should not contain section headers")
	}
}

func TestRenderSummary_NoIssues(t *testing.T) {
	t.Parallel()

	out := Render(approvedResult(), testMeta(), ModeSummary)
	if !strings.Contains(out, "**Pendências:** nenhuma") {
		t.Errorf("summary without issues missing explicit marker\n%s", out)
	}
}

func TestCaseRenderer_ProducesBothModes(t *testing.T) {
	t.Parallel()

	detailed, summary := CaseRenderer{}.Render(approvedResult(), "case-123",
		triage.CaseMetadata{CompanyName: "Acme Ltda", Analyst: "Ana"}, reportNow)

	if !strings.Contains(detailed, "# ✅ Relatório de Triagem Documental") {
		t.Errorf("detailed output wrong:\n%s", detailed)
	}
	if !strings.Contains(summary, "**Status:** ✅ Aprovado") {
		t.Errorf("summary output wrong:\n%s", summary)
	}
}
