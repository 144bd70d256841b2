// Package report renders triage classification results as Markdown. Both
// render modes are pure functions of their inputs: identical inputs produce
// byte-identical output, which the snapshot tests rely on.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/linnemanlabs/sift/internal/triage"
)

// Mode selects the rendering shape.
type Mode string

const (
	// ModeDetailed is the full Markdown report archived with the case.
	ModeDetailed Mode = "detailed"
	// ModeSummary is the compact projection written to the board field.
	ModeSummary Mode = "summary"
)

// Metadata carries the case-level fields stamped onto reports.
type Metadata struct {
	CaseID         string
	CompanyName    string
	RegistrationID string
	Analyst        string
	GeneratedAt    time.Time
}

// Render produces the report text for a classification result. It never
// fails for any well-formed result; an empty issue set renders an explicit
// "no pending issues" section.
func Render(result *triage.ClassificationResult, meta Metadata, mode Mode) string {
	if mode == ModeSummary {
		return renderSummary(result, meta)
	}
	return renderDetailed(result, meta)
}

func renderSummary(r *triage.ClassificationResult, meta Metadata) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Status:** %s %s\n", verdictEmoji(r.Verdict), r.Verdict)
	fmt.Fprintf(&b, "**Confiança:** %.1f%% (%s)\n", r.Confidence*100, triage.Band(r.Confidence))
	fmt.Fprintf(&b, "**Documentos:** %d/%d válidos (%d presentes)\n", r.ValidCount, r.Total, r.PresentCount)
	if n := len(r.BlockingIssues); n > 0 {
		fmt.Fprintf(&b, "**Pendências bloqueantes:** %d\n", n)
	}
	if n := len(r.NonBlockingIssues); n > 0 {
		fmt.Fprintf(&b, "**Pendências não-bloqueantes:** %d\n", n)
	}
	if len(r.BlockingIssues) == 0 && len(r.NonBlockingIssues) == 0 {
		b.WriteString("**Pendências:** nenhuma\n")
	}
	if n := len(r.AutoActionable); n > 0 {
		fmt.Fprintf(&b, "**Ações automáticas disponíveis:** %d\n", n)
	}
	fmt.Fprintf(&b, "**Gerado em:** %s", meta.GeneratedAt.UTC().Format("02/01/2006 15:04"))
	return b.String()
}

func renderDetailed(r *triage.ClassificationResult, meta Metadata) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s Relatório de Triagem Documental\n\n", verdictEmoji(r.Verdict))
	if meta.CompanyName != "" {
		fmt.Fprintf(&b, "**Empresa:** %s\n", meta.CompanyName)
	}
	if meta.RegistrationID != "" {
		fmt.Fprintf(&b, "**CNPJ:** %s\n", meta.RegistrationID)
	}
	if meta.CaseID != "" {
		fmt.Fprintf(&b, "**Caso:** %s\n", meta.CaseID)
	}
	fmt.Fprintf(&b, "**Data/Hora:** %s\n", meta.GeneratedAt.UTC().Format("02/01/2006 15:04:05"))
	if meta.Analyst != "" {
		fmt.Fprintf(&b, "**Analista:** %s\n", meta.Analyst)
	}

	b.WriteString("\n## Resumo Executivo\n\n")
	fmt.Fprintf(&b, "**Classificação:** %s **%s**\n", verdictEmoji(r.Verdict), r.Verdict)
	fmt.Fprintf(&b, "**Confiança:** %.1f%% (%s)\n\n", r.Confidence*100, triage.Band(r.Confidence))
	fmt.Fprintf(&b, "- Documentos analisados: %d\n", r.Total)
	fmt.Fprintf(&b, "- Presentes: %d\n", r.PresentCount)
	fmt.Fprintf(&b, "- Válidos: %d\n", r.ValidCount)
	fmt.Fprintf(&b, "- Taxa de conformidade: %.1f%%\n", r.ComplianceRate*100)

	writeBreakdown(&b, r)
	writeIssues(&b, r)

	if len(r.AutoActionable) > 0 {
		b.WriteString("\n## Ações Automáticas\n\n")
		for _, id := range r.AutoActionable {
			fmt.Fprintf(&b, "- Gerar automaticamente: %s\n", displayName(r, id))
		}
	}

	b.WriteString("\n## Próximos Passos\n\n")
	b.WriteString(nextSteps(r.Verdict))

	b.WriteString("\n---\n*Relatório gerado automaticamente pelo sift.*\n")
	return b.String()
}

func writeBreakdown(b *strings.Builder, r *triage.ClassificationResult) {
	var valid, invalid, missing []triage.DocumentAnalysis
	for _, a := range r.DocumentAnalyses {
		switch {
		case a.Valid:
			valid = append(valid, a)
		case a.Present:
			invalid = append(invalid, a)
		default:
			missing = append(missing, a)
		}
	}

	b.WriteString("\n## Análise por Documento\n")
	writeGroup(b, "Válidos", valid)
	writeGroup(b, "Presentes porém inválidos", invalid)
	writeGroup(b, "Ausentes", missing)
}

func writeGroup(b *strings.Builder, title string, group []triage.DocumentAnalysis) {
	if len(group) == 0 {
		return
	}
	fmt.Fprintf(b, "\n### %s\n\n", title)
	for _, a := range group {
		icon := "❌"
		if a.Valid {
			icon = "✅"
		}
		fmt.Fprintf(b, "- %s %s", icon, a.DisplayName)
		if a.AgeDays != nil {
			fmt.Fprintf(b, " (%d dias)", *a.AgeDays)
		}
		b.WriteString("\n")
	}
}

func writeIssues(b *strings.Builder, r *triage.ClassificationResult) {
	if len(r.BlockingIssues) == 0 && len(r.NonBlockingIssues) == 0 {
		b.WriteString("\n## Pendências\n\nNenhuma pendência identificada.\n")
		return
	}

	if len(r.BlockingIssues) > 0 {
		fmt.Fprintf(b, "\n## Pendências Bloqueantes (%d)\n\n", len(r.BlockingIssues))
		for i, issue := range r.BlockingIssues {
			fmt.Fprintf(b, "%d. 🚫 %s\n   - Ação recomendada: %s\n", i+1, issue, recommendedAction(issue))
		}
	}
	if len(r.NonBlockingIssues) > 0 {
		fmt.Fprintf(b, "\n## Pendências Não-Bloqueantes (%d)\n\n", len(r.NonBlockingIssues))
		for i, issue := range r.NonBlockingIssues {
			fmt.Fprintf(b, "%d. ⚠️ %s\n   - Ação recomendada: %s\n", i+1, issue, recommendedAction(issue))
		}
	}
}

// recommendedAction maps an issue to the operator guidance shown next to
// it. Matching is by the issue prefixes the engine emits.
func recommendedAction(issue string) string {
	switch {
	case strings.HasPrefix(issue, "Documento ausente (auto-gerável)"):
		return "Acionar geração automática do documento"
	case strings.HasPrefix(issue, "Documento obrigatório ausente"):
		return "Solicitar envio do documento ao cliente"
	case strings.HasPrefix(issue, "Documento vencido"):
		return "Solicitar versão atualizada do documento"
	case strings.HasPrefix(issue, "Data do documento ilegível"):
		return "Solicitar reenvio com data de emissão legível"
	case strings.HasPrefix(issue, "Nenhum documento financeiro"):
		return "Solicitar ao menos um documento financeiro assinado"
	default:
		return "Revisar o documento com o cliente"
	}
}

func nextSteps(v triage.Verdict) string {
	switch v {
	case triage.VerdictAprovado:
		return "Documentação aprovada. O caso segue para a equipe de cadastro.\n"
	case triage.VerdictPendenciaBloqueante:
		return "Contatar o cliente para regularização das pendências e reenviar o caso após correções.\n"
	default:
		return "A equipe de cadastro deve gerar ou atualizar os documentos pendentes e finalizar a documentação.\n"
	}
}

func verdictEmoji(v triage.Verdict) string {
	switch v {
	case triage.VerdictAprovado:
		return "✅"
	case triage.VerdictPendenciaBloqueante:
		return "🚫"
	default:
		return "⚠️"
	}
}

func displayName(r *triage.ClassificationResult, id string) string {
	for _, a := range r.DocumentAnalyses {
		if a.RequirementID == id {
			return a.DisplayName
		}
	}
	return id
}
