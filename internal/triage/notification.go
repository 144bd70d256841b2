package triage

import (
	"fmt"
	"strings"
)

// maxNotifiedIssues caps how many blocking issues a notification lists.
const maxNotifiedIssues = 5

// notificationMessage builds the human notification text for a verdict.
// Only blocking and approval verdicts notify; non-blocking pendencies are
// handled by automation and stay out of the analyst's phone.
func notificationMessage(caseID string, meta CaseMetadata, result *ClassificationResult) string {
	var b strings.Builder

	company := meta.CompanyName
	if company == "" {
		company = "empresa não identificada"
	}

	switch result.Verdict {
	case VerdictAprovado:
		fmt.Fprintf(&b, "✅ *Caso %s aprovado*\n\n", caseID)
		fmt.Fprintf(&b, "Empresa: %s\n", company)
		fmt.Fprintf(&b, "Documentação completa: %d/%d documentos válidos.\n", result.ValidCount, result.Total)
		b.WriteString("Nenhuma ação necessária.")

	case VerdictPendenciaBloqueante:
		fmt.Fprintf(&b, "🚫 *Caso %s com pendências bloqueantes*\n\n", caseID)
		fmt.Fprintf(&b, "Empresa: %s\n", company)
		b.WriteString("Pendências:\n")
		issues := result.BlockingIssues
		overflow := 0
		if len(issues) > maxNotifiedIssues {
			overflow = len(issues) - maxNotifiedIssues
			issues = issues[:maxNotifiedIssues]
		}
		for i, issue := range issues {
			fmt.Fprintf(&b, "%d. %s\n", i+1, issue)
		}
		if overflow > 0 {
			fmt.Fprintf(&b, "... e mais %d pendência(s)\n", overflow)
		}
		b.WriteString("\nAção necessária: regularizar a documentação antes de prosseguir.")

	default:
		fmt.Fprintf(&b, "⚠️ *Caso %s com pendências não-bloqueantes*\n\n", caseID)
		fmt.Fprintf(&b, "Empresa: %s\n", company)
		fmt.Fprintf(&b, "Pendências em tratamento automático: %d.", len(result.NonBlockingIssues))
	}

	return b.String()
}
