package triage

import (
	"strings"
	"testing"
)

func TestNotificationMessage_CapsBlockingIssues(t *testing.T) {
	t.Parallel()

	r := &ClassificationResult{
		Verdict: VerdictPendenciaBloqueante,
		BlockingIssues: []string{
			"Documento obrigatório ausente: A",
			"Documento obrigatório ausente: B",
			"Documento obrigatório ausente: C",
			"Documento obrigatório ausente: D",
			"Documento obrigatório ausente: E",
			"Documento obrigatório ausente: F",
			"Documento obrigatório ausente: G",
		},
	}

	msg := notificationMessage("card-1", CaseMetadata{CompanyName: "Empresa X"}, r)

	if !strings.Contains(msg, "... e mais 2 pendência(s)") {
		t.Errorf("message missing overflow line:\n%s", msg)
	}
	if strings.Contains(msg, "Documento obrigatório ausente: F") {
		t.Errorf("message lists issue beyond the cap:\n%s", msg)
	}
	if !strings.Contains(msg, "Empresa X") {
		t.Errorf("message missing company name:\n%s", msg)
	}
}

func TestNotificationMessage_ApprovalMentionsCounts(t *testing.T) {
	t.Parallel()

	r := &ClassificationResult{Verdict: VerdictAprovado, ValidCount: 11, Total: 11}
	msg := notificationMessage("card-2", CaseMetadata{}, r)

	if !strings.Contains(msg, "aprovado") {
		t.Errorf("message missing approval:\n%s", msg)
	}
	if !strings.Contains(msg, "11/11") {
		t.Errorf("message missing document counts:\n%s", msg)
	}
	if !strings.Contains(msg, "empresa não identificada") {
		t.Errorf("message missing company fallback:\n%s", msg)
	}
}
