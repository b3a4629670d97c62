package workflow

import (
	"errors"
	"strings"
	"testing"
	"time"

	"bitbucket.org/vendaops/salesops_backend/models"
)

func alertCase(sdr string, severity models.GhostSeverity) models.GhostAuditCase {
	return models.GhostAuditCase{
		DealId:   "deal-x",
		SdrEmail: sdr,
		Severity: severity,
	}
}

func TestBuildGhostAlert_CountsAndEscalation(t *testing.T) {
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	cases := []models.GhostAuditCase{
		alertCase("a@vendaops.com", models.GhostSeverityCritical),
		alertCase("a@vendaops.com", models.GhostSeverityHigh),
		alertCase("b@vendaops.com", models.GhostSeverityMedium),
	}

	msg := BuildGhostAlert(cases, date, "corr-1")
	if !strings.Contains(msg.Title, "CRITICAL") {
		t.Fatalf("expected escalated title, got %q", msg.Title)
	}
	if msg.CasesCount != 3 || msg.CriticalCount != 1 || msg.HighCount != 1 {
		t.Fatalf("unexpected counts: %+v", msg)
	}
	if msg.SdrCounts["a@vendaops.com"] != 2 {
		t.Fatalf("unexpected sdr counts: %+v", msg.SdrCounts)
	}
	if !strings.Contains(msg.Link, "detection_date=2026-03-02") {
		t.Fatalf("deep link missing detection date: %q", msg.Link)
	}
	if msg.CorrelationId != "corr-1" {
		t.Fatalf("correlation id not carried: %q", msg.CorrelationId)
	}
}

func TestBuildGhostAlert_NoCriticalKeepsPlainTitle(t *testing.T) {
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	msg := BuildGhostAlert([]models.GhostAuditCase{
		alertCase("a@vendaops.com", models.GhostSeverityLow),
	}, date, "")
	if strings.Contains(msg.Title, "CRITICAL") {
		t.Fatalf("unexpected escalation: %q", msg.Title)
	}
}

func TestCasesForAlert_ReReadFailureFallsBackToBuiltCases(t *testing.T) {
	built := []models.GhostAuditCase{
		alertCase("a@vendaops.com", models.GhostSeverityHigh),
		alertCase("b@vendaops.com", models.GhostSeverityMedium),
	}

	got := casesForAlert(nil, errors.New("re-read failed"), built)
	if len(got) != len(built) {
		t.Fatalf("expected the built cases to stand in, got %d", len(got))
	}

	// An alert built from the stand-in must not report zero cases.
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	msg := BuildGhostAlert(got, date, "")
	if msg.CasesCount == 0 {
		t.Fatalf("alert reports zero cases despite inserts: %+v", msg)
	}

	loaded := built[:1]
	if got := casesForAlert(loaded, nil, built); len(got) != 1 {
		t.Fatalf("expected the re-read rows to win when the query succeeds, got %d", len(got))
	}
}

func TestTopSdrs_DeterministicOrder(t *testing.T) {
	counts := map[string]int{
		"c@vendaops.com": 2,
		"a@vendaops.com": 2,
		"b@vendaops.com": 5,
		"d@vendaops.com": 1,
	}
	got := topSdrs(counts, 3)
	want := []string{"b@vendaops.com (5)", "a@vendaops.com (2)", "c@vendaops.com (2)"}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: want %q, got %q", i, want[i], got[i])
		}
	}
}
