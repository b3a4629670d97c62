package models

import "testing"

// NOTE: These tests are intentionally DB-free. The state machine is pure; the
// database update around it only applies what ValidateReviewTransition allows.

func TestReviewTransition_DirectPendingToTerminal(t *testing.T) {
	if err := ValidateReviewTransition(GhostReviewStatusPending, GhostReviewStatusConfirmedFraud, false); err != nil {
		t.Fatalf("pending -> confirmed_fraud should be allowed: %v", err)
	}
	if err := ValidateReviewTransition(GhostReviewStatusPending, GhostReviewStatusFalsePositive, false); err != nil {
		t.Fatalf("pending -> false_positive should be allowed: %v", err)
	}
}

func TestReviewTransition_ThroughReviewed(t *testing.T) {
	if err := ValidateReviewTransition(GhostReviewStatusPending, GhostReviewStatusReviewed, false); err != nil {
		t.Fatalf("pending -> reviewed should be allowed: %v", err)
	}
	if err := ValidateReviewTransition(GhostReviewStatusReviewed, GhostReviewStatusConfirmedFraud, false); err != nil {
		t.Fatalf("reviewed -> confirmed_fraud should be allowed: %v", err)
	}
}

func TestReviewTransition_TerminalIsFinalByDefault(t *testing.T) {
	for _, from := range []GhostReviewStatus{GhostReviewStatusConfirmedFraud, GhostReviewStatusFalsePositive} {
		for _, to := range []GhostReviewStatus{GhostReviewStatusPending, GhostReviewStatusReviewed, GhostReviewStatusConfirmedFraud, GhostReviewStatusFalsePositive} {
			if from == to {
				continue
			}
			if err := ValidateReviewTransition(from, to, false); err == nil {
				t.Fatalf("%s -> %s should be rejected while reopening is disabled", from, to)
			}
		}
	}
}

func TestReviewTransition_ReopenOnlyBackToPending(t *testing.T) {
	if err := ValidateReviewTransition(GhostReviewStatusConfirmedFraud, GhostReviewStatusPending, true); err != nil {
		t.Fatalf("reopen to pending should be allowed when enabled: %v", err)
	}
	if err := ValidateReviewTransition(GhostReviewStatusConfirmedFraud, GhostReviewStatusFalsePositive, true); err == nil {
		t.Fatal("terminal -> terminal should stay rejected even with reopening enabled")
	}
	if err := ValidateReviewTransition(GhostReviewStatusFalsePositive, GhostReviewStatusReviewed, true); err == nil {
		t.Fatal("terminal -> reviewed should stay rejected even with reopening enabled")
	}
}

func TestReviewTransition_SameStatusRejected(t *testing.T) {
	if err := ValidateReviewTransition(GhostReviewStatusPending, GhostReviewStatusPending, true); err == nil {
		t.Fatal("no-op transition should be rejected")
	}
}

func TestReviewTransition_ReviewedCannotGoBackToPending(t *testing.T) {
	if err := ValidateReviewTransition(GhostReviewStatusReviewed, GhostReviewStatusPending, false); err == nil {
		t.Fatal("reviewed -> pending should be rejected")
	}
}

func TestParseGhostReviewStatus_FailsClosed(t *testing.T) {
	for _, bad := range []string{"", "PENDING", "fraud", "confirmed", "deleted"} {
		if _, err := ParseGhostReviewStatus(bad); err == nil {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
	got, err := ParseGhostReviewStatus("confirmed_fraud")
	if err != nil || got != GhostReviewStatusConfirmedFraud {
		t.Fatalf("expected confirmed_fraud to parse, got %v / %v", got, err)
	}
}
