package config

import (
	"os"
	"strings"
)

// AllowReviewReopen permits moving a case out of a terminal review state
// (confirmed_fraud / false_positive) back to pending for correction.
// Business policy has not settled this, so it ships as an explicit flag
// and defaults to off.
//
// Set via env:
// - GHOST_REVIEW_ALLOW_REOPEN=true
func AllowReviewReopen() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("GHOST_REVIEW_ALLOW_REOPEN")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// ScanAlertsEnabled is the global kill switch for alert fan-out; the
// per-request create_alerts flag is still honored when this is on.
//
// Set via env:
// - GHOST_SCAN_ALERTS=false
func ScanAlertsEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("GHOST_SCAN_ALERTS")))
	if v == "" {
		return true
	}
	return v != "0" && v != "false" && v != "no" && v != "n"
}
