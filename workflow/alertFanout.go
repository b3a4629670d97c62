package workflow

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"bitbucket.org/vendaops/salesops_backend/config"
	"bitbucket.org/vendaops/salesops_backend/models"
	"bitbucket.org/vendaops/salesops_backend/utils"
	"github.com/sirupsen/logrus"
)

// BuildGhostAlert turns a scan's newly inserted cases into the payload for
// the notification collaborator. The title escalates when any case is
// critical; the summary carries the new-case count, the top three reps by
// new-case count and the critical/high totals.
func BuildGhostAlert(newCases []models.GhostAuditCase, detectionDate time.Time, correlationId string) config.GhostAlertMessage {
	critical := 0
	high := 0
	sdrCounts := map[string]int{}
	for _, c := range newCases {
		switch c.Severity {
		case models.GhostSeverityCritical:
			critical++
		case models.GhostSeverityHigh:
			high++
		}
		if c.SdrEmail != "" {
			sdrCounts[c.SdrEmail]++
		}
	}

	title := "Ghost appointment audit: new cases detected"
	if critical > 0 {
		title = "Ghost appointment audit: CRITICAL cases detected"
	}

	var summary strings.Builder
	fmt.Fprintf(&summary, "%d new case(s) on %s (%d critical, %d high).",
		len(newCases), detectionDate.Format("2006-01-02"), critical, high)
	if top := topSdrs(sdrCounts, 3); len(top) > 0 {
		fmt.Fprintf(&summary, " Top reps: %s.", strings.Join(top, ", "))
	}

	return config.GhostAlertMessage{
		Title:         title,
		Summary:       summary.String(),
		CasesCount:    len(newCases),
		CriticalCount: critical,
		HighCount:     high,
		SdrCounts:     sdrCounts,
		Link:          config.CaseListBaseURL() + "?detection_date=" + detectionDate.Format("2006-01-02"),
		DetectionDate: detectionDate.Format("2006-01-02"),
		CorrelationId: correlationId,
	}
}

func topSdrs(counts map[string]int, n int) []string {
	type entry struct {
		sdr   string
		count int
	}
	entries := make([]entry, 0, len(counts))
	for sdr, count := range counts {
		entries = append(entries, entry{sdr, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count == entries[j].count {
			return entries[i].sdr < entries[j].sdr
		}
		return entries[i].count > entries[j].count
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, fmt.Sprintf("%s (%d)", e.sdr, e.count))
	}
	return out
}

// PublishGhostAlert is best-effort: a fan-out failure is logged and swallowed,
// never surfaced as a scan failure. Per-recipient de-duplication happens on
// the subscriber side.
func PublishGhostAlert(ctx context.Context, logger *logrus.Logger, msg config.GhostAlertMessage) {
	id, err := config.PublishGhostAlertWithResult(ctx, msg)
	if err != nil {
		config.LogError(logger, "workflow/alertFanout.go", "PublishGhostAlert", "publish",
			map[string]interface{}{"cases_count": msg.CasesCount}, err)
		return
	}
	logger.WithFields(logrus.Fields{
		"module":     "workflow/alertFanout.go",
		"message_id": id,
		"cases":      msg.CasesCount,
	}).Info("ghost alert published")
}

func correlationIdFromContext(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return ""
}
