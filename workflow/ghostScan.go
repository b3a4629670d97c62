package workflow

import (
	"context"
	"time"

	"bitbucket.org/vendaops/salesops_backend/config"
	"bitbucket.org/vendaops/salesops_backend/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// GhostScanOptions is the external trigger input.
type GhostScanOptions struct {
	DaysBack     int
	CreateAlerts bool
}

type ScanSeverityStats struct {
	Total    int `json:"total"`
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

// GhostScanResult is the trigger response. NewCases counts rows actually
// inserted this run; TotalDetected counts findings including same-day
// duplicates suppressed by the dedup key, so a caller can tell "nothing
// detected" apart from "already recorded today".
type GhostScanResult struct {
	Success        bool                    `json:"success"`
	NewCases       int                     `json:"new_cases"`
	TotalDetected  int                     `json:"total_detected"`
	ProcessedDeals int                     `json:"processed_deals"`
	SkippedDeals   int                     `json:"skipped_deals"`
	FailedBatches  int                     `json:"failed_batches"`
	Stats          ScanSeverityStats       `json:"stats"`
	ByType         map[string]int          `json:"byType"`
	Cases          []models.GhostAuditCase `json:"cases"`
}

// GhostScanner runs one detection pass. Stateless between runs; safe to
// invoke concurrently because the classifier is pure and the persister's
// conflict-ignore upsert is the single point of truth for dedup.
type GhostScanner struct {
	DB      *gorm.DB
	Logger  *logrus.Logger
	Config  config.DetectionConfig
	Catalog *models.StageCatalog
	RunID   string
}

func NewGhostScanner(db *gorm.DB, logger *logrus.Logger) *GhostScanner {
	return &GhostScanner{
		DB:      db,
		Logger:  logger,
		Config:  config.DefaultDetectionConfig(),
		Catalog: models.DefaultStageCatalog(),
		RunID:   uuid.NewString(),
	}
}

// Run executes the full pipeline: read -> sequence -> classify -> score ->
// persist -> alert. An upstream read failure aborts before any
// classification; everything after tolerates partial failure.
func (s *GhostScanner) Run(ctx context.Context, opts GhostScanOptions) (*GhostScanResult, error) {
	daysBack := opts.DaysBack
	if daysBack <= 0 {
		daysBack = s.Config.DaysBack
	}

	scanStart := time.Now().UTC()
	detectionDate := scanStart.Truncate(24 * time.Hour)

	events, err := models.ListStageChangeEvents(ctx, daysBack)
	if err != nil {
		config.LogError(s.Logger, "workflow/ghostScan.go", "Run", "read activity log",
			map[string]interface{}{"run_id": s.RunID, "days_back": daysBack}, err)
		return nil, err
	}

	sequences, skipped := BuildSequences(events, s.Catalog)
	if len(skipped) > 0 {
		s.Logger.WithFields(logrus.Fields{
			"module":  "workflow/ghostScan.go",
			"run_id":  s.RunID,
			"skipped": len(skipped),
			"deals":   skipped,
		}).Warn("deals skipped: unresolvable stage labels")
	}

	result := &GhostScanResult{
		Success:        true,
		ProcessedDeals: len(sequences),
		SkippedDeals:   len(skipped),
		ByType:         map[string]int{},
		Cases:          []models.GhostAuditCase{},
	}

	var findings []*Finding
	var flaggedSeqs []TransitionSequence
	dealIds := make([]string, 0)
	for _, seq := range sequences {
		f := Classify(seq, s.Config, s.Catalog)
		if f == nil {
			continue
		}
		findings = append(findings, f)
		flaggedSeqs = append(flaggedSeqs, seq)
		dealIds = append(dealIds, seq.DealId)
	}
	result.TotalDetected = len(findings)
	if len(findings) == 0 {
		return result, nil
	}

	// Reviewer context; a missing mirror row degrades to empty contact fields.
	dealContexts, err := models.GetDealContexts(ctx, dealIds)
	if err != nil {
		config.LogError(s.Logger, "workflow/ghostScan.go", "Run", "load deal contexts",
			map[string]interface{}{"run_id": s.RunID}, err)
		dealContexts = map[string]models.Deal{}
	}

	cases := make([]models.GhostAuditCase, 0, len(findings))
	for i, f := range findings {
		severity := ScoreSeverity(f, s.Config)
		ghostCase := BuildGhostCase(flaggedSeqs[i], f, severity, detectionDate, dealContexts[flaggedSeqs[i].DealId])
		cases = append(cases, ghostCase)

		result.Stats.Total++
		switch severity {
		case models.GhostSeverityCritical:
			result.Stats.Critical++
		case models.GhostSeverityHigh:
			result.Stats.High++
		case models.GhostSeverityMedium:
			result.Stats.Medium++
		case models.GhostSeverityLow:
			result.Stats.Low++
		}
		result.ByType[string(f.Type)]++
	}

	inserted, failedBatches := PersistGhostCases(ctx, s.DB, s.Logger, cases, s.Config.PersistBatchSize)
	result.NewCases = inserted
	result.FailedBatches = failedBatches
	if inserted > 0 {
		// Stats are derived from cases; drop the cached rollup.
		_ = config.RemoveRedisKey("GhostAuditStats")
	}

	loaded, loadErr := s.loadInsertedCases(ctx, detectionDate, scanStart)
	if loadErr != nil {
		config.LogError(s.Logger, "workflow/ghostScan.go", "Run", "load inserted cases",
			map[string]interface{}{"run_id": s.RunID}, loadErr)
	}
	newCases := casesForAlert(loaded, loadErr, cases)
	if len(newCases) > 10 {
		result.Cases = newCases[:10]
	} else if newCases != nil {
		result.Cases = newCases
	}

	if opts.CreateAlerts && config.ScanAlertsEnabled() && inserted > 0 {
		alert := BuildGhostAlert(newCases, detectionDate, correlationIdFromContext(ctx))
		PublishGhostAlert(ctx, s.Logger, alert)
	}

	s.Logger.WithFields(logrus.Fields{
		"module":         "workflow/ghostScan.go",
		"run_id":         s.RunID,
		"processed":      result.ProcessedDeals,
		"detected":       result.TotalDetected,
		"new_cases":      result.NewCases,
		"failed_batches": result.FailedBatches,
	}).Info("ghost scan finished")

	return result, nil
}

// casesForAlert picks the rows that feed the alert and the trigger response.
// When the re-read of inserted rows fails, the locally built cases stand in:
// a run that inserted rows must never alert with an empty set. The stand-in
// may overcount by same-day duplicates, which is the acceptable direction.
func casesForAlert(loaded []models.GhostAuditCase, loadErr error, built []models.GhostAuditCase) []models.GhostAuditCase {
	if loadErr != nil {
		return built
	}
	return loaded
}

// loadInsertedCases re-reads the rows this run actually inserted (the
// conflict-ignore upsert does not report which ones it kept).
func (s *GhostScanner) loadInsertedCases(ctx context.Context, detectionDate, scanStart time.Time) ([]models.GhostAuditCase, error) {
	var rows []models.GhostAuditCase
	err := s.DB.WithContext(ctx).
		Where("detection_date = ?", detectionDate.Format("2006-01-02")).
		Where("created_at >= ?", scanStart.Add(-time.Second)).
		Order("severity DESC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
