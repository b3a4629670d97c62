package workflow

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/vendaops/salesops_backend/config"
	"bitbucket.org/vendaops/salesops_backend/models"
	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const mysqlDuplicateEntry = 1062

func isDuplicateKeyError(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}

// BuildGhostCase assembles the persisted case from a finding and the deal's
// denormalized reviewer context.
func BuildGhostCase(seq TransitionSequence, f *Finding, severity models.GhostSeverity, detectionDate time.Time, deal models.Deal) models.GhostAuditCase {
	return models.GhostAuditCase{
		DealId:        seq.DealId,
		DetectionDate: detectionDate,

		GhostType: f.Type,
		Severity:  severity,

		TotalR1Agendada: f.TotalR1Agendada,
		DistinctDays:    f.DistinctDays,
		NoShowCount:     f.NoShowCount,
		DetectionReason: f.Reason,
		MovementHistory: f.Movements,
		FirstR1Date:     f.FirstR1Date,
		LastR1Date:      f.LastR1Date,

		ContactName:  deal.ContactName,
		ContactEmail: deal.ContactEmail,
		ContactPhone: deal.ContactPhone,
		SdrEmail:     deal.SdrEmail,
		SdrName:      deal.SdrName,

		Status: models.GhostReviewStatusPending,
	}
}

// PersistGhostCases inserts cases in chunks with conflict-ignore on the
// (deal_id, detection_date) natural key, so a same-day re-run is a no-op
// instead of a duplicator. A failed chunk is logged and counted; chunks
// already committed stay committed and the remaining ones still run.
// Returns the number of rows actually inserted.
func PersistGhostCases(ctx context.Context, db *gorm.DB, logger *logrus.Logger, cases []models.GhostAuditCase, batchSize int) (inserted int, failedBatches int) {
	if batchSize <= 0 {
		batchSize = 100
	}
	for start := 0; start < len(cases); start += batchSize {
		end := start + batchSize
		if end > len(cases) {
			end = len(cases)
		}
		chunk := make([]models.GhostAuditCase, end-start)
		copy(chunk, cases[start:end])

		result := db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&chunk)
		if result.Error != nil {
			// Retry row by row so one bad row cannot sink its whole chunk.
			// A 1062 here is the dedup key doing its job, not a failure.
			rowFailures := 0
			for i := range chunk {
				rowRes := db.WithContext(ctx).
					Clauses(clause.OnConflict{DoNothing: true}).
					Create(&chunk[i])
				if rowRes.Error != nil {
					if isDuplicateKeyError(rowRes.Error) {
						continue
					}
					rowFailures++
					config.LogError(logger, "workflow/persister.go", "PersistGhostCases", "insert row",
						map[string]interface{}{"deal_id": chunk[i].DealId}, rowRes.Error)
					continue
				}
				inserted += int(rowRes.RowsAffected)
			}
			if rowFailures > 0 {
				failedBatches++
				config.LogError(logger, "workflow/persister.go", "PersistGhostCases", "insert chunk",
					map[string]interface{}{"from": start, "to": end, "row_failures": rowFailures}, result.Error)
			}
			continue
		}
		inserted += int(result.RowsAffected)
	}
	return inserted, failedBatches
}
