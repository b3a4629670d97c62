package models

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/vendaops/salesops_backend/config"
	"bitbucket.org/vendaops/salesops_backend/utils"
)

type GhostType string

const (
	GhostTypeTipoA                 GhostType = "tipo_a"
	GhostTypeTipoB                 GhostType = "tipo_b"
	GhostTypeCicloInfinito         GhostType = "ciclo_infinito"
	GhostTypeRegressao             GhostType = "regressao"
	GhostTypeExcessoRequalificacao GhostType = "excesso_requalificacao"
	GhostTypeWebhookDuplicado      GhostType = "webhook_duplicado"
)

type GhostSeverity string

const (
	GhostSeverityLow      GhostSeverity = "low"
	GhostSeverityMedium   GhostSeverity = "medium"
	GhostSeverityHigh     GhostSeverity = "high"
	GhostSeverityCritical GhostSeverity = "critical"
)

type GhostReviewStatus string

const (
	GhostReviewStatusPending        GhostReviewStatus = "pending"
	GhostReviewStatusReviewed       GhostReviewStatus = "reviewed"
	GhostReviewStatusConfirmedFraud GhostReviewStatus = "confirmed_fraud"
	GhostReviewStatusFalsePositive  GhostReviewStatus = "false_positive"
)

// MovementEntry is one snapshotted transition of the subsequence that
// triggered a finding.
type MovementEntry struct {
	Date      time.Time `json:"date"`
	FromStage string    `json:"from_stage"`
	ToStage   string    `json:"to_stage"`
	Owner     string    `json:"owner"`
}

// MovementHistory is stored as a JSON column.
type MovementHistory []MovementEntry

func (m MovementHistory) Value() (driver.Value, error) {
	if m == nil {
		return "[]", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *MovementHistory) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported movement history column type %T", value)
	}
}

// GhostAuditCase is one dated observation of a suspicious scheduling pattern
// on a deal. (deal_id, detection_date) is the idempotency key: a same-day
// re-scan is a no-op, a later day's scan inserts a new row. Cases are never
// hard-deleted; disposition lives in status.
type GhostAuditCase struct {
	ID            int       `gorm:"primary_key" json:"id"`
	DealId        string    `gorm:"size:64;not null;uniqueIndex:uniq_deal_detection,priority:1" json:"deal_id"`
	DetectionDate time.Time `gorm:"type:date;not null;uniqueIndex:uniq_deal_detection,priority:2" json:"detection_date"`

	GhostType GhostType     `gorm:"type:enum('tipo_a','tipo_b','ciclo_infinito','regressao','excesso_requalificacao','webhook_duplicado');index;not null" json:"ghost_type"`
	Severity  GhostSeverity `gorm:"type:enum('low','medium','high','critical');index;not null" json:"severity"`

	TotalR1Agendada int             `gorm:"not null;default:0" json:"total_r1_agendada"`
	DistinctDays    int             `gorm:"not null;default:0" json:"distinct_days"`
	NoShowCount     int             `gorm:"not null;default:0" json:"no_show_count"`
	DetectionReason string          `gorm:"type:text" json:"detection_reason"`
	MovementHistory MovementHistory `gorm:"type:json" json:"movement_history"`
	FirstR1Date     *time.Time      `json:"first_r1_date"`
	LastR1Date      *time.Time      `json:"last_r1_date"`

	// Denormalized for reviewer convenience, not authoritative.
	ContactName  string `gorm:"size:160" json:"contact_name"`
	ContactEmail string `gorm:"size:160" json:"contact_email"`
	ContactPhone string `gorm:"size:40" json:"contact_phone"`
	SdrEmail     string `gorm:"index;size:160" json:"sdr_email"`
	SdrName      string `gorm:"size:160" json:"sdr_name"`

	Status      GhostReviewStatus `gorm:"type:enum('pending','reviewed','confirmed_fraud','false_positive');default:'pending';index;not null" json:"status"`
	ReviewedBy  string            `gorm:"size:120" json:"reviewed_by"`
	ReviewedAt  *time.Time        `json:"reviewed_at"`
	ReviewNotes string            `gorm:"type:text" json:"review_notes"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func ParseGhostReviewStatus(s string) (GhostReviewStatus, error) {
	switch GhostReviewStatus(s) {
	case GhostReviewStatusPending, GhostReviewStatusReviewed,
		GhostReviewStatusConfirmedFraud, GhostReviewStatusFalsePositive:
		return GhostReviewStatus(s), nil
	}
	return "", utils.ErrorInvalidReviewStatus
}

func (s GhostReviewStatus) Terminal() bool {
	return s == GhostReviewStatusConfirmedFraud || s == GhostReviewStatusFalsePositive
}

// ValidateReviewTransition enforces the adjudication state machine:
// pending -> reviewed -> {confirmed_fraud, false_positive}, with the reviewed
// step optional (pending may go straight to a terminal state). Leaving a
// terminal state is only possible back to pending, and only when reopening
// is enabled by configuration.
func ValidateReviewTransition(from, to GhostReviewStatus, allowReopen bool) error {
	if from == to {
		return fmt.Errorf("case is already %s", from)
	}
	if from.Terminal() {
		if allowReopen && to == GhostReviewStatusPending {
			return nil
		}
		return fmt.Errorf("case is closed as %s", from)
	}
	switch to {
	case GhostReviewStatusReviewed:
		if from == GhostReviewStatusPending {
			return nil
		}
	case GhostReviewStatusConfirmedFraud, GhostReviewStatusFalsePositive:
		return nil
	case GhostReviewStatusPending:
		// Only reachable via reopen, handled above.
	}
	return fmt.Errorf("cannot move case from %s to %s", from, to)
}

// UpdateGhostAuditCaseReview applies a reviewer's verdict. The acting user is
// taken from the request context; missing identity, unknown id or an invalid
// status all fail closed with no partial update. Last write wins on purpose:
// review is human-paced and low-frequency.
func UpdateGhostAuditCaseReview(ctx context.Context, id int, status string, notes *string) (*GhostAuditCase, error) {
	reviewer, ok := utils.GetUsernameFromContext(ctx)
	if !ok || reviewer == "" {
		return nil, errors.New("reviewer identity is required")
	}
	if id <= 0 {
		return nil, utils.ErrorRecordNotFound
	}

	newStatus, err := ParseGhostReviewStatus(status)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var ghostCase GhostAuditCase
	if err := db.WithContext(ctx).First(&ghostCase, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	if err := ValidateReviewTransition(ghostCase.Status, newStatus, config.AllowReviewReopen()); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":      newStatus,
		"reviewed_by": reviewer,
		"reviewed_at": now,
	}
	if notes != nil {
		updates["review_notes"] = *notes
	}
	if err := db.WithContext(ctx).Model(&GhostAuditCase{}).
		Where("id = ?", id).
		Updates(updates).Error; err != nil {
		return nil, err
	}

	ghostCase.Status = newStatus
	ghostCase.ReviewedBy = reviewer
	ghostCase.ReviewedAt = &now
	if notes != nil {
		ghostCase.ReviewNotes = *notes
	}
	// Stats are derived from cases; drop the cached rollup.
	_ = config.RemoveRedisKey(ghostStatsCacheKey)
	return &ghostCase, nil
}

// GhostCaseFilter narrows the reviewer listing. Nil fields are ignored.
type GhostCaseFilter struct {
	Status    *string
	Severity  *string
	GhostType *string
	// Search matches SDR and contact fields.
	Search   *string
	DateFrom *time.Time
	DateTo   *time.Time
	Limit    int
	Offset   int
}

// ListGhostAuditCases returns cases newest-first with the filter applied,
// plus the unpaginated match count.
func ListGhostAuditCases(ctx context.Context, filter GhostCaseFilter) ([]GhostAuditCase, int64, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&GhostAuditCase{})

	if filter.Status != nil && *filter.Status != "" {
		dbCtx = dbCtx.Where("status = ?", *filter.Status)
	}
	if filter.Severity != nil && *filter.Severity != "" {
		dbCtx = dbCtx.Where("severity = ?", *filter.Severity)
	}
	if filter.GhostType != nil && *filter.GhostType != "" {
		dbCtx = dbCtx.Where("ghost_type = ?", *filter.GhostType)
	}
	if filter.Search != nil && *filter.Search != "" {
		term := "%" + *filter.Search + "%"
		dbCtx = dbCtx.Where(
			"sdr_email LIKE ? OR sdr_name LIKE ? OR contact_name LIKE ? OR contact_email LIKE ?",
			term, term, term, term,
		)
	}
	if filter.DateFrom != nil {
		dbCtx = dbCtx.Where("detection_date >= ?", filter.DateFrom.Format("2006-01-02"))
	}
	if filter.DateTo != nil {
		dbCtx = dbCtx.Where("detection_date <= ?", filter.DateTo.Format("2006-01-02"))
	}

	var total int64
	if err := dbCtx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = config.SearchLimit
	} else if limit > 500 {
		limit = 500
	}

	var cases []GhostAuditCase
	err := dbCtx.
		Order("detection_date DESC, id DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&cases).Error
	if err != nil {
		return nil, 0, err
	}
	return cases, total, nil
}

const ghostStatsCacheKey = "GhostAuditStats"

// GhostAuditStats is the derived rollup for the review dashboard. Recomputed
// on demand from the case table, never stored.
type GhostAuditStats struct {
	Total      int64            `json:"total"`
	ByStatus   map[string]int64 `json:"by_status"`
	Critical   int64            `json:"critical"`
	High       int64            `json:"high"`
	BySalesRep map[string]int64 `json:"by_sales_rep"`
	ComputedAt time.Time        `json:"computed_at"`
}

type statusCountRow struct {
	Status string
	C      int64
}

type sdrCountRow struct {
	SdrEmail string
	C        int64
}

func GetGhostAuditStats(ctx context.Context) (*GhostAuditStats, error) {
	var cached GhostAuditStats
	if exists, err := config.GetRedisObject(ghostStatsCacheKey, &cached); err == nil && exists {
		return &cached, nil
	}

	db := config.GetDB()
	stats := GhostAuditStats{
		ByStatus:   map[string]int64{},
		BySalesRep: map[string]int64{},
		ComputedAt: time.Now().UTC(),
	}

	if err := db.WithContext(ctx).Model(&GhostAuditCase{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	var statusRows []statusCountRow
	if err := db.WithContext(ctx).Model(&GhostAuditCase{}).
		Select("status, COUNT(*) AS c").
		Group("status").
		Scan(&statusRows).Error; err != nil {
		return nil, err
	}
	for _, row := range statusRows {
		stats.ByStatus[row.Status] = row.C
	}

	if err := db.WithContext(ctx).Model(&GhostAuditCase{}).
		Where("severity = ?", GhostSeverityCritical).
		Count(&stats.Critical).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&GhostAuditCase{}).
		Where("severity = ?", GhostSeverityHigh).
		Count(&stats.High).Error; err != nil {
		return nil, err
	}

	var sdrRows []sdrCountRow
	if err := db.WithContext(ctx).Model(&GhostAuditCase{}).
		Select("sdr_email, COUNT(*) AS c").
		Group("sdr_email").
		Scan(&sdrRows).Error; err != nil {
		return nil, err
	}
	for _, row := range sdrRows {
		if row.SdrEmail == "" {
			continue
		}
		stats.BySalesRep[row.SdrEmail] = row.C
	}

	_ = config.SetRedisObject(ghostStatsCacheKey, stats, time.Minute)
	return &stats, nil
}
