package models

import (
	"context"
	"time"

	"bitbucket.org/vendaops/salesops_backend/config"
	"bitbucket.org/vendaops/salesops_backend/utils"
)

const ActivityKindStageChange = "stage_change"

// DealActivity is one row of the CRM activity log. It is written by the
// webhook ingestion pipeline and read-only here; ordering by occurred_at is
// the only invariant the detection engine relies on.
type DealActivity struct {
	ID           int       `gorm:"primary_key" json:"id"`
	DealId       string    `gorm:"index;size:64;not null" json:"deal_id"`
	ActivityKind string    `gorm:"index;size:32;not null" json:"activity_kind"`
	FromStage    *string   `gorm:"size:120" json:"from_stage"`
	ToStage      string    `gorm:"size:120;not null" json:"to_stage"`
	OccurredAt   time.Time `gorm:"index;not null" json:"occurred_at"`
	OwnerEmail   string    `gorm:"index;size:120" json:"owner_email"`
	Metadata     []byte    `gorm:"type:json" json:"metadata"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// ListStageChangeEvents returns every stage-change event inside the lookback
// window, ordered so that a deal's events arrive contiguous and oldest-first.
func ListStageChangeEvents(ctx context.Context, daysBack int) ([]DealActivity, error) {
	db := config.GetDB()
	since := time.Now().UTC().AddDate(0, 0, -daysBack)

	var events []DealActivity
	err := db.WithContext(ctx).
		Where("activity_kind = ?", ActivityKindStageChange).
		Where("occurred_at >= ?", since).
		Order("deal_id ASC, occurred_at ASC, id ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Deal is a minimal mirror of the CRM opportunity record. Only the contact
// and SDR fields are consumed here, denormalized onto cases for reviewer
// convenience. Not authoritative.
type Deal struct {
	ID           string    `gorm:"primaryKey;size:64" json:"id"`
	ContactName  string    `gorm:"size:160" json:"contact_name"`
	ContactEmail string    `gorm:"size:160" json:"contact_email"`
	ContactPhone string    `gorm:"size:40" json:"contact_phone"`
	SdrEmail     string    `gorm:"index;size:160" json:"sdr_email"`
	SdrName      string    `gorm:"size:160" json:"sdr_name"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// GetDealContexts loads reviewer context for the given deals in one query.
// Phones are normalized to E.164 on the way out; a deal missing from the CRM
// mirror simply yields no context, never an error.
func GetDealContexts(ctx context.Context, dealIds []string) (map[string]Deal, error) {
	result := make(map[string]Deal, len(dealIds))
	if len(dealIds) == 0 {
		return result, nil
	}

	db := config.GetDB()
	var deals []Deal
	err := db.WithContext(ctx).
		Where("id IN ?", utils.UniqueSlice(dealIds)).
		Find(&deals).Error
	if err != nil {
		return nil, err
	}
	for _, d := range deals {
		d.ContactPhone = utils.NormalizePhone(d.ContactPhone)
		result[d.ID] = d
	}
	return result, nil
}
