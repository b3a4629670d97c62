package models

import "bitbucket.org/vendaops/salesops_backend/config"

// MigrateTable runs AutoMigrate for every table this service owns.
// deal_activities and deals are populated by the ingestion pipeline; the
// schema still lives here so a fresh environment comes up complete.
func MigrateTable() {
	db := config.GetDB()
	err := db.AutoMigrate(
		&DealActivity{},
		&Deal{},
		&GhostAuditCase{},
		&User{},
	)
	if err != nil {
		panic(err)
	}
}
