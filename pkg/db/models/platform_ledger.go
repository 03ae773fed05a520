package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlatformLedgerKey identifies the single platform-wide ledger row.
const PlatformLedgerKey = "global"

// PlatformLedger is the singleton aggregate holding the platform's cumulative
// share of settled sales. Writes use upsert-increment semantics so a missing
// row is created with the first increment.
type PlatformLedger struct {
	ID           string          `gorm:"column:id;primaryKey"`
	TotalRevenue decimal.Decimal `gorm:"column:total_revenue;type:numeric(14,2);not null"`
	UpdatedAt    time.Time       `gorm:"column:updated_at"`
}

// TableName pins the platform ledger table.
func (PlatformLedger) TableName() string {
	return "platform_ledger"
}
