package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Author accumulates the revenue and sale count credited by settlements.
// Both totals only ever grow. A settlement referencing an author that has no
// row yet creates it with the increment as initial value.
type Author struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Revenue    decimal.Decimal `gorm:"column:revenue;type:numeric(14,2);not null"`
	SalesCount int             `gorm:"column:sales_count;not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the authors table.
func (Author) TableName() string {
	return "authors"
}
