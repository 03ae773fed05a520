package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MyLiaread/Lia-backend/pkg/enums"
)

// Sale records one purchase attempt, keyed by the FedaPay transaction id the
// provider assigned at mint time. UpdatedAt stays unset until the sale
// settles.
type Sale struct {
	ProviderTxID string           `gorm:"column:provider_tx_id;primaryKey"`
	Book         string           `gorm:"column:book;not null"`
	AuthorID     uuid.UUID        `gorm:"column:author_id;type:uuid;not null;index"`
	Amount       decimal.Decimal  `gorm:"column:amount;type:numeric(12,2);not null"`
	Status       enums.SaleStatus `gorm:"column:status;not null;default:'pending'"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    *time.Time       `gorm:"column:updated_at"`
}

// TableName pins the sales table.
func (Sale) TableName() string {
	return "sales"
}
