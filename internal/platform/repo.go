package platform

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/MyLiaread/Lia-backend/pkg/db/models"
)

// Repository manages the singleton platform ledger aggregate.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	AddRevenue(ctx context.Context, share decimal.Decimal, at time.Time) error
	Get(ctx context.Context) (*models.PlatformLedger, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a platform ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// AddRevenue credits the platform share of a settled sale. Merge-on-absent:
// the first settlement creates the ledger row with the increment as its
// initial total.
func (r *repository) AddRevenue(ctx context.Context, share decimal.Decimal, at time.Time) error {
	return r.db.WithContext(ctx).Exec(`
INSERT INTO platform_ledger (id, total_revenue, updated_at)
VALUES (?, ?, ?)
ON CONFLICT (id) DO UPDATE
SET total_revenue = platform_ledger.total_revenue + excluded.total_revenue,
    updated_at = excluded.updated_at`,
		models.PlatformLedgerKey, share, at).Error
}

func (r *repository) Get(ctx context.Context) (*models.PlatformLedger, error) {
	var ledger models.PlatformLedger
	err := r.db.WithContext(ctx).
		Where("id = ?", models.PlatformLedgerKey).
		First(&ledger).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ledger, nil
}
