package sales

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/MyLiaread/Lia-backend/pkg/db/models"
	"github.com/MyLiaread/Lia-backend/pkg/enums"
)

// Repository manages persistence for sales.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, sale *models.Sale) error
	FindByProviderTxID(ctx context.Context, providerTxID string) (*models.Sale, error)
	MarkSettled(ctx context.Context, providerTxID string, status enums.SaleStatus, at time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a sales repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, sale *models.Sale) error {
	return r.db.WithContext(ctx).Create(sale).Error
}

func (r *repository) FindByProviderTxID(ctx context.Context, providerTxID string) (*models.Sale, error) {
	var sale models.Sale
	err := r.db.WithContext(ctx).
		Where("provider_tx_id = ?", providerTxID).
		First(&sale).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// MarkSettled flips a pending sale to the supplied terminal status. The WHERE
// clause on the current status is the replay guard: a sale that already
// settled reports zero affected rows and the caller treats the callback as a
// no-op.
func (r *repository) MarkSettled(ctx context.Context, providerTxID string, status enums.SaleStatus, at time.Time) (bool, error) {
	if !status.IsTerminal() {
		return false, errors.New("settlement status must be terminal")
	}
	res := r.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("provider_tx_id = ? AND status = ?", providerTxID, enums.SaleStatusPending).
		Updates(map[string]any{
			"status":     status,
			"updated_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
