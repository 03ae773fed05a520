package authors

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/MyLiaread/Lia-backend/pkg/db/models"
)

// Repository manages persistence for author revenue totals.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Author, error)
	ApplyEarnings(ctx context.Context, id uuid.UUID, share decimal.Decimal, at time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an authors repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Author, error) {
	var author models.Author
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&author).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &author, nil
}

// ApplyEarnings credits one settled sale to the author: revenue grows by the
// share, the sale count by one. An author without a row yet is created with
// the increment as initial value.
func (r *repository) ApplyEarnings(ctx context.Context, id uuid.UUID, share decimal.Decimal, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.Author{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"revenue":     gorm.Expr("revenue + ?", share),
			"sales_count": gorm.Expr("sales_count + 1"),
			"updated_at":  at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&models.Author{
		ID:         id,
		Revenue:    share,
		SalesCount: 1,
		CreatedAt:  at,
		UpdatedAt:  at,
	}).Error
}
