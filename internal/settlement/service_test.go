package settlement

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/MyLiaread/Lia-backend/internal/authors"
	"github.com/MyLiaread/Lia-backend/internal/platform"
	"github.com/MyLiaread/Lia-backend/internal/sales"
	"github.com/MyLiaread/Lia-backend/pkg/db/models"
	"github.com/MyLiaread/Lia-backend/pkg/enums"
	pkgerrors "github.com/MyLiaread/Lia-backend/pkg/errors"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func setupSettlementDB(t *testing.T, name string) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	ddl := []string{
		`CREATE TABLE IF NOT EXISTS sales (
  provider_tx_id TEXT PRIMARY KEY,
  book TEXT NOT NULL,
  author_id TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS authors (
  id TEXT PRIMARY KEY,
  revenue NUMERIC NOT NULL DEFAULT 0,
  sales_count INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS platform_ledger (
  id TEXT PRIMARY KEY,
  total_revenue NUMERIC NOT NULL DEFAULT 0,
  updated_at DATETIME
);`,
	}
	for _, stmt := range ddl {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

func newTestService(t *testing.T, conn *gorm.DB) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		SalesRepo:     sales.NewRepository(conn),
		AuthorsRepo:   authors.NewRepository(conn),
		LedgerRepo:    platform.NewRepository(conn),
		TxRunner:      gormTxRunner{db: conn},
		AuthorShare:   decimal.RequireFromString("0.7"),
		PlatformShare: decimal.RequireFromString("0.3"),
	})
	require.NoError(t, err)
	return svc
}

func seedPendingSale(t *testing.T, conn *gorm.DB, txID string, authorID uuid.UUID, amount int64) {
	t.Helper()
	require.NoError(t, conn.Create(&models.Sale{
		ProviderTxID: txID,
		Book:         "Les Soleils des indépendances",
		AuthorID:     authorID,
		Amount:       decimal.NewFromInt(amount),
		Status:       enums.SaleStatusPending,
		CreatedAt:    time.Now().UTC(),
	}).Error)
}

func loadSale(t *testing.T, conn *gorm.DB, txID string) models.Sale {
	t.Helper()
	var sale models.Sale
	require.NoError(t, conn.Where("provider_tx_id = ?", txID).First(&sale).Error)
	return sale
}

func TestSettleApproved(t *testing.T) {
	conn := setupSettlementDB(t, "settle_approved")
	svc := newTestService(t, conn)
	authorID := uuid.New()
	seedPendingSale(t, conn, "tx1", authorID, 1000)

	outcome, err := svc.Settle(context.Background(), "tx1", "approved")
	require.NoError(t, err)
	require.False(t, outcome.Replayed)
	require.Equal(t, enums.SaleStatusSuccess, outcome.Status)
	require.True(t, outcome.AuthorShare.Equal(decimal.NewFromInt(700)), "author share %s", outcome.AuthorShare)
	require.True(t, outcome.PlatformShare.Equal(decimal.NewFromInt(300)), "platform share %s", outcome.PlatformShare)
	require.True(t, outcome.AuthorShare.Add(outcome.PlatformShare).Equal(decimal.NewFromInt(1000)))

	sale := loadSale(t, conn, "tx1")
	require.Equal(t, enums.SaleStatusSuccess, sale.Status)
	require.NotNil(t, sale.UpdatedAt)

	author, err := authors.NewRepository(conn).FindByID(context.Background(), authorID)
	require.NoError(t, err)
	require.NotNil(t, author, "author row should be created with the increment")
	require.True(t, author.Revenue.Equal(decimal.NewFromInt(700)), "revenue %s", author.Revenue)
	require.Equal(t, 1, author.SalesCount)

	ledger, err := platform.NewRepository(conn).Get(context.Background())
	require.NoError(t, err)
	require.NotNil(t, ledger, "ledger row should be created with the increment")
	require.True(t, ledger.TotalRevenue.Equal(decimal.NewFromInt(300)), "ledger %s", ledger.TotalRevenue)
}

func TestSettleApprovedReplayIsNoOp(t *testing.T) {
	conn := setupSettlementDB(t, "settle_replay")
	svc := newTestService(t, conn)
	authorID := uuid.New()
	seedPendingSale(t, conn, "tx1", authorID, 1000)

	_, err := svc.Settle(context.Background(), "tx1", "approved")
	require.NoError(t, err)

	outcome, err := svc.Settle(context.Background(), "tx1", "approved")
	require.NoError(t, err)
	require.True(t, outcome.Replayed)
	require.Equal(t, enums.SaleStatusSuccess, outcome.Status)

	author, err := authors.NewRepository(conn).FindByID(context.Background(), authorID)
	require.NoError(t, err)
	require.True(t, author.Revenue.Equal(decimal.NewFromInt(700)), "replay must not double-credit, got %s", author.Revenue)
	require.Equal(t, 1, author.SalesCount)

	ledger, err := platform.NewRepository(conn).Get(context.Background())
	require.NoError(t, err)
	require.True(t, ledger.TotalRevenue.Equal(decimal.NewFromInt(300)), "replay must not double-credit, got %s", ledger.TotalRevenue)
}

func TestSettleNotApproved(t *testing.T) {
	conn := setupSettlementDB(t, "settle_canceled")
	svc := newTestService(t, conn)
	authorID := uuid.New()
	seedPendingSale(t, conn, "tx2", authorID, 500)

	outcome, err := svc.Settle(context.Background(), "tx2", "canceled")
	require.NoError(t, err)
	require.False(t, outcome.Replayed)
	require.Equal(t, enums.SaleStatusFailed, outcome.Status)

	sale := loadSale(t, conn, "tx2")
	require.Equal(t, enums.SaleStatusFailed, sale.Status)
	require.NotNil(t, sale.UpdatedAt)

	author, err := authors.NewRepository(conn).FindByID(context.Background(), authorID)
	require.NoError(t, err)
	require.Nil(t, author, "failed settlement must not touch the author ledger")

	ledger, err := platform.NewRepository(conn).Get(context.Background())
	require.NoError(t, err)
	require.Nil(t, ledger, "failed settlement must not touch the platform ledger")

	// failed is terminal: a late approved callback does not resurrect the sale
	outcome, err = svc.Settle(context.Background(), "tx2", "approved")
	require.NoError(t, err)
	require.True(t, outcome.Replayed)
	author, err = authors.NewRepository(conn).FindByID(context.Background(), authorID)
	require.NoError(t, err)
	require.Nil(t, author)
}

func TestSettleUnknownTransaction(t *testing.T) {
	conn := setupSettlementDB(t, "settle_unknown")
	svc := newTestService(t, conn)

	_, err := svc.Settle(context.Background(), "unknown", "approved")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
	require.Equal(t, "Vente introuvable", typed.Message())

	var saleCount, authorCount, ledgerCount int64
	require.NoError(t, conn.Model(&models.Sale{}).Count(&saleCount).Error)
	require.NoError(t, conn.Model(&models.Author{}).Count(&authorCount).Error)
	require.NoError(t, conn.Model(&models.PlatformLedger{}).Count(&ledgerCount).Error)
	require.Zero(t, saleCount)
	require.Zero(t, authorCount)
	require.Zero(t, ledgerCount)
}

func TestSettleAccumulates(t *testing.T) {
	conn := setupSettlementDB(t, "settle_accumulate")
	svc := newTestService(t, conn)
	authorID := uuid.New()
	seedPendingSale(t, conn, "tx1", authorID, 1000)
	seedPendingSale(t, conn, "tx2", authorID, 500)

	_, err := svc.Settle(context.Background(), "tx1", "approved")
	require.NoError(t, err)
	_, err = svc.Settle(context.Background(), "tx2", "approved")
	require.NoError(t, err)

	author, err := authors.NewRepository(conn).FindByID(context.Background(), authorID)
	require.NoError(t, err)
	require.True(t, author.Revenue.Equal(decimal.NewFromInt(1050)), "revenue %s", author.Revenue)
	require.Equal(t, 2, author.SalesCount)

	ledger, err := platform.NewRepository(conn).Get(context.Background())
	require.NoError(t, err)
	require.True(t, ledger.TotalRevenue.Equal(decimal.NewFromInt(450)), "ledger %s", ledger.TotalRevenue)
}

func TestSettleValidation(t *testing.T) {
	conn := setupSettlementDB(t, "settle_validation")
	svc := newTestService(t, conn)

	_, err := svc.Settle(context.Background(), "   ", "approved")
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestNewServiceRejectsBadShares(t *testing.T) {
	conn := setupSettlementDB(t, "settle_shares")

	_, err := NewService(ServiceParams{
		SalesRepo:     sales.NewRepository(conn),
		AuthorsRepo:   authors.NewRepository(conn),
		LedgerRepo:    platform.NewRepository(conn),
		TxRunner:      gormTxRunner{db: conn},
		AuthorShare:   decimal.RequireFromString("0.7"),
		PlatformShare: decimal.RequireFromString("0.4"),
	})
	require.Error(t, err)
}
