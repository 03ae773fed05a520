package settlement

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/MyLiaread/Lia-backend/internal/authors"
	"github.com/MyLiaread/Lia-backend/internal/platform"
	"github.com/MyLiaread/Lia-backend/internal/sales"
	"github.com/MyLiaread/Lia-backend/pkg/db"
	"github.com/MyLiaread/Lia-backend/pkg/enums"
	pkgerrors "github.com/MyLiaread/Lia-backend/pkg/errors"
)

// StatusApproved is the one provider status that settles a sale successfully.
// Every other terminal status fails the sale without touching the ledgers.
const StatusApproved = "approved"

// saleNotFoundMessage is the public message the callback contract promises
// for unknown transaction ids.
const saleNotFoundMessage = "Vente introuvable"

// Outcome reports what a settlement did.
type Outcome struct {
	ProviderTxID  string
	Status        enums.SaleStatus
	AuthorShare   decimal.Decimal
	PlatformShare decimal.Decimal

	// Replayed means the sale was already terminal when the callback
	// arrived; nothing was mutated.
	Replayed bool
}

// Service finalizes sales. For an approved settlement the sale flip, the
// author credit and the platform ledger credit commit as a single
// transaction; on any failure none of them are visible.
type Service struct {
	salesRepo   sales.Repository
	authorsRepo authors.Repository
	ledgerRepo  platform.Repository
	txRunner    db.TxRunner

	authorShare   decimal.Decimal
	platformShare decimal.Decimal

	now func() time.Time
}

// ServiceParams wires the settlement service.
type ServiceParams struct {
	SalesRepo   sales.Repository
	AuthorsRepo authors.Repository
	LedgerRepo  platform.Repository
	TxRunner    db.TxRunner

	AuthorShare   decimal.Decimal
	PlatformShare decimal.Decimal

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// NewService validates the wiring, including that the configured shares cover
// the full sale amount.
func NewService(params ServiceParams) (*Service, error) {
	if params.SalesRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "sales repo required")
	}
	if params.AuthorsRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "authors repo required")
	}
	if params.LedgerRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger repo required")
	}
	if params.TxRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if !params.AuthorShare.IsPositive() || !params.PlatformShare.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "revenue shares must be positive")
	}
	if !params.AuthorShare.Add(params.PlatformShare).Equal(decimal.NewFromInt(1)) {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "revenue shares must sum to 1")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		salesRepo:     params.SalesRepo,
		authorsRepo:   params.AuthorsRepo,
		ledgerRepo:    params.LedgerRepo,
		txRunner:      params.TxRunner,
		authorShare:   params.AuthorShare,
		platformShare: params.PlatformShare,
		now:           now,
	}, nil
}

// Settle applies a provider callback to the sale identified by providerTxID.
//
// The whole read-modify-write runs inside one store transaction. The status
// flip is conditional on the sale still being pending, so a redelivered
// callback for an already settled sale is a no-op instead of a double credit.
func (s *Service) Settle(ctx context.Context, providerTxID, providerStatus string) (*Outcome, error) {
	providerTxID = strings.TrimSpace(providerTxID)
	if providerTxID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}

	terminal := enums.SaleStatusFailed
	if providerStatus == StatusApproved {
		terminal = enums.SaleStatusSuccess
	}

	var outcome *Outcome
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		salesRepo := s.salesRepo.WithTx(tx)

		sale, err := salesRepo.FindByProviderTxID(ctx, providerTxID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
		}
		if sale == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, saleNotFoundMessage)
		}

		settledAt := s.now().UTC()
		flipped, err := salesRepo.MarkSettled(ctx, providerTxID, terminal, settledAt)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark sale settled")
		}
		if !flipped {
			outcome = &Outcome{
				ProviderTxID: providerTxID,
				Status:       sale.Status,
				Replayed:     true,
			}
			return nil
		}

		if terminal != enums.SaleStatusSuccess {
			outcome = &Outcome{
				ProviderTxID: providerTxID,
				Status:       enums.SaleStatusFailed,
			}
			return nil
		}

		authorShare := sale.Amount.Mul(s.authorShare)
		platformShare := sale.Amount.Mul(s.platformShare)

		if err := s.authorsRepo.WithTx(tx).ApplyEarnings(ctx, sale.AuthorID, authorShare, settledAt); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit author")
		}
		if err := s.ledgerRepo.WithTx(tx).AddRevenue(ctx, platformShare, settledAt); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit platform ledger")
		}

		outcome = &Outcome{
			ProviderTxID:  providerTxID,
			Status:        enums.SaleStatusSuccess,
			AuthorShare:   authorShare,
			PlatformShare: platformShare,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}
