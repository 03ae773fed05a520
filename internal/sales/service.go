package sales

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MyLiaread/Lia-backend/pkg/db"
	"github.com/MyLiaread/Lia-backend/pkg/db/models"
	"github.com/MyLiaread/Lia-backend/pkg/enums"
	pkgerrors "github.com/MyLiaread/Lia-backend/pkg/errors"
	"github.com/MyLiaread/Lia-backend/pkg/fedapay"
	"github.com/MyLiaread/Lia-backend/pkg/metrics"
)

// ProviderClient is the slice of the FedaPay client the intent creator needs.
type ProviderClient interface {
	CreateTransaction(ctx context.Context, params fedapay.TransactionCreateParams) (*fedapay.Transaction, error)
}

// Service mints payment intents with the provider and persists pending sales.
type Service interface {
	CreatePaymentIntent(ctx context.Context, input CreatePaymentIntentInput) (*PaymentIntent, error)
}

// CreatePaymentIntentInput carries one purchase request.
type CreatePaymentIntentInput struct {
	Book     string
	AuthorID uuid.UUID
	Amount   decimal.Decimal
}

// PaymentIntent is the minted transaction the buyer is redirected to.
type PaymentIntent struct {
	ProviderTxID string
	PaymentURL   string
}

// ServiceParams wires the intent creator.
type ServiceParams struct {
	Repo        Repository
	Provider    ProviderClient
	CallbackURL string
	Metrics     *metrics.SettlementMetrics

	// Now overrides the clock, for tests.
	Now func() time.Time
}

type service struct {
	repo        Repository
	provider    ProviderClient
	callbackURL string
	metrics     *metrics.SettlementMetrics
	now         func() time.Time
}

// NewService validates the wiring for the intent creator.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "sales repo required")
	}
	if params.Provider == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "provider client required")
	}
	if strings.TrimSpace(params.CallbackURL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "callback url required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:        params.Repo,
		provider:    params.Provider,
		callbackURL: params.CallbackURL,
		metrics:     params.Metrics,
		now:         now,
	}, nil
}

// CreatePaymentIntent mints a provider transaction and stores the pending
// sale under the provider id. Provider failures persist nothing: a sale only
// exists once there is a provider id to key it by. Repeated purchase requests
// mint distinct transactions; deduplication is out of scope.
func (s *service) CreatePaymentIntent(ctx context.Context, input CreatePaymentIntentInput) (*PaymentIntent, error) {
	if strings.TrimSpace(input.Book) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "livre is required")
	}
	if input.AuthorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "auteurId is required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "montant must be positive")
	}

	tx, err := s.provider.CreateTransaction(ctx, fedapay.TransactionCreateParams{
		Amount:      input.Amount,
		Description: fmt.Sprintf("Achat du livre: %s", input.Book),
		CallbackURL: s.callbackURL,
	})
	if err != nil {
		s.metrics.IncIntent("failed")
		return nil, err
	}

	sale := &models.Sale{
		ProviderTxID: tx.ID,
		Book:         input.Book,
		AuthorID:     input.AuthorID,
		Amount:       input.Amount,
		Status:       enums.SaleStatusPending,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.Create(ctx, sale); err != nil {
		s.metrics.IncIntent("failed")
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "transaction already recorded")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist pending sale")
	}

	s.metrics.IncIntent("minted")
	return &PaymentIntent{
		ProviderTxID: tx.ID,
		PaymentURL:   tx.PaymentURL,
	}, nil
}
