package sales

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/MyLiaread/Lia-backend/pkg/db/models"
	"github.com/MyLiaread/Lia-backend/pkg/enums"
	pkgerrors "github.com/MyLiaread/Lia-backend/pkg/errors"
	"github.com/MyLiaread/Lia-backend/pkg/fedapay"
)

type fakeRepository struct {
	createFn func(ctx context.Context, sale *models.Sale) error
	created  *models.Sale
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Create(ctx context.Context, sale *models.Sale) error {
	f.created = sale
	if f.createFn != nil {
		return f.createFn(ctx, sale)
	}
	return nil
}

func (f *fakeRepository) FindByProviderTxID(ctx context.Context, providerTxID string) (*models.Sale, error) {
	return nil, nil
}

func (f *fakeRepository) MarkSettled(ctx context.Context, providerTxID string, status enums.SaleStatus, at time.Time) (bool, error) {
	return false, nil
}

type fakeProvider struct {
	tx     *fedapay.Transaction
	err    error
	params fedapay.TransactionCreateParams
	calls  int
}

func (f *fakeProvider) CreateTransaction(ctx context.Context, params fedapay.TransactionCreateParams) (*fedapay.Transaction, error) {
	f.calls++
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	return f.tx, nil
}

func validInput() CreatePaymentIntentInput {
	return CreatePaymentIntentInput{
		Book:     "Une si longue lettre",
		AuthorID: uuid.New(),
		Amount:   decimal.NewFromInt(1000),
	}
}

func TestCreatePaymentIntent(t *testing.T) {
	repo := &fakeRepository{}
	provider := &fakeProvider{tx: &fedapay.Transaction{ID: "tx1", PaymentURL: "https://pay.fedapay.com/t/tx1"}}
	svc, err := NewService(ServiceParams{
		Repo:        repo,
		Provider:    provider,
		CallbackURL: "https://lia.example/api/fedapay/callback",
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	input := validInput()
	intent, err := svc.CreatePaymentIntent(context.Background(), input)
	if err != nil {
		t.Fatalf("CreatePaymentIntent: %v", err)
	}
	if intent.PaymentURL != "https://pay.fedapay.com/t/tx1" {
		t.Fatalf("unexpected payment url %q", intent.PaymentURL)
	}
	if intent.ProviderTxID != "tx1" {
		t.Fatalf("unexpected provider tx id %q", intent.ProviderTxID)
	}

	if provider.params.Description != "Achat du livre: Une si longue lettre" {
		t.Fatalf("unexpected description %q", provider.params.Description)
	}
	if provider.params.CallbackURL != "https://lia.example/api/fedapay/callback" {
		t.Fatalf("unexpected callback url %q", provider.params.CallbackURL)
	}

	if repo.created == nil {
		t.Fatal("expected pending sale to be persisted")
	}
	if repo.created.ProviderTxID != "tx1" {
		t.Fatalf("sale keyed by %q, want provider id", repo.created.ProviderTxID)
	}
	if repo.created.Status != enums.SaleStatusPending {
		t.Fatalf("sale should start pending, got %q", repo.created.Status)
	}
	if !repo.created.Amount.Equal(input.Amount) {
		t.Fatalf("unexpected amount %s", repo.created.Amount)
	}
	if repo.created.UpdatedAt != nil {
		t.Fatal("updated_at must stay unset until settlement")
	}
}

func TestCreatePaymentIntentProviderFailure(t *testing.T) {
	repo := &fakeRepository{}
	provider := &fakeProvider{err: pkgerrors.New(pkgerrors.CodeDependency, "mint failed")}
	svc, err := NewService(ServiceParams{
		Repo:        repo,
		Provider:    provider,
		CallbackURL: "https://lia.example/api/fedapay/callback",
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	_, err = svc.CreatePaymentIntent(context.Background(), validInput())
	if err == nil {
		t.Fatal("expected provider failure to propagate")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if repo.created != nil {
		t.Fatal("nothing must be persisted when the provider call fails")
	}
}

func TestCreatePaymentIntentPersistFailure(t *testing.T) {
	repo := &fakeRepository{createFn: func(ctx context.Context, sale *models.Sale) error {
		return errors.New("insert failed")
	}}
	provider := &fakeProvider{tx: &fedapay.Transaction{ID: "tx1", PaymentURL: "https://pay.fedapay.com/t/tx1"}}
	svc, _ := NewService(ServiceParams{
		Repo:        repo,
		Provider:    provider,
		CallbackURL: "https://lia.example/api/fedapay/callback",
	})

	_, err := svc.CreatePaymentIntent(context.Background(), validInput())
	if err == nil {
		t.Fatal("expected persistence failure to propagate")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestCreatePaymentIntentDuplicateProviderID(t *testing.T) {
	repo := &fakeRepository{createFn: func(ctx context.Context, sale *models.Sale) error {
		return errors.New(`duplicate key value violates unique constraint "sales_pkey"`)
	}}
	provider := &fakeProvider{tx: &fedapay.Transaction{ID: "tx1", PaymentURL: "https://pay.fedapay.com/t/tx1"}}
	svc, _ := NewService(ServiceParams{
		Repo:        repo,
		Provider:    provider,
		CallbackURL: "https://lia.example/api/fedapay/callback",
	})

	_, err := svc.CreatePaymentIntent(context.Background(), validInput())
	if err == nil {
		t.Fatal("expected duplicate provider id to surface")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestCreatePaymentIntentValidation(t *testing.T) {
	repo := &fakeRepository{}
	provider := &fakeProvider{tx: &fedapay.Transaction{ID: "tx1", PaymentURL: "u"}}
	svc, _ := NewService(ServiceParams{
		Repo:        repo,
		Provider:    provider,
		CallbackURL: "https://lia.example/api/fedapay/callback",
	})

	tests := []struct {
		name  string
		input CreatePaymentIntentInput
	}{
		{name: "missing book", input: CreatePaymentIntentInput{AuthorID: uuid.New(), Amount: decimal.NewFromInt(100)}},
		{name: "missing author", input: CreatePaymentIntentInput{Book: "b", Amount: decimal.NewFromInt(100)}},
		{name: "zero amount", input: CreatePaymentIntentInput{Book: "b", AuthorID: uuid.New()}},
		{name: "negative amount", input: CreatePaymentIntentInput{Book: "b", AuthorID: uuid.New(), Amount: decimal.NewFromInt(-5)}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreatePaymentIntent(context.Background(), tc.input)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
			if provider.calls != 0 {
				t.Fatal("provider must not be called for invalid input")
			}
		})
	}
}

func TestCreatePaymentIntentMintsDistinctTransactions(t *testing.T) {
	repo := &fakeRepository{}
	provider := &fakeProvider{tx: &fedapay.Transaction{ID: "tx1", PaymentURL: "u"}}
	svc, _ := NewService(ServiceParams{
		Repo:        repo,
		Provider:    provider,
		CallbackURL: "https://lia.example/api/fedapay/callback",
	})

	input := validInput()
	for i := 0; i < 2; i++ {
		if _, err := svc.CreatePaymentIntent(context.Background(), input); err != nil {
			t.Fatalf("CreatePaymentIntent: %v", err)
		}
	}
	if provider.calls != 2 {
		t.Fatalf("duplicate purchase requests mint distinct transactions, got %d calls", provider.calls)
	}
}
