package fedapay

import (
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/MyLiaread/Lia-backend/pkg/errors"
)

// TransactionCreateParams carries the data FedaPay needs to mint a transaction.
type TransactionCreateParams struct {
	Amount      decimal.Decimal
	Description string
	CallbackURL string
}

func (p TransactionCreateParams) validate() error {
	if !p.Amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "transaction amount must be positive")
	}
	if strings.TrimSpace(p.Description) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "transaction description is required")
	}
	if strings.TrimSpace(p.CallbackURL) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "transaction callback url is required")
	}
	return nil
}

type transactionRequest struct {
	Amount      decimal.Decimal     `json:"amount"`
	Description string              `json:"description"`
	CallbackURL string              `json:"callback_url"`
	Currency    transactionCurrency `json:"currency"`
}

type transactionCurrency struct {
	ISO string `json:"iso"`
}

func (p TransactionCreateParams) toRequest(currency string) transactionRequest {
	return transactionRequest{
		Amount:      p.Amount,
		Description: p.Description,
		CallbackURL: p.CallbackURL,
		Currency:    transactionCurrency{ISO: currency},
	}
}

// Transaction is the minted provider transaction the intent creator persists
// a pending sale against.
type Transaction struct {
	ID         string
	PaymentURL string
}
