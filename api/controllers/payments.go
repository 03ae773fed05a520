package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MyLiaread/Lia-backend/api/responses"
	"github.com/MyLiaread/Lia-backend/api/validators"
	"github.com/MyLiaread/Lia-backend/internal/sales"
	pkgerrors "github.com/MyLiaread/Lia-backend/pkg/errors"
	"github.com/MyLiaread/Lia-backend/pkg/logger"
)

// CreatePayment mints a provider transaction for a book purchase and returns
// the hosted payment page the buyer should be redirected to.
func CreatePayment(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		var payload createPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		intent, err := svc.CreatePaymentIntent(ctx, sales.CreatePaymentIntentInput{
			Book:     payload.Book,
			AuthorID: payload.AuthorID,
			Amount:   payload.Amount,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(logg.WithTransactionID(ctx, intent.ProviderTxID), "payment intent minted")
		}
		responses.WriteSuccess(w, createPaymentResponse{PaymentURL: intent.PaymentURL})
	}
}

type createPaymentRequest struct {
	Book     string          `json:"livre" validate:"required"`
	AuthorID uuid.UUID       `json:"auteurId" validate:"required"`
	Amount   decimal.Decimal `json:"montant"`
}

type createPaymentResponse struct {
	PaymentURL string `json:"payment_url"`
}
