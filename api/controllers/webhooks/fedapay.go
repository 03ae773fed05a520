package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/MyLiaread/Lia-backend/api/responses"
	fedapaywebhook "github.com/MyLiaread/Lia-backend/internal/webhooks/fedapay"
	pkgerrors "github.com/MyLiaread/Lia-backend/pkg/errors"
	"github.com/MyLiaread/Lia-backend/pkg/logger"
)

const fedapaySignatureHeader = "X-Fedapay-Signature"

type FedaPayWebhookService interface {
	HandleEvent(ctx context.Context, event *fedapaywebhook.Event) error
}

type fedapayWebhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type fedapayClient interface {
	SigningSecret() string
	VerifySignature(payload []byte, signature string) bool
}

// FedaPayWebhook settles sales from provider transaction callbacks. Signature
// verification runs only when a webhook secret is configured; the provider's
// sandbox sends unsigned callbacks.
func FedaPayWebhook(svc FedaPayWebhookService, client fedapayClient, guard fedapayWebhookGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if client == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fedapay client unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		// 400 for unauthenticated or unparseable deliveries: the provider
		// must not retry those.
		if client.SigningSecret() != "" {
			if !client.VerifySignature(payload, r.Header.Get(fedapaySignatureHeader)) {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid fedapay signature"))
				return
			}
		}

		var event fedapaywebhook.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode event"))
			return
		}

		eventID := event.IdempotencyID()
		alreadyProcessed, err := guard.CheckAndMark(ctx, eventID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if alreadyProcessed {
			responses.WriteSuccess(w, nil)
			return
		}

		if err := svc.HandleEvent(ctx, &event); err != nil {
			_ = guard.Delete(ctx, eventID)
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(ctx, fmt.Sprintf("fedapay event %s processed", eventID))
		}
		responses.WriteSuccess(w, nil)
	}
}
