package fedapaywebhook

import (
	"context"
	"fmt"
	"time"

	"github.com/MyLiaread/Lia-backend/internal/settlement"
	"github.com/MyLiaread/Lia-backend/pkg/enums"
	pkgerrors "github.com/MyLiaread/Lia-backend/pkg/errors"
	"github.com/MyLiaread/Lia-backend/pkg/logger"
	"github.com/MyLiaread/Lia-backend/pkg/metrics"
)

type settler interface {
	Settle(ctx context.Context, providerTxID, providerStatus string) (*settlement.Outcome, error)
}

// ServiceParams wires the webhook service.
type ServiceParams struct {
	Settlement settler
	Metrics    *metrics.SettlementMetrics
	Logger     *logger.Logger
}

// Service applies FedaPay callbacks to the settlement core and records the
// outcome.
type Service struct {
	settlement settler
	metrics    *metrics.SettlementMetrics
	logger     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Settlement == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "settlement service required")
	}
	return &Service{
		settlement: params.Settlement,
		metrics:    params.Metrics,
		logger:     params.Logger,
	}, nil
}

// HandleEvent settles the referenced sale. Errors propagate so the controller
// releases the idempotency guard and FedaPay's retry gets another attempt.
func (s *Service) HandleEvent(ctx context.Context, event *Event) error {
	if event == nil || event.TransactionID() == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}

	start := time.Now()
	outcome, err := s.settlement.Settle(ctx, event.TransactionID(), event.Status)
	if err != nil {
		outcomeLabel := "error"
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			outcomeLabel = "not_found"
		}
		s.metrics.IncSettled(outcomeLabel)
		s.metrics.ObserveDuration(outcomeLabel, time.Since(start))
		return err
	}

	label := string(outcome.Status)
	if outcome.Replayed {
		label = "replayed"
	}
	s.metrics.IncSettled(label)
	s.metrics.ObserveDuration(label, time.Since(start))

	if s.logger != nil {
		ctx = s.logger.WithTransactionID(ctx, outcome.ProviderTxID)
		if outcome.Replayed {
			s.logger.Warn(ctx, "settlement replay ignored")
		} else if outcome.Status == enums.SaleStatusSuccess {
			ctx = s.logger.WithFields(ctx, map[string]any{
				"author_share":   outcome.AuthorShare.String(),
				"platform_share": outcome.PlatformShare.String(),
			})
			s.logger.Info(ctx, fmt.Sprintf("sale %s settled", outcome.ProviderTxID))
		} else {
			s.logger.Info(ctx, fmt.Sprintf("sale %s failed", outcome.ProviderTxID))
		}
	}
	return nil
}
