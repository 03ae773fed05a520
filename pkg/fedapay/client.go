package fedapay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MyLiaread/Lia-backend/pkg/config"
	pkgerrors "github.com/MyLiaread/Lia-backend/pkg/errors"
	"github.com/MyLiaread/Lia-backend/pkg/logger"
)

const (
	sandboxEnv = "sandbox"
	liveEnv    = "live"

	responseBodyReadLimit int64 = 1024
)

var (
	errSecretKeyRequired = errors.New("fedapay secret key is required")
	errInvalidFedaPayEnv = fmt.Errorf("fedapay environment must be %q or %q", sandboxEnv, liveEnv)
	errLoggerRequired    = errors.New("fedapay logger is required")
	errCurrencyRequired  = errors.New("fedapay currency is required")
)

var baseURLs = map[string]string{
	sandboxEnv: "https://sandbox-api.fedapay.com",
	liveEnv:    "https://api.fedapay.com",
}

// Client wraps the FedaPay REST API used to mint payment transactions and to
// authenticate the settlement callbacks FedaPay delivers afterwards.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	secretKey     string
	webhookSecret string
	environment   string
	currency      string
	logger        *logger.Logger
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the environment-derived API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient initializes the FedaPay wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.FedaPayConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	secretKey := strings.TrimSpace(cfg.SecretKey)
	if secretKey == "" {
		return nil, errSecretKeyRequired
	}

	currency := strings.TrimSpace(strings.ToUpper(cfg.Currency))
	if currency == "" {
		return nil, errCurrencyRequired
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		httpClient:    &http.Client{Timeout: timeout},
		baseURL:       baseURLs[env],
		secretKey:     secretKey,
		webhookSecret: strings.TrimSpace(cfg.WebhookSecret),
		environment:   env,
		currency:      currency,
		logger:        logg,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	logg.Info(ctx, fmt.Sprintf("fedapay client initialized (%s)", env))
	return c, nil
}

// Environment reports the normalized FedaPay environment.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// SigningSecret returns the webhook signing secret. Empty means callback
// signatures are not enforced.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.webhookSecret
}

// VerifySignature checks the HMAC-SHA256 hex signature FedaPay computed over
// the raw callback body.
func (c *Client) VerifySignature(payload []byte, signature string) bool {
	secret := c.SigningSecret()
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature)))
}

// CreateTransaction mints a FedaPay transaction and returns the provider id
// plus the hosted payment URL the buyer is redirected to.
func (c *Client) CreateTransaction(ctx context.Context, params TransactionCreateParams) (*Transaction, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "fedapay client not configured")
	}
	if err := params.validate(); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(params.toRequest(c.currency))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal transaction request")
	}

	url := c.buildURL("v1/transactions")
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build transaction request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)

	c.log(ctx, "request", "create_transaction", map[string]any{
		"amount":      params.Amount.String(),
		"description": params.Description,
	})

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.log(ctx, "error", "create_transaction", map[string]any{"error": err.Error()})
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute transaction request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			"transaction request failed")
	}

	tx, err := decodeTransaction(resp.Body)
	if err != nil {
		return nil, err
	}

	c.log(ctx, "response", "create_transaction", map[string]any{
		"transaction_id": tx.ID,
	})
	return tx, nil
}

func decodeTransaction(body io.Reader) (*Transaction, error) {
	var apiResp struct {
		ID         json.Number `json:"id"`
		PaymentURL string      `json:"payment_url"`
		Nested     *struct {
			ID         json.Number `json:"id"`
			PaymentURL string      `json:"payment_url"`
		} `json:"v1/transaction"`
	}
	if err := json.NewDecoder(body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode transaction response")
	}

	id := apiResp.ID.String()
	paymentURL := apiResp.PaymentURL
	if apiResp.Nested != nil {
		if apiResp.Nested.ID.String() != "" {
			id = apiResp.Nested.ID.String()
		}
		if apiResp.Nested.PaymentURL != "" {
			paymentURL = apiResp.Nested.PaymentURL
		}
	}

	if id == "" || paymentURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction response missing id or payment_url")
	}
	return &Transaction{ID: id, PaymentURL: paymentURL}, nil
}

func (c *Client) buildURL(path string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s", trimmed, path)
}

func (c *Client) log(ctx context.Context, stage, operation string, fields map[string]any) {
	if c.logger == nil {
		return
	}
	merged := map[string]any{"operation": operation}
	for k, v := range fields {
		merged[k] = v
	}
	ctx = c.logger.WithFields(ctx, merged)
	c.logger.Info(ctx, fmt.Sprintf("fedapay.%s", stage))
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = sandboxEnv
	}
	switch env {
	case sandboxEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidFedaPayEnv
	}
}
