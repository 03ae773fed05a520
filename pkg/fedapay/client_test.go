package fedapay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/MyLiaread/Lia-backend/pkg/config"
	pkgerrors "github.com/MyLiaread/Lia-backend/pkg/errors"
	"github.com/MyLiaread/Lia-backend/pkg/logger"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	client, err := NewClient(context.Background(), config.FedaPayConfig{
		SecretKey:     "sk_sandbox_test",
		WebhookSecret: "whsec",
		Env:           "sandbox",
		BaseURL:       "https://lia.example",
		Currency:      "XOF",
	}, logg, WithBaseURL(baseURL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestCreateTransaction(t *testing.T) {
	var gotAuth string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 12345, "payment_url": "https://pay.fedapay.com/t/12345"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	tx, err := client.CreateTransaction(context.Background(), TransactionCreateParams{
		Amount:      decimal.NewFromInt(1000),
		Description: "Achat du livre: Les Soleils",
		CallbackURL: "https://lia.example/api/fedapay/callback",
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if tx.ID != "12345" {
		t.Fatalf("unexpected transaction id %q", tx.ID)
	}
	if tx.PaymentURL != "https://pay.fedapay.com/t/12345" {
		t.Fatalf("unexpected payment url %q", tx.PaymentURL)
	}
	if gotAuth != "Bearer sk_sandbox_test" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	for _, want := range []string{`"amount":"1000"`, `"callback_url":"https://lia.example/api/fedapay/callback"`, `"iso":"XOF"`} {
		if !contains(gotBody, want) {
			t.Fatalf("request body missing %s: %s", want, gotBody)
		}
	}
}

func TestCreateTransactionNestedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"v1/transaction": {"id": 77, "payment_url": "https://pay.fedapay.com/t/77"}}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	tx, err := client.CreateTransaction(context.Background(), TransactionCreateParams{
		Amount:      decimal.NewFromInt(500),
		Description: "Achat du livre: Karim",
		CallbackURL: "https://lia.example/api/fedapay/callback",
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if tx.ID != "77" {
		t.Fatalf("unexpected transaction id %q", tx.ID)
	}
}

func TestCreateTransactionProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.CreateTransaction(context.Background(), TransactionCreateParams{
		Amount:      decimal.NewFromInt(1000),
		Description: "Achat du livre: Les Soleils",
		CallbackURL: "https://lia.example/api/fedapay/callback",
	})
	if err == nil {
		t.Fatal("expected error for provider failure")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestCreateTransactionUnparseableResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"payment_url": "https://pay.fedapay.com/t/1"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.CreateTransaction(context.Background(), TransactionCreateParams{
		Amount:      decimal.NewFromInt(1000),
		Description: "Achat du livre: Les Soleils",
		CallbackURL: "https://lia.example/api/fedapay/callback",
	})
	if err == nil {
		t.Fatal("expected error when id is missing")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	client := newTestClient(t, "http://unused.example")
	_, err := client.CreateTransaction(context.Background(), TransactionCreateParams{
		Amount:      decimal.Zero,
		Description: "desc",
		CallbackURL: "https://lia.example/cb",
	})
	if err == nil {
		t.Fatal("expected validation error for zero amount")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestVerifySignature(t *testing.T) {
	client := newTestClient(t, "http://unused.example")
	payload := []byte(`{"id":"1","status":"approved"}`)

	sig := signPayload(payload, "whsec")
	if !client.VerifySignature(payload, sig) {
		t.Fatal("expected valid signature to verify")
	}
	if client.VerifySignature(payload, "deadbeef") {
		t.Fatal("expected invalid signature to fail")
	}
	if client.VerifySignature(payload, "") {
		t.Fatal("empty signature must fail")
	}
}

func contains(body []byte, want string) bool {
	return strings.Contains(string(body), want)
}

func signPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
