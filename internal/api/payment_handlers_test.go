package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/doecerto/doecerto/internal/middleware"
	"github.com/doecerto/doecerto/internal/ong"
	"github.com/doecerto/doecerto/internal/payment"
	"github.com/stripe/stripe-go/v81"
)

// mockStripeClient is a mock implementation of the payment.Client interface for testing.
type mockStripeClient struct {
	createAccountFunc     func() (*stripe.Account, error)
	createAccountLinkFunc func(accountID, returnURL, refreshURL string) (*stripe.AccountLink, error)
	createCheckoutFunc    func(params *payment.CheckoutSessionParams) (*stripe.CheckoutSession, error)

	lastCheckoutParams *payment.CheckoutSessionParams
}

func (m *mockStripeClient) CreateConnectAccount() (*stripe.Account, error) {
	if m.createAccountFunc != nil {
		return m.createAccountFunc()
	}
	return &stripe.Account{ID: "acct_test123"}, nil
}

func (m *mockStripeClient) CreateAccountLink(accountID, returnURL, refreshURL string) (*stripe.AccountLink, error) {
	if m.createAccountLinkFunc != nil {
		return m.createAccountLinkFunc(accountID, returnURL, refreshURL)
	}
	return &stripe.AccountLink{
		URL:       "https://connect.stripe.com/setup/s/test123",
		ExpiresAt: time.Now().Add(5 * time.Minute).Unix(),
	}, nil
}

func (m *mockStripeClient) CreateCheckoutSession(params *payment.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	m.lastCheckoutParams = params
	if m.createCheckoutFunc != nil {
		return m.createCheckoutFunc(params)
	}
	return &stripe.CheckoutSession{
		ID:  "cs_test123",
		URL: "https://checkout.stripe.com/c/pay/cs_test123",
	}, nil
}

func newVerifiedOng(t *testing.T, ongs *ong.InMemoryRepository, userID int64, name string) *ong.Ong {
	t.Helper()

	o := &ong.Ong{UserID: userID, Name: name, CNPJ: "12345678000195"}
	if err := ongs.Create(context.Background(), o); err != nil {
		t.Fatalf("failed to create ong: %v", err)
	}
	if err := ongs.Verify(context.Background(), userID, 99); err != nil {
		t.Fatalf("failed to verify ong: %v", err)
	}
	return o
}

func newPaymentTestHandlers(ongs *ong.InMemoryRepository, client *mockStripeClient) (*PaymentHandlers, *payment.InMemoryPaymentRepository) {
	paymentRepo := payment.NewInMemoryPaymentRepository()
	handlers := NewPaymentHandlers(
		ongs,
		paymentRepo,
		client,
		"https://doecerto.org/stripe/return",
		"https://doecerto.org/stripe/refresh",
		5.0,
	)
	return handlers, paymentRepo
}

func authedRequest(method, target string, body []byte, userID int64, role string) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	ctx := middleware.SetUserID(req.Context(), userID)
	ctx = middleware.SetUserRole(ctx, role)
	return req.WithContext(ctx)
}

func TestOnboardOng_Success(t *testing.T) {
	ongs := ong.NewInMemoryRepository()
	newVerifiedOng(t, ongs, 10, "Instituto Esperança")

	mockClient := &mockStripeClient{}
	handlers, _ := newPaymentTestHandlers(ongs, mockClient)

	req := authedRequest(http.MethodPost, "/me/stripe/onboard", nil, 10, "ong")
	w := httptest.NewRecorder()
	handlers.OnboardOng(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var response OnboardResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.URL == "" {
		t.Error("expected onboarding URL in response")
	}

	stored, err := ongs.GetByUserID(context.Background(), 10)
	if err != nil {
		t.Fatalf("failed to reload ong: %v", err)
	}
	if stored.StripeAccountID == nil || *stored.StripeAccountID != "acct_test123" {
		t.Errorf("expected stored stripe account acct_test123, got %v", stored.StripeAccountID)
	}
}

func TestOnboardOng_NotVerified(t *testing.T) {
	ongs := ong.NewInMemoryRepository()
	o := &ong.Ong{UserID: 10, Name: "ONG Pendente", CNPJ: "12345678000195"}
	if err := ongs.Create(context.Background(), o); err != nil {
		t.Fatalf("failed to create ong: %v", err)
	}

	handlers, _ := newPaymentTestHandlers(ongs, &mockStripeClient{})

	req := authedRequest(http.MethodPost, "/me/stripe/onboard", nil, 10, "ong")
	w := httptest.NewRecorder()
	handlers.OnboardOng(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected status 422, got %d: %s", w.Code, w.Body.String())
	}
}

func TestOnboardOng_ReusesExistingAccount(t *testing.T) {
	ongs := ong.NewInMemoryRepository()
	newVerifiedOng(t, ongs, 10, "Instituto Esperança")
	if err := ongs.SetStripeAccount(context.Background(), 10, "acct_existing"); err != nil {
		t.Fatalf("failed to set stripe account: %v", err)
	}

	mockClient := &mockStripeClient{
		createAccountFunc: func() (*stripe.Account, error) {
			return nil, errors.New("must not create a second account")
		},
		createAccountLinkFunc: func(accountID, returnURL, refreshURL string) (*stripe.AccountLink, error) {
			if accountID != "acct_existing" {
				return nil, errors.New("unexpected account ID " + accountID)
			}
			return &stripe.AccountLink{
				URL:       "https://connect.stripe.com/setup/s/again",
				ExpiresAt: time.Now().Add(5 * time.Minute).Unix(),
			}, nil
		},
	}
	handlers, _ := newPaymentTestHandlers(ongs, mockClient)

	req := authedRequest(http.MethodPost, "/me/stripe/onboard", nil, 10, "ong")
	w := httptest.NewRecorder()
	handlers.OnboardOng(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCreateCheckoutSession_Success(t *testing.T) {
	ongs := ong.NewInMemoryRepository()
	newVerifiedOng(t, ongs, 10, "Instituto Esperança")
	if err := ongs.SetStripeAccount(context.Background(), 10, "acct_test123"); err != nil {
		t.Fatalf("failed to set stripe account: %v", err)
	}

	mockClient := &mockStripeClient{}
	handlers, paymentRepo := newPaymentTestHandlers(ongs, mockClient)

	body, _ := json.Marshal(CheckoutRequest{
		OngID:      10,
		Amount:     10000,
		SuccessURL: "https://doecerto.org/obrigado",
		CancelURL:  "https://doecerto.org/cancelado",
	})
	req := authedRequest(http.MethodPost, "/payments/checkout", body, 5, "donor")
	w := httptest.NewRecorder()
	handlers.CreateCheckoutSession(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var response CheckoutResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.SessionID != "cs_test123" {
		t.Errorf("expected session cs_test123, got %s", response.SessionID)
	}

	// 5% of 10000 cents.
	if mockClient.lastCheckoutParams.ApplicationFee != 500 {
		t.Errorf("expected application fee 500, got %d", mockClient.lastCheckoutParams.ApplicationFee)
	}
	if mockClient.lastCheckoutParams.ConnectedAccountID != "acct_test123" {
		t.Errorf("expected connected account acct_test123, got %s", mockClient.lastCheckoutParams.ConnectedAccountID)
	}

	record, err := paymentRepo.GetBySessionID("cs_test123")
	if err != nil {
		t.Fatalf("expected provisional payment record: %v", err)
	}
	if record.Status != payment.StatusPending {
		t.Errorf("expected pending record, got %s", record.Status)
	}
	if record.DonorID != 5 || record.OngID != 10 {
		t.Errorf("expected donor 5 and ong 10, got %d and %d", record.DonorID, record.OngID)
	}
	if record.Fee != 500 {
		t.Errorf("expected fee 500, got %d", record.Fee)
	}
}

func TestCreateCheckoutSession_NotOnboarded(t *testing.T) {
	ongs := ong.NewInMemoryRepository()
	newVerifiedOng(t, ongs, 10, "Instituto Esperança")

	handlers, _ := newPaymentTestHandlers(ongs, &mockStripeClient{})

	body, _ := json.Marshal(CheckoutRequest{
		OngID:      10,
		Amount:     10000,
		SuccessURL: "https://doecerto.org/obrigado",
		CancelURL:  "https://doecerto.org/cancelado",
	})
	req := authedRequest(http.MethodPost, "/payments/checkout", body, 5, "donor")
	w := httptest.NewRecorder()
	handlers.CreateCheckoutSession(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}

	var errResp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&errResp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if errResp.Error.Code != "not_onboarded" {
		t.Errorf("expected error code not_onboarded, got %s", errResp.Error.Code)
	}
}

func TestCreateCheckoutSession_AmountOutOfRange(t *testing.T) {
	ongs := ong.NewInMemoryRepository()
	newVerifiedOng(t, ongs, 10, "Instituto Esperança")

	handlers, _ := newPaymentTestHandlers(ongs, &mockStripeClient{})

	for _, amount := range []int64{0, 50, -100, maxDonationAmount + 1} {
		body, _ := json.Marshal(CheckoutRequest{
			OngID:      10,
			Amount:     amount,
			SuccessURL: "https://doecerto.org/obrigado",
			CancelURL:  "https://doecerto.org/cancelado",
		})
		req := authedRequest(http.MethodPost, "/payments/checkout", body, 5, "donor")
		w := httptest.NewRecorder()
		handlers.CreateCheckoutSession(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("amount %d: expected status 400, got %d", amount, w.Code)
		}
	}
}

func TestCreateCheckoutSession_UnknownOng(t *testing.T) {
	handlers, _ := newPaymentTestHandlers(ong.NewInMemoryRepository(), &mockStripeClient{})

	body, _ := json.Marshal(CheckoutRequest{
		OngID:      42,
		Amount:     10000,
		SuccessURL: "https://doecerto.org/obrigado",
		CancelURL:  "https://doecerto.org/cancelado",
	})
	req := authedRequest(http.MethodPost, "/payments/checkout", body, 5, "donor")
	w := httptest.NewRecorder()
	handlers.CreateCheckoutSession(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}
