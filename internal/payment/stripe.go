// Package payment provides Stripe integration for payment processing and Connect onboarding.
package payment

import (
	"strconv"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/account"
	"github.com/stripe/stripe-go/v81/accountlink"
	"github.com/stripe/stripe-go/v81/checkout/session"
)

// CheckoutSessionParams represents parameters for creating a Checkout Session.
type CheckoutSessionParams struct {
	ConnectedAccountID string
	Amount             int64  // Donation amount in cents
	Currency           string // Defaults to DefaultCurrency when empty
	Description        string // Shown on the Stripe checkout page
	SuccessURL         string
	CancelURL          string
	ApplicationFee     int64 // Platform fee in cents
	DonorID            int64
	OngID              int64
}

// Client is an interface for Stripe operations to enable testing with mocks.
type Client interface {
	CreateConnectAccount() (*stripe.Account, error)
	CreateAccountLink(accountID, returnURL, refreshURL string) (*stripe.AccountLink, error)
	CreateCheckoutSession(params *CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// StripeClient implements the Client interface using the real Stripe SDK.
type StripeClient struct{}

// NewStripeClient creates a new Stripe client with the given API key.
func NewStripeClient(apiKey string) *StripeClient {
	stripe.Key = apiKey
	return &StripeClient{}
}

// CreateConnectAccount creates a new Stripe Connect Express account.
func (c *StripeClient) CreateConnectAccount() (*stripe.Account, error) {
	params := &stripe.AccountParams{
		Type: stripe.String(string(stripe.AccountTypeExpress)),
	}

	return account.New(params)
}

// CreateAccountLink creates an account onboarding link for a Stripe Connect account.
func (c *StripeClient) CreateAccountLink(accountID, returnURL, refreshURL string) (*stripe.AccountLink, error) {
	params := &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		ReturnURL:  stripe.String(returnURL),
		RefreshURL: stripe.String(refreshURL),
		Type:       stripe.String("account_onboarding"),
	}

	return accountlink.New(params)
}

// CreateCheckoutSession creates a Stripe Checkout Session with platform fee and Connect account.
// Donations are ad-hoc amounts, so the single line item uses inline price data instead
// of a pre-created Price object.
func (c *StripeClient) CreateCheckoutSession(params *CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	currency := params.Currency
	if currency == "" {
		currency = DefaultCurrency
	}

	description := params.Description
	if description == "" {
		description = "Doação"
	}

	sessionParams := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(currency),
					UnitAmount: stripe.Int64(params.Amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(params.SuccessURL),
		CancelURL:  stripe.String(params.CancelURL),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			ApplicationFeeAmount: stripe.Int64(params.ApplicationFee),
			OnBehalfOf:           stripe.String(params.ConnectedAccountID),
		},
		Metadata: map[string]string{
			"donor_id": strconv.FormatInt(params.DonorID, 10),
			"ong_id":   strconv.FormatInt(params.OngID, 10),
		},
	}

	// NOTE: We cannot set metadata on the PaymentIntent at session creation time
	// because the PaymentIntent doesn't exist yet. Stripe creates the PaymentIntent
	// after the session is created. Webhook handlers resolve payment records by
	// checkout session ID instead of relying on PaymentIntent metadata.
	return session.New(sessionParams)
}
