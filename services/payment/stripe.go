package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"aiacard/config"
	"aiacard/models"
	"aiacard/utils"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/customer"
	"github.com/stripe/stripe-go/v76/ephemeralkey"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"go.uber.org/zap"
)

const (
	DefaultEphemeralKeyVersion = "2022-11-15"
	DefaultCurrency            = "usd"
)

var ErrInvalidAmount = errors.New("amount must be a positive number of cents")

// StripeAPI is the slice of the Stripe SDK the gateway uses.
type StripeAPI interface {
	NewCustomer(params *stripe.CustomerParams) (*stripe.Customer, error)
	NewEphemeralKey(params *stripe.EphemeralKeyParams) (*stripe.EphemeralKey, error)
	NewPaymentIntent(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	GetPaymentIntent(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// sdk calls the package-level Stripe clients, authenticated by stripe.Key.
type sdk struct{}

func (sdk) NewCustomer(p *stripe.CustomerParams) (*stripe.Customer, error) { return customer.New(p) }
func (sdk) NewEphemeralKey(p *stripe.EphemeralKeyParams) (*stripe.EphemeralKey, error) {
	return ephemeralkey.New(p)
}
func (sdk) NewPaymentIntent(p *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	return paymentintent.New(p)
}
func (sdk) GetPaymentIntent(id string, p *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	return paymentintent.Get(id, p)
}

// StripeGateway creates PaymentSheet sessions for the mobile app.
type StripeGateway struct {
	API                 StripeAPI
	Currency            string
	EphemeralKeyVersion string
}

// NewStripeGateway sets the global Stripe key and returns a gateway on the SDK.
func NewStripeGateway(cfg config.Config) *StripeGateway {
	stripe.Key = cfg.StripeKey
	g := &StripeGateway{
		API:                 sdk{},
		Currency:            cfg.StripeCurrency,
		EphemeralKeyVersion: cfg.StripeEphemeralKeyVersion,
	}
	if g.Currency == "" {
		g.Currency = DefaultCurrency
	}
	if g.EphemeralKeyVersion == "" {
		g.EphemeralKeyVersion = DefaultEphemeralKeyVersion
	}
	return g
}

// CreatePaymentSheet creates a customer, an ephemeral key for it and a card
// PaymentIntent for amount cents.
func (g *StripeGateway) CreatePaymentSheet(ctx context.Context, amount int64, email string) (*models.PaymentSheet, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	email = strings.TrimSpace(email)

	custParams := &stripe.CustomerParams{}
	custParams.Context = ctx
	if email != "" {
		custParams.Email = stripe.String(email)
	}
	cust, err := g.API.NewCustomer(custParams)
	if err != nil {
		utils.GetLogger().Error("payment sheet: failed to create customer", zap.Error(err))
		return nil, fmt.Errorf("failed to create stripe customer: %w", err)
	}

	keyParams := &stripe.EphemeralKeyParams{
		Customer:      stripe.String(cust.ID),
		StripeVersion: stripe.String(g.EphemeralKeyVersion),
	}
	keyParams.Context = ctx
	key, err := g.API.NewEphemeralKey(keyParams)
	if err != nil {
		utils.GetLogger().Error("payment sheet: failed to create ephemeral key", zap.String("customer", cust.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to create stripe ephemeral key: %w", err)
	}

	piParams := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(amount),
		Currency:           stripe.String(g.Currency),
		Customer:           stripe.String(cust.ID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	piParams.Context = ctx
	if email != "" {
		piParams.AddMetadata("email", email)
	}
	pi, err := g.API.NewPaymentIntent(piParams)
	if err != nil {
		utils.GetLogger().Error("payment sheet: failed to create payment intent", zap.String("customer", cust.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to create stripe payment intent: %w", err)
	}

	return &models.PaymentSheet{
		PaymentIntent: pi.ClientSecret,
		EphemeralKey:  key.Secret,
		Customer:      cust.ID,
	}, nil
}
