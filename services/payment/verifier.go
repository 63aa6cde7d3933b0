package payment

import (
	"context"
	"fmt"
	"strings"

	"aiacard/models"
	"aiacard/utils"

	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"
)

// Verifier confirms that the account holder paid for a card before one is
// issued.
type Verifier interface {
	Verify(ctx context.Context, email string, proof models.PaymentProof) error
}

// StripeVerifier accepts a proof only when its PaymentIntent has succeeded.
type StripeVerifier struct {
	API StripeAPI
}

func NewStripeVerifier(api StripeAPI) *StripeVerifier {
	if api == nil {
		api = sdk{}
	}
	return &StripeVerifier{API: api}
}

func (v *StripeVerifier) Verify(ctx context.Context, email string, proof models.PaymentProof) error {
	if proof.PaymentIntentID == "" {
		return utils.ErrPaymentNotConfirmed
	}
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := v.API.GetPaymentIntent(proof.PaymentIntentID, params)
	if err != nil {
		utils.GetLogger().Error("payment verification: failed to fetch intent",
			zap.String("paymentIntentId", proof.PaymentIntentID), zap.Error(err))
		return fmt.Errorf("failed to fetch payment intent: %w", err)
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return utils.ErrPaymentNotConfirmed
	}
	if owner := pi.Metadata["email"]; owner != "" && !strings.EqualFold(owner, email) {
		utils.GetLogger().Warn("payment verification: intent belongs to another email",
			zap.String("paymentIntentId", pi.ID), zap.String("email", email))
		return utils.ErrPaymentNotConfirmed
	}
	return nil
}

// ManualCryptoVerifier trusts the client's assertion that a crypto transfer
// was made. The asserted transfer is logged for manual review; there is no
// chain lookup.
type ManualCryptoVerifier struct{}

func (ManualCryptoVerifier) Verify(_ context.Context, email string, proof models.PaymentProof) error {
	utils.GetLogger().Warn("payment verification: accepting unverified crypto payment",
		zap.String("email", email),
		zap.String("network", proof.Network),
		zap.String("txHash", proof.TxHash))
	return nil
}

// RailVerifier dispatches a proof to the verifier for its payment rail.
type RailVerifier struct {
	Card   Verifier
	Crypto Verifier
}

func (v RailVerifier) Verify(ctx context.Context, email string, proof models.PaymentProof) error {
	switch proof.Rail() {
	case models.PaymentMethodCard:
		if v.Card == nil {
			return utils.ErrFeatureDisabled
		}
		return v.Card.Verify(ctx, email, proof)
	default:
		if v.Crypto == nil {
			return utils.ErrFeatureDisabled
		}
		return v.Crypto.Verify(ctx, email, proof)
	}
}
