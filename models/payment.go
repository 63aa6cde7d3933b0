package models

import "strings"

// PaymentSheet is what the mobile Stripe PaymentSheet needs to initialise.
type PaymentSheet struct {
	PaymentIntent string `json:"paymentIntent"`
	EphemeralKey  string `json:"ephemeralKey"`
	Customer      string `json:"customer"`
}

// Payment rails accepted for a card purchase.
const (
	PaymentMethodCard   = "card"
	PaymentMethodCrypto = "crypto"
)

// PaymentProof is what the client presents when asking for a card to be issued.
type PaymentProof struct {
	Method          string `json:"method"`
	PaymentIntentID string `json:"paymentIntentId"`
	Network         string `json:"network"`
	TxHash          string `json:"txHash"`
}

// Rail returns the payment rail the proof belongs to. A proof without a Stripe
// intent is a self-reported transfer.
func (p PaymentProof) Rail() string {
	if p.PaymentIntentID != "" {
		return PaymentMethodCard
	}
	return PaymentMethodCrypto
}

// Reference identifies the payment so it can be spent once. It is empty when
// the proof names no payment at all.
func (p PaymentProof) Reference() string {
	switch {
	case p.PaymentIntentID != "":
		return "stripe:" + p.PaymentIntentID
	case p.TxHash != "":
		return "crypto:" + strings.ToLower(strings.TrimSpace(p.Network)) + ":" + strings.TrimSpace(p.TxHash)
	}
	return ""
}

// CardOpenPayload is the task payload for retrying a card open.
type CardOpenPayload struct {
	AccountID string `json:"accountId"`
}

// EmailPayload is the task payload for queued mail.
type EmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
