package handlers

import (
	"context"
	"errors"
	"net/http"

	"aiacard/models"
	"aiacard/services/card"
	"aiacard/services/payment"
	"aiacard/utils"

	"github.com/gin-gonic/gin"
)

// SheetCreator opens a Stripe PaymentSheet session.
type SheetCreator interface {
	CreatePaymentSheet(ctx context.Context, amount int64, email string) (*models.PaymentSheet, error)
}

// CardIssuer runs a paid card issuance.
type CardIssuer interface {
	IssueCard(ctx context.Context, email string, proof models.PaymentProof) (*card.IssueResult, error)
}

// CardHandler serves the payment and card endpoints.
type CardHandler struct {
	Sheets SheetCreator
	Cards  CardIssuer
}

func NewCardHandler(sheets SheetCreator, cards CardIssuer) *CardHandler {
	return &CardHandler{Sheets: sheets, Cards: cards}
}

// PaymentSheetHandler returns what the mobile PaymentSheet needs. The body is
// passed through without the success envelope.
func (h *CardHandler) PaymentSheetHandler(c *gin.Context) {
	var req struct {
		Amount int64  `json:"amount" binding:"required"`
		Email  string `json:"email"`
	}
	if !bindJSON(c, &req, "Amount is required.") {
		return
	}
	if h.Sheets == nil {
		utils.RespondError(c, utils.ErrFeatureDisabled)
		return
	}

	sheet, err := h.Sheets.CreatePaymentSheet(c.Request.Context(), req.Amount, req.Email)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidAmount) {
			utils.JSONError(c, http.StatusBadRequest, "Amount must be a positive number of cents.", "")
			return
		}
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sheet)
}

// CreateCardholderHandler verifies the payment and issues a card.
func (h *CardHandler) CreateCardholderHandler(c *gin.Context) {
	var req struct {
		Email           string `json:"email" binding:"required"`
		PaymentIntentID string `json:"paymentIntentId"`
		Crypto          *struct {
			Network string `json:"network"`
			TxHash  string `json:"txHash"`
		} `json:"crypto"`
	}
	if !bindJSON(c, &req, "Email is required") {
		return
	}

	proof := models.PaymentProof{PaymentIntentID: req.PaymentIntentID}
	if req.Crypto != nil {
		proof.Network, proof.TxHash = req.Crypto.Network, req.Crypto.TxHash
	}
	proof.Method = proof.Rail()

	res, err := h.Cards.IssueCard(c.Request.Context(), req.Email, proof)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       res.CardholderData,
		"holderId":   res.HolderID,
		"cardOpened": res.CardOpened,
	})
}
