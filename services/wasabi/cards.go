package wasabi

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"aiacard/models"
	"aiacard/utils"
)

const (
	PathCreateCardholder = "/merchant/core/mcb/card/holder/create"
	PathOpenCard         = "/merchant/core/mcb/card/openCard"

	DefaultCardTypeID     int64   = 111016
	DefaultOpenCardAmount float64 = 50

	orderNoLength   = 22
	orderNoAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// Response is the envelope every merchant endpoint returns.
type Response[T any] struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Msg     string `json:"msg"`
	Data    T      `json:"data"`
}

// ID decodes an identifier the API sends either as a string or a number.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*id = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("wasabi id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// CreateCardholderRequest registers the account holder with the issuer.
type CreateCardholderRequest struct {
	CardTypeID int64  `json:"cardTypeId"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	AreaCode   string `json:"areaCode"`
	Mobile     string `json:"mobile"`
	Birthday   string `json:"birthday"`
	Address    string `json:"address"`
	Town       string `json:"town"`
	PostCode   string `json:"postCode"`
	Country    string `json:"country"`
}

type CardholderData struct {
	HolderID ID `json:"holderId"`
}

// OpenCardRequest opens a card for an existing holder. MerchantOrderNo is the
// idempotency key on the issuer side.
type OpenCardRequest struct {
	MerchantOrderNo string  `json:"merchantOrderNo"`
	HolderID        string  `json:"holderId"`
	CardTypeID      int64   `json:"cardTypeId"`
	Amount          float64 `json:"amount"`
}

type OpenCardData struct {
	OrderNo         ID     `json:"orderNo"`
	MerchantOrderNo string `json:"merchantOrderNo"`
	CardNo          ID     `json:"cardNo"`
	Status          string `json:"status"`
}

// NewCardholderRequest builds the create-cardholder payload. It fails with
// the first required field the account is missing.
func NewCardholderRequest(acc *models.Account, cardTypeID int64) (*CreateCardholderRequest, error) {
	required := []struct {
		name  string
		value string
	}{
		{"firstName", acc.FirstName},
		{"lastName", acc.LastName},
		{"email", acc.Email},
		{"areaCode", acc.AreaCode},
		{"mobile", acc.Mobile},
		{"birthday", acc.Birthday},
		{"address", acc.Address},
		{"town", acc.Town},
		{"postCode", acc.PostCode},
		{"country", acc.Country},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return nil, &utils.IncompleteProfileError{Field: f.name}
		}
	}

	if cardTypeID == 0 {
		cardTypeID = DefaultCardTypeID
	}
	return &CreateCardholderRequest{
		CardTypeID: cardTypeID,
		FirstName:  acc.FirstName,
		LastName:   acc.LastName,
		Email:      acc.Email,
		AreaCode:   acc.AreaCode,
		Mobile:     acc.Mobile,
		Birthday:   acc.Birthday,
		Address:    acc.Address,
		Town:       acc.Town,
		PostCode:   acc.PostCode,
		Country:    acc.Country,
	}, nil
}

// NewMerchantOrderNo returns a random 22 character alphanumeric order number.
func NewMerchantOrderNo() (string, error) {
	size := big.NewInt(int64(len(orderNoAlphabet)))
	var sb strings.Builder
	sb.Grow(orderNoLength)
	for i := 0; i < orderNoLength; i++ {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		sb.WriteByte(orderNoAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

// CreateCardholder registers a holder and returns the decoded envelope along
// with the raw response for passthrough.
func (c *Client) CreateCardholder(ctx context.Context, req *CreateCardholderRequest) (*Response[CardholderData], json.RawMessage, error) {
	var out Response[CardholderData]
	raw, err := c.callEnvelope(ctx, PathCreateCardholder, req, &out)
	if err != nil {
		return nil, raw, err
	}
	if out.Data.HolderID == "" {
		return nil, raw, &utils.PartnerAPIError{Status: http.StatusOK, Body: string(raw)}
	}
	return &out, raw, nil
}

// OpenCard opens a card for the holder.
func (c *Client) OpenCard(ctx context.Context, req *OpenCardRequest) (*Response[OpenCardData], json.RawMessage, error) {
	var out Response[OpenCardData]
	raw, err := c.callEnvelope(ctx, PathOpenCard, req, &out)
	if err != nil {
		return nil, raw, err
	}
	return &out, raw, nil
}

// envelope is the part of Response every caller checks.
type envelope interface {
	ok() bool
}

func (r *Response[T]) ok() bool { return r.Success }

// callEnvelope performs the call and treats success:false as a rejection.
func (c *Client) callEnvelope(ctx context.Context, path string, payload interface{}, out envelope) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.Call(ctx, path, payload, &raw); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return raw, fmt.Errorf("failed to decode wasabi envelope: %w", err)
	}
	if !out.ok() {
		return raw, &utils.PartnerAPIError{Status: http.StatusOK, Body: string(raw)}
	}
	return raw, nil
}

