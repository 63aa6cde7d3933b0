package accountRepo

import (
	"context"
	"errors"
	"time"

	"aiacard/models"
)

var (
	// ErrNotFound is returned by writes that target a missing account.
	ErrNotFound = errors.New("account not found")
	// ErrDuplicateKey is returned when a write would break email or phone uniqueness.
	ErrDuplicateKey = errors.New("duplicate account key")
	// ErrChallengeMismatch is returned when the challenge being committed is no
	// longer the one stored, e.g. a newer code was issued in between.
	ErrChallengeMismatch = errors.New("pending challenge changed")
	// ErrPaymentClaimed is returned when a payment reference was already spent.
	ErrPaymentClaimed = errors.New("payment already claimed")
)

// AccountRepository defines methods for account data access. Lookups return
// nil, nil when nothing matches.
type AccountRepository interface {
	Create(ctx context.Context, acc *models.Account) error
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByPhone(ctx context.Context, areaCode, mobile string) (*models.Account, error)

	// UpdateProfile sets the non-nil attributes and returns the stored account.
	UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate) (*models.Account, error)

	// StageChallenge replaces the pending challenge for ch.Purpose.
	StageChallenge(ctx context.Context, id string, ch models.Challenge) error
	// CommitChallenge promotes the staged values of acc's active challenge and
	// unsets the pending fields, in one conditional write. acc is updated in place.
	CommitChallenge(ctx context.Context, acc *models.Account, purpose models.OTPPurpose) error

	// ClaimPayment records ref as spent by the account. A reference can be
	// claimed once across all accounts.
	ClaimPayment(ctx context.Context, id, ref string) error
	// ReleasePayment undoes a claim whose issuance failed before any card work.
	ReleasePayment(ctx context.Context, id, ref string) error

	// Card issuance saga.
	MarkCardholderCreated(ctx context.Context, id, holderID string) error
	StartCardOpen(ctx context.Context, id, orderNo string) error
	SetCardStatus(ctx context.Context, id, status string) error
	ListPendingCards(ctx context.Context, updatedBefore time.Time, limit int) ([]models.Account, error)
}
