package utils

import (
	"errors"
	"fmt"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrAlreadyRegistered   = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidOrExpiredOtp = errors.New("invalid or expired otp")
	ErrTargetAlreadyInUse  = errors.New("target already in use")
	ErrOtpRateLimited      = errors.New("otp rate limited")
	ErrWeakPassword        = errors.New("password must be at least 8 characters and contain a letter and a digit")
	ErrNothingToUpdate     = errors.New("nothing to update")
	ErrPaymentNotConfirmed = errors.New("payment not confirmed")
	ErrPaymentAlreadyUsed  = errors.New("payment already used")
	ErrFeatureDisabled     = errors.New("feature not configured")

	// ErrWrongCurrentPassword is returned when re-authentication fails on a
	// signed-in account.
	ErrWrongCurrentPassword = fmt.Errorf("current password is incorrect: %w", ErrInvalidCredentials)
	// ErrPhoneRegistered is returned when registering with a phone another
	// account already holds.
	ErrPhoneRegistered = fmt.Errorf("phone already registered: %w", ErrAlreadyRegistered)
)

// TargetInUseError names which uniqueness key collided.
type TargetInUseError struct {
	Target string // "email" or "phone"
}

func (e *TargetInUseError) Error() string {
	return fmt.Sprintf("new %s is already in use", e.Target)
}

func (e *TargetInUseError) Is(target error) bool {
	return target == ErrTargetAlreadyInUse
}

// IncompleteProfileError reports the first profile field the card issuer
// requires but the account lacks.
type IncompleteProfileError struct {
	Field string
}

func (e *IncompleteProfileError) Error() string {
	return "missing required field: " + e.Field
}

// PartnerAPIError is a rejected call to the card issuer.
type PartnerAPIError struct {
	Status int
	Body   string
}

func (e *PartnerAPIError) Error() string {
	return fmt.Sprintf("wasabi API error: status %d, body: %s", e.Status, e.Body)
}
