package otp

import (
	"context"
	"fmt"
	"time"

	"aiacard/models"
	"aiacard/services/email"
	"aiacard/utils"

	"go.uber.org/zap"
)

// ChallengeStore persists a pending challenge on the account record.
type ChallengeStore interface {
	StageChallenge(ctx context.Context, id string, ch models.Challenge) error
}

// Issuer generates, stores, delivers and checks one-time codes.
type Issuer struct {
	Store    ChallengeStore
	Mailer   email.Mailer
	Policy   Policy
	TTL      time.Duration
	Now      func() time.Time
	Generate func() (string, error)
}

// NewIssuer returns an issuer with a 10 minute TTL, the real clock and a
// crypto/rand code generator. A nil policy allows everything.
func NewIssuer(store ChallengeStore, mailer email.Mailer, policy Policy, ttl time.Duration) *Issuer {
	if policy == nil {
		policy = NoopPolicy{}
	}
	if ttl <= 0 {
		ttl = utils.DefaultOTPTTL
	}
	return &Issuer{
		Store:    store,
		Mailer:   mailer,
		Policy:   policy,
		TTL:      ttl,
		Now:      time.Now,
		Generate: utils.GenerateNumericOTP,
	}
}

var subjects = map[models.OTPPurpose]string{
	models.PurposeRegister:       "Your OTP Code",
	models.PurposeLogin:          "Your Login OTP Code",
	models.PurposeEmailChange:    "Your Email Change OTP Code",
	models.PurposePhoneChange:    "Your Phone Change OTP Code",
	models.PurposePasswordChange: "Your Password Change OTP Code",
}

var actions = map[models.OTPPurpose]string{
	models.PurposeRegister:       "",
	models.PurposeLogin:          " for login",
	models.PurposeEmailChange:    " for changing email",
	models.PurposePhoneChange:    " for changing phone",
	models.PurposePasswordChange: " for changing password",
}

// Issue replaces any pending challenge for purpose with a fresh code, stages
// the given values next to it and mails the code to deliverTo. Only a storage
// failure is returned; delivery problems are logged.
func (i *Issuer) Issue(ctx context.Context, acc *models.Account, purpose models.OTPPurpose, deliverTo string, staged map[string]string) error {
	if !purpose.Valid() {
		return fmt.Errorf("unknown otp purpose %q", purpose)
	}
	if err := i.Policy.AllowIssue(ctx, acc.ID, purpose); err != nil {
		return err
	}

	code, err := i.Generate()
	if err != nil {
		i.Policy.ReleaseIssue(ctx, acc.ID, purpose)
		return err
	}

	if staged == nil {
		staged = map[string]string{}
	}
	if purpose == models.PurposeRegister || purpose == models.PurposeLogin {
		staged["otpPurpose"] = string(purpose)
	}

	ch := models.Challenge{
		Purpose: purpose,
		Code:    code,
		Expiry:  i.Now().Add(i.TTL),
		Staged:  staged,
	}
	if err := i.Store.StageChallenge(ctx, acc.ID, ch); err != nil {
		i.Policy.ReleaseIssue(ctx, acc.ID, purpose)
		return fmt.Errorf("failed to store %s otp: %w", purpose, err)
	}
	acc.SetChallenge(ch)

	body := fmt.Sprintf("Your OTP code%s is: %s. It is valid for %d minutes.", actions[purpose], code, int(i.TTL.Minutes()))
	if err := i.Mailer.Send(ctx, deliverTo, subjects[purpose], body); err != nil {
		utils.GetLogger().Error("otp: email delivery failed",
			zap.String("purpose", string(purpose)),
			zap.String("accountId", acc.ID),
			zap.Error(err))
	}
	return nil
}

// Confirm checks submitted against the account's active challenge for
// purpose. Every call uses up one attempt until a correct code resets the
// budget. Staged values are left in place on failure.
func (i *Issuer) Confirm(ctx context.Context, acc *models.Account, purpose models.OTPPurpose, submitted string) error {
	if err := i.Policy.AllowAttempt(ctx, acc.ID, purpose); err != nil {
		return err
	}

	code, expiry, ok := acc.ActiveChallenge(purpose)
	if !ok {
		return utils.ErrInvalidOrExpiredOtp
	}
	if !utils.OTPEqual(code, submitted) {
		return utils.ErrInvalidOrExpiredOtp
	}
	if !i.Now().Before(*expiry) {
		return utils.ErrInvalidOrExpiredOtp
	}

	i.Policy.Reset(ctx, acc.ID, purpose)
	return nil
}
