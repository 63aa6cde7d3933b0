package account

import (
	"context"

	"aiacard/models"
	"aiacard/utils"
)

// Login checks the password and mails a login code. The code is a second
// factor; the password is always required first.
func (s *Service) Login(ctx context.Context, email, password string) error {
	acc, err := s.byEmail(ctx, email)
	if err != nil {
		return err
	}
	if !checkPassword(acc.PasswordHash, password) {
		return utils.ErrInvalidCredentials
	}
	return s.OTP.Issue(ctx, acc, models.PurposeLogin, acc.Email, nil)
}

// VerifyLogin confirms the login code and returns a session.
func (s *Service) VerifyLogin(ctx context.Context, email, code string) (*AuthResponse, error) {
	acc, err := s.byEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := s.confirmAndCommit(ctx, acc, models.PurposeLogin, code); err != nil {
		return nil, err
	}
	return s.authResponse(acc)
}

// ResendLoginOTP reissues a login code. It requires an unexpired login
// challenge so the password step cannot be skipped.
func (s *Service) ResendLoginOTP(ctx context.Context, email string) error {
	acc, err := s.byEmail(ctx, email)
	if err != nil {
		return err
	}
	_, expiry, ok := acc.ActiveChallenge(models.PurposeLogin)
	if !ok || !s.OTP.Now().Before(*expiry) {
		return utils.ErrInvalidOrExpiredOtp
	}
	return s.OTP.Issue(ctx, acc, models.PurposeLogin, acc.Email, nil)
}
