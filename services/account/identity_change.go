package account

import (
	"context"
	"fmt"
	"strings"

	"aiacard/models"
	"aiacard/utils"
)

// RequestEmailChange stages newEmail on the account found by currentEmail and
// mails the code to the new address.
func (s *Service) RequestEmailChange(ctx context.Context, currentEmail, newEmail string) error {
	acc, err := s.byEmail(ctx, currentEmail)
	if err != nil {
		return err
	}

	target := normalizeEmail(newEmail)
	if target == acc.Email {
		return &utils.TargetInUseError{Target: "email"}
	}
	holder, err := s.Repo.GetByEmail(ctx, target)
	if err != nil {
		return fmt.Errorf("email lookup failed: %w", err)
	}
	if holder != nil {
		return &utils.TargetInUseError{Target: "email"}
	}

	return s.OTP.Issue(ctx, acc, models.PurposeEmailChange, target, map[string]string{
		"tempNewEmail": target,
	})
}

// ConfirmEmailChange makes the staged email authoritative.
func (s *Service) ConfirmEmailChange(ctx context.Context, currentEmail, code string) (*AuthResponse, error) {
	acc, err := s.byEmail(ctx, currentEmail)
	if err != nil {
		return nil, err
	}
	if err := s.confirmAndCommit(ctx, acc, models.PurposeEmailChange, code); err != nil {
		return nil, err
	}

	resp, err := s.authResponse(acc)
	if err != nil {
		return nil, err
	}
	resp.NewEmail = acc.Email
	return resp, nil
}

// PhoneChangeInput identifies the account by its current phone and names the
// replacement.
type PhoneChangeInput struct {
	CurrentAreaCode string `json:"currentAreaCode" binding:"required"`
	CurrentMobile   string `json:"currentMobile" binding:"required"`
	NewAreaCode     string `json:"newAreaCode" binding:"required"`
	NewMobile       string `json:"newMobile" binding:"required"`
}

// RequestPhoneChange stages the new phone and mails the code to the
// account's email.
func (s *Service) RequestPhoneChange(ctx context.Context, in PhoneChangeInput) error {
	acc, err := s.byPhone(ctx, in.CurrentAreaCode, in.CurrentMobile)
	if err != nil {
		return err
	}

	areaCode, mobile := strings.TrimSpace(in.NewAreaCode), strings.TrimSpace(in.NewMobile)
	holder, err := s.Repo.GetByPhone(ctx, areaCode, mobile)
	if err != nil {
		return fmt.Errorf("phone lookup failed: %w", err)
	}
	if holder != nil {
		return &utils.TargetInUseError{Target: "phone"}
	}

	return s.OTP.Issue(ctx, acc, models.PurposePhoneChange, acc.Email, map[string]string{
		"tempNewAreaCode": areaCode,
		"tempNewPhone":    mobile,
	})
}

// ConfirmPhoneChange makes the staged phone authoritative.
func (s *Service) ConfirmPhoneChange(ctx context.Context, areaCode, mobile, code string) (*AuthResponse, error) {
	acc, err := s.byPhone(ctx, areaCode, mobile)
	if err != nil {
		return nil, err
	}
	if err := s.confirmAndCommit(ctx, acc, models.PurposePhoneChange, code); err != nil {
		return nil, err
	}

	resp, err := s.authResponse(acc)
	if err != nil {
		return nil, err
	}
	resp.NewPhone = acc.AreaCode + acc.Mobile
	return resp, nil
}

// RequestPasswordChange re-authenticates the signed-in account and stages the
// hash of the new password.
func (s *Service) RequestPasswordChange(ctx context.Context, accountID, currentPassword, newPassword string) error {
	acc, err := s.byID(ctx, accountID)
	if err != nil {
		return err
	}
	if !checkPassword(acc.PasswordHash, currentPassword) {
		return utils.ErrWrongCurrentPassword
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := s.hashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.OTP.Issue(ctx, acc, models.PurposePasswordChange, acc.Email, map[string]string{
		"tempNewPassword": hash,
	})
}

// ConfirmPasswordChange makes the staged password hash authoritative.
func (s *Service) ConfirmPasswordChange(ctx context.Context, accountID, code string) (*AuthResponse, error) {
	acc, err := s.byID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if err := s.confirmAndCommit(ctx, acc, models.PurposePasswordChange, code); err != nil {
		return nil, err
	}
	return s.authResponse(acc)
}
