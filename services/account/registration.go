package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	accountRepo "aiacard/database/repository/account"
	"aiacard/models"
	"aiacard/utils"

	"go.uber.org/zap"
)

// RegisterInput is the sign-up form.
type RegisterInput struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	AreaCode   string `json:"areaCode"`
	Mobile     string `json:"mobile"`
	Birthday   string `json:"birthday"`
	Address    string `json:"address"`
	Town       string `json:"town"`
	PostCode   string `json:"postCode"`
	Country    string `json:"country"`
	ReferralID string `json:"referralId"`
}

// Register creates an unverified account and mails a registration code.
func (s *Service) Register(ctx context.Context, in RegisterInput) error {
	email := normalizeEmail(in.Email)
	if err := ValidatePassword(in.Password); err != nil {
		return err
	}

	existing, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		utils.GetLogger().Error("Register: email lookup failed", zap.Error(err))
		return fmt.Errorf("registration failed: %w", err)
	}
	if existing != nil {
		return utils.ErrAlreadyRegistered
	}

	areaCode, mobile := strings.TrimSpace(in.AreaCode), strings.TrimSpace(in.Mobile)
	if mobile != "" {
		holder, err := s.Repo.GetByPhone(ctx, areaCode, mobile)
		if err != nil {
			utils.GetLogger().Error("Register: phone lookup failed", zap.Error(err))
			return fmt.Errorf("registration failed: %w", err)
		}
		if holder != nil {
			return utils.ErrPhoneRegistered
		}
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		utils.GetLogger().Error("Register: failed to hash password", zap.Error(err))
		return err
	}

	acc := &models.Account{
		ID:           s.NewID(),
		Email:        email,
		AreaCode:     areaCode,
		Mobile:       mobile,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Birthday:     in.Birthday,
		Address:      in.Address,
		Town:         in.Town,
		PostCode:     in.PostCode,
		Country:      in.Country,
		ReferralID:   in.ReferralID,
	}
	if err := s.Repo.Create(ctx, acc); err != nil {
		if errors.Is(err, accountRepo.ErrDuplicateKey) {
			return utils.ErrAlreadyRegistered
		}
		utils.GetLogger().Error("Register: failed to create account", zap.Error(err))
		return fmt.Errorf("registration failed: %w", err)
	}

	return s.OTP.Issue(ctx, acc, models.PurposeRegister, acc.Email, nil)
}

// VerifyRegistration confirms the registration code and marks the account verified.
func (s *Service) VerifyRegistration(ctx context.Context, email, code string) (*AuthResponse, error) {
	acc, err := s.byEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := s.confirmAndCommit(ctx, acc, models.PurposeRegister, code); err != nil {
		return nil, err
	}
	return s.authResponse(acc)
}

// ResendRegistrationOTP replaces the pending registration code.
func (s *Service) ResendRegistrationOTP(ctx context.Context, email string) error {
	acc, err := s.byEmail(ctx, email)
	if err != nil {
		return err
	}
	if acc.Verified {
		return utils.ErrAlreadyRegistered
	}
	return s.OTP.Issue(ctx, acc, models.PurposeRegister, acc.Email, nil)
}
