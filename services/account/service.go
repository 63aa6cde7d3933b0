package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	accountRepo "aiacard/database/repository/account"
	"aiacard/models"
	"aiacard/services/otp"
	"aiacard/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Service runs the OTP-gated account flows: registration, login and the
// email, phone and password changes.
type Service struct {
	Repo       accountRepo.AccountRepository
	OTP        *otp.Issuer
	BcryptCost int
	NewID      func() string
}

func NewService(repo accountRepo.AccountRepository, issuer *otp.Issuer) *Service {
	return &Service{
		Repo:       repo,
		OTP:        issuer,
		BcryptCost: bcrypt.DefaultCost,
		NewID:      func() string { return uuid.New().String() },
	}
}

// AuthResponse is returned by every confirm step: a fresh token for the
// post-mutation identity and the public account projection.
type AuthResponse struct {
	Token    string             `json:"token"`
	User     models.AccountView `json:"user"`
	NewEmail string             `json:"newEmail,omitempty"`
	NewPhone string             `json:"newPhone,omitempty"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) authResponse(acc *models.Account) (*AuthResponse, error) {
	token, err := utils.MintSessionToken(utils.SessionClaims{
		AccountID: acc.ID,
		Email:     acc.Email,
		Mobile:    acc.Mobile,
	})
	if err != nil {
		utils.GetLogger().Error("failed to mint session token", zap.String("accountId", acc.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to mint session token: %w", err)
	}
	return &AuthResponse{Token: token, User: acc.View()}, nil
}

func (s *Service) byEmail(ctx context.Context, email string) (*models.Account, error) {
	acc, err := s.Repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("account lookup failed: %w", err)
	}
	if acc == nil {
		return nil, utils.ErrAccountNotFound
	}
	return acc, nil
}

func (s *Service) byPhone(ctx context.Context, areaCode, mobile string) (*models.Account, error) {
	acc, err := s.Repo.GetByPhone(ctx, strings.TrimSpace(areaCode), strings.TrimSpace(mobile))
	if err != nil {
		return nil, fmt.Errorf("account lookup failed: %w", err)
	}
	if acc == nil {
		return nil, utils.ErrAccountNotFound
	}
	return acc, nil
}

func (s *Service) byID(ctx context.Context, id string) (*models.Account, error) {
	acc, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("account lookup failed: %w", err)
	}
	if acc == nil {
		return nil, utils.ErrAccountNotFound
	}
	return acc, nil
}

// confirmAndCommit validates the submitted code and promotes the staged
// values in one conditional write. acc is updated in place.
func (s *Service) confirmAndCommit(ctx context.Context, acc *models.Account, purpose models.OTPPurpose, submitted string) error {
	if err := s.OTP.Confirm(ctx, acc, purpose, submitted); err != nil {
		return err
	}

	err := s.Repo.CommitChallenge(ctx, acc, purpose)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, accountRepo.ErrChallengeMismatch):
		return utils.ErrInvalidOrExpiredOtp
	case errors.Is(err, accountRepo.ErrDuplicateKey):
		if purpose == models.PurposePhoneChange {
			return &utils.TargetInUseError{Target: "phone"}
		}
		return &utils.TargetInUseError{Target: "email"}
	}
	utils.GetLogger().Error("failed to commit challenge",
		zap.String("purpose", string(purpose)),
		zap.String("accountId", acc.ID),
		zap.Error(err))
	return fmt.Errorf("commit %s: %w", purpose, err)
}
