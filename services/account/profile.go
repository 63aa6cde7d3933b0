package account

import (
	"context"
	"fmt"

	"aiacard/models"
	"aiacard/utils"

	"go.uber.org/zap"
)

// UpdateProfile applies the set profile attributes to the account found by
// email and returns a fresh session.
func (s *Service) UpdateProfile(ctx context.Context, email string, update models.ProfileUpdate) (*AuthResponse, error) {
	acc, err := s.byEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.UpdateProfileByID(ctx, acc.ID, update)
}

// UpdateProfileByID is UpdateProfile for a signed-in account.
func (s *Service) UpdateProfileByID(ctx context.Context, accountID string, update models.ProfileUpdate) (*AuthResponse, error) {
	if len(update.Fields()) == 0 {
		return nil, utils.ErrNothingToUpdate
	}

	acc, err := s.Repo.UpdateProfile(ctx, accountID, update)
	if err != nil {
		utils.GetLogger().Error("UpdateProfile: update failed", zap.String("accountId", accountID), zap.Error(err))
		return nil, fmt.Errorf("profile update failed: %w", err)
	}
	if acc == nil {
		return nil, utils.ErrAccountNotFound
	}
	return s.authResponse(acc)
}

// Get returns the account's public projection.
func (s *Service) Get(ctx context.Context, accountID string) (*models.AccountView, error) {
	acc, err := s.byID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	view := acc.View()
	return &view, nil
}
