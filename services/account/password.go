package account

import (
	"fmt"
	"unicode"

	"aiacard/utils"

	"golang.org/x/crypto/bcrypt"
)

// ValidatePassword requires at least 8 characters with a letter and a digit.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return utils.ErrWeakPassword
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return utils.ErrWeakPassword
	}
	return nil
}

func (s *Service) hashPassword(password string) (string, error) {
	cost := s.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
