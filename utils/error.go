package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse defines the structure of error responses
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ErrorHandler is a middleware to catch panics and return structured errors
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				GetLogger().Error("Unhandled panic", zap.Any("error", err), zap.Stack("stack"))

				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
					Message: "Server error",
				})
			}
		}()
		c.Next()
	}
}

// JSONError sends a standardized JSON error response
func JSONError(c *gin.Context, status int, message string, details string) {
	GetLogger().Warn(message, zap.Int("status", status), zap.String("path", c.FullPath()), zap.String("details", details))
	c.JSON(status, ErrorResponse{Message: message, Details: details})
}

// StatusFor maps a domain error to its HTTP status and client message.
func StatusFor(err error) (int, string) {
	var target *TargetInUseError
	var incomplete *IncompleteProfileError
	var partner *PartnerAPIError

	switch {
	case errors.Is(err, ErrAccountNotFound):
		return http.StatusNotFound, "User not found."
	case errors.Is(err, ErrPhoneRegistered):
		return http.StatusBadRequest, "Phone number already registered."
	case errors.Is(err, ErrAlreadyRegistered):
		return http.StatusBadRequest, "Email already registered. Please log in."
	case errors.Is(err, ErrWrongCurrentPassword):
		return http.StatusUnauthorized, "Current password is incorrect."
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid username or password."
	case errors.Is(err, ErrInvalidOrExpiredOtp):
		return http.StatusBadRequest, "Invalid or expired OTP. Please try again."
	case errors.As(err, &target):
		if target.Target == "phone" {
			return http.StatusBadRequest, "New phone is already in use."
		}
		return http.StatusBadRequest, "New email is already in use."
	case errors.Is(err, ErrTargetAlreadyInUse):
		return http.StatusBadRequest, "New value is already in use."
	case errors.As(err, &incomplete):
		return http.StatusBadRequest, "Missing required field: " + incomplete.Field
	case errors.Is(err, ErrOtpRateLimited):
		return http.StatusTooManyRequests, "Too many OTP requests. Please wait and try again."
	case errors.Is(err, ErrWeakPassword):
		return http.StatusBadRequest, "Password must be at least 8 characters and contain a letter and a digit."
	case errors.Is(err, ErrNothingToUpdate):
		return http.StatusBadRequest, "Update failed."
	case errors.Is(err, ErrPaymentNotConfirmed):
		return http.StatusPaymentRequired, "Payment has not been confirmed."
	case errors.Is(err, ErrPaymentAlreadyUsed):
		return http.StatusConflict, "This payment has already been used."
	case errors.Is(err, ErrFeatureDisabled):
		return http.StatusServiceUnavailable, "This feature is not available."
	case errors.As(err, &partner):
		return http.StatusBadGateway, "Card issuer request failed."
	}
	return http.StatusInternalServerError, "Server error"
}

// RespondError writes err as an error envelope. Unknown errors are logged and
// hidden behind a generic message.
func RespondError(c *gin.Context, err error) {
	status, message := StatusFor(err)
	if status >= http.StatusInternalServerError || status == http.StatusBadGateway {
		GetLogger().Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, ErrorResponse{Message: message})
}
