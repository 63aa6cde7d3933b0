package handlers

import (
	"net/http"

	"aiacard/middleware"
	"aiacard/services/account"
	"aiacard/utils"

	"github.com/gin-gonic/gin"
)

// ChangeEmailOTPHandler stages a new email and mails the code to it.
func (h *AccountHandler) ChangeEmailOTPHandler(c *gin.Context) {
	var req struct {
		CurrentEmail string `json:"currentEmail" binding:"required"`
		NewEmail     string `json:"newEmail" binding:"required,email"`
	}
	if !bindJSON(c, &req, "Both currentEmail and newEmail are required.") {
		return
	}
	if err := h.Svc.RequestEmailChange(c.Request.Context(), req.CurrentEmail, req.NewEmail); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "OTP sent to new email address. Please verify to complete the change.",
	})
}

func (h *AccountHandler) VerifyChangeEmailOTPHandler(c *gin.Context) {
	var req struct {
		CurrentEmail string `json:"currentEmail" binding:"required"`
		OTP          string `json:"otp" binding:"required"`
	}
	if !bindJSON(c, &req, "currentEmail and otp are required.") {
		return
	}
	resp, err := h.Svc.ConfirmEmailChange(c.Request.Context(), req.CurrentEmail, req.OTP)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	authJSON(c, "Email updated successfully.", resp)
}

func (h *AccountHandler) ChangePhoneOTPHandler(c *gin.Context) {
	var req account.PhoneChangeInput
	if !bindJSON(c, &req, "currentAreaCode, currentMobile, newAreaCode, and newMobile are required.") {
		return
	}
	if err := h.Svc.RequestPhoneChange(c.Request.Context(), req); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "OTP sent. Please verify to complete phone change."})
}

func (h *AccountHandler) VerifyChangePhoneOTPHandler(c *gin.Context) {
	var req struct {
		CurrentAreaCode string `json:"currentAreaCode" binding:"required"`
		CurrentMobile   string `json:"currentMobile" binding:"required"`
		OTP             string `json:"otp" binding:"required"`
	}
	if !bindJSON(c, &req, "currentAreaCode, currentMobile, and otp are required.") {
		return
	}
	resp, err := h.Svc.ConfirmPhoneChange(c.Request.Context(), req.CurrentAreaCode, req.CurrentMobile, req.OTP)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	authJSON(c, "Phone updated successfully.", resp)
}

// ChangePasswordOTPHandler re-checks the current password of the signed-in
// account and mails a confirmation code.
func (h *AccountHandler) ChangePasswordOTPHandler(c *gin.Context) {
	var req struct {
		CurrentPassword string `json:"currentPassword" binding:"required"`
		NewPassword     string `json:"newPassword" binding:"required"`
	}
	if !bindJSON(c, &req, "Current and new password are required.") {
		return
	}
	accountID := c.GetString(middleware.CtxAccountID)
	if err := h.Svc.RequestPasswordChange(c.Request.Context(), accountID, req.CurrentPassword, req.NewPassword); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "OTP sent to your email for password change. Please verify to complete the change.",
	})
}

func (h *AccountHandler) VerifyChangePasswordOTPHandler(c *gin.Context) {
	var req struct {
		OTP string `json:"otp" binding:"required"`
	}
	if !bindJSON(c, &req, "OTP is required.") {
		return
	}
	resp, err := h.Svc.ConfirmPasswordChange(c.Request.Context(), c.GetString(middleware.CtxAccountID), req.OTP)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	authJSON(c, "Password updated successfully.", resp)
}
