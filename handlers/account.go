package handlers

import (
	"net/http"

	"aiacard/middleware"
	"aiacard/models"
	"aiacard/services/account"
	"aiacard/utils"

	"github.com/gin-gonic/gin"
)

// AccountHandler serves registration, login and profile endpoints.
type AccountHandler struct {
	Svc *account.Service
}

func NewAccountHandler(svc *account.Service) *AccountHandler {
	return &AccountHandler{Svc: svc}
}

type emailOTPRequest struct {
	Email string `json:"email" binding:"required"`
	OTP   string `json:"otp" binding:"required"`
}

type emailRequest struct {
	Email string `json:"email" binding:"required"`
}

func authJSON(c *gin.Context, message string, resp *account.AuthResponse) {
	body := gin.H{
		"success": true,
		"message": message,
		"token":   resp.Token,
		"user":    resp.User,
	}
	if resp.NewEmail != "" {
		body["newEmail"] = resp.NewEmail
	}
	if resp.NewPhone != "" {
		body["newPhone"] = resp.NewPhone
	}
	c.JSON(http.StatusOK, body)
}

// RegisterHandler creates an unverified account and mails a code.
func (h *AccountHandler) RegisterHandler(c *gin.Context) {
	var req account.RegisterInput
	if !bindJSON(c, &req, "A valid email and password are required.") {
		return
	}
	if err := h.Svc.Register(c.Request.Context(), req); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "OTP sent for verification."})
}

func (h *AccountHandler) VerifyOTPHandler(c *gin.Context) {
	var req emailOTPRequest
	if !bindJSON(c, &req, "Email and OTP are required.") {
		return
	}
	resp, err := h.Svc.VerifyRegistration(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	authJSON(c, "Account verified successfully.", resp)
}

func (h *AccountHandler) LoginHandler(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if !bindJSON(c, &req, "Email and password are required.") {
		return
	}
	if err := h.Svc.Login(c.Request.Context(), req.Email, req.Password); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "requiresOTP": true, "message": "OTP sent for login verification."})
}

func (h *AccountHandler) VerifyLoginOTPHandler(c *gin.Context) {
	var req emailOTPRequest
	if !bindJSON(c, &req, "Email and OTP are required.") {
		return
	}
	resp, err := h.Svc.VerifyLogin(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	authJSON(c, "Login successful.", resp)
}

func (h *AccountHandler) ResendLoginOTPHandler(c *gin.Context) {
	var req emailRequest
	if !bindJSON(c, &req, "Email is required.") {
		return
	}
	if err := h.Svc.ResendLoginOTP(c.Request.Context(), req.Email); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "OTP resent for login verification."})
}

func (h *AccountHandler) ResendRegisterOTPHandler(c *gin.Context) {
	var req emailRequest
	if !bindJSON(c, &req, "Email is required.") {
		return
	}
	if err := h.Svc.ResendRegistrationOTP(c.Request.Context(), req.Email); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "OTP resent for registration verification."})
}

// UpdateProfileHandler applies a partial profile update to the account named
// by email in the body.
func (h *AccountHandler) UpdateProfileHandler(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
		models.ProfileUpdate
	}
	if !bindJSON(c, &req, "Email is required.") {
		return
	}
	resp, err := h.Svc.UpdateProfile(c.Request.Context(), req.Email, req.ProfileUpdate)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	authJSON(c, "Profile updated successfully.", resp)
}

// MeHandler returns the signed-in account.
func (h *AccountHandler) MeHandler(c *gin.Context) {
	view, err := h.Svc.Get(c.Request.Context(), c.GetString(middleware.CtxAccountID))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": view})
}
