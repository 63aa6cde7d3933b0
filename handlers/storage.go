package handlers

import (
	"net/http"

	"aiacard/middleware"
	"aiacard/models"
	"aiacard/services/account"
	"aiacard/services/storage"
	"aiacard/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxPhotoSize = 5 << 20

// StorageHandler handles profile photo uploads.
type StorageHandler struct {
	Photos   storage.PhotoStore
	Accounts *account.Service
}

func NewStorageHandler(photos storage.PhotoStore, accounts *account.Service) *StorageHandler {
	return &StorageHandler{Photos: photos, Accounts: accounts}
}

// UploadPhotoHandler stores the multipart "photo" file and records its URL on
// the signed-in account.
func (h *StorageHandler) UploadPhotoHandler(c *gin.Context) {
	if h.Photos == nil {
		utils.RespondError(c, utils.ErrFeatureDisabled)
		return
	}

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Photo file not provided.", err.Error())
		return
	}
	if fileHeader.Size > maxPhotoSize {
		utils.JSONError(c, http.StatusBadRequest, "Photo must be 5MB or smaller.", "")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Photo file could not be read.", err.Error())
		return
	}
	defer file.Close()

	accountID := c.GetString(middleware.CtxAccountID)
	url, err := h.Photos.UploadProfilePhoto(c.Request.Context(), accountID, file)
	if err != nil {
		getLogger(c).Error("photo upload failed", zap.String("accountId", accountID), zap.Error(err))
		utils.RespondError(c, err)
		return
	}

	resp, err := h.Accounts.UpdateProfileByID(c.Request.Context(), accountID, models.ProfileUpdate{Photo: &url})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"photo":   url,
		"user":    resp.User,
		"token":   resp.Token,
	})
}

// DeletePhotoHandler removes the signed-in account's stored photo and clears
// its URL.
func (h *StorageHandler) DeletePhotoHandler(c *gin.Context) {
	if h.Photos == nil {
		utils.RespondError(c, utils.ErrFeatureDisabled)
		return
	}

	accountID := c.GetString(middleware.CtxAccountID)
	if err := h.Photos.DeleteProfilePhoto(c.Request.Context(), accountID); err != nil {
		getLogger(c).Error("photo delete failed", zap.String("accountId", accountID), zap.Error(err))
		utils.RespondError(c, err)
		return
	}

	empty := ""
	resp, err := h.Accounts.UpdateProfileByID(c.Request.Context(), accountID, models.ProfileUpdate{Photo: &empty})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    resp.User,
		"token":   resp.Token,
	})
}
