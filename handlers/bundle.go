package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	// Registration and login
	RegisterHandler          gin.HandlerFunc
	VerifyOTPHandler         gin.HandlerFunc
	LoginHandler             gin.HandlerFunc
	VerifyLoginOTPHandler    gin.HandlerFunc
	ResendLoginOTPHandler    gin.HandlerFunc
	ResendRegisterOTPHandler gin.HandlerFunc

	// Profile
	UpdateProfileHandler gin.HandlerFunc
	UploadPhotoHandler   gin.HandlerFunc
	DeletePhotoHandler   gin.HandlerFunc
	MeHandler            gin.HandlerFunc

	// Identity changes
	ChangeEmailOTPHandler          gin.HandlerFunc
	VerifyChangeEmailOTPHandler    gin.HandlerFunc
	ChangePhoneOTPHandler          gin.HandlerFunc
	VerifyChangePhoneOTPHandler    gin.HandlerFunc
	ChangePasswordOTPHandler       gin.HandlerFunc
	VerifyChangePasswordOTPHandler gin.HandlerFunc

	// Payments and cards
	PaymentSheetHandler     gin.HandlerFunc
	CreateCardholderHandler gin.HandlerFunc
}

// NewHandlerBundle wires the handlers' methods into a bundle.
func NewHandlerBundle(accounts *AccountHandler, cards *CardHandler, storage *StorageHandler) *HandlerBundle {
	return &HandlerBundle{
		RegisterHandler:          accounts.RegisterHandler,
		VerifyOTPHandler:         accounts.VerifyOTPHandler,
		LoginHandler:             accounts.LoginHandler,
		VerifyLoginOTPHandler:    accounts.VerifyLoginOTPHandler,
		ResendLoginOTPHandler:    accounts.ResendLoginOTPHandler,
		ResendRegisterOTPHandler: accounts.ResendRegisterOTPHandler,

		UpdateProfileHandler: accounts.UpdateProfileHandler,
		UploadPhotoHandler:   storage.UploadPhotoHandler,
		DeletePhotoHandler:   storage.DeletePhotoHandler,
		MeHandler:            accounts.MeHandler,

		ChangeEmailOTPHandler:          accounts.ChangeEmailOTPHandler,
		VerifyChangeEmailOTPHandler:    accounts.VerifyChangeEmailOTPHandler,
		ChangePhoneOTPHandler:          accounts.ChangePhoneOTPHandler,
		VerifyChangePhoneOTPHandler:    accounts.VerifyChangePhoneOTPHandler,
		ChangePasswordOTPHandler:       accounts.ChangePasswordOTPHandler,
		VerifyChangePasswordOTPHandler: accounts.VerifyChangePasswordOTPHandler,

		PaymentSheetHandler:     cards.PaymentSheetHandler,
		CreateCardholderHandler: cards.CreateCardholderHandler,
	}
}
