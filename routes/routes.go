package routes

import (
	"net/http"
	"time"

	"aiacard/handlers"
	"aiacard/middleware"
	"aiacard/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterAccountRoutes registers registration, login and profile endpoints.
func RegisterAccountRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.POST("/register", hb.RegisterHandler)
	r.POST("/verify-otp", hb.VerifyOTPHandler)
	r.POST("/login", hb.LoginHandler)
	r.POST("/verify-login-otp", hb.VerifyLoginOTPHandler)
	r.POST("/resend-login-otp", hb.ResendLoginOTPHandler)
	r.POST("/resend-register-otp", hb.ResendRegisterOTPHandler)
	r.POST("/updateProfile", hb.UpdateProfileHandler)

	r.POST("/change-email-otp", hb.ChangeEmailOTPHandler)
	r.POST("/verify-change-email-otp", hb.VerifyChangeEmailOTPHandler)
	r.POST("/change-phone-otp", hb.ChangePhoneOTPHandler)
	r.POST("/verify-change-phone-otp", hb.VerifyChangePhoneOTPHandler)

	// Protected routes (Require Authentication)
	protected := r.Group("")
	protected.Use(middleware.JWTAuthMiddleware())
	protected.GET("/me", hb.MeHandler)
	protected.POST("/upload-photo", hb.UploadPhotoHandler)
	protected.DELETE("/photo", hb.DeletePhotoHandler)
	protected.POST("/change-password-otp", hb.ChangePasswordOTPHandler)
	protected.POST("/verify-change-password-otp", hb.VerifyChangePasswordOTPHandler)
}

// RegisterCardRoutes registers the payment and card issuance endpoints.
func RegisterCardRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.POST("/payment-sheet", hb.PaymentSheetHandler)
	r.POST("/create-cardholder", hb.CreateCardholderHandler)
}

// RegisterHealthRoutes registers the liveness and dependency health endpoints.
func RegisterHealthRoutes(r *gin.Engine) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/health", func(c *gin.Context) {
		status := utils.GetHealthStatus()
		code := http.StatusOK
		if !status.Mongo {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"success": status.Mongo, "health": status})
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	RegisterAccountRoutes(r, hb)
	RegisterCardRoutes(r, hb)
	RegisterHealthRoutes(r)
}
