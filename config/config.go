package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`
	// TrustedProxies lists the proxy addresses or CIDRs whose forwarding
	// headers are believed. Empty means clients connect directly.
	TrustedProxies []string `mapstructure:"TRUSTED_PROXIES"`

	// MongoDB.
	DatabaseURL    string `mapstructure:"DATABASE_URL"`
	DatabaseName   string `mapstructure:"DATABASE_NAME"`
	CollectionName string `mapstructure:"COLLECTION_NAME"`

	// Session tokens.
	JWTSecret  string        `mapstructure:"JWT_SECRET"`
	SessionTTL time.Duration `mapstructure:"SESSION_TTL"`

	// OTP policy.
	OTPTTL            time.Duration `mapstructure:"OTP_TTL"`
	OTPResendInterval time.Duration `mapstructure:"OTP_RESEND_INTERVAL"`
	OTPMaxAttempts    int           `mapstructure:"OTP_MAX_ATTEMPTS"`

	// Redis configuration.
	RedisEnabled  bool   `mapstructure:"REDIS_ENABLED"`
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisOTPDB    int    `mapstructure:"REDIS_OTP_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Email delivery.
	EmailProvider  string `mapstructure:"EMAIL_PROVIDER"`
	EmailQueue     bool   `mapstructure:"EMAIL_QUEUE"`
	EmailFrom      string `mapstructure:"EMAIL_FROM"`
	SenderName     string `mapstructure:"SENDER_NAME"`
	SMTPHost       string `mapstructure:"SMTP_HOST"`
	SMTPPort       int    `mapstructure:"SMTP_PORT"`
	SMTPUser       string `mapstructure:"SMTP_USER"`
	SMTPPassword   string `mapstructure:"SMTP_PASSWORD"`
	SendGridAPIKey string `mapstructure:"SENDGRID_API_KEY"`

	// Stripe.
	StripeKey                 string `mapstructure:"STRIPE_KEY"`
	StripeEphemeralKeyVersion string `mapstructure:"STRIPE_EPHEMERAL_KEY_VERSION"`
	StripeCurrency            string `mapstructure:"STRIPE_CURRENCY"`

	// WasabiCard partner API.
	WasabiBaseURL        string        `mapstructure:"WASABI_BASE_URL"`
	WasabiAPIKey         string        `mapstructure:"WASABI_API_KEY"`
	WasabiPrivateKey     string        `mapstructure:"WASABI_PRIVATE_KEY"`
	WasabiPrivateKeyPath string        `mapstructure:"WASABI_PRIVATE_KEY_PATH"`
	WasabiTimeout        time.Duration `mapstructure:"WASABI_TIMEOUT"`
	CardTypeID           int64         `mapstructure:"WASABI_CARD_TYPE_ID"`
	OpenCardAmount       float64       `mapstructure:"WASABI_OPEN_CARD_AMOUNT"`

	// Card issuance reconciliation.
	ReconcileCron     string        `mapstructure:"RECONCILE_CRON"`
	ReconcileMinAge   time.Duration `mapstructure:"RECONCILE_MIN_AGE"`
	ReconcileBatch    int           `mapstructure:"RECONCILE_BATCH"`
	CardOpenMaxRetry  int           `mapstructure:"CARD_OPEN_MAX_RETRY"`
	WorkerConcurrency int           `mapstructure:"WORKER_CONCURRENCY"`

	// Firebase Cloud Messaging; empty disables push.
	FirebaseCredentialsPath string `mapstructure:"FIREBASE_CREDENTIALS_PATH"`

	// Cloudinary; empty cloud name disables photo upload.
	CloudinaryCloudName string `mapstructure:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `mapstructure:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `mapstructure:"CLOUDINARY_API_SECRET"`
	CloudinaryFolder    string `mapstructure:"CLOUDINARY_FOLDER"`
}

var AppConfig Config

func setDefaults() {
	viper.SetDefault("APP_PORT", "5000")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("TRUSTED_PROXIES", []string{})

	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "aiacard-sandbox-db")
	viper.SetDefault("COLLECTION_NAME", "aiacard-sandox-col")

	viper.SetDefault("JWT_SECRET", "")
	viper.SetDefault("SESSION_TTL", time.Hour)

	viper.SetDefault("OTP_TTL", 10*time.Minute)
	viper.SetDefault("OTP_RESEND_INTERVAL", 30*time.Second)
	viper.SetDefault("OTP_MAX_ATTEMPTS", 5)

	viper.SetDefault("REDIS_ENABLED", true)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_OTP_DB", 2)
	viper.SetDefault("REDIS_QUEUE_DB", 3)

	viper.SetDefault("EMAIL_PROVIDER", "smtp")
	viper.SetDefault("EMAIL_QUEUE", false)
	viper.SetDefault("EMAIL_FROM", "no-reply@aiacard.com")
	viper.SetDefault("SENDER_NAME", "AiaCard")
	viper.SetDefault("SMTP_HOST", "smtp.gmail.com")
	viper.SetDefault("SMTP_PORT", 587)

	viper.SetDefault("STRIPE_EPHEMERAL_KEY_VERSION", "2022-11-15")
	viper.SetDefault("STRIPE_CURRENCY", "usd")

	viper.SetDefault("WASABI_BASE_URL", "https://sandbox-api-merchant.wasabicard.com")
	viper.SetDefault("WASABI_TIMEOUT", 30*time.Second)
	viper.SetDefault("WASABI_CARD_TYPE_ID", 111016)
	viper.SetDefault("WASABI_OPEN_CARD_AMOUNT", 50)

	viper.SetDefault("RECONCILE_CRON", "@every 10m")
	viper.SetDefault("RECONCILE_MIN_AGE", 2*time.Minute)
	viper.SetDefault("RECONCILE_BATCH", 50)
	viper.SetDefault("CARD_OPEN_MAX_RETRY", 5)
	viper.SetDefault("WORKER_CONCURRENCY", 10)

	viper.SetDefault("FIREBASE_CREDENTIALS_PATH", "")
	viper.SetDefault("CLOUDINARY_CLOUD_NAME", "")
	viper.SetDefault("CLOUDINARY_API_KEY", "")
	viper.SetDefault("CLOUDINARY_API_SECRET", "")
	viper.SetDefault("CLOUDINARY_FOLDER", "aiacard/profile-photos")
}

func LoadConfig() {
	// A local .env is optional; real deployments inject the environment.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, continuing")
	}

	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if AppConfig.JWTSecret == "" {
		if IsProduction() {
			log.Fatal("JWT_SECRET must be set in production")
		}
		log.Println("JWT_SECRET not set, using development secret")
		AppConfig.JWTSecret = "aiacard-dev-secret"
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
