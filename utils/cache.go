package utils

import (
	"context"
	"log"
	"time"

	"aiacard/config"

	"github.com/go-redis/redis/v8"
)

// OTPCacheClient backs the OTP rate-limit policy. Nil when Redis is disabled.
var OTPCacheClient *redis.Client

// InitRedis connects the OTP cache client. With REDIS_ENABLED=false it leaves
// the client nil and the OTP policy falls back to a no-op.
func InitRedis() {
	if !config.AppConfig.RedisEnabled {
		log.Println("Redis disabled; OTP rate limiting and background jobs are off")
		return
	}
	OTPCacheClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisOTPDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := OTPCacheClient.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis (OTP): %v", err)
	}
}

// GetOTPCacheClient returns the OTP cache client, or nil when Redis is off.
func GetOTPCacheClient() *redis.Client {
	return OTPCacheClient
}
