package otp

import (
	"context"
	"time"

	"aiacard/models"
	"aiacard/utils"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Policy guards the issuer against spam and brute force.
type Policy interface {
	// AllowIssue fails with utils.ErrOtpRateLimited inside the resend interval.
	AllowIssue(ctx context.Context, accountID string, purpose models.OTPPurpose) error
	// ReleaseIssue gives back a resend window taken by AllowIssue when the
	// code could not be stored.
	ReleaseIssue(ctx context.Context, accountID string, purpose models.OTPPurpose)
	// AllowAttempt reserves one confirm attempt and fails with
	// utils.ErrOtpRateLimited once the cap is used up.
	AllowAttempt(ctx context.Context, accountID string, purpose models.OTPPurpose) error
	Reset(ctx context.Context, accountID string, purpose models.OTPPurpose)
}

// NoopPolicy allows everything.
type NoopPolicy struct{}

func (NoopPolicy) AllowIssue(context.Context, string, models.OTPPurpose) error   { return nil }
func (NoopPolicy) ReleaseIssue(context.Context, string, models.OTPPurpose)       {}
func (NoopPolicy) AllowAttempt(context.Context, string, models.OTPPurpose) error { return nil }
func (NoopPolicy) Reset(context.Context, string, models.OTPPurpose)              {}

// RedisPolicy keeps resend windows and failure counters in Redis. Redis
// errors fail open so an outage does not lock users out.
type RedisPolicy struct {
	client         *redis.Client
	resendInterval time.Duration
	attemptWindow  time.Duration
	maxAttempts    int64
}

func NewRedisPolicy(client *redis.Client, resendInterval, attemptWindow time.Duration, maxAttempts int) *RedisPolicy {
	return &RedisPolicy{
		client:         client,
		resendInterval: resendInterval,
		attemptWindow:  attemptWindow,
		maxAttempts:    int64(maxAttempts),
	}
}

func resendKey(accountID string, purpose models.OTPPurpose) string {
	return utils.OTPResendPrefix + string(purpose) + ":" + accountID
}

func attemptsKey(accountID string, purpose models.OTPPurpose) string {
	return utils.OTPAttemptsPrefix + string(purpose) + ":" + accountID
}

func (p *RedisPolicy) AllowIssue(ctx context.Context, accountID string, purpose models.OTPPurpose) error {
	if p.resendInterval <= 0 {
		return nil
	}
	ok, err := p.client.SetNX(ctx, resendKey(accountID, purpose), 1, p.resendInterval).Result()
	if err != nil {
		utils.GetLogger().Warn("otp policy: resend check failed", zap.String("purpose", string(purpose)), zap.Error(err))
		return nil
	}
	if !ok {
		return utils.ErrOtpRateLimited
	}
	// A fresh code gets a fresh failure budget.
	if err := p.client.Del(ctx, attemptsKey(accountID, purpose)).Err(); err != nil {
		utils.GetLogger().Warn("otp policy: attempt reset failed", zap.Error(err))
	}
	return nil
}

func (p *RedisPolicy) ReleaseIssue(ctx context.Context, accountID string, purpose models.OTPPurpose) {
	if err := p.client.Del(ctx, resendKey(accountID, purpose)).Err(); err != nil {
		utils.GetLogger().Warn("otp policy: resend release failed", zap.Error(err))
	}
}

// AllowAttempt counts the attempt before checking it, so concurrent confirms
// cannot share one remaining slot.
func (p *RedisPolicy) AllowAttempt(ctx context.Context, accountID string, purpose models.OTPPurpose) error {
	if p.maxAttempts <= 0 {
		return nil
	}
	key := attemptsKey(accountID, purpose)
	pipe := p.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, p.attemptWindow)
	if _, err := pipe.Exec(ctx); err != nil {
		utils.GetLogger().Warn("otp policy: attempt check failed", zap.Error(err))
		return nil
	}
	if incr.Val() > p.maxAttempts {
		return utils.ErrOtpRateLimited
	}
	return nil
}

func (p *RedisPolicy) Reset(ctx context.Context, accountID string, purpose models.OTPPurpose) {
	if err := p.client.Del(ctx, attemptsKey(accountID, purpose), resendKey(accountID, purpose)).Err(); err != nil {
		utils.GetLogger().Warn("otp policy: reset failed", zap.Error(err))
	}
}
