package utils

import "time"

// Redis key prefixes for the OTP policy.
const (
	OTPResendPrefix   = "otp:resend:"
	OTPAttemptsPrefix = "otp:attempts:"
)

// DefaultOTPTTL is how long an issued code stays valid.
const DefaultOTPTTL = 10 * time.Minute
