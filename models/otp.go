package models

import "time"

// OTPPurpose identifies which mutation a one-time code guards.
type OTPPurpose string

const (
	PurposeRegister       OTPPurpose = "register"
	PurposeLogin          OTPPurpose = "login"
	PurposeEmailChange    OTPPurpose = "email_change"
	PurposePhoneChange    OTPPurpose = "phone_change"
	PurposePasswordChange OTPPurpose = "password_change"
)

// ChallengeFields names the document fields holding one purpose's pending state.
type ChallengeFields struct {
	Code   string
	Expiry string
	Staged []string
}

// Fields returns the storage layout for the purpose. Registration and login
// share one field set; otpPurpose tells them apart.
func (p OTPPurpose) Fields() ChallengeFields {
	switch p {
	case PurposeRegister, PurposeLogin:
		return ChallengeFields{Code: "otp", Expiry: "otpExpiry", Staged: []string{"otpPurpose"}}
	case PurposeEmailChange:
		return ChallengeFields{Code: "emailChangeOtp", Expiry: "emailChangeExpiry", Staged: []string{"tempNewEmail"}}
	case PurposePhoneChange:
		return ChallengeFields{Code: "phoneChangeOtp", Expiry: "phoneChangeExpiry", Staged: []string{"tempNewAreaCode", "tempNewPhone"}}
	case PurposePasswordChange:
		return ChallengeFields{Code: "passwordChangeOtp", Expiry: "passwordChangeExpiry", Staged: []string{"tempNewPassword"}}
	}
	return ChallengeFields{}
}

// Valid reports whether p is a known purpose.
func (p OTPPurpose) Valid() bool {
	return p.Fields().Code != ""
}

// Challenge is a freshly issued code plus the values it stages.
type Challenge struct {
	Purpose OTPPurpose
	Code    string
	Expiry  time.Time
	Staged  map[string]string
}

// ActiveChallenge returns the stored code and expiry for the purpose. ok is
// false when nothing is pending for it.
func (a *Account) ActiveChallenge(p OTPPurpose) (code string, expiry *time.Time, ok bool) {
	switch p {
	case PurposeRegister, PurposeLogin:
		if a.OTPPurpose != p {
			return "", nil, false
		}
		code, expiry = a.OTP, a.OTPExpiry
	case PurposeEmailChange:
		code, expiry = a.EmailChangeOTP, a.EmailChangeExpiry
	case PurposePhoneChange:
		code, expiry = a.PhoneChangeOTP, a.PhoneChangeExpiry
	case PurposePasswordChange:
		code, expiry = a.PasswordChangeOTP, a.PasswordChangeExpiry
	}
	return code, expiry, code != "" && expiry != nil
}

// StagedValues returns the values staged under the purpose, keyed by field.
func (a *Account) StagedValues(p OTPPurpose) map[string]string {
	switch p {
	case PurposeRegister, PurposeLogin:
		return map[string]string{"otpPurpose": string(a.OTPPurpose)}
	case PurposeEmailChange:
		return map[string]string{"tempNewEmail": a.TempNewEmail}
	case PurposePhoneChange:
		return map[string]string{"tempNewAreaCode": a.TempNewAreaCode, "tempNewPhone": a.TempNewPhone}
	case PurposePasswordChange:
		return map[string]string{"tempNewPassword": a.TempNewPassword}
	}
	return nil
}

// SetChallenge records ch on the account, replacing any pending challenge of
// the same purpose.
func (a *Account) SetChallenge(ch Challenge) {
	expiry := ch.Expiry
	switch ch.Purpose {
	case PurposeRegister, PurposeLogin:
		a.OTP, a.OTPExpiry, a.OTPPurpose = ch.Code, &expiry, ch.Purpose
	case PurposeEmailChange:
		a.EmailChangeOTP, a.EmailChangeExpiry = ch.Code, &expiry
		a.TempNewEmail = ch.Staged["tempNewEmail"]
	case PurposePhoneChange:
		a.PhoneChangeOTP, a.PhoneChangeExpiry = ch.Code, &expiry
		a.TempNewAreaCode = ch.Staged["tempNewAreaCode"]
		a.TempNewPhone = ch.Staged["tempNewPhone"]
	case PurposePasswordChange:
		a.PasswordChangeOTP, a.PasswordChangeExpiry = ch.Code, &expiry
		a.TempNewPassword = ch.Staged["tempNewPassword"]
	}
}

// ClearChallenge drops the pending state for the purpose.
func (a *Account) ClearChallenge(p OTPPurpose) {
	switch p {
	case PurposeRegister, PurposeLogin:
		a.OTP, a.OTPExpiry, a.OTPPurpose = "", nil, ""
	case PurposeEmailChange:
		a.EmailChangeOTP, a.EmailChangeExpiry, a.TempNewEmail = "", nil, ""
	case PurposePhoneChange:
		a.PhoneChangeOTP, a.PhoneChangeExpiry = "", nil
		a.TempNewAreaCode, a.TempNewPhone = "", ""
	case PurposePasswordChange:
		a.PasswordChangeOTP, a.PasswordChangeExpiry, a.TempNewPassword = "", nil, ""
	}
}

// CommitValues returns the authoritative fields a confirmed challenge sets.
func (a *Account) CommitValues(p OTPPurpose) map[string]interface{} {
	switch p {
	case PurposeRegister:
		return map[string]interface{}{"otpVerified": true}
	case PurposeEmailChange:
		return map[string]interface{}{"email": a.TempNewEmail}
	case PurposePhoneChange:
		return map[string]interface{}{"areaCode": a.TempNewAreaCode, "mobile": a.TempNewPhone}
	case PurposePasswordChange:
		return map[string]interface{}{"password": a.TempNewPassword}
	}
	return map[string]interface{}{}
}

// ApplyCommit promotes the staged values and clears the challenge.
func (a *Account) ApplyCommit(p OTPPurpose) {
	switch p {
	case PurposeRegister:
		a.Verified = true
	case PurposeEmailChange:
		a.Email = a.TempNewEmail
	case PurposePhoneChange:
		a.AreaCode, a.Mobile = a.TempNewAreaCode, a.TempNewPhone
	case PurposePasswordChange:
		a.PasswordHash = a.TempNewPassword
	}
	a.ClearChallenge(p)
}
