package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Card issuance saga states.
const (
	CardStatusNone              = ""
	CardStatusCardholderCreated = "cardholderCreated"
	CardStatusCardOpened        = "cardOpened"
	CardStatusCardOpenFailed    = "cardOpenFailed"
)

// Account is one registered user. Field names match the documents written by
// the first version of the backend.
type Account struct {
	// MongoID is the driver's document key. Documents created before the id
	// field existed are addressed by it.
	MongoID      primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	ID           string             `bson:"id,omitempty" json:"id"`
	Email        string `bson:"email" json:"email"`
	AreaCode     string `bson:"areaCode,omitempty" json:"areaCode,omitempty"`
	Mobile       string `bson:"mobile,omitempty" json:"mobile,omitempty"`
	PasswordHash string `bson:"password" json:"-"`

	FirstName  string `bson:"firstName,omitempty" json:"firstName,omitempty"`
	LastName   string `bson:"lastName,omitempty" json:"lastName,omitempty"`
	Birthday   string `bson:"birthday,omitempty" json:"birthday,omitempty"`
	Address    string `bson:"address,omitempty" json:"address,omitempty"`
	Town       string `bson:"town,omitempty" json:"town,omitempty"`
	PostCode   string `bson:"postCode,omitempty" json:"postCode,omitempty"`
	Country    string `bson:"country,omitempty" json:"country,omitempty"`
	ReferralID string `bson:"referralId,omitempty" json:"referralId,omitempty"`
	Photo      string `bson:"photo,omitempty" json:"photo,omitempty"`
	FCMToken   string `bson:"fcmToken,omitempty" json:"-"`

	Verified bool `bson:"otpVerified" json:"verified"`

	HolderID         string `bson:"holderId,omitempty" json:"holderId,omitempty"`
	CardStatus       string `bson:"cardStatus,omitempty" json:"cardStatus,omitempty"`
	CardOrderNo      string `bson:"cardOrderNo,omitempty" json:"-"`
	CardOpenAttempts int    `bson:"cardOpenAttempts,omitempty" json:"-"`

	// UsedPayments holds the reference of every payment already spent on a card.
	UsedPayments []string `bson:"usedPayments,omitempty" json:"-"`

	// Pending challenges. Each set is unset on confirmation.
	OTP        string     `bson:"otp,omitempty" json:"-"`
	OTPExpiry  *time.Time `bson:"otpExpiry,omitempty" json:"-"`
	OTPPurpose OTPPurpose `bson:"otpPurpose,omitempty" json:"-"`

	EmailChangeOTP    string     `bson:"emailChangeOtp,omitempty" json:"-"`
	EmailChangeExpiry *time.Time `bson:"emailChangeExpiry,omitempty" json:"-"`
	TempNewEmail      string     `bson:"tempNewEmail,omitempty" json:"-"`

	PhoneChangeOTP    string     `bson:"phoneChangeOtp,omitempty" json:"-"`
	PhoneChangeExpiry *time.Time `bson:"phoneChangeExpiry,omitempty" json:"-"`
	TempNewAreaCode   string     `bson:"tempNewAreaCode,omitempty" json:"-"`
	TempNewPhone      string     `bson:"tempNewPhone,omitempty" json:"-"`

	PasswordChangeOTP    string     `bson:"passwordChangeOtp,omitempty" json:"-"`
	PasswordChangeExpiry *time.Time `bson:"passwordChangeExpiry,omitempty" json:"-"`
	TempNewPassword      string     `bson:"tempNewPassword,omitempty" json:"-"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// AccountView is the projection returned to clients.
type AccountView struct {
	ID         string `json:"id"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	AreaCode   string `json:"areaCode"`
	Mobile     string `json:"mobile"`
	Photo      string `json:"photo"`
	Birthday   string `json:"birthday"`
	Address    string `json:"address"`
	Town       string `json:"town"`
	PostCode   string `json:"postCode"`
	Country    string `json:"country"`
	ReferralID string `json:"referralId"`
	HolderID   string `json:"holderId,omitempty"`
	CardStatus string `json:"cardStatus,omitempty"`
	Verified   bool   `json:"verified"`
}

func (a *Account) View() AccountView {
	return AccountView{
		ID:         a.ID,
		FirstName:  a.FirstName,
		LastName:   a.LastName,
		Email:      a.Email,
		AreaCode:   a.AreaCode,
		Mobile:     a.Mobile,
		Photo:      a.Photo,
		Birthday:   a.Birthday,
		Address:    a.Address,
		Town:       a.Town,
		PostCode:   a.PostCode,
		Country:    a.Country,
		ReferralID: a.ReferralID,
		HolderID:   a.HolderID,
		CardStatus: a.CardStatus,
		Verified:   a.Verified,
	}
}

// ProfileUpdate carries the freely mutable profile attributes. Nil fields are
// left untouched.
type ProfileUpdate struct {
	FirstName  *string `json:"firstName"`
	LastName   *string `json:"lastName"`
	Birthday   *string `json:"birthday"`
	Address    *string `json:"address"`
	Town       *string `json:"town"`
	PostCode   *string `json:"postCode"`
	Country    *string `json:"country"`
	ReferralID *string `json:"referralId"`
	Photo      *string `json:"photo"`
	FCMToken   *string `json:"fcmToken"`
}

// Fields returns the bson field names and values that are set.
func (p ProfileUpdate) Fields() map[string]string {
	out := make(map[string]string)
	add := func(name string, v *string) {
		if v != nil {
			out[name] = *v
		}
	}
	add("firstName", p.FirstName)
	add("lastName", p.LastName)
	add("birthday", p.Birthday)
	add("address", p.Address)
	add("town", p.Town)
	add("postCode", p.PostCode)
	add("country", p.Country)
	add("referralId", p.ReferralID)
	add("photo", p.Photo)
	add("fcmToken", p.FCMToken)
	return out
}

// Apply copies the set fields onto the account.
func (p ProfileUpdate) Apply(a *Account) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&a.FirstName, p.FirstName)
	set(&a.LastName, p.LastName)
	set(&a.Birthday, p.Birthday)
	set(&a.Address, p.Address)
	set(&a.Town, p.Town)
	set(&a.PostCode, p.PostCode)
	set(&a.Country, p.Country)
	set(&a.ReferralID, p.ReferralID)
	set(&a.Photo, p.Photo)
	set(&a.FCMToken, p.FCMToken)
}
