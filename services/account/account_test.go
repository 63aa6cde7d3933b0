package account

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	accountRepo "aiacard/database/repository/account"
	"aiacard/models"
	"aiacard/services/otp"
	"aiacard/utils"

	"golang.org/x/crypto/bcrypt"
)

type sentMail struct{ to, subject, body string }

type outbox struct {
	mu   sync.Mutex
	sent []sentMail
}

func (o *outbox) Send(_ context.Context, to, subject, body string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, sentMail{to, subject, body})
	return nil
}

func (o *outbox) last() sentMail {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sent[len(o.sent)-1]
}

type env struct {
	svc   *Service
	repo  *accountRepo.MemoryAccountRepo
	mail  *outbox
	now   time.Time
	codes int
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		repo: accountRepo.NewMemoryAccountRepo(),
		mail: &outbox{},
		now:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	issuer := otp.NewIssuer(e.repo, e.mail, nil, 10*time.Minute)
	issuer.Now = func() time.Time { return e.now }
	issuer.Generate = func() (string, error) {
		e.codes++
		return fmt.Sprintf("%d", 1233+e.codes), nil
	}

	e.svc = NewService(e.repo, issuer)
	e.svc.BcryptCost = bcrypt.MinCost
	ids := 0
	e.svc.NewID = func() string {
		ids++
		return fmt.Sprintf("acc-%d", ids)
	}
	return e
}

// code returns the pending code for purpose on the account with email.
func (e *env) code(t *testing.T, email string, purpose models.OTPPurpose) string {
	t.Helper()
	acc, _ := e.repo.GetByEmail(context.Background(), email)
	if acc == nil {
		t.Fatalf("no account for %s", email)
	}
	code, _, ok := acc.ActiveChallenge(purpose)
	if !ok {
		t.Fatalf("no %s challenge for %s", purpose, email)
	}
	return code
}

func registerInput(email string) RegisterInput {
	return RegisterInput{
		Email:     email,
		Password:  "Password1",
		FirstName: "Ada",
		LastName:  "Lovelace",
		AreaCode:  "+1",
		Mobile:    "5550001",
		Birthday:  "1990-01-01",
		Address:   "1 Main St",
		Town:      "Springfield",
		PostCode:  "12345",
		Country:   "US",
	}
}

// verified registers and verifies an account, returning it.
func (e *env) verified(t *testing.T, email, mobile string) *models.Account {
	t.Helper()
	ctx := context.Background()
	in := registerInput(email)
	in.Mobile = mobile
	if err := e.svc.Register(ctx, in); err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	if _, err := e.svc.VerifyRegistration(ctx, email, e.code(t, email, models.PurposeRegister)); err != nil {
		t.Fatalf("verify %s: %v", email, err)
	}
	acc, _ := e.repo.GetByEmail(ctx, email)
	return acc
}

func claimsOf(t *testing.T, token string) *utils.SessionClaims {
	t.Helper()
	c, err := utils.ParseSessionToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	return c
}

func TestRegistrationScenario(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if err := e.svc.Register(ctx, registerInput("a@x.com")); err != nil {
		t.Fatalf("register: %v", err)
	}
	if m := e.mail.last(); m.to != "a@x.com" || m.subject != "Your OTP Code" {
		t.Fatalf("unexpected mail %+v", m)
	}

	acc, _ := e.repo.GetByEmail(ctx, "a@x.com")
	if acc.Verified {
		t.Fatal("account must start unverified")
	}
	if acc.PasswordHash == "Password1" || !checkPassword(acc.PasswordHash, "Password1") {
		t.Fatal("password must be stored as a bcrypt hash")
	}

	resp, err := e.svc.VerifyRegistration(ctx, "a@x.com", e.code(t, "a@x.com", models.PurposeRegister))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if resp.User.Email != "a@x.com" || !resp.User.Verified {
		t.Fatalf("unexpected user %+v", resp.User)
	}
	if c := claimsOf(t, resp.Token); c.AccountID != acc.ID || c.Email != "a@x.com" {
		t.Fatalf("unexpected claims %+v", c)
	}

	acc, _ = e.repo.GetByEmail(ctx, "a@x.com")
	if acc.OTP != "" || acc.OTPExpiry != nil || acc.OTPPurpose != "" {
		t.Fatalf("otp fields must be cleared: %+v", acc)
	}
}

func TestRegistrationOTPExpiresAfterTenMinutes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	if err := e.svc.Register(ctx, registerInput("a@x.com")); err != nil {
		t.Fatalf("register: %v", err)
	}
	code := e.code(t, "a@x.com", models.PurposeRegister)

	e.now = e.now.Add(11 * time.Minute)
	if _, err := e.svc.VerifyRegistration(ctx, "a@x.com", code); !errors.Is(err, utils.ErrInvalidOrExpiredOtp) {
		t.Fatalf("expected ErrInvalidOrExpiredOtp, got %v", err)
	}

	acc, _ := e.repo.GetByEmail(ctx, "a@x.com")
	if acc.Verified || acc.OTP != code {
		t.Fatal("failed confirm must leave the challenge untouched")
	}
}

func TestRegisterRejections(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.verified(t, "a@x.com", "5550001")

	cases := []struct {
		name string
		in   RegisterInput
		want error
	}{
		{"existing email", registerInput("a@x.com"), utils.ErrAlreadyRegistered},
		{"existing email different case", registerInput(" A@X.com "), utils.ErrAlreadyRegistered},
		{"existing phone", registerInput("b@x.com"), utils.ErrPhoneRegistered},
		{"weak password", RegisterInput{Email: "c@x.com", Password: "short"}, utils.ErrWeakPassword},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := e.svc.Register(ctx, tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestResendRegistrationOTP(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if err := e.svc.ResendRegistrationOTP(ctx, "nobody@x.com"); !errors.Is(err, utils.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}

	_ = e.svc.Register(ctx, registerInput("a@x.com"))
	first := e.code(t, "a@x.com", models.PurposeRegister)
	if err := e.svc.ResendRegistrationOTP(ctx, "a@x.com"); err != nil {
		t.Fatalf("resend: %v", err)
	}
	second := e.code(t, "a@x.com", models.PurposeRegister)
	if first == second {
		t.Fatal("resend must replace the code")
	}
	if _, err := e.svc.VerifyRegistration(ctx, "a@x.com", first); !errors.Is(err, utils.ErrInvalidOrExpiredOtp) {
		t.Fatalf("old code must be dead, got %v", err)
	}
	if _, err := e.svc.VerifyRegistration(ctx, "a@x.com", second); err != nil {
		t.Fatalf("verify with new code: %v", err)
	}
	if err := e.svc.ResendRegistrationOTP(ctx, "a@x.com"); !errors.Is(err, utils.ErrAlreadyRegistered) {
		t.Fatalf("verified account must not get a new registration code, got %v", err)
	}
}

func TestLoginRequiresPasswordThenOTP(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.verified(t, "a@x.com", "5550001")

	if err := e.svc.Login(ctx, "a@x.com", "wrong-pass1"); !errors.Is(err, utils.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := e.svc.Login(ctx, "missing@x.com", "Password1"); !errors.Is(err, utils.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if err := e.svc.ResendLoginOTP(ctx, "a@x.com"); !errors.Is(err, utils.ErrInvalidOrExpiredOtp) {
		t.Fatalf("resend before password step must fail, got %v", err)
	}

	if err := e.svc.Login(ctx, "a@x.com", "Password1"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if m := e.mail.last(); m.subject != "Your Login OTP Code" {
		t.Fatalf("unexpected mail %+v", m)
	}
	if _, err := e.svc.VerifyRegistration(ctx, "a@x.com", e.code(t, "a@x.com", models.PurposeLogin)); !errors.Is(err, utils.ErrInvalidOrExpiredOtp) {
		t.Fatalf("login code must not confirm registration, got %v", err)
	}

	if err := e.svc.ResendLoginOTP(ctx, "a@x.com"); err != nil {
		t.Fatalf("resend login: %v", err)
	}
	resp, err := e.svc.VerifyLogin(ctx, "a@x.com", e.code(t, "a@x.com", models.PurposeLogin))
	if err != nil {
		t.Fatalf("verify login: %v", err)
	}
	if resp.Token == "" || resp.User.Email != "a@x.com" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestEmailChangeRoundTrip(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	acc := e.verified(t, "old@x.com", "5550001")

	if err := e.svc.RequestEmailChange(ctx, "old@x.com", "new@x.com"); err != nil {
		t.Fatalf("request: %v", err)
	}
	if m := e.mail.last(); m.to != "new@x.com" {
		t.Fatalf("code must go to the new address, got %s", m.to)
	}
	staged, _ := e.repo.GetByEmail(ctx, "old@x.com")
	if staged.Email != "old@x.com" || staged.TempNewEmail != "new@x.com" {
		t.Fatalf("email must only be staged: %+v", staged)
	}

	resp, err := e.svc.ConfirmEmailChange(ctx, "old@x.com", e.code(t, "old@x.com", models.PurposeEmailChange))
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if resp.NewEmail != "new@x.com" || resp.User.Email != "new@x.com" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if c := claimsOf(t, resp.Token); c.Email != "new@x.com" || c.AccountID != acc.ID {
		t.Fatalf("token must carry the new email, got %+v", c)
	}

	if old, _ := e.repo.GetByEmail(ctx, "old@x.com"); old != nil {
		t.Fatal("old email must no longer resolve the account")
	}
	now, _ := e.repo.GetByEmail(ctx, "new@x.com")
	if now == nil || now.ID != acc.ID {
		t.Fatal("new email must resolve the account")
	}
	if now.EmailChangeOTP != "" || now.EmailChangeExpiry != nil || now.TempNewEmail != "" {
		t.Fatalf("pending email fields must be unset: %+v", now)
	}
}

func TestEmailChangeFailsWhenTargetTakenBeforeConfirm(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.verified(t, "a@x.com", "5550001")

	if err := e.svc.RequestEmailChange(ctx, "a@x.com", "taken@x.com"); err != nil {
		t.Fatalf("request: %v", err)
	}
	code := e.code(t, "a@x.com", models.PurposeEmailChange)

	// Another account adopts the target between request and confirm.
	e.verified(t, "taken@x.com", "5550002")

	_, err := e.svc.ConfirmEmailChange(ctx, "a@x.com", code)
	if !errors.Is(err, utils.ErrTargetAlreadyInUse) {
		t.Fatalf("expected ErrTargetAlreadyInUse, got %v", err)
	}
	var target *utils.TargetInUseError
	if !errors.As(err, &target) || target.Target != "email" {
		t.Fatalf("expected email target, got %v", err)
	}
	acc, _ := e.repo.GetByEmail(ctx, "a@x.com")
	if acc == nil || acc.TempNewEmail != "taken@x.com" {
		t.Fatal("account must keep its email and staged value")
	}
}

func TestEmailChangeRejectsTakenTargetUpFront(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.verified(t, "a@x.com", "5550001")
	e.verified(t, "b@x.com", "5550002")

	if err := e.svc.RequestEmailChange(ctx, "a@x.com", "b@x.com"); !errors.Is(err, utils.ErrTargetAlreadyInUse) {
		t.Fatalf("expected ErrTargetAlreadyInUse, got %v", err)
	}
	if err := e.svc.RequestEmailChange(ctx, "nobody@x.com", "c@x.com"); !errors.Is(err, utils.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestPhoneChange(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	acc := e.verified(t, "a@x.com", "5550001")

	in := PhoneChangeInput{CurrentAreaCode: "+1", CurrentMobile: "5550001", NewAreaCode: "+44", NewMobile: "7700900"}
	if err := e.svc.RequestPhoneChange(ctx, in); err != nil {
		t.Fatalf("request: %v", err)
	}
	if m := e.mail.last(); m.to != "a@x.com" || m.subject != "Your Phone Change OTP Code" {
		t.Fatalf("phone code goes to the account email, got %+v", m)
	}

	if _, err := e.svc.ConfirmPhoneChange(ctx, "+1", "5550001", "0000"); !errors.Is(err, utils.ErrInvalidOrExpiredOtp) {
		t.Fatalf("expected ErrInvalidOrExpiredOtp, got %v", err)
	}

	resp, err := e.svc.ConfirmPhoneChange(ctx, "+1", "5550001", e.code(t, "a@x.com", models.PurposePhoneChange))
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if resp.NewPhone != "+447700900" {
		t.Fatalf("newPhone = %q", resp.NewPhone)
	}
	if c := claimsOf(t, resp.Token); c.Mobile != "7700900" || c.AccountID != acc.ID {
		t.Fatalf("token must carry the new mobile, got %+v", c)
	}
	if old, _ := e.repo.GetByPhone(ctx, "+1", "5550001"); old != nil {
		t.Fatal("old phone must no longer resolve the account")
	}
}

func TestPhoneChangeFailsWhenTargetTakenBeforeConfirm(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.verified(t, "a@x.com", "5550001")

	in := PhoneChangeInput{CurrentAreaCode: "+1", CurrentMobile: "5550001", NewAreaCode: "+1", NewMobile: "5550002"}
	if err := e.svc.RequestPhoneChange(ctx, in); err != nil {
		t.Fatalf("request: %v", err)
	}
	code := e.code(t, "a@x.com", models.PurposePhoneChange)
	e.verified(t, "b@x.com", "5550002")

	_, err := e.svc.ConfirmPhoneChange(ctx, "+1", "5550001", code)
	var target *utils.TargetInUseError
	if !errors.As(err, &target) || target.Target != "phone" {
		t.Fatalf("expected phone TargetInUseError, got %v", err)
	}
}

func TestPasswordChange(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	acc := e.verified(t, "a@x.com", "5550001")

	if err := e.svc.RequestPasswordChange(ctx, acc.ID, "nope12345", "NewPassword2"); !errors.Is(err, utils.ErrWrongCurrentPassword) {
		t.Fatalf("expected ErrWrongCurrentPassword, got %v", err)
	}
	if err := e.svc.RequestPasswordChange(ctx, acc.ID, "Password1", "weak"); !errors.Is(err, utils.ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	if err := e.svc.RequestPasswordChange(ctx, acc.ID, "Password1", "NewPassword2"); err != nil {
		t.Fatalf("request: %v", err)
	}

	staged, _ := e.repo.GetByID(ctx, acc.ID)
	if staged.TempNewPassword == "NewPassword2" {
		t.Fatal("staged password must not be plaintext")
	}
	if !checkPassword(staged.PasswordHash, "Password1") {
		t.Fatal("password must not change before confirmation")
	}

	resp, err := e.svc.ConfirmPasswordChange(ctx, acc.ID, e.code(t, "a@x.com", models.PurposePasswordChange))
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("expected a fresh token")
	}

	after, _ := e.repo.GetByID(ctx, acc.ID)
	if !checkPassword(after.PasswordHash, "NewPassword2") {
		t.Fatal("new password must verify")
	}
	if checkPassword(after.PasswordHash, "Password1") {
		t.Fatal("old password must not verify")
	}
	if after.PasswordChangeOTP != "" || after.TempNewPassword != "" {
		t.Fatalf("pending password fields must be unset: %+v", after)
	}
}

func TestUpdateProfile(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	acc := e.verified(t, "a@x.com", "5550001")

	if _, err := e.svc.UpdateProfile(ctx, "a@x.com", models.ProfileUpdate{}); !errors.Is(err, utils.ErrNothingToUpdate) {
		t.Fatalf("expected ErrNothingToUpdate, got %v", err)
	}

	town := "Shelbyville"
	resp, err := e.svc.UpdateProfile(ctx, "a@x.com", models.ProfileUpdate{Town: &town})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if resp.User.Town != "Shelbyville" || resp.User.FirstName != "Ada" {
		t.Fatalf("unexpected user %+v", resp.User)
	}
	if c := claimsOf(t, resp.Token); c.AccountID != acc.ID {
		t.Fatalf("unexpected claims %+v", c)
	}
}
