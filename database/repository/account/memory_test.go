package accountRepo

import (
	"context"
	"errors"
	"testing"
	"time"

	"aiacard/models"
)

func seed(t *testing.T, repo *MemoryAccountRepo, id, email, areaCode, mobile string) *models.Account {
	t.Helper()
	acc := &models.Account{ID: id, Email: email, AreaCode: areaCode, Mobile: mobile}
	if err := repo.Create(context.Background(), acc); err != nil {
		t.Fatalf("create %s: %v", id, err)
	}
	return acc
}

func TestMemoryCreateRejectsDuplicates(t *testing.T) {
	repo := NewMemoryAccountRepo()
	seed(t, repo, "a", "a@x.com", "+1", "555")

	cases := []struct {
		name string
		acc  models.Account
	}{
		{"same email", models.Account{ID: "b", Email: "a@x.com"}},
		{"same phone", models.Account{ID: "c", Email: "c@x.com", AreaCode: "+1", Mobile: "555"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			acc := tc.acc
			if err := repo.Create(context.Background(), &acc); !errors.Is(err, ErrDuplicateKey) {
				t.Fatalf("expected ErrDuplicateKey, got %v", err)
			}
		})
	}
}

func TestMemoryCommitLosesToNewerChallenge(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepo()
	seed(t, repo, "a", "a@x.com", "", "")

	expiry := time.Now().Add(time.Minute)
	first := models.Challenge{Purpose: models.PurposeEmailChange, Code: "1111", Expiry: expiry, Staged: map[string]string{"tempNewEmail": "n@x.com"}}
	if err := repo.StageChallenge(ctx, "a", first); err != nil {
		t.Fatalf("stage: %v", err)
	}
	stale, _ := repo.GetByID(ctx, "a")

	second := first
	second.Code = "2222"
	if err := repo.StageChallenge(ctx, "a", second); err != nil {
		t.Fatalf("restage: %v", err)
	}

	if err := repo.CommitChallenge(ctx, stale, models.PurposeEmailChange); !errors.Is(err, ErrChallengeMismatch) {
		t.Fatalf("expected ErrChallengeMismatch, got %v", err)
	}

	fresh, _ := repo.GetByID(ctx, "a")
	if err := repo.CommitChallenge(ctx, fresh, models.PurposeEmailChange); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if fresh.Email != "n@x.com" || fresh.TempNewEmail != "" || fresh.EmailChangeOTP != "" || fresh.EmailChangeExpiry != nil {
		t.Fatalf("unexpected account after commit: %+v", fresh)
	}
}

func TestMemoryCommitRejectsTakenPhone(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepo()
	seed(t, repo, "a", "a@x.com", "+1", "111")
	seed(t, repo, "b", "b@x.com", "+1", "222")

	ch := models.Challenge{
		Purpose: models.PurposePhoneChange,
		Code:    "1234",
		Expiry:  time.Now().Add(time.Minute),
		Staged:  map[string]string{"tempNewAreaCode": "+1", "tempNewPhone": "222"},
	}
	if err := repo.StageChallenge(ctx, "a", ch); err != nil {
		t.Fatalf("stage: %v", err)
	}
	acc, _ := repo.GetByID(ctx, "a")
	if err := repo.CommitChallenge(ctx, acc, models.PurposePhoneChange); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}

	stored, _ := repo.GetByID(ctx, "a")
	if stored.Mobile != "111" || stored.TempNewPhone != "222" {
		t.Fatalf("failed commit must leave staged state untouched: %+v", stored)
	}
}

func TestMemoryListPendingCards(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepo()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.SetClock(func() time.Time { return base })

	seed(t, repo, "a", "a@x.com", "", "")
	seed(t, repo, "b", "b@x.com", "", "")
	seed(t, repo, "c", "c@x.com", "", "")
	_ = repo.MarkCardholderCreated(ctx, "a", "h1")
	_ = repo.MarkCardholderCreated(ctx, "b", "h2")
	_ = repo.SetCardStatus(ctx, "b", models.CardStatusCardOpened)

	pending, err := repo.ListPendingCards(ctx, base.Add(time.Minute), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "a" {
		t.Fatalf("expected only account a pending, got %+v", pending)
	}

	if err := repo.MarkCardholderCreated(ctx, "a", "other"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("holder id must not be overwritten, got %v", err)
	}
}

func TestMemoryClaimPaymentOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepo()
	seed(t, repo, "a", "a@x.com", "", "")
	seed(t, repo, "b", "b@x.com", "", "")

	if err := repo.ClaimPayment(ctx, "a", "stripe:pi_1"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	for _, id := range []string{"a", "b"} {
		if err := repo.ClaimPayment(ctx, id, "stripe:pi_1"); !errors.Is(err, ErrPaymentClaimed) {
			t.Fatalf("claim by %s: expected ErrPaymentClaimed, got %v", id, err)
		}
	}

	if err := repo.ReleasePayment(ctx, "a", "stripe:pi_1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := repo.ClaimPayment(ctx, "b", "stripe:pi_1"); err != nil {
		t.Fatalf("claim after release: %v", err)
	}
	if err := repo.ClaimPayment(ctx, "missing", "stripe:pi_2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
