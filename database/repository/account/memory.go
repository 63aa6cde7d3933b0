package accountRepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"aiacard/models"
)

// MemoryAccountRepo is an in-process AccountRepository with the same
// uniqueness and compare-and-swap semantics as the Mongo one.
type MemoryAccountRepo struct {
	mu       sync.RWMutex
	accounts map[string]*models.Account
	now      func() time.Time
}

func NewMemoryAccountRepo() *MemoryAccountRepo {
	return &MemoryAccountRepo{accounts: make(map[string]*models.Account), now: time.Now}
}

// SetClock overrides the timestamp source.
func (r *MemoryAccountRepo) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

func clone(a *models.Account) *models.Account {
	c := *a
	c.UsedPayments = append([]string(nil), a.UsedPayments...)
	return &c
}

// conflicts reports whether another account already holds the email or phone.
func (r *MemoryAccountRepo) conflicts(selfID, email, areaCode, mobile string) bool {
	for id, a := range r.accounts {
		if id == selfID {
			continue
		}
		if email != "" && a.Email == email {
			return true
		}
		if mobile != "" && a.AreaCode == areaCode && a.Mobile == mobile {
			return true
		}
	}
	return false
}

func (r *MemoryAccountRepo) Create(_ context.Context, acc *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[acc.ID]; ok || r.conflicts(acc.ID, acc.Email, acc.AreaCode, acc.Mobile) {
		return ErrDuplicateKey
	}
	now := r.now()
	acc.CreatedAt = now
	acc.UpdatedAt = now
	r.accounts[acc.ID] = clone(acc)
	return nil
}

func (r *MemoryAccountRepo) find(match func(*models.Account) bool) *models.Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.accounts {
		if match(a) {
			return clone(a)
		}
	}
	return nil
}

func (r *MemoryAccountRepo) GetByID(_ context.Context, id string) (*models.Account, error) {
	return r.find(func(a *models.Account) bool { return a.ID == id }), nil
}

func (r *MemoryAccountRepo) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	return r.find(func(a *models.Account) bool { return a.Email == email }), nil
}

func (r *MemoryAccountRepo) GetByPhone(_ context.Context, areaCode, mobile string) (*models.Account, error) {
	return r.find(func(a *models.Account) bool { return a.AreaCode == areaCode && a.Mobile == mobile }), nil
}

func (r *MemoryAccountRepo) UpdateProfile(_ context.Context, id string, update models.ProfileUpdate) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok {
		return nil, nil
	}
	update.Apply(a)
	a.UpdatedAt = r.now()
	return clone(a), nil
}

func (r *MemoryAccountRepo) StageChallenge(_ context.Context, id string, ch models.Challenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok {
		return ErrNotFound
	}
	a.SetChallenge(ch)
	a.UpdatedAt = r.now()
	return nil
}

func (r *MemoryAccountRepo) CommitChallenge(_ context.Context, acc *models.Account, purpose models.OTPPurpose) error {
	code, _, ok := acc.ActiveChallenge(purpose)
	if !ok {
		return ErrChallengeMismatch
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.accounts[acc.ID]
	if !exists {
		return ErrChallengeMismatch
	}
	storedCode, _, active := stored.ActiveChallenge(purpose)
	if !active || storedCode != code {
		return ErrChallengeMismatch
	}
	for k, v := range acc.StagedValues(purpose) {
		if stored.StagedValues(purpose)[k] != v {
			return ErrChallengeMismatch
		}
	}

	next := clone(stored)
	next.ApplyCommit(purpose)
	if r.conflicts(next.ID, next.Email, next.AreaCode, next.Mobile) {
		return ErrDuplicateKey
	}
	next.UpdatedAt = r.now()
	r.accounts[next.ID] = next
	*acc = *clone(next)
	return nil
}

func (r *MemoryAccountRepo) update(id string, fn func(*models.Account) bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok || !fn(a) {
		return ErrNotFound
	}
	a.UpdatedAt = r.now()
	return nil
}

func (r *MemoryAccountRepo) ClaimPayment(_ context.Context, id, ref string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok {
		return ErrNotFound
	}
	for _, other := range r.accounts {
		for _, used := range other.UsedPayments {
			if used == ref {
				return ErrPaymentClaimed
			}
		}
	}
	a.UsedPayments = append(a.UsedPayments, ref)
	a.UpdatedAt = r.now()
	return nil
}

func (r *MemoryAccountRepo) ReleasePayment(_ context.Context, id, ref string) error {
	return r.update(id, func(a *models.Account) bool {
		kept := a.UsedPayments[:0]
		for _, used := range a.UsedPayments {
			if used != ref {
				kept = append(kept, used)
			}
		}
		a.UsedPayments = kept
		return true
	})
}

func (r *MemoryAccountRepo) MarkCardholderCreated(_ context.Context, id, holderID string) error {
	return r.update(id, func(a *models.Account) bool {
		if a.HolderID != "" {
			return false
		}
		a.HolderID = holderID
		a.CardStatus = models.CardStatusCardholderCreated
		return true
	})
}

func (r *MemoryAccountRepo) StartCardOpen(_ context.Context, id, orderNo string) error {
	return r.update(id, func(a *models.Account) bool {
		a.CardOrderNo = orderNo
		a.CardOpenAttempts++
		return true
	})
}

func (r *MemoryAccountRepo) SetCardStatus(_ context.Context, id, status string) error {
	return r.update(id, func(a *models.Account) bool {
		a.CardStatus = status
		return true
	})
}

func (r *MemoryAccountRepo) ListPendingCards(_ context.Context, updatedBefore time.Time, limit int) ([]models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Account
	for _, a := range r.accounts {
		pending := a.CardStatus == models.CardStatusCardholderCreated || a.CardStatus == models.CardStatusCardOpenFailed
		if pending && a.UpdatedAt.Before(updatedBefore) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
