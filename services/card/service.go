package card

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"aiacard/config"
	accountRepo "aiacard/database/repository/account"
	"aiacard/models"
	"aiacard/services/email"
	"aiacard/services/notification"
	"aiacard/services/payment"
	"aiacard/services/tasks"
	"aiacard/services/wasabi"
	"aiacard/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	defaultMaxRetry   = 5
	defaultRetryDelay = time.Minute
)

// Partner is the card issuer. *wasabi.Client satisfies it.
type Partner interface {
	CreateCardholder(ctx context.Context, req *wasabi.CreateCardholderRequest) (*wasabi.Response[wasabi.CardholderData], json.RawMessage, error)
	OpenCard(ctx context.Context, req *wasabi.OpenCardRequest) (*wasabi.Response[wasabi.OpenCardData], json.RawMessage, error)
}

// IssueResult is what a card purchase returns to the client.
type IssueResult struct {
	HolderID       string          `json:"holderId"`
	CardholderData json.RawMessage `json:"data"`
	CardOpened     bool            `json:"cardOpened"`
}

// Service runs the card issuance saga: create the cardholder once, then open
// a card for it. A failed open leaves the holder in place and is retried in
// the background.
type Service struct {
	Repo     accountRepo.AccountRepository
	Partner  Partner
	Verifier payment.Verifier
	Notifier notification.NotificationService
	Queue    email.Enqueuer

	CardTypeID int64
	Amount     float64
	MaxRetry   int
	RetryDelay time.Duration
	Now        func() time.Time
}

func NewService(repo accountRepo.AccountRepository, partner Partner, verifier payment.Verifier, cfg config.Config) *Service {
	s := &Service{
		Repo:       repo,
		Partner:    partner,
		Verifier:   verifier,
		CardTypeID: cfg.CardTypeID,
		Amount:     cfg.OpenCardAmount,
		MaxRetry:   cfg.CardOpenMaxRetry,
		RetryDelay: defaultRetryDelay,
		Now:        time.Now,
	}
	if s.CardTypeID == 0 {
		s.CardTypeID = wasabi.DefaultCardTypeID
	}
	if s.Amount <= 0 {
		s.Amount = wasabi.DefaultOpenCardAmount
	}
	if s.MaxRetry <= 0 {
		s.MaxRetry = defaultMaxRetry
	}
	return s
}

// IssueCard verifies the payment and issues a card for the account. Each
// payment is spent once the cardholder exists; a second purchase with it fails
// with ErrPaymentAlreadyUsed.
func (s *Service) IssueCard(ctx context.Context, accountEmail string, proof models.PaymentProof) (*IssueResult, error) {
	accountEmail = strings.ToLower(strings.TrimSpace(accountEmail))

	if s.Verifier != nil {
		if err := s.Verifier.Verify(ctx, accountEmail, proof); err != nil {
			return nil, err
		}
	}

	acc, err := s.Repo.GetByEmail(ctx, accountEmail)
	if err != nil {
		return nil, fmt.Errorf("account lookup failed: %w", err)
	}
	if acc == nil {
		return nil, utils.ErrAccountNotFound
	}

	req, err := wasabi.NewCardholderRequest(acc, s.CardTypeID)
	if err != nil {
		return nil, err
	}

	if s.Partner == nil {
		return nil, utils.ErrFeatureDisabled
	}

	ref := proof.Reference()
	if ref != "" {
		if err := s.Repo.ClaimPayment(ctx, acc.ID, ref); err != nil {
			if errors.Is(err, accountRepo.ErrPaymentClaimed) {
				utils.GetLogger().Warn("card: payment already used", zap.String("accountId", acc.ID), zap.String("payment", ref))
				return nil, utils.ErrPaymentAlreadyUsed
			}
			return nil, fmt.Errorf("failed to claim payment: %w", err)
		}
	}

	raw, err := s.ensureCardholder(ctx, acc, req)
	if err != nil {
		// Nothing was issued, so the payment may be presented again.
		if ref != "" {
			if relErr := s.Repo.ReleasePayment(ctx, acc.ID, ref); relErr != nil {
				utils.GetLogger().Error("card: failed to release payment", zap.String("accountId", acc.ID), zap.String("payment", ref), zap.Error(relErr))
			}
		}
		return nil, err
	}

	opened := s.openCard(ctx, acc, true)
	return &IssueResult{HolderID: acc.HolderID, CardholderData: raw, CardOpened: opened}, nil
}

// ensureCardholder creates the holder unless the account already has one.
// acc.HolderID is set on return.
func (s *Service) ensureCardholder(ctx context.Context, acc *models.Account, req *wasabi.CreateCardholderRequest) (json.RawMessage, error) {
	log := utils.GetLogger()

	if acc.HolderID != "" {
		log.Info("card: reusing existing cardholder", zap.String("accountId", acc.ID), zap.String("holderId", acc.HolderID))
		return existingHolderData(acc.HolderID), nil
	}

	resp, raw, err := s.Partner.CreateCardholder(ctx, req)
	if err != nil {
		log.Error("card: create cardholder failed", zap.String("accountId", acc.ID), zap.Error(err))
		return nil, err
	}
	holderID := string(resp.Data.HolderID)

	if err := s.Repo.MarkCardholderCreated(ctx, acc.ID, holderID); err != nil {
		if !errors.Is(err, accountRepo.ErrNotFound) {
			log.Error("card: failed to persist holderId", zap.String("accountId", acc.ID), zap.String("holderId", holderID), zap.Error(err))
			return nil, fmt.Errorf("failed to persist cardholder: %w", err)
		}
		// A concurrent request stored a holder first; keep that one.
		current, getErr := s.Repo.GetByID(ctx, acc.ID)
		if getErr != nil || current == nil || current.HolderID == "" {
			return nil, fmt.Errorf("failed to persist cardholder: %w", err)
		}
		log.Warn("card: cardholder already recorded, discarding new holder",
			zap.String("accountId", acc.ID), zap.String("kept", current.HolderID), zap.String("discarded", holderID))
		holderID = current.HolderID
	}

	acc.HolderID = holderID
	acc.CardStatus = models.CardStatusCardholderCreated
	return raw, nil
}

func existingHolderData(holderID string) json.RawMessage {
	b, _ := json.Marshal(wasabi.Response[wasabi.CardholderData]{
		Success: true,
		Msg:     "existing cardholder",
		Data:    wasabi.CardholderData{HolderID: wasabi.ID(holderID)},
	})
	return b
}

// openCard runs the open-card step and reports whether it succeeded. Failures
// are recorded on the account and queued for retry, never returned.
func (s *Service) openCard(ctx context.Context, acc *models.Account, freshOrder bool) bool {
	if err := s.tryOpenCard(ctx, acc, freshOrder); err != nil {
		utils.GetLogger().Error("card: open card failed",
			zap.String("accountId", acc.ID),
			zap.String("holderId", acc.HolderID),
			zap.Error(err))
		s.scheduleRetry(ctx, acc.ID)
		return false
	}
	return true
}

// tryOpenCard opens a card for acc.HolderID. With freshOrder false the stored
// merchant order number is reused so the issuer can deduplicate.
func (s *Service) tryOpenCard(ctx context.Context, acc *models.Account, freshOrder bool) error {
	orderNo := acc.CardOrderNo
	if freshOrder || orderNo == "" {
		var err error
		if orderNo, err = wasabi.NewMerchantOrderNo(); err != nil {
			return err
		}
	}
	if err := s.Repo.StartCardOpen(ctx, acc.ID, orderNo); err != nil {
		return fmt.Errorf("failed to record card order: %w", err)
	}
	acc.CardOrderNo = orderNo

	_, _, err := s.Partner.OpenCard(ctx, &wasabi.OpenCardRequest{
		MerchantOrderNo: orderNo,
		HolderID:        acc.HolderID,
		CardTypeID:      s.CardTypeID,
		Amount:          s.Amount,
	})
	if err != nil {
		s.setStatus(ctx, acc, models.CardStatusCardOpenFailed)
		return err
	}

	s.setStatus(ctx, acc, models.CardStatusCardOpened)
	if s.Notifier != nil {
		if err := s.Notifier.NotifyCardOpened(ctx, acc); err != nil {
			utils.GetLogger().Warn("card: push notification failed", zap.String("accountId", acc.ID), zap.Error(err))
		}
	}
	return nil
}

func (s *Service) setStatus(ctx context.Context, acc *models.Account, status string) {
	if err := s.Repo.SetCardStatus(ctx, acc.ID, status); err != nil {
		utils.GetLogger().Error("card: failed to update card status",
			zap.String("accountId", acc.ID), zap.String("status", status), zap.Error(err))
		return
	}
	acc.CardStatus = status
}

func (s *Service) scheduleRetry(ctx context.Context, accountID string) {
	if s.Queue == nil {
		utils.GetLogger().Warn("card: no task queue, leaving retry to reconciliation", zap.String("accountId", accountID))
		return
	}
	task, opts, err := tasks.NewCardOpenTask(accountID, s.MaxRetry, s.RetryDelay)
	if err != nil {
		utils.GetLogger().Error("card: failed to build retry task", zap.Error(err))
		return
	}
	if _, err := s.Queue.EnqueueContext(ctx, task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			return
		}
		utils.GetLogger().Error("card: failed to enqueue retry", zap.String("accountId", accountID), zap.Error(err))
	}
}

// RetryOpenCard retries the open step for one account with its stored order
// number. It is a no-op once the card is open.
func (s *Service) RetryOpenCard(ctx context.Context, accountID string) error {
	acc, err := s.Repo.GetByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("account lookup failed: %w", err)
	}
	if acc == nil {
		return utils.ErrAccountNotFound
	}
	if acc.CardStatus == models.CardStatusCardOpened || acc.HolderID == "" {
		return nil
	}
	if s.Partner == nil {
		return utils.ErrFeatureDisabled
	}
	return s.tryOpenCard(ctx, acc, false)
}

// ReconcilePending retries every account whose issuance stalled for longer
// than olderThan. It returns how many cards were opened.
func (s *Service) ReconcilePending(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	pending, err := s.Repo.ListPendingCards(ctx, s.Now().Add(-olderThan), limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending cards: %w", err)
	}

	opened := 0
	for _, acc := range pending {
		if ctx.Err() != nil {
			return opened, ctx.Err()
		}
		if err := s.RetryOpenCard(ctx, acc.ID); err != nil {
			utils.GetLogger().Warn("card: reconcile retry failed", zap.String("accountId", acc.ID), zap.Error(err))
			continue
		}
		opened++
	}
	if len(pending) > 0 {
		utils.GetLogger().Info("card: reconcile pass finished", zap.Int("pending", len(pending)), zap.Int("opened", opened))
	}
	return opened, nil
}
