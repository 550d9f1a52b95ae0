// Package escrow is the collateral ledger behind market vaults. It moves
// fixed-point balances between accounts and journals every movement.
package escrow

import (
	"context"
	"time"

	"milestoneamm/handlers/math/fixedpoint"
	"milestoneamm/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Errors returned by the ledger. They alias the market error taxonomy so
// callers can classify them the same way.
var (
	ErrInsufficientFunds    = models.ErrInsufficientFunds
	ErrAccountNotFound      = models.ErrAccountNotFound
	ErrUnauthorizedTransfer = models.ErrUnauthorized
)

// Memo values written to the journal.
const (
	MemoTransfer = "transfer"
	MemoMint     = "mint"
)

// Entry is one journaled balance movement. FromID is nil for mints.
type Entry struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	FromID    *string   `json:"fromId,omitempty" gorm:"size:64;index"`
	ToID      string    `json:"toId" gorm:"not null;size:64;index"`
	Authority string    `json:"authority" gorm:"not null;size:128"`
	AmountFP  int64     `json:"amountFp" gorm:"column:amount_fp;not null"`
	Memo      string    `json:"memo" gorm:"size:64"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName specifies the table name for Entry
func (Entry) TableName() string {
	return "ledger_entries"
}

// Ledger moves collateral between accounts stored through gorm.
type Ledger struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewLedger creates a ledger over db.
func NewLedger(db *gorm.DB, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{db: db, log: log}
}

// WithTx returns a ledger bound to an open transaction.
func (l *Ledger) WithTx(tx *gorm.DB) *Ledger {
	return &Ledger{db: tx, log: l.log}
}

// Open creates the account described by ref with a zero balance. Opening an
// account that already exists with the same owner and asset is a no-op.
func (l *Ledger) Open(ctx context.Context, ref models.AccountRef) (models.Account, error) {
	if ref.ID == "" || ref.Owner == "" || ref.Asset == "" {
		return models.Account{}, errors.Wrap(models.ErrInvalidParams, "open account: id, owner and asset are required")
	}
	existing, err := l.Get(ctx, ref.ID)
	switch {
	case err == nil:
		if existing.Owner != ref.Owner || existing.Asset != ref.Asset {
			return models.Account{}, errors.Wrapf(models.ErrInvalidOwner, "account %s already exists", ref.ID)
		}
		return existing, nil
	case !errors.Is(err, ErrAccountNotFound):
		return models.Account{}, err
	}

	acc := models.Account{ID: ref.ID, Owner: ref.Owner, Asset: ref.Asset}
	if err := l.db.WithContext(ctx).Create(&acc).Error; err != nil {
		return models.Account{}, errors.Wrapf(err, "open account %s", ref.ID)
	}
	l.log.Debug("account opened", zap.String("account", acc.ID), zap.String("owner", acc.Owner))
	return acc, nil
}

// Get loads one account.
func (l *Ledger) Get(ctx context.Context, id string) (models.Account, error) {
	var acc models.Account
	if err := l.db.WithContext(ctx).Where("id = ?", id).First(&acc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Account{}, errors.Wrapf(ErrAccountNotFound, "account %s", id)
		}
		return models.Account{}, errors.Wrapf(err, "get account %s", id)
	}
	return acc, nil
}

// Ref loads the identity part of one account.
func (l *Ledger) Ref(ctx context.Context, id string) (models.AccountRef, error) {
	acc, err := l.Get(ctx, id)
	if err != nil {
		return models.AccountRef{}, err
	}
	return acc.Ref(), nil
}

// Transfer debits From and credits To. Authority must own From and both
// accounts must hold the same asset. The debit only succeeds when the
// balance covers it, so concurrent transfers can never overdraw.
func (l *Ledger) Transfer(ctx context.Context, t models.Transfer) error {
	if t.AmountFP <= 0 {
		return errors.Wrapf(models.ErrInvalidAmount, "transfer of %d", t.AmountFP)
	}
	if t.From == t.To {
		return errors.Wrapf(models.ErrInvalidParams, "transfer from %s to itself", t.From)
	}

	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := l.WithTx(tx)
		from, err := inner.Get(ctx, t.From)
		if err != nil {
			return err
		}
		to, err := inner.Get(ctx, t.To)
		if err != nil {
			return err
		}
		if from.Owner != t.Authority {
			return errors.Wrapf(ErrUnauthorizedTransfer, "%s does not own %s", t.Authority, t.From)
		}
		if from.Asset != to.Asset {
			return errors.Wrapf(models.ErrWrongCollateral, "%s holds %s, %s holds %s", from.ID, from.Asset, to.ID, to.Asset)
		}
		if _, err := fixedpoint.Add(to.BalanceFP, t.AmountFP); err != nil {
			return err
		}

		now := time.Now().UTC()
		res := tx.Model(&models.Account{}).
			Where("id = ? AND balance_fp >= ?", t.From, t.AmountFP).
			Updates(map[string]interface{}{
				"balance_fp": gorm.Expr("balance_fp - ?", t.AmountFP),
				"updated_at": now,
			})
		if res.Error != nil {
			return errors.Wrapf(res.Error, "debit %s", t.From)
		}
		if res.RowsAffected == 0 {
			return errors.Wrapf(ErrInsufficientFunds, "%s holds %s, needs %s",
				t.From, fixedpoint.Format(from.BalanceFP), fixedpoint.Format(t.AmountFP))
		}
		if err := inner.credit(to.ID, t.AmountFP, now); err != nil {
			return err
		}
		return inner.journal(&t.From, t.To, t.Authority, t.AmountFP, MemoTransfer, now)
	})
}

// Apply runs transfers in order inside one transaction. Either every
// transfer lands or none does.
func (l *Ledger) Apply(ctx context.Context, transfers []models.Transfer) error {
	if len(transfers) == 0 {
		return nil
	}
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := l.WithTx(tx)
		for i, t := range transfers {
			if err := inner.Transfer(ctx, t); err != nil {
				return errors.Wrapf(err, "transfer %d of %d", i+1, len(transfers))
			}
		}
		return nil
	})
}

// Mint credits new collateral to an account. Only the demo faucet uses it.
func (l *Ledger) Mint(ctx context.Context, id, authority string, amount int64) (models.Account, error) {
	if amount <= 0 {
		return models.Account{}, errors.Wrapf(models.ErrInvalidAmount, "mint of %d", amount)
	}
	var out models.Account
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := l.WithTx(tx)
		acc, err := inner.Get(ctx, id)
		if err != nil {
			return err
		}
		if _, err := fixedpoint.Add(acc.BalanceFP, amount); err != nil {
			return err
		}
		now := time.Now().UTC()
		if err := inner.credit(id, amount, now); err != nil {
			return err
		}
		if err := inner.journal(nil, id, authority, amount, MemoMint, now); err != nil {
			return err
		}
		out, err = inner.Get(ctx, id)
		return err
	})
	if err != nil {
		return models.Account{}, err
	}
	l.log.Info("collateral minted",
		zap.String("account", id),
		zap.String("authority", authority),
		zap.String("amount", fixedpoint.Format(amount)))
	return out, nil
}

// Entries lists the most recent journal entries touching an account.
func (l *Ledger) Entries(ctx context.Context, accountID string, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var list []Entry
	err := l.db.WithContext(ctx).
		Where("from_id = ? OR to_id = ?", accountID, accountID).
		Order("created_at DESC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

func (l *Ledger) credit(id string, amount int64, now time.Time) error {
	res := l.db.Model(&models.Account{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"balance_fp": gorm.Expr("balance_fp + ?", amount),
			"updated_at": now,
		})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "credit %s", id)
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(ErrAccountNotFound, "account %s", id)
	}
	return nil
}

func (l *Ledger) journal(from *string, to, authority string, amount int64, memo string, now time.Time) error {
	var fromID *string
	if from != nil {
		f := *from
		fromID = &f
	}
	e := Entry{
		ID:        uuid.NewString(),
		FromID:    fromID,
		ToID:      to,
		Authority: authority,
		AmountFP:  amount,
		Memo:      memo,
		CreatedAt: now,
	}
	return errors.Wrap(l.db.Create(&e).Error, "journal entry")
}
