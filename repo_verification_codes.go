package identity

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// VerificationCodes manages the one-time codes backing email verification and
// password reset.
type VerificationCodes interface {
	repository.Repository[*VerificationCode]

	Issue(ctx context.Context, accountID int64, code string, expiresAt time.Time) (*VerificationCode, error)
	IssueTx(ctx context.Context, tx bun.IDB, accountID int64, code string, expiresAt time.Time) (*VerificationCode, error)

	FindActive(ctx context.Context, accountID int64, code string, now time.Time) (*VerificationCode, error)
	FindActiveTx(ctx context.Context, tx bun.IDB, accountID int64, code string, now time.Time) (*VerificationCode, error)

	MarkUsed(ctx context.Context, id uuid.UUID) error
	MarkUsedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error

	InvalidateForAccount(ctx context.Context, accountID int64) error
	InvalidateForAccountTx(ctx context.Context, tx bun.IDB, accountID int64) error
}

type verificationCodes struct {
	repository.Repository[*VerificationCode]
	db *bun.DB
}

var _ VerificationCodes = (*verificationCodes)(nil)

func NewVerificationCodesRepository(db *bun.DB) VerificationCodes {
	repo := repository.NewRepository[*VerificationCode](db, repository.ModelHandlers[*VerificationCode]{
		NewRecord: func() *VerificationCode { return &VerificationCode{} },
		GetID: func(r *VerificationCode) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *VerificationCode, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
		GetIdentifier: func() string {
			return "code"
		},
	})

	return &verificationCodes{
		Repository: repo,
		db:         db,
	}
}

func (v *verificationCodes) Issue(ctx context.Context, accountID int64, code string, expiresAt time.Time) (*VerificationCode, error) {
	return v.IssueTx(ctx, v.db, accountID, code, expiresAt)
}

// IssueTx stores a fresh code. The caller supplies the expiry instant so the
// same clock drives issuance and redemption.
func (v *verificationCodes) IssueTx(ctx context.Context, tx bun.IDB, accountID int64, code string, expiresAt time.Time) (*VerificationCode, error) {
	record := &VerificationCode{
		ID:        uuid.New(),
		AccountID: accountID,
		Code:      code,
		ExpiresAt: expiresAt,
	}

	return v.Repository.CreateTx(ctx, tx, record)
}

func (v *verificationCodes) FindActive(ctx context.Context, accountID int64, code string, now time.Time) (*VerificationCode, error) {
	return v.FindActiveTx(ctx, v.db, accountID, code, now)
}

// FindActiveTx looks up an unconsumed, unexpired code for the account. The
// expiry check is strict: a code at its expiry instant no longer matches.
func (v *verificationCodes) FindActiveTx(ctx context.Context, tx bun.IDB, accountID int64, code string, now time.Time) (*VerificationCode, error) {
	record := &VerificationCode{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.account_id = ?", accountID).
		Where("?TableAlias.code = ?", code).
		Where("?TableAlias.is_used = ?", false).
		Where("?TableAlias.expires_at > ?", now).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"account_id": accountID})
		}
		return nil, err
	}

	return record, nil
}

func (v *verificationCodes) MarkUsed(ctx context.Context, id uuid.UUID) error {
	return v.MarkUsedTx(ctx, v.db, id)
}

// MarkUsedTx consumes a code. The guard on is_used makes consumption
// first-writer-wins: a second caller sees zero rows and loses.
func (v *verificationCodes) MarkUsedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := tx.NewUpdate().
		Model((*VerificationCode)(nil)).
		Set("is_used = ?", true).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.is_used = ?", false).
		Exec(ctx)

	if err != nil {
		return err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrCodeInvalidOrExpired
	}

	return nil
}

func (v *verificationCodes) InvalidateForAccount(ctx context.Context, accountID int64) error {
	return v.InvalidateForAccountTx(ctx, v.db, accountID)
}

// InvalidateForAccountTx consumes every outstanding code for the account so
// only the newest issued code remains redeemable.
func (v *verificationCodes) InvalidateForAccountTx(ctx context.Context, tx bun.IDB, accountID int64) error {
	_, err := tx.NewUpdate().
		Model((*VerificationCode)(nil)).
		Set("is_used = ?", true).
		Where("?TableAlias.account_id = ?", accountID).
		Where("?TableAlias.is_used = ?", false).
		Exec(ctx)

	return err
}
