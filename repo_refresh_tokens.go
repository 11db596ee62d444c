package identity

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RefreshTokens manages stored refresh credentials. Tokens are revoked in
// place, never deleted.
type RefreshTokens interface {
	repository.Repository[*RefreshToken]

	Store(ctx context.Context, accountID int64, token string, expiresAt time.Time) (*RefreshToken, error)
	StoreTx(ctx context.Context, tx bun.IDB, accountID int64, token string, expiresAt time.Time) (*RefreshToken, error)

	GetByToken(ctx context.Context, token string) (*RefreshToken, error)
	GetByTokenTx(ctx context.Context, tx bun.IDB, token string) (*RefreshToken, error)

	Revoke(ctx context.Context, id uuid.UUID) error
	RevokeTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error

	RevokeAllForAccount(ctx context.Context, accountID int64) (int64, error)
	RevokeAllForAccountTx(ctx context.Context, tx bun.IDB, accountID int64) (int64, error)
}

type refreshTokens struct {
	repository.Repository[*RefreshToken]
	db *bun.DB
}

var _ RefreshTokens = (*refreshTokens)(nil)

func NewRefreshTokensRepository(db *bun.DB) RefreshTokens {
	repo := repository.NewRepository[*RefreshToken](db, repository.ModelHandlers[*RefreshToken]{
		NewRecord: func() *RefreshToken { return &RefreshToken{} },
		GetID: func(r *RefreshToken) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *RefreshToken, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
		GetIdentifier: func() string {
			return "token"
		},
	})

	return &refreshTokens{
		Repository: repo,
		db:         db,
	}
}

func (r *refreshTokens) Store(ctx context.Context, accountID int64, token string, expiresAt time.Time) (*RefreshToken, error) {
	return r.StoreTx(ctx, r.db, accountID, token, expiresAt)
}

func (r *refreshTokens) StoreTx(ctx context.Context, tx bun.IDB, accountID int64, token string, expiresAt time.Time) (*RefreshToken, error) {
	record := &RefreshToken{
		ID:        uuid.New(),
		AccountID: accountID,
		Token:     token,
		ExpiresAt: expiresAt,
	}

	return r.Repository.CreateTx(ctx, tx, record)
}

func (r *refreshTokens) GetByToken(ctx context.Context, token string) (*RefreshToken, error) {
	return r.GetByTokenTx(ctx, r.db, token)
}

func (r *refreshTokens) GetByTokenTx(ctx context.Context, tx bun.IDB, token string) (*RefreshToken, error) {
	record := &RefreshToken{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.token = ?", token).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound()
		}
		return nil, err
	}

	return record, nil
}

func (r *refreshTokens) Revoke(ctx context.Context, id uuid.UUID) error {
	return r.RevokeTx(ctx, r.db, id)
}

// RevokeTx retires a token. The guard on is_revoked makes consumption
// first-writer-wins so a replayed token cannot be exchanged twice.
func (r *refreshTokens) RevokeTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := tx.NewUpdate().
		Model((*RefreshToken)(nil)).
		Set("is_revoked = ?", true).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.is_revoked = ?", false).
		Exec(ctx)

	if err != nil {
		return err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRefreshTokenInvalid
	}

	return nil
}

func (r *refreshTokens) RevokeAllForAccount(ctx context.Context, accountID int64) (int64, error) {
	return r.RevokeAllForAccountTx(ctx, r.db, accountID)
}

// RevokeAllForAccountTx retires every live token for the account and reports
// how many it touched. Used after a password reset to force re-login on all
// devices.
func (r *refreshTokens) RevokeAllForAccountTx(ctx context.Context, tx bun.IDB, accountID int64) (int64, error) {
	res, err := tx.NewUpdate().
		Model((*RefreshToken)(nil)).
		Set("is_revoked = ?", true).
		Where("?TableAlias.account_id = ?", accountID).
		Where("?TableAlias.is_revoked = ?", false).
		Exec(ctx)

	if err != nil {
		return 0, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}

	return n, nil
}
