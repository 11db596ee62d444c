package identity

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// ResetAccountPasswordSQL replaces an account's credential and marks the email
// verified in one statement.
var ResetAccountPasswordSQL = `UPDATE "accounts" AS "acc"
SET
	"is_email_verified" = TRUE,
	"password_hash" = ?,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"acc"."id" = ?
RETURNING *;`

// Accounts is the account persistence surface. Account IDs are numeric, so
// this repository talks to bun directly rather than going through the generic
// uuid-keyed repository.
type Accounts interface {
	Create(ctx context.Context, record *Account) (*Account, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error)
	GetByID(ctx context.Context, id int64) (*Account, error)
	GetByIDTx(ctx context.Context, tx bun.IDB, id int64) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error)

	UpdateStatus(ctx context.Context, id int64, status AccountStatus, opts ...StatusUpdateOption) (*Account, error)
	UpdateStatusTx(ctx context.Context, tx bun.IDB, id int64, status AccountStatus, opts ...StatusUpdateOption) (*Account, error)

	TrackSuccessfulLogin(ctx context.Context, id int64) error
	TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, id int64) error

	ResetPassword(ctx context.Context, id int64, passwordHash string) error
	ResetPasswordTx(ctx context.Context, tx bun.IDB, id int64, passwordHash string) error

	List(ctx context.Context, page, perPage int) ([]*Account, Pagination, error)
}

// StatusUpdateOption mutates the record a status update writes.
type StatusUpdateOption func(*Account)

// WithEmailVerified marks the email as verified alongside the status change.
func WithEmailVerified() StatusUpdateOption {
	return func(a *Account) {
		a.EmailVerified = true
	}
}

type accounts struct {
	db *bun.DB
}

var _ Accounts = (*accounts)(nil)

func NewAccountsRepository(db *bun.DB) Accounts {
	return &accounts{db: db}
}

func (a *accounts) Create(ctx context.Context, record *Account) (*Account, error) {
	return a.CreateTx(ctx, a.db, record)
}

func (a *accounts) CreateTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error) {
	record.EnsureStatus()
	record.Email = NormalizeEmail(record.Email)

	if _, err := tx.NewInsert().Model(record).Returning("*").Exec(ctx); err != nil {
		return nil, err
	}

	return record, nil
}

func (a *accounts) GetByID(ctx context.Context, id int64) (*Account, error) {
	return a.GetByIDTx(ctx, a.db, id)
}

func (a *accounts) GetByIDTx(ctx context.Context, tx bun.IDB, id int64) (*Account, error) {
	record := &Account{}
	err := tx.NewSelect().
		Model(record).
		Relation("CreatedBy").
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"id": id})
		}
		return nil, err
	}

	return record, nil
}

func (a *accounts) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *accounts) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error) {
	record := &Account{}
	err := tx.NewSelect().
		Model(record).
		Where("lower(?TableAlias.email) = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"email": email})
		}
		return nil, err
	}

	return record, nil
}

func (a *accounts) UpdateStatus(ctx context.Context, id int64, status AccountStatus, opts ...StatusUpdateOption) (*Account, error) {
	return a.UpdateStatusTx(ctx, a.db, id, status, opts...)
}

func (a *accounts) UpdateStatusTx(ctx context.Context, tx bun.IDB, id int64, status AccountStatus, opts ...StatusUpdateOption) (*Account, error) {
	record := &Account{
		ID:     id,
		Status: status,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(record)
		}
	}

	q := tx.NewUpdate().
		Model(record).
		Column("status", "updated_at").
		Where("?TableAlias.id = ?", id).
		Returning("*")

	if record.EmailVerified {
		q.Column("is_email_verified")
	}

	now := time.Now()
	record.UpdatedAt = &now

	res, err := q.Exec(ctx)
	if err != nil {
		return nil, err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id})
	}

	return record, nil
}

func (a *accounts) TrackSuccessfulLogin(ctx context.Context, id int64) error {
	return a.TrackSuccessfulLoginTx(ctx, a.db, id)
}

func (a *accounts) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, id int64) error {
	_, err := tx.NewRaw(`
		UPDATE "accounts" AS "acc"
		SET
			"last_login_at" = ?,
			"updated_at" = CURRENT_TIMESTAMP
		WHERE
			("acc".id = ?);
	`, time.Now(), id).Exec(ctx)

	return err
}

func (a *accounts) ResetPassword(ctx context.Context, id int64, passwordHash string) error {
	return a.ResetPasswordTx(ctx, a.db, id, passwordHash)
}

func (a *accounts) ResetPasswordTx(ctx context.Context, tx bun.IDB, id int64, passwordHash string) error {
	res, err := tx.NewRaw(ResetAccountPasswordSQL, passwordHash, id).Exec(ctx)
	if err != nil {
		return err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id})
	}

	return nil
}

func (a *accounts) List(ctx context.Context, page, perPage int) ([]*Account, Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 25
	}

	var records []*Account
	total, err := a.db.NewSelect().
		Model(&records).
		Relation("CreatedBy").
		OrderExpr("?TableAlias.created_at DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		ScanAndCount(ctx)

	if err != nil {
		return nil, Pagination{}, err
	}

	return records, paginationFor(page, perPage, total), nil
}

// NormalizeEmail lowercases and trims an email address so lookups and the
// unique constraint agree on a canonical form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
