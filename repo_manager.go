package identity

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager

	Accounts() Accounts
	VerificationCodes() VerificationCodes
	RefreshTokens() RefreshTokens
	LoginAudit() LoginAuditStore
}

type mngr struct {
	db                *bun.DB
	accounts          Accounts
	verificationCodes VerificationCodes
	refreshTokens     RefreshTokens
	loginAudit        LoginAuditStore
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:                db,
		accounts:          NewAccountsRepository(db),
		verificationCodes: NewVerificationCodesRepository(db),
		refreshTokens:     NewRefreshTokensRepository(db),
		loginAudit:        NewLoginAuditRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.accounts == nil {
		return errors.New("repository accounts should be initialized")
	}

	if m.verificationCodes == nil {
		return errors.New("repository verificationCodes should be initialized")
	}

	if m.refreshTokens == nil {
		return errors.New("repository refreshTokens should be initialized")
	}

	if m.loginAudit == nil {
		return errors.New("repository loginAudit should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Accounts() Accounts {
	return m.accounts
}

func (m mngr) VerificationCodes() VerificationCodes {
	return m.verificationCodes
}

func (m mngr) RefreshTokens() RefreshTokens {
	return m.refreshTokens
}

func (m mngr) LoginAudit() LoginAuditStore {
	return m.loginAudit
}
