package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// GetAccount returns one account. Casual users may only read themselves;
// admins and super users may read anyone.
func (l *Lifecycle) GetAccount(ctx context.Context, actor Actor, id int64) (*PublicAccount, error) {
	if actor.AccountID == 0 {
		return nil, ErrUnauthenticated
	}

	if actor.AccountID != id {
		if err := l.requireRole(actor, RoleAdmin); err != nil {
			return nil, err
		}
	}

	account, err := l.repo.Accounts().GetByID(ctx, id)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account")
	}

	return account.Public(), nil
}

// AccountPage is one page of an account listing.
type AccountPage struct {
	Accounts   []*PublicAccount `json:"accounts"`
	Pagination Pagination       `json:"pagination"`
}

// ListAccounts returns accounts newest first. Requires admin.
func (l *Lifecycle) ListAccounts(ctx context.Context, actor Actor, page, perPage int) (*AccountPage, error) {
	if err := l.requireRole(actor, RoleAdmin); err != nil {
		return nil, err
	}

	records, pagination, err := l.repo.Accounts().List(ctx, page, perPage)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list accounts")
	}

	accounts := make([]*PublicAccount, 0, len(records))
	for _, record := range records {
		accounts = append(accounts, record.Public())
	}

	return &AccountPage{
		Accounts:   accounts,
		Pagination: pagination,
	}, nil
}

// SuspendAccount moves an active account to suspended and revokes its live
// refresh tokens. Requires admin.
func (l *Lifecycle) SuspendAccount(ctx context.Context, actor Actor, id int64, reason string) (*PublicAccount, error) {
	if err := l.requireRole(actor, RoleAdmin); err != nil {
		return nil, err
	}

	account, err := l.repo.Accounts().GetByID(ctx, id)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account")
	}

	account, err = l.states.Transition(ctx, account, AccountStatusSuspended, WithTransitionReason(reason))
	if err != nil {
		return nil, err
	}

	if _, err := l.repo.RefreshTokens().RevokeAllForAccount(ctx, id); err != nil {
		l.logger.Warn("could not revoke refresh tokens for suspended account %d: %v", id, err)
	}

	return account.Public(), nil
}

// ReinstateAccount moves a suspended account back to active. Requires admin.
func (l *Lifecycle) ReinstateAccount(ctx context.Context, actor Actor, id int64, reason string) (*PublicAccount, error) {
	if err := l.requireRole(actor, RoleAdmin); err != nil {
		return nil, err
	}

	account, err := l.repo.Accounts().GetByID(ctx, id)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account")
	}

	account, err = l.states.Transition(ctx, account, AccountStatusActive, WithTransitionReason(reason))
	if err != nil {
		return nil, err
	}

	return account.Public(), nil
}

// AuditTrail queries the login audit trail. Requires admin.
func (l *Lifecycle) AuditTrail(ctx context.Context, actor Actor, filter AuditFilter) (*AuditPage, error) {
	if err := l.requireRole(actor, RoleAdmin); err != nil {
		return nil, err
	}

	return l.auditor.Query(ctx, filter)
}

// AuditStats aggregates the login trail over an optional window. Requires
// admin.
func (l *Lifecycle) AuditStats(ctx context.Context, actor Actor, since, until *time.Time) (*LoginStats, error) {
	if err := l.requireRole(actor, RoleAdmin); err != nil {
		return nil, err
	}

	return l.auditor.Stats(ctx, since, until)
}

// MyRecentLogins returns the calling account's own recent attempts. Any
// authenticated account may see its own trail.
func (l *Lifecycle) MyRecentLogins(ctx context.Context, actor Actor, limit int) ([]*LoginAuditEntry, error) {
	if actor.AccountID == 0 {
		return nil, ErrUnauthenticated
	}

	return l.auditor.RecentForAccount(ctx, actor.AccountID, limit)
}

// RecentLoginsForAccount returns another account's recent attempts. Accounts
// may read their own trail; anyone else's requires admin.
func (l *Lifecycle) RecentLoginsForAccount(ctx context.Context, actor Actor, accountID int64, limit int) ([]*LoginAuditEntry, error) {
	if actor.AccountID == 0 {
		return nil, ErrUnauthenticated
	}

	if actor.AccountID != accountID {
		if err := l.requireRole(actor, RoleAdmin); err != nil {
			return nil, err
		}
	}

	if _, err := l.repo.Accounts().GetByID(ctx, accountID); err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account")
	}

	return l.auditor.RecentForAccount(ctx, accountID, limit)
}
