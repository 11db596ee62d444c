package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RegisterInput is the self-service signup payload.
type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	AvatarRef string `json:"avatar_ref,omitempty"`
}

// Register creates a pending account and emails a verification code. The
// account cannot log in until the code is redeemed.
func (l *Lifecycle) Register(ctx context.Context, input RegisterInput) (*PublicAccount, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during registration",
		)
	default:
		return l.register(ctx, input)
	}
}

func (l *Lifecycle) register(ctx context.Context, input RegisterInput) (*PublicAccount, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	account := &Account{}
	code := ""

	err := l.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := l.repo.Accounts().GetByEmailTx(ctx, tx, input.Email); err == nil {
			return ErrEmailRegistered
		} else if !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email availability")
		}

		hash, err := l.hasher.HashPassword(input.Password)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password provided")
		}

		account.Email = input.Email
		account.PasswordHash = hash
		account.FirstName = input.FirstName
		account.LastName = input.LastName
		account.AvatarRef = input.AvatarRef
		account.Role = RoleCasualUser
		account.Status = AccountStatusPending

		if account, err = l.repo.Accounts().CreateTx(ctx, tx, account); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create account")
		}

		if code, err = l.codes.Generate(); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not generate verification code")
		}

		if _, err := l.repo.VerificationCodes().IssueTx(ctx, tx, account.ID, code, l.now().Add(l.codeTTL)); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not store verification code")
		}

		return nil
	})

	if err != nil {
		return nil, asRichError(err, "registration transaction failed")
	}

	l.dispatch("verification_code", func(ctx context.Context) error {
		return l.notifier.NotifyVerificationCode(ctx, VerificationMessage{
			Email:     account.Email,
			FirstName: account.FirstName,
			LastName:  account.LastName,
			Code:      code,
		})
	})

	return account.Public(), nil
}

// CreateAccountInput is the operator-facing account creation payload.
type CreateAccountInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	AvatarRef string `json:"avatar_ref,omitempty"`
}

// CreateAdminAccount creates an active admin account. Only a super user may
// call it; the account skips email verification.
func (l *Lifecycle) CreateAdminAccount(ctx context.Context, actor Actor, input CreateAccountInput) (*PublicAccount, error) {
	return l.createPrivileged(ctx, actor, input, RoleAdmin)
}

// CreateSuperAccount creates an active super user account. Only a super user
// may call it.
func (l *Lifecycle) CreateSuperAccount(ctx context.Context, actor Actor, input CreateAccountInput) (*PublicAccount, error) {
	return l.createPrivileged(ctx, actor, input, RoleSuperUser)
}

func (l *Lifecycle) createPrivileged(ctx context.Context, actor Actor, input CreateAccountInput, role AccountRole) (*PublicAccount, error) {
	if err := l.requireRole(actor, RoleSuperUser); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	account := &Account{}

	err := l.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := l.repo.Accounts().GetByEmailTx(ctx, tx, input.Email); err == nil {
			return ErrEmailRegistered
		} else if !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email availability")
		}

		hash, err := l.hasher.HashPassword(input.Password)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password provided")
		}

		creator := actor.AccountID
		account.Email = input.Email
		account.PasswordHash = hash
		account.FirstName = input.FirstName
		account.LastName = input.LastName
		account.AvatarRef = input.AvatarRef
		account.Role = role
		account.Status = AccountStatusActive
		account.EmailVerified = true
		account.CreatedByID = &creator

		if account, err = l.repo.Accounts().CreateTx(ctx, tx, account); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create account")
		}

		return nil
	})

	if err != nil {
		return nil, asRichError(err, "account creation transaction failed")
	}

	return account.Public(), nil
}
