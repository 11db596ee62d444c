package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// ForgotPasswordInput starts a password reset.
type ForgotPasswordInput struct {
	Email string `json:"email"`
}

// ForgotPasswordResult is the uniform response to a reset request. The
// message reads the same whether or not the email is registered, so the
// endpoint cannot be used to probe for accounts.
type ForgotPasswordResult struct {
	Message string `json:"message"`
}

const forgotPasswordMessage = "If that email is registered, a reset code has been sent."

// ForgotPassword issues a reset code for a registered, active account. An
// unknown email yields the same response as a known one. Earlier outstanding
// codes are invalidated, so only the newest code redeems.
func (l *Lifecycle) ForgotPassword(ctx context.Context, input ForgotPasswordInput) (*ForgotPasswordResult, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return l.forgotPassword(ctx, input)
	}
}

func (l *Lifecycle) forgotPassword(ctx context.Context, input ForgotPasswordInput) (*ForgotPasswordResult, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	result := &ForgotPasswordResult{Message: forgotPasswordMessage}

	account := &Account{}
	code := ""
	known := false

	err := l.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		account, err = l.repo.Accounts().GetByEmailTx(ctx, tx, input.Email)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return nil
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account for password reset")
		}

		if !account.IsActive() {
			return ErrAccountNotActive
		}

		known = true

		if err := l.repo.VerificationCodes().InvalidateForAccountTx(ctx, tx, account.ID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not invalidate previous reset codes")
		}

		if code, err = l.codes.Generate(); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not generate reset code")
		}

		if _, err := l.repo.VerificationCodes().IssueTx(ctx, tx, account.ID, code, l.now().Add(l.codeTTL)); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not store reset code")
		}

		return nil
	})

	if err != nil {
		return nil, asRichError(err, "password reset initialization failed")
	}

	if known {
		l.dispatch("password_reset_code", func(ctx context.Context) error {
			return l.notifier.NotifyPasswordResetCode(ctx, VerificationMessage{
				Email:     account.Email,
				FirstName: account.FirstName,
				LastName:  account.LastName,
				Code:      code,
			})
		})
	}

	return result, nil
}

// ResetPasswordInput finalizes a password reset.
type ResetPasswordInput struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

// ResetPassword redeems a reset code and replaces the credential. Every live
// refresh token for the account is revoked, forcing a fresh login everywhere.
func (l *Lifecycle) ResetPassword(ctx context.Context, input ResetPasswordInput) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset finalization",
		)
	default:
		return l.resetPassword(ctx, input)
	}
}

func (l *Lifecycle) resetPassword(ctx context.Context, input ResetPasswordInput) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := l.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		account, err := l.repo.Accounts().GetByEmailTx(ctx, tx, input.Email)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrCodeInvalidOrExpired
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account for password reset")
		}

		code, err := l.repo.VerificationCodes().FindActiveTx(ctx, tx, account.ID, input.Code, l.now())
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrCodeInvalidOrExpired
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up reset code")
		}

		if err := l.repo.VerificationCodes().MarkUsedTx(ctx, tx, code.ID); err != nil {
			return err
		}

		hash, err := l.hasher.HashPassword(input.NewPassword)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password provided")
		}

		if err := l.repo.Accounts().ResetPasswordTx(ctx, tx, account.ID, hash); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not update password")
		}

		revoked, err := l.repo.RefreshTokens().RevokeAllForAccountTx(ctx, tx, account.ID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not revoke refresh tokens")
		}

		l.logger.Info("password reset for account %d revoked %d refresh tokens", account.ID, revoked)
		return nil
	})

	if err != nil {
		return asRichError(err, "password reset finalization failed")
	}

	return nil
}
