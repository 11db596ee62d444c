package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// VerifyEmailInput is the email verification payload.
type VerifyEmailInput struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// VerifyEmail redeems a verification code and activates the account. The code
// is consumed and the status change applied in one transaction.
func (l *Lifecycle) VerifyEmail(ctx context.Context, input VerifyEmailInput) (*PublicAccount, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during email verification",
		)
	default:
		return l.verifyEmail(ctx, input)
	}
}

func (l *Lifecycle) verifyEmail(ctx context.Context, input VerifyEmailInput) (*PublicAccount, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	account := &Account{}

	err := l.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		account, err = l.repo.Accounts().GetByEmailTx(ctx, tx, input.Email)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrAccountNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account for verification")
		}

		code, err := l.repo.VerificationCodes().FindActiveTx(ctx, tx, account.ID, input.Code, l.now())
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrCodeInvalidOrExpired
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up verification code")
		}

		if err := l.repo.VerificationCodes().MarkUsedTx(ctx, tx, code.ID); err != nil {
			return err
		}

		account, err = l.states.TransitionTx(ctx, tx, account, AccountStatusActive,
			WithVerifiedEmail(),
			WithTransitionReason("email verified"))
		return err
	})

	if err != nil {
		return nil, asRichError(err, "email verification transaction failed")
	}

	l.dispatch("welcome", func(ctx context.Context) error {
		return l.notifier.NotifyWelcome(ctx, WelcomeMessage{
			Email:     account.Email,
			FirstName: account.FirstName,
			LastName:  account.LastName,
			Role:      account.Role,
		})
	})

	return account.Public(), nil
}
