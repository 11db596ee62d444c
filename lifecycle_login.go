package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// LoginInput is the password login payload. IP and UserAgent feed the audit
// trail.
type LoginInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResult is returned by Login and Refresh.
type LoginResult struct {
	Account *PublicAccount `json:"account"`
	Tokens  *TokenPair     `json:"tokens"`
}

const (
	auditReasonUnknownEmail  = "unknown email"
	auditReasonBadPassword   = "password mismatch"
	auditReasonNotActive     = "account not active"
	auditReasonNotVerified   = "email not verified"
	auditReasonTokenRejected = "refresh token rejected"
)

// Login authenticates with email and password. Every attempt lands in the
// audit trail; callers only ever see the generic credential error, the
// specific failure reason stays internal.
func (l *Lifecycle) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during login",
		)
	default:
		return l.login(ctx, input)
	}
}

func (l *Lifecycle) login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	account, err := l.repo.Accounts().GetByEmail(ctx, input.Email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			l.auditFailure(ctx, nil, input, auditReasonUnknownEmail)
			return nil, ErrInvalidCredentials
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account for login")
	}

	if err := l.hasher.ComparePasswordAndHash(input.Password, account.PasswordHash); err != nil {
		l.auditFailure(ctx, account, input, auditReasonBadPassword)
		return nil, ErrInvalidCredentials
	}

	if !account.IsActive() {
		l.auditFailure(ctx, account, input, auditReasonNotActive)
		return nil, ErrInvalidCredentials
	}

	if !account.EmailVerified {
		l.auditFailure(ctx, account, input, auditReasonNotVerified)
		return nil, ErrInvalidCredentials
	}

	if err := l.repo.Accounts().TrackSuccessfulLogin(ctx, account.ID); err != nil {
		l.logger.Warn("could not track login for account %d: %v", account.ID, err)
	}

	pair, err := l.tokens.IssuePair(ctx, account)
	if err != nil {
		return nil, asRichError(err, "failed to issue tokens")
	}

	l.auditor.Record(ctx, LoginAttempt{
		Account:   account,
		IP:        input.IP,
		UserAgent: input.UserAgent,
		Method:    LoginMethodPassword,
		Success:   true,
	})

	return &LoginResult{
		Account: account.Public(),
		Tokens:  pair,
	}, nil
}

func (l *Lifecycle) auditFailure(ctx context.Context, account *Account, input LoginInput, reason string) {
	l.auditor.Record(ctx, LoginAttempt{
		Account:   account,
		Email:     input.Email,
		IP:        input.IP,
		UserAgent: input.UserAgent,
		Method:    LoginMethodPassword,
		Success:   false,
		Reason:    reason,
	})
}

// RefreshInput is the token rotation payload.
type RefreshInput struct {
	RefreshToken string `json:"refresh_token"`
	IP           string `json:"-"`
	UserAgent    string `json:"-"`
}

// Refresh exchanges a refresh token for a fresh pair. The presented token is
// retired; replaying it fails.
func (l *Lifecycle) Refresh(ctx context.Context, input RefreshInput) (*LoginResult, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	pair, account, err := l.tokens.Rotate(ctx, input.RefreshToken)
	if err != nil {
		l.auditor.Record(ctx, LoginAttempt{
			IP:        input.IP,
			UserAgent: input.UserAgent,
			Method:    LoginMethodRefresh,
			Success:   false,
			Reason:    auditReasonTokenRejected,
		})
		return nil, asRichError(err, "token rotation failed")
	}

	l.auditor.Record(ctx, LoginAttempt{
		Account:   account,
		IP:        input.IP,
		UserAgent: input.UserAgent,
		Method:    LoginMethodRefresh,
		Success:   true,
	})

	return &LoginResult{
		Account: account.Public(),
		Tokens:  pair,
	}, nil
}
