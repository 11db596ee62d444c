package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// ErrInvalidTransition is returned when a requested status change is not allowed.
var ErrInvalidTransition = goerrors.New("invalid account state transition", goerrors.CategoryValidation).
	WithTextCode("INVALID_ACCOUNT_STATE_TRANSITION").
	WithCode(goerrors.CodeBadRequest)

// TransitionOption customizes a single transition.
type TransitionOption func(*transitionOptions)

// WithTransitionReason sets the human-readable reason for the transition.
func WithTransitionReason(reason string) TransitionOption {
	return func(opts *transitionOptions) {
		opts.reason = reason
	}
}

// WithForceTransition bypasses validation rules (use sparingly).
func WithForceTransition() TransitionOption {
	return func(opts *transitionOptions) {
		opts.force = true
	}
}

// WithVerifiedEmail marks the email verified alongside the status change.
func WithVerifiedEmail() TransitionOption {
	return func(opts *transitionOptions) {
		opts.markVerified = true
	}
}

type transitionOptions struct {
	reason       string
	force        bool
	markVerified bool
}

// AccountStateMachine validates and applies account status changes.
type AccountStateMachine interface {
	Transition(ctx context.Context, account *Account, target AccountStatus, opts ...TransitionOption) (*Account, error)
	TransitionTx(ctx context.Context, tx bun.IDB, account *Account, target AccountStatus, opts ...TransitionOption) (*Account, error)
	CurrentStatus(account *Account) AccountStatus
}

// StateMachineOption customizes state machine construction.
type StateMachineOption func(*accountStateMachine)

// WithStateMachineClock injects a custom clock (useful for tests).
func WithStateMachineClock(clock func() time.Time) StateMachineOption {
	return func(sm *accountStateMachine) {
		if clock != nil {
			sm.now = clock
		}
	}
}

// WithStateMachineLogger overrides the logger used for transition records.
func WithStateMachineLogger(logger Logger) StateMachineOption {
	return func(sm *accountStateMachine) {
		if logger != nil {
			sm.logger = logger
		}
	}
}

type accountStateMachine struct {
	accounts    Accounts
	transitions map[AccountStatus]map[AccountStatus]struct{}
	now         func() time.Time
	logger      Logger
}

// NewAccountStateMachine returns the default implementation backed by the
// provided repository.
func NewAccountStateMachine(accounts Accounts, opts ...StateMachineOption) AccountStateMachine {
	sm := &accountStateMachine{
		accounts: accounts,
		transitions: map[AccountStatus]map[AccountStatus]struct{}{
			AccountStatusPending: {
				AccountStatusActive: {},
			},
			AccountStatusActive: {
				AccountStatusSuspended: {},
			},
			AccountStatusSuspended: {
				AccountStatusActive: {},
			},
		},
		now:    time.Now,
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}

	return sm
}

func (sm *accountStateMachine) Transition(ctx context.Context, account *Account, target AccountStatus, opts ...TransitionOption) (*Account, error) {
	return sm.TransitionTx(ctx, nil, account, target, opts...)
}

func (sm *accountStateMachine) TransitionTx(ctx context.Context, tx bun.IDB, account *Account, target AccountStatus, opts ...TransitionOption) (*Account, error) {
	if account == nil {
		return nil, ErrInvalidTransition.WithMetadata(map[string]any{
			"target": target,
			"reason": "account is nil",
		})
	}

	account.EnsureStatus()
	from := account.Status

	if target == "" {
		return nil, ErrInvalidTransition.WithMetadata(map[string]any{
			"reason": "target status is empty",
		})
	}

	if from == target {
		return account, nil
	}

	options := &transitionOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	if !options.force && !sm.canTransition(from, target) {
		return nil, ErrInvalidTransition.WithMetadata(map[string]any{
			"from": from,
			"to":   target,
		})
	}

	var statusOpts []StatusUpdateOption
	if options.markVerified {
		statusOpts = append(statusOpts, WithEmailVerified())
	}

	var (
		updated *Account
		err     error
	)
	if tx != nil {
		updated, err = sm.accounts.UpdateStatusTx(ctx, tx, account.ID, target, statusOpts...)
	} else {
		updated, err = sm.accounts.UpdateStatus(ctx, account.ID, target, statusOpts...)
	}
	if err != nil {
		return nil, err
	}

	account.Status = updated.Status
	if options.markVerified {
		account.EmailVerified = true
	}

	sm.logger.Info("account %d status %s -> %s reason=%q at=%s",
		account.ID, from, target, options.reason, sm.now().Format(time.RFC3339))

	return account, nil
}

func (sm *accountStateMachine) CurrentStatus(account *Account) AccountStatus {
	if account == nil {
		return ""
	}
	account.EnsureStatus()
	return account.Status
}

func (sm *accountStateMachine) canTransition(from, to AccountStatus) bool {
	targets, ok := sm.transitions[from]
	if !ok {
		return false
	}
	_, ok = targets[to]
	return ok
}
