package identity_test

import (
	"context"
	"testing"
	"time"

	identity "github.com/goliatone/go-identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAccountStateMachineActivatesPendingAccount(t *testing.T) {
	repo := &MockAccounts{}
	account := &identity.Account{ID: 1, Status: identity.AccountStatusPending}

	repo.On("UpdateStatus", mock.Anything, int64(1), identity.AccountStatusActive, mock.Anything).
		Return(&identity.Account{ID: 1, Status: identity.AccountStatusActive, EmailVerified: true}, nil).Once()

	sm := identity.NewAccountStateMachine(repo, identity.WithStateMachineLogger(testLogger{}))

	result, err := sm.Transition(context.Background(), account, identity.AccountStatusActive,
		identity.WithVerifiedEmail())
	require.NoError(t, err)
	assert.True(t, result.IsActive())
	assert.True(t, result.EmailVerified)
	repo.AssertExpectations(t)
}

func TestAccountStateMachineRejectsPendingToSuspended(t *testing.T) {
	repo := &MockAccounts{}
	account := &identity.Account{ID: 1, Status: identity.AccountStatusPending}

	sm := identity.NewAccountStateMachine(repo, identity.WithStateMachineLogger(testLogger{}))

	_, err := sm.Transition(context.Background(), account, identity.AccountStatusSuspended)
	require.Error(t, err)
	assert.ErrorIs(t, err, identity.ErrInvalidTransition)
	repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAccountStateMachineSuspendAndReinstate(t *testing.T) {
	repo := &MockAccounts{}
	account := &identity.Account{ID: 2, Status: identity.AccountStatusActive}

	repo.On("UpdateStatus", mock.Anything, int64(2), identity.AccountStatusSuspended, mock.Anything).
		Return(&identity.Account{ID: 2, Status: identity.AccountStatusSuspended}, nil).Once()
	repo.On("UpdateStatus", mock.Anything, int64(2), identity.AccountStatusActive, mock.Anything).
		Return(&identity.Account{ID: 2, Status: identity.AccountStatusActive}, nil).Once()

	sm := identity.NewAccountStateMachine(repo, identity.WithStateMachineLogger(testLogger{}))

	result, err := sm.Transition(context.Background(), account, identity.AccountStatusSuspended,
		identity.WithTransitionReason("fraud review"))
	require.NoError(t, err)
	assert.True(t, result.IsSuspended())

	result, err = sm.Transition(context.Background(), result, identity.AccountStatusActive)
	require.NoError(t, err)
	assert.True(t, result.IsActive())
	repo.AssertExpectations(t)
}

func TestAccountStateMachineSameStatusIsNoop(t *testing.T) {
	repo := &MockAccounts{}
	account := &identity.Account{ID: 3, Status: identity.AccountStatusActive}

	sm := identity.NewAccountStateMachine(repo)

	result, err := sm.Transition(context.Background(), account, identity.AccountStatusActive)
	require.NoError(t, err)
	assert.Same(t, account, result)
	repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAccountStateMachineForceBypassesValidation(t *testing.T) {
	repo := &MockAccounts{}
	account := &identity.Account{ID: 4, Status: identity.AccountStatusPending}

	repo.On("UpdateStatus", mock.Anything, int64(4), identity.AccountStatusSuspended, mock.Anything).
		Return(&identity.Account{ID: 4, Status: identity.AccountStatusSuspended}, nil).Once()

	sm := identity.NewAccountStateMachine(repo,
		identity.WithStateMachineClock(func() time.Time {
			return time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
		}),
		identity.WithStateMachineLogger(testLogger{}))

	result, err := sm.Transition(context.Background(), account, identity.AccountStatusSuspended,
		identity.WithForceTransition())
	require.NoError(t, err)
	assert.True(t, result.IsSuspended())
	repo.AssertExpectations(t)
}

func TestAccountStateMachineNilAccount(t *testing.T) {
	sm := identity.NewAccountStateMachine(&MockAccounts{})

	_, err := sm.Transition(context.Background(), nil, identity.AccountStatusActive)
	require.Error(t, err)
	assert.ErrorIs(t, err, identity.ErrInvalidTransition)
}

func TestAccountStateMachineCurrentStatusDefaultsPending(t *testing.T) {
	sm := identity.NewAccountStateMachine(&MockAccounts{})

	assert.Equal(t, identity.AccountStatusPending, sm.CurrentStatus(&identity.Account{}))
	assert.Equal(t, "", sm.CurrentStatus(nil))
}
