package identity_test

import (
	"context"
	"errors"
	"testing"
	"time"

	identity "github.com/goliatone/go-identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLoginAuditorRecordsAttempt(t *testing.T) {
	store := &MockLoginAuditStore{}
	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

	var recorded *identity.LoginAuditEntry
	store.On("Append", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			recorded = args.Get(1).(*identity.LoginAuditEntry)
		}).
		Return(&identity.LoginAuditEntry{}, nil).Once()

	auditor := identity.NewLoginAuditor(store, testLogger{}).
		WithClock(func() time.Time { return now })

	account := &identity.Account{
		ID:        9,
		FirstName: "Pepe",
		LastName:  "Rone",
		Role:      identity.RoleAdmin,
	}

	auditor.Record(context.Background(), identity.LoginAttempt{
		Account:   account,
		IP:        "203.0.113.7",
		UserAgent: "test-agent",
		Method:    identity.LoginMethodPassword,
		Success:   true,
	})

	require.NotNil(t, recorded)
	require.NotNil(t, recorded.AccountID)
	assert.Equal(t, int64(9), *recorded.AccountID)
	assert.Equal(t, identity.RoleAdmin, recorded.Role)
	assert.Equal(t, "Pepe Rone", recorded.DisplayName)
	assert.Equal(t, now, recorded.OccurredAt)
	assert.True(t, recorded.Success)
	store.AssertExpectations(t)
}

func TestLoginAuditorRecordsUnknownEmailWithoutAccount(t *testing.T) {
	store := &MockLoginAuditStore{}

	var recorded *identity.LoginAuditEntry
	store.On("Append", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			recorded = args.Get(1).(*identity.LoginAuditEntry)
		}).
		Return(&identity.LoginAuditEntry{}, nil).Once()

	auditor := identity.NewLoginAuditor(store, testLogger{})

	auditor.Record(context.Background(), identity.LoginAttempt{
		Email:   "ghost@example.com",
		Method:  identity.LoginMethodPassword,
		Success: false,
		Reason:  "unknown email",
	})

	require.NotNil(t, recorded)
	assert.Nil(t, recorded.AccountID)
	assert.Equal(t, "ghost@example.com", recorded.DisplayName)
	assert.False(t, recorded.Success)
	store.AssertExpectations(t)
}

func TestLoginAuditorSwallowsStoreFailures(t *testing.T) {
	store := &MockLoginAuditStore{}
	store.On("Append", mock.Anything, mock.Anything).
		Return(nil, errors.New("disk full")).Once()

	auditor := identity.NewLoginAuditor(store, testLogger{})

	// Must not panic or surface the error.
	auditor.Record(context.Background(), identity.LoginAttempt{
		Method:  identity.LoginMethodRefresh,
		Success: false,
	})

	store.AssertExpectations(t)
}

func TestLoginAuditorQuery(t *testing.T) {
	store := &MockLoginAuditStore{}
	entries := []*identity.LoginAuditEntry{{Method: identity.LoginMethodPassword}}

	store.On("Search", mock.Anything, mock.Anything).
		Return(entries, identity.Pagination{Page: 1, PerPage: 25, Total: 1, Pages: 1}, nil).Once()

	auditor := identity.NewLoginAuditor(store, testLogger{})

	page, err := auditor.Query(context.Background(), identity.AuditFilter{Page: 1, PerPage: 25})
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, 1, page.Pagination.Total)
	store.AssertExpectations(t)
}

func TestLoginAuditorStats(t *testing.T) {
	store := &MockLoginAuditStore{}
	stats := &identity.LoginStats{
		Total:       10,
		Succeeded:   8,
		Failed:      2,
		SuccessRate: 80,
	}

	store.On("Aggregate", mock.Anything, mock.Anything, mock.Anything).
		Return(stats, nil).Once()

	auditor := identity.NewLoginAuditor(store, testLogger{})

	got, err := auditor.Stats(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Total)
	assert.InDelta(t, 80.0, got.SuccessRate, 0.0001)
	store.AssertExpectations(t)
}
