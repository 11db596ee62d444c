package identity_test

import (
	"context"
	"database/sql"
	"time"

	identity "github.com/goliatone/go-identity"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// MockAccounts implements identity.Accounts
type MockAccounts struct {
	mock.Mock
}

func (m *MockAccounts) Create(ctx context.Context, record *identity.Account) (*identity.Account, error) {
	args := m.Called(ctx, record)
	return accountArg(args, 0), args.Error(1)
}

func (m *MockAccounts) CreateTx(ctx context.Context, tx bun.IDB, record *identity.Account) (*identity.Account, error) {
	args := m.Called(ctx, tx, record)
	return accountArg(args, 0), args.Error(1)
}

func (m *MockAccounts) GetByID(ctx context.Context, id int64) (*identity.Account, error) {
	args := m.Called(ctx, id)
	return accountArg(args, 0), args.Error(1)
}

func (m *MockAccounts) GetByIDTx(ctx context.Context, tx bun.IDB, id int64) (*identity.Account, error) {
	args := m.Called(ctx, tx, id)
	return accountArg(args, 0), args.Error(1)
}

func (m *MockAccounts) GetByEmail(ctx context.Context, email string) (*identity.Account, error) {
	args := m.Called(ctx, email)
	return accountArg(args, 0), args.Error(1)
}

func (m *MockAccounts) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*identity.Account, error) {
	args := m.Called(ctx, tx, email)
	return accountArg(args, 0), args.Error(1)
}

func (m *MockAccounts) UpdateStatus(ctx context.Context, id int64, status identity.AccountStatus, opts ...identity.StatusUpdateOption) (*identity.Account, error) {
	args := m.Called(ctx, id, status, opts)
	return accountArg(args, 0), args.Error(1)
}

func (m *MockAccounts) UpdateStatusTx(ctx context.Context, tx bun.IDB, id int64, status identity.AccountStatus, opts ...identity.StatusUpdateOption) (*identity.Account, error) {
	args := m.Called(ctx, tx, id, status, opts)
	return accountArg(args, 0), args.Error(1)
}

func (m *MockAccounts) TrackSuccessfulLogin(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAccounts) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, id int64) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

func (m *MockAccounts) ResetPassword(ctx context.Context, id int64, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *MockAccounts) ResetPasswordTx(ctx context.Context, tx bun.IDB, id int64, passwordHash string) error {
	args := m.Called(ctx, tx, id, passwordHash)
	return args.Error(0)
}

func (m *MockAccounts) List(ctx context.Context, page, perPage int) ([]*identity.Account, identity.Pagination, error) {
	args := m.Called(ctx, page, perPage)
	var records []*identity.Account
	if v := args.Get(0); v != nil {
		records = v.([]*identity.Account)
	}
	return records, args.Get(1).(identity.Pagination), args.Error(2)
}

func accountArg(args mock.Arguments, idx int) *identity.Account {
	if v := args.Get(idx); v != nil {
		return v.(*identity.Account)
	}
	return nil
}

// MockVerificationCodes implements identity.VerificationCodes
type MockVerificationCodes struct {
	mock.Mock
	repository.Repository[*identity.VerificationCode]
}

func (m *MockVerificationCodes) Issue(ctx context.Context, accountID int64, code string, expiresAt time.Time) (*identity.VerificationCode, error) {
	args := m.Called(ctx, accountID, code, expiresAt)
	return codeArg(args, 0), args.Error(1)
}

func (m *MockVerificationCodes) IssueTx(ctx context.Context, tx bun.IDB, accountID int64, code string, expiresAt time.Time) (*identity.VerificationCode, error) {
	args := m.Called(ctx, tx, accountID, code, expiresAt)
	return codeArg(args, 0), args.Error(1)
}

func (m *MockVerificationCodes) FindActive(ctx context.Context, accountID int64, code string, now time.Time) (*identity.VerificationCode, error) {
	args := m.Called(ctx, accountID, code, now)
	return codeArg(args, 0), args.Error(1)
}

func (m *MockVerificationCodes) FindActiveTx(ctx context.Context, tx bun.IDB, accountID int64, code string, now time.Time) (*identity.VerificationCode, error) {
	args := m.Called(ctx, tx, accountID, code, now)
	return codeArg(args, 0), args.Error(1)
}

func (m *MockVerificationCodes) MarkUsed(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockVerificationCodes) MarkUsedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

func (m *MockVerificationCodes) InvalidateForAccount(ctx context.Context, accountID int64) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

func (m *MockVerificationCodes) InvalidateForAccountTx(ctx context.Context, tx bun.IDB, accountID int64) error {
	args := m.Called(ctx, tx, accountID)
	return args.Error(0)
}

func codeArg(args mock.Arguments, idx int) *identity.VerificationCode {
	if v := args.Get(idx); v != nil {
		return v.(*identity.VerificationCode)
	}
	return nil
}

// MockRefreshTokens implements identity.RefreshTokens
type MockRefreshTokens struct {
	mock.Mock
	repository.Repository[*identity.RefreshToken]
}

func (m *MockRefreshTokens) Store(ctx context.Context, accountID int64, token string, expiresAt time.Time) (*identity.RefreshToken, error) {
	args := m.Called(ctx, accountID, token, expiresAt)
	return tokenArg(args, 0), args.Error(1)
}

func (m *MockRefreshTokens) StoreTx(ctx context.Context, tx bun.IDB, accountID int64, token string, expiresAt time.Time) (*identity.RefreshToken, error) {
	args := m.Called(ctx, tx, accountID, token, expiresAt)
	return tokenArg(args, 0), args.Error(1)
}

func (m *MockRefreshTokens) GetByToken(ctx context.Context, token string) (*identity.RefreshToken, error) {
	args := m.Called(ctx, token)
	return tokenArg(args, 0), args.Error(1)
}

func (m *MockRefreshTokens) GetByTokenTx(ctx context.Context, tx bun.IDB, token string) (*identity.RefreshToken, error) {
	args := m.Called(ctx, tx, token)
	return tokenArg(args, 0), args.Error(1)
}

func (m *MockRefreshTokens) Revoke(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRefreshTokens) RevokeTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

func (m *MockRefreshTokens) RevokeAllForAccount(ctx context.Context, accountID int64) (int64, error) {
	args := m.Called(ctx, accountID)
	return int64(args.Int(0)), args.Error(1)
}

func (m *MockRefreshTokens) RevokeAllForAccountTx(ctx context.Context, tx bun.IDB, accountID int64) (int64, error) {
	args := m.Called(ctx, tx, accountID)
	return int64(args.Int(0)), args.Error(1)
}

func tokenArg(args mock.Arguments, idx int) *identity.RefreshToken {
	if v := args.Get(idx); v != nil {
		return v.(*identity.RefreshToken)
	}
	return nil
}

// MockLoginAuditStore implements identity.LoginAuditStore
type MockLoginAuditStore struct {
	mock.Mock
	repository.Repository[*identity.LoginAuditEntry]
}

func (m *MockLoginAuditStore) Append(ctx context.Context, entry *identity.LoginAuditEntry) (*identity.LoginAuditEntry, error) {
	args := m.Called(ctx, entry)
	if v := args.Get(0); v != nil {
		return v.(*identity.LoginAuditEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoginAuditStore) Search(ctx context.Context, filter identity.AuditFilter) ([]*identity.LoginAuditEntry, identity.Pagination, error) {
	args := m.Called(ctx, filter)
	var entries []*identity.LoginAuditEntry
	if v := args.Get(0); v != nil {
		entries = v.([]*identity.LoginAuditEntry)
	}
	return entries, args.Get(1).(identity.Pagination), args.Error(2)
}

func (m *MockLoginAuditStore) Aggregate(ctx context.Context, since, until *time.Time) (*identity.LoginStats, error) {
	args := m.Called(ctx, since, until)
	if v := args.Get(0); v != nil {
		return v.(*identity.LoginStats), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoginAuditStore) RecentForAccount(ctx context.Context, accountID int64, limit int) ([]*identity.LoginAuditEntry, error) {
	args := m.Called(ctx, accountID, limit)
	if v := args.Get(0); v != nil {
		return v.([]*identity.LoginAuditEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockRepositoryManager implements identity.RepositoryManager. RunInTx
// invokes the callback with a zero transaction; the repositories behind it
// are mocks that never touch the handle.
type MockRepositoryManager struct {
	mock.Mock
	accounts          *MockAccounts
	verificationCodes *MockVerificationCodes
	refreshTokens     *MockRefreshTokens
	loginAudit        *MockLoginAuditStore
}

func newMockRepositoryManager() *MockRepositoryManager {
	return &MockRepositoryManager{
		accounts:          &MockAccounts{},
		verificationCodes: &MockVerificationCodes{},
		refreshTokens:     &MockRefreshTokens{},
		loginAudit:        &MockLoginAuditStore{},
	}
}

func (m *MockRepositoryManager) Validate() error { return nil }
func (m *MockRepositoryManager) MustValidate()   {}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

func (m *MockRepositoryManager) Accounts() identity.Accounts {
	return m.accounts
}

func (m *MockRepositoryManager) VerificationCodes() identity.VerificationCodes {
	return m.verificationCodes
}

func (m *MockRepositoryManager) RefreshTokens() identity.RefreshTokens {
	return m.refreshTokens
}

func (m *MockRepositoryManager) LoginAudit() identity.LoginAuditStore {
	return m.loginAudit
}

// MockNotifier implements identity.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyVerificationCode(ctx context.Context, msg identity.VerificationMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockNotifier) NotifyPasswordResetCode(ctx context.Context, msg identity.VerificationMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockNotifier) NotifyWelcome(ctx context.Context, msg identity.WelcomeMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// staticCodes returns the same code every time.
type staticCodes struct {
	code string
}

func (s staticCodes) Generate() (string, error) {
	return s.code, nil
}

// testLogger swallows output so tests stay quiet.
type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

func testConfig() identity.SimpleConfig {
	return identity.SimpleConfig{
		AccessSigningKey:  "access-secret-for-tests",
		RefreshSigningKey: "refresh-secret-for-tests",
		AccessTokenTTL:    15 * time.Minute,
		RefreshTokenTTL:   7 * 24 * time.Hour,
		TokenIssuer:       "identity-tests",
		BcryptCost:        4,
	}
}
