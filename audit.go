package identity

import (
	"context"
	"time"
)

// LoginAttempt is everything the auditor needs to record one authentication
// attempt. Account is nil when the attempt referenced an unknown email.
type LoginAttempt struct {
	Account   *Account
	Email     string
	IP        string
	UserAgent string
	Method    LoginMethod
	Success   bool
	Reason    string
}

// AuditPage is one page of audit query results.
type AuditPage struct {
	Entries    []*LoginAuditEntry `json:"entries"`
	Pagination Pagination         `json:"pagination"`
}

// LoginAuditor records and queries the login trail. Record is best effort: a
// failed write is logged and swallowed so auditing never blocks a login.
type LoginAuditor interface {
	Record(ctx context.Context, attempt LoginAttempt)
	Query(ctx context.Context, filter AuditFilter) (*AuditPage, error)
	Stats(ctx context.Context, since, until *time.Time) (*LoginStats, error)
	RecentForAccount(ctx context.Context, accountID int64, limit int) ([]*LoginAuditEntry, error)
}

type loginAuditor struct {
	store  LoginAuditStore
	logger Logger
	now    func() time.Time
}

var _ LoginAuditor = (*loginAuditor)(nil)

// NewLoginAuditor builds the default auditor on top of the audit store.
func NewLoginAuditor(store LoginAuditStore, logger Logger) *loginAuditor {
	return &loginAuditor{
		store:  store,
		logger: normalizeLogger(logger),
		now:    time.Now,
	}
}

// WithClock overrides the time source, used in tests.
func (a *loginAuditor) WithClock(now func() time.Time) *loginAuditor {
	if now != nil {
		a.now = now
	}
	return a
}

func (a *loginAuditor) Record(ctx context.Context, attempt LoginAttempt) {
	entry := &LoginAuditEntry{
		IP:         attempt.IP,
		UserAgent:  attempt.UserAgent,
		Method:     attempt.Method,
		Success:    attempt.Success,
		Reason:     attempt.Reason,
		OccurredAt: a.now(),
	}

	if attempt.Account != nil {
		id := attempt.Account.ID
		entry.AccountID = &id
		entry.Role = attempt.Account.Role
		entry.DisplayName = attempt.Account.FullName()
	} else {
		entry.DisplayName = attempt.Email
	}

	if _, err := a.store.Append(ctx, entry); err != nil {
		a.logger.Warn("login audit append failed: %v", err)
	}
}

func (a *loginAuditor) Query(ctx context.Context, filter AuditFilter) (*AuditPage, error) {
	entries, pagination, err := a.store.Search(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &AuditPage{
		Entries:    entries,
		Pagination: pagination,
	}, nil
}

func (a *loginAuditor) Stats(ctx context.Context, since, until *time.Time) (*LoginStats, error) {
	return a.store.Aggregate(ctx, since, until)
}

func (a *loginAuditor) RecentForAccount(ctx context.Context, accountID int64, limit int) ([]*LoginAuditEntry, error) {
	return a.store.RecentForAccount(ctx, accountID, limit)
}

type noopAuditor struct{}

func (noopAuditor) Record(context.Context, LoginAttempt) {}

func (noopAuditor) Query(context.Context, AuditFilter) (*AuditPage, error) {
	return &AuditPage{}, nil
}

func (noopAuditor) Stats(context.Context, *time.Time, *time.Time) (*LoginStats, error) {
	return &LoginStats{ByRole: map[string]int{}, ByMethod: map[string]int{}}, nil
}

func (noopAuditor) RecentForAccount(context.Context, int64, int) ([]*LoginAuditEntry, error) {
	return nil, nil
}

func normalizeAuditor(a LoginAuditor) LoginAuditor {
	if a == nil {
		return noopAuditor{}
	}
	return a
}
