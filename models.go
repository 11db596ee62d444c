package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AccountStatus is the lifecycle status of an account
type AccountStatus = string

const (
	// AccountStatusPending marks accounts waiting for email verification
	AccountStatusPending AccountStatus = "pending_verification"
	// AccountStatusActive marks accounts that can authenticate
	AccountStatusActive AccountStatus = "active"
	// AccountStatusSuspended marks accounts that were deactivated by an operator
	AccountStatusSuspended AccountStatus = "suspended"
)

// Account is the identity record for a platform user
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`
	ID            int64         `bun:"id,pk,autoincrement" json:"id,omitempty"`
	Email         string        `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string        `bun:"password_hash,notnull" json:"-"`
	FirstName     string        `bun:"first_name,notnull" json:"first_name,omitempty"`
	LastName      string        `bun:"last_name,notnull" json:"last_name,omitempty"`
	Role          AccountRole   `bun:"role,notnull" json:"role,omitempty"`
	Status        AccountStatus `bun:"status,notnull" json:"status,omitempty"`
	EmailVerified bool          `bun:"is_email_verified" json:"is_email_verified"`
	AvatarRef     string        `bun:"avatar_ref" json:"avatar_ref,omitempty"`
	LastLoginAt   *time.Time    `bun:"last_login_at,nullzero" json:"last_login_at,omitempty"`
	CreatedByID   *int64        `bun:"created_by_id,nullzero" json:"created_by_id,omitempty"`
	CreatedBy     *Account      `bun:"rel:belongs-to,join:created_by_id=id" json:"created_by,omitempty"`
	CreatedAt     *time.Time    `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time    `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// EnsureStatus backfills the zero value with the registration default.
func (a *Account) EnsureStatus() {
	if a.Status == "" {
		a.Status = AccountStatusPending
	}
}

// IsActive reports whether the account passed verification and was not suspended.
func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}

// IsSuspended reports whether the account was deactivated.
func (a *Account) IsSuspended() bool {
	return a.Status == AccountStatusSuspended
}

// FullName is the display name used in audit entries and notifications.
func (a *Account) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// PublicAccount is the caller-facing projection of an Account. Credential
// material never crosses this boundary.
type PublicAccount struct {
	ID            int64          `json:"id"`
	Email         string         `json:"email"`
	FirstName     string         `json:"first_name"`
	LastName      string         `json:"last_name"`
	Role          AccountRole    `json:"role"`
	Status        AccountStatus  `json:"status"`
	EmailVerified bool           `json:"is_email_verified"`
	AvatarRef     string         `json:"avatar_ref,omitempty"`
	LastLoginAt   *time.Time     `json:"last_login_at,omitempty"`
	CreatedBy     *PublicAccount `json:"created_by,omitempty"`
	CreatedAt     *time.Time     `json:"created_at,omitempty"`
	UpdatedAt     *time.Time     `json:"updated_at,omitempty"`
}

// Public returns the projection of the account that is safe to serialize.
func (a *Account) Public() *PublicAccount {
	if a == nil {
		return nil
	}

	pub := &PublicAccount{
		ID:            a.ID,
		Email:         a.Email,
		FirstName:     a.FirstName,
		LastName:      a.LastName,
		Role:          a.Role,
		Status:        a.Status,
		EmailVerified: a.EmailVerified,
		AvatarRef:     a.AvatarRef,
		LastLoginAt:   a.LastLoginAt,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}

	if a.CreatedBy != nil {
		pub.CreatedBy = a.CreatedBy.Public()
	}

	return pub
}

// VerificationCode is a one-time numeric code proving control of an email
// address. The same record type backs both signup verification and password
// reset; a code is consumed exactly once.
type VerificationCode struct {
	bun.BaseModel `bun:"table:verification_codes,alias:vc"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	AccountID     int64      `bun:"account_id,notnull" json:"account_id,omitempty"`
	Account       *Account   `bun:"rel:belongs-to,join:account_id=id" json:"account,omitempty"`
	Code          string     `bun:"code,notnull" json:"-"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	Used          bool       `bun:"is_used,notnull,default:false" json:"is_used"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Expired reports whether the code is past its validity window. The window is
// half-open: a code at exactly its expiry instant is already expired.
func (c *VerificationCode) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

// RefreshToken is the stored side of an issued refresh credential. The signed
// token string is the lookup key. Records are revoked, never deleted, so the
// token trail stays auditable.
type RefreshToken struct {
	bun.BaseModel `bun:"table:refresh_tokens,alias:rtk"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	AccountID     int64      `bun:"account_id,notnull" json:"account_id,omitempty"`
	Account       *Account   `bun:"rel:belongs-to,join:account_id=id" json:"account,omitempty"`
	Token         string     `bun:"token,notnull,unique" json:"-"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	Revoked       bool       `bun:"is_revoked,notnull,default:false" json:"is_revoked"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Usable reports whether the token can still be exchanged.
func (t *RefreshToken) Usable(now time.Time) bool {
	return !t.Revoked && t.ExpiresAt.After(now)
}

// LoginMethod identifies how an authentication attempt was made.
type LoginMethod = string

const (
	// LoginMethodPassword is an email+password login
	LoginMethodPassword LoginMethod = "password"
	// LoginMethodRefresh is a refresh-token exchange
	LoginMethodRefresh LoginMethod = "refresh"
)

// LoginAuditEntry is one immutable record of a login or refresh attempt.
// AccountID is nil when the attempt referenced an email we do not know.
type LoginAuditEntry struct {
	bun.BaseModel `bun:"table:login_audit,alias:lae"`
	ID            uuid.UUID   `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	AccountID     *int64      `bun:"account_id,nullzero" json:"account_id,omitempty"`
	Account       *Account    `bun:"rel:belongs-to,join:account_id=id" json:"account,omitempty"`
	Role          AccountRole `bun:"role" json:"role,omitempty"`
	DisplayName   string      `bun:"display_name" json:"display_name,omitempty"`
	IP            string      `bun:"ip_address" json:"ip_address,omitempty"`
	UserAgent     string      `bun:"user_agent" json:"user_agent,omitempty"`
	Method        LoginMethod `bun:"method,notnull" json:"method"`
	Success       bool        `bun:"success,notnull" json:"success"`
	Reason        string      `bun:"reason" json:"reason,omitempty"`
	OccurredAt    time.Time   `bun:"occurred_at,notnull" json:"occurred_at"`
}

// Pagination describes one page of a listing response.
type Pagination struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Total   int `json:"total"`
	Pages   int `json:"pages"`
}

func paginationFor(page, perPage, total int) Pagination {
	pages := 0
	if perPage > 0 {
		pages = (total + perPage - 1) / perPage
	}

	return Pagination{
		Page:    page,
		PerPage: perPage,
		Total:   total,
		Pages:   pages,
	}
}
