package identity

import (
	"context"
	"math"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AuditFilter narrows a login audit query. Zero-valued fields do not filter.
type AuditFilter struct {
	AccountID *int64
	Role      AccountRole
	Method    LoginMethod
	Success   *bool
	Since     *time.Time
	Until     *time.Time
	Page      int
	PerPage   int
}

// LoginStats aggregates the audit trail over an optional time window.
type LoginStats struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	// SuccessRate is a percentage in [0, 100], rounded to two decimals.
	SuccessRate      float64        `json:"success_rate"`
	DistinctAccounts int            `json:"distinct_accounts"`
	ByRole           map[string]int `json:"by_role"`
	ByMethod         map[string]int `json:"by_method"`
}

// LoginAuditStore persists and queries the immutable login trail.
type LoginAuditStore interface {
	repository.Repository[*LoginAuditEntry]

	Append(ctx context.Context, entry *LoginAuditEntry) (*LoginAuditEntry, error)
	Search(ctx context.Context, filter AuditFilter) ([]*LoginAuditEntry, Pagination, error)
	Aggregate(ctx context.Context, since, until *time.Time) (*LoginStats, error)
	RecentForAccount(ctx context.Context, accountID int64, limit int) ([]*LoginAuditEntry, error)
}

type loginAudit struct {
	repository.Repository[*LoginAuditEntry]
	db *bun.DB
}

var _ LoginAuditStore = (*loginAudit)(nil)

func NewLoginAuditRepository(db *bun.DB) LoginAuditStore {
	repo := repository.NewRepository[*LoginAuditEntry](db, repository.ModelHandlers[*LoginAuditEntry]{
		NewRecord: func() *LoginAuditEntry { return &LoginAuditEntry{} },
		GetID: func(r *LoginAuditEntry) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *LoginAuditEntry, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
	})

	return &loginAudit{
		Repository: repo,
		db:         db,
	}
}

func (l *loginAudit) Append(ctx context.Context, entry *LoginAuditEntry) (*LoginAuditEntry, error) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now()
	}
	return l.Repository.Create(ctx, entry)
}

func (l *loginAudit) Search(ctx context.Context, filter AuditFilter) ([]*LoginAuditEntry, Pagination, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage < 1 {
		perPage = 25
	}

	var records []*LoginAuditEntry
	q := l.db.NewSelect().Model(&records)

	applyAuditFilter(q, filter)

	total, err := q.
		Order("occurred_at DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		ScanAndCount(ctx)

	if err != nil {
		return nil, Pagination{}, err
	}

	return records, paginationFor(page, perPage, total), nil
}

func applyAuditFilter(q *bun.SelectQuery, filter AuditFilter) {
	if filter.AccountID != nil {
		q.Where("?TableAlias.account_id = ?", *filter.AccountID)
	}
	if filter.Role != "" {
		q.Where("?TableAlias.role = ?", filter.Role)
	}
	if filter.Method != "" {
		q.Where("?TableAlias.method = ?", filter.Method)
	}
	if filter.Success != nil {
		q.Where("?TableAlias.success = ?", *filter.Success)
	}
	if filter.Since != nil {
		q.Where("?TableAlias.occurred_at >= ?", *filter.Since)
	}
	if filter.Until != nil {
		q.Where("?TableAlias.occurred_at < ?", *filter.Until)
	}
}

func (l *loginAudit) Aggregate(ctx context.Context, since, until *time.Time) (*LoginStats, error) {
	window := AuditFilter{Since: since, Until: until}

	var totals struct {
		Total            int `bun:"total"`
		Succeeded        int `bun:"succeeded"`
		DistinctAccounts int `bun:"distinct_accounts"`
	}

	q := l.db.NewSelect().
		Model((*LoginAuditEntry)(nil)).
		ColumnExpr("count(*) AS total").
		ColumnExpr("count(*) FILTER (WHERE success) AS succeeded").
		ColumnExpr("count(DISTINCT account_id) AS distinct_accounts")

	applyAuditFilter(q, window)

	if err := q.Scan(ctx, &totals); err != nil {
		return nil, err
	}

	stats := &LoginStats{
		Total:            totals.Total,
		Succeeded:        totals.Succeeded,
		Failed:           totals.Total - totals.Succeeded,
		DistinctAccounts: totals.DistinctAccounts,
		ByRole:           map[string]int{},
		ByMethod:         map[string]int{},
	}

	if stats.Total > 0 {
		pct := float64(stats.Succeeded) / float64(stats.Total) * 100
		stats.SuccessRate = math.Round(pct*100) / 100
	}

	type bucket struct {
		Key   string `bun:"key"`
		Count int    `bun:"count"`
	}

	var byRole []bucket
	rq := l.db.NewSelect().
		Model((*LoginAuditEntry)(nil)).
		ColumnExpr("role AS key").
		ColumnExpr("count(*) AS count").
		Where("role != ''").
		GroupExpr("role")
	applyAuditFilter(rq, window)
	if err := rq.Scan(ctx, &byRole); err != nil {
		return nil, err
	}
	for _, b := range byRole {
		stats.ByRole[b.Key] = b.Count
	}

	var byMethod []bucket
	mq := l.db.NewSelect().
		Model((*LoginAuditEntry)(nil)).
		ColumnExpr("method AS key").
		ColumnExpr("count(*) AS count").
		GroupExpr("method")
	applyAuditFilter(mq, window)
	if err := mq.Scan(ctx, &byMethod); err != nil {
		return nil, err
	}
	for _, b := range byMethod {
		stats.ByMethod[b.Key] = b.Count
	}

	return stats, nil
}

func (l *loginAudit) RecentForAccount(ctx context.Context, accountID int64, limit int) ([]*LoginAuditEntry, error) {
	if limit < 1 {
		limit = 10
	}

	var records []*LoginAuditEntry
	err := l.db.NewSelect().
		Model(&records).
		Where("?TableAlias.account_id = ?", accountID).
		Order("occurred_at DESC").
		Limit(limit).
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}
