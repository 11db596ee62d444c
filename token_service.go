package identity

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// TokenService issues, validates, and rotates JWT credentials. Access and
// refresh tokens are signed with independent keys so neither can stand in for
// the other.
type TokenService interface {
	IssuePair(ctx context.Context, account *Account) (*TokenPair, error)
	IssuePairTx(ctx context.Context, tx bun.IDB, account *Account) (*TokenPair, error)
	Rotate(ctx context.Context, rawRefresh string) (*TokenPair, *Account, error)
	ValidateAccess(raw string) (*AccountClaims, error)
	ValidateRefresh(raw string) (*AccountClaims, error)
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	repo       RepositoryManager
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	logger     Logger
	now        func() time.Time
}

var _ TokenService = (*TokenServiceImpl)(nil)

// NewTokenService creates a new TokenService instance
func NewTokenService(repo RepositoryManager, config Config, logger Logger) *TokenServiceImpl {
	return &TokenServiceImpl{
		repo:       repo,
		accessKey:  []byte(config.GetAccessSigningKey()),
		refreshKey: []byte(config.GetRefreshSigningKey()),
		accessTTL:  config.GetAccessTokenTTL(),
		refreshTTL: config.GetRefreshTokenTTL(),
		issuer:     config.GetTokenIssuer(),
		audience:   config.GetTokenAudience(),
		logger:     normalizeLogger(logger),
		now:        time.Now,
	}
}

// WithClock overrides the time source, used in tests.
func (ts *TokenServiceImpl) WithClock(now func() time.Time) *TokenServiceImpl {
	if now != nil {
		ts.now = now
	}
	return ts
}

// IssuePair signs a fresh access/refresh pair for the account and stores the
// refresh side.
func (ts *TokenServiceImpl) IssuePair(ctx context.Context, account *Account) (*TokenPair, error) {
	var pair *TokenPair
	err := ts.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		pair, err = ts.IssuePairTx(ctx, tx, account)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// IssuePairTx signs a pair inside an existing transaction.
func (ts *TokenServiceImpl) IssuePairTx(ctx context.Context, tx bun.IDB, account *Account) (*TokenPair, error) {
	if account == nil {
		return nil, goerrors.New("account must not be nil", goerrors.CategoryInternal)
	}

	now := ts.now()

	access, err := ts.sign(ts.claimsFor(account, TokenKindAccess, now, ts.accessTTL), ts.accessKey)
	if err != nil {
		return nil, err
	}

	refreshExpiry := now.Add(ts.refreshTTL)
	refresh, err := ts.sign(ts.claimsFor(account, TokenKindRefresh, now, ts.refreshTTL), ts.refreshKey)
	if err != nil {
		return nil, err
	}

	if _, err := ts.repo.RefreshTokens().StoreTx(ctx, tx, account.ID, refresh, refreshExpiry); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store refresh token")
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

// Rotate exchanges a refresh token for a new pair. The presented token is
// revoked and its successor issued in one transaction, so concurrent
// exchanges of the same token yield exactly one winner.
func (ts *TokenServiceImpl) Rotate(ctx context.Context, rawRefresh string) (*TokenPair, *Account, error) {
	if _, err := ts.ValidateRefresh(rawRefresh); err != nil {
		return nil, nil, ErrRefreshTokenInvalid
	}

	var (
		pair    *TokenPair
		account *Account
	)

	err := ts.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		stored, err := ts.repo.RefreshTokens().GetByTokenTx(ctx, tx, rawRefresh)
		if err != nil {
			return ErrRefreshTokenInvalid
		}

		// The stored record is authoritative: a token that is revoked or past
		// its stored expiry is unusable even with a valid signature.
		if !stored.Usable(ts.now()) {
			return ErrRefreshTokenInvalid
		}

		if err := ts.repo.RefreshTokens().RevokeTx(ctx, tx, stored.ID); err != nil {
			return ErrRefreshTokenInvalid
		}

		account, err = ts.repo.Accounts().GetByIDTx(ctx, tx, stored.AccountID)
		if err != nil {
			return ErrRefreshTokenInvalid
		}

		pair, err = ts.IssuePairTx(ctx, tx, account)
		return err
	})

	if err != nil {
		return nil, nil, err
	}

	return pair, account, nil
}

// ValidateAccess parses and validates an access token, returning its claims.
func (ts *TokenServiceImpl) ValidateAccess(raw string) (*AccountClaims, error) {
	return ts.validate(raw, ts.accessKey, TokenKindAccess)
}

// ValidateRefresh parses and validates a refresh token signature. It does not
// consult storage; Rotate does that.
func (ts *TokenServiceImpl) ValidateRefresh(raw string) (*AccountClaims, error) {
	return ts.validate(raw, ts.refreshKey, TokenKindRefresh)
}

func (ts *TokenServiceImpl) claimsFor(account *Account, kind TokenKind, now time.Time, ttl time.Duration) *AccountClaims {
	return &AccountClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   strconv.FormatInt(account.ID, 10),
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        newTokenID(),
		},
		Email:       account.Email,
		FirstName:   account.FirstName,
		LastName:    account.LastName,
		AccountRole: account.Role,
		TokenKind:   kind,
	}
}

func (ts *TokenServiceImpl) sign(claims *AccountClaims, key []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(key)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	return signed, nil
}

func (ts *TokenServiceImpl) validate(raw string, key []byte, kind TokenKind) (*AccountClaims, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithTimeFunc(ts.now),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(raw, &AccountClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("token validate encountered unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	}, parserOptions...)

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).WithTextCode(ErrTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*AccountClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenMalformed
	}

	if claims.TokenKind != kind {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}
