package identity

import (
	goerrors "github.com/goliatone/go-errors"
)

// Sentinel errors for the credential lifecycle. Each carries the category and
// code an error handler needs to map it onto a transport response.
var (
	// ErrEmailRegistered is returned when a registration or account creation
	// targets an email that already has an account.
	ErrEmailRegistered = goerrors.New("email already registered", goerrors.CategoryConflict).
				WithTextCode("EMAIL_REGISTERED").
				WithCode(goerrors.CodeConflict)

	// ErrAccountNotFound is returned when an account lookup misses.
	ErrAccountNotFound = goerrors.New("account not found", goerrors.CategoryNotFound).
				WithTextCode("ACCOUNT_NOT_FOUND").
				WithCode(goerrors.CodeNotFound)

	// ErrInvalidCredentials is the deliberately generic login failure. The
	// audit trail records the specific reason; callers do not learn it.
	ErrInvalidCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
				WithTextCode("INVALID_CREDENTIALS").
				WithCode(goerrors.CodeUnauthorized)

	// ErrCodeInvalidOrExpired is returned when a one-time code does not match,
	// was already consumed, or is past its validity window.
	ErrCodeInvalidOrExpired = goerrors.New("verification code invalid or expired", goerrors.CategoryValidation).
				WithTextCode("CODE_INVALID_OR_EXPIRED").
				WithCode(goerrors.CodeBadRequest)

	// ErrAccountNotActive is returned when an operation requires an active
	// account but the account is pending or suspended.
	ErrAccountNotActive = goerrors.New("account is not active", goerrors.CategoryValidation).
				WithTextCode("ACCOUNT_NOT_ACTIVE").
				WithCode(goerrors.CodeBadRequest)

	// ErrRefreshTokenInvalid is returned on any refresh failure: bad
	// signature, unknown token, revoked, or expired.
	ErrRefreshTokenInvalid = goerrors.New("refresh token invalid", goerrors.CategoryAuth).
				WithTextCode("REFRESH_TOKEN_INVALID").
				WithCode(goerrors.CodeUnauthorized)

	// ErrInsufficientRole is returned when the acting account's role does not
	// meet the operation's requirement.
	ErrInsufficientRole = goerrors.New("insufficient role", goerrors.CategoryAuthz).
				WithTextCode("INSUFFICIENT_ROLE").
				WithCode(goerrors.CodeForbidden)

	// ErrTokenExpired is returned by access token validation when the token's
	// signature is fine but its lifetime has elapsed.
	ErrTokenExpired = goerrors.New("token expired", goerrors.CategoryAuth).
			WithTextCode("TOKEN_EXPIRED").
			WithCode(goerrors.CodeUnauthorized)

	// ErrTokenMalformed is returned by token validation for anything that is
	// not a well-formed token signed by us.
	ErrTokenMalformed = goerrors.New("token malformed or signature invalid", goerrors.CategoryAuth).
				WithTextCode("TOKEN_MALFORMED").
				WithCode(goerrors.CodeUnauthorized)

	// ErrUnauthenticated is returned when an operation requires an actor and
	// none was supplied.
	ErrUnauthenticated = goerrors.New("authentication required", goerrors.CategoryAuth).
				WithTextCode("UNAUTHENTICATED").
				WithCode(goerrors.CodeUnauthorized)
)
