package identity

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// IdentityControllerRoutes holds the route prefixes the controller mounts.
type IdentityControllerRoutes struct {
	Register       string
	VerifyEmail    string
	Login          string
	Refresh        string
	ForgotPassword string
	ResetPassword  string
	Accounts       string
	Audit          string
}

// IdentityController exposes the credential lifecycle as a JSON API.
type IdentityController struct {
	Debug        bool
	Logger       Logger
	Lifecycle    *Lifecycle
	Tokens       TokenService
	Routes       *IdentityControllerRoutes
	ErrorHandler router.ErrorHandler
}

type IdentityControllerOption func(*IdentityController) *IdentityController

func WithControllerLifecycle(l *Lifecycle) IdentityControllerOption {
	return func(c *IdentityController) *IdentityController {
		c.Lifecycle = l
		return c
	}
}

func WithControllerTokens(ts TokenService) IdentityControllerOption {
	return func(c *IdentityController) *IdentityController {
		c.Tokens = ts
		return c
	}
}

func WithControllerLogger(logger Logger) IdentityControllerOption {
	return func(c *IdentityController) *IdentityController {
		c.Logger = normalizeLogger(logger)
		return c
	}
}

func WithControllerErrorHandler(handler router.ErrorHandler) IdentityControllerOption {
	return func(c *IdentityController) *IdentityController {
		if handler != nil {
			c.ErrorHandler = handler
		}
		return c
	}
}

func WithControllerDebug(debug bool) IdentityControllerOption {
	return func(c *IdentityController) *IdentityController {
		c.Debug = debug
		return c
	}
}

func NewIdentityController(opts ...IdentityControllerOption) *IdentityController {
	c := &IdentityController{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		Routes: &IdentityControllerRoutes{
			Register:       "/auth/register",
			VerifyEmail:    "/auth/verify-email",
			Login:          "/auth/login",
			Refresh:        "/auth/refresh",
			ForgotPassword: "/auth/forgot-password",
			ResetPassword:  "/auth/reset-password",
			Accounts:       "/accounts",
			Audit:          "/audit",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Lifecycle == nil {
		panic("Missing Lifecycle in identity controller...")
	}

	if c.Tokens == nil {
		panic("Missing TokenService in identity controller...")
	}

	return c
}

// RegisterIdentityRoutes mounts the JSON API on the given router.
func RegisterIdentityRoutes[T any](app router.Router[T], opts ...IdentityControllerOption) {
	controller := NewIdentityController(opts...)
	authed := controller.RequireAuth()

	app.Post(controller.Routes.Register, controller.RegisterPost).
		SetName("identity.register")
	app.Post(controller.Routes.VerifyEmail, controller.VerifyEmailPost).
		SetName("identity.verify-email")
	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("identity.login")
	app.Post(controller.Routes.Refresh, controller.RefreshPost).
		SetName("identity.refresh")
	app.Post(controller.Routes.ForgotPassword, controller.ForgotPasswordPost).
		SetName("identity.forgot-password")
	app.Post(controller.Routes.ResetPassword, controller.ResetPasswordPost).
		SetName("identity.reset-password")

	app.Get(controller.Routes.Accounts, authed(controller.AccountsList)).
		SetName("identity.accounts.list")
	app.Get(fmt.Sprintf("%s/:id", controller.Routes.Accounts), authed(controller.AccountShow)).
		SetName("identity.accounts.show")
	app.Post(fmt.Sprintf("%s/admins", controller.Routes.Accounts), authed(controller.AdminAccountCreate)).
		SetName("identity.accounts.admins.create")
	app.Post(fmt.Sprintf("%s/supers", controller.Routes.Accounts), authed(controller.SuperAccountCreate)).
		SetName("identity.accounts.supers.create")
	app.Post(fmt.Sprintf("%s/:id/suspend", controller.Routes.Accounts), authed(controller.AccountSuspend)).
		SetName("identity.accounts.suspend")
	app.Post(fmt.Sprintf("%s/:id/reinstate", controller.Routes.Accounts), authed(controller.AccountReinstate)).
		SetName("identity.accounts.reinstate")

	app.Get(fmt.Sprintf("%s/logins", controller.Routes.Audit), authed(controller.AuditList)).
		SetName("identity.audit.logins")
	app.Get(fmt.Sprintf("%s/stats", controller.Routes.Audit), authed(controller.AuditStats)).
		SetName("identity.audit.stats")
	app.Get(fmt.Sprintf("%s/me", controller.Routes.Audit), authed(controller.AuditMine)).
		SetName("identity.audit.me")
	app.Get(fmt.Sprintf("%s/accounts/:id/logins", controller.Routes.Audit), authed(controller.AuditAccountLogins)).
		SetName("identity.audit.accounts.logins")
}

// RequireAuth validates the bearer token and stores the resolved actor on the
// router context.
func (a *IdentityController) RequireAuth() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			raw := ctx.GetString(router.HeaderAuthorization, "")
			if raw == "" {
				return a.ErrorHandler(ctx, ErrUnauthenticated)
			}

			parts := strings.SplitN(raw, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return a.ErrorHandler(ctx, ErrTokenMalformed)
			}

			claims, err := a.Tokens.ValidateAccess(parts[1])
			if err != nil {
				return a.ErrorHandler(ctx, err)
			}

			actor, err := ActorFromClaims(claims)
			if err != nil {
				return a.ErrorHandler(ctx, ErrTokenMalformed)
			}

			ctx.Locals(ClaimsLocalsKey, claims)
			ctx.Locals(ActorLocalsKey, actor)
			ctx.SetContext(WithActorContext(WithClaimsContext(ctx.Context(), claims), actor))

			return next(ctx)
		}
	}
}

// RegisterPayload is the signup request body.
type RegisterPayload struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	AvatarRef string `json:"avatar_ref"`
}

// Validate will run validation rules
func (r RegisterPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 200)),
	)
}

func (a *IdentityController) RegisterPost(ctx router.Context) error {
	payload := new(RegisterPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, bindError(err))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, validationError(err))
	}

	if a.Debug {
		a.Logger.Debug("register payload: %s", print.MaybePrettyJSON(payload))
	}

	account, err := a.Lifecycle.Register(ctx.Context(), RegisterInput{
		Email:     payload.Email,
		Password:  payload.Password,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		AvatarRef: payload.AvatarRef,
	})
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, account)
}

// VerifyEmailPayload is the email verification request body.
type VerifyEmailPayload struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// Validate will run validation rules
func (r VerifyEmailPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Code, validation.Required, validation.Length(6, 6), is.Digit),
	)
}

func (a *IdentityController) VerifyEmailPost(ctx router.Context) error {
	payload := new(VerifyEmailPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, bindError(err))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, validationError(err))
	}

	account, err := a.Lifecycle.VerifyEmail(ctx.Context(), VerifyEmailInput{
		Email: payload.Email,
		Code:  payload.Code,
	})
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, account)
}

// LoginPayload is the password login request body.
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *IdentityController) LoginPost(ctx router.Context) error {
	payload := new(LoginPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, bindError(err))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, validationError(err))
	}

	result, err := a.Lifecycle.Login(ctx.Context(), LoginInput{
		Email:     payload.Email,
		Password:  payload.Password,
		IP:        ctx.IP(),
		UserAgent: ctx.GetString("User-Agent", ""),
	})
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, result)
}

// RefreshPayload is the token rotation request body.
type RefreshPayload struct {
	RefreshToken string `json:"refresh_token"`
}

// Validate will run validation rules
func (r RefreshPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RefreshToken, validation.Required),
	)
}

func (a *IdentityController) RefreshPost(ctx router.Context) error {
	payload := new(RefreshPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, bindError(err))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, validationError(err))
	}

	result, err := a.Lifecycle.Refresh(ctx.Context(), RefreshInput{
		RefreshToken: payload.RefreshToken,
		IP:           ctx.IP(),
		UserAgent:    ctx.GetString("User-Agent", ""),
	})
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, result)
}

// ForgotPasswordPayload starts a password reset.
type ForgotPasswordPayload struct {
	Email string `json:"email"`
}

// Validate will run validation rules
func (r ForgotPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *IdentityController) ForgotPasswordPost(ctx router.Context) error {
	payload := new(ForgotPasswordPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, bindError(err))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, validationError(err))
	}

	result, err := a.Lifecycle.ForgotPassword(ctx.Context(), ForgotPasswordInput{
		Email: payload.Email,
	})
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, result)
}

// ResetPasswordPayload finalizes a password reset.
type ResetPasswordPayload struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

// Validate will run validation rules
func (r ResetPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Code, validation.Required, validation.Length(6, 6), is.Digit),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(8, 100)),
	)
}

func (a *IdentityController) ResetPasswordPost(ctx router.Context) error {
	payload := new(ResetPasswordPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, bindError(err))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, validationError(err))
	}

	if err := a.Lifecycle.ResetPassword(ctx.Context(), ResetPasswordInput{
		Email:       payload.Email,
		Code:        payload.Code,
		NewPassword: payload.NewPassword,
	}); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]string{
		"message": "password updated",
	})
}

func (a *IdentityController) AccountsList(ctx router.Context) error {
	actor, ok := GetRouterActor(ctx)
	if !ok {
		return a.ErrorHandler(ctx, ErrUnauthenticated)
	}

	page := queryInt(ctx, "page", 1)
	perPage := queryInt(ctx, "per_page", 25)

	result, err := a.Lifecycle.ListAccounts(ctx.Context(), actor, page, perPage)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, result)
}

func (a *IdentityController) AccountShow(ctx router.Context) error {
	actor, ok := GetRouterActor(ctx)
	if !ok {
		return a.ErrorHandler(ctx, ErrUnauthenticated)
	}

	id, err := paramID(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	account, err := a.Lifecycle.GetAccount(ctx.Context(), actor, id)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, account)
}

// CreateAccountPayload is the operator account creation body.
type CreateAccountPayload struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	AvatarRef string `json:"avatar_ref"`
}

// Validate will run validation rules
func (r CreateAccountPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 200)),
	)
}

func (a *IdentityController) AdminAccountCreate(ctx router.Context) error {
	return a.createPrivileged(ctx, a.Lifecycle.CreateAdminAccount)
}

func (a *IdentityController) SuperAccountCreate(ctx router.Context) error {
	return a.createPrivileged(ctx, a.Lifecycle.CreateSuperAccount)
}

func (a *IdentityController) createPrivileged(ctx router.Context, create func(ctx context.Context, actor Actor, input CreateAccountInput) (*PublicAccount, error)) error {
	actor, ok := GetRouterActor(ctx)
	if !ok {
		return a.ErrorHandler(ctx, ErrUnauthenticated)
	}

	payload := new(CreateAccountPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, bindError(err))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, validationError(err))
	}

	account, err := create(ctx.Context(), actor, CreateAccountInput{
		Email:     payload.Email,
		Password:  payload.Password,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		AvatarRef: payload.AvatarRef,
	})
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, account)
}

// SuspendPayload carries the operator's reason for a status change.
type SuspendPayload struct {
	Reason string `json:"reason"`
}

func (a *IdentityController) AccountSuspend(ctx router.Context) error {
	return a.transition(ctx, a.Lifecycle.SuspendAccount)
}

func (a *IdentityController) AccountReinstate(ctx router.Context) error {
	return a.transition(ctx, a.Lifecycle.ReinstateAccount)
}

func (a *IdentityController) transition(ctx router.Context, apply func(ctx context.Context, actor Actor, id int64, reason string) (*PublicAccount, error)) error {
	actor, ok := GetRouterActor(ctx)
	if !ok {
		return a.ErrorHandler(ctx, ErrUnauthenticated)
	}

	id, err := paramID(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	payload := new(SuspendPayload)
	_ = ctx.Bind(payload)

	account, err := apply(ctx.Context(), actor, id, payload.Reason)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, account)
}

func (a *IdentityController) AuditList(ctx router.Context) error {
	actor, ok := GetRouterActor(ctx)
	if !ok {
		return a.ErrorHandler(ctx, ErrUnauthenticated)
	}

	filter := AuditFilter{
		Role:    ctx.Query("role"),
		Method:  ctx.Query("method"),
		Page:    queryInt(ctx, "page", 1),
		PerPage: queryInt(ctx, "per_page", 25),
	}

	if raw := ctx.Query("account_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filter.AccountID = &id
		}
	}

	if raw := ctx.Query("success"); raw != "" {
		if ok, err := strconv.ParseBool(raw); err == nil {
			filter.Success = &ok
		}
	}

	if since := queryTime(ctx, "since"); since != nil {
		filter.Since = since
	}
	if until := queryTime(ctx, "until"); until != nil {
		filter.Until = until
	}

	result, err := a.Lifecycle.AuditTrail(ctx.Context(), actor, filter)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, result)
}

func (a *IdentityController) AuditStats(ctx router.Context) error {
	actor, ok := GetRouterActor(ctx)
	if !ok {
		return a.ErrorHandler(ctx, ErrUnauthenticated)
	}

	stats, err := a.Lifecycle.AuditStats(ctx.Context(), actor, queryTime(ctx, "since"), queryTime(ctx, "until"))
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, stats)
}

func (a *IdentityController) AuditMine(ctx router.Context) error {
	actor, ok := GetRouterActor(ctx)
	if !ok {
		return a.ErrorHandler(ctx, ErrUnauthenticated)
	}

	entries, err := a.Lifecycle.MyRecentLogins(ctx.Context(), actor, queryInt(ctx, "limit", 10))
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, entries)
}

func (a *IdentityController) AuditAccountLogins(ctx router.Context) error {
	actor, ok := GetRouterActor(ctx)
	if !ok {
		return a.ErrorHandler(ctx, ErrUnauthenticated)
	}

	id, err := paramID(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	entries, err := a.Lifecycle.RecentLoginsForAccount(ctx.Context(), actor, id, queryInt(ctx, "limit", 10))
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, entries)
}

func paramID(ctx router.Context) (int64, error) {
	raw := ctx.Param("id", "")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, goerrors.New("invalid account id", goerrors.CategoryBadInput).
			WithCode(router.StatusBadRequest)
	}
	return id, nil
}

func queryInt(ctx router.Context, name string, def int) int {
	raw := ctx.Query(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func queryTime(ctx router.Context, name string) *time.Time {
	raw := ctx.Query(name)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &t
}

func bindError(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse request body").
		WithCode(router.StatusBadRequest)
}

func validationError(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryValidation, "request validation failed").
		WithCode(router.StatusBadRequest)
}

func defaultErrHandler(c router.Context, err error) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		status := richErr.Code
		if status < 400 || status > 599 {
			status = router.StatusInternalServerError
		}

		return c.JSON(status, map[string]any{
			"error": map[string]any{
				"message":   richErr.Message,
				"text_code": richErr.TextCode,
				"category":  richErr.Category,
			},
		})
	}

	return c.JSON(router.StatusInternalServerError, map[string]any{
		"error": map[string]any{
			"message": "internal error",
		},
	})
}
