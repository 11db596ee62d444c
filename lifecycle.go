package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// Lifecycle orchestrates the credential lifecycle: registration through email
// verification, login, token rotation, password reset, and the audit trail.
type Lifecycle struct {
	repo     RepositoryManager
	tokens   TokenService
	hasher   PasswordHasher
	codes    CodeGenerator
	codeTTL  time.Duration
	states   AccountStateMachine
	notifier Notifier
	auditor  LoginAuditor
	logger   Logger
	now      func() time.Time
}

// NewLifecycle wires the orchestrator with default collaborators. Use the
// With* methods to replace any of them.
func NewLifecycle(repo RepositoryManager, tokens TokenService, config Config) *Lifecycle {
	return &Lifecycle{
		repo:     repo,
		tokens:   tokens,
		hasher:   NewBcryptHasher(config.GetBcryptCost()),
		codes:    NumericCodeGenerator{},
		codeTTL:  DefaultCodeTTL,
		states:   NewAccountStateMachine(repo.Accounts()),
		notifier: noopNotifier{},
		auditor:  noopAuditor{},
		logger:   defLogger{},
		now:      time.Now,
	}
}

// WithHasher replaces the password hasher.
func (l *Lifecycle) WithHasher(h PasswordHasher) *Lifecycle {
	if h != nil {
		l.hasher = h
	}
	return l
}

// WithCodeGenerator replaces the one-time code source.
func (l *Lifecycle) WithCodeGenerator(g CodeGenerator) *Lifecycle {
	if g != nil {
		l.codes = g
	}
	return l
}

// WithCodeTTL overrides the validity window for issued codes.
func (l *Lifecycle) WithCodeTTL(ttl time.Duration) *Lifecycle {
	if ttl > 0 {
		l.codeTTL = ttl
	}
	return l
}

// WithStateMachine replaces the account state machine.
func (l *Lifecycle) WithStateMachine(sm AccountStateMachine) *Lifecycle {
	if sm != nil {
		l.states = sm
	}
	return l
}

// WithNotifier sets the message delivery channel.
func (l *Lifecycle) WithNotifier(n Notifier) *Lifecycle {
	l.notifier = normalizeNotifier(n)
	return l
}

// WithAuditor sets the login auditor.
func (l *Lifecycle) WithAuditor(a LoginAuditor) *Lifecycle {
	l.auditor = normalizeAuditor(a)
	return l
}

// WithLogger sets the logger.
func (l *Lifecycle) WithLogger(logger Logger) *Lifecycle {
	l.logger = normalizeLogger(logger)
	return l
}

// WithClock overrides the time source, used in tests.
func (l *Lifecycle) WithClock(now func() time.Time) *Lifecycle {
	if now != nil {
		l.now = now
	}
	return l
}

// requireRole gates an operation on the acting account's role.
func (l *Lifecycle) requireRole(actor Actor, min AccountRole) error {
	if actor.AccountID == 0 {
		return ErrUnauthenticated
	}
	if !RoleAtLeast(actor.Role, min) {
		return ErrInsufficientRole.WithMetadata(map[string]any{
			"required": min,
			"actual":   actor.Role,
		})
	}
	return nil
}

// dispatch runs a notification off the request path. Delivery failures are
// logged; they never fail the operation that triggered them.
func (l *Lifecycle) dispatch(name string, send func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := send(ctx); err != nil {
			l.logger.Warn("notification %s failed: %v", name, err)
		}
	}()
}

func asRichError(err error, fallback string) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, fallback)
}
