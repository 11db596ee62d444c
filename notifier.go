package identity

import "context"

// VerificationMessage carries everything a delivery channel needs to send a
// one-time code.
type VerificationMessage struct {
	Email     string
	FirstName string
	LastName  string
	Code      string
}

// WelcomeMessage is sent after an email is verified.
type WelcomeMessage struct {
	Email     string
	FirstName string
	LastName  string
	Role      AccountRole
}

// Notifier delivers account messages. Implementations talk to mail providers
// or message queues; the lifecycle only knows this interface.
type Notifier interface {
	NotifyVerificationCode(ctx context.Context, msg VerificationMessage) error
	NotifyPasswordResetCode(ctx context.Context, msg VerificationMessage) error
	NotifyWelcome(ctx context.Context, msg WelcomeMessage) error
}

// NotifierFunc adapts a single function into a Notifier that routes every
// message kind through it.
type NotifierFunc func(ctx context.Context, kind string, email string, payload any) error

const (
	notifyKindVerification  = "verification_code"
	notifyKindPasswordReset = "password_reset_code"
	notifyKindWelcome       = "welcome"
)

func (f NotifierFunc) NotifyVerificationCode(ctx context.Context, msg VerificationMessage) error {
	if f == nil {
		return nil
	}
	return f(ctx, notifyKindVerification, msg.Email, msg)
}

func (f NotifierFunc) NotifyPasswordResetCode(ctx context.Context, msg VerificationMessage) error {
	if f == nil {
		return nil
	}
	return f(ctx, notifyKindPasswordReset, msg.Email, msg)
}

func (f NotifierFunc) NotifyWelcome(ctx context.Context, msg WelcomeMessage) error {
	if f == nil {
		return nil
	}
	return f(ctx, notifyKindWelcome, msg.Email, msg)
}

type noopNotifier struct{}

func (noopNotifier) NotifyVerificationCode(context.Context, VerificationMessage) error { return nil }
func (noopNotifier) NotifyPasswordResetCode(context.Context, VerificationMessage) error {
	return nil
}
func (noopNotifier) NotifyWelcome(context.Context, WelcomeMessage) error { return nil }

func normalizeNotifier(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}
