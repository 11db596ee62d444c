package identity

import (
	"fmt"
	"time"
)

// Logger is the minimal logging surface the package needs. Adapt your
// application logger to it.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

type defLogger struct{}

func (l defLogger) Debug(format string, args ...any) { fmt.Printf("[DBG] "+format+"\n", args...) }
func (l defLogger) Info(format string, args ...any)  { fmt.Printf("[INF] "+format+"\n", args...) }
func (l defLogger) Warn(format string, args ...any)  { fmt.Printf("[WRN] "+format+"\n", args...) }
func (l defLogger) Error(format string, args ...any) { fmt.Printf("[ERR] "+format+"\n", args...) }

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}

// Config provides the runtime configuration for token issuance and password
// hashing.
type Config interface {
	GetAccessSigningKey() string
	GetRefreshSigningKey() string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetTokenIssuer() string
	GetTokenAudience() []string
	GetBcryptCost() int
}

// SimpleConfig is a value implementation of Config for programs that do not
// carry their own configuration layer.
type SimpleConfig struct {
	AccessSigningKey  string
	RefreshSigningKey string
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration
	TokenIssuer       string
	TokenAudience     []string
	BcryptCost        int
}

func (c SimpleConfig) GetAccessSigningKey() string  { return c.AccessSigningKey }
func (c SimpleConfig) GetRefreshSigningKey() string { return c.RefreshSigningKey }
func (c SimpleConfig) GetTokenIssuer() string       { return c.TokenIssuer }
func (c SimpleConfig) GetTokenAudience() []string   { return c.TokenAudience }
func (c SimpleConfig) GetBcryptCost() int           { return c.BcryptCost }

func (c SimpleConfig) GetAccessTokenTTL() time.Duration {
	if c.AccessTokenTTL == 0 {
		return 15 * time.Minute
	}
	return c.AccessTokenTTL
}

func (c SimpleConfig) GetRefreshTokenTTL() time.Duration {
	if c.RefreshTokenTTL == 0 {
		return 7 * 24 * time.Hour
	}
	return c.RefreshTokenTTL
}

// PasswordHasher hashes and verifies password credentials.
type PasswordHasher interface {
	HashPassword(plain string) (string, error)
	ComparePasswordAndHash(plain, hash string) error
}

// CodeGenerator produces one-time verification codes.
type CodeGenerator interface {
	Generate() (string, error)
}
