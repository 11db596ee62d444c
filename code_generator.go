package identity

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// DefaultCodeTTL is the validity window of a verification code.
const DefaultCodeTTL = 15 * time.Minute

// codeSpan covers 100000..999999 so codes always render as six digits.
var codeSpan = big.NewInt(900000)

// NumericCodeGenerator produces six-digit one-time codes from crypto/rand.
type NumericCodeGenerator struct{}

// Generate returns a uniformly distributed six-digit code.
func (NumericCodeGenerator) Generate() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpan)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
