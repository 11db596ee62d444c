package identity

import "github.com/google/uuid"

// newTokenID gives every issued token a unique jti so two tokens minted in
// the same second for the same account still differ.
func newTokenID() string {
	return uuid.NewString()
}
