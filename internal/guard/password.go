package guard

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/wyun/codeshare/internal/apperror"
)

// Share passwords are short shared secrets, not account credentials —
// the UI generates or asks for a 4–8 character code that travels with
// the link. The length rule applies to the plaintext; the stored value
// is always a bcrypt hash.
const (
	MinPasswordLength = 4
	MaxPasswordLength = 8
)

// defaultCost is the bcrypt work factor for stored share credentials.
//
// Cost 12 takes roughly 250ms per hash on current server hardware —
// negligible for the rare visibility flip, expensive for anyone
// brute-forcing the 4–8 character space offline.
const defaultCost = 12

// hasher wraps bcrypt so the cost can be lowered in tests (cost 4 turns
// a 250ms operation into microseconds without changing any logic).
type hasher struct {
	cost int
}

// hashPassword validates the plaintext shape and returns its bcrypt hash.
// The hash is self-contained (salt and cost embedded) and goes straight
// into the share record.
func (h hasher) hashPassword(plaintext string) (string, error) {
	// Length counts characters, not bytes — a four-rune CJK password is
	// valid even though it is twelve bytes.
	if n := utf8.RuneCountInString(plaintext); n < MinPasswordLength || n > MaxPasswordLength {
		return "", apperror.ValidationFailed("password",
			fmt.Sprintf("password must be %d-%d characters", MinPasswordLength, MaxPasswordLength))
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("guard: hashing password: %w", err)
	}
	return string(hashed), nil
}

// verifyPassword reports whether plaintext matches the stored hash.
// A malformed stored hash also fails verification — the guard treats an
// unverifiable record as closed. bcrypt compares in constant time, so
// response timing leaks nothing.
func (h hasher) verifyPassword(hash, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
