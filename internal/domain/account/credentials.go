package account

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"

	"github.com/medvault/medvault/internal/platform/apperr"
)

const (
	passwordAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	// GeneratedPasswordLength is used by approval and direct account creation.
	GeneratedPasswordLength = 8

	DefaultMaxUsernameProbes = 1000

	fallbackUsernameBase = "user"
)

// UsernameChecker is the slice of Repository the generator needs.
type UsernameChecker interface {
	UsernameExists(ctx context.Context, username string) (bool, error)
}

// CredentialGenerator produces usernames unique against existing accounts and
// random alphanumeric passwords.
type CredentialGenerator struct {
	accounts  UsernameChecker
	maxProbes int
	rand      io.Reader
}

func NewCredentialGenerator(accounts UsernameChecker, maxProbes int) *CredentialGenerator {
	if maxProbes <= 0 {
		maxProbes = DefaultMaxUsernameProbes
	}
	return &CredentialGenerator{accounts: accounts, maxProbes: maxProbes, rand: rand.Reader}
}

// UsernameBase lower-cases first+last and drops everything outside [a-z0-9].
func UsernameBase(firstName, lastName string) string {
	s := strings.ToLower(firstName + lastName)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return fallbackUsernameBase
	}
	return b.String()
}

// GenerateUsername returns the base itself when free, otherwise the first of
// base1, base2, ... that is free. It gives up with ErrConflict after
// maxProbes suffixes. The check is not race-free; the account_username_key
// constraint is the final arbiter.
func (g *CredentialGenerator) GenerateUsername(ctx context.Context, firstName, lastName string) (string, error) {
	base := UsernameBase(firstName, lastName)

	candidate := base
	for i := 0; i <= g.maxProbes; i++ {
		if i > 0 {
			candidate = base + strconv.Itoa(i)
		}
		taken, err := g.accounts.UsernameExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check username %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: no free username for base %q after %d attempts", apperr.ErrConflict, base, g.maxProbes)
}

// GeneratePassword returns length characters drawn uniformly from the
// 62-character alphanumeric set.
func (g *CredentialGenerator) GeneratePassword(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("%w: password length must be positive", apperr.ErrValidation)
	}
	max := big.NewInt(int64(len(passwordAlphabet)))
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(g.rand, max)
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		buf[i] = passwordAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// GeneratePasswordBetween picks a random length in [min, max] first.
func (g *CredentialGenerator) GeneratePasswordBetween(min, max int) (string, error) {
	if min <= 0 || max < min {
		return "", fmt.Errorf("%w: invalid password length range %d-%d", apperr.ErrValidation, min, max)
	}
	n, err := rand.Int(g.rand, big.NewInt(int64(max-min+1)))
	if err != nil {
		return "", fmt.Errorf("generate password length: %w", err)
	}
	return g.GeneratePassword(min + int(n.Int64()))
}
