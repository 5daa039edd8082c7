package auth

import (
	"fmt"
	"strings"
	"unicode"

	apperrors "github.com/capitalcompass/tradedesk/pkg/errors"
)

// passwordSymbols is the punctuation set accepted as the symbol class.
const passwordSymbols = "!@#$%^&*()-_=+[]{};:'\",.<>/?\\|`~"

// PasswordPolicy validates password strength. All configured rules must pass;
// Validate reports the first unmet rule so the check is deterministic.
type PasswordPolicy struct {
	MinLength     int
	RequireUpper  bool
	RequireLower  bool
	RequireDigit  bool
	RequireSymbol bool
}

// DefaultPasswordPolicy returns the policy enforced for registrations and
// password resets.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:     8,
		RequireUpper:  true,
		RequireLower:  true,
		RequireDigit:  true,
		RequireSymbol: true,
	}
}

// Validate checks the supplied plaintext against the policy. The returned
// error is client-safe and carries a 400 status.
func (p PasswordPolicy) Validate(password string) error {
	minLength := p.MinLength
	if minLength <= 0 {
		minLength = 8
	}

	if len(password) < minLength {
		return apperrors.NewBadRequest(fmt.Sprintf("password must be at least %d characters long", minLength))
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(passwordSymbols, r):
			hasSymbol = true
		}
	}

	if p.RequireUpper && !hasUpper {
		return apperrors.NewBadRequest("password must contain at least one uppercase letter")
	}
	if p.RequireLower && !hasLower {
		return apperrors.NewBadRequest("password must contain at least one lowercase letter")
	}
	if p.RequireDigit && !hasDigit {
		return apperrors.NewBadRequest("password must contain at least one digit")
	}
	if p.RequireSymbol && !hasSymbol {
		return apperrors.NewBadRequest("password must contain at least one symbol")
	}

	return nil
}
