package auth

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/mkovardin/fleetwatch/internal/apperrors"
)

const minPasswordLen = 12

// ValidatePassword checks the registration password policy:
// at least 12 characters, at least three different character classes,
// and the company name must not appear in the password (case-insensitive).
func ValidatePassword(password string, companyName string) error {
	if len(password) < minPasswordLen {
		return fmt.Errorf("password must be at least %d characters: %w", minPasswordLen, apperrors.ErrPasswordPolicy)
	}

	var hasUpper, hasLower, hasDigit, hasOther bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasOther = true
		}
	}

	classes := 0
	for _, ok := range []bool{hasUpper, hasLower, hasDigit, hasOther} {
		if ok {
			classes++
		}
	}
	if classes < 3 {
		return fmt.Errorf("password must mix at least three character classes: %w", apperrors.ErrPasswordPolicy)
	}

	if companyName != "" && strings.Contains(strings.ToLower(password), strings.ToLower(companyName)) {
		return fmt.Errorf("password must not contain the company name: %w", apperrors.ErrPasswordPolicy)
	}

	return nil
}
