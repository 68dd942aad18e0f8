package validate

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/types"
)

// PasswordPolicy is the rule set for a new password.
type PasswordPolicy struct {
	MinLength      int
	RequireDigit   bool
	RequireUpper   bool
	RequireLower   bool
	RequireSpecial bool
}

var (
	DefaultPasswordPolicy = PasswordPolicy{MinLength: 8, RequireDigit: true, RequireUpper: true}

	StrictPasswordPolicy = PasswordPolicy{
		MinLength:      8,
		RequireDigit:   true,
		RequireUpper:   true,
		RequireLower:   true,
		RequireSpecial: true,
	}
)

const specialChars = `!@#$%^&*()_+-=[]{};':"\|,.<>/?`

// Check returns the policy messages pw fails, in a fixed order.
func (p PasswordPolicy) Check(pw string) []string {
	var digit, upper, lower, special bool
	for _, r := range pw {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case strings.ContainsRune(specialChars, r):
			special = true
		}
	}

	var out []string
	if utf8.RuneCountInString(pw) < p.MinLength {
		out = append(out, "too short")
	}
	if p.RequireDigit && !digit {
		out = append(out, "missing digit")
	}
	if p.RequireUpper && !upper {
		out = append(out, "missing uppercase")
	}
	if p.RequireLower && !lower {
		out = append(out, "missing lowercase")
	}
	if p.RequireSpecial && !special {
		out = append(out, "missing special character")
	}
	return out
}

// Rule validates field against the policy.
func (p PasswordPolicy) Rule(field string) Rule {
	return func(e types.Entity) []types.Violation {
		v, _ := e.Get(field)
		pw, ok := v.(string)
		if !ok {
			return violation(field, "is required")
		}
		var out []types.Violation
		for _, m := range p.Check(pw) {
			out = append(out, types.Violation{Field: field, Message: m})
		}
		return out
	}
}
