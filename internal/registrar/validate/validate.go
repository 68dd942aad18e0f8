// Package validate turns a candidate entity into a list of field-level
// violations.  Validators are pure: no I/O, no panics, same input same
// output.  A value of the wrong type is a violation, not an error.
package validate

import (
	"fmt"
	"net/mail"
	"reflect"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/types"
)

type Validator interface {
	Validate(e types.Entity) []types.Violation
}

// Rule checks one aspect of an entity.
type Rule func(e types.Entity) []types.Violation

func (r Rule) Validate(e types.Entity) []types.Violation { return r(e) }

// Rules runs every rule in order and concatenates the violations.
type Rules []Rule

func (rs Rules) Validate(e types.Entity) []types.Violation {
	var out []types.Violation
	for _, r := range rs {
		out = append(out, r(e)...)
	}
	return out
}

// Func adapts any validator into a Rule.
func Func(v Validator) Rule {
	return func(e types.Entity) []types.Violation { return v.Validate(e) }
}

func violation(field, format string, args ...any) []types.Violation {
	return []types.Violation{{Field: field, Message: fmt.Sprintf(format, args...)}}
}

// stringField returns the trimmed string value.  present is false for a
// missing, nil or blank field; ok is false when the value is not a string.
func stringField(e types.Entity, name string) (s string, present, ok bool) {
	v, exists := e.Get(name)
	if !exists || v == nil {
		return "", false, true
	}
	s, ok = v.(string)
	if !ok {
		return "", true, false
	}
	s = strings.TrimSpace(s)
	return s, s != "", true
}

// Required reports each field that is missing, nil or a blank string.
func Required(fields ...string) Rule {
	return func(e types.Entity) []types.Violation {
		var out []types.Violation
		for _, f := range fields {
			v, ok := e.Get(f)
			if !ok || v == nil {
				out = append(out, types.Violation{Field: f, Message: "is required"})
				continue
			}
			if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
				out = append(out, types.Violation{Field: f, Message: "is required"})
			}
		}
		return out
	}
}

// Date checks that a present field parses with layout.
func Date(field, layout string) Rule {
	return func(e types.Entity) []types.Violation {
		s, present, ok := stringField(e, field)
		if !ok {
			return violation(field, "must be a date (%s)", layout)
		}
		if !present {
			return nil
		}
		if _, err := time.Parse(layout, s); err != nil {
			return violation(field, "must be a date (%s)", layout)
		}
		return nil
	}
}

var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 ()\-]{5,18}[0-9]$`)

func Phone(field string) Rule {
	return func(e types.Entity) []types.Violation {
		s, present, ok := stringField(e, field)
		if !ok || (present && !phonePattern.MatchString(s)) {
			return violation(field, "must be a phone number")
		}
		return nil
	}
}

func Email(field string) Rule {
	return func(e types.Entity) []types.Violation {
		s, present, ok := stringField(e, field)
		if !ok {
			return violation(field, "must be an email address")
		}
		if !present {
			return nil
		}
		addr, err := mail.ParseAddress(s)
		if err != nil || addr.Address != s {
			return violation(field, "must be an email address")
		}
		return nil
	}
}

func OneOf(field string, allowed ...string) Rule {
	return func(e types.Entity) []types.Violation {
		s, present, ok := stringField(e, field)
		if ok && !present {
			return nil
		}
		if ok {
			for _, a := range allowed {
				if s == a {
					return nil
				}
			}
		}
		return violation(field, "must be one of %s", strings.Join(allowed, ", "))
	}
}

func MaxLength(field string, n int) Rule {
	return func(e types.Entity) []types.Violation {
		s, _, ok := stringField(e, field)
		if !ok {
			return violation(field, "must be text")
		}
		if utf8.RuneCountInString(s) > n {
			return violation(field, "must be at most %d characters", n)
		}
		return nil
	}
}

// Bool checks that a present field is a boolean.
func Bool(field string) Rule {
	return func(e types.Entity) []types.Violation {
		v, ok := e.Get(field)
		if !ok || v == nil {
			return nil
		}
		if _, isBool := v.(bool); !isBool {
			return violation(field, "must be true or false")
		}
		return nil
	}
}

// Matches requires field to equal other, as in a confirm-password box.
func Matches(field, other string) Rule {
	return func(e types.Entity) []types.Violation {
		a, _ := e.Get(field)
		b, _ := e.Get(other)
		if !reflect.DeepEqual(a, b) {
			return violation(field, "does not match %s", other)
		}
		return nil
	}
}

// ImmutableID rejects a candidate whose id differs from the loaded original.
func ImmutableID(originalID string) Rule {
	return func(e types.Entity) []types.Violation {
		if e.ID != originalID {
			return violation("id", "cannot be changed")
		}
		return nil
	}
}
