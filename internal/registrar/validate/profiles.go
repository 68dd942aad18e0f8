package validate

import "github.com/BrandonDHaskell/Registrar/server/internal/registrar/types"

const DateLayout = "2006-01-02"

// Absence validates a register row: who, which day, present or not.
func Absence() Rules {
	return Rules{
		Required("name", "date", "present"),
		Date("date", DateLayout),
		Bool("present"),
		Email("guardian_email"),
		MaxLength("notes", 500),
	}
}

// PasswordChange validates a change-password form.
func PasswordChange(policy PasswordPolicy) Rules {
	return Rules{
		Required("password", "confirm_password"),
		policy.Rule("password"),
		Matches("confirm_password", "password"),
	}
}

func Tag() Rules {
	return Rules{
		Required("name"),
		MaxLength("name", 40),
		MaxLength("description", 200),
	}
}

// Heritage validates a cultural-heritage record.
func Heritage() Rules {
	return Rules{
		Required("name", "city"),
		MaxLength("name", 120),
		Phone("phone"),
		Email("email"),
	}
}

// ByKind picks a validator from the entity's "kind" field, falling back to
// fallback for unknown or missing kinds.  A nil fallback accepts anything.
func ByKind(kinds map[string]Validator, fallback Validator) Validator {
	return Rule(func(e types.Entity) []types.Violation {
		kind, _ := e.GetString("kind")
		if v, ok := kinds[kind]; ok {
			return v.Validate(e)
		}
		if fallback != nil {
			return fallback.Validate(e)
		}
		return nil
	})
}

// Default is the validator wired into the server: one profile per record
// kind the admin tools manage.
func Default() Validator {
	return ByKind(map[string]Validator{
		"absence":  Absence(),
		"password": PasswordChange(StrictPasswordPolicy),
		"tag":      Tag(),
		"heritage": Heritage(),
	}, nil)
}
