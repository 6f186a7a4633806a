package auth

import "strings"

const passwordSymbols = "!@#$%^&*()_+-=[]{};':\"\\|,.<>/?"

// CheckPasswordStrength returns the list of unmet rules, in a fixed
// order. An empty slice means the password is acceptable.
func CheckPasswordStrength(password string) []string {
	var errs []string

	if len(password) < 8 {
		errs = append(errs, "Password must be at least 8 characters long")
	}
	if !strings.ContainsFunc(password, func(r rune) bool { return r >= 'A' && r <= 'Z' }) {
		errs = append(errs, "Password must contain at least one uppercase letter")
	}
	if !strings.ContainsFunc(password, func(r rune) bool { return r >= 'a' && r <= 'z' }) {
		errs = append(errs, "Password must contain at least one lowercase letter")
	}
	if !strings.ContainsFunc(password, func(r rune) bool { return r >= '0' && r <= '9' }) {
		errs = append(errs, "Password must contain at least one number")
	}
	if !strings.ContainsAny(password, passwordSymbols) {
		errs = append(errs, "Password must contain at least one special character (!@#$%^&*...)")
	}

	return errs
}

// PasswordStrengthMessage joins the unmet rules into the single
// message shown next to the form.
func PasswordStrengthMessage(password string) (string, bool) {
	errs := CheckPasswordStrength(password)
	if len(errs) == 0 {
		return "", true
	}
	return strings.Join(errs, ". "), false
}
