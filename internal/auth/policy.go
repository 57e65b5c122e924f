package auth

import (
	"strings"
	"unicode"
)

// StrengthLevel buckets the numeric strength score.
type StrengthLevel string

const (
	StrengthWeak   StrengthLevel = "WEAK"
	StrengthMedium StrengthLevel = "MEDIUM"
	StrengthStrong StrengthLevel = "STRONG"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128

	specialChars = "!@#$%^&*()_+-=[]{}|;:'\",.<>/?`~"
)

// commonPasswords is matched against the lowercased candidate as a substring
// check: any password that merely contains one of these is rejected. The
// source system's validator behaves this way ("Password123!" fails because
// it contains "password") and downstream callers rely on it.
var commonPasswords = []string{
	"password", "123456", "qwerty", "admin", "12345678", "123456789",
}

// PasswordEvaluation is the result of checking one candidate password.
// Validity and strength are independent: an invalid password still gets a
// score, and a valid one can still be WEAK.
type PasswordEvaluation struct {
	Valid         bool          `json:"valid"`
	StrengthScore int           `json:"strengthScore"`
	StrengthLevel StrengthLevel `json:"strengthLevel"`
	Errors        []string      `json:"errors,omitempty"`
}

// EvaluatePassword checks a candidate password against the composition rules
// and scores its strength. All rules are checked; violations accumulate so
// the caller sees every problem at once. The function is pure and never
// fails: a hopeless password is just an evaluation with errors.
func EvaluatePassword(password string) PasswordEvaluation {
	var errs []string

	length := len([]rune(password))
	if length < minPasswordLength {
		errs = append(errs, "password must be at least 8 characters long")
	}
	if length > maxPasswordLength {
		errs = append(errs, "password must be at most 128 characters long")
	}

	var hasUpper, hasLower, hasDigit, hasSpecial, hasSpace bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(specialChars, r):
			hasSpecial = true
		}
		if unicode.IsSpace(r) {
			hasSpace = true
		}
	}

	if !hasUpper {
		errs = append(errs, "password must contain at least one uppercase letter")
	}
	if !hasLower {
		errs = append(errs, "password must contain at least one lowercase letter")
	}
	if !hasDigit {
		errs = append(errs, "password must contain at least one digit")
	}
	if !hasSpecial {
		errs = append(errs, "password must contain at least one special character")
	}
	if hasSpace {
		errs = append(errs, "password must not contain whitespace")
	}

	lowered := strings.ToLower(password)
	for _, common := range commonPasswords {
		if strings.Contains(lowered, common) {
			errs = append(errs, "password is too common")
			break
		}
	}

	score := strengthScore(length, hasUpper, hasLower, hasDigit, hasSpecial)

	return PasswordEvaluation{
		Valid:         len(errs) == 0,
		StrengthScore: score,
		StrengthLevel: strengthLevel(score),
		Errors:        errs,
	}
}

func strengthScore(length int, hasUpper, hasLower, hasDigit, hasSpecial bool) int {
	score := 0
	switch {
	case length >= 12:
		score += 3
	case length >= 10:
		score += 2
	case length >= 8:
		score++
	}

	classes := 0
	for _, ok := range []bool{hasUpper, hasLower, hasDigit, hasSpecial} {
		if ok {
			classes++
		}
	}
	score += classes

	if length >= 10 && classes == 4 {
		score += 2
	}
	if score > 10 {
		score = 10
	}
	return score
}

func strengthLevel(score int) StrengthLevel {
	switch {
	case score >= 8:
		return StrengthStrong
	case score >= 5:
		return StrengthMedium
	default:
		return StrengthWeak
	}
}
