package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluatePassword_LengthBounds(t *testing.T) {
	for _, password := range []string{"", "a", "Ab1!xyz"} {
		result := EvaluatePassword(password)
		assert.False(t, result.Valid, "password %q should be invalid", password)
		assert.Contains(t, result.Errors, "password must be at least 8 characters long")
	}

	long := "Ab1!" + strings.Repeat("x", 130)
	result := EvaluatePassword(long)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors, "password must be at most 128 characters long")
}

func TestEvaluatePassword_CharacterClasses(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  string
	}{
		{"missing uppercase", "lowercase1!x", "password must contain at least one uppercase letter"},
		{"missing lowercase", "UPPERCASE1!X", "password must contain at least one lowercase letter"},
		{"missing digit", "NoDigitsHere!", "password must contain at least one digit"},
		{"missing special", "NoSpecial1234", "password must contain at least one special character"},
		{"contains whitespace", "Has Space1!x", "password must not contain whitespace"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := EvaluatePassword(tc.password)
			assert.False(t, result.Valid)
			assert.Contains(t, result.Errors, tc.wantErr)
		})
	}
}

func TestEvaluatePassword_ViolationsAccumulate(t *testing.T) {
	// One terrible password should surface every violation at once.
	result := EvaluatePassword("abc")
	require.False(t, result.Valid)
	assert.GreaterOrEqual(t, len(result.Errors), 4)
}

func TestEvaluatePassword_CommonPasswords(t *testing.T) {
	for _, password := range []string{"password", "123456", "qwerty", "admin", "12345678", "123456789"} {
		result := EvaluatePassword(password)
		assert.False(t, result.Valid, "denylisted password %q accepted", password)
		assert.Contains(t, result.Errors, "password is too common")
	}
}

func TestEvaluatePassword_CommonMatchIsSubstring(t *testing.T) {
	// The denylist matches as a case-insensitive substring: a password that
	// merely contains "password" is rejected even when every composition
	// rule is satisfied. Callers depend on this exact behavior.
	result := EvaluatePassword("Password123!")
	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors, "password is too common")

	result = EvaluatePassword("MyQwertyKey7$")
	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors, "password is too common")
}

func TestEvaluatePassword_StrongPassword(t *testing.T) {
	result := EvaluatePassword("StrongPass123!")
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	assert.GreaterOrEqual(t, result.StrengthScore, 8)
	assert.Equal(t, StrengthStrong, result.StrengthLevel)
}

func TestEvaluatePassword_StrengthScoring(t *testing.T) {
	tests := []struct {
		name      string
		password  string
		wantScore int
		wantLevel StrengthLevel
	}{
		// 8 chars, all four classes: 1 + 4, no all-class bonus below 10.
		{"short but mixed", "Ab1!wxyz", 5, StrengthMedium},
		// 10 chars, all four classes: 2 + 4 + 2.
		{"ten chars mixed", "Ab1!wxyzuv", 8, StrengthStrong},
		// 12+ chars, all four classes: 3 + 4 + 2.
		{"long mixed", "Ab1!wxyzuvst", 9, StrengthStrong},
		// Lowercase only: no length bonus under 8, one class.
		{"weak lowercase", "abcdefg", 1, StrengthWeak},
		// 12 lowercase: 3 + 1.
		{"long lowercase", "abcdefghijkl", 4, StrengthWeak},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := EvaluatePassword(tc.password)
			assert.Equal(t, tc.wantScore, result.StrengthScore)
			assert.Equal(t, tc.wantLevel, result.StrengthLevel)
		})
	}
}

func TestEvaluatePassword_ScoreIndependentOfValidity(t *testing.T) {
	// Invalid passwords still get scored.
	result := EvaluatePassword("Password123!")
	assert.False(t, result.Valid)
	assert.Greater(t, result.StrengthScore, 0)
}

func TestEvaluatePassword_ScoreCap(t *testing.T) {
	result := EvaluatePassword("Ab1!" + strings.Repeat("Xy9$", 10))
	assert.LessOrEqual(t, result.StrengthScore, 10)
}
