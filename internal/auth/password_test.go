package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Cost 4 is bcrypt's minimum; it keeps the account tests fast.
func newTestPasswordService() *PasswordService {
	return NewPasswordServiceForTest(4)
}

// =========================================================================
// HASH / VERIFY
// =========================================================================

func TestHashVerify(t *testing.T) {
	ps := newTestPasswordService()

	passwords := map[string]string{
		"kitchen phrase":   "Sourdough-Starter-2024",
		"symbols":          "p@$$ta&Pesto!",
		"cyrillic":         "борщ-со-сметаной",
		"inner whitespace": "  salt and pepper  ",
		"exactly 72 bytes": strings.Repeat("r", 72),
	}

	for name, pw := range passwords {
		t.Run(name, func(t *testing.T) {
			hash, err := ps.Hash(pw)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(hash, "$2"), "bcrypt hash expected, got %q", hash)
			assert.NotContains(t, hash, pw)

			assert.NoError(t, ps.Verify(hash, pw))
		})
	}
}

// Each hash carries its own salt, so two accounts with the same password
// never share a stored hash.
func TestHash_SaltedPerCall(t *testing.T) {
	ps := newTestPasswordService()

	first, err := ps.Hash("Lemon-Tart-Recipe")
	require.NoError(t, err)
	second, err := ps.Hash("Lemon-Tart-Recipe")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

// bcrypt would silently drop everything past 72 bytes.
func TestHash_RejectsOverlongPassword(t *testing.T) {
	_, err := newTestPasswordService().Hash(strings.Repeat("r", 73))
	assert.ErrorContains(t, err, "72 bytes")
}

func TestVerify_Rejects(t *testing.T) {
	ps := newTestPasswordService()
	hash, err := ps.Hash("Ratatouille-Night-7")
	require.NoError(t, err)

	tests := []struct {
		name      string
		hash      string
		plaintext string
	}{
		{"wrong password", hash, "Ratatouille-Night-8"},
		{"different case", hash, "ratatouille-night-7"},
		{"empty password", hash, ""},
		{"account without a password hash", "", "Ratatouille-Night-7"},
		{"corrupt hash", "not-a-bcrypt-hash", "Ratatouille-Night-7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, ps.Verify(tt.hash, tt.plaintext))
		})
	}
}

// =========================================================================
// STRENGTH
// =========================================================================

func TestCheckStrength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantOK   bool
	}{
		{"kitchen phrase", "Correct-Horse-42-Battery", true},
		{"mixed case with symbols", "Sup3r$ecretPass", true},
		{"cyrillic phrase", "Пельмени-по-Субботам-9", true},
		{"too short", "Ab1!", false},
		{"all digits", "1234567890123456", false},
		{"low entropy", "aaaaaaaaaa", false},
		{"common word", "password", false},
		{"over bcrypt limit", strings.Repeat("Ab1!", 19), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problems := CheckStrength(tt.password)
			if tt.wantOK {
				assert.Empty(t, problems)
			} else {
				assert.NotEmpty(t, problems)
			}
		})
	}
}

// Every password CheckStrength accepts must also be hashable, otherwise
// registration could pass validation and then fail to store the account.
func TestCheckStrength_AcceptedPasswordsHash(t *testing.T) {
	ps := newTestPasswordService()

	for _, pw := range []string{"Correct-Horse-42-Battery", strings.Repeat("Ab1!", 18)} {
		require.Empty(t, CheckStrength(pw), pw)
		_, err := ps.Hash(pw)
		assert.NoError(t, err, pw)
	}
}

func TestCheckStrength_ReportsEveryLengthProblem(t *testing.T) {
	problems := CheckStrength("12")

	assert.Len(t, problems, 2)
	assert.Contains(t, strings.Join(problems, "\n"), "at least 8 characters")
	assert.Contains(t, strings.Join(problems, "\n"), "entirely numeric")
}
