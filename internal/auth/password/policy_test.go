package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func violationCodes(r Result) []string {
	codes := make([]string, 0, len(r.Violations))
	for _, v := range r.Violations {
		codes = append(codes, v.Code)
	}
	return codes
}

func TestValidateEmptyPassword(t *testing.T) {
	result := Policy{}.Validate("")

	assert.False(t, result.Valid)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, ViolationRequired, result.Violations[0].Code)
}

func TestValidateLengthBounds(t *testing.T) {
	tests := []struct {
		name     string
		password string
		code     string
	}{
		{"one char", "a", ViolationTooShort},
		{"seven chars", "abcdefg", ViolationTooShort},
		{"129 chars", strings.Repeat("a", 129), ViolationTooLong},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := Policy{}.Validate(tc.password)
			assert.False(t, result.Valid)
			assert.Contains(t, violationCodes(result), tc.code)
		})
	}

	assert.True(t, Policy{}.Validate(strings.Repeat("a", 8)+"Z").Valid)
	assert.True(t, Policy{}.Validate(strings.Repeat("ab", 64)).Valid)
}

func TestValidateAllNumericFlaggedRegardlessOfLength(t *testing.T) {
	for _, pw := range []string{"123", "12345678901234567890"} {
		result := Policy{}.Validate(pw)
		assert.False(t, result.Valid, pw)
		assert.Contains(t, violationCodes(result), ViolationAllNumeric, pw)
	}
}

func TestValidateAccumulatesViolations(t *testing.T) {
	// Short, all-numeric: both violations must be present at once.
	result := Policy{}.Validate("123")

	assert.False(t, result.Valid)
	codes := violationCodes(result)
	assert.Contains(t, codes, ViolationTooShort)
	assert.Contains(t, codes, ViolationAllNumeric)
	assert.GreaterOrEqual(t, len(codes), 2)
}

func TestValidateCommonPasswordCaseInsensitive(t *testing.T) {
	for _, pw := range []string{"password", "PASSWORD", "Password123"} {
		result := Policy{}.Validate(pw)
		assert.False(t, result.Valid, pw)
		assert.Contains(t, violationCodes(result), ViolationCommon, pw)
	}
}

func TestValidateExtraDenyList(t *testing.T) {
	policy := Policy{Extra: []string{"CampusRocks1"}}

	result := policy.Validate("campusrocks1")
	assert.False(t, result.Valid)
	assert.Contains(t, violationCodes(result), ViolationCommon)

	assert.True(t, Policy{}.Validate("campusrocks1").Valid)
}

func TestValidateStrongPassword(t *testing.T) {
	result := Policy{}.Validate("Str0ngPass!")

	assert.True(t, result.Valid)
	assert.Empty(t, result.Violations)
}

func TestHashAndVerify(t *testing.T) {
	hash, err := Hash("Str0ngPass!")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))

	assert.True(t, Verify("Str0ngPass!", hash))
	assert.False(t, Verify("wrong-password", hash))
	assert.False(t, Verify("Str0ngPass!", "not-a-hash"))
}

func TestIsReuse(t *testing.T) {
	hash, err := Hash("OldPass123!")
	require.NoError(t, err)

	assert.True(t, IsReuse("OldPass123!", hash))
	assert.False(t, IsReuse("NewPass123!", hash))
	assert.False(t, IsReuse("anything", ""))
}
