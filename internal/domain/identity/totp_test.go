package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partdb/backend/internal/domain/shared"
)

// RFC 6238 appendix B, SHA1 key "12345678901234567890"
const rfcSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func TestTOTPCode_ReferenceVectors(t *testing.T) {
	cases := []struct {
		unix int64
		code string
	}{
		{59, "287082"},
		{1111111109, "081804"},
		{1234567890, "005924"},
		{2000000000, "279037"},
	}
	for _, tc := range cases {
		code, err := TOTPCode(rfcSecret, time.Unix(tc.unix, 0))
		require.NoError(t, err)
		assert.Equal(t, tc.code, code, "t=%d", tc.unix)
	}
}

func TestVerifyTOTP(t *testing.T) {
	now := time.Unix(1111111109, 0)

	assert.True(t, VerifyTOTP(rfcSecret, "081804", now))
	assert.True(t, VerifyTOTP(rfcSecret, "081804", now.Add(30*time.Second)), "one step of skew is accepted")
	assert.False(t, VerifyTOTP(rfcSecret, "081804", now.Add(90*time.Second)))
	assert.False(t, VerifyTOTP(rfcSecret, "123", now))
	assert.False(t, VerifyTOTP("not base32!", "081804", now))
}

func TestNewTOTPKey(t *testing.T) {
	a, err := NewTOTPKey("Part-DB", "alice")
	require.NoError(t, err)
	b, err := NewTOTPKey("Part-DB", "alice")
	require.NoError(t, err)

	assert.Len(t, a.Secret, 32)
	assert.NotEqual(t, a.Secret, b.Secret)
	assert.Contains(t, a.URI, "otpauth://totp/Part-DB:alice?")
	assert.Contains(t, a.URI, "secret="+a.Secret)
	assert.Contains(t, a.URI, "issuer=Part-DB")
	assert.Contains(t, a.URI, "period=30")

	now := time.Now()
	code, err := TOTPCode(a.Secret, now)
	require.NoError(t, err)
	assert.True(t, VerifyTOTP(a.Secret, code, now))
}

func TestTOTPCode_MalformedSecret(t *testing.T) {
	_, err := TOTPCode("not base32!", time.Now())
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "INVALID_TOTP_SECRET", de.Code)
}

func TestUser_GoogleAuthenticator(t *testing.T) {
	u, err := NewUser("alice", "secret123")
	require.NoError(t, err)
	now := time.Unix(1111111109, 0)

	assert.ErrorIs(t, u.EnableGoogleAuthenticator(rfcSecret, "000000", now), ErrInvalidTOTPCode)
	assert.False(t, u.IsTFAEnabled())

	require.NoError(t, u.EnableGoogleAuthenticator(rfcSecret, "081804", now))
	assert.True(t, u.IsTFAEnabled())
	assert.Error(t, u.EnableGoogleAuthenticator(rfcSecret, "081804", now))

	assert.True(t, u.CheckSecondFactor("081804", now))
	assert.False(t, u.CheckSecondFactor("999999", now))

	u.DisableGoogleAuthenticator()
	assert.False(t, u.IsGoogleAuthenticatorEnabled())
}

func TestUser_CheckSecondFactor_BackupCode(t *testing.T) {
	u, err := NewUser("bob", "secret123")
	require.NoError(t, err)
	u.SetBackupCodes([]string{"aaaa1111", "bbbb2222"})

	assert.True(t, u.CheckSecondFactor("aaaa1111", time.Now()))
	assert.False(t, u.CheckSecondFactor("aaaa1111", time.Now()), "backup codes are single use")
	assert.Equal(t, []string{"bbbb2222"}, u.BackupCodes)
}
