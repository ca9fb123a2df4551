package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	u, err := NewUser("  alice ", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.True(t, u.HasPassword())
	assert.True(t, u.VerifyPassword("secret123"))
	assert.False(t, u.VerifyPassword("wrong"))
	assert.NotNil(t, u.PasswordChangedAt)

	_, err = NewUser("bad name", "")
	assert.Error(t, err)

	_, err = NewUser("bob", "123")
	assert.Error(t, err)

	nopw, err := NewUser("carol", "")
	require.NoError(t, err)
	assert.False(t, nopw.HasPassword())
	assert.False(t, nopw.VerifyPassword(""))
}

func TestUser_ChangePassword(t *testing.T) {
	u, err := NewUser("alice", "secret123")
	require.NoError(t, err)
	u.NeedPwChange = true

	assert.Error(t, u.ChangePassword("nope", "another1"))
	require.NoError(t, u.ChangePassword("secret123", "another1"))
	assert.True(t, u.VerifyPassword("another1"))
	assert.False(t, u.NeedPwChange)
}

func TestUser_Validate_Email(t *testing.T) {
	u := &User{Username: "alice", Email: "not-an-email"}
	assert.Error(t, u.Validate())
	u.Email = "alice@example.com"
	assert.NoError(t, u.Validate())
}

func TestUser_FullNameAndAnonymous(t *testing.T) {
	u := &User{Username: "alice"}
	assert.Equal(t, "alice", u.FullName())
	u.FirstName, u.LastName = "Alice", "Smith"
	assert.Equal(t, "Alice Smith", u.FullName())
	assert.False(t, u.IsAnonymous())
	assert.True(t, (&User{Username: AnonymousUsername}).IsAnonymous())
}

func TestUser_UseBackupCode(t *testing.T) {
	u := &User{Username: "alice"}
	u.SetBackupCodes([]string{"aaaa1111", "bbbb2222"})
	require.NotNil(t, u.BackupCodesGenerationDate)

	assert.False(t, u.UseBackupCode("cccc3333"))
	assert.True(t, u.UseBackupCode(" aaaa1111 "))
	assert.False(t, u.UseBackupCode("aaaa1111"))
	assert.Equal(t, []string{"bbbb2222"}, u.BackupCodes)
}

func TestCheckPreAuth(t *testing.T) {
	u := &User{Username: "alice"}
	assert.NoError(t, CheckPreAuth(u))

	u.Disabled = true
	assert.ErrorIs(t, CheckPreAuth(u), ErrUserDisabled)

	assert.Error(t, CheckPreAuth(&User{Username: AnonymousUsername}))
}
