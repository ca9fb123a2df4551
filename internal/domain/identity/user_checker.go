package identity

import (
	"github.com/partdb/backend/internal/domain/shared"
)

// ErrUserDisabled is returned when a disabled account tries to log in
var ErrUserDisabled = shared.NewDomainError("USER_DISABLED", "Your user account is disabled")

// CheckPreAuth verifies that the account may attempt to log in at all
func CheckPreAuth(u *User) error {
	if u == nil {
		return shared.ErrUnauthorized
	}
	if u.Disabled {
		return ErrUserDisabled
	}
	if u.IsAnonymous() {
		return shared.NewDomainError("USER_DISABLED", "The anonymous user cannot log in")
	}
	return nil
}
