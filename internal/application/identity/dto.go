package identity

import (
	"strings"
	"time"

	"github.com/partdb/backend/internal/domain/identity"
	"github.com/partdb/backend/internal/domain/shared"
)

// LoginInput contains the input for user login
type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	// TwoFactorCode is a TOTP code or a backup code. Required for users
	// with two factor authentication enabled.
	TwoFactorCode string `json:"two_factor_code"`
	IP            string `json:"-"`
}

// LoginResult contains the result of a successful login
type LoginResult struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`
	User                  UserDTO   `json:"user"`
	// NeedPasswordChange is set when an admin forces a new password
	NeedPasswordChange bool `json:"need_password_change"`
	// TwoFactorSetupRequired is set when a group of the user enforces 2FA
	// and the user has not configured it yet
	TwoFactorSetupRequired bool `json:"two_factor_setup_required"`
}

// RefreshTokenInput contains the input for token refresh
type RefreshTokenInput struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutInput contains the input for user logout
type LogoutInput struct {
	UserID   uint
	TokenJTI string
	TokenTTL time.Duration
	IP       string
}

// ChangePasswordInput contains the input for password change
type ChangePasswordInput struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6,max=72"`
}

// SetPasswordInput is an admin password reset
type SetPasswordInput struct {
	NewPassword        string `json:"new_password" binding:"required,min=6,max=72"`
	NeedPasswordChange bool   `json:"need_password_change"`
}

// EnableTOTPInput confirms a TOTP secret with a code from the authenticator app
type EnableTOTPInput struct {
	Secret string `json:"secret" binding:"required"`
	Code   string `json:"code" binding:"required,len=6,numeric"`
}

// DisableTOTPInput disables TOTP after checking a current code
type DisableTOTPInput struct {
	Code string `json:"code" binding:"required"`
}

// TOTPSetup is a fresh secret to be confirmed by EnableTOTP
type TOTPSetup struct {
	Secret string `json:"secret"`
	URI    string `json:"uri"`
}

// CurrentUserResult contains the current user's information
type CurrentUserResult struct {
	User        UserDTO             `json:"user"`
	Permissions ResolvedPermissions `json:"permissions"`
}

// CreateUserInput contains input for creating a user
type CreateUserInput struct {
	Username   string `json:"name" binding:"required,max=180"`
	Password   string `json:"password" binding:"omitempty,min=6,max=72"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Department string `json:"department"`
	Email      string `json:"email" binding:"omitempty,email"`
	GroupID    *uint  `json:"group_id"`
	Comment    string `json:"change_comment"`
}

// UpdateUserInput contains input for updating a user
type UpdateUserInput struct {
	Username   *string `json:"name" binding:"omitempty,max=180"`
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	Department *string `json:"department"`
	Email      *string `json:"email" binding:"omitempty,email"`
	GroupID    *uint   `json:"group_id"`
	ClearGroup bool    `json:"clear_group"`
	Language   *string `json:"language"`
	Timezone   *string `json:"timezone"`
	Comment    string  `json:"change_comment"`
}

// UserListFilter is the query of the user listing
type UserListFilter struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Search   string `form:"search"`
	GroupID  *uint  `form:"group_id"`
	Disabled *bool  `form:"disabled"`
}

// UserDTO represents user data transfer object
type UserDTO struct {
	ID             uint       `json:"id"`
	Username       string     `json:"name"`
	FullName       string     `json:"full_name"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	Department     string     `json:"department,omitempty"`
	Email          string     `json:"email,omitempty"`
	Disabled       bool       `json:"disabled"`
	NeedPwChange   bool       `json:"need_pw_change"`
	GroupID        *uint      `json:"group_id"`
	TFAEnabled     bool       `json:"tfa_enabled"`
	BackupCodesAt  *time.Time `json:"backup_codes_generation_date,omitempty"`
	BackupCodesCnt int        `json:"backup_codes_remaining"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ToUserDTO converts a user
func ToUserDTO(u *identity.User) UserDTO {
	return UserDTO{
		ID:             u.ID,
		Username:       u.Username,
		FullName:       u.FullName(),
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Department:     u.Department,
		Email:          u.Email,
		Disabled:       u.Disabled,
		NeedPwChange:   u.NeedPwChange,
		GroupID:        u.GroupID,
		TFAEnabled:     u.IsTFAEnabled(),
		BackupCodesAt:  u.BackupCodesGenerationDate,
		BackupCodesCnt: len(u.BackupCodes),
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

// PermissionChange sets one operation (or all operations with "*") of a
// permission. Value is "allow", "disallow" or "inherit".
type PermissionChange struct {
	Permission string `json:"permission" binding:"required"`
	Operation  string `json:"operation"`
	Value      string `json:"value" binding:"required,oneof=allow disallow inherit"`
}

func (c PermissionChange) parseValue() (*bool, error) {
	switch strings.ToLower(c.Value) {
	case "allow":
		return identity.Allow, nil
	case "disallow":
		return identity.Disallow, nil
	case "inherit", "":
		return nil, nil
	}
	return nil, shared.NewDomainError("INVALID_PERMISSION_VALUE", "Permission value must be allow, disallow or inherit")
}

// SetPermissionsInput changes several permissions at once
type SetPermissionsInput struct {
	Changes []PermissionChange `json:"changes" binding:"required,dive"`
	Comment string             `json:"change_comment"`
}

// BackupCodesResult returns freshly generated backup codes. They are shown once.
type BackupCodesResult struct {
	Codes       []string  `json:"codes"`
	GeneratedAt time.Time `json:"generated_at"`
}
