package identity

import (
	"crypto/subtle"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/partdb/backend/internal/domain/shared"
)

// AnonymousUsername is the name of the special user whose permissions apply
// to requests without authentication.
const AnonymousUsername = "anonymous"

// Password cost for bcrypt
const bcryptCost = 12

var (
	usernamePattern = regexp.MustCompile(`^[\w.+\-$]+$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// User is an account of the system
type User struct {
	shared.BaseEntity
	Username     string         `gorm:"column:name;type:varchar(180);not null;uniqueIndex" json:"name"`
	FirstName    string         `gorm:"type:varchar(255)" json:"first_name"`
	LastName     string         `gorm:"type:varchar(255)" json:"last_name"`
	Department   string         `gorm:"type:varchar(255)" json:"department"`
	Email        string         `gorm:"type:varchar(255)" json:"email"`
	Disabled     bool           `gorm:"not null;default:false" json:"disabled"`
	NeedPwChange bool           `gorm:"column:need_pw_change;not null;default:false" json:"need_pw_change"`
	GroupID      *uint          `gorm:"index" json:"group_id"`
	Permissions  PermissionData `gorm:"type:text;serializer:json" json:"permissions"`
	Language     string         `gorm:"type:varchar(10)" json:"language"`
	Timezone     string         `gorm:"type:varchar(50)" json:"timezone"`

	// Credentials are never part of snapshots or API output
	PasswordHash               string     `gorm:"column:password;type:varchar(255)" json:"-"`
	PasswordChangedAt          *time.Time `json:"-"`
	GoogleAuthenticatorSecret  string     `gorm:"column:google_authenticator_secret;type:varchar(255)" json:"-"`
	BackupCodes                []string   `gorm:"type:text;serializer:json" json:"-"`
	BackupCodesGenerationDate  *time.Time `json:"-"`
	TrustedDeviceCookieVersion int        `gorm:"not null;default:0" json:"-"`
}

// TableName returns the table name for GORM
func (User) TableName() string { return "users" }

// TargetType implements shared.Trackable
func (*User) TargetType() shared.TargetType { return shared.TargetUser }

// GetName returns the username
func (u *User) GetName() string { return u.Username }

// GetPermissions implements PermissionHolder
func (u *User) GetPermissions() PermissionData {
	if u.Permissions == nil {
		u.Permissions = PermissionData{}
	}
	return u.Permissions
}

// NewUser creates a user. An empty password creates an account that cannot
// log in until a password is set.
func NewUser(username, password string) (*User, error) {
	u := &User{
		BaseEntity:  shared.NewBaseEntity(),
		Username:    strings.TrimSpace(username),
		Permissions: PermissionData{},
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	if password != "" {
		if err := u.SetPassword(password); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// Validate checks the user fields
func (u *User) Validate() error {
	if err := validateUsername(u.Username); err != nil {
		return err
	}
	if u.Email != "" {
		if err := validateEmail(u.Email); err != nil {
			return err
		}
	}
	return nil
}

// IsAnonymous returns true for the anonymous user
func (u *User) IsAnonymous() bool {
	return u.Username == AnonymousUsername
}

// FullName returns "First Last", falling back to the username
func (u *User) FullName() string {
	full := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if full == "" {
		return u.Username
	}
	return full
}

// ChangePassword changes the user's password
func (u *User) ChangePassword(oldPassword, newPassword string) error {
	if !u.VerifyPassword(oldPassword) {
		return shared.NewDomainError("INVALID_PASSWORD", "Current password is incorrect")
	}
	return u.SetPassword(newPassword)
}

// SetPassword sets a new password (admin reset, no old password check)
func (u *User) SetPassword(newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	passwordHash, err := hashPassword(newPassword)
	if err != nil {
		return shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}

	u.PasswordHash = passwordHash
	now := time.Now()
	u.PasswordChangedAt = &now
	u.NeedPwChange = false
	u.UpdatedAt = now
	return nil
}

// VerifyPassword verifies if the provided password matches
func (u *User) VerifyPassword(password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}

// HasPassword returns true if a password was set
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// IsGoogleAuthenticatorEnabled returns true if TOTP is set up
func (u *User) IsGoogleAuthenticatorEnabled() bool {
	return u.GoogleAuthenticatorSecret != ""
}

// IsBackupCodesEnabled returns true if the user has unused backup codes
func (u *User) IsBackupCodesEnabled() bool {
	return len(u.BackupCodes) > 0
}

// IsTFAEnabled returns true if any second factor is configured
func (u *User) IsTFAEnabled() bool {
	return u.IsGoogleAuthenticatorEnabled() || u.IsBackupCodesEnabled()
}

// SetBackupCodes replaces the backup codes and records when they were made
func (u *User) SetBackupCodes(codes []string) {
	u.BackupCodes = codes
	if len(codes) == 0 {
		u.BackupCodesGenerationDate = nil
		return
	}
	now := time.Now()
	u.BackupCodesGenerationDate = &now
}

// UseBackupCode consumes a backup code. Returns false if the code is unknown.
func (u *User) UseBackupCode(code string) bool {
	code = strings.TrimSpace(code)
	for i, c := range u.BackupCodes {
		if subtle.ConstantTimeCompare([]byte(c), []byte(code)) == 1 {
			u.BackupCodes = append(u.BackupCodes[:i:i], u.BackupCodes[i+1:]...)
			return true
		}
	}
	return false
}

// InvalidateTrustedDevices forces all trusted devices to authenticate again
func (u *User) InvalidateTrustedDevices() {
	u.TrustedDeviceCookieVersion++
}

func validateUsername(username string) error {
	if username == "" {
		return shared.NewDomainError("INVALID_USERNAME", "Username cannot be empty")
	}
	if len(username) > 180 {
		return shared.NewDomainError("INVALID_USERNAME", "Username cannot exceed 180 characters")
	}
	if !usernamePattern.MatchString(username) {
		return shared.NewDomainError("INVALID_USERNAME", "Username can only contain letters, numbers and the characters . + - _ $")
	}
	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return shared.NewDomainError("INVALID_PASSWORD", "Password cannot be empty")
	}
	if len(password) < 6 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 6 characters")
	}
	if len(password) > 72 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password cannot exceed 72 bytes")
	}
	return nil
}

func validateEmail(email string) error {
	if len(email) > 255 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 255 characters")
	}
	if !emailPattern.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
