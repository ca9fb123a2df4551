package identity

import (
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/partdb/backend/internal/domain/shared"
)

// TOTP parameters used by Google Authenticator and compatible apps
const (
	totpPeriod     = 30
	totpSkewSteps  = 1
	totpSecretSize = 20
)

var totpOpts = totp.ValidateOpts{
	Period:    totpPeriod,
	Skew:      totpSkewSteps,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// ErrInvalidTOTPCode is returned when a one time code does not match
var ErrInvalidTOTPCode = shared.NewDomainError("INVALID_TWO_FACTOR_CODE", "The two factor code is invalid")

// TOTPKey is a new authenticator secret and the otpauth:// URI shown as QR code
type TOTPKey struct {
	Secret string
	URI    string
}

// NewTOTPKey creates a random secret for account
func NewTOTPKey(issuer, account string) (*TOTPKey, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		Period:      totpPeriod,
		SecretSize:  totpSecretSize,
		Digits:      totpOpts.Digits,
		Algorithm:   totpOpts.Algorithm,
	})
	if err != nil {
		return nil, err
	}
	return &TOTPKey{Secret: key.Secret(), URI: key.URL()}, nil
}

// TOTPCode returns the code of secret for time t
func TOTPCode(secret string, t time.Time) (string, error) {
	code, err := totp.GenerateCodeCustom(secret, t, totpOpts)
	if err != nil {
		return "", shared.NewDomainError("INVALID_TOTP_SECRET", "The authenticator secret is malformed")
	}
	return code, nil
}

// VerifyTOTP checks code against secret, accepting one step of clock skew
func VerifyTOTP(secret, code string, t time.Time) bool {
	ok, err := totp.ValidateCustom(code, secret, t, totpOpts)
	return err == nil && ok
}

// EnableGoogleAuthenticator stores secret after checking code against it
func (u *User) EnableGoogleAuthenticator(secret, code string, now time.Time) error {
	if u.IsGoogleAuthenticatorEnabled() {
		return shared.NewDomainError("TWO_FACTOR_ALREADY_ENABLED", "An authenticator app is already configured")
	}
	if !VerifyTOTP(secret, code, now) {
		return ErrInvalidTOTPCode
	}
	u.GoogleAuthenticatorSecret = secret
	return nil
}

// DisableGoogleAuthenticator removes the TOTP secret
func (u *User) DisableGoogleAuthenticator() {
	u.GoogleAuthenticatorSecret = ""
}

// CheckSecondFactor verifies a TOTP code or consumes a backup code
func (u *User) CheckSecondFactor(code string, now time.Time) bool {
	if u.IsGoogleAuthenticatorEnabled() && VerifyTOTP(u.GoogleAuthenticatorSecret, code, now) {
		return true
	}
	return u.UseBackupCode(code)
}
