package identity

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	applog "github.com/partdb/backend/internal/application/logsystem"
	"github.com/partdb/backend/internal/domain/identity"
	"github.com/partdb/backend/internal/domain/logsystem"
	"github.com/partdb/backend/internal/domain/shared"
	"github.com/partdb/backend/internal/infrastructure/auth"
)

// AuthServiceConfig contains configuration for the auth service
type AuthServiceConfig struct {
	TOTPIssuer string
}

// AuthService handles authentication and the user's own credentials
type AuthService struct {
	users       identity.UserRepository
	permissions *PermissionService
	jwtService  *auth.JWTService
	blacklist   auth.TokenBlacklist
	backupCodes *identity.BackupCodeManager
	tracker     *applog.Tracker
	throttle    *LoginThrottle
	config      AuthServiceConfig
	logger      *zap.Logger
	now         func() time.Time
}

// NewAuthService creates a new authentication service. blacklist and
// throttle may be nil.
func NewAuthService(
	users identity.UserRepository,
	permissions *PermissionService,
	jwtService *auth.JWTService,
	blacklist auth.TokenBlacklist,
	backupCodes *identity.BackupCodeManager,
	tracker *applog.Tracker,
	throttle *LoginThrottle,
	config AuthServiceConfig,
	logger *zap.Logger,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:       users,
		permissions: permissions,
		jwtService:  jwtService,
		blacklist:   blacklist,
		backupCodes: backupCodes,
		tracker:     tracker,
		throttle:    throttle,
		config:      config,
		logger:      logger,
		now:         time.Now,
	}
}

var (
	errInvalidCredentials = shared.NewDomainError("INVALID_CREDENTIALS", "Invalid username or password")
	errTwoFactorRequired  = shared.NewDomainError("TWO_FACTOR_REQUIRED", "A two factor code is required")
	errTooManyAttempts    = shared.NewDomainError("TOO_MANY_ATTEMPTS", "Too many login attempts. Please try again later")
)

// Login authenticates a user and returns tokens
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	s.logger.Info("Login attempt", zap.String("username", input.Username))

	if !s.throttle.Allow(input.IP) {
		s.logger.Warn("Login throttled", zap.String("ip", input.IP))
		return nil, errTooManyAttempts
	}

	user, err := s.users.FindByUsername(ctx, input.Username)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		s.logger.Warn("User not found during login", zap.String("username", input.Username))
		return nil, errInvalidCredentials
	}
	if user.IsAnonymous() {
		return nil, errInvalidCredentials
	}

	if err := identity.CheckPreAuth(user); err != nil {
		s.logger.Warn("Login attempt for disabled account", zap.String("username", input.Username))
		return nil, err
	}

	if !user.VerifyPassword(input.Password) {
		s.logger.Warn("Invalid password attempt", zap.String("username", input.Username))
		return nil, errInvalidCredentials
	}

	if user.IsTFAEnabled() {
		if input.TwoFactorCode == "" {
			return nil, errTwoFactorRequired
		}
		if !user.CheckSecondFactor(input.TwoFactorCode, s.now()) {
			s.logger.Warn("Invalid two factor code", zap.String("username", input.Username))
			return nil, identity.ErrInvalidTOTPCode
		}
	}

	chain, err := s.permissions.GroupChain(ctx, user.GroupID)
	if err != nil {
		return nil, err
	}
	setupRequired := !user.IsTFAEnabled() && enforces2FA(chain)

	tokenPair, err := s.jwtService.GenerateTokenPair(auth.GenerateTokenInput{
		UserID:        user.ID,
		Username:      user.Username,
		DeviceVersion: user.TrustedDeviceCookieVersion,
	})
	if err != nil {
		s.logger.Error("Failed to generate token pair", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate authentication tokens")
	}

	ctx = applog.WithActor(ctx, actorOf(user, input.IP))
	err = s.tracker.Transaction(ctx, func(ctx context.Context) error {
		// a used backup code must be persisted
		if err := s.users.Save(ctx, user); err != nil {
			return err
		}
		return s.tracker.Recorder().Add(ctx, logsystem.NewUserLogin(input.IP))
	})
	if err != nil {
		s.logger.Error("Failed to record login", zap.Error(err))
		return nil, err
	}

	s.logger.Info("User logged in successfully",
		zap.String("username", user.Username),
		zap.Uint("user_id", user.ID))

	return &LoginResult{
		AccessToken:            tokenPair.AccessToken,
		RefreshToken:           tokenPair.RefreshToken,
		AccessTokenExpiresAt:   tokenPair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt:  tokenPair.RefreshTokenExpiresAt,
		TokenType:              tokenPair.TokenType,
		User:                   ToUserDTO(user),
		NeedPasswordChange:     user.NeedPwChange,
		TwoFactorSetupRequired: setupRequired,
	}, nil
}

// RefreshToken issues a new token pair for a valid refresh token
func (s *AuthService) RefreshToken(ctx context.Context, input RefreshTokenInput) (*auth.TokenPair, error) {
	claims, err := s.jwtService.ValidateRefreshToken(input.RefreshToken)
	if err != nil {
		s.logger.Warn("Refresh token validation failed", zap.Error(err))
		return nil, tokenError(err)
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		s.logger.Warn("User not found during token refresh", zap.Uint("user_id", claims.UserID))
		return nil, shared.NewDomainError("USER_NOT_FOUND", "User not found")
	}
	if err := identity.CheckPreAuth(user); err != nil {
		return nil, err
	}
	if s.blacklist != nil {
		revoked, err := s.blacklist.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, tokenError(auth.ErrTokenBlacklisted)
		}
	}

	pair, err := s.jwtService.RefreshTokenPair(input.RefreshToken, user.TrustedDeviceCookieVersion)
	if err != nil {
		s.logger.Warn("Token refresh failed", zap.Error(err))
		return nil, tokenError(err)
	}

	s.logger.Info("Token refreshed successfully", zap.Uint("user_id", user.ID))
	return pair, nil
}

func tokenError(err error) error {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return shared.NewDomainError("TOKEN_EXPIRED", "Refresh token has expired")
	case errors.Is(err, auth.ErrMaxRefreshExceeded):
		return shared.NewDomainError("TOKEN_MAX_REFRESH", "Maximum token refresh count exceeded. Please log in again")
	case errors.Is(err, auth.ErrTokenBlacklisted):
		return shared.NewDomainError("TOKEN_REVOKED", "Token has been revoked. Please log in again")
	default:
		return shared.NewDomainError("TOKEN_INVALID", "Invalid refresh token")
	}
}

// Logout revokes the access token and records the logout
func (s *AuthService) Logout(ctx context.Context, input LogoutInput) error {
	s.logger.Info("User logout", zap.Uint("user_id", input.UserID))

	if s.blacklist != nil && input.TokenJTI != "" && input.TokenTTL > 0 {
		if err := s.blacklist.AddToBlacklist(ctx, input.TokenJTI, input.TokenTTL); err != nil {
			s.logger.Error("Failed to blacklist token", zap.Error(err))
			return err
		}
	}
	return s.tracker.Recorder().Add(ctx, logsystem.NewUserLogout(input.IP))
}

// Me returns the acting user with its resolved permissions
func (s *AuthService) Me(ctx context.Context, userID uint) (*CurrentUserResult, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, shared.NewDomainError("USER_NOT_FOUND", "User not found")
	}
	perms, err := s.permissions.Resolved(ctx, &user.ID)
	if err != nil {
		return nil, err
	}
	return &CurrentUserResult{User: ToUserDTO(user), Permissions: perms}, nil
}

// ChangePassword changes the password of the acting user. Existing sessions
// of other devices are invalidated.
func (s *AuthService) ChangePassword(ctx context.Context, userID uint, input ChangePasswordInput) error {
	return s.updateCredentials(ctx, userID, logsystem.SecurityPasswordChanged, func(u *identity.User) error {
		if err := u.ChangePassword(input.OldPassword, input.NewPassword); err != nil {
			return err
		}
		u.InvalidateTrustedDevices()
		return nil
	})
}

// RegenerateBackupCodes replaces the backup codes of the acting user
func (s *AuthService) RegenerateBackupCodes(ctx context.Context, userID uint) (*BackupCodesResult, error) {
	var result BackupCodesResult
	err := s.updateCredentials(ctx, userID, logsystem.SecurityBackupKeysReset, func(u *identity.User) error {
		if err := s.backupCodes.RegenerateBackupCodes(u); err != nil {
			return err
		}
		result.Codes = append([]string(nil), u.BackupCodes...)
		if u.BackupCodesGenerationDate != nil {
			result.GeneratedAt = *u.BackupCodesGenerationDate
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// SetupTOTP returns a new secret for the authenticator app. Nothing is
// stored until EnableTOTP confirms it.
func (s *AuthService) SetupTOTP(ctx context.Context, userID uint) (*TOTPSetup, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsGoogleAuthenticatorEnabled() {
		return nil, shared.NewDomainError("TWO_FACTOR_ALREADY_ENABLED", "An authenticator app is already configured")
	}
	key, err := identity.NewTOTPKey(s.config.TOTPIssuer, user.Username)
	if err != nil {
		return nil, err
	}
	return &TOTPSetup{Secret: key.Secret, URI: key.URI}, nil
}

// EnableTOTP stores a confirmed TOTP secret. Backup codes are created on
// first use of a second factor.
func (s *AuthService) EnableTOTP(ctx context.Context, userID uint, input EnableTOTPInput) (*BackupCodesResult, error) {
	var result BackupCodesResult
	err := s.updateCredentials(ctx, userID, logsystem.Security2FAEnabled, func(u *identity.User) error {
		if err := u.EnableGoogleAuthenticator(input.Secret, input.Code, s.now()); err != nil {
			return err
		}
		if err := s.backupCodes.EnableBackupCodes(u); err != nil {
			return err
		}
		result.Codes = append([]string(nil), u.BackupCodes...)
		if u.BackupCodesGenerationDate != nil {
			result.GeneratedAt = *u.BackupCodesGenerationDate
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// DisableTOTP removes the TOTP secret after checking a current code.
// Unused backup codes are removed together with it.
func (s *AuthService) DisableTOTP(ctx context.Context, userID uint, input DisableTOTPInput) error {
	return s.updateCredentials(ctx, userID, logsystem.Security2FADisabled, func(u *identity.User) error {
		if !u.IsGoogleAuthenticatorEnabled() {
			return shared.NewDomainError("TWO_FACTOR_NOT_ENABLED", "No authenticator app is configured")
		}
		if !u.CheckSecondFactor(input.Code, s.now()) {
			return identity.ErrInvalidTOTPCode
		}
		u.DisableGoogleAuthenticator()
		s.backupCodes.DisableBackupCodesIfUnused(u)
		u.InvalidateTrustedDevices()
		return nil
	})
}

// updateCredentials saves a credential change of userID and records it as
// security event. Credentials are not part of element snapshots, so no edit
// entry is written.
func (s *AuthService) updateCredentials(ctx context.Context, userID uint, eventType string, change func(*identity.User) error) error {
	return s.tracker.Transaction(ctx, func(ctx context.Context) error {
		user, err := s.users.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		if err := change(user); err != nil {
			return err
		}
		if err := s.users.Save(ctx, user); err != nil {
			s.logger.Error("Failed to save credentials", zap.Uint("user_id", userID), zap.Error(err))
			return err
		}
		s.logger.Info("Security event", zap.Uint("user_id", userID), zap.String("type", eventType))
		return s.tracker.Recorder().Add(ctx, logsystem.NewSecurityEvent(eventType, applog.ActorFrom(ctx).IP))
	})
}

func enforces2FA(chain []*identity.Group) bool {
	for _, g := range chain {
		if g.Enforce2FA {
			return true
		}
	}
	return false
}

func actorOf(u *identity.User, ip string) applog.Actor {
	id := u.ID
	return applog.Actor{UserID: &id, Username: u.Username, IP: ip}
}
