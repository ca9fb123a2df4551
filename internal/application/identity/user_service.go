package identity

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	applog "github.com/partdb/backend/internal/application/logsystem"
	"github.com/partdb/backend/internal/domain/identity"
	"github.com/partdb/backend/internal/domain/logsystem"
	"github.com/partdb/backend/internal/domain/shared"
)

// UserService handles user management operations. Every change is written
// through the tracker, so it shows up in the log and can be reverted.
type UserService struct {
	users   identity.UserRepository
	groups  identity.GroupRepository
	tracker *applog.Tracker
	logger  *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(
	users identity.UserRepository,
	groups identity.GroupRepository,
	tracker *applog.Tracker,
	logger *zap.Logger,
) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		users:   users,
		groups:  groups,
		tracker: tracker,
		logger:  logger,
	}
}

var (
	errUserNotFound      = shared.NewDomainError("USER_NOT_FOUND", "User not found")
	errUsernameTaken     = shared.NewDomainError("USERNAME_EXISTS", "Username already exists")
	errAnonymousReadOnly = shared.NewDomainError("ANONYMOUS_USER", "The anonymous user cannot be changed this way")
)

// Create creates a new user
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*UserDTO, error) {
	s.logger.Info("Creating user", zap.String("username", input.Username))

	exists, err := s.users.ExistsByUsername(ctx, strings.TrimSpace(input.Username))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errUsernameTaken
	}

	user, err := identity.NewUser(input.Username, input.Password)
	if err != nil {
		return nil, err
	}
	user.FirstName = input.FirstName
	user.LastName = input.LastName
	user.Department = input.Department
	user.Email = input.Email
	if err := s.setGroup(ctx, user, input.GroupID); err != nil {
		return nil, err
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}

	if err := s.tracker.Create(ctx, user, input.Comment); err != nil {
		s.logger.Error("Failed to create user", zap.Error(err))
		return nil, err
	}

	s.logger.Info("User created", zap.Uint("user_id", user.ID))
	dto := ToUserDTO(user)
	return &dto, nil
}

// GetByID returns a user
func (s *UserService) GetByID(ctx context.Context, id uint) (*UserDTO, error) {
	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := ToUserDTO(user)
	return &dto, nil
}

// GetByUsername returns the user with the given login name
func (s *UserService) GetByUsername(ctx context.Context, username string) (*UserDTO, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	dto := ToUserDTO(user)
	return &dto, nil
}

// List returns a page of users
func (s *UserService) List(ctx context.Context, f UserListFilter) (*shared.Paginated[UserDTO], error) {
	filter := shared.DefaultFilter()
	if f.Page > 0 {
		filter.Page = f.Page
	}
	if f.PageSize > 0 {
		filter.PageSize = f.PageSize
	}
	filter.OrderBy = "name"
	filter.Search = f.Search
	if f.GroupID != nil {
		filter.Filters["group_id"] = *f.GroupID
	}
	if f.Disabled != nil {
		filter.Filters["disabled"] = *f.Disabled
	}

	users, err := s.users.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.users.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]UserDTO, len(users))
	for i := range users {
		items[i] = ToUserDTO(&users[i])
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

// Update changes the profile of a user
func (s *UserService) Update(ctx context.Context, id uint, input UpdateUserInput) (*UserDTO, error) {
	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	before, err := shared.TakeSnapshot(user)
	if err != nil {
		return nil, err
	}

	if input.Username != nil && *input.Username != user.Username {
		if user.IsAnonymous() {
			return nil, errAnonymousReadOnly
		}
		name := strings.TrimSpace(*input.Username)
		exists, err := s.users.ExistsByUsername(ctx, name)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, errUsernameTaken
		}
		user.Username = name
	}
	if input.FirstName != nil {
		user.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		user.LastName = *input.LastName
	}
	if input.Department != nil {
		user.Department = *input.Department
	}
	if input.Email != nil {
		user.Email = *input.Email
	}
	if input.Language != nil {
		user.Language = *input.Language
	}
	if input.Timezone != nil {
		user.Timezone = *input.Timezone
	}
	if input.ClearGroup {
		user.GroupID = nil
	} else if input.GroupID != nil {
		if err := s.setGroup(ctx, user, input.GroupID); err != nil {
			return nil, err
		}
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}

	if err := s.tracker.Update(ctx, user, before, input.Comment); err != nil {
		s.logger.Error("Failed to update user", zap.Uint("user_id", id), zap.Error(err))
		return nil, err
	}
	dto := ToUserDTO(user)
	return &dto, nil
}

// Delete deletes a user. Users cannot delete themselves and the anonymous
// user is kept.
func (s *UserService) Delete(ctx context.Context, id uint, comment string) error {
	user, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if user.IsAnonymous() {
		return errAnonymousReadOnly
	}
	if actor := applog.ActorFrom(ctx); actor.UserID != nil && *actor.UserID == id {
		return shared.NewDomainError("CANNOT_DELETE_SELF", "You cannot delete your own user")
	}
	if err := s.tracker.Delete(ctx, user, comment); err != nil {
		s.logger.Error("Failed to delete user", zap.Uint("user_id", id), zap.Error(err))
		return err
	}
	s.logger.Info("User deleted", zap.Uint("user_id", id))
	return nil
}

// SetDisabled enables or disables the login of a user
func (s *UserService) SetDisabled(ctx context.Context, id uint, disabled bool, comment string) (*UserDTO, error) {
	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor := applog.ActorFrom(ctx); disabled && actor.UserID != nil && *actor.UserID == id {
		return nil, shared.NewDomainError("CANNOT_DISABLE_SELF", "You cannot disable your own user")
	}
	before, err := shared.TakeSnapshot(user)
	if err != nil {
		return nil, err
	}
	user.Disabled = disabled
	if err := s.tracker.Update(ctx, user, before, comment); err != nil {
		return nil, err
	}
	dto := ToUserDTO(user)
	return &dto, nil
}

// SetPassword sets a new password for another user and records a
// password_reset security event
func (s *UserService) SetPassword(ctx context.Context, id uint, input SetPasswordInput) error {
	return s.tracker.Transaction(ctx, func(ctx context.Context) error {
		user, err := s.find(ctx, id)
		if err != nil {
			return err
		}
		if user.IsAnonymous() {
			return errAnonymousReadOnly
		}
		if err := user.SetPassword(input.NewPassword); err != nil {
			return err
		}
		user.NeedPwChange = input.NeedPasswordChange
		user.InvalidateTrustedDevices()
		if err := s.users.Save(ctx, user); err != nil {
			return err
		}
		s.logger.Info("Password reset by administrator", zap.Uint("user_id", id))
		return s.tracker.Recorder().Add(ctx, logsystem.NewSecurityEvent(logsystem.SecurityPasswordReset, applog.ActorFrom(ctx).IP))
	})
}

// ResetTwoFactor removes all second factors of a user, e.g. after the user
// lost the authenticator device
func (s *UserService) ResetTwoFactor(ctx context.Context, id uint) error {
	return s.tracker.Transaction(ctx, func(ctx context.Context) error {
		user, err := s.find(ctx, id)
		if err != nil {
			return err
		}
		user.DisableGoogleAuthenticator()
		user.SetBackupCodes(nil)
		user.InvalidateTrustedDevices()
		if err := s.users.Save(ctx, user); err != nil {
			return err
		}
		return s.tracker.Recorder().Add(ctx, logsystem.NewSecurityEvent(logsystem.Security2FADisabled, applog.ActorFrom(ctx).IP))
	})
}

// Count returns the number of users
func (s *UserService) Count(ctx context.Context) (int64, error) {
	return s.users.Count(ctx, shared.Filter{})
}

func (s *UserService) find(ctx context.Context, id uint) (*identity.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, errUserNotFound
	}
	return user, err
}

func (s *UserService) setGroup(ctx context.Context, user *identity.User, groupID *uint) error {
	if groupID == nil {
		user.GroupID = nil
		return nil
	}
	if _, err := s.groups.FindByID(ctx, *groupID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError("GROUP_NOT_FOUND", "Group not found")
		}
		return err
	}
	id := *groupID
	user.GroupID = &id
	return nil
}
