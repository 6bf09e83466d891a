package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/session-service/internal/auth"
	"github.com/spec-kit/session-service/internal/config"
	"github.com/spec-kit/session-service/internal/domain"
	"github.com/spec-kit/session-service/internal/events"
	"github.com/spec-kit/session-service/internal/repository"
)

// SignInResult carries both issued credentials plus the authenticated identity.
type SignInResult struct {
	AccessToken     string
	AccessExpiresAt time.Time
	RefreshToken    string
	UserID          string
	Username        string
	Email           string
	Roles           []string
}

// RefreshResult pairs a newly issued access token with the unchanged refresh
// token string. Refresh tokens are not rotated on access-token renewal.
type RefreshResult struct {
	AccessToken     string
	AccessExpiresAt time.Time
	RefreshToken    string
}

// SessionService coordinates sign-in, refresh, and sign-out flows.
type SessionService struct {
	users      repository.UserRepository
	roles      repository.RoleRepository
	store      repository.RefreshTokenStore
	tokens     *auth.TokenManager
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
	refreshTTL time.Duration
}

// SessionDependencies encapsulates collaborator requirements for the service.
type SessionDependencies struct {
	UserRepo     repository.UserRepository
	RoleRepo     repository.RoleRepository
	RefreshStore repository.RefreshTokenStore
	TokenManager *auth.TokenManager
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
}

// NewSessionService builds the service.
func NewSessionService(cfg config.AuthConfig, deps SessionDependencies) *SessionService {
	return &SessionService{
		users:      deps.UserRepo,
		roles:      deps.RoleRepo,
		store:      deps.RefreshStore,
		tokens:     deps.TokenManager,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		bcryptCost: cfg.BcryptCost,
		refreshTTL: cfg.RefreshTokenTTL,
	}
}

// SignIn authenticates the credentials and, on success, issues an access token
// and a fresh refresh-token record. A failed authentication leaves no trace in
// the store.
func (s *SessionService) SignIn(ctx context.Context, username, password string) (*SignInResult, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrAuthenticationFailed
		}
		return nil, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, ErrAuthenticationFailed
	}

	accessToken, expiresAt, err := s.tokens.Generate(user.Username)
	if err != nil {
		return nil, err
	}

	record, err := s.store.Create(ctx, user.ID, s.refreshTTL)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventUserSignedIn, user, nil)

	return &SignInResult{
		AccessToken:     accessToken,
		AccessExpiresAt: expiresAt,
		RefreshToken:    record.Token,
		UserID:          user.ID,
		Username:        user.Username,
		Email:           user.Email,
		Roles:           user.RoleNames(),
	}, nil
}

// Refresh exchanges a valid refresh token for a new access token. The refresh
// token string itself is returned unchanged; an expired record is deleted and
// the caller must sign in again.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	record, err := s.store.FindByToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	record, err = s.store.VerifyExpiration(ctx, record)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, record.UserID)
	if err != nil {
		if repository.IsNotFound(err) {
			// Owner vanished; the token is worthless.
			return nil, repository.ErrRefreshTokenNotFound
		}
		return nil, err
	}

	accessToken, expiresAt, err := s.tokens.Generate(user.Username)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventTokenRefreshed, user, nil)

	return &RefreshResult{
		AccessToken:     accessToken,
		AccessExpiresAt: expiresAt,
		RefreshToken:    record.Token,
	}, nil
}

// SignOut revokes every refresh token owned by the user and returns the count.
// Revoking zero records is a success.
func (s *SessionService) SignOut(ctx context.Context, user *domain.User) (int64, error) {
	count, err := s.store.DeleteByUserID(ctx, user.ID)
	if err != nil {
		return 0, err
	}

	s.publish(ctx, events.EventUserSignedOut, user, map[string]any{"revoked": count})
	return count, nil
}

// SignUp registers a new account. Role aliases map admin -> ROLE_ADMIN,
// mod -> ROLE_MODERATOR, anything else -> ROLE_USER; an empty list grants the
// user role. Registration does not sign the user in.
func (s *SessionService) SignUp(ctx context.Context, username, email, password string, roleAliases []string) (*domain.User, error) {
	taken, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrUsernameTaken
	}

	used, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if used {
		return nil, ErrEmailTaken
	}

	roles, err := s.resolveRoles(ctx, roleAliases)
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Roles:        roles,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventUserRegistered, user, nil)
	return user, nil
}

// EnsureRoles creates any of the fixed role rows that are missing. Idempotent;
// subsequent runs are side-effect free.
func (s *SessionService) EnsureRoles(ctx context.Context) error {
	for _, name := range domain.AllRoles() {
		exists, err := s.roles.ExistsByName(ctx, name)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if _, err := s.roles.Save(ctx, name); err != nil {
			return err
		}
		s.logger.Info("role created", zap.String("role", string(name)))
	}
	return nil
}

func (s *SessionService) resolveRoles(ctx context.Context, aliases []string) ([]domain.Role, error) {
	names := make(map[domain.Role]struct{})
	if len(aliases) == 0 {
		names[domain.RoleUser] = struct{}{}
	}
	for _, alias := range aliases {
		names[domain.RoleFromAlias(alias)] = struct{}{}
	}

	roles := make([]domain.Role, 0, len(names))
	for name := range names {
		if _, err := s.roles.FindByName(ctx, name); err != nil {
			if repository.IsNotFound(err) {
				return nil, ErrRoleNotFound
			}
			return nil, err
		}
		roles = append(roles, name)
	}
	return roles, nil
}

func (s *SessionService) publish(ctx context.Context, eventType events.EventType, user *domain.User, payload map[string]any) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		UserID:     user.ID,
		Username:   user.Username,
		OccurredAt: time.Now(),
		Payload:    payload,
	})
}
