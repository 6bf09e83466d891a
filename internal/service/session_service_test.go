package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/session-service/internal/auth"
	"github.com/spec-kit/session-service/internal/config"
	"github.com/spec-kit/session-service/internal/domain"
	"github.com/spec-kit/session-service/internal/repository"
)

// --- fakes ---

type fakeUserRepo struct {
	byUsername map[string]*domain.User
	byID       map[string]*domain.User
	created    []*domain.User
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	repo := &fakeUserRepo{
		byUsername: make(map[string]*domain.User),
		byID:       make(map[string]*domain.User),
	}
	for _, u := range users {
		repo.byUsername[u.Username] = u
		repo.byID[u.ID] = u
	}
	return repo
}

func (f *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	user.ID = "generated-id"
	f.created = append(f.created, user)
	f.byUsername[user.Username] = user
	f.byID[user.ID] = user
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	if u, ok := f.byUsername[username]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	_, ok := f.byUsername[username]
	return ok, nil
}

func (f *fakeUserRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	for _, u := range f.byUsername {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

type fakeRoleRepo struct {
	existing map[domain.Role]bool
	saved    []domain.Role
}

func (f *fakeRoleRepo) FindByName(_ context.Context, name domain.Role) (*repository.RoleRecord, error) {
	if f.existing[name] {
		return &repository.RoleRecord{ID: 1, Name: name}, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeRoleRepo) ExistsByName(_ context.Context, name domain.Role) (bool, error) {
	return f.existing[name], nil
}

func (f *fakeRoleRepo) Save(_ context.Context, name domain.Role) (*repository.RoleRecord, error) {
	f.existing[name] = true
	f.saved = append(f.saved, name)
	return &repository.RoleRecord{ID: int32(len(f.saved)), Name: name}, nil
}

// --- helpers ---

func testUser(t *testing.T, id, username, password string) *domain.User {
	t.Helper()
	hash, err := auth.HashPassword(password, 4)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return &domain.User{
		ID:           id,
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		Roles:        []domain.Role{domain.RoleUser},
	}
}

func newTestService(t *testing.T, users *fakeUserRepo, roles *fakeRoleRepo, store repository.RefreshTokenStore, refreshTTL time.Duration) *SessionService {
	t.Helper()
	tm, err := auth.NewTokenManager([]byte("0123456789abcdef0123456789abcdef"), time.Minute)
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}
	if roles == nil {
		roles = &fakeRoleRepo{existing: map[domain.Role]bool{
			domain.RoleUser: true, domain.RoleModerator: true, domain.RoleAdmin: true,
		}}
	}
	return NewSessionService(
		config.AuthConfig{BcryptCost: 4, RefreshTokenTTL: refreshTTL},
		SessionDependencies{
			UserRepo:     users,
			RoleRepo:     roles,
			RefreshStore: store,
			TokenManager: tm,
			Logger:       zap.NewNop(),
		},
	)
}

// --- tests ---

func TestSignIn_Success(t *testing.T) {
	user := testUser(t, "42", "alice", "s3cret")
	store := repository.NewMemoryRefreshTokenStore()
	svc := newTestService(t, newFakeUserRepo(user), nil, store, time.Hour)

	result, err := svc.SignIn(context.Background(), "alice", "s3cret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatalf("missing credentials in result: %+v", result)
	}
	if result.UserID != "42" || result.Username != "alice" || result.Email != "alice@example.com" {
		t.Fatalf("unexpected identity: %+v", result)
	}
	if len(result.Roles) != 1 || result.Roles[0] != "ROLE_USER" {
		t.Fatalf("unexpected roles: %v", result.Roles)
	}

	record, err := store.FindByToken(context.Background(), result.RefreshToken)
	if err != nil {
		t.Fatalf("refresh record not persisted: %v", err)
	}
	if record.UserID != "42" {
		t.Fatalf("record owned by %s, want 42", record.UserID)
	}
}

func TestSignIn_FailureLeavesNoRecords(t *testing.T) {
	user := testUser(t, "42", "alice", "s3cret")
	store := repository.NewMemoryRefreshTokenStore()
	svc := newTestService(t, newFakeUserRepo(user), nil, store, time.Hour)
	ctx := context.Background()

	if _, err := svc.SignIn(ctx, "nobody", "whatever"); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed for unknown user, got %v", err)
	}
	if _, err := svc.SignIn(ctx, "alice", "wrong"); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed for bad password, got %v", err)
	}

	if count, _ := store.DeleteByUserID(ctx, "42"); count != 0 {
		t.Fatalf("failed sign-ins must not create records, found %d", count)
	}
}

func TestSignIn_SupportsConcurrentSessions(t *testing.T) {
	user := testUser(t, "42", "alice", "s3cret")
	store := repository.NewMemoryRefreshTokenStore()
	svc := newTestService(t, newFakeUserRepo(user), nil, store, time.Hour)
	ctx := context.Background()

	tokens := make(map[string]struct{})
	for i := 0; i < 3; i++ {
		result, err := svc.SignIn(ctx, "alice", "s3cret")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tokens[result.RefreshToken] = struct{}{}
	}
	if len(tokens) != 3 {
		t.Fatalf("expected 3 distinct refresh tokens, got %d", len(tokens))
	}
	if count, _ := store.DeleteByUserID(ctx, "42"); count != 3 {
		t.Fatalf("expected 3 concurrent records, got %d", count)
	}
}

func TestRefresh_IssuesNewAccessTokenKeepsRefreshToken(t *testing.T) {
	user := testUser(t, "42", "alice", "s3cret")
	store := repository.NewMemoryRefreshTokenStore()
	svc := newTestService(t, newFakeUserRepo(user), nil, store, time.Hour)
	ctx := context.Background()

	signIn, err := svc.SignIn(ctx, "alice", "s3cret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Issued-at has second precision; step past it so the tokens differ.
	time.Sleep(1100 * time.Millisecond)

	refreshed, err := svc.Refresh(ctx, signIn.RefreshToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if refreshed.AccessToken == signIn.AccessToken {
		t.Fatal("refresh must issue a new access token")
	}
	if refreshed.RefreshToken != signIn.RefreshToken {
		t.Fatal("refresh token must not rotate on access-token renewal")
	}

	// The same refresh token works repeatedly until expiry or sign-out.
	again, err := svc.Refresh(ctx, signIn.RefreshToken)
	if err != nil {
		t.Fatalf("second refresh failed: %v", err)
	}
	if again.RefreshToken != signIn.RefreshToken {
		t.Fatal("refresh token changed on reuse")
	}
}

func TestRefresh_UnknownToken(t *testing.T) {
	store := repository.NewMemoryRefreshTokenStore()
	svc := newTestService(t, newFakeUserRepo(), nil, store, time.Hour)

	_, err := svc.Refresh(context.Background(), "never-issued")
	if !errors.Is(err, repository.ErrRefreshTokenNotFound) {
		t.Fatalf("expected ErrRefreshTokenNotFound, got %v", err)
	}
}

func TestRefresh_ExpiredTokenDeletedOnFirstUse(t *testing.T) {
	user := testUser(t, "42", "alice", "s3cret")
	store := repository.NewMemoryRefreshTokenStore()
	svc := newTestService(t, newFakeUserRepo(user), nil, store, time.Hour)
	ctx := context.Background()

	record, err := store.Create(ctx, "42", -time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.Refresh(ctx, record.Token); !errors.Is(err, repository.ErrRefreshTokenExpired) {
		t.Fatalf("expected ErrRefreshTokenExpired, got %v", err)
	}

	// The record is gone; further attempts see NotFound, never Expired again.
	if _, err := svc.Refresh(ctx, record.Token); !errors.Is(err, repository.ErrRefreshTokenNotFound) {
		t.Fatalf("expected ErrRefreshTokenNotFound after cleanup, got %v", err)
	}
}

func TestSignOut_RevokesAllDevices(t *testing.T) {
	user := testUser(t, "42", "alice", "s3cret")
	store := repository.NewMemoryRefreshTokenStore()
	svc := newTestService(t, newFakeUserRepo(user), nil, store, time.Hour)
	ctx := context.Background()

	var refreshTokens []string
	for i := 0; i < 3; i++ {
		result, err := svc.SignIn(ctx, "alice", "s3cret")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		refreshTokens = append(refreshTokens, result.RefreshToken)
	}

	count, err := svc.SignOut(ctx, user)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 revocations, got %d", count)
	}

	for _, token := range refreshTokens {
		if _, err := svc.Refresh(ctx, token); !errors.Is(err, repository.ErrRefreshTokenNotFound) {
			t.Fatalf("token %s should be revoked, got %v", token, err)
		}
	}

	// Signing out with nothing to revoke still succeeds.
	count, err = svc.SignOut(ctx, user)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 revocations, got %d", count)
	}
}

func TestSignUp_MapsRoleAliases(t *testing.T) {
	users := newFakeUserRepo()
	store := repository.NewMemoryRefreshTokenStore()
	svc := newTestService(t, users, nil, store, time.Hour)

	user, err := svc.SignUp(context.Background(), "bob", "bob@example.com", "s3cret", []string{"admin", "mod", "other"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := make(map[domain.Role]bool)
	for _, r := range user.Roles {
		got[r] = true
	}
	for _, want := range []domain.Role{domain.RoleAdmin, domain.RoleModerator, domain.RoleUser} {
		if !got[want] {
			t.Fatalf("missing role %s in %v", want, user.Roles)
		}
	}
	if user.PasswordHash == "s3cret" || user.PasswordHash == "" {
		t.Fatal("password must be stored hashed")
	}
}

func TestSignUp_DefaultsToUserRole(t *testing.T) {
	svc := newTestService(t, newFakeUserRepo(), nil, repository.NewMemoryRefreshTokenStore(), time.Hour)

	user, err := svc.SignUp(context.Background(), "bob", "bob@example.com", "s3cret", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(user.Roles) != 1 || user.Roles[0] != domain.RoleUser {
		t.Fatalf("expected default ROLE_USER, got %v", user.Roles)
	}
}

func TestSignUp_RejectsDuplicates(t *testing.T) {
	existing := testUser(t, "42", "alice", "s3cret")
	svc := newTestService(t, newFakeUserRepo(existing), nil, repository.NewMemoryRefreshTokenStore(), time.Hour)
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, "alice", "new@example.com", "pw", nil); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
	if _, err := svc.SignUp(ctx, "bob", "alice@example.com", "pw", nil); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestSignUp_MissingRoleRowAbortsRequest(t *testing.T) {
	roles := &fakeRoleRepo{existing: map[domain.Role]bool{}}
	svc := newTestService(t, newFakeUserRepo(), roles, repository.NewMemoryRefreshTokenStore(), time.Hour)

	if _, err := svc.SignUp(context.Background(), "bob", "bob@example.com", "pw", []string{"admin"}); !errors.Is(err, ErrRoleNotFound) {
		t.Fatalf("expected ErrRoleNotFound, got %v", err)
	}
}

func TestEnsureRoles_Idempotent(t *testing.T) {
	roles := &fakeRoleRepo{existing: map[domain.Role]bool{}}
	svc := newTestService(t, newFakeUserRepo(), roles, repository.NewMemoryRefreshTokenStore(), time.Hour)
	ctx := context.Background()

	if err := svc.EnsureRoles(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(roles.saved) != 3 {
		t.Fatalf("expected 3 roles created, got %d", len(roles.saved))
	}

	if err := svc.EnsureRoles(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(roles.saved) != 3 {
		t.Fatalf("second run must be side-effect free, got %d saves", len(roles.saved))
	}
}
