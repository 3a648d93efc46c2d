package auth

import (
	"context"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/smartfarm/farm-mgmt/internal/pkg/infrastructure/repositories/database"
)

func setupAuthService(t *testing.T) (Service, database.UserRepository) {
	is := is.New(t)

	db, err := database.NewSQLiteConnector()()
	is.NoErr(err)
	is.NoErr(db.AutoMigrate(&database.User{}))

	users := database.NewUserRepository(db)
	return New(users, newTestTokens()), users
}

func TestRegisterAndLogin(t *testing.T) {
	is := is.New(t)
	svc, _ := setupAuthService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, "greta", "hunter2", "")
	is.NoErr(err)
	is.True(resp.Success)
	is.Equal(resp.User.UserType, "user")
	is.True(resp.AccessToken != "")
	is.True(resp.RefreshToken != "")

	login, err := svc.Login(ctx, "greta", "hunter2")
	is.NoErr(err)
	is.Equal(login.User.Username, "greta")
}

func TestDuplicateUsernameIsRejected(t *testing.T) {
	is := is.New(t)
	svc, _ := setupAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "greta", "hunter2", "")
	is.NoErr(err)

	_, err = svc.Register(ctx, "greta", "other", "")
	is.Equal(err, ErrUsernameTaken)
}

func TestLoginFailuresLookAlike(t *testing.T) {
	is := is.New(t)
	svc, _ := setupAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "greta", "hunter2", "")
	is.NoErr(err)

	_, badPassword := svc.Login(ctx, "greta", "wrong")
	_, noSuchUser := svc.Login(ctx, "nobody", "wrong")

	is.Equal(badPassword, ErrInvalidCredentials)
	is.Equal(noSuchUser, ErrInvalidCredentials)
}

func TestLoginWithLegacyPlaintextRow(t *testing.T) {
	is := is.New(t)
	svc, users := setupAuthService(t)
	ctx := context.Background()

	err := users.Create(ctx, &database.User{
		Username:  "admin",
		Password:  "admin123",
		UserType:  "admin",
		CreatedAt: time.Now(),
	})
	is.NoErr(err)

	resp, err := svc.Login(ctx, "admin", "admin123")
	is.NoErr(err)
	is.Equal(resp.User.UserType, "admin")
}

func TestRefreshReflectsCurrentRole(t *testing.T) {
	is := is.New(t)
	svc, users := setupAuthService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, "greta", "hunter2", "user")
	is.NoErr(err)

	// Promote after the refresh token was issued.
	user, err := users.GetByUsername(ctx, "greta")
	is.NoErr(err)
	is.NoErr(users.SetUserType(ctx, user.UserID, "admin"))

	access, err := svc.Refresh(ctx, resp.RefreshToken)
	is.NoErr(err)

	claims, err := svc.Tokens().Verify(access, KindAccess)
	is.NoErr(err)
	is.Equal(claims.UserType, "admin")
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	is := is.New(t)
	svc, _ := setupAuthService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, "greta", "hunter2", "")
	is.NoErr(err)

	_, err = svc.Refresh(ctx, resp.AccessToken)
	is.Equal(err, ErrTokenWrongKind)
}
