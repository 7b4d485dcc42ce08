package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"cmms-backend/internal/model"
	"cmms-backend/internal/repository"
)

func setupUserTest(t *testing.T) (*gorm.DB, UserService) {
	db := newTestDB(t)
	svc := NewUserService(repository.NewUserRepository(db), db)
	return db, svc
}

func TestUserService_CreateUserIsAdminOnly(t *testing.T) {
	db, svc := setupUserTest(t)
	ctx := context.Background()
	admin := createTestUser(t, db, "admin", model.RoleAdmin)
	supervisor := createTestUser(t, db, "supervisor", model.RoleSupervisor)

	req := CreateUserRequest{
		Username: "newtech",
		Email:    "newtech@example.com",
		Password: "secret123",
		Role:     model.RoleMaintainer,
	}

	_, err := svc.CreateUser(ctx, asActor(supervisor), req)
	assert.ErrorIs(t, err, ErrUnauthorized)

	res, err := svc.CreateUser(ctx, asActor(admin), req)
	require.NoError(t, err)
	assert.Equal(t, "newtech", res.Username)

	// Password is stored hashed
	var stored model.User
	require.NoError(t, db.Where("username = ?", "newtech").First(&stored).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("secret123")))
}

func TestUserService_LoginAndRefreshRotation(t *testing.T) {
	db, svc := setupUserTest(t)
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.DefaultCost)
	require.NoError(t, err)
	user := model.User{Username: "tech", Email: "tech@example.com", Password: string(hash), Role: model.RoleMaintainer}
	require.NoError(t, db.Create(&user).Error)

	_, err = svc.Login(ctx, LoginUserRequest{Email: "tech@example.com", Password: "wrong"})
	assert.Error(t, err)

	tokens, err := svc.Login(ctx, LoginUserRequest{Email: "tech@example.com", Password: "secret123"})
	require.NoError(t, err)
	require.NotEmpty(t, tokens.AccessToken)
	require.NotEmpty(t, tokens.RefreshToken)

	rotated, err := svc.Refresh(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	// The old token is gone after rotation
	_, err = svc.Refresh(ctx, tokens.RefreshToken)
	assert.Error(t, err)
}

func TestUserService_Logout(t *testing.T) {
	db, svc := setupUserTest(t)
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.DefaultCost)
	require.NoError(t, err)
	user := model.User{Username: "tech", Email: "tech@example.com", Password: string(hash), Role: model.RoleMaintainer}
	require.NoError(t, db.Create(&user).Error)

	tokens, err := svc.Login(ctx, LoginUserRequest{Email: "tech@example.com", Password: "secret123"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, tokens.RefreshToken))

	_, err = svc.Refresh(ctx, tokens.RefreshToken)
	assert.Error(t, err)
}

func TestUserService_DeleteUserGuards(t *testing.T) {
	db, svc := setupUserTest(t)
	ctx := context.Background()
	admin := createTestUser(t, db, "admin", model.RoleAdmin)
	tech := createTestUser(t, db, "tech", model.RoleMaintainer)

	// Self-deletion is blocked
	err := svc.DeleteUser(ctx, asActor(admin), admin.ID.String())
	assert.ErrorIs(t, err, ErrGuardViolation)

	err = svc.DeleteUser(ctx, asActor(tech), admin.ID.String())
	assert.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, svc.DeleteUser(ctx, asActor(admin), tech.ID.String()))
}
