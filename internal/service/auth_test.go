package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/contractdesk/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuthFixture(t *testing.T) (*AuthService, *fakeUserStore, *captureDispatcher) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("Secret#1"), bcrypt.MinCost)
	require.NoError(t, err)

	users := newFakeUserStore(&domain.User{
		ID:       "user-1",
		Email:    "owner@example.com",
		Password: string(hash),
		Role:     domain.RoleUser,
		Status:   domain.UserActive,
	})
	dispatcher := &captureDispatcher{}
	return NewAuthService("test-secret", "admin@example.com", "Admin#1", users, dispatcher), users, dispatcher
}

func TestLoginAndVerifyToken(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	resp, err := svc.Login(context.Background(), &domain.LoginRequest{
		Email:    "owner@example.com",
		Password: "Secret#1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)
	assert.Equal(t, "user-1", resp.User.ID)

	claims, err := svc.VerifyToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Sub)
	assert.Equal(t, "owner@example.com", claims.Email)
	assert.Equal(t, domain.RoleUser, claims.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), &domain.LoginRequest{
		Email:    "owner@example.com",
		Password: "wrong",
	})
	require.Error(t, err)
	appErr, ok := domain.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, appErr.Code)
}

func TestLoginUnknownEmailSameErrorAsWrongPassword(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), &domain.LoginRequest{
		Email:    "ghost@example.com",
		Password: "whatever",
	})
	require.Error(t, err)
	appErr, ok := domain.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, appErr.Code)
	assert.Equal(t, "invalid credentials", appErr.Message)
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	_, err := svc.VerifyToken("not.a.token")
	require.Error(t, err)
}

func TestResetPasswordRoundTrip(t *testing.T) {
	svc, _, dispatcher := newAuthFixture(t)

	require.NoError(t, svc.SendResetPasswordEmail(context.Background(), "owner@example.com"))

	// Dispatch happens on a goroutine; wait for the captured message.
	var token string
	require.Eventually(t, func() bool {
		dispatcher.mu.Lock()
		defer dispatcher.mu.Unlock()
		if len(dispatcher.messages) == 0 {
			return false
		}
		token = dispatcher.messages[0].Context["token"]
		return true
	}, 2*time.Second, 10*time.Millisecond)

	user, err := svc.VerifyResetToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)

	require.NoError(t, svc.ResetPassword(context.Background(), &domain.ResetPasswordRequest{
		Token:    token,
		Password: "NewSecret#2",
	}))

	_, err = svc.Login(context.Background(), &domain.LoginRequest{
		Email:    "owner@example.com",
		Password: "NewSecret#2",
	})
	require.NoError(t, err)
}

func TestSendResetPasswordEmailUnknownAddressIsSilent(t *testing.T) {
	svc, _, dispatcher := newAuthFixture(t)

	require.NoError(t, svc.SendResetPasswordEmail(context.Background(), "ghost@example.com"))

	time.Sleep(50 * time.Millisecond)
	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()
	assert.Empty(t, dispatcher.messages)
}

func TestResetPasswordRejectsAccessToken(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	// A login token lacks the password_reset purpose claim and must not
	// pass as a reset token.
	resp, err := svc.Login(context.Background(), &domain.LoginRequest{
		Email:    "owner@example.com",
		Password: "Secret#1",
	})
	require.NoError(t, err)

	_, err = svc.VerifyResetToken(context.Background(), resp.Token)
	require.Error(t, err)
}

func TestSeedAdminIdempotent(t *testing.T) {
	svc, users, _ := newAuthFixture(t)

	require.NoError(t, svc.SeedAdmin(context.Background()))
	admin, err := users.FindByEmail(context.Background(), "admin@example.com")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.Equal(t, domain.RoleAdmin, admin.Role)

	require.NoError(t, svc.SeedAdmin(context.Background()))
	all := 0
	users.mu.Lock()
	for _, u := range users.users {
		if u.Email == "admin@example.com" {
			all++
		}
	}
	users.mu.Unlock()
	assert.Equal(t, 1, all)
}

func TestCreateUserDefaultsAndDuplicate(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	user, err := svc.CreateUser(context.Background(), &domain.CreateUserRequest{
		FirstName: "Nina",
		LastName:  "New",
		Email:     "nina@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.Equal(t, domain.UserActive, user.Status)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(defaultUserPassword)))

	_, err = svc.CreateUser(context.Background(), &domain.CreateUserRequest{
		FirstName: "Nina",
		LastName:  "Again",
		Email:     "nina@example.com",
	})
	require.Error(t, err)
}

func TestUpdateUserMergesNonEmptyFields(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	updated, err := svc.UpdateUser(context.Background(), "user-1", &domain.UpdateUserRequest{
		FirstName: "Renamed",
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.FirstName)
	assert.Equal(t, "owner@example.com", updated.Email)
}

func TestUpdateUserStatusValidation(t *testing.T) {
	svc, users, _ := newAuthFixture(t)

	require.Error(t, svc.UpdateUserStatus(context.Background(), "user-1", "SUSPENDED"))
	require.NoError(t, svc.UpdateUserStatus(context.Background(), "user-1", domain.UserInactive))

	u, err := users.FindByID(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, domain.UserInactive, u.Status)
}

func TestDeleteUserProtectsAdmin(t *testing.T) {
	svc, users, _ := newAuthFixture(t)
	require.NoError(t, svc.SeedAdmin(context.Background()))

	admin, err := users.FindByEmail(context.Background(), "admin@example.com")
	require.NoError(t, err)

	err = svc.DeleteUser(context.Background(), admin.ID)
	require.Error(t, err)

	require.NoError(t, svc.DeleteUser(context.Background(), "user-1"))
}
