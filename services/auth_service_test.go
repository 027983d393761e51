package services

import (
	"context"
	"testing"

	"quizmatch/models"
	"quizmatch/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	service := NewAuthService(memory.New().Users(), "test-secret")

	user, token, err := service.Register(ctx, &RegisterRequest{
		Email:    "Host@Example.com",
		Username: "quizmaster",
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.Equal(t, "host@example.com", user.Email)
	assert.NotEqual(t, "correct horse", user.PasswordHash)
	require.NotEmpty(t, token)

	claims, err := ParseToken(token, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.Email, claims.Email)

	logged, loginToken, err := service.Login(ctx, &LoginRequest{
		Email:    "host@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)
	assert.NotEmpty(t, loginToken)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	service := NewAuthService(memory.New().Users(), "test-secret")

	_, _, err := service.Register(ctx, &RegisterRequest{
		Email:    "host@example.com",
		Username: "quizmaster",
		Password: "correct horse",
	})
	require.NoError(t, err)

	_, _, err = service.Login(ctx, &LoginRequest{Email: "host@example.com", Password: "wrong"})
	require.True(t, models.IsCode(err, models.ErrUnauthorized))
	// An unknown email fails with the same reason as a wrong password.
	_, _, badEmailErr := service.Login(ctx, &LoginRequest{Email: "nobody@example.com", Password: "wrong"})
	require.True(t, models.IsCode(badEmailErr, models.ErrUnauthorized))
	assert.Equal(t, models.ReasonOf(err), models.ReasonOf(badEmailErr))
}

func TestParseTokenRejectsTampering(t *testing.T) {
	service := NewAuthService(memory.New().Users(), "test-secret")
	token, err := service.GenerateToken(&models.User{ID: 3, Email: "host@example.com"})
	require.NoError(t, err)

	_, err = ParseToken(token, "other-secret")
	assert.True(t, models.IsCode(err, models.ErrUnauthorized))

	_, err = ParseToken(token+"x", "test-secret")
	assert.True(t, models.IsCode(err, models.ErrUnauthorized))
}
