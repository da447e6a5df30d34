package utils

import (
	"regexp"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/chefly/chefly/config"
	"github.com/chefly/chefly/middlewares"
	"github.com/chefly/chefly/models"
)

var orderNoPattern = regexp.MustCompile(`^\d{20}[0-9a-f]{8}$`)

func TestNewOrderNoFormat(t *testing.T) {
	no := NewOrderNo()
	require.Len(t, no, 28)
	assert.Regexp(t, orderNoPattern, no)
}

func TestNewOrderNoVaries(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		no := NewOrderNo()
		assert.False(t, seen[no], "duplicate candidate %s", no)
		seen[no] = true
	}
}

func TestNewBindingCode(t *testing.T) {
	code := NewBindingCode()
	require.Len(t, code, 8)
	assert.Regexp(t, `^[0-9A-F]{8}$`, code)
}

func TestRefreshTokenCarriesIdentity(t *testing.T) {
	config.SecretKey = []byte("token-test-secret")
	userID := uuid.New()

	_, refresh, err := GenerateTokens(userID, models.RoleChef)
	require.NoError(t, err)

	claims := &middlewares.Claims{}
	token, err := jwt.ParseWithClaims(refresh, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(config.SecretKey), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, models.RoleChef, claims.Role)
	assert.Equal(t, userID.String(), claims.Subject)
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("hunter2")))
	assert.Error(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("wrong")))
}
