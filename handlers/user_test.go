package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chefly/chefly/config"
	"github.com/chefly/chefly/middlewares"
	"github.com/chefly/chefly/models"
	"github.com/chefly/chefly/utils"
)

func TestRefreshTokenReissuesCallerIdentity(t *testing.T) {
	config.SecretKey = []byte("refresh-test-secret")
	userID := uuid.New()

	_, refresh, err := utils.GenerateTokens(userID, models.RoleFoodie)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, "/refresh", nil)
	r.AddCookie(&http.Cookie{Name: "refresh_token", Value: refresh})
	rec := httptest.NewRecorder()
	RefreshToken(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	claims := &middlewares.Claims{}
	token, err := jwt.ParseWithClaims(resp["access_token"], claims, func(*jwt.Token) (interface{}, error) {
		return []byte(config.SecretKey), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, models.RoleFoodie, claims.Role)
}

func TestRefreshTokenRejectsTokenWithoutIdentity(t *testing.T) {
	config.SecretKey = []byte("refresh-test-secret")

	// validly signed, but carries only registered claims: no user id, no
	// role. Must not mint tokens for the nil user.
	bare := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   uuid.New().String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	})
	signed, err := bare.SignedString([]byte(config.SecretKey))
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, "/refresh", nil)
	r.AddCookie(&http.Cookie{Name: "refresh_token", Value: signed})
	rec := httptest.NewRecorder()
	RefreshToken(rec, r)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshTokenMissingCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	RefreshToken(rec, httptest.NewRequest(http.MethodPost, "/refresh", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
