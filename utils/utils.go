package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/chefly/chefly/config"
	"github.com/chefly/chefly/middlewares"
	"github.com/chefly/chefly/models"
)

func GenerateTokens(userID uuid.UUID, role models.Role) (accessToken string, refreshToken string, err error) {
	now := time.Now()

	accessToken, err = GenerateAccessToken(userID, role)
	if err != nil {
		return "", "", err
	}

	// refresh tokens carry the same identity claims as access tokens, so
	// the refresh endpoint can re-issue for the actual caller
	refreshClaims := &middlewares.Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(7 * 24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	refreshTokenObj := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims)
	refreshToken, err = refreshTokenObj.SignedString([]byte(config.SecretKey))
	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

func GenerateAccessToken(userID uuid.UUID, role models.Role) (accessToken string, err error) {
	now := time.Now()

	accessClaims := &middlewares.Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(15 * time.Minute)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	accessTokenObj := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims)
	accessToken, err = accessTokenObj.SignedString([]byte(config.SecretKey))
	if err != nil {
		return "", err
	}

	return accessToken, nil
}

func HashPassword(pw string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(bytes), err
}

// NewOrderNo builds an order-number candidate: a 20-digit timestamp
// (YYYYMMDDHHMMSS plus microseconds) followed by 8 random hex characters.
// Uniqueness is enforced by the caller's collision check, not here.
func NewOrderNo() string {
	now := time.Now()
	datePart := now.Format("20060102150405") + fmt.Sprintf("%06d", now.Nanosecond()/1000)
	randomPart := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return datePart + randomPart
}

// NewBindingCode returns the 8-char code a chef shares with their foodie.
func NewBindingCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
}
