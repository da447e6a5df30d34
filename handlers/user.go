package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/chefly/chefly/config"
	"github.com/chefly/chefly/database"
	"github.com/chefly/chefly/database/dbhelper"
	"github.com/chefly/chefly/middlewares"
	"github.com/chefly/chefly/models"
	"github.com/chefly/chefly/utils"
)

func Register(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Name     string      `json:"name"`
		Email    string      `json:"email"`
		Password string      `json:"password"`
		Role     models.Role `json:"role"`
	}

	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if req.Name == "" || req.Email == "" || req.Password == "" {
		http.Error(w, "all fields are required", http.StatusBadRequest)
		return
	}
	if len(req.Password) < 6 {
		http.Error(w, "password must be at least 6 characters", http.StatusBadRequest)
		return
	}
	if !req.Role.IsValid() {
		http.Error(w, "role must be foodie or chef", http.StatusBadRequest)
		return
	}

	exists, err := dbhelper.IsUserExists(req.Email)
	if err != nil {
		http.Error(w, "failed to check user existence", http.StatusInternalServerError)
		return
	}
	if exists {
		http.Error(w, "user already exists", http.StatusBadRequest)
		return
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		http.Error(w, "failed to hash password", http.StatusInternalServerError)
		return
	}

	var userID uuid.UUID
	var bindingCode string
	var accToken, refToken string
	txErr := database.Tx(func(tx *sql.Tx) error {
		userID, err = dbhelper.CreateUser(tx, req.Name, req.Email, hashedPassword, req.Role)
		if err != nil {
			logrus.Printf("failed to create user, error: %v", err)
			return err
		}

		// a chef needs a shareable code before any foodie can bind
		if req.Role == models.RoleChef {
			bindingCode = utils.NewBindingCode()
			if err = dbhelper.SetBindingCode(tx, userID, bindingCode); err != nil {
				logrus.Printf("failed to set binding code, error: %v", err)
				return err
			}
		}

		accToken, refToken, err = utils.GenerateTokens(userID, req.Role)
		if err != nil {
			logrus.Printf("failed to generate token, error: %v", err)
			return err
		}

		return nil
	})
	if txErr != nil {
		http.Error(w, "failed to register user", http.StatusInternalServerError)
		return
	}

	resp := map[string]interface{}{
		"user_id":       userID,
		"email":         req.Email,
		"name":          req.Name,
		"role":          req.Role,
		"access_token":  accToken,
		"refresh_token": refToken,
	}
	if bindingCode != "" {
		resp["binding_code"] = bindingCode
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func RefreshToken(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie("refresh_token")
	if err != nil {
		http.Error(w, "Refresh token missing", http.StatusUnauthorized)
		return
	}
	refreshToken := cookie.Value

	claims := &middlewares.Claims{}
	token, err := jwt.ParseWithClaims(refreshToken, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(config.SecretKey), nil
	})
	if err != nil || !token.Valid {
		http.Error(w, "Invalid or expired refresh token", http.StatusUnauthorized)
		return
	}
	// a token without usable identity claims must never mint new tokens
	if claims.UserID == uuid.Nil || !claims.Role.IsValid() {
		http.Error(w, "Invalid or expired refresh token", http.StatusUnauthorized)
		return
	}

	newAccessToken, newRefreshToken, err := utils.GenerateTokens(claims.UserID, claims.Role)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	setRefreshCookie(w, newRefreshToken, time.Now().Add(7*24*time.Hour))

	resp := map[string]string{
		"access_token": newAccessToken,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func Login(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" {
		http.Error(w, "email and password required", http.StatusBadRequest)
		return
	}

	userID, name, role, err := dbhelper.GetUserByPassword(req.Email, req.Password)
	if err == sql.ErrNoRows {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	} else if err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	accessToken, refreshToken, err := utils.GenerateTokens(userID, role)
	if err != nil {
		http.Error(w, "failed to generate tokens", http.StatusInternalServerError)
		return
	}

	setRefreshCookie(w, refreshToken, time.Now().Add(7*24*time.Hour))

	resp := map[string]interface{}{
		"user_id":      userID,
		"name":         name,
		"email":        req.Email,
		"role":         role,
		"access_token": accessToken,
		"message":      "Successfully logged in",
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "refresh_token",
		Value:    "",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Successfully logged out",
	})
}

func setRefreshCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     "refresh_token",
		Value:    token,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		Expires:  expires,
	})
}

// BindChef binds the authenticated foodie to the chef owning the submitted
// code. A foodie can hold at most one binding.
func BindChef(w http.ResponseWriter, r *http.Request) {
	claims, err := middlewares.GetAuthenticatedUser(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	type request struct {
		BindingCode string `json:"binding_code"`
	}
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.BindingCode == "" {
		http.Error(w, "binding code required", http.StatusBadRequest)
		return
	}

	bound, err := dbhelper.IsFoodieBound(claims.UserID)
	if err != nil {
		http.Error(w, "failed to check binding", http.StatusInternalServerError)
		return
	}
	if bound {
		http.Error(w, "already bound to a chef", http.StatusConflict)
		return
	}

	chefID, err := dbhelper.GetChefByBindingCode(req.BindingCode)
	if err == sql.ErrNoRows {
		http.Error(w, "invalid binding code", http.StatusNotFound)
		return
	} else if err != nil {
		http.Error(w, "failed to resolve binding code", http.StatusInternalServerError)
		return
	}

	txErr := database.Tx(func(tx *sql.Tx) error {
		return dbhelper.CreateBinding(tx, claims.UserID, chefID, req.BindingCode)
	})
	if txErr != nil {
		logrus.Printf("failed to create binding, error: %v", txErr)
		http.Error(w, "failed to bind chef", http.StatusConflict)
		return
	}

	if err := dbhelper.CreateNotification(chefID, models.NotifyBinding, "新吃货绑定",
		"有新的吃货绑定了您", map[string]interface{}{"foodie_id": claims.UserID.String()}); err != nil {
		logrus.WithError(err).Error("failed to create binding notification")
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"chef_id": chefID,
		"message": "bound successfully",
	})
}

// GetBinding returns the chef the authenticated foodie is bound to.
func GetBinding(w http.ResponseWriter, r *http.Request) {
	claims, err := middlewares.GetAuthenticatedUser(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var chefID uuid.UUID
	txErr := database.Tx(func(tx *sql.Tx) error {
		chefID, err = dbhelper.GetBoundChef(tx, claims.UserID)
		return err
	})
	if txErr == sql.ErrNoRows {
		http.Error(w, "not bound to any chef", http.StatusNotFound)
		return
	} else if txErr != nil {
		http.Error(w, "failed to fetch binding", http.StatusInternalServerError)
		return
	}

	chef, err := dbhelper.GetUserByID(chefID)
	if err != nil {
		http.Error(w, "failed to fetch chef", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"chef_id":      chef.ID,
		"name":         chef.Name,
		"total_orders": chef.TotalOrders,
	})
}

func CreateAddress(w http.ResponseWriter, r *http.Request) {
	claims, err := middlewares.GetAuthenticatedUser(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var addr models.Address
	if err := json.NewDecoder(r.Body).Decode(&addr); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if addr.Name == "" || addr.Phone == "" || addr.Province == "" ||
		addr.City == "" || addr.District == "" || addr.Detail == "" {
		http.Error(w, "all address fields are required", http.StatusBadRequest)
		return
	}
	addr.UserID = claims.UserID

	if err := dbhelper.CreateAddress(&addr); err != nil {
		logrus.Printf("failed to create address, error: %v", err)
		http.Error(w, "failed to create address", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(addr)
}

func ListAddresses(w http.ResponseWriter, r *http.Request) {
	claims, err := middlewares.GetAuthenticatedUser(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	addresses, err := dbhelper.ListAddresses(claims.UserID)
	if err != nil {
		http.Error(w, "failed to list addresses", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(addresses)
}
