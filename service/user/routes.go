package user

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/signaldesk/signaldesk-server/cmd/models"
	"github.com/signaldesk/signaldesk-server/cmd/utils"
	"github.com/signaldesk/signaldesk-server/service/activity"
)

// bcryptCost is the slow-hash work factor for stored passwords.
const bcryptCost = 12

const resetTokenTTL = time.Hour

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// RegisterRoutes sets up all auth and user-management routes
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/auth/register", h.HandleRegister).Methods("POST")
	router.HandleFunc("/auth/login", h.handleLogin).Methods("POST")
	router.HandleFunc("/auth/refresh", h.handleRefreshToken).Methods("POST")
	router.HandleFunc("/auth/session", utils.AuthMiddleware(h.handleSession)).Methods("GET")
	router.HandleFunc("/auth/forgot-password", h.handleForgotPassword).Methods("POST")
	router.HandleFunc("/auth/reset-password", h.handleResetPassword).Methods("POST")

	router.HandleFunc("/admin/users", utils.AuthMiddleware(h.GetUsers)).Methods("GET")
	router.HandleFunc("/admin/users/{id:[0-9]+}/status", utils.AuthMiddleware(h.UpdateUserStatus)).Methods("PATCH")
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var registerRequest struct {
		FullName string `json:"full_name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&registerRequest); err != nil {
		http.Error(w, "Invalid JSON input", http.StatusBadRequest)
		return
	}

	if registerRequest.FullName == "" || registerRequest.Email == "" || registerRequest.Password == "" {
		http.Error(w, "Missing required fields", http.StatusBadRequest)
		return
	}
	if len(registerRequest.Password) < 6 {
		http.Error(w, "Password must be at least 6 characters long", http.StatusBadRequest)
		return
	}

	var settings models.AppSettings
	if err := h.db.Where("id = ?", models.DefaultSettingsID).First(&settings).Error; err == nil {
		if !settings.AllowRegistrations {
			http.Error(w, "Registrations are currently disabled", http.StatusForbidden)
			return
		}
	}

	var existingUser models.User
	if result := h.db.Where("email = ?", registerRequest.Email).First(&existingUser); !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		if result.Error != nil {
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}
		log.Printf("Registration attempt with duplicate email")
		http.Error(w, "Email is already in use", http.StatusConflict)
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(registerRequest.Password), bcryptCost)
	if err != nil {
		http.Error(w, "Error hashing password", http.StatusInternalServerError)
		return
	}

	user := models.User{
		FullName:           registerRequest.FullName,
		Email:              registerRequest.Email,
		PasswordHash:       string(passwordHash),
		Role:               models.RoleUser,
		Active:             true,
		SubscriptionStatus: models.SubscriptionNone,
	}

	if err := h.db.Create(&user).Error; err != nil {
		http.Error(w, "Error registering user", http.StatusInternalServerError)
		return
	}

	activity.RecordRequest(h.db, r, &user.ID, "auth.register", "Account created")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "User registered successfully",
		"user_id": user.ID,
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var loginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&loginRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var user models.User
	result := h.db.Where("email = ?", loginRequest.Email).First(&user)
	if result.Error != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(loginRequest.Password)); err != nil {
		activity.RecordRequest(h.db, r, &user.ID, "auth.login_failed", "Wrong password")
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	if !user.Active {
		http.Error(w, "Account is deactivated", http.StatusUnauthorized)
		return
	}

	accessToken, err := generateJWT(user.ID, 15)
	if err != nil {
		http.Error(w, "Error generating access token", http.StatusInternalServerError)
		return
	}

	refreshToken, err := generateRefreshToken(user.ID)
	if err != nil {
		http.Error(w, "Error generating refresh token", http.StatusInternalServerError)
		return
	}

	if err := saveRefreshToken(h.db, user.ID, refreshToken); err != nil {
		http.Error(w, "Error saving refresh token", http.StatusInternalServerError)
		return
	}

	activity.RecordRequest(h.db, r, &user.ID, "auth.login", "Signed in")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":       "Login successful",
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"user_id":       user.ID,
		"role":          user.Role,
	})
}

// handleSession returns the authenticated principal with its role and
// subscription fields.
func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	user, err := utils.CurrentUser(h.db, r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"user": map[string]interface{}{
			"id":                  user.ID,
			"full_name":           user.FullName,
			"email":               user.Email,
			"role":                user.Role,
			"active":              user.Active,
			"subscription_status": user.SubscriptionStatus,
			"subscription_expiry": user.SubscriptionExpiry,
		},
	})
}

func (h *Handler) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	var refreshRequest struct {
		RefreshToken string `json:"refresh_token"`
	}

	if err := json.NewDecoder(r.Body).Decode(&refreshRequest); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	tx := h.db.Begin()

	var user models.User
	if err := tx.Where("refresh_token = ?", refreshRequest.RefreshToken).First(&user).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Invalid refresh token", http.StatusUnauthorized)
		return
	}

	if user.RefreshTokenExpiredAt.Before(time.Now()) {
		tx.Rollback()
		http.Error(w, "Refresh token expired", http.StatusUnauthorized)
		return
	}

	newAccessToken, err := generateJWT(user.ID, 15)
	if err != nil {
		tx.Rollback()
		http.Error(w, "Error generating new token", http.StatusInternalServerError)
		return
	}

	// Rotate the refresh token
	newRefreshToken, err := generateRefreshToken(user.ID)
	if err != nil {
		tx.Rollback()
		http.Error(w, "Error generating refresh token", http.StatusInternalServerError)
		return
	}

	updateResult := tx.Model(&user).Updates(map[string]interface{}{
		"refresh_token":            newRefreshToken,
		"refresh_token_expired_at": time.Now().Add(30 * 24 * time.Hour),
	})
	if updateResult.Error != nil {
		tx.Rollback()
		http.Error(w, "Error updating refresh token", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit().Error; err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"access_token":  newAccessToken,
		"refresh_token": newRefreshToken,
	})
}

// handleForgotPassword starts a password reset. The response is identical
// whether or not the email exists, to avoid account enumeration.
func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var resetRequest struct {
		Email string `json:"email"`
	}

	if err := json.NewDecoder(r.Body).Decode(&resetRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if resetRequest.Email == "" {
		http.Error(w, "Email is required", http.StatusBadRequest)
		return
	}

	response := map[string]string{
		"message": "If an account exists, a reset link will be sent to your email",
	}

	var user models.User
	if err := h.db.Where("email = ?", resetRequest.Email).First(&user).Error; err != nil {
		// Keep the response shape identical for unknown emails
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
		return
	}

	resetToken := uuid.NewString()
	expiry := time.Now().Add(resetTokenTTL)

	if err := h.db.Model(&user).Updates(map[string]interface{}{
		"reset_token":        resetToken,
		"reset_token_expiry": expiry,
	}).Error; err != nil {
		http.Error(w, "Error processing reset request", http.StatusInternalServerError)
		return
	}

	activity.RecordRequest(h.db, r, &user.ID, "auth.reset_requested", "Password reset requested")

	go func() {
		if err := sendResetEmail(user.Email, resetToken); err != nil {
			log.Printf("Error sending reset email: %v", err)
		}
	}()

	// Outside production the token is echoed for manual testing.
	if !utils.IsProduction() {
		response["dev_token"] = resetToken
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleResetPassword consumes a reset token. Wrong and expired tokens get
// the same generic rejection.
func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var resetRequest struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&resetRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// Validate before any lookup
	if len(resetRequest.Password) < 6 {
		http.Error(w, "Password must be at least 6 characters long", http.StatusBadRequest)
		return
	}
	if resetRequest.Token == "" {
		http.Error(w, "Token is required", http.StatusBadRequest)
		return
	}

	var user models.User
	if err := h.db.Where("reset_token = ? AND reset_token_expiry > ?",
		resetRequest.Token, time.Now()).First(&user).Error; err != nil {
		http.Error(w, "Invalid or expired token", http.StatusBadRequest)
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(resetRequest.Password), bcryptCost)
	if err != nil {
		http.Error(w, "Error hashing password", http.StatusInternalServerError)
		return
	}

	// Token and expiry are cleared in the same update as the password.
	if err := h.db.Model(&user).Updates(map[string]interface{}{
		"password_hash":      string(passwordHash),
		"reset_token":        nil,
		"reset_token_expiry": nil,
	}).Error; err != nil {
		http.Error(w, "Error updating password", http.StatusInternalServerError)
		return
	}

	activity.RecordRequest(h.db, r, &user.ID, "auth.reset_completed", "Password reset completed")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Password reset successful",
	})
}

// GetUsers lists accounts for the admin dashboard.
func (h *Handler) GetUsers(w http.ResponseWriter, r *http.Request) {
	if _, err := utils.RequireAdmin(h.db, r); err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	pageSize := 20

	query := h.db.Model(&models.User{})
	if role := r.URL.Query().Get("role"); role != "" {
		query = query.Where("role = ?", role)
	}

	var total int64
	query.Count(&total)

	var users []models.User
	if err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&users).Error; err != nil {
		http.Error(w, "Error retrieving users", http.StatusInternalServerError)
		return
	}

	response := make([]map[string]interface{}, 0, len(users))
	for _, u := range users {
		response = append(response, map[string]interface{}{
			"id":                  u.ID,
			"full_name":           u.FullName,
			"email":               u.Email,
			"role":                u.Role,
			"active":              u.Active,
			"subscription_status": u.SubscriptionStatus,
			"subscription_expiry": u.SubscriptionExpiry,
			"created_at":          u.CreatedAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"users":       response,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
		"total_pages": (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

// UpdateUserStatus toggles an account's active flag.
func (h *Handler) UpdateUserStatus(w http.ResponseWriter, r *http.Request) {
	admin, err := utils.RequireAdmin(h.db, r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	userID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	var statusRequest struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&statusRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	if err := h.db.Model(&user).Update("active", statusRequest.Active).Error; err != nil {
		http.Error(w, "Error updating user", http.StatusInternalServerError)
		return
	}

	activity.RecordRequest(h.db, r, &admin.ID, "user.status",
		fmt.Sprintf("Set user %d active=%t", user.ID, statusRequest.Active))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "User status updated",
		"active":  statusRequest.Active,
	})
}

// sendResetEmail mails the reset token to the account's address.
func sendResetEmail(email, token string) error {
	smtpHost := os.Getenv("SMTP_HOST")
	smtpPort := os.Getenv("SMTP_PORT")
	smtpUser := os.Getenv("SMTP_USER")
	smtpPass := os.Getenv("SMTP_PASS")

	m := gomail.NewMessage()
	m.SetHeader("From", smtpUser)
	m.SetHeader("To", email)
	m.SetHeader("Subject", "Password Reset")
	m.SetBody("text/plain", fmt.Sprintf("Your password reset token is: %s. It expires in one hour. Ignore this email if you did not request a reset.", token))

	port, err := strconv.Atoi(smtpPort)
	if err != nil {
		return fmt.Errorf("invalid SMTP port: %v", err)
	}
	d := gomail.NewDialer(smtpHost, port, smtpUser, smtpPass)

	return d.DialAndSend(m)
}

func generateJWT(userID uint, expirationMinutes int) (string, error) {
	claims := &jwt.RegisteredClaims{
		Subject:   fmt.Sprint(userID),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute * time.Duration(expirationMinutes))),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(os.Getenv("SECRET_KEY")))
}

func generateRefreshToken(userID uint) (string, error) {
	// Cryptographically secure random bytes, bound to the user with an HMAC
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	mac := hmac.New(sha256.New, []byte(os.Getenv("SECRET_KEY")))
	mac.Write([]byte(fmt.Sprintf("%d", userID)))
	mac.Write(b)

	signature := mac.Sum(nil)
	return fmt.Sprintf("%d_%x_%x", userID, b, signature), nil
}

func saveRefreshToken(db *gorm.DB, userID uint, refreshToken string) error {
	expirationTime := time.Now().Add(30 * 24 * time.Hour)
	return db.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"refresh_token":            refreshToken,
		"refresh_token_expired_at": expirationTime,
	}).Error
}
