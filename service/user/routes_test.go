package user

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/signaldesk/signaldesk-server/cmd/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// A single connection keeps the in-memory database alive for the test.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.AppSettings{}, &models.ActivityLog{}))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email, password string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		FullName:     "Test User",
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleUser,
		Active:       true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestForgotPasswordEnumerationSafe(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	db := setupTestDB(t)
	h := NewHandler(db)
	createTestUser(t, db, "known@example.com", "password1")

	knownRec := postJSON(t, h.handleForgotPassword, "/auth/forgot-password",
		map[string]string{"email": "known@example.com"})
	unknownRec := postJSON(t, h.handleForgotPassword, "/auth/forgot-password",
		map[string]string{"email": "nobody@example.com"})

	assert.Equal(t, http.StatusOK, knownRec.Code)
	assert.Equal(t, http.StatusOK, unknownRec.Code)

	var knownBody, unknownBody map[string]string
	require.NoError(t, json.Unmarshal(knownRec.Body.Bytes(), &knownBody))
	require.NoError(t, json.Unmarshal(unknownRec.Body.Bytes(), &unknownBody))

	assert.Equal(t, knownBody["message"], unknownBody["message"])
	// Outside production the known account also gets a dev token
	assert.NotEmpty(t, knownBody["dev_token"])
	assert.Empty(t, unknownBody["dev_token"])

	var user models.User
	require.NoError(t, db.Where("email = ?", "known@example.com").First(&user).Error)
	require.NotNil(t, user.ResetToken)
	require.NotNil(t, user.ResetTokenExpiry)
	assert.Equal(t, knownBody["dev_token"], *user.ResetToken)
}

func TestResetPasswordRejectsShortPasswordBeforeLookup(t *testing.T) {
	db := setupTestDB(t)
	h := NewHandler(db)

	// Even a valid token must not be consumed when the password is too short
	user := createTestUser(t, db, "short@example.com", "password1")
	token := "token-short-pass"
	expiry := time.Now().Add(time.Hour)
	require.NoError(t, db.Model(user).Updates(map[string]interface{}{
		"reset_token":        token,
		"reset_token_expiry": expiry,
	}).Error)

	rec := postJSON(t, h.handleResetPassword, "/auth/reset-password",
		map[string]string{"token": token, "password": "12345"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	require.NotNil(t, reloaded.ResetToken)
	assert.Equal(t, token, *reloaded.ResetToken)
}

func TestResetPasswordConsumesToken(t *testing.T) {
	db := setupTestDB(t)
	h := NewHandler(db)
	user := createTestUser(t, db, "reset@example.com", "oldpassword")

	token := "token-happy-path"
	require.NoError(t, db.Model(user).Updates(map[string]interface{}{
		"reset_token":        token,
		"reset_token_expiry": time.Now().Add(time.Hour),
	}).Error)

	rec := postJSON(t, h.handleResetPassword, "/auth/reset-password",
		map[string]string{"token": token, "password": "newpassword"})
	assert.Equal(t, http.StatusOK, rec.Code)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(reloaded.PasswordHash), []byte("newpassword")))
	// Token and expiry are cleared together
	assert.Nil(t, reloaded.ResetToken)
	assert.Nil(t, reloaded.ResetTokenExpiry)

	// Replaying the consumed token fails
	replay := postJSON(t, h.handleResetPassword, "/auth/reset-password",
		map[string]string{"token": token, "password": "anotherpassword"})
	assert.Equal(t, http.StatusBadRequest, replay.Code)
}

func TestResetPasswordExpiry(t *testing.T) {
	db := setupTestDB(t)
	h := NewHandler(db)

	t.Run("expired token rejected", func(t *testing.T) {
		user := createTestUser(t, db, "expired@example.com", "oldpassword")
		require.NoError(t, db.Model(user).Updates(map[string]interface{}{
			"reset_token":        "token-expired",
			"reset_token_expiry": time.Now().Add(-time.Second),
		}).Error)

		rec := postJSON(t, h.handleResetPassword, "/auth/reset-password",
			map[string]string{"token": "token-expired", "password": "newpassword"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("token near expiry still accepted", func(t *testing.T) {
		user := createTestUser(t, db, "almost@example.com", "oldpassword")
		require.NoError(t, db.Model(user).Updates(map[string]interface{}{
			"reset_token":        "token-almost",
			"reset_token_expiry": time.Now().Add(5 * time.Second),
		}).Error)

		rec := postJSON(t, h.handleResetPassword, "/auth/reset-password",
			map[string]string{"token": "token-almost", "password": "newpassword"})
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRegisterValidation(t *testing.T) {
	db := setupTestDB(t)
	h := NewHandler(db)

	t.Run("short password rejected", func(t *testing.T) {
		rec := postJSON(t, h.HandleRegister, "/auth/register", map[string]string{
			"full_name": "Someone",
			"email":     "someone@example.com",
			"password":  "12345",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		createTestUser(t, db, "taken@example.com", "password1")

		rec := postJSON(t, h.HandleRegister, "/auth/register", map[string]string{
			"full_name": "Someone",
			"email":     "taken@example.com",
			"password":  "password1",
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("registrations disabled", func(t *testing.T) {
		require.NoError(t, db.Create(&models.AppSettings{
			ID:                 models.DefaultSettingsID,
			SiteName:           "SignalDesk",
			AllowRegistrations: false,
		}).Error)

		rec := postJSON(t, h.HandleRegister, "/auth/register", map[string]string{
			"full_name": "Blocked",
			"email":     "blocked@example.com",
			"password":  "password1",
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestLoginInvalidCredentialsIndistinguishable(t *testing.T) {
	db := setupTestDB(t)
	h := NewHandler(db)
	createTestUser(t, db, "login@example.com", "password1")

	wrongPass := postJSON(t, h.handleLogin, "/auth/login",
		map[string]string{"email": "login@example.com", "password": "wrong"})
	noUser := postJSON(t, h.handleLogin, "/auth/login",
		map[string]string{"email": "missing@example.com", "password": "password1"})

	assert.Equal(t, http.StatusUnauthorized, wrongPass.Code)
	assert.Equal(t, http.StatusUnauthorized, noUser.Code)
	assert.Equal(t, wrongPass.Body.String(), noUser.Body.String())
}

func TestLoginDeactivatedAccount(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")
	db := setupTestDB(t)
	h := NewHandler(db)

	user := createTestUser(t, db, "inactive@example.com", "password1")
	require.NoError(t, db.Model(user).Update("active", false).Error)

	rec := postJSON(t, h.handleLogin, "/auth/login",
		map[string]string{"email": "inactive@example.com", "password": "password1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
