package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/signaldesk/signaldesk-server/cmd/models"
	"github.com/signaldesk/signaldesk-server/cmd/utils"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.AppSettings{}, &models.ActivityLog{}))
	return db
}

func createAdmin(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	admin := &models.User{
		FullName:     "Admin",
		Email:        "admin@example.com",
		PasswordHash: "x",
		Role:         models.RoleAdmin,
		Active:       true,
	}
	require.NoError(t, db.Create(admin).Error)
	return admin
}

func TestGetSettingsCreatesSingleton(t *testing.T) {
	db := setupTestDB(t)
	h := NewSettingsHandler(db)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/admin/settings", nil)
		rec := httptest.NewRecorder()
		h.GetSettings(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	var count int64
	require.NoError(t, db.Model(&models.AppSettings{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var settings models.AppSettings
	require.NoError(t, db.First(&settings).Error)
	assert.Equal(t, models.DefaultSettingsID, settings.ID)
	assert.Equal(t, "SignalDesk", settings.SiteName)
	assert.True(t, settings.AllowRegistrations)
}

func TestUpdateSettingsIgnoresClientID(t *testing.T) {
	db := setupTestDB(t)
	h := NewSettingsHandler(db)
	admin := createAdmin(t, db)

	body, err := json.Marshal(map[string]interface{}{
		"id":               "hacker",
		"site_name":        "Renamed",
		"maintenance_mode": true,
		"unknown_field":    "dropped",
	})
	require.NoError(t, err)

	req := httptest.NewRequest("PUT", "/admin/settings", bytes.NewReader(body))
	req = req.WithContext(context.WithValue(req.Context(), utils.UserIDKey, admin.ID))
	rec := httptest.NewRecorder()
	h.UpdateSettings(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var count int64
	require.NoError(t, db.Model(&models.AppSettings{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var settings models.AppSettings
	require.NoError(t, db.First(&settings).Error)
	assert.Equal(t, models.DefaultSettingsID, settings.ID)
	assert.Equal(t, "Renamed", settings.SiteName)
	assert.True(t, settings.MaintenanceMode)
	// Untouched fields keep their defaults
	assert.True(t, settings.AllowRegistrations)
}

func TestUpdateSettingsRequiresAdmin(t *testing.T) {
	db := setupTestDB(t)
	h := NewSettingsHandler(db)

	user := &models.User{
		FullName:     "Regular",
		Email:        "user@example.com",
		PasswordHash: "x",
		Role:         models.RoleUser,
		Active:       true,
	}
	require.NoError(t, db.Create(user).Error)

	body := bytes.NewReader([]byte(`{"site_name":"Nope"}`))
	req := httptest.NewRequest("PUT", "/admin/settings", body)
	req = req.WithContext(context.WithValue(req.Context(), utils.UserIDKey, user.ID))
	rec := httptest.NewRecorder()
	h.UpdateSettings(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
