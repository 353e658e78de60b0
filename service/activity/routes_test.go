package activity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
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

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.ActivityLog{}))
	return db
}

func TestRecordBestEffort(t *testing.T) {
	t.Run("failure is swallowed", func(t *testing.T) {
		db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		require.NoError(t, err)
		// No migration: the insert fails, but Record must not panic

		assert.NotPanics(t, func() {
			Record(db, nil, "auth.login", "Signed in", "127.0.0.1", "test-agent")
		})
	})

	t.Run("entry persisted", func(t *testing.T) {
		db := setupTestDB(t)

		userID := uint(7)
		Record(db, &userID, "auth.login", "Signed in", "10.0.0.1", "test-agent")

		var entry models.ActivityLog
		require.NoError(t, db.First(&entry).Error)
		require.NotNil(t, entry.UserID)
		assert.Equal(t, userID, *entry.UserID)
		assert.Equal(t, "auth.login", entry.Action)
		assert.Equal(t, "10.0.0.1", entry.IPAddress)
	})
}

func TestRecordRequestCapturesClient(t *testing.T) {
	db := setupTestDB(t)

	req := httptest.NewRequest("POST", "/auth/login", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	req.Header.Set("User-Agent", "client/1.0")

	RecordRequest(db, req, nil, "auth.login_failed", "Wrong password")

	var entry models.ActivityLog
	require.NoError(t, db.First(&entry).Error)
	assert.Equal(t, "203.0.113.9", entry.IPAddress)
	assert.Equal(t, "client/1.0", entry.UserAgent)
	assert.Nil(t, entry.UserID)
}

func TestGetActivityLogs(t *testing.T) {
	db := setupTestDB(t)
	h := NewActivityHandler(db)

	admin := &models.User{
		FullName:     "Admin",
		Email:        "admin@example.com",
		PasswordHash: "x",
		Role:         models.RoleAdmin,
		Active:       true,
	}
	require.NoError(t, db.Create(admin).Error)

	other := &models.User{
		FullName:     "Other",
		Email:        "other@example.com",
		PasswordHash: "x",
		Role:         models.RoleUser,
		Active:       true,
	}
	require.NoError(t, db.Create(other).Error)

	Record(db, &admin.ID, "settings.update", "Updated site settings", "10.0.0.1", "test")
	Record(db, &other.ID, "auth.login", "Signed in", "10.0.0.2", "test")
	Record(db, &other.ID, "auth.login", "Signed in", "10.0.0.2", "test")

	adminCtx := func(r *http.Request) *http.Request {
		return r.WithContext(context.WithValue(r.Context(), utils.UserIDKey, admin.ID))
	}

	t.Run("returns all entries with user info", func(t *testing.T) {
		req := adminCtx(httptest.NewRequest("GET", "/admin/activity", nil))
		rec := httptest.NewRecorder()
		h.GetActivityLogs(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Logs []map[string]interface{} `json:"logs"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Len(t, body.Logs, 3)

		user, ok := body.Logs[0]["user"].(map[string]interface{})
		require.True(t, ok)
		assert.NotEmpty(t, user["email"])
	})

	t.Run("filters by user", func(t *testing.T) {
		req := adminCtx(httptest.NewRequest("GET", "/admin/activity?userId="+strconv.FormatUint(uint64(other.ID), 10), nil))
		rec := httptest.NewRecorder()
		h.GetActivityLogs(rec, req)

		var body struct {
			Logs []map[string]interface{} `json:"logs"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Len(t, body.Logs, 2)
	})

	t.Run("applies limit", func(t *testing.T) {
		req := adminCtx(httptest.NewRequest("GET", "/admin/activity?limit=1", nil))
		rec := httptest.NewRecorder()
		h.GetActivityLogs(rec, req)

		var body struct {
			Logs []map[string]interface{} `json:"logs"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Len(t, body.Logs, 1)
	})

	t.Run("rejects bad userId", func(t *testing.T) {
		req := adminCtx(httptest.NewRequest("GET", "/admin/activity?userId=abc", nil))
		rec := httptest.NewRecorder()
		h.GetActivityLogs(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects non-admin", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/admin/activity", nil)
		req = req.WithContext(context.WithValue(req.Context(), utils.UserIDKey, other.ID))
		rec := httptest.NewRecorder()
		h.GetActivityLogs(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
