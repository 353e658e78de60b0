package settings

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/signaldesk/signaldesk-server/cmd/models"
	"github.com/signaldesk/signaldesk-server/cmd/utils"
	"github.com/signaldesk/signaldesk-server/service/activity"
)

type SettingsHandler struct {
	db *gorm.DB
}

func NewSettingsHandler(db *gorm.DB) *SettingsHandler {
	return &SettingsHandler{db: db}
}

func (h *SettingsHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/admin/settings", h.GetSettings).Methods("GET")
	router.HandleFunc("/admin/settings", utils.AuthMiddleware(h.UpdateSettings)).Methods("PUT")
}

// updatableColumns maps JSON field names to settings columns. Anything else
// in the request body, including a client-supplied id, is dropped.
var updatableColumns = map[string]string{
	"site_name":           "site_name",
	"support_email":       "support_email",
	"maintenance_mode":    "maintenance_mode",
	"allow_registrations": "allow_registrations",
	"announcement":        "announcement",
}

// loadOrCreate returns the singleton row, creating it with defaults on
// first access.
func loadOrCreate(db *gorm.DB) (*models.AppSettings, error) {
	settings := models.AppSettings{
		ID:                 models.DefaultSettingsID,
		SiteName:           "SignalDesk",
		AllowRegistrations: true,
	}
	if err := db.Where("id = ?", models.DefaultSettingsID).FirstOrCreate(&settings).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}

func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := loadOrCreate(h.db)
	if err != nil {
		http.Error(w, "Error retrieving settings", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"settings": settings,
	})
}

// UpdateSettings accepts a partial field set and upserts it against the
// fixed singleton id.
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	admin, err := utils.RequireAdmin(h.db, r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	updates := map[string]interface{}{}
	for field, value := range body {
		if column, ok := updatableColumns[field]; ok {
			updates[column] = value
		}
	}

	// Make sure the singleton exists before applying the partial update.
	if _, err := loadOrCreate(h.db); err != nil {
		http.Error(w, "Error updating settings", http.StatusInternalServerError)
		return
	}

	if len(updates) > 0 {
		if err := h.db.Model(&models.AppSettings{}).
			Where("id = ?", models.DefaultSettingsID).
			Updates(updates).Error; err != nil {
			http.Error(w, "Error updating settings", http.StatusInternalServerError)
			return
		}
	}

	var settings models.AppSettings
	if err := h.db.Where("id = ?", models.DefaultSettingsID).First(&settings).Error; err != nil {
		http.Error(w, "Error retrieving settings", http.StatusInternalServerError)
		return
	}

	activity.RecordRequest(h.db, r, &admin.ID, "settings.update", "Updated site settings")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"settings": settings,
	})
}
