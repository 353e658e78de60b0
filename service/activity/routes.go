package activity

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/signaldesk/signaldesk-server/cmd/models"
	"github.com/signaldesk/signaldesk-server/cmd/utils"
)

type ActivityHandler struct {
	db *gorm.DB
}

func NewActivityHandler(db *gorm.DB) *ActivityHandler {
	return &ActivityHandler{db: db}
}

func (h *ActivityHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/admin/activity", utils.AuthMiddleware(h.GetActivityLogs)).Methods("GET")
}

// Record appends one activity entry. Logging is best-effort: failures are
// logged and swallowed so they never fail the operation being logged.
func Record(db *gorm.DB, userID *uint, action, details, ip, userAgent string) {
	entry := models.ActivityLog{
		UserID:    userID,
		Action:    action,
		Details:   details,
		IPAddress: ip,
		UserAgent: userAgent,
	}

	if err := db.Create(&entry).Error; err != nil {
		log.Printf("Error recording activity %q: %v", action, err)
	}
}

// RecordRequest is Record with the IP and user agent taken from the request.
func RecordRequest(db *gorm.DB, r *http.Request, userID *uint, action, details string) {
	Record(db, userID, action, details, utils.ClientIP(r), r.UserAgent())
}

// GetActivityLogs returns log entries newest-first, joined with the acting
// user's name and email. Optional filters: userId, limit (default 50).
func (h *ActivityHandler) GetActivityLogs(w http.ResponseWriter, r *http.Request) {
	if _, err := utils.RequireAdmin(h.db, r); err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	query := h.db.Model(&models.ActivityLog{}).Preload("User")

	if userIDStr := r.URL.Query().Get("userId"); userIDStr != "" {
		userID, err := strconv.ParseUint(userIDStr, 10, 32)
		if err != nil {
			http.Error(w, "Invalid userId parameter", http.StatusBadRequest)
			return
		}
		query = query.Where("user_id = ?", userID)
	}

	var logs []models.ActivityLog
	if err := query.Order("created_at DESC").Limit(limit).Find(&logs).Error; err != nil {
		http.Error(w, "Error retrieving activity logs", http.StatusInternalServerError)
		return
	}

	response := make([]map[string]interface{}, 0, len(logs))
	for _, entry := range logs {
		logData := map[string]interface{}{
			"id":         entry.ID,
			"user_id":    entry.UserID,
			"action":     entry.Action,
			"details":    entry.Details,
			"ip_address": entry.IPAddress,
			"user_agent": entry.UserAgent,
			"created_at": entry.CreatedAt,
		}
		if entry.User != nil {
			logData["user"] = map[string]interface{}{
				"full_name": entry.User.FullName,
				"email":     entry.User.Email,
			}
		}
		response = append(response, logData)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"logs": response,
	})
}
