package signal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/signaldesk/signaldesk-server/cmd/models"
	"github.com/signaldesk/signaldesk-server/cmd/utils"
	"github.com/signaldesk/signaldesk-server/service/activity"
)

// Broadcaster delivers signal events to live feed subscribers.
type Broadcaster interface {
	BroadcastSignal(eventType string, signal models.Signal)
}

// Pusher delivers signal events to registered push devices.
type Pusher interface {
	PushSignal(signal models.Signal)
}

type SignalHandler struct {
	db     *gorm.DB
	feed   Broadcaster
	pusher Pusher
}

func NewSignalHandler(db *gorm.DB, feed Broadcaster, pusher Pusher) *SignalHandler {
	return &SignalHandler{db: db, feed: feed, pusher: pusher}
}

func (h *SignalHandler) RegisterRoutes(router *mux.Router) {
	// Admin lifecycle operations
	router.HandleFunc("/admin/signals", utils.AuthMiddleware(h.CreateSignal)).Methods("POST")
	router.HandleFunc("/admin/signals", utils.AuthMiddleware(h.GetAllSignals)).Methods("GET")
	router.HandleFunc("/admin/signals/{id:[0-9]+}", utils.AuthMiddleware(h.UpdateSignal)).Methods("PUT")
	router.HandleFunc("/admin/signals/{id:[0-9]+}", utils.AuthMiddleware(h.DeleteSignal)).Methods("DELETE")
	router.HandleFunc("/admin/signals/{id:[0-9]+}/publish", utils.AuthMiddleware(h.PublishSignal)).Methods("POST")
	router.HandleFunc("/admin/signals/{id:[0-9]+}/close", utils.AuthMiddleware(h.CloseSignal)).Methods("POST")

	// Subscriber feed
	router.HandleFunc("/signals", utils.AuthMiddleware(h.GetSignals)).Methods("GET")

	// Public aggregate stats
	router.HandleFunc("/stats", h.GetStats).Methods("GET")
}

func (h *SignalHandler) notify(eventType string, signal models.Signal) {
	if h.feed != nil {
		h.feed.BroadcastSignal(eventType, signal)
	}
	if h.pusher != nil {
		go h.pusher.PushSignal(signal)
	}
}

// CreateSignal creates a new signal. Signals start PENDING unless the admin
// publishes them immediately.
func (h *SignalHandler) CreateSignal(w http.ResponseWriter, r *http.Request) {
	admin, err := utils.RequireAdmin(h.db, r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var signal models.Signal
	if err := json.NewDecoder(r.Body).Decode(&signal); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if signal.Pair == "" || signal.EntryPrice == 0 || signal.TargetPrice == 0 || signal.StopLoss == 0 {
		http.Error(w, "Missing required fields", http.StatusBadRequest)
		return
	}
	if signal.Direction != models.DirectionLong && signal.Direction != models.DirectionShort {
		http.Error(w, "Direction must be LONG or SHORT", http.StatusBadRequest)
		return
	}
	if signal.Status == "" {
		signal.Status = models.SignalStatusPending
	}
	if signal.Status != models.SignalStatusPending && signal.Status != models.SignalStatusActive {
		http.Error(w, "New signals must be PENDING or ACTIVE", http.StatusBadRequest)
		return
	}

	signal.CreatedByID = admin.ID
	signal.ReturnPercent = nil

	if err := h.db.Create(&signal).Error; err != nil {
		http.Error(w, "Error creating signal", http.StatusInternalServerError)
		return
	}

	activity.RecordRequest(h.db, r, &admin.ID, "signal.create",
		fmt.Sprintf("Created %s signal for %s", signal.Direction, signal.Pair))

	if signal.Status == models.SignalStatusActive {
		h.notify("signal.published", signal)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(signal)
}

// GetAllSignals lists signals for the admin dashboard with optional status
// filter and pagination.
func (h *SignalHandler) GetAllSignals(w http.ResponseWriter, r *http.Request) {
	if _, err := utils.RequireAdmin(h.db, r); err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	query := h.db.Model(&models.Signal{})
	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	page := 1
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if parsed, err := strconv.Atoi(pageStr); err == nil && parsed > 0 {
			page = parsed
		}
	}
	pageSize := 20

	var total int64
	query.Count(&total)

	var signals []models.Signal
	if err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&signals).Error; err != nil {
		http.Error(w, "Error retrieving signals", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"signals":     signals,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
		"total_pages": (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

// UpdateSignal edits an open signal's levels or commentary. Closing goes
// through CloseSignal so return percent and status change together.
func (h *SignalHandler) UpdateSignal(w http.ResponseWriter, r *http.Request) {
	admin, err := utils.RequireAdmin(h.db, r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid signal ID", http.StatusBadRequest)
		return
	}

	var updated models.Signal
	if err := json.NewDecoder(r.Body).Decode(&updated); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var signal models.Signal
	if err := h.db.First(&signal, id).Error; err != nil {
		http.Error(w, "Signal not found", http.StatusNotFound)
		return
	}

	if models.IsClosedStatus(signal.Status) {
		http.Error(w, "Closed signals cannot be edited", http.StatusConflict)
		return
	}

	if updated.Pair != "" {
		signal.Pair = updated.Pair
	}
	if updated.Direction != "" {
		signal.Direction = updated.Direction
	}
	if updated.EntryPrice != 0 {
		signal.EntryPrice = updated.EntryPrice
	}
	if updated.TargetPrice != 0 {
		signal.TargetPrice = updated.TargetPrice
	}
	if updated.StopLoss != 0 {
		signal.StopLoss = updated.StopLoss
	}
	signal.Commentary = updated.Commentary

	if err := h.db.Save(&signal).Error; err != nil {
		http.Error(w, "Error updating signal", http.StatusInternalServerError)
		return
	}

	activity.RecordRequest(h.db, r, &admin.ID, "signal.update",
		fmt.Sprintf("Updated signal %d (%s)", signal.ID, signal.Pair))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(signal)
}

// DeleteSignal deletes a signal
func (h *SignalHandler) DeleteSignal(w http.ResponseWriter, r *http.Request) {
	admin, err := utils.RequireAdmin(h.db, r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid signal ID", http.StatusBadRequest)
		return
	}

	result := h.db.Delete(&models.Signal{}, id)
	if result.Error != nil {
		http.Error(w, "Error deleting signal", http.StatusInternalServerError)
		return
	}
	if result.RowsAffected == 0 {
		http.Error(w, "Signal not found", http.StatusNotFound)
		return
	}

	activity.RecordRequest(h.db, r, &admin.ID, "signal.delete",
		fmt.Sprintf("Deleted signal %d", id))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Signal deleted successfully",
	})
}

// PublishSignal moves a PENDING signal to ACTIVE and fans it out to the
// live feed and push devices.
func (h *SignalHandler) PublishSignal(w http.ResponseWriter, r *http.Request) {
	admin, err := utils.RequireAdmin(h.db, r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid signal ID", http.StatusBadRequest)
		return
	}

	var signal models.Signal
	if err := h.db.First(&signal, id).Error; err != nil {
		http.Error(w, "Signal not found", http.StatusNotFound)
		return
	}

	if signal.Status != models.SignalStatusPending {
		http.Error(w, "Only PENDING signals can be published", http.StatusConflict)
		return
	}

	signal.Status = models.SignalStatusActive
	if err := h.db.Save(&signal).Error; err != nil {
		http.Error(w, "Error publishing signal", http.StatusInternalServerError)
		return
	}

	activity.RecordRequest(h.db, r, &admin.ID, "signal.publish",
		fmt.Sprintf("Published signal %d (%s)", signal.ID, signal.Pair))

	h.notify("signal.published", signal)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(signal)
}

// CloseSignal ends a signal's lifecycle. Status and return percent are set
// together so a closed signal always carries its realized return.
func (h *SignalHandler) CloseSignal(w http.ResponseWriter, r *http.Request) {
	admin, err := utils.RequireAdmin(h.db, r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid signal ID", http.StatusBadRequest)
		return
	}

	var closeRequest struct {
		Status        string   `json:"status"`
		ReturnPercent *float64 `json:"return_percent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&closeRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if !models.IsClosedStatus(closeRequest.Status) {
		http.Error(w, "Status must be TARGET_HIT, STOP_LOSS or CLOSED_MANUAL", http.StatusBadRequest)
		return
	}
	if closeRequest.ReturnPercent == nil {
		http.Error(w, "return_percent is required when closing a signal", http.StatusBadRequest)
		return
	}

	var signal models.Signal
	if err := h.db.First(&signal, id).Error; err != nil {
		http.Error(w, "Signal not found", http.StatusNotFound)
		return
	}

	if models.IsClosedStatus(signal.Status) {
		http.Error(w, "Signal is already closed", http.StatusConflict)
		return
	}

	updates := map[string]interface{}{
		"status":         closeRequest.Status,
		"return_percent": *closeRequest.ReturnPercent,
	}
	if err := h.db.Model(&signal).Updates(updates).Error; err != nil {
		http.Error(w, "Error closing signal", http.StatusInternalServerError)
		return
	}
	signal.Status = closeRequest.Status
	signal.ReturnPercent = closeRequest.ReturnPercent

	activity.RecordRequest(h.db, r, &admin.ID, "signal.close",
		fmt.Sprintf("Closed signal %d (%s) as %s", signal.ID, signal.Pair, signal.Status))

	h.notify("signal.closed", signal)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(signal)
}

// GetSignals returns the feed for subscribed users, newest first. Admins
// always see the feed.
func (h *SignalHandler) GetSignals(w http.ResponseWriter, r *http.Request) {
	user, err := utils.CurrentUser(h.db, r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if user.Role != models.RoleAdmin && !user.HasActiveSubscription(time.Now()) {
		http.Error(w, "Active subscription required", http.StatusForbidden)
		return
	}

	limit := 100
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	query := h.db.Model(&models.Signal{}).
		Where("status <> ?", models.SignalStatusPending)
	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var signals []models.Signal
	if err := query.Order("created_at DESC").Limit(limit).Find(&signals).Error; err != nil {
		http.Error(w, "Error retrieving signals", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"signals": signals,
	})
}

// GetStats aggregates closed trades into win/loss counts and returns.
func (h *SignalHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	var signals []models.Signal
	if err := h.db.
		Where("status IN ?", models.ClosedSignalStatuses).
		Where("return_percent IS NOT NULL").
		Find(&signals).Error; err != nil {
		http.Error(w, "Error retrieving signals", http.StatusInternalServerError)
		return
	}

	stats := ComputeTradeStats(signals)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
