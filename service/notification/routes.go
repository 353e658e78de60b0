package notification

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	expo "github.com/oliveroneill/exponent-server-sdk-golang/sdk"
	"gorm.io/gorm"

	"github.com/signaldesk/signaldesk-server/cmd/models"
	"github.com/signaldesk/signaldesk-server/cmd/utils"
)

// NotificationHandler registers push devices and fans signal events out to
// them through Expo.
type NotificationHandler struct {
	db         *gorm.DB
	expoClient *expo.PushClient
}

func NewNotificationHandler(db *gorm.DB) *NotificationHandler {
	return &NotificationHandler{
		db:         db,
		expoClient: expo.NewPushClient(nil),
	}
}

func (h *NotificationHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/devices", utils.AuthMiddleware(h.RegisterDevice)).Methods("POST")
	router.HandleFunc("/devices/{id:[0-9]+}", utils.AuthMiddleware(h.DeleteDevice)).Methods("DELETE")
	router.HandleFunc("/users/{userId:[0-9]+}/devices", utils.AuthMiddleware(h.GetUserDevices)).Methods("GET")
}

// RegisterDevice registers the caller's device for push notifications.
func (h *NotificationHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var device models.Device
	if err := json.NewDecoder(r.Body).Decode(&device); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	device.UserID = userID

	if device.Token == "" {
		http.Error(w, "Token is required", http.StatusBadRequest)
		return
	}

	// Validate the Expo push token format
	if _, err := expo.NewExponentPushToken(device.Token); err != nil {
		http.Error(w, "Invalid Expo push token format", http.StatusBadRequest)
		return
	}

	var existingDevice models.Device
	result := h.db.Where("token = ? AND user_id = ?", device.Token, device.UserID).First(&existingDevice)

	if result.Error == nil {
		existingDevice.UpdatedAt = time.Now()
		existingDevice.DeviceType = device.DeviceType
		existingDevice.DeviceName = device.DeviceName
		if err := h.db.Save(&existingDevice).Error; err != nil {
			http.Error(w, "Error updating device", http.StatusInternalServerError)
			return
		}
		device = existingDevice
	} else {
		if err := h.db.Create(&device).Error; err != nil {
			http.Error(w, "Error creating device", http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Device registered successfully",
		"device":  device,
	})
}

// GetUserDevices gets all devices for a specific user
func (h *NotificationHandler) GetUserDevices(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID, err := strconv.ParseUint(vars["userId"], 10, 32)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	caller, err := utils.CurrentUser(h.db, r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if caller.Role != models.RoleAdmin && caller.ID != uint(userID) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var devices []models.Device
	if err := h.db.Where("user_id = ?", userID).Find(&devices).Error; err != nil {
		http.Error(w, "Error retrieving devices", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(devices)
}

// DeleteDevice deletes a device token
func (h *NotificationHandler) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	deviceID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid device ID", http.StatusBadRequest)
		return
	}

	result := h.db.Where("user_id = ?", userID).Delete(&models.Device{}, deviceID)
	if result.Error != nil {
		http.Error(w, "Error deleting device", http.StatusInternalServerError)
		return
	}

	if result.RowsAffected == 0 {
		http.Error(w, "Device not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Device deleted successfully",
	})
}

// PushSignal broadcasts a published or closed signal to every registered
// device. Best-effort: errors are logged, never surfaced to the caller.
func (h *NotificationHandler) PushSignal(signal models.Signal) {
	var devices []models.Device
	if err := h.db.Find(&devices).Error; err != nil {
		log.Printf("Error loading devices for signal push: %v", err)
		return
	}
	if len(devices) == 0 {
		return
	}

	tokens := make([]string, 0, len(devices))
	for _, device := range devices {
		tokens = append(tokens, device.Token)
	}

	title := fmt.Sprintf("New signal: %s %s", signal.Pair, signal.Direction)
	body := fmt.Sprintf("Entry %.4f, target %.4f, stop %.4f", signal.EntryPrice, signal.TargetPrice, signal.StopLoss)
	if models.IsClosedStatus(signal.Status) {
		title = fmt.Sprintf("Signal closed: %s", signal.Pair)
		body = fmt.Sprintf("Status %s", signal.Status)
		if signal.ReturnPercent != nil {
			body = fmt.Sprintf("Status %s, return %.2f%%", signal.Status, *signal.ReturnPercent)
		}
	}

	data := map[string]string{
		"signal_id": fmt.Sprintf("%d", signal.ID),
		"status":    signal.Status,
	}

	if err := h.sendExpoNotification(tokens, title, body, data); err != nil {
		log.Printf("Error pushing signal %d: %v", signal.ID, err)
	}
}

// sendExpoNotification sends a push message to the given tokens via Expo.
func (h *NotificationHandler) sendExpoNotification(tokenStrings []string, title, body string, data map[string]string) error {
	var validTokens []expo.ExponentPushToken
	var invalidTokens []string

	for _, tokenString := range tokenStrings {
		pushToken, err := expo.NewExponentPushToken(tokenString)
		if err != nil {
			log.Printf("Invalid push token format %s: %v", tokenString, err)
			invalidTokens = append(invalidTokens, tokenString)
			continue
		}
		validTokens = append(validTokens, pushToken)
	}

	if len(validTokens) == 0 {
		return fmt.Errorf("no valid push tokens found")
	}

	pushMessage := &expo.PushMessage{
		To:       validTokens,
		Body:     body,
		Title:    title,
		Sound:    "default",
		Priority: expo.DefaultPriority,
		Data:     data,
	}

	response, err := h.expoClient.Publish(pushMessage)
	if err != nil {
		return fmt.Errorf("failed to publish notification: %v", err)
	}

	if validationErr := response.ValidateResponse(); validationErr != nil {
		h.cleanupInvalidTokens(invalidTokens)
		return fmt.Errorf("notification validation failed: %v", validationErr)
	}

	if len(invalidTokens) > 0 {
		h.cleanupInvalidTokens(invalidTokens)
	}

	return nil
}

func (h *NotificationHandler) cleanupInvalidTokens(tokens []string) {
	for _, token := range tokens {
		if err := h.db.Where("token = ?", token).Delete(&models.Device{}).Error; err != nil {
			log.Printf("Error cleaning up invalid token %s: %v", token, err)
		}
	}
}
