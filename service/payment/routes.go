package payment

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/signaldesk/signaldesk-server/cmd/models"
	"github.com/signaldesk/signaldesk-server/cmd/utils"
	"github.com/signaldesk/signaldesk-server/service/activity"
)

// planDurations maps subscription plans to their length.
var planDurations = map[string]time.Duration{
	"monthly":   30 * 24 * time.Hour,
	"quarterly": 90 * 24 * time.Hour,
	"yearly":    365 * 24 * time.Hour,
}

// toPaise converts a rupee amount to the gateway's smallest unit. Rounded,
// not truncated: 4.35 rupees is 435 paise, not 434.
func toPaise(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

type PaymentHandler struct {
	db *gorm.DB
}

func NewPaymentHandler(db *gorm.DB) *PaymentHandler {
	return &PaymentHandler{db: db}
}

func (h *PaymentHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/admin/payments", utils.AuthMiddleware(h.GetPayments)).Methods("GET")
	router.HandleFunc("/payments/order", utils.AuthMiddleware(h.CreateOrder)).Methods("POST")
	router.HandleFunc("/payments/verify", utils.AuthMiddleware(h.VerifyPayment)).Methods("POST")
	router.HandleFunc("/orders", h.CreateStubOrder).Methods("POST")
}

// GetPayments returns all payment records newest-first, joined with the
// paying user's name and email.
func (h *PaymentHandler) GetPayments(w http.ResponseWriter, r *http.Request) {
	if _, err := utils.RequireAdmin(h.db, r); err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var payments []models.Payment
	if err := h.db.Preload("User").Order("created_at DESC").Find(&payments).Error; err != nil {
		http.Error(w, "Error retrieving payments", http.StatusInternalServerError)
		return
	}

	response := make([]map[string]interface{}, 0, len(payments))
	for _, p := range payments {
		response = append(response, map[string]interface{}{
			"id":         p.ID,
			"user_id":    p.UserID,
			"amount":     p.Amount,
			"currency":   p.Currency,
			"plan":       p.Plan,
			"status":     p.Status,
			"order_id":   p.OrderID,
			"created_at": p.CreatedAt,
			"user": map[string]interface{}{
				"full_name": p.User.FullName,
				"email":     p.User.Email,
			},
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"payments": response,
	})
}

// CreateOrder opens a gateway order for a subscription plan and records the
// pending payment.
func (h *PaymentHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	user, err := utils.CurrentUser(h.db, r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var orderRequest struct {
		Plan   string  `json:"plan"`
		Amount float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&orderRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if _, ok := planDurations[orderRequest.Plan]; !ok {
		http.Error(w, "Unknown plan", http.StatusBadRequest)
		return
	}
	if orderRequest.Amount <= 0 {
		http.Error(w, "Amount must be positive", http.StatusBadRequest)
		return
	}

	client, err := Gateway()
	if err != nil {
		log.Printf("Payment gateway unavailable: %v", err)
		http.Error(w, "Payment gateway not configured", http.StatusInternalServerError)
		return
	}

	receipt := fmt.Sprintf("sub_%s", uuid.NewString())

	payment := models.Payment{
		UserID:   user.ID,
		Amount:   orderRequest.Amount,
		Currency: "INR",
		Plan:     orderRequest.Plan,
		Status:   models.PaymentStatusCreated,
		Receipt:  receipt,
	}
	if err := h.db.Create(&payment).Error; err != nil {
		http.Error(w, "Error creating payment", http.StatusInternalServerError)
		return
	}

	orderID, err := client.CreateOrder(toPaise(orderRequest.Amount), payment.Currency, receipt)
	if err != nil {
		log.Printf("Error creating gateway order: %v", err)
		h.db.Model(&payment).Update("status", models.PaymentStatusFailed)
		http.Error(w, "Error initializing payment", http.StatusInternalServerError)
		return
	}

	if err := h.db.Model(&payment).Update("order_id", orderID).Error; err != nil {
		http.Error(w, "Error saving order", http.StatusInternalServerError)
		return
	}

	activity.RecordRequest(h.db, r, &user.ID, "payment.order",
		fmt.Sprintf("Created %s order %s", orderRequest.Plan, orderID))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"order_id": orderID,
		"key_id":   client.KeyID(),
		"amount":   payment.Amount,
		"currency": payment.Currency,
	})
}

// VerifyPayment validates the checkout signature, marks the payment captured
// and activates the caller's subscription.
func (h *PaymentHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	user, err := utils.CurrentUser(h.db, r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var verifyRequest struct {
		OrderID   string `json:"order_id"`
		PaymentID string `json:"payment_id"`
		Signature string `json:"signature"`
	}
	if err := json.NewDecoder(r.Body).Decode(&verifyRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if verifyRequest.OrderID == "" || verifyRequest.PaymentID == "" || verifyRequest.Signature == "" {
		http.Error(w, "order_id, payment_id and signature are required", http.StatusBadRequest)
		return
	}

	// With no configured secret every signature must fail, not trivially pass.
	secret := os.Getenv("RAZORPAY_KEY_SECRET")
	if secret == "" {
		log.Println("RAZORPAY_KEY_SECRET is not set, refusing payment verification")
		http.Error(w, "Payment gateway not configured", http.StatusInternalServerError)
		return
	}

	if !VerifyPaymentSignature(verifyRequest.OrderID, verifyRequest.PaymentID,
		verifyRequest.Signature, secret) {
		http.Error(w, "Invalid payment signature", http.StatusBadRequest)
		return
	}

	var payment models.Payment
	if err := h.db.Where("order_id = ? AND user_id = ?", verifyRequest.OrderID, user.ID).
		First(&payment).Error; err != nil {
		http.Error(w, "Payment not found", http.StatusNotFound)
		return
	}

	if payment.Status == models.PaymentStatusCaptured {
		http.Error(w, "Payment already verified", http.StatusConflict)
		return
	}

	duration, ok := planDurations[payment.Plan]
	if !ok {
		duration = planDurations["monthly"]
	}

	now := time.Now()
	expiry := now.Add(duration)

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&payment).Updates(map[string]interface{}{
			"status":     models.PaymentStatusCaptured,
			"payment_id": verifyRequest.PaymentID,
		}).Error; err != nil {
			return err
		}

		subscription := models.Subscription{
			UserID:     user.ID,
			Plan:       payment.Plan,
			Amount:     payment.Amount,
			Status:     "active",
			PaymentRef: verifyRequest.PaymentID,
			StartDate:  now,
			EndDate:    expiry,
		}
		if err := tx.Create(&subscription).Error; err != nil {
			return err
		}

		return tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
			"subscription_status": models.SubscriptionActive,
			"subscription_expiry": expiry,
		}).Error
	})
	if err != nil {
		log.Printf("Error activating subscription for user %d: %v", user.ID, err)
		http.Error(w, "Error activating subscription", http.StatusInternalServerError)
		return
	}

	activity.RecordRequest(h.db, r, &user.ID, "payment.captured",
		fmt.Sprintf("Captured payment %s for plan %s", verifyRequest.PaymentID, payment.Plan))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":             "Payment verified",
		"subscription_expiry": expiry,
	})
}
