package subscription

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/signaldesk/signaldesk-server/cmd/models"
	"github.com/signaldesk/signaldesk-server/cmd/utils"
)

// Response is a standardized API response structure
type Response struct {
	Data  interface{} `json:"data,omitempty"`
	Meta  interface{} `json:"meta,omitempty"`
	Error string      `json:"error,omitempty"`
}

// SubscriptionFilter represents all possible filters for subscriptions
type SubscriptionFilter struct {
	UserID    uint
	Plan      string
	Status    string
	IsExpired *bool // nil (not filtered), true, false
}

// SubscriptionResponse extends the subscription model with calculated fields
type SubscriptionResponse struct {
	models.Subscription
	IsExpired bool `json:"is_expired"`
}

type SubscriptionHandler struct {
	db *gorm.DB
}

func NewSubscriptionHandler(db *gorm.DB) *SubscriptionHandler {
	return &SubscriptionHandler{db: db}
}

func (h *SubscriptionHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/admin/subscriptions", utils.AuthMiddleware(h.GetSubscriptions)).Methods("GET")
	router.HandleFunc("/subscriptions/me", utils.AuthMiddleware(h.GetMySubscription)).Methods("GET")
}

// GetSubscriptions handles retrieving subscriptions with various filters
func (h *SubscriptionHandler) GetSubscriptions(w http.ResponseWriter, r *http.Request) {
	if _, err := utils.RequireAdmin(h.db, r); err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	var filter SubscriptionFilter
	queryParams := r.URL.Query()

	if userIDStr := queryParams.Get("user_id"); userIDStr != "" {
		userID, err := strconv.ParseUint(userIDStr, 10, 32)
		if err == nil {
			filter.UserID = uint(userID)
		}
	}

	filter.Plan = queryParams.Get("plan")
	filter.Status = queryParams.Get("status")

	if expiredStr := queryParams.Get("expired"); expiredStr != "" {
		isExpired, err := strconv.ParseBool(expiredStr)
		if err != nil {
			h.respondWithError(w, http.StatusBadRequest, "Invalid expired parameter. Use 'true' or 'false'")
			return
		}
		filter.IsExpired = &isExpired
	}

	query := h.db.Model(&models.Subscription{}).Preload("User")
	query = h.applySubscriptionFilters(query, filter)

	page := 1
	if pageStr := queryParams.Get("page"); pageStr != "" {
		if pageVal, err := strconv.Atoi(pageStr); err == nil && pageVal > 0 {
			page = pageVal
		}
	}

	pageSize := 10
	if pageSizeStr := queryParams.Get("page_size"); pageSizeStr != "" {
		if pageSizeVal, err := strconv.Atoi(pageSizeStr); err == nil && pageSizeVal > 0 && pageSizeVal <= 100 {
			pageSize = pageSizeVal
		}
	}

	offset := (page - 1) * pageSize

	var total int64
	query.Count(&total)

	var subscriptions []models.Subscription
	result := query.Order("created_at DESC").Limit(pageSize).Offset(offset).Find(&subscriptions)
	if result.Error != nil {
		h.respondWithError(w, http.StatusInternalServerError, "Failed to retrieve subscriptions")
		return
	}

	responseSubscriptions := make([]SubscriptionResponse, 0, len(subscriptions))
	now := time.Now()
	for _, sub := range subscriptions {
		responseSubscriptions = append(responseSubscriptions, SubscriptionResponse{
			Subscription: sub,
			IsExpired:    sub.EndDate.Before(now),
		})
	}

	meta := map[string]interface{}{
		"total":     total,
		"page":      page,
		"page_size": pageSize,
		"pages":     (total + int64(pageSize) - 1) / int64(pageSize),
	}

	h.respondWithJSON(w, http.StatusOK, Response{
		Data: responseSubscriptions,
		Meta: meta,
	})
}

// GetMySubscription returns the caller's active subscription, preferring
// the one that expires last.
func (h *SubscriptionHandler) GetMySubscription(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	now := time.Now()
	var subscription models.Subscription

	err = h.db.Where("user_id = ? AND end_date >= ? AND status = ?", userID, now, "active").
		Order("end_date DESC").
		First(&subscription).Error
	if err != nil {
		h.respondWithError(w, http.StatusNotFound, "No active subscription found")
		return
	}

	response := SubscriptionResponse{
		Subscription: subscription,
		IsExpired:    false,
	}

	h.respondWithJSON(w, http.StatusOK, Response{Data: response})
}

// applySubscriptionFilters applies filters to a subscription query
func (h *SubscriptionHandler) applySubscriptionFilters(query *gorm.DB, filter SubscriptionFilter) *gorm.DB {
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}

	if filter.Plan != "" {
		query = query.Where("plan = ?", filter.Plan)
	}

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	now := time.Now()
	if filter.IsExpired != nil {
		if *filter.IsExpired {
			query = query.Where("end_date < ?", now)
		} else {
			query = query.Where("end_date >= ?", now)
		}
	}

	return query
}

func (h *SubscriptionHandler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, Response{Error: message})
}

func (h *SubscriptionHandler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
