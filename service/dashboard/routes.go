package dashboard

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/signaldesk/signaldesk-server/cmd/models"
	"github.com/signaldesk/signaldesk-server/cmd/utils"
)

type DashboardHandler struct {
	db *gorm.DB
}

func NewDashboardHandler(db *gorm.DB) *DashboardHandler {
	return &DashboardHandler{db: db}
}

type DashboardStats struct {
	TotalUsers        int64            `json:"total_users"`
	ActiveSubscribers int64            `json:"active_subscribers"`
	TotalSignals      int64            `json:"total_signals"`
	SignalsByStatus   map[string]int64 `json:"signals_by_status"`
	TotalRevenue      float64          `json:"total_revenue"`
}

func (h *DashboardHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/admin/dashboard", utils.AuthMiddleware(h.GetDashboardStats)).Methods("GET")
}

func (h *DashboardHandler) GetDashboardStats(w http.ResponseWriter, r *http.Request) {
	if _, err := utils.RequireAdmin(h.db, r); err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	stats := DashboardStats{
		SignalsByStatus: make(map[string]int64),
	}

	h.db.Model(&models.User{}).Where("role = ?", models.RoleUser).Count(&stats.TotalUsers)

	h.db.Model(&models.User{}).
		Where("subscription_status = ? AND subscription_expiry > ?", models.SubscriptionActive, time.Now()).
		Count(&stats.ActiveSubscribers)

	h.db.Model(&models.Signal{}).Count(&stats.TotalSignals)

	var statusCounts []struct {
		Status string
		Count  int64
	}
	h.db.Model(&models.Signal{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&statusCounts)
	for _, row := range statusCounts {
		stats.SignalsByStatus[row.Status] = row.Count
	}

	// Revenue comes from locally stored captured payments
	var revenue *float64
	h.db.Model(&models.Payment{}).
		Where("status = ?", models.PaymentStatusCaptured).
		Select("SUM(amount)").
		Scan(&revenue)
	if revenue != nil {
		stats.TotalRevenue = *revenue
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
