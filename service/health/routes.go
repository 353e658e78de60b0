package health

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db *gorm.DB
}

func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.GetHealth).Methods("GET")
}

// GetHealth runs a single connectivity probe against the database. No retry.
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.Ping()
	}

	if err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "unhealthy",
			"error":  err.Error(),
			"time":   time.Now().UTC(),
		})
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":   "healthy",
		"database": "connected",
		"time":     time.Now().UTC(),
	})
}
