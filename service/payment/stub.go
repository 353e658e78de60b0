package payment

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/google/uuid"
)

// CreateStubOrder is a simulated order-creation path guarded by an OAuth
// credential. It does not touch the Razorpay client used by the rest of the
// payment flow.
// TODO: reconcile with the Razorpay order flow or remove once the OAuth
// integration is decided.
func (h *PaymentHandler) CreateStubOrder(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if os.Getenv("OAUTH_TOKEN") == "" {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "Missing OAUTH_TOKEN credential",
		})
		return
	}

	var orderRequest struct {
		Amount float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&orderRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	order, err := simulateProcessorOrder(orderRequest.Amount)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "Order creation failed",
		})
		return
	}

	json.NewEncoder(w).Encode(order)
}

// simulateProcessorOrder stands in for a real processor call.
func simulateProcessorOrder(amount float64) (map[string]interface{}, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("invalid amount %f", amount)
	}
	return map[string]interface{}{
		"id":     "order_sim_" + uuid.NewString(),
		"amount": amount,
		"status": "created",
	}, nil
}
