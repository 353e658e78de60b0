package payment

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"
)

const razorpayBaseURL = "https://api.razorpay.com/v1"

// RazorpayClient talks to the Razorpay Orders API with basic auth.
type RazorpayClient struct {
	keyID      string
	keySecret  string
	httpClient *http.Client
}

var (
	gatewayOnce sync.Once
	gateway     *RazorpayClient
	gatewayErr  error
)

// Gateway returns the process-wide Razorpay client, created at most once.
func Gateway() (*RazorpayClient, error) {
	gatewayOnce.Do(func() {
		keyID := os.Getenv("RAZORPAY_KEY_ID")
		keySecret := os.Getenv("RAZORPAY_KEY_SECRET")
		if keyID == "" || keySecret == "" {
			gatewayErr = errors.New("RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET must be set")
			return
		}
		gateway = &RazorpayClient{
			keyID:      keyID,
			keySecret:  keySecret,
			httpClient: &http.Client{Timeout: 15 * time.Second},
		}
	})
	return gateway, gatewayErr
}

func (c *RazorpayClient) KeyID() string {
	return c.keyID
}

// CreateOrder creates a gateway order. Amount is in the currency's smallest
// unit (paise for INR).
func (c *RazorpayClient) CreateOrder(amount int64, currency, receipt string) (string, error) {
	payload := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest("POST", razorpayBaseURL+"/orders", bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var orderResp struct {
		ID    string `json:"id"`
		Error struct {
			Description string `json:"description"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&orderResp); err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK || orderResp.ID == "" {
		if orderResp.Error.Description != "" {
			return "", fmt.Errorf("razorpay order failed: %s", orderResp.Error.Description)
		}
		return "", fmt.Errorf("razorpay order failed with status %d", resp.StatusCode)
	}

	return orderResp.ID, nil
}

// VerifyPaymentSignature checks the checkout callback signature: an
// HMAC-SHA256 of "order_id|payment_id" keyed with the gateway secret.
func VerifyPaymentSignature(orderID, paymentID, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
