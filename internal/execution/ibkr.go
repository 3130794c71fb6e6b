package execution

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// IBKRClient submits paper test orders. With a bridge URL configured it
// POSTs a signed body to the paper gateway; without one it falls back to
// a deterministic local simulation that moves no money.
type IBKRClient struct {
	bridgeURL  string
	httpClient *http.Client
}

// NewIBKRClient creates a new IBKRClient. bridgeURL may be empty.
func NewIBKRClient(bridgeURL string) *IBKRClient {
	return &IBKRClient{
		bridgeURL: strings.TrimRight(bridgeURL, "/"),
		httpClient: &http.Client{
			Timeout: 12 * time.Second,
		},
	}
}

func validateIBKRInputs(apiKey, apiSecret, symbol string, qty float64) error {
	if len(apiKey) < 8 {
		return fmt.Errorf("ibkr api_key seems invalid (too short)")
	}
	if len(apiSecret) < 8 {
		return fmt.Errorf("ibkr api_secret seems invalid (too short)")
	}
	if symbol == "" || !isAlphanumeric(symbol) {
		return fmt.Errorf("ibkr symbol must be alphanumeric (e.g. AAPL)")
	}
	if qty <= 0 {
		return fmt.Errorf("ibkr quantity must be > 0")
	}
	return nil
}

func isAlphanumeric(s string) bool {
	for _, r := range s {
		if !(r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

// buildOrderRef derives a stable reference so retried test orders are
// recognizable in logs without storing anything
func buildOrderRef(apiKey, symbol, side string, qty float64) string {
	material := fmt.Sprintf("%s|%s|%s|%g", apiKey, strings.ToUpper(symbol), strings.ToUpper(side), qty)
	sum := sha256.Sum256([]byte(material))
	return hex.EncodeToString(sum[:])[:16]
}

// SendTestOrder validates inputs and submits the paper test order
func (c *IBKRClient) SendTestOrder(ctx context.Context, apiKey, apiSecret, symbol, side string, qty float64) (*TestOrderResult, error) {
	if err := validateIBKRInputs(apiKey, apiSecret, symbol, qty); err != nil {
		return nil, err
	}
	orderRef := buildOrderRef(apiKey, symbol, side, qty)

	if c.bridgeURL == "" {
		return &TestOrderResult{Sent: true, Mode: "paper_simulated_test", OrderRef: orderRef}, nil
	}

	payload, err := json.Marshal(map[string]interface{}{
		"symbol":    strings.ToUpper(symbol),
		"side":      strings.ToUpper(side),
		"qty":       qty,
		"order_ref": orderRef,
		"mode":      "paper_test",
	})
	if err != nil {
		return nil, err
	}

	mac := hmac.New(sha256.New, []byte(apiSecret))
	mac.Write(payload)
	signature := hex.EncodeToString(mac.Sum(nil))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.bridgeURL+"/ibkr/paper/test-order", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", apiKey)
	req.Header.Set("X-SIGNATURE", signature)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ibkr bridge error %d: %s", resp.StatusCode, string(detail))
	}

	return &TestOrderResult{Sent: true, Mode: "paper_bridge_test", OrderRef: orderRef}, nil
}
