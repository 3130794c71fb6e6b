package execution

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// BinanceClient sends signed requests to the Binance spot testnet.
// Only the no-side-effect /order/test endpoint is used.
type BinanceClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewBinanceClient creates a new BinanceClient
func NewBinanceClient(baseURL string) *BinanceClient {
	return &BinanceClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SendTestOrder submits a signed MARKET test order. Binance validates
// the order without placing it.
func (c *BinanceClient) SendTestOrder(ctx context.Context, apiKey, apiSecret, symbol, side string, qty float64) (*TestOrderResult, error) {
	params := url.Values{}
	params.Set("symbol", strings.ToUpper(symbol))
	params.Set("side", strings.ToUpper(side))
	params.Set("type", "MARKET")
	params.Set("quantity", strconv.FormatFloat(qty, 'f', -1, 64))
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))

	query := params.Encode()
	mac := hmac.New(sha256.New, []byte(apiSecret))
	mac.Write([]byte(query))
	signature := hex.EncodeToString(mac.Sum(nil))

	reqURL := fmt.Sprintf("%s/api/v3/order/test?%s&signature=%s", c.baseURL, query, signature)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-MBX-APIKEY", apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("binance testnet error %d: %s", resp.StatusCode, string(detail))
	}

	return &TestOrderResult{Sent: true, Mode: "testnet_order_test"}, nil
}
