package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/riskgate/internal/execution"
	"github.com/riskgate/internal/models"
)

var (
	// ErrUpstreamAdapter wraps execution adapter failures; handlers map
	// it to a gateway-class status. Never retried automatically.
	ErrUpstreamAdapter = errors.New("execution adapter failure")
)

// PrepareRequest is the dry-run execution request
type PrepareRequest struct {
	Exchange string  `json:"exchange" binding:"required"`
	Symbol   string  `json:"symbol" binding:"required"`
	Side     string  `json:"side" binding:"required,oneof=BUY SELL"`
	Qty      float64 `json:"qty" binding:"required,gt=0"`
}

// PrepareResult previews what an execution would sign without touching
// any exchange. The raw credentials never appear in the response.
type PrepareResult struct {
	Mode             string          `json:"mode"`
	Exchange         models.Exchange `json:"exchange"`
	Symbol           string          `json:"symbol"`
	Side             string          `json:"side"`
	Qty              float64         `json:"qty"`
	APIKeyMasked     string          `json:"api_key_masked"`
	SignaturePreview string          `json:"signature_preview"`
}

// TestOrderRequest is a per-exchange test order request
type TestOrderRequest struct {
	Symbol string  `json:"symbol" binding:"required"`
	Side   string  `json:"side" binding:"required,oneof=BUY SELL"`
	Qty    float64 `json:"qty" binding:"required,gt=0"`
}

// TestOrderResponse mirrors the adapter outcome back to the caller
type TestOrderResponse struct {
	Exchange models.Exchange `json:"exchange"`
	Mode     string          `json:"mode"`
	Symbol   string          `json:"symbol"`
	Side     string          `json:"side"`
	Qty      float64         `json:"qty"`
	Sent     bool            `json:"sent"`
	OrderRef string          `json:"order_ref,omitempty"`
}

// ExecutionService fronts the outbound exchange adapters with the
// account gates: exchange enabled for the user, kill-switch on,
// credentials configured.
type ExecutionService struct {
	strategy *StrategyService
	controls *ControlsService
	secrets  *SecretService
	audit    *AuditService
	binance  execution.BinanceAdapter
	ibkr     execution.IBKRAdapter
}

// NewExecutionService creates a new ExecutionService
func NewExecutionService(
	strategy *StrategyService,
	controls *ControlsService,
	secrets *SecretService,
	audit *AuditService,
	binance execution.BinanceAdapter,
	ibkr execution.IBKRAdapter,
) *ExecutionService {
	return &ExecutionService{
		strategy: strategy,
		controls: controls,
		secrets:  secrets,
		audit:    audit,
		binance:  binance,
		ibkr:     ibkr,
	}
}

func maskAPIKey(value string) string {
	if len(value) <= 6 {
		return strings.Repeat("*", len(value))
	}
	return value[:3] + "***" + value[len(value)-3:]
}

// Prepare builds a deterministic dry-run signature preview so operators
// can verify credentials without sending anything
func (s *ExecutionService) Prepare(user *models.User, req *PrepareRequest) (*PrepareResult, error) {
	exchange, ok := models.ParseExchange(req.Exchange)
	if !ok {
		return nil, models.ErrUnknownExchange
	}
	if err := s.strategy.AssertEnabled(user.ID, exchange); err != nil {
		return nil, err
	}
	if err := s.controls.AssertTradingEnabled(user.ID, "execution.prepare", exchange); err != nil {
		return nil, err
	}

	apiKey, apiSecret, err := s.secrets.Decrypt(user.ID, exchange)
	if err != nil {
		return nil, err
	}

	payload := fmt.Sprintf("%s|%s|%s|%g", exchange, req.Symbol, req.Side, req.Qty)
	mac := hmac.New(sha256.New, []byte(apiSecret))
	mac.Write([]byte(payload))
	signature := hex.EncodeToString(mac.Sum(nil))

	if err := s.audit.Record(nil, "execution.prepare", user.ID, "execution", "", map[string]interface{}{
		"exchange": exchange,
		"symbol":   req.Symbol,
		"side":     req.Side,
		"qty":      req.Qty,
	}); err != nil {
		return nil, err
	}

	return &PrepareResult{
		Mode:             "dry_run",
		Exchange:         exchange,
		Symbol:           req.Symbol,
		Side:             req.Side,
		Qty:              req.Qty,
		APIKeyMasked:     maskAPIKey(apiKey),
		SignaturePreview: signature[:12],
	}, nil
}

// BinanceTestOrder sends a signed test order to the Binance testnet
func (s *ExecutionService) BinanceTestOrder(ctx context.Context, user *models.User, req *TestOrderRequest) (*TestOrderResponse, error) {
	return s.testOrder(ctx, user, models.ExchangeBinance, req)
}

// IBKRTestOrder sends a paper test order through the IBKR adapter
func (s *ExecutionService) IBKRTestOrder(ctx context.Context, user *models.User, req *TestOrderRequest) (*TestOrderResponse, error) {
	return s.testOrder(ctx, user, models.ExchangeIBKR, req)
}

func (s *ExecutionService) testOrder(ctx context.Context, user *models.User, exchange models.Exchange, req *TestOrderRequest) (*TestOrderResponse, error) {
	if err := s.strategy.AssertEnabled(user.ID, exchange); err != nil {
		return nil, err
	}
	if err := s.controls.AssertTradingEnabled(user.ID, "execution.test_order", exchange); err != nil {
		return nil, err
	}

	apiKey, apiSecret, err := s.secrets.Decrypt(user.ID, exchange)
	if err != nil {
		return nil, err
	}

	label := strings.ToLower(string(exchange))
	var result *execution.TestOrderResult
	if exchange == models.ExchangeBinance {
		result, err = s.binance.SendTestOrder(ctx, apiKey, apiSecret, req.Symbol, req.Side, req.Qty)
	} else {
		result, err = s.ibkr.SendTestOrder(ctx, apiKey, apiSecret, req.Symbol, req.Side, req.Qty)
	}
	if err != nil {
		if auditErr := s.audit.Record(nil, "execution."+label+".test_order.error", user.ID, "execution", "", map[string]interface{}{
			"symbol": req.Symbol,
			"side":   req.Side,
			"qty":    req.Qty,
			"error":  err.Error(),
		}); auditErr != nil {
			warnf("audit test_order error: %v", auditErr)
		}
		return nil, fmt.Errorf("%w: %s test order failed: %v", ErrUpstreamAdapter, label, err)
	}

	if err := s.audit.Record(nil, "execution."+label+".test_order.success", user.ID, "execution", "", map[string]interface{}{
		"symbol":    req.Symbol,
		"side":      req.Side,
		"qty":       req.Qty,
		"mode":      result.Mode,
		"order_ref": result.OrderRef,
	}); err != nil {
		return nil, err
	}

	return &TestOrderResponse{
		Exchange: exchange,
		Mode:     result.Mode,
		Symbol:   strings.ToUpper(req.Symbol),
		Side:     strings.ToUpper(req.Side),
		Qty:      req.Qty,
		Sent:     result.Sent,
		OrderRef: result.OrderRef,
	}, nil
}
