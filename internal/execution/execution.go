// Package execution holds the outbound exchange adapters. Adapters are
// external collaborators: a failure is reported to the caller and
// audited, never retried automatically.
package execution

import "context"

// TestOrderResult is the adapter-level outcome of a test order
type TestOrderResult struct {
	Sent     bool
	Mode     string
	OrderRef string
}

// BinanceAdapter sends signed test orders to the Binance testnet
type BinanceAdapter interface {
	SendTestOrder(ctx context.Context, apiKey, apiSecret, symbol, side string, qty float64) (*TestOrderResult, error)
}

// IBKRAdapter sends paper test orders, either to a configured bridge or
// as a deterministic local simulation
type IBKRAdapter interface {
	SendTestOrder(ctx context.Context, apiKey, apiSecret, symbol, side string, qty float64) (*TestOrderResult, error)
}
