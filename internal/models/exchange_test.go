package models_test

import (
	"testing"

	"github.com/riskgate/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestInferExchange(t *testing.T) {
	tests := []struct {
		symbol string
		want   models.Exchange
	}{
		{"BTCUSDT", models.ExchangeBinance},
		{"ethusdt", models.ExchangeBinance},
		{"BTC/USDT", models.ExchangeBinance},
		{" SOLUSDT ", models.ExchangeBinance},
		{"AAPL", models.ExchangeIBKR},
		{"MSFT", models.ExchangeIBKR},
		{"USDTBTC", models.ExchangeIBKR},
		{"", models.ExchangeIBKR},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, models.InferExchange(tt.symbol), "symbol %q", tt.symbol)
	}
}

func TestParseExchange(t *testing.T) {
	got, ok := models.ParseExchange("binance")
	assert.True(t, ok)
	assert.Equal(t, models.ExchangeBinance, got)

	got, ok = models.ParseExchange(" IBKR ")
	assert.True(t, ok)
	assert.Equal(t, models.ExchangeIBKR, got)

	_, ok = models.ParseExchange("KRAKEN")
	assert.False(t, ok)
}
