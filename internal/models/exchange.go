package models

import (
	"errors"
	"strings"
)

// ErrUnknownExchange rejects venue names outside the supported set
var ErrUnknownExchange = errors.New("exchange must be BINANCE or IBKR")

// Exchange identifies a supported execution venue
type Exchange string

const (
	ExchangeBinance Exchange = "BINANCE"
	ExchangeIBKR    Exchange = "IBKR"
)

// AllExchanges lists the venues the platform routes to
var AllExchanges = []Exchange{ExchangeBinance, ExchangeIBKR}

// ParseExchange normalizes a user-supplied exchange name
func ParseExchange(s string) (Exchange, bool) {
	switch Exchange(strings.ToUpper(strings.TrimSpace(s))) {
	case ExchangeBinance:
		return ExchangeBinance, true
	case ExchangeIBKR:
		return ExchangeIBKR, true
	}
	return "", false
}

// InferExchange maps a symbol to its venue. USDT-quoted symbols route to
// Binance, everything else is treated as an IBKR equity symbol.
func InferExchange(symbol string) Exchange {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if strings.HasSuffix(s, "USDT") || strings.Contains(s, "/USDT") {
		return ExchangeBinance
	}
	return ExchangeIBKR
}
