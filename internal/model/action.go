package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind classifies a ledger entry.
// Keep these values stable; they are written to CSV and to the result store.
type TransactionKind string

const (
	KindBuy        TransactionKind = "BUY"
	KindSell       TransactionKind = "SELL"
	KindRebalance  TransactionKind = "REBALANCE"
	KindFee        TransactionKind = "FEE"
	KindDeposit    TransactionKind = "DEPOSIT"
	KindWithdrawal TransactionKind = "WITHDRAWAL"
	KindDividend   TransactionKind = "DIVIDEND"
	KindSplit      TransactionKind = "SPLIT"
)

// KindFromShares maps a signed share delta to BUY or SELL.
func KindFromShares(shares decimal.Decimal) TransactionKind {
	if shares.IsNegative() {
		return KindSell
	}
	return KindBuy
}

// Position is a holding in one symbol. Shares may be negative (short).
type Position struct {
	Symbol    string          `json:"symbol"`
	Shares    decimal.Decimal `json:"shares"`
	CostBasis decimal.Decimal `json:"cost_basis"`
}

// Value returns shares x price.
func (p Position) Value(price decimal.Decimal) decimal.Decimal {
	return p.Shares.Mul(price)
}

// Transaction is one append-only ledger entry.
//
// Shares is always a magnitude; the direction is carried by Kind.
// For SPLIT, Amount holds the split ratio.
type Transaction struct {
	ID        string          `json:"id"`
	Seq       int             `json:"seq"`
	Symbol    string          `json:"symbol,omitempty"`
	Kind      TransactionKind `json:"kind"`
	Shares    decimal.Decimal `json:"shares"`
	Price     decimal.Decimal `json:"price"`
	Amount    decimal.Decimal `json:"amount"`
	Cost      decimal.Decimal `json:"cost"`
	Timestamp time.Time       `json:"timestamp"`
}

// Notional returns shares x price.
func (t Transaction) Notional() decimal.Decimal {
	return t.Shares.Mul(t.Price)
}

// NetCashImpact is the signed change in cash this transaction causes.
func (t Transaction) NetCashImpact() decimal.Decimal {
	switch t.Kind {
	case KindBuy:
		return t.Notional().Add(t.Cost).Neg()
	case KindSell:
		return t.Notional().Sub(t.Cost)
	case KindDeposit, KindDividend:
		return t.Amount.Sub(t.Cost)
	case KindWithdrawal:
		return t.Amount.Add(t.Cost).Neg()
	default:
		// FEE, SPLIT and REBALANCE only move cash by their cost.
		return t.Cost.Neg()
	}
}

// Before orders transactions by timestamp, ties broken by insertion order.
func (t Transaction) Before(o Transaction) bool {
	if !t.Timestamp.Equal(o.Timestamp) {
		return t.Timestamp.Before(o.Timestamp)
	}
	return t.Seq < o.Seq
}
