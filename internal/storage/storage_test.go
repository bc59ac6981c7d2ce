package storage

import (
	"path/filepath"
	"testing"
	"time"

	"portfolio-backtest/internal/backtest"
	"portfolio-backtest/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult(name string, final int64) *backtest.Result {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)
	curve := []backtest.EquityPoint{
		{Date: start, TotalValue: decimal.NewFromInt(1000), Cash: decimal.Zero, PositionCount: 1},
		{Date: end, TotalValue: decimal.NewFromInt(final), Cash: decimal.Zero, PositionCount: 1},
	}
	txs := []model.Transaction{{
		ID:        "tx-1",
		Symbol:    "A",
		Kind:      model.KindBuy,
		Shares:    decimal.NewFromInt(10),
		Price:     decimal.NewFromInt(100),
		Timestamp: start,
	}}
	return backtest.NewResult(name, start, end, decimal.NewFromInt(1000), txs, curve, map[string]string{"policy": name})
}

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()
	s := openStore(t)
	r := sampleResult("fixed", 1100)
	require.NoError(t, s.SaveResult(r))

	got, err := s.GetResult(r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
	assert.Equal(t, "fixed", got.StrategyName)
	assert.True(t, got.FinalValue.Equal(r.FinalValue))
	assert.True(t, got.StartDate.Equal(r.StartDate))
	require.Len(t, got.Transactions, 1)
	assert.Equal(t, model.KindBuy, got.Transactions[0].Kind)
	assert.True(t, got.Transactions[0].Shares.Equal(decimal.NewFromInt(10)))
	assert.InDelta(t, 10.0, got.TotalReturnPct, 1e-9)
	assert.Equal(t, r.Values(), got.Values())

	_, err = s.GetResult("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreListAndDelete(t *testing.T) {
	t.Parallel()
	s := openStore(t)
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	older := sampleResult("first", 900)
	newer := sampleResult("second", 1200)
	require.NoError(t, s.SaveResult(older))
	require.NoError(t, s.SaveResult(newer))

	list, err := s.ListResults(0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, "1200", list[0].FinalValue)
	assert.Equal(t, older.ID, list[1].ID)

	list, err = s.ListResults(1)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.DeleteResult(older.ID))
	assert.ErrorIs(t, s.DeleteResult(older.ID), ErrNotFound)
	list, err = s.ListResults(0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestResultCache(t *testing.T) {
	t.Parallel()
	c := NewResultCache(time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	r := sampleResult("fixed", 1000)
	c.Set("k", r)
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Same(t, r, got)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, 0, c.Len())

	c.Set(r.ID, r)
	c.Set("request-hash", r)
	c.Set("other", sampleResult("momentum", 2000))
	assert.Equal(t, 2, c.Evict(r.ID), "aliases go with the ID")
	assert.Equal(t, 1, c.Len())
	_, ok = c.Get("request-hash")
	assert.False(t, ok)
	assert.Zero(t, c.Evict(r.ID))
}

func TestDisabledCache(t *testing.T) {
	t.Parallel()
	var c *ResultCache = NewResultCache(0)
	assert.Nil(t, c)
	c.Set("k", sampleResult("x", 1))
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Sweep())
}

func TestCacheKeyIsStable(t *testing.T) {
	t.Parallel()
	a := CacheKey(map[string]any{"strategy": "fixed", "cash": 1000})
	b := CacheKey(map[string]any{"cash": 1000, "strategy": "fixed"})
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, CacheKey(map[string]any{"strategy": "momentum"}))
}
