package api

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"portfolio-backtest/internal/api/models"
	"portfolio-backtest/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
}

// flatCSV is a Date,Close table holding price for n days from 2024-01-01.
func flatCSV(price float64, n int) string {
	var b strings.Builder
	b.WriteString("Date,Close\n")
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%s,%g\n", start.AddDate(0, 0, i).Format("2006-01-02"), price)
	}
	return b.String()
}

type fixture struct {
	router *gin.Engine
	store  *storage.Store
}

func newFixture(t *testing.T, persist bool) fixture {
	t.Helper()
	root := t.TempDir()
	dataDir := filepath.Join(root, "data")
	writeFile(t, filepath.Join(dataDir, "a.csv"), flatCSV(100, 6))
	writeFile(t, filepath.Join(dataDir, "bonds", "b.csv"), flatCSV(50, 6))

	configDir := filepath.Join(root, "configs")
	writeFile(t, filepath.Join(configDir, "ab.yaml"), `
symbols: [A, B]
cost_file: costs/zero.yaml
strategy:
  name: fixed
  params:
    weights: {A: 60, B: 40}
backtest:
  initial_cash: 5000
`)
	writeFile(t, filepath.Join(configDir, "costs", "zero.yaml"), "cost:\n  flat_bps: 0\n")
	writeFile(t, filepath.Join(configDir, "broken.yaml"), "strategy: [\n")

	var store *storage.Store
	if persist {
		var err error
		store, err = storage.Open(filepath.Join(root, "results.db"))
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
	}
	s := Settings{DataDir: dataDir, ConfigDir: configDir, CacheTTL: time.Minute}
	return fixture{router: NewRouter(s, store, storage.NewResultCache(s.CacheTTL)), store: store}
}

func (f fixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp models.ErrorResponse
	decode(t, w, &resp)
	return resp.Error.Code
}

func sixtyFortyRequest() map[string]interface{} {
	return map[string]interface{}{
		"data_source": map[string]interface{}{"symbols": []string{"A", "B"}},
		"config": map[string]interface{}{
			"strategy": map[string]interface{}{
				"name":   "fixed",
				"params": map[string]interface{}{"weights": map[string]float64{"A": 60, "B": 40}},
			},
			"backtest": map[string]interface{}{"initial_cash": 10000},
		},
		"options": map[string]interface{}{"include_ledger": true, "include_curve": true},
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)
	w := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	w = f.do(t, http.MethodGet, "/api/v1/nothing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRunBacktest(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)

	w := f.do(t, http.MethodPost, "/api/v1/backtest", sixtyFortyRequest())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp models.BacktestResponse
	decode(t, w, &resp)

	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "completed", resp.Status)
	assert.Equal(t, "fixed", resp.Summary.StrategyName)
	assert.Equal(t, "10000.00", resp.Summary.FinalValue)
	assert.Equal(t, "0.00", resp.Summary.TotalCost)
	assert.Equal(t, 6, resp.Summary.TotalPoints)
	assert.Equal(t, 2, resp.Summary.TotalTransactions)
	assert.Len(t, resp.Ledger, 2)
	assert.Len(t, resp.EquityCurve, 6)
	assert.Zero(t, resp.Metrics.MaxDrawdown)
	assert.False(t, resp.CachedResult)

	// The same request is answered from the cache.
	w = f.do(t, http.MethodPost, "/api/v1/backtest", sixtyFortyRequest())
	require.Equal(t, http.StatusOK, w.Code)
	var again models.BacktestResponse
	decode(t, w, &again)
	assert.Equal(t, resp.ID, again.ID)
	assert.True(t, again.CachedResult)

	w = f.do(t, http.MethodGet, "/api/v1/backtest/"+resp.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got models.BacktestResponse
	decode(t, w, &got)
	assert.Equal(t, resp.Summary, got.Summary)
	assert.Empty(t, got.Ledger)

	w = f.do(t, http.MethodGet, "/api/v1/backtest/"+resp.ID+"?include_ledger=true", nil)
	decode(t, w, &got)
	assert.Len(t, got.Ledger, 2)
}

func TestRunBacktestFromPreset(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)
	body := map[string]interface{}{
		"data_source": map[string]interface{}{"symbols": []string{"A", "B"}},
		"config":      map[string]interface{}{"config_file": "ab"},
	}
	w := f.do(t, http.MethodPost, "/api/v1/backtest", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp models.BacktestResponse
	decode(t, w, &resp)
	assert.Equal(t, "5000.00", resp.Summary.InitialValue)
	assert.Equal(t, "5000.00", resp.Summary.FinalValue)

	body["config"] = map[string]interface{}{"config_file": "missing"}
	w = f.do(t, http.MethodPost, "/api/v1/backtest", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_CONFIG", errorCode(t, w))
}

func TestRunBacktestErrors(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)

	tests := map[string]struct {
		mutate func(req map[string]interface{})
		status int
		code   string
	}{
		"no symbols": {
			mutate: func(req map[string]interface{}) { req["data_source"] = map[string]interface{}{} },
			status: http.StatusBadRequest, code: "INVALID_REQUEST",
		},
		"unknown strategy": {
			mutate: func(req map[string]interface{}) {
				req["config"].(map[string]interface{})["strategy"] = map[string]interface{}{"name": "astrology"}
			},
			status: http.StatusBadRequest, code: "INVALID_CONFIG",
		},
		"unknown symbol": {
			mutate: func(req map[string]interface{}) {
				req["data_source"] = map[string]interface{}{"symbols": []string{"ZZZ"}}
			},
			status: http.StatusNotFound, code: "UNKNOWN_SYMBOL",
		},
		"unsupported source": {
			mutate: func(req map[string]interface{}) {
				req["data_source"] = map[string]interface{}{"type": "ftp", "symbols": []string{"A"}}
			},
			status: http.StatusBadRequest, code: "DATA_FETCH_ERROR",
		},
		"empty date range": {
			mutate: func(req map[string]interface{}) {
				req["config"].(map[string]interface{})["backtest"] = map[string]interface{}{"start": "2030-01-01"}
			},
			status: http.StatusUnprocessableEntity, code: "INVALID_BACKTEST",
		},
	}
	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			req := sixtyFortyRequest()
			tt.mutate(req)
			w := f.do(t, http.MethodPost, "/api/v1/backtest", req)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, errorCode(t, w))
		})
	}

	w := f.do(t, http.MethodPost, "/api/v1/backtest", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", errorCode(t, w))
}

func TestRemoteDataSource(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/prices/A":
			assert.Equal(t, "key", r.Header.Get("x-api-key"))
			_, _ = w.Write([]byte(`{"prices":[{"date":"2024-01-02","close":"10"},{"date":"2024-01-03","close":"11"}]}`))
		default:
			w.Header().Set("Retry-After", "60")
			w.WriteHeader(http.StatusTooManyRequests)
		}
	}))
	defer srv.Close()
	f := newFixture(t, false)

	body := map[string]interface{}{
		"data_source": map[string]interface{}{"type": "remote", "base_url": srv.URL, "api_key": "key", "symbols": []string{"A"}},
		"config": map[string]interface{}{
			"strategy": map[string]interface{}{"name": "buy_and_hold", "params": map[string]interface{}{"weights": map[string]float64{"A": 100}}},
		},
	}
	w := f.do(t, http.MethodPost, "/api/v1/backtest", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp models.BacktestResponse
	decode(t, w, &resp)
	assert.Equal(t, "11000.00", resp.Summary.FinalValue)

	body["data_source"] = map[string]interface{}{"type": "remote", "base_url": srv.URL, "symbols": []string{"SLOW"}}
	w = f.do(t, http.MethodPost, "/api/v1/backtest", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	var errResp models.ErrorResponse
	decode(t, w, &errResp)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", errResp.Error.Code)
	assert.Equal(t, "60", errResp.Error.Details["retry_after"])
}

func TestLedgerAndChart(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)
	w := f.do(t, http.MethodPost, "/api/v1/backtest", sixtyFortyRequest())
	require.Equal(t, http.StatusOK, w.Code)
	var resp models.BacktestResponse
	decode(t, w, &resp)
	base := "/api/v1/backtest/" + resp.ID

	w = f.do(t, http.MethodGet, base+"/ledger", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"transactions"`)

	w = f.do(t, http.MethodGet, base+"/ledger?format=csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	rows, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "seq", rows[0][0])

	w = f.do(t, http.MethodGet, base+"/ledger?format=csv&table=equity", nil)
	rows, err = csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 7)

	w = f.do(t, http.MethodGet, base+"/ledger?format=xml", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = f.do(t, http.MethodGet, base+"/ledger?table=orders", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, base+"/chart", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))

	w = f.do(t, http.MethodGet, "/api/v1/backtest/unknown/chart", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, w))
}

func TestPersistedResults(t *testing.T) {
	t.Parallel()
	f := newFixture(t, true)
	w := f.do(t, http.MethodPost, "/api/v1/backtest", sixtyFortyRequest())
	require.Equal(t, http.StatusOK, w.Code)
	var resp models.BacktestResponse
	decode(t, w, &resp)

	stored, err := f.store.GetResult(resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "fixed", stored.StrategyName)

	w = f.do(t, http.MethodGet, "/api/v1/backtests?limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list models.ResultListResponse
	decode(t, w, &list)
	require.Len(t, list.Results, 1)
	assert.Equal(t, resp.ID, list.Results[0].ID)

	w = f.do(t, http.MethodGet, "/api/v1/backtests?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodDelete, "/api/v1/backtest/"+resp.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = f.do(t, http.MethodGet, "/api/v1/backtest/"+resp.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = f.do(t, http.MethodDelete, "/api/v1/backtest/"+resp.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// A deleted result is not served again for the same request.
	w = f.do(t, http.MethodPost, "/api/v1/backtest", sixtyFortyRequest())
	require.Equal(t, http.StatusOK, w.Code)
	var rerun models.BacktestResponse
	decode(t, w, &rerun)
	assert.False(t, rerun.CachedResult)
	assert.NotEqual(t, resp.ID, rerun.ID)
	w = f.do(t, http.MethodGet, "/api/v1/backtest/"+rerun.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListBacktestsWithoutStore(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)
	w := f.do(t, http.MethodGet, "/api/v1/backtests", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"results":[]}`, w.Body.String())
}

func compareRequest() map[string]interface{} {
	return map[string]interface{}{
		"data_source": map[string]interface{}{"symbols": []string{"A", "B"}},
		"base_config": map[string]interface{}{"backtest": map[string]interface{}{"initial_cash": 1000}},
		"variations": []map[string]interface{}{
			{"name": "sixty_forty", "strategy": map[string]interface{}{"name": "fixed", "params": map[string]interface{}{"weights": map[string]float64{"A": 60, "B": 40}}}},
			{"name": "equal", "strategy": map[string]interface{}{"name": "equal_weight"}},
		},
	}
}

func TestCompareAndRank(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)

	w := f.do(t, http.MethodPost, "/api/v1/backtest/compare", compareRequest())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp models.CompareBacktestResponse
	decode(t, w, &resp)
	require.Len(t, resp.Comparison, 2)
	assert.Equal(t, "equal", resp.Comparison[0].Name)
	assert.Equal(t, "sixty_forty", resp.Comparison[1].Name)
	for _, c := range resp.Comparison {
		assert.Equal(t, "1000.00", c.Summary.FinalValue)
		assert.Equal(t, c.Name, c.Summary.StrategyName)
	}

	w = f.do(t, http.MethodPost, "/api/v1/rank", map[string]interface{}{
		"ids":    []string{resp.Comparison[0].ID, resp.Comparison[1].ID, "gone"},
		"metric": "total_return",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var ranked models.RankResponse
	decode(t, w, &ranked)
	assert.Equal(t, "total_return", string(ranked.Metric))
	require.Len(t, ranked.Rankings, 2)
	assert.Equal(t, 1, ranked.Rankings[0].Rank)
	assert.Equal(t, "equal", ranked.Rankings[0].StrategyName, "ties keep name order")
	assert.Equal(t, []string{"gone"}, ranked.Missing)

	w = f.do(t, http.MethodPost, "/api/v1/rank", map[string]interface{}{"ids": []string{"gone"}})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = f.do(t, http.MethodPost, "/api/v1/rank", map[string]interface{}{"ids": []string{"x"}, "metric": "luck"})
	assert.Equal(t, "INVALID_METRIC", errorCode(t, w))
}

func TestCompareRejectsBadVariations(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)

	req := compareRequest()
	vs := req["variations"].([]map[string]interface{})
	vs[1]["name"] = "sixty_forty"
	w := f.do(t, http.MethodPost, "/api/v1/backtest/compare", req)
	assert.Equal(t, "DUPLICATE_VARIATION", errorCode(t, w))

	req = compareRequest()
	req["variations"].([]map[string]interface{})[1]["strategy"] = map[string]interface{}{"name": "fixed"}
	w = f.do(t, http.MethodPost, "/api/v1/backtest/compare", req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_STRATEGY", errorCode(t, w))
}

func TestMonteCarlo(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)
	body := sixtyFortyRequest()
	cfg := body["config"].(map[string]interface{})
	cfg["monte_carlo"] = map[string]interface{}{"runs": 4, "window_days": 3, "seed": 7, "workers": 2}

	w := f.do(t, http.MethodPost, "/api/v1/backtest/montecarlo", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		StrategyName string                     `json:"strategy_name"`
		Seed         int64                      `json:"seed"`
		Runs         int                        `json:"runs"`
		Skipped      int                        `json:"skipped"`
		Metrics      map[string]json.RawMessage `json:"metrics"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "fixed", resp.StrategyName)
	assert.Equal(t, int64(7), resp.Seed)
	assert.Equal(t, 4, resp.Runs)
	assert.Zero(t, resp.Skipped)
	assert.Contains(t, resp.Metrics, "sharpe")

	cfg["monte_carlo"] = map[string]interface{}{"runs": 4, "window_days": 30}
	w = f.do(t, http.MethodPost, "/api/v1/backtest/montecarlo", body)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "INVALID_WINDOW", errorCode(t, w))
}

func TestCatalogue(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)

	w := f.do(t, http.MethodGet, "/api/v1/strategies", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var strategies struct {
		Strategies []models.StrategyInfo `json:"strategies"`
	}
	decode(t, w, &strategies)
	names := make([]string, 0, len(strategies.Strategies))
	for _, s := range strategies.Strategies {
		names = append(names, s.Name)
	}
	assert.ElementsMatch(t, []string{"fixed", "equal_weight", "buy_and_hold", "momentum", "inverse_volatility"}, names)

	w = f.do(t, http.MethodGet, "/api/v1/datasets?stats=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var datasets struct {
		Datasets []models.DatasetInfo `json:"datasets"`
	}
	decode(t, w, &datasets)
	require.Len(t, datasets.Datasets, 2)
	assert.Equal(t, "A", datasets.Datasets[0].Symbol)
	assert.Equal(t, "csv", datasets.Datasets[0].Format)
	require.NotNil(t, datasets.Datasets[0].Stats)
	assert.Equal(t, 6, datasets.Datasets[0].Stats.Count)
	assert.Equal(t, 100.0, datasets.Datasets[0].Stats.Max)

	w = f.do(t, http.MethodGet, "/api/v1/configs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var configs struct {
		Configs []models.ConfigInfo `json:"configs"`
	}
	decode(t, w, &configs)
	require.Len(t, configs.Configs, 1, "broken presets are skipped")
	assert.Equal(t, "ab", configs.Configs[0].ID)
	assert.Equal(t, "fixed", configs.Configs[0].Strategy)
	assert.Equal(t, []string{"A", "B"}, configs.Configs[0].Symbols)
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/backtest", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Less(t, w.Code, 300)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSettingsFromEnv(t *testing.T) {
	t.Setenv("API_PORT", "9090")
	t.Setenv("API_ENV", "production")
	t.Setenv("CACHE_TTL", "90")
	t.Setenv("RESULTS_DB", "")
	s, err := SettingsFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "9090", s.Port)
	assert.True(t, s.Production)
	assert.Equal(t, 90*time.Second, s.CacheTTL)
	assert.Empty(t, s.ResultsDB)
	assert.Equal(t, "./configs", s.ConfigDir)

	t.Setenv("CACHE_TTL", "2m")
	s, err = SettingsFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, s.CacheTTL)

	t.Setenv("CACHE_TTL", "soon")
	_, err = SettingsFromEnv()
	assert.Error(t, err)
}
