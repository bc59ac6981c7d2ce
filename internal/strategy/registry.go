package strategy

import (
	"fmt"
	"sort"
	"strings"

	"portfolio-backtest/internal/model"
)

// Info describes a built-in policy for listings.
type Info struct {
	Name        string
	Description string
	Parameters  []Param
}

// Param describes one policy parameter.
type Param struct {
	Name        string
	Type        string // "float", "int", "bool", "weights", "symbols"
	Description string
	Default     any
}

// Descriptions lists every built-in policy.
func Descriptions() []Info {
	return []Info{
		{
			Name:        "fixed",
			Description: "Rebalances to the same target weights every time.",
			Parameters: []Param{
				{Name: "weights", Type: "weights", Description: "Symbol to percent, e.g. {SPY: 60, TLT: 40}"},
			},
		},
		{
			Name:        "equal_weight",
			Description: "Splits the portfolio evenly across the listed symbols, or across every priced symbol.",
			Parameters: []Param{
				{Name: "symbols", Type: "symbols", Description: "Optional list of symbols"},
			},
		},
		{
			Name:        "buy_and_hold",
			Description: "Buys the target weights once and never trades again.",
			Parameters: []Param{
				{Name: "weights", Type: "weights", Description: "Symbol to percent"},
			},
		},
		{
			Name:        "momentum",
			Description: "Holds the top N symbols by trailing return, equally weighted.",
			Parameters: []Param{
				{Name: "lookback", Type: "int", Description: "Trailing observations", Default: 20},
				{Name: "top_n", Type: "int", Description: "Number of symbols to hold (0 = all)", Default: 1},
				{Name: "absolute_filter", Type: "bool", Description: "Stay in cash when trailing return is not positive", Default: false},
			},
		},
		{
			Name:        "inverse_volatility",
			Description: "Weights each symbol by the inverse of its trailing volatility.",
			Parameters: []Param{
				{Name: "lookback", Type: "int", Description: "Trailing returns", Default: 20},
			},
		},
	}
}

// Build constructs a built-in policy from loosely typed parameters, as
// decoded from YAML or JSON.
func Build(name string, params map[string]any) (Policy, error) {
	switch name {
	case "fixed":
		w, err := weightsParam(params, "weights")
		if err != nil {
			return nil, err
		}
		return &Fixed{Weights: w}, nil
	case "equal_weight":
		return &EqualWeight{Symbols: symbolsParam(params, "symbols")}, nil
	case "buy_and_hold":
		w, err := weightsParam(params, "weights")
		if err != nil {
			return nil, err
		}
		return &BuyAndHold{Weights: w}, nil
	case "momentum":
		return &Momentum{
			Lookback:       int(mustNum(params, "lookback", 20)),
			TopN:           int(mustNum(params, "top_n", 1)),
			AbsoluteFilter: mustBool(params, "absolute_filter", false),
			UseAdjusted:    mustBool(params, "use_adjusted", false),
		}, nil
	case "inverse_volatility":
		return &InverseVolatility{
			Lookback:    int(mustNum(params, "lookback", 20)),
			UseAdjusted: mustBool(params, "use_adjusted", false),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported strategy: %q", name)
	}
}

func weightsParam(params map[string]any, key string) (model.Allocation, error) {
	raw, ok := params[key].(map[string]any)
	if !ok || len(raw) == 0 {
		return nil, fmt.Errorf("strategy param %q is required", key)
	}
	out := model.Allocation{}
	syms := make([]string, 0, len(raw))
	for sym := range raw {
		syms = append(syms, sym)
	}
	sort.Strings(syms)
	for _, sym := range syms {
		w, ok := toFloat(raw[sym])
		if !ok {
			return nil, fmt.Errorf("strategy param %s.%s is not a number", key, sym)
		}
		out[sym] = w
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

func symbolsParam(params map[string]any, key string) []string {
	switch v := params[key].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, s := range v {
			if str, ok := s.(string); ok && strings.TrimSpace(str) != "" {
				out = append(out, strings.TrimSpace(str))
			}
		}
		return out
	case []string:
		return v
	case string:
		var out []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}

func mustNum(m map[string]any, key string, def float64) float64 {
	if v, ok := m[key]; ok && v != nil {
		if x, ok := toFloat(v); ok {
			return x
		}
	}
	return def
}

func mustBool(m map[string]any, key string, def bool) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return def
}
