package backtest

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"portfolio-backtest/internal/model"
)

// WriteTransactionsCSV writes one row per ledger transaction.
func WriteTransactionsCSV(out io.Writer, txs []model.Transaction) error {
	w := csv.NewWriter(out)
	header := []string{
		"seq",
		"id",
		"timestamp",
		"kind",
		"symbol",
		"shares",
		"price",
		"amount",
		"cost",
		"net_cash",
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, tx := range txs {
		row := []string{
			strconv.Itoa(tx.Seq),
			tx.ID,
			fmtTime(tx.Timestamp),
			string(tx.Kind),
			tx.Symbol,
			tx.Shares.String(),
			tx.Price.String(),
			tx.Amount.String(),
			tx.Cost.StringFixed(6),
			tx.NetCashImpact().StringFixed(6),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteEquityCSV writes one row per equity curve point.
func WriteEquityCSV(out io.Writer, curve []EquityPoint) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"date", "total_value", "cash", "position_count"}); err != nil {
		return err
	}
	for _, p := range curve {
		row := []string{
			p.Date.Format(model.DateLayout),
			p.TotalValue.StringFixed(6),
			p.Cash.StringFixed(6),
			strconv.Itoa(p.PositionCount),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteCSVFile creates path, and its directory, and hands it to write.
func WriteCSVFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := write(f); err != nil {
		return err
	}
	return f.Close()
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
