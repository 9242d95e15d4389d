// Package export writes a computed quote as CSV or XLSX.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"solar-quote/internal/model"
)

var lineHeader = []string{
	"category",
	"product_id",
	"supplier_id",
	"supplier_product_id",
	"name",
	"quantity",
	"unit_price",
	"total",
	"wholesale",
}

// WriteFile picks the format from the file extension.
func WriteFile(path string, q *model.Quote) error {
	var write func(io.Writer, *model.Quote) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		write = WriteQuoteCSV
	case ".xlsx":
		write = WriteQuoteXLSX
	default:
		return fmt.Errorf("unsupported export format %q (want .csv or .xlsx)", filepath.Ext(path))
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := write(f, q); err != nil {
		return err
	}
	return f.Close()
}

// WriteQuoteCSV writes the line items followed by the summary figures. Summary
// rows carry "summary" in the category column and the value in total.
func WriteQuoteCSV(out io.Writer, q *model.Quote) error {
	w := csv.NewWriter(out)

	if err := w.Write(lineHeader); err != nil {
		return err
	}
	for _, l := range lines(q) {
		if err := w.Write(lineRow(l)); err != nil {
			return err
		}
	}
	for _, s := range summary(q) {
		row := make([]string, len(lineHeader))
		row[0] = "summary"
		row[4] = s.key
		row[7] = s.value
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func lines(q *model.Quote) []model.LineItem {
	out := make([]model.LineItem, 0, len(q.Components)+len(q.Addons))
	out = append(out, q.Components...)
	return append(out, q.Addons...)
}

func lineRow(l model.LineItem) []string {
	return []string{
		string(l.Category),
		l.ProductID,
		l.SupplierID,
		l.SupplierProductID,
		l.Name,
		strconv.Itoa(l.Quantity),
		fmtMoney(l.UnitPrice),
		fmtMoney(l.Total),
		fmtMoney(l.Wholesale),
	}
}

type field struct{ key, value string }

func summary(q *model.Quote) []field {
	fs := []field{
		{"quote_id", q.ID.String()},
		{"created_at", fmtTime(q.CreatedAt)},
		{"expires_at", fmtTime(q.ExpiresAt)},
		{"snapshot_version", q.SnapshotVersion},
		{"postcode", strconv.Itoa(q.Postcode)},
		{"zone", q.Zone},
		{"region", q.Region},
		{"tier", string(q.Tier)},
		{"system_size_kw", fmtFloat(q.SystemSizeKw)},
		{"panel_count", strconv.Itoa(q.PanelCount)},
		{"battery_kwh", fmtFloat(q.BatteryKwh)},
		{"components_cost", fmtMoney(q.ComponentsCost)},
		{"addons_cost", fmtMoney(q.AddonsCost)},
		{"installation", q.Installation.Recommended},
		{"installation_cost", fmtMoney(q.InstallationCost)},
		{"subtotal", fmtMoney(q.Subtotal)},
		{"num_stcs", strconv.Itoa(q.Rebates.NumSTCs)},
		{"rebate_federal", fmtMoney(q.Rebates.Federal)},
		{"rebate_federal_battery", fmtMoney(q.Rebates.FederalBattery)},
		{"rebate_state_battery", fmtMoney(q.Rebates.StateBattery)},
		{"rebates_total", fmtMoney(q.Rebates.Total)},
		{"minimum_profit", fmtMoney(q.MinimumProfit)},
		{"floor_applied", strconv.FormatBool(q.FloorApplied)},
		{"floor_shortfall", fmtMoney(q.FloorShortfall)},
		{"final_price", fmtMoney(q.FinalPrice)},
		{"gross_profit", fmtMoney(q.Profit.GrossProfit)},
		{"margin_percent", strconv.FormatFloat(q.Profit.MarginPercent, 'f', 2, 64)},
		{"annual_production_kwh", fmtFloat(q.Savings.AnnualProductionKwh)},
		{"annual_savings", fmtMoney(q.Savings.AnnualSavings)},
		{"ten_year_savings", fmtMoney(q.Savings.TenYearSavings)},
		{"twenty_five_year_savings", fmtMoney(q.Savings.TwentyFiveYearSavings)},
		{"payback_years", q.Savings.PaybackLabel()},
	}
	if q.Installation.SubcontractorCost != nil {
		fs = append(fs, field{"subcontractor_cost", fmtMoney(*q.Installation.SubcontractorCost)})
	}
	return fs
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 3, 64)
}

func fmtMoney(m model.Money) string {
	return m.StringFixed(2)
}
