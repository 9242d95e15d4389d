package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"solar-quote/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleQuote() *model.Quote {
	sub := model.Dollars(2648.2)
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return &model.Quote{
		ID:           uuid.MustParse("6f1c2a8e-4b7d-4c1e-9a3f-2d5e8b7c6a10"),
		CreatedAt:    created,
		ExpiresAt:    created.AddDate(0, 0, 30),
		Postcode:     6000,
		Zone:         "3",
		Region:       "WA",
		Tier:         model.TierBudget,
		SystemSizeKw: 3.735,
		PanelCount:   9,
		Components: []model.LineItem{
			{Category: model.ProductPanel, ProductID: "panel-trina-415", SupplierID: "sup-solarjuice", SupplierProductID: "sp-3",
				Name: "Vertex S+ 415W", Quantity: 9, UnitPrice: model.Dollars(210), Total: model.Dollars(1890), Wholesale: model.Dollars(1350)},
			{Category: model.ProductInverter, ProductID: "inv-sungrow-5", SupplierID: "sup-raystech", SupplierProductID: "sp-4",
				Name: "SG5.0RS", Quantity: 1, UnitPrice: model.Dollars(1450), Total: model.Dollars(1450), Wholesale: model.Dollars(980)},
		},
		Addons: []model.LineItem{
			{Category: model.ProductAddon, ProductID: "bird-proofing", Name: "Bird proofing mesh", Quantity: 1,
				UnitPrice: model.Dollars(450), Total: model.Dollars(450), Wholesale: model.Dollars(450)},
		},
		Installation: model.InstallationSummary{Recommended: "internal", SubcontractorCost: &sub},
		FinalPrice:   model.Dollars(3491.39),
	}
}

func TestWriteQuoteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteQuoteCSV(&buf, sampleQuote()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, lineHeader, rows[0])
	assert.Equal(t, []string{"PANEL", "panel-trina-415", "sup-solarjuice", "sp-3", "Vertex S+ 415W", "9", "210.00", "1890.00", "1350.00"}, rows[1])
	assert.Equal(t, "ADDON", rows[3][0])

	values := map[string]string{}
	for _, r := range rows[4:] {
		assert.Equal(t, "summary", r[0])
		values[r[4]] = r[7]
	}
	assert.Equal(t, "3491.39", values["final_price"])
	assert.Equal(t, "undefined", values["payback_years"])
	assert.Equal(t, "2648.20", values["subcontractor_cost"])
	assert.Equal(t, "2026-03-31T09:00:00Z", values["expires_at"])
}

func TestWriteQuoteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteQuoteXLSX(&buf, sampleQuote()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(LinesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "category", rows[0][0])
	assert.Equal(t, "SG5.0RS", rows[2][4])

	v, err := f.GetCellValue(SummarySheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "quote_id", v)
	v, err = f.GetCellValue(SummarySheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "6f1c2a8e-4b7d-4c1e-9a3f-2d5e8b7c6a10", v)
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"quote.csv", "quote.XLSX"} {
		path := filepath.Join(dir, name)
		require.NoError(t, WriteFile(path, sampleQuote()))
		st, err := os.Stat(path)
		require.NoError(t, err)
		assert.Positive(t, st.Size())
	}

	err := WriteFile(filepath.Join(dir, "quote.pdf"), sampleQuote())
	assert.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "quote.pdf"))
	assert.True(t, os.IsNotExist(statErr))
}
