package export

import (
	"fmt"
	"io"

	"solar-quote/internal/model"

	"github.com/xuri/excelize/v2"
)

const (
	LinesSheet   = "Lines"
	SummarySheet = "Summary"
)

// WriteQuoteXLSX writes a workbook with the line items on one sheet and the
// summary figures on another.
func WriteQuoteXLSX(w io.Writer, q *model.Quote) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), LinesSheet); err != nil {
		return err
	}
	header := make([]interface{}, len(lineHeader))
	for i, h := range lineHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(LinesSheet, "A1", &header); err != nil {
		return fmt.Errorf("lines header: %w", err)
	}

	row := 2
	for _, l := range lines(q) {
		excelRow := []interface{}{
			string(l.Category),
			l.ProductID,
			l.SupplierID,
			l.SupplierProductID,
			l.Name,
			l.Quantity,
			l.UnitPrice.InexactFloat64(),
			l.Total.InexactFloat64(),
			l.Wholesale.InexactFloat64(),
		}
		if err := setRow(f, LinesSheet, row, excelRow); err != nil {
			return err
		}
		row++
	}

	if _, err := f.NewSheet(SummarySheet); err != nil {
		return err
	}
	if err := setRow(f, SummarySheet, 1, []interface{}{"field", "value"}); err != nil {
		return err
	}
	for i, s := range summary(q) {
		if err := setRow(f, SummarySheet, i+2, []interface{}{s.key, s.value}); err != nil {
			return err
		}
	}

	return f.Write(w)
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("%s row %d: %w", sheet, row, err)
	}
	return nil
}
