// Package xlsx reads uploaded order exports and writes the reconciliation
// result workbook. It is the only package that touches spreadsheet formats;
// everything past this boundary works on plain records.
package xlsx

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/orderrecon/orderrecon/internal/recon"
)

// ResultSheet is the sheet name of the exported workbook.
const ResultSheet = "对账结果"

var exportHeaders = []string{"序号", "订单号", "商品名称", "销售金额", "成本", "单笔利润", "状态标记"}

// ValidExtension reports whether filename has a supported spreadsheet
// extension.
func ValidExtension(filename string) bool {
	lower := strings.ToLower(filename)
	return strings.HasSuffix(lower, ".xlsx") ||
		strings.HasSuffix(lower, ".xls") ||
		strings.HasSuffix(lower, ".et")
}

// ReadSheet reads the first sheet of a workbook into a column universe and
// one map per data row, keyed by header. Rows shorter than the header are
// padded with empty cells; columns past the header are ignored.
func ReadSheet(r io.Reader) (columns []string, records []map[string]string, err error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("sheet %q is empty", sheets[0])
	}

	for _, h := range rows[0] {
		columns = append(columns, strings.TrimSpace(h))
	}

	records = make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record := make(map[string]string, len(columns))
		for i, col := range columns {
			if col == "" {
				continue
			}
			if i < len(row) {
				record[col] = row[i]
			} else {
				record[col] = ""
			}
		}
		records = append(records, record)
	}
	return columns, records, nil
}

// ExportResult renders the reconciled rows and summary into a styled
// workbook: loss rows get a red fill and font, and a summary block follows
// two rows below the table.
func ExportResult(rows []recon.Row, summary recon.Summary) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(ResultSheet); err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(ResultSheet, cell, h); err != nil {
			return nil, err
		}
	}

	lossStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFC7CE"}},
		Font: &excelize.Font{Color: "9C0006"},
	})
	if err != nil {
		return nil, fmt.Errorf("create loss style: %w", err)
	}

	for i, row := range rows {
		rowIdx := i + 2
		values := []interface{}{
			row.Index, row.OrderID, row.ProductName,
			row.SalesAmount, row.CostAmount, row.Profit, row.FinalStatus,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, rowIdx)
			if err := f.SetCellValue(ResultSheet, cell, v); err != nil {
				return nil, err
			}
		}
		if row.IsLoss {
			first, _ := excelize.CoordinatesToCellName(1, rowIdx)
			last, _ := excelize.CoordinatesToCellName(len(exportHeaders), rowIdx)
			if err := f.SetCellStyle(ResultSheet, first, last, lossStyle); err != nil {
				return nil, err
			}
		}
	}

	summaryRow := len(rows) + 3
	summaryCells := []string{
		"汇总",
		fmt.Sprintf("总销售额: %.2f", summary.TotalSales),
		fmt.Sprintf("总成本: %.2f", summary.TotalCost),
		fmt.Sprintf("总利润: %.2f", summary.TotalProfit),
		fmt.Sprintf("订单总数: %d", summary.OrderCount),
	}
	for i, v := range summaryCells {
		cell, _ := excelize.CoordinatesToCellName(i+1, summaryRow)
		if err := f.SetCellValue(ResultSheet, cell, v); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
