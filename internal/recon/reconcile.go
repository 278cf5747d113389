package recon

import (
	"github.com/shopspring/decimal"
)

// Reconcile matches the official export against the service export by order
// id and produces the reconciled row set, its summary, and advisory
// warnings.
//
// The row set is an outer join: official rows first in their original order
// (matched or service-missing), then service-only rows in theirs. Matched
// rows take their amounts from the official side. Profit and the summary
// totals are computed in decimal arithmetic so long runs of two-decimal
// amounts do not accumulate float drift.
func Reconcile(official, service []Record) ([]Row, Summary, []string) {
	var warnings []string

	inService := make(map[string]bool, len(service))
	for _, rec := range service {
		inService[rec.OrderID] = true
	}
	inOfficial := make(map[string]bool, len(official))
	for _, rec := range official {
		inOfficial[rec.OrderID] = true
	}

	rows := make([]Row, 0, len(official)+len(service))
	for _, rec := range official {
		flag := StatusMissing
		if inService[rec.OrderID] {
			flag = StatusMatched
		}
		rows = append(rows, buildRow(rec, flag))
	}
	for _, rec := range service {
		if inOfficial[rec.OrderID] {
			continue
		}
		rows = append(rows, buildRow(rec, StatusExtra))
	}

	var summary Summary
	totalSales := decimal.Zero
	totalCost := decimal.Zero
	uniqueOrders := make(map[string]bool, len(rows))
	for i := range rows {
		rows[i].Index = i + 1
		totalSales = totalSales.Add(decimal.NewFromFloat(rows[i].SalesAmount))
		totalCost = totalCost.Add(decimal.NewFromFloat(rows[i].CostAmount))
		uniqueOrders[rows[i].OrderID] = true
		switch rows[i].StatusFlag {
		case StatusMatched:
			summary.MatchedCount++
		case StatusMissing:
			summary.MissingCount++
		case StatusExtra:
			summary.ExtraCount++
		}
		if rows[i].IsLoss {
			summary.LossCount++
		}
	}
	summary.TotalSales = totalSales.InexactFloat64()
	summary.TotalCost = totalCost.InexactFloat64()
	summary.TotalProfit = totalSales.Sub(totalCost).InexactFloat64()
	summary.OrderCount = len(uniqueOrders)

	if len(rows) == 0 {
		warnings = append(warnings, "比对结果为空，请检查上传数据与状态过滤条件")
	}

	return rows, summary, warnings
}

func buildRow(rec Record, flag string) Row {
	profit := decimal.NewFromFloat(rec.SalesAmount).Sub(decimal.NewFromFloat(rec.CostAmount))
	isLoss := profit.IsNegative()
	finalStatus := flag
	if isLoss {
		finalStatus = flag + "|" + LossSuffix
	}
	return Row{
		OrderID:     rec.OrderID,
		ProductName: rec.ProductName,
		SalesAmount: rec.SalesAmount,
		CostAmount:  rec.CostAmount,
		Profit:      profit.InexactFloat64(),
		FinalStatus: finalStatus,
		IsLoss:      isLoss,
		StatusFlag:  flag,
	}
}
