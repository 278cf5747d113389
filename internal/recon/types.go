// Package recon implements the order reconciliation math: cleaning raw
// export records, matching the official export against the service export,
// and computing per-order profit plus aggregate summary counters.
package recon

// Status flags assigned during reconciliation.
const (
	StatusMatched = "正常匹配" // present in both exports
	StatusMissing = "客服漏记" // official only
	StatusExtra   = "客服多记" // service only

	// LossSuffix is appended to the final status of loss-making orders.
	LossSuffix = "亏损订单"
)

// validStatuses are the order statuses that take part in reconciliation.
// Everything else (refunds, cancellations, ...) is filtered out up front.
var validStatuses = map[string]bool{
	"交易成功": true,
	"已发货":  true,
}

// Record is one standardized input row after column mapping and cleaning.
type Record struct {
	OrderID     string
	OrderIDRaw  string
	ProductName string
	OrderStatus string
	SalesAmount float64
	CostAmount  float64
}

// Row is one reconciled order as returned to clients and rendered in the
// result table.
type Row struct {
	Index       int     `json:"index"`
	OrderID     string  `json:"order_id"`
	ProductName string  `json:"product_name"`
	SalesAmount float64 `json:"sales_amount"`
	CostAmount  float64 `json:"cost_amount"`
	Profit      float64 `json:"profit"`
	FinalStatus string  `json:"final_status"`
	IsLoss      bool    `json:"is_loss"`
	StatusFlag  string  `json:"status_flag"`
}

// Summary aggregates totals and counters over a reconciled row set.
// loss_count always equals the number of rows with is_loss set, and
// matched+missing+extra equals the row count.
type Summary struct {
	TotalSales   float64 `json:"total_sales"`
	TotalCost    float64 `json:"total_cost"`
	TotalProfit  float64 `json:"total_profit"`
	OrderCount   int     `json:"order_count"`
	MatchedCount int     `json:"matched_count"`
	MissingCount int     `json:"missing_count"`
	ExtraCount   int     `json:"extra_count"`
	LossCount    int     `json:"loss_count"`
}
