package recon

import (
	"fmt"
	"strconv"
	"strings"
)

// CleanOrderID strips everything but digits from a raw order id cell.
// Spreadsheet exports routinely carry order ids with stray whitespace,
// apostrophe prefixes or scientific-notation damage; digits are the only
// part both exports agree on. Returns "" when no digits remain.
func CleanOrderID(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CleanMoney parses a money cell, tolerating currency symbols, thousands
// separators and embedded whitespace. Unparseable or empty cells become 0.
func CleanMoney(value string) float64 {
	cleaned := strings.NewReplacer("¥", "", "￥", "", ",", "").Replace(value)
	cleaned = strings.Join(strings.Fields(cleaned), "")
	if cleaned == "" {
		return 0
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return f
}

// Standardize applies a validated column mapping to raw records and cleans
// the result into reconciliation-ready Records. source names the file side
// ("官方订单" or "客服统计") for warning messages.
//
// Cleaning steps, in order: order-id digit extraction, money parsing,
// status trimming, invalid-status filtering, duplicate order-id removal
// (last occurrence wins). Each step that drops or flags rows contributes an
// advisory warning; none of them fails the operation.
func Standardize(raw []map[string]string, mapping map[string]string, source string) ([]Record, []string) {
	var warnings []string

	records := make([]Record, 0, len(raw))
	invalidIDs := 0
	for _, row := range raw {
		rec := Record{
			OrderIDRaw:  row[mapping["order_id"]],
			ProductName: strings.TrimSpace(row[mapping["product_name"]]),
			OrderStatus: strings.TrimSpace(row[mapping["order_status"]]),
			SalesAmount: CleanMoney(row[mapping["sales_amount"]]),
			CostAmount:  CleanMoney(row[mapping["cost_amount"]]),
		}
		rec.OrderID = CleanOrderID(rec.OrderIDRaw)
		if rec.OrderID == "" {
			invalidIDs++
		}
		records = append(records, rec)
	}
	if invalidIDs > 0 {
		warnings = append(warnings, fmt.Sprintf("%s: 检测到 %d 条非数字或空订单号，已标记异常", source, invalidIDs))
	}

	filtered := records[:0]
	for _, rec := range records {
		if validStatuses[rec.OrderStatus] {
			filtered = append(filtered, rec)
		}
	}
	if dropped := len(records) - len(filtered); dropped > 0 {
		warnings = append(warnings, fmt.Sprintf("%s: 已过滤 %d 条无效状态订单", source, dropped))
	}
	records = filtered

	records, duplicates := dedupeByOrderID(records)
	if duplicates > 0 {
		warnings = append(warnings, fmt.Sprintf("%s: 检测到 %d 条重复订单号，保留最后一条记录", source, duplicates))
	}

	return records, warnings
}

// dedupeByOrderID keeps the last record per order id, preserving the
// position of the surviving occurrence. The returned count includes every
// row that belongs to a duplicated id, matching how users see the problem
// in their spreadsheet.
func dedupeByOrderID(records []Record) ([]Record, int) {
	counts := make(map[string]int, len(records))
	for _, rec := range records {
		counts[rec.OrderID]++
	}

	duplicates := 0
	for _, n := range counts {
		if n > 1 {
			duplicates += n
		}
	}
	if duplicates == 0 {
		return records, 0
	}

	seen := make(map[string]bool, len(counts))
	kept := make([]Record, 0, len(counts))
	for i := len(records) - 1; i >= 0; i-- {
		if seen[records[i].OrderID] {
			continue
		}
		seen[records[i].OrderID] = true
		kept = append(kept, records[i])
	}
	// Restore original order.
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	return kept, duplicates
}
