// Package fieldmap resolves spreadsheet column headers to the semantic
// fields the reconciliation needs. Uploaded exports rarely agree on header
// names, so inference works from an alias table: exact matches on the
// normalized header first, substring matches as a fallback.
package fieldmap

import "strings"

// RequiredKeys lists the semantic fields every reconciliation needs, in the
// order the mapping editor renders them.
var RequiredKeys = []string{
	"order_id",
	"product_name",
	"order_status",
	"sales_amount",
	"cost_amount",
}

// KeyLabels maps required keys to their display labels.
var KeyLabels = map[string]string{
	"order_id":     "订单号",
	"product_name": "商品名称",
	"order_status": "订单状态",
	"sales_amount": "销售金额",
	"cost_amount":  "成本金额",
}

// fieldAliases holds known header spellings per required key. Order matters:
// earlier aliases win when several match.
var fieldAliases = map[string][]string{
	"order_id":     {"订单编号", "订单号", "子订单号", "单号", "order id", "order_no"},
	"product_name": {"商品名称", "产品", "商品", "product", "item name"},
	"order_status": {"订单状态", "状态", "status", "交易状态"},
	"sales_amount": {"实付金额", "销售金额", "金额", "应收", "paid", "sales"},
	"cost_amount":  {"成本价", "进货价", "成本", "cost", "purchase"},
}

// Result is the outcome of inferring or validating a column mapping.
// Mapping always carries an entry for every required key; unresolved keys map
// to the empty string and are listed in MissingKeys.
type Result struct {
	Mapping     map[string]string `json:"mapping"`
	MissingKeys []string          `json:"missing_keys"`
}

// NormalizeHeader lowercases a header and strips all whitespace so that
// "订单 编号" and "订单编号" compare equal.
func NormalizeHeader(header string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(header))), "")
}

// Infer guesses a column mapping for the given column universe.
func Infer(columns []string) Result {
	normalized := make(map[string]string, len(columns))
	for _, c := range columns {
		normalized[NormalizeHeader(c)] = c
	}

	mapping := make(map[string]string, len(RequiredKeys))
	var missing []string
	for _, key := range RequiredKeys {
		mapping[key] = ""
		for _, alias := range fieldAliases[key] {
			if col, ok := normalized[NormalizeHeader(alias)]; ok {
				mapping[key] = col
				break
			}
		}
		if mapping[key] != "" {
			continue
		}
		// Fallback: alias contained somewhere in the header.
	scan:
		for _, col := range columns {
			ncol := NormalizeHeader(col)
			for _, alias := range fieldAliases[key] {
				if strings.Contains(ncol, NormalizeHeader(alias)) {
					mapping[key] = col
					break scan
				}
			}
		}
		if mapping[key] == "" {
			missing = append(missing, key)
		}
	}
	return Result{Mapping: mapping, MissingKeys: missing}
}

// Validate checks a user-submitted mapping against the column universe of the
// uploaded file. Selections that are not actual columns are treated as
// unselected. It never rejects; callers decide what missing keys mean.
func Validate(mapping map[string]string, columns []string) Result {
	universe := make(map[string]bool, len(columns))
	for _, c := range columns {
		universe[c] = true
	}

	validated := make(map[string]string, len(RequiredKeys))
	var missing []string
	for _, key := range RequiredKeys {
		selected := mapping[key]
		if !universe[selected] {
			selected = ""
		}
		validated[key] = selected
		if selected == "" {
			missing = append(missing, key)
		}
	}
	return Result{Mapping: validated, MissingKeys: missing}
}
