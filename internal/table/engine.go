// Package table is the in-memory result table engine: it holds no state of
// its own, but turns a reconciled row set plus the current sort and page
// selection into one atomic page view. Sorting is stable so repeated sorts
// on the same key never visibly reorder rows.
package table

import (
	"sort"
	"strconv"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/orderrecon/orderrecon/internal/recon"
)

// DefaultPageSize is the fixed page window used by the result table.
const DefaultPageSize = 20

// SortState is the current sort selection.
type SortState struct {
	Key       string
	Ascending bool
}

// DefaultSort orders rows ascending by their reconciliation index.
func DefaultSort() SortState {
	return SortState{Key: "index", Ascending: true}
}

// Toggle returns the sort state after a header click on key: same key flips
// the direction, a new key starts ascending.
func (s SortState) Toggle(key string) SortState {
	if s.Key == key {
		return SortState{Key: key, Ascending: !s.Ascending}
	}
	return SortState{Key: key, Ascending: true}
}

// PageState is the current pagination selection.
type PageState struct {
	Current int
	Size    int
}

// DefaultPage starts at page 1 with the fixed page size.
func DefaultPage() PageState {
	return PageState{Current: 1, Size: DefaultPageSize}
}

// Page is one fully computed table page: the window of sorted rows plus
// everything the pagination control needs. It is recomputed wholesale on
// every sort or page change.
type Page struct {
	Rows    []recon.Row
	Current int
	Total   int
	HasPrev bool
	HasNext bool
	Sort    SortState
}

// Engine sorts and paginates reconciled rows. Textual keys compare with a
// locale-aware collator; numeric keys compare numerically.
type Engine struct {
	collator *collate.Collator
}

// NewEngine builds an engine collating text in Chinese order, matching the
// language of the status labels and typical product names.
func NewEngine() *Engine {
	return &Engine{collator: collate.New(language.Chinese)}
}

// Sort returns a stably sorted copy of rows. The input slice is never
// mutated; callers keep the canonical row order from the compare response.
func (e *Engine) Sort(rows []recon.Row, state SortState) []recon.Row {
	sorted := make([]recon.Row, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		less := e.less(sorted[i], sorted[j], state.Key)
		if state.Ascending {
			return less
		}
		return e.less(sorted[j], sorted[i], state.Key)
	})
	return sorted
}

// less compares two rows on key. Both values of a key are always the same
// kind given the fixed row schema: numeric keys compare by difference,
// everything else by collation of the textual value.
func (e *Engine) less(a, b recon.Row, key string) bool {
	if na, ok := numericValue(a, key); ok {
		nb, _ := numericValue(b, key)
		return na < nb
	}
	return e.collator.CompareString(textValue(a, key), textValue(b, key)) < 0
}

func numericValue(r recon.Row, key string) (float64, bool) {
	switch key {
	case "index":
		return float64(r.Index), true
	case "sales_amount":
		return r.SalesAmount, true
	case "cost_amount":
		return r.CostAmount, true
	case "profit":
		return r.Profit, true
	}
	return 0, false
}

// textValue coerces a row field to its textual representation. Unknown keys
// (including order_status, which reconciled rows no longer carry) coerce to
// the empty string and therefore sort as a stable no-op.
func textValue(r recon.Row, key string) string {
	switch key {
	case "order_id":
		return r.OrderID
	case "product_name":
		return r.ProductName
	case "final_status":
		return r.FinalStatus
	case "status_flag":
		return r.StatusFlag
	case "index":
		return strconv.Itoa(r.Index)
	}
	return ""
}

// TotalPages returns the page count for rowCount rows: at least 1, so an
// empty result set still has exactly one (empty) page.
func TotalPages(rowCount, pageSize int) int {
	if rowCount <= 0 || pageSize <= 0 {
		return 1
	}
	return (rowCount + pageSize - 1) / pageSize
}

// ClampPage clamps target into [1, totalPages].
func ClampPage(target, totalPages int) int {
	if target < 1 {
		return 1
	}
	if target > totalPages {
		return totalPages
	}
	return target
}

// Paginate slices the window [(page-1)*size, page*size) out of sortedRows,
// clamped to the slice bounds. A page past the end yields an empty slice.
func Paginate(sortedRows []recon.Row, page, size int) []recon.Row {
	if page < 1 || size < 1 {
		return nil
	}
	start := (page - 1) * size
	if start >= len(sortedRows) {
		return nil
	}
	end := start + size
	if end > len(sortedRows) {
		end = len(sortedRows)
	}
	return sortedRows[start:end]
}

// Render computes the page view for the given rows and selection in one
// pass: sort, window, pagination control state. Page selections outside the
// valid range are clamped rather than failed.
func (e *Engine) Render(rows []recon.Row, sortState SortState, pageState PageState) Page {
	total := TotalPages(len(rows), pageState.Size)
	current := ClampPage(pageState.Current, total)
	sorted := e.Sort(rows, sortState)
	return Page{
		Rows:    Paginate(sorted, current, pageState.Size),
		Current: current,
		Total:   total,
		HasPrev: current > 1,
		HasNext: current < total,
		Sort:    sortState,
	}
}
