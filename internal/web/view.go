package web

import (
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/orderrecon/orderrecon/internal/controller"
	"github.com/orderrecon/orderrecon/internal/fieldmap"
	"github.com/orderrecon/orderrecon/internal/table"
)

//go:embed templates
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"inc":   func(i int) int { return i + 1 },
	"dec":   func(i int) int { return i - 1 },
}).ParseFS(templateFS, "templates/*.html"))

// resultHeaders drive the sortable column headers of the result table.
var resultHeaders = []headerCell{
	{Key: "index", Label: "序号"},
	{Key: "order_id", Label: "订单号"},
	{Key: "product_name", Label: "商品名称"},
	{Key: "sales_amount", Label: "销售金额"},
	{Key: "cost_amount", Label: "成本金额"},
	{Key: "profit", Label: "单笔利润"},
	{Key: "final_status", Label: "状态标记"},
}

type headerCell struct {
	Key   string
	Label string
}

// mappingRow is one required key's selector state for one file side.
type mappingRow struct {
	Key      string
	Label    string
	Field    string // form field name, e.g. off_order_id
	Selected string
	Options  []string
	Missing  bool // server could not auto-map this key
}

// viewData is everything one atomic render of the workflow view needs.
type viewData struct {
	Notice      string
	State       controller.State
	Page        table.Page
	Official    []mappingRow
	Service     []mappingRow
	Headers     []headerCell
	ShowResults bool
}

// buildView assembles the full view model from one state snapshot. The
// whole view is recomputed on every request so no render target can go
// stale against another.
func buildView(st controller.State, page table.Page, notice string) viewData {
	return viewData{
		Notice:      notice,
		State:       st,
		Page:        page,
		Official:    mappingRows(st, "off", st.OfficialColumns, st.OfficialMapping, st.OfficialMissing),
		Service:     mappingRows(st, "srv", st.ServiceColumns, st.ServiceMapping, st.ServiceMissing),
		Headers:     resultHeaders,
		ShowResults: st.Stage == controller.StageCompared,
	}
}

// mappingRows renders one file side of the mapping editor: every required
// key gets a selector over that side's column universe, pre-selected with
// the current mapping value when it is an actual column.
func mappingRows(st controller.State, prefix string, columns []string, mapping map[string]string, missing []string) []mappingRow {
	missingSet := make(map[string]bool, len(missing))
	for _, k := range missing {
		missingSet[k] = true
	}

	rows := make([]mappingRow, 0, len(st.RequiredKeys))
	for _, key := range st.RequiredKeys {
		selected := mapping[key]
		found := false
		for _, c := range columns {
			if c == selected {
				found = true
				break
			}
		}
		if !found {
			selected = ""
		}
		rows = append(rows, mappingRow{
			Key:      key,
			Label:    fieldmap.KeyLabels[key],
			Field:    prefix + "_" + key,
			Selected: selected,
			Options:  columns,
			Missing:  missingSet[key],
		})
	}
	return rows
}

// render writes the full workflow page for the controller's current state.
func (s *Server) render(w http.ResponseWriter, r *http.Request, ctrl *controller.Controller, notice string) {
	view := buildView(ctrl.State(), ctrl.PageView(), notice)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.ExecuteTemplate(w, "index", view); err != nil {
		slog.Error("template render failed", "error", err, "path", r.URL.Path)
	}
}

// collectMapping reads the selector value for every required key on one
// file side out of the submitted form. Unselected keys come back as empty
// strings; validity is the comparison service's concern.
func collectMapping(r *http.Request, prefix string, requiredKeys []string) map[string]string {
	m := make(map[string]string, len(requiredKeys))
	for _, key := range requiredKeys {
		m[key] = r.FormValue(prefix + "_" + key)
	}
	return m
}
