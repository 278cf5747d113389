package web

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderrecon/orderrecon/internal/comparator"
	"github.com/orderrecon/orderrecon/internal/config"
	"github.com/orderrecon/orderrecon/internal/recon"
)

// stubBackend fakes the comparison service behind a real comparator.Client.
func stubBackend(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/upload", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"session_id":    "s-1",
			"required_keys": []string{"order_id", "product_name", "order_status", "sales_amount", "cost_amount"},
			"official_columns": []string{
				"订单编号", "商品名称", "订单状态", "实付金额", "成本价",
			},
			"service_columns": []string{"单号", "产品", "交易状态", "金额", "进货价"},
			"official_auto_mapping": map[string]string{
				"order_id": "订单编号", "product_name": "商品名称", "order_status": "订单状态",
				"sales_amount": "实付金额", "cost_amount": "成本价",
			},
			"service_auto_mapping": map[string]string{
				"order_id": "单号", "product_name": "产品", "order_status": "交易状态",
				"sales_amount": "金额",
			},
			"official_missing": []string{},
			"service_missing":  []string{"cost_amount"},
		})
	})
	mux.HandleFunc("/api/compare", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"rows": []recon.Row{
				{Index: 1, OrderID: "1001", ProductName: "保温杯", SalesAmount: 128, CostAmount: 60, Profit: 68, StatusFlag: recon.StatusMatched, FinalStatus: recon.StatusMatched},
				{Index: 2, OrderID: "1002", ProductName: "水壶", SalesAmount: 30, CostAmount: 45, Profit: -15, IsLoss: true, StatusFlag: recon.StatusMissing, FinalStatus: recon.StatusMissing + "|" + recon.LossSuffix},
			},
			"summary":  recon.Summary{TotalSales: 158, TotalCost: 105, TotalProfit: 53, OrderCount: 2, MatchedCount: 1, MissingCount: 1, LossCount: 1},
			"warnings": []string{"官方订单: 已过滤 1 条无效状态订单"},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{RequestTimeout: 30 * time.Second},
		Upload: config.UploadConfig{MaxFileSize: 20 << 20},
		Rate:   config.RateLimitConfig{Enabled: false},
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	backend := stubBackend(t)
	client := comparator.New(backend.URL, 5*time.Second)
	return NewServer(testConfig(), client)
}

// browser replays the session cookie across requests like a real browser.
type browser struct {
	t      *testing.T
	srv    *Server
	cookie *http.Cookie
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	b.t.Helper()
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}
	rec := httptest.NewRecorder()
	b.srv.Router().ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			b.cookie = c
		}
	}
	return rec
}

func (b *browser) upload() *httptest.ResponseRecorder {
	b.t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, part := range []struct{ field, name string }{
		{"official_file", "官方订单.xlsx"},
		{"service_file", "客服统计.xlsx"},
	} {
		fw, err := mw.CreateFormFile(part.field, part.name)
		require.NoError(b.t, err)
		_, err = fw.Write([]byte("workbook-bytes"))
		require.NoError(b.t, err)
	}
	require.NoError(b.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return b.do(req)
}

func (b *browser) compare(values map[string]string) *httptest.ResponseRecorder {
	b.t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range values {
		require.NoError(b.t, mw.WriteField(k, v))
	}
	require.NoError(b.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/compare", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return b.do(req)
}

func fullMappingForm() map[string]string {
	return map[string]string{
		"off_order_id": "订单编号", "off_product_name": "商品名称", "off_order_status": "订单状态",
		"off_sales_amount": "实付金额", "off_cost_amount": "成本价",
		"srv_order_id": "单号", "srv_product_name": "产品", "srv_order_status": "交易状态",
		"srv_sales_amount": "金额", "srv_cost_amount": "进货价",
	}
}

func TestIndex_NoSession(t *testing.T) {
	b := &browser{t: t, srv: newTestServer(t)}

	rec := b.do(httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, b.cookie, "first contact sets the session cookie")
	body := rec.Body.String()
	assert.Contains(t, body, "订单比对与利润核算系统")
	assert.Contains(t, body, `name="official_file"`)
	assert.NotContains(t, body, "开始比对", "mapping editor hidden before upload")
}

func TestIndex_SecurityHeaders(t *testing.T) {
	b := &browser{t: t, srv: newTestServer(t)}

	rec := b.do(httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestUpload_RendersMappingEditor(t *testing.T) {
	b := &browser{t: t, srv: newTestServer(t)}

	rec := b.upload()

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "上传成功，会话ID: s-1")
	assert.Contains(t, body, `name="off_order_id"`)
	assert.Contains(t, body, `name="srv_cost_amount"`)
	assert.Contains(t, body, "订单编号")
	assert.Contains(t, body, "（未能自动识别）", "unmapped keys are flagged")
	assert.Contains(t, body, "开始比对")
}

func TestUpload_MissingFileFailsLocally(t *testing.T) {
	b := &browser{t: t, srv: newTestServer(t)}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("official_file", "官方订单.xlsx")
	require.NoError(t, err)
	fw.Write([]byte("x"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := b.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "请先选择两个文件")
}

func TestCompare_RendersResults(t *testing.T) {
	b := &browser{t: t, srv: newTestServer(t)}
	b.upload()

	rec := b.compare(fullMappingForm())

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "总销售额: 158.00")
	assert.Contains(t, body, "正常匹配: 1")
	assert.Contains(t, body, "官方订单: 已过滤 1 条无效状态订单")
	assert.Contains(t, body, "1001")
	assert.Contains(t, body, recon.StatusMissing+"|"+recon.LossSuffix)
	assert.Contains(t, body, `class="loss-row"`)
	assert.Contains(t, body, "第 1 / 1 页")
}

func TestCompare_WithoutSession(t *testing.T) {
	b := &browser{t: t, srv: newTestServer(t)}

	rec := b.compare(fullMappingForm())

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "会话不存在，请先上传文件")
}

func TestSortAndPage(t *testing.T) {
	b := &browser{t: t, srv: newTestServer(t)}
	b.upload()
	b.compare(fullMappingForm())

	req := httptest.NewRequest(http.MethodPost, "/sort", bytes.NewBufferString("key=profit"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := b.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	// Ascending by profit puts the loss row first.
	assert.Less(t, bytes.Index([]byte(body), []byte("1002")), bytes.Index([]byte(body), []byte("1001")))

	req = httptest.NewRequest(http.MethodPost, "/page", bytes.NewBufferString("target=99"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = b.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "第 1 / 1 页", "out-of-range page clamps")
}

func TestExport_RedirectsToBackend(t *testing.T) {
	b := &browser{t: t, srv: newTestServer(t)}
	b.upload()

	rec := b.do(httptest.NewRequest(http.MethodGet, "/export", nil))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "/api/export/s-1")
}

func TestExport_WithoutSession(t *testing.T) {
	b := &browser{t: t, srv: newTestServer(t)}

	rec := b.do(httptest.NewRequest(http.MethodGet, "/export", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "会话不存在，请先上传文件")
}

func TestUpload_BackendRejection(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"detail": "不支持的文件格式: .txt"})
	}))
	t.Cleanup(backend.Close)

	b := &browser{t: t, srv: NewServer(testConfig(), comparator.New(backend.URL, 5*time.Second))}

	rec := b.upload()

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "不支持的文件格式: .txt")
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)

	assert.True(t, rl.allow("1.2.3.4"))
	assert.True(t, rl.allow("1.2.3.4"))
	assert.False(t, rl.allow("1.2.3.4"))
	assert.True(t, rl.allow("5.6.7.8"), "limits are per IP")
}
