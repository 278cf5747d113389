package compareapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/orderrecon/orderrecon/internal/fieldmap"
	"github.com/orderrecon/orderrecon/internal/logging"
	"github.com/orderrecon/orderrecon/internal/recon"
	"github.com/orderrecon/orderrecon/internal/xlsx"
)

// uploadResponse seeds the client's mapping editor.
type uploadResponse struct {
	SessionID           string            `json:"session_id"`
	RequiredKeys        []string          `json:"required_keys"`
	OfficialColumns     []string          `json:"official_columns"`
	ServiceColumns      []string          `json:"service_columns"`
	OfficialAutoMapping map[string]string `json:"official_auto_mapping"`
	ServiceAutoMapping  map[string]string `json:"service_auto_mapping"`
	OfficialMissing     []string          `json:"official_missing"`
	ServiceMissing      []string          `json:"service_missing"`
}

// compareResponse carries the full result set of one compare call.
type compareResponse struct {
	Rows     []recon.Row   `json:"rows"`
	Summary  recon.Summary `json:"summary"`
	Warnings []string      `json:"warnings"`
}

// handleUpload ingests both exports, infers a column mapping for each, and
// opens a new session.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)
	if err := r.ParseMultipartForm(s.cfg.Upload.MaxFileSize); err != nil {
		writeDetail(w, http.StatusBadRequest, "文件过大或请求格式错误")
		return
	}

	officialCols, officialRecords, err := s.readUploadPart(r, "official_file")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	serviceCols, serviceRecords, err := s.readUploadPart(r, "service_file")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	sess := &session{
		OfficialColumns: officialCols,
		ServiceColumns:  serviceCols,
		OfficialRecords: officialRecords,
		ServiceRecords:  serviceRecords,
		OfficialAuto:    fieldmap.Infer(officialCols),
		ServiceAuto:     fieldmap.Infer(serviceCols),
	}
	sessionID := s.sessions.put(sess)

	log.Info("session created",
		"session_id", sessionID,
		"official_rows", len(officialRecords),
		"service_rows", len(serviceRecords),
	)

	writeJSON(w, uploadResponse{
		SessionID:           sessionID,
		RequiredKeys:        fieldmap.RequiredKeys,
		OfficialColumns:     officialCols,
		ServiceColumns:      serviceCols,
		OfficialAutoMapping: sess.OfficialAuto.Mapping,
		ServiceAutoMapping:  sess.ServiceAuto.Mapping,
		OfficialMissing:     sess.OfficialAuto.MissingKeys,
		ServiceMissing:      sess.ServiceAuto.MissingKeys,
	})
}

// readUploadPart reads one multipart file into a column universe plus raw
// records. Errors carry user-facing messages.
func (s *Server) readUploadPart(r *http.Request, field string) ([]string, []map[string]string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, nil, fmt.Errorf("缺少上传文件: %s", field)
	}
	defer file.Close()

	if header.Filename == "" || !xlsx.ValidExtension(header.Filename) {
		return nil, nil, fmt.Errorf("不支持的文件格式: %s", header.Filename)
	}
	columns, records, err := xlsx.ReadSheet(file)
	if err != nil {
		return nil, nil, fmt.Errorf("无法读取文件 %s: 请确认是有效的表格文件", header.Filename)
	}
	return columns, records, nil
}

// handleCompare validates the submitted mappings, reconciles the session's
// two record sets, and stores the result for export.
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	if err := r.ParseMultipartForm(s.cfg.Upload.MaxFileSize); err != nil {
		writeDetail(w, http.StatusBadRequest, "请求格式错误")
		return
	}

	sessionID := r.FormValue("session_id")
	sess, ok := s.sessions.get(sessionID)
	if !ok {
		writeDetail(w, http.StatusNotFound, "会话不存在，请重新上传文件")
		return
	}

	officialMapping, err := decodeMapping(r.FormValue("official_mapping"))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "official_mapping 格式错误")
		return
	}
	serviceMapping, err := decodeMapping(r.FormValue("service_mapping"))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "service_mapping 格式错误")
		return
	}

	officialMap := fieldmap.Validate(officialMapping, sess.OfficialColumns)
	serviceMap := fieldmap.Validate(serviceMapping, sess.ServiceColumns)
	if len(officialMap.MissingKeys) > 0 || len(serviceMap.MissingKeys) > 0 {
		writeDetail(w, http.StatusBadRequest, map[string][]string{
			"official_missing": officialMap.MissingKeys,
			"service_missing":  serviceMap.MissingKeys,
		})
		return
	}

	official, officialWarnings := recon.Standardize(sess.OfficialRecords, officialMap.Mapping, "官方订单")
	service, serviceWarnings := recon.Standardize(sess.ServiceRecords, serviceMap.Mapping, "客服统计")
	rows, summary, compareWarnings := recon.Reconcile(official, service)

	s.sessions.setResult(sessionID, rows, summary)

	warnings := make([]string, 0, len(officialWarnings)+len(serviceWarnings)+len(compareWarnings))
	warnings = append(warnings, officialWarnings...)
	warnings = append(warnings, serviceWarnings...)
	warnings = append(warnings, compareWarnings...)

	log.Info("compare completed",
		"session_id", sessionID,
		"rows", len(rows),
		"matched", summary.MatchedCount,
		"missing", summary.MissingCount,
		"extra", summary.ExtraCount,
	)

	writeJSON(w, compareResponse{Rows: rows, Summary: summary, Warnings: warnings})
}

// handleExport streams the result workbook for a session as a download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	sess, ok := s.sessions.get(sessionID)
	if !ok {
		writeDetail(w, http.StatusNotFound, "会话不存在")
		return
	}
	if !sess.HasResult {
		writeDetail(w, http.StatusBadRequest, "请先执行比对")
		return
	}

	data, err := xlsx.ExportResult(sess.Rows, sess.Summary)
	if err != nil {
		logging.FromContext(r.Context()).Error("export failed", "session_id", sessionID, "error", err)
		writeDetail(w, http.StatusInternalServerError, "导出失败")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename=`+exportFilename(sessionID))
	w.Write(data)
}

// decodeMapping parses a JSON-encoded key→column object. Null column values
// (unselected keys) decode to the empty string.
func decodeMapping(raw string) (map[string]string, error) {
	if raw == "" {
		return nil, fmt.Errorf("empty mapping")
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, err
	}
	return m, nil
}
