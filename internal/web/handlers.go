package web

import (
	"net/http"
	"strconv"

	"github.com/orderrecon/orderrecon/internal/comparator"
)

// handleIndex renders the workflow page for the browser's current state.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctrl := s.sessions.controllerFor(w, r)
	s.render(w, r, ctrl, "")
}

// handleUpload submits the two selected files and, on success, re-renders
// the workflow at the mapping stage. A missing file fails locally without a
// network call.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctrl := s.sessions.controllerFor(w, r)

	// Two files plus form overhead.
	r.Body = http.MaxBytesReader(w, r.Body, 2*s.cfg.Upload.MaxFileSize+1024)
	if err := r.ParseMultipartForm(2 * s.cfg.Upload.MaxFileSize); err != nil {
		s.render(w, r, ctrl, "文件过大或请求格式错误")
		return
	}

	official := formFile(r, "official_file")
	service := formFile(r, "service_file")

	_, err := ctrl.Upload(r.Context(), official, service)
	s.render(w, r, ctrl, s.notice(r, err))
}

// handleCompare collects the mapping snapshot from the submitted selectors
// and runs the comparison. The previous result stays visible on failure.
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	ctrl := s.sessions.controllerFor(w, r)

	if err := r.ParseForm(); err != nil {
		s.render(w, r, ctrl, "请求格式错误")
		return
	}

	st := ctrl.State()
	officialMapping := collectMapping(r, "off", st.RequiredKeys)
	serviceMapping := collectMapping(r, "srv", st.RequiredKeys)

	_, err := ctrl.Compare(r.Context(), officialMapping, serviceMapping)
	s.render(w, r, ctrl, s.notice(r, err))
}

// handleSort applies a header click.
func (s *Server) handleSort(w http.ResponseWriter, r *http.Request) {
	ctrl := s.sessions.controllerFor(w, r)
	if key := r.FormValue("key"); key != "" {
		ctrl.SetSort(key)
	}
	s.render(w, r, ctrl, "")
}

// handlePage moves to the requested page, clamped to the valid range.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	ctrl := s.sessions.controllerFor(w, r)
	if target, err := strconv.Atoi(r.FormValue("target")); err == nil {
		ctrl.GoToPage(target)
	}
	s.render(w, r, ctrl, "")
}

// handleExport redirects the browser to the comparison service's download
// URL for the active session.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ctrl := s.sessions.controllerFor(w, r)
	url, err := ctrl.ExportURL()
	if err != nil {
		s.render(w, r, ctrl, s.notice(r, err))
		return
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// formFile pulls one named upload out of the parsed form. Absent or empty
// files come back as a zero File, which the controller rejects locally.
func formFile(r *http.Request, field string) comparator.File {
	file, header, err := r.FormFile(field)
	if err != nil || header.Filename == "" || header.Size == 0 {
		return comparator.File{}
	}
	return comparator.File{Name: header.Filename, Content: file}
}
