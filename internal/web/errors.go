package web

// errors.go maps workflow failures to the blocking user notice rendered at
// the top of the page. Local precondition failures and remote rejections
// carry user-facing Chinese text already; everything else is logged with
// its technical detail and shown as a generic retryable message.

import (
	"context"
	"errors"
	"net/http"

	"github.com/orderrecon/orderrecon/internal/comparator"
	"github.com/orderrecon/orderrecon/internal/controller"
	"github.com/orderrecon/orderrecon/internal/logging"
)

// notice converts an operation error into the user notice text. Returns ""
// for nil errors.
func (s *Server) notice(r *http.Request, err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, controller.ErrMissingFiles),
		errors.Is(err, controller.ErrNoSession),
		errors.Is(err, controller.ErrBusy):
		return err.Error()
	}

	var uploadErr *comparator.UploadError
	if errors.As(err, &uploadErr) {
		return uploadErr.Message
	}

	var compareErr *comparator.CompareError
	if errors.As(err, &compareErr) {
		return "比对失败: " + string(compareErr.Detail)
	}

	log := logging.FromContext(r.Context())
	if errors.Is(err, context.DeadlineExceeded) {
		log.Warn("remote operation timed out", "path", r.URL.Path, "error", err)
		return "请求超时，请稍后重试"
	}

	log.Error("operation failed", "path", r.URL.Path, "error", err)
	return "操作失败，请稍后重试"
}
