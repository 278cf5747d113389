// Package comparator is the HTTP client adapter for the comparison
// service. It is stateless: every call carries the opaque session id, and a
// failed call leaves no trace in the caller.
package comparator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/orderrecon/orderrecon/internal/recon"
)

// File is an upload part: the user-visible filename plus its content.
type File struct {
	Name    string
	Content io.Reader
}

// UploadResult is the upload response: the new session plus everything the
// mapping editor needs to render.
type UploadResult struct {
	SessionID           string            `json:"session_id"`
	RequiredKeys        []string          `json:"required_keys"`
	OfficialColumns     []string          `json:"official_columns"`
	ServiceColumns      []string          `json:"service_columns"`
	OfficialAutoMapping map[string]string `json:"official_auto_mapping"`
	ServiceAutoMapping  map[string]string `json:"service_auto_mapping"`
	OfficialMissing     []string          `json:"official_missing"`
	ServiceMissing      []string          `json:"service_missing"`
}

// CompareResult is the compare response. SessionID records which session the
// request was made under so callers can discard stale responses.
type CompareResult struct {
	SessionID string        `json:"-"`
	Rows      []recon.Row   `json:"rows"`
	Summary   recon.Summary `json:"summary"`
	Warnings  []string      `json:"warnings"`
}

// UploadError is a rejected upload. Message is safe to show to the user.
type UploadError struct {
	Status  int
	Message string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload rejected (%d): %s", e.Status, e.Message)
}

// CompareError is a rejected compare. Detail carries the service's
// structured rejection payload verbatim.
type CompareError struct {
	Status int
	Detail json.RawMessage
}

func (e *CompareError) Error() string {
	return fmt.Sprintf("compare rejected (%d): %s", e.Status, string(e.Detail))
}

// Client talks to one comparison service instance.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// New builds a client. timeout bounds every request end to end; a hung
// service surfaces as a retryable error instead of a forever-pending call.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
	}
}

// Upload submits both files and opens a new session.
func (c *Client) Upload(ctx context.Context, official, service File) (*UploadResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, part := range []struct {
		field string
		file  File
	}{
		{"official_file", official},
		{"service_file", service},
	} {
		fw, err := mw.CreateFormFile(part.field, part.file.Name)
		if err != nil {
			return nil, fmt.Errorf("build %s part: %w", part.field, err)
		}
		if _, err := io.Copy(fw, part.file.Content); err != nil {
			return nil, fmt.Errorf("copy %s: %w", part.field, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &UploadError{Status: resp.StatusCode, Message: detailMessage(resp.Body)}
	}

	var result UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	return &result, nil
}

// Compare submits both column mappings for an existing session.
func (c *Client) Compare(ctx context.Context, sessionID string, officialMapping, serviceMapping map[string]string) (*CompareResult, error) {
	officialJSON, err := json.Marshal(officialMapping)
	if err != nil {
		return nil, fmt.Errorf("encode official mapping: %w", err)
	}
	serviceJSON, err := json.Marshal(serviceMapping)
	if err != nil {
		return nil, fmt.Errorf("encode service mapping: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fields := map[string]string{
		"session_id":       sessionID,
		"official_mapping": string(officialJSON),
		"service_mapping":  string(serviceJSON),
	}
	for _, field := range []string{"session_id", "official_mapping", "service_mapping"} {
		if err := mw.WriteField(field, fields[field]); err != nil {
			return nil, fmt.Errorf("build %s field: %w", field, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/compare", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("compare request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &CompareError{Status: resp.StatusCode, Detail: rawDetail(resp.Body)}
	}

	result := CompareResult{SessionID: sessionID}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode compare response: %w", err)
	}
	return &result, nil
}

// ExportURL returns the navigation URL that downloads the result workbook
// for the session. The response content is opaque to this client.
func (c *Client) ExportURL(sessionID string) string {
	return c.baseURL + "/api/export/" + sessionID
}

// detailMessage extracts {detail: string} from a failure body, falling back
// to a generic message.
func detailMessage(r io.Reader) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(r).Decode(&payload); err == nil && payload.Detail != "" {
		return payload.Detail
	}
	return "上传失败"
}

// rawDetail extracts the detail payload of a failure body without assuming
// its shape.
func rawDetail(r io.Reader) json.RawMessage {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.NewDecoder(r).Decode(&payload); err == nil && len(payload.Detail) > 0 {
		return payload.Detail
	}
	return json.RawMessage(`"比对失败"`)
}
