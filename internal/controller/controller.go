package controller

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/orderrecon/orderrecon/internal/comparator"
	"github.com/orderrecon/orderrecon/internal/table"
)

// Local precondition failures. These surface as user notices and never
// reach the network.
var (
	ErrMissingFiles = errors.New("请先选择两个文件")
	ErrNoSession    = errors.New("会话不存在，请先上传文件")
	ErrBusy         = errors.New("操作正在进行中，请稍候")
)

// Comparator is the remote-operation surface the controller drives.
// Satisfied by *comparator.Client.
type Comparator interface {
	Upload(ctx context.Context, official, service comparator.File) (*comparator.UploadResult, error)
	Compare(ctx context.Context, sessionID string, officialMapping, serviceMapping map[string]string) (*comparator.CompareResult, error)
	ExportURL(sessionID string) string
}

// Controller sequences Upload → Compare → Export for one workflow session
// and serializes the remote operations: while an upload or compare is in
// flight, further submissions are refused with ErrBusy instead of racing.
type Controller struct {
	mu     sync.Mutex
	state  State
	busy   bool
	client Comparator
	engine *table.Engine
	log    *slog.Logger
}

// New builds a controller in the NoSession stage.
func New(client Comparator, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		state:  initialState(),
		client: client,
		engine: table.NewEngine(),
		log:    logger,
	}
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// PageView renders the current result page atomically from the current
// snapshot.
func (c *Controller) PageView() table.Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.Render(c.state.Rows, c.state.Sort, c.state.Page)
}

// Upload opens a new session from the two selected files. On success all
// prior state is discarded and the workflow returns to the mapping stage;
// on failure the previous state is untouched.
func (c *Controller) Upload(ctx context.Context, official, service comparator.File) (State, error) {
	if official.Name == "" || service.Name == "" || official.Content == nil || service.Content == nil {
		return c.State(), ErrMissingFiles
	}
	if err := c.acquire(); err != nil {
		return c.State(), err
	}
	defer c.release()

	res, err := c.client.Upload(ctx, official, service)
	if err != nil {
		return c.State(), err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = applyUpload(res)
	c.log.Info("session opened",
		"session_id", res.SessionID,
		"official_columns", len(res.OfficialColumns),
		"service_columns", len(res.ServiceColumns),
	)
	return c.state, nil
}

// Compare submits the collected mapping snapshot for the active session and
// installs the returned row set. A response that comes back for a session
// other than the currently active one (the user re-uploaded while the call
// was in flight) is discarded and logged, never installed.
func (c *Controller) Compare(ctx context.Context, officialMapping, serviceMapping map[string]string) (State, error) {
	c.mu.Lock()
	sessionID := c.state.SessionID
	c.mu.Unlock()
	if sessionID == "" {
		return c.State(), ErrNoSession
	}
	if err := c.acquire(); err != nil {
		return c.State(), err
	}
	defer c.release()

	res, err := c.client.Compare(ctx, sessionID, officialMapping, serviceMapping)
	if err != nil {
		return c.State(), err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if res.SessionID != c.state.SessionID {
		c.log.Warn("discarding stale compare response",
			"response_session", res.SessionID,
			"active_session", c.state.SessionID,
		)
		return c.state, nil
	}
	c.state = applyCompare(c.state, officialMapping, serviceMapping, res)
	c.log.Info("compare installed",
		"session_id", res.SessionID,
		"rows", len(res.Rows),
		"warnings", len(res.Warnings),
	)
	return c.state, nil
}

// ExportURL returns the download URL for the active session. Export is a
// side read: it never changes state.
func (c *Controller) ExportURL() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.SessionID == "" {
		return "", ErrNoSession
	}
	return c.client.ExportURL(c.state.SessionID), nil
}

// SetSort applies a header click and returns the new snapshot.
func (c *Controller) SetSort(key string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = applySort(c.state, key)
	return c.state
}

// GoToPage moves to the clamped target page and returns the new snapshot.
func (c *Controller) GoToPage(target int) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = applyPage(c.state, target)
	return c.state
}

// acquire takes the single in-flight slot for remote operations.
func (c *Controller) acquire() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return ErrBusy
	}
	c.busy = true
	return nil
}

func (c *Controller) release() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
}
