package web

import (
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/orderrecon/orderrecon/internal/comparator"
	"github.com/orderrecon/orderrecon/internal/controller"
	"github.com/orderrecon/orderrecon/internal/logging"
)

// sessionCookie identifies a browser's workflow session. It is unrelated to
// the comparison-service session id, which the controller owns.
const sessionCookie = "orderrecon_sid"

// sessionRegistry hands out one session controller per browser, keyed by a
// uuid cookie. Controllers live for the process lifetime; there is no
// persistence.
type sessionRegistry struct {
	mu          sync.Mutex
	controllers map[string]*controller.Controller
	client      *comparator.Client
}

func newSessionRegistry(client *comparator.Client) *sessionRegistry {
	return &sessionRegistry{
		controllers: make(map[string]*controller.Controller),
		client:      client,
	}
}

// controllerFor returns the controller for the requesting browser, creating
// it (and its cookie) on first contact.
func (reg *sessionRegistry) controllerFor(w http.ResponseWriter, r *http.Request) *controller.Controller {
	var id string
	if cookie, err := r.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		id = cookie.Value
	} else {
		id = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	ctrl, ok := reg.controllers[id]
	if !ok {
		ctrl = controller.New(reg.client, logging.FromContext(r.Context()))
		reg.controllers[id] = ctrl
	}
	return ctrl
}
