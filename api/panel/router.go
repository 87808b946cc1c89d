// Package panel exposes the motor control panel over HTTP: command buttons,
// session status, the command log and a websocket stream of panel events.
package panel

import (
	"crypto/subtle"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/kilianp07/motorpanel/core/dispatch/logging"
	"github.com/kilianp07/motorpanel/core/events"
	"github.com/kilianp07/motorpanel/core/logger"
	"github.com/kilianp07/motorpanel/core/model"
)

// Commander dispatches operator intents.
type Commander interface {
	Dispatch(intent model.Intent, value int) error
}

// StateReader exposes the session state.
type StateReader interface {
	State() model.ConnectionState
}

// EventSource hands out subscriptions to the panel event bus.
type EventSource interface {
	Subscribe() <-chan events.Event
	Unsubscribe(<-chan events.Event)
}

// Deps wires the router to the running panel. Store and Events are optional.
type Deps struct {
	Commander Commander
	State     StateReader
	Store     logging.CommandStore
	Events    EventSource
	Logger    logger.Logger
	// Token, when set, is required as "Authorization: Bearer <token>".
	Token string
	// AllowedOrigins lists extra websocket origins besides the request host.
	AllowedOrigins []string
}

type handler struct {
	Deps
	upgrader websocket.Upgrader
}

// NewRouter returns the panel HTTP handler.
func NewRouter(d Deps) http.Handler {
	if d.Store == nil {
		d.Store = logging.NopStore{}
	}
	h := &handler{Deps: d}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Route("/api", func(r chi.Router) {
		r.Use(bearerAuth(d.Token))
		r.Post("/motor/custom/{value}", h.handleCustom)
		r.Post("/motor/{intent}", h.handlePreset)
		r.Get("/status", h.handleStatus)
		r.Get("/commands", h.handleCommands)
		if d.Events != nil {
			r.Get("/events", h.handleEvents)
		}
	})
	return r
}

func bearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		want := []byte("Bearer " + token)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if subtle.ConstantTimeCompare([]byte(r.Header.Get("Authorization")), want) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// checkOrigin accepts non-browser clients, same-host pages and the
// configured origins.
func (h *handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	for _, o := range h.AllowedOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}
