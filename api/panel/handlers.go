package panel

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kilianp07/motorpanel/core/dispatch/logging"
	"github.com/kilianp07/motorpanel/core/model"
	coremqtt "github.com/kilianp07/motorpanel/core/mqtt"
)

type commandResponse struct {
	Intent string `json:"intent"`
	Value  int    `json:"value"`
	Topic  string `json:"topic"`
}

type statusResponse struct {
	State     string `json:"state"`
	Connected bool   `json:"connected"`
	Topic     string `json:"topic"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handler) handlePreset(w http.ResponseWriter, r *http.Request) {
	intent, ok := model.IntentFromString(chi.URLParam(r, "intent"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown intent")
		return
	}
	if intent == model.IntentCustom {
		writeError(w, http.StatusBadRequest, "custom requires a value")
		return
	}
	v, _ := intent.Preset()
	h.dispatch(w, intent, v)
}

func (h *handler) handleCustom(w http.ResponseWriter, r *http.Request) {
	v, err := strconv.Atoi(chi.URLParam(r, "value"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "value must be an integer")
		return
	}
	h.dispatch(w, model.IntentCustom, v)
}

func (h *handler) dispatch(w http.ResponseWriter, intent model.Intent, value int) {
	err := h.Commander.Dispatch(intent, value)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, commandResponse{Intent: intent.String(), Value: value, Topic: model.CommandTopic})
	case errors.Is(err, model.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, coremqtt.ErrNotConnected):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		if h.Logger != nil {
			h.Logger.Errorf("dispatch %s: %v", intent, err)
		}
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func (h *handler) handleStatus(w http.ResponseWriter, _ *http.Request) {
	st := h.State.State()
	writeJSON(w, http.StatusOK, statusResponse{
		State:     st.String(),
		Connected: st == model.StateConnected,
		Topic:     model.CommandTopic,
	})
}

// handleCommands serves the command log. Supported query parameters are
// start and end (RFC3339), intent, outcome and limit.
func (h *handler) handleCommands(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q := logging.CommandQuery{
		Intent:  params.Get("intent"),
		Outcome: params.Get("outcome"),
	}
	var err error
	if s := params.Get("start"); s != "" {
		if q.Start, err = time.Parse(time.RFC3339, s); err != nil {
			writeError(w, http.StatusBadRequest, "invalid start")
			return
		}
	}
	if s := params.Get("end"); s != "" {
		if q.End, err = time.Parse(time.RFC3339, s); err != nil {
			writeError(w, http.StatusBadRequest, "invalid end")
			return
		}
	}
	if s := params.Get("limit"); s != "" {
		if q.Limit, err = strconv.Atoi(s); err != nil || q.Limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
	}
	records, err := h.Store.Query(r.Context(), q)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []logging.CommandRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
