package panel

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kilianp07/motorpanel/core/events"
)

const writeWait = 5 * time.Second

// handleEvents streams panel events as JSON text frames. The first frame is
// the current session state.
func (h *handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warnf("websocket upgrade: %v", err)
		}
		return
	}
	defer conn.Close()

	sub := h.Events.Subscribe()
	defer h.Events.Unsubscribe(sub)

	// The client never sends anything meaningful; reading detects the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	snapshot := events.Event{Kind: events.KindState, Time: time.Now(), State: h.State.State().String()}
	if err := writeEvent(conn, snapshot); err != nil {
		return
	}
	for {
		select {
		case <-closed:
			return
		case ev, ok := <-sub:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "panel shutting down"),
					time.Now().Add(writeWait))
				return
			}
			if err := writeEvent(conn, ev); err != nil {
				if h.Logger != nil {
					h.Logger.Debugf("websocket write: %v", err)
				}
				return
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, ev events.Event) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(ev)
}
