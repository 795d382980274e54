package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"scribe/internal/logging"
	"scribe/internal/progress"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The API serves local tooling; cross-origin browser clients are
	// expected.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleTaskSocket streams live progress events for one task over a
// websocket. The stream ends when the task publishes its terminal event.
// A task that is already terminal gets a single snapshot event and an
// immediate close.
func (s *Server) handleTaskSocket(w http.ResponseWriter, r *http.Request) {
	task, err := s.lookupTask(w, r)
	if task == nil || err != nil {
		return
	}

	var sub *progress.Subscription
	if !task.IsTerminal() {
		// Subscribe before the snapshot so no event between the two is
		// lost.
		sub = s.hub.Subscribe(task.TaskID)
		defer sub.Close()
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()

	snapshot := progress.Event{
		TaskID:    task.TaskID,
		Type:      progress.EventProgress,
		Stage:     task.ProgressStage,
		Percent:   task.ProgressPercent,
		Message:   task.ProgressMessage,
		Timestamp: time.Now().UTC(),
	}
	if task.IsTerminal() {
		snapshot.Type = progress.EventCompletion
		if task.ErrorMessage != "" {
			snapshot.Type = progress.EventError
			snapshot.Message = task.ErrorMessage
		}
	}
	if err := s.writeEvent(conn, snapshot); err != nil {
		return
	}
	if sub == nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(wsWriteTimeout))
		return
	}

	// Drain client frames so close handshakes and pongs are processed.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case event, ok := <-sub.Events():
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(wsWriteTimeout))
				return
			}
			if err := s.writeEvent(conn, event); err != nil {
				return
			}
		case <-ping.C:
			deadline := time.Now().Add(wsWriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case <-clientGone:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) writeEvent(conn *websocket.Conn, event progress.Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(event)
}
