package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"storyreel/internal/appcore"
	"storyreel/internal/response"
	"storyreel/log"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// JobEvents streams JobEvents of one render or story job over a websocket.
// A finished job gets its final state and a close frame; a live job is
// followed until it reaches a terminal stage or the client goes away.
func (h Handler) JobEvents(c *gin.Context) {
	jobID := c.Param("jobId")
	logger := log.GetLogger().With(zap.String("job_id", jobID))

	if _, err := h.Service.Snapshot(jobID); err != nil {
		response.ErrorResponse(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	events, stop := h.Service.Subscribe(jobID)
	defer stop()

	// read after subscribing so a job finishing in between is not missed
	snap, err := h.Service.Snapshot(jobID)
	if err == nil && snap.Stage.IsTerminal() {
		_ = writeEvent(conn, snap)
		closeNormal(conn)
		return
	}

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-gone:
			logger.Debug("websocket client left")
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				closeNormal(conn)
				return
			}
			if err := writeEvent(conn, ev); err != nil {
				logger.Debug("websocket write failed", zap.Error(err))
				return
			}
			if ev.Stage.IsTerminal() {
				closeNormal(conn)
				return
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, ev appcore.JobEvent) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(ev)
}

func closeNormal(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
