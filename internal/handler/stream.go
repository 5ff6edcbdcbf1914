package handler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"proudprofit/internal/realtime"
)

// writeTimeout bounds one websocket write; a peer slower than this is
// treated as gone.
const writeTimeout = 10 * time.Second

// StreamHandler serves the /ws live event feed. Each connection gets its
// own hub subscription; a close from either side tears the pair down.
type StreamHandler struct {
	Hub    *realtime.Hub
	Logger *zap.Logger
}

func (h *StreamHandler) Register(r gin.IRoutes) {
	r.GET("/ws", h.stream)
}

// @Summary Live signal and notification event stream
// @Tags realtime
// @Router /ws [get]
func (h *StreamHandler) stream(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("websocket accept failed", zap.Error(err))
		}
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closed")

	events, cancel := h.Hub.Subscribe()
	defer cancel()

	ctx := c.Request.Context()

	// Drain reads so control frames are processed and we notice the
	// client going away.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "server shutdown")
			return
		case <-readDone:
			return
		case ev, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "stream closed")
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			writeCtx, cancelWrite := context.WithTimeout(ctx, writeTimeout)
			err = conn.Write(writeCtx, websocket.MessageText, payload)
			cancelWrite()
			if err != nil {
				return
			}
		}
	}
}
