package handlers

import (
	"context"
	"net/http"
	"time"

	"clouddrive/database"
	"clouddrive/logger"
	"clouddrive/repositories"
	"clouddrive/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
)

// EventStream upgrades the connection and relays the user's event channel
// over the websocket. Browsers cannot set headers on websocket requests, so
// the token arrives as a query parameter instead of the Authorization header.
func EventStream(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		utils.Error(c, http.StatusUnauthorized, "missing token")
		return
	}
	claims, err := utils.ParseToken(token)
	if err != nil {
		utils.Error(c, http.StatusUnauthorized, "invalid or expired token")
		return
	}

	if database.RedisClient == nil {
		utils.Error(c, http.StatusServiceUnavailable, "event stream unavailable")
		return
	}

	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Debugf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	sub := database.RedisClient.Subscribe(ctx, repositories.UserEventChannel(claims.UserID))
	defer sub.Close()

	// Drain reads so close frames and pongs are processed.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case msg, ok := <-ch:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				return
			}
		}
	}
}
