package notify

import (
	"net/http"
	"time"

	"meeting-platform/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The front end is served from a different origin; auth happens via
		// the bearer token checked before the upgrade.
		return true
	},
}

const writeTimeout = 5 * time.Second

// ServeWS upgrades the connection and relays the call's notices until the
// client disconnects or the subscription closes.
func ServeWS(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.FromGin(c)
		callID := c.Param("id")
		if callID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "call id required"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Error("ws upgrade failed", "err", err)
			return
		}

		sub := hub.Subscribe(callID)
		defer sub.Close()
		defer conn.Close()

		// Reader goroutine exists only to observe the close.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
						log.Debug("ws read closed", "call_id", callID, "err", err)
					}
					return
				}
			}
		}()

		for {
			select {
			case <-done:
				return
			case n, ok := <-sub.C():
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteJSON(n); err != nil {
					log.Debug("ws write failed", "call_id", callID, "err", err)
					return
				}
			}
		}
	}
}
