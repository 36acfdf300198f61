package orderControllers

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/heyadhira/photoframe-api/models"
)

// Live order feed for the admin dashboard. Delivery is best effort: a write
// failure drops that connection and the loop moves on.

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

var (
	wsMu      sync.Mutex
	wsClients = make(map[*websocket.Conn]bool)
)

type orderEvent struct {
	Type  string        `json:"type"`
	Order *models.Order `json:"order"`
}

// GET /orders/ws (admin)
func OrderFeedHandler(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	wsMu.Lock()
	wsClients[conn] = true
	wsMu.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			wsMu.Lock()
			delete(wsClients, conn)
			wsMu.Unlock()
			break
		}
	}
}

func broadcastOrderEvent(lg *zap.Logger, eventType string, order *models.Order) {
	event := orderEvent{Type: eventType, Order: order}

	wsMu.Lock()
	defer wsMu.Unlock()
	for client := range wsClients {
		if err := client.WriteJSON(event); err != nil {
			lg.Debug("order feed write failed, dropping client", zap.Error(err))
			client.Close()
			delete(wsClients, client)
		}
	}
}
