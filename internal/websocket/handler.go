package websocket

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"pollstream/internal/services"
)

type Handler struct {
	tokens *services.TokenService
	hub    *Hub
}

func NewHandler(tokens *services.TokenService, hub *Hub) *Handler {
	return &Handler{tokens: tokens, hub: hub}
}

// Connect upgrades the request and attaches the viewer to the poll stream.
// The channel is outbound only; clients send nothing beyond the connection
// itself. A token is optional: anonymous viewers watch the same stream.
func (h *Handler) Connect(c *gin.Context) {
	userID := ""
	if token := c.Query("token"); token != "" {
		if claims, err := h.tokens.ParseAccessToken(token); err == nil {
			userID = claims.UserID
		}
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := NewClient(conn, userID)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.hub.Register(client)
	go client.WriteLoop(ctx)

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	}

	h.hub.Unregister(client)
}
