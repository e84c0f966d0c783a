package websocket

import (
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs upgrades a connection and attaches it to the hub for the account.
func ServeWs(hub *Hub, c *websocket.Conn, accountId uuid.UUID) {
	client := &Client{Hub: hub, Conn: c, AccountID: accountId, Send: make(chan []byte, 256)}
	client.Hub.register <- client

	go client.writePump()
	client.readPump()
}
