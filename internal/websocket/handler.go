package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs streams a session's snapshots to the peer until either side
// closes.
func ServeWs(hub *Hub, c *websocket.Conn, sessionID string) {
	client := &Client{Hub: hub, Conn: c, SessionID: sessionID, Send: make(chan []byte, 64)}
	select {
	case client.Hub.register <- client:
	case <-hub.done:
		c.Close()
		return
	}

	go client.writePump()
	client.readPump()
}
