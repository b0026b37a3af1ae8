// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Custom WebSocket close codes used by the session socket.
const (
	SessionClosedError websocket.StatusCode = 3003 // Session no longer accepts this seat.
	SlowConsumerError  websocket.StatusCode = 3004 // Client fell too far behind the event stream.
)
