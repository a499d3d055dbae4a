// Package ws streams committed registry events over WebSocket.
//
// Every connection receives a "system" greeting and then one "event" message
// per committed mutation. Clients may narrow the stream at any time.
//
// Message Types (Client → Server):
//   - subscribe: Replace the filter with {"modules": [...], "kinds": [...]}
//   - ping: Keep-alive ping
//
// Message Types (Server → Client):
//   - system: Connection greeting
//   - event: One registry event
//   - subscribed: Filter accepted
//   - pong: Reply to ping
//   - error: Malformed or unknown message
//
// Slow clients whose buffer fills are disconnected; registry commits never
// wait on a socket.
//
// Example Usage:
//
//	handler := ws.NewHandler(reg, ws.WithMetrics(metrics))
//	router.GET("/api/v1/stream", handler.HandleConnection)
package ws
