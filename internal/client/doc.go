// Package client is a Go client for the registry HTTP API.
//
// Requests go through a token-bucket limiter, retry on connection errors and
// overload statuses, and pass a circuit breaker that ignores 4xx answers.
// Failed responses come back as *APIError, which unwraps to the domain
// sentinel:
//
//	c := client.New(client.DefaultConfig("http://localhost:8000"))
//	_, err := c.As("alice").CreateModule(ctx, req)
//	if errors.Is(err, registry.ErrDuplicateName) {
//		...
//	}
package client
