// Package middleware provides HTTP middleware for the registry API.
//
// Middleware stack includes:
//   - CORS: Cross-origin resource sharing with configurable origins
//   - RateLimit: Token bucket per account, or per IP for anonymous callers
//   - RequestID: UUID request IDs echoed in X-Request-ID
//   - Account: Caller identity from the X-Account header
//
// Example Usage:
//
//	router.Use(middleware.RequestID())
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.Account())
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
//
//	writes := router.Group("/", middleware.RequireAccount())
package middleware
