/*
Package tracing follows a request from the registry client into the server.

Each HTTP request gets a span named after its route ("PUT /modules/:name").
The span records the calling account and the module in the path. Trace
position travels in the X-Trace-ID and X-Span-ID headers: the client calls
Inject on outgoing requests and HTTPMiddleware calls Extract on the way in,
so both sides log the same trace ID.

	tracer := tracing.New(logger)
	defer tracer.Close()
	router.Use(tracing.HTTPMiddleware(tracer))

Finished spans are queued (1000) for a collector goroutine that logs them at
debug level, or warn for 5xx. A full queue drops the span.
*/
package tracing
