package tracing

import (
	"github.com/gin-gonic/gin"
)

// accountHeader mirrors middleware.AccountHeader without importing it
const accountHeader = "X-Account"

// HTTPMiddleware traces each request, naming the span after its route.
func HTTPMiddleware(tracer *Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		operation := c.FullPath()
		if operation == "" {
			operation = c.Request.URL.Path
		}
		span, ctx := tracer.Start(Extract(c.Request.Context(), c.Request.Header), c.Request.Method+" "+operation)
		span.Account = c.GetHeader(accountHeader)
		span.Module = c.Param("name")

		c.Request = c.Request.WithContext(ctx)
		c.Header(TraceHeader, string(span.TraceID))
		c.Header(SpanHeader, string(span.SpanID))

		c.Next()

		var err error
		if last := c.Errors.Last(); last != nil {
			err = last.Err
		}
		span.Finish(c.Writer.Status(), err)
		tracer.Submit(span)
	}
}
