package tracing

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dapplets/dapplet-registry/internal/shared/id"
)

// TraceID identifies one request chain across client and server
type TraceID string

// SpanID identifies one hop of a trace
type SpanID string

// Propagation headers
const (
	TraceHeader = "X-Trace-ID"
	SpanHeader  = "X-Span-ID"
)

// spanBuffer bounds spans awaiting the collector
const spanBuffer = 1000

// Span is one traced registry operation.
type Span struct {
	TraceID   TraceID
	SpanID    SpanID
	ParentID  SpanID
	Operation string
	Account   string
	Module    string
	Start     time.Time
	Duration  time.Duration
	Status    int
	Err       error
}

// Finish stamps the duration with the final status
func (s *Span) Finish(status int, err error) {
	s.Duration = time.Since(s.Start)
	s.Status = status
	s.Err = err
}

func (s *Span) fields() []zap.Field {
	fields := []zap.Field{
		zap.String("trace_id", string(s.TraceID)),
		zap.String("span_id", string(s.SpanID)),
		zap.String("operation", s.Operation),
		zap.Duration("duration", s.Duration),
		zap.Int("status", s.Status),
	}
	if s.ParentID != "" {
		fields = append(fields, zap.String("parent_id", string(s.ParentID)))
	}
	if s.Account != "" {
		fields = append(fields, zap.String("account", s.Account))
	}
	if s.Module != "" {
		fields = append(fields, zap.String("module", s.Module))
	}
	if s.Err != nil {
		fields = append(fields, zap.Error(s.Err))
	}
	return fields
}

// Tracer hands finished spans to a background collector that logs them.
type Tracer struct {
	logger *zap.Logger
	spans  chan *Span
	done   chan struct{}
	once   sync.Once
}

// New starts a tracer logging through logger
func New(logger *zap.Logger) *Tracer {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tracer{
		logger: logger,
		spans:  make(chan *Span, spanBuffer),
		done:   make(chan struct{}),
	}
	go t.collect()
	return t
}

// Start opens a span for operation, continuing any trace already in ctx.
func (t *Tracer) Start(ctx context.Context, operation string) (*Span, context.Context) {
	traceID := TraceIDFrom(ctx)
	if traceID == "" {
		traceID = TraceID(id.NewRequestID())
	}
	span := &Span{
		TraceID:   traceID,
		SpanID:    SpanID(id.NewRequestID()),
		ParentID:  SpanIDFrom(ctx),
		Operation: operation,
		Start:     time.Now(),
	}
	return span, WithTrace(ctx, span.TraceID, span.SpanID)
}

// Submit queues a finished span, dropping it when the buffer is full
func (t *Tracer) Submit(span *Span) {
	select {
	case t.spans <- span:
	default:
		t.logger.Warn("span buffer full, dropping span",
			zap.String("trace_id", string(span.TraceID)),
			zap.String("operation", span.Operation),
		)
	}
}

// Close drains queued spans and stops the collector
func (t *Tracer) Close() {
	t.once.Do(func() {
		close(t.spans)
		<-t.done
	})
}

func (t *Tracer) collect() {
	defer close(t.done)
	for span := range t.spans {
		switch {
		case span.Status >= http.StatusInternalServerError:
			t.logger.Warn("span failed", span.fields()...)
		default:
			t.logger.Debug("span completed", span.fields()...)
		}
	}
}

type contextKey int

const (
	traceIDKey contextKey = iota
	spanIDKey
)

// WithTrace returns ctx carrying the given trace position
func WithTrace(ctx context.Context, traceID TraceID, spanID SpanID) context.Context {
	if traceID != "" {
		ctx = context.WithValue(ctx, traceIDKey, traceID)
	}
	if spanID != "" {
		ctx = context.WithValue(ctx, spanIDKey, spanID)
	}
	return ctx
}

// TraceIDFrom returns the trace in ctx, or ""
func TraceIDFrom(ctx context.Context) TraceID {
	traceID, _ := ctx.Value(traceIDKey).(TraceID)
	return traceID
}

// SpanIDFrom returns the current span in ctx, or ""
func SpanIDFrom(ctx context.Context) SpanID {
	spanID, _ := ctx.Value(spanIDKey).(SpanID)
	return spanID
}

// Extract reads the caller's trace position from request headers
func Extract(ctx context.Context, h http.Header) context.Context {
	return WithTrace(ctx, TraceID(h.Get(TraceHeader)), SpanID(h.Get(SpanHeader)))
}

// Inject writes the trace position in ctx onto outgoing headers
func Inject(ctx context.Context, h http.Header) {
	if traceID := TraceIDFrom(ctx); traceID != "" {
		h.Set(TraceHeader, string(traceID))
	}
	if spanID := SpanIDFrom(ctx); spanID != "" {
		h.Set(SpanHeader, string(spanID))
	}
}
