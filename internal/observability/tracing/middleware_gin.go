package tracing

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/aquaalerts/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	AttrActorRole    = attribute.Key("aquaalerts.actor.role")
	AttrActorID      = attribute.Key("aquaalerts.actor.id")
	AttrAlertID      = attribute.Key("aquaalerts.alert.id")
	AttrSubjectID    = attribute.Key("aquaalerts.subject.id")
	AttrReportMonth  = attribute.Key("aquaalerts.report.month")
	AttrStreamActive = attribute.Key("aquaalerts.stream")
)

// GinMiddleware instruments inbound HTTP requests. Paths in skip are served
// without a span.
func GinMiddleware(skip ...string) gin.HandlerFunc {
	tracer := otel.Tracer("aquaalerts/http")
	skipped := make(map[string]struct{}, len(skip))
	for _, path := range skip {
		skipped[path] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skipped[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, "HTTP "+strings.ToUpper(c.Request.Method), trace.WithSpanKind(trace.SpanKindServer))

		if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
			if member, err := baggage.NewMember("request_id", requestID); err == nil {
				if bag, err := baggage.New(member); err == nil {
					ctx = baggage.ContextWithBaggage(ctx, bag)
				}
			}
			span.SetAttributes(attribute.String("request_id", requestID))
		}

		c.Request = c.Request.WithContext(ctx)
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		span.SetName("HTTP " + strings.ToUpper(c.Request.Method) + " " + route)
		span.SetAttributes(SafeAttributes(
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", c.Writer.Status()),
			attribute.Int64("http.server_duration_ms", time.Since(start).Milliseconds()),
		)...)
		span.SetAttributes(SafeAttributes(domainAttributes(c)...)...)

		if status := c.Writer.Status(); status >= http.StatusInternalServerError {
			if lastErr := c.Errors.Last(); lastErr != nil {
				if safeErr := SafeError(lastErr.Err); safeErr != nil {
					span.RecordError(safeErr)
				}
			}
			span.SetStatus(codes.Error, "request error")
		}
		span.End()
	}
}

// domainAttributes reads the actor stamped by the auth middleware and the
// resource ids carried in the route.
func domainAttributes(c *gin.Context) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if role, id := obscontext.ActorFromContext(c.Request.Context()); id != "" {
		attrs = append(attrs, AttrActorRole.String(role), AttrActorID.String(id))
	}
	if id := strings.TrimSpace(c.Param("id")); id != "" && strings.HasPrefix(c.FullPath(), "/api/alerts/") {
		attrs = append(attrs, AttrAlertID.String(id))
	}
	if id := strings.TrimSpace(c.Param("userId")); id != "" {
		attrs = append(attrs, AttrSubjectID.String(id))
	}
	if c.FullPath() == "/api/usage/report" {
		if month := strings.TrimSpace(c.Query("month")); month != "" {
			attrs = append(attrs, AttrReportMonth.String(month))
		}
	}
	if strings.HasPrefix(c.Writer.Header().Get("Content-Type"), "text/event-stream") {
		attrs = append(attrs, AttrStreamActive.Bool(true))
	}
	return attrs
}
