package middleware

import (
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/counselcms/server/internal/api"

// Tracing opens a server span per request and continues any W3C trace
// context sent by the caller. Once the mux has matched, the span is renamed
// to the route pattern so /blog/{slug} is one span name, not one per post.
// Responses of 500 and above mark the span as failed.
func Tracing(next http.Handler) http.Handler {
	tracer := otel.Tracer(tracerName)
	propagator := otel.GetTextMapPropagator()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPMethod(r.Method),
				attribute.String("url.path", r.URL.Path),
				semconv.HTTPScheme(schemeFromRequest(r)),
				semconv.NetHostName(r.Host),
				attribute.String("counsel.surface", surface(r.URL.Path)),
			),
		)
		defer span.End()

		if requestID := GetRequestID(ctx); requestID != "" {
			span.SetAttributes(attribute.String("request_id", requestID))
		}

		rw := &statusRecorder{ResponseWriter: w}
		routed := r.WithContext(ctx)
		next.ServeHTTP(rw, routed)

		if routed.Pattern != "" {
			span.SetName(routed.Pattern)
			span.SetAttributes(semconv.HTTPRoute(routed.Pattern))
		}
		status := rw.Status()
		span.SetAttributes(semconv.HTTPStatusCode(status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	})
}

// surface classifies a path as the public site, the admin console or the
// JSON API.
func surface(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/v1/admin"):
		return "admin_api"
	case strings.HasPrefix(path, "/api/"):
		return "public_api"
	case path == "/admin" || strings.HasPrefix(path, "/admin/"):
		return "admin_console"
	default:
		return "site"
	}
}

func schemeFromRequest(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
