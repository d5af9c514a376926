package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/stormwatch/stormwatch/internal/api/middleware"

// Tracing starts a server span per request, continuing any incoming W3C
// trace context. Weather lookups are tagged with the searched city or
// coordinates and a failed lookup adds a "city_not_found" event, so a
// search can be followed from the request into the provider calls.
func Tracing(serviceName string) func(http.Handler) http.Handler {
	tracer := otel.Tracer(tracerName)
	propagator := otel.GetTextMapPropagator()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

			attrs := []attribute.KeyValue{
				attribute.String("http.request.method", r.Method),
				attribute.String("http.route", r.URL.Path),
				attribute.String("url.scheme", scheme(r)),
				attribute.String("url.path", r.URL.Path),
				attribute.String("server.address", r.Host),
				attribute.String("user_agent.original", r.UserAgent()),
				attribute.String("client.address", r.RemoteAddr),
			}
			if serviceName != "" {
				attrs = append(attrs, attribute.String("service.name", serviceName))
			}
			if requestID := GetRequestID(ctx); requestID != "" {
				attrs = append(attrs, attribute.String("request.id", requestID))
			}
			lookup := strings.HasPrefix(r.URL.Path, "/v1/weather")
			if lookup {
				attrs = append(attrs, lookupAttributes(r)...)
			}

			ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(attrs...),
			)
			defer span.End()

			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r.WithContext(ctx))

			// chi resolves the pattern while routing.
			if route := routePattern(r); route != r.URL.Path {
				span.SetName(r.Method + " " + route)
				span.SetAttributes(attribute.String("http.route", route))
			}

			span.SetAttributes(
				attribute.Int("http.response.status_code", wrapped.statusCode),
				attribute.Int64("http.response.body.size", wrapped.written),
			)

			switch {
			case wrapped.statusCode >= http.StatusInternalServerError:
				span.SetStatus(codes.Error, http.StatusText(wrapped.statusCode))
			case lookup && wrapped.statusCode == http.StatusNotFound:
				span.AddEvent("city_not_found")
			}
		})
	}
}

// lookupAttributes tags a weather lookup with its query. Coordinates that
// do not parse are left for the handler to reject.
func lookupAttributes(r *http.Request) []attribute.KeyValue {
	q := r.URL.Query()
	if city := strings.TrimSpace(q.Get("city")); city != "" {
		return []attribute.KeyValue{attribute.String("weather.city", city)}
	}

	lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
	lon, lonErr := strconv.ParseFloat(q.Get("lon"), 64)
	if latErr != nil || lonErr != nil {
		return nil
	}
	return []attribute.KeyValue{
		attribute.Float64("weather.lat", lat),
		attribute.Float64("weather.lon", lon),
	}
}

// scheme returns the request scheme, honoring a load balancer's
// X-Forwarded-Proto.
func scheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	return "http"
}
