package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// responseMeter captures the status code and payload size of a response so
// the metrics and logging middleware can report them after the handler ran.
type responseMeter struct {
	http.ResponseWriter
	code  int
	bytes int64
}

func meterResponse(w http.ResponseWriter) *responseMeter {
	return &responseMeter{ResponseWriter: w, code: http.StatusOK}
}

func (m *responseMeter) WriteHeader(code int) {
	m.code = code
	m.ResponseWriter.WriteHeader(code)
}

func (m *responseMeter) Write(p []byte) (int, error) {
	n, err := m.ResponseWriter.Write(p)
	m.bytes += int64(n)
	return n, err
}

func (m *responseMeter) Code() int { return m.code }

func (m *responseMeter) Bytes() int64 { return m.bytes }

// routeLabel resolves the route template for a request, falling back to the
// live chi context and finally to the given default. Checkout and callback
// traffic must aggregate under their {provider} template, never per path.
func routeLabel(r *http.Request, fallback string) string {
	if route := RoutePatternFromContext(r.Context()); route != "" {
		return route
	}
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if route := rc.RoutePattern(); route != "" {
			return route
		}
	}
	return fallback
}

// HTTPObs feeds request counts, latency and in-flight gauges from every
// handled request.
type HTTPObs struct {
	Metrics *HTTPMetrics
}

// Middleware observes one request. A nil Metrics disables instrumentation
// entirely rather than guarding every observation.
func (o HTTPObs) Middleware(next http.Handler) http.Handler {
	if o.Metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		meter := meterResponse(w)
		o.Metrics.InFlight.Inc()
		started := time.Now()
		next.ServeHTTP(meter, r)
		o.Metrics.InFlight.Dec()

		route := routeLabel(r, "unknown")
		o.Metrics.ReqTotal.WithLabelValues(r.Method, route, strconv.Itoa(meter.Code())).Inc()
		o.Metrics.ReqDur.WithLabelValues(r.Method, route).Observe(DurationMillis(time.Since(started)))
	})
}

// RoutePatternMiddleware stores the matched chi pattern on the context for
// the middleware further down the chain.
func RoutePatternMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if rc := chi.RouteContext(ctx); rc != nil {
			if pattern := rc.RoutePattern(); pattern != "" {
				ctx = WithRoutePattern(ctx, pattern)
			}
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TracingMiddleware opens a server span per request, named after the route
// template so provider callbacks group together in the trace backend.
func TracingMiddleware(next http.Handler) http.Handler {
	tracer := otel.Tracer("http.server")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := routeLabel(r, r.URL.Path)
		ctx, span := tracer.Start(r.Context(), r.Method+" "+route)
		defer span.End()

		meter := meterResponse(w)
		next.ServeHTTP(meter, r.WithContext(ctx))

		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", route),
			attribute.String("http.target", r.URL.Path),
			attribute.Int("http.status_code", meter.Code()),
		)
		if meter.Code() >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(meter.Code()))
		}
	})
}
