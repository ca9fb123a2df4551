package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/partdb/backend/internal/interfaces/http/dto"
)

func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	t.Cleanup(func() {
		_ = tp.Shutdown(t.Context())
	})

	return sr
}

func endedSpan(t *testing.T, sr *tracetest.SpanRecorder, name string) sdktrace.ReadOnlySpan {
	t.Helper()
	for _, span := range sr.Ended() {
		if span.Name() == name {
			return span
		}
	}
	t.Fatalf("no span %q", name)
	return nil
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

// tracedAPI mirrors the server chain: tracing on the engine, auth and the
// attribute injector on the API group
func tracedAPI(checker PermissionChecker) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), TracingWithConfig(TracingConfig{Enabled: true, ServiceName: "partdb-test"}), SpanErrorMarker())
	api := router.Group("/api/v1", JWTAuthMiddleware(newTestJWTService()), TracingAttributeInjector())
	api.GET("/parts/:id", RequirePermission(checker, "parts", "read"), func(c *gin.Context) {
		switch c.Param("id") {
		case "404":
			c.JSON(dto.DomainStatus("PART_NOT_FOUND"), dto.NewErrorResponse("PART_NOT_FOUND", "Part not found"))
		case "409":
			c.JSON(dto.DomainStatus("IN_USE"), dto.NewErrorResponse("IN_USE", "The element is still used by 2 part lots"))
		case "500":
			c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(dto.ErrCodeInternal, "An internal error occurred"))
		default:
			c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"id": c.Param("id"), "name": "BC547"}))
		}
	})
	return router
}

func TestTracing_PartRequestSpan(t *testing.T) {
	sr := setupTestTracer(t)
	router := tracedAPI(&stubChecker{granted: map[string]bool{"parts.read": true}})
	pair := newTestTokenPair(t, newTestJWTService())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/parts/12", nil)
	req.Header.Set(RequestIDKey, "req-part-12")
	req.Header.Set(AuthHeaderKey, BearerPrefix+pair.AccessToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	span := endedSpan(t, sr, "GET /api/v1/parts/:id")
	attrs := spanAttrs(span)
	assert.Equal(t, "req-part-12", attrs["request_id"].AsString())
	assert.Equal(t, int64(7), attrs["user_id"].AsInt64())
	assert.Equal(t, "alice", attrs["username"].AsString())
	assert.Equal(t, codes.Unset, span.Status().Code)
}

func TestSpanErrorMarker_PartOutcomes(t *testing.T) {
	pair := newTestTokenPair(t, newTestJWTService())

	tests := []struct {
		name    string
		path    string
		token   bool
		granted bool
		status  int
		desc    string
	}{
		{"anonymous without parts.read", "/api/v1/parts/1", false, false, http.StatusUnauthorized, "Unauthorized"},
		{"user without parts.read", "/api/v1/parts/1", true, false, http.StatusForbidden, "Forbidden"},
		{"unknown part", "/api/v1/parts/404", true, true, http.StatusNotFound, "Not Found"},
		{"part still in use", "/api/v1/parts/409", true, true, http.StatusConflict, "Client Error"},
		{"internal error", "/api/v1/parts/500", true, true, http.StatusInternalServerError, "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sr := setupTestTracer(t)
			router := tracedAPI(&stubChecker{granted: map[string]bool{"parts.read": tt.granted}})

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.token {
				req.Header.Set(AuthHeaderKey, BearerPrefix+pair.AccessToken)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			require.Equal(t, tt.status, w.Code)

			span := endedSpan(t, sr, "GET /api/v1/parts/:id")
			assert.Equal(t, codes.Error, span.Status().Code)
			assert.Equal(t, tt.desc, span.Status().Description)
			assert.Equal(t, int64(tt.status), spanAttrs(span)["http.status_code"].AsInt64())
		})
	}
}

func TestTracingWithConfig_Disabled(t *testing.T) {
	sr := setupTestTracer(t)
	router := gin.New()
	router.Use(TracingWithConfig(TracingConfig{Enabled: false}))
	router.GET("/api/v1/system/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/system/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, sr.Ended())
}

func TestTracing_WithoutRecordingSpan(t *testing.T) {
	otel.SetTracerProvider(noop.NewTracerProvider())

	router := gin.New()
	router.Use(TracingAttributeInjector(), SpanErrorMarker())
	router.GET("/api/v1/parts/:id", func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(dto.ErrCodeInternal, "boom"))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/parts/1", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestSpanRequestID(t *testing.T) {
	tests := []struct {
		name   string
		header string
		set    string
		want   string
	}{
		{"from context", "", "ctx-id", "ctx-id"},
		{"from header", "hdr-id", "", "hdr-id"},
		{"truncated", strings.Repeat("r", 200), "", strings.Repeat("r", MaxRequestIDLength)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			router := gin.New()
			router.GET("/api/v1/log", func(c *gin.Context) {
				if tt.set != "" {
					c.Set(RequestIDKey, tt.set)
				}
				got = spanRequestID(c)
			})
			req := httptest.NewRequest(http.MethodGet, "/api/v1/log", nil)
			if tt.header != "" {
				req.Header.Set(RequestIDKey, tt.header)
			}
			router.ServeHTTP(httptest.NewRecorder(), req)
			assert.Equal(t, tt.want, got)
		})
	}
}
