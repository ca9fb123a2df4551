package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appidentity "github.com/partdb/backend/internal/application/identity"
	"github.com/partdb/backend/internal/domain/shared"
	"github.com/partdb/backend/internal/interfaces/http/handler"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeChecker struct {
	allowed map[string]bool
	asked   []string
}

func (f *fakeChecker) Require(_ context.Context, _, perm, op string) error {
	f.asked = append(f.asked, perm+"."+op)
	if f.allowed[perm+"."+op] {
		return nil
	}
	return shared.NewDomainError("FORBIDDEN", "Permission denied")
}

func ok(body string) gin.HandlerFunc {
	return func(c *gin.Context) { c.String(http.StatusOK, body) }
}

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())

	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)

	r = NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	g := NewDomainGroup("test", "/test")
	g.GET("/ping", Public, ok("pong")).
		POST("/items", Public, ok("created")).
		PUT("/items/:id", Public, ok("updated")).
		PATCH("/items/:id", Public, ok("patched")).
		DELETE("/items/:id", Public, ok("deleted"))
	r.Register(g).Setup()

	tests := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/api/v1/test/ping", "pong"},
		{http.MethodPost, "/api/v1/test/items", "created"},
		{http.MethodPut, "/api/v1/test/items/7", "updated"},
		{http.MethodPatch, "/api/v1/test/items/7", "patched"},
		{http.MethodDelete, "/api/v1/test/items/7", "deleted"},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			w := serve(engine, tt.method, tt.path)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.body, w.Body.String())
		})
	}
}

func TestDomainGroupGuard(t *testing.T) {
	checker := &fakeChecker{allowed: map[string]bool{"parts.read": true}}
	engine := gin.New()

	g := NewDomainGroup("parts", "/parts").Guard(checker)
	g.GET("", "parts.read", ok("list"))
	g.DELETE("/:id", "parts.delete", ok("deleted"))
	NewRouter(engine).Register(g).Setup()

	w := serve(engine, http.MethodGet, "/api/v1/parts")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(engine, http.MethodDelete, "/api/v1/parts/3")
	assert.Equal(t, http.StatusUnauthorized, w.Code, "anonymous requests are asked to log in")
	assert.Equal(t, []string{"parts.read", "parts.delete"}, checker.asked)
}

func TestDomainGroupSubgroupsInheritChecker(t *testing.T) {
	checker := &fakeChecker{allowed: map[string]bool{}}
	engine := gin.New()

	g := NewDomainGroup("tools", "/tools").Guard(checker)
	g.Group("providers", "/providers").GET("", "info_providers.create_parts", ok("providers"))
	g.Use(func(c *gin.Context) {
		c.Header("X-Group", "tools")
		c.Next()
	})
	NewRouter(engine).Register(g).Setup()

	w := serve(engine, http.MethodGet, "/api/v1/tools/providers")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "tools", w.Header().Get("X-Group"))
}

func TestDomainGroupPanicsOnMissingChecker(t *testing.T) {
	g := NewDomainGroup("parts", "/parts")
	g.GET("", "parts.read", ok("list"))

	assert.Panics(t, func() { g.RegisterRoutes(gin.New().Group("/api/v1")) })

	g = NewDomainGroup("parts", "/parts").Guard(&fakeChecker{})
	g.GET("", "parts", ok("list"))
	assert.Panics(t, func() { g.RegisterRoutes(gin.New().Group("/api/v1")) })
}

func TestRouterRoutes(t *testing.T) {
	r := NewRouter(gin.New())
	g := NewDomainGroup("catalog", "/catalog").Guard(&fakeChecker{})
	g.GET("", "parts.read", ok(""))
	g.Group("items", "/items").POST("/:id", "parts.edit", ok(""))
	r.Register(g)

	assert.Equal(t, []RouteInfo{
		{Method: http.MethodGet, Path: "/api/v1/catalog", Permission: "parts.read"},
		{Method: http.MethodPost, Path: "/api/v1/catalog/items/:id", Permission: "parts.edit"},
	}, r.Routes())
}

func testHandlers() Handlers {
	return Handlers{
		Auth:         &handler.AuthHandler{},
		Part:         &handler.PartHandler{},
		Lot:          &handler.LotHandler{},
		Orderdetail:  &handler.OrderdetailHandler{},
		Structural:   &handler.StructuralHandler{},
		DataIO:       &handler.DataIOHandler{},
		User:         &handler.UserHandler{},
		Permission:   &handler.PermissionHandler{},
		Log:          &handler.LogHandler{},
		Attachment:   &handler.AttachmentHandler{},
		Label:        &handler.LabelHandler{},
		InfoProvider: &handler.InfoProviderHandler{},
		Tools:        &handler.ToolsHandler{},
		System:       &handler.SystemHandler{},
	}
}

func TestAPIGroups(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)
	for _, g := range APIGroups(testHandlers(), &fakeChecker{}, nil, Limits{Body: 1 << 20, Upload: 10 << 20}) {
		r.Register(g)
	}
	require.NotPanics(t, r.Setup)

	schema, err := appidentity.PermissionSchema()
	require.NoError(t, err)

	// Routes without a permission check either serve the own account or
	// check permissions of the affected element in the service
	public := map[string]bool{
		"POST /api/v1/auth/login":              true,
		"POST /api/v1/auth/refresh":            true,
		"POST /api/v1/log/undo":                true,
		"GET /api/v1/system/ping":              true,
		"POST /api/v1/attachments":             true,
		"POST /api/v1/attachments/link":        true,
		"GET /api/v1/attachments/:id":          true,
		"GET /api/v1/attachments/:id/download": true,
		"PUT /api/v1/attachments/:id":          true,
		"DELETE /api/v1/attachments/:id":       true,
	}

	routes := r.Routes()
	require.NotEmpty(t, routes)
	seen := map[string]bool{}
	for _, route := range routes {
		key := route.Method + " " + route.Path
		assert.False(t, seen[key], "duplicate route %s", key)
		seen[key] = true

		if route.Permission == Public {
			if !strings.HasPrefix(route.Path, "/api/v1/auth/") {
				assert.True(t, public[key], "%s has no permission", key)
			}
			continue
		}
		perm, op, _ := strings.Cut(route.Permission, ".")
		assert.True(t, schema.IsValid(perm, op), "%s requires unknown permission %s", key, route.Permission)
	}

	for _, path := range []string{"/api/v1/categories", "/api/v1/storage_locations/tree", "/api/v1/groups"} {
		assert.True(t, seen["GET "+path], path)
	}
	assert.False(t, seen["POST /api/v1/groups/import"])
	assert.True(t, seen["POST /api/v1/footprints/import"])
}

func TestAPIGroupsDeniesAnonymous(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)
	for _, g := range APIGroups(testHandlers(), &fakeChecker{}, nil, Limits{Body: 1 << 20, Upload: 10 << 20}) {
		r.Register(g)
	}
	r.Setup()

	w := serve(engine, http.MethodGet, "/api/v1/parts")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(engine, http.MethodGet, "/api/v1/auth/me")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(engine, http.MethodGet, "/api/v1/system/ping")
	assert.Equal(t, http.StatusOK, w.Code)
}
