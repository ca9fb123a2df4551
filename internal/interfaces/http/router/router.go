package router

import (
	"fmt"
	"net/http"
	"path"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/partdb/backend/internal/interfaces/http/middleware"
)

// Public marks a route that needs no permission
const Public = ""

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RouteInfo describes a registered route and the permission guarding it
type RouteInfo struct {
	Method     string
	Path       string
	Permission string
}

// routeLister is implemented by registrars that can describe their routes
type routeLister interface {
	routes(base string) []RouteInfo
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
	middleware []gin.HandlerFunc
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
		registrars: make([]RouteRegistrar, 0),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register adds a RouteRegistrar to be registered later
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Use adds middleware that runs for every API route
func (r *Router) Use(handlers ...gin.HandlerFunc) *Router {
	r.middleware = append(r.middleware, handlers...)
	return r
}

func (r *Router) basePath() string {
	return "/api/" + r.apiVersion
}

// Setup registers all routes with the engine
func (r *Router) Setup() {
	api := r.engine.Group(r.basePath(), r.middleware...)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// Routes lists the routes of all domain groups, sorted by path and method
func (r *Router) Routes() []RouteInfo {
	var out []RouteInfo
	for _, registrar := range r.registrars {
		if l, ok := registrar.(routeLister); ok {
			out = append(out, l.routes(r.basePath())...)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Method < out[j].Method
	})
	return out
}

// DomainGroup collects the routes of one area of the API. Every route names
// the permission ("perm.op") it requires, or Public.
type DomainGroup struct {
	name       string
	prefix     string
	checker    middleware.PermissionChecker
	defs       []routeDefinition
	subgroups  []*DomainGroup
	middleware []gin.HandlerFunc
}

type routeDefinition struct {
	method     string
	path       string
	permission string
	handlers   []gin.HandlerFunc
}

// NewDomainGroup creates a new domain-specific route group
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{
		name:       name,
		prefix:     prefix,
		defs:       make([]routeDefinition, 0),
		subgroups:  make([]*DomainGroup, 0),
		middleware: make([]gin.HandlerFunc, 0),
	}
}

// Guard sets the checker used for the permissions of this group and of the
// subgroups created afterwards
func (dg *DomainGroup) Guard(checker middleware.PermissionChecker) *DomainGroup {
	dg.checker = checker
	return dg
}

// Use adds middleware to this group
func (dg *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, middleware...)
	return dg
}

func (dg *DomainGroup) handle(method, path, permission string, handlers []gin.HandlerFunc) *DomainGroup {
	dg.defs = append(dg.defs, routeDefinition{
		method:     method,
		path:       path,
		permission: permission,
		handlers:   handlers,
	})
	return dg
}

// GET registers a GET route
func (dg *DomainGroup) GET(path, permission string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodGet, path, permission, handlers)
}

// POST registers a POST route
func (dg *DomainGroup) POST(path, permission string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPost, path, permission, handlers)
}

// PUT registers a PUT route
func (dg *DomainGroup) PUT(path, permission string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPut, path, permission, handlers)
}

// PATCH registers a PATCH route
func (dg *DomainGroup) PATCH(path, permission string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPatch, path, permission, handlers)
}

// DELETE registers a DELETE route
func (dg *DomainGroup) DELETE(path, permission string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodDelete, path, permission, handlers)
}

// Group creates a sub-group within this domain
func (dg *DomainGroup) Group(name, prefix string) *DomainGroup {
	subgroup := NewDomainGroup(name, prefix)
	subgroup.checker = dg.checker
	dg.subgroups = append(dg.subgroups, subgroup)
	return subgroup
}

// RegisterRoutes implements RouteRegistrar. It panics when a guarded route
// has no checker or a malformed permission.
func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(dg.prefix)
	if len(dg.middleware) > 0 {
		group.Use(dg.middleware...)
	}

	for _, route := range dg.defs {
		handlers := route.handlers
		if route.permission != Public {
			handlers = append([]gin.HandlerFunc{dg.guard(route)}, handlers...)
		}
		group.Handle(route.method, route.path, handlers...)
	}

	for _, subgroup := range dg.subgroups {
		subgroup.RegisterRoutes(group)
	}
}

func (dg *DomainGroup) guard(route routeDefinition) gin.HandlerFunc {
	perm, op, ok := strings.Cut(route.permission, ".")
	if !ok || perm == "" || op == "" {
		panic(fmt.Sprintf("router: %s %s%s: permission %q is not of the form perm.op",
			route.method, dg.prefix, route.path, route.permission))
	}
	if dg.checker == nil {
		panic(fmt.Sprintf("router: %s %s%s requires %s but group %q has no permission checker",
			route.method, dg.prefix, route.path, route.permission, dg.name))
	}
	return middleware.RequirePermission(dg.checker, perm, op)
}

func (dg *DomainGroup) routes(base string) []RouteInfo {
	prefix := path.Join(base, dg.prefix)
	out := make([]RouteInfo, 0, len(dg.defs))
	for _, route := range dg.defs {
		p := prefix
		if route.path != "" {
			p = path.Join(prefix, route.path)
		}
		out = append(out, RouteInfo{Method: route.method, Path: p, Permission: route.permission})
	}
	for _, subgroup := range dg.subgroups {
		out = append(out, subgroup.routes(prefix)...)
	}
	return out
}

// Name returns the group name
func (dg *DomainGroup) Name() string {
	return dg.name
}

// Prefix returns the group prefix
func (dg *DomainGroup) Prefix() string {
	return dg.prefix
}
