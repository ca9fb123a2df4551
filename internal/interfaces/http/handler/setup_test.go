package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/partdb/backend/internal/application/dataio"
	appidentity "github.com/partdb/backend/internal/application/identity"
	applog "github.com/partdb/backend/internal/application/logsystem"
	appparts "github.com/partdb/backend/internal/application/parts"
	"github.com/partdb/backend/internal/application/tools"
	"github.com/partdb/backend/internal/domain/identity"
	"github.com/partdb/backend/internal/domain/parts"
	"github.com/partdb/backend/internal/domain/pricing"
	"github.com/partdb/backend/internal/infrastructure/auth"
	"github.com/partdb/backend/internal/infrastructure/config"
	"github.com/partdb/backend/internal/infrastructure/persistence"
	"github.com/partdb/backend/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

type allowAll struct{}

func (allowAll) IsGranted(context.Context, string, string) (bool, error) { return true, nil }

// testApp wires the services on an in-memory database and registers the
// handlers on a router. Requests act as user "tester".
type testApp struct {
	router      *gin.Engine
	jwt         *auth.JWTService
	users       *appidentity.UserService
	permissions *appidentity.PermissionService
	categories  *appparts.StructuralService[parts.Category, *parts.Category]
	locations   *appparts.StructuralService[parts.StorageLocation, *parts.StorageLocation]
	parts       *appparts.PartService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	db, err := persistence.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, persistence.AutoMigrate(db.DB))

	logs := persistence.NewGormLogEntryRepository(db.DB)
	store := persistence.NewGormElementStore(db.DB)
	tracker := applog.NewTracker(store, applog.NewRecorder(logs, applog.DefaultSettings()),
		persistence.NewGormTransactionManager(db.DB), nil)
	deps := appparts.Deps{Tracker: tracker}

	partRepo := persistence.NewGormPartRepository(db.DB)
	lotRepo := persistence.NewGormPartLotRepository(db.DB)
	categoryRepo := persistence.NewGormStructuralRepository[parts.Category](db.DB)
	locationRepo := persistence.NewGormStructuralRepository[parts.StorageLocation](db.DB)
	unitRepo := persistence.NewGormStructuralRepository[parts.MeasurementUnit](db.DB)
	currencyRepo := persistence.NewGormStructuralRepository[pricing.Currency](db.DB)
	odRepo := persistence.NewGormOrderdetailRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)
	groupRepo := persistence.NewGormGroupRepository(db.DB)

	app := &testApp{}
	app.categories = appparts.NewStructuralService[parts.Category](categoryRepo, deps).
		WithUsageCheck("parts", func(ctx context.Context, id uint) (int64, error) {
			return partRepo.CountByReference(ctx, "category_id", id)
		})
	app.locations = appparts.NewStructuralService[parts.StorageLocation](locationRepo, deps)
	kinds := appparts.NewKinds(
		app.categories.Erased(),
		app.locations.Erased(),
		appparts.NewStructuralService[parts.MeasurementUnit](unitRepo, deps).Erased(),
		appparts.NewStructuralService[pricing.Currency](currencyRepo, deps).Erased(),
		appparts.NewStructuralService[parts.Supplier](persistence.NewGormStructuralRepository[parts.Supplier](db.DB), deps).Erased(),
		appidentity.NewGroupService(groupRepo, userRepo, deps).Erased(),
	)
	lots := appparts.NewLotService(partRepo, lotRepo, locationRepo, unitRepo, nil, deps)
	app.parts = appparts.NewPartService(partRepo, lotRepo, categoryRepo, odRepo, currencyRepo, lots, deps)
	orderdetails := appparts.NewOrderdetailService(partRepo, odRepo, persistence.NewGormPricedetailRepository(db.DB), deps)

	timeTravel := applog.NewTimeTravel(store, logs)
	logService := applog.NewLogService(logs, timeTravel)
	undoService := applog.NewUndoService(logs, tracker, timeTravel, allowAll{}, nil)

	schema, err := appidentity.PermissionSchema()
	require.NoError(t, err)
	gen, err := identity.NewBackupCodeGenerator(8, 5)
	require.NoError(t, err)
	app.jwt = auth.NewJWTService(config.JWTConfig{
		Secret:                 "handler-test-secret-0123456789abcd",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: time.Hour,
		Issuer:                 "partdb-test",
		MaxRefreshCount:        5,
	})
	blacklist := auth.NewInMemoryTokenBlacklist()
	app.permissions = appidentity.NewPermissionService(userRepo, groupRepo, identity.NewPermissionResolver(schema),
		tracker, nil, time.Minute, nil)
	authService := appidentity.NewAuthService(userRepo, app.permissions, app.jwt, blacklist,
		identity.NewBackupCodeManager(gen), tracker, nil, appidentity.AuthServiceConfig{TOTPIssuer: "Part-DB"}, nil)
	app.users = appidentity.NewUserService(userRepo, groupRepo, tracker, nil)

	jwtCfg := middleware.DefaultJWTConfig(app.jwt)
	jwtCfg.TokenBlacklist = blacklist

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.JWTAuthMiddlewareWithConfig(jwtCfg), func(c *gin.Context) {
		if _, ok := middleware.GetJWTUserID(c); !ok {
			ctx := applog.WithActor(c.Request.Context(), applog.Actor{Username: "tester", IP: c.ClientIP()})
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	})
	api := r.Group("/api/v1")

	authH := NewAuthHandler(authService)
	api.POST("/auth/login", authH.Login)
	api.POST("/auth/refresh", authH.RefreshToken)
	api.POST("/auth/logout", authH.Logout)
	api.GET("/auth/me", authH.GetCurrentUser)
	api.PUT("/auth/password", authH.ChangePassword)
	api.POST("/auth/backup-codes", authH.RegenerateBackupCodes)

	partH := NewPartHandler(app.parts, logService)
	lotH := NewLotHandler(lots)
	odH := NewOrderdetailHandler(orderdetails)
	dataH := NewDataIOHandler(dataio.NewExporter(kinds, app.parts, nil), dataio.NewImporter(kinds, app.parts, tracker, nil))
	api.GET("/parts", partH.List)
	api.POST("/parts", partH.Create)
	api.GET("/parts/export", dataH.ExportParts)
	api.POST("/parts/import", dataH.ImportParts)
	api.GET("/parts/:id", partH.Get)
	api.PUT("/parts/:id", partH.Update)
	api.DELETE("/parts/:id", partH.Delete)
	api.GET("/parts/:id/history", partH.History)
	api.GET("/parts/:id/price", partH.AveragePrice)
	api.GET("/parts/:id/lots", lotH.ListByPart)
	api.POST("/parts/:id/lots", lotH.Create)
	api.GET("/parts/:id/orderdetails", odH.ListByPart)
	api.POST("/parts/:id/orderdetails", odH.Create)
	api.GET("/lots/:id", lotH.Get)
	api.PUT("/lots/:id", lotH.Update)
	api.DELETE("/lots/:id", lotH.Delete)
	api.POST("/lots/:id/add", lotH.Add)
	api.POST("/lots/:id/withdraw", lotH.Withdraw)
	api.POST("/lots/:id/move", lotH.Move)
	api.POST("/orderdetails/:id/pricedetails", odH.AddPricedetail)
	api.DELETE("/pricedetails/:id", odH.DeletePricedetail)

	structH := NewStructuralHandler(kinds, logService)
	for segment, kind := range StructuralRoutes {
		g := api.Group("/" + segment)
		g.GET("", structH.List(kind))
		g.POST("", structH.Create(kind))
		g.GET("/tree", structH.Tree(kind))
		g.GET("/export", dataH.ExportStructural(kind))
		g.POST("/import", dataH.ImportStructural(kind))
		g.GET("/:id", structH.Get(kind))
		g.PUT("/:id", structH.Update(kind))
		g.DELETE("/:id", structH.Delete(kind))
		g.GET("/:id/history", structH.History(kind))
	}

	userH := NewUserHandler(app.users)
	permH := NewPermissionHandler(app.permissions)
	api.GET("/users", userH.List)
	api.POST("/users", userH.Create)
	api.GET("/users/:id", userH.Get)
	api.PUT("/users/:id", userH.Update)
	api.DELETE("/users/:id", userH.Delete)
	api.PUT("/users/:id/disabled", userH.SetDisabled)
	api.GET("/users/:id/permissions", permH.GetUserPermissions)
	api.PUT("/users/:id/permissions", permH.SetUserPermissions)
	api.PUT("/groups/:id/permissions", permH.SetGroupPermissions)
	api.GET("/permissions/schema", permH.Schema)

	logH := NewLogHandler(logService, undoService)
	api.GET("/log", logH.List)
	api.POST("/log/undo", logH.Undo)
	api.GET("/log/elements/:type/:id/at", logH.ElementAt)
	api.GET("/log/elements/:type/:id/last_editor", logH.LastEditor)
	api.GET("/log/:id", logH.Get)
	api.DELETE("/log/:id", logH.Delete)

	toolsH := NewToolsHandler(tools.NewStatisticsService(persistence.NewGormStatisticsRepository(db.DB)))
	api.POST("/tools/reel_calculator", toolsH.ReelCalculator)
	api.GET("/tools/statistics", toolsH.Statistics)

	systemH := NewSystemHandler(tools.NewServerInfoService(tools.ServerInfoConfig{
		Version:        "test",
		DatabaseDriver: "sqlite",
		StorageBackend: "local",
	}))
	api.GET("/system/info", systemH.GetSystemInfo)
	api.GET("/system/ping", systemH.Ping)

	app.router = r
	return app
}

// do sends a JSON request and returns the recorder
func (a *testApp) do(t *testing.T, method, path string, body any, token ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if len(token) > 0 {
		req.Header.Set(middleware.AuthHeaderKey, middleware.BearerPrefix+token[0])
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

// decode reads the data of a success response into T
func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var resp APIResponse[T]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp.Data
}

// errorCode returns the error code of an error response
func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp APIResponse[json.RawMessage]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	require.NotNil(t, resp.Error, rec.Body.String())
	return resp.Error.Code
}

func (a *testApp) category(t *testing.T, name string) uint {
	t.Helper()
	c := &parts.Category{}
	c.Name = name
	require.NoError(t, a.categories.Create(context.Background(), c, ""))
	return c.ID
}

func (a *testApp) part(t *testing.T, name string, categoryID uint, amount float64) *appparts.PartResponse {
	t.Helper()
	p, err := a.parts.Create(context.Background(), appparts.CreatePartRequest{
		Name:       name,
		CategoryID: categoryID,
		InitialLot: &appparts.CreateLotRequest{Amount: amount},
	})
	require.NoError(t, err)
	return p
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}
