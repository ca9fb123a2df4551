package router

import (
	"github.com/gin-gonic/gin"

	"github.com/partdb/backend/internal/domain/shared"
	"github.com/partdb/backend/internal/interfaces/http/handler"
	"github.com/partdb/backend/internal/interfaces/http/middleware"
)

// Handlers are the HTTP handlers of the API
type Handlers struct {
	Auth         *handler.AuthHandler
	Part         *handler.PartHandler
	Lot          *handler.LotHandler
	Orderdetail  *handler.OrderdetailHandler
	Structural   *handler.StructuralHandler
	DataIO       *handler.DataIOHandler
	User         *handler.UserHandler
	Permission   *handler.PermissionHandler
	Log          *handler.LogHandler
	Attachment   *handler.AttachmentHandler
	Label        *handler.LabelHandler
	InfoProvider *handler.InfoProviderHandler
	Tools        *handler.ToolsHandler
	System       *handler.SystemHandler
}

// Limits are the request body limits in bytes
type Limits struct {
	Body   int64
	Upload int64
}

// APIGroups builds the route groups of the API. authLimiter may be nil.
func APIGroups(h Handlers, checker middleware.PermissionChecker, authLimiter *middleware.RateLimiter, limits Limits) []*DomainGroup {
	body := middleware.BodyLimit(limits.Body)

	auth := NewDomainGroup("auth", "/auth").Guard(checker).Use(body)
	throttled := func(next gin.HandlerFunc) []gin.HandlerFunc {
		if authLimiter == nil {
			return []gin.HandlerFunc{next}
		}
		return []gin.HandlerFunc{middleware.AuthRateLimit(authLimiter), next}
	}
	auth.POST("/login", Public, throttled(h.Auth.Login)...)
	auth.POST("/refresh", Public, throttled(h.Auth.RefreshToken)...)
	self := auth.Group("self", "").Use(middleware.RequireAuthenticated())
	self.POST("/logout", Public, h.Auth.Logout)
	self.GET("/me", Public, h.Auth.GetCurrentUser)
	self.PUT("/password", Public, h.Auth.ChangePassword)
	self.POST("/backup-codes", Public, h.Auth.RegenerateBackupCodes)
	self.POST("/totp/setup", Public, h.Auth.SetupTOTP)
	self.POST("/totp/enable", Public, h.Auth.EnableTOTP)
	self.POST("/totp/disable", Public, h.Auth.DisableTOTP)

	inventory := NewDomainGroup("inventory", "").Guard(checker).Use(body)
	inventory.GET("/parts", "parts.read", h.Part.List)
	inventory.POST("/parts", "parts.create", h.Part.Create)
	inventory.GET("/parts/export", "parts.read", h.DataIO.ExportParts)
	inventory.GET("/parts/:id", "parts.read", h.Part.Get)
	inventory.PUT("/parts/:id", "parts.edit", h.Part.Update)
	inventory.DELETE("/parts/:id", "parts.delete", h.Part.Delete)
	inventory.GET("/parts/:id/history", "parts.show_history", h.Part.History)
	inventory.GET("/parts/:id/price", "parts.read", h.Part.AveragePrice)
	inventory.GET("/parts/:id/lots", "parts.read", h.Lot.ListByPart)
	inventory.POST("/parts/:id/lots", "parts.edit", h.Lot.Create)
	inventory.GET("/parts/:id/orderdetails", "parts.read", h.Orderdetail.ListByPart)
	inventory.POST("/parts/:id/orderdetails", "parts.edit", h.Orderdetail.Create)

	inventory.GET("/lots/:id", "parts.read", h.Lot.Get)
	inventory.PUT("/lots/:id", "parts.edit", h.Lot.Update)
	inventory.DELETE("/lots/:id", "parts.edit", h.Lot.Delete)
	inventory.POST("/lots/:id/add", "parts_stock.add", h.Lot.Add)
	inventory.POST("/lots/:id/withdraw", "parts_stock.withdraw", h.Lot.Withdraw)
	inventory.POST("/lots/:id/move", "parts_stock.move", h.Lot.Move)

	inventory.GET("/orderdetails/:id", "parts.read", h.Orderdetail.Get)
	inventory.PUT("/orderdetails/:id", "parts.edit", h.Orderdetail.Update)
	inventory.DELETE("/orderdetails/:id", "parts.edit", h.Orderdetail.Delete)
	inventory.POST("/orderdetails/:id/pricedetails", "parts.edit", h.Orderdetail.AddPricedetail)
	inventory.PUT("/pricedetails/:id", "parts.edit", h.Orderdetail.UpdatePricedetail)
	inventory.DELETE("/pricedetails/:id", "parts.edit", h.Orderdetail.DeletePricedetail)

	// Imports and uploads carry files and get the larger limit
	uploads := NewDomainGroup("uploads", "").Guard(checker).Use(middleware.BodyLimit(limits.Upload))
	uploads.POST("/parts/import", "parts.import", h.DataIO.ImportParts)
	uploads.POST("/attachments", Public, h.Attachment.Upload)

	structure := NewDomainGroup("structure", "").Guard(checker).Use(body)
	for segment, kind := range handler.StructuralRoutes {
		perm := kind.PermissionGroup()
		g := structure.Group(segment, "/"+segment)
		g.GET("", perm+".read", h.Structural.List(kind))
		g.POST("", perm+".create", h.Structural.Create(kind))
		g.GET("/tree", perm+".read", h.Structural.Tree(kind))
		g.GET("/:id", perm+".read", h.Structural.Get(kind))
		g.PUT("/:id", perm+".edit", h.Structural.Update(kind))
		g.DELETE("/:id", perm+".delete", h.Structural.Delete(kind))
		g.GET("/:id/history", perm+".show_history", h.Structural.History(kind))
		if kind == shared.TargetGroup {
			continue
		}
		g.GET("/export", perm+".read", h.DataIO.ExportStructural(kind))
		uploads.POST("/"+segment+"/import", perm+".import", h.DataIO.ImportStructural(kind))
	}

	admin := NewDomainGroup("admin", "").Guard(checker).Use(body)
	admin.GET("/users", "users.read", h.User.List)
	admin.POST("/users", "users.create", h.User.Create)
	admin.GET("/users/:id", "users.read", h.User.Get)
	admin.PUT("/users/:id", "users.edit_infos", h.User.Update)
	admin.DELETE("/users/:id", "users.delete", h.User.Delete)
	admin.PUT("/users/:id/disabled", "users.edit_infos", h.User.SetDisabled)
	admin.PUT("/users/:id/password", "users.set_password", h.User.SetPassword)
	admin.DELETE("/users/:id/two_factor", "users.set_password", h.User.ResetTwoFactor)
	admin.GET("/users/:id/permissions", "users.read", h.Permission.GetUserPermissions)
	admin.PUT("/users/:id/permissions", "users.edit_permissions", h.Permission.SetUserPermissions)
	admin.PUT("/groups/:id/permissions", "groups.edit_permissions", h.Permission.SetGroupPermissions)
	admin.GET("/permissions/schema", "self.show_permissions", h.Permission.Schema)

	attachments := NewDomainGroup("attachments", "/attachments").Guard(checker).Use(body)
	attachments.GET("", "attachments.list_attachments", h.Attachment.List)
	// Changes are checked against the edit permission of the owning element
	attachments.POST("/link", Public, h.Attachment.CreateLink)
	attachments.GET("/:id", Public, h.Attachment.Get)
	attachments.GET("/:id/download", Public, h.Attachment.Download)
	attachments.PUT("/:id", Public, h.Attachment.Update)
	attachments.DELETE("/:id", Public, h.Attachment.Delete)

	labels := NewDomainGroup("labels", "/labels").Guard(checker).Use(body)
	labels.GET("/profiles", "labels.read_profiles", h.Label.ListProfiles)
	labels.POST("/profiles", "labels.edit_profiles", h.Label.CreateProfile)
	labels.GET("/profiles/:id", "labels.read_profiles", h.Label.GetProfile)
	labels.PUT("/profiles/:id", "labels.edit_profiles", h.Label.UpdateProfile)
	labels.DELETE("/profiles/:id", "labels.delete_profiles", h.Label.DeleteProfile)
	labels.POST("/generate", "labels.create_labels", h.Label.Generate)

	logs := NewDomainGroup("log", "/log").Guard(checker).Use(body)
	logs.GET("", "system.show_logs", h.Log.List)
	// The revert permission depends on the logged element and is checked by the undo service
	logs.POST("/undo", Public, h.Log.Undo)
	logs.GET("/elements/:type/:id/at", "system.show_logs", h.Log.ElementAt)
	logs.GET("/elements/:type/:id/last_editor", "system.show_logs", h.Log.LastEditor)
	logs.GET("/:id", "system.show_logs", h.Log.Get)
	logs.DELETE("/:id", "system.delete_logs", h.Log.Delete)

	tools := NewDomainGroup("tools", "/tools").Guard(checker).Use(body)
	tools.POST("/reel_calculator", "tools.reel_calculator", h.Tools.ReelCalculator)
	tools.GET("/statistics", "tools.statistics", h.Tools.Statistics)
	providers := tools.Group("info_providers", "/info_providers")
	providers.GET("/providers", "info_providers.create_parts", h.InfoProvider.Providers)
	providers.GET("/search", "info_providers.create_parts", h.InfoProvider.Search)
	providers.POST("/search", "info_providers.create_parts", h.InfoProvider.Search)
	providers.GET("/:provider/:id", "info_providers.create_parts", h.InfoProvider.Details)
	providers.POST("/:provider/:id/create", "info_providers.create_parts", h.InfoProvider.CreatePart)

	system := NewDomainGroup("system", "/system").Guard(checker)
	system.GET("/info", "system.server_infos", h.System.GetSystemInfo)
	system.GET("/ping", Public, h.System.Ping)

	return []*DomainGroup{auth, inventory, uploads, structure, admin, attachments, labels, logs, tools, system}
}
