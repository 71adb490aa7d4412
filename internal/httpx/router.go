package httpx

import (
	"time"

	"github.com/gofiber/fiber/v2"
	fiberSwagger "github.com/swaggo/fiber-swagger"

	"configtree/internal/esx"
	"configtree/internal/httpx/configs"
	"configtree/internal/httpx/mw"
	"configtree/internal/httpx/schemas"
	"configtree/internal/httpx/search"
	"configtree/internal/httpx/sessions"
	"configtree/internal/mqx"
	"configtree/internal/redisx"
	"configtree/internal/session"
)

// Providers are the collaborators routes are built on. Everything except
// Sessions is optional.
type Providers struct {
	Sessions *session.Manager
	Events   *mqx.Events
	ES       *esx.Client
	RDB      *redisx.Client

	// Read per request so live config updates apply.
	ESIndex   func() string
	JWTSecret func() string
	JWTIssuer func() string

	// Roles allowed to save documents when authentication is on. Empty
	// lets any operator save.
	SaveRoles []string

	// A zero RateMax disables rate limiting.
	RateWindow time.Duration
	RateMax    int
}

func constant(s string) func() string { return func() string { return s } }

func (p *Providers) defaults() {
	if p.ESIndex == nil {
		p.ESIndex = constant("schema-items")
	}
	if p.JWTSecret == nil {
		p.JWTSecret = constant("")
	}
	if p.JWTIssuer == nil {
		p.JWTIssuer = constant("")
	}
	if p.RateWindow <= 0 {
		p.RateWindow = time.Minute
	}
}

// Register mounts health, swagger and the /api/v1 editing routes.
func Register(app *fiber.App, p *Providers) {
	app.Get("/health", HealthHandler)
	app.Get("/swagger/*", fiberSwagger.WrapHandler)
	if p == nil || p.Sessions == nil {
		return
	}
	p.defaults()
	m := p.Sessions
	canSave := mw.RequireRoles(p.SaveRoles...)

	api := app.Group("/api/v1",
		mw.RequireOperator(p.JWTSecret, p.JWTIssuer),
		mw.RateLimit(p.RDB, p.RateWindow, p.RateMax),
	)

	api.Post("/sessions", sessions.CreateSessionHandler(m))
	api.Get("/sessions/:sid", sessions.GetSessionHandler(m))
	api.Delete("/sessions/:sid", sessions.DeleteSessionHandler(m))

	sc := api.Group("/sessions/:sid/schema")
	sc.Post("/open", schemas.OpenSchemaHandler(m))
	sc.Get("/", schemas.GetSchemaHandler(m))
	sc.Patch("/", schemas.PatchSchemaHandler(m))
	sc.Post("/save", canSave, schemas.SaveSchemaHandler(m, schemas.Hooks{Events: p.Events, ES: p.ES, Index: p.ESIndex}))
	sc.Get("/group-names", schemas.GroupNamesHandler(m))
	sc.Post("/groups", schemas.AddGroupHandler(m))
	sc.Delete("/groups", schemas.DeleteGroupsHandler(m))
	sc.Put("/groups", schemas.ReplaceGroupsHandler(m))
	sc.Post("/items", schemas.AddItemHandler(m))
	sc.Delete("/items", schemas.DeleteItemsHandler(m))
	sc.Put("/items", schemas.ReplaceItemsHandler(m))

	cf := api.Group("/sessions/:sid/config")
	cf.Post("/open", configs.OpenConfigHandler(m))
	cf.Post("/new", configs.NewConfigHandler(m))
	cf.Get("/", configs.GetConfigHandler(m))
	cf.Patch("/", configs.PatchConfigHandler(m))
	cf.Post("/generate", configs.GenerateItemsHandler(m))
	cf.Patch("/items", configs.UpdateItemsHandler(m))
	cf.Post("/save", canSave, configs.SaveConfigHandler(m, p.Events))
	cf.Get("/export", configs.ExportConfigHandler(m))

	api.Get("/search/items", search.ItemsHandler(p.ES, p.ESIndex))
}
