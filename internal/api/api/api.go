package api

import (
	"github.com/gin-contrib/cors"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"checkinBoard/cmd/middleware"
	"checkinBoard/internal/dto"
	"checkinBoard/internal/service"
)

type Routers struct {
	Service service.Service
	Log     *zerolog.Logger
	// Mode is the gin mode, "release" when empty.
	Mode string
	// CheckInLimiter throttles POST /api/checkin per client IP. Nil disables it.
	CheckInLimiter *middleware.RateLimiter
	// RequireToken puts the admin routes behind a bearer token.
	RequireToken bool
	// TrustedProxies may set the client IP through forwarding headers. Empty
	// means the peer address is always used.
	TrustedProxies []string
}

func NewRouters(r *Routers) *ginext.Engine {
	mode := r.Mode
	if mode == "" {
		mode = "release"
	}
	if r.Log == nil {
		nop := zerolog.Nop()
		r.Log = &nop
	}

	app := ginext.New(mode)
	if err := app.SetTrustedProxies(r.TrustedProxies); err != nil {
		r.Log.Error().Err(err).Msg("invalid trusted proxies, ignoring forwarding headers")
		_ = app.SetTrustedProxies(nil)
	}

	app.Use(middleware.LoggingMiddleware())
	app.Use(cors.Default())
	app.NoRoute(func(c *ginext.Context) {
		dto.NotFoundError(c, dto.RouteNotFound, "Route not found")
	})

	app.GET("/healthz", func(c *ginext.Context) {
		dto.SuccessResponse(c, dto.HealthResponse{Status: "ok"})
	})

	apiGroup := app.Group("/api")

	apiGroup.GET("/events", r.listEvents)
	apiGroup.GET("/events/:id", r.getEvent)
	apiGroup.GET("/attendees", r.listAttendees)
	apiGroup.GET("/stats", r.stats)
	apiGroup.POST("/auth/login", r.login)

	if r.CheckInLimiter != nil {
		apiGroup.POST("/checkin", r.CheckInLimiter.Middleware(), r.checkIn)
	} else {
		apiGroup.POST("/checkin", r.checkIn)
	}

	admin := apiGroup.Group("")
	if r.RequireToken {
		admin.Use(middleware.AdminAuth(r.Service.ValidateToken))
	}

	admin.POST("/events", r.createEvent)
	admin.PATCH("/events/:id", r.updateEvent)
	admin.DELETE("/events/:id", r.deleteEvent)
	admin.GET("/events/:id/attendance", r.listEventAttendance)
	admin.GET("/attendees/export", r.exportAttendees)
	admin.GET("/attendance", r.listAttendance)

	for _, prefix := range []string{"/sync-settings", "/notion/settings"} {
		admin.GET(prefix, r.getSyncSettings)
		admin.POST(prefix, r.saveSyncSettings)
		admin.DELETE(prefix, r.clearSyncSettings)
	}
	admin.POST("/sync-settings/test", r.testSyncSettings)
	admin.POST("/notion/test", r.testSyncSettings)

	return app
}
