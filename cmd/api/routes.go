package main

import (
	"database/sql"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"meeting-platform/internal/httpapi"
	"meeting-platform/internal/notify"
	"meeting-platform/internal/provider"
	"meeting-platform/internal/rbac"
	"meeting-platform/pkg/utils"
)

type registerDeps struct {
	AuthMW gin.HandlerFunc
	Hub    *notify.Hub
	DB     *sql.DB
	Redis  *redis.Client
	Source provider.CallSource
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, deps registerDeps) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		ctx := c.Request.Context()
		if err := utils.HealthCheck(ctx, deps.DB, 2*time.Second); err != nil {
			c.JSON(503, gin.H{"status": "degraded", "postgres": err.Error()})
			return
		}
		if err := deps.Redis.Ping(ctx).Err(); err != nil {
			c.JSON(503, gin.H{"status": "degraded", "redis": err.Error()})
			return
		}
		if err := deps.Source.HealthCheck(ctx); err != nil {
			c.JSON(503, gin.H{"status": "degraded", "call_source": err.Error()})
			return
		}
		c.JSON(200, gin.H{"status": "ok"})
	})

	// AUTH routes (token issuance).
	// NOTE: Login is a placeholder credential flow; identity providers own
	// real sign-in. The tokens it issues are what the rest of the API keys on.
	authGroup := r.Group("/v1/auth")
	{
		authGroup.POST("/login", h.Login)
		authGroup.POST("/refresh", h.Refresh)
	}

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(deps.AuthMW)
	v1.Use(rbac.RequireUser())
	{
		v1.GET("/video/token", h.VideoToken)

		// MEETINGS routes
		meetings := v1.Group("/meetings")
		{
			meetings.POST("", h.CreateMeeting)
			meetings.GET("", h.ListMeetings)
			meetings.GET("/:id", h.GetMeeting)
			meetings.POST("/:id/join", h.JoinMeeting)
			meetings.POST("/:id/leave", h.LeaveMeeting)
			meetings.POST("/:id/end", h.EndMeeting)
			meetings.GET("/:id/recordings", h.MeetingRecordings)

			// Lifecycle notices (ending soon, meeting ended) per call.
			// Invite checks apply here too; see RequireMeetingAccess.
			meetings.GET("/:id/ws", h.RequireMeetingAccess, notify.ServeWS(deps.Hub))
		}

		v1.POST("/join", h.ResolveLink)
		v1.GET("/recordings", h.ListRecordings)

		// PERSONAL ROOM routes
		rooms := v1.Group("/rooms")
		{
			rooms.GET("/personal", h.GetPersonalRoom)
			rooms.PUT("/personal", h.SavePersonalRoom)
			rooms.DELETE("/personal", h.DeletePersonalRoom)
		}

		v1.GET("/reports/summary", h.MeetingsSummary)

		// ADMIN routes
		admin := v1.Group("/admin")
		admin.Use(rbac.RequireAnyRole(rbac.RoleAdmin))
		{
			admin.GET("/meetings/:id/events", h.MeetingEvents)
		}
	}
}
