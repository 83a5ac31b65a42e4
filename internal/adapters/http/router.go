package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/voxhall/voxhall/internal/adapters/signal"
	"github.com/voxhall/voxhall/internal/app"
	"github.com/voxhall/voxhall/internal/config"
	"github.com/voxhall/voxhall/internal/domain"
	"github.com/voxhall/voxhall/internal/identity"
)

func genClientToken() string {
	return uuid.NewString()
}

// bearerToken extracts the caller's token from the Authorization header,
// falling back to the token query parameter.
func bearerToken(c *gin.Context) string {
	const prefix = "Bearer "
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, prefix) {
		return strings.TrimPrefix(h, prefix)
	}
	return c.Query("token")
}

// ClientTokenMiddleware pins a stable token cookie to each browser.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, orch *app.Orchestrator, provider identity.Provider) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("VoxhallSessions", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	// GET /api/rooms — durable records with live member counts
	api.GET("/rooms", func(c *gin.Context) {
		rooms, err := orch.Lifecycle.List(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list rooms"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"rooms": rooms})
	})

	// POST /api/rooms — host creates a room
	api.POST("/rooms", func(c *gin.Context) {
		var req struct {
			Name      string `json:"name"`
			RoomType  string `json:"roomType"`
			Thumbnail string `json:"roomThumbnail"`
			Theme     string `json:"roomTheme"`
			Token     string `json:"token"`
		}
		if err := c.BindJSON(&req); err != nil || req.Name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid name"})
			return
		}
		if len(req.Name) > domain.MaxRoomNameLen {
			req.Name = req.Name[:domain.MaxRoomNameLen]
		}

		host := domain.NewAnonymousIdentity()
		if req.Token != "" {
			resolved, err := provider.Resolve(c.Request.Context(), req.Token)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
				return
			}
			host = resolved
		}

		room, err := orch.Lifecycle.Create(c.Request.Context(), app.CreateRoomSpec{
			Name:      domain.RoomName(req.Name),
			Host:      host,
			RoomType:  req.RoomType,
			Thumbnail: req.Thumbnail,
			Theme:     req.Theme,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create room"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"_id":       room.ID,
			"name":      room.Name,
			"expiresAt": room.ExpiresAt,
		})
	})

	// GET /api/rooms/:id/participants — presence snapshot
	api.GET("/rooms/:id/participants", func(c *gin.Context) {
		roomID := domain.RoomID(c.Param("id"))
		if _, ok := orch.Lifecycle.Room(roomID); !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "room does not exist"})
			return
		}
		c.JSON(http.StatusOK, orch.Presence.Snapshot(roomID))
	})

	// DELETE /api/rooms/:id — host-only teardown
	api.DELETE("/rooms/:id", func(c *gin.Context) {
		roomID := domain.RoomID(c.Param("id"))
		room, ok := orch.Lifecycle.Room(roomID)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "room does not exist"})
			return
		}
		token := bearerToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		caller, err := provider.Resolve(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if caller.ID != room.HostIdentityID {
			c.JSON(http.StatusForbidden, gin.H{"error": "unauthorized"})
			return
		}
		if err := orch.Lifecycle.Close(c.Request.Context(), roomID, app.ReasonDeleted); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "room does not exist"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete room"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Room deleted successfully"})
	})

	limiter := signal.NewJoinRateLimiter(cfg.JoinRateLimit, cfg.JoinRateInterval)
	ctrl := signal.NewSignalWSController(orch, provider, limiter, cfg.ReadLimit, cfg.PingPeriod)
	api.GET("/ws/signal", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("ct", c.GetString("client_token")).Msg("ws signal endpoint hit")
		ctrl.HandleSignal(ctx, c)
	})

	return r
}
