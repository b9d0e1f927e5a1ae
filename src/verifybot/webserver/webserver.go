package webserver

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/fanhaven/purchasegate/src/verifybot/components/entitlement"
	"github.com/fanhaven/purchasegate/src/verifybot/components/storefront"
)

type Config struct {
	Port      string
	JWTSecret string
	AdminKey  string
}

func New(cfg Config, registry *storefront.Registry, mapper *entitlement.Mapper, rdb *redis.Client) *gin.Engine {
	g := gin.New()
	g.Use(gin.Logger(), gin.Recovery())
	attachRoutes(g, cfg, registry, mapper, rdb)
	return g
}

func attachRoutes(r *gin.Engine, cfg Config, registry *storefront.Registry, mapper *entitlement.Mapper, rdb *redis.Client) {
	// Add CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"http://localhost:3000"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
	}))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	authH := NewAuth([]byte(cfg.JWTSecret), cfg.AdminKey)
	statusH := NewStatus(registry, mapper, rdb)

	v1 := r.Group("/v1")
	{
		v1.POST("/auth", authH.Login)

		secured := v1.Use(JWTMiddleware([]byte(cfg.JWTSecret)))
		secured.GET("/status", statusH.Overview)
		secured.GET("/admin/mappings", statusH.Mappings)
	}
}
