package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/hexland/internal/config"
	"github.com/wfunc/hexland/internal/game"
	"github.com/wfunc/hexland/internal/middleware"
	"github.com/wfunc/hexland/internal/utils"
	"github.com/wfunc/hexland/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Router API路由器
type Router struct {
	engine         *gin.Engine
	db             *gorm.DB
	gameEngine     *game.Engine
	scheduler      *game.Scheduler
	hub            *websocket.Hub
	agentHandler   *AgentHandler
	adminHandler   *AdminHandler
	wsHandler      *WebSocketHandler
	authMiddleware *middleware.AuthMiddleware
	log            *zap.Logger
}

// NewRouter 创建路由器
func NewRouter(db *gorm.DB, gameEngine *game.Engine, scheduler *game.Scheduler, hub *websocket.Hub, cfg *config.Config, log *zap.Logger) *Router {
	// 创建Gin引擎
	engine := gin.New()

	// 全局中间件
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())

	jwtManager := utils.NewJWTManager(
		cfg.Security.JWT.Secret,
		time.Duration(cfg.Security.JWT.ExpireHours)*time.Hour,
	)

	router := &Router{
		engine:         engine,
		db:             db,
		gameEngine:     gameEngine,
		scheduler:      scheduler,
		hub:            hub,
		agentHandler:   NewAgentHandler(gameEngine),
		adminHandler:   NewAdminHandler(scheduler, gameEngine, jwtManager, cfg.Security.Admin),
		wsHandler:      NewWebSocketHandler(hub, log),
		authMiddleware: middleware.NewAuthMiddleware(jwtManager),
		log:            log,
	}

	router.setupRoutes()
	return router
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	// 健康检查
	r.engine.GET("/health", r.healthCheck)

	// API v1路由组
	v1 := r.engine.Group("/api/v1")
	{
		// 智能体接口（简单ID标识，不做会话管理）
		agents := v1.Group("/agents")
		{
			agents.POST("/join", r.agentHandler.Join)
			agents.POST("/:agent_id/actions", r.agentHandler.SubmitAction)
			agents.GET("/:agent_id/state", r.agentHandler.GetWorldState)
			agents.PUT("/:agent_id/memory", r.agentHandler.UpdateMemory)
			agents.PUT("/:agent_id/strategy", r.agentHandler.UpdateStrategy)
			agents.PUT("/:agent_id/webhook", r.agentHandler.UpdateWebhook)
		}

		// 公共地图与事件流
		v1.GET("/map", r.agentHandler.GetPublicMap)
		v1.GET("/events", r.agentHandler.GetRecentEvents)

		// 管理员接口
		admin := v1.Group("/admin")
		{
			admin.POST("/login", r.adminHandler.Login)

			authRequired := admin.Group("")
			authRequired.Use(r.authMiddleware.RequireAdmin())
			{
				authRequired.POST("/tick", r.adminHandler.TriggerTick)
				authRequired.POST("/reset", r.adminHandler.Reset)
			}
		}
	}

	// WebSocket路由（观战/事件订阅）
	r.engine.GET("/ws", r.wsHandler.Connect)

	// 404处理
	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{
			"code":    "NOT_FOUND",
			"message": "接口不存在",
		})
	})
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	sqlDB, err := r.db.DB()
	if err != nil {
		c.JSON(500, gin.H{
			"status":  "unhealthy",
			"message": "数据库连接失败",
		})
		return
	}

	if err := sqlDB.Ping(); err != nil {
		c.JSON(500, gin.H{
			"status":  "unhealthy",
			"message": "数据库ping失败",
		})
		return
	}

	c.JSON(200, gin.H{
		"status":  "healthy",
		"message": "服务运行正常",
	})
}

// Run 运行服务器
func (r *Router) Run(addr string) error {
	r.log.Info("启动API服务", zap.String("address", addr))
	return r.engine.Run(addr)
}

// GetEngine 获取Gin引擎（用于测试）
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
