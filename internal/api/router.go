package api

import (
	"time"

	"github.com/JayPixl/ocmafia-old-sub000/internal/middleware"
	"github.com/JayPixl/ocmafia-old-sub000/internal/notifier"
	"github.com/JayPixl/ocmafia-old-sub000/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Router API路由器
type Router struct {
	engine   *gin.Engine
	db       *gorm.DB
	config   *service.Config
	services *service.Services
	notifier *notifier.Notifier

	authHandler      *AuthHandler
	characterHandler *CharacterHandler
	gameHandler      *GameHandler
	reportHandler    *ReportHandler
	chatHandler      *ChatHandler
	sseHandler       *SSEHandler
	wsHandler        *WSHandler
	authMiddleware   *middleware.AuthMiddleware

	log *zap.Logger
}

// NewRouter 创建路由器
// pollInterval为聊天室变更检测的轮询间隔
func NewRouter(db *gorm.DB, config *service.Config, pollInterval time.Duration, log *zap.Logger) *Router {
	engine := gin.New()

	// 全局中间件
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())

	// 创建服务
	services := service.NewServices(db, config, log)

	// 变更通知器：以聊天服务的内容指纹作为轮询源
	n := notifier.New(pollInterval, services.Chat.RoomFingerprint, log)

	// 创建中间件和处理器
	authMiddleware := middleware.NewAuthMiddleware(services.Auth)

	router := &Router{
		engine:   engine,
		db:       db,
		config:   config,
		services: services,
		notifier: n,

		authHandler:      NewAuthHandler(services.Auth, services.User),
		characterHandler: NewCharacterHandler(services.Character),
		gameHandler:      NewGameHandler(services.Game),
		reportHandler:    NewReportHandler(services.Report, services.User),
		chatHandler:      NewChatHandler(services.Chat, services.User),
		sseHandler:       NewSSEHandler(services.Chat, services.User, n, log),
		wsHandler:        NewWSHandler(services.Chat, services.User, n, log),
		authMiddleware:   authMiddleware,

		log: log,
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
		// 认证相关路由
		auth := v1.Group("/auth")
		{
			auth.POST("/register", r.authHandler.Register)
			auth.POST("/login", r.authHandler.Login)
			auth.POST("/refresh", r.authHandler.RefreshToken)

			authRequired := auth.Group("")
			authRequired.Use(r.authMiddleware.RequireAuth())
			{
				authRequired.POST("/logout", r.authHandler.Logout)
				authRequired.GET("/profile", r.authHandler.GetProfile)
				authRequired.PUT("/profile", r.authHandler.UpdateProfile)
				authRequired.PUT("/password", r.authHandler.UpdatePassword)
			}
		}

		// 角色卡路由
		characters := v1.Group("/characters")
		{
			characters.GET("/:id", r.characterHandler.GetCharacter)

			charRequired := characters.Group("")
			charRequired.Use(r.authMiddleware.RequireAuth())
			{
				charRequired.GET("", r.characterHandler.ListCharacters)
				charRequired.POST("", r.characterHandler.CreateCharacter)
				charRequired.PUT("/:id", r.characterHandler.UpdateCharacter)
				charRequired.DELETE("/:id", r.characterHandler.DeleteCharacter)
				charRequired.POST("/:id/avatar", r.characterHandler.UploadAvatar)
			}
		}

		// 游戏路由：读接口对旁观者（含匿名）开放
		games := v1.Group("/games")
		games.Use(r.authMiddleware.OptionalAuth())
		{
			games.GET("", r.gameHandler.ListGames)
			games.GET("/:id", r.gameHandler.GetGame)

			// 战报与聊天的读接口按访问分类过滤
			games.GET("/:id/phases/:phaseID/report", r.reportHandler.GetPhaseReport)
			games.GET("/:id/chatrooms", r.chatHandler.ListRooms)
			games.GET("/:id/chatrooms/:roomID", r.chatHandler.EnterRoom)
			games.GET("/:id/chatrooms/:roomID/messages", r.chatHandler.GetMessages)

			gamesRequired := games.Group("")
			gamesRequired.Use(r.authMiddleware.RequireAuth())
			{
				gamesRequired.POST("", r.gameHandler.CreateGame)

				// 主持与进程控制
				gamesRequired.POST("/:id/hosts", r.gameHandler.AddHost)
				gamesRequired.DELETE("/:id/hosts/:userID", r.gameHandler.RemoveHost)
				gamesRequired.POST("/:id/start", r.gameHandler.StartGame)
				gamesRequired.POST("/:id/advance", r.gameHandler.AdvancePhase)
				gamesRequired.POST("/:id/complete", r.gameHandler.CompleteGame)
				gamesRequired.PUT("/:id/phases/:phaseID/status", r.gameHandler.UpdateCharacterStatus)

				// 报名
				gamesRequired.POST("/:id/join", r.gameHandler.JoinGame)
				gamesRequired.POST("/:id/leave", r.gameHandler.LeaveGame)

				// 战报编辑与发布
				gamesRequired.POST("/:id/phases/:phaseID/events", r.reportHandler.CreateEvent)
				gamesRequired.POST("/:id/phases/:phaseID/publish", r.reportHandler.PublishPhase)
				gamesRequired.PUT("/:id/events/:eventID", r.reportHandler.UpdateEvent)
				gamesRequired.DELETE("/:id/events/:eventID", r.reportHandler.DeleteEvent)
				gamesRequired.POST("/:id/events/:eventID/publish", r.reportHandler.PublishEvent)

				// 聊天写接口（发言权限在服务层按分类判定）
				gamesRequired.POST("/:id/chatrooms", r.chatHandler.CreateRoom)
				gamesRequired.DELETE("/:id/chatrooms/:roomID", r.chatHandler.DeleteRoom)
				gamesRequired.POST("/:id/chatrooms/:roomID/messages", r.chatHandler.SendMessage)
				gamesRequired.DELETE("/:id/chatrooms/:roomID/messages/:messageID", r.chatHandler.DeleteMessage)
			}
		}
	}

	// 变更通知订阅（SSE与websocket共享订阅注册表）
	sse := r.engine.Group("/sse")
	sse.Use(r.authMiddleware.OptionalAuth())
	{
		sse.GET("/chatroom/:id/:roomID", r.sseHandler.Subscribe)
	}

	ws := r.engine.Group("/ws")
	ws.Use(r.authMiddleware.OptionalAuth())
	{
		ws.GET("/chatroom/:id/:roomID", r.wsHandler.Subscribe)
	}

	// 静态文件服务（上传的头像等媒体文件）
	r.engine.Static("/static", r.config.UploadDir)

	// API文档
	registerOpenAPIRoutes(r.engine)
	registerSwaggerRoutes(r.engine)

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
	r.log.Info("Starting API server", zap.String("address", addr))
	return r.engine.Run(addr)
}

// Close 停止变更通知器
func (r *Router) Close() {
	r.notifier.Close()
}

// GetEngine 获取Gin引擎（用于测试和自定义http.Server）
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

// GetServices 获取服务集合（用于测试）
func (r *Router) GetServices() *service.Services {
	return r.services
}
