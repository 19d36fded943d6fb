package router

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rohitroy-github/ico-init/internal/chain"
	"github.com/rohitroy-github/ico-init/internal/config"
	"github.com/rohitroy-github/ico-init/internal/contract"
	"github.com/rohitroy-github/ico-init/internal/handler"
	"github.com/rohitroy-github/ico-init/internal/logger"
	"github.com/rohitroy-github/ico-init/internal/logic"
	"github.com/rohitroy-github/ico-init/internal/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RequestIDHeader 请求追踪ID
const RequestIDHeader = "X-Request-ID"

func Setup(db *gorm.DB, backend *chain.Backend, registry *contract.ProjectRegistry, accounts []chain.Account, cfg *config.Config) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// 中间件
	r.Use(requestIDMiddleware())
	r.Use(loggerMiddleware())
	r.Use(gin.Recovery())
	r.Use(metricsMiddleware())
	r.Use(corsMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		head, _ := backend.BlockNumber(c.Request.Context())
		c.JSON(200, gin.H{
			"status":   "ok",
			"service":  "ico-init",
			"chainId":  backend.ChainID().String(),
			"head":     head,
			"registry": registry.Address().Hex(),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	projectLogic := logic.NewProjectLogic(db, registry)
	tokenLogic := logic.NewTokenLogic(db, backend)
	purchaseLogic := logic.NewPurchaseRecordLogic(db)
	eventLogic := logic.NewEventLogic(db)
	accountLogic := logic.NewAccountLogic(backend, accounts)

	// API版本组
	v1 := r.Group("/api/v1")
	{
		registryHandler := handler.NewRegistryHandler(projectLogic, accountLogic)
		v1.GET("/accounts", registryHandler.GetAccounts)
		registryGroup := v1.Group("/registry")
		{
			registryGroup.GET("", registryHandler.GetRegistry)
			registryGroup.PUT("/listing-fee", registryHandler.UpdateListingFee)
			registryGroup.POST("/withdraw", registryHandler.Withdraw)
		}

		// 项目相关路由
		projectHandler := handler.NewProjectHandler(projectLogic, purchaseLogic)
		v1.GET("/stats", projectHandler.GetProjectStats)
		projects := v1.Group("/projects")
		{
			projects.POST("", projectHandler.ListProject)
			projects.GET("", projectHandler.GetProjects)
			projects.GET("/:id", projectHandler.GetProject)
			projects.GET("/:id/details", projectHandler.GetProjectDetails)
			projects.GET("/:id/status", projectHandler.GetProjectStatus)
			projects.POST("/:id/close", projectHandler.CloseProject)
			projects.POST("/:id/token", projectHandler.CreateToken)
			projects.GET("/:id/purchases", projectHandler.GetProjectPurchases)
			projects.GET("/:id/purchases/stats", projectHandler.GetProjectPurchaseStats)
		}

		// 代币相关路由
		tokenHandler := handler.NewTokenHandler(tokenLogic, purchaseLogic)
		v1.GET("/buyers/:buyer/purchases", tokenHandler.GetBuyerPurchases)
		tokens := v1.Group("/tokens")
		{
			tokens.GET("", tokenHandler.GetTokens)
			tokens.GET("/:address", tokenHandler.GetToken)
			tokens.GET("/:address/balances/:holder", tokenHandler.GetBalance)
			tokens.POST("/:address/buy", tokenHandler.BuyTokens)
			tokens.PUT("/:address/price", tokenHandler.UpdateTokenPrice)
			tokens.POST("/:address/transfer", tokenHandler.Transfer)
			tokens.POST("/:address/approve", tokenHandler.Approve)
			tokens.GET("/:address/transactions", tokenHandler.GetTransactions)
		}

		// 事件相关路由
		eventHandler := handler.NewEventHandler(eventLogic)
		events := v1.Group("/events")
		{
			events.GET("", eventHandler.GetEvents)
			events.GET("/stats", eventHandler.GetEventStatistics)
			events.GET("/:id", eventHandler.GetEvent)
		}
	}

	return r
}

// requestIDMiddleware 为每个请求分配追踪ID
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// loggerMiddleware 访问日志写入 zap
func loggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.With(zap.String("request_id", c.GetString("request_id"))).
			Info("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// metricsMiddleware 按路由模板统计请求数与耗时
func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// CORS中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-From, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
