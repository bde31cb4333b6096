package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bangumi-calendar-service/internal/command"
	"bangumi-calendar-service/internal/config"
	"bangumi-calendar-service/internal/handler"
	"bangumi-calendar-service/internal/middleware"
	"bangumi-calendar-service/internal/render"
	"bangumi-calendar-service/internal/repository"
	"bangumi-calendar-service/internal/service"
	"bangumi-calendar-service/pkg/httpclient"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"go.uber.org/automaxprocs/maxprocs"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		middleware.InitLogger("info")
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logging
	middleware.InitLogger(cfg.LogLevel)

	if _, err := maxprocs.Set(maxprocs.Logger(log.Printf)); err != nil {
		log.Warn().Err(err).Msg("Failed to set GOMAXPROCS")
	}

	log.Info().
		Str("port", cfg.Port).
		Str("mode", cfg.GinMode).
		Str("upstream", cfg.BangumiAPIBase).
		Msg("🚀 Starting bangumi-calendar-service")

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	handler.InitMetrics(nil)

	// Initialize command analytics (optional)
	var analyticsStore handler.AnalyticsStore
	var recorder middleware.CommandRecorder
	if cfg.AnalyticsEnabled() {
		analytics, err := repository.NewAnalytics(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize analytics")
		}
		defer analytics.Close()
		if err := analytics.RecordServerStart(context.Background()); err != nil {
			log.Warn().Err(err).Msg("Failed to record server start")
		}
		analyticsStore, recorder = analytics, analytics
		log.Info().Msg("📊 Command analytics enabled")
	} else {
		log.Info().Msg("📊 REDIS_URL not set, command analytics disabled")
	}

	// Initialize HTTP client and services
	httpClient := httpclient.NewClient(cfg.BangumiUserAgent, cfg.Timeout(),
		httpclient.WithObserver(handler.ObserveUpstream))
	bangumiService := service.NewBangumiService(httpClient, cfg.BangumiAPIBase)

	// Image rendering is optional; without T2I_ENDPOINT every reply is text
	var renderer *render.Renderer
	// 截图服务单独使用一个客户端：超时更长，也不计入上游指标
	renderClient := httpclient.NewClient("", cfg.RenderTimeout())
	t2i := render.NewT2IRenderer(renderClient, cfg.T2IEndpoint)
	if t2i.Enabled() {
		renderer = render.NewRenderer(t2i, render.LoadDayTemplate(context.Background(), cfg.DayTemplatePath))
	}
	if renderer.ImageEnabled() {
		log.Info().Str("endpoint", cfg.T2IEndpoint).Msg("🖼️  Image rendering enabled")
	} else {
		log.Info().Msg("📝 Image rendering disabled, replying with text")
	}

	plugin := command.NewPlugin(bangumiService, renderer, command.WithSearchLimit(cfg.SearchLimit))
	registry := plugin.Registry()

	// Initialize handlers
	commandHandler := handler.NewCommandHandler(registry)
	adminHandler := handler.NewAdminHandler(handler.ServiceStatus{
		UpstreamBase: bangumiService.BaseURL(),
		ImageEnabled: renderer.ImageEnabled(),
	}, analyticsStore)

	// Setup router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logging())
	r.Use(handler.MetricsMiddleware())
	if recorder != nil {
		r.Use(middleware.Metrics(recorder))
	}
	r.Use(middleware.CORS(cfg.CORSOrigins))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
			"time":   time.Now().Unix(),
		})
	})
	r.GET("/metrics", handler.MetricsHandler())

	// API routes - 公开访问
	api := r.Group("/api/v1")
	{
		api.GET("/status", adminHandler.GetStatus)
		api.GET("/commands", commandHandler.ListCommands)
		api.POST("/command", commandHandler.HandleCommand)
	}

	// Admin routes - 需要认证（如果配置了 ADMIN_API_KEY）
	admin := r.Group("/api/v1")
	admin.Use(middleware.AdminAuth(cfg.AdminAPIKey))
	{
		admin.GET("/analytics", adminHandler.GetAnalytics)
		admin.GET("/analytics/command", adminHandler.GetCommandStats)
		admin.DELETE("/analytics", adminHandler.ResetAnalytics)
	}

	// 日志输出认证状态
	if cfg.AdminAPIKey != "" {
		log.Info().Msg("🔐 Admin API 认证已启用")
	} else {
		log.Warn().Msg("⚠️  Admin API 未配置认证，管理接口对外开放")
	}

	// Create HTTP server with graceful shutdown support
	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", addr).Int("commands", len(registry.Commands())).Msg("🌐 Server listening")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("🛑 Shutting down server...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("👋 Server exited")
}
