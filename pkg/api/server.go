package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 10 * time.Second

// ServerConfig API服务器配置
type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

// Server API服务器
type Server struct {
	router *gin.Engine
	srv    *http.Server
	log    zerolog.Logger
}

// NewServer 创建新的API服务器
func NewServer(cfg ServerConfig, log zerolog.Logger) *Server {
	log = log.With().Str("component", "api").Logger()

	router := gin.New()
	// AccessLog 在 Recovery 外层，panic 的请求也会以 500 记录
	router.Use(RequestID())
	router.Use(AccessLog(log))
	router.Use(Recovery(log))

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	handler := cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", headerRequestID},
		ExposedHeaders: []string{headerRequestID, headerRunID},
		MaxAge:         300,
	})(router)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{
		router: router,
		srv:    srv,
		log:    log,
	}
}

// SetupRoutes 设置路由
func (s *Server) SetupRoutes(handlers *Handlers) {
	// 健康检查
	s.router.GET("/health", handlers.HealthCheck)
	s.router.GET("/ready", handlers.ReadinessCheck)

	api := s.router.Group("/api")
	{
		// 行情浏览与筛选
		api.GET("/stocks", handlers.GetStocks)
		api.POST("/stocks/filter", handlers.FilterStocks)
		api.POST("/screen", handlers.Screen)

		// 基本面
		api.GET("/fundamentals/:symbol", handlers.GetFundamentals)

		// 代码搜索
		api.GET("/symbols/search", handlers.SearchSymbols)

		// 缓存管理
		api.POST("/cache/clear", handlers.ClearCache)
	}
}

// Handler 返回带 CORS 的 HTTP 处理器
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Run 启动服务器，ctx 结束后优雅关闭
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.srv.Addr).Msg("API服务器启动")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("启动服务器失败: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("正在关闭服务器...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("服务器关闭失败: %w", err)
	}

	s.log.Info().Msg("服务器已关闭")
	return nil
}
