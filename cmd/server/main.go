package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/JayPixl/ocmafia-old-sub000/internal/api"
	"github.com/JayPixl/ocmafia-old-sub000/internal/config"
	"github.com/JayPixl/ocmafia-old-sub000/internal/database"
	"github.com/JayPixl/ocmafia-old-sub000/internal/errors"
	"github.com/JayPixl/ocmafia-old-sub000/internal/logger"
	"github.com/JayPixl/ocmafia-old-sub000/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 版本信息
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Server 服务器实例
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	router     *api.Router
	httpServer *http.Server

	// 关闭控制
	shutdownCh chan struct{}
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
}

func main() {
	// 命令行参数
	var (
		configPath  = flag.String("config", "", "配置文件路径")
		showVersion = flag.Bool("version", false, "显示版本信息")
		showHelp    = flag.Bool("help", false, "显示帮助信息")
	)

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if *showHelp {
		printHelp()
		os.Exit(0)
	}

	// 加载配置
	if err := config.Init(*configPath); err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Get()

	// 初始化日志系统
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}

	printStartInfo(cfg)

	// 创建服务器实例
	server := NewServer(cfg)

	// 启动服务器
	if err := server.Start(); err != nil {
		logger.Fatal("服务器启动失败", zap.Error(err))
	}

	// 等待退出信号
	server.WaitForShutdown()

	// 优雅关闭
	if err := server.Shutdown(); err != nil {
		logger.Error("服务器关闭失败", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("服务器已安全关闭")
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		cfg:        cfg,
		logger:     logger.GetLogger(),
		shutdownCh: make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start 启动服务器
func (s *Server) Start() error {
	s.logger.Info("正在启动OC Mafia服务器...",
		zap.String("version", Version),
		zap.String("mode", s.cfg.Server.Mode),
	)

	// 初始化数据库
	if err := s.initDatabase(); err != nil {
		return err
	}

	// 初始化路由和HTTP服务
	if err := s.startHTTPServer(); err != nil {
		return errors.Wrap(err, errors.ErrUnknown, "启动HTTP服务失败")
	}

	// 监听配置变化
	config.Watch(func(newCfg *config.Config) {
		s.logger.Info("配置已更新，正在重新加载...")
	})

	s.logger.Info("服务器启动成功",
		zap.String("http", fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)),
	)

	return nil
}

// initDatabase 初始化数据库
func (s *Server) initDatabase() error {
	s.logger.Info("初始化数据库...")

	if err := database.Init(&s.cfg.Database); err != nil {
		return errors.Wrap(err, errors.ErrDatabaseConnect, "初始化数据库连接失败")
	}

	if s.cfg.Database.AutoMigrate {
		s.logger.Info("执行数据库自动迁移...")
		if err := database.AutoMigrate(); err != nil {
			return errors.Wrap(err, errors.ErrDatabaseConnect, "数据库迁移失败")
		}
	}

	if !database.IsConnected() {
		return errors.New(errors.ErrDatabaseConnect, "数据库连接检查失败")
	}

	s.logger.Info("数据库初始化完成")
	return nil
}

// startHTTPServer 创建路由器并启动HTTP服务
func (s *Server) startHTTPServer() error {
	if s.cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	svcConfig := &service.Config{
		JWTSecret:          s.cfg.Security.JWT.Secret,
		AccessTokenExpiry:  s.cfg.Security.JWT.AccessExpiry,
		RefreshTokenExpiry: s.cfg.Security.JWT.RefreshExpiry,
		ChatHistoryLimit:   s.cfg.Chat.HistoryLimit,
		MaxMessageLen:      s.cfg.Chat.MaxMessageLen,
		UploadDir:          s.cfg.Media.UploadDir,
		MediaBaseURL:       s.cfg.Media.BaseURL,
		MaxUploadSize:      s.cfg.Media.MaxUploadSize,
	}

	s.router = api.NewRouter(database.GetDB(), svcConfig, s.cfg.Chat.PollInterval, s.logger)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler:      s.router.GetEngine(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP服务异常退出", zap.Error(err))
		}
	}()

	return nil
}

// WaitForShutdown 等待关闭信号
func (s *Server) WaitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		s.logger.Info("收到退出信号", zap.String("signal", sig.String()))
	case <-s.shutdownCh:
		s.logger.Info("收到内部关闭请求")
	}
}

// Shutdown 优雅关闭
func (s *Server) Shutdown() error {
	s.logger.Info("正在关闭服务器...")

	timeout := s.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// 先停HTTP服务，再拆变更通知器，最后断数据库
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP服务关闭失败", zap.Error(err))
		}
	}

	if s.router != nil {
		s.router.Close()
	}

	s.cancel()
	s.wg.Wait()

	if err := database.Close(); err != nil {
		s.logger.Error("数据库关闭失败", zap.Error(err))
	}

	logger.Cleanup()
	return nil
}

// printVersion 打印版本信息
func printVersion() {
	fmt.Printf("OC Mafia Server\n")
	fmt.Printf("  版本: %s\n", Version)
	fmt.Printf("  构建时间: %s\n", BuildTime)
	fmt.Printf("  Git提交: %s\n", GitCommit)
}

// printHelp 打印帮助信息
func printHelp() {
	fmt.Println("OC Mafia 游戏服务器")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  ocmafia-server [选项]")
	fmt.Println()
	fmt.Println("选项:")
	fmt.Println("  -config string   配置文件路径")
	fmt.Println("  -version         显示版本信息")
	fmt.Println("  -help            显示帮助信息")
	fmt.Println()
	fmt.Println("示例:")
	fmt.Println("  ocmafia-server -config=/path/to/config.yaml")
	fmt.Println("  ocmafia-server -version")
}

// printStartInfo 打印启动信息
func printStartInfo(cfg *config.Config) {
	fmt.Println("==========================================")
	fmt.Println("       OC Mafia 游戏服务器")
	fmt.Println("==========================================")
	fmt.Printf("  版本:     %s\n", Version)
	fmt.Printf("  模式:     %s\n", cfg.Server.Mode)
	fmt.Printf("  监听:     %s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("  数据库:   %s\n", cfg.Database.Driver)
	fmt.Println("==========================================")
}
