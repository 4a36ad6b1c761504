package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"kidquest_backend/internal/config"
	"kidquest_backend/internal/controller"
	"kidquest_backend/internal/repository"
	"kidquest_backend/internal/service"
	"kidquest_backend/pkg/configwatcher"
	"kidquest_backend/pkg/database"
	"kidquest_backend/pkg/logger"
	"kidquest_backend/pkg/monitoring"
	"kidquest_backend/pkg/security"
	"kidquest_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type App struct {
	Config     *config.Config
	ConfigDir  string
	Router     *gin.Engine
	DB         *gorm.DB
	Redis      *redis.Client
	services   *services
	tracer     *sdktrace.TracerProvider
	background context.Context
	stop       context.CancelFunc

	configCallbacks []func(*config.Config)
}

type repositories struct {
	user     *repository.UserRepository
	family   *repository.FamilyRepository
	content  *repository.ContentRepository
	progress *repository.ProgressRepository
	badge    *repository.BadgeRepository
	roadmap  *repository.RoadmapRepository
	cache    *repository.LeaderboardCache
}

type services struct {
	guard        *service.Guard
	content      *service.ContentService
	gamification *service.GamificationService
	roadmap      *service.RoadmapService
	progress     *service.ProgressService
	report       *service.ReportService
	family       *service.FamilyService
}

type controllers struct {
	health       *controller.HealthController
	content      *controller.ContentController
	progress     *controller.ProgressController
	gamification *controller.GamificationController
	roadmap      *controller.RoadmapController
	parent       *controller.ParentController
}

// RegisterConfigCallback 注册配置热更新回调
func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *repositories {
	return &repositories{
		user:     repository.NewUserRepository(db),
		family:   repository.NewFamilyRepository(db),
		content:  repository.NewContentRepository(db),
		progress: repository.NewProgressRepository(db),
		badge:    repository.NewBadgeRepository(db),
		roadmap:  repository.NewRoadmapRepository(db),
		cache:    repository.NewLeaderboardCache(rdb, time.Duration(cfg.Gamification.LeaderboardCacheTTL)*time.Second),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB) *services {
	guard := service.NewGuard(repos.user, repos.family)
	gamification := service.NewGamificationService(repos.user, repos.badge, repos.progress, repos.family, repos.cache, cfg.Gamification)
	roadmap := service.NewRoadmapService(repos.content, repos.progress, repos.roadmap)

	// 积分规则支持热更新
	a.RegisterConfigCallback(func(newCfg *config.Config) {
		gamification.SetRules(newCfg.Gamification)
	})

	return &services{
		guard:        guard,
		content:      service.NewContentService(repos.content),
		gamification: gamification,
		roadmap:      roadmap,
		progress:     service.NewProgressService(db, repos.content, repos.progress, guard, gamification, roadmap),
		report:       service.NewReportService(guard, repos.content, repos.progress, repos.badge, cfg.Report),
		family:       service.NewFamilyService(db, guard),
	}
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		health:       controller.NewHealthController(db, rdb, s.gamification),
		content:      controller.NewContentController(s.content),
		progress:     controller.NewProgressController(s.progress),
		gamification: controller.NewGamificationController(s.gamification),
		roadmap:      controller.NewRoadmapController(s.roadmap),
		parent:       controller.NewParentController(s.report, s.family),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(a.background, cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) startBackgroundTasks() {
	configFile := filepath.Join(a.ConfigDir, "config.yaml")
	go func() {
		err := configwatcher.WatchConfig(a.background, configFile, func(newCfg *config.Config) {
			for _, cb := range a.configCallbacks {
				cb(newCfg)
			}
		})
		if err != nil {
			logger.Log.Warn("Config watcher disabled", zap.String("file", configFile), zap.Error(err))
		}
	}()
}

func gormLogLevel(mode string) gormlogger.LogLevel {
	if mode == "debug" {
		return gormlogger.Info
	}
	return gormlogger.Warn
}

func NewApp(cfg *config.Config, configDir string) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.ForceMigrate || cfg.Server.Mode != "release", gormLogLevel(cfg.Server.Mode))
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	bg, stop := context.WithCancel(context.Background())
	app := &App{
		Config:     cfg,
		ConfigDir:  configDir,
		DB:         db,
		background: bg,
		stop:       stop,
	}
	if cfg.MigrateOnly {
		return app
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		// 排行榜缓存不可用时退化为直接查库
		logger.Log.Warn("Redis unavailable, leaderboard cache disabled", zap.Error(err))
		rdb = nil
	}
	app.Redis = rdb

	repos := app.initRepositories(db, rdb, cfg)
	app.services = app.initServices(repos, cfg, db)
	controllers := app.initControllers(app.services, db, rdb)

	// 监控初始化
	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("kidquest-backend", cfg.Tracing.CollectorEndpoint, cfg.Tracing.SampleRatio)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	app.startBackgroundTasks()

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("listen failed", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
	a.Close(ctx)

	logger.Log.Info("Server exiting")
}

// Close stops background work and releases connections.
func (a *App) Close(ctx context.Context) {
	a.stop()

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
