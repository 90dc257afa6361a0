package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"school_test_backend/internal/config"
	"school_test_backend/internal/controller"
	"school_test_backend/internal/repository"
	"school_test_backend/internal/service"
	"school_test_backend/pkg/database"
	"school_test_backend/pkg/logger"
	"school_test_backend/pkg/monitoring"
	"school_test_backend/pkg/security"
	"school_test_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	configCallbacks []func(*config.Config)
}

type repositories struct {
	blockTest  *repository.BlockTestRepository
	enrollment *repository.EnrollmentRepository
	variant    *repository.VariantRepository
	testResult *repository.TestResultRepository
}

type services struct {
	storage    *service.StorageService
	membership *service.MembershipService
	blockTest  *service.BlockTestService
	variant    *service.VariantService
	scoring    *service.ScoringService
}

type controllers struct {
	blockTest     *controller.BlockTestController
	variant       *controller.VariantController
	scoring       *controller.ScoringController
	studentConfig *controller.StudentConfigController
	health        *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// OnConfigReload 配置文件热更新入口，由 configwatcher 调用
func (a *App) OnConfigReload(cfg *config.Config) {
	// 运行时标志不来自配置文件，保留当前值
	cfg.ForceMigrate = a.Config.ForceMigrate
	cfg.MigrateOnly = a.Config.MigrateOnly
	a.Config = cfg
	for _, callback := range a.configCallbacks {
		callback(cfg)
	}
	logger.Log.Info("config reloaded")
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *repositories {
	return &repositories{
		blockTest:  repository.NewBlockTestRepository(db),
		enrollment: repository.NewEnrollmentRepository(db),
		variant:    repository.NewVariantRepository(db, rdb, time.Duration(cfg.Variant.CodeCacheSeconds)*time.Second),
		testResult: repository.NewTestResultRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	s.membership = service.NewMembershipService(repos.blockTest, repos.enrollment)
	s.blockTest = service.NewBlockTestService(repos.blockTest, repos.variant)
	s.variant = service.NewVariantService(repos.variant, repos.blockTest, repos.enrollment, s.membership, cfg.Variant)
	s.scoring = service.NewScoringService(repos.variant, repos.blockTest, repos.testResult, s.membership)

	return s
}

func (a *App) initControllers(s *services, repos *repositories, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		blockTest:     controller.NewBlockTestController(s.blockTest),
		variant:       controller.NewVariantController(s.variant),
		scoring:       controller.NewScoringController(s.scoring, s.storage),
		studentConfig: controller.NewStudentConfigController(s.variant, repos.enrollment),
		health:        controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 100000
	}
	windowMinutes := cfg.RateLimit.WindowMinutes
	if windowMinutes <= 0 {
		windowMinutes = 1
	}
	router.Use(security.RateLimiter(maxRequests, time.Duration(windowMinutes)*time.Minute))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		// Redis 不可用只影响按码查询的缓存，不挡启动
		logger.Log.Warn("Redis unavailable, variant code cache disabled", zap.Error(err))
		rdb = nil
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db, rdb, cfg)
	services := app.initServices(repos, cfg)
	controllers := app.initControllers(services, repos, db, rdb)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		_, err := tracing.InitTracer("school-test-platform", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
