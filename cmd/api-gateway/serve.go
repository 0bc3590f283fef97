package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-assessment-api/internal/handler"
	"github.com/noah-isme/sma-assessment-api/internal/middleware"
	"github.com/noah-isme/sma-assessment-api/internal/repository"
	"github.com/noah-isme/sma-assessment-api/internal/service"
	"github.com/noah-isme/sma-assessment-api/migrations"
	"github.com/noah-isme/sma-assessment-api/pkg/cache"
	"github.com/noah-isme/sma-assessment-api/pkg/config"
	"github.com/noah-isme/sma-assessment-api/pkg/database"
	"github.com/noah-isme/sma-assessment-api/pkg/jobs"
	"github.com/noah-isme/sma-assessment-api/pkg/lock"
	"github.com/noah-isme/sma-assessment-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-assessment-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-assessment-api/pkg/middleware/requestid"
)

const shutdownTimeout = 15 * time.Second

func serve(ctx context.Context, cfg *config.Config) error {
	logr, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}
	defer db.Close()

	if cfg.Migrations.AutoMigrate {
		if err := database.Migrate(ctx, db, migrations.FS, "up"); err != nil {
			return err
		}
		logr.Info("migrations applied on startup")
	}

	var redisClient *redis.Client
	if cache.Required(cfg) {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect redis: %w", err)
		}
		defer redisClient.Close()
	}

	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	var cacheRepo service.CacheRepository
	if redisClient != nil && cfg.Cache.Enabled {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cfg.Cache.Enabled)

	var locker lock.Locker
	if cfg.Assessment.LockBackend == config.LockBackendRedis {
		locker = lock.NewRedisLocker(redisClient, "lock:", cfg.Assessment.LockWait)
	} else {
		locker = lock.NewLocalLocker(cfg.Assessment.LockWait)
	}
	logr.Info("assessment lock configured", zap.String("backend", cfg.Assessment.LockBackend))

	typeRepo := repository.NewAssessmentTypeRepository(db)
	setupRepo := repository.NewAssessmentSetupRepository(db)
	gsaRepo := repository.NewGradeSubjectAssessmentRepository(db)
	gateRepo := repository.NewConductedAssessmentRepository(db)
	scoreRepo := repository.NewAssessmentScoreRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	termRepo := repository.NewTermRepository(db)
	studentRepo := repository.NewStudentRepository(db)

	typeSvc := service.NewAssessmentTypeService(typeRepo, cacheSvc, validate, logr)
	setupSvc := service.NewAssessmentSetupService(setupRepo, typeRepo, cacheSvc, cfg.Assessment.DefaultSetupName, validate, logr)
	gateSvc := service.NewStageGateService(gateRepo, gsaRepo, termRepo, setupSvc, locker, cfg.Assessment.LockTTL, metricsSvc, validate, logr)
	gsaSvc := service.NewGradeSubjectAssessmentService(gsaRepo, gradeRepo, subjectRepo, setupSvc, gateSvc, validate, logr)
	generationSvc := service.NewMarksheetGenerationService(scoreRepo, gsaRepo, setupSvc, enrollmentRepo, studentRepo, gradeRepo, cfg.Assessment.GenerationBatchSize, metricsSvc, validate, logr)
	scoreSvc := service.NewAssessmentScoreService(scoreRepo, gsaRepo, setupSvc, gateSvc, studentRepo, locker, cfg.Assessment.LockTTL, metricsSvc, validate, logr)
	recalcSvc := service.NewRecalculationService(scoreSvc, jobs.QueueConfig{
		Workers:    cfg.Recalc.Workers,
		BufferSize: cfg.Recalc.BufferSize,
		MaxRetries: cfg.Recalc.Retries,
		Logger:     logr,
	}, metricsSvc, logr)
	recalcSvc.Start(ctx)
	defer recalcSvc.Stop()

	tokenSvc := service.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	registerRoutes(r, cfg.APIPrefix, routeHandlers{
		types:      handler.NewAssessmentTypeHandler(typeSvc),
		setups:     handler.NewAssessmentSetupHandler(setupSvc),
		gsas:       handler.NewGradeSubjectAssessmentHandler(gsaSvc, recalcSvc),
		gates:      handler.NewConductedAssessmentHandler(gateSvc),
		scores:     handler.NewAssessmentScoreHandler(scoreSvc, generationSvc),
		recalcJobs: handler.NewRecalculationHandler(recalcSvc),
		metrics:    handler.NewMetricsHandler(metricsSvc, db),
		tokens:     tokenSvc,
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
