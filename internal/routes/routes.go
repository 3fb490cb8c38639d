package routes

import (
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"sfa-workflow/internal/listeners"
	"sfa-workflow/internal/repositories"
	"sfa-workflow/internal/services"
	"sfa-workflow/pkg/config"
	"sfa-workflow/pkg/eventbus"
	"sfa-workflow/pkg/middleware"
	"sfa-workflow/pkg/service"
)

// InitRouter собирает репозитории, сервисы и маршруты /api.
func InitRouter(
	e *echo.Echo,
	dbConn *pgxpool.Pool,
	redisClient *redis.Client,
	jwtSvc service.JWTService,
	bus *eventbus.Bus,
	logger *zap.Logger,
	cfg *config.Config,
) {
	logger.Info("InitRouter: Начало создания маршрутов")

	// --- 0. ОБЩИЕ КОМПОНЕНТЫ ---
	api := e.Group("/api")
	authMW := middleware.NewAuthMiddleware(jwtSvc, logger.Named("auth"))
	txManager := repositories.NewTxManager(dbConn)
	cacheRepo := repositories.NewRedisCacheRepository(redisClient)

	// --- 1. РЕПОЗИТОРИИ ---
	workflowRepo := repositories.NewApprovalWorkflowRepository(dbConn, logger)
	auditRepo := repositories.NewApprovalWorkflowAuditRepository(dbConn, logger)
	userRepo := repositories.NewUserRepository(dbConn, logger)
	zoneRepo := repositories.NewZoneRepository(dbConn, logger)
	depotRepo := repositories.NewDepotRepository(dbConn, logger)

	// --- 2. СЕРВИСЫ ---
	workflowService := services.NewApprovalWorkflowService(
		workflowRepo, userRepo, zoneRepo, depotRepo, auditRepo,
		txManager, cacheRepo, bus, cfg.Workflow.ChainCacheTTL, logger.Named("workflow"),
	)
	draftService := services.NewWorkflowDraftService(cacheRepo, workflowService, userRepo, cfg.Workflow.DraftTTL, logger.Named("draft"))
	masterDataService := services.NewMasterDataService(zoneRepo, depotRepo, logger)

	// --- 3. СЛУШАТЕЛИ СОБЫТИЙ ---
	listeners.NewAuditListener(auditRepo, logger.Named("audit")).Register(bus)

	// --- 4. РОУТЕРЫ ---
	secureGroup := api.Group("", authMW.Auth)

	runApprovalWorkflowRouter(secureGroup, workflowService, logger, authMW)
	runWorkflowDraftRouter(secureGroup, draftService, logger, authMW)
	runMasterDataRouter(secureGroup, masterDataService, logger, authMW)

	logger.Info("InitRouter: Создание маршрутов завершено")
}
