package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"maximus/internal/automl"
	"maximus/internal/config"
	"maximus/internal/handler"
	"maximus/internal/middleware"
	"maximus/internal/repository"
	"maximus/internal/service"
	"maximus/internal/trainer"
)

type Server struct {
	router *gin.Engine
	db     *sqlx.DB
	cfg    *config.Config
	log    *zap.Logger
}

func NewServer(db *sqlx.DB, cfg *config.Config, log *zap.Logger) *Server {
	router := gin.Default()
	router.MaxMultipartMemory = cfg.Storage.MaxUploadMB << 20

	s := &Server{
		router: router,
		db:     db,
		cfg:    cfg,
		log:    log,
	}

	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	// Auth components
	authRepo := repository.NewAuthRepository(s.db, s.log)
	authService := service.NewAuthService(authRepo, s.cfg.Auth.JWTSecret, s.log)
	authHandler := handler.NewAuthHandler(authService, s.log)

	// Dataset and training components
	datasetRepo := repository.NewDatasetRepository(s.db, s.log)
	runRepo := repository.NewRunRepository(s.db, s.log)

	runner := automl.NewRunner(automl.Options{
		HoldoutFraction: s.cfg.Training.HoldoutFraction,
		TuneFolds:       s.cfg.Training.TuneFolds,
		Seed:            s.cfg.Training.Seed,
	}, s.log)
	budget := time.Duration(s.cfg.Training.LightningBudgetMinutes * float64(time.Minute))
	tr := trainer.New(trainer.NewAutoMLBackend(runner), budget, s.log)

	modelStore := handler.NewModelStore()
	datasetHandler := handler.NewDatasetHandler(datasetRepo, s.cfg.Storage.MaxUploadMB, s.log)
	trainingHandler := handler.NewTrainingHandler(datasetRepo, runRepo, tr, modelStore, s.log)

	// Ping route for health check
	s.router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	// Authentication routes
	authGroup := s.router.Group("/api/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)

	// Authenticated routes
	authRequired := s.router.Group("/api")
	authRequired.Use(middleware.AuthMiddleware([]byte(s.cfg.Auth.JWTSecret), s.log))
	{
		authRequired.POST("/auth/logout", authHandler.Logout)

		authRequired.POST("/datasets", datasetHandler.Upload)
		authRequired.GET("/datasets", datasetHandler.List)
		authRequired.GET("/datasets/:id", datasetHandler.Get)
		authRequired.POST("/datasets/:id/transform", datasetHandler.Transform)

		authRequired.POST("/train", trainingHandler.Train)
		authRequired.GET("/runs", trainingHandler.ListRuns)
		authRequired.GET("/runs/:id", trainingHandler.GetRun)
		authRequired.GET("/runs/:id/models/:model_id/export", trainingHandler.ExportModel)
	}
}

func (s *Server) Run(addr string) {
	s.log.Info("Server starting", zap.String("addr", addr))
	if err := s.router.Run(addr); err != nil {
		s.log.Fatal("Server failed to start", zap.Error(err))
	}
}
