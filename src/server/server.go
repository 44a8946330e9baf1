package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"capserv/src/app"
	cfg "capserv/src/configuration"
	"capserv/src/repository"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

// NewRouter registers every route on a gin engine.
func NewRouter(config *cfg.Properties, deps Dependencies, logger *slog.Logger) *gin.Engine {
	gin.SetMode(config.Server.Mode)
	router := gin.Default()
	router.MaxMultipartMemory = config.Server.MaxUploadBytes

	router.Use(cors.New(cors.Config{
		AllowOrigins:     config.Server.AllowOrigins,
		AllowMethods:     []string{"GET", "HEAD", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept-Encoding", "Authorization", "Cache-Control"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	if config.Server.Pprof {
		pprof.Register(router)
	}

	handler := NewHandler(config, deps, logger)

	router.GET("/health", handler.GetHealth)
	router.GET("/account", handler.Account)
	router.POST("/logout", handler.Logout)
	router.POST("/pipeline/captions", handler.PostCaptions)
	router.GET("/captions", handler.GetCaptions)
	router.GET("/votes", handler.GetVotes)
	router.POST("/votes", handler.PostVote)
	router.GET("/images", handler.GetImageList)

	router.NoRoute(func(ctx *gin.Context) { ctx.JSON(http.StatusNotFound, gin.H{}) })
	return router
}

// BuildDependencies wires the production collaborators from configuration.
// The returned store must be closed by the caller.
func BuildDependencies(ctx context.Context, config *cfg.Properties, logger *slog.Logger) (Dependencies, error) {
	logger = app.ResolveLogger(logger)

	store, err := repository.NewStore(config, logger)
	if err != nil {
		return Dependencies{}, err
	}

	captioning := app.NewCaptioningClient(config.Pipeline.BaseURL, config.Pipeline.Timeout)
	deps := Dependencies{
		Resolver:   NewSessionResolver(config.Auth, NewTokenVerifier(ctx, config.Auth, logger), logger),
		Validator:  app.NewContentValidator(config.Pipeline.ContentTypes),
		Reconciler: app.NewVoteReconciler(store, logger),
		Store:      store,
	}

	var presigner app.Presigner = captioning
	if config.Pipeline.PresignBackend == cfg.PresignMinio {
		s3, err := app.NewMinioS3Client(
			config.S3.Host,
			config.S3.AccessKey,
			config.S3.SecretKey,
			config.S3.Bucket,
			config.S3.UseSSL,
			config.S3.PublicURL,
			config.S3.PresignTTL,
			logger)
		if err != nil {
			store.Close()
			return Dependencies{}, fmt.Errorf("could not connect to minio: %w", err)
		}
		presigner = s3
		deps.Uploads = s3
	}
	deps.Orchestrator = app.NewOrchestrator(presigner, app.NewPresignedUploader(config.Pipeline.Timeout), captioning, logger)

	logger.Info("dependencies ready",
		"event", "server_wired",
		"presign_backend", config.Pipeline.PresignBackend,
		"stages", deps.Orchestrator.Stages(),
	)
	return deps, nil
}

// RunServer serves until ctx is canceled, then shuts down gracefully.
func RunServer(ctx context.Context, config *cfg.Properties, logger *slog.Logger) error {
	logger = app.ResolveLogger(logger)
	deps, err := BuildDependencies(ctx, config, logger)
	if err != nil {
		return err
	}
	defer deps.Store.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", config.Server.Port),
		Handler:           NewRouter(config, deps, logger),
		ReadHeaderTimeout: config.Server.ReadTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening",
			"event", "server_started",
			"addr", srv.Addr,
		)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info("http server shutting down", "event", "server_stopping")
	return srv.Shutdown(shutdownCtx)
}
