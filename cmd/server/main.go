package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nfsfurkandogan/biocadapp/internal/api"
	"github.com/nfsfurkandogan/biocadapp/internal/auth"
	"github.com/nfsfurkandogan/biocadapp/internal/config"
	"github.com/nfsfurkandogan/biocadapp/internal/database"
	"github.com/nfsfurkandogan/biocadapp/internal/dicomimage"
	"github.com/nfsfurkandogan/biocadapp/internal/logging"
	"github.com/nfsfurkandogan/biocadapp/internal/medimage"
	"github.com/nfsfurkandogan/biocadapp/internal/model"
	"github.com/nfsfurkandogan/biocadapp/internal/websocket"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.json", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	logger := logging.NewLoggerWithPrefix(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Directory, cfg.Logging.FilePrefix)
	logger.Info("Starting medical assistant server")

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		logger.WithField("error", err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	// Initialize inference engine
	client := model.NewClient(
		cfg.Model.URL,
		model.Options{
			MaxTokens:   cfg.Model.MaxTokens,
			Temperature: cfg.Model.Temperature,
			TopP:        cfg.Model.TopP,
		},
		time.Duration(cfg.Model.RequestTimeout)*time.Second,
		logger,
	)
	engine := model.NewEngine(client, cfg.Model.LoadMaxRetries, logger)
	defer engine.Unload()

	// Warm the engine in the background so the first request does not pay
	// the full load delay. Requests arriving earlier trigger a load anyway.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := engine.Load(ctx); err != nil {
			logger.WithField("error", err).Warn("Engine warmup failed, will retry on first request")
		}
	}()

	// Shared image machinery
	converter := dicomimage.NewConverter(logger)
	preprocessor := medimage.NewPreprocessor(logger)

	// Initialize handlers
	authHandler := auth.NewHandler(db, cfg.Auth.SecretKey, logger)
	secretKey := cfg.Auth.SecretKey
	authEnabled := cfg.Auth.Enabled

	mux := http.NewServeMux()
	mux.Handle("/api/health", api.NewHealthHandler(engine, logger))
	mux.Handle("/api/chat", api.NewChatHandler(engine, db, logger, authEnabled, secretKey))
	mux.Handle("/api/analyze-xray", api.NewXRayHandler(engine, preprocessor, db, logger, authEnabled, secretKey))
	mux.Handle("/api/analyze-dicom", api.NewDicomHandler(engine, converter, preprocessor, db, logger, cfg.Server.MaxUploadBytes, authEnabled, secretKey))
	mux.Handle("/api/analyze-medical-image", api.NewMedicalImageHandler(engine, preprocessor, db, logger, authEnabled, secretKey))
	mux.Handle("/api/compare-images", api.NewCompareHandler(engine, preprocessor, db, logger, authEnabled, secretKey))
	mux.Handle("/api/drug-info", api.NewDrugHandler(engine, db, logger, authEnabled, secretKey))
	mux.Handle("/api/analyze-symptoms", api.NewSymptomHandler(engine, db, logger, authEnabled, secretKey))
	mux.Handle("/api/examples", api.NewExamplesHandler(logger))
	mux.Handle("/api/history", api.NewHistoryHandler(db, logger, authEnabled, secretKey))

	if authEnabled {
		mux.HandleFunc("/api/auth/login", authHandler.Login)
		mux.HandleFunc("/api/auth/register", authHandler.Register)
	}

	if cfg.WebSocket.Enabled {
		wsServer := websocket.NewServer(engine, db, logger, authEnabled, secretKey)
		go wsServer.Run()
		mux.HandleFunc(cfg.WebSocket.Path, wsServer.HandleWebSocket)
	}

	serverAddr := cfg.Server.Host + ":" + cfg.Server.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      mux,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	// Start HTTP server in a goroutine
	go func() {
		logger.WithField("address", serverAddr).Info("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithField("error", err).Fatal("Failed to start HTTP server")
		}
	}()

	// Set up graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithField("error", err).Error("Failed to shutdown HTTP server gracefully")
	}

	logger.Info("Server stopped")
}
