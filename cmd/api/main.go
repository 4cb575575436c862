package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/paragon-scan/paragongo/internal/ai"
	"github.com/paragon-scan/paragongo/internal/config"
	"github.com/paragon-scan/paragongo/internal/database"
	"github.com/paragon-scan/paragongo/internal/handlers"
	"github.com/paragon-scan/paragongo/internal/models"
	"github.com/paragon-scan/paragongo/internal/normalizer"
	"github.com/paragon-scan/paragongo/internal/storage"
	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	// 2. Initialize database (detects embedded vs external automatically)
	db, err := database.Connect(cfg.Database, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	// Note: db.Close() is called manually in the shutdown handler below

	// 3. Synchronize schema
	log.Info("Synchronizing database schema")
	err = db.AutoMigrate(
		&models.Category{},
		&models.CanonicalProduct{},
		&models.ProductAlias{},
		&models.ProductCandidate{},
		&models.Receipt{},
		&models.LineItem{},
	)
	if err != nil {
		log.WithError(err).Warn("Migration warning")
	} else {
		log.Info("Schema synchronized successfully")
	}

	store := storage.New(db, log)

	// Make sure the permanent fallback category exists before traffic.
	if _, err := store.GetOrCreateCategory(context.Background(), cfg.Normalization.FallbackCategory); err != nil {
		log.WithError(err).Fatal("Failed to ensure fallback category")
	}

	// 4. AI categorizer (optional: without an API key the pipeline runs
	// with alias/fuzzy matching and the fallback category only)
	var categorizer ai.Categorizer
	if cfg.AI.APIKey != "" {
		retry := ai.DefaultRetryConfig()
		retry.MaxRetries = cfg.AI.MaxRetries
		gemini, err := ai.NewGeminiCategorizer(context.Background(), cfg.AI.APIKey, cfg.AI.Model, cfg.AI.Timeout, retry, log)
		if err != nil {
			log.WithError(err).Fatal("Failed to initialize AI categorizer")
		}
		defer gemini.Close()
		categorizer = gemini
		log.WithField("model", cfg.AI.Model).Info("AI categorizer enabled")
	} else {
		log.Warn("GEMINI_API_KEY not set, AI categorization disabled")
	}

	svc := normalizer.NewService(store, categorizer, cfg.Normalization, log)

	// 5. HTTP router
	router := handlers.NewRouter(store, svc, log)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("Normalization service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	// 6. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown error")
	}

	if err := db.Close(); err != nil {
		log.WithError(err).Error("Database shutdown error")
	}

	log.Info("Shutdown complete")
}
