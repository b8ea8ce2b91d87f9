package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/Skufu/diagnosis-assistant/internal/api"
	"github.com/Skufu/diagnosis-assistant/internal/catalog"
	"github.com/Skufu/diagnosis-assistant/internal/classifier"
	"github.com/Skufu/diagnosis-assistant/internal/diagnosis"
	"github.com/Skufu/diagnosis-assistant/internal/disease"
	"github.com/Skufu/diagnosis-assistant/internal/history"
)

type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Config struct {
	Port            string
	ModelPath       string
	LabelsPath      string
	FeaturesPath    string
	MappingPath     string
	ModelVersion    string
	RuntimeLibrary  string
	Language        disease.Language
	MinConfidence   float64
	OverfetchFactor int
	EnableHistory   bool
	HistoryDriver   string
	DatabaseURL     string
}

func main() {
	gin.SetMode(getEnv("GIN_MODE", "release"))

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	engine, model, err := loadEngine(cfg, logger)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer model.Close()

	ctx := context.Background()
	var store history.Store
	if cfg.EnableHistory {
		store, err = history.Open(ctx, cfg.HistoryDriver, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("history store connection failed: %v", err)
		}
		defer store.Close()
	}

	handler := api.NewHandler(engine, api.Options{
		Store:        store,
		Language:     cfg.Language,
		ModelVersion: cfg.ModelVersion,
		Logger:       logger,
	})

	var ready HealthChecker
	if store != nil {
		ready = store
	}
	router := setupRouter(handler, ready)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	log.Printf("server listening on :%s (model %s, %d symptoms)", cfg.Port, cfg.ModelVersion, len(engine.Symptoms()))
	waitForShutdown(server)
}

func loadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "8001"),
		ModelPath:      getEnv("MODEL_PATH", "artifacts/diagnosis_model.json"),
		LabelsPath:     getEnv("LABELS_PATH", "artifacts/labels.json"),
		FeaturesPath:   getEnv("FEATURES_PATH", "artifacts/feature_names.json"),
		MappingPath:    os.Getenv("MAPPING_PATH"),
		RuntimeLibrary: os.Getenv("ONNX_RUNTIME_LIB"),
		EnableHistory:  strings.EqualFold(getEnv("ENABLE_HISTORY", "false"), "true"),
		HistoryDriver:  strings.ToLower(getEnv("HISTORY_DRIVER", "postgres")),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
	}
	cfg.ModelVersion = getEnv("MODEL_VERSION", filepath.Base(cfg.ModelPath))

	lang, err := disease.ParseLanguage(getEnv("DISPLAY_LANGUAGE", string(disease.Vietnamese)))
	if err != nil {
		return nil, err
	}
	cfg.Language = lang

	cfg.MinConfidence, err = strconv.ParseFloat(getEnv("MIN_CONFIDENCE", "0.01"), 64)
	if err != nil {
		return nil, fmt.Errorf("MIN_CONFIDENCE: %w", err)
	}
	if cfg.MinConfidence <= 0 || cfg.MinConfidence > 1 {
		return nil, fmt.Errorf("MIN_CONFIDENCE must be within (0,1], got %v", cfg.MinConfidence)
	}

	cfg.OverfetchFactor, err = strconv.Atoi(getEnv("OVERFETCH_FACTOR", "2"))
	if err != nil {
		return nil, fmt.Errorf("OVERFETCH_FACTOR: %w", err)
	}
	if cfg.OverfetchFactor < 1 || cfg.OverfetchFactor > diagnosis.MaxOverfetchFactor {
		return nil, fmt.Errorf("OVERFETCH_FACTOR must be between 1 and %d, got %d", diagnosis.MaxOverfetchFactor, cfg.OverfetchFactor)
	}

	if cfg.HistoryDriver != "postgres" && cfg.HistoryDriver != "sqlite" {
		return nil, fmt.Errorf("HISTORY_DRIVER must be postgres or sqlite, got %q", cfg.HistoryDriver)
	}
	if cfg.EnableHistory && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required when ENABLE_HISTORY=true")
	}

	return cfg, nil
}

// loadEngine reads every startup artifact. Any failure, including a missing
// file, is fatal.
func loadEngine(cfg *Config, logger *slog.Logger) (*diagnosis.Engine, classifier.Model, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var (
		symptoms *catalog.Symptoms
		labels   *catalog.Labels
		table    *disease.Table
	)

	var g errgroup.Group
	g.Go(func() (err error) {
		symptoms, err = catalog.LoadSymptoms(cfg.FeaturesPath)
		return err
	})
	g.Go(func() (err error) {
		labels, err = catalog.LoadLabels(cfg.LabelsPath)
		return err
	})
	g.Go(func() (err error) {
		if cfg.MappingPath == "" {
			table, err = disease.DefaultTable()
			return err
		}
		table, err = disease.LoadTable(cfg.MappingPath)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	logger.Info("artifacts loaded",
		"symptoms", symptoms.Len(),
		"labels", labels.Len(),
		"mapping_entries", table.Len())

	model, err := classifier.Open(cfg.ModelPath, classifier.Options{
		Features:       symptoms.Len(),
		Classes:        labels.Len(),
		RuntimeLibrary: cfg.RuntimeLibrary,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("load model: %w", err)
	}

	engine, err := diagnosis.NewEngine(symptoms, labels, table, model, diagnosis.Options{
		MinConfidence:   cfg.MinConfidence,
		OverfetchFactor: cfg.OverfetchFactor,
	}, logger)
	if err != nil {
		model.Close()
		return nil, nil, err
	}
	return engine, model, nil
}

func setupRouter(handler *api.Handler, db HealthChecker) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Logger(),
		gin.Recovery(),
		limitBodySize(1<<20), // 1MB max body
		cors.New(cors.Config{
			AllowOrigins: []string{"*"},
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
			MaxAge:       12 * time.Hour,
		}),
	)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/readyz", func(c *gin.Context) {
		if db == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "history": "disabled"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "degraded",
				"history": fmt.Sprintf("unhealthy: %v", err),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"history": "ok",
		})
	})

	handler.Register(router)

	return router
}

func waitForShutdown(server *http.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func limitBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
