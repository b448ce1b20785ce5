package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"solvencia-backend/internal/config"
	"solvencia-backend/internal/database"
	"solvencia-backend/internal/handlers"
	"solvencia-backend/internal/knowledge"
	"solvencia-backend/internal/middleware"
	"solvencia-backend/internal/repository"
	"solvencia-backend/internal/router"
	"solvencia-backend/internal/services"
	"solvencia-backend/internal/telemetry"
	"solvencia-backend/internal/websocket"
	"solvencia-backend/internal/worker"
	"solvencia-backend/migrations"
)

func main() {
	log.Println("🚀 Starting SolvencIA Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	telemetry.Init()

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, migrations.FS); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	documentRepo := repository.NewDocumentRepo(pool)
	brandingRepo := repository.NewBrandingRepo(pool)
	jobRepo := repository.NewJobRepo(pool)
	podcastRepo := repository.NewPodcastRepo(pool)

	// ──── Step 5: Load Knowledge Corpus ────
	seed, err := knowledge.LoadSeed()
	if err != nil {
		log.Fatalf("✗ Knowledge seed is invalid: %v", err)
	}
	corpus := knowledge.NewCorpus(documentRepo, seed, time.Duration(cfg.CorpusCacheTTLSeconds)*time.Second)
	corpus.OnLoad = telemetry.SetCorpusSize
	selector := knowledge.NewSelector(cfg.ContextCharBudget)
	log.Printf("✓ Knowledge corpus ready (%d built-in topics)", len(seed))

	// ──── Step 6: Initialize Gemini Clients ────
	mediaService, err := services.NewMediaService(
		context.Background(),
		cfg.GeminiAPIKey,
		cfg.GeminiImageModel,
		cfg.GeminiTTSModel,
		cfg.GeminiConcurrentReqs,
	)
	if err != nil {
		log.Fatalf("✗ GenAI media client initialization failed: %v", err)
	}

	geminiService, err := services.NewGeminiService(
		cfg.GeminiAPIKey,
		cfg.GeminiChatModel,
		cfg.GeminiConcurrentReqs,
		selector,
		cfg.HistoryWindow,
		mediaService,
	)
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer geminiService.Close()
	log.Printf("✓ Gemini clients initialized (chat: %s, tts: %s)", cfg.GeminiChatModel, cfg.GeminiTTSModel)

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	authService, err := services.NewAuthService(jwtAuth, cfg.AdminPasswordHash, cfg.AdminPassword)
	if err != nil {
		log.Fatalf("✗ Admin credentials invalid: %v", err)
	}
	knowledgeService := services.NewKnowledgeService(documentRepo, brandingRepo, corpus, selector)
	historyService := services.NewHistoryService(redisClients.PubSub)
	youtubeService := services.NewYouTubeService()
	fileExtractService := services.NewFileExtractService()
	queue := worker.NewQueue(redisClients.Queue)

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService)
	chatHandler := handlers.NewChatHandler(
		geminiService,
		historyService,
		knowledgeService,
		podcastRepo,
		jobRepo,
		queue,
		cfg.HistoryWindow,
	)
	podcastHandler := handlers.NewPodcastHandler(podcastRepo, jobRepo)
	knowledgeHandler := handlers.NewKnowledgeHandler(knowledgeService, fileExtractService, jobRepo, queue)

	// ──── Step 7: Start Job Worker Pool ────
	workerPool := worker.NewPool(
		redisClients.Queue,
		worker.Deps{
			Jobs:      jobRepo,
			Podcasts:  podcastRepo,
			Writer:    geminiService,
			Speech:    mediaService,
			Knowledge: knowledgeService,
			History:   historyService,
			Videos:    youtubeService,
		},
		cfg.StoragePath,
		cfg.HistoryWindow,
		cfg.WorkerCount,
	)
	workerPool.Start()
	log.Printf("✓ Worker pool started (%d goroutines)", cfg.WorkerCount)

	// ──── Step 8: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, jwtAuth, cfg.FrontendURL)
	log.Println("✓ WebSocket hub started")

	// ──── Step 9: Start HTTP Server ────
	healthCheck := func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return err
		}
		return redisClients.Ping(ctx)
	}

	r := router.New(
		jwtAuth,
		authHandler,
		chatHandler,
		podcastHandler,
		knowledgeHandler,
		wsHub,
		healthCheck,
		cfg.FrontendURL,
		cfg.TrustProxy,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // image and TTS calls are slow
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		workerPool.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ SolvencIA Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API:     http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:      ws://localhost:%s/api/v1/ws", cfg.Port)
	log.Printf("  Metrics: http://localhost:%s/metrics", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
