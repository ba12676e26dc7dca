package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"

	"harvester/internal/config"
	"harvester/internal/core/harvest"
	"harvester/internal/core/run"
	"harvester/internal/logger"
	"harvester/internal/platform/browser"
	"harvester/internal/platform/eino"
	rds "harvester/internal/platform/redis"
	tasks "harvester/internal/platform/tasks"
	"harvester/internal/server"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	cfg := config.Load()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadFile(cfg, *configPath)
		if err != nil {
			log.Fatal(err)
		}
	}
	log.Printf("[harvester] starting at %s (env=%s)\n", cfg.HTTPAddr, cfg.AppEnv)

	logr := logger.New("main")

	redisSvc, err := rds.New(rds.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer redisSvc.Close()

	taskClient := tasks.New(redisSvc)
	// runs are exclusive; the worker never executes two harvests at once
	asynqServer := asynq.NewServer(redisSvc.AsynqRedisOpt(), asynq.Config{
		Concurrency: 1,
		Queues:      map[string]int{"default": 1},
	})

	runSvc := run.NewService(redisSvc)

	var llm harvest.PageExtractor
	if cfg.GeminiAPIKey != "" {
		einoSvc, err := eino.NewService(eino.Config{
			Provider: cfg.LLMProvider,
			APIKey:   cfg.GeminiAPIKey,
			Model:    cfg.DefaultLLMModel,
		})
		if err != nil {
			log.Fatalf("failed to initialize LLM service: %v", err)
		}
		llm = einoSvc
	} else {
		logr.LogWarnf("GEMINI_API_KEY not set; AI fallback extraction is disabled")
	}

	newBrowser := func() (browser.Browser, error) {
		return browser.Launch(browser.Options{
			NavTimeoutMs:  cfg.NavTimeoutMs,
			IdleTimeoutMs: cfg.IdleTimeoutMs,
		})
	}

	harvestSvc := harvest.NewService(cfg, runSvc, taskClient, llm, newBrowser)

	mux := asynq.NewServeMux()
	mux.HandleFunc(harvest.TaskTypeHarvest, harvestSvc.HandleTask)

	go func() {
		if err := asynqServer.Start(mux); err != nil {
			log.Printf("[worker] stopped: %v\n", err)
		}
	}()

	app := fiber.New(fiber.Config{AppName: "Harvester Engine"})
	// serve captured images and result tables for the UI
	app.Static("/files", cfg.OutputDir)

	deps := server.Dependencies{
		Harvest: harvestSvc,
		Runs:    runSvc,
		Redis:   redisSvc,
	}
	healthHandler := server.RegisterRoutes(app, deps)
	healthHandler.SetReady()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		logr.LogInfo("Shutting down...")
		asynqServer.Shutdown()
		_ = app.ShutdownWithTimeout(5 * time.Second)
	}()

	if err := app.Listen(cfg.HTTPAddr); err != nil {
		log.Fatalf("server listen: %v", err)
	}
}
