// Package main API 服务入口
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"infinite-book-api/internal/application/media"
	"infinite-book-api/internal/application/project"
	"infinite-book-api/internal/application/story"
	"infinite-book-api/internal/config"
	"infinite-book-api/internal/infrastructure/comfy"
	"infinite-book-api/internal/infrastructure/llm"
	"infinite-book-api/internal/infrastructure/persistence/sqlite"
	"infinite-book-api/internal/infrastructure/tts"
	"infinite-book-api/internal/interfaces/http/handler"
	"infinite-book-api/internal/interfaces/http/router"
	"infinite-book-api/internal/workflow/prompt"
	"infinite-book-api/pkg/logger"
	"infinite-book-api/pkg/tracer"
)

// Version 版本信息，构建时注入
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件（如果存在）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(
		cfg.Observability.Logging.Level,
		cfg.Observability.Logging.Format,
	)

	ctx := context.Background()
	log := logger.FromContext(ctx)
	log.Info("starting api-server",
		"version", Version,
		"build_time", BuildTime,
		"env", cfg.App.Env,
	)

	// 初始化追踪
	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: cfg.App.Name,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		log.Error("failed to init tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			log.Error("failed to shutdown tracer", "error", err)
		}
	}()

	// 初始化存储
	db, err := sqlite.NewClient(&cfg.Database.SQLite)
	if err != nil {
		logger.Fatal(ctx, "failed to init sqlite", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("failed to close sqlite", "error", err)
		}
	}()

	txManager := sqlite.NewTxManager(db)
	store := story.NewStore(
		sqlite.NewProjectRepository(db),
		sqlite.NewKVRepository(db),
		sqlite.NewCharacterRepository(db, txManager),
		sqlite.NewMediaJobRepository(db),
		txManager,
	)

	// LLM 与提示词
	factory := llm.NewEinoFactory(cfg)
	gateway := story.NewGateway(factory, cfg.LLM.MaxRetries)
	prompts := prompt.NewRegistry()

	// 应用服务
	storyService := story.NewService(store, gateway, prompts, &cfg.Story)
	projectService := project.NewService(store)
	ttsClient := tts.NewClient(&cfg.Media.TTS)
	comfyClient := comfy.NewClient(&cfg.Media.Comfy)
	audioService := media.NewAudioService(store, ttsClient, &cfg.Media)
	coverService := media.NewCoverService(store, gateway, prompts, comfyClient, &cfg.Media)

	// HTTP 路由
	r := router.New(cfg, &router.Handlers{
		Health:  handler.NewHealthHandler(db),
		Project: handler.NewProjectHandler(projectService),
		Story:   handler.NewStoryHandler(storyService),
		Media:   handler.NewMediaHandler(audioService, coverService),
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.HTTP.Host, cfg.Server.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout,
		WriteTimeout: cfg.Server.HTTP.WriteTimeout,
		IdleTimeout:  cfg.Server.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("http server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	log.Info("server exited")
}
