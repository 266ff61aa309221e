package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/studyai/backend/internal/config"
	"github.com/zhouzirui/studyai/backend/internal/handler"
	"github.com/zhouzirui/studyai/backend/internal/logging"
	"github.com/zhouzirui/studyai/backend/internal/model/agent"
	"github.com/zhouzirui/studyai/backend/internal/service/ai"
	"github.com/zhouzirui/studyai/backend/internal/service/relay"
	"github.com/zhouzirui/studyai/backend/internal/service/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fallback := logging.New(config.LogConfig{})
		fallback.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := logging.New(cfg.Log)
	if envErr != nil {
		logger.Warn().Err(envErr).Msg("failed to load .env file, continuing with system environment variables only")
	}

	agents, err := loadAgents(cfg.Study)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load agent catalog")
	}
	if _, ok := agents.FindByID(cfg.Study.DefaultAgent); !ok {
		logger.Fatal().Str("agent", cfg.Study.DefaultAgent).Msg("default study agent not in catalog")
	}

	sessions := session.NewManager()

	var studyRelay *relay.Relay
	if cfg.AI.Enabled() {
		aiService, err := ai.NewService(ctx, agents, cfg.AI, cfg.Study, logging.Component(logger, "ai"))
		if err != nil {
			logger.Warn().Err(err).Msg("failed to initialize study backend, websocket endpoint disabled")
		} else {
			sessions.OnClose(aiService.EndSession)
			studyRelay = relay.New(sessions, aiService, relay.Options{
				GenerationTimeout: cfg.Relay.GenerationTimeout,
				InboundBuffer:     cfg.Relay.InboundBuffer,
				Logger:            logging.Component(logger, "relay"),
			})
			logger.Info().Str("agent", cfg.Study.DefaultAgent).Bool("stream", cfg.AI.StreamResponse).Msg("study backend initialized")
		}
	} else {
		logger.Warn().Msg("ark credentials not configured, websocket endpoint disabled")
	}

	router := handler.NewRouter(handler.RouterDeps{
		Agents:         agents,
		Sessions:       sessions,
		Relay:          studyRelay,
		DefaultAgent:   cfg.Study.DefaultAgent,
		AllowedOrigins: cfg.Relay.AllowedOrigins,
		Logger:         logging.Component(logger, "websocket"),
	})

	startServer(ctx, cfg.Server, router, logger)
}

func loadAgents(cfg config.StudyConfig) (*agent.MemoryStore, error) {
	items := agent.Seed()
	if cfg.AgentsFile != "" {
		merged, err := agent.LoadCatalog(cfg.AgentsFile, items)
		if err != nil {
			return nil, err
		}
		items = merged
	}
	return agent.NewMemoryStore(items), nil
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger zerolog.Logger) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info().Str("addr", addr).Msg("StudyAI backend listening")
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
