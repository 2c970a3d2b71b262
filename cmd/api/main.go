package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/joho/godotenv"

	"github.com/quillforge/proposalgen/internal/config"
	"github.com/quillforge/proposalgen/internal/handler"
	"github.com/quillforge/proposalgen/internal/service/planner"
	"github.com/quillforge/proposalgen/internal/service/proposal"
	"github.com/quillforge/proposalgen/internal/store"
	"github.com/quillforge/proposalgen/internal/validation"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Storage mode is decided once here; an unreachable database degrades
	// to in-memory sessions instead of failing startup.
	sessions := store.Open(cfg.Storage.DSN)
	defer sessions.Close()

	var chatModel model.ChatModel
	if cfg.AI.Enabled() {
		chatModel, err = cfg.AI.NewChatModel(ctx)
		if err != nil {
			log.Printf("warning: failed to initialize chat model: %v", err)
			log.Println("continuing without contextual questions and proposal synthesis")
			chatModel = nil
		} else {
			log.Println("chat model initialized successfully")
		}
	} else {
		log.Println("chat model credentials not configured, skipping AI features")
	}

	plannerSvc, err := planner.NewService(ctx, sessions, chatModel)
	if err != nil {
		log.Fatalf("failed to initialize question planner: %v", err)
	}

	proposalSvc, err := proposal.NewService(ctx, sessions, chatModel)
	if err != nil {
		log.Fatalf("failed to initialize proposal service: %v", err)
	}

	evaluator, err := validation.NewEvaluator(ctx, chatModel)
	if err != nil {
		log.Fatalf("failed to initialize answer evaluator: %v", err)
	}

	router := handler.NewRouter(sessions, plannerSvc, proposalSvc, evaluator)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("proposal intake backend listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
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
