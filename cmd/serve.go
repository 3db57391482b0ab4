package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"hallchat/internal/app/chat"
	"hallchat/internal/app/db"
	dbc "hallchat/internal/app/db/sqlc"
	"hallchat/internal/app/identity"
	"hallchat/internal/app/redisstore"
	"hallchat/internal/app/storage"
	"hallchat/internal/app/user"
	"hallchat/internal/configs"
	"hallchat/internal/handler"
	"hallchat/internal/pkg/logx"
	"hallchat/internal/pkg/pow"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the chat server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		logx.Error(err, "Failed to connect to database")
		return err
	}
	defer pool.Close()

	if err := db.Migrate(pool); err != nil {
		logx.Error(err, "Failed to apply migrations")
		return err
	}

	repo, closeRepo, err := openRepository(ctx, cfg, pool)
	if err != nil {
		logx.Error(err, "Failed to open message log", "storage", cfg.StorageType)
		return err
	}
	defer closeRepo()

	store := chat.NewStore(repo, chat.StoreOptions{
		Capacity:     cfg.HistoryCacheSize,
		WriteTimeout: cfg.StoreWriteTimeout,
	})
	loaded := store.LoadOnStartup(ctx)
	logx.Info("Message history loaded", "count", loaded, "storage", cfg.StorageType)

	users := user.NewService(dbc.New(pool))
	resolver := identity.NewResolver(users, identity.JWTVerifier(cfg.JWTSecret), identity.JWTGuestMarkers(cfg.JWTSecret))

	manager := chat.NewManager(resolver, store, chat.Options{
		ReplayLimit:         cfg.HistoryReplayLimit,
		ExposeSourceAddress: cfg.ExposeSourceAddress,
	})

	deps := &handler.AppDeps{
		Manager:  manager,
		Config:   cfg,
		Accounts: users,
		Pow:      pow.NewGuard(ctx, cfg.PowDifficulty),
	}

	if cfg.ArchiveEnabled() {
		svc, err := storage.NewStorageService(ctx, storage.ServiceConfig{
			S3BucketName:      cfg.S3BucketName,
			S3Endpoint:        cfg.S3Endpoint,
			S3AccessKeyID:     cfg.S3AccessKeyID,
			S3SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			logx.Error(err, "Failed to initialize archive storage")
			return err
		}
		deps.Exporter = storage.NewHistoryExporter(svc)
	}

	router := handler.Router(ctx, deps)

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logx.Info(fmt.Sprintf("Hall Chat Server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logx.Info("Received shutdown signal. Starting graceful shutdown...")
	case err := <-serveErr:
		logx.Error(err, "Server failed to start")
		return err
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	// Hijacked WebSocket connections are not tracked by Shutdown; the manager closes them.
	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	manager.Shutdown()

	logx.Info("Server gracefully stopped.")
	return nil
}

// openRepository selects the durable message log. On success the close func is never nil.
func openRepository(ctx context.Context, cfg *configs.AppConfig, pool *pgxpool.Pool) (chat.Repository, func(), error) {
	switch cfg.StorageType {
	case configs.StoragePostgres:
		return db.NewMessageRepository(dbc.New(pool)), func() {}, nil

	case configs.StorageRedis:
		rcfg := redisstore.DefaultConfig()
		rcfg.URL = cfg.RedisURL
		rs, err := redisstore.New(ctx, rcfg)
		if err != nil {
			return nil, nil, err
		}
		return rs, func() {
			if err := rs.Close(); err != nil {
				logx.Warn("Failed to close redis client", "error", err.Error())
			}
		}, nil

	case configs.StorageMemory:
		logx.Warn("Using in-memory message log; history is lost on restart")
		return chat.NewMemoryRepository(), func() {}, nil
	}

	return nil, nil, fmt.Errorf("unsupported storage type %q", cfg.StorageType)
}
