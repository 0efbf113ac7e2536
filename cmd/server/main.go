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

	"usermanagement/auth"
	"usermanagement/config"
	"usermanagement/db"
	"usermanagement/handlers"
	"usermanagement/logging"
	"usermanagement/routes"
	"usermanagement/services"
)

func main() {
	lg, err := logging.Init(logging.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()
	sugar := lg.Sugar()

	// Load config from .env, CONFIG_FILE and the environment
	cfg, err := config.LoadConfig()
	if err != nil {
		sugar.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	userRepo, store, err := db.OpenUserRepository(connectCtx, cfg)
	cancel()
	if err != nil {
		sugar.Fatalf("open store: %v", err)
	}
	sugar.Infow("store ready", "db_type", cfg.DBType)

	sessions := auth.NewSessionManager(auth.SessionOptions{
		HashKey:  []byte(cfg.SessionSecret),
		BlockKey: []byte(cfg.SessionEncryptionKey),
		MaxAge:   cfg.SessionMaxAge,
		Secure:   cfg.SessionSecure,
	})
	views, err := handlers.NewViews(sessions)
	if err != nil {
		sugar.Fatalf("templates: %v", err)
	}
	users := services.NewUserService(userRepo, auth.BcryptHasher{Cost: cfg.BcryptCost})

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: routes.SetupRoutes(routes.Deps{
			Users:    users,
			Sessions: sessions,
			Views:    views,
			Store:    userRepo,
			Log:      sugar,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		sugar.Infof("Server running on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Errorf("http server failed: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}
	if store != nil {
		if err := store.Disconnect(doneCtx); err != nil {
			sugar.Warnf("store disconnect failed: %v", err)
		}
	}
	sugar.Info("goodbye")
}
