package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"moodle-portal/internal/config"
	"moodle-portal/internal/moodle"
	"moodle-portal/internal/obs"
	"moodle-portal/internal/portal"
	"moodle-portal/internal/session"
	"moodle-portal/internal/web"
)

func main() {
	cfg := config.Load()
	log := obs.NewLogger(obs.LogConfig{Service: "moodle-portal", Env: cfg.Env, Level: cfg.LogLevel})
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("portal stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	store, err := session.OpenStore(cfg.SessionDriver, cfg.SessionDSN)
	if err != nil {
		return err
	}
	sessions, err := session.NewManager(store, cfg.SessionSecret, log.Named("session"))
	if err != nil {
		_ = store.Close()
		return err
	}
	defer sessions.Close()

	ctl := portal.New(moodle.NewFromConfig(cfg, log), sessions, portal.Options{
		MoodleURL:        cfg.MoodleURL,
		NotificationTTL:  cfg.NotificationTTL,
		SSOFallbackDelay: cfg.SSOFallbackDelay,
		Log:              log.Named("portal"),
	})

	srv := web.NewServer(&web.Options{
		Address:         cfg.Addr,
		Controller:      ctl,
		Log:             log.Named("http"),
		Debug:           cfg.IsDev(),
		LoginRatePerMin: cfg.LoginRatePerMin,
		SecureCookie:    !cfg.IsDev(),
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		return err
	}
	ctl.Wait()
	return nil
}
