package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"zoom-meetings-api/internal/config"
	"zoom-meetings-api/internal/handler"
	"zoom-meetings-api/internal/logging"
	"zoom-meetings-api/internal/metrics"
	"zoom-meetings-api/internal/middleware"
	"zoom-meetings-api/internal/session"
	"zoom-meetings-api/internal/store"
	"zoom-meetings-api/internal/tokencache"
	"zoom-meetings-api/internal/zoom"
)

const (
	sweepInterval   = 5 * time.Minute
	purgeInterval   = time.Hour
	limiterInterval = time.Minute
	shutdownTimeout = 10 * time.Second
)

func newServeCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, logger)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides PORT)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, st, err := connect(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	// a missing or failing schema file is not fatal; `migrate` reports it
	if err := st.Migrate(ctx, cfg.MigrationsPath); err != nil {
		logger.Warn("migration skipped", logging.Err(err))
	} else {
		logger.Info("migration applied")
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	tokens := tokenCache(ctx, cfg, st, logger)

	rl := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).TrustProxyHeaders(cfg.TrustProxyHeaders)
	go rl.Run(ctx, limiterInterval)

	zc := zoom.New(zoom.Config{
		ClientID:     cfg.Zoom.ClientID,
		ClientSecret: cfg.Zoom.ClientSecret,
		RedirectURL:  cfg.Zoom.RedirectURL,
		AuthURL:      cfg.Zoom.AuthURL,
		TokenURL:     cfg.Zoom.TokenURL,
		APIURL:       cfg.Zoom.APIURL,
	}, m, logger)

	h := handler.New(handler.Deps{
		Users:         st,
		Meetings:      st,
		Tokens:        tokens,
		Zoom:          zc,
		Sessions:      session.NewManager([]byte(cfg.SessionSecret), cfg.SecureCookies),
		AppSecret:     cfg.AppSecret,
		WebhookSecret: cfg.Zoom.WebhookSecret,
		Location:      cfg.Location,
		Metrics:       m,
		RateLimiter:   rl,
		Logger:        logger,
	})
	if cfg.Zoom.WebhookSecret == "" {
		logger.Warn("ZOOM_WEBHOOK_SECRET not set; webhook url validation will echo plainToken")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", srv.Addr, "token_cache", cfg.TokenCache)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// tokenCache picks the backend named by TOKEN_CACHE and starts its expiry
// loop.
func tokenCache(ctx context.Context, cfg *config.Config, st *store.Store, logger *slog.Logger) tokencache.Cache {
	if cfg.TokenCache == config.CachePostgres {
		creds := st.Credentials()
		go purgeExpired(ctx, creds, logger)
		return creds
	}
	mem := tokencache.NewMemory(logger)
	go mem.Run(ctx, sweepInterval)
	return mem
}

func purgeExpired(ctx context.Context, creds *store.Credentials, logger *slog.Logger) {
	t := time.NewTicker(purgeInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := creds.PurgeExpired(ctx)
			if err != nil {
				logger.Warn("purge expired zoom tokens", logging.Err(err))
				continue
			}
			if n > 0 {
				logger.Debug("purged expired zoom tokens", "count", n)
			}
		}
	}
}

