package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Amund-Fremming/tero.platform/cmd/teroapi/cmd/cmdutil"
	"github.com/Amund-Fremming/tero.platform/internal/auth"
	"github.com/Amund-Fremming/tero.platform/internal/db/bunx"
	"github.com/Amund-Fremming/tero.platform/internal/middleware"
	"github.com/Amund-Fremming/tero.platform/internal/repository"
	"github.com/Amund-Fremming/tero.platform/internal/server"
	"github.com/Amund-Fremming/tero.platform/internal/services/background"
	"github.com/Amund-Fremming/tero.platform/internal/services/gsclient"
	"github.com/Amund-Fremming/tero.platform/internal/services/iam"
	"github.com/Amund-Fremming/tero.platform/internal/services/keyvault"
	"github.com/Amund-Fremming/tero.platform/internal/services/pagecache"
	"github.com/Amund-Fremming/tero.platform/internal/services/popup"
	"github.com/Amund-Fremming/tero.platform/internal/services/syslog"
	"github.com/Amund-Fremming/tero.platform/internal/services/validation"
	"github.com/Amund-Fremming/tero.platform/internal/telemetry"
)

const (
	jobTimeout            = 30 * time.Second
	outboundTimeout       = 10 * time.Second
	janitorInterval       = time.Minute
	shutdownTimeout       = 10 * time.Second
	schemaCacheSize       = 8
	pseudoUserBurstFactor = 2
)

var runMigrations bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Tero API server",
	Long:  `Starts the HTTP server. The key vault and page cache live in this process and start empty.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry, logger)
		if err != nil {
			return fmt.Errorf("failed to initialise telemetry: %w", err)
		}
		defer func() {
			sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer scancel()
			if err := shutdownTelemetry(sctx); err != nil {
				logger.WithError(err).Warn("telemetry shutdown")
			}
		}()

		dbb, err := cmdutil.OpenDB(ctx, cfg)
		if err != nil {
			return err
		}
		defer dbb.Close()
		logger.WithField("driver", bunx.DriverFor(cfg.DatabaseURL)).Info("connected to database")

		if runMigrations {
			id, err := dbb.MigrateLocked(ctx)
			if err != nil {
				return err
			}
			logger.WithField("group", id).Info("migrations applied")
		} else if pending, err := dbb.Pending(ctx); err != nil {
			logger.WithError(err).Warn("could not read migration status")
		} else if len(pending) > 0 {
			logger.WithField("pending", len(pending)).Warn("database schema is behind, run `teroapi db migrate` or serve with --migrate")
		}

		userRepo := repository.NewBunUserRepository(dbb.DB)
		gameRepo := repository.NewBunGameRepository(dbb.DB)
		wordRepo := repository.NewBunWordRepository(dbb.DB)
		logRepo := repository.NewBunSystemLogRepository(dbb.DB)

		queue := background.NewQueue(cfg.Server.WorkerCount, cfg.Server.QueueSize, jobTimeout, logger)
		audit := syslog.New(logRepo, queue, logger)

		prefix, suffix, err := keyvault.LoadWords(ctx, wordRepo)
		if err != nil {
			return fmt.Errorf("failed to load game-key words: %w", err)
		}
		vaultMetrics, err := telemetry.NewVaultMetrics()
		if err != nil {
			return fmt.Errorf("failed to create vault metrics: %w", err)
		}
		vault, err := keyvault.New(prefix, suffix,
			keyvault.WithAudit(audit),
			keyvault.WithMetrics(vaultMetrics),
			keyvault.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("failed to create key vault (run 'teroapi words import'): %w", err)
		}
		logger.WithField("capacity", vault.Capacity()).Info("key vault ready")

		cacheMetrics, err := telemetry.NewCacheMetrics()
		if err != nil {
			return fmt.Errorf("failed to create cache metrics: %w", err)
		}
		cache, err := pagecache.New[server.GamePage](cfg.Server.CacheTTL,
			pagecache.WithCapacity(cfg.Server.CacheCapacity),
			pagecache.WithMetrics(cacheMetrics),
			pagecache.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("failed to create page cache: %w", err)
		}

		httpClient := &http.Client{Timeout: outboundTimeout}
		sessions := gsclient.New(cfg.Server.GSDomain, httpClient, logger)

		keys, err := auth.FetchJWKS(ctx, httpClient, cfg.Auth0.JWKSURL())
		if err != nil {
			return fmt.Errorf("failed to fetch signing keys: %w", err)
		}
		logger.WithField("keys", keys.Len()).Info("loaded identity provider signing keys")
		verifier := auth.NewVerifier(keys, cfg.Auth0.Audience, cfg.Auth0.Issuer())

		integrations, err := auth.NewIntegrationRegistry(cfg.Integrations)
		if err != nil {
			return fmt.Errorf("failed to load integrations: %w", err)
		}
		resolver := iam.NewResolver(
			iam.NewGuestAuthenticator(userRepo, queue, audit, logger),
			iam.NewBearerAuthenticator(verifier, integrations, userRepo, audit, logger),
		)
		policy, err := auth.NewAccessPolicy()
		if err != nil {
			return fmt.Errorf("failed to build access policy: %w", err)
		}

		limiter, err := middleware.NewRateLimiter(cfg.Server.PseudoUserRate,
			int(cfg.Server.PseudoUserRate*pseudoUserBurstFactor)+1, logger)
		if err != nil {
			return fmt.Errorf("failed to create rate limiter: %w", err)
		}
		validator, err := validation.NewSessionValidator(schemaCacheSize)
		if err != nil {
			return fmt.Errorf("failed to create session validator: %w", err)
		}
		serverMetrics, err := telemetry.NewServerMetrics()
		if err != nil {
			return fmt.Errorf("failed to create server metrics: %w", err)
		}

		router := server.NewRouter(server.RouterOptions{
			GSDomain:          cfg.Server.GSDomain,
			PageSize:          cfg.Server.PageSize,
			WebhookKey:        cfg.Auth0.WebhookKey,
			Users:             userRepo,
			Games:             gameRepo,
			Vault:             vault,
			Cache:             cache,
			Popups:            popup.NewManager(popup.Default),
			Sessions:          sessions,
			Validator:         validator,
			Audit:             audit,
			Jobs:              queue,
			Resolver:          resolver,
			Policy:            policy,
			PseudoUserLimiter: limiter,
			DBHealth:          func(ctx context.Context) bool { return bunx.Ping(ctx, dbb.DB) },
			Metrics:           serverMetrics,
			Logger:            logger,
		})
		srv := server.NewHTTPServer(cfg.Server.ListenAddr(), router)

		purge := server.NewPurgeJob(gameRepo, cfg.Server.ActiveGameRetention, audit, logger)
		var workers errgroup.Group
		workers.Go(func() error { vault.RunSweeper(ctx, keyvault.SweepInterval); return nil })
		workers.Go(func() error { cache.RunJanitor(ctx, janitorInterval); return nil })
		workers.Go(func() error { purge.Run(ctx, server.PurgeInterval); return nil })

		serverErrors := make(chan error, 1)
		go func() {
			logger.WithField("addr", srv.Addr).Info("starting server")
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		// SIGHUP runs the periodic maintenance immediately.
		maintenance := make(chan os.Signal, 1)
		signal.Notify(maintenance, syscall.SIGHUP)
		defer signal.Stop(maintenance)

		for {
			select {
			case err := <-serverErrors:
				cancel()
				_ = workers.Wait()
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("server error: %w", err)

			case sig := <-maintenance:
				logger.WithField("signal", sig.String()).Info("running maintenance")
				swept := vault.Sweep(ctx)
				evicted := cache.EvictIdle()
				if _, err := purge.RunOnce(ctx); err != nil {
					logger.WithError(err).Error("manual purge failed")
				}
				logger.WithField("swept_keys", swept).WithField("evicted_pages", evicted).Info("maintenance complete")

			case sig := <-shutdown:
				logger.WithField("signal", sig.String()).Info("shutting down gracefully")
				sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer scancel()

				if err := srv.Shutdown(sctx); err != nil {
					_ = srv.Close()
					return fmt.Errorf("graceful shutdown failed: %w", err)
				}
				cancel()
				_ = workers.Wait()
				if err := queue.Shutdown(sctx); err != nil {
					logger.WithError(err).Warn("background queue did not drain")
				}
				logger.WithField("stats", fmt.Sprintf("%+v", queue.Stats())).Info("server stopped")
				return nil
			}
		}
	},
}

func init() {
	serveCmd.Flags().BoolVar(&runMigrations, "migrate", false, "Apply pending database migrations before serving")
	rootCmd.AddCommand(serveCmd)
}
