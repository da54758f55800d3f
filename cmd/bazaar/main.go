package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"bazaar/config"
	"bazaar/internal/delivery"
	"bazaar/internal/delivery/http"
	"bazaar/internal/delivery/http/cookie"
	"bazaar/internal/delivery/http/middleware"
	"bazaar/internal/delivery/http/router/handler"
	deliverymiddleware "bazaar/internal/delivery/middleware"
	"bazaar/internal/infra/auth"
	"bazaar/internal/infra/auth/google"
	logs "bazaar/internal/infra/log"
	"bazaar/internal/infra/persistence/postgres"
	"bazaar/internal/usecase"
	"bazaar/internal/usecase/impl"

	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		injectRepo(),
		injectService(),
		injectUsecase(),
		injectDelivery(),
		injectMiddleware(),
		injectHandler(),
		fx.Invoke(
			startServer,
			startCleanupSweeper,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		context.Background,
		postgres.New,
	)
}

func injectRepo() fx.Option {
	return fx.Options(
		fx.Provide(
			postgres.NewUserRepository,
			postgres.NewSessionRepository,
			postgres.NewModerationRepository,
			postgres.NewOAuthStateRepository,
			postgres.NewOAuthPendingRepository,
			postgres.NewOAuthIdentityRepository,
			postgres.NewAuditRepository,
			postgres.NewSecretRepository,
			postgres.NewTransactionManager,
		),
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			auth.NewArgon2Hasher,
			auth.NewJWTCodec,
			auth.NewAESSecretBox,
			google.NewProviderClient,
		),
	)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewAuthService,
			impl.NewOAuthService,
			impl.NewSessionService,
			impl.NewAdminService,
			impl.NewSecretService,
		),
	)
}

func injectMiddleware() fx.Option {
	return fx.Options(
		fx.Provide(
			cookie.NewManager,
			deliverymiddleware.NewRequestIDMiddleware,
			middleware.NewLoggerMiddleware,
			middleware.NewAuthMiddleware,
			middleware.NewReauthMiddleware,
			middleware.NewErrorMiddleware,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewAuthHandler,
			handler.NewSessionHandler,
			handler.NewOAuthHandler,
			handler.NewAdminHandler,
			handler.NewSecretHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				http.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

func startServer(ctx context.Context, params startServerParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Failed to start server", slog.Any("error", err))
				os.Exit(1)
			}
		}()
	}
}

// startCleanupSweeper periodically removes expired sessions and spent
// one-shot rows so the tables do not grow without bound.
func startCleanupSweeper(ctx context.Context, cfg *config.Config, logger *slog.Logger, sessionUC usecase.SessionUsecase) {
	if cfg.Cleanup == nil || !cfg.Cleanup.Enabled {
		return
	}

	interval := cfg.Cleanup.Interval
	if interval <= 0 {
		interval = time.Hour
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := sessionUC.CleanupExpired(ctx)
				if err != nil {
					logger.Error("Cleanup sweep failed", slog.Any("error", err))

					continue
				}
				if removed > 0 {
					logger.Info("Cleanup sweep finished", slog.Int64("removed", removed))
				}
			}
		}
	}()
}
