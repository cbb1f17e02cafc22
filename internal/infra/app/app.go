package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/AyushNetTech/GymTrack/internal/identity"
	"github.com/AyushNetTech/GymTrack/internal/infra/config"
	"github.com/AyushNetTech/GymTrack/internal/infra/database"
	"github.com/AyushNetTech/GymTrack/internal/infra/logger"
	redisinfra "github.com/AyushNetTech/GymTrack/internal/infra/redis"
	"github.com/AyushNetTech/GymTrack/internal/infra/telemetry"
	postgresrepo "github.com/AyushNetTech/GymTrack/internal/repository/postgres"
	redisrepo "github.com/AyushNetTech/GymTrack/internal/repository/redis"
	"github.com/AyushNetTech/GymTrack/internal/transport/http/routes"
	"github.com/AyushNetTech/GymTrack/internal/usecase"
)

type Application struct {
	cfg     *config.AppConfig
	engine  *gin.Engine
	logger  *zap.Logger
	pool    *pgxpool.Pool
	redis   *redisinfra.Client
	machine *usecase.BootstrapMachine
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	installID := cfg.Bootstrap.InstallID
	if installID == "" {
		installID = uuid.NewString()
		log.Warn("no install id configured, generated an ephemeral one",
			zap.String("install_id", installID),
		)
	}

	flagStore := redisrepo.NewFlagStore(redisClient.Client(), cfg.Redis.FlagPrefix, installID)
	sessionProvider := identity.NewClient(cfg.Identity, flagStore, log)

	profileRepo := postgresrepo.NewProfileRepository(pool)
	profileResolver := usecase.NewProfileResolver(profileRepo, flagStore, log)

	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)
	machine := usecase.NewBootstrapMachine(flagStore, sessionProvider, profileResolver, log).
		WithMetrics(metrics).
		WithCallTimeout(cfg.Bootstrap.CallTimeout)

	engine := routes.Register(routes.Dependencies{
		Config:   cfg,
		Logger:   log,
		Machine:  machine,
		Database: pool,
		Cache:    redisClient,
	})

	return &Application{
		cfg:     cfg,
		engine:  engine,
		logger:  log,
		pool:    pool,
		redis:   redisClient,
		machine: machine,
	}, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()

	machineCtx, stopMachine := context.WithCancel(ctx)
	a.machine.Start(machineCtx, a.cfg.Bootstrap.InitialLink)
	defer a.machine.Stop()
	defer stopMachine()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting session gate",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
