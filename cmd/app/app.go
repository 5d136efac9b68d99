package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ecobox-ge/ecobox-api/internal/api"
	"github.com/ecobox-ge/ecobox-api/internal/config"
	"github.com/ecobox-ge/ecobox-api/internal/db"
	"github.com/ecobox-ge/ecobox-api/internal/logger"
	"github.com/ecobox-ge/ecobox-api/internal/realtime"
	"github.com/ecobox-ge/ecobox-api/internal/realtime/memstream"
	"github.com/ecobox-ge/ecobox-api/internal/realtime/pgnotify"
	"github.com/ecobox-ge/ecobox-api/internal/repository/dao"
	"github.com/ecobox-ge/ecobox-api/internal/repository/fixture"
	"github.com/ecobox-ge/ecobox-api/internal/rowstore"
)

func Start() error {
	conf, loader, err := config.NewLoader("./cmd/app/config.yml")
	if err != nil {
		return fmt.Errorf("failed to initialize config -> %w", err)
	}

	if err = logger.Init(conf.API.Environment); err != nil {
		return fmt.Errorf("failed to initialize logger -> %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, stream, err := openStore(ctx, conf)
	if err != nil {
		return fmt.Errorf("failed to initialize store -> %w", err)
	}

	s, err := api.NewServer(conf, store, stream)
	if err != nil {
		return fmt.Errorf("failed to initialize server -> %w", err)
	}
	defer s.Close()

	loader.WatchCache(func(c *config.CacheConfig) {
		s.Client.SetPolicy(api.CachePolicy(c))
		zap.L().Info("cache policy reloaded", zap.Duration("default_stale_time", c.DefaultStaleTime))
	})

	if spec := conf.Leaderboard.SnapshotSchedule; spec != "" {
		c, err := s.Snapshots.Schedule(spec)
		if err != nil {
			return fmt.Errorf("failed to schedule leaderboard snapshots -> %w", err)
		}
		defer c.Stop()
	}

	s.Start(ctx)

	addr := ":" + s.Config.API.Port
	srv := &http.Server{Addr: addr, Handler: s.Router, ReadHeaderTimeout: 10 * time.Second}
	go shutdownOnDone(ctx, srv, 10*time.Second)

	zap.L().Info(fmt.Sprintf("starting server at %v", addr), zap.String("store", conf.Store.Driver))
	if err = srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start the server -> %w", err)
	}

	return nil
}

// openStore picks the row store and its change stream. Fixture mode is only
// ever chosen by configuration, never as a fallback.
func openStore(ctx context.Context, conf *config.AppConfig) (rowstore.Store, realtime.Stream, error) {
	if conf.Store.Driver == config.StoreDriverFixture {
		stream := memstream.New()
		store, err := fixture.NewSeeded(stream, time.Now(), bcrypt.DefaultCost)
		if err != nil {
			return nil, nil, err
		}
		zap.L().Warn("serving the in-memory demo data set")
		return store, stream, nil
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = conf.Postgres.DSN()
	}

	postgresDB, err := db.OpenPostgresWithURL(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database -> %w", err)
	}

	channel := conf.Realtime.Channel
	if channel == "" {
		channel = dao.NotifyChannel
	}

	if conf.Postgres.Migrate {
		if err = dao.InitTables(postgresDB, channel); err != nil {
			return nil, nil, fmt.Errorf("failed to migrate database -> %w", err)
		}
	}

	stream := pgnotify.New(db.NewDialer(dsn), channel, conf.Realtime.ReconnectMaxWait)
	go func() {
		if err := stream.Run(ctx); err != nil {
			zap.L().Error("change stream stopped", zap.Error(err))
		}
	}()

	return dao.NewStore(postgresDB), stream, nil
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// shutdownOnDone waits for ctx and then gives srv timeout to drain.
func shutdownOnDone(ctx context.Context, srv shutdowner, timeout time.Duration) {
	<-ctx.Done()

	shutdown, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		zap.L().Error("failed to shut down the server", zap.Error(err))
	}
}
