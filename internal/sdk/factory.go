package sdk

import (
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/time/rate"

	"github.com/dmitrijs2005/baaskit/internal/config"
	"github.com/dmitrijs2005/baaskit/internal/controllers"
	"github.com/dmitrijs2005/baaskit/internal/files"
	"github.com/dmitrijs2005/baaskit/internal/logging"
	"github.com/dmitrijs2005/baaskit/internal/storage"
	"github.com/dmitrijs2005/baaskit/internal/transport/grpcx"
	"github.com/dmitrijs2005/baaskit/internal/transport/httpx"
	"github.com/dmitrijs2005/baaskit/internal/transport/limiter"
)

var ErrUnknownAdapter = errors.New("unknown adapter")

type transportFactory func(ctx context.Context, cfg *config.Config, logger logging.Logger) (controllers.Transport, io.Closer, error)

type storageFactory func(ctx context.Context, cfg *config.Config, logger logging.Logger) (controllers.StorageController, io.Closer, error)

type fileFactory func(ctx context.Context, cfg *config.Config, reg *controllers.Registry, chooser files.Chooser, logger logging.Logger) (controllers.FileController, error)

var transportFactories = map[string]transportFactory{
	"http": func(_ context.Context, cfg *config.Config, logger logging.Logger) (controllers.Transport, io.Closer, error) {
		return httpx.New(httpx.WithTimeout(cfg.RequestTimeout), httpx.WithLogger(logger)), nil, nil
	},
	"grpc": func(_ context.Context, cfg *config.Config, _ logging.Logger) (controllers.Transport, io.Closer, error) {
		t, err := grpcx.New(cfg.GRPCEndpoint, cfg.RequestTimeout)
		if err != nil {
			return nil, nil, fmt.Errorf("grpc transport: %w", err)
		}
		return t, t, nil
	},
}

func storageOptions(cfg *config.Config, logger logging.Logger) []storage.Option {
	return []storage.Option{
		storage.WithCapacity(cfg.StorageCapacity),
		storage.WithTimeout(cfg.StorageTimeout),
		storage.WithLogger(logger),
	}
}

func openSQL(dialect storage.Dialect) storageFactory {
	return func(ctx context.Context, cfg *config.Config, logger logging.Logger) (controllers.StorageController, io.Closer, error) {
		s, err := storage.OpenSQL(ctx, dialect, cfg.StorageDSN, storageOptions(cfg, logger)...)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	}
}

var storageFactories = map[string]storageFactory{
	"memory": func(_ context.Context, cfg *config.Config, logger logging.Logger) (controllers.StorageController, io.Closer, error) {
		return storage.NewMemory(storageOptions(cfg, logger)...), nil, nil
	},
	"sqlite":   openSQL(storage.DialectSQLite),
	"postgres": openSQL(storage.DialectPostgres),
	"redis": func(_ context.Context, cfg *config.Config, logger logging.Logger) (controllers.StorageController, io.Closer, error) {
		client := storage.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		r := storage.NewRedis(client, "baaskit:"+cfg.ApplicationID, storageOptions(cfg, logger)...)
		return r, r, nil
	},
}

var fileFactories = map[string]fileFactory{
	"rest": func(_ context.Context, cfg *config.Config, reg *controllers.Registry, chooser files.Chooser, logger logging.Logger) (controllers.FileController, error) {
		uploader := httpx.New(httpx.WithTimeout(cfg.RequestTimeout), httpx.WithLogger(logger))
		return files.NewRESTFileController(cfg, reg, chooser, uploader), nil
	},
	"s3": func(ctx context.Context, cfg *config.Config, _ *controllers.Registry, chooser files.Chooser, _ logging.Logger) (controllers.FileController, error) {
		return files.NewS3FileController(ctx, cfg, chooser)
	},
}

func pick[F any](table map[string]F, kind, name string) (F, error) {
	f, ok := table[name]
	if !ok {
		var zero F
		return zero, fmt.Errorf("%w: %s %q", ErrUnknownAdapter, kind, name)
	}
	return f, nil
}

func limited(t controllers.Transport, cfg *config.Config) controllers.Transport {
	if cfg.RateLimit <= 0 {
		return t
	}
	return limiter.New(t, rate.Limit(cfg.RateLimit), cfg.RateBurst)
}
