package main

import (
	"context"
	"fmt"

	"github.com/atinyakov/favkeeper/internal/config"
	"github.com/atinyakov/favkeeper/internal/db"
	"github.com/atinyakov/favkeeper/internal/repository"
	"github.com/atinyakov/favkeeper/internal/service"
	"go.uber.org/zap"
)

type closer interface {
	Close(ctx context.Context) error
}

// newStore returns the lazily connected repository for the configured
// driver. Nothing is dialled until the first Get.
func newStore(opts *config.Options, log *zap.Logger) (*db.Lazy[service.UserRepository], error) {
	var connect db.ConnectFunc[service.UserRepository]

	switch opts.StoreDriver {
	case config.DriverMongo:
		connect = func(ctx context.Context) (service.UserRepository, error) {
			_, users, err := db.OpenMongo(ctx, opts.MongoURL, opts.DatabaseName)
			if err != nil {
				log.Error("cannot connect to mongo", zap.Error(err))
				return nil, err
			}
			log.Info("connected to mongo", zap.String("database", opts.DatabaseName))
			return repository.NewMongoUserRepository(users), nil
		}
	case config.DriverPostgres:
		connect = func(ctx context.Context) (service.UserRepository, error) {
			pg, err := db.InitPostgres(ctx, opts.DatabaseDSN)
			if err != nil {
				log.Error("cannot init database", zap.Error(err))
				return nil, err
			}
			log.Info("connected to postgres")
			return repository.NewPostgresUserRepository(pg), nil
		}
	case config.DriverMemory:
		repo := repository.NewMemoryUserRepository()
		connect = func(ctx context.Context) (service.UserRepository, error) {
			return repo, nil
		}
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.StoreDriver)
	}

	closeFn := func(ctx context.Context, r service.UserRepository) error {
		if c, ok := r.(closer); ok {
			return c.Close(ctx)
		}
		return nil
	}
	return db.NewLazy(connect, closeFn, opts.ConnectTimeout), nil
}
