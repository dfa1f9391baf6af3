package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/blogthread/config"
	"github.com/cppla/blogthread/controllers"
	"github.com/cppla/blogthread/routes"
	"github.com/cppla/blogthread/store"
	"github.com/cppla/blogthread/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	st, closeStore, err := openStore(cfg)
	if err != nil {
		utils.Sugar.Fatalf("failed to open %s store: %v", cfg.StoreDriver, err)
	}

	seedCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	created, err := controllers.SeedAuthor(seedCtx, st, cfg.AuthorSeedUsername, cfg.AuthorSeedPassword)
	cancel()
	if err != nil {
		utils.Sugar.Fatalf("failed to seed author account: %v", err)
	}
	if created {
		utils.Logger.Info("author account created", zap.String("username", cfg.AuthorSeedUsername))
	}

	r := routes.SetupRouter(st)

	srv := utils.GraceServer(":"+cfg.AppPort, r)
	srv.OnShutdown(closeStore)
	srv.OnShutdown(func(context.Context) { utils.CloseRedis() })

	utils.Logger.Info("starting server",
		zap.String("port", cfg.AppPort),
		zap.String("store", cfg.StoreDriver))
	if err := srv.ListenAndServe(); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}

// openStore selects the document store adapter by driver. The returned func releases it.
func openStore(cfg config.AppConfig) (store.Store, func(context.Context), error) {
	timeout := time.Duration(cfg.StoreTimeoutMS) * time.Millisecond
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return store.NewMemory(), func(context.Context) {}, nil
	case config.DriverMySQL, config.DriverPostgres:
		db, err := config.OpenDatabase(cfg, store.Models()...)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func(context.Context) {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		return store.NewGorm(db, timeout), closeFn, nil
	case config.DriverMongo:
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		m, err := store.NewMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, timeout)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func(ctx context.Context) {
			if err := m.Close(ctx); err != nil {
				utils.Sugar.Warnf("mongo disconnect: %v", err)
			}
		}
		return m, closeFn, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}
