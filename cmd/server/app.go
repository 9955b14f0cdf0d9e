package main

import (
	"context"
	"fmt"
	"io"
	"popmetrics/internal/cache"
	"popmetrics/internal/config"
	"popmetrics/internal/warehouse"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// app is everything both commands need to reach the warehouse.
type app struct {
	cache  *cache.Cache
	query  string
	closer io.Closer
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	var (
		exec   warehouse.Executor
		closer io.Closer
	)
	switch cfg.Warehouse.Driver {
	case "bigquery":
		bq, err := warehouse.NewBigQuery(ctx, cfg.Warehouse.ProjectID, cfg.Warehouse.CredentialsFile, logger)
		if err != nil {
			return nil, err
		}
		exec, closer = bq, bq
	case warehouse.DriverSQLite, warehouse.DriverPostgres:
		db, err := warehouse.OpenSQL(ctx, cfg.Warehouse.Driver, cfg.Warehouse.DSN, logger)
		if err != nil {
			return nil, err
		}
		exec, closer = db, db
	default:
		return nil, fmt.Errorf("unknown warehouse driver %q", cfg.Warehouse.Driver)
	}

	if n := cfg.Warehouse.MaxQueriesPerMinute; n > 0 {
		exec = warehouse.Throttle(exec, rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1))
	}

	c := cache.New(exec,
		cache.WithTTL(cfg.GetCacheTTL()),
		cache.WithTimeout(cfg.GetQueryTimeout()),
		cache.WithLogger(logger.Named("cache")),
	)

	logger.Info("warehouse ready",
		zap.String("driver", cfg.Warehouse.Driver),
		zap.String("table", cfg.Warehouse.Table),
		zap.Duration("ttl", cfg.GetCacheTTL()),
	)
	return &app{
		cache:  c,
		query:  warehouse.IndicatorsQuery(cfg.TableRef()),
		closer: closer,
	}, nil
}

func (a *app) Close() error {
	return a.closer.Close()
}
