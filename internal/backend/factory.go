package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/raven-rwho/rem-expenses/internal/amqp"
	"github.com/raven-rwho/rem-expenses/internal/export"
	"github.com/raven-rwho/rem-expenses/internal/log"
	"github.com/raven-rwho/rem-expenses/internal/sheets"
	gsheet "github.com/raven-rwho/rem-expenses/internal/sheets/google"
	"github.com/raven-rwho/rem-expenses/internal/storage"
	"github.com/raven-rwho/rem-expenses/internal/worker"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Default(log.ComponentApp)
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	drafts, err := f.createStore(config)
	if err != nil {
		return nil, err
	}

	reports, err := f.createReportWriter(ctx, config)
	if err != nil {
		_ = drafts.Close()
		return nil, err
	}

	var archiver *export.Archiver
	if config.S3Bucket != "" {
		archiver, err = export.NewS3Archiver(ctx, config.S3Region, config.S3Bucket, config.S3Prefix,
			f.logger.WithComponent(log.ComponentExport))
		if err != nil {
			_ = drafts.Close()
			return nil, fmt.Errorf("failed to initialize S3 archiver: %w", err)
		}
		f.logger.Info("Initialized S3 export archive", "bucket", config.S3Bucket, "prefix", config.S3Prefix)
	}

	return &BackendResult{
		Drafts:   drafts,
		Reports:  reports,
		Archiver: archiver,
		Cleanup: func(context.Context) error {
			return drafts.Close()
		},
	}, nil
}

func (f *DefaultFactory) createStore(config Config) (storage.DraftStore, error) {
	switch config.Type {
	case SQLiteStore:
		store, err := storage.NewSQLiteStore(config.SQLiteDBPath, f.logger.WithComponent(log.ComponentStorage))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		f.logger.Info("Initialized SQLite draft store", "db_path", config.SQLiteDBPath)
		return store, nil
	case MemoryStore:
		f.logger.Info("Initialized memory draft store")
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}
}

func (f *DefaultFactory) createReportWriter(ctx context.Context, config Config) (sheets.ReportWriter, error) {
	if !config.SheetsEnabled {
		return sheets.Disabled{}, nil
	}
	cli, err := gsheet.New(ctx, config.Google, f.logger.WithComponent(log.ComponentSheets))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.Info("Initialized Google Sheets export")
	return cli, nil
}

// CreateDispatcher implements Factory.CreateDispatcher
func (f *DefaultFactory) CreateDispatcher(ctx context.Context, config Config, handler worker.ConversionHandler) (*DispatcherResult, error) {
	if config.AMQPURL != "" && config.Type != SQLiteStore {
		f.logger.Warn("AMQP dispatch needs the sqlite store, converting in-process", "store", config.Type)
	} else if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue,
			f.logger.WithComponent(log.ComponentAMQP))
		if err == nil {
			f.logger.Info("Initialized AMQP conversion dispatch",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			return &DispatcherResult{
				Dispatcher: client,
				Mode:       ModeAMQP,
				Cleanup:    func(context.Context) error { return client.Close() },
			}, nil
		}
		f.logger.Warn("Failed to initialize AMQP client, converting in-process", "error", err)
	}

	if handler == nil {
		return nil, errors.New("conversion handler is required for in-process dispatch")
	}
	pool := worker.NewPool(handler, config.Pool, f.logger.WithComponent(log.ComponentWorker))
	pool.Start()
	f.logger.Info("Initialized in-process conversion pool",
		"workers", config.Pool.Workers,
		"queue_size", config.Pool.QueueSize)

	return &DispatcherResult{
		Dispatcher: pool,
		Mode:       ModePool,
		Cleanup: func(ctx context.Context) error {
			f.logger.Info("Draining conversion pool", "pending", pool.Pending())
			return pool.Shutdown(ctx)
		},
	}, nil
}
