package backend

import (
	"context"

	"github.com/raven-rwho/rem-expenses/internal/export"
	"github.com/raven-rwho/rem-expenses/internal/services"
	"github.com/raven-rwho/rem-expenses/internal/sheets"
	gsheet "github.com/raven-rwho/rem-expenses/internal/sheets/google"
	"github.com/raven-rwho/rem-expenses/internal/storage"
	"github.com/raven-rwho/rem-expenses/internal/worker"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func(ctx context.Context) error

// BackendResult contains the outbound adapters the server needs and the
// cleanup function that releases them.
type BackendResult struct {
	Drafts   storage.DraftStore
	Reports  sheets.ReportWriter
	Archiver *export.Archiver // nil when S3 archiving is disabled
	Cleanup  CleanupFunc
}

// DispatcherResult is the conversion dispatcher and its cleanup.
type DispatcherResult struct {
	Dispatcher services.Dispatcher
	Mode       string
	Cleanup    CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend opens the draft store and the export adapters.
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	// CreateDispatcher returns the AMQP publisher when a broker is configured
	// for the sqlite store and an in-process worker pool around handler
	// otherwise.
	CreateDispatcher(ctx context.Context, config Config, handler worker.ConversionHandler) (*DispatcherResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type StoreType

	SQLiteDBPath string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	Pool worker.PoolConfig

	SheetsEnabled bool
	Google        gsheet.Config

	S3Bucket string
	S3Region string
	S3Prefix string
}

// StoreType represents the draft store implementation
type StoreType string

const (
	SQLiteStore StoreType = "sqlite"
	MemoryStore StoreType = "memory"
)

// Dispatch modes reported in DispatcherResult.Mode.
const (
	ModeAMQP = "amqp"
	ModePool = "pool"
)

// String implements fmt.Stringer
func (st StoreType) String() string {
	return string(st)
}

// IsValid returns true if the store type is valid
func (st StoreType) IsValid() bool {
	switch st {
	case SQLiteStore, MemoryStore:
		return true
	default:
		return false
	}
}
