package backend

import (
	"fmt"

	"github.com/raven-rwho/rem-expenses/internal/config"
	gsheet "github.com/raven-rwho/rem-expenses/internal/sheets/google"
	"github.com/raven-rwho/rem-expenses/internal/worker"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	storeType := StoreType(appConfig.DataBackend)
	if !storeType.IsValid() {
		return Config{}, fmt.Errorf("invalid store type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: storeType,

		SQLiteDBPath: appConfig.SQLiteDBPath,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		Pool: worker.PoolConfig{
			Workers:   appConfig.ConversionWorkers,
			QueueSize: appConfig.ConversionQueueSize,
			Timeout:   appConfig.ConversionTimeout,
		},

		SheetsEnabled: appConfig.SheetsEnabled,
		Google: gsheet.Config{
			SpreadsheetID:      appConfig.GoogleSpreadsheetID,
			ServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
			ServiceAccountFile: appConfig.GoogleServiceAccountFile,
		},

		S3Bucket: appConfig.S3Bucket,
		S3Region: appConfig.S3Region,
		S3Prefix: appConfig.S3Prefix,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid store type: %s", c.Type)
	}

	if c.Type == SQLiteStore && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite store")
	}

	if c.SheetsEnabled {
		if c.Google.SpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for the sheets export")
		}
		if c.Google.ServiceAccountJSON == "" && c.Google.ServiceAccountFile == "" {
			return fmt.Errorf("service account credentials are required for the sheets export")
		}
	}

	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		return fmt.Errorf("AMQP exchange and queue are required when AMQP URL is set")
	}

	return nil
}

// GetStoreTypes returns all valid store types
func GetStoreTypes() []StoreType {
	return []StoreType{SQLiteStore, MemoryStore}
}

// GetStoreTypeStrings returns all valid store type strings
func GetStoreTypeStrings() []string {
	types := GetStoreTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
