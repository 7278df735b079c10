package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"followscan/pkg/config"
	"followscan/pkg/logger"
	"followscan/pkg/models"
)

// Store is the persistence interface shared by all backends
type Store interface {
	// Save replaces the stored accounts of platform and stamps its last scan date
	Save(ctx context.Context, platform models.Platform, accounts []models.Account) error
	GetAll(ctx context.Context) ([]models.Account, error)
	GetByPlatform(ctx context.Context, platform models.Platform) ([]models.Account, error)
	// Clear removes the data of platform, or everything when platform is empty
	Clear(ctx context.Context, platform models.Platform) error
	LastScanDate(ctx context.Context, platform models.Platform) (*time.Time, error)
	Close() error
}

// DataKey is the key of the aggregate record in key-value backends
const DataKey = "sns_follower_manager_data"

// DefaultFileName is the aggregate file inside the data directory
const DefaultFileName = "accounts.json"

// Open creates the store selected by cfg
func Open(ctx context.Context, cfg config.StorageConfig, log logger.Logger) (Store, error) {
	log = logger.OrGlobal(log)

	switch strings.ToLower(cfg.Backend) {
	case "", config.BackendJSON:
		path := cfg.Path
		if path == "" {
			dir, err := config.DataDir()
			if err != nil {
				return nil, err
			}
			path = filepath.Join(dir, DefaultFileName)
		}
		return NewFileStore(path, log), nil
	case config.BackendMemory:
		return NewMemoryStore(log), nil
	case config.BackendRedis:
		return NewRedisStore(ctx, cfg.Addr, cfg.DB, log)
	case config.BackendSQLite:
		path := cfg.Path
		if path == "" {
			dir, err := config.DataDir()
			if err != nil {
				return nil, err
			}
			path = filepath.Join(dir, "followscan.db")
		}
		return NewSQLite(path, log)
	case config.BackendPostgres:
		return NewPostgres(cfg.DSN, log)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// stampPlatform copies accounts with Platform forced to p
func stampPlatform(p models.Platform, accounts []models.Account) []models.Account {
	out := make([]models.Account, len(accounts))
	for i, a := range accounts {
		a.Platform = p
		out[i] = a
	}
	return out
}
