// Package storage persists render and story jobs in sqlite through gorm.
package storage

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"storyreel/internal/appdirs"
	"storyreel/log"
	apperrors "storyreel/pkg/errors"
)

var appDirsResolver = appdirs.Resolve

// Store is handed to whoever needs job records; there is no package-level DB.
type Store struct {
	db *gorm.DB
}

// Open opens (creating when needed) the sqlite file at dbPath and migrates.
// An empty path resolves the default location under the cache dir.
func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		var err error
		if dbPath, err = resolveDBPath(); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeDBError, "Resolve database path failed", err)
		}
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.WrapWithDetail(apperrors.CodeDBError, "Create database dir failed", dir, err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDBError, "Connect database failed", err)
	}

	if err = db.AutoMigrate(&RenderJob{}, &StoryJob{}); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDBError, "Migrate database failed", err)
	}

	log.GetLogger().Info("Database initialized successfully", zap.String("path", dbPath))
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func resolveDBPath() (string, error) {
	dirs, err := appDirsResolver()
	if err != nil {
		return "", err
	}
	return appdirs.DBPathFor(dirs), nil
}
