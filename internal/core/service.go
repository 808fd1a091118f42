package core

import (
	"context"
	"log/slog"
	"time"

	"github.com/JonMunkholm/sheetdb/internal/config"
	"github.com/JonMunkholm/sheetdb/internal/logging"
	"github.com/JonMunkholm/sheetdb/internal/storage"
)

// DefaultUploadTimeout bounds one ingestion when the config leaves it unset.
const DefaultUploadTimeout = 10 * time.Minute

// Service is the entry point for project, sheet and ingestion operations.
// It is safe for concurrent use.
type Service struct {
	db      *storage.DB
	limiter *UploadLimiter
	locks   *ProjectLocks

	maxFileSize int64
	timeout     time.Duration
}

// NewService creates a Service over an open, migrated database.
func NewService(db *storage.DB, cfg config.UploadConfig) *Service {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultUploadTimeout
	}

	return &Service{
		db:          db,
		limiter:     NewUploadLimiter(cfg.MaxConcurrent, cfg.MaxWaitTime),
		locks:       NewProjectLocks(),
		maxFileSize: cfg.MaxFileSize,
		timeout:     timeout,
	}
}

// LimiterStatus reports upload slot usage and how many projects have an
// ingestion running or queued.
func (s *Service) LimiterStatus() UploadLimiterStatus {
	status := s.limiter.Status()
	status.LockedProjects = s.locks.Len()
	return status
}

// WaitForUploads blocks until in-flight ingestions finish or ctx is done.
func (s *Service) WaitForUploads(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// Ping checks that the catalog database answers.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Reader().PingContext(ctx)
}

func (s *Service) logger(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}
