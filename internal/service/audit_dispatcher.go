package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/parkops/parkops-api/internal/models"
	"github.com/parkops/parkops-api/pkg/jobs"
)

const auditJobType = "audit_log"

// AuditDispatcher writes audit entries off the request path. Entries are handed to a
// worker queue and retried there; when the queue is not running they are written
// inline so nothing is dropped during startup or shutdown.
type AuditDispatcher struct {
	store  auditLogger
	queue  *jobs.Queue
	logger *zap.Logger
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// NewAuditDispatcher builds a dispatcher backed by workers goroutines.
func NewAuditDispatcher(store auditLogger, workers, retries int, logger *zap.Logger) *AuditDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &AuditDispatcher{store: store, logger: logger}
	d.queue = jobs.NewQueue("audit", d.handle, jobs.QueueConfig{
		Workers:    workers,
		MaxRetries: retries,
		RetryDelay: 500 * time.Millisecond,
		Logger:     logger,
	})
	return d
}

// Start launches the workers.
func (d *AuditDispatcher) Start(ctx context.Context) {
	d.queue.Start(ctx)
}

// Stop waits for the workers to exit and writes whatever was still queued.
func (d *AuditDispatcher) Stop(ctx context.Context) {
	d.queue.Stop()
	for _, job := range d.queue.Drain() {
		if err := d.handle(ctx, job); err != nil {
			d.logger.Error("failed to flush audit log", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
}

// CreateAuditLog queues the entry for persistence.
func (d *AuditDispatcher) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if d == nil || d.store == nil || log == nil {
		return nil
	}
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	if err := d.queue.Offer(jobs.Job{ID: log.ID, Type: auditJobType, Payload: log}); err != nil {
		d.logger.Debug("audit queue unavailable, writing inline", zap.Error(err))
		return d.store.CreateAuditLog(ctx, log)
	}
	return nil
}

func (d *AuditDispatcher) handle(ctx context.Context, job jobs.Job) error {
	log, ok := job.Payload.(*models.AuditLog)
	if !ok {
		return fmt.Errorf("unexpected audit payload %T", job.Payload)
	}
	return d.store.CreateAuditLog(ctx, log)
}
