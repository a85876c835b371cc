package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gitlab.com/teranga/resolution/internal/db"
	"gitlab.com/teranga/resolution/internal/repository"
)

type OutboxRepository interface {
	GetProcessableTasks(ctx context.Context, tx db.Tx, limit, maxAttempts int) ([]*repository.OutboxTask, error)
	UpdateTaskStatusTx(ctx context.Context, tx db.Tx, id uuid.UUID, status repository.TaskStatus, attempts int, lastError *string, completedAt *time.Time) error
	UpdateTaskStatus(ctx context.Context, id uuid.UUID, status repository.TaskStatus, attempts int, lastError *string, completedAt *time.Time) error
}

type PublisherConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
}

// OnPublished is invoked after a task's event is durably published. The
// orchestrator uses it to advance disputes that wait on notification
// delivery.
type OnPublished func(ctx context.Context, topic string, payload []byte)

// Publisher drains the outbox: it claims batches of pending tasks with a row
// lock, publishes them, and records the outcome per task. Publishing is at
// least once; consumers deduplicate on (case_id, seq).
type Publisher struct {
	db          db.DB
	repo        OutboxRepository
	producer    Producer
	config      PublisherConfig
	onPublished OnPublished
	logger      *zap.Logger

	wg         sync.WaitGroup
	shutdownCh chan struct{}
	stopOnce   sync.Once
}

func NewPublisher(database db.DB, repo OutboxRepository, producer Producer, config PublisherConfig, onPublished OnPublished, logger *zap.Logger) *Publisher {
	return &Publisher{
		db:          database,
		repo:        repo,
		producer:    producer,
		config:      config,
		onPublished: onPublished,
		logger:      logger,
		shutdownCh:  make(chan struct{}),
	}
}

func (p *Publisher) Run(ctx context.Context) {
	p.logger.Info("starting outbox publisher",
		zap.Duration("poll_interval", p.config.PollInterval),
		zap.Int("batch_size", p.config.BatchSize))
	p.wg.Add(1)
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := p.processBatch(ctx); err != nil {
				p.logger.Error("outbox batch failed", zap.Error(err))
			}
		case <-p.shutdownCh:
			return
		case <-ctx.Done():
			p.Shutdown()
			return
		}
	}
}

func (p *Publisher) Shutdown() {
	p.stopOnce.Do(func() {
		close(p.shutdownCh)

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			p.logger.Info("outbox publisher stopped")
		case <-time.After(30 * time.Second):
			p.logger.Warn("outbox publisher shutdown timed out")
		}

		if err := p.producer.Close(); err != nil {
			p.logger.Error("closing producer", zap.Error(err))
		}
	})
}

func (p *Publisher) processBatch(ctx context.Context) error {
	tasks, err := p.claimBatch(ctx)
	if err != nil || len(tasks) == 0 {
		return err
	}

	for _, task := range tasks {
		select {
		case <-p.shutdownCh:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := p.publishTask(ctx, task); err != nil {
			p.logger.Error("publishing outbox task",
				zap.String("task_id", task.ID.String()),
				zap.Error(err))
		}
	}
	return nil
}

// claimBatch marks a batch PROCESSING under a SKIP LOCKED read, so multiple
// publisher instances never claim the same task.
func (p *Publisher) claimBatch(ctx context.Context) ([]*repository.OutboxTask, error) {
	tx, err := p.db.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(context.Background())
	}()

	tasks, err := p.repo.GetProcessableTasks(ctx, tx, p.config.BatchSize, p.config.MaxAttempts)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, tx.Commit(ctx)
	}

	for _, task := range tasks {
		if err := p.repo.UpdateTaskStatusTx(ctx, tx, task.ID, repository.TaskStatusProcessing, task.Attempts, nil, nil); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (p *Publisher) publishTask(ctx context.Context, task *repository.OutboxTask) error {
	err := p.producer.SendMessage(ctx, task.Topic, []byte(task.ID.String()), task.Payload)
	if err != nil {
		attempts := task.Attempts + 1
		errMsg := err.Error()
		if attempts >= p.config.MaxAttempts {
			p.logger.Warn("outbox task exhausted its attempts",
				zap.String("task_id", task.ID.String()),
				zap.Int("attempts", attempts))
		}
		if updateErr := p.repo.UpdateTaskStatus(ctx, task.ID, repository.TaskStatusFailed, attempts, &errMsg, nil); updateErr != nil {
			return updateErr
		}
		return err
	}

	now := time.Now().UTC()
	if err := p.repo.UpdateTaskStatus(ctx, task.ID, repository.TaskStatusDone, task.Attempts, nil, &now); err != nil {
		return err
	}
	if p.onPublished != nil {
		p.onPublished(ctx, task.Topic, task.Payload)
	}
	return nil
}
