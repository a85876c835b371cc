package server

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// AuditManager batches API audit entries and hands the batches to a small
// worker pool. Entries that cannot be queued are emitted directly so no call
// is lost.
type AuditManager struct {
	workerCount int
	batchSize   int
	timeout     time.Duration
	logger      *zap.Logger

	inputChan  chan AuditLogEntry
	batchChan  chan []AuditLogEntry
	shutdownCh chan struct{}
	once       sync.Once
	wg         sync.WaitGroup
}

func NewAuditManager(workerCount, batchSize int, timeout time.Duration, logger *zap.Logger) *AuditManager {
	return &AuditManager{
		workerCount: workerCount,
		batchSize:   batchSize,
		timeout:     timeout,
		logger:      logger,
		inputChan:   make(chan AuditLogEntry, workerCount*batchSize*2),
		batchChan:   make(chan []AuditLogEntry, workerCount*2),
		shutdownCh:  make(chan struct{}),
	}
}

func (m *AuditManager) Start(ctx context.Context) {
	m.wg.Add(1)
	go m.runAggregator()

	for i := 0; i < m.workerCount; i++ {
		m.wg.Add(1)
		go m.runWorker(i)
	}

	go func() {
		<-ctx.Done()
		m.Shutdown(context.Background())
	}()
}

func (m *AuditManager) Shutdown(ctx context.Context) {
	m.once.Do(func() {
		close(m.shutdownCh)

		done := make(chan struct{})
		go func() {
			m.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			m.logger.Info("audit manager stopped")
		case <-ctx.Done():
			m.logger.Warn("audit manager shutdown interrupted")
		}
	})
}

func (m *AuditManager) LogEntry(ctx context.Context, entry AuditLogEntry) {
	select {
	case m.inputChan <- entry:
	case <-ctx.Done():
		m.printEntry(entry)
	case <-m.shutdownCh:
		m.printEntry(entry)
	}
}

// runAggregator collects entries into batches, flushing on size or timeout.
func (m *AuditManager) runAggregator() {
	defer m.wg.Done()

	var (
		batch    []AuditLogEntry
		timer    *time.Timer
		timeoutC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
		if len(batch) > 0 {
			m.dispatchBatch(batch)
		}
		close(m.batchChan)
	}()

	for {
		select {
		case entry := <-m.inputChan:
			batch = append(batch, entry)
			if len(batch) >= m.batchSize {
				m.dispatchBatch(batch)
				batch = nil
				timeoutC = nil
			} else if len(batch) == 1 {
				timer = time.NewTimer(m.timeout)
				timeoutC = timer.C
			}

		case <-timeoutC:
			m.dispatchBatch(batch)
			batch = nil
			timeoutC = nil

		case <-m.shutdownCh:
			return
		}
	}
}

func (m *AuditManager) dispatchBatch(batch []AuditLogEntry) {
	batchCopy := make([]AuditLogEntry, len(batch))
	copy(batchCopy, batch)

	select {
	case m.batchChan <- batchCopy:
	default:
		// Workers are saturated; emit directly rather than block requests.
		m.printBatch(batchCopy)
	}
}

func (m *AuditManager) runWorker(id int) {
	defer m.wg.Done()

	for {
		select {
		case batch, ok := <-m.batchChan:
			if !ok {
				return
			}
			m.printBatch(batch)
		case <-m.shutdownCh:
			// Drain what is already queued before exiting.
			for {
				select {
				case batch, ok := <-m.batchChan:
					if !ok {
						return
					}
					m.printBatch(batch)
				default:
					return
				}
			}
		}
	}
}

func (m *AuditManager) printBatch(batch []AuditLogEntry) {
	for _, entry := range batch {
		m.printEntry(entry)
	}
}

func (m *AuditManager) printEntry(entry AuditLogEntry) {
	entryJSON, err := json.Marshal(entry)
	if err != nil {
		m.logger.Error("marshalling audit entry", zap.Error(err))
		return
	}
	fmt.Printf("AUDIT %s\n", entryJSON)
}
