package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"gitlab.com/teranga/resolution/internal/metrics"
)

// FireFunc handles one elapsed deadline. The handler re-reads the case and
// decides whether the deadline is still relevant, so a late or duplicate fire
// is harmless.
type FireFunc func(ctx context.Context, caseID string)

// Scheduler keeps at most one pending deadline timer per case. Arming a case
// replaces its previous timer; cancelling is idempotent. Fires are delivered
// through a bounded worker pool so a burst of expiries cannot fork an
// unbounded number of goroutines.
type Scheduler struct {
	fire        FireFunc
	workerCount int
	logger      *zap.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer

	fireCh     chan string
	shutdownCh chan struct{}
	once       sync.Once
	wg         sync.WaitGroup
}

func New(fire FireFunc, workerCount int, logger *zap.Logger) *Scheduler {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Scheduler{
		fire:        fire,
		workerCount: workerCount,
		logger:      logger,
		timers:      make(map[string]*time.Timer),
		fireCh:      make(chan string, workerCount*4),
		shutdownCh:  make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("starting deadline scheduler", zap.Int("workers", s.workerCount))
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.runWorker(ctx)
	}
	go func() {
		<-ctx.Done()
		s.Shutdown()
	}()
}

// Shutdown stops the workers and discards pending timers. Deadlines are
// re-armed from storage on the next start.
func (s *Scheduler) Shutdown() {
	s.once.Do(func() {
		s.mu.Lock()
		for id, timer := range s.timers {
			timer.Stop()
			delete(s.timers, id)
		}
		metrics.ActiveDeadlineTimers.Set(0)
		s.mu.Unlock()

		close(s.shutdownCh)
		s.wg.Wait()
		s.logger.Info("deadline scheduler stopped")
	})
}

// Arm schedules a single fire for the case at the given instant. Any timer
// already pending for the case is replaced.
func (s *Scheduler) Arm(caseID string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.timers[caseID]; ok {
		old.Stop()
	}

	delay := time.Until(at)
	if delay < 0 {
		delay = 0
	}
	s.timers[caseID] = time.AfterFunc(delay, func() {
		s.enqueue(caseID)
	})
	metrics.ActiveDeadlineTimers.Set(float64(len(s.timers)))
	s.logger.Debug("deadline armed",
		zap.String("case_id", caseID),
		zap.Time("at", at))
}

// Cancel drops the pending timer for the case, if any.
func (s *Scheduler) Cancel(caseID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.timers[caseID]; ok {
		timer.Stop()
		delete(s.timers, caseID)
		metrics.ActiveDeadlineTimers.Set(float64(len(s.timers)))
		s.logger.Debug("deadline cancelled", zap.String("case_id", caseID))
	}
}

// Active returns the number of armed timers.
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *Scheduler) enqueue(caseID string) {
	s.mu.Lock()
	delete(s.timers, caseID)
	metrics.ActiveDeadlineTimers.Set(float64(len(s.timers)))
	s.mu.Unlock()

	metrics.DeadlineFiresTotal.Inc()
	select {
	case s.fireCh <- caseID:
	case <-s.shutdownCh:
	}
}

func (s *Scheduler) runWorker(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case caseID := <-s.fireCh:
			s.fire(ctx, caseID)
		case <-s.shutdownCh:
			return
		}
	}
}
