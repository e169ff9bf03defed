package worker

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ricirt/venturematch/internal/domain"
	"github.com/ricirt/venturematch/internal/queue"
	"github.com/ricirt/venturematch/internal/repository"
)

// Snapshot is a point-in-time view of the queue.
type Snapshot struct {
	Buffer struct {
		High   int `json:"high"`
		Normal int `json:"normal"`
		Low    int `json:"low"`
	} `json:"buffer"`
	Tasks map[domain.TaskStatus]int `json:"tasks"`
}

// Monitor periodically publishes queue statistics and warns while
// dead-lettered tasks wait for an operator.
type Monitor struct {
	repo       repository.TaskRepository
	q          *queue.PriorityQueue
	spec       string
	onSnapshot func(*Snapshot)
	logger     *zap.Logger
}

// NewMonitor builds a monitor running on a cron spec such as "@every 1m".
// onSnapshot may be nil.
func NewMonitor(
	repo repository.TaskRepository,
	q *queue.PriorityQueue,
	spec string,
	onSnapshot func(*Snapshot),
	logger *zap.Logger,
) *Monitor {
	if onSnapshot == nil {
		onSnapshot = func(*Snapshot) {}
	}
	return &Monitor{repo: repo, q: q, spec: spec, onSnapshot: onSnapshot, logger: logger}
}

// Start schedules the check and returns; the cron runner stops when ctx is
// cancelled.
func (m *Monitor) Start(ctx context.Context) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(cron.WithParser(parser))
	if _, err := c.AddFunc(m.spec, func() { m.check(ctx) }); err != nil {
		return fmt.Errorf("schedule queue monitor %q: %w", m.spec, err)
	}
	c.Start()
	m.logger.Info("queue monitor started", zap.String("schedule", m.spec))

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		m.logger.Info("queue monitor stopped")
	}()
	return nil
}

// Snapshot reads the current buffer depths and task counts.
func (m *Monitor) Snapshot(ctx context.Context) (*Snapshot, error) {
	counts, err := m.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	s := &Snapshot{Tasks: counts}
	s.Buffer.High, s.Buffer.Normal, s.Buffer.Low = m.q.Depths()
	return s, nil
}

func (m *Monitor) check(ctx context.Context) {
	s, err := m.Snapshot(ctx)
	if err != nil {
		if ctx.Err() == nil {
			m.logger.Error("queue monitor failed", zap.Error(err))
		}
		return
	}
	m.onSnapshot(s)

	if dead := s.Tasks[domain.TaskDeadLettered]; dead > 0 {
		m.logger.Warn("dead-lettered tasks awaiting replay", zap.Int("count", dead))
	}
}
