package service

import (
	"context"
	"time"

	"accident-advisor-be/internal/pkg/logger"
	"accident-advisor-be/pkg/advisor/session"
	"accident-advisor-be/pkg/events"
)

type IMaintenanceService interface {
	Start(ctx context.Context)
}

// maintenanceService sweeps idle sessions on a fixed interval and
// announces the result on the event bus.
type maintenanceService struct {
	memory    *session.Memory
	interval  time.Duration
	publisher EventPublisher
	log       logger.ILogger
}

func NewMaintenanceService(
	memory *session.Memory,
	interval time.Duration,
	publisher EventPublisher,
	log logger.ILogger,
) IMaintenanceService {
	return &maintenanceService{
		memory:    memory,
		interval:  interval,
		publisher: publisher,
		log:       log,
	}
}

func (ms *maintenanceService) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(ms.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				ms.sweep(ctx, now)
			}
		}
	}()
}

func (ms *maintenanceService) sweep(ctx context.Context, now time.Time) {
	removed := ms.memory.Sweep(ctx, now)
	if removed == 0 {
		return
	}

	ms.log.Info("maintenance", "Session sweep completed", map[string]interface{}{
		"removed": removed,
	})

	if ms.publisher == nil {
		return
	}
	if err := ms.publisher.Publish(ctx, events.NewSessionSwept(removed)); err != nil {
		ms.log.Warn("maintenance", "Failed to publish session swept event", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
