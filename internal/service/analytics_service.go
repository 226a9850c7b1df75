package service

import (
	"context"

	"accident-advisor-be/internal/pkg/logger"
	"accident-advisor-be/pkg/events"
	pktNats "accident-advisor-be/pkg/nats"
)

type IAnalyticsService interface {
	Start() error
}

// analyticsService tails the advisory event stream and records per-turn
// usage so category traffic and degradation rates are visible in the
// logs without touching the request path.
type analyticsService struct {
	subscriber *pktNats.Subscriber
	log        logger.ILogger
}

func NewAnalyticsService(subscriber *pktNats.Subscriber, log logger.ILogger) IAnalyticsService {
	return &analyticsService{
		subscriber: subscriber,
		log:        log,
	}
}

func (as *analyticsService) Start() error {
	return as.subscriber.Subscribe("advisor.>", "advisor-analytics", as.handleEvent)
}

func (as *analyticsService) handleEvent(ctx context.Context, event events.Event) error {
	as.log.Info("analytics", "Advisory event received", map[string]interface{}{
		"type":    event.EventType(),
		"payload": event.Payload(),
	})
	return nil
}
